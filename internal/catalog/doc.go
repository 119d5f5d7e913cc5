// Package catalog persists an index of finished recordings in an embedded
// key-value store, so past captures survive restarts and can be listed and
// inspected over the monitor API.
package catalog
