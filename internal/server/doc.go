// Package server implements the HTTP monitor API and the capture progress
// event feed. It exposes health, status, catalog and configuration endpoints
// alongside Prometheus metrics and a websocket stream of progress events.
package server
