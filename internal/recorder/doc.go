// Package recorder implements the capture flow: a session that owns the
// mount, input channel and destination file for one recording, and a
// streaming loop that moves blocks from the channel into the file until the
// target size is reached. The tracker publishes capture state for the
// monitor endpoints.
package recorder
