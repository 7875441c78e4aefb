// Package messaging holds the driven.Transport implementations that carry
// messages from a UI context to the background context.
//
//   - local: in-process delivery to a running background dispatcher
//   - remote: JSON over HTTP to a background daemon started with "webstash serve"
package messaging
