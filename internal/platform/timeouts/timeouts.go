// Package timeouts defines shared timeout constants. Keeping them in one
// place makes the durations discoverable.
package timeouts

import "time"

// GatewayCall caps a single Play Developer API request.
const GatewayCall = 60 * time.Second

// Upload caps a bundle or APK upload.
const Upload = 10 * time.Minute

// Discard caps the best-effort edit cleanup that runs after a failure.
const Discard = 15 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second
