// Package service wires protocol transport to the publishing services.
//
// It is the transport adapter layer: the package knows how to run MCP over
// stdio, streamable HTTP or SSE, and delegates tool behavior to the handlers
// in the domain package.
package service
