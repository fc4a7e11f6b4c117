// Package domain translates MCP tool calls into Play Console operations.
//
// Each tool is a Tool/Handler pair: the Tool function declares the schema
// metadata and the Handler adapts typed input to the publishing, catalog or
// journal services. Mutations report expected failures inside their result;
// reads fail the tool call.
package domain
