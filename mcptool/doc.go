// Package mcptool connects the workflow engine to external tool servers
// speaking the Model Context Protocol.
//
// A Hub holds one stdio connection per configured server, aggregates the
// tools they advertise, and routes each CallTool invocation to the server
// that owns the tool. The engine's tool collaborator uses the hub through
// the ToolAgent in the root package.
package mcptool
