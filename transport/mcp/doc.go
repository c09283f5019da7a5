// Package mcp provides Model Context Protocol server implementation for the
// Dual Screen Racer server.
//
// The mcp package implements:
//   - MCP server for AI agent integration
//   - Tool definitions for session administration
//   - A thin client that proxies every tool call to the REST API
//
// MCP Tools:
//
// The package exposes the following tools for AI agents:
//   - list_sessions: List every live session with state and roster size
//   - get_session: Get one session's state, score phase, and full roster
//   - open_sessions: List sessions currently accepting controllers
//   - delete_session: Force-delete a session
//
// Transport Modes:
//
// The server supports two transport modes:
//   - Stdio: Direct stdio communication for local MCP clients
//   - HTTP: HTTP endpoint for remote MCP integration
//
// The tools are read-mostly administration: gameplay itself flows over the
// WebSocket transport, not MCP.
package mcp
