// Package websocket provides the WebSocket transport for the Dual Screen
// Racer server.
//
// The websocket package implements:
//   - A hub that owns every live connection and the per-session broadcast
//     groups
//   - Targeted, group-except-sender, and whole-group sends
//   - The Dispatcher that maps inbound events to session operations and
//     forwards the resulting notifications
//   - Connection lifecycle management, including roster removal on disconnect
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections. Each connection gets a dedicated reader and writer
// goroutine and a generated UUID that serves as its identity everywhere else
// in the system.
//
// Message Protocol:
//
// Frames are JSON objects of the form {"event": "...", "data": {...}} in both
// directions. Inbound frames missing a required field are dropped without a
// reply; the client only ever hears about errors addressed to it, such as
// invalid_session or name_already_taken.
//
// Connection Lifecycle:
//
//  1. Client connects to /ws and is assigned a connection ID
//  2. The display creates or reclaims a session; controllers join one
//  3. Events flow through the Dispatcher into the session state machine
//  4. Disconnection removes the connection from its group and, for
//     controllers, from the session roster
package websocket
