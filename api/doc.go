// Package api provides HTTP REST API handlers for the Dual Screen Racer server.
//
// The api package implements:
//   - Session inspection and administration endpoints
//   - A QR code endpoint the display embeds so phones can join by camera
//   - WebSocket upgrade handling
//   - Static file serving for the display and controller pages
//
// Endpoints:
//
// Session Management:
//   - GET /api/sessions - List all live sessions
//   - GET /api/sessions/open - List sessions accepting controllers
//   - GET /api/sessions/{code} - Get one session with its roster
//   - DELETE /api/sessions/{code} - Force-delete a session
//   - GET /api/sessions/{code}/qr - PNG QR code linking to the controller page
//
// Health:
//   - GET /healthz - Liveness probe
//
// WebSocket:
//   - GET /ws - Upgrade to the realtime protocol
//
// Gameplay never flows through REST. The endpoints here exist for the display
// page, operational tooling, and the MCP proxy; every in-game event travels
// over the WebSocket connection.
//
// Error Handling:
//
// Errors are returned as JSON with appropriate HTTP status codes:
//
//	{
//	  "error": "session not found"
//	}
package api
