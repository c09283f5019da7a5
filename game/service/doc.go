// Package service provides the business logic layer for the Dual Screen Racer
// server.
//
// The service package implements:
//   - A context-aware facade over the session registry
//   - The realtime operations driven by the websocket dispatcher
//   - The admin surface consumed by the REST API and the MCP tools
//
// Architecture:
//
// The service layer sits between the transport layers (HTTP, WebSocket, MCP)
// and the session state machine. Realtime operations return the notification
// sets computed by the session package; the dispatcher forwards them to the
// broadcast transport without interpreting them. Admin operations return
// read-only snapshots for inspection.
//
// Usage:
//
//	reg := session.NewRegistry(notifier, session.Options{})
//	svc := service.NewGameService(reg)
//
//	code, _ := svc.CreateSession(ctx, hostConnID)
//	notes, err := svc.JoinSession(ctx, code, controllerConnID)
package service
