// Package api implements the HTTP REST API and WebSocket feed of the node
// config service.
//
// This package provides:
//   - REST endpoints for the config snapshot, instances, sensor targets and
//     the IR blaster
//   - Revision save, list and restore
//   - API target option lookup for this node and for remote nodes
//   - WebSocket hub broadcasting committed mutations and saves
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// Every mutating endpoint calls one Store operation. Deleting an instance
// renumbers later instances, so mutation responses that can move IDs return
// the whole snapshot together with the key registry; a client keeps its view
// state keyed by registry key rather than by ID.
//
// Change events reach WebSocket clients through Hub.ObserveChange, which the
// caller registers as (part of) the store observer.
//
// # Errors
//
// Errors use the body {"status": ..., "code": ..., "message": ...}. Unknown
// instances and revisions are 404, validation failures are 400 with code
// validation_error, and IR target edits without a blaster are 409.
package api
