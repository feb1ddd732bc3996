// Package http provides HTTP handlers and middleware for the conference
// scheduler API.
//
// The router exposes the following endpoints:
//   - GET /sessions, POST /sessions, GET /sessions/{id}, PUT /sessions/{id},
//     DELETE /sessions/{id}: organizer-facing session management exchanging
//     the `sessionDTO` payload defined in session_handler.go. Create and
//     update accept `conflictOnly` for a dry run and `overwriteConflicts` to
//     commit despite detected double-bookings; conflict rejections return
//     409 with the full conflict list.
//   - GET /respond: the public, token-authenticated response endpoint faculty
//     members reach from invitation emails. Every terminal outcome renders an
//     HTML page since the caller is a browser, not a program.
//   - GET /faculties, GET /rooms: read-only reference catalogs.
//   - POST /bulk-invites: collapses a faculty member's selected sessions into
//     one digest invitation, re-reading each session from the store before
//     rendering.
//   - GET /metrics: Prometheus metrics. GET /healthz: liveness probe.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
