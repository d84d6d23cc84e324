// Package server exposes question answering, indexing and session
// management over HTTP.
//
// Routes:
//
//	POST   /api/v1/query
//	POST   /api/v1/index
//	GET    /api/v1/sessions/:id/history
//	DELETE /api/v1/sessions/:id
//	GET    /check/healthy
//	GET    /metrics
package server
