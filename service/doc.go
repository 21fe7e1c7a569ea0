// Package service is the HTTP facade over a pipeline session: the REST API
// the canvas UI talks to, the websocket status stream, and the operational
// endpoints.
//
// # Surface
//
// Everything the UI does maps to a route under /api/v1:
//
//	GET    /api/v1/stages                           stage catalog
//	GET    /api/v1/pipeline                         full graph view
//	POST   /api/v1/pipeline/stages/{kind}           place a stage
//	PATCH  /api/v1/pipeline/stages/{kind}/position  move a stage (returns snapped)
//	DELETE /api/v1/pipeline/stages/{kind}           remove a stage
//	POST   /api/v1/pipeline/arrange                 auto-arrange the canvas
//	GET    /api/v1/pipeline/config/{kind}           read a stage config
//	PUT    /api/v1/pipeline/config/{kind}           partial config merge
//	POST   /api/v1/pipeline/dataset                 multipart dataset upload
//	PUT    /api/v1/pipeline/dataset/selection       choose features and target
//	DELETE /api/v1/pipeline/dataset                 detach the dataset
//	GET    /api/v1/pipeline/statuses                status projection
//	GET    /api/v1/pipeline/suggestions             next-step suggestions
//	POST   /api/v1/pipeline/train                   dispatch a training run
//	GET    /api/v1/pipeline/result                  last result (flagged stale)
//	POST   /api/v1/pipeline/predict                 predict with the trained model
//	POST   /api/v1/explain                          beginner explanation of a stage
//	GET    /api/v1/pipeline/export                  download the pipeline document
//	POST   /api/v1/pipeline/import                  replace state from a document
//	POST   /api/v1/pipelines                        save to the library
//	GET    /api/v1/pipelines                        list the library
//	GET    /api/v1/pipelines/{id}                   read a saved document
//	DELETE /api/v1/pipelines/{id}                   delete from the library
//	POST   /api/v1/pipelines/{id}/load              load a saved pipeline
//	POST   /api/v1/pipeline/reset                   wipe everything
//	GET    /ws/events                               websocket status stream
//	GET    /healthz                                 aggregated dependency health
//	GET    /metrics                                 Prometheus scrape endpoint
//
// Routing uses Go 1.22 method+path patterns, so a wrong method is a mux-level
// 405 and handlers never re-check it.
//
// # Error Contract
//
// Handlers never pick status codes; they hand every failure to
// writeJSONError, which maps the error taxonomy in one place: validation
// and invalid input are 400, duplicate placement / not-ready / concurrent
// training are 409, an expired dataset session is 410, a rejected document
// import is 422, a backend training failure is 502, and an unreachable
// backend is 503. Missing stages, results, and saved pipelines are 404. The
// body is always {"error": "...", "status": N}.
//
// # Event Stream
//
// /ws/events pushes {revision, statuses, suggestions} whenever the session
// revision changes. Each client owns a session subscription with a buffered
// coalescing channel, so a burst of edits becomes one push and a slow
// client never blocks the session or the other clients. Pings run every 30
// seconds against a 60 second pong deadline.
//
// # Lifecycle
//
// New builds the handler; Start binds the listener; Stop drains in-flight
// requests with a deadline and then closes websocket clients. Tests mount
// Handler() on httptest servers and skip the listener entirely.
package service
