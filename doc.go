// Package neuroblock is the server side of a visual machine-learning
// pipeline builder. The browser UI lets beginners assemble a training
// pipeline from six blocks on a canvas; this module owns the pipeline
// graph, validates every edit, decides when training may run, and
// drives the Python ML service that does the numerical work.
//
// # Architecture
//
// One session, one pipeline. The server holds the canonical state and
// the UI is a projection of it:
//
//	┌────────────────────────────────────┐
//	│            Browser UI              │  canvas, config panels,
//	│   (REST + WebSocket /ws/events)    │  status badges, hints
//	└──────────────┬─────────────────────┘
//	               ↓ HTTP
//	┌────────────────────────────────────┐
//	│           service.Server           │  routing, JSON envelopes,
//	│      (facade over the session)     │  error→status mapping
//	└──────────────┬─────────────────────┘
//	               ↓ method calls
//	┌────────────────────────────────────┐
//	│          session.Session           │  serializes every mutation,
//	│  canvas + configs + orchestration  │  bumps one revision counter
//	└──────────────┬─────────────────────┘
//	               ↓ HTTP (mlsvc client)
//	┌────────────────────────────────────┐
//	│         Python ML service          │  dataset parsing, training,
//	│     (upload, train, predict)       │  prediction
//	└────────────────────────────────────┘
//
// Every successful mutation bumps the session revision. The WebSocket
// event stream pushes the derived view (statuses, suggestions) after
// each bump, so the UI never polls and never computes pipeline state
// itself.
//
// # Packages
//
// Domain:
//   - stage: the six stage kinds and their catalog
//   - canvas: placement, snap grid, auto-arrange
//   - pipeline: typed stage configurations and validated patches
//   - status: pure projection of pipeline state to per-stage statuses
//   - suggest: next-step hints derived from the same state
//   - training: readiness gate and single-flight training orchestrator
//   - document: export/import documents and the saved pipeline library
//   - session: the aggregate tying all of the above together
//
// Edges:
//   - service: HTTP facade, WebSocket event hub, health endpoint
//   - mlsvc: HTTP client for the ML service (training.Backend)
//   - explain: stage explanations, language model with static fallback
//
// Infrastructure:
//   - config: YAML configuration with env overrides
//   - errors: error classification and sentinel errors
//   - health: dependency probing and aggregation
//   - metric: Prometheus metrics
//
// # Error Contract
//
// Domain packages return sentinel errors wrapped with component and
// operation context (errors.WrapInvalid and friends). The service layer
// maps them to HTTP statuses in exactly one place, so a new handler
// cannot invent its own mapping. Validation failures carry the offending
// field name; the UI surfaces them verbatim.
//
// # Usage
//
// Embedding the builder without the HTTP layer:
//
//	backend, _ := mlsvc.NewClient(mlsvc.Config{BaseURL: "http://localhost:5000"})
//	sess := session.New(backend)
//
//	sess.PlaceStage(stage.KindDataset, canvas.Position{X: 64, Y: 64})
//	handle, _ := sess.UploadDataset(ctx, "titanic.csv", file)
//	sess.SelectFeatures([]string{"age", "fare"}, "survived")
//	sess.SetModelType(pipeline.ModelRandomForest)
//
//	result, err := sess.Train(ctx)
//
// Serving the UI:
//
//	srv, _ := service.New(service.Config{Addr: ":8080", Session: sess})
//	srv.Start(ctx)
//	defer srv.Stop(30 * time.Second)
//
// # Binary
//
// Build and run the server:
//
//	go build -o bin/neuroblock ./cmd/neuroblock
//	./bin/neuroblock --config config.yaml
//
//	# Generate a starter config
//	./bin/neuroblock --write-config=config.yaml
//
// The server expects the Python ML service at backend.url (default
// http://localhost:5000) and degrades gracefully while it is down:
// graph editing keeps working, /healthz reports the outage, and train
// requests return 503 until the backend answers again.
package neuroblock
