// Package main hosts the word count service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, word count, and history endpoints. Payloads are
//     validated with go-playground/validator before reaching the service; failures come back as a
//     {"success":false,"err_message":...} envelope.
//   - Fetch strategies: "whole" buffers the document through a Colly collector, "stream" reads it in fixed-size
//     chunks over net/http and folds each chunk into the running tally. Both share one pooled transport and
//     decode declared charsets to UTF-8.
//   - Persistence & fanout: every successful count is stored unsorted in the configured record store
//     (memory/postgres/sqlite/GCS). A completion message is published to Pub/Sub when a project and topic are
//     configured, or kept in memory when only a topic is set.
//   - Configuration & plumbing: Viper populates config from env/files; zap provides structured logging, optionally
//     tee'd to a lumberjack-rotated file; Prometheus metrics are exported via the metrics middleware and /metrics.
//
// Operational notes:
//   - Each request is handled on its own goroutine and bounded by server.request_timeout_seconds. Nothing is
//     retried: a failed fetch or store write fails the request and nothing is persisted.
//   - The process reacts to SIGINT/SIGTERM by draining in-flight requests, then closing the store and publisher.
//
// Quick checklist:
//   - Configure env vars: WORDCOUNT_SERVER_PORT or PORT, WORDCOUNT_HTTP_TIMEOUT_SECONDS, WORDCOUNT_STORAGE_BACKEND
//     plus the matching WORDCOUNT_STORAGE_* settings, and WORDCOUNT_PUBSUB_* for completion messages.
//   - Run locally: go run ./cmd/wordcount -config config.yaml (or rely solely on env overrides).
package main
