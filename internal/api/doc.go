// Package api hosts the HTTP server, middleware, and REST handlers of the word
// count service. Routes:
//   - GET /healthz and /readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/word-count to fetch a document and return its ordered tally.
//   - GET /v1/history to list stored word count records.
package api
