// Package api hosts the HTTP server, middleware, and REST handlers of the
// report service. Notable routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/reports/{category}/... for periods, views, bucket rows, raw
//     rows, violations and snapshot history.
//   - POST /v1/cache/invalidate to drop cached artifacts.
package api
