// Package main hosts the report service entrypoint.
//
// Architecture overview:
//   - Storage: crawler report artifacts (accessibility, broken_links and seo CSV exports, usually gzip-compressed)
//     are listed and read from the configured blob backend (GCS, a local directory, or memory). An optional TTL
//     cache sits in front of the backend.
//   - Report engine: internal/report resolves each artifact name to a YYYY-MM period, aggregates the period's
//     batches row-wise, and classifies the result into per-dimension bucket counts.
//   - HTTP API: internal/api.Server exposes health, metrics, period listings, views, bucket drill-downs,
//     accessibility violation breakdowns and snapshot history under /v1.
//   - Persistence & fanout: when a DSN is configured, precomputed bucket counts are upserted into Postgres.
//     A Pub/Sub notification is published per precomputed view when a topic is configured.
//   - Configuration & plumbing: Viper populates config from env/files; zap provides structured logging; Prometheus
//     metrics are exported at /metrics; OpenTelemetry spans wrap view builds.
//
// Quick checklist:
//   - Configure env vars: REPORTS_SERVER_PORT or PORT, REPORTS_STORAGE_BACKEND, REPORTS_STORAGE_BUCKET,
//     REPORTS_STORAGE_PREFIX, REPORTS_DATABASE_DSN, REPORTS_PUBSUB_PROJECT_ID and REPORTS_PUBSUB_TOPIC_NAME.
//   - Run locally: go run ./cmd/reportd -config config.yaml (or rely solely on env overrides).
//   - Precompute and inspect reports from a shell with ./cmd/reportctl.
package main
