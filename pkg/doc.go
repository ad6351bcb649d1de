// Package pkg holds the public labgraph libraries.
//
// # Overview
//
// Labgraph turns lab process records (samples, materials, actions, analyses,
// measurements and actors) into two view models: a filterable, sortable,
// paginated table and a colored process graph. The packages are layered:
//
//  1. [entity] - Record model, wire decoding and field access
//  2. [table] - Table projection: tag and text filters, locale-aware sort, paging
//  3. [graph] - Graph model builder with palette colors and a build report
//  4. [source] - Data sources: dashboard REST API, MongoDB, JSON fixtures
//  5. [view] - Stateful table and graph views with stale-response protection
//  6. [render] - Sinks for the view models (DOT/SVG, terminal tables)
//
// Supporting packages:
//
//   - [cache]: Response caches for the REST source (file, Redis, null)
//   - [config]: TOML configuration
//   - [errors]: Coded errors shared across packages
//   - [httputil]: Retry with backoff
//   - [observability]: Hooks for fetches, caches and HTTP requests
//
// # Data Flow
//
//	Dashboard API / MongoDB / fixture
//	         ↓
//	    [source] package (entities, graph payloads)
//	         ↓
//	    [view] package (latest-response-wins loading)
//	         ↓
//	    [table] / [graph] packages (projection, model building)
//	         ↓
//	    [render] sinks, HTTP JSON, terminal UI
package pkg
