// Package workunitservice implements the crowd work-unit lifecycle:
// issuing marketplace work units for local tasks, reconciling remote
// submission state into the local store, and ingesting submitted
// results as exactly-once annotations.
//
// Layering:
// - domain: core entities, status mapping, answer parsing, errors
// - application: commands/queries/workers using explicit ports
// - ports: stable boundaries for persistence and the marketplace client
// - adapters: concrete HTTP, memory, postgres, and marketplace implementations
// - transport: module-private DTOs for HTTP contracts
//
// Boundary notes:
// - Keep this module self-contained under the annotation-pipeline context.
// - The marketplace is reached only through ports.MarketplaceClient; no
//   adapter type leaks into domain or application code.
package workunitservice
