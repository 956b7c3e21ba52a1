// Package order contains the order synchronization bounded context.
// It turns LINX order documents into flat analytic rows and defines the
// ports the sync services depend on.
//
// Key concepts:
//   - RawOrder: nested JSON document returned by the LINX order API
//   - NormalizedOrder: flat record written to the analytic sink
//   - Normalizer: strict (bulk import) or lenient (queue) mapping between the two
//   - Source / Repository: ports implemented by the LINX client and the sink
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package order
