// Package engine executes GraphQL operations against a compiled schema and
// a dispatcher of tenant-provided resolvers and access checkers.
//
// Execution is organized around three ideas:
//
//  1. Values. Every field resolution produces a future.Value. Most values
//     complete synchronously (projections from already-resolved data);
//     resolver-backed fields complete when their batch returns. Derived
//     work is chained with Map/FlatMap so trivial paths pay no scheduling
//     cost.
//
//  2. Memoization. Each resolved object carries an ObjectResult, a table
//     of field cells keyed by field name and canonical argument signature.
//     The first request for a (field, args) pair installs a pending cell
//     and schedules the resolver; every later request for the same pair,
//     from any part of the operation, shares the same cell. Objects
//     reached through a global ID additionally share one ObjectResult per
//     identity, so two different paths to the same node converge on the
//     same cells.
//
//  3. Waves. Resolver invocations are not dispatched one at a time.
//     Pending resolutions accumulate in a collector while synchronous
//     expansion makes progress; when the operation quiesces, the
//     collector flushes one batch call per distinct resolver. A resolver
//     written against the batch contract sees every selector that became
//     ready in the wave.
//
// All operation state is confined to a single scheduler goroutine.
// Tenant code (batch resolvers, checkers) runs on worker goroutines and
// reports back through a ready queue, so no locking is needed on the
// response tree, the memo tables, or the collector.
package engine
