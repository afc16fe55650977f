// Package state implements the reactive core of Treeline: a hierarchical
// path-addressed store with automatic dependency tracking and scheduled
// re-evaluation.
//
// Application state lives under dot-delimited paths ("user.profile.name").
// Computations are zero-argument functions registered with Engine.Observe;
// while a computation runs, every Get it performs is recorded, and the
// computation is re-run whenever one of those paths (or an ancestor or
// descendant touched by a structural write) changes. Subscriptions are
// replaced wholesale on every run, so a path read only on a branch that was
// not taken this run does not keep the computation subscribed.
//
// Mutations pass through an ordered middleware pipeline before committing
// and are coalesced by the batching scheduler, which supports an immediate
// policy (dependents run before Set returns) and a deferred policy
// (dependents run at the next flush). Flushes drain in rounds; a runaway
// mutation feedback loop is cut off by the configured round limit.
package state
