// Package render applies computation output to a live render target.
//
// Two interchangeable strategies operate over the same trees: the direct
// strategy mutates target nodes in place as differences are discovered,
// and the batched strategy diffs the new tree against the previous one
// and applies a minimal patch list, recycling nodes from a type-keyed
// pool. A supervising Reconciler selects the strategy and downgrades
// permanently to direct mode after repeated batched failures, on the
// assumption that the failure condition is environment-dependent and
// persistent for the session.
package render
