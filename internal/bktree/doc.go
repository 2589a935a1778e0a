// Package bktree provides a BK-tree over frame hashes: a metric-space index
// that lists every stored hash within a given Hamming distance of a query
// without scanning the whole set.
//
// The tree is built fresh for each run from the current signatures, queried
// single-threaded, and never persisted. Insertion and traversal are
// iterative; each node exclusively owns its distance-keyed children.
package bktree
