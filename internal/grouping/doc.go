// Package grouping clusters videos whose signatures are perceptually close.
//
// Candidate pairs come from a BK-tree over all distinct frame hashes, which
// prunes the quadratic comparison space. Every candidate pair is then verified
// with an exact signature comparison before it can join a group, so the index
// only ever filters, never decides. Videos connected through kept pairs form
// one group.
package grouping
