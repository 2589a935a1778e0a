package bktree

import "viddup/internal/hashing"

// Tree indexes frame hashes by Hamming distance.
type Tree struct {
	root *node
	size int
}

type node struct {
	hash     hashing.FrameHash
	children map[int]*node
}

// Match is a stored hash found within the query radius.
type Match struct {
	Distance int
	Hash     hashing.FrameHash
}

// New returns an empty tree.
func New() *Tree {
	return &Tree{}
}

// Len returns the number of distinct hashes stored.
func (t *Tree) Len() int { return t.size }

// Add inserts hash into the tree. Inserting a hash already present is a
// no-op: the walk ends at distance 0 without attaching a new node.
func (t *Tree) Add(hash hashing.FrameHash) {
	if t.root == nil {
		t.root = &node{hash: hash}
		t.size++
		return
	}

	current := t.root
	for {
		d := hash.Distance(current.hash)
		if d == 0 {
			return
		}
		if current.children == nil {
			current.children = make(map[int]*node)
		}
		child, ok := current.children[d]
		if !ok {
			current.children[d] = &node{hash: hash}
			t.size++
			return
		}
		current = child
	}
}

// Query returns every stored hash whose true distance to hash is at most
// maxDistance. Traversal is breadth-first with an explicit queue; a child
// bucket b is descended only when |d - b| <= maxDistance, which by the
// triangle inequality cannot exclude a true match.
func (t *Tree) Query(hash hashing.FrameHash, maxDistance int) []Match {
	if t.root == nil || maxDistance < 0 {
		return nil
	}

	queue := []*node{t.root}
	var matches []Match
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		d := hash.Distance(current.hash)
		if d <= maxDistance {
			matches = append(matches, Match{Distance: d, Hash: current.hash})
		}
		for bucket, child := range current.children {
			if bucket >= d-maxDistance && bucket <= d+maxDistance {
				queue = append(queue, child)
			}
		}
	}
	return matches
}
