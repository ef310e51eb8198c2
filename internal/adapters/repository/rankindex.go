package repository

import (
	"math"
	"math/rand/v2"
)

// rankIndex keeps ids ordered by score DESC, then id ASC, in a treap.
// "less" means ranks earlier, so in-order traversal yields best to worst.
// It is not safe for concurrent use; the owning table holds the lock.
type rankIndex struct {
	root   *node
	scores map[string]float64
}

type node struct {
	id    string
	score float64
	prio  uint64
	left  *node
	right *node
	size  int
}

func newRankIndex() *rankIndex {
	return &rankIndex{scores: make(map[string]float64)}
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// normalize sends NaN to the bottom of the ranking.
func normalize(x float64) float64 {
	if math.IsNaN(x) {
		return math.Inf(-1)
	}
	return x
}

// less reports whether (aScore, aID) ranks before (bScore, bID).
func less(aScore float64, aID string, bScore float64, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, score float64, prio uint64) *node {
	if n == nil {
		return &node{id: id, score: score, prio: prio, size: 1}
	}
	if less(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, score float64) *node {
	if n == nil {
		return nil
	}
	if score == n.score && id == n.id {
		// Rotate the higher-priority child up until n is a leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, score)
		}
	} else if less(score, id, n.score, n.id) {
		n.left = deleteNode(n.left, id, score)
	} else {
		n.right = deleteNode(n.right, id, score)
	}
	fix(n)
	return n
}

// collectTopN appends up to limit ids in rank order.
func collectTopN(n *node, limit int, out *[]string) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.id)
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// set inserts id or moves it to its new score.
func (r *rankIndex) set(id string, score float64) {
	score = normalize(score)
	if old, ok := r.scores[id]; ok {
		if old == score {
			return
		}
		r.root = deleteNode(r.root, id, old)
	}
	r.scores[id] = score
	r.root = insert(r.root, id, score, rand.Uint64())
}

// remove drops id from the index.
func (r *rankIndex) remove(id string) {
	if old, ok := r.scores[id]; ok {
		r.root = deleteNode(r.root, id, old)
		delete(r.scores, id)
	}
}

// top returns up to limit ids in rank order; limit < 1 returns all.
func (r *rankIndex) top(limit int) []string {
	if limit < 1 || limit > len(r.scores) {
		limit = len(r.scores)
	}
	out := make([]string, 0, limit)
	collectTopN(r.root, limit, &out)
	return out
}

func (r *rankIndex) size() int {
	return len(r.scores)
}
