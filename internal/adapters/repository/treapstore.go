package repository

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/okian/hoopvision/internal/domain/model"
)

// Treap-based, in-memory Store implementation.
//
// Ordering: points DESC, then playerID ASC (deterministic). "less" means
// ranks earlier, so in-order traversal yields the leaderboard best first.

type node struct {
	id     string
	points int
	prio   uint64
	left   *node
	right  *node
	size   int
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

func less(aPoints int, aID string, bPoints int, bID string) bool {
	if aPoints != bPoints {
		return aPoints > bPoints
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

func insert(n *node, id string, points int, prio uint64) *node {
	if n == nil {
		return &node{id: id, points: points, prio: prio, size: 1}
	}
	if less(points, id, n.points, n.id) {
		n.left = insert(n.left, id, points, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, points, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id string, points int) *node {
	if n == nil {
		return nil
	}
	switch {
	case points == n.points && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, points)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, points)
		}
	case less(points, id, n.points, n.id):
		n.left = deleteNode(n.left, id, points)
	default:
		n.right = deleteNode(n.right, id, points)
	}
	fix(n)
	return n
}

// collect appends up to limit entries in rank order. limit < 0 means all.
func collect(n *node, limit int, byID map[string]model.PlayerStats, out *[]Entry) {
	if n == nil || (limit >= 0 && len(*out) >= limit) {
		return
	}
	collect(n.left, limit, byID, out)
	if limit < 0 || len(*out) < limit {
		st := byID[n.id]
		*out = append(*out, Entry{
			PlayerID: n.id,
			Points:   st.Points,
			Makes:    st.Makes,
			Attempts: st.Attempts,
			Rebounds: st.Rebounds,
		})
	}
	collect(n.right, limit, byID, out)
}

// TreapStore keeps players ordered by points.
type TreapStore struct {
	mu   sync.RWMutex
	root *node
	byID map[string]model.PlayerStats
	rng  *rand.Rand
	seed uint64
}

// NewTreapStore constructs an empty store.
func NewTreapStore(opts ...Option) *TreapStore {
	s := &TreapStore{
		byID: make(map[string]model.PlayerStats),
		seed: rand.Uint64(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rng = rand.New(rand.NewPCG(s.seed, s.seed^0x9e3779b97f4a7c15))
	return s
}

// Put implements Store.Put in O(log n) expected time.
func (s *TreapStore) Put(_ context.Context, playerID string, st model.PlayerStats) error {
	if playerID == "" {
		return ErrEmptyPlayer
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	old, exists := s.byID[playerID]
	s.byID[playerID] = st
	if exists {
		if old.Points == st.Points {
			return nil
		}
		s.root = deleteNode(s.root, playerID, old.Points)
	}
	s.root = insert(s.root, playerID, st.Points, s.rng.Uint64())
	return nil
}

// Rank returns a player's dense rank: equal points share a rank.
func (s *TreapStore) Rank(_ context.Context, playerID string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.byID[playerID]; !ok {
		return Entry{}, ErrNotFound
	}
	all := make([]Entry, 0, len(s.byID))
	collect(s.root, -1, s.byID, &all)
	assignRanksWithTies(all)
	for _, e := range all {
		if e.PlayerID == playerID {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

// TopN returns the first n entries in rank order.
func (s *TreapStore) TopN(_ context.Context, n int) ([]Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, min(n, len(s.byID)))
	collect(s.root, n, s.byID, &out)
	assignRanksWithTies(out)
	return out, nil
}

// Count returns the number of players.
func (s *TreapStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// assignRanksWithTies gives equal points the same rank; the next distinct
// score takes the following consecutive rank. entries must be sorted.
func assignRanksWithTies(entries []Entry) {
	rank := 0
	for i := range entries {
		if i == 0 || entries[i].Points != entries[i-1].Points {
			rank++
		}
		entries[i].Rank = rank
	}
}
