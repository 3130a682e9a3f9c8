package core

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDSource mints identifiers for inserted nodes and edges.
type IDSource interface {
	NodeID() string
	EdgeID() string
}

// UUIDSource issues time-ordered UUIDv7 identifiers, so ids sort by creation.
type UUIDSource struct{}

func (UUIDSource) NodeID() string { return newV7() }

func (UUIDSource) EdgeID() string { return "e-" + newV7() }

func newV7() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// SequenceSource issues predictable ids ("<prefix>1", "e-1"); used by tests
// and scripted imports.
type SequenceSource struct {
	mu     sync.Mutex
	prefix string
	nodes  int
	edges  int
}

// NewSequenceSource returns a source whose node ids start with prefix.
func NewSequenceSource(prefix string) *SequenceSource {
	return &SequenceSource{prefix: prefix}
}

func (s *SequenceSource) NodeID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes++
	return fmt.Sprintf("%s%d", s.prefix, s.nodes)
}

func (s *SequenceSource) EdgeID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges++
	return fmt.Sprintf("e-%d", s.edges)
}
