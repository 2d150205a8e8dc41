// Package testutil provides deterministic fixtures for tests: in-memory
// workspaces, predictable task ids and golden table snapshots.
package testutil

import (
	"fmt"
	"sync/atomic"
)

// SequentialIDs generates predictable task ids "<prefix>-1", "<prefix>-2", ...
//
// This enables deterministic assertions on task results without depending on
// the time-sortable ids used in production.
//
// Thread-safety: SequentialIDs is safe for concurrent use.
type SequentialIDs struct {
	prefix string
	n      atomic.Int64
}

// NewSequentialIDs creates a generator. If prefix is empty, "task" is used.
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "task"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialIDs) Generate() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.n.Add(1))
}
