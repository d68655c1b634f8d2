package domain

import (
	"strings"
	"time"
)

// MemoryKind classifies what a stored memory captures
type MemoryKind = string

const (
	MemoryKindNote     MemoryKind = "note"
	MemoryKindSolution MemoryKind = "solution"
	MemoryKindMistake  MemoryKind = "mistake"
	MemoryKindDecision MemoryKind = "decision"
	MemoryKindResearch MemoryKind = "research"
)

// IsValidMemoryKind checks if the given kind is recognized
func IsValidMemoryKind(kind MemoryKind) bool {
	switch kind {
	case MemoryKindNote, MemoryKindSolution, MemoryKindMistake, MemoryKindDecision, MemoryKindResearch:
		return true
	}
	return false
}

// Memory represents a single stored memory scoped to a project
type Memory struct {
	ID        string
	Project   string
	Kind      MemoryKind
	Content   string
	Tags      []string
	Metadata  map[string]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MemoryChunk is one embeddable slice of a memory's content.
// Short memories produce a single chunk with index 0.
type MemoryChunk struct {
	ID         string
	MemoryID   string
	ChunkIndex int
	Content    string
	Embedding  []float32
	CreatedAt  time.Time
}

// NewMemory creates a memory with defaults applied. An empty kind
// falls back to MemoryKindNote.
func NewMemory(id, project string, kind MemoryKind, content string, tags []string, metadata map[string]string, now time.Time) *Memory {
	if kind == "" {
		kind = MemoryKindNote
	}
	return &Memory{
		ID:        id,
		Project:   project,
		Kind:      kind,
		Content:   content,
		Tags:      tags,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ValidateMemory checks that a memory satisfies storage invariants
func ValidateMemory(m *Memory) error {
	if m == nil || m.ID == "" || m.Project == "" {
		return ErrMissingRequiredField
	}
	if strings.TrimSpace(m.Content) == "" {
		return ErrEmptyMemoryContent
	}
	if !IsValidMemoryKind(m.Kind) {
		return ErrInvalidMemoryKind
	}
	return nil
}
