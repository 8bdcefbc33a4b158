// Package document defines the contract between color merging and the host
// design document, plus an in-memory host used by the CLI and tests.
package document

import (
	"context"
	"errors"
)

var (
	ErrNodeNotFound = errors.New("node not found")
	ErrNodeLocked   = errors.New("node is locked")
	ErrReadOnly     = errors.New("node does not accept property writes")
	ErrNoSlot       = errors.New("node has no such paint list")
)

// Node is a visual node of the host document.
type Node interface {
	ID() string
	Name() string
	Kind() string
}

// FillBearer is implemented by nodes that expose a fill paint list.
type FillBearer interface {
	Node
	Fills() PaintList
}

// StrokeBearer is implemented by nodes that expose a stroke paint list.
type StrokeBearer interface {
	Node
	Strokes() PaintList
}

// Paints returns the node's list for kind and whether the node has that capability.
func Paints(n Node, kind SlotKind) (PaintList, bool) {
	switch kind {
	case Fill:
		if fb, ok := n.(FillBearer); ok {
			return fb.Fills(), true
		}
	case Stroke:
		if sb, ok := n.(StrokeBearer); ok {
			return sb.Strokes(), true
		}
	}
	return PaintList{}, false
}

// PaintStyle is a named reusable paint style.
type PaintStyle struct {
	ID     string
	Name   string
	Paints []Paint
}

// Store is the host document API.
type Store interface {
	// Nodes enumerates every node in host traversal order (depth first).
	Nodes(ctx context.Context) ([]Node, error)
	// NodeByID resolves a node against the live document. It returns
	// ErrNodeNotFound when the node no longer exists.
	NodeByID(ctx context.Context, id string) (Node, error)
	// SetPaints replaces the full fill or stroke list of a node.
	SetPaints(ctx context.Context, id string, kind SlotKind, paints []Paint) error
	// CreatePaintStyle always creates a new style, even if the name is taken.
	CreatePaintStyle(ctx context.Context, name string, paints []Paint) (PaintStyle, error)
}
