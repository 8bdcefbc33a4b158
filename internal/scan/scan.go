// Package scan extracts solid paint colors from a document and indexes every
// paint slot that uses them.
package scan

import (
	"context"
	"fmt"

	"github.com/jsvensson/colormerge/internal/color"
	"github.com/jsvensson/colormerge/internal/document"
	"github.com/tliron/commonlog"
)

// Reference identifies one paint slot on one node. Index is the position in
// the node's original list, counting filtered-out paints.
type Reference struct {
	NodeID string            `json:"nodeId"`
	Kind   document.SlotKind `json:"slotKind"`
	Index  int               `json:"slotIndex"`
}

// Entry is one distinct color key and every slot using it. Color is the first
// float-precision color seen for the key.
type Entry struct {
	Key        string
	Color      color.Color
	References []Reference
}

// Count returns the number of slots using the entry's color.
func (e *Entry) Count() int {
	return len(e.References)
}

// Index maps color keys to entries and remembers discovery order.
type Index struct {
	entries []*Entry
	byKey   map[string]*Entry
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{byKey: make(map[string]*Entry)}
}

// Add records a slot using c, creating the entry on first sight of its key.
func (x *Index) Add(c color.Color, ref Reference) *Entry {
	key := c.Key()
	e, ok := x.byKey[key]
	if !ok {
		e = &Entry{Key: key, Color: c}
		x.byKey[key] = e
		x.entries = append(x.entries, e)
	}
	e.References = append(e.References, ref)
	return e
}

// Entries returns entries in discovery order.
func (x *Index) Entries() []*Entry {
	return x.entries
}

// Lookup returns the entry for a color key.
func (x *Index) Lookup(key string) (*Entry, bool) {
	e, ok := x.byKey[key]
	return e, ok
}

// Len returns the number of distinct keys.
func (x *Index) Len() int {
	return len(x.entries)
}

// Scan walks every node of store and indexes its visible solid fills and
// strokes. Nodes without a paint capability and mixed lists contribute nothing.
// The store is only read.
func Scan(ctx context.Context, store document.Store) (*Index, error) {
	nodes, err := store.Nodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}

	idx := NewIndex()
	for _, n := range nodes {
		for _, kind := range []document.SlotKind{document.Fill, document.Stroke} {
			list, ok := document.Paints(n, kind)
			if !ok || list.Mixed {
				continue
			}
			for i, p := range list.Paints {
				if !p.IsSolid() || !p.IsVisible() {
					continue
				}
				idx.Add(p.Color, Reference{NodeID: n.ID(), Kind: kind, Index: i})
			}
		}
	}

	commonlog.GetLogger("colormerge.scan").Debugf("scanned %d nodes, %d distinct colors", len(nodes), idx.Len())
	return idx, nil
}
