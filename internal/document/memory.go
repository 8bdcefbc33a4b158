package document

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Node kinds understood by the in-memory host. GROUP and SLICE carry no paints.
const (
	KindFrame     = "FRAME"
	KindGroup     = "GROUP"
	KindRectangle = "RECTANGLE"
	KindEllipse   = "ELLIPSE"
	KindVector    = "VECTOR"
	KindText      = "TEXT"
	KindComponent = "COMPONENT"
	KindInstance  = "INSTANCE"
	KindSlice     = "SLICE"
)

// KindHasPaints reports whether nodes of kind expose fills and strokes.
func KindHasPaints(kind string) bool {
	return kind != KindGroup && kind != KindSlice
}

// Element is a node held by a Memory document. A nil Fills or Strokes means
// the node has no such capability.
type Element struct {
	ID       string
	Name     string
	Kind     string
	Locked   bool
	ReadOnly bool
	Fills    *PaintList
	Strokes  *PaintList
	Children []*Element
}

// NewElement returns an element of kind with empty paint lists when the kind
// supports them.
func NewElement(id, kind string) *Element {
	e := &Element{ID: id, Name: id, Kind: kind}
	if KindHasPaints(kind) {
		e.Fills = &PaintList{}
		e.Strokes = &PaintList{}
	}
	return e
}

func (e *Element) clone() *Element {
	out := *e
	if e.Fills != nil {
		l := e.Fills.Clone()
		out.Fills = &l
	}
	if e.Strokes != nil {
		l := e.Strokes.Clone()
		out.Strokes = &l
	}
	out.Children = make([]*Element, len(e.Children))
	for i, c := range e.Children {
		out.Children[i] = c.clone()
	}
	return &out
}

var _ Store = (*Memory)(nil)

// Memory is an in-memory Store. It is safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	name   string
	roots  []*Element
	byID   map[string]*Element
	parent map[string]*Element
	styles []PaintStyle
	newID  func() string
}

// NewMemory builds a document from a forest of elements. Element IDs must be unique.
func NewMemory(name string, roots ...*Element) (*Memory, error) {
	m := &Memory{
		name:   name,
		byID:   make(map[string]*Element),
		parent: make(map[string]*Element),
		newID:  func() string { return "S:" + uuid.NewString() },
	}
	var index func(parent *Element, els []*Element) error
	index = func(parent *Element, els []*Element) error {
		for _, e := range els {
			if e.ID == "" {
				return fmt.Errorf("element without id")
			}
			if _, dup := m.byID[e.ID]; dup {
				return fmt.Errorf("duplicate element id %q", e.ID)
			}
			m.byID[e.ID] = e
			if parent != nil {
				m.parent[e.ID] = parent
			}
			if err := index(e, e.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := index(nil, roots); err != nil {
		return nil, err
	}
	m.roots = roots
	return m, nil
}

// Name returns the document name.
func (m *Memory) Name() string {
	return m.name
}

// Roots returns a deep copy of the top-level elements.
func (m *Memory) Roots() []*Element {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Element, len(m.roots))
	for i, e := range m.roots {
		out[i] = e.clone()
	}
	return out
}

// Styles returns the paint styles in creation order.
func (m *Memory) Styles() []PaintStyle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PaintStyle, len(m.styles))
	for i, s := range m.styles {
		out[i] = PaintStyle{ID: s.ID, Name: s.Name, Paints: PaintList{Paints: s.Paints}.Clone().Paints}
	}
	return out
}

// AddStyle registers an existing style, as loaded from disk.
func (m *Memory) AddStyle(s PaintStyle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = m.newID()
	}
	m.styles = append(m.styles, s)
}

// Remove deletes a node and its subtree. It reports whether the node existed.
func (m *Memory) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byID[id]
	if !ok {
		return false
	}
	if p, ok := m.parent[id]; ok {
		p.Children = without(p.Children, e)
	} else {
		m.roots = without(m.roots, e)
	}
	var forget func(e *Element)
	forget = func(e *Element) {
		delete(m.byID, e.ID)
		delete(m.parent, e.ID)
		for _, c := range e.Children {
			forget(c)
		}
	}
	forget(e)
	return true
}

func without(els []*Element, e *Element) []*Element {
	out := els[:0]
	for _, x := range els {
		if x != e {
			out = append(out, x)
		}
	}
	return out
}

// Nodes returns snapshots of every node in depth-first pre-order.
func (m *Memory) Nodes(ctx context.Context) ([]Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	nodes := make([]Node, 0, len(m.byID))
	var walk func(els []*Element)
	walk = func(els []*Element) {
		for _, e := range els {
			nodes = append(nodes, view(e))
			walk(e.Children)
		}
	}
	walk(m.roots)
	return nodes, nil
}

func (m *Memory) NodeByID(ctx context.Context, id string) (Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return view(e), nil
}

func (m *Memory) SetPaints(ctx context.Context, id string, kind SlotKind, paints []Paint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if e.Locked {
		return fmt.Errorf("%w: %s", ErrNodeLocked, id)
	}
	if e.ReadOnly {
		return fmt.Errorf("%w: %s", ErrReadOnly, id)
	}
	list := PaintList{Paints: paints}.Clone()
	switch {
	case kind == Fill && e.Fills != nil:
		e.Fills = &list
	case kind == Stroke && e.Strokes != nil:
		e.Strokes = &list
	default:
		return fmt.Errorf("%w: %s has no %s list", ErrNoSlot, id, kind)
	}
	return nil
}

func (m *Memory) CreatePaintStyle(ctx context.Context, name string, paints []Paint) (PaintStyle, error) {
	if err := ctx.Err(); err != nil {
		return PaintStyle{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := PaintStyle{ID: m.newID(), Name: name, Paints: PaintList{Paints: paints}.Clone().Paints}
	m.styles = append(m.styles, s)
	return s, nil
}

type baseView struct {
	id, name, kind string
}

func (v baseView) ID() string   { return v.id }
func (v baseView) Name() string { return v.name }
func (v baseView) Kind() string { return v.kind }

type fillView struct {
	baseView
	fills PaintList
}

func (v fillView) Fills() PaintList { return v.fills.Clone() }

type strokeView struct {
	baseView
	strokes PaintList
}

func (v strokeView) Strokes() PaintList { return v.strokes.Clone() }

type paintView struct {
	baseView
	fills, strokes PaintList
}

func (v paintView) Fills() PaintList   { return v.fills.Clone() }
func (v paintView) Strokes() PaintList { return v.strokes.Clone() }

// view snapshots e so later writes do not show through.
func view(e *Element) Node {
	base := baseView{id: e.ID, name: e.Name, kind: e.Kind}
	switch {
	case e.Fills != nil && e.Strokes != nil:
		return paintView{baseView: base, fills: e.Fills.Clone(), strokes: e.Strokes.Clone()}
	case e.Fills != nil:
		return fillView{baseView: base, fills: e.Fills.Clone()}
	case e.Strokes != nil:
		return strokeView{baseView: base, strokes: e.Strokes.Clone()}
	default:
		return base
	}
}
