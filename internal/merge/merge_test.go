package merge

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jsvensson/colormerge/internal/cluster"
	"github.com/jsvensson/colormerge/internal/color"
	"github.com/jsvensson/colormerge/internal/document"
	"github.com/jsvensson/colormerge/internal/scan"
)

func hex(t *testing.T, s string) color.Color {
	t.Helper()
	c, err := color.ParseKey(s)
	if err != nil {
		t.Fatalf("ParseKey(%q): %v", s, err)
	}
	return c
}

func solid(t *testing.T, s string) document.Paint {
	t.Helper()
	return document.SolidPaint(hex(t, s))
}

// build scans m and clusters with threshold.
func build(t *testing.T, m *document.Memory, threshold float64) []cluster.Cluster {
	t.Helper()
	idx, err := scan.Scan(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	clusters, err := cluster.Build(idx.Entries(), threshold)
	if err != nil {
		t.Fatal(err)
	}
	return clusters
}

func fills(t *testing.T, m *document.Memory, id string) []document.Paint {
	t.Helper()
	n, err := m.NodeByID(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	l, _ := document.Paints(n, document.Fill)
	return l.Paints
}

func twoReds(t *testing.T) *document.Memory {
	t.Helper()
	a := document.NewElement("node1", document.KindRectangle)
	a.Fills.Paints = []document.Paint{solid(t, "FF0000")}
	b := document.NewElement("node2", document.KindRectangle)
	b.Fills.Paints = []document.Paint{solid(t, "FE0101")}
	m, err := document.NewMemory("doc", a, b)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestApply_RewritesCluster(t *testing.T) {
	m := twoReds(t)
	clusters := build(t, m, cluster.DefaultThreshold)
	green := hex(t, "00FF00")

	res, err := New(m).Apply(context.Background(), cluster.Select(clusters, []int{0}), green, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed != 2 || res.Skipped != 0 {
		t.Errorf("result = %+v, want 2 changed", res)
	}
	if res.StyleCreated {
		t.Error("no style name given, but a style was created")
	}
	for _, id := range []string{"node1", "node2"} {
		if got := fills(t, m, id)[0].Color; got != color.RGB(0, 1, 0) {
			t.Errorf("%s fill = %v, want green", id, got)
		}
	}
}

func TestApply_NoClusters(t *testing.T) {
	m := twoReds(t)
	res, err := New(m).Apply(context.Background(), nil, hex(t, "00FF00"), "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed != 0 || res.StyleCreated {
		t.Errorf("result = %+v, want nothing done", res)
	}
}

func TestApply_PreservesOtherPaintProperties(t *testing.T) {
	hiddenFalse := false
	n := document.NewElement("n", document.KindFrame)
	n.Fills.Paints = []document.Paint{
		{Type: document.Image, Opacity: 1},
		{Type: document.Solid, Color: hex(t, "112233"), Opacity: 0.4, BlendMode: "MULTIPLY"},
		{Type: document.Solid, Color: hex(t, "AABBCC"), Opacity: 1, Visible: &hiddenFalse},
	}
	m, err := document.NewMemory("doc", n)
	if err != nil {
		t.Fatal(err)
	}
	clusters := build(t, m, 0)
	target := hex(t, "FFFFFF")

	res, err := New(m).Apply(context.Background(), clusters, target, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed != 1 {
		t.Fatalf("Changed = %d, want 1", res.Changed)
	}

	want := []document.Paint{
		{Type: document.Image, Opacity: 1},
		{Type: document.Solid, Color: target, Opacity: 0.4, BlendMode: "MULTIPLY"},
		{Type: document.Solid, Color: hex(t, "AABBCC"), Opacity: 1, Visible: &hiddenFalse},
	}
	if diff := cmp.Diff(want, fills(t, m, "n")); diff != "" {
		t.Errorf("fills (-want +got):\n%s", diff)
	}
}

func TestApply_SameNodeManySlots(t *testing.T) {
	n := document.NewElement("n", document.KindRectangle)
	n.Fills.Paints = []document.Paint{solid(t, "FF0000"), solid(t, "FE0000")}
	n.Strokes.Paints = []document.Paint{solid(t, "FF0101")}
	m, err := document.NewMemory("doc", n)
	if err != nil {
		t.Fatal(err)
	}
	clusters := build(t, m, cluster.DefaultThreshold)
	target := hex(t, "000000")

	res, err := New(m).Apply(context.Background(), clusters, target, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed != 3 {
		t.Errorf("Changed = %d, want 3", res.Changed)
	}
	node, _ := m.NodeByID(context.Background(), "n")
	for _, kind := range []document.SlotKind{document.Fill, document.Stroke} {
		l, _ := document.Paints(node, kind)
		for i, p := range l.Paints {
			if p.Color != target {
				t.Errorf("%s[%d] = %v, want black", kind, i, p.Color)
			}
		}
	}
}

func TestApply_SkipsStaleReferences(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, m *document.Memory)
	}{
		{"node removed", func(t *testing.T, m *document.Memory) {
			m.Remove("node2")
		}},
		{"paint type changed", func(t *testing.T, m *document.Memory) {
			err := m.SetPaints(context.Background(), "node2", document.Fill, []document.Paint{{Type: document.GradientRadial}})
			if err != nil {
				t.Fatal(err)
			}
		}},
		{"list shrank", func(t *testing.T, m *document.Memory) {
			if err := m.SetPaints(context.Background(), "node2", document.Fill, nil); err != nil {
				t.Fatal(err)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := twoReds(t)
			clusters := build(t, m, cluster.DefaultThreshold)
			tt.mutate(t, m)

			res, err := New(m).Apply(context.Background(), clusters, hex(t, "00FF00"), "")
			if err != nil {
				t.Fatal(err)
			}
			if res.Changed != 1 || res.Skipped != 1 {
				t.Errorf("result = %+v, want 1 changed and 1 skipped", res)
			}
			if got := fills(t, m, "node1")[0].Color; got != color.RGB(0, 1, 0) {
				t.Errorf("node1 fill = %v, want green", got)
			}
		})
	}
}

func TestApply_SkipsLockedAndReadOnly(t *testing.T) {
	a := document.NewElement("locked", document.KindRectangle)
	a.Locked = true
	a.Fills.Paints = []document.Paint{solid(t, "FF0000")}
	b := document.NewElement("instance", document.KindInstance)
	b.ReadOnly = true
	b.Fills.Paints = []document.Paint{solid(t, "FF0000")}
	c := document.NewElement("free", document.KindRectangle)
	c.Fills.Paints = []document.Paint{solid(t, "FF0000")}
	m, err := document.NewMemory("doc", a, b, c)
	if err != nil {
		t.Fatal(err)
	}
	clusters := build(t, m, 0)

	res, err := New(m).Apply(context.Background(), clusters, hex(t, "0000FF"), "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed != 1 || res.Skipped != 2 {
		t.Errorf("result = %+v, want 1 changed and 2 skipped", res)
	}
	if got := fills(t, m, "locked")[0].Color; got != color.RGB(1, 0, 0) {
		t.Errorf("locked node was rewritten to %v", got)
	}
}

func TestApply_SkipsMixedAfterScan(t *testing.T) {
	m := twoReds(t)
	clusters := build(t, m, cluster.DefaultThreshold)

	roots := m.Roots()
	mixed := document.MixedPaints()
	roots[1].Fills = &mixed
	m2, err := document.NewMemory("doc", roots...)
	if err != nil {
		t.Fatal(err)
	}

	res, err := New(m2).Apply(context.Background(), clusters, hex(t, "00FF00"), "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed != 1 || res.Skipped != 1 {
		t.Errorf("result = %+v, want 1 changed and 1 skipped", res)
	}
}

func TestApply_CreatesStyleIndependently(t *testing.T) {
	m := twoReds(t)
	target := hex(t, "336699")

	res, err := New(m).Apply(context.Background(), nil, target, "Brand/Primary")
	if err != nil {
		t.Fatal(err)
	}
	if !res.StyleCreated || res.StyleName != "Brand/Primary" || res.StyleID == "" {
		t.Errorf("result = %+v, want a created style", res)
	}

	// A second merge with the same name makes another style.
	if _, err := New(m).Apply(context.Background(), nil, target, "Brand/Primary"); err != nil {
		t.Fatal(err)
	}
	styles := m.Styles()
	if len(styles) != 2 {
		t.Fatalf("len(Styles()) = %d, want 2", len(styles))
	}
	want := []document.Paint{document.SolidPaint(target)}
	if diff := cmp.Diff(want, styles[0].Paints); diff != "" {
		t.Errorf("style paints (-want +got):\n%s", diff)
	}
}

type failingStyles struct {
	*document.Memory
}

func (failingStyles) CreatePaintStyle(context.Context, string, []document.Paint) (document.PaintStyle, error) {
	return document.PaintStyle{}, errors.New("styles are read only")
}

func TestApply_StyleFailureIsReported(t *testing.T) {
	m := twoReds(t)
	clusters := build(t, m, cluster.DefaultThreshold)

	res, err := New(failingStyles{m}).Apply(context.Background(), clusters, hex(t, "00FF00"), "Nope")
	if err != nil {
		t.Fatal(err)
	}
	if res.StyleCreated {
		t.Error("StyleCreated = true for a failing store")
	}
	if res.Changed != 2 {
		t.Errorf("Changed = %d, want 2", res.Changed)
	}
}

// lockedStore hands out nodes that share their paint slice with the store and
// refuses every write.
type lockedStore struct {
	*document.Memory
	live map[string][]document.Paint
}

type sharedNode struct {
	id    string
	fills []document.Paint
}

func (n sharedNode) ID() string   { return n.id }
func (n sharedNode) Name() string { return n.id }
func (n sharedNode) Kind() string { return document.KindRectangle }
func (n sharedNode) Fills() document.PaintList {
	return document.PaintList{Paints: n.fills}
}

func (s lockedStore) NodeByID(_ context.Context, id string) (document.Node, error) {
	fills, ok := s.live[id]
	if !ok {
		return nil, document.ErrNodeNotFound
	}
	return sharedNode{id: id, fills: fills}, nil
}

func (lockedStore) SetPaints(context.Context, string, document.SlotKind, []document.Paint) error {
	return document.ErrNodeLocked
}

func TestApply_FailedWriteLeavesStoreUntouched(t *testing.T) {
	a := document.NewElement("node1", document.KindRectangle)
	a.Fills.Paints = []document.Paint{solid(t, "FF0000")}
	m, err := document.NewMemory("doc", a)
	if err != nil {
		t.Fatal(err)
	}
	clusters := build(t, m, cluster.DefaultThreshold)

	live := []document.Paint{solid(t, "FF0000")}
	store := lockedStore{Memory: m, live: map[string][]document.Paint{"node1": live}}

	res, err := New(store).Apply(context.Background(), clusters, hex(t, "00FF00"), "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed != 0 || res.Skipped != 1 {
		t.Errorf("Changed, Skipped = %d, %d, want 0, 1", res.Changed, res.Skipped)
	}
	if got := live[0].Color.Key(); got != "FF0000" {
		t.Errorf("store paint = %s after rejected write, want FF0000", got)
	}
}

func TestApply_CanceledContext(t *testing.T) {
	m := twoReds(t)
	clusters := build(t, m, cluster.DefaultThreshold)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(m).Apply(ctx, clusters, hex(t, "00FF00"), "")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Apply() error = %v, want context.Canceled", err)
	}
}
