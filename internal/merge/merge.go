// Package merge rewrites every paint slot of chosen clusters to one target
// color. Rewrites are best effort: a slot that cannot be written is skipped.
package merge

import (
	"context"
	"errors"
	"fmt"

	"github.com/jsvensson/colormerge/internal/cluster"
	"github.com/jsvensson/colormerge/internal/color"
	"github.com/jsvensson/colormerge/internal/document"
	"github.com/jsvensson/colormerge/internal/scan"
	"github.com/tliron/commonlog"
)

// ErrSlotChanged means a referenced slot no longer holds a solid paint.
var ErrSlotChanged = errors.New("paint slot changed since scan")

// Result reports what a merge did.
type Result struct {
	Changed      int
	Skipped      int
	StyleCreated bool
	StyleName    string
	StyleID      string
}

// Applier rewrites paint slots in a document store.
type Applier struct {
	store document.Store
	log   commonlog.Logger
}

// New returns an Applier writing to store.
func New(store document.Store) *Applier {
	return &Applier{
		store: store,
		log:   commonlog.GetLogger("colormerge.merge"),
	}
}

// Apply sets every slot referenced by clusters to target, in cluster, member
// and reference order. Per-slot failures are counted in Skipped and never
// returned. When styleName is not empty a new paint style holding target is
// created, whether or not any slot changed. The only errors returned come from
// ctx.
func (a *Applier) Apply(ctx context.Context, clusters []cluster.Cluster, target color.Color, styleName string) (Result, error) {
	res := Result{StyleName: styleName}

	for _, c := range clusters {
		for _, ref := range c.References() {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			if err := a.rewrite(ctx, ref, target); err != nil {
				res.Skipped++
				a.log.Debugf("skipping %s %s[%d]: %v", ref.NodeID, ref.Kind, ref.Index, err)
				continue
			}
			res.Changed++
		}
	}

	if styleName != "" {
		style, err := a.store.CreatePaintStyle(ctx, styleName, []document.Paint{document.SolidPaint(target)})
		if err != nil {
			a.log.Warningf("creating style %q: %v", styleName, err)
		} else {
			res.StyleCreated = true
			res.StyleID = style.ID
		}
	}

	a.log.Infof("merged to %s: %d changed, %d skipped", target.Key(), res.Changed, res.Skipped)
	return res, nil
}

// rewrite re-resolves the node and replaces the color of one slot, keeping
// the rest of the paint and the rest of the list as they are.
func (a *Applier) rewrite(ctx context.Context, ref scan.Reference, target color.Color) error {
	node, err := a.store.NodeByID(ctx, ref.NodeID)
	if err != nil {
		return err
	}
	list, ok := document.Paints(node, ref.Kind)
	if !ok {
		return fmt.Errorf("%w: node has no %s list", ErrSlotChanged, ref.Kind)
	}
	if list.Mixed {
		return fmt.Errorf("%w: %s list is mixed", ErrSlotChanged, ref.Kind)
	}
	if ref.Index < 0 || ref.Index >= len(list.Paints) {
		return fmt.Errorf("%w: index %d out of %d", ErrSlotChanged, ref.Index, len(list.Paints))
	}
	if !list.Paints[ref.Index].IsSolid() {
		return fmt.Errorf("%w: paint is %s", ErrSlotChanged, list.Paints[ref.Index].Type)
	}

	paints := list.Clone().Paints
	paints[ref.Index].Color = target
	return a.store.SetPaints(ctx, ref.NodeID, ref.Kind, paints)
}
