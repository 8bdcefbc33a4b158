// Package session binds UI messages to scanning, clustering and merging.
// Every scan or merge message starts from a fresh scan of the document; no
// state is kept between messages besides whether the session is closed.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jsvensson/colormerge/internal/cluster"
	"github.com/jsvensson/colormerge/internal/color"
	"github.com/jsvensson/colormerge/internal/document"
	"github.com/jsvensson/colormerge/internal/merge"
	"github.com/jsvensson/colormerge/internal/message"
	"github.com/jsvensson/colormerge/internal/scan"
	"github.com/tliron/commonlog"
)

var (
	ErrScanFailure  = errors.New("scan failed")
	ErrMergeFailure = errors.New("merge failed")
)

// MergeHook runs after a merge that changed the document, e.g. to save it.
type MergeHook func(ctx context.Context, res merge.Result) error

// Option configures a Controller.
type Option func(*Controller)

// WithDefaultThreshold sets the threshold used when a message has none.
func WithDefaultThreshold(t float64) Option {
	return func(c *Controller) { c.defaultThreshold = t }
}

// WithMergeHook registers a hook run after each merge that changed a slot or
// created a style. A hook error is reported as a merge failure.
func WithMergeHook(h MergeHook) Option {
	return func(c *Controller) { c.onMerge = h }
}

// Controller handles one message at a time against a document store.
type Controller struct {
	store            document.Store
	defaultThreshold float64
	onMerge          MergeHook
	log              commonlog.Logger

	mu     sync.Mutex
	closed bool
}

// New returns a Controller for store.
func New(store document.Store, opts ...Option) *Controller {
	c := &Controller{
		store:            store,
		defaultThreshold: cluster.DefaultThreshold,
		log:              commonlog.GetLogger("colormerge.session"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle processes one message. It returns false when the message expects no
// response: close, unknown types, and anything after close. Messages are
// serialized; a close waits for the message in flight to finish.
func (c *Controller) Handle(ctx context.Context, req message.Request) (message.Response, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return message.Response{}, false
	}

	switch req.Type {
	case message.TypeScan:
		return c.handleScan(ctx, req), true
	case message.TypeMerge:
		return c.handleMerge(ctx, req), true
	case message.TypeClose:
		c.closed = true
		c.log.Info("session closed")
		return message.Response{}, false
	default:
		c.log.Debugf("ignoring message type %q", req.Type)
		return message.Response{}, false
	}
}

// Closed reports whether a close message has been handled.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Run handles messages from in and writes responses to out until a close
// message, in being closed, or ctx ending.
func (c *Controller) Run(ctx context.Context, in <-chan message.Request, out chan<- message.Response) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req, ok := <-in:
			if !ok {
				return nil
			}
			resp, ok := c.Handle(ctx, req)
			if ok {
				select {
				case out <- resp:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if c.Closed() {
				return nil
			}
		}
	}
}

func (c *Controller) threshold(t *float64) float64 {
	if t == nil {
		return c.defaultThreshold
	}
	return *t
}

func (c *Controller) handleScan(ctx context.Context, req message.Request) (resp message.Response) {
	defer c.recoverAs(ErrScanFailure, &resp)

	threshold := c.threshold(req.Threshold)
	clusters, err := c.clusters(ctx, threshold)
	if err != nil {
		c.log.Errorf("scan: %v", err)
		return message.NewError(err)
	}
	c.log.Infof("scan: %d groups at threshold %g", len(clusters), threshold)
	return message.NewScanResult(ScanResult(clusters, threshold))
}

func (c *Controller) handleMerge(ctx context.Context, req message.Request) (resp message.Response) {
	defer c.recoverAs(ErrMergeFailure, &resp)

	target, err := color.ParseKey(req.TargetHex)
	if err != nil {
		c.log.Errorf("merge: %v", err)
		return message.NewError(err)
	}

	clusters, err := c.clusters(ctx, c.threshold(req.Threshold))
	if err != nil {
		c.log.Errorf("merge: %v", err)
		return message.NewError(err)
	}
	chosen := cluster.Select(clusters, req.GroupIndices)

	res, err := merge.New(c.store).Apply(ctx, chosen, target, req.StyleName)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrMergeFailure, err)
		c.log.Errorf("merge: %v", err)
		return message.NewError(err)
	}

	if c.onMerge != nil && (res.Changed > 0 || res.StyleCreated) {
		if err := c.onMerge(ctx, res); err != nil {
			err = fmt.Errorf("%w: %w", ErrMergeFailure, err)
			c.log.Errorf("merge: %v", err)
			return message.NewError(err)
		}
	}

	return message.NewMergeDone(message.MergeDone{
		Changed:      res.Changed,
		StyleCreated: res.StyleCreated,
		StyleName:    res.StyleName,
	})
}

// clusters scans the document afresh and groups its colors.
func (c *Controller) clusters(ctx context.Context, threshold float64) ([]cluster.Cluster, error) {
	idx, err := scan.Scan(ctx, c.store)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanFailure, err)
	}
	return cluster.Build(idx.Entries(), threshold)
}

func (c *Controller) recoverAs(kind error, resp *message.Response) {
	if r := recover(); r != nil {
		err := fmt.Errorf("%w: %v", kind, r)
		c.log.Errorf("%v", err)
		*resp = message.NewError(err)
	}
}

// ScanResult shapes clusters for the UI.
func ScanResult(clusters []cluster.Cluster, threshold float64) message.ScanResult {
	groups := make([]message.Group, 0, len(clusters))
	for _, cl := range clusters {
		g := message.Group{
			Representative: cl.Representative.Key,
			Members:        make([]message.Member, 0, len(cl.Members)),
			TotalCount:     cl.TotalCount(),
		}
		for _, m := range cl.Members {
			g.Members = append(g.Members, message.Member{Hex: m.Key, Count: m.Count()})
		}
		groups = append(groups, g)
	}
	return message.ScanResult{Groups: groups, Threshold: threshold}
}
