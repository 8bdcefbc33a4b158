// Package cluster groups scanned colors that lie within a distance threshold
// of a representative color.
package cluster

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/jsvensson/colormerge/internal/color"
	"github.com/jsvensson/colormerge/internal/scan"
)

// DefaultThreshold is used when a request does not name one.
const DefaultThreshold = 20

var ErrInvalidThreshold = errors.New("invalid threshold")

// Cluster is a representative entry and the entries grouped with it.
// The representative is always Members[0].
type Cluster struct {
	Representative *scan.Entry
	Members        []*scan.Entry
}

// TotalCount returns the number of slots across all members.
func (c Cluster) TotalCount() int {
	n := 0
	for _, m := range c.Members {
		n += m.Count()
	}
	return n
}

// References returns every member's references in member order.
func (c Cluster) References() []scan.Reference {
	var refs []scan.Reference
	for _, m := range c.Members {
		refs = append(refs, m.References...)
	}
	return refs
}

// Build partitions entries (in discovery order) into clusters. Each unassigned
// entry seeds a cluster and claims every later unassigned entry whose color is
// within threshold of the seed. Membership is measured against the seed only,
// so two members may be further apart than threshold. Clusters are returned by
// descending TotalCount, ties kept in discovery order.
func Build(entries []*scan.Entry, threshold float64) ([]Cluster, error) {
	if math.IsNaN(threshold) || threshold < 0 {
		return nil, fmt.Errorf("%w: %v (must be a non-negative number)", ErrInvalidThreshold, threshold)
	}

	assigned := make([]bool, len(entries))
	clusters := make([]Cluster, 0, len(entries))
	for i, seed := range entries {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		c := Cluster{Representative: seed, Members: []*scan.Entry{seed}}
		for j := i + 1; j < len(entries); j++ {
			if assigned[j] {
				continue
			}
			if color.Distance(seed.Color, entries[j].Color) <= threshold {
				c.Members = append(c.Members, entries[j])
				assigned[j] = true
			}
		}
		clusters = append(clusters, c)
	}

	sort.SliceStable(clusters, func(a, b int) bool {
		return clusters[a].TotalCount() > clusters[b].TotalCount()
	})
	return clusters, nil
}

// Select returns the clusters at the given positions, in the order given.
// Positions outside the slice and repeated positions are dropped.
func Select(clusters []Cluster, indices []int) []Cluster {
	out := make([]Cluster, 0, len(indices))
	seen := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i < 0 || i >= len(clusters) || seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, clusters[i])
	}
	return out
}
