// Package octree recursively partitions a particle set into rectangular
// subdomains so each can be reconstructed independently and later
// stitched back together.
//
// Grounded on voxelrt/rt/bvh/builder.go's TLASBuilder.recursiveBuild
// (longest-extent-axis split, recursive partition, node slice built up
// by the recursion itself) widened from a two-way BVH split to a
// classic eight-way octree split at each node's AABB center.
package octree

import (
	"sync"

	"github.com/gekko3d/surfrecon/geom"
	"github.com/gekko3d/surfrecon/numeric"
)

// SubdivisionCriterion selects when a node stops splitting and becomes
// a leaf (spec.md §4.6).
type SubdivisionCriterion struct {
	// MaxParticlesPerLeaf, if > 0, stops subdivision once a node holds
	// at most this many particles.
	MaxParticlesPerLeaf int
	// MaxDepth, if > 0, stops subdivision once this depth is reached,
	// regardless of particle count.
	MaxDepth int
}

func (c SubdivisionCriterion) met(particleCount, depth int) bool {
	if c.MaxDepth > 0 && depth >= c.MaxDepth {
		return true
	}
	if c.MaxParticlesPerLeaf > 0 && particleCount <= c.MaxParticlesPerLeaf {
		return true
	}
	return false
}

// minLeafParticles is the small constant at or below which a node is forced
// to terminate even if neither criterion fired, avoiding a pathological
// split into near-empty octants (spec.md §4.6, "leaves with fewer than
// a small constant number of particles become terminal").
const minLeafParticles = 4

// Node is either an internal node (Children populated, Owned empty) or
// a leaf (Owned populated with this leaf's particle indices, Ghost
// with neighboring particles within the ghost margin).
type Node[R numeric.Real] struct {
	AABB     geom.AxisAlignedBoundingBox3d[R]
	Children []*Node[R] // up to 8, nil for a leaf
	Owned    []int32    // particle indices owned by this leaf; empty for internal nodes
	Ghost    []int32    // particle indices borrowed from neighboring leaves, leaf-only
	Octant   int        // which octant of the parent this node occupies; 0 for root
}

func (n *Node[R]) IsLeaf() bool { return len(n.Children) == 0 }

// Locate descends from n to the single leaf that owns point p, using
// the same octantOf split predicate the tree was built with at every
// level so a point exactly on a split plane resolves to the same
// child a particle at that position would have been bucketed into
// during Build. This gives every point in the domain exactly one
// owning leaf, which is what lets a decomposed reconstruction
// triangulate each background-grid cell in precisely one leaf instead
// of once per leaf whose ghost particles happen to reach it
// (spec.md §4.6, §8.6).
//
// If the octant a point falls in held no particles at build time (so
// Build never created a child for it), there is no exact descent
// path; Locate instead falls back to the nearest existing child by
// AABB distance, breaking ties toward the first child in ascending
// octant order. This keeps ownership total and deterministic even for
// cells a neighbor's ghost margin reaches across an empty octant.
func (n *Node[R]) Locate(p geom.Vector3[R]) *Node[R] {
	cur := n
	for !cur.IsLeaf() {
		center := cur.AABB.Min.Add(cur.AABB.Max).Scale(0.5)
		target := octantOf(p, center)
		next := childByOctant(cur, target)
		if next == nil {
			next = nearestChild(cur, p)
		}
		cur = next
	}
	return cur
}

func childByOctant[R numeric.Real](n *Node[R], octant int) *Node[R] {
	for _, c := range n.Children {
		if c.Octant == octant {
			return c
		}
	}
	return nil
}

func nearestChild[R numeric.Real](n *Node[R], p geom.Vector3[R]) *Node[R] {
	var best *Node[R]
	var bestDist R
	for i, c := range n.Children {
		d := aabbDistSqr(c.AABB, p)
		if i == 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func aabbDistSqr[R numeric.Real](b geom.AxisAlignedBoundingBox3d[R], p geom.Vector3[R]) R {
	return axisDistSqr(p.X, b.Min.X, b.Max.X) +
		axisDistSqr(p.Y, b.Min.Y, b.Max.Y) +
		axisDistSqr(p.Z, b.Min.Z, b.Max.Z)
}

func axisDistSqr[R numeric.Real](v, lo, hi R) R {
	if v < lo {
		return (lo - v) * (lo - v)
	}
	if v > hi {
		return (v - hi) * (v - hi)
	}
	return 0
}

// Build partitions positions (indices 0..len(positions)-1) into an
// octree rooted at domain, splitting by criterion, then attaches ghost
// particles to every leaf within ghostMargin of its AABB.
func Build[R numeric.Real](positions []geom.Vector3[R], domain geom.AxisAlignedBoundingBox3d[R], criterion SubdivisionCriterion, ghostMargin R) *Node[R] {
	indices := make([]int32, len(positions))
	for i := range indices {
		indices[i] = int32(i)
	}

	root := buildNode(positions, indices, domain, criterion, 0)
	attachGhosts(root, positions, ghostMargin)
	return root
}

func buildNode[R numeric.Real](positions []geom.Vector3[R], indices []int32, bounds geom.AxisAlignedBoundingBox3d[R], criterion SubdivisionCriterion, depth int) *Node[R] {
	if criterion.met(len(indices), depth) || len(indices) <= minLeafParticles {
		return &Node[R]{AABB: bounds, Owned: indices}
	}

	center := bounds.Min.Add(bounds.Max).Scale(0.5)

	var buckets [8][]int32
	for _, idx := range indices {
		octant := octantOf(positions[idx], center)
		buckets[octant] = append(buckets[octant], idx)
	}

	node := &Node[R]{AABB: bounds}
	node.Children = make([]*Node[R], 0, 8)
	for octant := 0; octant < 8; octant++ {
		if len(buckets[octant]) == 0 {
			continue
		}
		childBounds := octantBounds(bounds, center, octant)
		child := buildNode(positions, buckets[octant], childBounds, criterion, depth+1)
		child.Octant = octant
		node.Children = append(node.Children, child)
	}

	// A split that produced a single non-empty octant (all particles on
	// one side) would recurse forever on an unchanged particle set;
	// fall back to a leaf instead.
	if len(node.Children) <= 1 {
		return &Node[R]{AABB: bounds, Owned: indices}
	}

	return node
}

// octantOf returns which of the 8 octants p falls in relative to
// center, using the same corner-bit convention as package grid/mc (bit
// 0 = X, bit 1 = Y, bit 2 = Z; 1 means >= center on that axis).
func octantOf[R numeric.Real](p, center geom.Vector3[R]) int {
	octant := 0
	if p.X >= center.X {
		octant |= 1
	}
	if p.Y >= center.Y {
		octant |= 2
	}
	if p.Z >= center.Z {
		octant |= 4
	}
	return octant
}

func octantBounds[R numeric.Real](parent geom.AxisAlignedBoundingBox3d[R], center geom.Vector3[R], octant int) geom.AxisAlignedBoundingBox3d[R] {
	min, max := parent.Min, parent.Max
	if octant&1 != 0 {
		min.X = center.X
	} else {
		max.X = center.X
	}
	if octant&2 != 0 {
		min.Y = center.Y
	} else {
		max.Y = center.Y
	}
	if octant&4 != 0 {
		min.Z = center.Z
	} else {
		max.Z = center.Z
	}
	return geom.AxisAlignedBoundingBox3d[R]{Min: min, Max: max}
}

// attachGhosts walks every leaf in parallel and collects, from the
// entire input, particles lying within ghostMargin of the leaf's AABB
// but not already owned by it (spec.md §4.6).
func attachGhosts[R numeric.Real](root *Node[R], positions []geom.Vector3[R], ghostMargin R) {
	leaves := collectLeaves(root)

	var wg sync.WaitGroup
	for _, leaf := range leaves {
		wg.Add(1)
		go func(leaf *Node[R]) {
			defer wg.Done()
			owned := make(map[int32]struct{}, len(leaf.Owned))
			for _, idx := range leaf.Owned {
				owned[idx] = struct{}{}
			}

			grown := leaf.AABB.Grown(ghostMargin)
			var ghosts []int32
			for i, p := range positions {
				idx := int32(i)
				if _, isOwned := owned[idx]; isOwned {
					continue
				}
				if grown.Contains(p) {
					ghosts = append(ghosts, idx)
				}
			}
			leaf.Ghost = ghosts
		}(leaf)
	}
	wg.Wait()
}

// collectLeaves returns every leaf node in the tree, in a stable
// depth-first order (ascending octant index at each level), which
// keeps leaf processing order deterministic for the "ascending leaf
// index" ordering guarantee of spec.md §5.
func collectLeaves[R numeric.Real](n *Node[R]) []*Node[R] {
	if n.IsLeaf() {
		return []*Node[R]{n}
	}
	var out []*Node[R]
	for _, c := range n.Children {
		out = append(out, collectLeaves(c)...)
	}
	return out
}

// Leaves returns every leaf of the tree rooted at n, in the same
// stable order used internally for ghost attachment.
func Leaves[R numeric.Real](n *Node[R]) []*Node[R] {
	return collectLeaves(n)
}
