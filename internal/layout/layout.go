// Package layout derives what a renderer needs to draw a tree: absolute card
// boxes, edge endpoints and the straight-or-curved classification of every
// edge.
package layout

import (
	"math"
	"sort"

	"famtree/internal/core"
	"famtree/pkg/family"
)

// CardHeight is the nominal rendered height of a person card.
const CardHeight = 120

// Box is the rectangle occupied by one card.
type Box struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Gender   string  `json:"gender"`
	Root     bool    `json:"root,omitempty"`
	Selected bool    `json:"selected,omitempty"`
}

// Point is a canvas coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Path describes how to draw one edge. Curves carry two control points.
type Path struct {
	EdgeID string          `json:"edgeId"`
	Kind   family.EdgeKind `json:"kind"`
	Dashed bool            `json:"dashed"`
	From   Point           `json:"from"`
	To     Point           `json:"to"`
	C1     *Point          `json:"c1,omitempty"`
	C2     *Point          `json:"c2,omitempty"`
}

// Bounds is the smallest rectangle containing every card.
type Bounds struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

// Scene is the complete render model of a tree.
type Scene struct {
	Boxes  []Box  `json:"boxes"`
	Paths  []Path `json:"paths"`
	Bounds Bounds `json:"bounds"`
}

// Build computes the scene for tree. selectedID may be empty. Edges whose
// endpoints are missing are skipped.
func Build(tree family.Tree, selectedID string) Scene {
	scene := Scene{
		Boxes: make([]Box, 0, len(tree.Nodes)),
		Paths: make([]Path, 0, len(tree.Edges)),
	}
	for i, n := range tree.Nodes {
		node := n
		scene.Boxes = append(scene.Boxes, Box{
			ID:       n.ID,
			Label:    family.FullName(&node),
			X:        n.X,
			Y:        n.Y,
			Width:    core.CardWidth,
			Height:   CardHeight,
			Gender:   string(n.Gender),
			Root:     n.IsRoot(),
			Selected: n.ID == selectedID,
		})
		b := Bounds{MinX: n.X, MinY: n.Y, MaxX: n.X + core.CardWidth, MaxY: n.Y + CardHeight}
		if i == 0 {
			scene.Bounds = b
			continue
		}
		scene.Bounds.MinX = math.Min(scene.Bounds.MinX, b.MinX)
		scene.Bounds.MinY = math.Min(scene.Bounds.MinY, b.MinY)
		scene.Bounds.MaxX = math.Max(scene.Bounds.MaxX, b.MaxX)
		scene.Bounds.MaxY = math.Max(scene.Bounds.MaxY, b.MaxY)
	}
	for _, e := range tree.Edges {
		src, okS := tree.Node(e.Source)
		dst, okT := tree.Node(e.Target)
		if !okS || !okT {
			continue
		}
		scene.Paths = append(scene.Paths, edgePath(e, src, dst))
	}
	return scene
}

func edgePath(e family.Edge, src, dst family.Node) Path {
	kind := family.ClassifyEdge(e, src, dst)
	if kind == family.EdgeHorizontal {
		return Path{
			EdgeID: e.ID,
			Kind:   kind,
			Dashed: true,
			From:   Point{src.X + core.CardWidth/2, src.Y + CardHeight/2},
			To:     Point{dst.X + core.CardWidth/2, dst.Y + CardHeight/2},
		}
	}
	from := Point{src.X + core.CardWidth/2, src.Y + CardHeight}
	to := Point{dst.X + core.CardWidth/2, dst.Y}
	midY := (from.Y + to.Y) / 2
	return Path{
		EdgeID: e.ID,
		Kind:   kind,
		From:   from,
		To:     to,
		C1:     &Point{from.X, midY},
		C2:     &Point{to.X, midY},
	}
}

// TimelineEntry is one person on the birth-year timeline.
type TimelineEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Year  int    `json:"year,omitempty"`
	Known bool   `json:"known"`
}

// Timeline orders people by parsed birth year. People without a parseable
// year follow in tree order.
func Timeline(tree family.Tree) []TimelineEntry {
	out := make([]TimelineEntry, 0, len(tree.Nodes))
	for _, n := range tree.Nodes {
		node := n
		y, ok := family.ParseYear(n.BirthDate)
		out = append(out, TimelineEntry{ID: n.ID, Name: family.FullName(&node), Year: y, Known: ok})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Known != out[j].Known {
			return out[i].Known
		}
		return out[i].Known && out[i].Year < out[j].Year
	})
	return out
}
