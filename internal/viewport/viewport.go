// Package viewport turns pointer and wheel events on the canvas into pan,
// zoom, node drags and clicks.
//
// The controller is a plain state machine. It performs no I/O and starts no
// goroutines, so a gesture is never held up by persistence work.
package viewport

import "math"

// Transform is the canvas pan offset and zoom scale.
type Transform struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	K float64 `json:"k"`
}

// Point is a pointer position in screen pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Mode enumerates the mutually exclusive controller states.
type Mode int

const (
	Idle Mode = iota
	Panning
	DraggingNode
)

func (m Mode) String() string {
	switch m {
	case Panning:
		return "panning"
	case DraggingNode:
		return "dragging-node"
	default:
		return "idle"
	}
}

// State is the tagged controller state. NodeID is set only while dragging.
type State struct {
	Mode   Mode
	NodeID string
}

// ZoomMode selects how wheel deltas change the scale.
type ZoomMode string

const (
	// ZoomAdditive subtracts deltaY*Sensitivity from k.
	ZoomAdditive ZoomMode = "additive"
	// ZoomMultiplicative multiplies k by StepOut on positive deltaY, else StepIn.
	ZoomMultiplicative ZoomMode = "multiplicative"
)

// Policy holds the tunable constants of a canvas surface.
type Policy struct {
	Mode           ZoomMode
	Sensitivity    float64
	StepIn         float64
	StepOut        float64
	MinScale       float64
	MaxScale       float64
	ButtonStep     float64
	ClickThreshold float64
	Initial        Transform
}

// EditorPolicy is used by the main tree editor.
func EditorPolicy() Policy {
	return Policy{
		Mode:           ZoomAdditive,
		Sensitivity:    0.001,
		MinScale:       0.4,
		MaxScale:       2.5,
		ButtonStep:     0.2,
		ClickThreshold: 5,
		Initial:        Transform{X: 0, Y: 0, K: 1},
	}
}

// DemoPolicy is used by the read-only demo canvas.
func DemoPolicy() Policy {
	return Policy{
		Mode:           ZoomMultiplicative,
		StepIn:         1.1,
		StepOut:        0.9,
		MinScale:       0.3,
		MaxScale:       2.5,
		ButtonStep:     0.2,
		ClickThreshold: 5,
		Initial:        Transform{X: 100, Y: 50, K: 0.6},
	}
}

// PolicyByName resolves "editor" or "demo"; anything else yields the editor
// policy and false.
func PolicyByName(name string) (Policy, bool) {
	switch name {
	case "", "editor":
		return EditorPolicy(), true
	case "demo":
		return DemoPolicy(), true
	default:
		return EditorPolicy(), false
	}
}

// NodeMover applies node drags to the graph.
type NodeMover interface {
	MoveNode(id string, dx, dy float64) error
}

// Outcome reports what a pointer-up resolved to.
type Outcome struct {
	// Selected is the node id when the gesture was a click on a node.
	Selected string
	// Dragged is the node id when the gesture moved a node.
	Dragged string
	// Panned is true when the gesture moved the canvas.
	Panned bool
}

// Controller tracks one canvas surface.
type Controller struct {
	policy    Policy
	mover     NodeMover
	transform Transform
	state     State
	last      Point
	travelled float64
	movedX    float64
	movedY    float64
	moveErr   error
}

// New returns a controller at the policy's initial transform.
func New(policy Policy, mover NodeMover) *Controller {
	return &Controller{policy: policy, mover: mover, transform: policy.Initial}
}

// Transform returns the current transform.
func (c *Controller) Transform() Transform { return c.transform }

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Err returns the last error reported by the NodeMover, if any.
func (c *Controller) Err() error { return c.moveErr }

// PointerDownCanvas starts a pan unless a node drag is already in progress.
func (c *Controller) PointerDownCanvas(p Point) {
	if c.state.Mode == DraggingNode {
		return
	}
	c.begin(State{Mode: Panning}, p)
}

// PointerDownNode starts dragging node id. It takes precedence over the
// canvas handler for the same press.
func (c *Controller) PointerDownNode(id string, p Point) {
	c.begin(State{Mode: DraggingNode, NodeID: id}, p)
}

func (c *Controller) begin(s State, p Point) {
	c.state = s
	c.last = p
	c.travelled = 0
	c.movedX, c.movedY = 0, 0
	c.moveErr = nil
}

// PointerMove pans the canvas or drags the node. Node deltas are divided by
// the zoom scale so the card follows the pointer at any zoom level.
func (c *Controller) PointerMove(p Point) {
	dx, dy := p.X-c.last.X, p.Y-c.last.Y
	switch c.state.Mode {
	case Panning:
		c.transform.X += dx
		c.transform.Y += dy
	case DraggingNode:
		nx, ny := dx/c.transform.K, dy/c.transform.K
		c.move(c.state.NodeID, nx, ny)
		c.movedX += nx
		c.movedY += ny
	default:
		return
	}
	c.travelled += math.Hypot(dx, dy)
	c.last = p
}

// PointerUp ends the gesture. A node press that travelled less than the
// click threshold is a click: the small displacement is undone and the node
// is reported as selected.
func (c *Controller) PointerUp(p Point) Outcome {
	if c.state.Mode != Idle && (p.X != c.last.X || p.Y != c.last.Y) {
		c.PointerMove(p)
	}
	var out Outcome
	switch c.state.Mode {
	case DraggingNode:
		id := c.state.NodeID
		if c.travelled < c.policy.ClickThreshold {
			if c.movedX != 0 || c.movedY != 0 {
				c.move(id, -c.movedX, -c.movedY)
			}
			out.Selected = id
		} else {
			out.Dragged = id
		}
	case Panning:
		out.Panned = c.travelled > 0
	}
	c.state = State{}
	c.travelled = 0
	c.movedX, c.movedY = 0, 0
	return out
}

func (c *Controller) move(id string, dx, dy float64) {
	if c.mover == nil {
		return
	}
	if err := c.mover.MoveNode(id, dx, dy); err != nil {
		c.moveErr = err
	}
}

// Wheel zooms according to the policy.
func (c *Controller) Wheel(deltaY float64) {
	k := c.transform.K
	switch c.policy.Mode {
	case ZoomMultiplicative:
		if deltaY > 0 {
			k *= c.policy.StepOut
		} else {
			k *= c.policy.StepIn
		}
	default:
		k -= deltaY * c.policy.Sensitivity
	}
	c.transform.K = c.clamp(k)
}

// ZoomIn applies one zoom-button step.
func (c *Controller) ZoomIn() { c.transform.K = c.clamp(c.transform.K + c.policy.ButtonStep) }

// ZoomOut applies one zoom-button step.
func (c *Controller) ZoomOut() { c.transform.K = c.clamp(c.transform.K - c.policy.ButtonStep) }

// Reset restores the policy's initial transform. Node positions are kept.
func (c *Controller) Reset() { c.transform = c.policy.Initial }

func (c *Controller) clamp(k float64) float64 {
	return math.Min(c.policy.MaxScale, math.Max(c.policy.MinScale, k))
}
