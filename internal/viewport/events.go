package viewport

import "fmt"

// Event is a serialisable input event, used to replay recorded gestures.
type Event struct {
	Type   string  `json:"type"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Node   string  `json:"node,omitempty"`
	DeltaY float64 `json:"deltaY,omitempty"`
}

// Dispatch routes ev to the matching controller method. Only "up" events
// produce a non-empty Outcome.
func (c *Controller) Dispatch(ev Event) (Outcome, error) {
	p := Point{X: ev.X, Y: ev.Y}
	switch ev.Type {
	case "down":
		if ev.Node != "" {
			c.PointerDownNode(ev.Node, p)
		} else {
			c.PointerDownCanvas(p)
		}
	case "move":
		c.PointerMove(p)
	case "up":
		return c.PointerUp(p), nil
	case "wheel":
		c.Wheel(ev.DeltaY)
	case "zoom-in":
		c.ZoomIn()
	case "zoom-out":
		c.ZoomOut()
	case "reset":
		c.Reset()
	default:
		return Outcome{}, fmt.Errorf("unknown event type %q", ev.Type)
	}
	return Outcome{}, nil
}
