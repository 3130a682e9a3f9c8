package core

import "strings"

// KeyEvent is a key press delivered to the editing surface.
type KeyEvent struct {
	Key         string
	Ctrl        bool
	Meta        bool
	InTextInput bool
}

// Shortcuts are the accelerator callbacks the host wires to its own save
// and navigation actions. Nil callbacks are ignored.
type Shortcuts struct {
	Save      func()
	Dashboard func()
}

// HandleKey applies the editor keyboard surface and reports whether the
// event was consumed. Deleting the root surfaces ErrRootNode.
func (e *Editor) HandleKey(ev KeyEvent, sc Shortcuts) (bool, error) {
	key := strings.ToLower(ev.Key)
	if ev.Ctrl || ev.Meta {
		switch key {
		case "s":
			if sc.Save != nil {
				sc.Save()
			}
			return true, nil
		case "d":
			if sc.Dashboard != nil {
				sc.Dashboard()
			}
			return true, nil
		}
		return false, nil
	}
	switch key {
	case "escape":
		if _, ok := e.Selected(); !ok {
			return false, nil
		}
		e.ClearSelection()
		return true, nil
	case "delete", "backspace":
		if ev.InTextInput {
			return false, nil
		}
		sel, ok := e.Selected()
		if !ok {
			return false, nil
		}
		if err := e.DeleteNode(sel.ID); err != nil {
			return true, err
		}
		return true, nil
	}
	return false, nil
}
