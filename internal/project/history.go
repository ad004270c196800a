package project

import "github.com/omni3d/studio/pkg/core"

// DefaultHistoryLimit is the number of undo steps kept.
const DefaultHistoryLimit = 50

type snapshot struct {
	entities  []*core.Entity
	selection Selection
}

type history struct {
	limit  int
	past   []snapshot
	future []snapshot
}

func newHistory(limit int) *history {
	return &history{limit: limit}
}

// record pushes the state before a mutation and drops the redo stack.
func (h *history) record(s *State) {
	h.past = append(h.past, snapshot{core.CloneEntities(s.Entities), s.Selection})
	if len(h.past) > h.limit {
		h.past = h.past[len(h.past)-h.limit:]
	}
	h.future = nil
}

func (h *history) clear() {
	h.past, h.future = nil, nil
}

// record snapshots the current entities ahead of a mutation.
func (c *Context) record() {
	c.history.record(&c.state)
}

// Undo restores the previous entity snapshot. It reports false when there
// is nothing to undo.
func (c *Context) Undo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.history
	if len(h.past) == 0 {
		return false
	}
	prev := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append([]snapshot{{c.state.Entities, c.state.Selection}}, h.future...)
	c.restore(prev)
	return true
}

// Redo re-applies the last undone snapshot.
func (c *Context) Redo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.history
	if len(h.future) == 0 {
		return false
	}
	next := h.future[0]
	h.future = h.future[1:]
	h.past = append(h.past, snapshot{c.state.Entities, c.state.Selection})
	c.restore(next)
	return true
}

// CanUndo and CanRedo report the history depth.
func (c *Context) CanUndo() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.history.past) > 0
}

func (c *Context) CanRedo() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.history.future) > 0
}

// restore swaps in a snapshot and queues every entity on either side so
// the live graph follows.
func (c *Context) restore(s snapshot) {
	for _, e := range c.state.Entities {
		c.dirty.Enqueue(e.ID)
	}
	c.state.Entities = s.entities
	c.state.Selection = s.selection
	for _, e := range c.state.Entities {
		c.dirty.Enqueue(e.ID)
	}
}
