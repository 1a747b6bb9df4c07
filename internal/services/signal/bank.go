package signal

import (
	"fmt"

	"intersection-worker-go/internal/models"
)

// Bank owns the four heads of the intersection
type Bank struct {
	heads [models.HeadCount]*Head
}

func NewBank() *Bank {
	b := &Bank{}
	for i := range b.heads {
		b.heads[i] = NewHead(i)
	}
	return b
}

// Head returns the head at index, or an error for an unknown position
func (b *Bank) Head(index int) (*Head, error) {
	if index < 0 || index >= len(b.heads) {
		return nil, fmt.Errorf("no signal head at index %d", index)
	}
	return b.heads[index], nil
}

// Attach registers r on every head
func (b *Bank) Attach(r Renderer) {
	for _, h := range b.heads {
		h.Attach(r)
	}
}

// AllRed sets every head to red with no countdown
func (b *Bank) AllRed() {
	for _, h := range b.heads {
		// red is always valid
		_ = h.SetState(models.ColorRed, 0)
	}
}

// Snapshot returns the state of every head
func (b *Bank) Snapshot() [models.HeadCount]models.HeadState {
	var out [models.HeadCount]models.HeadState
	for i, h := range b.heads {
		out[i] = h.State()
	}
	return out
}
