package signal

import (
	"errors"
	"fmt"
	"sync"

	"intersection-worker-go/internal/models"
)

// ErrInvalidColor is returned when SetState receives a color outside red, yellow, green
var ErrInvalidColor = errors.New("invalid signal color")

// Renderer is a display surface for signal heads. RenderHead is called after
// every successful state change with the new state of that head.
type Renderer interface {
	RenderHead(index int, state models.HeadState)
}

// RendererFunc adapts a plain function to Renderer
type RendererFunc func(index int, state models.HeadState)

func (f RendererFunc) RenderHead(index int, state models.HeadState) { f(index, state) }

// Head is one traffic light. It has no timing of its own; the scheduler drives it.
type Head struct {
	index int

	mu        sync.RWMutex
	color     models.Color
	remaining float64
	renderers []Renderer
}

// NewHead creates a red head at the given position
func NewHead(index int) *Head {
	return &Head{index: index, color: models.ColorRed}
}

// Index returns the fixed position of the head
func (h *Head) Index() int {
	return h.index
}

// Attach registers a renderer for future state changes
func (h *Head) Attach(r Renderer) {
	h.mu.Lock()
	h.renderers = append(h.renderers, r)
	h.mu.Unlock()
}

// SetState overwrites the lit lamp and countdown. The other two lamps are off.
func (h *Head) SetState(color models.Color, remaining float64) error {
	if !color.IsValid() {
		return fmt.Errorf("head %d: %w: %q", h.index, ErrInvalidColor, color)
	}
	if remaining < 0 {
		remaining = 0
	}

	h.mu.Lock()
	h.color = color
	h.remaining = remaining
	state := h.stateLocked()
	renderers := append([]Renderer(nil), h.renderers...)
	h.mu.Unlock()

	for _, r := range renderers {
		r.RenderHead(h.index, state)
	}
	return nil
}

// State returns the current displayed state
func (h *Head) State() models.HeadState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stateLocked()
}

func (h *Head) stateLocked() models.HeadState {
	return models.HeadState{Index: h.index, Color: h.color, Remaining: h.remaining}
}
