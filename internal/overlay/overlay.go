package overlay

import (
	"errors"
	"sync"
)

// ErrOverlayActive is returned when a window already shows an overlay.
var ErrOverlayActive = errors.New("overlay already active")

// Overlay tracks the overlay shown by one window.
type Overlay struct {
	mu      sync.RWMutex
	state   State
	current Request
}

// New returns an idle overlay.
func New() *Overlay {
	return &Overlay{state: StateIdle}
}

// State returns the current state snapshot.
func (o *Overlay) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Current returns the displayed request while active.
func (o *Overlay) Current() (Request, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.state != StateActive {
		return Request{}, false
	}
	return o.current, true
}

// Show activates req. A request arriving while another is shown is ignored.
func (o *Overlay) Show(req Request) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateActive {
		return ErrOverlayActive
	}
	next, err := Transition(o.state, EventShow)
	if err != nil {
		return err
	}
	o.state = next
	o.current = req
	return nil
}

// Dismiss returns the window to normal rendering.
func (o *Overlay) Dismiss() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	next, err := Transition(o.state, EventDismiss)
	if err != nil {
		return err
	}
	o.state = next
	o.current = Request{}
	return nil
}
