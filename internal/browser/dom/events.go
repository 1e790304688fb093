// internal/browser/dom/events.go
package dom

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Event is dispatched to listeners registered with AddEventListener.
type Event struct {
	Type          string
	Target        *html.Node
	CurrentTarget *html.Node
	// Key is set for keydown and keyup.
	Key string
	// Submitter is the button that triggered a submit event, if any.
	Submitter *html.Node

	bubbles          bool
	defaultPrevented bool
	stopped          bool
}

// PreventDefault cancels the default action that follows dispatch.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// DefaultPrevented reports whether a listener called PreventDefault.
func (e *Event) DefaultPrevented() bool { return e.defaultPrevented }

// StopPropagation keeps the event from reaching further ancestors.
func (e *Event) StopPropagation() { e.stopped = true }

// Bubbles reports whether the event propagates to ancestors.
func (e *Event) Bubbles() bool { return e.bubbles }

// Handler reacts to an event. Returning an error aborts the action that dispatched it.
type Handler func(ev *Event) error

// bubblingEvents propagate from the target up to the document.
var bubblingEvents = map[string]bool{
	"click":   true,
	"input":   true,
	"change":  true,
	"keydown": true,
	"keyup":   true,
	"submit":  true,
	"reset":   true,
}

// AddEventListener binds handler to eventType on node. Listeners on the
// document node (Root) see every bubbling event.
func (d *Document) AddEventListener(node *html.Node, eventType string, handler Handler) {
	if node == nil || handler == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	byType, ok := d.listeners[node]
	if !ok {
		byType = make(map[string][]Handler)
		d.listeners[node] = byType
	}
	byType[eventType] = append(byType[eventType], handler)
}

// Dispatch fires a synthetic event of eventType at target and returns it so
// the caller can inspect DefaultPrevented.
func (d *Document) Dispatch(target *html.Node, eventType string) (*Event, error) {
	return d.dispatch(&Event{Type: eventType, Target: target, bubbles: bubblingEvents[eventType]})
}

// dispatch runs listeners for ev along its propagation path. The path is fixed
// before the first listener runs. Must be called without the lock held.
func (d *Document) dispatch(ev *Event) (*Event, error) {
	d.mu.RLock()
	var path []*html.Node
	for n := ev.Target; n != nil; n = n.Parent {
		path = append(path, n)
		if !ev.bubbles {
			break
		}
	}
	d.mu.RUnlock()

	for _, node := range path {
		d.mu.RLock()
		handlers := append([]Handler(nil), d.listeners[node][ev.Type]...)
		d.mu.RUnlock()
		if len(handlers) == 0 {
			continue
		}

		ev.CurrentTarget = node
		for _, h := range handlers {
			if err := h(ev); err != nil {
				d.logger.Debug("Event handler failed.", zap.String("event", ev.Type), zap.Error(err))
				return ev, fmt.Errorf("%s handler failed: %w", ev.Type, err)
			}
		}
		if ev.stopped {
			break
		}
	}
	ev.CurrentTarget = nil
	return ev, nil
}
