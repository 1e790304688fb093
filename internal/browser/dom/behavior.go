// internal/browser/dom/behavior.go
package dom

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// BehaviorAttribute marks a <script> element as a reference to a registered behavior.
// Script bodies are never executed; the named Go behavior runs instead.
const BehaviorAttribute = "data-behavior"

// Behavior binds listeners and performs setup for a freshly loaded tree.
// script is the <script> element that referenced it.
type Behavior func(doc *Document, script *html.Node) error

// Registry maps behavior names to their implementations. It is safe for concurrent use
// and is normally populated once, before any page loads content.
type Registry struct {
	mu        sync.RWMutex
	behaviors map[string]Behavior
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{behaviors: make(map[string]Behavior)}
}

// Register adds or replaces the behavior stored under name.
func (r *Registry) Register(name string, b Behavior) error {
	if name == "" {
		return fmt.Errorf("behavior name cannot be empty")
	}
	if b == nil {
		return fmt.Errorf("behavior %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.behaviors[name] = b
	return nil
}

// Lookup returns the behavior registered under name.
func (r *Registry) Lookup(name string) (Behavior, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.behaviors[name]
	return b, ok
}

// Names lists the registered behaviors in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.behaviors))
	for name := range r.behaviors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// boundBehavior is a script reference resolved against the registry.
type boundBehavior struct {
	name   string
	script *html.Node
	init   Behavior
}

// resolveBehaviors finds every behavior script under root in document order.
// An unregistered name is a ParseError so broken fixtures fail at load time.
func (d *Document) resolveBehaviors(root *html.Node) ([]boundBehavior, error) {
	var bound []boundBehavior
	missing, unknown := "", false
	walk(root, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "script" {
			return true
		}
		name, ok := lookupAttr(n, BehaviorAttribute)
		if !ok {
			if n.FirstChild != nil {
				d.logger.Debug("Inline script ignored; only registered behaviors run.")
			}
			return true
		}
		b, found := d.registry.Lookup(name)
		if !found {
			missing, unknown = name, true
			return false
		}
		bound = append(bound, boundBehavior{name: name, script: n, init: b})
		return true
	})
	if unknown {
		return nil, NewParseError(fmt.Sprintf("unknown behavior %q", missing), -1, nil)
	}
	return bound, nil
}

// runBehaviors initializes bound behaviors in order. Must be called without the lock held.
func (d *Document) runBehaviors(bound []boundBehavior) error {
	for _, b := range bound {
		d.logger.Debug("Running behavior.", zap.String("behavior", b.name))
		if err := b.init(d, b.script); err != nil {
			return fmt.Errorf("behavior %q failed: %w", b.name, err)
		}
	}
	return nil
}
