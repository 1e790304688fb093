// internal/browser/dom/document.go
package dom

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/antchfx/htmlquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/xkilldash9x/mockpage/internal/browser/parser"
	"github.com/xkilldash9x/mockpage/internal/browser/style"
)

// Document is a simulated page: one parsed tree plus the listener and
// field-state tables bound to its nodes. All methods are safe for concurrent
// use. Event handlers run with no lock held and may call back into the document.
type Document struct {
	logger   *zap.Logger
	registry *Registry

	mu        sync.RWMutex
	root      *html.Node
	listeners map[*html.Node]map[string][]Handler
	fields    map[*html.Node]*fieldState
}

// fieldState is the live value of a form control, separate from its value attribute.
type fieldState struct {
	value string
}

// FieldState is a read-only view of a form control.
type FieldState struct {
	Value    string
	Required bool
	Visible  bool
	Valid    bool
}

const emptyDocument = "<html><head></head><body></body></html>"

// NewDocument creates a document holding an empty page. A nil registry means
// no behaviors are available, so any behavior script fails to load.
func NewDocument(logger *zap.Logger, registry *Registry) *Document {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = NewRegistry()
	}
	root, _ := html.Parse(strings.NewReader(emptyDocument))
	return &Document{
		logger:    logger.Named("document"),
		registry:  registry,
		root:      root,
		listeners: make(map[*html.Node]map[string][]Handler),
		fields:    make(map[*html.Node]*fieldState),
	}
}

// SetContent replaces the whole tree with markup. The tree, listener table and
// field state are swapped together; on error the previous page is kept.
// Behavior scripts run afterwards, in document order.
func (d *Document) SetContent(markup string) error {
	if err := validateMarkup(markup); err != nil {
		return err
	}
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return NewParseError("failed to build tree", -1, err)
	}
	bound, err := d.resolveBehaviors(root)
	if err != nil {
		return err
	}

	d.mu.Lock()
	prevRoot, prevListeners, prevFields := d.root, d.listeners, d.fields
	d.root = root
	d.listeners = make(map[*html.Node]map[string][]Handler)
	d.fields = make(map[*html.Node]*fieldState)
	d.mu.Unlock()

	if err := d.runBehaviors(bound); err != nil {
		d.mu.Lock()
		// A behavior may itself have loaded other content; only undo our own swap.
		if d.root == root {
			d.root, d.listeners, d.fields = prevRoot, prevListeners, prevFields
		}
		d.mu.Unlock()
		return err
	}

	d.logger.Debug("Content set.", zap.Int("bytes", len(markup)), zap.Int("behaviors", len(bound)))
	return nil
}

// validateMarkup rejects input the tree builder would silently repair.
func validateMarkup(markup string) error {
	if !utf8.ValidString(markup) {
		offset := 0
		for offset < len(markup) {
			r, size := utf8.DecodeRuneInString(markup[offset:])
			if r == utf8.RuneError && size <= 1 {
				break
			}
			offset += size
		}
		return NewParseError("input is not valid UTF-8", offset, nil)
	}
	if i := strings.IndexByte(markup, 0); i >= 0 {
		return NewParseError("input contains a NUL byte", i, nil)
	}

	z := html.NewTokenizer(strings.NewReader(markup))
	for {
		if z.Next() == html.ErrorToken {
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return NewParseError("tokenizer failed", -1, err)
			}
			return nil
		}
	}
}

// Root returns the document node of the current tree.
func (d *Document) Root() *html.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.root
}

// HTML serializes the current tree.
func (d *Document) HTML() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		d.logger.Error("Failed to render document.", zap.Error(err))
	}
	return buf.String()
}

// Title returns the whitespace-normalized text of the first <title>.
func (d *Document) Title() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if title := htmlquery.FindOne(d.root, "//title"); title != nil {
		return normalizeSpace(htmlquery.InnerText(title))
	}
	return ""
}

// SetTitle replaces the title text, creating a <title> in <head> when missing.
func (d *Document) SetTitle(title string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	node := htmlquery.FindOne(d.root, "//title")
	if node == nil {
		head := htmlquery.FindOne(d.root, "//head")
		if head == nil {
			d.logger.Warn("Document has no <head>; title not set.")
			return
		}
		node = &html.Node{Type: html.ElementNode, Data: "title", DataAtom: atom.Title}
		head.AppendChild(node)
	}
	d.replaceChildrenLocked(node, []*html.Node{{Type: html.TextNode, Data: title}})
}

// Body returns the <body> element.
func (d *Document) Body() *html.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return htmlquery.FindOne(d.root, "//body")
}

// GetElementByID returns the first element with the given id, or nil.
func (d *Document) GetElementByID(id string) *html.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return findFirst(d.root, func(n *html.Node) bool { return attr(n, "id") == id })
}

// SetInnerHTML replaces the children of node with parsed markup. Listeners and
// field state of the removed subtree are dropped; behavior scripts inside the
// new markup run once it is attached.
func (d *Document) SetInnerHTML(node *html.Node, markup string) error {
	if node == nil || node.Type != html.ElementNode {
		return fmt.Errorf("SetInnerHTML: target must be an element")
	}
	if err := validateMarkup(markup); err != nil {
		return err
	}
	children, err := html.ParseFragment(strings.NewReader(markup), node)
	if err != nil {
		return NewParseError("failed to build fragment", -1, err)
	}

	holder := &html.Node{Type: html.ElementNode, Data: node.Data, DataAtom: node.DataAtom}
	for _, c := range children {
		holder.AppendChild(c)
	}
	bound, err := d.resolveBehaviors(holder)
	if err != nil {
		return err
	}
	for _, c := range children {
		holder.RemoveChild(c)
	}

	d.mu.Lock()
	d.replaceChildrenLocked(node, children)
	d.mu.Unlock()

	return d.runBehaviors(bound)
}

func (d *Document) replaceChildrenLocked(node *html.Node, children []*html.Node) {
	for c := node.FirstChild; c != nil; {
		next := c.NextSibling
		d.forgetLocked(c)
		node.RemoveChild(c)
		c = next
	}
	for _, c := range children {
		node.AppendChild(c)
	}
}

// forgetLocked drops table entries for a subtree leaving the document.
func (d *Document) forgetLocked(sub *html.Node) {
	walk(sub, func(n *html.Node) bool {
		delete(d.listeners, n)
		delete(d.fields, n)
		return true
	})
}

// SetAttribute sets an attribute on node.
func (d *Document) SetAttribute(node *html.Node, name, value string) {
	if node == nil || node.Type != html.ElementNode {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	setAttr(node, name, value)
}

// RemoveAttribute removes an attribute from node and reports whether it was present.
func (d *Document) RemoveAttribute(node *html.Node, name string) bool {
	if node == nil || node.Type != html.ElementNode {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return removeAttr(node, name)
}

// Attribute returns the value of an attribute and whether it is present.
func (d *Document) Attribute(node *html.Node, name string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return lookupAttr(node, name)
}

// SetStyle sets one inline style property. An empty value removes it.
func (d *Document) SetStyle(node *html.Node, property, value string) {
	if node == nil || node.Type != html.ElementNode {
		return
	}
	property = strings.ToLower(strings.TrimSpace(property))

	d.mu.Lock()
	defer d.mu.Unlock()

	decls := parser.ParseDeclarations(attr(node, "style"))
	var out []string
	replaced := false
	for _, decl := range decls {
		if string(decl.Property) == property {
			if replaced || value == "" {
				continue
			}
			replaced = true
			out = append(out, property+": "+value)
			continue
		}
		text := string(decl.Property) + ": " + string(decl.Value)
		if decl.Important {
			text += " !important"
		}
		out = append(out, text)
	}
	if !replaced && value != "" {
		out = append(out, property+": "+value)
	}

	if len(out) == 0 {
		removeAttr(node, "style")
		return
	}
	setAttr(node, "style", strings.Join(out, "; ")+";")
}

// TextContent returns the whitespace-normalized text of node and its descendants.
func (d *Document) TextContent(node *html.Node) string {
	if node == nil {
		return ""
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return normalizeSpace(htmlquery.InnerText(node))
}

// IsVisible reports whether node is attached and rendered.
func (d *Document) IsVisible(node *html.Node) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.isVisibleLocked(node)
}

func (d *Document) isVisibleLocked(node *html.Node) bool {
	if !d.attachedLocked(node) {
		return false
	}
	return style.FromDocument(d.root).IsVisible(node)
}

// attachedLocked reports whether node belongs to the current tree.
func (d *Document) attachedLocked(node *html.Node) bool {
	for n := node; n != nil; n = n.Parent {
		if n == d.root {
			return true
		}
	}
	return false
}

// Contains reports whether node is part of the current tree.
func (d *Document) Contains(node *html.Node) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.attachedLocked(node)
}

// Value returns the current value of a form control or contenteditable element.
func (d *Document) Value(node *html.Node) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.valueLocked(node)
}

func (d *Document) valueLocked(node *html.Node) string {
	if node == nil || node.Type != html.ElementNode {
		return ""
	}
	if st, ok := d.fields[node]; ok {
		return st.value
	}
	return initialValue(node)
}

// initialValue is the value a control has before any user input.
func initialValue(node *html.Node) string {
	switch node.Data {
	case "input":
		return attr(node, "value")
	case "textarea":
		return htmlquery.InnerText(node)
	case "select":
		var first, selected *html.Node
		walk(node, func(n *html.Node) bool {
			if n.Type == html.ElementNode && n.Data == "option" {
				if first == nil {
					first = n
				}
				if selected == nil && hasAttr(n, "selected") {
					selected = n
				}
			}
			return true
		})
		if selected == nil {
			selected = first
		}
		if selected == nil {
			return ""
		}
		if v, ok := lookupAttr(selected, "value"); ok {
			return v
		}
		return normalizeSpace(htmlquery.InnerText(selected))
	}
	if isContentEditable(node) {
		return htmlquery.InnerText(node)
	}
	return ""
}

// setValueLocked stores a user-entered value.
func (d *Document) setValueLocked(node *html.Node, value string) {
	if isContentEditable(node) && !isFormControl(node) {
		d.replaceChildrenLocked(node, []*html.Node{{Type: html.TextNode, Data: value}})
		return
	}
	d.fields[node] = &fieldState{value: value}
}

// Checked reports whether a checkbox or radio is checked.
func (d *Document) Checked(node *html.Node) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return hasAttr(node, "checked")
}

// FieldState returns the live state of a form control.
func (d *Document) FieldState(node *html.Node) FieldState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, invalid := d.validityLocked(node)
	return FieldState{
		Value:    d.valueLocked(node),
		Required: hasAttr(node, "required"),
		Visible:  d.isVisibleLocked(node),
		Valid:    invalid == "",
	}
}

// ValidationMessage explains why a control fails constraint validation, or returns "".
func (d *Document) ValidationMessage(node *html.Node) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, msg := d.validityLocked(node)
	return msg
}
