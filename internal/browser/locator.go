// internal/browser/locator.go
package browser

import (
	"fmt"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/mockpage/internal/browser/dom"
)

// LocatorOption adjusts the query behind a locator.
type LocatorOption func(*dom.Query)

// Exact switches the locator to full, case-sensitive text matching.
func Exact() LocatorOption {
	return func(q *dom.Query) { q.Exact = true }
}

// Locator finds its element again on every call, so it keeps working after
// an event handler replaces the content it came from.
type Locator struct {
	page  *Page
	query dom.Query
}

func (p *Page) locator(q dom.Query, opts []LocatorOption) *Locator {
	for _, opt := range opts {
		opt(&q)
	}
	return &Locator{page: p, query: q}
}

// Locator wraps an arbitrary query.
func (p *Page) Locator(q dom.Query) *Locator {
	return &Locator{page: p, query: q}
}

// GetByRole locates by ARIA role; an empty name matches any accessible name.
func (p *Page) GetByRole(role, name string, opts ...LocatorOption) *Locator {
	return p.locator(dom.ByRole(role, name, false), opts)
}

// GetByPlaceholder locates inputs by placeholder.
func (p *Page) GetByPlaceholder(text string, opts ...LocatorOption) *Locator {
	return p.locator(dom.ByPlaceholder(text, false), opts)
}

// GetByText locates the innermost element containing text.
func (p *Page) GetByText(text string, opts ...LocatorOption) *Locator {
	return p.locator(dom.ByText(text, false), opts)
}

// GetByLabel locates form controls by label text.
func (p *Page) GetByLabel(text string, opts ...LocatorOption) *Locator {
	return p.locator(dom.ByLabel(text, false), opts)
}

// GetByTestID locates by data-testid.
func (p *Page) GetByTestID(id string) *Locator {
	return p.locator(dom.ByTestID(id), nil)
}

// String describes the locator for assertion messages.
func (l *Locator) String() string {
	return l.query.String()
}

// Query returns the query the locator resolves.
func (l *Locator) Query() dom.Query {
	return l.query
}

func (l *Locator) resolve() (*html.Node, error) {
	if l.page.isClosed() {
		return nil, ErrPageClosed
	}
	return l.page.doc.Query(l.query)
}

// Fill replaces the value of the located field.
func (l *Locator) Fill(text string) error {
	node, err := l.resolve()
	if err != nil {
		return err
	}
	return l.page.doc.Fill(node, text)
}

// Clear empties the located field.
func (l *Locator) Clear() error {
	node, err := l.resolve()
	if err != nil {
		return err
	}
	return l.page.doc.Clear(node)
}

// Click clicks the located element. Submit handlers run before it returns.
func (l *Locator) Click() error {
	node, err := l.resolve()
	if err != nil {
		return err
	}
	return l.page.doc.Click(node)
}

// Press presses a single key on the located element.
func (l *Locator) Press(key string) error {
	node, err := l.resolve()
	if err != nil {
		return err
	}
	return l.page.doc.Press(node, key)
}

// Type presses each character of text in turn.
func (l *Locator) Type(text string) error {
	node, err := l.resolve()
	if err != nil {
		return err
	}
	return l.page.doc.Type(node, text)
}

// IsVisible reports whether the locator currently resolves to a visible element.
// A missing element is not visible.
func (l *Locator) IsVisible() bool {
	node, err := l.resolve()
	if err != nil {
		return false
	}
	return l.page.doc.IsVisible(node)
}

// InputValue returns the live value of the located form control.
func (l *Locator) InputValue() (string, error) {
	node, err := l.resolve()
	if err != nil {
		return "", err
	}
	switch node.Data {
	case "input", "textarea", "select":
		return l.page.doc.Value(node), nil
	}
	if _, editable := l.page.doc.Attribute(node, "contenteditable"); editable {
		return l.page.doc.Value(node), nil
	}
	return "", fmt.Errorf("%s resolves to <%s>, which has no input value", l, node.Data)
}

// GetAttribute returns an attribute value and whether it is present.
func (l *Locator) GetAttribute(name string) (string, bool, error) {
	node, err := l.resolve()
	if err != nil {
		return "", false, err
	}
	v, ok := l.page.doc.Attribute(node, name)
	return v, ok, nil
}

// TextContent returns the normalized text of the located element.
func (l *Locator) TextContent() (string, error) {
	node, err := l.resolve()
	if err != nil {
		return "", err
	}
	return l.page.doc.TextContent(node), nil
}

// Count returns the number of elements the query currently matches.
func (l *Locator) Count() int {
	if l.page.isClosed() {
		return 0
	}
	nodes, err := l.page.doc.QueryAll(l.query)
	if err != nil {
		return 0
	}
	return len(nodes)
}

// FieldState returns the live state of the located form control.
func (l *Locator) FieldState() (dom.FieldState, error) {
	node, err := l.resolve()
	if err != nil {
		return dom.FieldState{}, err
	}
	return l.page.doc.FieldState(node), nil
}
