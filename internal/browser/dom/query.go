// internal/browser/dom/query.go
package dom

import (
	"fmt"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/mockpage/internal/browser/style"
)

// QueryKind selects how a Query matches elements.
type QueryKind int

const (
	QueryByRole QueryKind = iota + 1
	QueryByPlaceholder
	QueryByText
	QueryByLabel
	QueryByTestID
)

// Query describes an element the way a user perceives it. Build one with
// ByRole, ByPlaceholder, ByText, ByLabel or ByTestID.
type Query struct {
	Kind QueryKind
	// Role is the ARIA role for QueryByRole.
	Role string
	// Text is the accessible name, placeholder, text, label or test id to match.
	// For QueryByRole an empty Text matches any name.
	Text string
	// Exact switches from case-insensitive substring matching to a full,
	// case-sensitive comparison.
	Exact bool
}

// ByRole matches elements by ARIA role and, when name is not empty, accessible name.
func ByRole(role, name string, exact bool) Query {
	return Query{Kind: QueryByRole, Role: strings.ToLower(strings.TrimSpace(role)), Text: name, Exact: exact}
}

// ByPlaceholder matches inputs and textareas by placeholder text.
func ByPlaceholder(text string, exact bool) Query {
	return Query{Kind: QueryByPlaceholder, Text: text, Exact: exact}
}

// ByText matches the innermost elements whose text content matches.
func ByText(text string, exact bool) Query {
	return Query{Kind: QueryByText, Text: text, Exact: exact}
}

// ByLabel matches form controls by the text of their label.
func ByLabel(text string, exact bool) Query {
	return Query{Kind: QueryByLabel, Text: text, Exact: exact}
}

// ByTestID matches the data-testid attribute exactly.
func ByTestID(id string) Query {
	return Query{Kind: QueryByTestID, Text: id, Exact: true}
}

// String renders the query for error messages.
func (q Query) String() string {
	suffix := "i"
	if q.Exact {
		suffix = "s"
	}
	switch q.Kind {
	case QueryByRole:
		if q.Text == "" {
			return fmt.Sprintf("role=%s", q.Role)
		}
		return fmt.Sprintf("role=%s[name=%q%s]", q.Role, q.Text, suffix)
	case QueryByPlaceholder:
		return fmt.Sprintf("placeholder=%q%s", q.Text, suffix)
	case QueryByText:
		return fmt.Sprintf("text=%q%s", q.Text, suffix)
	case QueryByLabel:
		return fmt.Sprintf("label=%q%s", q.Text, suffix)
	case QueryByTestID:
		return fmt.Sprintf("testid=%q", q.Text)
	default:
		return fmt.Sprintf("query(kind=%d)", q.Kind)
	}
}

// Query returns the first element in document order that matches q.
func (d *Document) Query(q Query) (*html.Node, error) {
	nodes, err := d.QueryAll(q)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, NewNotFoundError(q.String())
	}
	return nodes[0], nil
}

// QueryAll returns every element that matches q in document order.
func (d *Document) QueryAll(q Query) ([]*html.Node, error) {
	if q.Kind < QueryByRole || q.Kind > QueryByTestID {
		return nil, fmt.Errorf("unsupported query kind %d", q.Kind)
	}
	if q.Kind == QueryByRole && q.Role == "" {
		return nil, fmt.Errorf("role query requires a role")
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.search(q), nil
}

// search is the single tree walk behind every query kind.
func (d *Document) search(q Query) []*html.Node {
	body := htmlquery.FindOne(d.root, "//body")
	if body == nil {
		return nil
	}
	var engine *style.Engine
	if q.Kind == QueryByRole {
		// Hidden elements are not part of the accessibility tree.
		engine = style.FromDocument(d.root)
	}

	var matches []*html.Node
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "template":
				return
			}
			if d.matchesQuery(n, q, engine) {
				matches = append(matches, n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(body)
	return matches
}

func (d *Document) matchesQuery(n *html.Node, q Query, engine *style.Engine) bool {
	switch q.Kind {
	case QueryByRole:
		return roleOf(n) == q.Role && engine.IsVisible(n) &&
			(q.Text == "" || matchText(d.accessibleName(n), q.Text, q.Exact))
	case QueryByPlaceholder:
		return (n.Data == "input" || n.Data == "textarea") && hasAttr(n, "placeholder") &&
			matchText(attr(n, "placeholder"), q.Text, q.Exact)
	case QueryByText:
		return matchesOwnText(n, q)
	case QueryByLabel:
		return isLabelable(n) && matchText(d.labelText(n), q.Text, q.Exact)
	case QueryByTestID:
		v, ok := lookupAttr(n, "data-testid")
		return ok && v == q.Text
	}
	return false
}

// matchesOwnText reports whether n matches a text query while none of its
// element children do, so only the innermost element is returned.
func matchesOwnText(n *html.Node, q Query) bool {
	if !matchText(textForMatching(n), q.Text, q.Exact) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && matchText(textForMatching(c), q.Text, q.Exact) {
			return false
		}
	}
	return true
}

// textForMatching is the text content, or the value for input buttons.
func textForMatching(n *html.Node) string {
	if n.Data == "input" {
		switch inputType(n) {
		case "submit", "button", "reset":
			return attr(n, "value")
		}
		return ""
	}
	return htmlquery.InnerText(n)
}

// matchText compares whitespace-normalized text.
func matchText(have, want string, exact bool) bool {
	have, want = normalizeSpace(have), normalizeSpace(want)
	if exact {
		return have == want
	}
	return strings.Contains(strings.ToLower(have), strings.ToLower(want))
}

func isLabelable(n *html.Node) bool {
	switch n.Data {
	case "input":
		return inputType(n) != "hidden"
	case "textarea", "select", "button", "meter", "output", "progress":
		return true
	}
	return false
}

// labelText collects aria-labelledby, aria-label and <label> text for n.
func (d *Document) labelText(n *html.Node) string {
	var parts []string
	if ids := attr(n, "aria-labelledby"); ids != "" {
		if text := d.textOfIDs(ids); text != "" {
			parts = append(parts, text)
		}
	}
	if label := attr(n, "aria-label"); label != "" {
		parts = append(parts, label)
	}
	parts = append(parts, d.labelsFor(n)...)
	return strings.Join(parts, " ")
}

// labelsFor returns the text of <label for=id> elements and a wrapping label.
func (d *Document) labelsFor(n *html.Node) []string {
	var texts []string
	if id := attr(n, "id"); id != "" {
		for _, label := range htmlquery.Find(d.root, fmt.Sprintf("//label[@for=%s]", xpathLiteral(id))) {
			texts = append(texts, normalizeSpace(htmlquery.InnerText(label)))
		}
	}
	if wrapping := closest(n.Parent, "label"); wrapping != nil && !hasAttr(wrapping, "for") {
		texts = append(texts, normalizeSpace(htmlquery.InnerText(wrapping)))
	}
	return texts
}

func (d *Document) textOfIDs(ids string) string {
	var parts []string
	for _, id := range strings.Fields(ids) {
		if ref := findFirst(d.root, func(m *html.Node) bool { return attr(m, "id") == id }); ref != nil {
			parts = append(parts, normalizeSpace(htmlquery.InnerText(ref)))
		}
	}
	return strings.Join(parts, " ")
}
