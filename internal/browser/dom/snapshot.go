// internal/browser/dom/snapshot.go
package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/mockpage/internal/browser/style"
)

// A11yNode is one entry of an accessibility-style snapshot.
type A11yNode struct {
	Ref      string `json:"ref"`
	Role     string `json:"role"`
	Name     string `json:"name"`
	Depth    int    `json:"depth"`
	Value    string `json:"value,omitempty"`
	Disabled bool   `json:"disabled,omitempty"`
	Checked  bool   `json:"checked,omitempty"`
	Required bool   `json:"required,omitempty"`
	XPath    string `json:"xpath"`
}

var interactiveRoles = map[string]bool{
	"button": true, "link": true, "textbox": true, "searchbox": true,
	"combobox": true, "listbox": true, "option": true, "checkbox": true,
	"radio": true, "switch": true, "slider": true, "spinbutton": true,
	"menuitem": true, "tab": true, "treeitem": true,
}

// valueRoles are the roles whose snapshot entry carries the field value.
var valueRoles = map[string]bool{
	"textbox": true, "searchbox": true, "combobox": true, "spinbutton": true, "slider": true,
}

// Snapshot flattens the visible, role-bearing elements under <body> in
// document order. Depth counts snapshot ancestors, not DOM ancestors.
func (d *Document) Snapshot() []A11yNode {
	d.mu.RLock()
	defer d.mu.RUnlock()

	body := findFirst(d.root, func(n *html.Node) bool { return n.Data == "body" })
	if body == nil {
		return nil
	}
	engine := style.FromDocument(d.root)

	var out []A11yNode
	var visit func(n *html.Node, depth int)
	visit = func(n *html.Node, depth int) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if !engine.IsVisible(c) {
				continue
			}
			role := roleOf(c)
			if role == "" || role == "presentation" || role == "none" {
				visit(c, depth)
				continue
			}
			entry := A11yNode{
				Ref:      fmt.Sprintf("e%d", len(out)),
				Role:     role,
				Name:     d.accessibleName(c),
				Depth:    depth,
				Disabled: isDisabled(c),
				Checked:  (role == "checkbox" || role == "radio") && hasAttr(c, "checked"),
				Required: hasAttr(c, "required"),
				XPath:    GenerateUniqueXPath(c),
			}
			if valueRoles[role] {
				entry.Value = d.valueLocked(c)
			}
			out = append(out, entry)
			visit(c, depth+1)
		}
	}
	visit(body, 0)
	return out
}

// InteractiveOnly keeps the entries a user can act on.
func InteractiveOnly(nodes []A11yNode) []A11yNode {
	out := make([]A11yNode, 0, len(nodes))
	for _, n := range nodes {
		if interactiveRoles[n.Role] {
			out = append(out, n)
		}
	}
	return out
}

// FormatSnapshot renders nodes as indented text, one entry per line.
func FormatSnapshot(nodes []A11yNode) string {
	var b strings.Builder
	for _, n := range nodes {
		for i := 0; i < n.Depth; i++ {
			b.WriteString("  ")
		}
		b.WriteString(n.Ref)
		b.WriteByte(' ')
		b.WriteString(n.Role)
		if n.Name != "" {
			b.WriteString(` "`)
			b.WriteString(n.Name)
			b.WriteByte('"')
		}
		if n.Value != "" {
			b.WriteString(` val="`)
			b.WriteString(n.Value)
			b.WriteByte('"')
		}
		if n.Checked {
			b.WriteString(" [checked]")
		}
		if n.Required {
			b.WriteString(" [required]")
		}
		if n.Disabled {
			b.WriteString(" [disabled]")
		}
		b.WriteByte('\n')
	}
	return b.String()
}
