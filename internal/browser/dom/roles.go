// internal/browser/dom/roles.go
package dom

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// roleOf returns the explicit role of n or its implicit ARIA role.
// Elements without a meaningful role return "".
func roleOf(n *html.Node) string {
	if explicit := strings.Fields(strings.ToLower(attr(n, "role"))); len(explicit) > 0 {
		return explicit[0]
	}

	switch n.Data {
	case "a", "area":
		if hasAttr(n, "href") {
			return "link"
		}
	case "button":
		return "button"
	case "input":
		switch inputType(n) {
		case "button", "submit", "reset", "image":
			return "button"
		case "checkbox":
			return "checkbox"
		case "radio":
			return "radio"
		case "range":
			return "slider"
		case "number":
			return "spinbutton"
		case "search":
			return "searchbox"
		case "hidden", "file", "color":
			return ""
		default:
			return "textbox"
		}
	case "textarea":
		return "textbox"
	case "select":
		if hasAttr(n, "multiple") || (attr(n, "size") != "" && attr(n, "size") != "1") {
			return "listbox"
		}
		return "combobox"
	case "option":
		return "option"
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return "heading"
	case "form":
		return "form"
	case "img":
		if v, ok := lookupAttr(n, "alt"); ok && v == "" {
			return "presentation"
		}
		return "img"
	case "ul", "ol", "menu":
		return "list"
	case "li":
		return "listitem"
	case "nav":
		return "navigation"
	case "main":
		return "main"
	case "header":
		return "banner"
	case "footer":
		return "contentinfo"
	case "aside":
		return "complementary"
	case "article":
		return "article"
	case "section":
		if hasAttr(n, "aria-label") || hasAttr(n, "aria-labelledby") {
			return "region"
		}
	case "dialog":
		return "dialog"
	case "p":
		return "paragraph"
	case "table":
		return "table"
	case "tr":
		return "row"
	case "td":
		return "cell"
	case "th":
		return "columnheader"
	case "hr":
		return "separator"
	case "progress":
		return "progressbar"
	}
	return ""
}

// nameFromContent lists the roles whose accessible name comes from their text.
var nameFromContent = map[string]bool{
	"button": true, "link": true, "heading": true, "checkbox": true, "radio": true,
	"option": true, "cell": true, "columnheader": true, "row": true, "tab": true,
	"menuitem": true, "treeitem": true, "switch": true,
}

// AccessibleName computes the accessible name of node.
func (d *Document) AccessibleName(node *html.Node) string {
	if node == nil || node.Type != html.ElementNode {
		return ""
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.accessibleName(node)
}

// accessibleName follows a simplified accname order: aria-labelledby,
// aria-label, native labels, content, then title and placeholder.
func (d *Document) accessibleName(n *html.Node) string {
	if ids := attr(n, "aria-labelledby"); ids != "" {
		if text := d.textOfIDs(ids); text != "" {
			return text
		}
	}
	if label := normalizeSpace(attr(n, "aria-label")); label != "" {
		return label
	}

	switch n.Data {
	case "input":
		switch inputType(n) {
		case "submit":
			if v, ok := lookupAttr(n, "value"); ok {
				return normalizeSpace(v)
			}
			return "Submit"
		case "reset":
			if v, ok := lookupAttr(n, "value"); ok {
				return normalizeSpace(v)
			}
			return "Reset"
		case "button":
			return normalizeSpace(attr(n, "value"))
		case "image":
			if alt := attr(n, "alt"); alt != "" {
				return normalizeSpace(alt)
			}
		}
		if labels := d.labelsFor(n); len(labels) > 0 {
			return strings.Join(labels, " ")
		}
	case "textarea", "select":
		if labels := d.labelsFor(n); len(labels) > 0 {
			return strings.Join(labels, " ")
		}
	case "img", "area":
		if alt := attr(n, "alt"); alt != "" {
			return normalizeSpace(alt)
		}
	case "fieldset":
		if legend := htmlquery.FindOne(n, "./legend"); legend != nil {
			return normalizeSpace(htmlquery.InnerText(legend))
		}
	case "table":
		if caption := htmlquery.FindOne(n, "./caption"); caption != nil {
			return normalizeSpace(htmlquery.InnerText(caption))
		}
	}

	if nameFromContent[roleOf(n)] {
		if text := normalizeSpace(htmlquery.InnerText(n)); text != "" {
			return text
		}
	}
	if title := normalizeSpace(attr(n, "title")); title != "" {
		return title
	}
	if n.Data == "input" || n.Data == "textarea" {
		return normalizeSpace(attr(n, "placeholder"))
	}
	return ""
}
