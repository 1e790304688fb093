// internal/browser/dom/elements.go
package dom

import (
	"fmt"
	"sort"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// ElementData holds essential information about a DOM node.
type ElementData struct {
	NodeName    string
	Attributes  map[string]string
	TextContent string
}

// extractElementData pulls relevant information from an html.Node.
func extractElementData(node *html.Node) ElementData {
	attrs := make(map[string]string, len(node.Attr))
	for _, a := range node.Attr {
		attrs[a.Key] = a.Val
	}

	// Truncated, descriptions only need a hint of the text.
	textContent := normalizeSpace(htmlquery.InnerText(node))
	if len(textContent) > 64 {
		textContent = textContent[:64] + "..."
	}

	return ElementData{
		NodeName:    strings.ToUpper(node.Data),
		Attributes:  attrs,
		TextContent: textContent,
	}
}

// describeAttributes are the attributes that identify an element in error messages.
var describeAttributes = []string{"name", "type", "role", "aria-label", "placeholder", "data-testid"}

// describeElement renders a short selector-like description such as
// input#email[type="email"][placeholder="Email"] for errors and logs.
func describeElement(node *html.Node) string {
	if node == nil {
		return "<nil>"
	}
	if node.Type != html.ElementNode {
		return fmt.Sprintf("<%s node>", nodeTypeName(node.Type))
	}

	data := extractElementData(node)
	var sb strings.Builder
	sb.WriteString(strings.ToLower(data.NodeName))
	if id := data.Attributes["id"]; id != "" {
		sb.WriteString("#" + id)
	}
	if cls := data.Attributes["class"]; cls != "" {
		classes := strings.Fields(cls)
		sort.Strings(classes)
		sb.WriteString("." + strings.Join(classes, "."))
	}
	for _, a := range describeAttributes {
		if val, ok := data.Attributes[a]; ok && val != "" {
			if len(val) > 64 {
				val = val[:64]
			}
			sb.WriteString(fmt.Sprintf(`[%s="%s"]`, a, strings.ReplaceAll(val, `"`, "'")))
		}
	}
	if data.TextContent != "" && !isTextInputElement(data) {
		sb.WriteString(fmt.Sprintf(`[text="%s"]`, strings.ReplaceAll(data.TextContent, `"`, "'")))
	}
	return sb.String()
}

func nodeTypeName(t html.NodeType) string {
	switch t {
	case html.TextNode:
		return "text"
	case html.DocumentNode:
		return "document"
	case html.CommentNode:
		return "comment"
	case html.DoctypeNode:
		return "doctype"
	default:
		return "unknown"
	}
}

// isTextInputElement determines if the element accepts typed text.
// This distinguishes text fields from inputs driven by clicks like checkboxes, radios, or buttons.
func isTextInputElement(data ElementData) bool {
	switch data.NodeName {
	case "INPUT":
		switch strings.ToLower(data.Attributes["type"]) {
		case "hidden", "submit", "button", "reset", "image", "checkbox", "radio", "file", "range", "color":
			return false
		default:
			// Includes text, password, email, search, tel, url, number, date, etc.
			return true
		}
	case "TEXTAREA":
		return true
	}
	// contenteditable can be "true", "false", or "" (empty string implies true).
	if val, ok := data.Attributes["contenteditable"]; ok {
		val = strings.TrimSpace(strings.ToLower(val))
		return val == "true" || val == ""
	}
	return false
}

func isContentEditable(node *html.Node) bool {
	val, ok := lookupAttr(node, "contenteditable")
	if !ok {
		return false
	}
	val = strings.TrimSpace(strings.ToLower(val))
	return val == "true" || val == ""
}

// isFormControl reports whether node holds a value that takes part in form submission.
func isFormControl(node *html.Node) bool {
	if node == nil || node.Type != html.ElementNode {
		return false
	}
	switch node.Data {
	case "input", "textarea", "select":
		return true
	}
	return false
}

// isSubmitButton reports whether activating node submits its form.
func isSubmitButton(node *html.Node) bool {
	switch node.Data {
	case "button":
		t := strings.ToLower(attr(node, "type"))
		return t == "" || t == "submit"
	case "input":
		t := strings.ToLower(attr(node, "type"))
		return t == "submit" || t == "image"
	}
	return false
}

func isResetButton(node *html.Node) bool {
	return (node.Data == "button" || node.Data == "input") && strings.EqualFold(attr(node, "type"), "reset")
}

func inputType(node *html.Node) string {
	if node.Data != "input" {
		return ""
	}
	t := strings.ToLower(strings.TrimSpace(attr(node, "type")))
	if t == "" {
		return "text"
	}
	return t
}

// isDisabled covers the disabled attribute and disabled fieldset ancestors.
func isDisabled(node *html.Node) bool {
	if hasAttr(node, "disabled") {
		switch node.Data {
		case "button", "input", "select", "textarea", "option", "fieldset":
			return true
		}
	}
	for p := node.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "fieldset" && hasAttr(p, "disabled") {
			return true
		}
	}
	return false
}

func lookupAttr(node *html.Node, key string) (string, bool) {
	if node == nil {
		return "", false
	}
	for _, a := range node.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func attr(node *html.Node, key string) string {
	v, _ := lookupAttr(node, key)
	return v
}

func hasAttr(node *html.Node, key string) bool {
	_, ok := lookupAttr(node, key)
	return ok
}

func setAttr(node *html.Node, key, val string) {
	key = strings.ToLower(key)
	for i := range node.Attr {
		if node.Attr[i].Namespace == "" && node.Attr[i].Key == key {
			node.Attr[i].Val = val
			return
		}
	}
	node.Attr = append(node.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(node *html.Node, key string) bool {
	key = strings.ToLower(key)
	for i, a := range node.Attr {
		if a.Namespace == "" && a.Key == key {
			node.Attr = append(node.Attr[:i], node.Attr[i+1:]...)
			return true
		}
	}
	return false
}

// normalizeSpace collapses runs of whitespace and trims the ends.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// walk visits node and its descendants in document order until fn returns false.
func walk(node *html.Node, fn func(*html.Node) bool) bool {
	if node == nil {
		return true
	}
	if !fn(node) {
		return false
	}
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

// findFirst returns the first element under root that satisfies pred.
func findFirst(root *html.Node, pred func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && pred(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// closest returns the nearest inclusive ancestor with the given tag.
func closest(node *html.Node, tag string) *html.Node {
	for n := node; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && n.Data == tag {
			return n
		}
	}
	return nil
}
