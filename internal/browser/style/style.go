// internal/browser/style/style.go
package style

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/mockpage/internal/browser/parser"
)

// DefaultUserAgentCSS hides the elements a browser never renders.
const DefaultUserAgentCSS = `
head, title, meta, link, style, script, template, noscript, datalist {
    display: none;
}
[hidden] {
    display: none;
}
input[type="hidden"] {
    display: none;
}
`

var userAgentSheet = parser.ParseStyleSheet(DefaultUserAgentCSS)

// Origin orders the layers of the cascade.
type Origin int

const (
	OriginUserAgent Origin = iota
	OriginAuthor
	OriginInline
)

// matchedDeclaration is a declaration together with what the cascade needs to rank it.
type matchedDeclaration struct {
	decl        parser.Declaration
	origin      Origin
	specificity parser.Specificity
	order       int
}

// Engine resolves computed styles for nodes of a live tree. It keeps no
// per-node cache so results always reflect the current DOM.
type Engine struct {
	authorSheets []parser.StyleSheet
}

// NewEngine creates an engine with the given author stylesheets, in document order.
func NewEngine(sheets ...parser.StyleSheet) *Engine {
	return &Engine{authorSheets: sheets}
}

// FromDocument collects every <style> element under root into a new engine.
func FromDocument(root *html.Node) *Engine {
	var sheets []parser.StyleSheet
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "style" {
			var text strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					text.WriteString(c.Data)
				}
			}
			sheets = append(sheets, parser.ParseStyleSheet(text.String()))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return NewEngine(sheets...)
}

// Computed returns the cascaded value of every property set on node.
// Inheritance is not applied; see IsVisible for the inherited properties it needs.
func (e *Engine) Computed(node *html.Node) map[parser.Property]parser.Value {
	styles := make(map[parser.Property]parser.Value)
	if node == nil || node.Type != html.ElementNode {
		return styles
	}

	var matched []matchedDeclaration
	order := 0
	collect := func(sheet parser.StyleSheet, origin Origin) {
		for _, rule := range sheet.Rules {
			sel, ok := Matches(node, rule.Selectors)
			if !ok {
				continue
			}
			for _, d := range rule.Declarations {
				matched = append(matched, matchedDeclaration{decl: d, origin: origin, specificity: sel.Specificity(), order: order})
				order++
			}
		}
	}

	collect(userAgentSheet, OriginUserAgent)
	for _, sheet := range e.authorSheets {
		collect(sheet, OriginAuthor)
	}
	for _, d := range parser.ParseDeclarations(attr(node, "style")) {
		matched = append(matched, matchedDeclaration{decl: d, origin: OriginInline, specificity: parser.Specificity{1, 0, 0}, order: order})
		order++
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if pa, pb := priority(a), priority(b); pa != pb {
			return pa < pb
		}
		if a.specificity != b.specificity {
			return a.specificity.Less(b.specificity)
		}
		return a.order < b.order
	})

	// Later entries win.
	for _, m := range matched {
		styles[m.decl.Property] = m.decl.Value
	}
	return styles
}

// Lookup returns one computed property or fallback when it is not set.
func (e *Engine) Lookup(node *html.Node, property, fallback string) string {
	if v, ok := e.Computed(node)[parser.Property(property)]; ok {
		return strings.TrimSpace(strings.ToLower(string(v)))
	}
	return fallback
}

// priority implements the origin/importance layering of the cascade.
func priority(m matchedDeclaration) int {
	switch m.origin {
	case OriginUserAgent:
		if m.decl.Important {
			return 5
		}
		return 1
	case OriginAuthor:
		if m.decl.Important {
			return 4
		}
		return 2
	default:
		if m.decl.Important {
			return 4
		}
		return 3
	}
}

// IsVisible reports whether node would be rendered: it must be attached
// under <body>, and neither it nor an ancestor may be display:none or fully
// transparent. visibility is inherited, so the nearest declared value decides.
func (e *Engine) IsVisible(node *html.Node) bool {
	if node == nil {
		return false
	}
	if node.Type == html.TextNode {
		node = node.Parent
	}
	if node == nil || node.Type != html.ElementNode {
		return false
	}

	inBody := false
	visibility := ""
	for n := node; n != nil; n = n.Parent {
		if n.Type == html.DocumentNode {
			break
		}
		if n.Type != html.ElementNode {
			continue
		}
		if n.Data == "body" {
			inBody = true
		}
		styles := e.Computed(n)
		if strings.EqualFold(strings.TrimSpace(string(styles["display"])), "none") {
			return false
		}
		if op, ok := styles["opacity"]; ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(string(op)), 64); err == nil && f <= 0 {
				return false
			}
		}
		if visibility == "" {
			if v, ok := styles["visibility"]; ok {
				visibility = strings.ToLower(strings.TrimSpace(string(v)))
			}
		}
	}
	if !inBody {
		return false
	}
	return visibility != "hidden" && visibility != "collapse"
}

// Matches reports whether any selector in the list matches node and returns the first one that does.
func Matches(node *html.Node, list parser.SelectorList) (parser.ComplexSelector, bool) {
	if node == nil || node.Type != html.ElementNode {
		return parser.ComplexSelector{}, false
	}
	for _, sel := range list {
		if matchFrom(node, sel, len(sel.Parts)-1) {
			return sel, true
		}
	}
	return parser.ComplexSelector{}, false
}

// matchFrom matches Parts[idx] against node and walks leftwards through the combinators.
func matchFrom(node *html.Node, sel parser.ComplexSelector, idx int) bool {
	if node == nil || node.Type != html.ElementNode || idx < 0 {
		return false
	}
	p := sel.Parts[idx]
	if !matchCompound(node, p.Compound) {
		return false
	}
	if idx == 0 {
		return true
	}

	switch p.Combinator {
	case parser.CombinatorChild:
		return matchFrom(node.Parent, sel, idx-1)
	case parser.CombinatorAdjacent:
		return matchFrom(prevElement(node), sel, idx-1)
	case parser.CombinatorSibling:
		for s := prevElement(node); s != nil; s = prevElement(s) {
			if matchFrom(s, sel, idx-1) {
				return true
			}
		}
	default:
		for a := node.Parent; a != nil; a = a.Parent {
			if matchFrom(a, sel, idx-1) {
				return true
			}
		}
	}
	return false
}

func matchCompound(node *html.Node, cp parser.Compound) bool {
	if cp.Tag != "" && cp.Tag != "*" && !strings.EqualFold(node.Data, cp.Tag) {
		return false
	}
	if cp.ID != "" && attr(node, "id") != cp.ID {
		return false
	}
	if len(cp.Classes) > 0 {
		have := strings.Fields(attr(node, "class"))
		for _, want := range cp.Classes {
			if !contains(have, want) {
				return false
			}
		}
	}
	for _, test := range cp.Attributes {
		if !matchAttribute(node, test) {
			return false
		}
	}
	for _, pseudo := range cp.Pseudo {
		if !matchPseudo(node, pseudo) {
			return false
		}
	}
	return true
}

func matchAttribute(node *html.Node, test parser.AttributeTest) bool {
	val, found := lookupAttr(node, test.Name)
	if !found {
		return false
	}
	switch test.Operator {
	case "":
		return true
	case "=":
		return val == test.Value
	case "~=":
		return contains(strings.Fields(val), test.Value)
	case "|=":
		return val == test.Value || strings.HasPrefix(val, test.Value+"-")
	case "^=":
		return test.Value != "" && strings.HasPrefix(val, test.Value)
	case "$=":
		return test.Value != "" && strings.HasSuffix(val, test.Value)
	case "*=":
		return test.Value != "" && strings.Contains(val, test.Value)
	}
	return false
}

// matchPseudo supports the structural and attribute-backed pseudo-classes.
// State that depends on live field values (:invalid, :focus) never matches.
func matchPseudo(node *html.Node, name string) bool {
	switch name {
	case "first-child":
		return prevElement(node) == nil
	case "last-child":
		for s := node.NextSibling; s != nil; s = s.NextSibling {
			if s.Type == html.ElementNode {
				return false
			}
		}
		return true
	case "checked":
		_, ok := lookupAttr(node, "checked")
		return ok
	case "disabled":
		_, ok := lookupAttr(node, "disabled")
		return ok
	case "required":
		_, ok := lookupAttr(node, "required")
		return ok
	}
	return false
}

func prevElement(node *html.Node) *html.Node {
	for s := node.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

func lookupAttr(node *html.Node, key string) (string, bool) {
	for _, a := range node.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

func attr(node *html.Node, key string) string {
	v, _ := lookupAttr(node, key)
	return v
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
