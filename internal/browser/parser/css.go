// internal/browser/parser/css.go
package parser

import (
	"fmt"
	"strings"
)

// Property is a lower-cased CSS property name such as "display".
type Property string

// Value is the raw text of a CSS value such as "none".
type Value string

// Declaration is one property/value pair.
type Declaration struct {
	Property  Property
	Value     Value
	Important bool
}

// Rule pairs a selector list with its declaration block.
type Rule struct {
	Selectors    SelectorList
	Declarations []Declaration
}

// StyleSheet is an ordered list of rules. At-rules are skipped.
type StyleSheet struct {
	Rules []Rule
}

// SelectorList is a comma separated list ("h1, .title").
type SelectorList []ComplexSelector

// ComplexSelector is a chain of compound selectors joined by combinators.
// Parts are stored left to right; Parts[0].Combinator is always CombinatorNone.
type ComplexSelector struct {
	Parts []CompoundPart
}

// CompoundPart is a compound selector and the combinator that links it to the part before it.
type CompoundPart struct {
	Combinator Combinator
	Compound   Compound
}

// Compound is tag, id, classes, attribute tests and pseudo-classes that all apply to one element.
type Compound struct {
	Tag        string
	ID         string
	Classes    []string
	Attributes []AttributeTest
	Pseudo     []string
}

// AttributeTest is "[name]" or "[name op value]".
type AttributeTest struct {
	Name     string
	Operator string // "", "=", "~=", "|=", "^=", "$=", "*="
	Value    string
}

// Combinator relates a compound to the compound on its left.
type Combinator int

const (
	CombinatorNone Combinator = iota
	CombinatorDescendant
	CombinatorChild
	CombinatorAdjacent
	CombinatorSibling
)

// Specificity is the (ids, classes, types) triple.
type Specificity [3]int

// Less reports whether s sorts before o.
func (s Specificity) Less(o Specificity) bool {
	for i := range s {
		if s[i] != o[i] {
			return s[i] < o[i]
		}
	}
	return false
}

// Specificity sums the specificity of every compound in the chain.
func (c ComplexSelector) Specificity() Specificity {
	var sp Specificity
	for _, part := range c.Parts {
		cp := part.Compound
		if cp.ID != "" {
			sp[0]++
		}
		sp[1] += len(cp.Classes) + len(cp.Attributes) + len(cp.Pseudo)
		if cp.Tag != "" && cp.Tag != "*" {
			sp[2]++
		}
	}
	return sp
}

func (c Compound) empty() bool {
	return c.Tag == "" && c.ID == "" && len(c.Classes) == 0 && len(c.Attributes) == 0 && len(c.Pseudo) == 0
}

// ParseStyleSheet parses the text of a <style> element. Malformed rules are
// skipped rather than reported, the way browsers recover.
func ParseStyleSheet(src string) StyleSheet {
	c := &cursor{src: src}
	var sheet StyleSheet

	for {
		c.skipSpaceAndComments()
		if c.done() {
			return sheet
		}
		if c.peek() == '@' {
			c.skipAtRule()
			continue
		}

		start := c.pos
		c.skipUntil('{')
		prelude := c.src[start:c.pos]
		if c.done() {
			return sheet
		}
		c.pos++ // '{'
		bodyStart := c.pos
		body := c.src[bodyStart:]
		if c.skipBlockBody() {
			body = c.src[bodyStart : c.pos-1]
		}

		selectors, err := ParseSelectorList(prelude)
		if err != nil {
			continue
		}
		decls := ParseDeclarations(body)
		if len(decls) == 0 {
			continue
		}
		sheet.Rules = append(sheet.Rules, Rule{Selectors: selectors, Declarations: decls})
	}
}

// ParseDeclarations parses "prop: value; prop2: value2" as found in a rule body
// or an inline style attribute.
func ParseDeclarations(src string) []Declaration {
	var decls []Declaration
	for _, chunk := range splitTopLevel(src, ';') {
		chunk = stripComments(chunk)
		name, value, ok := strings.Cut(chunk, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.TrimSpace(value)
		if name == "" || value == "" {
			continue
		}
		important := false
		if lower := strings.ToLower(value); strings.HasSuffix(lower, "!important") {
			important = true
			value = strings.TrimSpace(value[:len(value)-len("!important")])
		}
		decls = append(decls, Declaration{Property: Property(name), Value: Value(value), Important: important})
	}
	return decls
}

// ParseSelectorList parses a selector prelude such as "form > input:invalid, .error".
func ParseSelectorList(src string) (SelectorList, error) {
	var list SelectorList
	for _, item := range splitTopLevel(src, ',') {
		item = strings.TrimSpace(item)
		if item == "" {
			return nil, fmt.Errorf("empty selector in list %q", src)
		}
		complexSel, err := parseComplex(item)
		if err != nil {
			return nil, err
		}
		list = append(list, complexSel)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("no selectors in %q", src)
	}
	return list, nil
}

func parseComplex(src string) (ComplexSelector, error) {
	c := &cursor{src: src}
	var sel ComplexSelector
	next := CombinatorNone

	for {
		sawSpace := c.skipSpace()
		if c.done() {
			break
		}
		switch c.peek() {
		case '>':
			next = CombinatorChild
			c.pos++
			continue
		case '+':
			next = CombinatorAdjacent
			c.pos++
			continue
		case '~':
			next = CombinatorSibling
			c.pos++
			continue
		}
		if len(sel.Parts) > 0 && next == CombinatorNone {
			if !sawSpace {
				return ComplexSelector{}, fmt.Errorf("unexpected %q in selector %q", c.peek(), src)
			}
			next = CombinatorDescendant
		}

		compound, err := c.compound()
		if err != nil {
			return ComplexSelector{}, fmt.Errorf("selector %q: %w", src, err)
		}
		if len(sel.Parts) == 0 {
			next = CombinatorNone
		}
		sel.Parts = append(sel.Parts, CompoundPart{Combinator: next, Compound: compound})
		next = CombinatorNone
	}

	if len(sel.Parts) == 0 {
		return ComplexSelector{}, fmt.Errorf("empty selector")
	}
	if next != CombinatorNone {
		return ComplexSelector{}, fmt.Errorf("selector %q ends with a combinator", src)
	}
	return sel, nil
}

// cursor is a byte scanner over CSS text.
type cursor struct {
	src string
	pos int
}

func (c *cursor) done() bool { return c.pos >= len(c.src) }

func (c *cursor) peek() byte {
	if c.done() {
		return 0
	}
	return c.src[c.pos]
}

func (c *cursor) skipSpace() bool {
	start := c.pos
	for !c.done() && isSpace(c.peek()) {
		c.pos++
	}
	return c.pos > start
}

func (c *cursor) skipSpaceAndComments() {
	for {
		c.skipSpace()
		if !strings.HasPrefix(c.src[c.pos:], "/*") {
			return
		}
		end := strings.Index(c.src[c.pos+2:], "*/")
		if end < 0 {
			c.pos = len(c.src)
			return
		}
		c.pos += end + 4
	}
}

func (c *cursor) skipUntil(b byte) {
	for !c.done() && c.peek() != b {
		c.pos++
	}
}

// skipBlockBody advances past the '}' that balances an already consumed '{'.
// It reports false when the input ends first.
func (c *cursor) skipBlockBody() bool {
	depth := 1
	for !c.done() {
		switch ch := c.peek(); ch {
		case '"', '\'':
			c.skipString(ch)
			continue
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				c.pos++
				return true
			}
		}
		c.pos++
	}
	return false
}

func (c *cursor) skipString(quote byte) {
	c.pos++
	for !c.done() {
		ch := c.peek()
		c.pos++
		if ch == '\\' {
			c.pos++
		} else if ch == quote {
			return
		}
	}
}

func (c *cursor) skipAtRule() {
	for !c.done() {
		switch c.peek() {
		case ';':
			c.pos++
			return
		case '{':
			c.pos++
			c.skipBlockBody()
			return
		}
		c.pos++
	}
}

func (c *cursor) ident() string {
	start := c.pos
	for !c.done() && isIdentChar(c.peek()) {
		c.pos++
	}
	return c.src[start:c.pos]
}

func (c *cursor) compound() (Compound, error) {
	var cp Compound
	if c.peek() == '*' {
		c.pos++
		cp.Tag = "*"
	} else if isIdentStart(c.peek()) {
		cp.Tag = strings.ToLower(c.ident())
	}

	for !c.done() {
		switch c.peek() {
		case '#':
			c.pos++
			if cp.ID = c.ident(); cp.ID == "" {
				return cp, fmt.Errorf("empty id")
			}
		case '.':
			c.pos++
			class := c.ident()
			if class == "" {
				return cp, fmt.Errorf("empty class")
			}
			cp.Classes = append(cp.Classes, class)
		case '[':
			c.pos++
			attr, err := c.attribute()
			if err != nil {
				return cp, err
			}
			cp.Attributes = append(cp.Attributes, attr)
		case ':':
			c.pos++
			if c.peek() == ':' {
				c.pos++
			}
			name := strings.ToLower(c.ident())
			if name == "" {
				return cp, fmt.Errorf("empty pseudo-class")
			}
			if c.peek() == '(' {
				c.pos++
				depth := 1
				for !c.done() && depth > 0 {
					switch c.peek() {
					case '(':
						depth++
					case ')':
						depth--
					}
					c.pos++
				}
			}
			cp.Pseudo = append(cp.Pseudo, name)
		default:
			if cp.empty() {
				return cp, fmt.Errorf("unexpected %q", c.peek())
			}
			return cp, nil
		}
	}
	if cp.empty() {
		return cp, fmt.Errorf("empty compound selector")
	}
	return cp, nil
}

// attribute parses the inside of "[...]"; the opening bracket is already consumed.
func (c *cursor) attribute() (AttributeTest, error) {
	c.skipSpace()
	attr := AttributeTest{Name: strings.ToLower(c.ident())}
	if attr.Name == "" {
		return attr, fmt.Errorf("attribute selector without a name")
	}
	c.skipSpace()
	if c.peek() == ']' {
		c.pos++
		return attr, nil
	}

	switch ch := c.peek(); ch {
	case '=':
		attr.Operator = "="
		c.pos++
	case '~', '|', '^', '$', '*':
		c.pos++
		if c.peek() != '=' {
			return attr, fmt.Errorf("bad attribute operator %q", ch)
		}
		c.pos++
		attr.Operator = string(ch) + "="
	default:
		return attr, fmt.Errorf("bad attribute operator %q", ch)
	}

	c.skipSpace()
	if q := c.peek(); q == '"' || q == '\'' {
		start := c.pos + 1
		c.skipString(q)
		attr.Value = c.src[start:max(start, c.pos-1)]
	} else {
		attr.Value = c.ident()
	}
	c.skipSpace()
	if c.peek() != ']' {
		return attr, fmt.Errorf("unterminated attribute selector")
	}
	c.pos++
	return attr, nil
}

// splitTopLevel splits on sep while ignoring separators inside quotes, parentheses or brackets.
func splitTopLevel(src string, sep byte) []string {
	var parts []string
	depth := 0
	var quote byte
	start := 0
	for i := 0; i < len(src); i++ {
		ch := src[i]
		switch {
		case quote != 0:
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
		case ch == '"' || ch == '\'':
			quote = ch
		case ch == '(' || ch == '[':
			depth++
		case ch == ')' || ch == ']':
			depth--
		case ch == sep && depth == 0:
			parts = append(parts, src[start:i])
			start = i + 1
		}
	}
	return append(parts, src[start:])
}

func stripComments(s string) string {
	for {
		open := strings.Index(s, "/*")
		if open < 0 {
			return s
		}
		end := strings.Index(s[open+2:], "*/")
		if end < 0 {
			return s[:open]
		}
		s = s[:open] + s[open+2+end+2:]
	}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f'
}

func isIdentStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_' || ch == '-' || ch >= 0x80
}

func isIdentChar(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}
