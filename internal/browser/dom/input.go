// internal/browser/dom/input.go
package dom

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Fill replaces the value of a text control and fires input and change.
func (d *Document) Fill(node *html.Node, text string) error {
	d.mu.Lock()
	if err := d.checkEditableLocked(node, "fill"); err != nil {
		d.mu.Unlock()
		return err
	}
	d.setValueLocked(node, text)
	desc := describeElement(node)
	d.mu.Unlock()

	d.logger.Debug("Filled field.", zap.String("element", desc), zap.Int("length", len(text)))
	return d.fireInputAndChange(node)
}

// Clear empties a text control. It fails exactly where Fill does.
func (d *Document) Clear(node *html.Node) error {
	d.mu.Lock()
	if err := d.checkEditableLocked(node, "clear"); err != nil {
		d.mu.Unlock()
		return err
	}
	d.setValueLocked(node, "")
	d.mu.Unlock()

	return d.fireInputAndChange(node)
}

func (d *Document) fireInputAndChange(node *html.Node) error {
	if _, err := d.Dispatch(node, "input"); err != nil {
		return err
	}
	_, err := d.Dispatch(node, "change")
	return err
}

func (d *Document) checkEditableLocked(node *html.Node, action string) error {
	if err := d.checkActionableLocked(node, action); err != nil {
		return err
	}
	if !isTextInputElement(extractElementData(node)) {
		return NewNotInteractableError(describeElement(node), action, "element is not an input, textarea or contenteditable")
	}
	if hasAttr(node, "readonly") && isFormControl(node) {
		return NewNotInteractableError(describeElement(node), action, "element is readonly")
	}
	return nil
}

// checkActionableLocked covers the checks shared by every action: attached, visible, enabled.
func (d *Document) checkActionableLocked(node *html.Node, action string) error {
	if node == nil || node.Type != html.ElementNode {
		return NewNotInteractableError(describeElement(node), action, "not an element")
	}
	if !d.attachedLocked(node) {
		return NewNotInteractableError(describeElement(node), action, "element is detached from the document")
	}
	if !d.isVisibleLocked(node) {
		return NewNotInteractableError(describeElement(node), action, "element is not visible")
	}
	if isDisabled(node) {
		return NewNotInteractableError(describeElement(node), action, "element is disabled")
	}
	return nil
}

// Click dispatches a bubbling click at node and then runs its default action
// unless a listener prevented it.
func (d *Document) Click(node *html.Node) error {
	d.mu.RLock()
	err := d.checkActionableLocked(node, "click")
	desc := describeElement(node)
	d.mu.RUnlock()
	if err != nil {
		return err
	}

	d.logger.Debug("Clicking element.", zap.String("element", desc))
	ev, err := d.Dispatch(node, "click")
	if err != nil {
		return err
	}
	if ev.DefaultPrevented() {
		return nil
	}
	return d.activate(node)
}

// activate performs the default action of a click.
func (d *Document) activate(node *html.Node) error {
	d.mu.Lock()
	if !d.attachedLocked(node) {
		// A click listener replaced the content; nothing is left to activate.
		d.mu.Unlock()
		return nil
	}

	var form, control *html.Node
	submit, reset, toggled := false, false, false
	switch {
	case isSubmitButton(node):
		form, submit = closest(node, "form"), true
	case isResetButton(node):
		form, reset = closest(node, "form"), true
	case inputType(node) == "checkbox":
		if !removeAttr(node, "checked") {
			setAttr(node, "checked", "")
		}
		toggled = true
	case inputType(node) == "radio":
		if !hasAttr(node, "checked") {
			d.uncheckGroupLocked(node)
			setAttr(node, "checked", "")
			toggled = true
		}
	case node.Data == "label":
		control = d.labelControlLocked(node)
	}
	d.mu.Unlock()

	switch {
	case toggled:
		return d.fireInputAndChange(node)
	case submit && form != nil:
		return d.submit(form, node)
	case reset && form != nil:
		return d.Reset(form)
	case control != nil && control != node:
		return d.Click(control)
	}
	return nil
}

func (d *Document) uncheckGroupLocked(radio *html.Node) {
	name := attr(radio, "name")
	if name == "" {
		return
	}
	scope := closest(radio, "form")
	if scope == nil {
		scope = d.root
	}
	walk(scope, func(n *html.Node) bool {
		if n != radio && n.Type == html.ElementNode && inputType(n) == "radio" && attr(n, "name") == name {
			removeAttr(n, "checked")
		}
		return true
	})
}

// labelControlLocked returns the control a label activates.
func (d *Document) labelControlLocked(label *html.Node) *html.Node {
	if id := attr(label, "for"); id != "" {
		return findFirst(d.root, func(n *html.Node) bool { return attr(n, "id") == id && isLabelable(n) })
	}
	var control *html.Node
	walk(label, func(n *html.Node) bool {
		if n != label && n.Type == html.ElementNode && isLabelable(n) {
			control = n
			return false
		}
		return true
	})
	return control
}

// Press dispatches keydown, performs the key's default action, then dispatches keyup.
// Key is either a single character or one of Enter, Backspace, Delete, Tab, Escape,
// ArrowLeft, ArrowRight, ArrowUp, ArrowDown, Home, End.
func (d *Document) Press(node *html.Node, key string) error {
	if !isKnownKey(key) {
		return fmt.Errorf("unknown key %q", key)
	}
	d.mu.RLock()
	err := d.checkActionableLocked(node, "press "+key+" on")
	d.mu.RUnlock()
	if err != nil {
		return err
	}

	ev, err := d.dispatch(&Event{Type: "keydown", Target: node, Key: key, bubbles: true})
	if err != nil {
		return err
	}
	if !ev.DefaultPrevented() {
		if err := d.keyDefault(node, key); err != nil {
			return err
		}
	}

	// keyup goes to the element only if it survived the default action.
	if !d.Contains(node) {
		return nil
	}
	_, err = d.dispatch(&Event{Type: "keyup", Target: node, Key: key, bubbles: true})
	return err
}

func isKnownKey(key string) bool {
	if utf8.RuneCountInString(key) == 1 {
		return true
	}
	switch key {
	case "Enter", "Backspace", "Delete", "Tab", "Escape", "ArrowLeft", "ArrowRight", "ArrowUp", "ArrowDown", "Home", "End", "Space":
		return true
	}
	return false
}

func (d *Document) keyDefault(node *html.Node, key string) error {
	d.mu.Lock()
	editable := d.checkEditableLocked(node, "type into") == nil
	switch {
	case key == "Enter":
		d.mu.Unlock()
		switch {
		case node.Data == "textarea" || (isContentEditable(node) && !isFormControl(node)):
			if editable {
				return d.appendText(node, "\n")
			}
		case editable:
			if form := closest(node, "form"); form != nil {
				return d.submit(form, nil)
			}
		case node.Data == "button" || (node.Data == "input" && roleOf(node) == "button") || node.Data == "a":
			return d.Click(node)
		}
		return nil
	case key == "Space":
		d.mu.Unlock()
		if editable {
			return d.appendText(node, " ")
		}
		if roleOf(node) == "button" || roleOf(node) == "checkbox" || roleOf(node) == "radio" {
			return d.Click(node)
		}
		return nil
	case key == "Backspace":
		if !editable {
			d.mu.Unlock()
			return nil
		}
		value := d.valueLocked(node)
		if value == "" {
			d.mu.Unlock()
			return nil
		}
		_, size := utf8.DecodeLastRuneInString(value)
		d.setValueLocked(node, value[:len(value)-size])
		d.mu.Unlock()
		_, err := d.Dispatch(node, "input")
		return err
	case utf8.RuneCountInString(key) == 1:
		d.mu.Unlock()
		if editable {
			return d.appendText(node, key)
		}
		return nil
	}
	d.mu.Unlock()
	return nil
}

func (d *Document) appendText(node *html.Node, text string) error {
	d.mu.Lock()
	d.setValueLocked(node, d.valueLocked(node)+text)
	d.mu.Unlock()
	_, err := d.Dispatch(node, "input")
	return err
}

// Type presses each character of text in turn.
func (d *Document) Type(node *html.Node, text string) error {
	for _, r := range text {
		if err := d.Press(node, string(r)); err != nil {
			return err
		}
	}
	return nil
}

// RequestSubmit submits form as if its first submit button were clicked,
// running constraint validation first.
func (d *Document) RequestSubmit(form *html.Node) error {
	if form == nil || form.Data != "form" {
		return fmt.Errorf("RequestSubmit: target must be a form")
	}
	return d.submit(form, nil)
}

// submit validates the form's controls and dispatches submit. When a required
// field is empty, or a field fails its type check, invalid fires on every such
// field and submit does not.
func (d *Document) submit(form, submitter *html.Node) error {
	d.mu.RLock()
	if !d.attachedLocked(form) {
		d.mu.RUnlock()
		return nil
	}
	skipValidation := hasAttr(form, "novalidate") || (submitter != nil && hasAttr(submitter, "formnovalidate"))
	var invalid []*html.Node
	if !skipValidation {
		for _, control := range d.controlsLocked(form) {
			if ok, _ := d.validityLocked(control); !ok {
				invalid = append(invalid, control)
			}
		}
	}
	d.mu.RUnlock()

	if len(invalid) > 0 {
		d.logger.Debug("Form submission blocked by validation.", zap.Int("invalid_fields", len(invalid)))
		for _, control := range invalid {
			if _, err := d.Dispatch(control, "invalid"); err != nil {
				return err
			}
		}
		return nil
	}

	ev, err := d.dispatch(&Event{Type: "submit", Target: form, Submitter: submitter, bubbles: true})
	if err != nil {
		return err
	}
	if !ev.DefaultPrevented() {
		// No navigation happens here; a page without a submit handler stays as it is.
		d.logger.Debug("Form submitted without a handler preventing default.", zap.String("form", describeElement(form)))
	}
	return nil
}

// Reset restores every control in form to its initial value and fires reset.
func (d *Document) Reset(form *html.Node) error {
	ev, err := d.Dispatch(form, "reset")
	if err != nil || ev.DefaultPrevented() {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, control := range d.controlsLocked(form) {
		delete(d.fields, control)
	}
	return nil
}

// controlsLocked returns the enabled form controls owned by form, including
// controls elsewhere in the document that name it with a form attribute.
func (d *Document) controlsLocked(form *html.Node) []*html.Node {
	id := attr(form, "id")
	var controls []*html.Node
	walk(d.root, func(n *html.Node) bool {
		if !isFormControl(n) || isDisabled(n) {
			return true
		}
		if owner, ok := lookupAttr(n, "form"); ok {
			if owner == id && id != "" {
				controls = append(controls, n)
			}
			return true
		}
		if closest(n, "form") == form {
			controls = append(controls, n)
		}
		return true
	})
	return controls
}

// validityLocked applies constraint validation to one control.
func (d *Document) validityLocked(node *html.Node) (bool, string) {
	if !isFormControl(node) || isDisabled(node) {
		return true, ""
	}
	t := inputType(node)
	switch t {
	case "hidden", "submit", "button", "reset", "image":
		return true, ""
	}

	if hasAttr(node, "required") {
		switch t {
		case "checkbox":
			if !hasAttr(node, "checked") {
				return false, "Please check this box if you want to proceed."
			}
		case "radio":
			if !d.radioGroupCheckedLocked(node) {
				return false, "Please select one of these options."
			}
		default:
			if d.valueLocked(node) == "" {
				return false, "Please fill out this field."
			}
		}
	}

	value := d.valueLocked(node)
	if value == "" {
		return true, ""
	}
	switch t {
	case "email":
		if !looksLikeEmail(value) {
			return false, fmt.Sprintf("Please include an '@' and a domain in the email address. '%s' is incomplete.", value)
		}
	}
	if maxLen := attr(node, "maxlength"); maxLen != "" {
		var limit int
		if _, err := fmt.Sscanf(maxLen, "%d", &limit); err == nil && utf8.RuneCountInString(value) > limit {
			return false, fmt.Sprintf("Please shorten this text to %d characters or less.", limit)
		}
	}
	return true, ""
}

func (d *Document) radioGroupCheckedLocked(radio *html.Node) bool {
	name := attr(radio, "name")
	if name == "" {
		return hasAttr(radio, "checked")
	}
	scope := closest(radio, "form")
	if scope == nil {
		scope = d.root
	}
	checked := false
	walk(scope, func(n *html.Node) bool {
		if n.Type == html.ElementNode && inputType(n) == "radio" && attr(n, "name") == name && hasAttr(n, "checked") {
			checked = true
			return false
		}
		return true
	})
	return checked
}

// looksLikeEmail mirrors the browser check: one '@' with text on both sides.
func looksLikeEmail(value string) bool {
	local, domain, ok := strings.Cut(value, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return false
	}
	return !strings.ContainsAny(value, " \t\n") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}
