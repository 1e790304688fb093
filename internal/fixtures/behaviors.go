// internal/fixtures/behaviors.go
package fixtures

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"

	"golang.org/x/net/html"

	"github.com/xkilldash9x/mockpage/internal/browser/dom"
)

const (
	BehaviorLogin      = "apprabbit-login"
	BehaviorLoginQuiet = "apprabbit-login-quiet"
)

var dashboard = template.Must(template.New("dashboard").Parse(dashboardTemplate))

// ErrLoginFormMissing is returned when a login behavior runs on markup
// without the login form and its fields.
var ErrLoginFormMissing = errors.New("login form with #email and #password not found")

// RegisterBehaviors adds the AppRabbit login behaviors to reg.
func RegisterBehaviors(reg *dom.Registry) error {
	if err := reg.Register(BehaviorLogin, loginBehavior(true)); err != nil {
		return err
	}
	return reg.Register(BehaviorLoginQuiet, loginBehavior(false))
}

// NewRegistry returns a registry holding the AppRabbit behaviors.
func NewRegistry() *dom.Registry {
	reg := dom.NewRegistry()
	if err := RegisterBehaviors(reg); err != nil {
		panic(fmt.Sprintf("failed to register fixture behaviors: %v", err))
	}
	return reg
}

// loginBehavior intercepts the login form submit. Matching credentials swap
// the body for the dashboard. With showError set, a mismatch reveals #error.
func loginBehavior(showError bool) dom.Behavior {
	return func(doc *dom.Document, _ *html.Node) error {
		form := doc.GetElementByID("loginForm")
		email := doc.GetElementByID("email")
		password := doc.GetElementByID("password")
		if form == nil || email == nil || password == nil {
			return ErrLoginFormMissing
		}

		doc.AddEventListener(form, "submit", func(ev *dom.Event) error {
			ev.PreventDefault()
			user := doc.Value(email)
			if user == AdminEmail && doc.Value(password) == AdminPassword {
				return showDashboard(doc, user)
			}
			if !showError {
				return nil
			}
			if errNode := doc.GetElementByID("error"); errNode != nil {
				doc.SetStyle(errNode, "display", "block")
			}
			return nil
		})
		return nil
	}
}

func showDashboard(doc *dom.Document, email string) error {
	var buf bytes.Buffer
	if err := dashboard.Execute(&buf, struct{ Email string }{email}); err != nil {
		return fmt.Errorf("failed to render dashboard: %w", err)
	}
	if err := doc.SetInnerHTML(doc.Body(), buf.String()); err != nil {
		return err
	}
	doc.SetTitle(DashboardTitle)
	return nil
}
