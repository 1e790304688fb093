// internal/fixtures/pages.go
package fixtures

import (
	_ "embed"
	"fmt"
)

// Credentials accepted by the login behaviors.
const (
	AdminEmail    = "admin@apprabbit.com"
	AdminPassword = "admin123"
)

const (
	LoginTitle     = "AppRabbit Admin - Login"
	DashboardTitle = "AppRabbit Admin - Dashboard"
)

//go:embed pages/login.html
var loginPage string

//go:embed pages/login_required.html
var loginRequiredPage string

//go:embed pages/login_quiet.html
var loginQuietPage string

//go:embed pages/dashboard.html
var dashboardTemplate string

// Variant selects one of the login page fixtures.
type Variant string

const (
	// VariantLogin shows an error element on bad credentials.
	VariantLogin Variant = "login"
	// VariantRequired has no behavior; it only exercises required-field validation.
	VariantRequired Variant = "required"
	// VariantQuiet ignores bad credentials.
	VariantQuiet Variant = "quiet"
)

// Variants lists every login page fixture.
func Variants() []Variant {
	return []Variant{VariantLogin, VariantRequired, VariantQuiet}
}

// LoginPage returns the markup for variant.
func LoginPage(variant Variant) (string, error) {
	switch variant {
	case VariantLogin:
		return loginPage, nil
	case VariantRequired:
		return loginRequiredPage, nil
	case VariantQuiet:
		return loginQuietPage, nil
	default:
		return "", fmt.Errorf("unknown login page variant %q", variant)
	}
}
