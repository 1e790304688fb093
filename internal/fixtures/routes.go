// internal/fixtures/routes.go
package fixtures

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sort"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/mockpage/internal/browser/network"
)

//go:embed routes.yaml
var defaultRoutes []byte

// Sorted keys keep fixture bodies byte-stable.
var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// RouteFixture is one canned response keyed by URL pattern.
type RouteFixture struct {
	Pattern     string            `yaml:"pattern"`
	Status      int               `yaml:"status"`
	ContentType string            `yaml:"content_type"`
	Headers     map[string]string `yaml:"headers"`
	JSON        interface{}       `yaml:"json"`
	Body        string            `yaml:"body"`
	// Encoding compresses the body (gzip, br, deflate) and sets Content-Encoding.
	Encoding string `yaml:"encoding"`
	// Abort fails the request with this reason instead of responding.
	Abort string `yaml:"abort"`
}

// RouteSet holds top-level routes plus named scenarios of routes.
type RouteSet struct {
	Routes    []RouteFixture            `yaml:"routes"`
	Scenarios map[string][]RouteFixture `yaml:"scenarios"`
}

// LoadRoutes decodes and validates a YAML route fixture file.
func LoadRoutes(r io.Reader) (*RouteSet, error) {
	var set RouteSet
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&set); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode route fixtures: %w", err)
	}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return &set, nil
}

// DefaultRoutes returns the bundled AppRabbit API scenarios.
func DefaultRoutes() (*RouteSet, error) {
	return LoadRoutes(bytes.NewReader(defaultRoutes))
}

// Validate checks every fixture in the set.
func (s *RouteSet) Validate() error {
	for i, f := range s.Routes {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("routes[%d]: %w", i, err)
		}
	}
	for name, routes := range s.Scenarios {
		for i, f := range routes {
			if err := f.Validate(); err != nil {
				return fmt.Errorf("scenarios.%s[%d]: %w", name, i, err)
			}
		}
	}
	return nil
}

// ScenarioNames returns the scenario names in sorted order.
func (s *RouteSet) ScenarioNames() []string {
	names := make([]string, 0, len(s.Scenarios))
	for name := range s.Scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply registers the top-level routes and then those of each named scenario.
func (s *RouteSet) Apply(router *network.Router, scenarios ...string) error {
	routes := append([]RouteFixture(nil), s.Routes...)
	for _, name := range scenarios {
		extra, ok := s.Scenarios[name]
		if !ok {
			return fmt.Errorf("unknown route scenario %q", name)
		}
		routes = append(routes, extra...)
	}

	// Nothing is registered unless every fixture is usable.
	responders := make([]network.Responder, len(routes))
	for i, f := range routes {
		if err := network.ValidatePattern(f.Pattern); err != nil {
			return err
		}
		responder, err := f.Responder()
		if err != nil {
			return err
		}
		responders[i] = responder
	}
	for i, f := range routes {
		if err := router.Register(f.Pattern, responders[i]); err != nil {
			return err
		}
	}
	return nil
}

// Validate rejects fixtures that cannot produce a single response.
func (f RouteFixture) Validate() error {
	if f.Pattern == "" {
		return fmt.Errorf("route fixture has no pattern")
	}
	if f.JSON != nil && f.Body != "" {
		return fmt.Errorf("route %s sets both json and body", f.Pattern)
	}
	if f.Abort != "" && (f.JSON != nil || f.Body != "" || f.Status != 0) {
		return fmt.Errorf("route %s aborts but also describes a response", f.Pattern)
	}
	if f.Status != 0 && (f.Status < 100 || f.Status > 599) {
		return fmt.Errorf("route %s has invalid status %d", f.Pattern, f.Status)
	}
	if f.Encoding != "" {
		if f.Abort != "" {
			return fmt.Errorf("route %s aborts but also sets an encoding", f.Pattern)
		}
		if _, err := network.EncodeBody(f.Encoding, nil); err != nil {
			return fmt.Errorf("route %s: %w", f.Pattern, err)
		}
	}
	return nil
}

// Responder builds the network responder the fixture describes.
func (f RouteFixture) Responder() (network.Responder, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if f.Abort != "" {
		return network.Abort(f.Abort), nil
	}

	contentType := f.ContentType
	body := []byte(f.Body)
	if f.JSON != nil {
		encoded, err := jsonAPI.Marshal(f.JSON)
		if err != nil {
			return nil, fmt.Errorf("route %s: failed to encode json: %w", f.Pattern, err)
		}
		body = encoded
		if contentType == "" {
			contentType = network.ContentTypeJSON
		}
	}
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}

	resp := network.NewResponse(f.Status, contentType, body)
	for k, v := range f.Headers {
		resp = resp.WithHeader(k, v)
	}
	if f.Encoding != "" {
		encoded, err := resp.WithEncoding(f.Encoding)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", f.Pattern, err)
		}
		resp = encoded
	}
	return network.Fulfill(resp), nil
}
