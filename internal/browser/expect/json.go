// internal/browser/expect/json.go
package expect

import (
	"fmt"
	"reflect"
	"regexp"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	json "github.com/json-iterator/go"
)

// PlaceholderIgnored replaces values under ignored keys before comparison.
const PlaceholderIgnored = "__IGNORED__"

// JSONOptions tune how two JSON bodies are compared.
type JSONOptions struct {
	// IgnoreKeys masks the values of object keys matching any pattern, at any depth.
	IgnoreKeys []*regexp.Regexp
	// IgnoreArrayOrder compares arrays as multisets.
	IgnoreArrayOrder bool
	// EquateEmpty treats null, {} and [] as equal to each other's empty kind.
	EquateEmpty bool
}

// JSONMismatchError reports a body that differs from the expected JSON.
type JSONMismatchError struct {
	// Diff is a go-cmp diff, (-want +got).
	Diff string
}

// Error implements the error interface.
func (e *JSONMismatchError) Error() string {
	return fmt.Sprintf("json body mismatch (-want +got):\n%s", e.Diff)
}

// NewJSONMismatchError creates a new JSONMismatchError.
func NewJSONMismatchError(diff string) *JSONMismatchError {
	return &JSONMismatchError{Diff: diff}
}

// CompareJSON decodes both bodies and returns their diff. An empty diff
// means the bodies are equivalent under opts.
func CompareJSON(want, got []byte, opts JSONOptions) (string, error) {
	var w, g interface{}
	if err := json.Unmarshal(want, &w); err != nil {
		return "", fmt.Errorf("expected body is not valid JSON: %w", err)
	}
	if err := json.Unmarshal(got, &g); err != nil {
		return "", fmt.Errorf("body is not valid JSON: %w", err)
	}
	return cmp.Diff(mask(w, opts.IgnoreKeys), mask(g, opts.IgnoreKeys), cmpOptions(opts)...), nil
}

// ToMatchJSON checks body against want, which is either raw JSON ([]byte,
// json.RawMessage) or a value that is encoded first. Bodies do not change
// after a response is read, so this does not poll.
func (e *Expect) ToMatchJSON(body []byte, want interface{}, opts ...JSONOptions) error {
	var o JSONOptions
	if len(opts) > 0 {
		o = opts[0]
	}

	var wantBody []byte
	switch v := want.(type) {
	case []byte:
		wantBody = v
	case json.RawMessage:
		wantBody = v
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to encode expected body: %w", err)
		}
		wantBody = encoded
	}

	diff, err := CompareJSON(wantBody, body, o)
	if err != nil {
		return err
	}
	if diff != "" {
		return NewJSONMismatchError(diff)
	}
	return nil
}

func mask(data interface{}, keys []*regexp.Regexp) interface{} {
	if len(keys) == 0 {
		return data
	}
	switch v := data.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, val := range v {
			if matchesAny(k, keys) {
				out[k] = PlaceholderIgnored
				continue
			}
			out[k] = mask(val, keys)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, val := range v {
			out[i] = mask(val, keys)
		}
		return out
	default:
		return data
	}
}

func matchesAny(key string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

func cmpOptions(opts JSONOptions) cmp.Options {
	var out cmp.Options
	if opts.EquateEmpty {
		out = append(out, equateEmpty())
	}
	if opts.IgnoreArrayOrder {
		out = append(out, cmpopts.SortSlices(sliceLess))
	}
	return out
}

func isEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		return rv.Len() == 0
	}
	return false
}

// equateEmpty treats JSON null as equal to {} or []. cmpopts.EquateEmpty
// does not cover a nil interface{}.
func equateEmpty() cmp.Option {
	return cmp.FilterValues(
		func(x, y interface{}) bool { return isEmpty(x) && isEmpty(y) },
		cmp.Comparer(func(x, y interface{}) bool {
			if x == nil || y == nil {
				return true
			}
			// {} and [] stay distinct.
			return reflect.ValueOf(x).Kind() == reflect.ValueOf(y).Kind()
		}),
	)
}

// sliceLess orders decoded JSON values of mixed types deterministically.
func sliceLess(x, y interface{}) bool {
	vx := reflect.ValueOf(x)
	vy := reflect.ValueOf(y)
	if !vx.IsValid() {
		return vy.IsValid()
	}
	if !vy.IsValid() {
		return false
	}
	if vx.Type() != vy.Type() {
		return vx.Type().String() < vy.Type().String()
	}

	switch vx.Kind() {
	case reflect.String:
		return vx.String() < vy.String()
	case reflect.Float64:
		return vx.Float() < vy.Float()
	case reflect.Bool:
		return !vx.Bool() && vy.Bool()
	default:
		return fmt.Sprint(x) < fmt.Sprint(y)
	}
}
