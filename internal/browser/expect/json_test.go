package expect

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareJSON(t *testing.T) {
	tests := []struct {
		name  string
		want  string
		got   string
		opts  JSONOptions
		equal bool
	}{
		{name: "Key Order Irrelevant", want: `{"a":1,"b":[1,2]}`, got: `{"b":[1,2],"a":1}`, equal: true},
		{name: "Value Differs", want: `{"success":true}`, got: `{"success":false}`},
		{name: "Array Order Matters By Default", want: `[1,2]`, got: `[2,1]`},
		{name: "Array Order Ignored", want: `["b",1,"a",null]`, got: `[null,"a","b",1]`, opts: JSONOptions{IgnoreArrayOrder: true}, equal: true},
		{name: "Null Versus Empty", want: `{"items":null}`, got: `{"items":[]}`},
		{name: "Null Equates Empty", want: `{"items":null}`, got: `{"items":[]}`, opts: JSONOptions{EquateEmpty: true}, equal: true},
		{name: "Object Is Not Array", want: `{"items":{}}`, got: `{"items":[]}`, opts: JSONOptions{EquateEmpty: true}},
		{
			name:  "Ignored Keys Masked At Depth",
			want:  `{"token":"abc","user":{"session_id":"1","email":"a@b.c"}}`,
			got:   `{"token":"xyz","user":{"session_id":"2","email":"a@b.c"}}`,
			opts:  JSONOptions{IgnoreKeys: []*regexp.Regexp{regexp.MustCompile(`^token$`), regexp.MustCompile(`(?i)session`)}},
			equal: true,
		},
		{
			name: "Ignored Key Must Still Exist",
			want: `{"token":"abc"}`,
			got:  `{}`,
			opts: JSONOptions{IgnoreKeys: []*regexp.Regexp{regexp.MustCompile(`^token$`)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff, err := CompareJSON([]byte(tt.want), []byte(tt.got), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.equal, diff == "", "diff:\n%s", diff)
		})
	}

	_, err := CompareJSON([]byte(`{`), []byte(`{}`), JSONOptions{})
	assert.Error(t, err)
	_, err = CompareJSON([]byte(`{}`), []byte(`<html>`), JSONOptions{})
	assert.Error(t, err)
}

func TestToMatchJSON(t *testing.T) {
	body := []byte(`{"success":false,"message":"Invalid credentials"}`)

	require.NoError(t, fast().ToMatchJSON(body, map[string]interface{}{"success": false, "message": "Invalid credentials"}))
	require.NoError(t, fast().ToMatchJSON(body, []byte(`{"message":"Invalid credentials","success":false}`)))

	err := fast().ToMatchJSON(body, map[string]interface{}{"success": true})
	var mismatch *JSONMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Contains(t, mismatch.Diff, "success")
	assert.Contains(t, err.Error(), "-want +got")

	assert.Error(t, fast().ToMatchJSON(body, []byte(`{`)))
	assert.Error(t, fast().ToMatchJSON([]byte(`not json`), map[string]interface{}{}))
}
