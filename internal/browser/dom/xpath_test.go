package dom_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/antchfx/htmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/mockpage/internal/browser/dom"
)

const xpathHTML = `
	<html>
	<body>
		<div id="header">
			<h1>Welcome</h1>
		</div>
		<div class="content">
			<p>P1</p><p>P2</p>
			<ul>
				<li>Item 1</li>
				<li>Item 2</li>
				<li id="it's">Item 3</li>
			</ul>
		</div>
		<div class="content"><p>P3</p></div>
	</body>
	</html>
	`

func TestGenerateUniqueXPath(t *testing.T) {
	doc, err := htmlquery.Parse(strings.NewReader(xpathHTML))
	require.NoError(t, err)

	tests := []struct {
		name          string
		targetXPath   string
		expectedXPath string
	}{
		{"Body", "//body", "/html[1]/body[1]"},
		{"Element with ID", "//div[@id='header']", `//*[@id='header']`},
		{"Child of ID element", "//h1", `//*[@id='header']/h1[1]`},
		{"Specific index", "(//p)[2]", "/html[1]/body[1]/div[2]/p[2]"},
		{"Ambiguous classes", "(//div[@class='content'])[2]/p", "/html[1]/body[1]/div[3]/p[1]"},
		{"List item", "//ul/li[2]", "/html[1]/body[1]/div[2]/ul[1]/li[2]"},
		{"ID with quote", `//li[@id="it's"]`, `//*[@id="it's"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := htmlquery.FindOne(doc, tt.targetXPath)
			require.NotNil(t, target, "target node not found with %s", tt.targetXPath)

			generated := dom.GenerateUniqueXPath(target)
			assert.Equal(t, tt.expectedXPath, generated)
			assert.Equal(t, target, htmlquery.FindOne(doc, generated), "generated XPath must select the original node")
		})
	}

	assert.Equal(t, "", dom.GenerateUniqueXPath(nil))
}

func TestDocument_QueryXPath(t *testing.T) {
	doc := dom.NewDocument(zaptest.NewLogger(t), nil)
	require.NoError(t, doc.SetContent(xpathHTML))

	node, err := doc.QueryXPath("//h1")
	require.NoError(t, err)
	assert.Equal(t, "Welcome", doc.TextContent(node))

	_, err = doc.QueryXPath("//table")
	var notFound *dom.NotFoundError
	assert.True(t, errors.As(err, &notFound))

	_, err = doc.QueryXPath("//[")
	assert.Error(t, err)
	assert.False(t, errors.As(err, &notFound))
}
