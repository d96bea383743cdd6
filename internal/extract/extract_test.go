package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText_Plain(t *testing.T) {
	got, err := Text("text/plain; charset=utf-8", []byte("  hello world  \n"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
}

func TestText_UnsupportedType(t *testing.T) {
	_, err := Text("application/pdf", []byte("%PDF-1.4"))
	assert.Error(t, err)
}

func TestHTML_StripsChromeAndScripts(t *testing.T) {
	html := `<html><head><style>p{color:red}</style></head><body>
		<nav>Home | About</nav>
		<h1>Annual  Report</h1>
		<p>Revenue grew by
		ten percent.</p>
		<script>alert("x")</script>
		<ul><li>First item</li><li>Second item</li></ul>
		<footer>copyright</footer>
	</body></html>`

	got, err := HTML([]byte(html))
	require.NoError(t, err)

	assert.Contains(t, got, "Annual Report")
	assert.Contains(t, got, "Revenue grew by ten percent.")
	assert.Contains(t, got, "First item")
	assert.NotContains(t, got, "alert")
	assert.NotContains(t, got, "color:red")
	assert.NotContains(t, got, "Home | About")
	assert.NotContains(t, got, "copyright")
}

func TestHTML_NestedBlocksNotDuplicated(t *testing.T) {
	html := `<body><blockquote><p>quoted once</p></blockquote></body>`
	got, err := HTML([]byte(html))
	require.NoError(t, err)
	assert.Equal(t, "quoted once", got)
}

func TestHTML_NoBlockElements(t *testing.T) {
	got, err := HTML([]byte("<body>bare text</body>"))
	require.NoError(t, err)
	assert.Equal(t, "bare text", got)
}
