package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTML extracts readable text from an HTML document, dropping scripts,
// styles and navigation chrome and collapsing whitespace.
func HTML(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("extract: parse html: %w", err)
	}

	doc.Find("script, style, noscript, nav, header, footer").Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	const blocks = "h1, h2, h3, h4, h5, h6, p, li, td, th, pre, blockquote"
	var parts []string
	root.Find(blocks).Each(func(_ int, sel *goquery.Selection) {
		// Skip nested blocks; the outermost one carries their text.
		if sel.ParentsFiltered(blocks).Length() > 0 {
			return
		}
		if text := collapseWhitespace(sel.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		// No block elements; fall back to the whole text.
		if text := collapseWhitespace(root.Text()); text != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, "\n"), nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
