// Package render turns model answers written in Markdown into safe HTML.
package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

const blockedElements = "script, style, iframe, object, embed, form, link, meta"

var urlAttrs = []string{"href", "src", "action", "formaction", "xlink:href"}

// Renderer converts Markdown to sanitized HTML
type Renderer struct {
	md goldmark.Markdown
}

// New creates a renderer with GitHub-flavoured Markdown. Raw HTML is never passed through.
func New() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithXHTML()),
		),
	}
}

// Render converts markdown to HTML and strips anything executable
func (r *Renderer) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}
	return Sanitize(buf.String())
}

// Sanitize removes scripts, event handlers and javascript: URLs from an HTML fragment
func Sanitize(fragment string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	doc.Find(blockedElements).Remove()

	doc.Find("*").Each(func(_ int, sel *goquery.Selection) {
		node := sel.Get(0)
		var drop []string
		for _, attr := range node.Attr {
			if strings.HasPrefix(strings.ToLower(attr.Key), "on") {
				drop = append(drop, attr.Key)
			}
		}
		for _, name := range urlAttrs {
			if v, ok := sel.Attr(name); ok && isDangerousURL(v) {
				drop = append(drop, name)
			}
		}
		for _, name := range drop {
			sel.RemoveAttr(name)
		}
	})

	out, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("failed to serialize html: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func isDangerousURL(v string) bool {
	v = strings.ToLower(strings.Join(strings.Fields(v), ""))
	return strings.HasPrefix(v, "javascript:") || strings.HasPrefix(v, "vbscript:") ||
		(strings.HasPrefix(v, "data:") && !strings.HasPrefix(v, "data:image/"))
}

// PlainText returns the visible text of an HTML fragment, one block per line
func PlainText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	var lines []string
	doc.Find("body").Children().Each(func(_ int, sel *goquery.Selection) {
		if goquery.NodeName(sel) == "ul" || goquery.NodeName(sel) == "ol" {
			sel.Find("li").Each(func(_ int, li *goquery.Selection) {
				lines = append(lines, "• "+strings.TrimSpace(li.Text()))
			})
			return
		}
		if text := strings.TrimSpace(sel.Text()); text != "" {
			lines = append(lines, text)
		}
	})
	if len(lines) == 0 {
		return strings.TrimSpace(doc.Text())
	}
	return strings.Join(lines, "\n")
}
