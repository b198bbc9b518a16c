// Package render turns the roast markup dialect into HTML for the share
// page. The dialect is line-oriented: a line wrapped in 【】 is a heading,
// **spans** are emphasized, blank lines separate paragraphs. Model output
// defines no escaping rules, so everything is HTML-escaped first and the
// final document passes through a sanitizer policy.
package render

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	headingPattern = regexp.MustCompile(`^【(.+?)】$`)
	boldPattern    = regexp.MustCompile(`\*\*([^*]+)\*\*`)
)

type Renderer struct {
	policy *bluemonday.Policy
}

func NewRenderer() *Renderer {
	policy := bluemonday.NewPolicy()
	policy.AllowElements("h3", "p", "strong", "br", "article")
	return &Renderer{policy: policy}
}

// RoastHTML renders roast text to a sanitized HTML fragment.
func (r *Renderer) RoastHTML(roast string) string {
	var sb strings.Builder
	sb.WriteString("<article>")

	for _, block := range strings.Split(roast, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		lines := strings.Split(block, "\n")
		var paragraph []string
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			if match := headingPattern.FindStringSubmatch(line); match != nil {
				flushParagraph(&sb, &paragraph)
				sb.WriteString("<h3>")
				sb.WriteString(renderInline(match[1]))
				sb.WriteString("</h3>")
				continue
			}

			paragraph = append(paragraph, renderInline(line))
		}
		flushParagraph(&sb, &paragraph)
	}

	sb.WriteString("</article>")
	return r.policy.Sanitize(sb.String())
}

// SharePage wraps the rendered roast in a minimal standalone HTML document.
func (r *Renderer) SharePage(nickname, roastHTML string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s 的吐槽</title>
</head>
<body>
<h1>%s</h1>
%s
</body>
</html>`, html.EscapeString(nickname), html.EscapeString(nickname), roastHTML)
}

func flushParagraph(sb *strings.Builder, paragraph *[]string) {
	if len(*paragraph) == 0 {
		return
	}
	sb.WriteString("<p>")
	sb.WriteString(strings.Join(*paragraph, "<br>"))
	sb.WriteString("</p>")
	*paragraph = (*paragraph)[:0]
}

// renderInline escapes the line and then applies the bold rule. Literal
// asterisks in model output are indistinguishable from markup; they render
// as emphasis, same as the original client did.
func renderInline(line string) string {
	escaped := html.EscapeString(line)
	return boldPattern.ReplaceAllString(escaped, "<strong>$1</strong>")
}
