package render

import (
	"fmt"
	"net/url"

	"golang.org/x/net/html"
)

// HTML renders standalone HTML pages.
type HTML struct{}

var _ Renderer = HTML{}

func (HTML) Bold(text string) string   { return "<b>" + text + "</b>" }
func (HTML) Italic(text string) string { return "<i>" + text + "</i>" }

func (h HTML) Link(page, anchor, text string) string {
	href := url.PathEscape(page) + h.FileExtension()
	if anchor != "" {
		href += "#" + url.PathEscape(anchor)
	}
	return `<a href="` + html.EscapeString(href) + `">` + text + "</a>"
}

func (HTML) Anchor(target string) string {
	return `<a name="` + html.EscapeString(target) + `"></a>`
}

func (HTML) Indent(text string, level int) string {
	return fmt.Sprintf(`<div style="padding-left: %dem;">`, max(level, 0)*3) + text + "</div>\n"
}

func (HTML) MarginalNote(text string) string {
	return `<font color="green"><i>` + text + "</i></font>"
}

func (HTML) Heading(text string, level int) string {
	level = min(max(level, 1), 6)
	return fmt.Sprintf("<h%d>%s</h%d>", level, text, level)
}

func (HTML) NewLine() string { return "<br>\n" }

func (HTML) Clean(text string) string {
	return html.EscapeString(text)
}

func (HTML) FileExtension() string { return ".html" }

func (HTML) Document(title, body string) string {
	return "<html>\n<head><meta charset=\"utf-8\"><title>" + html.EscapeString(title) +
		"</title></head>\n<body>\n" + body + "\n</body>\n</html>\n"
}
