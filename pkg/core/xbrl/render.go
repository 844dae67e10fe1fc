package xbrl

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// CellSeparator joins table cells on one line.
const CellSeparator = " | "

var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Br: true, atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Figcaption: true, atom.Figure: true, atom.Footer: true, atom.H1: true,
	atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Header: true, atom.Hr: true, atom.Li: true, atom.Ol: true, atom.P: true,
	atom.Pre: true, atom.Section: true, atom.Table: true, atom.Tr: true, atom.Ul: true,
}

// RenderHTML converts an HTML fragment to trimmed, non-empty lines. Each
// table row becomes one line of cells joined by CellSeparator; other
// content breaks lines at block elements.
func RenderHTML(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return collapse(fragment)
	}
	doc.Find("script, style").Remove()
	flattenTables(doc)

	var w lineWriter
	for _, n := range doc.Nodes {
		w.walk(n)
	}
	w.flush()
	return strings.Join(w.lines, "\n")
}

// flattenTables replaces each table by one paragraph per row. Tables are
// handled innermost first so a nested table ends up as text inside its
// enclosing cell.
func flattenTables(doc *goquery.Document) {
	tables := doc.Find("table")
	for i := tables.Length() - 1; i >= 0; i-- {
		table := tables.Eq(i)

		var rows []string
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var cells []string
			tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, inlineText(cell))
			})
			if len(cells) > 0 {
				rows = append(rows, strings.Join(cells, CellSeparator))
			}
		})
		if len(rows) == 0 {
			if text := inlineText(table); text != "" {
				rows = append(rows, text)
			}
		}

		block := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
		for _, row := range rows {
			p := &html.Node{Type: html.ElementNode, Data: "p", DataAtom: atom.P}
			p.AppendChild(&html.Node{Type: html.TextNode, Data: row})
			block.AppendChild(p)
		}
		table.ReplaceWithNodes(block)
	}
}

// inlineText renders a selection on one line; block boundaries inside it
// become single spaces.
func inlineText(sel *goquery.Selection) string {
	var w lineWriter
	for _, n := range sel.Nodes {
		w.walk(n)
	}
	w.flush()
	return strings.Join(w.lines, " ")
}

type lineWriter struct {
	lines []string
	cur   strings.Builder
}

func (w *lineWriter) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.CommentNode:
		return
	}
	block := n.Type == html.ElementNode && blockElements[n.DataAtom]
	if block {
		w.flush()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
	if block {
		w.flush()
	}
}

func (w *lineWriter) text(s string) {
	body := collapse(s)
	if body == "" {
		if s != "" {
			w.space()
		}
		return
	}
	if isSpace(s[0]) {
		w.space()
	}
	w.cur.WriteString(body)
	if isSpace(s[len(s)-1]) {
		w.space()
	}
}

func (w *lineWriter) space() {
	if n := w.cur.Len(); n > 0 && w.cur.String()[n-1] != ' ' {
		w.cur.WriteByte(' ')
	}
}

func (w *lineWriter) flush() {
	line := strings.TrimSpace(w.cur.String())
	w.cur.Reset()
	if line != "" {
		w.lines = append(w.lines, line)
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
