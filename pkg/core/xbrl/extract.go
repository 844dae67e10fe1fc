package xbrl

import (
	"fmt"
	"html"
	"strings"
)

// Extraction reasons when no text is returned.
const (
	ReasonNoCandidates = "no tag candidates are defined for this section"
	ReasonTagAbsent    = "none of the candidate tags appear in this filing"
)

// Extraction is the outcome of ExtractFirstAvailable. Tag is the matched
// tag when Text is set; otherwise Reason explains the miss.
type Extraction struct {
	Text   string
	Tag    string
	Reason string
}

// Found reports whether text was extracted.
func (e Extraction) Found() bool { return e.Text != "" }

// ExtractFirstAvailable renders every element carrying the first candidate
// tag that occurs in the document. Continuation chains are followed and
// multiple elements are separated by a blank line.
func (d *Document) ExtractFirstAvailable(candidates []string) Extraction {
	if len(candidates) == 0 {
		return Extraction{Reason: ReasonNoCandidates}
	}
	tag := ""
	for _, c := range candidates {
		if d.HasTag(c) {
			tag = c
			break
		}
	}
	if tag == "" {
		return Extraction{Reason: ReasonTagAbsent}
	}

	var texts []string
	for _, el := range d.Find(tag) {
		raw := d.ChainPayload(el)
		if raw == "" {
			continue
		}
		if text := RenderHTML(DecodePayload(raw)); text != "" {
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		return Extraction{Tag: tag, Reason: fmt.Sprintf("%s is present but no text could be extracted", tag)}
	}
	return Extraction{Text: strings.Join(texts, "\n\n"), Tag: tag}
}

// ChainPayload concatenates the raw payload of el and every element reached
// through continuedAt references. A missing target or a revisited id ends
// the chain.
func (d *Document) ChainPayload(el *Element) string {
	var b strings.Builder
	b.Write(el.Inner)

	visited := map[string]bool{el.ID: el.ID != ""}
	next := el.ContinuedAt
	for next != "" && !visited[next] {
		visited[next] = true
		cont, ok := d.ByID(next)
		if !ok {
			break
		}
		b.Write(cont.Inner)
		next = cont.ContinuedAt
	}
	return strings.TrimSpace(b.String())
}

// DecodePayload turns the raw inner text of a text block into HTML. Text
// outside CDATA is XML-escaped HTML that may itself carry entities, so it
// is unescaped twice; CDATA content is literal and unescaped once.
func DecodePayload(raw string) string {
	var b strings.Builder
	for raw != "" {
		start := strings.Index(raw, "<![CDATA[")
		if start < 0 {
			b.WriteString(html.UnescapeString(html.UnescapeString(raw)))
			break
		}
		b.WriteString(html.UnescapeString(html.UnescapeString(raw[:start])))
		rest := raw[start+len("<![CDATA["):]
		end := strings.Index(rest, "]]>")
		if end < 0 {
			b.WriteString(html.UnescapeString(rest))
			break
		}
		b.WriteString(html.UnescapeString(rest[:end]))
		raw = rest[end+len("]]>"):]
	}
	return b.String()
}
