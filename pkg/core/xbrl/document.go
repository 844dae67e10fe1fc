// Package xbrl locates text blocks in an XBRL instance and renders their
// escaped HTML to plain lines.
//
// Parsing is lenient: the decoder runs in non-strict mode and a syntax error
// stops the walk but keeps every element read so far, so a damaged filing
// still yields the sections that precede the damage.
package xbrl

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
)

// Element is one node of the parsed instance. Inner holds the raw bytes
// between the start and end tags.
type Element struct {
	Name        xml.Name
	ID          string
	ContinuedAt string
	Children    []*Element
	Inner       []byte
}

// Document is a parsed instance with an id index.
type Document struct {
	Root *Element
	// Err is the syntax error that ended parsing early, if any.
	Err error

	ids  map[string]*Element
	tags map[string]bool
}

// ParseFile reads and parses an instance document.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read xbrl %s: %w", path, err)
	}
	return Parse(data), nil
}

// Parse builds the element tree. It never fails; see Document.Err.
func Parse(data []byte) *Document {
	doc := &Document{ids: make(map[string]*Element), tags: make(map[string]bool)}

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	type open struct {
		el    *Element
		start int64
	}
	var stack []open

	for {
		before := dec.InputOffset()
		tok, err := dec.Token()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				doc.Err = err
			}
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{Name: t.Name}
			for _, a := range t.Attr {
				switch a.Name.Local {
				case "id":
					el.ID = a.Value
				case "continuedAt":
					el.ContinuedAt = a.Value
				}
			}
			if el.ID != "" {
				doc.ids[el.ID] = el
			}
			doc.tags[el.Name.Local] = true
			if len(stack) == 0 {
				if doc.Root == nil {
					doc.Root = el
				}
			} else {
				parent := stack[len(stack)-1].el
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, open{el: el, start: dec.InputOffset()})
		case xml.EndElement:
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if top.start <= before && before <= int64(len(data)) {
				top.el.Inner = data[top.start:before]
			}
		}
	}

	// elements left open by a truncated file keep what was read
	for _, o := range stack {
		if o.start <= int64(len(data)) {
			o.el.Inner = data[o.start:]
		}
	}
	return doc
}

// HasTag reports whether any element has the local name.
func (d *Document) HasTag(local string) bool { return d.tags[local] }

// ByID returns the element with the id attribute.
func (d *Document) ByID(id string) (*Element, bool) {
	el, ok := d.ids[id]
	return el, ok
}

// Walk visits elements depth-first in document order until fn returns false.
func (d *Document) Walk(fn func(*Element) bool) {
	if d.Root == nil {
		return
	}
	var visit func(*Element) bool
	visit = func(el *Element) bool {
		if !fn(el) {
			return false
		}
		for _, c := range el.Children {
			if !visit(c) {
				return false
			}
		}
		return true
	}
	visit(d.Root)
}

// Find returns the elements with a local name in document order.
func (d *Document) Find(local string) []*Element {
	var out []*Element
	d.Walk(func(el *Element) bool {
		if el.Name.Local == local {
			out = append(out, el)
		}
		return true
	})
	return out
}
