// Package parser extracts normalized decision records from DILA judicial XML documents.
package parser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"

	"cassation-api/internal/domain"
)

// Element paths of the CASS/JURI document format. A field path is matched as
// parent/child anywhere in the document; the first match wins.
var (
	idPath        = [2]string{"META_COMMUN", "ID"}
	titlePath     = [2]string{"META_JURI", "TITRE"}
	formationPath = [2]string{"META_JURI_JUDI", "FORMATION"}
)

const (
	contentElement   = "CONTENU"
	lineBreakElement = "br"
)

// Parse reads one decision document. Missing metadata or content yields empty
// fields; only malformed XML is an error.
func Parse(raw []byte) (domain.Decision, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.CharsetReader = charset.NewReaderLabel
	dec.Entity = xml.HTMLEntity

	var (
		stack   []string
		sawRoot bool
		fields  = []*field{{path: idPath}, {path: titlePath}, {path: formationPath}}
		content contentCapture
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Decision{}, fmt.Errorf("parse decision xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			name := t.Name.Local
			parent := ""
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			}
			stack = append(stack, name)
			sawRoot = true
			depth := len(stack)

			for _, f := range fields {
				f.start(parent, name, depth)
			}
			content.start(name, depth)

		case xml.EndElement:
			depth := len(stack)
			for _, f := range fields {
				f.end(depth)
			}
			content.end(depth)
			stack = stack[:len(stack)-1]

		case xml.CharData:
			depth := len(stack)
			for _, f := range fields {
				f.text(t, depth)
			}
			content.text(t)
		}
	}

	if !sawRoot {
		return domain.Decision{}, errors.New("parse decision xml: no root element")
	}
	if len(stack) > 0 {
		return domain.Decision{}, fmt.Errorf("parse decision xml: unclosed element %q", stack[len(stack)-1])
	}

	return domain.Decision{
		ID:        fields[0].value.String(),
		Title:     fields[1].value.String(),
		Formation: fields[2].value.String(),
		Content:   strings.TrimSpace(content.value.String()),
	}, nil
}

// field captures the leading text of the first element matching path.
type field struct {
	path  [2]string
	depth int
	// capturing stops at the first child element, mirroring an element's own text
	capturing bool
	done      bool
	value     strings.Builder
}

func (f *field) start(parent, name string, depth int) {
	if f.done {
		return
	}
	if f.capturing {
		f.capturing = false
		return
	}
	if f.depth == 0 && parent == f.path[0] && name == f.path[1] {
		f.depth = depth
		f.capturing = true
	}
}

func (f *field) text(data xml.CharData, depth int) {
	if f.capturing && depth == f.depth {
		f.value.Write(data)
	}
}

func (f *field) end(depth int) {
	if f.depth != 0 && depth == f.depth {
		f.capturing = false
		f.done = true
	}
}

// contentCapture flattens the first content subtree into text, turning line
// break elements into newlines.
type contentCapture struct {
	depth int
	done  bool
	value strings.Builder
}

func (c *contentCapture) inside() bool {
	return c.depth != 0 && !c.done
}

func (c *contentCapture) start(name string, depth int) {
	if c.done {
		return
	}
	if c.depth == 0 {
		if name == contentElement {
			c.depth = depth
		}
		return
	}
	if name == lineBreakElement {
		c.value.WriteByte('\n')
	}
}

func (c *contentCapture) text(data xml.CharData) {
	if c.inside() {
		c.value.Write(data)
	}
}

func (c *contentCapture) end(depth int) {
	if c.inside() && depth == c.depth {
		c.done = true
	}
}
