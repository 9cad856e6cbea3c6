// Package page edits whole HTML documents: it injects preload hints into the
// head and rewrites CDN images into responsive markup.
package page

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ds124wfegd/WB_L3/imgpipe/internal/entity"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	ErrNoDocument  = errors.New("no document to write to")
	ErrHeadMissing = errors.New("document has no <head>")
)

// Document is a parsed HTML page. It implements preload.HintSink.
type Document struct {
	mu   sync.Mutex
	root *html.Node
	head *html.Node
}

func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return NewDocument(root), nil
}

func ParseString(s string) (*Document, error) {
	return Parse(bytes.NewBufferString(s))
}

// NewDocument wraps an already parsed tree. Fragments without a head are
// accepted, but hints cannot be inserted into them.
func NewDocument(root *html.Node) *Document {
	return &Document{root: root, head: findElement(root, atom.Head)}
}

func (d *Document) Root() *html.Node { return d.root }

// InsertPreloadHint appends a <link rel="preload"> for entry to the head.
func (d *Document) InsertPreloadHint(entry entity.PreloadEntry) error {
	if d == nil || d.root == nil {
		return ErrNoDocument
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.head == nil {
		return ErrHeadMissing
	}

	d.head.AppendChild(linkNode(entry))
	return nil
}

// RemovePreloadHint removes every preload link whose href is src.
func (d *Document) RemovePreloadHint(src string) bool {
	if d == nil || d.head == nil {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	removed := false
	for c := d.head.FirstChild; c != nil; {
		next := c.NextSibling
		if isPreloadLink(c) && attr(c, "href") == src {
			d.head.RemoveChild(c)
			removed = true
		}
		c = next
	}
	return removed
}

// PreloadHrefs lists the hrefs of the preload links currently in the head.
func (d *Document) PreloadHrefs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []string
	if d.head == nil {
		return out
	}
	for c := d.head.FirstChild; c != nil; c = c.NextSibling {
		if isPreloadLink(c) {
			out = append(out, attr(c, "href"))
		}
	}
	return out
}

func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return html.Render(w, d.root)
}

func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

func linkNode(entry entity.PreloadEntry) *html.Node {
	as := entry.As
	if as == "" {
		as = "image"
	}

	n := &html.Node{
		Type:     html.ElementNode,
		Data:     "link",
		DataAtom: atom.Link,
		Attr: []html.Attribute{
			{Key: "rel", Val: "preload"},
			{Key: "href", Val: entry.Src},
			{Key: "as", Val: as},
		},
	}

	optional := []html.Attribute{
		{Key: "type", Val: entry.Type},
		{Key: "fetchpriority", Val: string(entry.FetchPriority)},
		{Key: "media", Val: entry.Media},
		{Key: "imagesrcset", Val: entry.ImageSrcSet},
		{Key: "imagesizes", Val: entry.ImageSizes},
		{Key: "crossorigin", Val: entry.CrossOrigin},
	}
	for _, a := range optional {
		if a.Val != "" {
			n.Attr = append(n.Attr, a)
		}
	}
	return n
}

func isPreloadLink(n *html.Node) bool {
	return n.Type == html.ElementNode && n.DataAtom == atom.Link && attr(n, "rel") == "preload"
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
