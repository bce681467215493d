package browser

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"

	"golang.org/x/net/html"

	"github.com/matzehuels/diaryprint/pkg/plan"
)

// Marker attributes recognized in HTML reports.
const (
	// AttrSection marks a labeled region; its value is the protection class
	// ("protected", "trailing" or "none").
	AttrSection = "data-export-section"
	// AttrLabel optionally names a section for logs and plans.
	AttrLabel = "data-export-label"
	// AttrIgnore removes the element and its subtree before capture.
	AttrIgnore = "data-export-ignore"
)

// Marker is a section marker found in an HTML report.
type Marker struct {
	Label string
	Class plan.Class
}

// Prefilter parses an HTML report, removes every element carrying
// data-export-ignore and returns the re-serialized document together with
// the section markers that remain, in document order. When offline is set,
// scripts, frames, embedded objects, external links and event handler
// attributes are removed as well.
func Prefilter(r io.Reader, offline bool) ([]byte, []Marker, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, nil, fmt.Errorf("parse html: %w", err)
	}

	removeIgnored(doc)
	if offline {
		removeActive(doc)
	}

	var markers []Marker
	var walkErr error
	walk(doc, func(n *html.Node) {
		v, ok := attr(n, AttrSection)
		if !ok || walkErr != nil {
			return
		}
		class, err := plan.ParseClass(strings.TrimSpace(v))
		if err != nil {
			walkErr = fmt.Errorf("<%s %s=%q>: %w", n.Data, AttrSection, v, err)
			return
		}
		label, _ := attr(n, AttrLabel)
		if label == "" {
			label, _ = attr(n, "id")
		}
		markers = append(markers, Marker{Label: label, Class: class})
	})
	if walkErr != nil {
		return nil, nil, walkErr
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), markers, nil
}

func removeIgnored(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if _, ok := attr(c, AttrIgnore); ok && c.Type == html.ElementNode {
			n.RemoveChild(c)
		} else {
			removeIgnored(c)
		}
		c = next
	}
}

// activeElements load or run content outside the report.
var activeElements = map[string]bool{
	"script": true,
	"iframe": true,
	"frame":  true,
	"object": true,
	"embed":  true,
	"link":   true,
	"base":   true,
	"portal": true,
}

func removeActive(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && (activeElements[c.Data] || isRefresh(c)) {
			n.RemoveChild(c)
		} else {
			if c.Type == html.ElementNode {
				c.Attr = slices.DeleteFunc(c.Attr, activeAttr)
			}
			removeActive(c)
		}
		c = next
	}
}

func isRefresh(n *html.Node) bool {
	if n.Data != "meta" {
		return false
	}
	v, _ := attr(n, "http-equiv")
	return strings.EqualFold(strings.TrimSpace(v), "refresh")
}

func activeAttr(a html.Attribute) bool {
	key := strings.ToLower(a.Key)
	if strings.HasPrefix(key, "on") || key == "srcdoc" {
		return true
	}
	switch key {
	case "href", "src", "action", "formaction", "xlink:href":
		v := strings.ToLower(strings.TrimSpace(a.Val))
		return strings.HasPrefix(v, "javascript:")
	}
	return false
}

func walk(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
