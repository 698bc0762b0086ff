package recommend

import (
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const maxFullText = 2000

type Field struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Description is what could be read from an opportunity page. Err is set
// when the page could not be fetched.
type Description struct {
	Fields   []Field `json:"fields,omitempty"`
	FullText string  `json:"full_text,omitempty"`
	Err      string  `json:"error,omitempty"`
}

func (d Description) Empty() bool {
	return len(d.Fields) == 0 && d.FullText == ""
}

type fieldRule struct {
	key   string
	label string
	terms []string
}

var fieldRules = []fieldRule{
	{key: "available_times", label: "Available Times", terms: []string{"available times"}},
	{key: "time_commitment", label: "Time Commitment", terms: []string{"time commitment"}},
	{key: "recurrence", label: "Recurrence", terms: []string{"recurrence", "recurring"}},
	{key: "cost", label: "Cost", terms: []string{"cost", "fee"}},
	{key: "cause_areas", label: "Cause Areas", terms: []string{"cause areas", "cause"}},
	{key: "benefits", label: "Benefits", terms: []string{"benefits"}},
	{key: "good_for", label: "Good For", terms: []string{"good for"}},
}

var headingAtoms = map[atom.Atom]bool{
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Strong: true, atom.B: true,
}

var contentAtoms = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Ul: true, atom.Ol: true,
}

// ExtractDescription reads labelled sections from an opportunity page and
// falls back to the main content text.
func ExtractDescription(r io.Reader) (Description, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Description{}, err
	}

	found := make(map[string]string)
	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode || !headingAtoms[n.DataAtom] {
			return
		}
		heading := strings.ToLower(textOf(n, " "))
		for _, rule := range fieldRules {
			if !matchesAny(heading, rule.terms) {
				continue
			}
			if next := nextContentSibling(n); next != nil {
				if value := textOf(next, ""); value != "" {
					found[rule.key] = value
				}
			}
		}
	})

	var d Description
	for _, rule := range fieldRules {
		if v, ok := found[rule.key]; ok {
			d.Fields = append(d.Fields, Field{Key: rule.key, Label: rule.label, Value: v})
		}
	}
	if len(d.Fields) > 0 {
		return d, nil
	}

	if main := findMainContent(doc); main != nil {
		d.FullText = truncate(textOf(main, " "), maxFullText)
	}
	return d, nil
}

func matchesAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func nextContentSibling(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode && contentAtoms[s.DataAtom] {
			return s
		}
	}
	return nil
}

func findMainContent(doc *html.Node) *html.Node {
	var main, article, div *html.Node
	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		switch n.DataAtom {
		case atom.Main:
			if main == nil {
				main = n
			}
		case atom.Article:
			if article == nil {
				article = n
			}
		case atom.Div:
			if div == nil && hasContentClass(n) {
				div = n
			}
		}
	})
	switch {
	case main != nil:
		return main
	case article != nil:
		return article
	default:
		return div
	}
}

func hasContentClass(n *html.Node) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		class := strings.ToLower(a.Val)
		return strings.Contains(class, "content") || strings.Contains(class, "description")
	}
	return false
}

// textOf joins the node's text fragments with sep, skipping scripts and styles.
func textOf(n *html.Node, sep string) string {
	var parts []string
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.Join(parts, sep)
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
