package domain

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	outagesWrapperID = "unplanned-outages-wrapper"
	outagesTableID   = "unplanned-outages-table"
)

// parseDocument parses page into a node tree. Returns nil if the page cannot
// be read, which callers treat like a page with no outages region.
func parseDocument(page string) *html.Node {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil
	}
	return doc
}

// outagesTables returns every outages table inside an outages wrapper, in
// document order.
func outagesTables(doc *html.Node) []*html.Node {
	if doc == nil {
		return nil
	}
	wrappers := descendants([]*html.Node{doc}, elementWithID(atom.Div, outagesWrapperID))
	return descendants(wrappers, elementWithID(atom.Table, outagesTableID))
}

// outageRows returns every row of every body of the outages tables.
func outageRows(doc *html.Node) []*html.Node {
	bodies := descendants(outagesTables(doc), element(atom.Tbody))
	return descendants(bodies, element(atom.Tr))
}

// captionText concatenates the text of every caption of the outages tables.
func captionText(doc *html.Node) string {
	var sb strings.Builder
	for _, c := range descendants(outagesTables(doc), element(atom.Caption)) {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}

// cells returns the data cells of a row.
func cells(row *html.Node) []*html.Node {
	return descendants([]*html.Node{row}, element(atom.Td))
}

// cellWithClass returns the first cell of row whose class attribute is
// exactly class, or nil if there is none.
func cellWithClass(row *html.Node, class string) *html.Node {
	for _, td := range cells(row) {
		if v, ok := attr(td, "class"); ok && v == class {
			return td
		}
	}
	return nil
}

// cellText returns the text of the first cell with the given class, or ""
// when the row has no such cell.
func cellText(row *html.Node, class string) string {
	td := cellWithClass(row, class)
	if td == nil {
		return ""
	}
	return textContent(td)
}

type matcher func(*html.Node) bool

func element(a atom.Atom) matcher {
	return func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == a
	}
}

func elementWithID(a atom.Atom, id string) matcher {
	return func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.DataAtom != a {
			return false
		}
		v, ok := attr(n, "id")
		return ok && v == id
	}
}

// descendants collects the nodes below any of roots that satisfy match, in
// document order and without duplicates.
func descendants(roots []*html.Node, match matcher) []*html.Node {
	var out []*html.Node
	seen := make(map[*html.Node]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if match(c) && !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
			walk(c)
		}
	}
	for _, r := range roots {
		walk(r)
	}
	return out
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// textContent concatenates every text node below n.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
