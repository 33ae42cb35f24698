package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func parse(page string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(page))
}

// nodeText joins the trimmed, non-empty text nodes under n with sep.
// Script and style bodies are ignored.
func nodeText(n *html.Node, sep string) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		switch node.Type {
		case html.TextNode:
			if text := strings.TrimSpace(node.Data); text != "" {
				parts = append(parts, text)
			}
			return
		case html.ElementNode:
			switch node.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.Join(parts, sep)
}

// selectionText applies nodeText to the first node of s.
func selectionText(s *goquery.Selection, sep string) string {
	if s.Length() == 0 {
		return ""
	}
	return nodeText(s.Get(0), sep)
}

// nextElement returns the first element named tag that follows n in
// document order, or nil.
func nextElement(n *html.Node, tag string) *html.Node {
	for node := following(n, true); node != nil; node = following(node, false) {
		if node.Type == html.ElementNode && node.Data == tag {
			return node
		}
	}
	return nil
}

// following steps through the document in order. When skipChildren is set
// the subtree of n is not entered.
func following(n *html.Node, skipChildren bool) *html.Node {
	if !skipChildren && n.FirstChild != nil {
		return n.FirstChild
	}
	for node := n; node != nil; node = node.Parent {
		if node.NextSibling != nil {
			return node.NextSibling
		}
	}
	return nil
}
