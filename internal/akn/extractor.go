// Package akn extracts plain body text from Akoma Ntoso judgment XML.
package akn

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/JakeFAU/caselaw-crawler/internal/crawler"
)

// Namespace is the Akoma Ntoso 3.0 namespace, used when the document
// declares no default namespace of its own.
const Namespace = "http://docs.oasis-open.org/legaldocml/ns/akn/3.0"

// bodyQueries are tried in order; the first one matching any node wins.
var bodyQueries = []string{
	"//akn:body",
	"//body",
	"//akn:judgment/akn:body",
	"//akn:act/akn:body",
}

// ExtractText parses data leniently and returns the newline-joined,
// trimmed text nodes under the judgment body. It returns "" when no body is
// present and an error wrapping crawler.ErrParseFailure when data is not
// XML at all.
func ExtractText(data []byte) (string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return "", fmt.Errorf("%w: empty document", crawler.ErrParseFailure)
	}
	doc, err := xmlquery.ParseWithOptions(bytes.NewReader(data), xmlquery.ParserOptions{
		Decoder: &xmlquery.DecoderOptions{
			Strict: false,
			Entity: xml.HTMLEntity,
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", crawler.ErrParseFailure, err)
	}

	namespaces := map[string]string{"akn": documentNamespace(doc)}
	for _, query := range bodyQueries {
		expr, err := xpath.CompileWithNS(query, namespaces)
		if err != nil {
			return "", fmt.Errorf("compile %q: %w", query, err)
		}
		nodes := xmlquery.QuerySelectorAll(doc, expr)
		if len(nodes) == 0 {
			continue
		}
		var parts []string
		for _, node := range nodes {
			parts = collectText(node, parts)
		}
		return strings.Join(parts, "\n"), nil
	}
	return "", nil
}

func documentNamespace(doc *xmlquery.Node) string {
	for node := doc.FirstChild; node != nil; node = node.NextSibling {
		if node.Type == xmlquery.ElementNode {
			if node.NamespaceURI != "" {
				return node.NamespaceURI
			}
			break
		}
	}
	return Namespace
}

func collectText(node *xmlquery.Node, parts []string) []string {
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case xmlquery.TextNode, xmlquery.CharDataNode:
			if text := strings.TrimSpace(child.Data); text != "" {
				parts = append(parts, text)
			}
		case xmlquery.ElementNode:
			parts = collectText(child, parts)
		}
	}
	return parts
}
