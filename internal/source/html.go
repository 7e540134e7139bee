package source

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var blockTags = map[string]struct{}{
	"br": {}, "p": {}, "div": {}, "li": {}, "tr": {}, "table": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
}

// htmlText flattens an HTML receipt into plain text, inserting line breaks at
// block boundaries so the line-oriented extractor sees one item per line.
func htmlText(content []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", err
	}
	doc.Find("script,style").Remove()

	var sb strings.Builder
	doc.Selection.Each(func(_ int, sel *goquery.Selection) {
		for _, node := range sel.Nodes {
			writeNodeText(node, &sb)
		}
	})
	return sb.String(), nil
}

func writeNodeText(node *html.Node, sb *strings.Builder) {
	if node.Type == html.TextNode {
		if text := strings.TrimSpace(node.Data); text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
		return
	}
	if node.Type == html.ElementNode {
		if _, isBlock := blockTags[node.Data]; isBlock {
			sb.WriteString("\n")
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		writeNodeText(child, sb)
	}
	if node.Type == html.ElementNode {
		if _, isBlock := blockTags[node.Data]; isBlock {
			sb.WriteString("\n")
		}
	}
}
