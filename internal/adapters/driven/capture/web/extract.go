package web

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// findTitle returns the text of the first <title>.
func findTitle(doc *html.Node) string {
	n := findFirst(doc, atom.Title)
	if n == nil {
		return ""
	}
	return strings.TrimSpace(collectText(n))
}

// findArticle returns the node holding the main content: the first
// <article>, else the first <main>, else <body>, else the document.
func findArticle(doc *html.Node) *html.Node {
	for _, a := range []atom.Atom{atom.Article, atom.Main, atom.Body} {
		if n := findFirst(doc, a); n != nil {
			return n
		}
	}
	return doc
}

// findFirst returns the first element with the given atom in document order.
func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

// baseURL applies a <base href> to the page URL.
func baseURL(doc *html.Node, page *url.URL) *url.URL {
	base := findFirst(doc, atom.Base)
	if base == nil {
		return page
	}
	href := attr(base, "href")
	if href == "" {
		return page
	}
	u, err := page.Parse(href)
	if err != nil {
		return page
	}
	return u
}

// resolveImages rewrites every <img src> under root to an absolute URL and
// returns the distinct http(s) image URLs in document order.
func resolveImages(root *html.Node, base *url.URL) []string {
	var urls []string
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Img {
			for i := range n.Attr {
				if n.Attr[i].Key != "src" {
					continue
				}
				u, err := base.Parse(strings.TrimSpace(n.Attr[i].Val))
				if err != nil {
					break
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					break
				}
				u.Fragment = ""
				abs := u.String()
				n.Attr[i].Val = abs
				if !seen[abs] {
					seen[abs] = true
					urls = append(urls, abs)
				}
				break
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	return urls
}

// collectText returns the text content of a subtree.
func collectText(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return sb.String()
}

// renderNode serialises an HTML node subtree back to a string.
func renderNode(n *html.Node) string {
	var buf bytes.Buffer
	html.Render(&buf, n) //nolint:errcheck
	return buf.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
