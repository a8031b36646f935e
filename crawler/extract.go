package crawler

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// skipText lists elements whose contents are never rendered as text.
var skipText = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// extractPage returns the addresses visible on a page plus every href it
// links to. Non-HTML text bodies are scanned as-is and yield no links.
func extractPage(p *page) (emails, links []string) {
	if p == nil || len(p.body) == 0 {
		return nil, nil
	}
	if strings.HasPrefix(p.contentType, "text/plain") {
		return emailPattern.FindAllString(string(p.body), -1), nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.body))
	if err != nil {
		return emailPattern.FindAllString(string(p.body), -1), nil
	}

	var text strings.Builder
	for _, n := range doc.Nodes {
		visibleText(n, &text)
	}
	emails = emailPattern.FindAllString(text.String(), -1)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		if addr, ok := mailtoAddress(href); ok {
			emails = append(emails, addr)
			return
		}
		links = append(links, href)
	})
	return emails, links
}

// visibleText appends the text content of n, skipping non-rendered elements.
func visibleText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		b.WriteByte(' ')
		return
	case html.ElementNode:
		if skipText[n.Data] {
			return
		}
	case html.CommentNode:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		visibleText(c, b)
	}
}

func mailtoAddress(href string) (string, bool) {
	if len(href) < 7 || !strings.EqualFold(href[:7], "mailto:") {
		return "", false
	}
	addr := href[7:]
	if i := strings.IndexByte(addr, '?'); i >= 0 {
		addr = addr[:i]
	}
	if unescaped, err := url.PathUnescape(addr); err == nil {
		addr = unescaped
	}
	// mailto:a@x.com,b@x.com names several recipients; keep the first.
	if i := strings.IndexByte(addr, ','); i >= 0 {
		addr = addr[:i]
	}
	addr = strings.TrimSpace(addr)
	if !emailPattern.MatchString(addr) {
		return "", false
	}
	return emailPattern.FindString(addr), true
}
