package preview

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/portholelabs/porthole/internal/types"
)

// Link is an outgoing link discovered on a fetched page.
type Link struct {
	URL      string `json:"url"`
	Anchor   string `json:"anchor,omitempty"`
	External bool   `json:"external"`
	NoFollow bool   `json:"nofollow"`
}

// Links extracts all outgoing links from a snapshot. Relative hrefs
// resolve against the page's source URL, not FinalURL, which points at
// the relay for relayed fetches.
func Links(snap *types.Snapshot) ([]Link, error) {
	doc, err := snap.Document()
	if err != nil {
		return nil, err
	}

	base, _ := url.Parse(snap.SourceURL)

	var links []Link

	doc.Find("a[href]").Each(func(i int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return
		}

		parsed, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := parsed
		if base != nil {
			resolved = base.ResolveReference(parsed)
		}

		rel, _ := sel.Attr("rel")

		links = append(links, Link{
			URL:      resolved.String(),
			Anchor:   strings.TrimSpace(sel.Text()),
			External: base != nil && resolved.Host != base.Host,
			NoFollow: strings.Contains(rel, "nofollow"),
		})
	})

	return links, nil
}

// Excerpt returns the page's visible text collapsed to single spaces,
// cut to at most limit runes. Script, style and noscript subtrees are
// skipped. A limit of 0 means no cut.
func Excerpt(snap *types.Snapshot, limit int) (string, error) {
	root, err := html.Parse(bytes.NewReader(snap.HTML))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	collectText(root, &sb)

	text := strings.Join(strings.Fields(sb.String()), " ")
	if limit > 0 {
		if runes := []rune(text); len(runes) > limit {
			text = strings.TrimSpace(string(runes[:limit])) + "..."
		}
	}
	return text, nil
}

// collectText walks the node tree appending text node contents.
func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		}
	}
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}
