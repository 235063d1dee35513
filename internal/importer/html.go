package importer

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// parseHTML walks Netscape bookmark HTML. Folders are flattened: each <H3>
// folder becomes one group holding only its direct bookmarks.
func parseHTML(content string) []ParsedGroup {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil
	}

	var groups []ParsedGroup
	if root := findFirst(doc, atom.Dl); root != nil {
		groups = walkDL(groups, root, DefaultGroupName, 0)
	}
	if len(groups) > 0 {
		return groups
	}

	// No folder structure: take every http(s) anchor in document order.
	var bookmarks []ParsedBookmark
	forEach(doc, atom.A, func(a *html.Node) {
		href := strings.TrimSpace(getAttr(a, "href"))
		if !strings.HasPrefix(href, "http") {
			return
		}
		title, description := splitTitle(anchorText(a, href))
		bookmarks = append(bookmarks, ParsedBookmark{
			Title:       title,
			URL:         href,
			Icon:        getAttr(a, "icon"),
			Description: description,
		})
	})
	return appendGroup(nil, DefaultGroupName, bookmarks)
}

// walkDL collects the bookmarks of one <DL>. Subfolders are walked first so
// a folder's group is appended after the groups nested inside it.
func walkDL(groups []ParsedGroup, dl *html.Node, name string, depth int) []ParsedGroup {
	var bookmarks []ParsedBookmark
	children := elementChildren(dl)

	for i, child := range children {
		if child.DataAtom != atom.Dt {
			continue
		}
		var next *html.Node
		if i+1 < len(children) {
			next = children[i+1]
		}

		if h3 := directChild(child, atom.H3); h3 != nil {
			folder := textContent(h3)
			if folder == "" {
				folder = UnnamedGroupName
			}
			if sub := folderList(child, next); sub != nil && depth < maxDepth {
				groups = walkDL(groups, sub, folder, depth+1)
			}
			continue
		}

		a := directChild(child, atom.A)
		if a == nil {
			continue
		}
		href := strings.TrimSpace(getAttr(a, "href"))
		if href == "" {
			continue
		}

		b := ParsedBookmark{URL: href, Icon: getAttr(a, "icon")}
		text := anchorText(a, href)
		if next != nil && next.DataAtom == atom.Dd {
			// An explicit description keeps the link text as the title.
			b.Title = text
			b.Description = textContent(next)
		} else {
			b.Title, b.Description = splitTitle(text)
		}
		bookmarks = append(bookmarks, b)
	}

	return appendGroup(groups, name, bookmarks)
}

// folderList finds the <DL> holding a folder's contents. Parsers put it
// inside the <DT>, after it, or inside a folder description <DD>.
func folderList(dt, next *html.Node) *html.Node {
	if dl := directChild(dt, atom.Dl); dl != nil {
		return dl
	}
	if next == nil {
		return nil
	}
	switch next.DataAtom {
	case atom.Dl:
		return next
	case atom.Dd:
		return directChild(next, atom.Dl)
	}
	return nil
}

func anchorText(a *html.Node, href string) string {
	if text := textContent(a); text != "" {
		return text
	}
	return href
}

func elementChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

func directChild(n *html.Node, a atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
	}
	return nil
}

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

func forEach(n *html.Node, a atom.Atom, fn func(*html.Node)) {
	if n.Type == html.ElementNode && n.DataAtom == a {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		forEach(c, a, fn)
	}
}

// textContent returns the trimmed text of a node and its descendants.
func textContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// getAttr returns the value of an attribute, case-insensitive.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if strings.EqualFold(attr.Key, key) {
			return attr.Val
		}
	}
	return ""
}
