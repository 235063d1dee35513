package importer

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
)

var (
	urlKeys         = []string{"url", "link", "href", "website", "uri"}
	titleKeys       = []string{"customTitle", "title", "name", "label", "text"}
	descriptionKeys = []string{"customDescription", "description", "desc", "summary", "note", "intro"}
	iconKeys        = []string{"icon", "favicon", "favicon_url", "logo"}

	groupItemKeys  = []string{"bookmarks", "children", "items", "links", "cards"}
	listItemKeys   = []string{"cards", "items", "bookmarks", "children"}
	objectItemKeys = []string{"bookmarks", "children", "items", "links", "data", "list"}
)

const maxDecodeDepth = 512

var errTooDeep = errors.New("importer: json nesting too deep")

// object is a decoded JSON object that remembers the order of its keys.
// Browser exports list their roots and folders in a meaningful order.
type object struct {
	keys   []string
	values map[string]any
}

func (o *object) get(key string) any {
	return o.values[key]
}

// decodeJSON decodes a single JSON document. Objects become *object, arrays
// []any, and scalars keep their encoding/json token types.
func decodeJSON(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	v, err := readValue(dec, 0)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("importer: trailing data after json document")
	}
	return v, nil
}

func readValue(dec *json.Decoder, depth int) (any, error) {
	if depth > maxDecodeDepth {
		return nil, errTooDeep
	}

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := &object{values: make(map[string]any)}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, _ := keyTok.(string)
			val, err := readValue(dec, depth+1)
			if err != nil {
				return nil, err
			}
			if _, seen := obj.values[key]; !seen {
				obj.keys = append(obj.keys, key)
			}
			obj.values[key] = val
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil

	case '[':
		arr := []any{}
		for dec.More() {
			val, err := readValue(dec, depth+1)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	}

	return nil, errors.New("importer: unexpected json delimiter")
}

// truthy reports whether a value counts as set: not null, false, zero or "".
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}

// firstString returns the first non-blank string value among keys, trimmed.
func firstString(o *object, keys ...string) string {
	for _, k := range keys {
		if s, ok := o.get(k).(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// firstArray returns the first set value among keys if it is an array.
func firstArray(o *object, keys ...string) ([]any, bool) {
	for _, k := range keys {
		v := o.get(k)
		if !truthy(v) {
			continue
		}
		arr, ok := v.([]any)
		return arr, ok
	}
	return nil, false
}

func hasAny(o *object, keys ...string) bool {
	for _, k := range keys {
		if truthy(o.get(k)) {
			return true
		}
	}
	return false
}

func toBookmark(v any) (ParsedBookmark, bool) {
	o, ok := v.(*object)
	if !ok {
		return ParsedBookmark{}, false
	}

	url := firstString(o, urlKeys...)
	if url == "" {
		return ParsedBookmark{}, false
	}

	title := firstString(o, titleKeys...)
	if title == "" {
		title = url
	}

	return ParsedBookmark{
		Title:       title,
		URL:         url,
		Icon:        firstString(o, iconKeys...),
		Description: firstString(o, descriptionKeys...),
	}, true
}

func toBookmarks(items []any) []ParsedBookmark {
	var bookmarks []ParsedBookmark
	for _, item := range items {
		if b, ok := toBookmark(item); ok {
			bookmarks = append(bookmarks, b)
		}
	}
	return bookmarks
}

func groupName(o *object) string {
	if name := firstString(o, titleKeys...); name != "" {
		return name
	}
	return DefaultGroupName
}

func parseJSON(v any) []ParsedGroup {
	switch t := v.(type) {
	case []any:
		return parseJSONArray(t)
	case *object:
		return parseJSONObject(t)
	}
	return nil
}

func parseJSONArray(items []any) []ParsedGroup {
	hasGroups := false
	for _, item := range items {
		o, ok := item.(*object)
		if ok && firstString(o, urlKeys...) == "" && hasAny(o, groupItemKeys...) {
			hasGroups = true
			break
		}
	}

	if !hasGroups {
		return appendGroup(nil, DefaultGroupName, toBookmarks(items))
	}

	var groups []ParsedGroup
	for _, item := range items {
		o, ok := item.(*object)
		if !ok {
			continue
		}
		children, ok := firstArray(o, groupItemKeys...)
		if !ok {
			continue
		}
		groups = appendGroup(groups, groupName(o), toBookmarks(children))
	}
	return groups
}

func parseJSONObject(o *object) []ParsedGroup {
	var groups []ParsedGroup

	// Board exports: {"lists": [{"title": ..., "cards": [...]}]}
	if lists, ok := o.get("lists").([]any); ok {
		for _, l := range lists {
			list, ok := l.(*object)
			if !ok {
				continue
			}
			cards, ok := firstArray(list, listItemKeys...)
			if !ok {
				continue
			}
			groups = appendGroup(groups, groupName(list), toBookmarks(cards))
		}
		return groups
	}

	// Browser exports: {"roots": {"bookmark_bar": {...}, "other": {...}}}
	if truthy(o.get("roots")) {
		roots, ok := o.get("roots").(*object)
		if !ok {
			return nil
		}
		for _, key := range roots.keys {
			root, ok := roots.get(key).(*object)
			if !ok {
				continue
			}
			children, ok := root.get("children").([]any)
			if !ok {
				continue
			}
			name := firstString(root, "name")
			if name == "" {
				name = key
			}
			groups = walkNodes(groups, children, name, 0)
		}
		return groups
	}

	if b, ok := toBookmark(o); ok {
		return []ParsedGroup{{Name: DefaultGroupName, Bookmarks: []ParsedBookmark{b}}}
	}

	if items, ok := firstArray(o, objectItemKeys...); ok {
		return appendGroup(nil, groupName(o), toBookmarks(items))
	}

	// Anything else: every array of objects is a group named by its key.
	for _, key := range o.keys {
		items, ok := o.get(key).([]any)
		if !ok || len(items) == 0 {
			continue
		}
		if _, ok := items[0].(*object); !ok {
			continue
		}
		groups = appendGroup(groups, key, toBookmarks(items))
	}
	return groups
}

// walkNodes flattens a browser bookmark tree. Every folder becomes its own
// group, appended after the groups of its subfolders.
func walkNodes(groups []ParsedGroup, nodes []any, name string, depth int) []ParsedGroup {
	var bookmarks []ParsedBookmark

	for _, n := range nodes {
		node, ok := n.(*object)
		if !ok {
			continue
		}

		if s, _ := node.get("type").(string); s == "folder" && truthy(node.get("children")) {
			children, ok := node.get("children").([]any)
			if ok && depth < maxDepth {
				folder := firstString(node, "name")
				if folder == "" {
					folder = UnnamedGroupName
				}
				groups = walkNodes(groups, children, folder, depth+1)
			}
			continue
		}

		if b, ok := toBookmark(node); ok {
			bookmarks = append(bookmarks, b)
		}
	}

	return appendGroup(groups, name, bookmarks)
}
