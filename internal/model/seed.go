package model

import (
	"strings"
	"time"
)

const (
	// SeedGroupID is the id of the example group shown to first-run users.
	SeedGroupID = "default-hot"
	// SeedGroupName is the seeded group's name until the user renames it.
	SeedGroupName = "热门网站"

	seedBookmarkPrefix = "bk-"
)

type seedEntry struct {
	id, title, url, description, faviconDomain string
}

var seedBookmarks = []seedEntry{
	{"bk-1", "元宝", "https://yuanbao.tencent.com", "腾讯推出的 AI 智能助手", "yuanbao.tencent.com"},
	{"bk-2", "ChatGPT", "https://chat.openai.com", "OpenAI 推出的 AI 对话助手", "chat.openai.com"},
	{"bk-3", "即梦", "https://jimeng.jianying.com", "字节跳动推出的 AI 创作平台", "jimeng.jianying.com"},
	{"bk-4", "Gemini", "https://gemini.google.com", "Google 推出的多模态 AI 助手", "gemini.google.com"},
	{"bk-5", "Pinterest", "https://www.pinterest.com", "全球创意灵感图片分享平台", "pinterest.com"},
	{"bk-6", "Dribbble", "https://dribbble.com", "设计师作品展示与交流社区", "dribbble.com"},
	{"bk-7", "Behance", "https://www.behance.net", "Adobe 旗下创意作品展示平台", "behance.net"},
}

// SeedData returns the default group and bookmarks for an empty local store.
func SeedData() ([]Group, []Bookmark) {
	now := time.Now().UTC()

	groups := []Group{{
		ID:        SeedGroupID,
		Name:      SeedGroupName,
		SortOrder: 0,
		CreatedAt: now,
		UpdatedAt: now,
	}}

	bookmarks := make([]Bookmark, 0, len(seedBookmarks))
	for i, s := range seedBookmarks {
		bookmarks = append(bookmarks, Bookmark{
			ID:          s.id,
			GroupID:     SeedGroupID,
			Title:       s.title,
			URL:         s.url,
			Description: s.description,
			FaviconURL:  FaviconURL("https://" + s.faviconDomain),
			SortOrder:   i,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	return groups, bookmarks
}

// IsSeedGroupID reports whether id belongs to the seeded example group.
func IsSeedGroupID(id string) bool {
	return id == SeedGroupID
}

// IsSeedBookmarkID reports whether id belongs to a seeded example bookmark.
func IsSeedBookmarkID(id string) bool {
	return strings.HasPrefix(id, seedBookmarkPrefix)
}
