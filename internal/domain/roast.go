package domain

import (
	"net/url"
	"strings"

	"github.com/suanmei/xhs-roast-go/internal/util"
)

const (
	// ProfileDomain gates submitted URLs; anything else is rejected before
	// any outbound call is made.
	ProfileDomain = "xiaohongshu.com"

	DefaultNickname = "未知博主"
	DefaultAvatar   = "/default-avatar.svg"

	// BloggerIDMaxLength caps the derived identity key.
	BloggerIDMaxLength = 40
)

// BloggerInfo is the profile summary mined from the fetched page. Produced
// once per fetch and embedded by value into any persisted record.
type BloggerInfo struct {
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

// RoastRecord is a persisted roast result.
type RoastRecord struct {
	ID        int64       `json:"id"`
	CreatedAt int64       `json:"createdAt"` // epoch milliseconds
	Blogger   BloggerInfo `json:"blogger"`
	Roast     string      `json:"roast"`
	URL       string      `json:"url"`
	ShareID   string      `json:"shareId"`
	BloggerID string      `json:"bloggerId"`
}

// RoastFeedPage is one page of the recent-activity feed.
type RoastFeedPage struct {
	Roasts []*RoastRecord `json:"roasts"`
	Cursor string         `json:"cursor,omitempty"`
}

// IsProfileURL reports whether the submitted string plausibly points at a
// profile on the target site. Deliberately a substring check, not a full
// URL parse: users paste share links with tracking junk that still resolve.
func IsProfileURL(raw string) bool {
	return strings.Contains(raw, ProfileDomain)
}

// DeriveBloggerID computes a best-effort stable identity key from the
// submitted URL: the path segment after /user/ when present, otherwise a
// sanitized host+path+nickname concatenation. Not guaranteed unique or
// collision-free; used only for feed deduplication.
func DeriveBloggerID(rawURL, nickname string) string {
	if idx := strings.Index(rawURL, "/user/"); idx != -1 {
		rest := rawURL[idx+len("/user/"):]
		for _, segment := range strings.Split(rest, "/") {
			segment = strings.TrimSpace(segment)
			if segment == "" || segment == "profile" {
				continue
			}
			if q := strings.IndexAny(segment, "?#"); q != -1 {
				segment = segment[:q]
			}
			if segment != "" {
				return util.TruncateRunes(segment, BloggerIDMaxLength)
			}
		}
	}

	host, path := rawURL, ""
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Host != "" {
		host, path = parsed.Host, parsed.Path
	}

	key := util.SanitizeKey(host + path + nickname)
	return util.TruncateRunes(key, BloggerIDMaxLength)
}
