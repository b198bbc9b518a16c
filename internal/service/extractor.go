package service

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/suanmei/xhs-roast-go/internal/domain"
	"go.uber.org/zap"
)

// Nickname extraction is best-effort heuristic text mining with no formal
// grammar. The candidate list below encodes the fallback priority: earlier
// entries are more trustworthy, and the first one to yield non-empty text
// wins. The order is load-bearing; do not reorder without revisiting the
// scenario tests.
var (
	// Proxy snapshots prefix the page title with a "Title:" line.
	titleLinePattern = regexp.MustCompile(`Title:\s*([\p{Han}a-zA-Z0-9]+(?:（[\p{Han}a-zA-Z0-9]+）)?)`)

	// Link/span text that looks like a blogger name, possibly with a
	// parenthetical tagline.
	linkTextPattern = regexp.MustCompile(`>([\p{Han}a-zA-Z0-9（）()\[\]［］【】{}「」“”‘’！!？?～~、。，,]+?)(?:</a>|</span>)`)

	// Last-resort scan for known-name shapes seen in the wild.
	emergencyNamePattern = regexp.MustCompile(`(花叔|\p{Han}{2,4}叔)`)

	titleSiteSuffixPattern = regexp.MustCompile(`\s*-\s*小红书.*$`)

	avatarPatterns = []*regexp.Regexp{
		regexp.MustCompile(`https://sns-avatar-qc\.xhscdn\.com/avatar/[a-zA-Z0-9]+\.[a-z]+`),
		regexp.MustCompile(`https://sns-avatar-qc\.xhscdn\.com/avatar/[a-zA-Z0-9]+`),
		regexp.MustCompile(`https://sns-avatar[^"']+`),
	}
)

// nicknameCandidate inspects the raw body and returns a nickname, or ""
// when the pattern it encodes does not apply.
type nicknameCandidate func(body string) string

var nicknameCandidates = []nicknameCandidate{
	fromTitleTag,
	fromFirstH1,
	fromTitleClassDiv,
	fromTitleLine,
	fromLinkText,
	fromEmergencyScan,
}

// ExtractBloggerInfo mines a display name and avatar URL out of the fetched
// snapshot. It never fails: any input, including the empty string, yields a
// result with both fields populated, falling back to the default sentinels.
func ExtractBloggerInfo(body string, logger *zap.Logger) domain.BloggerInfo {
	result := domain.BloggerInfo{
		Nickname: domain.DefaultNickname,
		Avatar:   domain.DefaultAvatar,
	}

	for _, candidate := range nicknameCandidates {
		if name := candidate(body); name != "" {
			result.Nickname = name
			break
		}
	}

	for _, pattern := range avatarPatterns {
		if match := pattern.FindString(body); match != "" {
			result.Avatar = match
			break
		}
	}

	logger.Debug("Blogger info extracted",
		zap.String("nickname", result.Nickname),
		zap.Bool("avatar_found", result.Avatar != domain.DefaultAvatar))

	return result
}

// The structured candidates keep the matched text verbatim, parenthetical
// tagline included; splitting happens only in the looser link-text fallback.

func fromTitleTag(body string) string {
	return structuredText(body, "title", true)
}

func fromFirstH1(body string) string {
	return structuredText(body, "h1", false)
}

func fromTitleClassDiv(body string) string {
	return structuredText(body, `div[class*="title"]`, false)
}

func structuredText(body, selector string, stripSiteSuffix bool) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}

	text := strings.TrimSpace(doc.Find(selector).First().Text())
	if text == "" {
		return ""
	}
	if stripSiteSuffix {
		text = strings.TrimSpace(titleSiteSuffixPattern.ReplaceAllString(text, ""))
	}
	return text
}

func fromTitleLine(body string) string {
	match := titleLinePattern.FindStringSubmatch(body)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(match[1])
}

// fromLinkText scans anchor/span texts. A candidate carrying a parenthesis
// is preferred and only its pre-parenthesis part is kept; otherwise the
// first plausible plain text wins.
func fromLinkText(body string) string {
	plain := ""
	for _, match := range linkTextPattern.FindAllStringSubmatch(body, -1) {
		text := match[1]
		if len([]rune(text)) <= 1 {
			continue
		}
		if idx := strings.IndexAny(text, "（("); idx != -1 {
			if before := strings.TrimSpace(text[:idx]); before != "" {
				return before
			}
			continue
		}
		if plain == "" {
			plain = strings.TrimSpace(text)
		}
	}
	return plain
}

func fromEmergencyScan(body string) string {
	return emergencyNamePattern.FindString(body)
}
