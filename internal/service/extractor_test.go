package service

import (
	"strings"
	"testing"

	"github.com/suanmei/xhs-roast-go/internal/domain"
	"go.uber.org/zap"
)

func TestExtractBloggerInfoFromTitle(t *testing.T) {
	body := `<html><head><title>Jane（Travel Blog） - 小红书</title></head><body></body></html>`

	info := ExtractBloggerInfo(body, zap.NewNop())

	// Parenthetical taglines survive in title-derived nicknames.
	if info.Nickname != "Jane（Travel Blog）" {
		t.Errorf("nickname = %q, want %q", info.Nickname, "Jane（Travel Blog）")
	}
	if info.Avatar != domain.DefaultAvatar {
		t.Errorf("avatar = %q, want default", info.Avatar)
	}
}

func TestExtractBloggerInfoAvatar(t *testing.T) {
	body := `<title>花叔</title>
<img src="https://sns-avatar-qc.xhscdn.com/avatar/abcdef123.jpg">`

	info := ExtractBloggerInfo(body, zap.NewNop())

	if info.Nickname != "花叔" {
		t.Errorf("nickname = %q, want 花叔", info.Nickname)
	}
	if info.Avatar != "https://sns-avatar-qc.xhscdn.com/avatar/abcdef123.jpg" {
		t.Errorf("avatar = %q", info.Avatar)
	}
}

func TestExtractBloggerInfoTitleLine(t *testing.T) {
	// Proxy snapshots are plain text with a Title: header line.
	body := "Title: 花叔（只工作不上班版）\n\nURL Source: ..."

	info := ExtractBloggerInfo(body, zap.NewNop())

	if info.Nickname != "花叔（只工作不上班版）" {
		t.Errorf("nickname = %q", info.Nickname)
	}
}

func TestExtractBloggerInfoH1BeatsTitleLine(t *testing.T) {
	body := "<h1>美食家老王</h1>\nTitle: 别的名字"

	info := ExtractBloggerInfo(body, zap.NewNop())

	if info.Nickname != "美食家老王" {
		t.Errorf("nickname = %q, want 美食家老王", info.Nickname)
	}
}

func TestExtractBloggerInfoLinkTextSplitsParenthesis(t *testing.T) {
	// No structured title anywhere; link text with parenthesis keeps only
	// the part before it.
	body := `<a href="/u/1">花叔（只工作不上班版</a>`

	info := ExtractBloggerInfo(body, zap.NewNop())

	if info.Nickname != "花叔" {
		t.Errorf("nickname = %q, want 花叔", info.Nickname)
	}
}

func TestExtractBloggerInfoNeverFails(t *testing.T) {
	inputs := []string{
		"",
		"plain text with nothing useful",
		"<title></title>",
		strings.Repeat("<", 1000),
	}

	for _, input := range inputs {
		info := ExtractBloggerInfo(input, zap.NewNop())
		if info.Nickname == "" || info.Avatar == "" {
			t.Errorf("input %q: got empty field %+v", input, info)
		}
	}
}

func TestExtractBloggerInfoEmptyInputDefaults(t *testing.T) {
	info := ExtractBloggerInfo("", zap.NewNop())

	if info.Nickname != domain.DefaultNickname {
		t.Errorf("nickname = %q, want sentinel", info.Nickname)
	}
	if info.Avatar != domain.DefaultAvatar {
		t.Errorf("avatar = %q, want placeholder", info.Avatar)
	}
}

func TestExtractBloggerInfoEmergencyScan(t *testing.T) {
	body := "unstructured text mentioning 花叔 somewhere in the middle"

	info := ExtractBloggerInfo(body, zap.NewNop())

	if info.Nickname != "花叔" {
		t.Errorf("nickname = %q, want 花叔", info.Nickname)
	}
}
