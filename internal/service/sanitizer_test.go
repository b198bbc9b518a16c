package service

import (
	"strings"
	"testing"
)

func TestSanitizeContentMarkdownLinks(t *testing.T) {
	input := "看看[我的主页](https://www.xiaohongshu.com/user/profile/abc)吧"

	got := SanitizeContent(input)

	if got != "看看我的主页吧" {
		t.Errorf("got %q", got)
	}
}

func TestSanitizeContentMarkdownImages(t *testing.T) {
	input := "前文 ![封面图](https://sns-img.xhscdn.com/cover.jpg) 后文"

	got := SanitizeContent(input)

	if strings.Contains(got, "!") || strings.Contains(got, "http") {
		t.Errorf("image markup survived: %q", got)
	}
	if !strings.Contains(got, "封面图") {
		t.Errorf("image label lost: %q", got)
	}
}

func TestSanitizeContentBareURLs(t *testing.T) {
	input := "链接 https://example.com/path?x=1 结束"

	got := SanitizeContent(input)

	if strings.Contains(got, "http") || strings.Contains(got, "example") {
		t.Errorf("bare URL survived: %q", got)
	}
}

func TestSanitizeContentImageViewArtifacts(t *testing.T) {
	input := "pic.webp?imageView2/2/w/1080/format/webp and pipe|imageView2/2/w/540 end"

	got := SanitizeContent(input)

	if strings.Contains(got, "imageView2") {
		t.Errorf("imageView artifact survived: %q", got)
	}
}

func TestSanitizeContentCollapsesBlankLines(t *testing.T) {
	input := "第一段\n\n\n\n\n第二段"

	got := SanitizeContent(input)

	if got != "第一段\n\n第二段" {
		t.Errorf("got %q", got)
	}
}

func TestSanitizeContentIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"纯文本没有任何需要清理的东西",
		"混合 [链接](https://a.com) 和 ![图](https://b.com/x.png)\n\n\n\nhttps://c.com?q=1",
		"avatar.jpg|imageView2/2/w/80/h/80",
	}

	for _, input := range inputs {
		once := SanitizeContent(input)
		twice := SanitizeContent(once)
		if once != twice {
			t.Errorf("not idempotent for %q: first %q, second %q", input, once, twice)
		}
	}
}

func TestSanitizeContentLinkLabelBeforeURLStrip(t *testing.T) {
	// The label must collapse out of the link construct before the URL rule
	// fires; running URL-strip first would leave "[label]()" debris.
	input := "[花叔的主页](https://www.xiaohongshu.com/user/profile/abc?xsec_token=xyz)"

	got := SanitizeContent(input)

	if got != "花叔的主页" {
		t.Errorf("got %q", got)
	}
}
