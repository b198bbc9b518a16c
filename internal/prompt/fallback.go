package prompt

import "fmt"

// FallbackRoast is returned after the generation retry loop is exhausted.
// In-character filler rather than a diagnostic message: the product always
// shows the user *something*.
const FallbackRoast = `很抱歉，AI在生成吐槽时遇到了一些问题。

【关于这位博主】
这位小红书博主看起来很有趣，但AI在处理时遇到了一些挑战。

【吐槽】
AI也有出错的时候，就像那些经常"翻车"的网红博主一样。不过，与其沮丧，不如再试一次！毕竟，在互联网的世界里，重新加载页面解决90%的问题。

希望下次能为您提供一个精彩的吐槽！`

// FallbackGenerateStage is the stage-2 (generate-only endpoint) variant.
const FallbackGenerateStage = `看起来出了点问题，但别担心！

就像小红书博主的"真实生活"vs镜头前的样子一样，有时候技术也会有落差。请稍后再试！`

// FallbackSystemError wraps an unexpected error into user-facing text.
func FallbackSystemError(detail string) string {
	if detail == "" {
		detail = "未知错误"
	}
	return fmt.Sprintf(`很抱歉，AI在生成吐槽时遇到了一些技术问题。

【系统消息】
处理请求时发生错误，请稍后再试。

错误详情: %s`, detail)
}

// FallbackTexts enumerates every canned roast; the feed reader filters
// records whose text matches any of them.
func FallbackTexts() []string {
	return []string{FallbackRoast, FallbackGenerateStage}
}

// FallbackMarker is a prefix shared by all canned texts, checked alongside
// the full-text match so truncated copies are filtered too.
const FallbackMarker = "很抱歉，AI在生成吐槽时遇到了"
