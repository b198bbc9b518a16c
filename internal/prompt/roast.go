// Package prompt holds the chat-completion prompt templates and the canned
// texts shown when generation fails. The 【】/** markup conventions embedded
// in the prompt are the same dialect the render package parses.
package prompt

import "fmt"

// BuildRoastPrompt wraps the sanitized page content in the roast
// instruction. Content must already be truncated by the caller.
func BuildRoastPrompt(content string) string {
	return fmt.Sprintf(`roast这位小红书博主（直接roast，不要说任何多余的话，角度需要多样和犀利）:

使用以下 Markdown 格式增强表现力:
1. 【标题】使用【】括起重要段落标题
2. **加粗** 用于强调重要观点

以下是博主内容：

%s`, content)
}

// TestPrompt is the trivial request the provider health pings send.
const TestPrompt = "你好，这是一个测试."
