package renderers

import (
	"fmt"
	"strings"
)

// MarkdownRenderer markdown渲染器
type MarkdownRenderer struct{}

// NewMarkdownRenderer 创建markdown渲染器
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// RenderHeading 渲染标题
func (r *MarkdownRenderer) RenderHeading(level int, text string) string {
	if level < 1 {
		level = 1
	}
	return fmt.Sprintf("%s %s\n\n", strings.Repeat("#", level), text)
}

// RenderField 渲染一行 **名称**: 值
func (r *MarkdownRenderer) RenderField(name, value string) string {
	return fmt.Sprintf("**%s**: %s\n", name, value)
}

// RenderCodeBlock 渲染代码块。围栏比内容里最长的反引号串多一个，
// 模型输出自带 ``` 时也不会提前闭合。
func (r *MarkdownRenderer) RenderCodeBlock(language, code string) string {
	fence := strings.Repeat("`", max(3, longestBacktickRun(code)+1))

	var b strings.Builder
	b.WriteString(fence)
	b.WriteString(language)
	b.WriteString("\n")
	b.WriteString(code)
	if !strings.HasSuffix(code, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(fence)
	b.WriteString("\n\n")
	return b.String()
}

// RenderText 渲染普通段落
func (r *MarkdownRenderer) RenderText(text string) string {
	return strings.TrimRight(text, "\n") + "\n\n"
}

func longestBacktickRun(s string) int {
	longest, run := 0, 0
	for _, c := range s {
		if c == '`' {
			run++
			longest = max(longest, run)
			continue
		}
		run = 0
	}
	return longest
}
