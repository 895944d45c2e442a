package report

import (
	"strings"
	"time"

	"github.com/admi-n/solidity-assistant/src/internal"
	"github.com/admi-n/solidity-assistant/src/internal/report/renderers"
)

// Document 一次生成或解释的记录
type Document struct {
	Action    internal.Action
	Network   string
	Engine    string
	CreatedAt time.Time
	Duration  time.Duration

	Input     string
	InputKind string // "address" 或 "source"，仅 explain
	Source    string // 交给模型的源码，输入为地址时与 Input 不同
	NotFound  bool

	Output string
}

// Generator 报告生成器接口
type Generator interface {
	Generate(doc *Document) (string, error)
}

// MarkdownGenerator markdown格式报告生成器
type MarkdownGenerator struct {
	renderer *renderers.MarkdownRenderer
}

// NewMarkdownGenerator 创建markdown报告生成器
func NewMarkdownGenerator() *MarkdownGenerator {
	return &MarkdownGenerator{renderer: renderers.NewMarkdownRenderer()}
}

// Generate 生成markdown格式报告
func (g *MarkdownGenerator) Generate(doc *Document) (string, error) {
	r := g.renderer
	var b strings.Builder

	b.WriteString(r.RenderHeading(1, doc.Action.Title()))
	b.WriteString(r.RenderField("Action", string(doc.Action)))
	if doc.Network != "" {
		b.WriteString(r.RenderField("Network", doc.Network))
	}
	b.WriteString(r.RenderField("Engine", doc.Engine))
	b.WriteString(r.RenderField("Time", doc.CreatedAt.Format("2006-01-02 15:04:05")))
	if doc.Duration > 0 {
		b.WriteString(r.RenderField("Duration", doc.Duration.Round(time.Millisecond).String()))
	}
	b.WriteString("\n")

	switch doc.Action {
	case internal.ActionGenerate:
		b.WriteString(r.RenderHeading(2, "Instruction"))
		b.WriteString(r.RenderText(doc.Input))
		b.WriteString(r.RenderHeading(2, "Generated Code"))
		b.WriteString(r.RenderCodeBlock("solidity", doc.Output))

	default:
		if doc.InputKind == "address" {
			b.WriteString(r.RenderHeading(2, "Address"))
			b.WriteString(r.RenderText("`" + doc.Input + "`"))
			if doc.NotFound {
				b.WriteString(r.RenderText("> No verified source code was found on the explorer."))
			}
			b.WriteString(r.RenderHeading(2, "Source"))
			b.WriteString(r.RenderCodeBlock("solidity", doc.Source))
		} else {
			b.WriteString(r.RenderHeading(2, "Source"))
			b.WriteString(r.RenderCodeBlock("solidity", doc.Input))
		}
		b.WriteString(r.RenderHeading(2, "Explanation"))
		b.WriteString(r.RenderText(doc.Output))
	}

	return b.String(), nil
}
