package prompts

import (
	"fmt"
	"strings"
	"text/template"
)

// 两个固定模板，进程内只定义一次
const (
	GenerateTemplate = "Instruction: {{.Instruction}}\nOutput format:\n[Solidity Code]\n[Explanation]\n[Security Tradeoffs]"

	ExplainTemplate = "Analyze the following smart contract code:\n{{.Code}}\n\n" +
		"Output a plain-English explanation:\n" +
		"1. What the contract does.\n" +
		"2. Key functions and permissions.\n" +
		"3. Security concerns."
)

var (
	generateTmpl = template.Must(template.New("generate").Parse(GenerateTemplate))
	explainTmpl  = template.Must(template.New("explain").Parse(ExplainTemplate))
)

// Kind 标识任务类型
type Kind string

const (
	KindGenerate Kind = "generate"
	KindExplain  Kind = "explain"
)

// Task 是 Generate | Explain 的标签联合。
// 未导出的 sealed 方法保证包外无法新增变体。
type Task interface {
	Kind() Kind
	Render() (string, error)
	sealed()
}

// Generate 根据自然语言指令生成 Solidity 代码
type Generate struct {
	Instruction string
}

// Explain 解释一段合约源码
type Explain struct {
	Code string
}

func (Generate) Kind() Kind { return KindGenerate }
func (Explain) Kind() Kind  { return KindExplain }

func (Generate) sealed() {}
func (Explain) sealed()  {}

// Render 渲染生成任务的 prompt
func (g Generate) Render() (string, error) {
	return BuildPrompt(generateTmpl, g)
}

// Render 渲染解释任务的 prompt
func (e Explain) Render() (string, error) {
	return BuildPrompt(explainTmpl, e)
}

// BuildPrompt 使用模板和变量构建最终的 prompt。
// text/template 不做任何转义，输入按字面量插入。
func BuildPrompt(tmpl *template.Template, data any) (string, error) {
	var result strings.Builder
	if err := tmpl.Execute(&result, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", tmpl.Name(), err)
	}
	return result.String(), nil
}
