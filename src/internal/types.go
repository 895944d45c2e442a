package internal

// Action 用户可触发的两个动作
type Action string

const (
	ActionGenerate Action = "generate"
	ActionExplain  Action = "explain"
)

// Title 返回动作在界面上的名称
func (a Action) Title() string {
	switch a {
	case ActionGenerate:
		return "Generate Solidity"
	case ActionExplain:
		return "Explain Contract"
	default:
		return string(a)
	}
}
