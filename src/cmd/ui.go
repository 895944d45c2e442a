package cmd

import (
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"golang.org/x/term"
)

// isTerminal 判断 w 是否是终端
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// startSpinner 在终端上显示 spinner，返回停止函数。非终端时什么也不做。
func startSpinner(w io.Writer, suffix string) func() {
	if !isTerminal(w) {
		return func() {}
	}

	s := spinner.New(spinner.CharSets[14], 80*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + suffix
	s.Start()
	return s.Stop
}
