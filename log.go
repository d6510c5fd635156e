package stagebin

import (
	"fmt"

	"github.com/fatih/color"
)

// LogStep prints a fancy-ish log line announcing a step.
func LogStep(text string) {
	fmt.Println(
		color.MagentaString(" ⌘"),
		color.New(color.Bold).Sprint(text),
	)
}

// LogItem prints a secondary line, nested under a step.
func LogItem(text string) {
	fmt.Println(
		color.BlueString(" •"),
		color.New(color.FgHiBlack).Sprint(text),
	)
}

// LogDetail prints a detail line, nested under an item.
func LogDetail(text string) {
	fmt.Println(
		color.New(color.FgHiBlack).Sprint("   └"),
		color.New(color.FgHiBlack).Sprint(text),
	)
}

// LogWarn prints a warning that doesn't interrupt execution.
func LogWarn(text string) {
	fmt.Println(
		color.YellowString(" !"),
		color.YellowString(text),
	)
}
