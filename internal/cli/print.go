package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/mesh-intelligence/daybook/pkg/types"
)

var (
	doneStyle     = color.New(color.FgHiBlack, color.CrossedOut)
	mediumStyle   = color.New(color.FgYellow)
	highStyle     = color.New(color.FgRed, color.Bold)
	archivedStyle = color.New(color.FgHiBlack)
)

func printAction(action types.Action, depth int) {
	indent := strings.Repeat("  ", depth)
	box := "[ ]"
	if action.Status {
		box = "[x]"
	}
	line := fmt.Sprintf("%s%s %s  %s (%s)", indent, box, action.ID, action.Description, flag(action.Priority))
	if action.Status {
		doneStyle.Println(line)
		return
	}
	fmt.Println(line)
}

func flag(priority types.Priority) string {
	switch priority {
	case types.PriorityMedium:
		return mediumStyle.Sprint(priority.String())
	case types.PriorityHigh:
		return highStyle.Sprint(priority.String())
	default:
		return priority.String()
	}
}

func printHabit(habit types.Habit, count int) {
	line := fmt.Sprintf("%s  %s [%s/%s] completed %d", habit.ID, habit.Name, habit.Scope, habit.Category, count)
	if habit.Archived {
		archivedStyle.Println(line + " (archived)")
		return
	}
	fmt.Println(line)
}
