package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/daybook/pkg/types"
)

func newActionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actions",
		Short: "Manage the actions of a list",
	}

	cmd.AddCommand(newActionsListCmd(a))
	cmd.AddCommand(newActionsAddCmd(a))
	cmd.AddCommand(newActionsDoneCmd(a, true))
	cmd.AddCommand(newActionsDoneCmd(a, false))
	cmd.AddCommand(newActionsEditCmd(a))
	cmd.AddCommand(newActionsPriorityCmd(a))
	cmd.AddCommand(newActionsRemoveCmd(a))

	return cmd
}

func newActionsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List actions, sub-actions indented under their parents",
		RunE: func(cmd *cobra.Command, args []string) error {
			actions := a.registry.Actions(a.flags.listID)
			if err := actions.Load(cmd.Context()); err != nil {
				return err
			}
			for _, root := range actions.Roots() {
				printAction(root, 0)
				for _, sub := range actions.SubActions(root.ID) {
					printAction(sub, 1)
				}
			}
			return nil
		},
	}
}

func newActionsAddCmd(a *app) *cobra.Command {
	var parentID string
	cmd := &cobra.Command{
		Use:   "add <text>...",
		Short: "Add an action to the list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actions := a.registry.Actions(a.flags.listID)
			if err := actions.Load(cmd.Context()); err != nil {
				return err
			}

			text := strings.Join(args, " ")
			if parentID != "" {
				actions.SetSubDraft(parentID, text)
			} else {
				actions.SetDraft(text)
			}
			created, err := actions.Create(cmd.Context(), parentID)
			if err != nil {
				return err
			}
			if created == nil {
				return fmt.Errorf("nothing to add: text is blank")
			}
			fmt.Printf("added %s\n", created.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&parentID, "parent", "", "add as sub-action of this action")
	return cmd
}

func newActionsDoneCmd(a *app, done bool) *cobra.Command {
	use, short := "done <id>", "Mark an action complete (cascades to sub-actions)"
	if !done {
		use, short = "undone <id>", "Mark an action incomplete (sub-actions keep their status)"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actions := a.registry.Actions(a.flags.listID)
			if err := actions.Load(cmd.Context()); err != nil {
				return err
			}
			return actions.SetStatus(cmd.Context(), args[0], done)
		},
	}
}

func newActionsEditCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id> <text>...",
		Short: "Rewrite an action's description",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			actions := a.registry.Actions(a.flags.listID)
			if err := actions.Load(cmd.Context()); err != nil {
				return err
			}
			return actions.UpdateDescription(cmd.Context(), args[0], strings.Join(args[1:], " "))
		},
	}
}

func newActionsPriorityCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "priority <id> <low|medium|high>",
		Short: "Change an action's priority",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			priority, err := parsePriority(args[1])
			if err != nil {
				return err
			}
			actions := a.registry.Actions(a.flags.listID)
			if err := actions.Load(cmd.Context()); err != nil {
				return err
			}
			return actions.SetPriority(cmd.Context(), args[0], priority)
		},
	}
}

func newActionsRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an action and its whole subtree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			actions := a.registry.Actions(a.flags.listID)
			if err := actions.Load(cmd.Context()); err != nil {
				return err
			}
			return actions.Remove(cmd.Context(), args[0])
		},
	}
}

func parsePriority(raw string) (types.Priority, error) {
	switch strings.ToLower(raw) {
	case "low":
		return types.PriorityLow, nil
	case "medium":
		return types.PriorityMedium, nil
	case "high":
		return types.PriorityHigh, nil
	}
	return 0, fmt.Errorf("unknown priority %q", raw)
}
