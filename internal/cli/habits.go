package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/daybook/pkg/period"
	"github.com/mesh-intelligence/daybook/pkg/tracker"
	"github.com/mesh-intelligence/daybook/pkg/types"
)

func newHabitsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "habits",
		Short: "Manage habits and their period activity",
	}

	cmd.AddCommand(newHabitsListCmd(a))
	cmd.AddCommand(newHabitsAddCmd(a))
	cmd.AddCommand(newHabitsToggleCmd(a))
	cmd.AddCommand(newHabitsArchiveCmd(a))

	return cmd
}

func newHabitsListCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List habits with their completion counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			habits := a.registry.Habits()
			activities := a.registry.Activities()
			if err := habits.Load(cmd.Context()); err != nil {
				return err
			}
			if err := activities.Load(cmd.Context()); err != nil {
				return err
			}

			index := tracker.New(activities.All(), activities)
			for _, habit := range habits.All(all) {
				printHabit(habit, index.ComputeCount(habit.ID, habit.Scope))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include archived habits")
	return cmd
}

func newHabitsAddCmd(a *app) *cobra.Command {
	var scopeFlag, category string
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a habit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := period.ParseScope(scopeFlag)
			if err != nil {
				return err
			}
			habit, err := a.registry.Habits().Create(cmd.Context(), args[0], scope, category)
			if err != nil {
				return err
			}
			if habit == nil {
				return fmt.Errorf("nothing to add: name is blank")
			}
			fmt.Printf("added %s\n", habit.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&scopeFlag, "scope", "day", "recurrence scope (day, week, month, year)")
	cmd.Flags().StringVar(&category, "category", "", "habit category")
	return cmd
}

func newHabitsToggleCmd(a *app) *cobra.Command {
	var periodKey string
	cmd := &cobra.Command{
		Use:   "toggle <habit-id>",
		Short: "Toggle a habit's completion for a period (default: the current one)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			habits := a.registry.Habits()
			activities := a.registry.Activities()
			if err := habits.Load(cmd.Context()); err != nil {
				return err
			}
			habit, ok := habits.Get(args[0])
			if !ok {
				return types.ErrNotFound
			}
			if err := activities.Load(cmd.Context()); err != nil {
				return err
			}

			key := periodKey
			if key == "" {
				key = period.Key(habit.Scope, a.now())
			}
			index := tracker.New(activities.All(), activities)
			if err := index.Toggle(cmd.Context(), habit.ID, habit.Scope, key); err != nil {
				return err
			}

			state := "undone"
			if index.IsDone(habit.ID, habit.Scope, key) {
				state = "done"
			}
			fmt.Printf("%s %s: %s\n", habit.Name, key, state)
			return nil
		},
	}
	cmd.Flags().StringVar(&periodKey, "period", "", "period key (e.g. 2025-08-29, 2025-W35, 2025-08, 2025)")
	return cmd
}

func newHabitsArchiveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <habit-id>",
		Short: "Archive a habit, keeping its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			habits := a.registry.Habits()
			if err := habits.Load(cmd.Context()); err != nil {
				return err
			}
			return habits.Archive(cmd.Context(), args[0])
		},
	}
}
