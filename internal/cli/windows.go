package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/daybook/pkg/period"
)

func newWindowsCmd(a *app) *cobra.Command {
	var scopeFlag string
	cmd := &cobra.Command{
		Use:   "windows",
		Short: "Show the sliding period windows around now",
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := period.ParseScope(scopeFlag)
			if err != nil {
				return err
			}

			set := period.Windows(scope, a.now())
			current := color.New(color.Bold)
			for i, w := range set.Windows {
				line := fmt.Sprintf("%-12s %s", w.ID, w.Label)
				if i == set.CurrentIndex {
					current.Printf("%s  <- now\n", line)
					continue
				}
				fmt.Println(line)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&scopeFlag, "scope", "week", "window scope (day, week, month, year)")
	return cmd
}
