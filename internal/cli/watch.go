package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/daybook/internal/storage"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream cache writes made by other daybook processes",
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := storage.Watch(cmd.Context(), a.cacheDir)
			if err != nil {
				return err
			}
			for event := range events {
				verb := "write"
				if event.Type == storage.EventRemove {
					verb = "remove"
				}
				fmt.Printf("%s %s\n", verb, event.Key)
			}
			return nil
		},
	}
}
