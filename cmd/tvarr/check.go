package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/amaumene/tvarr/internal/controllers"
)

func newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run one check cycle over the active shows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.tracker.CheckAll(cmd.Context(), controllers.TriggerManual)
			if result != nil {
				printResult(cmd.OutOrStdout(), result)
			}
			return err
		},
	}
}

func printResult(w io.Writer, result *controllers.CheckResult) {
	fmt.Fprintln(w, result.Message)
	if len(result.Downloads) == 0 {
		return
	}

	rows := make([][]string, 0, len(result.Downloads))
	for _, download := range result.Downloads {
		rows = append(rows, []string{download.Show, download.Episode, download.Title})
	}
	fmt.Fprintln(w, renderTable([]string{"Show", "Episode", "Release"}, rows, nil))
}
