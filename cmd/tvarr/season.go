package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newSeasonCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "season <show-id> <season> <start> <end>",
		Short: "Download episodes start..end of a season without moving the watermark",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			showID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid show id %q", args[0])
			}
			numbers := make([]int, 3)
			for i, arg := range args[1:] {
				numbers[i], err = strconv.Atoi(arg)
				if err != nil {
					return fmt.Errorf("invalid number %q", arg)
				}
			}

			a, err := newApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.tracker.DownloadSeasonRange(cmd.Context(), showID, numbers[0], numbers[1], numbers[2])
			if result != nil {
				printResult(cmd.OutOrStdout(), result)
			}
			return err
		},
	}
}
