package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/amaumene/tvarr/internal/controllers"
	"github.com/amaumene/tvarr/internal/models"
)

func newShowsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shows",
		Short: "Manage tracked shows",
	}

	cmd.AddCommand(newShowsListCommand())
	cmd.AddCommand(newShowsAddCommand())
	cmd.AddCommand(newShowStatusCommand("pause", "Stop acquiring a show", models.ShowStatusPaused))
	cmd.AddCommand(newShowStatusCommand("resume", "Resume acquiring a show", models.ShowStatusActive))
	cmd.AddCommand(newShowsRemoveCommand())

	return cmd
}

func newShowsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracked shows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			shows, err := a.shows.GetTrackedShows()
			if err != nil {
				return err
			}
			printShows(cmd.OutOrStdout(), shows)
			return nil
		},
	}
}

func printShows(w io.Writer, shows []*models.TrackedShow) {
	if len(shows) == 0 {
		fmt.Fprintln(w, "No tracked shows")
		return
	}

	rows := make([][]string, 0, len(shows))
	for _, show := range shows {
		airDate := show.NextEpisodeAirDate
		if airDate == "" {
			airDate = "-"
		}
		checked := "never"
		if show.LastCheckedAt != nil {
			checked = humanize.Time(*show.LastCheckedAt)
		}
		rows = append(rows, []string{
			strconv.FormatUint(show.ID, 10),
			show.Name,
			show.Watermark(),
			string(show.Status),
			airDate,
			checked,
			strconv.Itoa(len(show.DownloadHistory)),
		})
	}

	headers := []string{"ID", "Name", "Watermark", "Status", "Next Air Date", "Last Checked", "Downloads"}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight}
	fmt.Fprintln(w, renderTable(headers, rows, aligns))
}

func newShowsAddCommand() *cobra.Command {
	var season, episode, catalogID int

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Start tracking a show",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := controllers.AddShowRequest{
				Name:      strings.Join(args, " "),
				CatalogID: catalogID,
			}
			if cmd.Flags().Changed("season") {
				req.Season = &season
			}
			if cmd.Flags().Changed("episode") {
				req.Episode = &episode
			}

			a, err := newApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			show, err := a.shows.AddShow(cmd.Context(), req)
			if err != nil {
				return err
			}
			printShows(cmd.OutOrStdout(), []*models.TrackedShow{show})
			return nil
		},
	}

	cmd.Flags().IntVar(&season, "season", 0, "Season of the last episode already owned")
	cmd.Flags().IntVar(&episode, "episode", 0, "Last episode already owned (0 to start at the season premiere)")
	cmd.Flags().IntVar(&catalogID, "catalog-id", 0, "TVmaze show id, looked up by name when omitted")

	return cmd
}

func newShowStatusCommand(use, short string, status models.ShowStatus) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid show id %q", args[0])
			}

			a, err := newApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			show, err := a.shows.SetShowStatus(id, status)
			if err != nil {
				return err
			}
			printShows(cmd.OutOrStdout(), []*models.TrackedShow{show})
			return nil
		},
	}
}

func newShowsRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Stop tracking a show",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid show id %q", args[0])
			}

			a, err := newApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.shows.RemoveShow(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed show %d\n", id)
			return nil
		},
	}
}
