package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tvarr",
		Short:         "Automatic TV episode acquisition",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config-dir", "", "Directory holding tvarr.db and blacklist.txt (env CONFIG_DIR)")
	flags.String("log-level", "", "Log level (env LOG_LEVEL)")
	_ = viper.BindPFlag("CONFIG_DIR", flags.Lookup("config-dir"))
	_ = viper.BindPFlag("LOG_LEVEL", flags.Lookup("log-level"))

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newShowsCommand())
	rootCmd.AddCommand(newSeasonCommand())

	return rootCmd
}
