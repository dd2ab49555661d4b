package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stitts-dev/nba-lineup-optimizer/pkg/config"
	"github.com/stitts-dev/nba-lineup-optimizer/pkg/logger"
)

// cliContext carries settings shared by every subcommand.
type cliContext struct {
	v      *viper.Viper
	logger *logrus.Logger
}

func newRootCmd() *cobra.Command {
	cc := &cliContext{v: viper.New()}
	config.SetDefaults(cc.v)
	cc.v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:   "lineups",
		Short: "Generate optimal NBA lineups for FanDuel, DraftKings and Yahoo",
		Long: `lineups reads a player pool CSV and searches for the highest projected
lineups that satisfy a platform's salary cap and roster rules.

Each lineup is the best one projected strictly below the previous, so the
output is ordered from best to worst.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := "warn"
			if cc.v.GetBool("verbose") {
				level = "debug"
			}
			cc.logger = logger.InitLogger(level, true)
			cc.logger.SetOutput(cmd.ErrOrStderr())
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log search progress to stderr")
	_ = cc.v.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(newOptimizeCmd(cc))
	rootCmd.AddCommand(newPlatformsCmd())
	return rootCmd
}
