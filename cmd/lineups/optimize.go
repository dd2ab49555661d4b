package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/stitts-dev/nba-lineup-optimizer/internal/mip"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/optimizer"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/platform"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/services"
	"github.com/stitts-dev/nba-lineup-optimizer/pkg/logger"
)

type optimizeOptions struct {
	players        string
	platform       string
	count          int
	lock           []string
	exclude        []string
	includeInjured bool
	output         string
	format         string
}

func newOptimizeCmd(cc *cliContext) *cobra.Command {
	opts := &optimizeOptions{}

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Generate lineups from a player pool CSV",
		Example: `  # Ten DraftKings lineups printed as tables
  lineups optimize --players pool.csv --platform draftkings --count 10

  # Lock two players and write the upload file
  lineups optimize --players pool.csv --platform fanduel --lock p1,p2 --output upload.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOptimize(cmd, cc, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.players, "players", "p", "", "Player pool CSV")
	flags.StringVar(&opts.platform, "platform", platform.FanDuel, "Platform: "+strings.Join(platform.Names(), ", "))
	flags.IntVarP(&opts.count, "count", "n", 1, "Number of lineups to generate")
	flags.StringSliceVar(&opts.lock, "lock", nil, "Player ids every lineup must contain")
	flags.StringSliceVar(&opts.exclude, "exclude", nil, "Player ids to leave out")
	flags.BoolVar(&opts.includeInjured, "include-injured", false, "Keep players flagged as injured")
	flags.StringVarP(&opts.output, "output", "o", "", "Write the platform upload CSV to this file")
	flags.StringVar(&opts.format, "format", "table", "Stdout format: table or csv")
	flags.String("solver", "", "MIP backend: "+mip.BackendSimplex+" or "+mip.BackendEnumerate)
	flags.Int("max-attempts", 0, "Solver calls allowed beyond the requested count")
	_ = cmd.MarkFlagRequired("players")

	_ = cc.v.BindPFlag("SOLVER_BACKEND", flags.Lookup("solver"))
	_ = cc.v.BindPFlag("SEARCH_MAX_ATTEMPTS", flags.Lookup("max-attempts"))

	_ = cmd.RegisterFlagCompletionFunc("platform", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return platform.Names(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"table", "csv"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runOptimize(cmd *cobra.Command, cc *cliContext, opts *optimizeOptions) error {
	if opts.format != "table" && opts.format != "csv" {
		return fmt.Errorf("unknown format %q", opts.format)
	}
	rules, err := platform.Lookup(opts.platform)
	if err != nil {
		return err
	}

	file, err := os.Open(opts.players)
	if err != nil {
		return fmt.Errorf("failed to open player pool: %w", err)
	}
	defer file.Close()

	players, err := services.ReadPlayerPool(file)
	if err != nil {
		return fmt.Errorf("%s: %w", opts.players, err)
	}

	solver, err := mip.NewSolver(cc.v.GetString("SOLVER_BACKEND"), mip.Options{
		MaxNodes: cc.v.GetInt("SOLVER_MAX_NODES"),
		MaxVars:  cc.v.GetInt("SOLVER_MAX_VARS"),
	})
	if err != nil {
		return err
	}

	optimizationID := uuid.NewString()
	log := logger.WithOptimizationContext(optimizationID, rules.Name)

	opt := optimizer.NewOptimizer(solver, cc.logger,
		optimizer.WithMaxAttempts(cc.v.GetInt("SEARCH_MAX_ATTEMPTS")),
		optimizer.WithEpsilon(cc.v.GetFloat64("SEARCH_EPSILON")),
	)
	result, err := opt.Optimize(cmd.Context(), players, optimizer.OptimizeConfig{
		Rules:           rules,
		NumLineups:      opts.count,
		LockedPlayers:   opts.lock,
		ExcludedPlayers: opts.exclude,
		IncludeInjured:  opts.includeInjured,
		Progress: func(p optimizer.Progress) {
			log.WithField("attempt", p.Attempt).Debugf("%d/%d lineups", p.Accepted, p.Target)
		},
	})
	if err != nil {
		return err
	}
	if result.Truncated {
		log.WithField("lineups", len(result.Lineups)).Warn("Search was interrupted, showing the lineups found so far")
	}

	out := cmd.OutOrStdout()
	switch opts.format {
	case "csv":
		err = optimizer.WriteCSV(out, rules, result.Lineups)
	default:
		err = renderLineups(out, rules, result)
	}
	if err != nil {
		return err
	}

	if opts.output != "" {
		if err := writeUploadFile(opts.output, rules, result.Lineups); err != nil {
			return err
		}
		log.WithField("file", opts.output).Info("Wrote upload file")
	}
	return nil
}

func writeUploadFile(path string, rules platform.Rules, rosters []*optimizer.Roster) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := optimizer.WriteCSV(f, rules, rosters); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
