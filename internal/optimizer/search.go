package optimizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/mip"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/platform"
)

const (
	DefaultMaxAttempts = 30
	DefaultEpsilon     = 0.001
)

var (
	ErrEmptyPool = errors.New("player pool is empty")
	// ErrLockedUnavailable is returned when a locked player is excluded,
	// filtered out as injured or missing from the pool.
	ErrLockedUnavailable = errors.New("locked player is not available")
)

// OptimizeConfig describes one lineup generation run.
type OptimizeConfig struct {
	Rules           platform.Rules `json:"-"`
	NumLineups      int            `json:"num_lineups"`
	LockedPlayers   []string       `json:"locked_players"`
	ExcludedPlayers []string       `json:"excluded_players"`
	// IncludeInjured keeps players flagged as injured in the pool.
	IncludeInjured bool `json:"include_injured"`

	Progress ProgressFunc `json:"-"`
}

// Progress is reported after every solve.
type Progress struct {
	Attempt  int     `json:"attempt"`
	Accepted int     `json:"accepted"`
	Target   int     `json:"target"`
	Roster   *Roster `json:"roster,omitempty"`
	Rejected bool    `json:"rejected,omitempty"`
	Done     bool    `json:"done,omitempty"`
}

type ProgressFunc func(Progress)

type OptimizerResult struct {
	Lineups          []*Roster `json:"lineups"`
	Attempts         int       `json:"attempts"`
	Rejected         int       `json:"rejected"`
	PoolSize         int       `json:"pool_size"`
	OptimizationTime int64     `json:"optimization_time_ms"`
	// Truncated is set when the context ended the search early. Lineups
	// holds everything accepted up to that point.
	Truncated bool `json:"truncated,omitempty"`
}

// Optimizer enumerates lineups in descending projected points under a
// tightening point cap.
type Optimizer struct {
	solver      mip.Solver
	logger      *logrus.Logger
	maxAttempts int
	epsilon     float64
}

type Option func(*Optimizer)

// WithMaxAttempts caps the number of solves per run.
func WithMaxAttempts(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.maxAttempts = n
		}
	}
}

// WithEpsilon sets how far below the previous lineup the next point cap sits.
func WithEpsilon(eps float64) Option {
	return func(o *Optimizer) {
		if eps > 0 {
			o.epsilon = eps
		}
	}
}

func NewOptimizer(solver mip.Solver, logger *logrus.Logger, opts ...Option) *Optimizer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	o := &Optimizer{
		solver:      solver,
		logger:      logger,
		maxAttempts: DefaultMaxAttempts,
		epsilon:     DefaultEpsilon,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Optimize filters the pool and generates up to config.NumLineups lineups.
// Fewer lineups are returned when the solver runs out of feasible lineups or
// the attempt ceiling is reached. When ctx is cancelled or times out after at
// least one lineup was accepted, those lineups come back with Truncated set.
func (o *Optimizer) Optimize(ctx context.Context, players []Player, config OptimizeConfig) (*OptimizerResult, error) {
	start := time.Now()
	result := &OptimizerResult{Lineups: []*Roster{}}

	if config.NumLineups <= 0 {
		return result, nil
	}

	filtered := filterPlayers(players, config)
	if len(filtered) == 0 {
		return nil, ErrEmptyPool
	}
	if missing := unavailable(config.LockedPlayers, filtered); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrLockedUnavailable, strings.Join(missing, ", "))
	}

	pool := Expand(filtered, config.Rules)
	result.PoolSize = len(pool.Players)

	locked := make(map[string]bool, len(config.LockedPlayers))
	for _, id := range config.LockedPlayers {
		locked[id] = true
	}

	log := o.logger.WithFields(logrus.Fields{
		"platform":    config.Rules.Name,
		"pool_size":   len(pool.Players),
		"groups":      len(pool.Groups),
		"num_lineups": config.NumLineups,
	})
	log.Info("Starting lineup search")

	req := LineupRequest{
		Rules:     config.Rules,
		Players:   pool.Players,
		Groups:    pool.Groups,
		Teams:     teamsOf(pool.Players),
		Locked:    locked,
		MaxPoints: NoPointCap,
	}

	frontier := newLineupFrontier(o.solver, req)
	for {
		roster, err := frontier.next(ctx, req.MaxPoints)
		if err != nil {
			stopped := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
			if !stopped || len(result.Lineups) == 0 {
				return nil, err
			}
			result.Truncated = true
			log.WithError(err).WithFields(logrus.Fields{
				"attempts": result.Attempts,
				"lineups":  len(result.Lineups),
			}).Warn("Lineup search stopped early")
			break
		}
		result.Attempts++

		if roster == nil || result.Attempts > o.maxAttempts {
			entry := log.WithFields(logrus.Fields{
				"attempts": result.Attempts,
				"found":    roster != nil,
			})
			if frontier.incomplete {
				entry.Warn("Solver hit its node limit, lineup search stopped")
			} else {
				entry.Debug("Lineup search exhausted")
			}
			break
		}
		req.MaxPoints = roster.Projected() - o.epsilon

		accepted := roster.TeamCount() >= config.Rules.MinTeams
		if accepted {
			result.Lineups = append(result.Lineups, roster)
		} else {
			result.Rejected++
		}

		log.WithFields(logrus.Fields{
			"attempt":   result.Attempts,
			"projected": roster.Projected(),
			"salary":    roster.Spent(),
			"teams":     roster.TeamCount(),
			"accepted":  accepted,
		}).Debug("Solved lineup")

		report(config.Progress, Progress{
			Attempt:  result.Attempts,
			Accepted: len(result.Lineups),
			Target:   config.NumLineups,
			Roster:   roster,
			Rejected: !accepted,
		})

		if len(result.Lineups) == config.NumLineups {
			break
		}
	}

	result.OptimizationTime = time.Since(start).Milliseconds()
	report(config.Progress, Progress{
		Attempt:  result.Attempts,
		Accepted: len(result.Lineups),
		Target:   config.NumLineups,
		Done:     true,
	})

	log.WithFields(logrus.Fields{
		"lineups":   len(result.Lineups),
		"attempts":  result.Attempts,
		"rejected":  result.Rejected,
		"solves":    frontier.solves,
		"truncated": result.Truncated,
		"elapsed":   time.Since(start).String(),
	}).Info("Lineup search complete")

	return result, nil
}

// Generate is Optimize without filtering or bookkeeping: it returns the
// accepted lineups for players on rules.
func (o *Optimizer) Generate(ctx context.Context, rules platform.Rules, players []Player, numLineups int, locked []string) ([]*Roster, error) {
	if len(players) == 0 {
		return []*Roster{}, nil
	}
	result, err := o.Optimize(ctx, players, OptimizeConfig{
		Rules:          rules,
		NumLineups:     numLineups,
		LockedPlayers:  locked,
		IncludeInjured: true,
	})
	if err != nil {
		return nil, err
	}
	return result.Lineups, nil
}

func report(fn ProgressFunc, p Progress) {
	if fn != nil {
		fn(p)
	}
}

// unavailable returns the locked ids that are not in players, in the order
// they were locked.
func unavailable(locked []string, players []Player) []string {
	present := make(map[string]bool, len(players))
	for _, p := range players {
		present[p.ID] = true
	}
	var missing []string
	for _, id := range locked {
		if !present[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

func filterPlayers(players []Player, config OptimizeConfig) []Player {
	excludeMap := make(map[string]bool)
	for _, id := range config.ExcludedPlayers {
		excludeMap[id] = true
	}

	filtered := make([]Player, 0, len(players))
	for _, player := range players {
		if excludeMap[player.ID] {
			continue
		}
		if player.IsInjured && !config.IncludeInjured {
			continue
		}
		filtered = append(filtered, player)
	}
	return filtered
}
