package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/mip"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/models"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/optimizer"
	"github.com/stitts-dev/nba-lineup-optimizer/pkg/config"
	"github.com/stitts-dev/nba-lineup-optimizer/pkg/database"
	"github.com/stretchr/testify/require"
)

// fanDuelCSV has six feasible FanDuel lineups with distinct totals.
const fanDuelCSV = `id,name,team,opponent,position,salary,projected_points
fd-curry,Stephen Curry,GSW,LAC,PG,7000,45.5
fd-harden,James Harden,LAC,GSW,PG,6500,40.25
fd-booker,Devin Booker,PHX,DEN,SG,6800,38.0
fd-mitchell,Donovan Mitchell,CLE,BOS,SG,6200,36.0
fd-tatum,Jayson Tatum,BOS,CLE,SF,7200,42.0
fd-butler,Jimmy Butler,MIA,MIL,SF,6000,33.0
fd-giannis,Giannis Antetokounmpo,MIL,MIA,PF,7400,48.0
fd-siakam,Pascal Siakam,IND,HOU,PF,5800,31.0
fd-jokic,Nikola Jokic,DEN,PHX,C,6900,42.0
fd-payton,Gary Payton II,GSW,LAC,PG,5000,30.0
fd-adams,Steven Adams,HOU,IND,C,5500,35.5
`

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func testPool(t *testing.T) []optimizer.Player {
	t.Helper()
	players, err := ReadPlayerPool(strings.NewReader(fanDuelCSV))
	require.NoError(t, err)
	return players
}

func testDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewConnection("sqlite://:memory:", false)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	t.Cleanup(func() { db.Close() })
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		MaxLineups:        150,
		SearchMaxAttempts: 30,
		SearchEpsilon:     0.001,
	}
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages map[string][]interface{}
}

func (n *recordingNotifier) BroadcastToRun(optimizationID string, _ string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.messages == nil {
		n.messages = make(map[string][]interface{})
	}
	n.messages[optimizationID] = append(n.messages[optimizationID], payload)
}

func newTestService(t *testing.T) (*LineupService, *database.DB, *recordingNotifier) {
	t.Helper()
	db := testDB(t)
	notifier := &recordingNotifier{}
	svc := NewLineupService(db, NewMemoryCache(), testConfig(), mip.NewEnumerator(0), notifier, quietLogger())
	return svc, db, notifier
}

// expiringSolver answers a fixed number of solves and then reports that the
// deadline has passed.
type expiringSolver struct {
	mip.Solver
	remaining int
}

func (s *expiringSolver) Solve(ctx context.Context, model *mip.Model) (*mip.Solution, error) {
	if s.remaining == 0 {
		return nil, context.DeadlineExceeded
	}
	s.remaining--
	return s.Solver.Solve(ctx, model)
}
