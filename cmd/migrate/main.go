package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/nba-lineup-optimizer/internal/models"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/platform"
	"github.com/stitts-dev/nba-lineup-optimizer/pkg/config"
	"github.com/stitts-dev/nba-lineup-optimizer/pkg/database"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate [up|down|seed]")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	switch command := os.Args[1]; command {
	case "up":
		if err := runMigrations(db); err != nil {
			logrus.Fatalf("Failed to run migrations: %v", err)
		}
		logrus.Info("Migrations completed successfully")

	case "down":
		if err := dropTables(db); err != nil {
			logrus.Fatalf("Failed to drop tables: %v", err)
		}
		logrus.Info("Tables dropped successfully")

	case "seed":
		if err := seedData(db); err != nil {
			logrus.Fatalf("Failed to seed data: %v", err)
		}
		logrus.Info("Data seeded successfully")

	default:
		log.Fatalf("Unknown command: %s", command)
	}
}

func runMigrations(db *database.DB) error {
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_players_team ON players(team)",
		"CREATE INDEX IF NOT EXISTS idx_lineups_projected_points ON lineups(projected_points DESC)",
	}
	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

func dropTables(db *database.DB) error {
	// reverse of migration order for foreign keys
	all := models.AllModels()
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(all[i]); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
	}
	return nil
}

func seedData(db *database.DB) error {
	slate := &models.Slate{
		Platform:  platform.DraftKings,
		Name:      "NBA Main Slate",
		StartTime: time.Now().Add(2 * time.Hour),
		Players: []models.Player{
			{ExternalID: "dk_001", Name: "Luka Doncic", Team: "DAL", Opponent: "LAL", Position: "PG/SG", Salary: 11200, ProjectedPoints: 55.5},
			{ExternalID: "dk_002", Name: "Trae Young", Team: "ATL", Opponent: "BOS", Position: "PG", Salary: 9800, ProjectedPoints: 48.0},
			{ExternalID: "dk_003", Name: "Ja Morant", Team: "MEM", Opponent: "GSW", Position: "PG", Salary: 9500, ProjectedPoints: 46.5},
			{ExternalID: "dk_004", Name: "Devin Booker", Team: "PHX", Opponent: "DEN", Position: "SG", Salary: 8800, ProjectedPoints: 42.0},
			{ExternalID: "dk_005", Name: "Jaylen Brown", Team: "BOS", Opponent: "ATL", Position: "SG/SF", Salary: 8200, ProjectedPoints: 38.5},
			{ExternalID: "dk_006", Name: "LeBron James", Team: "LAL", Opponent: "DAL", Position: "SF/PF", Salary: 10500, ProjectedPoints: 50.0},
			{ExternalID: "dk_007", Name: "Jayson Tatum", Team: "BOS", Opponent: "ATL", Position: "SF/PF", Salary: 10200, ProjectedPoints: 48.5},
			{ExternalID: "dk_008", Name: "Giannis Antetokounmpo", Team: "MIL", Opponent: "CHI", Position: "PF", Salary: 11800, ProjectedPoints: 58.0},
			{ExternalID: "dk_009", Name: "Kevin Durant", Team: "PHX", Opponent: "DEN", Position: "PF", Salary: 10800, ProjectedPoints: 52.0},
			{ExternalID: "dk_010", Name: "Nikola Jokic", Team: "DEN", Opponent: "PHX", Position: "C", Salary: 12000, ProjectedPoints: 60.0},
			{ExternalID: "dk_011", Name: "Joel Embiid", Team: "PHI", Opponent: "NYK", Position: "C", Salary: 11500, ProjectedPoints: 56.0},
			{ExternalID: "dk_012", Name: "Anthony Davis", Team: "LAL", Opponent: "DAL", Position: "PF/C", Salary: 10000, ProjectedPoints: 48.0},
			{ExternalID: "dk_013", Name: "Tyrese Haliburton", Team: "IND", Opponent: "CLE", Position: "PG", Salary: 8500, ProjectedPoints: 40.0},
			{ExternalID: "dk_014", Name: "CJ McCollum", Team: "NOP", Opponent: "OKC", Position: "SG", Salary: 7200, ProjectedPoints: 34.0},
			{ExternalID: "dk_015", Name: "Brandon Ingram", Team: "NOP", Opponent: "OKC", Position: "SF", Salary: 8000, ProjectedPoints: 38.0},
			{ExternalID: "dk_016", Name: "Alperen Sengun", Team: "HOU", Opponent: "SAS", Position: "C", Salary: 7500, ProjectedPoints: 36.0},
			{ExternalID: "dk_017", Name: "Walker Kessler", Team: "UTA", Opponent: "POR", Position: "C", Salary: 5800, ProjectedPoints: 28.0},
			{ExternalID: "dk_018", Name: "Derrick White", Team: "BOS", Opponent: "ATL", Position: "PG/SG", Salary: 5200, ProjectedPoints: 27.5},
			{ExternalID: "dk_019", Name: "Keldon Johnson", Team: "SAS", Opponent: "HOU", Position: "SF", Salary: 4800, ProjectedPoints: 24.0},
			{ExternalID: "dk_020", Name: "Jalen Duren", Team: "DET", Opponent: "MIA", Position: "C", Salary: 4500, ProjectedPoints: 23.0},
		},
	}

	if err := db.Create(slate).Error; err != nil {
		return fmt.Errorf("failed to create slate: %w", err)
	}

	logrus.Infof("Seeded %d players for slate %s (id %d)", len(slate.Players), slate.Name, slate.ID)
	return nil
}
