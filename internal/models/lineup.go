package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stitts-dev/nba-lineup-optimizer/internal/optimizer"
	"github.com/stitts-dev/nba-lineup-optimizer/internal/platform"
	"gorm.io/datatypes"
)

// OptimizationRun records one lineup generation request and its outcome.
type OptimizationRun struct {
	ID         string         `gorm:"primaryKey;size:36" json:"id"`
	SlateID    *uint          `gorm:"index" json:"slate_id,omitempty"`
	Platform   string         `gorm:"not null" json:"platform"`
	Requested  int            `gorm:"not null" json:"requested"`
	Generated  int            `json:"generated"`
	Attempts   int            `json:"attempts"`
	Rejected   int            `json:"rejected"`
	Locked     datatypes.JSON `json:"locked,omitempty"`
	Excluded   datatypes.JSON `json:"excluded,omitempty"`
	DurationMs int64          `json:"duration_ms"`
	Truncated  bool           `gorm:"not null;default:false" json:"truncated"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`

	Lineups []Lineup `gorm:"foreignKey:OptimizationID;constraint:OnDelete:CASCADE" json:"lineups,omitempty"`
}

func (OptimizationRun) TableName() string {
	return "optimization_runs"
}

type Lineup struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	OptimizationID  string         `gorm:"not null;size:36;index:idx_optimization_rank" json:"optimization_id"`
	Rank            int            `gorm:"not null;index:idx_optimization_rank" json:"rank"`
	Platform        string         `gorm:"not null" json:"platform"`
	TotalSalary     int            `gorm:"not null" json:"total_salary"`
	ProjectedPoints float64        `gorm:"not null" json:"projected_points"`
	TeamCount       int            `json:"team_count"`
	ExportLine      string         `gorm:"not null" json:"export_line"`
	Slots           datatypes.JSON `json:"slots"`
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Lineup) TableName() string {
	return "lineups"
}

// NewLineup captures a generated roster with its upload slot assignment.
func NewLineup(optimizationID string, rank int, rules platform.Rules, roster *optimizer.Roster) (Lineup, error) {
	assigned, err := roster.Assign(rules)
	if err != nil {
		return Lineup{}, fmt.Errorf("lineup %d: %w", rank, err)
	}
	line, err := roster.Line(rules)
	if err != nil {
		return Lineup{}, fmt.Errorf("lineup %d: %w", rank, err)
	}
	slots, err := json.Marshal(assigned)
	if err != nil {
		return Lineup{}, fmt.Errorf("failed to encode slots: %w", err)
	}

	return Lineup{
		OptimizationID:  optimizationID,
		Rank:            rank,
		Platform:        rules.Name,
		TotalSalary:     roster.Spent(),
		ProjectedPoints: roster.Projected(),
		TeamCount:       roster.TeamCount(),
		ExportLine:      line,
		Slots:           datatypes.JSON(slots),
	}, nil
}

// Assignments decodes the stored slot assignment.
func (l *Lineup) Assignments() ([]optimizer.SlotAssignment, error) {
	var assigned []optimizer.SlotAssignment
	if len(l.Slots) == 0 {
		return assigned, nil
	}
	if err := json.Unmarshal(l.Slots, &assigned); err != nil {
		return nil, fmt.Errorf("cannot decode slots of lineup %d: %w", l.ID, err)
	}
	return assigned, nil
}

// Roster rebuilds the optimizer roster in slot order.
func (l *Lineup) Roster() (*optimizer.Roster, error) {
	assigned, err := l.Assignments()
	if err != nil {
		return nil, err
	}
	roster := &optimizer.Roster{Players: make([]optimizer.Player, len(assigned))}
	for i, a := range assigned {
		roster.Players[i] = a.Player
	}
	return roster, nil
}

// AllModels lists every table in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&Slate{},
		&Player{},
		&OptimizationRun{},
		&Lineup{},
	}
}

// JSONList stores a string slice in a JSON column.
func JSONList(values []string) datatypes.JSON {
	if len(values) == 0 {
		return datatypes.JSON("[]")
	}
	b, _ := json.Marshal(values)
	return datatypes.JSON(b)
}
