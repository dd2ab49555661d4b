package models

import (
	"time"

	"github.com/stitts-dev/nba-lineup-optimizer/internal/optimizer"
)

// Slate is one contest day's player pool on one platform.
type Slate struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Platform  string    `gorm:"not null;index" json:"platform"` // "FanDuel", "DraftKings" or "Yahoo"
	Name      string    `gorm:"not null" json:"name"`
	StartTime time.Time `json:"start_time"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Players []Player `gorm:"foreignKey:SlateID;constraint:OnDelete:CASCADE" json:"players,omitempty"`
}

// TableName specifies the table name for GORM
func (Slate) TableName() string {
	return "slates"
}

// OptimizerPlayers converts the slate's players for the optimizer.
func (s *Slate) OptimizerPlayers() []optimizer.Player {
	players := make([]optimizer.Player, len(s.Players))
	for i := range s.Players {
		players[i] = s.Players[i].ToOptimizerPlayer()
	}
	return players
}

type Player struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	SlateID         uint      `gorm:"not null;index:idx_slate_external,unique" json:"slate_id"`
	ExternalID      string    `gorm:"not null;index:idx_slate_external,unique" json:"external_id"`
	Name            string    `json:"name"`
	Team            string    `gorm:"not null" json:"team"`
	Opponent        string    `json:"opponent"`
	Position        string    `gorm:"not null" json:"position"` // "PG", "PG/SG", ...
	Salary          int       `gorm:"not null" json:"salary"`
	ProjectedPoints float64   `gorm:"not null" json:"projected_points"`
	IsInjured       bool      `gorm:"default:false" json:"is_injured"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Player) TableName() string {
	return "players"
}

// ToOptimizerPlayer keys the player by its platform id.
func (p Player) ToOptimizerPlayer() optimizer.Player {
	return optimizer.Player{
		ID:              p.ExternalID,
		Name:            p.Name,
		Team:            p.Team,
		Opponent:        p.Opponent,
		Position:        p.Position,
		Salary:          p.Salary,
		ProjectedPoints: p.ProjectedPoints,
		IsInjured:       p.IsInjured,
	}
}

// PlayerFromOptimizer is the inverse of ToOptimizerPlayer.
func PlayerFromOptimizer(slateID uint, p optimizer.Player) Player {
	return Player{
		SlateID:         slateID,
		ExternalID:      p.ID,
		Name:            p.Name,
		Team:            p.Team,
		Opponent:        p.Opponent,
		Position:        p.Position,
		Salary:          p.Salary,
		ProjectedPoints: p.ProjectedPoints,
		IsInjured:       p.IsInjured,
	}
}
