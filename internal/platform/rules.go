package platform

import (
	"errors"
	"fmt"
	"strings"
)

// Platform identifiers accepted by Lookup.
const (
	FanDuel    = "FanDuel"
	DraftKings = "DraftKings"
	Yahoo      = "Yahoo"
)

var ErrUnknownPlatform = errors.New("unknown platform")

// PositionLimit bounds how many selected players may match Label.
type PositionLimit struct {
	Label string `json:"label"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
}

// Slot is one column of a platform upload template. Label is matched
// against player positions the same way as position limits.
type Slot struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// Rules is the immutable roster configuration of one platform.
type Rules struct {
	Name           string          `json:"name"`
	PositionLimits []PositionLimit `json:"position_limits"`
	SalaryCap      int             `json:"salary_cap"`
	RosterSize     int             `json:"roster_size"`

	// MaxPerTeam caps players drawn from a single team; zero disables it.
	MaxPerTeam int `json:"max_per_team,omitempty"`
	// MinTeams is the distinct team count a lineup needs to be accepted.
	MinTeams int `json:"min_teams,omitempty"`

	// MultiPosition splits "PG/SG" style players into per-position clones.
	MultiPosition bool `json:"multi_position"`

	// Slots drives the per-slot upload line. When empty, the line is the
	// position-sorted roster. FlexSlot names the column for the leftover player.
	Slots    []Slot `json:"slots,omitempty"`
	FlexSlot string `json:"flex_slot,omitempty"`
}

// Header returns the upload template column names.
func (r Rules) Header() []string {
	if len(r.Slots) == 0 {
		header := make([]string, 0, r.RosterSize)
		for _, limit := range r.PositionLimits {
			for i := 0; i < limit.Min; i++ {
				header = append(header, limit.Label)
			}
		}
		return header
	}

	header := make([]string, 0, len(r.Slots)+1)
	for _, slot := range r.Slots {
		header = append(header, slot.Name)
	}
	return append(header, r.FlexSlot)
}

func hybridLimits() []PositionLimit {
	return []PositionLimit{
		{Label: "PG", Min: 1, Max: 3},
		{Label: "SG", Min: 1, Max: 3},
		{Label: "SF", Min: 1, Max: 3},
		{Label: "PF", Min: 1, Max: 3},
		{Label: "C", Min: 1, Max: 2},
		{Label: "PG,SG", Min: 3, Max: 4},
		{Label: "SF,PF", Min: 3, Max: 4},
	}
}

// FanDuelRules returns the FanDuel NBA classic rules.
func FanDuelRules() Rules {
	return Rules{
		Name: FanDuel,
		PositionLimits: []PositionLimit{
			{Label: "PG", Min: 2, Max: 2},
			{Label: "SG", Min: 2, Max: 2},
			{Label: "SF", Min: 2, Max: 2},
			{Label: "PF", Min: 2, Max: 2},
			{Label: "C", Min: 1, Max: 1},
		},
		SalaryCap:  60000,
		RosterSize: 9,
	}
}

// DraftKingsRules returns the DraftKings NBA classic rules.
func DraftKingsRules() Rules {
	return Rules{
		Name:           DraftKings,
		PositionLimits: hybridLimits(),
		SalaryCap:      50000,
		RosterSize:     8,
		MultiPosition:  true,
		Slots: []Slot{
			{Name: "PG", Label: "PG"},
			{Name: "SG", Label: "SG"},
			{Name: "SF", Label: "SF"},
			{Name: "PF", Label: "PF"},
			{Name: "C", Label: "C"},
			{Name: "G", Label: "PG,SG"},
			{Name: "F", Label: "SF,PF"},
		},
		FlexSlot: "UTIL",
	}
}

// YahooRules returns the Yahoo NBA rules.
func YahooRules() Rules {
	return Rules{
		Name:           Yahoo,
		PositionLimits: hybridLimits(),
		SalaryCap:      200,
		RosterSize:     8,
		MaxPerTeam:     6,
		MinTeams:       3,
		Slots: []Slot{
			{Name: "PG", Label: "PG"},
			{Name: "SG", Label: "SG"},
			{Name: "G", Label: "PG,SG"},
			{Name: "SF", Label: "SF"},
			{Name: "PF", Label: "PF"},
			{Name: "F", Label: "SF,PF"},
			{Name: "C", Label: "C"},
		},
		FlexSlot: "UTIL",
	}
}

// Names lists the built-in platforms in display order.
func Names() []string {
	return []string{FanDuel, DraftKings, Yahoo}
}

// Lookup returns a fresh copy of the named platform's rules.
func Lookup(name string) (Rules, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fanduel":
		return FanDuelRules(), nil
	case "draftkings":
		return DraftKingsRules(), nil
	case "yahoo":
		return YahooRules(), nil
	}
	return Rules{}, fmt.Errorf("%w: %q", ErrUnknownPlatform, name)
}

// All returns the rules of every built-in platform.
func All() []Rules {
	rules := make([]Rules, 0, 3)
	for _, name := range Names() {
		r, _ := Lookup(name)
		rules = append(rules, r)
	}
	return rules
}
