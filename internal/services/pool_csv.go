package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/stitts-dev/nba-lineup-optimizer/internal/optimizer"
)

var ErrMissingColumn = errors.New("missing required column")

// poolColumns maps accepted header spellings onto player fields.
var poolColumns = map[string]string{
	"id":               "id",
	"player_id":        "id",
	"external_id":      "id",
	"name":             "name",
	"player":           "name",
	"team":             "team",
	"opponent":         "opponent",
	"opp":              "opponent",
	"position":         "position",
	"pos":              "position",
	"salary":           "salary",
	"projected_points": "projected_points",
	"proj_points":      "projected_points",
	"fppg":             "projected_points",
	"is_injured":       "is_injured",
	"injured":          "is_injured",
}

var requiredPoolColumns = []string{"id", "team", "position", "salary", "projected_points"}

// ReadPlayerPool parses a player pool CSV. Column order is free and header
// names are matched case-insensitively.
func ReadPlayerPool(r io.Reader) ([]optimizer.Player, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("player pool is empty")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int)
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if field, ok := poolColumns[key]; ok {
			if _, dup := index[field]; !dup {
				index[field] = i
			}
		}
	}
	for _, field := range requiredPoolColumns {
		if _, ok := index[field]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, field)
		}
	}

	get := func(record []string, field string) string {
		i, ok := index[field]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var players []optimizer.Player
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		salary, err := strconv.Atoi(get(record, "salary"))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid salary %q", line, get(record, "salary"))
		}
		points, err := strconv.ParseFloat(get(record, "projected_points"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid projected points %q", line, get(record, "projected_points"))
		}

		p := optimizer.Player{
			ID:              get(record, "id"),
			Name:            get(record, "name"),
			Team:            get(record, "team"),
			Opponent:        get(record, "opponent"),
			Position:        get(record, "position"),
			Salary:          salary,
			ProjectedPoints: points,
		}
		if v := get(record, "is_injured"); v != "" {
			p.IsInjured, _ = strconv.ParseBool(v)
		}
		if p.ID == "" || p.Position == "" {
			return nil, fmt.Errorf("line %d: id and position are required", line)
		}
		players = append(players, p)
	}

	return players, nil
}
