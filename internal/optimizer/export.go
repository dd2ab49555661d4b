package optimizer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/stitts-dev/nba-lineup-optimizer/internal/platform"
)

var ErrSlotUnfilled = errors.New("roster cannot fill platform slots")

// SlotAssignment pairs an upload template column with the player in it.
type SlotAssignment struct {
	Slot   string `json:"slot"`
	Player Player `json:"player"`
}

// Assign maps roster players onto the platform's upload columns. Platforms
// without slots use the position-sorted roster. Otherwise each slot takes
// the first remaining player that fits, and the single player left over
// fills the flex column.
func (r *Roster) Assign(rules platform.Rules) ([]SlotAssignment, error) {
	if len(rules.Slots) == 0 {
		header := rules.Header()
		sorted := r.SortedPlayers()
		out := make([]SlotAssignment, len(sorted))
		for i, p := range sorted {
			slot := p.Position
			if i < len(header) {
				slot = header[i]
			}
			out[i] = SlotAssignment{Slot: slot, Player: p}
		}
		return out, nil
	}

	remaining := append([]Player(nil), r.Players...)
	out := make([]SlotAssignment, 0, len(rules.Slots)+1)
	for _, slot := range rules.Slots {
		idx := -1
		for i, p := range remaining {
			if platform.Matches(slot.Label, p.Position) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("%w: no player for %s", ErrSlotUnfilled, slot.Name)
		}
		out = append(out, SlotAssignment{Slot: slot.Name, Player: remaining[idx]})
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}

	if len(remaining) != 1 {
		return nil, fmt.Errorf("%w: %d players left for %s", ErrSlotUnfilled, len(remaining), rules.FlexSlot)
	}
	return append(out, SlotAssignment{Slot: rules.FlexSlot, Player: remaining[0]}), nil
}

// Line renders the roster as one upload row of player IDs.
func (r *Roster) Line(rules platform.Rules) (string, error) {
	assigned, err := r.Assign(rules)
	if err != nil {
		return "", err
	}
	ids := make([]string, len(assigned))
	for i, a := range assigned {
		ids[i] = a.Player.ID
	}
	return strings.Join(ids, ","), nil
}

// WriteCSV writes the upload template header and one row per roster.
func WriteCSV(w io.Writer, rules platform.Rules, rosters []*Roster) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(rules.Header()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, roster := range rosters {
		assigned, err := roster.Assign(rules)
		if err != nil {
			return fmt.Errorf("lineup %d: %w", i+1, err)
		}
		row := make([]string, len(assigned))
		for j, a := range assigned {
			row[j] = a.Player.ID
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write lineup %d: %w", i+1, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
