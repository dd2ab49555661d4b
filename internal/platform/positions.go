package platform

import "strings"

// UnknownRank sorts positions outside the standard five after all known ones.
const UnknownRank = 100

var positionRank = map[string]int{
	"PG": 0,
	"SG": 1,
	"SF": 2,
	"PF": 3,
	"C":  4,
}

// ParsePositions splits a position string such as "PG/SG" or "SF,PF" into
// its upper-cased codes. Empty and repeated codes are dropped.
func ParsePositions(position string) []string {
	fields := strings.FieldsFunc(position, func(r rune) bool {
		return r == ',' || r == '/'
	})

	codes := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		code := strings.ToUpper(strings.TrimSpace(f))
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}
	return codes
}

// Matches reports whether a player listed at position counts toward label.
// Every code the player is eligible for must be one of the label's codes, so
// "SG" matches "PG,SG" while "PG,SG" does not match "PG".
func Matches(label, position string) bool {
	playerCodes := ParsePositions(position)
	if len(playerCodes) == 0 {
		return false
	}

	labelCodes := ParsePositions(label)
	for _, code := range playerCodes {
		found := false
		for _, lc := range labelCodes {
			if lc == code {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Rank orders single positions PG < SG < SF < PF < C.
func Rank(position string) int {
	if rank, ok := positionRank[strings.ToUpper(strings.TrimSpace(position))]; ok {
		return rank
	}
	return UnknownRank
}
