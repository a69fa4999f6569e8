package repository

import (
	"encoding/json"
	"fmt"

	"github.com/noah-isme/sma-roster-api/internal/models"
)

// DefaultRosterKey names the roster blob in every backend.
const DefaultRosterKey = "school_db"

func decodeRoster(raw []byte) (*models.Roster, error) {
	roster := models.NewRoster()
	if len(raw) == 0 {
		return roster, nil
	}
	if err := json.Unmarshal(raw, roster); err != nil {
		return nil, fmt.Errorf("decode roster blob: %w", err)
	}
	return roster, nil
}

func encodeRoster(roster *models.Roster) ([]byte, error) {
	if roster == nil {
		roster = models.NewRoster()
	}
	payload, err := json.Marshal(roster)
	if err != nil {
		return nil, fmt.Errorf("encode roster blob: %w", err)
	}
	return payload, nil
}
