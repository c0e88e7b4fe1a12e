package subscription

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"RebarForecast/internal/model"
)

// LoadState reads subscribers from a JSON file. Returns an empty state if the file doesn't exist.
func LoadState(filePath string) (*model.SubscriberState, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.SubscriberState{}, nil
		}
		return nil, fmt.Errorf("read subscribers: %w", err)
	}
	var state model.SubscriberState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode subscribers: %w", err)
	}
	return &state, nil
}

// SaveState writes subscribers to a JSON file, replacing it atomically.
func SaveState(filePath string, state *model.SubscriberState) error {
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode subscribers: %w", err)
	}
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write subscribers: %w", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace subscribers: %w", err)
	}
	return nil
}
