package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"genstory/internal/llm"
)

// Record is one output entry. Optional metadata keys are present only
// when the source value was non-empty.
type Record struct {
	VideoID        string      `json:"video_id"`
	Stories        []llm.Story `json:"stories"`
	Title          string      `json:"title,omitempty"`
	Channel        string      `json:"channel,omitempty"`
	ParentCategory string      `json:"parent_category,omitempty"`
	FineCategory   string      `json:"fine_category,omitempty"`
}

// Save writes records as a single indented JSON array, creating missing
// parent directories and overwriting the destination. Non-ASCII text is
// written verbatim.
func Save(records []Record, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}

	return nil
}

// Load reads a results file written by Save.
func Load(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results file: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse results file: %w", err)
	}
	return records, nil
}
