// metadata.go persists session metadata with the same atomic-write
// discipline as run states.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/louisboilard/autom8/internal/state"
)

const metadataFile = "metadata.json"

// LoadMetadata reads metadata.json from a session directory. Returns
// nil, nil when the file does not exist.
func LoadMetadata(sessionDir string) (*Metadata, error) {
	path := filepath.Join(sessionDir, metadataFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session metadata: %w", err)
	}

	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing session metadata %s: %w", path, err)
	}
	return &m, nil
}

// SaveMetadata atomically writes metadata.json into sessionDir, creating
// the directory if needed.
func SaveMetadata(sessionDir string, m *Metadata) error {
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling session metadata: %w", err)
	}
	return state.WriteFileAtomic(filepath.Join(sessionDir, metadataFile), append(data, '\n'))
}

// Touch updates LastActiveAt and persists.
func Touch(sessionDir string, m *Metadata) error {
	m.LastActiveAt = time.Now().UTC()
	return SaveMetadata(sessionDir, m)
}
