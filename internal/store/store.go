package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/scalpel-replay/api/schemas"
	"github.com/xkilldash9x/scalpel-replay/internal/pipeline"
)

// Format identifies an on-disk encoding for action files and reports.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrUnsupportedFormat is returned for file extensions or formats without a codec.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// Encode serializes actions in the given format.
func Encode(actions []schemas.Action, format Format) ([]byte, error) {
	if actions == nil {
		actions = []schemas.Action{}
	}
	return marshal(actions, format)
}

// Decode parses and validates an action list. Both formats expect a top level
// sequence whose entries are objects.
func Decode(data []byte, format Format) ([]schemas.Action, error) {
	switch format {
	case FormatJSON:
		return pipeline.DecodeActions(data)
	case FormatYAML:
		return decodeYAML(data)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

func decodeYAML(data []byte) ([]schemas.Action, error) {
	var entries []yaml.Node
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode action list: %w", err)
	}

	actions := make([]schemas.Action, 0, len(entries))
	for i := range entries {
		if entries[i].Kind != yaml.MappingNode {
			return nil, &pipeline.InvalidActionError{Index: i, Reason: "entry is not an object"}
		}
		var action schemas.Action
		if err := entries[i].Decode(&action); err != nil {
			return nil, &pipeline.InvalidActionError{Index: i, Reason: err.Error()}
		}
		actions = append(actions, action)
	}

	if err := pipeline.ValidateActions(actions); err != nil {
		return nil, err
	}
	return actions, nil
}

func marshal(v any, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode json: %w", err)
		}
		return append(data, '\n'), nil
	case FormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode yaml: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// Store reads and writes action files and playback reports on the local
// filesystem, choosing the encoding from the file extension.
type Store struct {
	log *zap.Logger
}

// New creates a store.
func New(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{log: logger.Named("store")}
}

// Load reads and validates the action file at path.
func (s *Store) Load(path string) ([]schemas.Action, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read action file: %w", err)
	}
	actions, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	s.log.Debug("Loaded actions.", zap.String("path", path), zap.Int("count", len(actions)))
	return actions, nil
}

// Save writes actions to path.
func (s *Store) Save(path string, actions []schemas.Action) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := Encode(actions, format)
	if err != nil {
		return err
	}
	if err := writeFile(path, data); err != nil {
		return err
	}
	s.log.Debug("Saved actions.", zap.String("path", path), zap.Int("count", len(actions)))
	return nil
}

// SaveValue writes any serializable value, such as a playback report, to path.
func (s *Store) SaveValue(path string, v any) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := marshal(v, format)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

// writeFile replaces path atomically so readers never observe a partial file.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
