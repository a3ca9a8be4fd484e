package sources

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"sysconfigd/internal/api"
	"sysconfigd/internal/provisioning/normalize"
)

// Local reads a single file at a configured path, auto-detecting its
// format by extension (spec §4.2). JSON and YAML are supported via
// gopkg.in/yaml.v3, which parses both; KDL and TOML auto-detection named
// in spec §4.2 are not implemented (see DESIGN.md: no pack repo carries a
// KDL or TOML library, and the KDL parser itself is an explicit
// out-of-scope peripheral product per spec §1).
type Local struct {
	Path         string
	PriorityHint int
}

var _ api.MetadataSource = (*Local)(nil)

func (l *Local) Kind() api.MetadataSourceKind { return api.SourceLocal }
func (l *Local) Priority() int                { return l.PriorityHint }

func (l *Local) IsAvailable(ctx context.Context) bool {
	_, err := os.Stat(l.Path)
	return err == nil
}

func (l *Local) Load(ctx context.Context) (api.NormalizedConfig, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return api.NormalizedConfig{}, fmt.Errorf("reading local source %s: %w", l.Path, err)
	}

	var raw map[string]interface{}
	switch strings.ToLower(filepath.Ext(l.Path)) {
	case ".json", ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return api.NormalizedConfig{}, fmt.Errorf("parsing local source %s: %w", l.Path, err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return api.NormalizedConfig{}, fmt.Errorf("parsing local source %s (unrecognized extension, tried YAML): %w", l.Path, err)
		}
	}

	return normalize.Normalize(raw)
}
