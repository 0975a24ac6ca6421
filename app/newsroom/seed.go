package newsroom

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/newsroom/app/database"
)

// Seed is the editorial starting point read from YAML.
type Seed struct {
	Editor    database.Editor `yaml:"editor"`
	Reporters []SeedReporter  `yaml:"reporters"`
}

type SeedReporter struct {
	ID      string   `yaml:"id"`
	Beats   []string `yaml:"beats"`
	Prompt  string   `yaml:"prompt"`
	Enabled bool     `yaml:"enabled"`
}

func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	seed.Editor.ApplyDefaults()

	if err := seed.validate(); err != nil {
		return nil, fmt.Errorf("invalid seed %s: %w", path, err)
	}

	return &seed, nil
}

func (s *Seed) validate() error {
	if err := s.Editor.Validate(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(s.Reporters))
	for i, reporter := range s.Reporters {
		if reporter.ID == "" {
			return fmt.Errorf("reporter at index %d: id is required", i)
		}
		if reporter.Prompt == "" {
			return fmt.Errorf("reporter %s: prompt is required", reporter.ID)
		}
		if seen[reporter.ID] {
			return fmt.Errorf("reporter %s is defined more than once", reporter.ID)
		}
		seen[reporter.ID] = true
	}

	return nil
}

// Apply stores the seed editor when no editor has been configured yet and
// creates seeded reporters that do not exist. Existing data is never
// overwritten.
func (s *Seed) Apply(ctx context.Context, store database.Store, now time.Time) error {
	current, err := store.GetEditor(ctx)
	if err != nil {
		return fmt.Errorf("failed to load editor: %w", err)
	}
	if current.Prompt == "" && current.Bio == "" {
		if err := store.SaveEditor(ctx, &s.Editor); err != nil {
			return fmt.Errorf("failed to seed editor: %w", err)
		}
		slog.Info("Editor seeded", "model", s.Editor.ModelName)
	}

	created := 0
	for _, seeded := range s.Reporters {
		_, err := store.GetReporter(ctx, seeded.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("failed to load reporter %s: %w", seeded.ID, err)
		}

		reporter := &database.Reporter{
			ID:        seeded.ID,
			Beats:     seeded.Beats,
			Prompt:    seeded.Prompt,
			Enabled:   seeded.Enabled,
			CreatedAt: now,
		}
		if err := store.SaveReporter(ctx, reporter); err != nil {
			return fmt.Errorf("failed to seed reporter %s: %w", seeded.ID, err)
		}
		created++

		slog.Debug("Reporter seeded", "reporter", reporter.ID, "enabled", reporter.Enabled, "beats", reporter.Beats)
	}

	slog.Info("Seed applied", "reporters", len(s.Reporters), "created", created)
	return nil
}
