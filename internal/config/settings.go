package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values can be written as "5s" or "2m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// BandSpec is one band of a penalty curve override. Bands are ordered by
// UpTo ascending; the last band of a curve uses UpTo 0 to mean "and above".
type BandSpec struct {
	UpTo     float64 `yaml:"up_to"`
	Penalty  int     `yaml:"penalty"`
	Severity string  `yaml:"severity"`
	Label    string  `yaml:"label"`
}

// Settings are the tunable knobs loaded from the optional config file.
// Zero values fall back to defaults.
type Settings struct {
	// ProbeTimeout bounds each individual probe.
	ProbeTimeout Duration `yaml:"probe_timeout"`

	// AdvancedBudget bounds the whole advanced probe pass.
	AdvancedBudget Duration `yaml:"advanced_budget"`

	// ProbeLimit caps concurrently running probes.
	ProbeLimit int `yaml:"probe_limit"`

	// PerfectScore is the score at or above which a still-slow report
	// escalates the diagnosis to the advanced pass.
	PerfectScore int `yaml:"perfect_score"`

	// WALRatio is the write-ahead-log to database size ratio above which
	// a database is flagged as needing a checkpoint.
	WALRatio float64 `yaml:"wal_ratio_threshold"`

	// BackupBase is the directory backups are created under.
	// Empty means the user's Desktop.
	BackupBase string `yaml:"backup_base"`

	// Curves overrides built-in penalty curves, keyed by curve name.
	Curves map[string][]BandSpec `yaml:"curves"`
}

// DefaultSettings returns the built-in settings.
func DefaultSettings() *Settings {
	return &Settings{
		ProbeTimeout:   Duration(5 * time.Second),
		AdvancedBudget: Duration(20 * time.Second),
		ProbeLimit:     8,
		PerfectScore:   90,
		WALRatio:       0.25,
	}
}

// Dir returns the browsermend config directory, honoring XDG_CONFIG_HOME.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "browsermend"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "browsermend"), nil
}

// Load reads settings from path, or from the default location when path is
// empty. A missing file is not an error; defaults are returned. A file that
// exists but does not parse or validate is.
func Load(path string) (*Settings, error) {
	explicit := path != ""
	if !explicit {
		dir, err := Dir()
		if err != nil {
			return DefaultSettings(), nil
		}
		path = filepath.Join(dir, "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return DefaultSettings(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	s := DefaultSettings()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	s.BackupBase = expandHome(s.BackupBase)
	return s, nil
}

func (s *Settings) validate() error {
	if s.PerfectScore < 0 || s.PerfectScore > 100 {
		return fmt.Errorf("perfect_score must be between 0 and 100, got %d", s.PerfectScore)
	}
	if s.WALRatio <= 0 || s.WALRatio > 1 {
		return fmt.Errorf("wal_ratio_threshold must be in (0, 1], got %g", s.WALRatio)
	}
	if s.ProbeLimit < 1 {
		return fmt.Errorf("probe_limit must be at least 1, got %d", s.ProbeLimit)
	}
	if s.ProbeTimeout.Std() <= 0 {
		return fmt.Errorf("probe_timeout must be positive")
	}
	if s.AdvancedBudget.Std() <= 0 {
		return fmt.Errorf("advanced_budget must be positive")
	}
	for name, bands := range s.Curves {
		if err := validateBands(bands); err != nil {
			return fmt.Errorf("curve %q: %w", name, err)
		}
	}
	return nil
}

// validateBands checks band ordering and that penalties are monotonic in one
// direction: nondecreasing for higher-is-worse metrics (cache sizes, latency)
// or nonincreasing for lower-is-worse ones (free disk space).
func validateBands(bands []BandSpec) error {
	if len(bands) == 0 {
		return errors.New("curve has no bands")
	}
	rising, falling := true, true
	for i := 1; i < len(bands); i++ {
		if bands[i].UpTo != 0 && bands[i].UpTo <= bands[i-1].UpTo {
			return errors.New("bands must have ascending up_to values")
		}
		if bands[i-1].UpTo == 0 {
			return errors.New("only the last band may leave up_to unset")
		}
		if bands[i].Penalty < bands[i-1].Penalty {
			rising = false
		}
		if bands[i].Penalty > bands[i-1].Penalty {
			falling = false
		}
	}
	if !rising && !falling {
		return errors.New("penalties must be monotonic across bands")
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
