package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/danielpatrickdp/voiceguard/internal/cache"
	"github.com/danielpatrickdp/voiceguard/internal/readability"
	"github.com/danielpatrickdp/voiceguard/internal/validation"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every configuration error a caller can fix.
var ErrInvalid = errors.New("config: invalid")

var validate = validator.New()

// #region config

// Config is the runtime configuration of the CLI and service.
type Config struct {
	MinScore       int     `yaml:"min_score" validate:"gte=1,lte=100"`
	StrictMinScore int     `yaml:"strict_min_score" validate:"gte=1,lte=100"`
	TargetGrade    float64 `yaml:"target_grade" validate:"gte=1,lte=20"`
	Strict         bool    `yaml:"strict"`
	DBPath         string  `yaml:"db_path"`
	RulesFile      string  `yaml:"rules_file"`

	Penalties PenaltyConfig `yaml:"penalties"`
	Cache     CacheConfig   `yaml:"cache"`
}

// PenaltyConfig holds the per-severity deductions of both modes.
type PenaltyConfig struct {
	Standard validation.Penalties `yaml:"standard"`
	Strict   validation.Penalties `yaml:"strict"`
}

// CacheConfig sizes the readability cache.
type CacheConfig struct {
	TTL           time.Duration `yaml:"ttl" validate:"gt=0"`
	Size          int           `yaml:"size" validate:"gte=1"`
	StaleFraction float64       `yaml:"stale_fraction" validate:"gt=0,lt=1"`
}

// Default returns the built-in configuration.
func Default() Config {
	opts := validation.DefaultOptions()
	return Config{
		MinScore:       opts.MinScore,
		StrictMinScore: opts.StrictMinScore,
		TargetGrade:    readability.DefaultConfig().TargetGrade,
		DBPath:         "voiceguard.db",
		Penalties:      PenaltyConfig{Standard: opts.Standard, Strict: opts.Strict},
		Cache: CacheConfig{
			TTL:           10 * time.Minute,
			Size:          512,
			StaleFraction: cache.DefaultStaleFraction,
		},
	}
}

// #endregion config

// #region load

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then VOICEGUARD_* environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decode: %v", ErrInvalid, err)
	}
	return nil
}

// applyEnv overlays environment values. Empty variables are ignored.
func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("VOICEGUARD_MIN_SCORE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: VOICEGUARD_MIN_SCORE=%q", ErrInvalid, v)
		}
		cfg.MinScore = n
	}
	if v := getenv("VOICEGUARD_TARGET_GRADE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: VOICEGUARD_TARGET_GRADE=%q", ErrInvalid, v)
		}
		cfg.TargetGrade = f
	}
	if v := getenv("VOICEGUARD_STRICT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: VOICEGUARD_STRICT=%q", ErrInvalid, v)
		}
		cfg.Strict = b
	}
	if v := getenv("VOICEGUARD_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := getenv("VOICEGUARD_RULES_FILE"); v != "" {
		cfg.RulesFile = v
	}
	if v := getenv("VOICEGUARD_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: VOICEGUARD_CACHE_TTL=%q", ErrInvalid, v)
		}
		cfg.Cache.TTL = d
	}
	if v := getenv("VOICEGUARD_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: VOICEGUARD_CACHE_SIZE=%q", ErrInvalid, v)
		}
		cfg.Cache.Size = n
	}
	return nil
}

// Validate checks the struct constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("%w: %s failed %q (value %v)", ErrInvalid, f.Namespace(), f.Tag(), f.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	// an all-zero block would read as "use the defaults" downstream
	if c.Penalties.Standard == (validation.Penalties{}) {
		return fmt.Errorf("%w: penalties.standard: every penalty is zero", ErrInvalid)
	}
	if c.Penalties.Strict == (validation.Penalties{}) {
		return fmt.Errorf("%w: penalties.strict: every penalty is zero", ErrInvalid)
	}
	return nil
}

// #endregion load

// #region derive

// ValidationOptions returns the scoring options.
func (c Config) ValidationOptions() validation.Options {
	return validation.Options{
		MinScore:       c.MinScore,
		StrictMinScore: c.StrictMinScore,
		Standard:       c.Penalties.Standard,
		Strict:         c.Penalties.Strict,
	}
}

// ReadabilityConfig returns the analyzer thresholds.
func (c Config) ReadabilityConfig() readability.Config {
	rc := readability.DefaultConfig()
	rc.TargetGrade = c.TargetGrade
	return rc
}

// CacheOptions returns options for a cache named name.
func (c Config) CacheOptions(name string, rec cache.Recorder) cache.Options {
	return cache.Options{
		Name:          name,
		TTL:           c.Cache.TTL,
		MaxSize:       c.Cache.Size,
		StaleFraction: c.Cache.StaleFraction,
		Recorder:      rec,
	}
}

// #endregion derive
