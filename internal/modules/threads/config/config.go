package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	threads "github.com/yungbote/neurobridge-threads/internal/domain/threads"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/continuity"
	"github.com/yungbote/neurobridge-threads/internal/modules/threads/dice"
	"github.com/yungbote/neurobridge-threads/internal/platform/envutil"
)

var ErrInvalidConfig = errors.New("threads: invalid config")

const (
	LockBackendRedis    = "redis"
	LockBackendPostgres = "postgres"
	LockBackendFlock    = "flock"
	LockBackendLocal    = "local"
)

// Config is the full engine configuration. Field names double as YAML/TOML keys.
type Config struct {
	MatchThreshold       float64 `yaml:"match_threshold" toml:"match_threshold"`
	AmbiguityMargin      float64 `yaml:"ambiguity_margin" toml:"ambiguity_margin"`
	FacetMismatchPenalty float64 `yaml:"facet_mismatch_penalty" toml:"facet_mismatch_penalty"`
	TextWeight           float64 `yaml:"text_weight" toml:"text_weight"`
	ComplexityNovelTerms int     `yaml:"complexity_novel_terms" toml:"complexity_novel_terms"`
	AdvancedComplexity   int     `yaml:"advanced_complexity" toml:"advanced_complexity"`
	AdvancedMinLectures  int     `yaml:"advanced_min_lectures" toml:"advanced_min_lectures"`
	FaceShiftMargin      int     `yaml:"face_shift_margin" toml:"face_shift_margin"`

	DiceMaxIterations     int     `yaml:"dice_max_iterations" toml:"dice_max_iterations"`
	DiceEquilibriumGap    float64 `yaml:"dice_equilibrium_gap" toml:"dice_equilibrium_gap"`
	DiceCollapseDominance float64 `yaml:"dice_collapse_dominance" toml:"dice_collapse_dominance"`
	DiceCollapseFloor     float64 `yaml:"dice_collapse_floor" toml:"dice_collapse_floor"`
	DiceLearningRate      float64 `yaml:"dice_learning_rate" toml:"dice_learning_rate"`
	DiceOrderBias         float64 `yaml:"dice_order_bias" toml:"dice_order_bias"`
	DiceWeightInfluence   float64 `yaml:"dice_weight_influence" toml:"dice_weight_influence"`

	DefaultMode string `yaml:"default_mode" toml:"default_mode"`
	// Profiles are operator-defined course modes: name -> facet label or color -> weight.
	Profiles map[string]map[string]float64 `yaml:"profiles" toml:"profiles"`

	LockBackend     string `yaml:"lock_backend" toml:"lock_backend"`
	LockTTLSeconds  int    `yaml:"lock_ttl_seconds" toml:"lock_ttl_seconds"`
	LockWaitSeconds int    `yaml:"lock_wait_seconds" toml:"lock_wait_seconds"`
	LockDir         string `yaml:"lock_dir" toml:"lock_dir"`

	Concurrency      int    `yaml:"concurrency" toml:"concurrency"`
	MetricsChannel   string `yaml:"metrics_channel" toml:"metrics_channel"`
	GraphSyncEnabled bool   `yaml:"graph_sync_enabled" toml:"graph_sync_enabled"`
}

func Default() Config {
	cc := continuity.DefaultConfig()
	dc := dice.DefaultConfig()
	return Config{
		MatchThreshold:        cc.MatchThreshold,
		AmbiguityMargin:       cc.AmbiguityMargin,
		FacetMismatchPenalty:  cc.FacetMismatchPenalty,
		TextWeight:            cc.TextWeight,
		ComplexityNovelTerms:  cc.ComplexityNovelTerms,
		AdvancedComplexity:    cc.AdvancedComplexity,
		AdvancedMinLectures:   cc.AdvancedMinLectures,
		FaceShiftMargin:       cc.FaceShiftMargin,
		DiceMaxIterations:     dc.MaxIterations,
		DiceEquilibriumGap:    dc.EquilibriumGap,
		DiceCollapseDominance: dc.CollapseDominance,
		DiceCollapseFloor:     dc.CollapseFloor,
		DiceLearningRate:      dc.LearningRate,
		DiceOrderBias:         dc.OrderBias,
		DiceWeightInfluence:   dc.WeightInfluence,
		DefaultMode:           string(threads.ModeOpen),
		LockBackend:           LockBackendLocal,
		LockTTLSeconds:        120,
		LockWaitSeconds:       30,
		Concurrency:           4,
		MetricsChannel:        "thread_metrics",
		GraphSyncEnabled:      true,
	}
}

func LoadConfigFromEnv() Config {
	d := Default()
	cfg := Config{
		MatchThreshold:        envutil.Float("THREADS_MATCH_THRESHOLD", d.MatchThreshold),
		AmbiguityMargin:       envutil.Float("THREADS_AMBIGUITY_MARGIN", d.AmbiguityMargin),
		FacetMismatchPenalty:  envutil.Float("THREADS_FACET_MISMATCH_PENALTY", d.FacetMismatchPenalty),
		TextWeight:            envutil.Float("THREADS_TEXT_WEIGHT", d.TextWeight),
		ComplexityNovelTerms:  envutil.Int("THREADS_COMPLEXITY_NOVEL_TERMS", d.ComplexityNovelTerms),
		AdvancedComplexity:    envutil.Int("THREADS_ADVANCED_COMPLEXITY", d.AdvancedComplexity),
		AdvancedMinLectures:   envutil.Int("THREADS_ADVANCED_MIN_LECTURES", d.AdvancedMinLectures),
		FaceShiftMargin:       envutil.Int("THREADS_FACE_SHIFT_MARGIN", d.FaceShiftMargin),
		DiceMaxIterations:     envutil.Int("DICE_MAX_ITERATIONS", d.DiceMaxIterations),
		DiceEquilibriumGap:    envutil.Float("DICE_EQUILIBRIUM_GAP", d.DiceEquilibriumGap),
		DiceCollapseDominance: envutil.Float("DICE_COLLAPSE_DOMINANCE", d.DiceCollapseDominance),
		DiceCollapseFloor:     envutil.Float("DICE_COLLAPSE_FLOOR", d.DiceCollapseFloor),
		DiceLearningRate:      envutil.Float("DICE_LEARNING_RATE", d.DiceLearningRate),
		DiceOrderBias:         envutil.Float("DICE_ORDER_BIAS", d.DiceOrderBias),
		DiceWeightInfluence:   envutil.Float("DICE_WEIGHT_INFLUENCE", d.DiceWeightInfluence),
		DefaultMode:           envutil.String("THREADS_DEFAULT_MODE", d.DefaultMode),
		LockBackend:           strings.ToLower(envutil.String("THREADS_LOCK_BACKEND", d.LockBackend)),
		LockTTLSeconds:        envutil.Int("THREADS_LOCK_TTL_SECONDS", d.LockTTLSeconds),
		LockWaitSeconds:       envutil.Int("THREADS_LOCK_WAIT_SECONDS", d.LockWaitSeconds),
		LockDir:               envutil.String("THREADS_LOCK_DIR", d.LockDir),
		Concurrency:           envutil.Int("THREADS_CONCURRENCY", d.Concurrency),
		MetricsChannel:        envutil.String("THREADS_METRICS_CHANNEL", d.MetricsChannel),
		GraphSyncEnabled:      envutil.Bool("THREADS_GRAPH_SYNC_ENABLED", d.GraphSyncEnabled),
	}
	if path := strings.TrimSpace(os.Getenv("THREADS_CONFIG_FILE")); path != "" {
		if fromFile, err := LoadFile(path, cfg); err == nil {
			cfg = fromFile
		}
	}
	_ = cfg.Validate()
	return cfg
}

// LoadFile overlays a YAML (.yaml/.yml) or TOML (.toml) file on base. Keys absent from
// the file keep base's values.
func LoadFile(path string, base Config) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := base
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &cfg)
	case ".toml":
		err = toml.Unmarshal(raw, &cfg)
	default:
		return base, fmt.Errorf("%w: unsupported config extension %q", ErrInvalidConfig, filepath.Ext(path))
	}
	if err != nil {
		return base, fmt.Errorf("%w: decode %s: %v", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return base, err
	}
	return cfg, nil
}

// Validate repairs out-of-range numbers with defaults and rejects settings that cannot
// be repaired.
func (c *Config) Validate() error {
	cc := c.Continuity()
	c.MatchThreshold, c.AmbiguityMargin, c.FacetMismatchPenalty, c.TextWeight = cc.MatchThreshold, cc.AmbiguityMargin, cc.FacetMismatchPenalty, cc.TextWeight
	c.ComplexityNovelTerms, c.AdvancedComplexity, c.AdvancedMinLectures, c.FaceShiftMargin = cc.ComplexityNovelTerms, cc.AdvancedComplexity, cc.AdvancedMinLectures, cc.FaceShiftMargin

	dc := c.Dice()
	c.DiceMaxIterations, c.DiceEquilibriumGap, c.DiceCollapseDominance, c.DiceCollapseFloor = dc.MaxIterations, dc.EquilibriumGap, dc.CollapseDominance, dc.CollapseFloor
	c.DiceLearningRate, c.DiceOrderBias, c.DiceWeightInfluence = dc.LearningRate, dc.OrderBias, dc.WeightInfluence

	d := Default()
	if c.LockTTLSeconds <= 0 {
		c.LockTTLSeconds = d.LockTTLSeconds
	}
	if c.LockWaitSeconds <= 0 {
		c.LockWaitSeconds = d.LockWaitSeconds
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if strings.TrimSpace(c.MetricsChannel) == "" {
		c.MetricsChannel = d.MetricsChannel
	}
	if strings.TrimSpace(c.DefaultMode) == "" {
		c.DefaultMode = d.DefaultMode
	}

	c.LockBackend = strings.ToLower(strings.TrimSpace(c.LockBackend))
	switch c.LockBackend {
	case "":
		c.LockBackend = d.LockBackend
	case LockBackendRedis, LockBackendPostgres, LockBackendFlock, LockBackendLocal:
	default:
		return fmt.Errorf("%w: unknown lock backend %q", ErrInvalidConfig, c.LockBackend)
	}
	if _, err := c.CustomProfiles(); err != nil {
		return err
	}
	return nil
}

func (c Config) Continuity() continuity.Config {
	return continuity.Config{
		MatchThreshold:       c.MatchThreshold,
		AmbiguityMargin:      c.AmbiguityMargin,
		FacetMismatchPenalty: c.FacetMismatchPenalty,
		TextWeight:           c.TextWeight,
		ComplexityNovelTerms: c.ComplexityNovelTerms,
		AdvancedComplexity:   c.AdvancedComplexity,
		AdvancedMinLectures:  c.AdvancedMinLectures,
		FaceShiftMargin:      c.FaceShiftMargin,
	}.Normalized()
}

func (c Config) Dice() dice.Config {
	return dice.Config{
		MaxIterations:     c.DiceMaxIterations,
		EquilibriumGap:    c.DiceEquilibriumGap,
		CollapseDominance: c.DiceCollapseDominance,
		CollapseFloor:     c.DiceCollapseFloor,
		LearningRate:      c.DiceLearningRate,
		OrderBias:         c.DiceOrderBias,
		WeightInfluence:   c.DiceWeightInfluence,
	}.Normalized()
}

func (c Config) LockTTL() time.Duration  { return time.Duration(c.LockTTLSeconds) * time.Second }
func (c Config) LockWait() time.Duration { return time.Duration(c.LockWaitSeconds) * time.Second }

// CustomProfiles parses Profiles into facet-keyed weights under upper-case names.
func (c Config) CustomProfiles() (map[string]map[threads.Facet]float64, error) {
	if len(c.Profiles) == 0 {
		return nil, nil
	}
	out := make(map[string]map[threads.Facet]float64, len(c.Profiles))
	for name, weights := range c.Profiles {
		key := strings.ToUpper(strings.TrimSpace(name))
		if key == "" {
			return nil, fmt.Errorf("%w: empty profile name", ErrInvalidConfig)
		}
		parsed := make(map[threads.Facet]float64, len(weights))
		for label, w := range weights {
			f, err := threads.ParseFacet(label)
			if err != nil {
				return nil, fmt.Errorf("%w: profile %s: %v", ErrInvalidConfig, key, err)
			}
			parsed[f] = w
		}
		out[key] = parsed
	}
	return out, nil
}
