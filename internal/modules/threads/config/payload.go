package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ApplyPayload overrides fields from a per-job payload. Unknown or unparsable keys are ignored.
func (c *Config) ApplyPayload(payload map[string]any) {
	if payload == nil {
		return
	}
	if v := floatFromAny(payload["match_threshold"], 0); v > 0 {
		c.MatchThreshold = v
	}
	if v, ok := payload["ambiguity_margin"]; ok {
		c.AmbiguityMargin = floatFromAny(v, c.AmbiguityMargin)
	}
	if v, ok := payload["facet_mismatch_penalty"]; ok {
		c.FacetMismatchPenalty = floatFromAny(v, c.FacetMismatchPenalty)
	}
	if v, ok := payload["text_weight"]; ok {
		c.TextWeight = floatFromAny(v, c.TextWeight)
	}
	if v := intFromAny(payload["complexity_novel_terms"], 0); v > 0 {
		c.ComplexityNovelTerms = v
	}
	if v := intFromAny(payload["advanced_complexity"], 0); v > 0 {
		c.AdvancedComplexity = v
	}
	if v := intFromAny(payload["advanced_min_lectures"], 0); v > 0 {
		c.AdvancedMinLectures = v
	}
	if v := intFromAny(payload["face_shift_margin"], 0); v > 0 {
		c.FaceShiftMargin = v
	}
	if v := intFromAny(payload["dice_max_iterations"], 0); v > 0 {
		c.DiceMaxIterations = v
	}
	if v := floatFromAny(payload["dice_equilibrium_gap"], 0); v > 0 {
		c.DiceEquilibriumGap = v
	}
	if v := floatFromAny(payload["dice_collapse_dominance"], 0); v > 0 {
		c.DiceCollapseDominance = v
	}
	if v, ok := payload["dice_collapse_floor"]; ok {
		c.DiceCollapseFloor = floatFromAny(v, c.DiceCollapseFloor)
	}
	if v := floatFromAny(payload["dice_learning_rate"], 0); v > 0 {
		c.DiceLearningRate = v
	}
	if v, ok := payload["dice_order_bias"]; ok {
		c.DiceOrderBias = floatFromAny(v, c.DiceOrderBias)
	}
	if v, ok := payload["dice_weight_influence"]; ok {
		c.DiceWeightInfluence = floatFromAny(v, c.DiceWeightInfluence)
	}
	if v := strings.TrimSpace(stringFromAny(payload["default_mode"])); v != "" {
		c.DefaultMode = v
	}
	if v := boolFromAny(payload["graph_sync_enabled"], c.GraphSyncEnabled); v != c.GraphSyncEnabled {
		c.GraphSyncEnabled = v
	}
	_ = c.Validate()
}

func stringFromAny(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func intFromAny(v any, def int) int {
	if v == nil {
		return def
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return def
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int(f)) {
		return int(f)
	}
	return def
}

func floatFromAny(v any, def float64) float64 {
	if v == nil {
		return def
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if s == "" {
		return def
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func boolFromAny(v any, def bool) bool {
	if v == nil {
		return def
	}
	switch strings.TrimSpace(strings.ToLower(fmt.Sprint(v))) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
}
