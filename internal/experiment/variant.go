// Package experiment decides which landing page variant a visitor sees and
// records experiment exposures.
package experiment

import "strings"

// Variant is a landing page experience.
type Variant string

const (
	VariantMinimal     Variant = "minimal"
	VariantControl     Variant = "control"
	VariantSocialProof Variant = "social-proof"

	// VariantNone is the undecided state. Resolve never returns it.
	VariantNone Variant = ""
)

// Variants lists the known variants in registry order.
var Variants = []Variant{VariantMinimal, VariantControl, VariantSocialProof}

// Source records which input decided the variant.
type Source string

const (
	SourceEnv      Source = "env"
	SourcePostHog  Source = "posthog"
	SourceFallback Source = "fallback"
)

// VariantConfig is the per-request variant decision. It is never stored.
type VariantConfig struct {
	Variant      Variant `json:"variant"`
	IsOverridden bool    `json:"isOverridden"`
	Source       Source  `json:"source"`
}

// Decided reports whether a variant was chosen.
func (c VariantConfig) Decided() bool { return c.Variant != VariantNone }

// Env carries the deployment overrides for variant resolution. An empty
// EnvVariant means none is configured.
type Env struct {
	ForceOverride bool
	EnvVariant    Variant
}

// ParseVariant reports whether raw names a known variant.
func ParseVariant(raw string) (Variant, bool) {
	candidate := Variant(strings.TrimSpace(raw))
	for _, v := range Variants {
		if v == candidate {
			return v, true
		}
	}
	return VariantNone, false
}

// Resolve picks the variant for a visitor. First match wins:
//  1. forced env variant
//  2. known experiment variant
//  3. env default variant
//  4. control
//
// Unknown experiment values are treated as absent.
func Resolve(experimentVariant *string, env Env) VariantConfig {
	envVariant, envOK := ParseVariant(string(env.EnvVariant))

	if env.ForceOverride && envOK {
		return VariantConfig{Variant: envVariant, IsOverridden: true, Source: SourceEnv}
	}
	if experimentVariant != nil {
		if v, ok := ParseVariant(*experimentVariant); ok {
			return VariantConfig{Variant: v, Source: SourcePostHog}
		}
	}
	if envOK {
		return VariantConfig{Variant: envVariant, Source: SourceEnv}
	}
	return VariantConfig{Variant: VariantControl, Source: SourceFallback}
}
