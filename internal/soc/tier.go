package soc

import (
	"fmt"
	"math"
	"strconv"
)

// ColorTier is the charge band a SoC value falls into
type ColorTier int

const (
	Low ColorTier = iota
	Medium
	High
)

const tierCount = 3

// String returns the lower-case tier name
func (t ColorTier) String() string {
	switch t {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

// MarshalText encodes the tier by name
func (t ColorTier) MarshalText() ([]byte, error) {
	if t < Low || t > High {
		return nil, fmt.Errorf("invalid color tier %d", int(t))
	}
	return []byte(t.String()), nil
}

// Color is a CSS rgba() color. It marshals to its CSS string.
type Color struct {
	R, G, B uint8
	A       float64 // 0..1
}

// RGBA builds a Color
func RGBA(r, g, b uint8, a float64) Color {
	return Color{R: r, G: g, B: b, A: a}
}

// String renders the color as "rgba(r, g, b, a)"
func (c Color) String() string {
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", c.R, c.G, c.B, strconv.FormatFloat(c.A, 'f', -1, 64))
}

// Opaque returns the same hue at full opacity
func (c Color) Opaque() Color {
	c.A = 1
	return c
}

// Alpha8 returns the alpha channel scaled to 0..255
func (c Color) Alpha8() uint8 {
	a := math.Max(0, math.Min(1, c.A))
	return uint8(math.Round(a * 255))
}

// MarshalText encodes the color as its CSS string
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// TierStyle is the fill and border color of one tier
type TierStyle struct {
	Fill   Color
	Border Color
}

// Policy maps SoC values to tiers and tiers to colors.
// Both thresholds are inclusive lower bounds: v >= HighThreshold is High,
// LowThreshold <= v < HighThreshold is Medium, everything else is Low.
type Policy struct {
	LowThreshold  float64
	HighThreshold float64
	Styles        [tierCount]TierStyle
}

var (
	green = RGBA(40, 167, 69, 0.6)
	blue  = RGBA(0, 123, 255, 0.6)
	red   = RGBA(220, 53, 69, 0.6)
)

// DefaultPolicy is the 30/80 split with red, blue and green bars
var DefaultPolicy = Policy{
	LowThreshold:  30,
	HighThreshold: 80,
	Styles: [tierCount]TierStyle{
		Low:    {Fill: red, Border: red.Opaque()},
		Medium: {Fill: blue, Border: blue.Opaque()},
		High:   {Fill: green, Border: green.Opaque()},
	},
}

// WithThresholds returns a copy of p using the given thresholds.
// Both must lie within [0, 100] with low below high.
func (p Policy) WithThresholds(low, high float64) (Policy, error) {
	if math.IsNaN(low) || math.IsNaN(high) || low >= high {
		return p, fmt.Errorf("invalid SoC thresholds: low=%v high=%v", low, high)
	}
	if low < 0 || high > 100 {
		return p, fmt.Errorf("SoC thresholds must lie within [0, 100]: low=%v high=%v", low, high)
	}
	p.LowThreshold = low
	p.HighThreshold = high
	return p, nil
}

// Classify returns the tier of v. It is total: NaN compares false everywhere and lands in Low.
func (p Policy) Classify(v float64) ColorTier {
	if v >= p.HighThreshold {
		return High
	}
	if v >= p.LowThreshold {
		return Medium
	}
	return Low
}

// Style returns the colors of a tier
func (p Policy) Style(t ColorTier) TierStyle {
	if t < Low || t > High {
		t = Low
	}
	return p.Styles[t]
}

// DeriveColors maps every value to its tier colors, index-aligned with data
func (p Policy) DeriveColors(data []float64) (fill, border []Color) {
	fill = make([]Color, len(data))
	border = make([]Color, len(data))
	for i, v := range data {
		style := p.Style(p.Classify(v))
		fill[i] = style.Fill
		border[i] = style.Border
	}
	return fill, border
}

// Classify classifies v with DefaultPolicy
func Classify(v float64) ColorTier {
	return DefaultPolicy.Classify(v)
}

// DeriveColors derives colors with DefaultPolicy
func DeriveColors(data []float64) (fill, border []Color) {
	return DefaultPolicy.DeriveColors(data)
}
