package soc

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		value float64
		want  ColorTier
	}{
		{80, High},
		{79.999, Medium},
		{30, Medium},
		{29.999, Low},
		{-5, Low},
		{150, High},
		{0, Low},
		{100, High},
		{50, Medium},
		{math.Inf(1), High},
		{math.Inf(-1), Low},
		{math.NaN(), Low},
	}

	for _, tt := range tests {
		t.Run(formatValue(tt.value), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.value))
		})
	}
}

func TestClassify_IsStable(t *testing.T) {
	for _, v := range []float64{-1, 0, 29.5, 30, 64, 80, 99} {
		first := Classify(v)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, Classify(v), "value %v", v)
		}
	}
}

func TestDeriveColors_IndexAligned(t *testing.T) {
	data := []float64{10, 50, 90, 30, 80, 29.9, -3}

	fill, border := DeriveColors(data)
	require.Len(t, fill, len(data))
	require.Len(t, border, len(data))

	for i, v := range data {
		style := DefaultPolicy.Style(Classify(v))
		assert.Equal(t, style.Fill, fill[i], "fill at %d", i)
		assert.Equal(t, style.Border, border[i], "border at %d", i)

		// position i depends on data[i] only
		soloFill, soloBorder := DeriveColors([]float64{v})
		assert.Equal(t, soloFill[0], fill[i])
		assert.Equal(t, soloBorder[0], border[i])
	}
}

func TestDeriveColors_Empty(t *testing.T) {
	fill, border := DeriveColors(nil)
	assert.NotNil(t, fill)
	assert.NotNil(t, border)
	assert.Empty(t, fill)
	assert.Empty(t, border)
}

func TestDefaultPolicy_Colors(t *testing.T) {
	assert.Equal(t, "rgba(220, 53, 69, 0.6)", DefaultPolicy.Style(Low).Fill.String())
	assert.Equal(t, "rgba(220, 53, 69, 1)", DefaultPolicy.Style(Low).Border.String())
	assert.Equal(t, "rgba(0, 123, 255, 0.6)", DefaultPolicy.Style(Medium).Fill.String())
	assert.Equal(t, "rgba(0, 123, 255, 1)", DefaultPolicy.Style(Medium).Border.String())
	assert.Equal(t, "rgba(40, 167, 69, 0.6)", DefaultPolicy.Style(High).Fill.String())
	assert.Equal(t, "rgba(40, 167, 69, 1)", DefaultPolicy.Style(High).Border.String())
}

func TestPolicy_WithThresholds(t *testing.T) {
	p, err := DefaultPolicy.WithThresholds(20, 90)
	require.NoError(t, err)

	assert.Equal(t, Low, p.Classify(19.9))
	assert.Equal(t, Medium, p.Classify(20))
	assert.Equal(t, Medium, p.Classify(85))
	assert.Equal(t, High, p.Classify(90))

	// original is untouched
	assert.Equal(t, High, DefaultPolicy.Classify(85))

	_, err = DefaultPolicy.WithThresholds(90, 20)
	assert.Error(t, err)
	_, err = DefaultPolicy.WithThresholds(math.NaN(), 20)
	assert.Error(t, err)
	_, err = DefaultPolicy.WithThresholds(-10, 80)
	assert.Error(t, err)
	_, err = DefaultPolicy.WithThresholds(30, 200)
	assert.Error(t, err)

	edges, err := DefaultPolicy.WithThresholds(0, 100)
	require.NoError(t, err)
	assert.Equal(t, High, edges.Classify(100))
}

func TestColor(t *testing.T) {
	c := RGBA(1, 2, 3, 0.6)
	assert.Equal(t, uint8(153), c.Alpha8())
	assert.Equal(t, uint8(255), c.Opaque().Alpha8())

	data, err := json.Marshal([]Color{c})
	require.NoError(t, err)
	assert.JSONEq(t, `["rgba(1, 2, 3, 0.6)"]`, string(data))
}

func TestColorTier_Text(t *testing.T) {
	data, err := json.Marshal(map[string]ColorTier{"tier": High})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tier":"high"}`, string(data))

	_, err = ColorTier(7).MarshalText()
	assert.Error(t, err)
}

func formatValue(v float64) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "non-finite"
	}
	return string(data)
}
