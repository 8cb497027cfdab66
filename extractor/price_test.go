package extractor

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
		ok    bool
	}{
		{"brazilian thousands and decimal", "R$ 1.234,56", 1234.56, true},
		{"us thousands and decimal", "$1,234.56", 1234.56, true},
		{"comma with two digits is decimal", "12,34", 12.34, true},
		{"comma with three digits is thousands", "1,234", 1234, true},
		{"single dot decimal", "19.99", 19.99, true},
		{"dot with three digits is thousands", "1.234", 1234, true},
		{"dot with four digits is thousands", "1.2345", 12345, true},
		{"repeated dots are thousands", "1.234.567", 1234567, true},
		{"plain integer", "42", 42, true},
		{"currency noise stripped", "R$  89,90 ", 89.90, true},
		{"empty", "", 0, false},
		{"no digits", "Preço indisponível", 0, false},
		{"letters only", "abc", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParsePrice(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestResolvePricePair(t *testing.T) {
	t.Run("swaps reversed pair and computes discount", func(t *testing.T) {
		pair := ResolvePricePair("10,00", "5,00")
		assert.Equal(t, 5.0, pair.Current)
		assert.Equal(t, 10.0, pair.Original)
		assert.Equal(t, 50, pair.DiscountPercent)
	})

	t.Run("missing original defaults to current", func(t *testing.T) {
		pair := ResolvePricePair("19.99", "")
		assert.Equal(t, 19.99, pair.Current)
		assert.Equal(t, 19.99, pair.Original)
		assert.Equal(t, 0, pair.DiscountPercent)
	})

	t.Run("nothing parseable yields zero pair", func(t *testing.T) {
		pair := ResolvePricePair("", "sem preço")
		assert.True(t, pair.IsZero())
		assert.Equal(t, 0, pair.DiscountPercent)
	})

	t.Run("ordered pair kept as is", func(t *testing.T) {
		pair := ResolvePricePair("29.99", "39.99")
		assert.Equal(t, 29.99, pair.Current)
		assert.Equal(t, 39.99, pair.Original)
		assert.Equal(t, 25, pair.DiscountPercent)
	})

	t.Run("resolving its own output yields the same triple", func(t *testing.T) {
		first := ResolvePricePair("10,00", "5,00")
		again := ResolvePricePair(
			strconv.FormatFloat(first.Current, 'f', 2, 64),
			strconv.FormatFloat(first.Original, 'f', 2, 64),
		)
		assert.Equal(t, first, again)
	})

	t.Run("equal prices carry no discount", func(t *testing.T) {
		pair := ResolvePricePair("15,00", "15,00")
		assert.Equal(t, 15.0, pair.Current)
		assert.Equal(t, 15.0, pair.Original)
		assert.Equal(t, 0, pair.DiscountPercent)
	})
}
