package extractor

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/findsforliving-lab/finds4livingbot/models"
)

var nonPriceChars = regexp.MustCompile(`[^\d,.]`)

// ParsePrice extracts a numeric price from free-form text. Storefronts mix
// Brazilian ("1.234,56") and US ("1,234.56") separators, so the separator
// roles are decided from the digit grouping:
//
//   - both present: the rightmost separator is the decimal mark
//   - comma only: decimal if followed by exactly 2 digits, thousands if by 3
//   - dot only: thousands when repeated or followed by 3+ digits
//
// The boolean is false when the text carries no parseable number. Absence of
// a price is a normal outcome, not an error.
func ParsePrice(text string) (float64, bool) {
	clean := nonPriceChars.ReplaceAllString(strings.TrimSpace(text), "")
	if clean == "" {
		return 0, false
	}

	hasComma := strings.Contains(clean, ",")
	hasDot := strings.Contains(clean, ".")

	switch {
	case hasComma && hasDot:
		if strings.LastIndex(clean, ".") > strings.LastIndex(clean, ",") {
			// US grouping: 1,234.56
			clean = strings.ReplaceAll(clean, ",", "")
		} else {
			// Brazilian grouping: 1.234,56
			clean = strings.ReplaceAll(clean, ".", "")
			clean = strings.ReplaceAll(clean, ",", ".")
		}
	case hasComma:
		parts := strings.Split(clean, ",")
		switch len(parts[len(parts)-1]) {
		case 2:
			clean = strings.ReplaceAll(clean, ",", ".")
		case 3:
			clean = strings.ReplaceAll(clean, ",", "")
		}
	case hasDot:
		parts := strings.Split(clean, ".")
		if len(parts) > 2 || len(parts[len(parts)-1]) > 2 {
			clean = strings.ReplaceAll(clean, ".", "")
		}
	}

	value, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// ResolvePricePair normalizes a current/original price text pair into a
// PricePair. Unparseable current text becomes 0; missing original text
// defaults to the current value. If the pair arrives reversed (original
// below current) the two are swapped before the discount is computed.
func ResolvePricePair(currentText, originalText string) models.PricePair {
	current, _ := ParsePrice(currentText)
	original, ok := ParsePrice(originalText)
	if !ok {
		original = current
	}
	if original < current {
		current, original = original, current
	}
	return pairFrom(current, original)
}

// pairFrom builds a PricePair from already-ordered values.
func pairFrom(current, original float64) models.PricePair {
	pair := models.PricePair{Current: current, Original: original}
	if original > current {
		pair.DiscountPercent = int(math.Round((original - current) / original * 100))
	}
	return pair
}

func containsAny(text string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

func minOf(values []float64) float64 {
	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

func maxOf(values []float64) float64 {
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

func filterPrices(values []float64, keep func(float64) bool) []float64 {
	var kept []float64
	for _, v := range values {
		if keep(v) {
			kept = append(kept, v)
		}
	}
	return kept
}
