package main

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Lumi-nary/Bastion-of-Genesis-sub002/internal/models"
)

func formatTime(seconds float64) string {
	total := int(math.Ceil(seconds))
	hours := total / 3600
	minutes := (total % 3600) / 60
	secs := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}

func formatName(id string) string {
	id = strings.ReplaceAll(id, "_", " ")
	words := strings.Fields(id)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

func formatIDs(ids []models.TechID) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}

func formatEffects(effects []models.Effect) string {
	if len(effects) == 0 {
		return "-"
	}
	parts := make([]string, len(effects))
	for i, e := range effects {
		parts[i] = e.String()
	}
	return strings.Join(parts, "\n")
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%+.0f%%", v*100)
}
