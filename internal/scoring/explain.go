package scoring

import (
	"fmt"
	"math"
)

// formatPeriod renders a day count the way the original Spanish-language
// explanations did: days under a month, months under a year, years
// beyond that, with singular/plural agreement.
func formatPeriod(days int) string {
	switch {
	case days >= 365:
		years := round(float64(days)/365, 1)
		if years == 1 {
			return "1 año"
		}
		return fmt.Sprintf("%s años", trimZero(years))
	case days >= 30:
		months := round(float64(days)/30, 1)
		if months == 1 {
			return "1 mes"
		}
		return fmt.Sprintf("%s meses", trimZero(months))
	default:
		if days == 1 {
			return "1 día"
		}
		return fmt.Sprintf("%d días", days)
	}
}

// trimZero renders a rounded-to-1-decimal float without a trailing
// ".0", matching Python's str() of a round(x, 1) result.
func trimZero(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int(v))
	}
	return fmt.Sprintf("%.1f", v)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// explain builds the four-line Spanish explanation from the raw
// (unrounded) signals, mirroring the original service's phrasing.
func explain(s Signals, keyword, country string, windowDays, baselineDays int) []string {
	lines := make([]string, 0, 4)

	windowText := formatPeriod(windowDays)
	baselineText := formatPeriod(baselineDays)

	growthPercent := math.Abs(round((s.Growth7vs30-1)*100, 1))
	switch {
	case s.Growth7vs30 > 1.1:
		lines = append(lines, fmt.Sprintf(
			"El interés en los últimos %s creció %s%% vs los últimos %s.",
			windowText, trimZero(growthPercent), baselineText))
	case s.Growth7vs30 < 0.9:
		lines = append(lines, fmt.Sprintf(
			"El interés en los últimos %s cayó %s%% vs los últimos %s.",
			windowText, trimZero(growthPercent), baselineText))
	default:
		lines = append(lines, fmt.Sprintf(
			"El interés en los últimos %s se mantiene estable respecto a los últimos %s.",
			windowText, baselineText))
	}

	slopePeriod := minInt(14, windowDays*2)
	slopeText := formatPeriod(slopePeriod)
	switch {
	case s.Slope14d > 0.01:
		lines = append(lines, fmt.Sprintf("La tendencia de los últimos %s es positiva (creciente).", slopeText))
	case s.Slope14d < -0.01:
		lines = append(lines, fmt.Sprintf("La tendencia de los últimos %s es negativa (decreciente).", slopeText))
	default:
		lines = append(lines, fmt.Sprintf("La tendencia de los últimos %s es plana (sin cambios significativos).", slopeText))
	}

	peakPeriod := maxInt(30, windowDays)
	peakText := formatPeriod(peakPeriod)
	peakPercent := int(math.Round(s.RecentPeak30 * 100))
	switch {
	case s.RecentPeak30 > 0.8:
		lines = append(lines, fmt.Sprintf(
			"El interés en los últimos %s alcanzó %d%% del máximo posible.", peakText, peakPercent))
	case s.RecentPeak30 > 0.5:
		lines = append(lines, fmt.Sprintf(
			"El interés está en niveles moderados (%d%% del máximo en los últimos %s).", peakPercent, peakText))
	default:
		lines = append(lines, fmt.Sprintf(
			"El interés está en niveles bajos (%d%% del máximo en los últimos %s).", peakPercent, peakText))
	}

	lines = append(lines, fmt.Sprintf("Los datos corresponden al país %s.", country))

	return lines
}
