package output

import (
	"math"
	"strings"

	"github.com/jmylchreest/rlxui/internal/model"
	"github.com/jmylchreest/rlxui/internal/poller"
)

// Flag labels appended to out-of-range metric values.
const (
	FlagHigh = "[HIGH]"
	FlagLow  = "[LOW]"
)

// MetricsLine renders the metrics panel as one line, for example
// "friction 0.31 [HIGH]  arousal 0.20  valence -0.70 [LOW]".
func MetricsLine(v poller.MetricsView) string {
	parts := []string{
		metricPart("friction", v.Friction(), v.Flags.FrictionHigh, FlagHigh),
		metricPart("arousal", v.Arousal(), v.Flags.ArousalHigh, FlagHigh),
		metricPart("valence", v.Valence(), v.Flags.ValenceLow, FlagLow),
	}
	return strings.Join(parts, "  ")
}

func metricPart(name, value string, flagged bool, label string) string {
	s := name + " " + value
	if flagged {
		s += " " + label
	}
	return s
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders arousal samples as block characters scaled between the
// smallest and largest value.
func Sparkline(points []model.AffectivePoint) string {
	if len(points) == 0 {
		return ""
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		lo = math.Min(lo, p.ArousalZ)
		hi = math.Max(hi, p.ArousalZ)
	}

	var sb strings.Builder
	span := hi - lo
	for _, p := range points {
		idx := 0
		if span > 0 {
			idx = int(math.Round((p.ArousalZ - lo) / span * float64(len(sparkRunes)-1)))
		}
		sb.WriteRune(sparkRunes[idx])
	}
	return sb.String()
}
