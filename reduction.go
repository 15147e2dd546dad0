package rastersample

import (
	"fmt"
	"math"
	"strings"
)

// A Reduction reduces the valid samples of a geometry to a single value.
type Reduction int

// Reductions.
const (
	ReductionMin Reduction = iota
	ReductionMax
	ReductionAvg
)

// ParseReduction parses s, one of min, max, or avg.
func ParseReduction(s string) (Reduction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "min":
		return ReductionMin, nil
	case "max":
		return ReductionMax, nil
	case "avg", "mean":
		return ReductionAvg, nil
	default:
		return 0, fmt.Errorf("%s: unknown reduction", s)
	}
}

func (r Reduction) String() string {
	switch r {
	case ReductionMin:
		return "min"
	case ReductionMax:
		return "max"
	case ReductionAvg:
		return "avg"
	default:
		return fmt.Sprintf("Reduction(%d)", int(r))
	}
}

// Reduce returns the reduction of values. It returns NaN if values is empty.
func (r Reduction) Reduce(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	switch r {
	case ReductionMin:
		result := values[0]
		for _, value := range values[1:] {
			result = min(result, value)
		}
		return result
	case ReductionMax:
		result := values[0]
		for _, value := range values[1:] {
			result = max(result, value)
		}
		return result
	case ReductionAvg:
		sum := 0.0
		for _, value := range values {
			sum += value
		}
		return sum / float64(len(values))
	default:
		return math.NaN()
	}
}
