package experiment

import "math"

// Stats summarizes episode returns. Std is the population standard deviation.
type Stats struct {
	Mean   float64
	Std    float64
	Min    float64
	Max    float64
	Scores []float64
}

// ComputeStats summarizes scores. An empty slice gives zero Stats.
func ComputeStats(scores []float64) Stats {
	if len(scores) == 0 {
		return Stats{}
	}

	s := Stats{
		Min:    math.Inf(1),
		Max:    math.Inf(-1),
		Scores: append([]float64(nil), scores...),
	}
	var sum float64
	for _, v := range scores {
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = sum / float64(len(scores))

	var sumSquares float64
	for _, v := range scores {
		d := v - s.Mean
		sumSquares += d * d
	}
	s.Std = math.Sqrt(sumSquares / float64(len(scores)))
	return s
}
