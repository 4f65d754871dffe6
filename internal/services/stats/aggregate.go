package stats

import (
	"math"

	"github.com/guregu/null/v6"
)

// Aggregators skip nulls and non-finite values. No usable value yields null.

func usable(x null.Float) bool {
	return x.Valid && !math.IsNaN(x.Float64) && !math.IsInf(x.Float64, 0)
}

func values(xs []null.Float) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if usable(x) {
			out = append(out, x.Float64)
		}
	}
	return out
}

// Current is the most recent usable value.
func Current(xs []null.Float) null.Float {
	for i := len(xs) - 1; i >= 0; i-- {
		if usable(xs[i]) {
			return xs[i]
		}
	}
	return null.Float{}
}

func Mean(xs []null.Float) null.Float {
	vs := values(xs)
	if len(vs) == 0 {
		return null.Float{}
	}
	return null.FloatFrom(mean(vs))
}

func Min(xs []null.Float) null.Float {
	vs := values(xs)
	if len(vs) == 0 {
		return null.Float{}
	}
	m := vs[0]
	for _, v := range vs[1:] {
		m = math.Min(m, v)
	}
	return null.FloatFrom(m)
}

func Max(xs []null.Float) null.Float {
	vs := values(xs)
	if len(vs) == 0 {
		return null.Float{}
	}
	m := vs[0]
	for _, v := range vs[1:] {
		m = math.Max(m, v)
	}
	return null.FloatFrom(m)
}

// Variance is the population variance (divides by N).
func Variance(xs []null.Float) null.Float {
	vs := values(xs)
	if len(vs) == 0 {
		return null.Float{}
	}
	m := mean(vs)
	var sse float64
	for _, v := range vs {
		d := v - m
		sse += d * d
	}
	return null.FloatFrom(sse / float64(len(vs)))
}

// Std is the population standard deviation.
func Std(xs []null.Float) null.Float {
	v := Variance(xs)
	if !v.Valid {
		return v
	}
	return null.FloatFrom(math.Sqrt(v.Float64))
}

func mean(vs []float64) float64 {
	var s float64
	for _, v := range vs {
		s += v
	}
	return s / float64(len(vs))
}
