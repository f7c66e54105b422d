package boost

import (
	"math"

	"github.com/koeurnDev/EZA-POST-sub000/internal/common"
	"github.com/koeurnDev/EZA-POST-sub000/internal/features/posts"
)

// Базовые объёмы симуляции по интенсивности: лайки, комментарии, репосты.
var baseAmounts = map[Intensity]posts.Metrics{
	IntensityLow:    {Likes: 10, Comments: 2, Shares: 1},
	IntensityMedium: {Likes: 30, Comments: 5, Shares: 3},
	IntensityHigh:   {Likes: 100, Comments: 15, Shares: 10},
}

// Simulate считает прибавку метрик: floor(base·(0.7+0.6·U)) для каждого вида
// из набора действий правила. Остальные виды — ноль.
func Simulate(rule Rule, rnd common.RandFunc) posts.Metrics {
	base, ok := baseAmounts[rule.Intensity]
	if !ok {
		base = baseAmounts[IntensityMedium]
	}

	var m posts.Metrics
	if rule.Has(ActionLike) {
		m.Likes = jitter(base.Likes, rnd)
	}
	if rule.Has(ActionComment) {
		m.Comments = jitter(base.Comments, rnd)
	}
	if rule.Has(ActionShare) {
		m.Shares = jitter(base.Shares, rnd)
	}
	return m
}

// jitter — ±30% к базе.
func jitter(base int64, rnd common.RandFunc) int64 {
	return int64(math.Floor(float64(base) * (0.7 + 0.6*rnd())))
}
