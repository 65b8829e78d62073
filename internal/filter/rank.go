package filter

import (
	"math"
	"sort"
	"time"

	"github.com/pfrederiksen/clt-events/internal/event"
)

// Weights maps a category label to its score contribution
type Weights map[string]float64

// DefaultWeights favors nightlife and live events
var DefaultWeights = Weights{
	event.CategoryNightlife:     20,
	event.CategoryConcert:       15,
	event.CategoryRestaurant:    15,
	event.CategoryBar:           15,
	event.CategorySports:        15,
	event.CategoryEntertainment: 10,
	event.CategoryOpening:       10,
	event.CategorySpecial:       5,
	event.CategoryActive:        5,
}

// Score components
const (
	confidenceFactor = 30
	soonBonus        = 15 // starts within 3 days
	weekBonus        = 10 // starts within 7 days
	weekendBonus     = 10
	undatedPenalty   = -20
)

// Ranker scores and orders events
type Ranker struct {
	Now      time.Time
	Location *time.Location // Weekday of the start is taken in this zone
	Weights  Weights
}

// NewRanker creates a ranker with the default category weights
func NewRanker(now time.Time, loc *time.Location) *Ranker {
	if loc == nil {
		loc = time.UTC
	}
	return &Ranker{Now: now, Location: loc, Weights: DefaultWeights}
}

// Score computes the rank score of evt
func (r *Ranker) Score(evt *event.Event) float64 {
	score := evt.Confidence * confidenceFactor

	for _, c := range evt.Category {
		score += r.Weights[c]
	}

	if evt.StartDatetime == nil {
		score += undatedPenalty
		return round(score)
	}

	days := evt.StartDatetime.Sub(r.Now).Hours() / 24
	switch {
	case days <= 3:
		score += soonBonus
	case days <= 7:
		score += weekBonus
	}

	switch evt.StartDatetime.In(r.Location).Weekday() {
	case time.Friday, time.Saturday:
		score += weekendBonus
	}

	return round(score)
}

// Rank returns copies of events carrying their score, sorted descending.
// Events with equal scores keep their input order.
func (r *Ranker) Rank(events []*event.Event) []*event.Event {
	ranked := make([]*event.Event, 0, len(events))
	for _, evt := range events {
		c := evt.Clone()
		score := r.Score(evt)
		c.RankScore = &score
		ranked = append(ranked, c)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return *ranked[i].RankScore > *ranked[j].RankScore
	})
	return ranked
}

func round(f float64) float64 {
	return math.Round(f*1000) / 1000
}
