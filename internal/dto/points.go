package dto

import "github.com/noah-isme/roadwatch-api/internal/gamification"

// NewPointsAwardView maps an engine result.
func NewPointsAwardView(r gamification.Result) PointsAwardView {
	return PointsAwardView{
		Reason:      r.Reason,
		PointsAdded: r.PointsAdded,
		TotalPoints: r.TotalPoints,
		NewBadges:   r.NewBadges,
	}
}

// NewPointsAwardViews maps several engine results.
func NewPointsAwardViews(results []gamification.Result) []PointsAwardView {
	if len(results) == 0 {
		return nil
	}
	views := make([]PointsAwardView, 0, len(results))
	for _, r := range results {
		views = append(views, NewPointsAwardView(r))
	}
	return views
}
