// Package gamification turns point deltas into totals and badge awards.
package gamification

// Milestone grants Badge once a user's total reaches Threshold.
type Milestone struct {
	Threshold int
	Badge     string
}

// Milestones are ordered by ascending threshold.
var Milestones = []Milestone{
	{Threshold: 10, Badge: "First Responder"},
	{Threshold: 100, Badge: "Safe Driver"},
	{Threshold: 500, Badge: "Road Watcher"},
	{Threshold: 1000, Badge: "Guardian"},
	{Threshold: 5000, Badge: "Traffic Legend"},
}

// Award reasons used across the services.
const (
	ReasonFirstReport     = "First Report Bonus"
	ReasonHighSeverity    = "High Severity Report"
	ReasonVerification    = "Verification Bonus"
	ReasonFalseReport     = "False Report Penalty"
	ReasonCommentUpvoted  = "Comment Upvoted"
	ReasonSafeZoneCheckIn = "Safe Zone Confirmation"
)

// Award amounts paired with the reasons above.
const (
	PointsFirstReport     = 10
	PointsHighSeverity    = 100
	PointsVerification    = 50
	PointsFalseReport     = -20
	PointsCommentUpvoted  = 5
	PointsSafeZoneCheckIn = 2
)

// Standing is the part of a user the engine reads.
type Standing struct {
	Points int
	Badges []string
}

// Result describes the outcome of AddPoints.
type Result struct {
	PointsAdded int
	TotalPoints int
	NewBadges   []string
	Badges      []string
	Reason      string
}

// AddPoints applies delta to the standing. Totals never drop below zero and
// badges are only ever appended, each at most once.
func AddPoints(s Standing, delta int, reason string) Result {
	total := s.Points + delta
	if total < 0 {
		total = 0
	}

	held := make(map[string]struct{}, len(s.Badges))
	badges := make([]string, 0, len(s.Badges)+1)
	for _, b := range s.Badges {
		if _, dup := held[b]; dup {
			continue
		}
		held[b] = struct{}{}
		badges = append(badges, b)
	}

	var earned []string
	for _, m := range Milestones {
		if total < m.Threshold {
			break
		}
		if _, ok := held[m.Badge]; ok {
			continue
		}
		held[m.Badge] = struct{}{}
		badges = append(badges, m.Badge)
		earned = append(earned, m.Badge)
	}

	return Result{
		PointsAdded: delta,
		TotalPoints: total,
		NewBadges:   earned,
		Badges:      badges,
		Reason:      reason,
	}
}
