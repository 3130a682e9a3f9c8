package metrics

import (
	"context"
	"time"

	"famtree/pkg/family"
)

// Dashboard bundles every derived figure shown on the dashboard.
type Dashboard struct {
	Stats           Stats            `json:"stats"`
	Weekly          WeeklyChange     `json:"weekly"`
	Achievements    []Achievement    `json:"achievements"`
	Level           Level            `json:"level"`
	Activity        []Activity       `json:"activity"`
	Completeness    Completeness     `json:"completeness"`
	Distribution    []AgeBand        `json:"distribution"`
	TimeSpan        TimeSpan         `json:"timeSpan"`
	Recommendations []Recommendation `json:"recommendations"`
}

// BuildDashboard computes the dashboard for tree at now. weekly may be nil,
// in which case the weekly deltas stay zero.
func BuildDashboard(ctx context.Context, tree family.Tree, now time.Time, weekly *WeeklyTracker) (Dashboard, error) {
	stats := CalculateStats(tree)
	achievements := CalculateAchievements(tree, stats)
	d := Dashboard{
		Stats:           stats,
		Achievements:    achievements,
		Level:           CalculateLevel(achievements),
		Activity:        RecentActivity(tree),
		Completeness:    ProfileCompleteness(tree),
		Distribution:    GenerationDistribution(tree, now),
		TimeSpan:        TimeSpanOf(tree),
		Recommendations: Recommendations(tree, RussianPlural{}),
	}
	if weekly != nil {
		change, err := weekly.Changes(ctx, tree)
		if err != nil {
			return d, err
		}
		d.Weekly = change
	}
	return d, nil
}
