// Package metrics computes the dashboard figures derived from a tree: totals,
// generations, achievements, level, activity, completeness buckets, age
// bands, time span and recommendations. Everything here is a pure function of
// the tree except WeeklyTracker, which keeps its snapshot in an injected
// store.
package metrics

import (
	"math"
	"strings"
	"unicode/utf8"

	"famtree/pkg/family"
)

// Heuristic thresholds shared by several metrics.
const (
	PhotoMarker          = "фото"
	StoryMinLength       = 50
	ResearchMinLength    = 100
	GenerationYears      = 25
	TrackedProfileFields = 11
)

// Stats summarises a tree.
type Stats struct {
	TotalPeople          int `json:"totalPeople"`
	Generations          int `json:"generations"`
	PhotosAdded          int `json:"photosAdded"`
	StoriesWritten       int `json:"storiesWritten"`
	DocumentsUploaded    int `json:"documentsUploaded"`
	CompletionPercentage int `json:"completionPercentage"`
}

// CalculateStats derives the headline numbers. There is no media model, so
// photos and stories are estimated from biography text and documents are
// always zero.
func CalculateStats(tree family.Tree) Stats {
	s := Stats{
		TotalPeople:    len(tree.Nodes),
		Generations:    Generations(tree),
		PhotosAdded:    countPhotos(tree),
		StoriesWritten: countStories(tree),
	}
	if len(tree.Nodes) > 0 {
		var sum float64
		for _, n := range tree.Nodes {
			sum += float64(filledFields(n)) / TrackedProfileFields
		}
		s.CompletionPercentage = roundHalfUp(sum / float64(len(tree.Nodes)) * 100)
	}
	return s
}

// Generations estimates the generation count from the birth-year span:
// 0 for an empty tree, 1 without parseable years, else ceil(span/25)+1.
func Generations(tree family.Tree) int {
	if len(tree.Nodes) == 0 {
		return 0
	}
	span := TimeSpanOf(tree)
	if !span.Known {
		return 1
	}
	g := int(math.Ceil(float64(span.Years)/GenerationYears)) + 1
	if g < 1 {
		g = 1
	}
	return g
}

// HasPhoto reports whether the biography mentions a photo.
func HasPhoto(n family.Node) bool { return strings.Contains(n.Bio, PhotoMarker) }

// HasStory reports whether the person has a long enough biography or
// historical note.
func HasStory(n family.Node) bool {
	return textLen(n.Bio) > StoryMinLength || textLen(n.HistoryContext) > StoryMinLength
}

func countPhotos(tree family.Tree) int {
	c := 0
	for _, n := range tree.Nodes {
		if HasPhoto(n) {
			c++
		}
	}
	return c
}

func countStories(tree family.Tree) int {
	c := 0
	for _, n := range tree.Nodes {
		if HasStory(n) {
			c++
		}
	}
	return c
}

// filledFields counts the tracked profile fields that are present. Death
// fields count as filled for living people.
func filledFields(n family.Node) int {
	checks := []bool{
		n.FirstName != "",
		n.LastName != "",
		n.MiddleName != "",
		n.BirthDate != "",
		n.BirthPlace != "",
		n.DeathDate != "" || n.IsAlive,
		n.DeathPlace != "" || n.IsAlive,
		n.Occupation != "",
		n.Bio != "",
		n.HistoryContext != "",
		n.Gender != "",
	}
	c := 0
	for _, ok := range checks {
		if ok {
			c++
		}
	}
	return c
}

// FieldCompletion returns the share of tracked fields filled for n, 0..100.
func FieldCompletion(n family.Node) float64 {
	return float64(filledFields(n)) / TrackedProfileFields * 100
}

func textLen(s string) int { return utf8.RuneCountInString(s) }

func roundHalfUp(v float64) int { return int(math.Floor(v + 0.5)) }

// TimeSpan is the range of parseable birth years.
type TimeSpan struct {
	Years     int  `json:"years"`
	StartYear int  `json:"startYear"`
	EndYear   int  `json:"endYear"`
	Known     bool `json:"-"`
}

// TimeSpanOf returns the birth-year range, all zero when no year parses.
func TimeSpanOf(tree family.Tree) TimeSpan {
	years := tree.BirthYears()
	if len(years) == 0 {
		return TimeSpan{}
	}
	lo, hi := years[0], years[0]
	for _, y := range years[1:] {
		lo = min(lo, y)
		hi = max(hi, y)
	}
	return TimeSpan{Years: hi - lo, StartYear: lo, EndYear: hi, Known: true}
}

// Completeness buckets people by how much of their profile is filled.
type Completeness struct {
	Complete int `json:"complete"`
	Partial  int `json:"partial"`
	Minimal  int `json:"minimal"`
}

// ProfileCompleteness puts each person in exactly one bucket: complete at
// 70% or more, partial from 40%, minimal below.
func ProfileCompleteness(tree family.Tree) Completeness {
	var c Completeness
	for _, n := range tree.Nodes {
		switch p := FieldCompletion(n); {
		case p >= 70:
			c.Complete++
		case p >= 40:
			c.Partial++
		default:
			c.Minimal++
		}
	}
	return c
}
