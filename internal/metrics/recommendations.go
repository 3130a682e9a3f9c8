package metrics

import (
	"fmt"

	"famtree/pkg/family"
)

// Forms holds the three plural forms used by Slavic plural rules.
type Forms struct {
	One, Few, Many string
}

// Pluralizer picks the word form for a count.
type Pluralizer interface {
	Plural(n int, f Forms) string
}

// RussianPlural implements the Russian cardinal plural rule.
type RussianPlural struct{}

func (RussianPlural) Plural(n int, f Forms) string {
	if n < 0 {
		n = -n
	}
	mod10, mod100 := n%10, n%100
	switch {
	case mod10 == 1 && mod100 != 11:
		return f.One
	case mod10 >= 2 && mod10 <= 4 && (mod100 < 10 || mod100 >= 20):
		return f.Few
	default:
		return f.Many
	}
}

// Recommendation suggests the next thing to fill in.
type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Count       int    `json:"count"`
}

// MaxRecommendations caps the list returned by Recommendations.
const MaxRecommendations = 3

var (
	members  = Forms{"члена", "членов", "членов"}
	profiles = Forms{"профиль", "профиля", "профилей"}
	people   = Forms{"человека", "человек", "человек"}
)

// Recommendations scans for missing data in priority order and returns at
// most three suggestions. A nil pluralizer means RussianPlural.
func Recommendations(tree family.Tree, pl Pluralizer) []Recommendation {
	if pl == nil {
		pl = RussianPlural{}
	}
	count := func(pred func(family.Node) bool) int {
		c := 0
		for _, n := range tree.Nodes {
			if pred(n) {
				c++
			}
		}
		return c
	}
	checks := []struct {
		title, icon string
		n           int
		describe    func(n int) string
	}{
		{"Добавьте родителей", "UserPlus",
			count(func(n family.Node) bool { return !n.IsRoot() && len(tree.ParentEdges(n.ID)) == 0 }),
			func(n int) string { return fmt.Sprintf("У %d %s семьи не указаны родители", n, pl.Plural(n, members)) }},
		{"Загрузите фотографии", "Camera",
			count(func(n family.Node) bool { return !HasPhoto(n) }),
			func(n int) string { return fmt.Sprintf("%d %s без фотографий", n, pl.Plural(n, profiles)) }},
		{"Укажите даты", "Calendar",
			count(func(n family.Node) bool { return n.BirthDate == "" }),
			func(n int) string { return fmt.Sprintf("Заполните даты рождения для %d %s", n, pl.Plural(n, people)) }},
		{"Напишите истории", "BookOpen",
			count(func(n family.Node) bool { return textLen(n.Bio) < StoryMinLength }),
			func(n int) string { return fmt.Sprintf("%d %s без биографии", n, pl.Plural(n, profiles)) }},
		{"Укажите профессии", "Briefcase",
			count(func(n family.Node) bool { return n.Occupation == "" }),
			func(n int) string { return fmt.Sprintf("У %d %s не указана профессия", n, pl.Plural(n, people)) }},
		{"Добавьте места рождения", "MapPin",
			count(func(n family.Node) bool { return n.BirthPlace == "" }),
			func(n int) string { return fmt.Sprintf("%d %s без места рождения", n, pl.Plural(n, profiles)) }},
	}
	var out []Recommendation
	for _, c := range checks {
		if c.n == 0 {
			continue
		}
		out = append(out, Recommendation{Title: c.title, Description: c.describe(c.n), Icon: c.icon, Count: c.n})
		if len(out) == MaxRecommendations {
			break
		}
	}
	return out
}
