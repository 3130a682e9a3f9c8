package metrics

import (
	"strconv"
	"strings"

	"famtree/pkg/family"
)

// Achievement is one entry of the fixed achievement catalog.
type Achievement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Progress    int    `json:"progress"`
	MaxProgress int    `json:"maxProgress"`
	Unlocked    bool   `json:"unlocked"`
	Reward      string `json:"reward"`
}

type achievementDef struct {
	id, title, description, icon, reward string
	max                                  int
	progress                             func(family.Tree, Stats) int
}

var catalog = []achievementDef{
	{"first-person", "Первый шаг", "Добавьте первого человека в древо", "User", "+50 XP", 1,
		func(t family.Tree, _ Stats) int { return min(len(t.Nodes), 1) }},
	{"family-of-10", "Большая семья", "Добавьте 10 членов семьи", "Users", "+100 XP", 10,
		func(_ family.Tree, s Stats) int { return s.TotalPeople }},
	{"photographer", "Фотограф", "Загрузите 20 фотографий", "Camera", "+150 XP", 20,
		func(_ family.Tree, s Stats) int { return s.PhotosAdded }},
	{"storyteller", "Хранитель историй", "Напишите 10 семейных историй", "BookOpen", "+200 XP", 10,
		func(_ family.Tree, s Stats) int { return s.StoriesWritten }},
	{"archivist", "Архивариус", "Загрузите 15 документов", "FileText", "+250 XP", 15,
		func(_ family.Tree, s Stats) int { return s.DocumentsUploaded }},
	{"century", "Век истории", "Охватите 100 лет семейной истории", "Calendar", "+300 XP", 100,
		func(t family.Tree, _ Stats) int { return TimeSpanOf(t).Years }},
	{"dynasty", "Династия", "Заполните 7 поколений", "Crown", "+500 XP", 7,
		func(_ family.Tree, s Stats) int { return s.Generations }},
	{"researcher", "Исследователь", "Добавьте информацию из архивов", "Search", "+350 XP", 5,
		func(t family.Tree, _ Stats) int {
			c := 0
			for _, n := range t.Nodes {
				if textLen(n.HistoryContext) > ResearchMinLength {
					c++
				}
			}
			return c
		}},
}

// CalculateAchievements evaluates the eight catalog entries in order.
func CalculateAchievements(tree family.Tree, stats Stats) []Achievement {
	out := make([]Achievement, 0, len(catalog))
	for _, def := range catalog {
		p := def.progress(tree, stats)
		out = append(out, Achievement{
			ID:          def.id,
			Title:       def.title,
			Description: def.description,
			Icon:        def.icon,
			Progress:    p,
			MaxProgress: def.max,
			Unlocked:    p >= def.max,
			Reward:      def.reward,
		})
	}
	return out
}

// XPPerLevel is the fixed width of a level band.
const XPPerLevel = 200

// Level is the player level derived from unlocked rewards.
type Level struct {
	Level       int `json:"level"`
	CurrentXP   int `json:"currentXP"`
	NextLevelXP int `json:"nextLevelXP"`
	TotalXP     int `json:"totalXP"`
}

// CalculateLevel sums the digits-only value of each unlocked reward.
func CalculateLevel(achievements []Achievement) Level {
	total := 0
	for _, a := range achievements {
		if a.Unlocked {
			total += RewardXP(a.Reward)
		}
	}
	return Level{
		Level:       total/XPPerLevel + 1,
		CurrentXP:   total % XPPerLevel,
		NextLevelXP: XPPerLevel,
		TotalXP:     total,
	}
}

// RewardXP extracts the number from a reward label such as "+150 XP".
func RewardXP(reward string) int {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, reward)
	v, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return v
}
