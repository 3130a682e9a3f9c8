package metrics

import (
	"time"

	"famtree/pkg/family"
)

// Activity is one line of the recent-activity feed.
type Activity struct {
	Action string `json:"action"`
	Person string `json:"person"`
	Time   string `json:"time"`
	Icon   string `json:"icon"`
}

// ActivityFeedSize is the fixed length of the feed.
const ActivityFeedSize = 4

var activityLabels = [ActivityFeedSize]string{"2 часа назад", "5 часов назад", "1 день назад", "2 дня назад"}

var placeholderActivity = Activity{
	Action: "Нет активности",
	Person: "Добавьте новых членов семьи",
	Icon:   "Clock",
}

// RecentActivity builds the feed from the most recently added people. There
// is no event log: the time labels are fixed per position and people without
// a story or a full name are skipped, the gaps filled with placeholders.
func RecentActivity(tree family.Tree) []Activity {
	out := make([]Activity, 0, ActivityFeedSize)
	for i := 0; i < ActivityFeedSize && i < len(tree.Nodes); i++ {
		n := tree.Nodes[len(tree.Nodes)-1-i]
		person := n.FirstName + " " + n.LastName
		switch {
		case textLen(n.Bio) > StoryMinLength:
			out = append(out, Activity{Action: "Написана история", Person: person, Time: activityLabels[i], Icon: "BookOpen"})
		case n.FirstName != "" && n.LastName != "":
			out = append(out, Activity{Action: "Добавлен член семьи", Person: person, Time: activityLabels[i], Icon: "UserPlus"})
		}
	}
	for len(out) < ActivityFeedSize {
		out = append(out, placeholderActivity)
	}
	return out
}

// AgeBand is one bucket of the generation distribution.
type AgeBand struct {
	Generation string `json:"generation"`
	Count      int    `json:"count"`
	Color      string `json:"color"`
	MinAge     int    `json:"-"`
	MaxAge     int    `json:"-"`
}

func ageBands() []AgeBand {
	return []AgeBand{
		{Generation: "Я и мои дети", MinAge: 0, MaxAge: 40, Color: "from-blue-400 to-blue-600"},
		{Generation: "Родители", MinAge: 41, MaxAge: 65, Color: "from-green-400 to-green-600"},
		{Generation: "Бабушки и дедушки", MinAge: 66, MaxAge: 90, Color: "from-purple-400 to-purple-600"},
		{Generation: "Прабабушки и прадедушки", MinAge: 91, MaxAge: 120, Color: "from-amber-400 to-amber-600"},
		{Generation: "Более дальние предки", MinAge: 121, MaxAge: 999, Color: "from-pink-400 to-pink-600"},
	}
}

// GenerationDistribution counts people per age band using their parsed birth
// year against now. Ages outside every band (future years, over 999) are
// not counted.
func GenerationDistribution(tree family.Tree, now time.Time) []AgeBand {
	bands := ageBands()
	year := now.Year()
	for _, n := range tree.Nodes {
		born, ok := family.ParseYear(n.BirthDate)
		if !ok {
			continue
		}
		age := year - born
		for i := range bands {
			if age >= bands[i].MinAge && age <= bands[i].MaxAge {
				bands[i].Count++
				break
			}
		}
	}
	return bands
}
