package progress

import "fmt"

// Stats are the authoritative counters badges are derived from
type Stats struct {
	Moons         int
	CurrentStreak int
	BestStreak    int
	SubjectCounts map[string]int
	JournalCount  int
	Completions   int
}

// Badge describes a derivable badge
type Badge struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Emoji    string `json:"emoji"`
	Category string `json:"category"`

	earned func(Stats) bool
}

// UnlockThresholds are the moon balances that unlock unlock-badge-1..6
var UnlockThresholds = []int{5, 10, 20, 35, 50, 75}

// Subjects with count badges and their breakpoints
var (
	BadgeSubjects      = []string{"reading", "writing", "math", "science"}
	SubjectBreakpoints = []int{25, 50, 75, 100}
	StreakBreakpoints  = []int{3, 5, 10}
	JournalBreakpoints = []int{1, 10, 30}
)

var badges = buildBadges()

func buildBadges() []Badge {
	list := []Badge{
		{ID: "first-sprout", Name: "First Sprout", Emoji: "🌱", Category: "milestone",
			earned: func(s Stats) bool { return s.Completions >= 1 }},
		{ID: "star-collector", Name: "Star Collector", Emoji: "⭐", Category: "milestone",
			earned: func(s Stats) bool { return s.Moons >= 10 }},
		{ID: "moonlit", Name: "Moonlit", Emoji: "🌙", Category: "milestone",
			earned: func(s Stats) bool { return s.Moons >= 50 }},
		{ID: "lunar-legend", Name: "Lunar Legend", Emoji: "🌕", Category: "milestone",
			earned: func(s Stats) bool { return s.Moons >= 100 }},
	}

	for i, threshold := range UnlockThresholds {
		list = append(list, Badge{
			ID:       fmt.Sprintf("unlock-badge-%d", i+1),
			Name:     fmt.Sprintf("Moon Gate %d", i+1),
			Emoji:    "🔓",
			Category: "unlock",
			earned:   func(s Stats) bool { return s.Moons >= threshold },
		})
	}

	subjectEmoji := map[string]string{"reading": "📚", "writing": "✏️", "math": "🔢", "science": "🔬"}
	for _, subject := range BadgeSubjects {
		for _, n := range SubjectBreakpoints {
			list = append(list, Badge{
				ID:       fmt.Sprintf("%s-%d", subject, n),
				Name:     fmt.Sprintf("%s %d", titleCase(subject), n),
				Emoji:    subjectEmoji[subject],
				Category: "subject",
				earned:   func(s Stats) bool { return s.SubjectCounts[subject] >= n },
			})
		}
	}

	for _, n := range StreakBreakpoints {
		list = append(list, Badge{
			ID:       fmt.Sprintf("streak-%d", n),
			Name:     fmt.Sprintf("%d-Day Streak", n),
			Emoji:    "🔥",
			Category: "streak",
			earned:   func(s Stats) bool { return s.BestStreak >= n },
		})
	}

	for _, n := range JournalBreakpoints {
		list = append(list, Badge{
			ID:       fmt.Sprintf("journal-%d", n),
			Name:     fmt.Sprintf("Journal Keeper %d", n),
			Emoji:    "📓",
			Category: "journal",
			earned:   func(s Stats) bool { return s.JournalCount >= n },
		})
	}

	return list
}

// Evaluate returns the ids of every badge the counters currently earn, in
// catalog order.
func Evaluate(s Stats) []string {
	earned := []string{}
	for _, b := range badges {
		if b.earned(s) {
			earned = append(earned, b.ID)
		}
	}
	return earned
}

// EarnedBadges is Evaluate returning full badge descriptions
func EarnedBadges(s Stats) []Badge {
	out := []Badge{}
	for _, b := range badges {
		if b.earned(s) {
			out = append(out, b)
		}
	}
	return out
}

// AllBadges lists every derivable badge
func AllBadges() []Badge {
	out := make([]Badge, len(badges))
	copy(out, badges)
	return out
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
