package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"lunara/internal/catalog"
	"lunara/internal/models"
	"lunara/internal/progress"
	"lunara/internal/repository"
	"lunara/internal/validation"
)

var sixty = decimal.NewFromInt(60)

// SubjectProgress is the completion count and time spent on one subject
type SubjectProgress struct {
	Subject string          `json:"subject"`
	Count   int             `json:"count"`
	Minutes int             `json:"minutes"`
	Hours   decimal.Decimal `json:"hours"`
}

// Summary is everything the progress page shows for a kid
type Summary struct {
	KidID        int64             `json:"kidId"`
	Moons        int               `json:"moons"`
	Streak       StreakView        `json:"streak"`
	SchoolDays   []int             `json:"schoolDays"`
	Subjects     []SubjectProgress `json:"subjects"`
	TotalHours   decimal.Decimal   `json:"totalHours"`
	JournalCount int               `json:"journalCount"`
	Badges       []string          `json:"badges"`
}

// BadgeView is a badge with whether the kid has earned it
type BadgeView struct {
	progress.Badge
	Earned bool `json:"earned"`
}

// BadgeReport lists derived badges and identity badges bought in the shop
type BadgeReport struct {
	Badges []BadgeView `json:"badges"`
	Earned []string    `json:"earned"`
	Owned  []string    `json:"ownedIdentityBadges"`
}

// ProgressService derives progress summaries and badges from the counters
type ProgressService struct {
	family     *FamilyService
	moonRepo   *repository.MoonRepository
	activities *repository.ActivityRepository
	journal    *repository.JournalRepository
	shop       *ShopService
}

// NewProgressService creates a new progress service
func NewProgressService(family *FamilyService, moonRepo *repository.MoonRepository, activities *repository.ActivityRepository, journal *repository.JournalRepository, shop *ShopService) *ProgressService {
	return &ProgressService{family: family, moonRepo: moonRepo, activities: activities, journal: journal, shop: shop}
}

type counters struct {
	progress *models.Progress
	subjects []repository.SubjectTotal
	journal  int
}

func (s *ProgressService) load(ctx context.Context, kidID int64) (*counters, error) {
	var c counters
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		c.progress, err = s.moonRepo.GetProgress(gctx, kidID)
		return err
	})
	g.Go(func() error {
		var err error
		c.subjects, err = s.activities.SubjectTotals(gctx, kidID)
		return err
	})
	g.Go(func() error {
		var err error
		c.journal, err = s.journal.CountWritten(gctx, kidID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	return &c, nil
}

func (c *counters) stats() progress.Stats {
	st := progress.Stats{
		Moons:         c.progress.TotalMoons,
		CurrentStreak: c.progress.CurrentStreak,
		BestStreak:    c.progress.BestStreak,
		SubjectCounts: make(map[string]int, len(c.subjects)),
		JournalCount:  c.journal,
	}
	for _, t := range c.subjects {
		st.SubjectCounts[t.Subject] += t.Count
		st.Completions += t.Count
	}
	return st
}

// Hours converts minutes to hours rounded to two decimal places
func Hours(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(sixty).Round(2)
}

// Summary returns the kid's balance, streak, subject time and badges
func (s *ProgressService) Summary(ctx context.Context, caller Caller, kidID int64) (*Summary, error) {
	if _, _, err := s.family.AuthorizeKid(ctx, caller, kidID); err != nil {
		return nil, err
	}
	c, err := s.load(ctx, kidID)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		KidID: kidID,
		Moons: c.progress.TotalMoons,
		Streak: StreakView{
			Current:       c.progress.CurrentStreak,
			Best:          c.progress.BestStreak,
			LastCompleted: c.progress.LastCompletedDate,
		},
		SchoolDays:   c.progress.SchoolDays,
		Subjects:     make([]SubjectProgress, 0, len(c.subjects)),
		JournalCount: c.journal,
		Badges:       progress.Evaluate(c.stats()),
	}

	totalMinutes := 0
	for _, t := range c.subjects {
		totalMinutes += t.Minutes
		summary.Subjects = append(summary.Subjects, SubjectProgress{
			Subject: t.Subject,
			Count:   t.Count,
			Minutes: t.Minutes,
			Hours:   Hours(t.Minutes),
		})
	}
	summary.TotalHours = Hours(totalMinutes)
	return summary, nil
}

// Badges lists every derivable badge with the kid's earned state, plus the
// identity badges the kid bought.
func (s *ProgressService) Badges(ctx context.Context, caller Caller, kidID int64) (*BadgeReport, error) {
	if _, _, err := s.family.AuthorizeKid(ctx, caller, kidID); err != nil {
		return nil, err
	}
	c, err := s.load(ctx, kidID)
	if err != nil {
		return nil, err
	}

	earned := progress.Evaluate(c.stats())
	earnedSet := make(map[string]bool, len(earned))
	for _, id := range earned {
		earnedSet[id] = true
	}

	all := progress.AllBadges()
	report := &BadgeReport{Badges: make([]BadgeView, 0, len(all)), Earned: earned}
	for _, b := range all {
		report.Badges = append(report.Badges, BadgeView{Badge: b, Earned: earnedSet[b.ID]})
	}

	report.Owned, err = s.shop.OwnedItems(ctx, kidID, catalog.KindIdentityBadge)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// SetSchoolDays sets which weekdays count toward the kid's streak
func (s *ProgressService) SetSchoolDays(ctx context.Context, caller Caller, kidID int64, days []int) ([]int, error) {
	if len(days) == 0 {
		return nil, validation.New("schoolDays", "at least one school day is required")
	}
	set := make(progress.SchoolDays, 0, len(days))
	for _, d := range days {
		if d < 0 || d > 6 {
			return nil, validation.New("schoolDays", "school days must be weekday numbers 0-6")
		}
		set = append(set, time.Weekday(d))
	}
	// Normalize order and duplicates.
	parsed, err := progress.ParseSchoolDays(set.String())
	if err != nil {
		return nil, validation.New("schoolDays", err.Error())
	}

	if _, err := s.family.AuthorizeParent(ctx, caller, kidID); err != nil {
		return nil, err
	}
	if err := s.moonRepo.SetSchoolDays(ctx, kidID, parsed); err != nil {
		return nil, persistence("set school days", err)
	}
	return parsed.Ints(), nil
}
