package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lunara/internal/config"
	"lunara/internal/models"
	"lunara/internal/progress"
	"lunara/internal/repository"
	"lunara/internal/validation"
)

// DailyBonusItem is the award ledger item for the daily completion bonus
const DailyBonusItem = "daily-bonus"

// CompletionRequest records a finished lesson or activity
type CompletionRequest struct {
	KidID   int64  `json:"kidId" validate:"required"`
	ItemID  string `json:"itemId" validate:"required,max=100"`
	Subject string `json:"subject" validate:"max=50"`
	Minutes int    `json:"minutes" validate:"min=0,max=600"`
	Date    string `json:"date,omitempty"`
}

// CompletionResult summarizes what a completion earned
type CompletionResult struct {
	Recorded          bool       `json:"recorded"`
	MoonsAwarded      int        `json:"moonsAwarded"`
	DailyBonusAwarded bool       `json:"dailyBonusAwarded"`
	NewBalance        int        `json:"newMoonBalance"`
	Streak            StreakView `json:"streak"`
}

// StreakView is the streak shape returned to clients
type StreakView struct {
	Current       int    `json:"current"`
	Best          int    `json:"best"`
	LastCompleted string `json:"lastCompleted,omitempty"`
}

// ActivityService records completions and turns them into moons and streaks
type ActivityService struct {
	family     *FamilyService
	moons      *MoonService
	moonRepo   *repository.MoonRepository
	activities *repository.ActivityRepository
	rules      config.MoonRules
	now        func() time.Time
}

// NewActivityService creates a new activity service
func NewActivityService(family *FamilyService, moons *MoonService, moonRepo *repository.MoonRepository, activities *repository.ActivityRepository, rules config.MoonRules) *ActivityService {
	return &ActivityService{
		family:     family,
		moons:      moons,
		moonRepo:   moonRepo,
		activities: activities,
		rules:      rules,
		now:        time.Now,
	}
}

// resolveDate defaults an empty date to today and validates the rest
func resolveDate(date string, now time.Time) (string, time.Time, error) {
	if date == "" {
		date = progress.Today(now, time.Local)
	}
	if err := validation.ValidateDate("date", date); err != nil {
		return "", time.Time{}, err
	}
	t, err := progress.ParseDate(date)
	if err != nil {
		return "", time.Time{}, validation.New("date", "date is not a valid calendar day")
	}
	return date, t, nil
}

// Complete records a completion. The first completion of an item on a day
// awards moons and advances the streak; reaching the daily threshold awards
// the daily bonus once.
func (s *ActivityService) Complete(ctx context.Context, caller Caller, req CompletionRequest) (*CompletionResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	date, day, err := resolveDate(req.Date, s.now())
	if err != nil {
		return nil, err
	}
	if _, _, err := s.family.AuthorizeKid(ctx, caller, req.KidID); err != nil {
		return nil, err
	}

	recorded, err := s.activities.RecordCompletion(ctx, models.Completion{
		KidID:       req.KidID,
		CompletedOn: date,
		ItemID:      req.ItemID,
		Subject:     strings.ToLower(strings.TrimSpace(req.Subject)),
		Minutes:     req.Minutes,
	})
	if err != nil {
		return nil, persistence("record completion", err)
	}

	result := &CompletionResult{Recorded: recorded}

	award, err := s.moons.Award(ctx, models.Award{
		KidID:  req.KidID,
		Date:   date,
		ItemID: req.ItemID,
		Moons:  s.rules.PerActivity,
		Source: models.AwardSourceActivity,
	})
	if err != nil {
		return nil, err
	}
	result.MoonsAwarded = award.Moons
	result.NewBalance = award.NewBalance

	streak, err := s.UpdateIfCompleted(ctx, req.KidID, day)
	if err != nil {
		return nil, err
	}
	result.Streak = streak

	if s.rules.DailyBonusThreshold > 0 && s.rules.DailyBonus > 0 {
		count, err := s.activities.CountOn(ctx, req.KidID, date)
		if err != nil {
			return nil, err
		}
		if count >= s.rules.DailyBonusThreshold {
			bonus, err := s.moons.Award(ctx, models.Award{
				KidID:  req.KidID,
				Date:   date,
				ItemID: DailyBonusItem,
				Moons:  s.rules.DailyBonus,
				Source: models.AwardSourceDailyBonus,
				Note:   fmt.Sprintf("%d activities in one day", count),
			})
			if err != nil {
				return nil, err
			}
			result.DailyBonusAwarded = bonus.Awarded
			result.MoonsAwarded += bonus.Moons
			result.NewBalance = bonus.NewBalance
		}
	}

	return result, nil
}

// UpdateIfCompleted advances the kid's streak for a completion on date
func (s *ActivityService) UpdateIfCompleted(ctx context.Context, kidID int64, date time.Time) (StreakView, error) {
	p, err := s.moonRepo.GetProgress(ctx, kidID)
	if err != nil {
		return StreakView{}, err
	}

	days := make(progress.SchoolDays, len(p.SchoolDays))
	for i, d := range p.SchoolDays {
		days[i] = time.Weekday(d)
	}

	current := progress.Streak{Current: p.CurrentStreak, Best: p.BestStreak, LastCompleted: p.LastCompletedDate}
	next, changed := progress.Advance(current, date, days)
	if changed {
		if err := s.moonRepo.UpdateStreak(ctx, kidID, next); err != nil {
			return StreakView{}, persistence("update streak", err)
		}
	}
	return StreakView{Current: next.Current, Best: next.Best, LastCompleted: next.LastCompleted}, nil
}
