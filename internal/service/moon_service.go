package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lunara/internal/metrics"
	"lunara/internal/models"
	"lunara/internal/progress"
	"lunara/internal/repository"
	"lunara/internal/validation"
)

const (
	historyDays  = 30
	historyLimit = 100
	maxBonus     = 100
	bonusNote    = "Bonus from parent"
)

// BonusRequest grants extra moons from a parent
type BonusRequest struct {
	KidID  int64  `json:"kidId" validate:"required"`
	Amount int    `json:"amount" validate:"min=1,max=100"`
	Note   string `json:"note" validate:"max=200"`
}

// AwardResult reports the outcome of an award
type AwardResult struct {
	Awarded    bool
	Moons      int
	NewBalance int
}

// History is the kid's recent award ledger
type History struct {
	Awards []models.Award `json:"awards"`
	Total  int            `json:"total"`
}

// MoonService manages the moon balance and the award ledger
type MoonService struct {
	family *FamilyService
	moons  *repository.MoonRepository
	awards *repository.AwardRepository
	now    func() time.Time
}

// NewMoonService creates a new moon service
func NewMoonService(family *FamilyService, moons *repository.MoonRepository, awards *repository.AwardRepository) *MoonService {
	return &MoonService{family: family, moons: moons, awards: awards, now: time.Now}
}

// Balance returns the kid's balance, zero when they have no record
func (s *MoonService) Balance(ctx context.Context, caller Caller, kidID int64) (int, error) {
	if _, _, err := s.family.AuthorizeKid(ctx, caller, kidID); err != nil {
		return 0, err
	}
	balance, err := s.moons.GetBalance(ctx, kidID)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// SetBalance overwrites the kid's balance. Parents only.
func (s *MoonService) SetBalance(ctx context.Context, caller Caller, kidID int64, value int) (int, error) {
	if value < 0 {
		return 0, validation.New("moons", "moons cannot be negative")
	}
	if _, err := s.family.AuthorizeParent(ctx, caller, kidID); err != nil {
		return 0, err
	}
	return s.Override(ctx, kidID, value, fmt.Sprintf("set by parent %d", caller.UserID))
}

// Override sets the balance without access checks and returns the previous
// value. The adjustment is written to the ledger with note.
func (s *MoonService) Override(ctx context.Context, kidID int64, value int, note string) (int, error) {
	if value < 0 {
		return 0, validation.New("moons", "moons cannot be negative")
	}
	if _, err := s.family.GetKid(ctx, kidID); err != nil {
		return 0, err
	}
	previous, err := s.moons.SetBalance(ctx, kidID, value, note)
	if err != nil {
		return 0, persistence("set balance", err)
	}
	return previous, nil
}

// CurrentBalance reads the balance without access checks
func (s *MoonService) CurrentBalance(ctx context.Context, kidID int64) (int, error) {
	if _, err := s.family.GetKid(ctx, kidID); err != nil {
		return 0, err
	}
	balance, err := s.moons.GetBalance(ctx, kidID)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// Award grants a.Moons once per (kid, date, item). It does no access
// checks; callers authorize first.
func (s *MoonService) Award(ctx context.Context, a models.Award) (*AwardResult, error) {
	kind := models.TransactionAward
	if a.Source == models.AwardSourceBonus {
		kind = models.TransactionBonus
	}

	applied, balance, err := s.awards.Award(ctx, a, kind)
	if err != nil {
		return nil, persistence("award moons", err)
	}
	if applied {
		metrics.MoonsAwarded.WithLabelValues(a.Source).Add(float64(a.Moons))
	}
	result := &AwardResult{Awarded: applied, NewBalance: balance}
	if applied {
		result.Moons = a.Moons
	}
	return result, nil
}

// IsAwarded reports whether an item already earned moons on date
func (s *MoonService) IsAwarded(ctx context.Context, kidID int64, date, itemID string) (bool, error) {
	return s.awards.IsAwarded(ctx, kidID, date, itemID)
}

// GrantBonus awards bonus moons from a parent
func (s *MoonService) GrantBonus(ctx context.Context, caller Caller, req BonusRequest) (*AwardResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if _, err := s.family.AuthorizeParent(ctx, caller, req.KidID); err != nil {
		return nil, err
	}

	note := strings.TrimSpace(req.Note)
	if note == "" {
		note = bonusNote
	}
	now := s.now()
	return s.Award(ctx, models.Award{
		KidID:  req.KidID,
		Date:   progress.Today(now, time.Local),
		ItemID: fmt.Sprintf("bonus-%d", now.UnixNano()),
		Moons:  req.Amount,
		Source: models.AwardSourceBonus,
		Note:   note,
	})
}

// History lists the last 30 days of awards, newest first
func (s *MoonService) History(ctx context.Context, caller Caller, kidID int64) (*History, error) {
	if kidID == 0 {
		return nil, validation.New("kidId", "kidId is required")
	}
	if _, _, err := s.family.AuthorizeKid(ctx, caller, kidID); err != nil {
		return nil, err
	}

	since := progress.Today(s.now().AddDate(0, 0, -historyDays), time.Local)
	awards, err := s.awards.AwardsSince(ctx, kidID, since, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get moon history: %w", err)
	}

	total := 0
	for _, a := range awards {
		total += a.Moons
	}
	return &History{Awards: awards, Total: total}, nil
}

// Transactions lists the kid's balance ledger, newest first
func (s *MoonService) Transactions(ctx context.Context, kidID int64, limit int) ([]models.MoonTransaction, error) {
	return s.moons.Transactions(ctx, kidID, limit)
}
