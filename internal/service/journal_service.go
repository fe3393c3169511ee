package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"lunara/internal/config"
	"lunara/internal/models"
	"lunara/internal/repository"
	"lunara/internal/validation"
)

// JournalItem is the award ledger item for a written journal entry
const JournalItem = "journal"

const journalListLimit = 60

// JournalRequest creates or replaces the kid's entry for a day
type JournalRequest struct {
	KidID    int64  `json:"kidId" validate:"required"`
	Date     string `json:"date,omitempty"`
	Prompt   string `json:"prompt" validate:"max=500"`
	Response string `json:"response" validate:"max=5000"`
	Skipped  bool   `json:"skipped"`
}

// JournalResult is a saved entry and what it earned
type JournalResult struct {
	Entry        *models.JournalEntry `json:"entry"`
	Created      bool                 `json:"created"`
	MoonsAwarded int                  `json:"moonsAwarded"`
	NewBalance   int                  `json:"newMoonBalance"`
}

// JournalService handles journal entries
type JournalService struct {
	family  *FamilyService
	moons   *MoonService
	journal *repository.JournalRepository
	rules   config.MoonRules
	now     func() time.Time
}

// NewJournalService creates a new journal service
func NewJournalService(family *FamilyService, moons *MoonService, journal *repository.JournalRepository, rules config.MoonRules) *JournalService {
	return &JournalService{family: family, moons: moons, journal: journal, rules: rules, now: time.Now}
}

// Save upserts the day's entry. A written (not skipped) entry awards moons
// once per day.
func (s *JournalService) Save(ctx context.Context, caller Caller, req JournalRequest) (*JournalResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	date, _, err := resolveDate(req.Date, s.now())
	if err != nil {
		return nil, err
	}
	if _, _, err := s.family.AuthorizeKid(ctx, caller, req.KidID); err != nil {
		return nil, err
	}

	response := strings.TrimSpace(req.Response)
	entry, created, err := s.journal.SaveEntry(ctx, models.JournalEntry{
		KidID:    req.KidID,
		Date:     date,
		Prompt:   strings.TrimSpace(req.Prompt),
		Response: response,
		Skipped:  req.Skipped,
	})
	if err != nil {
		return nil, persistence("save journal entry", err)
	}

	result := &JournalResult{Entry: entry, Created: created}
	if req.Skipped || response == "" || s.rules.Journal <= 0 {
		return result, nil
	}

	award, err := s.moons.Award(ctx, models.Award{
		KidID:  req.KidID,
		Date:   date,
		ItemID: JournalItem,
		Moons:  s.rules.Journal,
		Source: models.AwardSourceJournal,
	})
	if err != nil {
		return nil, err
	}
	result.MoonsAwarded = award.Moons
	result.NewBalance = award.NewBalance
	return result, nil
}

// List returns the kid's entries newest first
func (s *JournalService) List(ctx context.Context, caller Caller, kidID int64) ([]models.JournalEntry, error) {
	if kidID == 0 {
		return nil, validation.New("kidId", "kidId is required")
	}
	if _, _, err := s.family.AuthorizeKid(ctx, caller, kidID); err != nil {
		return nil, err
	}
	entries, err := s.journal.ListEntries(ctx, kidID, journalListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	return entries, nil
}
