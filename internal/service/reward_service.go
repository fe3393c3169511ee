package service

import (
	"context"
	"fmt"
	"strings"

	"lunara/internal/catalog"
	"lunara/internal/models"
	"lunara/internal/repository"
	"lunara/internal/validation"
)

// RewardInput is the editable part of a reward
type RewardInput struct {
	ID          int64  `json:"id,omitempty"`
	KidID       int64  `json:"kidId" validate:"required" msg:"kidId is required"`
	Name        string `json:"name" validate:"required,max=100" msg:"Reward name is required"`
	Description string `json:"description" validate:"max=500"`
	Emoji       string `json:"emoji" validate:"max=16"`
	Category    string `json:"category" validate:"omitempty,oneof=screen_time activities treats privileges experiences custom" msg:"Invalid reward category"`
	MoonCost    int    `json:"moonCost" validate:"min=1,max=1000" msg:"Moon cost must be between 1 and 1000"`
}

func (in RewardInput) normalize() RewardInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Emoji = strings.TrimSpace(in.Emoji)
	if in.Emoji == "" {
		in.Emoji = models.DefaultRewardEmoji
	}
	if in.Category == "" {
		in.Category = models.CategoryCustom
	}
	return in
}

// RewardService manages the parent-defined rewards of each kid
type RewardService struct {
	family    *FamilyService
	rewards   *repository.RewardRepository
	templates []catalog.TemplateCategory
}

// NewRewardService creates a new reward service
func NewRewardService(family *FamilyService, rewards *repository.RewardRepository, templates []catalog.TemplateCategory) *RewardService {
	return &RewardService{family: family, rewards: rewards, templates: templates}
}

// Templates returns the suggested rewards grouped by category
func (s *RewardService) Templates() []catalog.TemplateCategory {
	return s.templates
}

// List returns the kid's active rewards, cheapest first
func (s *RewardService) List(ctx context.Context, caller Caller, kidID int64) ([]models.Reward, error) {
	if kidID == 0 {
		return nil, validation.New("kidId", "kidId is required")
	}
	if _, _, err := s.family.AuthorizeKid(ctx, caller, kidID); err != nil {
		return nil, err
	}
	rewards, err := s.rewards.ListActiveRewards(ctx, kidID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}
	return rewards, nil
}

// Create adds a reward for a kid in one of the caller's families
func (s *RewardService) Create(ctx context.Context, caller Caller, in RewardInput) (*models.Reward, error) {
	in = in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if _, err := s.family.AuthorizeParent(ctx, caller, in.KidID); err != nil {
		return nil, err
	}

	reward, err := s.rewards.CreateReward(ctx, models.Reward{
		KidID:       in.KidID,
		Name:        in.Name,
		Description: in.Description,
		Emoji:       in.Emoji,
		Category:    in.Category,
		MoonCost:    in.MoonCost,
	})
	if err != nil {
		return nil, persistence("create reward", err)
	}
	return reward, nil
}

// editable loads an active reward and checks the caller is a parent of its kid
func (s *RewardService) editable(ctx context.Context, caller Caller, id int64) (*models.Reward, error) {
	if id == 0 {
		return nil, validation.New("id", "Reward id is required")
	}
	reward, err := s.rewards.GetReward(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get reward: %w", err)
	}
	if reward == nil || !reward.IsActive {
		return nil, notFound("Reward")
	}
	if _, err := s.family.AuthorizeParent(ctx, caller, reward.KidID); err != nil {
		return nil, err
	}
	return reward, nil
}

// Update changes a reward's name, description, emoji, category and cost.
// The kid a reward belongs to never changes.
func (s *RewardService) Update(ctx context.Context, caller Caller, in RewardInput) (*models.Reward, error) {
	reward, err := s.editable(ctx, caller, in.ID)
	if err != nil {
		return nil, err
	}
	in.KidID = reward.KidID
	in = in.normalize()
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	reward.Name = in.Name
	reward.Description = in.Description
	reward.Emoji = in.Emoji
	reward.Category = in.Category
	reward.MoonCost = in.MoonCost
	if err := s.rewards.UpdateReward(ctx, *reward); err != nil {
		return nil, persistence("update reward", err)
	}
	return reward, nil
}

// Delete deactivates a reward. Past redemptions keep pointing at it.
func (s *RewardService) Delete(ctx context.Context, caller Caller, id int64) error {
	if _, err := s.editable(ctx, caller, id); err != nil {
		return err
	}
	if err := s.rewards.DeactivateReward(ctx, id); err != nil {
		return persistence("delete reward", err)
	}
	return nil
}
