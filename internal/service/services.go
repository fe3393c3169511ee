package service

import (
	"fmt"
	"time"

	"lunara/internal/catalog"
	"lunara/internal/config"
	"lunara/internal/database"
	"lunara/internal/repository"
)

// Options configures NewServices
type Options struct {
	SessionDuration time.Duration
	Moons           config.MoonRules
	Email           *EmailService

	// Shop and Templates default to the embedded catalog when nil
	Shop      *catalog.Shop
	Templates []catalog.TemplateCategory
}

// Services is the wired service layer shared by the server and admin CLI
type Services struct {
	Auth       *AuthService
	Family     *FamilyService
	Moons      *MoonService
	Claims     *RedemptionService
	Shop       *ShopService
	Rewards    *RewardService
	Activities *ActivityService
	Journal    *JournalService
	Progress   *ProgressService
	Backup     *BackupService
}

// NewServices builds every repository and service over db. The embedded
// shop catalog and reward templates are loaded unless opts supplies them.
func NewServices(db *database.DB, opts Options) (*Services, error) {
	shop, templates := opts.Shop, opts.Templates
	if shop == nil || templates == nil {
		var err error
		if shop, templates, err = LoadCatalog(); err != nil {
			return nil, err
		}
	}

	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	kidRepo := repository.NewKidRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)
	moonRepo := repository.NewMoonRepository(db)
	awardRepo := repository.NewAwardRepository(db)
	rewardRepo := repository.NewRewardRepository(db)
	redemptionRepo := repository.NewRedemptionRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	journalRepo := repository.NewJournalRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	s := &Services{}
	s.Auth = NewAuthService(userRepo, familyRepo, opts.Email, opts.SessionDuration)
	s.Family = NewFamilyService(familyRepo, kidRepo, invitationRepo, userRepo, opts.Email)
	s.Moons = NewMoonService(s.Family, moonRepo, awardRepo)
	s.Claims = NewRedemptionService(s.Family, moonRepo, rewardRepo, redemptionRepo, purchaseRepo, shop, s.Family)
	s.Shop = NewShopService(s.Family, moonRepo, purchaseRepo, shop, opts.Moons.ShopRefundOnFailure)
	s.Rewards = NewRewardService(s.Family, rewardRepo, templates)
	s.Activities = NewActivityService(s.Family, s.Moons, moonRepo, activityRepo, opts.Moons)
	s.Journal = NewJournalService(s.Family, s.Moons, journalRepo, opts.Moons)
	s.Progress = NewProgressService(s.Family, moonRepo, activityRepo, journalRepo, s.Shop)
	s.Backup = NewBackupService(db)
	return s, nil
}

// LoadCatalog loads the embedded shop catalog and reward templates
func LoadCatalog() (*catalog.Shop, []catalog.TemplateCategory, error) {
	shop, err := catalog.LoadShop()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load shop catalog: %w", err)
	}
	templates, err := catalog.LoadTemplates()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load reward templates: %w", err)
	}
	return shop, templates, nil
}
