package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lunara/internal/catalog"
	"lunara/internal/config"
	"lunara/internal/database"
	"lunara/internal/models"
	"lunara/internal/repository"
	"lunara/internal/security"
)

type testEnv struct {
	ctx context.Context
	db  *database.DB

	users       *repository.UserRepository
	families    *repository.FamilyRepository
	kids        *repository.KidRepository
	moonRepo    *repository.MoonRepository
	awardRepo   *repository.AwardRepository
	rewardRepo  *repository.RewardRepository
	redemptions *repository.RedemptionRepository
	purchases   *repository.PurchaseRepository
	journalRepo *repository.JournalRepository
	activities  *repository.ActivityRepository

	shopCatalog *catalog.Shop
	rules       config.MoonRules

	family     *FamilyService
	moons      *MoonService
	claims     *RedemptionService
	shop       *ShopService
	activity   *ActivityService
	journal    *JournalService
	progress   *ProgressService
	rewards    *RewardService
	auth       *AuthService
	familyID   int64
	parentID   int64
	kid        *models.Kid
	parent     Caller
	kidCaller  Caller
	stranger   Caller
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	shop, err := catalog.LoadShop()
	require.NoError(t, err)
	templates, err := catalog.LoadTemplates()
	require.NoError(t, err)

	e := &testEnv{
		ctx:         context.Background(),
		db:          db,
		users:       repository.NewUserRepository(db),
		families:    repository.NewFamilyRepository(db),
		kids:        repository.NewKidRepository(db),
		moonRepo:    repository.NewMoonRepository(db),
		awardRepo:   repository.NewAwardRepository(db),
		rewardRepo:  repository.NewRewardRepository(db),
		redemptions: repository.NewRedemptionRepository(db),
		purchases:   repository.NewPurchaseRepository(db),
		journalRepo: repository.NewJournalRepository(db),
		activities:  repository.NewActivityRepository(db),
		shopCatalog: shop,
		rules:       config.DefaultMoonRules(),
	}

	invitations := repository.NewInvitationRepository(db)
	e.family = NewFamilyService(e.families, e.kids, invitations, e.users, nil)
	e.moons = NewMoonService(e.family, e.moonRepo, e.awardRepo)
	e.claims = NewRedemptionService(e.family, e.moonRepo, e.rewardRepo, e.redemptions, e.purchases, shop, nil)
	e.shop = NewShopService(e.family, e.moonRepo, e.purchases, shop, true)
	e.activity = NewActivityService(e.family, e.moons, e.moonRepo, e.activities, e.rules)
	e.journal = NewJournalService(e.family, e.moons, e.journalRepo, e.rules)
	e.progress = NewProgressService(e.family, e.moonRepo, e.activities, e.journalRepo, e.shop)
	e.rewards = NewRewardService(e.family, e.rewardRepo, templates)
	e.auth = NewAuthService(e.users, e.families, nil, time.Hour)

	user, err := e.users.CreateUser(e.ctx, "parent@example.com", "hash", "Pat")
	require.NoError(t, err)
	fam, err := e.families.CreateFamily(e.ctx, "Moonbeams", "MOON0001", user.ID)
	require.NoError(t, err)
	pinHash, err := security.HashPassword("1234")
	require.NoError(t, err)
	kid, err := e.kids.CreateKid(e.ctx, fam.ID, "Ada", "happy-fox", pinHash, "#7C6FE0")
	require.NoError(t, err)

	other, err := e.users.CreateUser(e.ctx, "other@example.com", "hash", "Olive")
	require.NoError(t, err)
	_, err = e.families.CreateFamily(e.ctx, "Sunbeams", "SUN00001", other.ID)
	require.NoError(t, err)

	e.familyID = fam.ID
	e.parentID = user.ID
	e.kid = kid
	e.parent = Caller{UserID: user.ID}
	e.kidCaller = Caller{KidID: kid.ID, FamilyID: fam.ID}
	e.stranger = Caller{UserID: other.ID}
	return e
}

// fund sets the kid's balance through the ledger
func (e *testEnv) fund(t *testing.T, moons int) {
	t.Helper()
	_, err := e.moonRepo.SetBalance(e.ctx, e.kid.ID, moons, "test")
	require.NoError(t, err)
}

func (e *testEnv) balance(t *testing.T) int {
	t.Helper()
	b, err := e.moonRepo.GetBalance(e.ctx, e.kid.ID)
	require.NoError(t, err)
	return b
}

// requireLedgerMatches checks the ledger sums to the stored balance
func (e *testEnv) requireLedgerMatches(t *testing.T) {
	t.Helper()
	sum, err := e.moonRepo.LedgerSum(e.ctx, e.kid.ID)
	require.NoError(t, err)
	require.Equal(t, e.balance(t), sum)
}

func (e *testEnv) reward(t *testing.T, name string, cost int) *models.Reward {
	t.Helper()
	rw, err := e.rewardRepo.CreateReward(e.ctx, models.Reward{
		KidID:    e.kid.ID,
		Name:     name,
		Emoji:    "🎮",
		Category: models.CategoryScreenTime,
		MoonCost: cost,
	})
	require.NoError(t, err)
	return rw
}
