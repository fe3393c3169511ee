package service

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lunara/internal/validation"
)

type recordingSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (r *recordingSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.inputs = append(r.inputs, in)
	return &sesv2.SendEmailOutput{}, nil
}

func (r *recordingSES) recipients() []string {
	var to []string
	for _, in := range r.inputs {
		to = append(to, in.Destination.ToAddresses...)
	}
	return to
}

func TestAuthorizeKid(t *testing.T) {
	e := newTestEnv(t)

	kid, access, err := e.family.AuthorizeKid(e.ctx, e.kidCaller, e.kid.ID)
	require.NoError(t, err)
	assert.Equal(t, AccessElevated, access)
	assert.Equal(t, e.kid.ID, kid.ID)

	_, access, err = e.family.AuthorizeKid(e.ctx, e.parent, e.kid.ID)
	require.NoError(t, err)
	assert.Equal(t, AccessRestricted, access)

	_, _, err = e.family.AuthorizeKid(e.ctx, e.stranger, e.kid.ID)
	assert.ErrorIs(t, err, ErrNotFamilyMember)

	// A kid session for another kid is not a parent session.
	_, _, err = e.family.AuthorizeKid(e.ctx, Caller{KidID: e.kid.ID + 100}, e.kid.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, _, err = e.family.AuthorizeKid(e.ctx, e.parent, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKidLifecycle(t *testing.T) {
	e := newTestEnv(t)

	creds, err := e.family.CreateKid(e.ctx, e.parentID, e.familyID, " Bo ", "")
	require.NoError(t, err)
	assert.Equal(t, "Bo", creds.Kid.Name)
	assert.Equal(t, defaultAvatarColor, creds.Kid.AvatarColor)
	assert.Len(t, creds.PIN, 4)
	assert.Contains(t, creds.Username, "-")

	kid, err := e.family.KidLogin(e.ctx, creds.Username, creds.PIN)
	require.NoError(t, err)
	assert.Equal(t, creds.Kid.ID, kid.ID)

	wrong := "0000"
	if creds.PIN == wrong {
		wrong = "1111"
	}
	_, err = e.family.KidLogin(e.ctx, creds.Username, wrong)
	assert.ErrorIs(t, err, ErrInvalidKidLogin)

	_, err = e.family.KidLogin(e.ctx, "nobody-here", "1234")
	assert.ErrorIs(t, err, ErrInvalidKidLogin)

	reset, err := e.family.ResetKidPIN(e.ctx, e.parent, creds.Kid.ID)
	require.NoError(t, err)
	_, err = e.family.KidLogin(e.ctx, creds.Username, reset.PIN)
	require.NoError(t, err)

	updated, err := e.family.UpdateKid(e.ctx, e.parent, creds.Kid.ID, "Bobby", "#112233")
	require.NoError(t, err)
	assert.Equal(t, "Bobby", updated.Name)

	_, err = e.family.UpdateKid(e.ctx, e.parent, creds.Kid.ID, "Bobby", "blue")
	assert.ErrorIs(t, err, validation.ErrInvalid)

	kids, err := e.family.GetFamilyKids(e.ctx, e.parentID, e.familyID)
	require.NoError(t, err)
	assert.Len(t, kids, 2)

	_, err = e.family.CreateKid(e.ctx, e.stranger.UserID, e.familyID, "Eve", "")
	assert.ErrorIs(t, err, ErrNotFamilyMember)
}

func TestJoinAndLeaveFamily(t *testing.T) {
	e := newTestEnv(t)

	err := e.family.LeaveFamily(e.ctx, e.parentID, e.familyID)
	assert.ErrorIs(t, err, validation.ErrInvalid)

	_, err = e.family.JoinFamily(e.ctx, e.stranger.UserID, "nope")
	assert.ErrorIs(t, err, ErrInvalidFamilyCode)

	fam, err := e.family.JoinFamily(e.ctx, e.stranger.UserID, "moon0001")
	require.NoError(t, err)
	assert.Equal(t, e.familyID, fam.ID)

	_, _, err = e.family.AuthorizeKid(e.ctx, e.stranger, e.kid.ID)
	require.NoError(t, err)

	members, err := e.family.GetFamilyMembers(e.ctx, e.parentID, e.familyID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	require.NoError(t, e.family.LeaveFamily(e.ctx, e.stranger.UserID, e.familyID))
	_, _, err = e.family.AuthorizeKid(e.ctx, e.stranger, e.kid.ID)
	assert.ErrorIs(t, err, ErrNotFamilyMember)
}

func TestInvitations(t *testing.T) {
	e := newTestEnv(t)
	ses := &recordingSES{}
	e.family.email = NewEmailServiceWithClient(ses, "hello@lunara.test", "Lunara", "https://lunara.test", false)

	inv, err := e.family.InviteParent(e.ctx, e.parentID, e.familyID, "Other@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "other@example.com", inv.Email)
	assert.Equal(t, "Pat", inv.InviterName)
	assert.Equal(t, []string{"other@example.com"}, ses.recipients())
	assert.Contains(t, *ses.inputs[0].Content.Simple.Body.Text.Data, inv.Code)

	_, err = e.family.InviteParent(e.ctx, e.stranger.UserID, e.familyID, "x@example.com")
	assert.ErrorIs(t, err, ErrNotFamilyMember)

	fam, err := e.family.AcceptInvitation(e.ctx, e.stranger.UserID, inv.Code)
	require.NoError(t, err)
	assert.Equal(t, "Moonbeams", fam.Name)

	_, err = e.family.AcceptInvitation(e.ctx, e.stranger.UserID, inv.Code)
	assert.ErrorIs(t, err, ErrInvalidInvitation)

	_, err = e.family.AcceptInvitation(e.ctx, e.stranger.UserID, "missing")
	assert.ErrorIs(t, err, ErrInvalidInvitation)
}

func TestRedemptionEmailsEveryParent(t *testing.T) {
	e := newTestEnv(t)
	ses := &recordingSES{}
	e.family.email = NewEmailServiceWithClient(ses, "hello@lunara.test", "", "https://lunara.test", false)
	_, err := e.family.JoinFamily(e.ctx, e.stranger.UserID, "MOON0001")
	require.NoError(t, err)

	e.fund(t, 10)
	rw := e.reward(t, "Game time", 5)
	svc := NewRedemptionService(e.family, e.moonRepo, e.rewardRepo, e.redemptions, e.purchases, e.shopCatalog, e.family)
	_, err = svc.Redeem(e.ctx, e.kidCaller, RedeemRequest{KidID: e.kid.ID, RewardID: rw.ID})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"parent@example.com", "other@example.com"}, ses.recipients())
	assert.Equal(t, "Ada wants to redeem Game time", *ses.inputs[0].Content.Simple.Subject.Data)
	assert.Equal(t, "hello@lunara.test", *ses.inputs[0].FromEmailAddress)
}

func TestAuthRegisterAndLogin(t *testing.T) {
	e := newTestEnv(t)

	user, err := e.auth.Register(e.ctx, "New@Example.com", "password123", "Nova", "")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)

	families, err := e.family.GetUserFamilies(e.ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "Nova's Family", families[0].Name)

	_, err = e.auth.Register(e.ctx, "new@example.com", "password123", "Nova", "")
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = e.auth.Register(e.ctx, "third@example.com", "password123", "Trey", "BADCODE")
	assert.ErrorIs(t, err, ErrInvalidFamilyCode)
	missing, err := e.users.GetUserByEmail(e.ctx, "third@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	joined, err := e.auth.Register(e.ctx, "fourth@example.com", "password123", "Quinn", "moon0001")
	require.NoError(t, err)
	require.NoError(t, e.family.VerifyFamilyAccess(e.ctx, joined.ID, e.familyID))

	_, err = e.auth.Register(e.ctx, "bad", "password123", "Nova", "")
	assert.ErrorIs(t, err, validation.ErrInvalid)

	session, logged, err := e.auth.Login(e.ctx, "NEW@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)

	_, _, err = e.auth.Login(e.ctx, "new@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	current, err := e.auth.ValidateSession(e.ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, current.ID)

	require.NoError(t, e.auth.Logout(e.ctx, session.ID))
	_, err = e.auth.ValidateSession(e.ctx, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestOAuthLogin(t *testing.T) {
	e := newTestEnv(t)

	_, user, err := e.auth.OAuthLogin(e.ctx, "google", "sub-1", "g@example.com", "Gigi")
	require.NoError(t, err)
	assert.Equal(t, "Gigi", user.Name)

	_, again, err := e.auth.OAuthLogin(e.ctx, "google", "sub-1", "g@example.com", "Gigi")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)

	// An existing password account is linked by email.
	_, linked, err := e.auth.OAuthLogin(e.ctx, "google", "sub-2", "parent@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, e.parentID, linked.ID)

	_, _, err = e.auth.OAuthLogin(e.ctx, "", "", "g@example.com", "")
	assert.ErrorIs(t, err, validation.ErrInvalid)
}
