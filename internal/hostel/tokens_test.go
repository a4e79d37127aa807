package hostel_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capsule-hostel-backend/internal/hostel"
	"capsule-hostel-backend/internal/model"
	"capsule-hostel-backend/internal/store"
)

func TestTokens_IssueRequiresExactlyOneTarget(t *testing.T) {
	lc, _, _, _ := newTestLifecycle(t)
	ctx := context.Background()
	createCapsule(t, lc, "C01", model.SectionFront, model.PositionBottom)

	var verr *hostel.ValidationError

	_, err := lc.Tokens.Issue(ctx, hostel.IssueRequest{}, "staff1")
	require.ErrorAs(t, err, &verr)

	_, err = lc.Tokens.Issue(ctx, hostel.IssueRequest{CapsuleNumber: "C01", AutoAssign: true}, "staff1")
	require.ErrorAs(t, err, &verr)

	_, err = lc.Tokens.Issue(ctx, hostel.IssueRequest{CapsuleNumber: "C99"}, "staff1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	token, err := lc.Tokens.Issue(ctx, hostel.IssueRequest{CapsuleNumber: "C01"}, "staff1")
	require.NoError(t, err)
	assert.NotEmpty(t, token.Token)
	assert.Equal(t, "staff1", token.CreatedBy)
	assert.False(t, token.IsUsed)
}

func TestTokens_ExpiryWindow(t *testing.T) {
	lc, _, clock, _ := newTestLifecycle(t)
	ctx := context.Background()

	token, err := lc.Tokens.Issue(ctx, hostel.IssueRequest{AutoAssign: true, ExpiresInHours: 6}, "staff1")
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(6*time.Hour), token.ExpiresAt)

	_, err = lc.Tokens.Validate(ctx, token.Token)
	require.NoError(t, err)

	clock.Advance(6*time.Hour + time.Minute)
	_, err = lc.Tokens.Validate(ctx, token.Token)
	assert.ErrorIs(t, err, hostel.ErrTokenInvalid)

	// A dead token redeems to the same generic error as a bogus one.
	_, err = lc.SelfCheckIn(ctx, token.Token, hostel.RedeemRequest{Name: "Aina"})
	assert.ErrorIs(t, err, hostel.ErrTokenInvalid)
	_, err = lc.SelfCheckIn(ctx, "no-such-token", hostel.RedeemRequest{Name: "Aina"})
	assert.ErrorIs(t, err, hostel.ErrTokenInvalid)
}

func TestTokens_RedeemIsSingleUse(t *testing.T) {
	lc, _, _, _ := newTestLifecycle(t)
	ctx := context.Background()
	createCapsule(t, lc, "C01", model.SectionFront, model.PositionBottom)
	createCapsule(t, lc, "C02", model.SectionFront, model.PositionTop)

	token, err := lc.Tokens.Issue(ctx, hostel.IssueRequest{AutoAssign: true}, "staff1")
	require.NoError(t, err)

	guest, err := lc.SelfCheckIn(ctx, token.Token, hostel.RedeemRequest{Name: "Aina"})
	require.NoError(t, err)
	assert.True(t, guest.IsCheckedIn)
	assert.Equal(t, model.PaymentPlatform, guest.PaymentMethod)
	assert.Equal(t, "staff1", guest.PaymentCollector)

	// There is a free capsule left, but the token is spent.
	_, err = lc.SelfCheckIn(ctx, token.Token, hostel.RedeemRequest{Name: "Bala"})
	assert.ErrorIs(t, err, hostel.ErrTokenInvalid)
}

func TestTokens_RedeemMergesPrefillGuestWins(t *testing.T) {
	lc, _, _, _ := newTestLifecycle(t)
	ctx := context.Background()
	createCapsule(t, lc, "C01", model.SectionFront, model.PositionBottom)

	token, err := lc.Tokens.Issue(ctx, hostel.IssueRequest{
		CapsuleNumber:        "C01",
		GuestName:            "Prefilled Name",
		PhoneNumber:          "+60100000000",
		Email:                "prefill@example.com",
		ExpectedCheckoutDate: "2025-06-05",
	}, "staff1")
	require.NoError(t, err)

	guest, err := lc.SelfCheckIn(ctx, token.Token, hostel.RedeemRequest{
		Name:        "Aina",
		PhoneNumber: "+60111111111",
	})
	require.NoError(t, err)
	assert.Equal(t, "Aina", guest.Name)
	assert.Equal(t, "+60111111111", guest.PhoneNumber)
	assert.Equal(t, "prefill@example.com", guest.Email)
	assert.Equal(t, "2025-06-05", guest.ExpectedCheckoutDate)
	assert.Equal(t, "C01", guest.CapsuleNumber)
}

func TestTokens_AutoAssignPrefersSections(t *testing.T) {
	lc, _, _, _ := newTestLifecycle(t)
	ctx := context.Background()
	createCapsule(t, lc, "F1", model.SectionFront, model.PositionBottom)
	createCapsule(t, lc, "F2", model.SectionFront, model.PositionTop)
	createCapsule(t, lc, "B1", model.SectionBack, model.PositionTop)
	createCapsule(t, lc, "B2", model.SectionBack, model.PositionBottom)

	redeem := func(req hostel.RedeemRequest) *model.Guest {
		token, err := lc.Tokens.Issue(ctx, hostel.IssueRequest{AutoAssign: true}, "staff1")
		require.NoError(t, err)
		guest, err := lc.SelfCheckIn(ctx, token.Token, req)
		require.NoError(t, err)
		return guest
	}

	// Female guests land in the back, bottom bunk first.
	guest := redeem(hostel.RedeemRequest{Name: "Aina", Gender: "female"})
	assert.Equal(t, "B2", guest.CapsuleNumber)
	guest = redeem(hostel.RedeemRequest{Name: "Mei", Gender: "female"})
	assert.Equal(t, "B1", guest.CapsuleNumber)

	// Back section is full: the next female falls through to first available.
	guest = redeem(hostel.RedeemRequest{Name: "Sara", Gender: "female"})
	assert.Contains(t, []string{"F1", "F2"}, guest.CapsuleNumber)

	// Male and undeclared guests take whatever is left.
	guest = redeem(hostel.RedeemRequest{Name: "Bala", Gender: "male"})
	assert.NotEmpty(t, guest.CapsuleNumber)

	// Inventory exhausted.
	token, err := lc.Tokens.Issue(ctx, hostel.IssueRequest{AutoAssign: true}, "staff1")
	require.NoError(t, err)
	_, err = lc.SelfCheckIn(ctx, token.Token, hostel.RedeemRequest{Name: "Late"})
	assert.ErrorIs(t, err, store.ErrCapsuleUnavailable)
}

func TestTokens_ReleaseOnFailedCheckIn(t *testing.T) {
	lc, _, _, _ := newTestLifecycle(t)
	ctx := context.Background()
	createCapsule(t, lc, "C01", model.SectionFront, model.PositionBottom)

	token, err := lc.Tokens.Issue(ctx, hostel.IssueRequest{CapsuleNumber: "C01"}, "staff1")
	require.NoError(t, err)

	// Staff claim the capsule between issue and redemption.
	occupant, err := lc.CheckIn(ctx, checkInRequest("C01"))
	require.NoError(t, err)

	_, err = lc.SelfCheckIn(ctx, token.Token, hostel.RedeemRequest{Name: "Aina"})
	assert.ErrorIs(t, err, store.ErrCapsuleUnavailable)

	// The failed redemption released the token, so once the capsule frees up
	// the guest can retry with the same link.
	_, err = lc.CheckOut(ctx, occupant.ID)
	require.NoError(t, err)
	require.NoError(t, lc.Registry.MarkCleaned(ctx, "C01", "housekeeper1"))

	guest, err := lc.SelfCheckIn(ctx, token.Token, hostel.RedeemRequest{Name: "Aina"})
	require.NoError(t, err)
	assert.Equal(t, "C01", guest.CapsuleNumber)
}

func TestTokens_SweepExpired(t *testing.T) {
	lc, s, clock, _ := newTestLifecycle(t)
	ctx := context.Background()

	old, err := lc.Tokens.Issue(ctx, hostel.IssueRequest{AutoAssign: true, ExpiresInHours: 1}, "staff1")
	require.NoError(t, err)
	fresh, err := lc.Tokens.Issue(ctx, hostel.IssueRequest{AutoAssign: true, ExpiresInHours: 48}, "staff1")
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	deleted, err := lc.Tokens.SweepExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	_, err = s.GetToken(ctx, old.Token)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = lc.Tokens.Validate(ctx, fresh.Token)
	assert.NoError(t, err)

	deleted, err = lc.Tokens.SweepExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, deleted)
}

func TestTokens_ConcurrentRedeemSingleWinner(t *testing.T) {
	lc, _, _, _ := newTestLifecycle(t)
	ctx := context.Background()
	createCapsule(t, lc, "C01", model.SectionFront, model.PositionBottom)
	createCapsule(t, lc, "C02", model.SectionFront, model.PositionTop)

	token, err := lc.Tokens.Issue(ctx, hostel.IssueRequest{AutoAssign: true}, "staff1")
	require.NoError(t, err)

	const attempts = 8
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			_, err := lc.SelfCheckIn(ctx, token.Token, hostel.RedeemRequest{Name: "Racer"})
			errs <- err
		}()
	}

	var won int
	for i := 0; i < attempts; i++ {
		if err := <-errs; err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, hostel.ErrTokenInvalid)
		}
	}
	assert.Equal(t, 1, won)
}
