package hostel

import (
	"context"
	"log"
	"time"

	"capsule-hostel-backend/internal/model"
	"capsule-hostel-backend/internal/store"
)

// CleaningNotifier is notified when a capsule transitions to needing
// cleaning. The notification layer implements it with a worker pool; a nil
// notifier is allowed.
type CleaningNotifier interface {
	Dispatch(capsuleNumber string)
}

// Options configures a Lifecycle. Zero values get sensible defaults.
type Options struct {
	// Now supplies the current time; defaults to time.Now. Injectable for
	// deterministic expiry tests.
	Now func() time.Time
	// Location is the hostel's local timezone for calendar-day logic;
	// defaults to time.Local.
	Location *time.Location
	// DefaultTokenExpiry applies when a token is issued without an explicit
	// window; defaults to 24h.
	DefaultTokenExpiry time.Duration
	// Notifier receives needs-cleaning dispatches; may be nil.
	Notifier CleaningNotifier
}

// Lifecycle is the behavioral core: it composes the capsule registry, guest
// ledger, token issuer and occupancy calculator, and enforces the invariants
// that span them.
type Lifecycle struct {
	Registry  *CapsuleRegistry
	Ledger    *GuestLedger
	Tokens    *TokenIssuer
	Occupancy *OccupancyCalculator

	notifier CleaningNotifier
}

// New wires up a Lifecycle over the given store.
func New(s store.Store, opts Options) *Lifecycle {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	registry := NewCapsuleRegistry(s, now)
	ledger := NewGuestLedger(s, now, loc)
	tokens := NewTokenIssuer(s, registry, ledger, now, opts.DefaultTokenExpiry)

	return &Lifecycle{
		Registry:  registry,
		Ledger:    ledger,
		Tokens:    tokens,
		Occupancy: NewOccupancyCalculator(s),
		notifier:  opts.Notifier,
	}
}

// CheckIn performs a staff check-in. The capsule's availability is
// re-checked atomically with the guest insert; the capsule record itself is
// not mutated, occupancy queries join against the ledger instead.
func (lc *Lifecycle) CheckIn(ctx context.Context, req CheckInRequest) (*model.Guest, error) {
	return lc.Ledger.CheckIn(ctx, req)
}

// CheckOutResult reports a checkout. CleaningFlagged is false when the guest
// was checked out but the capsule's needs-cleaning flag could not be
// written; the capsule then needs a manual cleaning-status review.
type CheckOutResult struct {
	Guest           *model.Guest `json:"guest"`
	CleaningFlagged bool         `json:"cleaningFlagged"`
}

// CheckOut checks a guest out and flags their capsule for cleaning. The
// guest-side write applies first; a failed cleaning-flag write degrades the
// result rather than rolling back, since a guest wrongly shown as checked in
// is worse than a capsule wrongly shown as clean.
func (lc *Lifecycle) CheckOut(ctx context.Context, guestID string) (*CheckOutResult, error) {
	guest, err := lc.Ledger.CheckOut(ctx, guestID)
	if err != nil {
		return nil, err
	}

	result := &CheckOutResult{Guest: guest, CleaningFlagged: true}
	if err := lc.Registry.MarkNeedsCleaning(ctx, guest.CapsuleNumber); err != nil {
		log.Printf("checkout of guest %s: failed to flag capsule %s for cleaning: %v", guest.ID, guest.CapsuleNumber, err)
		result.CleaningFlagged = false
		return result, nil
	}

	if lc.notifier != nil {
		lc.notifier.Dispatch(guest.CapsuleNumber)
	}
	return result, nil
}

// SelfCheckIn redeems a token on behalf of an unauthenticated guest. The
// redemption applies the same capsule-availability re-check as a staff
// check-in.
func (lc *Lifecycle) SelfCheckIn(ctx context.Context, token string, req RedeemRequest) (*model.Guest, error) {
	return lc.Tokens.Redeem(ctx, token, req)
}
