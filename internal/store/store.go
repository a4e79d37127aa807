package store

import (
	"context"
	"time"

	"capsule-hostel-backend/internal/model"
)

// Store defines the interface for all persistence operations. Two
// implementations exist: a transactional GORM store for production and an
// in-memory store for tests and development.
type Store interface {
	// Capsules.
	CreateCapsule(ctx context.Context, capsule *model.Capsule) error
	GetCapsule(ctx context.Context, number string) (*model.Capsule, error)
	ListCapsules(ctx context.Context) ([]model.Capsule, error)
	// ListAvailableCapsules returns capsules that are flagged available,
	// cleaned, and not tied to any checked-in guest. The guest join is a
	// defensive filter: a stale availability flag must not leak an occupied
	// capsule into the result.
	ListAvailableCapsules(ctx context.Context) ([]model.Capsule, error)
	CountCapsules(ctx context.Context) (int64, error)
	MarkCapsuleCleaned(ctx context.Context, number string, at time.Time, by string) error
	MarkCapsuleNeedsCleaning(ctx context.Context, number string) error

	// Guests.
	// CreateGuestIfCapsuleFree atomically re-checks that the guest's capsule
	// is bookable (available, cleaned, zero checked-in guests) and inserts
	// the record. Two concurrent calls for the same capsule cannot both
	// succeed; the loser gets ErrCapsuleUnavailable.
	CreateGuestIfCapsuleFree(ctx context.Context, guest *model.Guest) error
	GetGuest(ctx context.Context, id string) (*model.Guest, error)
	// CompleteCheckout flips is_checked_in false and stamps the checkout
	// time, but only if the guest is still checked in. Returns ErrConflict
	// if the guest is already checked out, ErrNotFound if unknown.
	CompleteCheckout(ctx context.Context, id string, at time.Time) (*model.Guest, error)
	UpdateGuestFields(ctx context.Context, id string, fields map[string]any) (*model.Guest, error)
	ListCheckedInGuests(ctx context.Context) ([]model.Guest, error)
	ListGuestHistory(ctx context.Context, page Page) (*GuestPage, error)
	// ListDueCheckouts returns checked-in guests whose expected checkout
	// date equals day (2006-01-02 form).
	ListDueCheckouts(ctx context.Context, day string) ([]model.Guest, error)
	CountCheckedInGuests(ctx context.Context) (int64, error)

	// Self-check-in tokens.
	CreateToken(ctx context.Context, token *model.GuestToken) error
	GetToken(ctx context.Context, token string) (*model.GuestToken, error)
	// MarkTokenUsed is a compare-and-swap on is_used: it succeeds for at
	// most one caller per token and returns ErrConflict for the rest.
	MarkTokenUsed(ctx context.Context, token string, at time.Time) error
	// ReleaseToken reverts a mark-used so a failed redemption stays
	// retryable by the guest.
	ReleaseToken(ctx context.Context, token string) error
	// DeleteExpiredTokens removes tokens past expiry. Deleting an already
	// deleted token is a no-op, so concurrent sweeps are safe.
	DeleteExpiredTokens(ctx context.Context, cutoff time.Time) (int64, error)

	// Staff users.
	CreateStaffUser(ctx context.Context, user *model.StaffUser) error
	GetStaffUser(ctx context.Context, username string) (*model.StaffUser, error)

	// Housekeeping push subscriptions.
	UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeleteSubscription(ctx context.Context, endpoint string) error
	ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error)
}
