package store_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"capsule-hostel-backend/internal/db"
	"capsule-hostel-backend/internal/model"
	"capsule-hostel-backend/internal/store"
)

func newGormTestStore(t *testing.T) store.Store {
	t.Helper()

	// A named shared-cache database so all pooled connections see the same
	// in-memory store, unique per test to avoid cross-test bleed.
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))

	t.Cleanup(func() {
		sqlDB, err := gormDB.DB()
		if err == nil {
			sqlDB.Close()
		}
	})
	return store.NewGormStore(gormDB)
}

// runStoreTests runs the shared behavior suite against a Store factory, so
// the GORM and in-memory implementations stay interchangeable.
func runStoreTests(t *testing.T, newStore func(t *testing.T) store.Store) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	seedCapsule := func(t *testing.T, s store.Store, number string, section model.Section) {
		t.Helper()
		require.NoError(t, s.CreateCapsule(ctx, &model.Capsule{
			Number:         number,
			Section:        section,
			Position:       model.PositionBottom,
			IsAvailable:    true,
			CleaningStatus: model.CleaningCleaned,
		}))
	}

	seedGuest := func(t *testing.T, s store.Store, id, capsule string, checkedIn bool) *model.Guest {
		t.Helper()
		guest := &model.Guest{
			ID:            id,
			CapsuleNumber: capsule,
			Name:          "Guest " + id,
			CheckinTime:   now,
			IsCheckedIn:   true,
		}
		require.NoError(t, s.CreateGuestIfCapsuleFree(ctx, guest))
		if !checkedIn {
			out, err := s.CompleteCheckout(ctx, id, now.Add(time.Hour))
			require.NoError(t, err)
			guest = out
		}
		return guest
	}

	t.Run("capsule round trip", func(t *testing.T) {
		s := newStore(t)
		seedCapsule(t, s, "C01", model.SectionFront)

		capsule, err := s.GetCapsule(ctx, "C01")
		require.NoError(t, err)
		assert.Equal(t, "C01", capsule.Number)
		assert.Equal(t, model.SectionFront, capsule.Section)

		_, err = s.GetCapsule(ctx, "C99")
		assert.ErrorIs(t, err, store.ErrNotFound)

		total, err := s.CountCapsules(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
	})

	t.Run("available excludes dirty and occupied capsules", func(t *testing.T) {
		s := newStore(t)
		seedCapsule(t, s, "C01", model.SectionFront)
		seedCapsule(t, s, "C02", model.SectionMiddle)
		seedCapsule(t, s, "C03", model.SectionBack)

		// C02 needs cleaning, C03 is occupied.
		require.NoError(t, s.MarkCapsuleNeedsCleaning(ctx, "C02"))
		seedGuest(t, s, "g1", "C03", true)

		available, err := s.ListAvailableCapsules(ctx)
		require.NoError(t, err)
		require.Len(t, available, 1)
		assert.Equal(t, "C01", available[0].Number)
	})

	t.Run("mark cleaned restores availability and stamps actor", func(t *testing.T) {
		s := newStore(t)
		seedCapsule(t, s, "C01", model.SectionFront)
		require.NoError(t, s.MarkCapsuleNeedsCleaning(ctx, "C01"))

		capsule, err := s.GetCapsule(ctx, "C01")
		require.NoError(t, err)
		assert.Equal(t, model.CleaningNeeded, capsule.CleaningStatus)
		assert.False(t, capsule.IsAvailable)

		require.NoError(t, s.MarkCapsuleCleaned(ctx, "C01", now, "staff1"))

		capsule, err = s.GetCapsule(ctx, "C01")
		require.NoError(t, err)
		assert.Equal(t, model.CleaningCleaned, capsule.CleaningStatus)
		assert.True(t, capsule.IsAvailable)
		assert.Equal(t, "staff1", capsule.LastCleanedBy)
		require.NotNil(t, capsule.LastCleanedAt)

		assert.ErrorIs(t, s.MarkCapsuleCleaned(ctx, "C99", now, "staff1"), store.ErrNotFound)
		assert.ErrorIs(t, s.MarkCapsuleNeedsCleaning(ctx, "C99"), store.ErrNotFound)
	})

	t.Run("guarded insert rejects second active guest", func(t *testing.T) {
		s := newStore(t)
		seedCapsule(t, s, "C01", model.SectionFront)
		seedGuest(t, s, "g1", "C01", true)

		err := s.CreateGuestIfCapsuleFree(ctx, &model.Guest{
			ID:            "g2",
			CapsuleNumber: "C01",
			Name:          "Second",
			CheckinTime:   now,
			IsCheckedIn:   true,
		})
		assert.ErrorIs(t, err, store.ErrCapsuleUnavailable)
	})

	t.Run("guarded insert rejects dirty and unknown capsules", func(t *testing.T) {
		s := newStore(t)
		seedCapsule(t, s, "C01", model.SectionFront)
		require.NoError(t, s.MarkCapsuleNeedsCleaning(ctx, "C01"))

		err := s.CreateGuestIfCapsuleFree(ctx, &model.Guest{
			ID: "g1", CapsuleNumber: "C01", Name: "A", CheckinTime: now, IsCheckedIn: true,
		})
		assert.ErrorIs(t, err, store.ErrCapsuleUnavailable)

		err = s.CreateGuestIfCapsuleFree(ctx, &model.Guest{
			ID: "g2", CapsuleNumber: "C99", Name: "B", CheckinTime: now, IsCheckedIn: true,
		})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("checkout flips state exactly once", func(t *testing.T) {
		s := newStore(t)
		seedCapsule(t, s, "C01", model.SectionFront)
		seedGuest(t, s, "g1", "C01", true)

		checkoutAt := now.Add(2 * time.Hour)
		guest, err := s.CompleteCheckout(ctx, "g1", checkoutAt)
		require.NoError(t, err)
		assert.False(t, guest.IsCheckedIn)
		require.NotNil(t, guest.CheckoutTime)
		assert.WithinDuration(t, checkoutAt, *guest.CheckoutTime, time.Second)

		// Double checkout fails; the cleaning side effect must not double-fire.
		_, err = s.CompleteCheckout(ctx, "g1", checkoutAt.Add(time.Minute))
		assert.ErrorIs(t, err, store.ErrConflict)

		_, err = s.CompleteCheckout(ctx, "unknown", checkoutAt)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("checked out capsule can be rebooked after it frees up", func(t *testing.T) {
		s := newStore(t)
		seedCapsule(t, s, "C01", model.SectionFront)
		seedGuest(t, s, "g1", "C01", false)

		err := s.CreateGuestIfCapsuleFree(ctx, &model.Guest{
			ID: "g2", CapsuleNumber: "C01", Name: "Next", CheckinTime: now, IsCheckedIn: true,
		})
		assert.NoError(t, err)
	})

	t.Run("update guest fields", func(t *testing.T) {
		s := newStore(t)
		seedCapsule(t, s, "C01", model.SectionFront)
		seedGuest(t, s, "g1", "C01", true)

		guest, err := s.UpdateGuestFields(ctx, "g1", map[string]any{
			"phone_number": "+60123456789",
			"notes":        "late arrival",
		})
		require.NoError(t, err)
		assert.Equal(t, "+60123456789", guest.PhoneNumber)
		assert.Equal(t, "late arrival", guest.Notes)
		assert.True(t, guest.IsCheckedIn)

		_, err = s.UpdateGuestFields(ctx, "unknown", map[string]any{"notes": "x"})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("history pagination", func(t *testing.T) {
		s := newStore(t)
		for i := 1; i <= 5; i++ {
			number := fmt.Sprintf("C%02d", i)
			seedCapsule(t, s, number, model.SectionFront)
			seedGuest(t, s, fmt.Sprintf("g%d", i), number, false)
		}

		page, err := s.ListGuestHistory(ctx, store.Page{Page: 1, Limit: 2})
		require.NoError(t, err)
		assert.Len(t, page.Data, 2)
		assert.EqualValues(t, 5, page.Pagination.Total)
		assert.Equal(t, 3, page.Pagination.TotalPages)
		assert.True(t, page.Pagination.HasMore)

		page, err = s.ListGuestHistory(ctx, store.Page{Page: 3, Limit: 2})
		require.NoError(t, err)
		assert.Len(t, page.Data, 1)
		assert.False(t, page.Pagination.HasMore)

		// Out-of-range page returns an empty data slice, not an error.
		page, err = s.ListGuestHistory(ctx, store.Page{Page: 9, Limit: 2})
		require.NoError(t, err)
		assert.Empty(t, page.Data)
	})

	t.Run("due checkouts filter by date", func(t *testing.T) {
		s := newStore(t)
		seedCapsule(t, s, "C01", model.SectionFront)
		seedCapsule(t, s, "C02", model.SectionFront)

		require.NoError(t, s.CreateGuestIfCapsuleFree(ctx, &model.Guest{
			ID: "g1", CapsuleNumber: "C01", Name: "Today", CheckinTime: now,
			IsCheckedIn: true, ExpectedCheckoutDate: "2025-06-02",
		}))
		require.NoError(t, s.CreateGuestIfCapsuleFree(ctx, &model.Guest{
			ID: "g2", CapsuleNumber: "C02", Name: "Later", CheckinTime: now,
			IsCheckedIn: true, ExpectedCheckoutDate: "2025-06-05",
		}))

		due, err := s.ListDueCheckouts(ctx, "2025-06-02")
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, "g1", due[0].ID)
	})

	t.Run("token mark-used is single winner", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateToken(ctx, &model.GuestToken{
			Token:      "tok-1",
			AutoAssign: true,
			ExpiresAt:  now.Add(24 * time.Hour),
			CreatedBy:  "admin",
		}))

		require.NoError(t, s.MarkTokenUsed(ctx, "tok-1", now))
		assert.ErrorIs(t, s.MarkTokenUsed(ctx, "tok-1", now), store.ErrConflict)
		assert.ErrorIs(t, s.MarkTokenUsed(ctx, "missing", now), store.ErrConflict)

		record, err := s.GetToken(ctx, "tok-1")
		require.NoError(t, err)
		assert.True(t, record.IsUsed)
		require.NotNil(t, record.UsedAt)

		require.NoError(t, s.ReleaseToken(ctx, "tok-1"))
		record, err = s.GetToken(ctx, "tok-1")
		require.NoError(t, err)
		assert.False(t, record.IsUsed)
		assert.Nil(t, record.UsedAt)
	})

	t.Run("expired token sweep is idempotent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateToken(ctx, &model.GuestToken{
			Token: "expired", AutoAssign: true, ExpiresAt: now.Add(-time.Minute), CreatedBy: "admin",
		}))
		require.NoError(t, s.CreateToken(ctx, &model.GuestToken{
			Token: "fresh", AutoAssign: true, ExpiresAt: now.Add(time.Hour), CreatedBy: "admin",
		}))

		deleted, err := s.DeleteExpiredTokens(ctx, now)
		require.NoError(t, err)
		assert.EqualValues(t, 1, deleted)

		deleted, err = s.DeleteExpiredTokens(ctx, now)
		require.NoError(t, err)
		assert.EqualValues(t, 0, deleted)

		_, err = s.GetToken(ctx, "expired")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.GetToken(ctx, "fresh")
		assert.NoError(t, err)
	})

	t.Run("staff users and subscriptions", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateStaffUser(ctx, &model.StaffUser{
			Username: "admin", PasswordHash: "x", Role: model.RoleAdmin,
		}))
		user, err := s.GetStaffUser(ctx, "admin")
		require.NoError(t, err)
		assert.Equal(t, model.RoleAdmin, user.Role)
		_, err = s.GetStaffUser(ctx, "ghost")
		assert.ErrorIs(t, err, store.ErrNotFound)

		sub := &model.PushSubscription{Endpoint: "https://push.example/1", P256DH: "p", Auth: "a"}
		require.NoError(t, s.UpsertSubscription(ctx, sub))
		// Upsert with fresh keys replaces, not duplicates.
		sub.P256DH = "p2"
		require.NoError(t, s.UpsertSubscription(ctx, sub))

		subs, err := s.ListSubscriptions(ctx)
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.Equal(t, "p2", subs[0].P256DH)

		require.NoError(t, s.DeleteSubscription(ctx, sub.Endpoint))
		subs, err = s.ListSubscriptions(ctx)
		require.NoError(t, err)
		assert.Empty(t, subs)
	})
}

func TestGormStore(t *testing.T) {
	runStoreTests(t, newGormTestStore)
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) store.Store { return store.NewMemoryStore() })
}

// Only the in-memory store is raced here: SQLite serializes writers itself,
// and the GORM path is additionally backstopped by the partial unique index.
func TestMemoryStore_ConcurrentCheckIn(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	now := time.Now()

	require.NoError(t, s.CreateCapsule(ctx, &model.Capsule{
		Number: "C01", Section: model.SectionFront,
		IsAvailable: true, CleaningStatus: model.CleaningCleaned,
	}))

	const attempts = 32
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func(i int) {
			results <- s.CreateGuestIfCapsuleFree(ctx, &model.Guest{
				ID:            fmt.Sprintf("g%d", i),
				CapsuleNumber: "C01",
				Name:          "Racer",
				CheckinTime:   now,
				IsCheckedIn:   true,
			})
		}(i)
	}

	var won int
	for i := 0; i < attempts; i++ {
		if err := <-results; err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, store.ErrCapsuleUnavailable)
		}
	}
	assert.Equal(t, 1, won)

	occupied, err := s.CountCheckedInGuests(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, occupied)
}
