package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"capsule-hostel-backend/internal/model"
)

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store. The *gorm.DB must have been
// opened with TranslateError enabled so unique-constraint violations surface
// as gorm.ErrDuplicatedKey (see db.Init).
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// --- Capsules ---

func (s *gormStore) CreateCapsule(ctx context.Context, capsule *model.Capsule) error {
	if err := s.db.WithContext(ctx).Create(capsule).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("capsule %s: %w", capsule.Number, ErrConflict)
		}
		return fmt.Errorf("failed to create capsule %s: %w", capsule.Number, err)
	}
	return nil
}

func (s *gormStore) GetCapsule(ctx context.Context, number string) (*model.Capsule, error) {
	var capsule model.Capsule
	err := s.db.WithContext(ctx).Where("number = ?", number).First(&capsule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("capsule %s: %w", number, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch capsule %s: %w", number, err)
	}
	return &capsule, nil
}

func (s *gormStore) ListCapsules(ctx context.Context) ([]model.Capsule, error) {
	var capsules []model.Capsule
	if err := s.db.WithContext(ctx).Order("number").Find(&capsules).Error; err != nil {
		return nil, fmt.Errorf("failed to list capsules: %w", err)
	}
	return capsules, nil
}

func (s *gormStore) ListAvailableCapsules(ctx context.Context) ([]model.Capsule, error) {
	occupied := s.db.Model(&model.Guest{}).
		Select("capsule_number").
		Where("is_checked_in = ?", true)

	var capsules []model.Capsule
	err := s.db.WithContext(ctx).
		Where("is_available = ? AND cleaning_status = ?", true, model.CleaningCleaned).
		Where("number NOT IN (?)", occupied).
		Order("number").
		Find(&capsules).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list available capsules: %w", err)
	}
	return capsules, nil
}

func (s *gormStore) CountCapsules(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&model.Capsule{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count capsules: %w", err)
	}
	return total, nil
}

func (s *gormStore) MarkCapsuleCleaned(ctx context.Context, number string, at time.Time, by string) error {
	res := s.db.WithContext(ctx).Model(&model.Capsule{}).
		Where("number = ?", number).
		Updates(map[string]any{
			"cleaning_status": model.CleaningCleaned,
			"is_available":    true,
			"last_cleaned_at": at,
			"last_cleaned_by": by,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to mark capsule %s cleaned: %w", number, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("capsule %s: %w", number, ErrNotFound)
	}
	return nil
}

func (s *gormStore) MarkCapsuleNeedsCleaning(ctx context.Context, number string) error {
	res := s.db.WithContext(ctx).Model(&model.Capsule{}).
		Where("number = ?", number).
		Updates(map[string]any{
			"cleaning_status": model.CleaningNeeded,
			"is_available":    false,
			"last_cleaned_at": nil,
			"last_cleaned_by": "",
		})
	if res.Error != nil {
		return fmt.Errorf("failed to mark capsule %s for cleaning: %w", number, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("capsule %s: %w", number, ErrNotFound)
	}
	return nil
}

// --- Guests ---

func (s *gormStore) CreateGuestIfCapsuleFree(ctx context.Context, guest *model.Guest) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var capsule model.Capsule
		err := tx.Where("number = ?", guest.CapsuleNumber).First(&capsule).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("capsule %s: %w", guest.CapsuleNumber, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to fetch capsule %s: %w", guest.CapsuleNumber, err)
		}

		if !capsule.IsAvailable || capsule.CleaningStatus != model.CleaningCleaned {
			return fmt.Errorf("capsule %s: %w", guest.CapsuleNumber, ErrCapsuleUnavailable)
		}

		var active int64
		if err := tx.Model(&model.Guest{}).
			Where("capsule_number = ? AND is_checked_in = ?", guest.CapsuleNumber, true).
			Count(&active).Error; err != nil {
			return fmt.Errorf("failed to count active guests for %s: %w", guest.CapsuleNumber, err)
		}
		if active > 0 {
			return fmt.Errorf("capsule %s: %w", guest.CapsuleNumber, ErrCapsuleUnavailable)
		}

		if err := tx.Create(guest).Error; err != nil {
			// The partial unique index on (capsule_number) WHERE is_checked_in
			// backstops the count above under concurrency.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("capsule %s: %w", guest.CapsuleNumber, ErrCapsuleUnavailable)
			}
			return fmt.Errorf("failed to insert guest: %w", err)
		}
		return nil
	})
}

func (s *gormStore) GetGuest(ctx context.Context, id string) (*model.Guest, error) {
	var guest model.Guest
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&guest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("guest %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch guest %s: %w", id, err)
	}
	return &guest, nil
}

func (s *gormStore) CompleteCheckout(ctx context.Context, id string, at time.Time) (*model.Guest, error) {
	res := s.db.WithContext(ctx).Model(&model.Guest{}).
		Where("id = ? AND is_checked_in = ?", id, true).
		Updates(map[string]any{
			"is_checked_in": false,
			"checkout_time": at,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to check out guest %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		// Distinguish unknown guest from double checkout.
		if _, err := s.GetGuest(ctx, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("guest %s already checked out: %w", id, ErrConflict)
	}
	return s.GetGuest(ctx, id)
}

func (s *gormStore) UpdateGuestFields(ctx context.Context, id string, fields map[string]any) (*model.Guest, error) {
	if _, err := s.GetGuest(ctx, id); err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		if err := s.db.WithContext(ctx).Model(&model.Guest{}).
			Where("id = ?", id).
			Updates(fields).Error; err != nil {
			return nil, fmt.Errorf("failed to update guest %s: %w", id, err)
		}
	}
	return s.GetGuest(ctx, id)
}

func (s *gormStore) ListCheckedInGuests(ctx context.Context) ([]model.Guest, error) {
	var guests []model.Guest
	err := s.db.WithContext(ctx).
		Where("is_checked_in = ?", true).
		Order("checkin_time DESC").
		Find(&guests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list checked-in guests: %w", err)
	}
	return guests, nil
}

func (s *gormStore) ListGuestHistory(ctx context.Context, page Page) (*GuestPage, error) {
	page.Normalize()

	var total int64
	if err := s.db.WithContext(ctx).Model(&model.Guest{}).
		Where("is_checked_in = ?", false).
		Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count guest history: %w", err)
	}

	var guests []model.Guest
	err := s.db.WithContext(ctx).
		Where("is_checked_in = ?", false).
		Order("checkout_time DESC").
		Limit(page.Limit).
		Offset((page.Page - 1) * page.Limit).
		Find(&guests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list guest history: %w", err)
	}

	return &GuestPage{Data: guests, Pagination: NewPagination(page, total)}, nil
}

func (s *gormStore) ListDueCheckouts(ctx context.Context, day string) ([]model.Guest, error) {
	var guests []model.Guest
	err := s.db.WithContext(ctx).
		Where("is_checked_in = ? AND expected_checkout_date = ?", true, day).
		Order("capsule_number").
		Find(&guests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list due checkouts: %w", err)
	}
	return guests, nil
}

func (s *gormStore) CountCheckedInGuests(ctx context.Context) (int64, error) {
	var occupied int64
	err := s.db.WithContext(ctx).Model(&model.Guest{}).
		Where("is_checked_in = ?", true).
		Count(&occupied).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count checked-in guests: %w", err)
	}
	return occupied, nil
}

// --- Tokens ---

func (s *gormStore) CreateToken(ctx context.Context, token *model.GuestToken) error {
	if err := s.db.WithContext(ctx).Create(token).Error; err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

func (s *gormStore) GetToken(ctx context.Context, token string) (*model.GuestToken, error) {
	var record model.GuestToken
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("token: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch token: %w", err)
	}
	return &record, nil
}

func (s *gormStore) MarkTokenUsed(ctx context.Context, token string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&model.GuestToken{}).
		Where("token = ? AND is_used = ?", token, false).
		Updates(map[string]any{
			"is_used": true,
			"used_at": at,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to mark token used: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("token already used or unknown: %w", ErrConflict)
	}
	return nil
}

func (s *gormStore) ReleaseToken(ctx context.Context, token string) error {
	res := s.db.WithContext(ctx).Model(&model.GuestToken{}).
		Where("token = ?", token).
		Updates(map[string]any{
			"is_used": false,
			"used_at": nil,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to release token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("token: %w", ErrNotFound)
	}
	return nil
}

func (s *gormStore) DeleteExpiredTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at <= ?", cutoff).
		Delete(&model.GuestToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// --- Staff users ---

func (s *gormStore) CreateStaffUser(ctx context.Context, user *model.StaffUser) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("staff user %s: %w", user.Username, ErrConflict)
		}
		return fmt.Errorf("failed to create staff user %s: %w", user.Username, err)
	}
	return nil
}

func (s *gormStore) GetStaffUser(ctx context.Context, username string) (*model.StaffUser, error) {
	var user model.StaffUser
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("staff user %s: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch staff user %s: %w", username, err)
	}
	return &user, nil
}

// --- Push subscriptions ---

func (s *gormStore) UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

func (s *gormStore) ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}
