package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"capsule-hostel-backend/internal/model"
)

// memoryStore is a mutex-guarded map-backed Store. Every operation runs in a
// single critical section, which is the serialization point that preserves
// the one-checked-in-guest-per-capsule invariant without a real transaction.
type memoryStore struct {
	mu sync.Mutex

	capsules map[string]*model.Capsule // keyed by number
	guests   map[string]*model.Guest   // keyed by id
	tokens   map[string]*model.GuestToken
	staff    map[string]*model.StaffUser // keyed by username
	subs     map[string]*model.PushSubscription

	nextCapsuleID int64
	nextStaffID   int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() Store {
	return &memoryStore{
		capsules: make(map[string]*model.Capsule),
		guests:   make(map[string]*model.Guest),
		tokens:   make(map[string]*model.GuestToken),
		staff:    make(map[string]*model.StaffUser),
		subs:     make(map[string]*model.PushSubscription),
	}
}

// --- Capsules ---

func (s *memoryStore) CreateCapsule(_ context.Context, capsule *model.Capsule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.capsules[capsule.Number]; exists {
		return fmt.Errorf("capsule %s: %w", capsule.Number, ErrConflict)
	}
	s.nextCapsuleID++
	capsule.ID = s.nextCapsuleID
	stored := *capsule
	s.capsules[capsule.Number] = &stored
	return nil
}

func (s *memoryStore) GetCapsule(_ context.Context, number string) (*model.Capsule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	capsule, ok := s.capsules[number]
	if !ok {
		return nil, fmt.Errorf("capsule %s: %w", number, ErrNotFound)
	}
	out := *capsule
	return &out, nil
}

func (s *memoryStore) ListCapsules(_ context.Context) ([]model.Capsule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedCapsules(func(*model.Capsule) bool { return true }), nil
}

func (s *memoryStore) ListAvailableCapsules(_ context.Context) ([]model.Capsule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	occupied := s.occupiedNumbersLocked()
	return s.sortedCapsules(func(c *model.Capsule) bool {
		return c.IsAvailable && c.CleaningStatus == model.CleaningCleaned && !occupied[c.Number]
	}), nil
}

func (s *memoryStore) CountCapsules(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.capsules)), nil
}

func (s *memoryStore) MarkCapsuleCleaned(_ context.Context, number string, at time.Time, by string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	capsule, ok := s.capsules[number]
	if !ok {
		return fmt.Errorf("capsule %s: %w", number, ErrNotFound)
	}
	cleanedAt := at
	capsule.CleaningStatus = model.CleaningCleaned
	capsule.IsAvailable = true
	capsule.LastCleanedAt = &cleanedAt
	capsule.LastCleanedBy = by
	capsule.UpdatedAt = at
	return nil
}

func (s *memoryStore) MarkCapsuleNeedsCleaning(_ context.Context, number string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	capsule, ok := s.capsules[number]
	if !ok {
		return fmt.Errorf("capsule %s: %w", number, ErrNotFound)
	}
	capsule.CleaningStatus = model.CleaningNeeded
	capsule.IsAvailable = false
	capsule.LastCleanedAt = nil
	capsule.LastCleanedBy = ""
	return nil
}

// --- Guests ---

func (s *memoryStore) CreateGuestIfCapsuleFree(_ context.Context, guest *model.Guest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	capsule, ok := s.capsules[guest.CapsuleNumber]
	if !ok {
		return fmt.Errorf("capsule %s: %w", guest.CapsuleNumber, ErrNotFound)
	}
	if !capsule.IsAvailable || capsule.CleaningStatus != model.CleaningCleaned {
		return fmt.Errorf("capsule %s: %w", guest.CapsuleNumber, ErrCapsuleUnavailable)
	}
	if s.occupiedNumbersLocked()[guest.CapsuleNumber] {
		return fmt.Errorf("capsule %s: %w", guest.CapsuleNumber, ErrCapsuleUnavailable)
	}

	stored := *guest
	s.guests[guest.ID] = &stored
	return nil
}

func (s *memoryStore) GetGuest(_ context.Context, id string) (*model.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	guest, ok := s.guests[id]
	if !ok {
		return nil, fmt.Errorf("guest %s: %w", id, ErrNotFound)
	}
	out := *guest
	return &out, nil
}

func (s *memoryStore) CompleteCheckout(_ context.Context, id string, at time.Time) (*model.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	guest, ok := s.guests[id]
	if !ok {
		return nil, fmt.Errorf("guest %s: %w", id, ErrNotFound)
	}
	if !guest.IsCheckedIn {
		return nil, fmt.Errorf("guest %s already checked out: %w", id, ErrConflict)
	}
	checkoutAt := at
	guest.IsCheckedIn = false
	guest.CheckoutTime = &checkoutAt
	guest.UpdatedAt = at
	out := *guest
	return &out, nil
}

func (s *memoryStore) UpdateGuestFields(_ context.Context, id string, fields map[string]any) (*model.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	guest, ok := s.guests[id]
	if !ok {
		return nil, fmt.Errorf("guest %s: %w", id, ErrNotFound)
	}
	for column, value := range fields {
		applyGuestField(guest, column, value)
	}
	out := *guest
	return &out, nil
}

// applyGuestField mirrors the column names the GORM store accepts in
// UpdateGuestFields. The ledger layer whitelists columns before calling.
func applyGuestField(g *model.Guest, column string, value any) {
	switch column {
	case "name":
		g.Name, _ = value.(string)
	case "phone_number":
		g.PhoneNumber, _ = value.(string)
	case "email":
		g.Email, _ = value.(string)
	case "gender":
		g.Gender, _ = value.(string)
	case "nationality":
		g.Nationality, _ = value.(string)
	case "age":
		g.Age, _ = value.(int)
	case "identity_number":
		g.IdentityNumber, _ = value.(string)
	case "payment_amount":
		g.PaymentAmount, _ = value.(string)
	case "payment_method":
		g.PaymentMethod, _ = value.(string)
	case "payment_collector":
		g.PaymentCollector, _ = value.(string)
	case "is_paid":
		g.IsPaid, _ = value.(bool)
	case "expected_checkout_date":
		g.ExpectedCheckoutDate, _ = value.(string)
	case "notes":
		g.Notes, _ = value.(string)
	}
}

func (s *memoryStore) ListCheckedInGuests(_ context.Context) ([]model.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	guests := s.collectGuestsLocked(func(g *model.Guest) bool { return g.IsCheckedIn })
	sort.Slice(guests, func(i, j int) bool {
		return guests[i].CheckinTime.After(guests[j].CheckinTime)
	})
	return guests, nil
}

func (s *memoryStore) ListGuestHistory(_ context.Context, page Page) (*GuestPage, error) {
	page.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.collectGuestsLocked(func(g *model.Guest) bool { return !g.IsCheckedIn })
	sort.Slice(history, func(i, j int) bool {
		ti, tj := history[i].CheckoutTime, history[j].CheckoutTime
		if ti == nil || tj == nil {
			return tj == nil && ti != nil
		}
		return ti.After(*tj)
	})

	total := int64(len(history))
	start := (page.Page - 1) * page.Limit
	if start > len(history) {
		start = len(history)
	}
	end := start + page.Limit
	if end > len(history) {
		end = len(history)
	}

	return &GuestPage{Data: history[start:end], Pagination: NewPagination(page, total)}, nil
}

func (s *memoryStore) ListDueCheckouts(_ context.Context, day string) ([]model.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	due := s.collectGuestsLocked(func(g *model.Guest) bool {
		return g.IsCheckedIn && g.ExpectedCheckoutDate == day
	})
	sort.Slice(due, func(i, j int) bool {
		return due[i].CapsuleNumber < due[j].CapsuleNumber
	})
	return due, nil
}

func (s *memoryStore) CountCheckedInGuests(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var occupied int64
	for _, g := range s.guests {
		if g.IsCheckedIn {
			occupied++
		}
	}
	return occupied, nil
}

// --- Tokens ---

func (s *memoryStore) CreateToken(_ context.Context, token *model.GuestToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *token
	s.tokens[token.Token] = &stored
	return nil
}

func (s *memoryStore) GetToken(_ context.Context, token string) (*model.GuestToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.tokens[token]
	if !ok {
		return nil, fmt.Errorf("token: %w", ErrNotFound)
	}
	out := *record
	return &out, nil
}

func (s *memoryStore) MarkTokenUsed(_ context.Context, token string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.tokens[token]
	if !ok || record.IsUsed {
		return fmt.Errorf("token already used or unknown: %w", ErrConflict)
	}
	usedAt := at
	record.IsUsed = true
	record.UsedAt = &usedAt
	return nil
}

func (s *memoryStore) ReleaseToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.tokens[token]
	if !ok {
		return fmt.Errorf("token: %w", ErrNotFound)
	}
	record.IsUsed = false
	record.UsedAt = nil
	return nil
}

func (s *memoryStore) DeleteExpiredTokens(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for key, record := range s.tokens {
		if !record.ExpiresAt.After(cutoff) {
			delete(s.tokens, key)
			deleted++
		}
	}
	return deleted, nil
}

// --- Staff users ---

func (s *memoryStore) CreateStaffUser(_ context.Context, user *model.StaffUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.staff[user.Username]; exists {
		return fmt.Errorf("staff user %s: %w", user.Username, ErrConflict)
	}
	s.nextStaffID++
	user.ID = s.nextStaffID
	stored := *user
	s.staff[user.Username] = &stored
	return nil
}

func (s *memoryStore) GetStaffUser(_ context.Context, username string) (*model.StaffUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.staff[username]
	if !ok {
		return nil, fmt.Errorf("staff user %s: %w", username, ErrNotFound)
	}
	out := *user
	return &out, nil
}

// --- Push subscriptions ---

func (s *memoryStore) UpsertSubscription(_ context.Context, sub *model.PushSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *sub
	s.subs[sub.Endpoint] = &stored
	return nil
}

func (s *memoryStore) DeleteSubscription(_ context.Context, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.subs, endpoint)
	return nil
}

func (s *memoryStore) ListSubscriptions(_ context.Context) ([]model.PushSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := make([]model.PushSubscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, *sub)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].Endpoint < subs[j].Endpoint })
	return subs, nil
}

// --- helpers ---

func (s *memoryStore) occupiedNumbersLocked() map[string]bool {
	occupied := make(map[string]bool)
	for _, g := range s.guests {
		if g.IsCheckedIn {
			occupied[g.CapsuleNumber] = true
		}
	}
	return occupied
}

func (s *memoryStore) collectGuestsLocked(keep func(*model.Guest) bool) []model.Guest {
	guests := make([]model.Guest, 0, len(s.guests))
	for _, g := range s.guests {
		if keep(g) {
			guests = append(guests, *g)
		}
	}
	return guests
}

func (s *memoryStore) sortedCapsules(keep func(*model.Capsule) bool) []model.Capsule {
	capsules := make([]model.Capsule, 0, len(s.capsules))
	for _, c := range s.capsules {
		if keep(c) {
			capsules = append(capsules, *c)
		}
	}
	sort.Slice(capsules, func(i, j int) bool { return capsules[i].Number < capsules[j].Number })
	return capsules
}
