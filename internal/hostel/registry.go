package hostel

import (
	"context"
	"time"

	"capsule-hostel-backend/internal/model"
	"capsule-hostel-backend/internal/store"
)

// CapsuleRegistry owns the capsule inventory: sections, availability flags
// and cleaning status.
type CapsuleRegistry struct {
	store store.Store
	now   func() time.Time
}

// NewCapsuleRegistry creates a registry over the given store.
func NewCapsuleRegistry(s store.Store, now func() time.Time) *CapsuleRegistry {
	return &CapsuleRegistry{store: s, now: now}
}

// CreateCapsuleRequest carries the fields for registering a new capsule.
type CreateCapsuleRequest struct {
	Number       string         `json:"number"`
	Section      model.Section  `json:"section"`
	Position     model.Position `json:"position"`
	Color        string         `json:"color"`
	PurchaseDate *time.Time     `json:"purchaseDate"`
	Remark       string         `json:"remark"`
}

// Create registers a new capsule. New capsules start available and cleaned.
func (r *CapsuleRegistry) Create(ctx context.Context, req CreateCapsuleRequest) (*model.Capsule, error) {
	if req.Number == "" {
		return nil, invalidField("number", "must not be empty")
	}
	if !model.ValidSection(req.Section) {
		return nil, invalidField("section", "must be one of front, middle, back")
	}

	capsule := &model.Capsule{
		Number:         req.Number,
		Section:        req.Section,
		Position:       req.Position,
		Color:          req.Color,
		PurchaseDate:   req.PurchaseDate,
		Remark:         req.Remark,
		IsAvailable:    true,
		CleaningStatus: model.CleaningCleaned,
	}
	if err := r.store.CreateCapsule(ctx, capsule); err != nil {
		return nil, err
	}
	return capsule, nil
}

// Available returns the capsules currently bookable for a new check-in:
// available, cleaned, and not occupied by any checked-in guest.
func (r *CapsuleRegistry) Available(ctx context.Context) ([]model.Capsule, error) {
	return r.store.ListAvailableCapsules(ctx)
}

// List returns the full inventory.
func (r *CapsuleRegistry) List(ctx context.Context) ([]model.Capsule, error) {
	return r.store.ListCapsules(ctx)
}

// Get looks up a single capsule by number.
func (r *CapsuleRegistry) Get(ctx context.Context, number string) (*model.Capsule, error) {
	return r.store.GetCapsule(ctx, number)
}

// MarkCleaned records that the capsule was cleaned by the given actor and
// returns it to the bookable pool.
func (r *CapsuleRegistry) MarkCleaned(ctx context.Context, number, actor string) error {
	if actor == "" {
		return invalidField("actor", "must not be empty")
	}
	return r.store.MarkCapsuleCleaned(ctx, number, r.now(), actor)
}

// MarkNeedsCleaning flags the capsule after a checkout. The capsule stays
// out of the bookable pool until MarkCleaned.
func (r *CapsuleRegistry) MarkNeedsCleaning(ctx context.Context, number string) error {
	return r.store.MarkCapsuleNeedsCleaning(ctx, number)
}
