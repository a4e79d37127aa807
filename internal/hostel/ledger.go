package hostel

import (
	"context"
	"time"

	"github.com/google/uuid"

	"capsule-hostel-backend/internal/model"
	"capsule-hostel-backend/internal/store"
)

const dateLayout = "2006-01-02"

// GuestLedger owns guest records over their whole lifetime: staff check-in,
// checkout, safe-field updates, and the active/history views.
type GuestLedger struct {
	store store.Store
	now   func() time.Time
	loc   *time.Location
}

// NewGuestLedger creates a ledger over the given store. loc is the hostel's
// local timezone, used for calendar-day comparisons.
func NewGuestLedger(s store.Store, now func() time.Time, loc *time.Location) *GuestLedger {
	return &GuestLedger{store: s, now: now, loc: loc}
}

// CheckInRequest carries the fields for a new check-in.
type CheckInRequest struct {
	CapsuleNumber        string `json:"capsuleNumber"`
	Name                 string `json:"name"`
	PhoneNumber          string `json:"phoneNumber"`
	Email                string `json:"email"`
	Gender               string `json:"gender"`
	Nationality          string `json:"nationality"`
	Age                  int    `json:"age"`
	IdentityNumber       string `json:"identityNumber"`
	PaymentAmount        string `json:"paymentAmount"`
	PaymentMethod        string `json:"paymentMethod"`
	PaymentCollector     string `json:"paymentCollector"`
	IsPaid               bool   `json:"isPaid"`
	ExpectedCheckoutDate string `json:"expectedCheckoutDate"`
	Notes                string `json:"notes"`
}

func (req *CheckInRequest) validate() error {
	if req.CapsuleNumber == "" {
		return invalidField("capsuleNumber", "must not be empty")
	}
	if req.Name == "" {
		return invalidField("name", "must not be empty")
	}
	if !model.ValidPaymentMethod(req.PaymentMethod) {
		return invalidField("paymentMethod", "must be one of cash, card, bank_transfer, platform")
	}
	if req.PaymentCollector == "" {
		return invalidField("paymentCollector", "must not be empty")
	}
	if req.ExpectedCheckoutDate != "" {
		if _, err := time.Parse(dateLayout, req.ExpectedCheckoutDate); err != nil {
			return invalidField("expectedCheckoutDate", "must be a YYYY-MM-DD date")
		}
	}
	return nil
}

// CheckIn validates the request and inserts a new checked-in guest. The
// capsule's availability is re-checked atomically with the insert, so a
// stale client list can never double-book a capsule.
func (l *GuestLedger) CheckIn(ctx context.Context, req CheckInRequest) (*model.Guest, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	guest := &model.Guest{
		ID:                   uuid.NewString(),
		CapsuleNumber:        req.CapsuleNumber,
		Name:                 req.Name,
		PhoneNumber:          req.PhoneNumber,
		Email:                req.Email,
		Gender:               req.Gender,
		Nationality:          req.Nationality,
		Age:                  req.Age,
		IdentityNumber:       req.IdentityNumber,
		PaymentAmount:        req.PaymentAmount,
		PaymentMethod:        req.PaymentMethod,
		PaymentCollector:     req.PaymentCollector,
		IsPaid:               req.IsPaid,
		CheckinTime:          l.now(),
		IsCheckedIn:          true,
		ExpectedCheckoutDate: req.ExpectedCheckoutDate,
		Notes:                req.Notes,
	}
	if err := l.store.CreateGuestIfCapsuleFree(ctx, guest); err != nil {
		return nil, err
	}
	return guest, nil
}

// CheckOut flips the guest to checked-out and stamps the checkout time.
// Repeated checkouts fail rather than silently succeed: the caller's
// cleaning-flag side effect must not double-fire.
func (l *GuestLedger) CheckOut(ctx context.Context, guestID string) (*model.Guest, error) {
	return l.store.CompleteCheckout(ctx, guestID, l.now())
}

// UpdateRequest is a partial patch of a guest's safe fields. Pointer fields
// distinguish "leave unchanged" from "set to zero value". Check-in state and
// timestamps are owned by CheckIn/CheckOut and cannot be patched here.
type UpdateRequest struct {
	Name                 *string `json:"name"`
	PhoneNumber          *string `json:"phoneNumber"`
	Email                *string `json:"email"`
	Gender               *string `json:"gender"`
	Nationality          *string `json:"nationality"`
	Age                  *int    `json:"age"`
	IdentityNumber       *string `json:"identityNumber"`
	PaymentAmount        *string `json:"paymentAmount"`
	PaymentMethod        *string `json:"paymentMethod"`
	PaymentCollector     *string `json:"paymentCollector"`
	IsPaid               *bool   `json:"isPaid"`
	ExpectedCheckoutDate *string `json:"expectedCheckoutDate"`
	Notes                *string `json:"notes"`
}

func (req *UpdateRequest) fields() (map[string]any, error) {
	fields := make(map[string]any)
	if req.Name != nil {
		if *req.Name == "" {
			return nil, invalidField("name", "must not be empty")
		}
		fields["name"] = *req.Name
	}
	if req.PhoneNumber != nil {
		fields["phone_number"] = *req.PhoneNumber
	}
	if req.Email != nil {
		fields["email"] = *req.Email
	}
	if req.Gender != nil {
		fields["gender"] = *req.Gender
	}
	if req.Nationality != nil {
		fields["nationality"] = *req.Nationality
	}
	if req.Age != nil {
		fields["age"] = *req.Age
	}
	if req.IdentityNumber != nil {
		fields["identity_number"] = *req.IdentityNumber
	}
	if req.PaymentAmount != nil {
		fields["payment_amount"] = *req.PaymentAmount
	}
	if req.PaymentMethod != nil {
		if !model.ValidPaymentMethod(*req.PaymentMethod) {
			return nil, invalidField("paymentMethod", "must be one of cash, card, bank_transfer, platform")
		}
		fields["payment_method"] = *req.PaymentMethod
	}
	if req.PaymentCollector != nil {
		fields["payment_collector"] = *req.PaymentCollector
	}
	if req.IsPaid != nil {
		fields["is_paid"] = *req.IsPaid
	}
	if req.ExpectedCheckoutDate != nil {
		if *req.ExpectedCheckoutDate != "" {
			if _, err := time.Parse(dateLayout, *req.ExpectedCheckoutDate); err != nil {
				return nil, invalidField("expectedCheckoutDate", "must be a YYYY-MM-DD date")
			}
		}
		fields["expected_checkout_date"] = *req.ExpectedCheckoutDate
	}
	if req.Notes != nil {
		fields["notes"] = *req.Notes
	}
	return fields, nil
}

// Update applies a safe-field patch to a guest record.
func (l *GuestLedger) Update(ctx context.Context, guestID string, req UpdateRequest) (*model.Guest, error) {
	fields, err := req.fields()
	if err != nil {
		return nil, err
	}
	return l.store.UpdateGuestFields(ctx, guestID, fields)
}

// Get looks up a single guest record.
func (l *GuestLedger) Get(ctx context.Context, guestID string) (*model.Guest, error) {
	return l.store.GetGuest(ctx, guestID)
}

// CheckedIn lists all currently checked-in guests.
func (l *GuestLedger) CheckedIn(ctx context.Context) ([]model.Guest, error) {
	return l.store.ListCheckedInGuests(ctx)
}

// History returns checked-out guests, newest checkout first.
func (l *GuestLedger) History(ctx context.Context, page store.Page) (*store.GuestPage, error) {
	return l.store.ListGuestHistory(ctx, page)
}

// DueToday lists checked-in guests whose expected checkout date is today in
// the hostel's local calendar.
func (l *GuestLedger) DueToday(ctx context.Context) ([]model.Guest, error) {
	today := l.now().In(l.loc).Format(dateLayout)
	return l.store.ListDueCheckouts(ctx, today)
}
