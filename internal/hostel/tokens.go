package hostel

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"capsule-hostel-backend/internal/model"
	"capsule-hostel-backend/internal/store"
)

// TokenIssuer owns self-check-in tokens: issuing, validation, redemption and
// the expiry sweep. Redemption delegates the actual check-in to the guest
// ledger, so the same availability re-check applies as for staff check-in.
type TokenIssuer struct {
	store         store.Store
	registry      *CapsuleRegistry
	ledger        *GuestLedger
	now           func() time.Time
	defaultExpiry time.Duration
}

// NewTokenIssuer creates an issuer wired to the registry and ledger.
func NewTokenIssuer(s store.Store, registry *CapsuleRegistry, ledger *GuestLedger, now func() time.Time, defaultExpiry time.Duration) *TokenIssuer {
	if defaultExpiry <= 0 {
		defaultExpiry = 24 * time.Hour
	}
	return &TokenIssuer{
		store:         s,
		registry:      registry,
		ledger:        ledger,
		now:           now,
		defaultExpiry: defaultExpiry,
	}
}

// IssueRequest carries the parameters for a new self-check-in token.
type IssueRequest struct {
	CapsuleNumber        string `json:"capsuleNumber"`
	AutoAssign           bool   `json:"autoAssign"`
	GuestName            string `json:"guestName"`
	PhoneNumber          string `json:"phoneNumber"`
	Email                string `json:"email"`
	ExpectedCheckoutDate string `json:"expectedCheckoutDate"`
	ExpiresInHours       int    `json:"expiresInHours"`
}

// Issue creates a token. A capsule-bound token requires an existing capsule;
// an auto-assign token resolves its capsule lazily at redemption so issuing
// never reserves a capsule staff might still claim.
func (t *TokenIssuer) Issue(ctx context.Context, req IssueRequest, createdBy string) (*model.GuestToken, error) {
	if req.AutoAssign == (req.CapsuleNumber != "") {
		return nil, invalidField("capsuleNumber", "exactly one of capsuleNumber or autoAssign must be set")
	}
	if req.CapsuleNumber != "" {
		if _, err := t.store.GetCapsule(ctx, req.CapsuleNumber); err != nil {
			return nil, err
		}
	}

	expiry := t.defaultExpiry
	if req.ExpiresInHours > 0 {
		expiry = time.Duration(req.ExpiresInHours) * time.Hour
	}

	token := &model.GuestToken{
		Token:                uuid.NewString(),
		CapsuleNumber:        req.CapsuleNumber,
		AutoAssign:           req.AutoAssign,
		GuestName:            req.GuestName,
		PhoneNumber:          req.PhoneNumber,
		Email:                req.Email,
		ExpectedCheckoutDate: req.ExpectedCheckoutDate,
		ExpiresAt:            t.now().Add(expiry),
		CreatedBy:            createdBy,
	}
	if err := t.store.CreateToken(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// Validate returns the token record if it is unused and unexpired. All
// failure modes collapse to ErrTokenInvalid.
func (t *TokenIssuer) Validate(ctx context.Context, token string) (*model.GuestToken, error) {
	record, err := t.store.GetToken(ctx, token)
	if err != nil {
		log.Printf("token validation failed: %v", err)
		return nil, ErrTokenInvalid
	}
	if record.IsUsed {
		log.Printf("token validation failed: already used at %v", record.UsedAt)
		return nil, ErrTokenInvalid
	}
	if !record.ExpiresAt.After(t.now()) {
		log.Printf("token validation failed: expired at %v", record.ExpiresAt)
		return nil, ErrTokenInvalid
	}
	return record, nil
}

// RedeemRequest carries the guest-submitted fields of a self-check-in. The
// guest's values win over the token prefill on conflict.
type RedeemRequest struct {
	Name                 string `json:"name"`
	PhoneNumber          string `json:"phoneNumber"`
	Email                string `json:"email"`
	Gender               string `json:"gender"`
	Nationality          string `json:"nationality"`
	Age                  int    `json:"age"`
	IdentityNumber       string `json:"identityNumber"`
	ExpectedCheckoutDate string `json:"expectedCheckoutDate"`
}

// Redeem consumes a token and checks the guest in. The mark-used is a
// compare-and-swap, so of two concurrent redeemers exactly one wins; the
// loser sees ErrTokenInvalid. If the check-in itself fails the token is
// released again so the guest can retry.
func (t *TokenIssuer) Redeem(ctx context.Context, token string, req RedeemRequest) (*model.Guest, error) {
	record, err := t.Validate(ctx, token)
	if err != nil {
		return nil, err
	}

	// Win the token before touching the ledger; only one concurrent
	// redeemer may pass this point.
	if err := t.store.MarkTokenUsed(ctx, token, t.now()); err != nil {
		log.Printf("token redemption lost mark-used race: %v", err)
		return nil, ErrTokenInvalid
	}

	guest, err := t.checkInFromToken(ctx, record, req)
	if err != nil {
		if releaseErr := t.store.ReleaseToken(ctx, token); releaseErr != nil {
			log.Printf("failed to release token after failed redemption: %v", releaseErr)
		}
		return nil, err
	}
	return guest, nil
}

func (t *TokenIssuer) checkInFromToken(ctx context.Context, record *model.GuestToken, req RedeemRequest) (*model.Guest, error) {
	capsuleNumber := record.CapsuleNumber
	if record.AutoAssign {
		available, err := t.registry.Available(ctx)
		if err != nil {
			return nil, err
		}
		capsule := pickCapsule(req.Gender, available)
		if capsule == nil {
			return nil, fmt.Errorf("no capsule available: %w", store.ErrCapsuleUnavailable)
		}
		capsuleNumber = capsule.Number
	}

	checkIn := CheckInRequest{
		CapsuleNumber:        capsuleNumber,
		Name:                 firstNonEmpty(req.Name, record.GuestName),
		PhoneNumber:          firstNonEmpty(req.PhoneNumber, record.PhoneNumber),
		Email:                firstNonEmpty(req.Email, record.Email),
		Gender:               req.Gender,
		Nationality:          req.Nationality,
		Age:                  req.Age,
		IdentityNumber:       req.IdentityNumber,
		PaymentMethod:        model.PaymentPlatform,
		PaymentCollector:     record.CreatedBy,
		ExpectedCheckoutDate: firstNonEmpty(req.ExpectedCheckoutDate, record.ExpectedCheckoutDate),
	}
	return t.ledger.CheckIn(ctx, checkIn)
}

// SweepExpired deletes tokens past expiry. Safe to run repeatedly and
// concurrently with live redemptions: a redemption whose token disappears
// mid-flight fails its re-validation cleanly.
func (t *TokenIssuer) SweepExpired(ctx context.Context) (int64, error) {
	return t.store.DeleteExpiredTokens(ctx, t.now())
}

// assignRule pairs a guest predicate with a capsule preference. Rules are
// evaluated in order at redemption time; the first rule whose predicate
// matches and whose preference is satisfiable wins.
type assignRule struct {
	matches func(gender string) bool
	prefers func(c model.Capsule) bool
}

var assignRules = []assignRule{
	{
		matches: func(g string) bool { return g == "female" },
		prefers: func(c model.Capsule) bool {
			return c.Section == model.SectionBack && c.Position == model.PositionBottom
		},
	},
	{
		matches: func(g string) bool { return g == "female" },
		prefers: func(c model.Capsule) bool { return c.Section == model.SectionBack },
	},
	{
		matches: func(g string) bool { return g == "male" },
		prefers: func(c model.Capsule) bool {
			return c.Section == model.SectionFront && c.Position == model.PositionBottom
		},
	},
	{
		matches: func(g string) bool { return g == "male" },
		prefers: func(c model.Capsule) bool { return c.Section == model.SectionFront },
	},
}

// pickCapsule selects the best available capsule for the declared gender,
// falling back to the first available capsule when no preference matches.
// Returns nil when nothing is available.
func pickCapsule(gender string, available []model.Capsule) *model.Capsule {
	if len(available) == 0 {
		return nil
	}
	for _, rule := range assignRules {
		if !rule.matches(gender) {
			continue
		}
		for i := range available {
			if rule.prefers(available[i]) {
				return &available[i]
			}
		}
	}
	return &available[0]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
