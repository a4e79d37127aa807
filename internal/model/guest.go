package model

import "time"

// Payment method values accepted at check-in.
const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentTransfer = "bank_transfer"
	PaymentPlatform = "platform"
)

// ValidPaymentMethod reports whether m is a recognized payment method.
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentPlatform:
		return true
	}
	return false
}

// Guest is a guest record. Records persist after checkout as history;
// the normal flow never hard-deletes them.
type Guest struct {
	ID            string `gorm:"primaryKey;size:36" json:"id"`
	CapsuleNumber string `gorm:"index;size:32;not null" json:"capsuleNumber"`

	Name           string `gorm:"size:256;not null" json:"name"`
	PhoneNumber    string `gorm:"size:32" json:"phoneNumber,omitempty"`
	Email          string `gorm:"size:256" json:"email,omitempty"`
	Gender         string `gorm:"size:16" json:"gender,omitempty"`
	Nationality    string `gorm:"size:64" json:"nationality,omitempty"`
	Age            int    `json:"age,omitempty"`
	IdentityNumber string `gorm:"size:64" json:"identityNumber,omitempty"`

	PaymentAmount    string `gorm:"size:16" json:"paymentAmount,omitempty"`
	PaymentMethod    string `gorm:"size:32" json:"paymentMethod,omitempty"`
	PaymentCollector string `gorm:"size:128" json:"paymentCollector,omitempty"`
	IsPaid           bool   `json:"isPaid"`

	CheckinTime  time.Time  `gorm:"not null" json:"checkinTime"`
	CheckoutTime *time.Time `json:"checkoutTime,omitempty"`
	IsCheckedIn  bool       `gorm:"index;not null" json:"isCheckedIn"`

	// Hostel-local calendar date in 2006-01-02 form.
	ExpectedCheckoutDate string `gorm:"size:10" json:"expectedCheckoutDate,omitempty"`

	Notes     string    `gorm:"size:1024" json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
