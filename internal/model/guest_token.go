package model

import "time"

// GuestToken is a single-use, time-limited credential that lets a guest
// complete their own check-in without a staff login. A token either targets
// a specific capsule or carries AutoAssign, in which case the capsule is
// chosen at redemption time.
type GuestToken struct {
	Token string `gorm:"primaryKey;size:64" json:"token"`

	CapsuleNumber string `gorm:"size:32" json:"capsuleNumber,omitempty"`
	AutoAssign    bool   `gorm:"not null" json:"autoAssign"`

	// Optional prefill carried into the check-in form.
	GuestName            string `gorm:"size:256" json:"guestName,omitempty"`
	PhoneNumber          string `gorm:"size:32" json:"phoneNumber,omitempty"`
	Email                string `gorm:"size:256" json:"email,omitempty"`
	ExpectedCheckoutDate string `gorm:"size:10" json:"expectedCheckoutDate,omitempty"`

	IsUsed    bool       `gorm:"not null" json:"isUsed"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
	ExpiresAt time.Time  `gorm:"index;not null" json:"expiresAt"`
	CreatedBy string     `gorm:"size:128" json:"createdBy"`
	CreatedAt time.Time  `json:"createdAt"`
}
