package model

import "time"

// PushSubscription holds a housekeeping browser push subscription. Every
// subscription receives capsule needs-cleaning alerts.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}
