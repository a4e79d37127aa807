package model

import "time"

// Section identifies the physical area of the hostel a capsule sits in.
type Section string

const (
	SectionFront  Section = "front"
	SectionMiddle Section = "middle"
	SectionBack   Section = "back"
)

// ValidSection reports whether s is a recognized section value.
func ValidSection(s Section) bool {
	switch s {
	case SectionFront, SectionMiddle, SectionBack:
		return true
	}
	return false
}

// Position identifies whether a capsule is a top or bottom unit.
type Position string

const (
	PositionTop    Position = "top"
	PositionBottom Position = "bottom"
)

// Cleaning status values. A capsule needing cleaning is never bookable,
// regardless of its availability flag.
const (
	CleaningCleaned = "cleaned"
	CleaningNeeded  = "to_be_cleaned"
)

// Capsule represents a single rentable sleeping unit.
type Capsule struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	Number         string     `gorm:"uniqueIndex;size:32;not null" json:"number"`
	Section        Section    `gorm:"size:16;not null" json:"section"`
	Position       Position   `gorm:"size:16" json:"position"`
	Color          string     `gorm:"size:32" json:"color,omitempty"`
	PurchaseDate   *time.Time `json:"purchaseDate,omitempty"`
	Remark         string     `gorm:"size:512" json:"remark,omitempty"`
	IsAvailable    bool       `gorm:"not null;default:true" json:"isAvailable"`
	CleaningStatus string     `gorm:"size:32;not null;default:cleaned" json:"cleaningStatus"`
	LastCleanedAt  *time.Time `json:"lastCleanedAt,omitempty"`
	LastCleanedBy  string     `gorm:"size:128" json:"lastCleanedBy,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}
