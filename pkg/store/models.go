package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type IdentityModel struct {
	ID         string `gorm:"primaryKey"`
	Identifier string `gorm:"uniqueIndex;not null"`
	Name       string `gorm:"not null"`
	Email      string
	Roles      datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"not null"`
}

type PublicationModel struct {
	ID               string `gorm:"primaryKey"`
	DatasetID        int64  `gorm:"not null"`
	InvocationID     string `gorm:"uniqueIndex;not null"`
	DisplayName      string
	DOI              string
	AuthorApprovedAt *time.Time
	PublishedAt      *time.Time
	ExportedAt       *time.Time
	CreatedAt        time.Time       `gorm:"not null"`
	Feedbacks        []FeedbackModel `gorm:"foreignKey:PublicationID;constraint:OnDelete:CASCADE"`
}

type FeedbackModel struct {
	ID            string    `gorm:"primaryKey"`
	PublicationID string    `gorm:"not null;index"`
	AuthorID      *string   `gorm:"index"`
	Text          string    `gorm:"type:text;not null"`
	Done          bool      `gorm:"not null;default:false"`
	CreatedAt     time.Time `gorm:"not null"`

	Publication *PublicationModel `gorm:"foreignKey:PublicationID"`
	Author      *IdentityModel    `gorm:"foreignKey:AuthorID"`
}
