package models

import (
	"time"
)

// ShortLink maps a short code to its original URL.
// Rows are never purged when they expire, so a code is never reissued while its row exists.
type ShortLink struct {
	ID          uint       `json:"-" gorm:"primaryKey"`
	ShortCode   string     `json:"shortCode" gorm:"type:varchar(32);uniqueIndex;not null"`
	OriginalURL string     `json:"originalUrl" gorm:"type:text;not null"`
	Clicks      int64      `json:"clicks" gorm:"not null;default:0"`
	OwnerID     *string    `json:"ownerId,omitempty" gorm:"type:varchar(255);index"`
	ExpiresAt   *time.Time `json:"expiresAt"`
	CreatedAt   time.Time  `json:"createdAt" gorm:"index"`
}

// IsExpired reports whether the link is logically dead at now.
// A link expiring exactly at now is still live.
func (l *ShortLink) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

// OwnedBy reports whether ownerID created the link. Links without an owner belong to nobody.
func (l *ShortLink) OwnedBy(ownerID string) bool {
	return l.OwnerID != nil && ownerID != "" && *l.OwnerID == ownerID
}
