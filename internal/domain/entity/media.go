package entity

import "time"

const (
	ModerationPending  = "PENDING"
	ModerationApproved = "APPROVED"
	ModerationRejected = "REJECTED"

	ProcessingPending    = "PENDING"
	ProcessingProcessing = "PROCESSING"
	ProcessingCompleted  = "COMPLETED"
	ProcessingFailed     = "FAILED"
)

// Media is a stored file. Backend and StorageKey locate the object; URL is
// what clients fetch.
type Media struct {
	ID               string    `json:"id" firestore:"id" gorm:"primaryKey;type:varchar(64)"`
	OwnerID          string    `json:"owner_id" firestore:"ownerId" gorm:"index;not null;type:varchar(64)"`
	MessageID        *string   `json:"message_id,omitempty" firestore:"messageId,omitempty" gorm:"index;type:varchar(64)"`
	ListingID        *string   `json:"listing_id,omitempty" firestore:"listingId,omitempty" gorm:"index;type:varchar(64)"`
	Backend          string    `json:"backend" firestore:"backend" gorm:"size:32"`
	StorageKey       string    `json:"storage_key" firestore:"storageKey" gorm:"size:512"`
	URL              string    `json:"url" firestore:"url" gorm:"size:1024;not null"`
	FileName         string    `json:"file_name" firestore:"fileName" gorm:"size:255"`
	MimeType         string    `json:"mime_type" firestore:"mimeType" gorm:"size:128"`
	Size             int64     `json:"size" firestore:"size"`
	Region           string    `json:"region,omitempty" firestore:"region,omitempty" gorm:"size:16"`
	ModerationStatus string    `json:"moderation_status" firestore:"moderationStatus" gorm:"size:16;default:PENDING"`
	ProcessingStatus string    `json:"processing_status" firestore:"processingStatus" gorm:"size:16;default:PENDING"`
	CreatedAt        time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt        time.Time `json:"updated_at" firestore:"updatedAt"`
}
