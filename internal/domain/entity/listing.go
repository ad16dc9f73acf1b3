package entity

import "time"

const (
	ListingStatusActive   = "ACTIVE"
	ListingStatusSold     = "SOLD"
	ListingStatusSwapped  = "SWAPPED"
	ListingStatusInactive = "INACTIVE"
)

// Listing is an item put up for sale or swap. Chats may reference one as
// their trade context.
type Listing struct {
	ID          string    `json:"id" firestore:"id" gorm:"primaryKey;type:varchar(64)"`
	SellerID    string    `json:"seller_id" firestore:"sellerId" gorm:"index;not null;type:varchar(64)"`
	Title       string    `json:"title" firestore:"title" gorm:"size:200;not null"`
	Description string    `json:"description" firestore:"description" gorm:"type:text"`
	Price       float64   `json:"price" firestore:"price"`
	Currency    string    `json:"currency" firestore:"currency" gorm:"size:3;default:NGN"`
	OpenToSwap  bool      `json:"open_to_swap" firestore:"openToSwap"`
	Region      string    `json:"region,omitempty" firestore:"region,omitempty" gorm:"size:16"`
	Status      string    `json:"status" firestore:"status" gorm:"size:16;default:ACTIVE"`
	CreatedAt   time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt   time.Time `json:"updated_at" firestore:"updatedAt"`
}

// ListingSummary is embedded in chat payloads.
type ListingSummary struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Status   string  `json:"status"`
}

func (l *Listing) Summary() *ListingSummary {
	if l == nil {
		return nil
	}
	return &ListingSummary{
		ID:       l.ID,
		Title:    l.Title,
		Price:    l.Price,
		Currency: l.Currency,
		Status:   l.Status,
	}
}
