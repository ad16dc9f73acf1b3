package entity

import "time"

// Chat is a direct conversation between exactly two users. SenderID is the
// user who opened it.
type Chat struct {
	ID            string    `json:"id" firestore:"id" gorm:"primaryKey;type:varchar(64)"`
	SenderID      string    `json:"sender_id" firestore:"senderId" gorm:"index;not null;type:varchar(64)"`
	ReceiverID    string    `json:"receiver_id" firestore:"receiverId" gorm:"index;not null;type:varchar(64)"`
	ListingID     *string   `json:"listing_id,omitempty" firestore:"listingId,omitempty" gorm:"index;type:varchar(64)"`
	OfferID       *string   `json:"offer_id,omitempty" firestore:"offerId,omitempty" gorm:"type:varchar(64)"`
	LastMessageAt time.Time `json:"last_message_at" firestore:"lastMessageAt" gorm:"index"`
	IsActive      bool      `json:"is_active" firestore:"isActive" gorm:"index;not null"`
	CreatedAt     time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt     time.Time `json:"updated_at" firestore:"updatedAt"`
}

func (c *Chat) HasParticipant(userID string) bool {
	return userID != "" && (c.SenderID == userID || c.ReceiverID == userID)
}

// OtherParticipant returns the participant that is not userID.
func (c *Chat) OtherParticipant(userID string) string {
	if c.SenderID == userID {
		return c.ReceiverID
	}
	return c.SenderID
}

func (c *Chat) Participants() []string {
	return []string{c.SenderID, c.ReceiverID}
}
