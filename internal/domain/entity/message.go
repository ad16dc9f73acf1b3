package entity

import "time"

type MessageType string

const (
	MessageTypeText     MessageType = "TEXT"
	MessageTypeImage    MessageType = "IMAGE"
	MessageTypeAudio    MessageType = "AUDIO"
	MessageTypeVideo    MessageType = "VIDEO"
	MessageTypeDocument MessageType = "DOCUMENT"
	MessageTypeLocation MessageType = "LOCATION"
	MessageTypeSystem   MessageType = "SYSTEM"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeAudio, MessageTypeVideo,
		MessageTypeDocument, MessageTypeLocation, MessageTypeSystem:
		return true
	}
	return false
}

// MimeType is the content type assumed for media attached to a message of
// this type when the client did not upload it through the media endpoint.
func (t MessageType) MimeType() string {
	switch t {
	case MessageTypeImage:
		return "image/jpeg"
	case MessageTypeAudio:
		return "audio/mpeg"
	case MessageTypeVideo:
		return "video/mp4"
	case MessageTypeDocument:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

type Message struct {
	ID        string                 `json:"id" firestore:"id" gorm:"primaryKey;type:varchar(64)"`
	ChatID    string                 `json:"chat_id" firestore:"chatId" gorm:"index:idx_messages_chat_created,priority:1;not null;type:varchar(64)"`
	SenderID  string                 `json:"sender_id" firestore:"senderId" gorm:"index;not null;type:varchar(64)"`
	Type      MessageType            `json:"type" firestore:"type" gorm:"size:16;not null;default:TEXT"`
	Content   string                 `json:"content" firestore:"content" gorm:"type:text"`
	IsRead    bool                   `json:"is_read" firestore:"isRead" gorm:"index;not null;default:false"`
	ReadAt    *time.Time             `json:"read_at,omitempty" firestore:"readAt,omitempty"`
	IsDeleted bool                   `json:"is_deleted" firestore:"isDeleted" gorm:"not null;default:false"`
	Metadata  map[string]interface{} `json:"metadata,omitempty" firestore:"metadata,omitempty" gorm:"serializer:json;type:text"`
	CreatedAt time.Time              `json:"created_at" firestore:"createdAt" gorm:"index:idx_messages_chat_created,priority:2"`
	UpdatedAt time.Time              `json:"updated_at" firestore:"updatedAt"`
}
