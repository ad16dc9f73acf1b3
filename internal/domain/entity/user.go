package entity

import (
	"strings"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID        string `json:"id" firestore:"id" gorm:"primaryKey;type:varchar(64)"`
	Email     string `json:"email" firestore:"email" gorm:"uniqueIndex;size:255"`
	Username  string `json:"username" firestore:"username" gorm:"index;size:64"`
	Phone     string `json:"phone,omitempty" firestore:"phone,omitempty" gorm:"size:32"`
	FirstName string `json:"first_name,omitempty" firestore:"firstName,omitempty" gorm:"size:100"`
	LastName  string `json:"last_name,omitempty" firestore:"lastName,omitempty" gorm:"size:100"`
	AvatarURL string `json:"avatar_url,omitempty" firestore:"avatarURL,omitempty" gorm:"size:512"`
	Role      string `json:"role" firestore:"role" gorm:"size:16;default:user"`

	IsEmailVerified    bool `json:"is_email_verified" firestore:"isEmailVerified"`
	IsPhoneVerified    bool `json:"is_phone_verified" firestore:"isPhoneVerified"`
	IsIdentityVerified bool `json:"is_identity_verified" firestore:"isIdentityVerified"`

	IsActive     bool       `json:"is_active" firestore:"isActive" gorm:"not null"`
	IsBlocked    bool       `json:"is_blocked" firestore:"isBlocked"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty" firestore:"lastActiveAt,omitempty"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// CanChat reports whether the account may open sockets and send messages.
func (u *User) CanChat() bool {
	return u.IsActive && !u.IsBlocked
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// UserSummary is the public projection of a user embedded in chat payloads.
type UserSummary struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	DisplayName  string     `json:"display_name"`
	AvatarURL    string     `json:"avatar_url,omitempty"`
	IsVerified   bool       `json:"is_verified"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
}

func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{
		ID:           u.ID,
		Username:     u.Username,
		DisplayName:  u.DisplayName(),
		AvatarURL:    u.AvatarURL,
		IsVerified:   u.IsIdentityVerified,
		LastActiveAt: u.LastActiveAt,
	}
}
