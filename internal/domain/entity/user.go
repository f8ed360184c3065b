package entity

import (
	"time"
)

// Profile is the display metadata the identity resolver hands out.
type Profile struct {
	ID          string    `json:"id" firestore:"id"`
	Email       string    `json:"email,omitempty" firestore:"email,omitempty"`
	DisplayName string    `json:"display_name" firestore:"displayName"`
	AvatarURL   string    `json:"avatar_url,omitempty" firestore:"avatarUrl,omitempty"`
	UpdatedAt   time.Time `json:"updated_at" firestore:"updatedAt"`
}

func (p *Profile) ParticipantInfo() ParticipantInfo {
	name := p.DisplayName
	if name == "" {
		name = p.Email
	}
	return ParticipantInfo{
		DisplayName: name,
		AvatarURL:   p.AvatarURL,
	}
}
