package entity

import (
	"sort"
	"strings"
	"time"

	"petadopt/pkg/errors"
)

// RoomIDSeparator joins the two sorted participant ids into a room id.
const RoomIDSeparator = "_"

type ParticipantInfo struct {
	DisplayName string `json:"display_name" firestore:"displayName"`
	AvatarURL   string `json:"avatar_url,omitempty" firestore:"avatarUrl,omitempty"`
}

type LastMessage struct {
	Text      string    `json:"text" firestore:"text"`
	SenderID  string    `json:"sender_id" firestore:"senderId"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
}

type ListingDetails struct {
	ListingID string `json:"listing_id" firestore:"listingId"`
	Title     string `json:"title" firestore:"title"`
}

// ChatRoom is the summary document of a two-party conversation.
type ChatRoom struct {
	ID                 string                     `json:"id" firestore:"id"`
	Participants       []string                   `json:"participants" firestore:"participants"`
	ParticipantDetails map[string]ParticipantInfo `json:"participant_details" firestore:"participantDetails"`
	LastMessage        *LastMessage               `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	ReadBy             map[string]time.Time       `json:"read_by" firestore:"readBy"`
	ListingDetails     *ListingDetails            `json:"listing_details,omitempty" firestore:"listingDetails,omitempty"`
	MessageCount       int64                      `json:"message_count" firestore:"messageCount"`
	CreatedAt          time.Time                  `json:"created_at" firestore:"createdAt"`
}

// Validate rejects room documents that are missing required fields.
func (r *ChatRoom) Validate() error {
	if r == nil {
		return errors.Validation("room document is empty")
	}
	if r.ID == "" {
		return errors.Validation("room document has no id")
	}
	if len(r.Participants) != 2 || r.Participants[0] == "" || r.Participants[1] == "" {
		return errors.Validation("room " + r.ID + " must have exactly two participants")
	}
	if r.LastMessage != nil && r.LastMessage.SenderID == "" {
		return errors.Validation("room " + r.ID + " has a last message without sender")
	}
	return nil
}

func (r *ChatRoom) HasParticipant(userID string) bool {
	for _, p := range r.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not userID.
func (r *ChatRoom) OtherParticipant(userID string) string {
	for _, p := range r.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

// Clone returns a deep copy so subscribers never share mutable maps.
func (r *ChatRoom) Clone() *ChatRoom {
	if r == nil {
		return nil
	}
	c := *r
	c.Participants = append([]string(nil), r.Participants...)
	if r.ParticipantDetails != nil {
		c.ParticipantDetails = make(map[string]ParticipantInfo, len(r.ParticipantDetails))
		for k, v := range r.ParticipantDetails {
			c.ParticipantDetails[k] = v
		}
	}
	if r.ReadBy != nil {
		c.ReadBy = make(map[string]time.Time, len(r.ReadBy))
		for k, v := range r.ReadBy {
			c.ReadBy[k] = v
		}
	}
	if r.LastMessage != nil {
		lm := *r.LastMessage
		c.LastMessage = &lm
	}
	if r.ListingDetails != nil {
		ld := *r.ListingDetails
		c.ListingDetails = &ld
	}
	return &c
}

// RoomID derives the room id for an unordered pair of users.
func RoomID(userA, userB string) (string, error) {
	userA = strings.TrimSpace(userA)
	userB = strings.TrimSpace(userB)
	if userA == "" || userB == "" {
		return "", errors.Validation("both participants are required")
	}
	if userA == userB {
		return "", errors.Validation("a room needs two distinct participants")
	}
	if strings.Contains(userA, RoomIDSeparator) || strings.Contains(userB, RoomIDSeparator) {
		return "", errors.Validation("participant ids must not contain " + RoomIDSeparator)
	}
	pair := []string{userA, userB}
	sort.Strings(pair)
	return strings.Join(pair, RoomIDSeparator), nil
}

// ParseRoomID returns the sorted participant pair encoded in roomID.
func ParseRoomID(roomID string) ([]string, error) {
	parts := strings.Split(roomID, RoomIDSeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || parts[0] >= parts[1] {
		return nil, errors.Validation("malformed room id " + roomID)
	}
	return parts, nil
}
