package entity

import "time"

// Listing is the subset of a catalog listing the chat needs for context.
type Listing struct {
	ID        string    `json:"id" firestore:"id"`
	OwnerID   string    `json:"owner_id" firestore:"ownerId"`
	Title     string    `json:"title" firestore:"title"`
	Species   string    `json:"species,omitempty" firestore:"species,omitempty"`
	Status    string    `json:"status" firestore:"status"` // "available", "pending", "adopted"
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
}

func (l *Listing) Details() *ListingDetails {
	return &ListingDetails{
		ListingID: l.ID,
		Title:     l.Title,
	}
}
