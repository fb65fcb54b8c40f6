package types

import (
	"time"

	"github.com/google/uuid"
)

// Note is an owned resource. Private notes are visible to their owner only;
// public notes are readable by anyone but writable only by the owner.
type Note struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	OwnerName string    `json:"owner_name,omitempty"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	IsPrivate bool      `json:"is_private"`
	Tags      string    `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateNoteParams struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	IsPrivate *bool  `json:"is_private,omitempty"`
	Tags      string `json:"tags"`
}

type UpdateNoteParams struct {
	Title     *string `json:"title,omitempty"`
	Content   *string `json:"content,omitempty"`
	IsPrivate *bool   `json:"is_private,omitempty"`
	Tags      *string `json:"tags,omitempty"`
}

// ListNotesFilter bounds note listings.
type ListNotesFilter struct {
	IncludePrivate bool
	Limit          int
	Offset         int
}
