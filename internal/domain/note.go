package domain

// Note is a source document submitted by a user. Name is the natural dedup key.
// A nil Content means there is nothing to generate cards from.
type Note struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Content     *string `json:"content"`
	ContentHash string  `json:"-"`
	CreatedAt   int64   `json:"createdAt"`
	UpdatedAt   int64   `json:"updatedAt"`
}

// HasContent reports whether the note carries text worth sending to the
// completion service.
func (n Note) HasContent() bool {
	return n.Content != nil && *n.Content != ""
}
