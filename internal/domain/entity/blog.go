package entity

import "time"

// Blog is a post authored by a User.
type Blog struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	ImageURL    string    `json:"image,omitempty"`
	Content     string    `json:"content,omitempty"`
	AuthorID    string    `json:"author"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
