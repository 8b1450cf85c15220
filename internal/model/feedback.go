package model

import "time"

// Feedback is one free-text message submitted by a user.
type Feedback struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
