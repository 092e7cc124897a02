package dto

import "time"

// CreateLivestreamRequest is the payload for creating a broadcast
type CreateLivestreamRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Thumbnail   string     `json:"thumbnail"`
	StartAt     *time.Time `json:"start_at"`
	Platforms   []string   `json:"platforms" binding:"required,min=1"`
}

// UpdateLivestreamRequest is a merge-patch; absent fields are unchanged
type UpdateLivestreamRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Thumbnail   *string    `json:"thumbnail"`
	StartAt     *time.Time `json:"start_at"`
}

// ConnectionResponse is the safe external view of a platform connection.
// Credentials never leave the service.
type ConnectionResponse struct {
	Platform    string  `json:"platform"`
	Status      string  `json:"status"`
	ExpiresAt   *string `json:"expires_at"`
	LastError   *string `json:"last_error"`
	LastErrorAt *string `json:"last_error_at"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}
