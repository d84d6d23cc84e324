package core

// UserProfile describes the person asking. All fields are optional.
type UserProfile struct {
	UserID   string `json:"user_id,omitempty"`
	Language string `json:"language,omitempty"`
}
