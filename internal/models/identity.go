package models

// Identity is the authenticated user as returned by the account service.
type Identity struct {
	ID           string   `json:"$id"`
	Email        string   `json:"email"`
	Name         string   `json:"name,omitempty"`
	Registration Datetime `json:"registration"`
}

// IsZero reports whether the identity is empty (no authenticated user).
func (i Identity) IsZero() bool {
	return i.ID == ""
}
