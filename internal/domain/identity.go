package domain

import "github.com/google/uuid"

// TokenPair is handed to the client after authentication or refresh.
// RefreshToken is empty in the single-token scheme.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// AuthenticatedIdentity is resolved once per request by the verifier and
// passed explicitly to whatever needs the caller's identity.
type AuthenticatedIdentity struct {
	UserID    uuid.UUID `json:"user_id"`
	SessionID uuid.UUID `json:"session_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Status    bool      `json:"status"`
}

func (i AuthenticatedIdentity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
