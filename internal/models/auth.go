package models

import "github.com/golang-jwt/jwt/v5"

// ActorClaims carries the authenticated actor identity extracted from a
// bearer token. Token issuance lives in the identity service; this core only
// verifies and reads.
type ActorClaims struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	SchoolID string `json:"school_id"`
	jwt.RegisteredClaims
}
