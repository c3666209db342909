package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/prepjourney/prepjourney-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a dashboard JWT.
type AccessTokenPayload struct {
	AdminID uuid.UUID
	Email   string
	Role    enums.AdminRole
	JTI     string
}

// AccessTokenClaims represents the typed JWT issued to dashboard clients.
type AccessTokenClaims struct {
	AdminID uuid.UUID       `json:"admin_id"`
	Email   string          `json:"email,omitempty"`
	Role    enums.AdminRole `json:"role"`
	jwt.RegisteredClaims
}
