package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/stockroomhq/stockroom-backend/pkg/enums"
)

// ActorClaims carries the authenticated actor identity through the API layer.
type ActorClaims struct {
	ActorID uuid.UUID       `json:"actorId"`
	Role    enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
