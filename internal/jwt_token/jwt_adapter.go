package jwttoken

import (
	authmw "github.com/eshbtc/travelcheck-sub000/pkg/platform/middleware/auth"
)

// ToMiddlewareClaims converts token claims to the middleware's view of them.
func ToMiddlewareClaims(claims *Claims) *authmw.JWTClaims {
	return &authmw.JWTClaims{
		UserID: claims.UserID,
	}
}

// JWTServiceAdapter bridges JWTService to the auth middleware's
// JWTValidator interface.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
