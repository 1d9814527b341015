package jwttoken

import (
	id "rollcall/pkg/domain"
)

// PrincipalValidator adapts JWTService to the auth middleware contract.
type PrincipalValidator struct {
	service *JWTService
}

func NewPrincipalValidator(service *JWTService) *PrincipalValidator {
	return &PrincipalValidator{service: service}
}

func (a *PrincipalValidator) ValidatePrincipal(tokenString string) (id.Principal, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return id.Principal{}, err
	}
	return claims.Principal()
}
