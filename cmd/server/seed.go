package main

import (
	"context"
	"log/slog"
	"time"

	identityservice "rollcall/internal/identity/service"
	jwttoken "rollcall/internal/jwt_token"
)

const devTokenTTL = 12 * time.Hour

// seedDevPrincipals loads the fixed development directory and logs a bearer
// token for each principal so the API can be exercised without the identity
// service.
func seedDevPrincipals(ctx context.Context, identities *identityservice.Service, jwt *jwttoken.JWTService, log *slog.Logger) error {
	principals := identityservice.DevPrincipals()
	if err := identities.Seed(ctx, principals); err != nil {
		return err
	}
	for _, p := range principals {
		tok, err := jwt.GenerateAccessToken(p, devTokenTTL)
		if err != nil {
			return err
		}
		log.Info("dev principal",
			"principal_id", p.ID.String(),
			"name", p.Name,
			"role", string(p.Role),
			"token", tok,
		)
	}
	return nil
}
