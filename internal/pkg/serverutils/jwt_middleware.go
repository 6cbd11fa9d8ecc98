package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	LocalUserId = "user_id"
	LocalOrgId  = "org_id"
)

// ErrMissingJWTSecret is returned when no signing secret is configured; an
// empty HMAC key would let anyone mint tokens for any org.
var ErrMissingJWTSecret = errors.New("JWT_SECRET is required")

// NewJwtMiddleware verifies HS256 bearer tokens signed with secret and
// stores the caller's user and org ids in ctx.Locals. The user id is read
// from "sub", falling back to "user_id". Tokens without an org are rejected.
func NewJwtMiddleware(secret string) (fiber.Handler, error) {
	if secret == "" {
		return nil, ErrMissingJWTSecret
	}
	key := []byte(secret)

	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get("Authorization")
		if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
			return fiber.NewError(fiber.StatusUnauthorized, "Missing token")
		}
		tokenStr := authHeader[7:]

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid claims")
		}

		userId := stringClaim(claims, "sub")
		if userId == "" {
			userId = stringClaim(claims, "user_id")
		}
		orgId := stringClaim(claims, "org_id")
		if userId == "" || orgId == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Token is missing user or org")
		}

		ctx.Locals(LocalUserId, userId)
		ctx.Locals(LocalOrgId, orgId)
		return ctx.Next()
	}, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return v
}
