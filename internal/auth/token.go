package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/plateful/plateful/internal/constants"
	inErrors "github.com/plateful/plateful/internal/errors"
	"github.com/plateful/plateful/internal/log"
)

type tokenKey struct{}

func AttachTokenToContext(c context.Context, token *jwt.Token) context.Context {
	return context.WithValue(c, tokenKey{}, token)
}

func TokenFromContext(c context.Context) *jwt.Token {
	token, _ := c.Value(tokenKey{}).(*jwt.Token)
	return token
}

// StaffIdFromContext returns the subject of the verified staff token.
func StaffIdFromContext(c context.Context) (string, error) {
	token := TokenFromContext(c)
	if token == nil {
		return "", inErrors.ErrEmptyAuth
	}
	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", inErrors.ErrEmptySubject
	}
	return subject, nil
}

func VerifyToken(c context.Context, token string, secretKey string) (*jwt.Token, error) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "VerifyToken").
		Logger()

	claims := &jwt.RegisteredClaims{}

	logger = logger.With().Str(log.KeyProcess, "parsing claims").Logger()
	jwtToken, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			return []byte(secretKey), nil
		},
		jwt.WithAudience(constants.AUDIENCE_STAFF),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(constants.ISSUER_TOKEN),
	)
	if err != nil {
		err = fmt.Errorf("failed parsing with claims with error=%w", err)
		logger.Error().Err(err).Msg(err.Error())
		return nil, err
	}
	logger.Info().Msg("parsed claims")

	if !jwtToken.Valid {
		logger.Error().Err(inErrors.ErrTokenInvalid).Msg(inErrors.ErrTokenInvalid.Error())
		return nil, inErrors.ErrTokenInvalid
	}

	return jwtToken, nil
}
