package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"pawwalk/internal/walk-service/core/domain/model"
	"pawwalk/internal/walk-service/core/myerrors"

	"github.com/golang-jwt/jwt"
)

// AuthService reads the claims of the caller's own access token. The
// signature is checked by the server on connect; the client only needs the
// dog id and the expiry.
type AuthService struct {
	token string
	now   func() time.Time
}

func NewAuthService(token string) *AuthService {
	return &AuthService{
		token: strings.TrimPrefix(token, "Bearer "),
		now:   time.Now,
	}
}

func (a *AuthService) Token() string {
	return a.token
}

// DogID returns the dog_id claim. Expired tokens are rejected up front so a
// doomed realtime connect is never attempted.
func (a *AuthService) DogID() (model.DogID, error) {
	token, _, err := new(jwt.Parser).ParseUnverified(a.token, jwt.MapClaims{})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", myerrors.ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("%w: cannot get claims", myerrors.ErrTokenInvalid)
	}

	if _, hasExp := claims["exp"]; hasExp && !claims.VerifyExpiresAt(a.now().Unix(), true) {
		return 0, fmt.Errorf("%w: token expired", myerrors.ErrTokenInvalid)
	}

	switch v := claims["dog_id"].(type) {
	case float64:
		return model.DogID(v), nil
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: dog_id %q", myerrors.ErrTokenInvalid, v)
		}
		return model.DogID(id), nil
	default:
		return 0, fmt.Errorf("%w: dog_id is required", myerrors.ErrTokenInvalid)
	}
}
