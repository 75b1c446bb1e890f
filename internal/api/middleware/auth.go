package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethanbaker/interviewer/pkg/interview"
	"github.com/ethanbaker/interviewer/pkg/sdk"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const ownerKey = "interview-owner"

// ErrInvalidToken is returned for any bearer credential that fails verification
var ErrInvalidToken = errors.New("invalid bearer token")

// Claims are the bearer credential fields the service reads. UserID is
// accepted as a fallback subject for tokens minted by older frontends.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
}

// Verifier checks HS256 bearer tokens against a shared secret
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifier creates a verifier for the given secret
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY not set in config or environment")
	}

	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// Verify parses token and returns the owner it names
func (v *Verifier) Verify(token string) (interview.Owner, error) {
	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return interview.Owner{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id := claims.Subject
	if id == "" {
		id = claims.UserID
	}
	if id == "" {
		return interview.Owner{}, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}

	return interview.Owner{ID: id, Name: claims.Name, Email: claims.Email}, nil
}

// Sign mints a token for owner that expires after ttl
func (v *Verifier) Sign(owner interview.Owner, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   owner.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name:  owner.Name,
		Email: owner.Email,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// BearerAuth rejects requests without a valid bearer token and stores the
// verified owner on the context
func BearerAuth(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if v == nil {
			c.JSON(sdk.NewErrorResponse(http.StatusServiceUnavailable, "Authentication is not configured", nil).AsGinResponse())
			c.Abort()
			return
		}

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			c.JSON(sdk.NewErrorResponse(http.StatusUnauthorized, "Authorization header required", nil).AsGinResponse())
			c.Abort()
			return
		}

		owner, err := v.Verify(strings.TrimSpace(token))
		if err != nil {
			c.JSON(sdk.NewErrorResponse(http.StatusUnauthorized, "Invalid bearer token", err).AsGinResponse())
			c.Abort()
			return
		}

		c.Set(ownerKey, owner)
		c.Next()
	}
}

// OwnerFrom returns the owner stored by BearerAuth
func OwnerFrom(c *gin.Context) (interview.Owner, bool) {
	value, exists := c.Get(ownerKey)
	if !exists {
		return interview.Owner{}, false
	}

	owner, ok := value.(interview.Owner)
	return owner, ok
}
