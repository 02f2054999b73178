package security

import (
	"errors"
	"strconv"
	"time"

	"fleetbook-backend/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const (
	issuer   = "fleetbook"
	audience = "booking-api"
)

// ActorClaims carries everything needed to rebuild a domain.Actor.
type ActorClaims struct {
	UserID     int32       `json:"user_id"`
	Role       domain.Role `json:"role"`
	CompanyID  int32       `json:"company_id,omitempty"`
	CustomerID int32       `json:"customer_id,omitempty"`
	jwt.RegisteredClaims
}

// Actor builds the actor the token speaks for. Customers always act for
// their own customer record.
func (c *ActorClaims) Actor() (domain.Actor, error) {
	role, err := domain.ParseRole(string(c.Role))
	if err != nil {
		return domain.Actor{}, ErrInvalidToken
	}
	if role == domain.RoleSystem {
		return domain.Actor{}, ErrInvalidToken
	}
	a := domain.NewActor(c.UserID, role, c.CompanyID)
	if role == domain.RoleCustomer && c.CustomerID != 0 {
		a.CustomerID = c.CustomerID
	}
	return a, nil
}

type TokenManager interface {
	GenerateAccessToken(userID int32, role domain.Role, companyID, customerID int32) (string, error)
	ValidateToken(tokenString string) (*ActorClaims, error)
}

type tokenManager struct {
	secret []byte
	expiry time.Duration
}

func NewTokenManager(secret string, expiry time.Duration) TokenManager {
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &tokenManager{
		secret: []byte(secret),
		expiry: expiry,
	}
}

func (m *tokenManager) GenerateAccessToken(userID int32, role domain.Role, companyID, customerID int32) (string, error) {
	now := time.Now()
	claims := ActorClaims{
		UserID:     userID,
		Role:       role,
		CompanyID:  companyID,
		CustomerID: customerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(int(userID)),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *tokenManager) ValidateToken(tokenString string) (*ActorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ActorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithAudience(audience))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*ActorClaims); ok && token.Valid {
		if claims.UserID == 0 && claims.Subject != "" {
			uid, _ := strconv.Atoi(claims.Subject)
			claims.UserID = int32(uid)
		}
		return claims, nil
	}

	return nil, ErrInvalidToken
}
