package payment

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid payment token")

// PaymentClaims ties a success redirect to one order, its owner (Subject)
// and the amount charged in minor units.
type PaymentClaims struct {
	OrderID string `json:"oid"`
	Amount  int64  `json:"amt"`
	jwt.RegisteredClaims
}

// TokenSigner issues the token carried by the payment success URL.
type TokenSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenSigner(secret string, ttl time.Duration) *TokenSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *TokenSigner) Sign(orderID, userID string, amount int64) (string, error) {
	now := s.now()
	claims := PaymentClaims{
		OrderID: orderID,
		Amount:  amount,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *TokenSigner) Verify(token string) (PaymentClaims, error) {
	var claims PaymentClaims
	t, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !t.Valid || claims.OrderID == "" {
		return PaymentClaims{}, ErrInvalidToken
	}
	return claims, nil
}
