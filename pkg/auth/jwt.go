package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carries the admin grants resolved by the identity provider. The
// queue core never resolves identity itself; it only consumes these claims.
type Claims struct {
	StaffID     uuid.UUID   `json:"staff_id"`
	HospitalIDs []uuid.UUID `json:"hospital_ids"`
	jwt.RegisteredClaims
}

// AdminOf reports whether the token holder administers the given hospital.
func (c *Claims) AdminOf(hospitalID uuid.UUID) bool {
	for _, id := range c.HospitalIDs {
		if id == hospitalID {
			return true
		}
	}
	return false
}

type JWTService interface {
	GenerateToken(staffID uuid.UUID, hospitalIDs []uuid.UUID) (string, error)
	ValidateToken(token string) (*Claims, error)
}

type jwtService struct {
	secret []byte
	expiry time.Duration
}

func NewJWTService(secret string, expiry time.Duration) JWTService {
	return &jwtService{secret: []byte(secret), expiry: expiry}
}

func (s *jwtService) GenerateToken(staffID uuid.UUID, hospitalIDs []uuid.UUID) (string, error) {
	now := time.Now()
	claims := &Claims{
		StaffID:     staffID,
		HospitalIDs: hospitalIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   staffID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *jwtService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
