package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aidar/rookie-board/internal/domain"
)

// Claims represents session JWT claims
type Claims struct {
	MemberID  string `json:"member_id"`
	SubjectID string `json:"subject_id"`
	jwt.RegisteredClaims
}

// SessionService issues and validates session tokens
type SessionService struct {
	secret []byte
	expiry time.Duration
}

// NewSessionService creates a new SessionService
func NewSessionService(secret string, expiry time.Duration) *SessionService {
	return &SessionService{
		secret: []byte(secret),
		expiry: expiry,
	}
}

// Expiry returns the lifetime of issued tokens
func (s *SessionService) Expiry() time.Duration {
	return s.expiry
}

// Issue signs a session token for a linked member
func (s *SessionService) Issue(memberID, subjectID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		MemberID:  memberID,
		SubjectID: subjectID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// Validate validates a session token and returns its claims
func (s *SessionService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.MemberID == "" {
		return nil, domain.ErrInvalidToken
	}

	return claims, nil
}
