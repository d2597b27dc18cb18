package service

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidSession = errors.New("invalid or expired session token")

const sessionDuration = 30 * 24 * time.Hour

// Identity is the browser user's persisted identity: the Ada end user id
// plus the display name shown in the transcript.
type Identity struct {
	EndUserID   string
	DisplayName string
}

// SessionService signs identities into a cookie token so a reloaded page
// resumes as the same end user.
type SessionService struct {
	secret []byte
}

func NewSessionService(secret string) *SessionService {
	return &SessionService{secret: []byte(secret)}
}

func (s *SessionService) IssueToken(id Identity) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  id.EndUserID,
		"name": id.DisplayName,
		"iat":  now.Unix(),
		"exp":  now.Add(sessionDuration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *SessionService) ValidateToken(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidSession
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidSession
	}

	endUserID, _ := claims["sub"].(string)
	displayName, _ := claims["name"].(string)
	if endUserID == "" {
		return Identity{}, ErrInvalidSession
	}

	return Identity{EndUserID: endUserID, DisplayName: displayName}, nil
}

var (
	firstNames = []string{"John", "Jane", "Alice", "Bob", "Eve"}
	lastNames  = []string{"Smith", "Johnson", "Williams", "Jones", "Brown"}
)

// GenerateDisplayName picks a throwaway name for first-time visitors.
func GenerateDisplayName() string {
	return firstNames[rand.Intn(len(firstNames))] + " " + lastNames[rand.Intn(len(lastNames))]
}
