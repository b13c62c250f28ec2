package main

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const sessionTokenExpiry = 24 * time.Hour

// SessionTokens mints and validates the signed tokens that let a
// reconnecting client reclaim its player identity in a room. This is
// session continuity only; there are no accounts. The signing secret is
// generated per process.
type SessionTokens struct {
	secret []byte
}

// NewSessionTokens creates a token minter with a fresh random secret.
func NewSessionTokens() *SessionTokens {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("failed to generate session token secret: " + err.Error())
	}
	return &SessionTokens{secret: secret}
}

type sessionClaims struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
	jwt.RegisteredClaims
}

// Issue returns a signed token binding a player identity to a room.
func (s *SessionTokens) Issue(roomID, playerID string) (string, error) {
	claims := sessionClaims{
		RoomID:   roomID,
		PlayerID: playerID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionTokenExpiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses a token and returns the room and player it binds.
func (s *SessionTokens) Validate(tokenStr string) (roomID, playerID string, err error) {
	token, err := jwt.ParseWithClaims(tokenStr, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("parse session token: %w", err)
	}
	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return "", "", fmt.Errorf("invalid session token")
	}
	return claims.RoomID, claims.PlayerID, nil
}
