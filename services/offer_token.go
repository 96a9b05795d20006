package services

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

const offerTokenBytes = 32

// TokenGenerator issues confirmation tokens. The token is a bearer credential
// for accepting or rejecting an offer.
type TokenGenerator struct {
	ttl    time.Duration
	random func([]byte) (int, error)
}

func NewTokenGenerator(ttl time.Duration) *TokenGenerator {
	return &TokenGenerator{ttl: ttl, random: rand.Read}
}

// TTL is the validity window applied to every issued token.
func (g *TokenGenerator) TTL() time.Duration {
	return g.ttl
}

// Issue returns a fresh token and its expiry relative to now.
func (g *TokenGenerator) Issue(now time.Time) (string, time.Time, error) {
	if g.ttl <= 0 {
		return "", time.Time{}, fmt.Errorf("offer token ttl must be positive, got %s", g.ttl)
	}
	buf := make([]byte, offerTokenBytes)
	if _, err := g.random(buf); err != nil {
		return "", time.Time{}, fmt.Errorf("generate offer token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), now.Add(g.ttl), nil
}
