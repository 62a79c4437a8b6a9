// Package token mints LiveKit-compatible access tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/PabloGalante/practerview-agent/internal/domain"
)

const DefaultTTL = 6 * time.Hour

var (
	ErrMissingCredentials = errors.New("livekit api key and secret are required")
	ErrMissingIdentity    = errors.New("token identity is required")
)

// VideoGrant is the room permission block of a LiveKit access token.
type VideoGrant struct {
	RoomJoin       bool   `json:"roomJoin,omitempty"`
	Room           string `json:"room,omitempty"`
	CanPublish     *bool  `json:"canPublish,omitempty"`
	CanSubscribe   *bool  `json:"canSubscribe,omitempty"`
	CanPublishData *bool  `json:"canPublishData,omitempty"`
	Agent          bool   `json:"agent,omitempty"`
}

// Claims are the JWT claims LiveKit reads from an access token.
type Claims struct {
	jwt.RegisteredClaims
	Name       string            `json:"name,omitempty"`
	Metadata   string            `json:"metadata,omitempty"`
	Kind       string            `json:"kind,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Video      *VideoGrant       `json:"video,omitempty"`
}

// Signer implements domain.TokenSigner with HS256 and the API secret.
type Signer struct {
	apiKey    string
	apiSecret string
	ttl       time.Duration
	now       func() time.Time
}

// NewSigner never fails; missing credentials surface on Sign.
func NewSigner(apiKey, apiSecret string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Signer{apiKey: apiKey, apiSecret: apiSecret, ttl: ttl, now: time.Now}
}

func (s *Signer) Sign(req domain.AccessRequest) (string, error) {
	if s.apiKey == "" || s.apiSecret == "" {
		return "", ErrMissingCredentials
	}
	if req.Identity == "" {
		return "", ErrMissingIdentity
	}

	yes := true
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.apiKey,
			Subject:   string(req.Identity),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Name:       req.Name,
		Metadata:   req.Metadata,
		Kind:       string(req.Kind),
		Attributes: req.Attributes,
		Video: &VideoGrant{
			RoomJoin:       true,
			Room:           string(req.Room),
			CanPublish:     &yes,
			CanSubscribe:   &yes,
			CanPublishData: &yes,
			Agent:          req.Agent,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.apiSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token signed with this signer's secret and returns its claims.
func (s *Signer) Parse(tokenString string) (*Claims, error) {
	if s.apiKey == "" || s.apiSecret == "" {
		return nil, ErrMissingCredentials
	}

	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.apiSecret), nil
	}, jwt.WithIssuer(s.apiKey), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
