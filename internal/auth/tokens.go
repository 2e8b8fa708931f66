package auth

import (
	"encoding/hex"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/shelfkeeper/shelfkeeper/internal/domain"
	"github.com/shelfkeeper/shelfkeeper/internal/id"
)

const (
	tokenIssuer   = "shelfkeeper-server"
	tokenAudience = "shelfkeeper-client"

	claimUserID = "user_id"
	claimEmail  = "email"
)

// Claims are the verified contents of an access token.
type Claims struct {
	UserID    string
	Email     string
	TokenID   string
	ExpiresAt time.Time
}

// TokenService issues and verifies PASETO v4.local access tokens.
type TokenService struct {
	key      paseto.V4SymmetricKey
	lifetime time.Duration
	now      func() time.Time
}

// NewTokenService creates a token service from a hex-encoded 32-byte key.
func NewTokenService(keyHex string, lifetime time.Duration) (*TokenService, error) {
	if len(keyHex) != keyHexLength {
		return nil, fmt.Errorf("PASETO v4 key must be exactly %d hex characters (%d bytes), got %d", keyHexLength, keyLength, len(keyHex))
	}
	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid hex string for PASETO key: %w", err)
	}
	key, err := paseto.V4SymmetricKeyFromBytes(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("create PASETO symmetric key: %w", err)
	}
	return &TokenService{key: key, lifetime: lifetime, now: time.Now}, nil
}

// Lifetime returns the configured access token lifetime.
func (s *TokenService) Lifetime() time.Duration {
	return s.lifetime
}

// Issue creates an access token for user and returns it with its expiry.
func (s *TokenService) Issue(user *domain.User) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.lifetime)

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetAudience(tokenAudience)
	token.SetSubject(user.ID)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(expires)

	tokenID, err := id.Generate(id.PrefixToken)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate token ID: %w", err)
	}
	token.SetJti(tokenID)

	//nolint:errcheck // Set only fails for values that cannot be JSON encoded.
	_ = token.Set(claimUserID, user.ID)
	//nolint:errcheck // Set only fails for values that cannot be JSON encoded.
	_ = token.Set(claimEmail, user.Email)

	return token.V4Encrypt(s.key, nil), expires, nil
}

// Verify decrypts an access token and checks issuer, audience and validity
// window against the service clock.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.ValidAt(s.now()))

	token, err := parser.ParseV4Local(s.key, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	userID, err := token.GetString(claimUserID)
	if err != nil {
		return nil, fmt.Errorf("token missing %s: %w", claimUserID, err)
	}
	email, err := token.GetString(claimEmail)
	if err != nil {
		return nil, fmt.Errorf("token missing %s: %w", claimEmail, err)
	}
	jti, err := token.GetJti()
	if err != nil {
		return nil, fmt.Errorf("token missing jti: %w", err)
	}
	exp, err := token.GetExpiration()
	if err != nil {
		return nil, fmt.Errorf("token missing exp: %w", err)
	}

	return &Claims{UserID: userID, Email: email, TokenID: jti, ExpiresAt: exp}, nil
}
