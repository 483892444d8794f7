package auth

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const purposeVerification = "verification"

var (
	// ErrInvalidToken covers bad signature, expiry, wrong purpose and
	// malformed claims alike; callers only need "re-authenticate".
	ErrInvalidToken = errors.New("invalid or expired token")
)

type Config struct {
	Secret          []byte
	AccessTTL       time.Duration
	VerificationTTL time.Duration
}

// ConfigFromEnv reads token config from environment variables.
func ConfigFromEnv() Config {
	secret := os.Getenv("SECRET_KEY")
	if secret == "" {
		// dev fallback, same spirit as the rest of the env defaults
		secret = "dev_secret_change_in_prod"
	}
	accessMin := 15
	if v := os.Getenv("ACCESS_TOKEN_EXPIRE_MINUTES"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			accessMin = parsed
		}
	}
	return Config{
		Secret:          []byte(secret),
		AccessTTL:       time.Duration(accessMin) * time.Minute,
		VerificationTTL: 24 * time.Hour,
	}
}

// TokenService issues and parses the two token kinds: short-lived
// session tokens carrying the account's session version, and longer
// lived single-purpose verification tokens.
type TokenService struct {
	cfg Config
	now func() time.Time
}

func NewTokenService(cfg Config) *TokenService {
	return &TokenService{cfg: cfg, now: time.Now}
}

// IssueSession signs a bearer token bound to the given session version.
// The token dies the moment a newer login bumps the stored version.
func (s *TokenService) IssueSession(email string, version int) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub": email,
		"v":   version,
		"iat": now.Unix(),
		"exp": now.Add(s.cfg.AccessTTL).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.cfg.Secret)
}

// IssueVerification signs an email-activation token.
func (s *TokenService) IssueVerification(email string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":     email,
		"purpose": purposeVerification,
		"iat":     now.Unix(),
		"exp":     now.Add(s.cfg.VerificationTTL).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.cfg.Secret)
}

// ParseSession verifies a session token and returns its subject and
// embedded version. A verification token is not a session token.
func (s *TokenService) ParseSession(token string) (string, int, error) {
	claims, err := s.parse(token)
	if err != nil {
		return "", 0, err
	}
	if _, isVerify := claims["purpose"]; isVerify {
		return "", 0, ErrInvalidToken
	}
	email, _ := claims["sub"].(string)
	rawVersion, ok := claims["v"].(float64)
	if email == "" || !ok {
		return "", 0, ErrInvalidToken
	}
	return email, int(rawVersion), nil
}

// ParseVerification verifies an activation token and returns its
// subject.
func (s *TokenService) ParseVerification(token string) (string, error) {
	claims, err := s.parse(token)
	if err != nil {
		return "", err
	}
	purpose, _ := claims["purpose"].(string)
	email, _ := claims["sub"].(string)
	if purpose != purposeVerification || email == "" {
		return "", ErrInvalidToken
	}
	return email, nil
}

func (s *TokenService) parse(token string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.cfg.Secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
