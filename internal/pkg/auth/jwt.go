package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/yigit/classroom/internal/app/models"
)

// JWT errors
var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token expired")
	ErrInvalidFormat = errors.New("invalid token format")
)

// stateAudience marks tokens that travel through the Google OAuth redirect
const stateAudience = "google-oauth-state"

// JWTConfig defines JWT configuration settings
type JWTConfig struct {
	SecretKey      string
	AccessTokenExp time.Duration
	StateTokenExp  time.Duration
	TokenIssuer    string
}

// JWTService handles JWT operations
type JWTService struct {
	config JWTConfig
}

// NewJWTService creates a new JWT service
func NewJWTService(config JWTConfig) *JWTService {
	if config.StateTokenExp <= 0 {
		config.StateTokenExp = 10 * time.Minute
	}
	return &JWTService{
		config: config,
	}
}

// Claims defines JWT token content
type Claims struct {
	UserID int64  `json:"userId"`
	Login  string `json:"login"`
	jwt.RegisteredClaims
}

// StateClaims is carried in the OAuth state parameter
type StateClaims struct {
	UserID       int64  `json:"userId"`
	Organization string `json:"organization"`
	jwt.RegisteredClaims
}

func (s *JWTService) registeredClaims(subject int64, ttl time.Duration, audience ...string) jwt.RegisteredClaims {
	now := time.Now()
	rc := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    s.config.TokenIssuer,
		Subject:   fmt.Sprintf("%d", subject),
		ID:        uuid.New().String(),
	}
	if len(audience) > 0 {
		rc.Audience = audience
	}
	return rc
}

func (s *JWTService) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.SecretKey))
}

func (s *JWTService) parse(tokenString string, claims jwt.Claims, opts ...jwt.ParserOption) (*jwt.Token, error) {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.SecretKey), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return token, nil
}

// GenerateAccessToken creates an access token for the user. expiresIn is in seconds.
func (s *JWTService) GenerateAccessToken(user *models.User) (accessToken string, expiresIn int, err error) {
	claims := &Claims{
		UserID:           user.ID,
		Login:            user.Login,
		RegisteredClaims: s.registeredClaims(user.ID, s.config.AccessTokenExp),
	}

	accessToken, err = s.sign(claims)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create access token: %w", err)
	}
	return accessToken, int(s.config.AccessTokenExp.Seconds()), nil
}

// ValidateToken validates a token
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if _, err := s.parse(tokenString, claims); err != nil {
		return nil, err
	}
	// state tokens must not authenticate API calls
	for _, aud := range claims.Audience {
		if aud == stateAudience {
			return nil, ErrInvalidToken
		}
	}
	return claims, nil
}

// ExtractBearerToken extracts the token from the Authorization header
func ExtractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrInvalidFormat
	}

	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer "), nil
	}

	return authHeader, nil
}

// ValidateAndExtractClaims validates and extracts claims from a token string
func (s *JWTService) ValidateAndExtractClaims(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	if claims.UserID <= 0 || claims.Login == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GenerateStateToken signs the OAuth state for a user returning to an organization
func (s *JWTService) GenerateStateToken(userID int64, organization string) (string, error) {
	claims := &StateClaims{
		UserID:           userID,
		Organization:     organization,
		RegisteredClaims: s.registeredClaims(userID, s.config.StateTokenExp, stateAudience),
	}
	token, err := s.sign(claims)
	if err != nil {
		return "", fmt.Errorf("failed to create state token: %w", err)
	}
	return token, nil
}

// ParseStateToken validates an OAuth state produced by GenerateStateToken
func (s *JWTService) ParseStateToken(tokenString string) (*StateClaims, error) {
	claims := &StateClaims{}
	if _, err := s.parse(tokenString, claims, jwt.WithAudience(stateAudience)); err != nil {
		return nil, err
	}
	if claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
