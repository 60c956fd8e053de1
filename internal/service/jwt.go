package service

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/surdiana/auth-service/internal/model"
)

type JWTService struct {
	secretKey string
	accessTTL time.Duration
}

func NewJWTService(secretKey string, accessTTL time.Duration) *JWTService {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}

	return &JWTService{
		secretKey: secretKey,
		accessTTL: accessTTL,
	}
}

// AccessTTL returns the configured access token lifetime
func (s *JWTService) AccessTTL() time.Duration {
	return s.accessTTL
}

// GenerateToken creates a short-lived access token carrying the user's
// identity and role set
func (s *JWTService) GenerateToken(user *model.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":    user.ID.String(),
		"email":      user.Email,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"roles":      user.RoleNames(),
		"exp":        now.Add(s.accessTTL).Unix(),
		"iat":        now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(s.secretKey))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GenerateOpaqueToken creates a random URL-safe token for refresh,
// verification and reset flows
func (s *JWTService) GenerateOpaqueToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	return base64.URLEncoding.EncodeToString(bytes), nil
}

// ValidateToken validates an access token and returns its claims
func (s *JWTService) ValidateToken(tokenString string) (*jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(s.secretKey), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return &claims, nil
	}

	return nil, errors.New("invalid token")
}

// ExtractUserID pulls the subject user ID out of validated claims
func (s *JWTService) ExtractUserID(claims *jwt.MapClaims) (uuid.UUID, error) {
	raw, ok := (*claims)["user_id"].(string)
	if !ok {
		return uuid.Nil, errors.New("token missing user_id claim")
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user_id claim: %w", err)
	}

	return userID, nil
}

// ExtractRoles pulls the role claim out of validated claims
func (s *JWTService) ExtractRoles(claims *jwt.MapClaims) []string {
	raw, ok := (*claims)["roles"].([]interface{})
	if !ok {
		return nil
	}

	roles := make([]string, 0, len(raw))
	for _, r := range raw {
		if name, ok := r.(string); ok {
			roles = append(roles, name)
		}
	}
	return roles
}
