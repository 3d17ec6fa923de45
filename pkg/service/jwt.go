// Файл: pkg/service/jwt.go
package service

import (
	"errors"
	"time"

	apperrors "psycheos-gateway/pkg/errors"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/labstack/gommon/log"
)

// JwtCustomClaim identifies the calling service, not an end user — the REST
// API is consumed by the Pro bot's backing host process, not by a human.
type JwtCustomClaim struct {
	CallerID       string `json:"callerId"`
	IsRefreshToken bool
	jwt.RegisteredClaims
}

type JWTService interface {
	GenerateTokens(callerID string) (string, string, error)
	ValidateToken(tokenString string) (*JwtCustomClaim, error)
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
}

type jwtService struct {
	SecretKey       string
	AccessTokenExp  time.Duration
	RefreshTokenExp time.Duration
}

func NewJWTService(secretKey string, accessTokenExp, refreshTokenExp time.Duration) JWTService {
	return &jwtService{
		SecretKey:       secretKey,
		AccessTokenExp:  accessTokenExp,
		RefreshTokenExp: refreshTokenExp,
	}
}

func (service *jwtService) GenerateTokens(callerID string) (string, string, error) {
	accessTokenExp := time.Now().UTC().Add(service.AccessTokenExp)
	refreshTokenExp := time.Now().UTC().Add(service.RefreshTokenExp)
	issuedAt := time.Now().UTC()

	accessTokenClaims := &JwtCustomClaim{
		CallerID:       callerID,
		IsRefreshToken: false,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(accessTokenExp),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	refreshTokenClaims := &JwtCustomClaim{
		CallerID:       callerID,
		IsRefreshToken: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(refreshTokenExp),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS512, accessTokenClaims)
	accessTokenString, err := accessToken.SignedString([]byte(service.SecretKey))
	if err != nil {
		return "", "", err
	}

	refreshToken := jwt.NewWithClaims(jwt.SigningMethodHS512, refreshTokenClaims)
	refreshTokenString, err := refreshToken.SignedString([]byte(service.SecretKey))
	if err != nil {
		return "", "", err
	}

	return accessTokenString, refreshTokenString, nil
}

func (service *jwtService) ValidateToken(tokenString string) (*JwtCustomClaim, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JwtCustomClaim{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.ErrInvalidSigningMethod
		}
		return []byte(service.SecretKey), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			log.Warn("Проверка токена: срок действия истек")
			return nil, apperrors.ErrTokenExpired
		}
		log.Errorf("Ошибка парсинга токена: %v", err)
		return nil, apperrors.ErrInvalidToken
	}

	if claims, ok := token.Claims.(*JwtCustomClaim); ok && token.Valid {
		return claims, nil
	}

	log.Warn("Токен невалиден по неизвестной причине")
	return nil, apperrors.ErrInvalidToken
}

func (s *jwtService) GetAccessTokenTTL() time.Duration {
	return s.AccessTokenExp
}

func (s *jwtService) GetRefreshTokenTTL() time.Duration {
	return s.RefreshTokenExp
}
