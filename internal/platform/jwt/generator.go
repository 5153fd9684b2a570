package jwtmw

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// TokenIssuer はこのサービスが発行するトークンのissクレーム値です。
	TokenIssuer = "allergyscan_backend"

	// DefaultAccessTokenTTL はアクセストークンの既定の有効期間です。
	// スキャン履歴やプロフィール更新はモバイルクライアントからの
	// 断続的なアクセスが前提のため、1日単位で発行します。
	DefaultAccessTokenTTL = 24 * time.Hour
)

// Generator はログイン済みユーザーへのアクセストークン発行を抽象化します。
type Generator interface {
	// GenerateToken はユーザーIDをsubに持つ署名済みJWTを返します。
	GenerateToken(userID uint, email string) (string, error)
}

type generator struct {
	secret     []byte
	expiration time.Duration
}

// NewGenerator はHS256で署名するGeneratorを生成します。
// expirationが0以下の場合はDefaultAccessTokenTTLを使用します。
func NewGenerator(secret string, expiration time.Duration) Generator {
	if expiration <= 0 {
		expiration = DefaultAccessTokenTTL
	}
	return &generator{
		secret:     []byte(secret),
		expiration: expiration,
	}
}

// GenerateToken は認証ミドルウェアが期待するクレーム構成でトークンを発行します。
// subはAuthRequiredがユーザーIDとして読み取るため必須です。
func (g *generator) GenerateToken(userID uint, email string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"iss":   TokenIssuer,
		"exp":   now.Add(g.expiration).Unix(),
		"iat":   now.Unix(),
		"email": email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	return signed, nil
}
