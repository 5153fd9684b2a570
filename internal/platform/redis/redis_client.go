// Package redis は商品キャッシュ用のRedis接続を提供します。
package redis

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 3 * time.Second

// Config はRedis接続の設定を保持します。
type Config struct {
	Addr     string // host:port
	Password string
	DB       int
}

// LoadConfig は環境変数からRedis設定を読み込みます。
// 未設定の項目はローカル開発向けの既定値になります。
func LoadConfig() Config {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}
	db := 0
	if s := os.Getenv("REDIS_DB"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			db = n
		} else {
			slog.Warn("invalid REDIS_DB, falling back to 0", "value", s)
		}
	}
	return Config{
		Addr:     host + ":" + port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	}
}

// NewClient は設定に基づいてRedisクライアントを生成し、疎通を確認します。
// キャッシュは任意の依存のため、呼び出し元は失敗時にnilクライアントで
// 続行できます（キャッシュデコレータはnilをバイパスとして扱う）。
func NewClient(cfg Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("Redis connection failed", "address", cfg.Addr, "error", err)
		return nil, err
	}

	slog.Info("Redis connection successful", "address", cfg.Addr, "db", cfg.DB)
	return rdb, nil
}
