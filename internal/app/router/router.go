package router

import (
	"time"

	"github.com/gin-gonic/gin"

	profilehandler "allergyscan_backend/internal/feature/profile/transport/handler"
	scanhandler "allergyscan_backend/internal/feature/scan/transport/handler"
	"allergyscan_backend/internal/platform/http/handler"
	jwtmw "allergyscan_backend/internal/platform/jwt"
	"allergyscan_backend/internal/shared/ratelimiter"
)

// scanRateLimit はスキャンエンドポイントの流量上限です。
// スキャンはONNX推論・カタログ照会・生成AI呼び出しを伴うため個別に制限します。
const (
	scanRateLimit    = 30
	scanRateInterval = time.Minute
)

func NewRouter(profileHandler *profilehandler.ProfileHandler, scanHandler *scanhandler.ScanHandler) *gin.Engine {
	r := gin.Default()

	// 認証不要
	// 導通確認用
	r.GET("/healthz", handler.Health)
	// 新規ユーザー登録
	r.POST("/v1/auth/signup", profileHandler.Signup)
	// ログイン（JWT 発行）
	r.POST("/v1/auth/login", profileHandler.Login)

	// 認証必須のルート
	auth := r.Group("/v1")
	// jwtmw.AuthRequired() ミドルウェアを適用
	// → リクエストヘッダーに JWT が必要になる
	auth.Use(jwtmw.AuthRequired())
	{
		scanLimiter := ratelimiter.NewRateLimiter(scanRateLimit, scanRateInterval)
		auth.POST("/scan", ratelimiter.Middleware(scanLimiter), scanHandler.Scan)
		auth.POST("/scan/detect", scanHandler.Detect)

		auth.GET("/profile/allergens", profileHandler.GetAllergens)
		auth.PUT("/profile/allergens", profileHandler.UpdateAllergens)
		auth.PUT("/profile/vitals", profileHandler.UpdateVitals)
	}

	return r
}
