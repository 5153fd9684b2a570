// Package handler はprofileフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"allergyscan_backend/internal/api"
	"allergyscan_backend/internal/feature/profile/domain/entity"
	jwtmw "allergyscan_backend/internal/platform/jwt"
)

// ProfileUsecase は認証とプロフィール操作のユースケースを定義します。
// Goの慣例に従い、インターフェースはプロバイダー（usecase）ではなくコンシューマー（handler）が定義します。
type ProfileUsecase interface {
	// Signup は指定されたメールアドレスとパスワードで新規ユーザーを登録します。
	Signup(ctx context.Context, email, password string) error
	// Login はユーザーを認証し、成功時にJWTトークンを返します。
	Login(ctx context.Context, email, password string) (string, error)
	// Allergens は保存済みアレルゲンリストを返します。
	Allergens(ctx context.Context, userID uint) ([]string, error)
	// UpdateAllergens はアレルゲンリストを正規化して置き換えます。
	UpdateAllergens(ctx context.Context, userID uint, allergens []string) error
	// Vitals は保存済みバイタル値を返します。
	Vitals(ctx context.Context, userID uint) (entity.Vitals, error)
	// UpdateVitals は保存済みバイタル値を置き換えます。
	UpdateVitals(ctx context.Context, userID uint, vitals entity.Vitals) error
}

// ProfileHandler は認証とプロフィール操作のHTTPリクエストを処理します。
type ProfileHandler struct {
	profiles ProfileUsecase
}

// NewProfileHandler はProfileHandlerの新しいインスタンスを生成します。
// 依存性注入用のコンストラクタで、外部からProfileUsecaseを注入します。
func NewProfileHandler(profiles ProfileUsecase) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// Signup はユーザー登録APIエンドポイントを処理します。
// - リクエストJSONをSignupRequestにバインド
// - バリデーションエラー時は400を返却
// - ユーザー作成失敗時（メール重複等）は409を返却
// - 成功時は201を返却
func (h *ProfileHandler) Signup(c *gin.Context) {
	var req api.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("signup validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request"})
		return
	}
	if err := h.profiles.Signup(c.Request.Context(), req.Email, req.Password); err != nil {
		// ユーザー列挙攻撃を防止するため、実際のエラーを公開しない
		slog.Warn("signup failed", "error", err, "email", req.Email, "remote_addr", c.ClientIP())
		c.JSON(http.StatusConflict, api.ErrorResponse{Error: "signup failed"})
		return
	}
	slog.Info("user signup successful", "email", req.Email, "remote_addr", c.ClientIP())
	c.JSON(http.StatusCreated, api.MessageResponse{Message: "ok"})
}

// Login はユーザーログインAPIエンドポイントを処理します。
// - リクエストJSONをLoginRequestにバインド
// - バリデーションエラー時は400を返却
// - 認証失敗時は401を返却
// - 認証成功時はJWTトークン付きで200を返却
func (h *ProfileHandler) Login(c *gin.Context) {
	var req api.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("login validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request"})
		return
	}
	token, err := h.profiles.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		// ユーザー列挙攻撃を防止するため、実際のエラーを公開しない
		slog.Warn("login failed", "error", err, "email", req.Email, "remote_addr", c.ClientIP())
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "invalid email or password"})
		return
	}
	slog.Info("user login successful", "email", req.Email, "remote_addr", c.ClientIP())
	c.JSON(http.StatusOK, api.TokenResponse{Token: token})
}

// GetAllergens は保存済みアレルゲンリストを返します。
func (h *ProfileHandler) GetAllergens(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	allergens, err := h.profiles.Allergens(c.Request.Context(), userID)
	if err != nil {
		slog.Error("failed to load allergens", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load allergens"})
		return
	}
	c.JSON(http.StatusOK, api.AllergensResponse{Allergens: allergens})
}

// UpdateAllergens は保存済みアレルゲンリストを置き換えます。
func (h *ProfileHandler) UpdateAllergens(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req api.UpdateAllergensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("allergens validation failed", "error", err, "user_id", userID)
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request"})
		return
	}

	if err := h.profiles.UpdateAllergens(c.Request.Context(), userID, req.Allergens); err != nil {
		slog.Warn("failed to update allergens", "user_id", userID, "error", err)
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "failed to update allergens"})
		return
	}
	c.JSON(http.StatusOK, api.MessageResponse{Message: "ok"})
}

// UpdateVitals は保存済みバイタル値を置き換えます。
func (h *ProfileHandler) UpdateVitals(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req api.VitalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("vitals validation failed", "error", err, "user_id", userID)
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid request"})
		return
	}

	vitals := entity.Vitals{
		SugarLevel:       req.SugarLevel,
		CholesterolLevel: req.CholesterolLevel,
		BloodPressure:    req.BloodPressure,
		BMI:              req.BMI,
		Age:              req.Age,
		HeartRate:        req.HeartRate,
	}
	if err := h.profiles.UpdateVitals(c.Request.Context(), userID, vitals); err != nil {
		slog.Warn("failed to update vitals", "user_id", userID, "error", err)
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "failed to update vitals"})
		return
	}
	c.JSON(http.StatusOK, api.MessageResponse{Message: "ok"})
}

// currentUserID は認証ミドルウェアが設定したユーザーIDを取り出します。
func currentUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get(jwtmw.ContextUserID)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return 0, false
	}
	userID, ok := v.(uint)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
		return 0, false
	}
	return userID, true
}
