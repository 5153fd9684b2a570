// Package handler はscanフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"allergyscan_backend/internal/api"
	allergenentity "allergyscan_backend/internal/feature/allergen/domain/entity"
	"allergyscan_backend/internal/feature/scan/domain/entity"
	"allergyscan_backend/internal/feature/scan/usecase"
	jwtmw "allergyscan_backend/internal/platform/jwt"
)

// ScanUsecase はバーコードスキャンのユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type ScanUsecase interface {
	Scan(ctx context.Context, userID uint, imageData []byte) (*entity.ScanReport, error)
	Detect(ctx context.Context, userAllergens []string, ingredientText string) allergenentity.DetectionResult
}

// ScanHandler はバーコードスキャンのHTTPリクエストを処理します。
type ScanHandler struct {
	uc ScanUsecase
}

// NewScanHandler はScanHandlerの新しいインスタンスを生成します。
func NewScanHandler(uc ScanUsecase) *ScanHandler {
	return &ScanHandler{uc: uc}
}

// Scan はバーコード画像をアップロードしてスキャンレポートを返します。
//
// エンドポイント: POST /v1/scan
// Content-Type: multipart/form-data
// フィールド: image（画像ファイル、最大10MB）
//
// バーコード未検出は422、商品未登録は404、カタログ照会失敗は502を返します。
func (h *ScanHandler) Scan(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		slog.Warn("画像ファイルの取得に失敗", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "画像ファイルが必要です"})
		return
	}
	if file.Size > usecase.MaxImageSize {
		slog.Warn("画像サイズが上限を超過", "size", file.Size, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "画像サイズが上限を超えています"})
		return
	}

	f, err := file.Open()
	if err != nil {
		slog.Error("画像ファイルのオープンに失敗", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "画像の読み込みに失敗しました"})
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("画像ファイルのクローズに失敗", "error", err)
		}
	}()

	imageData, err := io.ReadAll(f)
	if err != nil {
		slog.Error("画像データの読み取りに失敗", "error", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "画像の読み込みに失敗しました"})
		return
	}

	report, err := h.uc.Scan(c.Request.Context(), userID, imageData)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrBarcodeNotFound):
			slog.Warn("バーコードを検出できず", "user_id", userID)
			c.JSON(http.StatusUnprocessableEntity, api.ErrorResponse{Error: "バーコードを検出できませんでした"})
		case errors.Is(err, usecase.ErrProductNotFound):
			slog.Warn("商品がカタログに未登録", "user_id", userID)
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "商品が見つかりませんでした"})
		case errors.Is(err, usecase.ErrProductLookupFailed):
			slog.Error("カタログ照会に失敗", "error", err)
			c.JSON(http.StatusBadGateway, api.ErrorResponse{Error: "商品情報の取得に失敗しました"})
		default:
			slog.Error("スキャンに失敗", "error", err)
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "スキャンに失敗しました"})
		}
		return
	}

	c.JSON(http.StatusOK, toScanResponse(report))
}

// Detect は原材料テキストを直接受け取ってアレルゲン照合のみを実行します。
//
// エンドポイント: POST /v1/scan/detect
// Content-Type: application/json
func (h *ScanHandler) Detect(c *gin.Context) {
	var req api.DetectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("検出リクエストのバリデーションに失敗", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "原材料テキストが必要です"})
		return
	}

	result := h.uc.Detect(c.Request.Context(), req.Allergens, req.IngredientText)
	c.JSON(http.StatusOK, toDetectResponse(result))
}

// toScanResponse はドメインのスキャンレポートをAPIレスポンスに変換します。
func toScanResponse(r *entity.ScanReport) api.ScanResponse {
	nutrients := make([]api.NutrientResponse, 0, len(r.Product.Nutrients))
	for _, n := range r.Product.Nutrients {
		nutrients = append(nutrients, api.NutrientResponse{Name: n.Name, Value: n.Value})
	}

	ingredients := r.Product.Ingredients
	if ingredients == nil {
		ingredients = []string{}
	}

	hazards := make([]api.HazardItemResponse, 0, len(r.Narrative.Hazards))
	for _, h := range r.Narrative.Hazards {
		hazards = append(hazards, api.HazardItemResponse{Name: h.Name, Value: h.Value})
	}
	longTerm := make([]api.LongTermRiskResponse, 0, len(r.Narrative.LongTermRisks))
	for _, l := range r.Narrative.LongTermRisks {
		longTerm = append(longTerm, api.LongTermRiskResponse{Summary: l.Summary, Detail: l.Detail})
	}

	return api.ScanResponse{
		Barcode: r.Barcode,
		Product: api.ProductResponse{
			Barcode:     r.Product.Barcode,
			Name:        r.Product.Name,
			Brand:       r.Product.Brand,
			ImageURL:    r.Product.ImageURL,
			Ingredients: ingredients,
			Nutrients:   nutrients,
		},
		Detection: toDetectResponse(r.Detection),
		Score:     r.Score,
		Narrative: api.NarrativeResponse{
			Hazards:        hazards,
			LongTermRisks:  longTerm,
			Recommendation: r.Narrative.Recommendation,
		},
	}
}

// toDetectResponse は検出結果をAPIレスポンスに変換します。
func toDetectResponse(r allergenentity.DetectionResult) api.DetectResponse {
	detected := r.DetectedAllergens
	if detected == nil {
		detected = []string{}
	}
	return api.DetectResponse{
		DetectedAllergens: detected,
		Safe:              r.Safe,
		Error:             r.Error,
	}
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
