package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	allergenentity "allergyscan_backend/internal/feature/allergen/domain/entity"
	"allergyscan_backend/internal/feature/scan/domain/entity"
)

const (
	// MaxImageSize は画像アップロードの最大サイズ（10MB）です。
	MaxImageSize = 10 * 1024 * 1024
)

// BarcodeDecoder は画像バイト列からバーコード文字列を復号します。
// Goの慣例に従い、インターフェースはプロバイダー（adapters）ではなくコンシューマー（usecase）が定義します。
type BarcodeDecoder interface {
	// Decode はバーコードの生データ文字列を返します。
	// シンボルが見つからない場合はErrBarcodeNotFoundを返します。
	Decode(imageData []byte) (string, error)
}

// ProductRepository はバーコードから商品レコードを解決します。
type ProductRepository interface {
	// FindByBarcode は商品レコードを取得します。
	// カタログに存在しない場合はErrProductNotFoundを返します。
	FindByBarcode(ctx context.Context, barcode string) (*entity.Product, error)
}

// AllergenDetector はユーザーのアレルゲンと原材料テキストを照合します。
// 検出の内部失敗は結果の中に畳み込まれ、エラーとしては伝播しません。
type AllergenDetector interface {
	Detect(ctx context.Context, userAllergens []string, ingredientText string) allergenentity.DetectionResult
}

// RiskScorer は表形式の特徴量から健康リスクスコアを計算します。
type RiskScorer interface {
	Score(ctx context.Context, features entity.RiskFeatures) (int, error)
}

// NarrativeGenerator は原材料リストから有害性の説明文を生成します。
// 生成の失敗・不正な出力は実装側でEmptyNarrativeに劣化させる契約です。
type NarrativeGenerator interface {
	Generate(ctx context.Context, ingredients []string) (entity.HazardNarrative, error)
}

// ProfileProvider はスキャンを実行するユーザーの保存済みプロフィールを提供します。
type ProfileProvider interface {
	// AllergensOf はユーザーが申告したアレルゲンのリストを返します。
	AllergensOf(ctx context.Context, userID uint) ([]string, error)
	// VitalsOf はリスクスコアリングに使うバイタル値を返します。
	// 未登録の場合はゼロ値を返します。
	VitalsOf(ctx context.Context, userID uint) (entity.RiskFeatures, error)
}

// IngredientExtractor は商品ラベル画像から原材料テキストを抽出します。
// カタログに原材料がない場合のフォールバックで、任意の依存です。
type IngredientExtractor interface {
	ExtractText(ctx context.Context, imageData []byte) (string, error)
}

// scanUsecase はバーコードスキャンのパイプライン全体を編成します。
type scanUsecase struct {
	decoder   BarcodeDecoder
	products  ProductRepository
	detector  AllergenDetector
	scorer    RiskScorer
	narrator  NarrativeGenerator
	profiles  ProfileProvider
	extractor IngredientExtractor // nilの場合はOCRフォールバックなし
}

// NewScanUsecase はscanUsecaseの新しいインスタンスを生成します。
// extractorはnil可（OCRフォールバック無効）。
func NewScanUsecase(
	decoder BarcodeDecoder,
	products ProductRepository,
	detector AllergenDetector,
	scorer RiskScorer,
	narrator NarrativeGenerator,
	profiles ProfileProvider,
	extractor IngredientExtractor,
) *scanUsecase {
	return &scanUsecase{
		decoder:   decoder,
		products:  products,
		detector:  detector,
		scorer:    scorer,
		narrator:  narrator,
		profiles:  profiles,
		extractor: extractor,
	}
}

// Scan はバーコード画像から最終レポートまでのパイプラインを実行します。
//
// バーコード未検出・商品未登録は型付きエラーで早期リターンし、
// 以降の外部呼び出しを行いません。スコアリングと説明文生成の失敗は
// スキャン全体を失敗させず、その場で劣化させます。
func (u *scanUsecase) Scan(ctx context.Context, userID uint, imageData []byte) (*entity.ScanReport, error) {
	if len(imageData) == 0 {
		return nil, fmt.Errorf("image data is empty")
	}
	if len(imageData) > MaxImageSize {
		return nil, fmt.Errorf("image size exceeds maximum of %d bytes", MaxImageSize)
	}

	// 1. バーコード復号。失敗時は他の外部呼び出しを一切行わない。
	barcode, err := u.decoder.Decode(imageData)
	if err != nil {
		if errors.Is(err, ErrBarcodeNotFound) {
			return nil, ErrBarcodeNotFound
		}
		return nil, fmt.Errorf("decode barcode: %w", err)
	}

	// 2. カタログ照会。未登録と照会失敗は区別して返す。
	product, err := u.products.FindByBarcode(ctx, barcode)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrProductLookupFailed, err)
	}

	// 3. 原材料テキスト。カタログが空でOCRが構成済みならラベルから抽出。
	ingredients := product.Ingredients
	if len(ingredients) == 0 && u.extractor != nil {
		if text, ocrErr := u.extractor.ExtractText(ctx, imageData); ocrErr != nil {
			slog.Warn("ingredient OCR fallback failed", "barcode", barcode, "error", ocrErr)
		} else if text != "" {
			ingredients = splitIngredients(text)
		}
	}
	ingredientText := strings.Join(ingredients, ", ")

	// 4. アレルゲン検出。ユーザーの保存済みプロフィールを使用。
	allergens, err := u.profiles.AllergensOf(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load allergen profile: %w", err)
	}
	detection := u.detector.Detect(ctx, allergens, ingredientText)

	// 5. 健康リスクスコア。失敗してもスキャンは継続（スコア0に劣化）。
	features, err := u.profiles.VitalsOf(ctx, userID)
	if err != nil {
		slog.Warn("vitals unavailable, scoring with zero vitals", "user_id", userID, "error", err)
		features = entity.RiskFeatures{}
	}
	fillProductFeatures(&features, product.Nutrients)

	score, err := u.scorer.Score(ctx, features)
	if err != nil {
		slog.Error("health risk scoring failed", "barcode", barcode, "error", err)
		score = 0
	}

	// 6. 有害性説明文。失敗時は定義済みの空の形に劣化。
	narrative, err := u.narrator.Generate(ctx, ingredients)
	if err != nil {
		slog.Error("hazard narrative generation failed", "barcode", barcode, "error", err)
		narrative = entity.EmptyNarrative()
	}

	// 7. 統合レポート
	return &entity.ScanReport{
		Barcode:   barcode,
		Product:   *product,
		Detection: detection,
		Score:     score,
		Narrative: narrative,
	}, nil
}

// Detect は原材料テキストを直接持つクライアント向けに検出コアを公開します。
func (u *scanUsecase) Detect(ctx context.Context, userAllergens []string, ingredientText string) allergenentity.DetectionResult {
	return u.detector.Detect(ctx, userAllergens, ingredientText)
}

// splitIngredients はOCRテキストをカンマ区切りの原材料リストに分割します。
func splitIngredients(text string) []string {
	parts := strings.Split(text, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// fillProductFeatures は商品栄養素をリスク特徴量に書き込みます。
func fillProductFeatures(f *entity.RiskFeatures, nutrients []entity.Nutrient) {
	for _, n := range nutrients {
		switch n.Name {
		case "Sugar":
			f.SugarInProduct = n.Value
		case "Salt":
			f.SaltInProduct = n.Value
		case "Saturated Fat":
			f.SaturatedFatInProduct = n.Value
		case "Carbohydrates":
			f.CarbohydratesInProduct = n.Value
		}
	}
}
