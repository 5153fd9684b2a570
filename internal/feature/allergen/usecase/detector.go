// Package usecase はallergenフィーチャーのビジネスロジックを実装します。
package usecase

import (
	"context"
	"fmt"
	"sort"

	"allergyscan_backend/internal/feature/allergen/domain/entity"
)

const (
	// CosineThreshold は埋め込み類似度の一致判定しきい値です。
	// 類似度がこの値を厳密に超えた場合のみ一致とみなします。
	CosineThreshold = 0.8

	// FuzzyRatioThreshold はあいまい文字列一致のしきい値（0〜100）です。
	// 比率がこの値を厳密に超えた場合のみ一致とみなします。
	FuzzyRatioThreshold = 85
)

// TextEmbedder はテキストを固定長の密ベクトルに変換します。
// Goの慣例に従い、インターフェースはプロバイダー（adapters）ではなくコンシューマー（usecase）が定義します。
type TextEmbedder interface {
	// Embed は任意のテキストの文脈埋め込みベクトルを返します。
	// 同一のモデルスナップショットに対して決定的です。
	Embed(ctx context.Context, text string) ([]float32, error)
}

// LabelClassifier は原材料テキストから予測アレルゲンラベルの集合を返します。
// 特徴量の生成（語彙ベクトル化・埋め込み・結合）は実装側の責務であり、
// ユースケースは正規化済みラベルのみを受け取ります。
type LabelClassifier interface {
	// Classify は原材料テキストに対する複数ラベル予測を返します。
	// 予測がない場合は空のスライスを返します。
	Classify(ctx context.Context, ingredientText string) ([]string, error)
}

// detector はアレルゲン検出のビジネスロジックを実装します。
// 分類器の予測・埋め込み類似度・あいまい一致・完全一致の4戦略を
// 1つの重複のない検出集合に統合します。
type detector struct {
	embedder   TextEmbedder
	classifier LabelClassifier
}

// NewDetector はdetectorの新しいインスタンスを生成します。
func NewDetector(embedder TextEmbedder, classifier LabelClassifier) *detector {
	return &detector{embedder: embedder, classifier: classifier}
}

// Detect はユーザーのアレルゲンリストと原材料テキストを照合します。
//
// 内部で発生したいかなる失敗も呼び出し元へは伝播せず、
// Error付き・Safe=falseの劣化した結果に変換します。
// 失敗時にSafe=trueを返すことは決してありません。
func (d *detector) Detect(ctx context.Context, userAllergens []string, ingredientText string) entity.DetectionResult {
	// ユーザーアレルゲンを正規化
	normalized := make([]string, 0, len(userAllergens))
	for _, a := range userAllergens {
		if n := Normalize(a); n != "" {
			normalized = append(normalized, n)
		}
	}

	// 分類器による複数ラベル予測（正規化済み）
	predicted, err := d.classifier.Classify(ctx, ingredientText)
	if err != nil {
		return degraded(fmt.Errorf("classify ingredients: %w", err))
	}

	detected := make(map[string]struct{})
	if len(normalized) > 0 {
		// 原材料テキスト全体の埋め込み。比較対象のアレルゲンが
		// ない場合は推論そのものを省略する。
		textVec, err := d.embedder.Embed(ctx, ingredientText)
		if err != nil {
			return degraded(fmt.Errorf("embed ingredient text: %w", err))
		}

		for _, allergen := range normalized {
			av, err := d.embedder.Embed(ctx, allergen)
			if err != nil {
				return degraded(fmt.Errorf("embed allergen %q: %w", allergen, err))
			}

			// 戦略1: 原材料テキスト埋め込みとの類似度。一致した場合は
			// 予測ラベルではなくユーザーアレルゲン自体を追加する。
			if CosineSimilarity(textVec, av) > CosineThreshold {
				detected[allergen] = struct{}{}
			}

			// 戦略2: 予測ラベルとのあいまい一致。表記ゆれを許容し、
			// 一致した場合は予測ラベルを追加する。
			for _, label := range predicted {
				if FuzzyRatio(allergen, label) > FuzzyRatioThreshold {
					detected[label] = struct{}{}
				}
			}
		}
	}

	// 戦略3: 完全一致。ユーザーが申告し、かつ分類器が独立に予測した
	// アレルゲンは、類似度のしきい値に関わらず常に含める。
	userSet := make(map[string]struct{}, len(normalized))
	for _, a := range normalized {
		userSet[a] = struct{}{}
	}
	for _, label := range predicted {
		if _, ok := userSet[label]; ok {
			detected[label] = struct{}{}
		}
	}

	out := make([]string, 0, len(detected))
	for a := range detected {
		out = append(out, a)
	}
	sort.Strings(out)

	return entity.DetectionResult{
		DetectedAllergens: out,
		Safe:              len(out) == 0,
	}
}

// degraded は内部失敗を安全側に倒した検出結果に変換します。
func degraded(err error) entity.DetectionResult {
	return entity.DetectionResult{
		DetectedAllergens: []string{},
		Safe:              false,
		Error:             err.Error(),
	}
}
