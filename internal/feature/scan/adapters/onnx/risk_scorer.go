// Package onnx はscanフィーチャーのONNXモデル推論アダプターを提供します。
package onnx

import (
	"context"
	"fmt"
	"math"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"allergyscan_backend/internal/feature/scan/domain/entity"
	"allergyscan_backend/internal/feature/scan/usecase"
)

// featureCount はリスクスコアモデルの入力特徴量数です。
// バイタル6項目 + 商品栄養素4項目の順序はモデルの学習時と一致させます。
const featureCount = 10

// ScorerConfig はRiskScorerの構成を保持します。
type ScorerConfig struct {
	ModelPath string // ONNXにエクスポートされた勾配ブースティング回帰モデルのパス
}

// Scorer は表形式の特徴量から健康リスクスコアを推論します。
type Scorer struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
}

// ScorerがRiskScorerを実装していることをコンパイル時に検証します。
var _ usecase.RiskScorer = (*Scorer)(nil)

// NewScorer はONNXセッションを読み込んでScorerを生成します。
// モデルの欠落や破損は起動時の致命的な設定エラーです。
func NewScorer(cfg ScorerConfig) (*Scorer, error) {
	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input"},
		[]string{"variable"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("load risk model %s: %w", cfg.ModelPath, err)
	}
	return &Scorer{session: session}, nil
}

// Close はONNXセッションを解放します。
func (s *Scorer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		err := s.session.Destroy()
		s.session = nil
		return err
	}
	return nil
}

// Score は特徴量ベクトルを推論して整数スコアを返します。
func (s *Scorer) Score(ctx context.Context, features entity.RiskFeatures) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	input := featureVector(features)

	inTensor, err := ort.NewTensor(ort.NewShape(1, featureCount), input)
	if err != nil {
		return 0, fmt.Errorf("create feature tensor: %w", err)
	}
	defer inTensor.Destroy()

	outTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		return 0, fmt.Errorf("create output tensor: %w", err)
	}
	defer outTensor.Destroy()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return 0, fmt.Errorf("scorer is closed")
	}
	if err := s.session.Run(
		[]ort.Value{inTensor},
		[]ort.Value{outTensor},
	); err != nil {
		return 0, fmt.Errorf("risk inference failed: %w", err)
	}

	raw := outTensor.GetData()
	if len(raw) == 0 {
		return 0, fmt.Errorf("risk model returned empty output")
	}
	return int(math.Round(float64(raw[0]))), nil
}

// featureVector は学習時の列順で特徴量を並べます。
func featureVector(f entity.RiskFeatures) []float32 {
	return []float32{
		float32(f.SugarLevel),
		float32(f.CholesterolLevel),
		float32(f.BloodPressure),
		float32(f.BMI),
		float32(f.Age),
		float32(f.HeartRate),
		float32(f.SugarInProduct),
		float32(f.SaltInProduct),
		float32(f.SaturatedFatInProduct),
		float32(f.CarbohydratesInProduct),
	}
}
