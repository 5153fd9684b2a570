package onnx

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"allergyscan_backend/internal/feature/allergen/adapters/lexical"
	"allergyscan_backend/internal/feature/allergen/usecase"
)

// sigmoidThreshold は複数ラベル分類の判定しきい値です。
const sigmoidThreshold = 0.5

// ClassifierConfig はClassifierの構成を保持します。
type ClassifierConfig struct {
	ModelPath  string // ONNXにエクスポートされた複数ラベル分類ヘッドのパス
	LabelsPath string // ラベルバイナライザのクラス一覧（JSON配列）のパス
}

// DenseEmbedder は分類器の特徴量結合に必要な密ベクトルの供給元です。
type DenseEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dim() int
}

// Classifier は原材料テキストを複数アレルゲンラベルに分類します。
//
// 特徴量はスパース語彙ベクトルと密埋め込みの水平結合（スパース→密の固定順）で、
// 次元は構築時にモデルの入力形状と照合されます。不一致はデプロイ破損を
// 意味する致命的な設定エラーであり、リクエスト単位では回復しません。
type Classifier struct {
	session    *ort.DynamicAdvancedSession
	vectorizer *lexical.Vectorizer
	embedder   DenseEmbedder
	labels     []string
	inputDim   int

	mu sync.Mutex
}

// ClassifierがLabelClassifierを実装していることをコンパイル時に検証します。
var _ usecase.LabelClassifier = (*Classifier)(nil)

// NewClassifier はモデルとラベル一覧を読み込んでClassifierを生成します。
// 語彙次元+埋め込み次元がモデルの入力次元と一致しない場合はエラーを返します。
func NewClassifier(cfg ClassifierConfig, vectorizer *lexical.Vectorizer, embedder DenseEmbedder) (*Classifier, error) {
	labels, err := loadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}

	inputDim := vectorizer.Dim() + embedder.Dim()
	if err := verifyModelShape(cfg.ModelPath, inputDim, len(labels)); err != nil {
		return nil, err
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input"},
		[]string{"output"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("load classifier model %s: %w", cfg.ModelPath, err)
	}

	return &Classifier{
		session:    session,
		vectorizer: vectorizer,
		embedder:   embedder,
		labels:     labels,
		inputDim:   inputDim,
	}, nil
}

// loadLabels はラベルバイナライザのクラス一覧を読み込みます。
func loadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label artifact: %w", err)
	}
	var labels []string
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("parse label artifact: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("label artifact %s contains no labels", path)
	}
	return labels, nil
}

// verifyModelShape はモデルの入出力次元をアーティファクトと照合します。
func verifyModelShape(modelPath string, inputDim, numLabels int) error {
	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return fmt.Errorf("inspect classifier model %s: %w", modelPath, err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return fmt.Errorf("classifier model must have one input and one output, got %d/%d",
			len(inputs), len(outputs))
	}
	if dims := inputs[0].Dimensions; len(dims) > 0 {
		if last := dims[len(dims)-1]; last > 0 && int(last) != inputDim {
			return fmt.Errorf("fused feature dimension mismatch: artifacts produce %d, model expects %d",
				inputDim, last)
		}
	}
	if dims := outputs[0].Dimensions; len(dims) > 0 {
		if last := dims[len(dims)-1]; last > 0 && int(last) != numLabels {
			return fmt.Errorf("label dimension mismatch: %d labels, model outputs %d", numLabels, last)
		}
	}
	return nil
}

// Close はONNXセッションを解放します。
func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		err := c.session.Destroy()
		c.session = nil
		return err
	}
	return nil
}

// Classify は原材料テキストに対する予測アレルゲンラベルを返します。
// 返却前に各ラベルを正規化します。予測がない場合は空スライスを返します。
func (c *Classifier) Classify(ctx context.Context, ingredientText string) ([]string, error) {
	sparse := c.vectorizer.Transform(ingredientText)
	dense, err := c.embedder.Embed(ctx, ingredientText)
	if err != nil {
		return nil, fmt.Errorf("dense features: %w", err)
	}

	// スパース→密の固定順で水平結合（学習時と同じ順序）
	fused := make([]float32, 0, c.inputDim)
	fused = append(fused, sparse...)
	fused = append(fused, dense...)
	if len(fused) != c.inputDim {
		return nil, fmt.Errorf("fused feature dimension mismatch: got %d, want %d", len(fused), c.inputDim)
	}

	logits, err := c.run(fused)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0)
	seen := make(map[string]struct{})
	for i, logit := range logits {
		if sigmoid(logit) <= sigmoidThreshold {
			continue
		}
		label := usecase.Normalize(c.labels[i])
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out, nil
}

// run は結合特徴量に対する分類ヘッドの順伝播を実行します。
func (c *Classifier) run(features []float32) ([]float32, error) {
	inTensor, err := ort.NewTensor(ort.NewShape(1, int64(c.inputDim)), features)
	if err != nil {
		return nil, fmt.Errorf("create feature tensor: %w", err)
	}
	defer inTensor.Destroy()

	outTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(c.labels))))
	if err != nil {
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	defer outTensor.Destroy()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, fmt.Errorf("classifier is closed")
	}
	if err := c.session.Run(
		[]ort.Value{inTensor},
		[]ort.Value{outTensor},
	); err != nil {
		return nil, fmt.Errorf("classifier inference failed: %w", err)
	}

	return append([]float32(nil), outTensor.GetData()...), nil
}

func sigmoid(x float32) float64 {
	return 1.0 / (1.0 + math.Exp(-float64(x)))
}
