// Package onnx はallergenフィーチャーのONNXモデル推論アダプターを提供します。
package onnx

import (
	"context"
	"fmt"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"

	"allergyscan_backend/internal/feature/allergen/usecase"
)

const (
	// DefaultMaxSeqLen はトークン列の最大長です。超過分は切り詰められます。
	DefaultMaxSeqLen = 512
	// DefaultHiddenDim はBERT系エンコーダの隠れ層次元です。
	DefaultHiddenDim = 768
)

// EmbedderConfig はEmbedderの構成を保持します。
type EmbedderConfig struct {
	ModelPath     string // ONNXにエクスポートされたエンコーダモデルのパス
	TokenizerPath string // tokenizer.jsonアーティファクトのパス
	MaxSeqLen     int    // 最大トークン長（0の場合はDefaultMaxSeqLen）
	HiddenDim     int    // 埋め込み次元（0の場合はDefaultHiddenDim）
}

// Embedder はBERT系エンコーダのONNXセッションでテキストを密ベクトルに変換します。
// モデル状態はロード時に固定され、推論のみを行います（パラメータの変更なし）。
// セッションのRun呼び出しはミューテックスで直列化します。
type Embedder struct {
	tk        *tokenizer.Tokenizer
	session   *ort.DynamicAdvancedSession
	maxSeqLen int
	hiddenDim int

	mu sync.Mutex

	// 同一テキストの再埋め込みを避けるプロセス内キャッシュ。
	// 原材料テキストは分類器と類似度計算の両方から参照される。
	cacheMu  sync.RWMutex
	memCache map[string][]float32
}

// EmbedderがTextEmbedderを実装していることをコンパイル時に検証します。
var _ usecase.TextEmbedder = (*Embedder)(nil)

// NewEmbedder はトークナイザーとONNXセッションを読み込んでEmbedderを生成します。
// アーティファクトの欠落や破損は起動時の致命的な設定エラーです。
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	if cfg.MaxSeqLen <= 0 {
		cfg.MaxSeqLen = DefaultMaxSeqLen
	}
	if cfg.HiddenDim <= 0 {
		cfg.HiddenDim = DefaultHiddenDim
	}

	tk, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", cfg.TokenizerPath, err)
	}
	tk.WithTruncation(&tokenizer.TruncationParams{
		MaxLength: cfg.MaxSeqLen,
		Strategy:  tokenizer.LongestFirst,
	})

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"last_hidden_state"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("load embedding model %s: %w", cfg.ModelPath, err)
	}

	return &Embedder{
		tk:        tk,
		session:   session,
		maxSeqLen: cfg.MaxSeqLen,
		hiddenDim: cfg.HiddenDim,
		memCache:  make(map[string][]float32),
	}, nil
}

// Close はONNXセッションを解放します。
func (e *Embedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		err := e.session.Destroy()
		e.session = nil
		return err
	}
	return nil
}

// Dim は埋め込みベクトルの次元を返します。
func (e *Embedder) Dim() int {
	return e.hiddenDim
}

// Embed はテキストの文脈埋め込みを返します。トークン列の平均プーリングです。
// 空文字列も有効な入力です（特殊トークンのみの埋め込みになります）。
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if vec := e.fromCache(text); vec != nil {
		return vec, nil
	}

	enc, err := e.tk.EncodeSingle(text, true)
	if err != nil {
		return nil, fmt.Errorf("tokenize text: %w", err)
	}

	seqLen := len(enc.Ids)
	if seqLen == 0 {
		return make([]float32, e.hiddenDim), nil
	}

	ids := make([]int64, seqLen)
	mask := make([]int64, seqLen)
	for i, id := range enc.Ids {
		ids[i] = int64(id)
	}
	for i, m := range enc.AttentionMask {
		mask[i] = int64(m)
	}

	hidden, err := e.run(ids, mask)
	if err != nil {
		return nil, err
	}

	vec := meanPool(hidden, mask, e.hiddenDim)
	e.storeInCache(text, vec)
	return cloneVector(vec), nil
}

// run はONNXセッションで順伝播を実行し、最終隠れ層を返します。
func (e *Embedder) run(ids, mask []int64) ([]float32, error) {
	seqLen := int64(len(ids))

	idTensor, err := ort.NewTensor(ort.NewShape(1, seqLen), ids)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	defer idTensor.Destroy()

	maskTensor, err := ort.NewTensor(ort.NewShape(1, seqLen), mask)
	if err != nil {
		return nil, fmt.Errorf("create mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	outTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, seqLen, int64(e.hiddenDim)))
	if err != nil {
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	defer outTensor.Destroy()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, fmt.Errorf("embedder is closed")
	}
	if err := e.session.Run(
		[]ort.Value{idTensor, maskTensor},
		[]ort.Value{outTensor},
	); err != nil {
		return nil, fmt.Errorf("embedding inference failed: %w", err)
	}

	return cloneVector(outTensor.GetData()), nil
}

// meanPool はアテンションマスクで重み付けしたトークン埋め込みの平均を計算します。
func meanPool(hidden []float32, mask []int64, dim int) []float32 {
	out := make([]float32, dim)
	sums := make([]float64, dim)
	var count float64

	for i := range mask {
		if mask[i] == 0 {
			continue
		}
		count++
		base := i * dim
		for j := 0; j < dim; j++ {
			sums[j] += float64(hidden[base+j])
		}
	}
	if count == 0 {
		return out
	}
	for j := 0; j < dim; j++ {
		out[j] = float32(sums[j] / count)
	}
	return out
}

func (e *Embedder) fromCache(text string) []float32 {
	e.cacheMu.RLock()
	defer e.cacheMu.RUnlock()
	if vec, ok := e.memCache[text]; ok {
		return cloneVector(vec)
	}
	return nil
}

func (e *Embedder) storeInCache(text string, vec []float32) {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	// 無制限に成長させない。上限到達時は全消去で十分（リクエスト単位の再利用が目的）。
	if len(e.memCache) >= 4096 {
		e.memCache = make(map[string][]float32)
	}
	e.memCache[text] = cloneVector(vec)
}

func cloneVector(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}
