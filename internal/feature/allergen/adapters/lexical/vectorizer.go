// Package lexical は事前学習済み語彙によるTF-IDFスパース特徴量抽出を提供します。
package lexical

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"regexp"
	"strings"
)

// tokenPattern は学習時のベクトライザと同じトークン分割規則です
// （2文字以上の単語のみを抽出）。
var tokenPattern = regexp.MustCompile(`\b\w\w+\b`)

// artifact は学習時にエクスポートされた語彙とIDF重みのファイル形式です。
type artifact struct {
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
}

// Vectorizer はテキストを固定次元のTF-IDFベクトルに変換します。
// 語彙とIDF重みはロード時に固定され、以後変更されません。
// 並行呼び出しに対して安全です（読み取り専用状態のみ）。
type Vectorizer struct {
	vocabulary map[string]int
	idf        []float64
}

// NewVectorizerFromFile はエクスポート済みアーティファクトからVectorizerを生成します。
// 語彙とIDFの次元が一致しない場合はエラーを返します（起動時の致命的な設定エラー）。
func NewVectorizerFromFile(path string) (*Vectorizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vectorizer artifact: %w", err)
	}
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse vectorizer artifact: %w", err)
	}
	return NewVectorizer(a.Vocabulary, a.IDF)
}

// NewVectorizer は語彙とIDF重みからVectorizerを生成します。
func NewVectorizer(vocabulary map[string]int, idf []float64) (*Vectorizer, error) {
	if len(vocabulary) == 0 {
		return nil, fmt.Errorf("vectorizer vocabulary is empty")
	}
	if len(idf) != len(vocabulary) {
		return nil, fmt.Errorf("vectorizer dimension mismatch: %d vocabulary terms, %d idf weights",
			len(vocabulary), len(idf))
	}
	for term, idx := range vocabulary {
		if idx < 0 || idx >= len(idf) {
			return nil, fmt.Errorf("vocabulary index out of range for term %q: %d", term, idx)
		}
	}
	return &Vectorizer{vocabulary: vocabulary, idf: idf}, nil
}

// Dim はベクトルの次元（語彙サイズ）を返します。
func (v *Vectorizer) Dim() int {
	return len(v.idf)
}

// Transform はテキストをTF-IDFベクトルに変換します。
// 語彙外の単語は黙って無視されます（ゼロ寄与）。エラーは返しません。
func (v *Vectorizer) Transform(text string) []float32 {
	vec := make([]float32, len(v.idf))

	counts := make(map[int]int)
	for _, token := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if idx, ok := v.vocabulary[token]; ok {
			counts[idx]++
		}
	}
	if len(counts) == 0 {
		return vec
	}

	// tf * idf、その後L2正規化（学習時のベクトライザと同じ規約）
	var sumSq float64
	for idx, count := range counts {
		w := float64(count) * v.idf[idx]
		vec[idx] = float32(w)
		sumSq += w * w
	}
	if sumSq > 0 {
		norm := math.Sqrt(sumSq)
		for idx := range counts {
			vec[idx] = float32(float64(vec[idx]) / norm)
		}
	}
	return vec
}
