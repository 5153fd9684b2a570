// Package gemini はGoogle Gemini APIを使用した有害性説明文の生成クライアントを提供します。
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"allergyscan_backend/internal/feature/scan/domain/entity"
	"allergyscan_backend/internal/feature/scan/usecase"
)

const (
	// DefaultModel はGemini APIのデフォルトモデルです。
	DefaultModel = "gemini-2.5-flash"

	// generateTimeout は1回の生成呼び出しの上限時間です。再試行はしません
	// （呼び出し元には定義済みのフォールバック形があります）。
	generateTimeout = 30 * time.Second
)

// narrativePrompt は有害成分分析のプロンプトテンプレートです。
// 応答は固定のJSONスキーマで返すよう指示します。
const narrativePrompt = `You are an expert dietician with extensive knowledge of processed-food ingredients and their effects on health. Identify the hazardous ingredients in the list below and explain the risks they pose to a typical adult with ordinary blood sugar, blood pressure and cholesterol values.

Respond with JSON only, in exactly this shape:
{
  "hazard": {"value": [{"name": "ingredient name", "value": "2-3 sentence plain-language risk explanation"}]},
  "long": {"value": [{"key1": "summary of combined long-term risks", "key2": "how these ingredients contribute to chronic conditions over time"}]},
  "recommend": {"value": "suggested maximum consumption frequency, e.g. Maximum of once a week"}
}

Only list ingredients with a meaningful chance of ill effects; do not list every ingredient.

Ingredients to analyze: %s`

// narrativeResponse は期待するJSONスキーマです。
type narrativeResponse struct {
	Hazard struct {
		Value []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"value"`
	} `json:"hazard"`
	Long struct {
		Value []struct {
			Key1 string `json:"key1"`
			Key2 string `json:"key2"`
		} `json:"value"`
	} `json:"long"`
	Recommend struct {
		Value string `json:"value"`
	} `json:"recommend"`
}

// Narrator はGoogle Gemini APIを使用して有害性説明文を生成します。
type Narrator struct {
	client *genai.Client
	model  string
}

// NarratorがNarrativeGeneratorを実装していることをコンパイル時に検証します。
var _ usecase.NarrativeGenerator = (*Narrator)(nil)

// NewNarrator はADCを使用してNarratorの新しいインスタンスを生成します。
func NewNarrator(ctx context.Context) (*Narrator, error) {
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Narrator{client: client, model: DefaultModel}, nil
}

// Generate は原材料リストから有害性説明文を生成します。
// モデル出力がスキーマに合わない場合はパースエラーを伝播せず、
// 定義済みの空の形に劣化させます。API自体の失敗はエラーとして返します。
func (n *Narrator) Generate(ctx context.Context, ingredients []string) (entity.HazardNarrative, error) {
	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	prompt := fmt.Sprintf(narrativePrompt, strings.Join(ingredients, ", "))
	resp, err := n.client.Models.GenerateContent(ctx, n.model, genai.Text(prompt), nil)
	if err != nil {
		return entity.EmptyNarrative(), fmt.Errorf("gemini API request failed: %w", err)
	}

	narrative, err := parseNarrative(resp.Text())
	if err != nil {
		slog.Warn("hazard narrative output did not match schema, degrading", "error", err)
		return entity.EmptyNarrative(), nil
	}
	return narrative, nil
}

// parseNarrative はモデル出力をスキーマに従って解釈します。
// マークダウンのコードフェンスで囲まれた応答も受け付けます。
func parseNarrative(content string) (entity.HazardNarrative, error) {
	content = stripCodeFence(content)

	var body narrativeResponse
	if err := json.Unmarshal([]byte(content), &body); err != nil {
		return entity.HazardNarrative{}, fmt.Errorf("parse narrative json: %w", err)
	}

	out := entity.HazardNarrative{
		Hazards:        make([]entity.HazardItem, 0, len(body.Hazard.Value)),
		LongTermRisks:  make([]entity.LongTermRisk, 0, len(body.Long.Value)),
		Recommendation: body.Recommend.Value,
	}
	for _, h := range body.Hazard.Value {
		out.Hazards = append(out.Hazards, entity.HazardItem{Name: h.Name, Value: h.Value})
	}
	for _, l := range body.Long.Value {
		out.LongTermRisks = append(out.LongTermRisks, entity.LongTermRisk{Summary: l.Key1, Detail: l.Key2})
	}
	if out.Recommendation == "" {
		out.Recommendation = entity.EmptyNarrative().Recommendation
	}
	return out, nil
}

// stripCodeFence は```jsonフェンスと前後の空白を取り除きます。
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
