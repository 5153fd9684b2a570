// Package vision はGoogle Cloud Vision APIを使用した原材料表示のOCRクライアントを提供します。
package vision

import (
	"context"
	"fmt"

	gvision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"allergyscan_backend/internal/feature/scan/usecase"
)

// IngredientOCR はGoogle Cloud Vision APIを使用してパッケージ画像から
// 原材料表示のテキストを抽出します。カタログに原材料が未登録の場合の補完に使います。
type IngredientOCR struct {
	client *gvision.ImageAnnotatorClient
}

// IngredientOCRがIngredientExtractorを実装していることをコンパイル時に検証します。
var _ usecase.IngredientExtractor = (*IngredientOCR)(nil)

// NewIngredientOCR はADCを使用してIngredientOCRの新しいインスタンスを生成します。
func NewIngredientOCR(ctx context.Context) (*IngredientOCR, error) {
	client, err := gvision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	return &IngredientOCR{client: client}, nil
}

// Close はVision APIクライアントを解放します。
func (o *IngredientOCR) Close() error {
	return o.client.Close()
}

// ExtractText は画像バイト列から全文テキストを抽出します。
// テキストが見つからない場合は空文字列を返します。
func (o *IngredientOCR) ExtractText(ctx context.Context, imageData []byte) (string, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: imageData},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := o.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", fmt.Errorf("vision API request failed: %w", err)
	}

	if len(resp.Responses) == 0 {
		return "", nil
	}

	if resp.Responses[0].Error != nil {
		return "", fmt.Errorf("vision API error: %s", resp.Responses[0].Error.Message)
	}

	// 先頭のアノテーションが画像全体の全文テキスト
	annotations := resp.Responses[0].TextAnnotations
	if len(annotations) == 0 {
		return "", nil
	}
	return annotations[0].Description, nil
}
