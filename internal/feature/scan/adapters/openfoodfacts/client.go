package openfoodfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"allergyscan_backend/internal/feature/scan/adapters/openfoodfacts/dto"
	"allergyscan_backend/internal/feature/scan/domain/entity"
	"allergyscan_backend/internal/feature/scan/usecase"
)

// retryBackoff は一時的な失敗時の再試行までの待機時間です。
const retryBackoff = 500 * time.Millisecond

// Client はOpen Food Facts外部APIから商品レコードを取得するProductRepository実装です。
type Client struct {
	cfg    Config
	client *http.Client
}

// ClientがProductRepositoryを実装していることをコンパイル時に検証します。
var _ usecase.ProductRepository = (*Client)(nil)

// NewClient は指定された設定とHTTPクライアントでClientの新しいインスタンスを生成します。
func NewClient(cfg Config, client *http.Client) *Client {
	return &Client{cfg: cfg, client: client}
}

// FindByBarcode は商品レコードを取得し、ドメインエンティティとして返します。
// カタログに存在しない場合はusecase.ErrProductNotFoundを返します。
// 通信エラーと5xxは1回だけバックオフ付きで再試行します。
func (c *Client) FindByBarcode(ctx context.Context, barcode string) (*entity.Product, error) {
	u := fmt.Sprintf("%s/api/v2/product/%s", c.cfg.BaseURL, url.PathEscape(barcode))

	body, err := c.getWithRetry(ctx, u)
	if err != nil {
		return nil, err
	}

	if body.Status != 1 {
		return nil, usecase.ErrProductNotFound
	}

	return toEntity(barcode, body.Product), nil
}

// getWithRetry はGETを実行し、一時的な失敗に対して1回だけ再試行します。
func (c *Client) getWithRetry(ctx context.Context, u string) (*dto.ProductResponse, error) {
	body, retryable, err := c.get(ctx, u)
	if err == nil || !retryable {
		return body, err
	}

	slog.Warn("product lookup failed, retrying once", "error", err)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(retryBackoff):
	}

	body, _, err = c.get(ctx, u)
	return body, err
}

// get は1回のGETリクエストを実行します。第2戻り値は再試行可能かどうかです。
func (c *Client) get(ctx context.Context, u string) (*dto.ProductResponse, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	res, err := c.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode >= 500 {
		return nil, true, fmt.Errorf("openfoodfacts http %d", res.StatusCode)
	}
	if res.StatusCode >= 400 {
		// v2 APIは未登録コードに404を返すことがある
		if res.StatusCode == http.StatusNotFound {
			return nil, false, usecase.ErrProductNotFound
		}
		return nil, false, fmt.Errorf("openfoodfacts http %d", res.StatusCode)
	}

	var body dto.ProductResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, false, fmt.Errorf("decode product response: %w", err)
	}
	return &body, false, nil
}

// toEntity はAPIレスポンスをドメインエンティティに変換します。
func toEntity(barcode string, p dto.Product) *entity.Product {
	var ingredients []string
	for _, part := range strings.Split(p.IngredientsText, ",") {
		if s := strings.TrimSpace(part); s != "" {
			ingredients = append(ingredients, s)
		}
	}

	n := p.Nutriments
	return &entity.Product{
		Barcode:     barcode,
		Name:        p.ProductName,
		Brand:       p.Brands,
		ImageURL:    p.ImageSmallURL,
		Ingredients: ingredients,
		Nutrients: []entity.Nutrient{
			{Name: "energy", Value: n.EnergyKcal100g},
			{Name: "Fat", Value: n.Fat100g},
			{Name: "Carbohydrates", Value: n.Carbohydrates100g},
			{Name: "Fruits&vegetables&nuts", Value: n.FruitsVegNuts100g},
			{Name: "Proteins", Value: n.Proteins100g},
			{Name: "Saturated Fat", Value: n.SaturatedFat100g},
			{Name: "Sodium", Value: n.Sodium100g},
			{Name: "Sugar", Value: n.Sugars100g},
			{Name: "Fiber", Value: n.Fiber100g},
			{Name: "Salt", Value: n.Salt100g},
		},
	}
}
