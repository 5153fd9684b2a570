// Package dto はOpen Food Facts APIレスポンスのデータ転送オブジェクトを定義します。
package dto

// ProductResponse はGET /api/v2/product/{barcode}のレスポンス形式です。
type ProductResponse struct {
	Status        int     `json:"status"` // 1: 登録あり, 0: 未登録
	StatusVerbose string  `json:"status_verbose"`
	Code          string  `json:"code"`
	Product       Product `json:"product"`
}

// Product はカタログの商品レコードです。必要なフィールドのみ定義します。
type Product struct {
	ProductName     string     `json:"product_name"`
	Brands          string     `json:"brands"`
	ImageSmallURL   string     `json:"image_small_url"`
	IngredientsText string     `json:"ingredients_text"`
	Nutriments      Nutriments `json:"nutriments"`
}

// Nutriments は100gあたりの栄養素値です。
type Nutriments struct {
	EnergyKcal100g    float64 `json:"energy-kcal_100g"`
	Fat100g           float64 `json:"fat_100g"`
	Carbohydrates100g float64 `json:"carbohydrates_100g"`
	FruitsVegNuts100g float64 `json:"fruits-vegetables-nuts-estimate-from-ingredients_100g"`
	Proteins100g      float64 `json:"proteins_100g"`
	SaturatedFat100g  float64 `json:"saturated-fat_100g"`
	Sodium100g        float64 `json:"sodium_100g"`
	Sugars100g        float64 `json:"sugars_100g"`
	Fiber100g         float64 `json:"fiber_100g"`
	Salt100g          float64 `json:"salt_100g"`
}
