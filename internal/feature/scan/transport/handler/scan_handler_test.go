package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	allergenentity "allergyscan_backend/internal/feature/allergen/domain/entity"
	"allergyscan_backend/internal/feature/scan/domain/entity"
	"allergyscan_backend/internal/feature/scan/usecase"
	jwtmw "allergyscan_backend/internal/platform/jwt"
)

// mockScanUsecase is a mock implementation of the ScanUsecase interface.
type mockScanUsecase struct {
	ScanFunc   func(ctx context.Context, userID uint, imageData []byte) (*entity.ScanReport, error)
	DetectFunc func(ctx context.Context, userAllergens []string, ingredientText string) allergenentity.DetectionResult
}

func (m *mockScanUsecase) Scan(ctx context.Context, userID uint, imageData []byte) (*entity.ScanReport, error) {
	if m.ScanFunc != nil {
		return m.ScanFunc(ctx, userID, imageData)
	}
	return nil, errors.New("scan failed")
}

func (m *mockScanUsecase) Detect(ctx context.Context, userAllergens []string, ingredientText string) allergenentity.DetectionResult {
	if m.DetectFunc != nil {
		return m.DetectFunc(ctx, userAllergens, ingredientText)
	}
	return allergenentity.DetectionResult{DetectedAllergens: []string{}, Safe: true}
}

// asUser simulates the authentication middleware by injecting a user ID.
func asUser(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(jwtmw.ContextUserID, userID)
		c.Next()
	}
}

// multipartImage builds a multipart body with an "image" file field.
func multipartImage(t *testing.T, payload []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", "barcode.jpg")
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func newScanRouter(uc ScanUsecase) *gin.Engine {
	router := gin.New()
	router.POST("/v1/scan", asUser(42), NewScanHandler(uc).Scan)
	router.POST("/v1/scan/detect", asUser(42), NewScanHandler(uc).Detect)
	return router
}

func TestScanHandler_Scan(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("success returns merged report", func(t *testing.T) {
		report := &entity.ScanReport{
			Barcode: "4901234567894",
			Product: entity.Product{
				Barcode:     "4901234567894",
				Name:        "Soy Sauce Crackers",
				Brand:       "TestBrand",
				Ingredients: []string{"rice", "soy sauce"},
				Nutrients:   []entity.Nutrient{{Name: "Sugar", Value: 2.3}},
			},
			Detection: allergenentity.DetectionResult{
				DetectedAllergens: []string{"soy"},
				Safe:              false,
			},
			Score: 42,
			Narrative: entity.HazardNarrative{
				Hazards:        []entity.HazardItem{{Name: "Salt", Value: "High sodium."}},
				LongTermRisks:  []entity.LongTermRisk{{Summary: "s", Detail: "d"}},
				Recommendation: "Maximum of once a week",
			},
		}

		var gotUserID uint
		uc := &mockScanUsecase{
			ScanFunc: func(ctx context.Context, userID uint, imageData []byte) (*entity.ScanReport, error) {
				gotUserID = userID
				return report, nil
			},
		}

		body, contentType := multipartImage(t, []byte("fake-image-bytes"))
		req, _ := http.NewRequest(http.MethodPost, "/v1/scan", body)
		req.Header.Set("Content-Type", contentType)

		w := httptest.NewRecorder()
		newScanRouter(uc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, uint(42), gotUserID)

		var resp map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "4901234567894", resp["barcode"])
		assert.Equal(t, float64(42), resp["score"])

		detection := resp["detection"].(map[string]any)
		assert.Equal(t, false, detection["safe"])
		assert.Equal(t, []any{"soy"}, detection["detected_allergens"])

		narrative := resp["narrative"].(map[string]any)
		assert.Equal(t, "Maximum of once a week", narrative["recommend"])
	})

	t.Run("missing image field returns 400", func(t *testing.T) {
		uc := &mockScanUsecase{}

		req, _ := http.NewRequest(http.MethodPost, "/v1/scan", bytes.NewBufferString(""))
		req.Header.Set("Content-Type", "multipart/form-data")

		w := httptest.NewRecorder()
		newScanRouter(uc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("barcode not found returns 422", func(t *testing.T) {
		uc := &mockScanUsecase{
			ScanFunc: func(ctx context.Context, userID uint, imageData []byte) (*entity.ScanReport, error) {
				return nil, usecase.ErrBarcodeNotFound
			},
		}

		body, contentType := multipartImage(t, []byte("no-barcode"))
		req, _ := http.NewRequest(http.MethodPost, "/v1/scan", body)
		req.Header.Set("Content-Type", contentType)

		w := httptest.NewRecorder()
		newScanRouter(uc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("unknown product returns 404", func(t *testing.T) {
		uc := &mockScanUsecase{
			ScanFunc: func(ctx context.Context, userID uint, imageData []byte) (*entity.ScanReport, error) {
				return nil, usecase.ErrProductNotFound
			},
		}

		body, contentType := multipartImage(t, []byte("unknown-product"))
		req, _ := http.NewRequest(http.MethodPost, "/v1/scan", body)
		req.Header.Set("Content-Type", contentType)

		w := httptest.NewRecorder()
		newScanRouter(uc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("catalog failure returns 502", func(t *testing.T) {
		uc := &mockScanUsecase{
			ScanFunc: func(ctx context.Context, userID uint, imageData []byte) (*entity.ScanReport, error) {
				return nil, errors.Join(usecase.ErrProductLookupFailed, errors.New("connection refused"))
			},
		}

		body, contentType := multipartImage(t, []byte("image"))
		req, _ := http.NewRequest(http.MethodPost, "/v1/scan", body)
		req.Header.Set("Content-Type", contentType)

		w := httptest.NewRecorder()
		newScanRouter(uc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("missing user context returns 401", func(t *testing.T) {
		router := gin.New()
		router.POST("/v1/scan", NewScanHandler(&mockScanUsecase{}).Scan)

		body, contentType := multipartImage(t, []byte("image"))
		req, _ := http.NewRequest(http.MethodPost, "/v1/scan", body)
		req.Header.Set("Content-Type", contentType)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestScanHandler_Detect(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("returns detection result", func(t *testing.T) {
		var gotAllergens []string
		var gotText string
		uc := &mockScanUsecase{
			DetectFunc: func(ctx context.Context, userAllergens []string, ingredientText string) allergenentity.DetectionResult {
				gotAllergens = userAllergens
				gotText = ingredientText
				return allergenentity.DetectionResult{
					DetectedAllergens: []string{"peanut"},
					Safe:              false,
				}
			},
		}

		body, _ := json.Marshal(gin.H{
			"allergens":       []string{"peanut", "milk"},
			"ingredient_text": "peanuts, sugar, salt",
		})
		req, _ := http.NewRequest(http.MethodPost, "/v1/scan/detect", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		newScanRouter(uc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"peanut", "milk"}, gotAllergens)
		assert.Equal(t, "peanuts, sugar, salt", gotText)
		assert.JSONEq(t, `{"detected_allergens":["peanut"],"safe":false}`, w.Body.String())
	})

	t.Run("safe result has empty list", func(t *testing.T) {
		uc := &mockScanUsecase{
			DetectFunc: func(ctx context.Context, userAllergens []string, ingredientText string) allergenentity.DetectionResult {
				return allergenentity.DetectionResult{DetectedAllergens: []string{}, Safe: true}
			},
		}

		body, _ := json.Marshal(gin.H{"allergens": []string{}, "ingredient_text": "water"})
		req, _ := http.NewRequest(http.MethodPost, "/v1/scan/detect", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		newScanRouter(uc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"detected_allergens":[],"safe":true}`, w.Body.String())
	})

	t.Run("missing ingredient text returns 400", func(t *testing.T) {
		uc := &mockScanUsecase{}

		body, _ := json.Marshal(gin.H{"allergens": []string{"peanut"}})
		req, _ := http.NewRequest(http.MethodPost, "/v1/scan/detect", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		newScanRouter(uc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("contained failure is reported in the body", func(t *testing.T) {
		uc := &mockScanUsecase{
			DetectFunc: func(ctx context.Context, userAllergens []string, ingredientText string) allergenentity.DetectionResult {
				return allergenentity.DetectionResult{
					DetectedAllergens: []string{},
					Safe:              false,
					Error:             "embedding inference failed",
				}
			},
		}

		body, _ := json.Marshal(gin.H{"allergens": []string{"peanut"}, "ingredient_text": "sugar"})
		req, _ := http.NewRequest(http.MethodPost, "/v1/scan/detect", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		w := httptest.NewRecorder()
		newScanRouter(uc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"detected_allergens":[],"safe":false,"error":"embedding inference failed"}`, w.Body.String())
	})
}
