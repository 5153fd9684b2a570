package usecase_test

import (
	"context"
	"errors"
	"testing"

	allergenentity "allergyscan_backend/internal/feature/allergen/domain/entity"
	"allergyscan_backend/internal/feature/scan/domain/entity"
	"allergyscan_backend/internal/feature/scan/usecase"
)

// ErrExternal はモックと期待値の間で共有されるセンチネルエラーです。
var ErrExternal = errors.New("external failure")

type mockDecoder struct {
	DecodeFunc  func(imageData []byte) (string, error)
	DecodeCalls int
}

func (m *mockDecoder) Decode(imageData []byte) (string, error) {
	m.DecodeCalls++
	if m.DecodeFunc != nil {
		return m.DecodeFunc(imageData)
	}
	return "4901234567894", nil
}

type mockProducts struct {
	FindFunc  func(ctx context.Context, barcode string) (*entity.Product, error)
	FindCalls int
}

func (m *mockProducts) FindByBarcode(ctx context.Context, barcode string) (*entity.Product, error) {
	m.FindCalls++
	if m.FindFunc != nil {
		return m.FindFunc(ctx, barcode)
	}
	return &entity.Product{
		Barcode:     barcode,
		Name:        "Test Crackers",
		Brand:       "TestBrand",
		Ingredients: []string{"wheat flour", "milk", "salt"},
		Nutrients: []entity.Nutrient{
			{Name: "Sugar", Value: 4.2},
			{Name: "Salt", Value: 1.1},
			{Name: "Saturated Fat", Value: 2.5},
			{Name: "Carbohydrates", Value: 60.0},
		},
	}, nil
}

type mockDetector struct {
	DetectFunc  func(ctx context.Context, allergens []string, text string) allergenentity.DetectionResult
	DetectCalls int
	lastText    string
}

func (m *mockDetector) Detect(ctx context.Context, allergens []string, text string) allergenentity.DetectionResult {
	m.DetectCalls++
	m.lastText = text
	if m.DetectFunc != nil {
		return m.DetectFunc(ctx, allergens, text)
	}
	return allergenentity.DetectionResult{DetectedAllergens: []string{}, Safe: true}
}

type mockScorer struct {
	ScoreFunc    func(ctx context.Context, f entity.RiskFeatures) (int, error)
	ScoreCalls   int
	lastFeatures entity.RiskFeatures
}

func (m *mockScorer) Score(ctx context.Context, f entity.RiskFeatures) (int, error) {
	m.ScoreCalls++
	m.lastFeatures = f
	if m.ScoreFunc != nil {
		return m.ScoreFunc(ctx, f)
	}
	return 2, nil
}

type mockNarrator struct {
	GenerateFunc  func(ctx context.Context, ingredients []string) (entity.HazardNarrative, error)
	GenerateCalls int
}

func (m *mockNarrator) Generate(ctx context.Context, ingredients []string) (entity.HazardNarrative, error) {
	m.GenerateCalls++
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, ingredients)
	}
	return entity.HazardNarrative{
		Hazards:        []entity.HazardItem{{Name: "salt", Value: "high sodium"}},
		LongTermRisks:  []entity.LongTermRisk{},
		Recommendation: "Maximum of once a week",
	}, nil
}

type mockProfiles struct {
	AllergensFunc func(ctx context.Context, userID uint) ([]string, error)
	VitalsFunc    func(ctx context.Context, userID uint) (entity.RiskFeatures, error)
}

func (m *mockProfiles) AllergensOf(ctx context.Context, userID uint) ([]string, error) {
	if m.AllergensFunc != nil {
		return m.AllergensFunc(ctx, userID)
	}
	return []string{"milk"}, nil
}

func (m *mockProfiles) VitalsOf(ctx context.Context, userID uint) (entity.RiskFeatures, error) {
	if m.VitalsFunc != nil {
		return m.VitalsFunc(ctx, userID)
	}
	return entity.RiskFeatures{Age: 30, BMI: 22}, nil
}

type mockExtractor struct {
	ExtractFunc  func(ctx context.Context, imageData []byte) (string, error)
	ExtractCalls int
}

func (m *mockExtractor) ExtractText(ctx context.Context, imageData []byte) (string, error) {
	m.ExtractCalls++
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, imageData)
	}
	return "", errors.New("ExtractFunc is not implemented")
}

func TestScanUsecase_Scan(t *testing.T) {
	ctx := context.Background()
	image := []byte("fake-image-data")

	t.Run("success: full pipeline produces merged report", func(t *testing.T) {
		decoder := &mockDecoder{}
		products := &mockProducts{}
		detector := &mockDetector{
			DetectFunc: func(ctx context.Context, allergens []string, text string) allergenentity.DetectionResult {
				return allergenentity.DetectionResult{DetectedAllergens: []string{"milk"}, Safe: false}
			},
		}
		scorer := &mockScorer{}
		narrator := &mockNarrator{}
		uc := usecase.NewScanUsecase(decoder, products, detector, scorer, narrator, &mockProfiles{}, nil)

		report, err := uc.Scan(ctx, 1, image)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.Barcode != "4901234567894" {
			t.Errorf("barcode mismatch: got %q", report.Barcode)
		}
		if detector.lastText != "wheat flour, milk, salt" {
			t.Errorf("ingredient text mismatch: got %q", detector.lastText)
		}
		if report.Detection.Safe {
			t.Error("expected unsafe detection in report")
		}
		if report.Score != 2 {
			t.Errorf("score mismatch: got %d", report.Score)
		}
		// 商品栄養素が特徴量に書き込まれる
		if scorer.lastFeatures.SugarInProduct != 4.2 || scorer.lastFeatures.SaltInProduct != 1.1 {
			t.Errorf("product nutrients not mapped into features: %+v", scorer.lastFeatures)
		}
		if scorer.lastFeatures.Age != 30 {
			t.Errorf("vitals not mapped into features: %+v", scorer.lastFeatures)
		}
	})

	t.Run("barcode not found short-circuits before any external call", func(t *testing.T) {
		decoder := &mockDecoder{
			DecodeFunc: func([]byte) (string, error) { return "", usecase.ErrBarcodeNotFound },
		}
		products := &mockProducts{}
		narrator := &mockNarrator{}
		scorer := &mockScorer{}
		uc := usecase.NewScanUsecase(decoder, products, &mockDetector{}, scorer, narrator, &mockProfiles{}, nil)

		_, err := uc.Scan(ctx, 1, image)

		if !errors.Is(err, usecase.ErrBarcodeNotFound) {
			t.Fatalf("expected ErrBarcodeNotFound, got %v", err)
		}
		if products.FindCalls != 0 || scorer.ScoreCalls != 0 || narrator.GenerateCalls != 0 {
			t.Error("no external collaborator may be called after barcode failure")
		}
	})

	t.Run("product not found short-circuits with typed error", func(t *testing.T) {
		products := &mockProducts{
			FindFunc: func(ctx context.Context, barcode string) (*entity.Product, error) {
				return nil, usecase.ErrProductNotFound
			},
		}
		narrator := &mockNarrator{}
		uc := usecase.NewScanUsecase(&mockDecoder{}, products, &mockDetector{}, &mockScorer{}, narrator, &mockProfiles{}, nil)

		_, err := uc.Scan(ctx, 1, image)

		if !errors.Is(err, usecase.ErrProductNotFound) {
			t.Fatalf("expected ErrProductNotFound, got %v", err)
		}
		if narrator.GenerateCalls != 0 {
			t.Error("narrative must not be generated for unknown products")
		}
	})

	t.Run("lookup transport failure is distinct from product not found", func(t *testing.T) {
		products := &mockProducts{
			FindFunc: func(ctx context.Context, barcode string) (*entity.Product, error) {
				return nil, ErrExternal
			},
		}
		uc := usecase.NewScanUsecase(&mockDecoder{}, products, &mockDetector{}, &mockScorer{}, &mockNarrator{}, &mockProfiles{}, nil)

		_, err := uc.Scan(ctx, 1, image)

		if !errors.Is(err, usecase.ErrProductLookupFailed) {
			t.Fatalf("expected ErrProductLookupFailed, got %v", err)
		}
		if errors.Is(err, usecase.ErrProductNotFound) {
			t.Error("lookup failure must not be reported as product not found")
		}
	})

	t.Run("scorer failure degrades score without failing the scan", func(t *testing.T) {
		scorer := &mockScorer{
			ScoreFunc: func(ctx context.Context, f entity.RiskFeatures) (int, error) { return 0, ErrExternal },
		}
		uc := usecase.NewScanUsecase(&mockDecoder{}, &mockProducts{}, &mockDetector{}, scorer, &mockNarrator{}, &mockProfiles{}, nil)

		report, err := uc.Scan(ctx, 1, image)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.Score != 0 {
			t.Errorf("expected degraded score 0, got %d", report.Score)
		}
	})

	t.Run("narrative failure degrades to defined empty shape", func(t *testing.T) {
		narrator := &mockNarrator{
			GenerateFunc: func(ctx context.Context, ingredients []string) (entity.HazardNarrative, error) {
				return entity.HazardNarrative{}, ErrExternal
			},
		}
		uc := usecase.NewScanUsecase(&mockDecoder{}, &mockProducts{}, &mockDetector{}, &mockScorer{}, narrator, &mockProfiles{}, nil)

		report, err := uc.Scan(ctx, 1, image)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := entity.EmptyNarrative()
		if report.Narrative.Recommendation != want.Recommendation {
			t.Errorf("expected fallback narrative, got %+v", report.Narrative)
		}
		if len(report.Narrative.Hazards) != 0 || len(report.Narrative.LongTermRisks) != 0 {
			t.Errorf("fallback narrative must be empty, got %+v", report.Narrative)
		}
	})

	t.Run("ocr fallback fills missing ingredient text", func(t *testing.T) {
		products := &mockProducts{
			FindFunc: func(ctx context.Context, barcode string) (*entity.Product, error) {
				return &entity.Product{Barcode: barcode, Name: "Mystery Snack"}, nil
			},
		}
		extractor := &mockExtractor{
			ExtractFunc: func(ctx context.Context, imageData []byte) (string, error) {
				return "rice, vegetable oil, salt", nil
			},
		}
		detector := &mockDetector{}
		uc := usecase.NewScanUsecase(&mockDecoder{}, products, detector, &mockScorer{}, &mockNarrator{}, &mockProfiles{}, extractor)

		_, err := uc.Scan(ctx, 1, image)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if extractor.ExtractCalls != 1 {
			t.Errorf("expected one OCR call, got %d", extractor.ExtractCalls)
		}
		if detector.lastText != "rice, vegetable oil, salt" {
			t.Errorf("OCR text not used for detection: %q", detector.lastText)
		}
	})

	t.Run("ocr not called when catalog has ingredients", func(t *testing.T) {
		extractor := &mockExtractor{}
		uc := usecase.NewScanUsecase(&mockDecoder{}, &mockProducts{}, &mockDetector{}, &mockScorer{}, &mockNarrator{}, &mockProfiles{}, extractor)

		_, err := uc.Scan(ctx, 1, image)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if extractor.ExtractCalls != 0 {
			t.Errorf("OCR must not run when catalog ingredients exist, got %d calls", extractor.ExtractCalls)
		}
	})

	t.Run("empty image is rejected", func(t *testing.T) {
		decoder := &mockDecoder{}
		uc := usecase.NewScanUsecase(decoder, &mockProducts{}, &mockDetector{}, &mockScorer{}, &mockNarrator{}, &mockProfiles{}, nil)

		_, err := uc.Scan(ctx, 1, nil)

		if err == nil {
			t.Fatal("expected error for empty image")
		}
		if decoder.DecodeCalls != 0 {
			t.Error("decoder must not be called for empty image")
		}
	})

	t.Run("oversized image is rejected", func(t *testing.T) {
		uc := usecase.NewScanUsecase(&mockDecoder{}, &mockProducts{}, &mockDetector{}, &mockScorer{}, &mockNarrator{}, &mockProfiles{}, nil)

		_, err := uc.Scan(ctx, 1, make([]byte, usecase.MaxImageSize+1))

		if err == nil {
			t.Fatal("expected error for oversized image")
		}
	})
}
