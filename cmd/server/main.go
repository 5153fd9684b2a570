package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	redisv9 "github.com/redis/go-redis/v9"

	"allergyscan_backend/internal/app/router"
	allergenlexical "allergyscan_backend/internal/feature/allergen/adapters/lexical"
	allergenonnx "allergyscan_backend/internal/feature/allergen/adapters/onnx"
	allergenusecase "allergyscan_backend/internal/feature/allergen/usecase"
	profileadapters "allergyscan_backend/internal/feature/profile/adapters"
	profilehandler "allergyscan_backend/internal/feature/profile/transport/handler"
	profileusecase "allergyscan_backend/internal/feature/profile/usecase"
	"allergyscan_backend/internal/feature/scan/adapters/barcode"
	"allergyscan_backend/internal/feature/scan/adapters/gemini"
	scanonnx "allergyscan_backend/internal/feature/scan/adapters/onnx"
	"allergyscan_backend/internal/feature/scan/adapters/openfoodfacts"
	profilebridge "allergyscan_backend/internal/feature/scan/adapters/profile"
	"allergyscan_backend/internal/feature/scan/adapters/vision"
	scanhandler "allergyscan_backend/internal/feature/scan/transport/handler"
	scanusecase "allergyscan_backend/internal/feature/scan/usecase"
	"allergyscan_backend/internal/platform/cache"
	platformdb "allergyscan_backend/internal/platform/db"
	platformhttp "allergyscan_backend/internal/platform/http"
	jwtmw "allergyscan_backend/internal/platform/jwt"
	platformonnx "allergyscan_backend/internal/platform/onnx"
	platformredis "allergyscan_backend/internal/platform/redis"
)

func main() {
	// ローカル開発用。デプロイ環境では環境変数を直接注入する。
	if err := godotenv.Load(".env"); err != nil {
		log.Println("[INFO] .env not found, using environment variables")
	}

	ctx := context.Background()

	// ONNX Runtime（モデルアーティファクト読み込みの前提）
	if err := platformonnx.Init(); err != nil {
		log.Fatalf("onnx runtime init failed: %v", err)
	}
	defer func() {
		if err := platformonnx.Destroy(); err != nil {
			log.Println("[ERROR] Failed to destroy onnx runtime:", err)
		}
	}()

	// アレルゲン検出のモデルアーティファクト。欠落・破損は起動失敗。
	vectorizer, err := allergenlexical.NewVectorizerFromFile(os.Getenv("TFIDF_ARTIFACT_PATH"))
	if err != nil {
		log.Fatalf("load tfidf artifact failed: %v", err)
	}
	embedder, err := allergenonnx.NewEmbedder(allergenonnx.EmbedderConfig{
		ModelPath:     os.Getenv("EMBEDDER_MODEL_PATH"),
		TokenizerPath: os.Getenv("TOKENIZER_PATH"),
	})
	if err != nil {
		log.Fatalf("load embedder failed: %v", err)
	}
	defer func() {
		if err := embedder.Close(); err != nil {
			log.Println("[ERROR] Failed to close embedder:", err)
		}
	}()
	classifier, err := allergenonnx.NewClassifier(allergenonnx.ClassifierConfig{
		ModelPath:  os.Getenv("CLASSIFIER_MODEL_PATH"),
		LabelsPath: os.Getenv("CLASSIFIER_LABELS_PATH"),
	}, vectorizer, embedder)
	if err != nil {
		log.Fatalf("load classifier failed: %v", err)
	}
	defer func() {
		if err := classifier.Close(); err != nil {
			log.Println("[ERROR] Failed to close classifier:", err)
		}
	}()
	scorer, err := scanonnx.NewScorer(scanonnx.ScorerConfig{
		ModelPath: os.Getenv("RISK_MODEL_PATH"),
	})
	if err != nil {
		log.Fatalf("load risk model failed: %v", err)
	}
	defer func() {
		if err := scorer.Close(); err != nil {
			log.Println("[ERROR] Failed to close scorer:", err)
		}
	}()

	// db
	db := platformdb.OpenDB()

	// Redis
	var rdb *redisv9.Client
	if tmp, err := platformredis.NewClient(platformredis.LoadConfig()); err != nil {
		log.Println("[WARN] Redis unavailable. Running without cache.")
		rdb = nil
	} else {
		rdb = tmp
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Println("[ERROR] Failed to close Redis client:", err)
			}
		}()
	}

	// 外部カタログ（Redisキャッシュでラップ）
	offCfg := openfoodfacts.LoadConfig()
	offClient := openfoodfacts.NewClient(offCfg, platformhttp.NewHTTPClient(offCfg.Timeout))
	products := cache.NewCachingProductRepository(rdb, 24*time.Hour, offClient, "product")

	// 生成AI（説明文生成）
	narrator, err := gemini.NewNarrator(ctx)
	if err != nil {
		log.Fatalf("gemini client init failed: %v", err)
	}

	// OCRフォールバックは任意。構成できない場合は無効で続行。
	var extractor scanusecase.IngredientExtractor
	if ocr, err := vision.NewIngredientOCR(ctx); err != nil {
		slog.Warn("vision OCR unavailable, ingredient fallback disabled", "error", err)
	} else {
		extractor = ocr
		defer func() {
			if err := ocr.Close(); err != nil {
				log.Println("[ERROR] Failed to close vision client:", err)
			}
		}()
	}

	// Repository
	userRepo := profileadapters.NewUserMySQL(db)

	// Usecase
	jwtGen := jwtmw.NewGenerator(os.Getenv(jwtmw.EnvKeyJWTSecret), jwtmw.DefaultAccessTokenTTL)
	profileUC := profileusecase.NewProfileUsecase(userRepo, jwtGen)
	detector := allergenusecase.NewDetector(embedder, classifier)
	scanUC := scanusecase.NewScanUsecase(
		barcode.NewDecoder(),
		products,
		detector,
		scorer,
		narrator,
		profilebridge.NewProvider(profileUC),
		extractor,
	)

	// Handler
	profileH := profilehandler.NewProfileHandler(profileUC)
	scanH := scanhandler.NewScanHandler(scanUC)

	// ルータ生成
	router := router.NewRouter(profileH, scanH)

	// JWT_SECRETチェック（開発中の注意喚起）
	if os.Getenv("JWT_SECRET") == "" {
		log.Println("[WARN] JWT_SECRET is not set. Set a strong secret in production.")
	}

	if err := router.Run(":8080"); err != nil {
		log.Fatal(err)
	}
}
