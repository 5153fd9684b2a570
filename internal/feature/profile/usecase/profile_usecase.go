package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"allergyscan_backend/internal/feature/profile/domain/entity"
)

const (
	// minPasswordLength はパスワードの最低文字数を定義します。
	minPasswordLength = 8

	// maxAllergenCount は1ユーザーが登録できるアレルゲン数の上限です。
	maxAllergenCount = 64
)

// UserRepository はユーザーエンティティの永続化層を抽象化します。
// Goの慣例に従い、インターフェースはプロバイダー（adapters）ではなくコンシューマー（usecase）が定義します。
type UserRepository interface {
	// Create は新しいユーザーをストレージに永続化します。
	// 同じメールアドレスのユーザーが既に存在する場合、エラーを返します。
	Create(ctx context.Context, user *entity.User) error

	// FindByEmail は指定されたメールアドレスに一致するユーザーを取得します。
	// ユーザーが存在しない場合、エラーを返します。
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// FindByID は指定されたIDに一致するユーザーを取得します。
	// ユーザーが存在しない場合、エラーを返します。
	FindByID(ctx context.Context, id uint) (*entity.User, error)

	// UpdateAllergens は保存済みアレルゲンリストを置き換えます。
	UpdateAllergens(ctx context.Context, userID uint, allergens string) error

	// UpdateVitals は保存済みバイタル値を置き換えます。
	UpdateVitals(ctx context.Context, userID uint, vitals entity.Vitals) error
}

// JWTGenerator はJWTトークン生成のインターフェースを定義します。
// Goの慣例に従い、インターフェースはプロバイダー（platform/jwt）ではなくコンシューマー（usecase）が定義します。
type JWTGenerator interface {
	// GenerateToken は指定されたユーザーの署名済みJWTトークンを生成します。
	GenerateToken(userID uint, email string) (string, error)
}

// profileUsecase は認証とプロフィール管理のビジネスロジックを実装します。
type profileUsecase struct {
	users        UserRepository
	jwtGenerator JWTGenerator
}

// NewProfileUsecase はprofileUsecaseの新しいインスタンスを生成します。
func NewProfileUsecase(users UserRepository, jwtGenerator JWTGenerator) *profileUsecase {
	return &profileUsecase{
		users:        users,
		jwtGenerator: jwtGenerator,
	}
}

// validatePassword はパスワードがセキュリティ要件を満たしているかチェックします。
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", minPasswordLength)
	}
	return nil
}

// Signup はハッシュ化されたパスワードで新規ユーザーを登録します。
func (u *profileUsecase) Signup(ctx context.Context, email, password string) error {
	// パスワード強度を検証
	if err := validatePassword(password); err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user := &entity.User{Email: email, Password: string(hashed)}
	return u.users.Create(ctx, user)
}

// Login はユーザーを認証し、成功時にJWTトークンを返します。
// メールアドレスとパスワードを検証し、署名済みJWTトークンを生成します。
// タイミング攻撃を防止するため、ユーザーが存在しない場合でもbcrypt比較を実行します。
func (u *profileUsecase) Login(ctx context.Context, email, password string) (string, error) {
	// メールアドレスでユーザーを検索
	user, err := u.users.FindByEmail(ctx, email)

	// ユーザーが存在しない場合のタイミング攻撃緩和用ダミーハッシュ
	// bcrypt.CompareHashAndPasswordが常に呼ばれることを保証する
	passwordHash := "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy" // ダミーハッシュ
	if err == nil {
		passwordHash = user.Password
	}

	// タイミング攻撃防止のため、常にパスワードを検証
	// 第1引数はハッシュ化パスワード、第2引数は平文パスワード
	compareErr := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password))

	// ユーザー未検出またはパスワード不一致の場合、汎用エラーを返す
	if err != nil || compareErr != nil {
		return "", errors.New("invalid email or password")
	}

	// 注入されたジェネレーターを使用してJWTトークンを生成
	token, tokenErr := u.jwtGenerator.GenerateToken(user.ID, user.Email)
	if tokenErr != nil {
		return "", fmt.Errorf("failed to generate token: %w", tokenErr)
	}

	return token, nil
}

// Allergens は保存済みアレルゲンリストを返します。未登録の場合は空スライスです。
func (u *profileUsecase) Allergens(ctx context.Context, userID uint) ([]string, error) {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.AllergenList(), nil
}

// UpdateAllergens はアレルゲンリストを正規化して置き換えます。
// 各要素は小文字化・前後空白除去され、空の要素と重複は取り除かれます。
func (u *profileUsecase) UpdateAllergens(ctx context.Context, userID uint, allergens []string) error {
	if len(allergens) > maxAllergenCount {
		return fmt.Errorf("too many allergens: %d exceeds limit of %d", len(allergens), maxAllergenCount)
	}

	cleaned := make([]string, 0, len(allergens))
	seen := map[string]struct{}{}
	for _, a := range allergens {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" {
			continue
		}
		if strings.Contains(a, ",") {
			return fmt.Errorf("allergen %q contains an invalid character", a)
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		cleaned = append(cleaned, a)
	}

	return u.users.UpdateAllergens(ctx, userID, strings.Join(cleaned, ","))
}

// Vitals は保存済みバイタル値を返します。未登録の場合はゼロ値です。
func (u *profileUsecase) Vitals(ctx context.Context, userID uint) (entity.Vitals, error) {
	user, err := u.users.FindByID(ctx, userID)
	if err != nil {
		return entity.Vitals{}, err
	}
	return user.Vitals, nil
}

// UpdateVitals は保存済みバイタル値を検証して置き換えます。
func (u *profileUsecase) UpdateVitals(ctx context.Context, userID uint, vitals entity.Vitals) error {
	for name, v := range map[string]float64{
		"sugar_level":       vitals.SugarLevel,
		"cholesterol_level": vitals.CholesterolLevel,
		"blood_pressure":    vitals.BloodPressure,
		"bmi":               vitals.BMI,
		"age":               vitals.Age,
		"heart_rate":        vitals.HeartRate,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return u.users.UpdateVitals(ctx, userID, vitals)
}
