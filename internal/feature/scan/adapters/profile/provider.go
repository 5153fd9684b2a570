// Package profile はscanフィーチャーからprofileフィーチャーへの橋渡しを提供します。
package profile

import (
	"context"

	profileentity "allergyscan_backend/internal/feature/profile/domain/entity"
	"allergyscan_backend/internal/feature/scan/domain/entity"
	"allergyscan_backend/internal/feature/scan/usecase"
)

// ProfileUsecase はスキャンに必要なプロフィール操作を定義します。
// Goの慣例に従い、インターフェースはプロバイダーではなくコンシューマーが定義します。
type ProfileUsecase interface {
	Allergens(ctx context.Context, userID uint) ([]string, error)
	Vitals(ctx context.Context, userID uint) (profileentity.Vitals, error)
}

// Provider はprofileフィーチャーのユースケースをProfileProviderとして公開します。
type Provider struct {
	profiles ProfileUsecase
}

// ProviderがProfileProviderを実装していることをコンパイル時に検証します。
var _ usecase.ProfileProvider = (*Provider)(nil)

// NewProvider はProviderの新しいインスタンスを生成します。
func NewProvider(profiles ProfileUsecase) *Provider {
	return &Provider{profiles: profiles}
}

// AllergensOf は保存済みアレルゲンリストを返します。
func (p *Provider) AllergensOf(ctx context.Context, userID uint) ([]string, error) {
	return p.profiles.Allergens(ctx, userID)
}

// VitalsOf は保存済みバイタル値をリスクスコアリングの特徴量形式で返します。
// 商品由来の特徴量は呼び出し側が埋めます。
func (p *Provider) VitalsOf(ctx context.Context, userID uint) (entity.RiskFeatures, error) {
	v, err := p.profiles.Vitals(ctx, userID)
	if err != nil {
		return entity.RiskFeatures{}, err
	}
	return entity.RiskFeatures{
		SugarLevel:       v.SugarLevel,
		CholesterolLevel: v.CholesterolLevel,
		BloodPressure:    v.BloodPressure,
		BMI:              v.BMI,
		Age:              v.Age,
		HeartRate:        v.HeartRate,
	}, nil
}
