package repository

import (
	"github.com/ashwinyue/brandchat/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PricingRepository 模型单价数据访问
type PricingRepository struct {
	db *gorm.DB
}

// NewPricingRepository 创建单价仓库
func NewPricingRepository(db *gorm.DB) *PricingRepository {
	return &PricingRepository{db: db}
}

// GetByModel 获取某个模型的启用单价
func (r *PricingRepository) GetByModel(modelName string) (*model.ModelPricing, error) {
	var pricing model.ModelPricing
	err := r.db.Where("model_name = ? AND is_active = ?", modelName, true).First(&pricing).Error
	if err != nil {
		return nil, err
	}
	return &pricing, nil
}

// List 列出所有启用的单价
func (r *PricingRepository) List() ([]*model.ModelPricing, error) {
	var rows []*model.ModelPricing
	err := r.db.Where("is_active = ?", true).Order("model_name ASC").Find(&rows).Error
	return rows, err
}

// Upsert 写入或更新模型单价
func (r *PricingRepository) Upsert(pricing *model.ModelPricing) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "model_name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"input_price", "cached_input_price", "output_price", "is_active",
		}),
	}).Create(pricing).Error
}

// Seed 批量写入缺失的单价，已有的不覆盖
func (r *PricingRepository) Seed(rows []model.ModelPricing) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "model_name"}},
		DoNothing: true,
	}).Create(&rows).Error
}
