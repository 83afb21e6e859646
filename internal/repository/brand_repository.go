package repository

import (
	"github.com/ashwinyue/brandchat/internal/model"
	"gorm.io/gorm"
)

// BrandRepository 品牌数据访问
type BrandRepository struct {
	db *gorm.DB
}

// NewBrandRepository 创建品牌仓库
func NewBrandRepository(db *gorm.DB) *BrandRepository {
	return &BrandRepository{db: db}
}

// GetByKey 按品牌标识获取启用的品牌
func (r *BrandRepository) GetByKey(key string) (*model.Brand, error) {
	var brand model.Brand
	err := r.db.Where("brand_key = ? AND is_active = ?", key, true).First(&brand).Error
	if err != nil {
		return nil, err
	}
	return &brand, nil
}

// GetByID 获取品牌
func (r *BrandRepository) GetByID(id uint) (*model.Brand, error) {
	var brand model.Brand
	err := r.db.Where("id = ?", id).First(&brand).Error
	if err != nil {
		return nil, err
	}
	return &brand, nil
}

// List 列出所有品牌
func (r *BrandRepository) List(activeOnly bool) ([]*model.Brand, error) {
	var brands []*model.Brand
	query := r.db.Order("id ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	err := query.Find(&brands).Error
	return brands, err
}

// Create 创建品牌
func (r *BrandRepository) Create(brand *model.Brand) error {
	return r.db.Create(brand).Error
}

// Update 更新品牌
func (r *BrandRepository) Update(brand *model.Brand) error {
	return r.db.Save(brand).Error
}

// ListRecipients 列出品牌的邮件接收人
func (r *BrandRepository) ListRecipients(brandID uint) ([]*model.BrandRecipient, error) {
	var recipients []*model.BrandRecipient
	err := r.db.Where("brand_id = ?", brandID).Order("id ASC").Find(&recipients).Error
	return recipients, err
}

// ActiveRecipientEmails 获取品牌当前启用的收件地址
func (r *BrandRepository) ActiveRecipientEmails(brandID uint) ([]string, error) {
	var emails []string
	err := r.db.Model(&model.BrandRecipient{}).
		Where("brand_id = ? AND is_active = ?", brandID, true).
		Order("id ASC").
		Pluck("email", &emails).Error
	return emails, err
}

// AddRecipient 添加邮件接收人，同品牌同邮箱只保留一条
func (r *BrandRepository) AddRecipient(recipient *model.BrandRecipient) error {
	return r.db.Create(recipient).Error
}

// UpdateRecipient 更新邮件接收人
func (r *BrandRepository) UpdateRecipient(recipient *model.BrandRecipient) error {
	return r.db.Save(recipient).Error
}

// RemoveRecipient 删除邮件接收人
func (r *BrandRepository) RemoveRecipient(id uint) error {
	return r.db.Delete(&model.BrandRecipient{}, "id = ?", id).Error
}

// GetRecipient 获取单个接收人
func (r *BrandRepository) GetRecipient(id uint) (*model.BrandRecipient, error) {
	var recipient model.BrandRecipient
	err := r.db.Where("id = ?", id).First(&recipient).Error
	if err != nil {
		return nil, err
	}
	return &recipient, nil
}
