package repository

import (
	"github.com/ashwinyue/brandchat/internal/model"
	"gorm.io/gorm"
)

// EmailRepository 邮件发送记录数据访问
type EmailRepository struct {
	db *gorm.DB
}

// NewEmailRepository 创建邮件仓库
func NewEmailRepository(db *gorm.DB) *EmailRepository {
	return &EmailRepository{db: db}
}

// Create 记录一次发送尝试
func (r *EmailRepository) Create(log *model.EmailLog) error {
	return r.db.Create(log).Error
}

// GetByID 获取单条记录
func (r *EmailRepository) GetByID(id uint) (*model.EmailLog, error) {
	var log model.EmailLog
	err := r.db.Where("id = ?", id).First(&log).Error
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// ListBySession 列出会话相关的发送记录
func (r *EmailRepository) ListBySession(sessionDBID uint) ([]*model.EmailLog, error) {
	var logs []*model.EmailLog
	err := r.db.Where("session_id = ?", sessionDBID).Order("sent_at DESC").Find(&logs).Error
	return logs, err
}

// ListRecent 列出最近的发送记录
func (r *EmailRepository) ListRecent(status string, offset, limit int) ([]*model.EmailLog, error) {
	var logs []*model.EmailLog
	query := r.db.Order("sent_at DESC").Offset(offset).Limit(limit)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Find(&logs).Error
	return logs, err
}

// CountByStatus 按状态统计发送记录
func (r *EmailRepository) CountByStatus(status string) (int64, error) {
	var count int64
	err := r.db.Model(&model.EmailLog{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
