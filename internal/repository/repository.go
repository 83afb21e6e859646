package repository

import "gorm.io/gorm"

// Repositories 仓库集合，用于统一管理所有仓库
type Repositories struct {
	DB        *gorm.DB // 直接访问数据库
	Brand     *BrandRepository
	User      *UserRepository
	Session   *SessionRepository
	Email     *EmailRepository
	Analytics *AnalyticsRepository
	Pricing   *PricingRepository
	Report    *ReportRepository
}

// NewRepositories 创建所有仓库
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:        db,
		Brand:     NewBrandRepository(db),
		User:      NewUserRepository(db),
		Session:   NewSessionRepository(db),
		Email:     NewEmailRepository(db),
		Analytics: NewAnalyticsRepository(db),
		Pricing:   NewPricingRepository(db),
		Report:    NewReportRepository(db),
	}
}
