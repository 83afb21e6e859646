// Package testutil 提供测试辅助工具
package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ashwinyue/brandchat/internal/model"
)

// NewTestDB 创建内存 SQLite 数据库并完成建表，用于仓储层测试
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("Failed to open test db: %v", err)
	}

	// 内存库是按连接隔离的，必须收敛到单连接
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(model.AllModels...); err != nil {
		t.Fatalf("Failed to migrate test db: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})

	return db
}

// SeedBrand 插入一个可用的品牌
func SeedBrand(t *testing.T, db *gorm.DB, key, name string) *model.Brand {
	t.Helper()

	brand := &model.Brand{
		BrandKey:    key,
		DisplayName: name,
		Email:       key + "@example.com",
		ModelName:   "gpt-4.1-nano",
		Temperature: 0.7,
		TopP:        0.9,
		MaxTokens:   600,
		IsActive:    true,
	}
	if err := db.Create(brand).Error; err != nil {
		t.Fatalf("Failed to seed brand: %v", err)
	}
	return brand
}

// SeedSession 插入一个活跃会话
func SeedSession(t *testing.T, db *gorm.DB, brandID uint, sessionID string) *model.ChatSession {
	t.Helper()

	session := &model.ChatSession{
		SessionID: sessionID,
		BrandID:   brandID,
		Status:    model.SessionStatusActive,
		ModelName: "gpt-4.1-nano",
	}
	if err := db.Create(session).Error; err != nil {
		t.Fatalf("Failed to seed session: %v", err)
	}
	return session
}
