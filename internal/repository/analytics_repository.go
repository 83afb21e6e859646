package repository

import (
	"time"

	"github.com/ashwinyue/brandchat/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InteractionDelta 一次会话结束时对累计互动的增量
type InteractionDelta struct {
	Sessions     int
	Messages     int
	EmailsSent   int
	InputTokens  int
	OutputTokens int
	Cost         float64
}

// AnalyticsRepository 分析汇总数据访问
type AnalyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository 创建分析仓库
func NewAnalyticsRepository(db *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// UpsertInteraction 累加用户与品牌的互动计数，(user_id, brand_id) 不存在时插入
func (r *AnalyticsRepository) UpsertInteraction(userID, brandID uint, delta InteractionDelta) error {
	now := time.Now()
	row := model.UserBrandInteraction{
		UserID:            userID,
		BrandID:           brandID,
		TotalSessions:     delta.Sessions,
		TotalMessages:     delta.Messages,
		TotalEmailsSent:   delta.EmailsSent,
		TotalInputTokens:  delta.InputTokens,
		TotalOutputTokens: delta.OutputTokens,
		TotalTokens:       delta.InputTokens + delta.OutputTokens,
		TotalCost:         delta.Cost,
		LastInteraction:   now,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "brand_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_sessions":      gorm.Expr("user_brand_interactions.total_sessions + ?", delta.Sessions),
			"total_messages":      gorm.Expr("user_brand_interactions.total_messages + ?", delta.Messages),
			"total_emails_sent":   gorm.Expr("user_brand_interactions.total_emails_sent + ?", delta.EmailsSent),
			"total_input_tokens":  gorm.Expr("user_brand_interactions.total_input_tokens + ?", delta.InputTokens),
			"total_output_tokens": gorm.Expr("user_brand_interactions.total_output_tokens + ?", delta.OutputTokens),
			"total_tokens":        gorm.Expr("user_brand_interactions.total_tokens + ?", delta.InputTokens+delta.OutputTokens),
			"total_cost":          gorm.Expr("user_brand_interactions.total_cost + ?", delta.Cost),
			"last_interaction":    now,
		}),
	}).Create(&row).Error
}

// GetInteraction 获取用户与品牌的累计互动
func (r *AnalyticsRepository) GetInteraction(userID, brandID uint) (*model.UserBrandInteraction, error) {
	var row model.UserBrandInteraction
	err := r.db.Where("user_id = ? AND brand_id = ?", userID, brandID).First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListInteractionsByUser 列出用户的所有品牌互动
func (r *AnalyticsRepository) ListInteractionsByUser(userID uint) ([]*model.UserBrandInteraction, error) {
	var rows []*model.UserBrandInteraction
	err := r.db.Where("user_id = ?", userID).Order("last_interaction DESC").Find(&rows).Error
	return rows, err
}

// RecalcDailySummary 重算指定品牌当日的汇总并整行 upsert
// date 取 YYYY-MM-DD
func (r *AnalyticsRepository) RecalcDailySummary(brandID uint, date string) error {
	day, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return err
	}
	dayStart := day
	dayEnd := day.Add(24 * time.Hour)

	type agg struct {
		TotalSessions     int
		TotalMessages     int
		TotalUsers        int
		EmailsSent        int
		AvgDuration       float64
		AvgMessages       float64
		TotalInputTokens  int
		TotalOutputTokens int
		TotalTokens       int
		TotalCost         float64
	}
	var a agg
	err = r.db.Model(&model.ChatSession{}).
		Select(`COUNT(*) AS total_sessions,
			COALESCE(SUM(message_count), 0) AS total_messages,
			COUNT(DISTINCT user_id) AS total_users,
			COALESCE(SUM(CASE WHEN email_sent THEN 1 ELSE 0 END), 0) AS emails_sent,
			COALESCE(AVG(duration_seconds), 0) AS avg_duration,
			COALESCE(AVG(message_count), 0) AS avg_messages,
			COALESCE(SUM(total_input_tokens), 0) AS total_input_tokens,
			COALESCE(SUM(total_output_tokens), 0) AS total_output_tokens,
			COALESCE(SUM(total_tokens), 0) AS total_tokens,
			COALESCE(SUM(total_cost), 0) AS total_cost`).
		Where("brand_id = ? AND started_at >= ? AND started_at < ?", brandID, dayStart, dayEnd).
		Scan(&a).Error
	if err != nil {
		return err
	}

	row := model.AnalyticsSummary{
		BrandID:               brandID,
		Date:                  date,
		TotalSessions:         a.TotalSessions,
		TotalMessages:         a.TotalMessages,
		TotalUsers:            a.TotalUsers,
		EmailsSent:            a.EmailsSent,
		AvgSessionDuration:    a.AvgDuration,
		AvgMessagesPerSession: a.AvgMessages,
		TotalInputTokens:      a.TotalInputTokens,
		TotalOutputTokens:     a.TotalOutputTokens,
		TotalTokens:           a.TotalTokens,
		TotalCost:             a.TotalCost,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "brand_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_sessions", "total_messages", "total_users", "emails_sent",
			"avg_session_duration", "avg_messages_per_session",
			"total_input_tokens", "total_output_tokens", "total_tokens", "total_cost",
		}),
	}).Create(&row).Error
}

// ListDailySummaries 列出品牌最近若干天的汇总
func (r *AnalyticsRepository) ListDailySummaries(brandID uint, days int) ([]*model.AnalyticsSummary, error) {
	var rows []*model.AnalyticsSummary
	query := r.db.Order("date DESC")
	if brandID > 0 {
		query = query.Where("brand_id = ?", brandID)
	}
	if days > 0 {
		query = query.Limit(days)
	}
	err := query.Find(&rows).Error
	return rows, err
}
