package repository

import (
	"time"

	"github.com/ashwinyue/brandchat/internal/model"
	"gorm.io/gorm"
)

// DashboardStats 总览统计
type DashboardStats struct {
	TotalSessions     int64   `json:"total_sessions"`
	ActiveSessions    int64   `json:"active_sessions"`
	TotalUsers        int64   `json:"total_users"`
	TotalMessages     int64   `json:"total_messages"`
	EmailsSent        int64   `json:"emails_sent"`
	TotalInputTokens  int64   `json:"total_input_tokens"`
	TotalOutputTokens int64   `json:"total_output_tokens"`
	TotalTokens       int64   `json:"total_tokens"`
	TotalCost         float64 `json:"total_cost"`
	AvgDuration       float64 `json:"avg_duration"`
}

// TodayStats 当日统计
type TodayStats struct {
	Sessions   int64   `json:"sessions"`
	Messages   int64   `json:"messages"`
	NewUsers   int64   `json:"new_users"`
	EmailsSent int64   `json:"emails_sent"`
	Tokens     int64   `json:"tokens"`
	Cost       float64 `json:"cost"`
}

// BrandStats 单品牌统计
type BrandStats struct {
	BrandID       uint    `json:"brand_id"`
	BrandKey      string  `json:"brand_key"`
	DisplayName   string  `json:"display_name"`
	TotalSessions int64   `json:"total_sessions"`
	TotalMessages int64   `json:"total_messages"`
	TotalUsers    int64   `json:"total_users"`
	EmailsSent    int64   `json:"emails_sent"`
	TotalTokens   int64   `json:"total_tokens"`
	TotalCost     float64 `json:"total_cost"`
	AvgDuration   float64 `json:"avg_duration"`
}

// TopUser 按会话数排序的用户行
type TopUser struct {
	UserID        uint    `json:"user_id"`
	Email         string  `json:"email"`
	Name          string  `json:"name"`
	TotalSessions int64   `json:"total_sessions"`
	TotalMessages int64   `json:"total_messages"`
	TotalCost     float64 `json:"total_cost"`
	LastSeen      string  `json:"last_seen"`
}

// DailyStat 按天的会话走势
type DailyStat struct {
	Date     string  `json:"date"`
	Sessions int64   `json:"sessions"`
	Messages int64   `json:"messages"`
	Tokens   int64   `json:"tokens"`
	Cost     float64 `json:"cost"`
}

// TokenStats token 用量统计
type TokenStats struct {
	TotalInputTokens  int64   `json:"total_input_tokens"`
	TotalOutputTokens int64   `json:"total_output_tokens"`
	TotalTokens       int64   `json:"total_tokens"`
	AvgTokensPerTurn  float64 `json:"avg_tokens_per_turn"`
	Sessions          int64   `json:"sessions"`
}

// ModelTokenStat 按模型拆分的 token 用量
type ModelTokenStat struct {
	ModelName    string  `json:"model_name"`
	Sessions     int64   `json:"sessions"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	TotalTokens  int64   `json:"total_tokens"`
	TotalCost    float64 `json:"total_cost"`
}

// CostOverview 费用总览
type CostOverview struct {
	TotalCost      float64 `json:"total_cost"`
	InputCost      float64 `json:"input_cost"`
	OutputCost     float64 `json:"output_cost"`
	TodayCost      float64 `json:"today_cost"`
	MonthCost      float64 `json:"month_cost"`
	AvgCostSession float64 `json:"avg_cost_session"`
	Sessions       int64   `json:"sessions"`
}

// BrandCost 按品牌的费用
type BrandCost struct {
	BrandID     uint    `json:"brand_id"`
	BrandKey    string  `json:"brand_key"`
	DisplayName string  `json:"display_name"`
	Sessions    int64   `json:"sessions"`
	TotalTokens int64   `json:"total_tokens"`
	TotalCost   float64 `json:"total_cost"`
}

// TopCostSession 费用最高的会话
type TopCostSession struct {
	SessionID   string  `json:"session_id"`
	BrandKey    string  `json:"brand_key"`
	UserEmail   string  `json:"user_email"`
	Messages    int64   `json:"messages"`
	TotalTokens int64   `json:"total_tokens"`
	TotalCost   float64 `json:"total_cost"`
	StartedAt   string  `json:"started_at"`
}

// HourlyCost 按小时的费用分布
type HourlyCost struct {
	Hour     int     `json:"hour"`
	Sessions int64   `json:"sessions"`
	Cost     float64 `json:"cost"`
}

// EfficiencyStat 每美元产出的对话量
type EfficiencyStat struct {
	ModelName        string  `json:"model_name"`
	Sessions         int64   `json:"sessions"`
	MessagesPerCost  float64 `json:"messages_per_cost"`
	TokensPerMessage float64 `json:"tokens_per_message"`
	AvgCostSession   float64 `json:"avg_cost_session"`
}

// EmailStats 邮件发送统计
type EmailStats struct {
	TotalSent   int64 `json:"total_sent"`
	TotalFailed int64 `json:"total_failed"`
	Today       int64 `json:"today"`
}

// CostExportRow CSV 导出行
type CostExportRow struct {
	SessionID    string
	BrandKey     string
	UserEmail    string
	ModelName    string
	Messages     int64
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	InputCost    float64
	OutputCost   float64
	TotalCost    float64
	StartedAt    time.Time
	EndedAt      *time.Time
}

// ReportRepository 管理后台只读聚合查询
// 所有聚合列都 COALESCE 到零，空库返回零值而不是 NULL 扫描错误
type ReportRepository struct {
	db *gorm.DB
}

// NewReportRepository 创建报表仓库
func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// GetDashboardStats 总览统计
func (r *ReportRepository) GetDashboardStats() (*DashboardStats, error) {
	var stats DashboardStats
	err := r.db.Model(&model.ChatSession{}).
		Select(`COUNT(*) AS total_sessions,
			COALESCE(SUM(CASE WHEN status = 'active' THEN 1 ELSE 0 END), 0) AS active_sessions,
			COALESCE(SUM(message_count), 0) AS total_messages,
			COALESCE(SUM(CASE WHEN email_sent THEN 1 ELSE 0 END), 0) AS emails_sent,
			COALESCE(SUM(total_input_tokens), 0) AS total_input_tokens,
			COALESCE(SUM(total_output_tokens), 0) AS total_output_tokens,
			COALESCE(SUM(total_tokens), 0) AS total_tokens,
			COALESCE(SUM(total_cost), 0) AS total_cost,
			COALESCE(AVG(duration_seconds), 0) AS avg_duration`).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	if err := r.db.Model(&model.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetTodayStats 当日统计
func (r *ReportRepository) GetTodayStats() (*TodayStats, error) {
	dayStart := startOfDay(time.Now())
	var stats TodayStats
	err := r.db.Model(&model.ChatSession{}).
		Select(`COUNT(*) AS sessions,
			COALESCE(SUM(message_count), 0) AS messages,
			COALESCE(SUM(CASE WHEN email_sent THEN 1 ELSE 0 END), 0) AS emails_sent,
			COALESCE(SUM(total_tokens), 0) AS tokens,
			COALESCE(SUM(total_cost), 0) AS cost`).
		Where("started_at >= ?", dayStart).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	err = r.db.Model(&model.User{}).
		Where("first_seen >= ?", dayStart).
		Count(&stats.NewUsers).Error
	return &stats, err
}

// GetBrandStats 单品牌统计，品牌不存在时返回 gorm.ErrRecordNotFound
func (r *ReportRepository) GetBrandStats(brandID uint) (*BrandStats, error) {
	var brand model.Brand
	if err := r.db.Where("id = ?", brandID).First(&brand).Error; err != nil {
		return nil, err
	}
	stats := BrandStats{
		BrandID:     brand.ID,
		BrandKey:    brand.BrandKey,
		DisplayName: brand.DisplayName,
	}
	err := r.db.Model(&model.ChatSession{}).
		Select(`COUNT(*) AS total_sessions,
			COALESCE(SUM(message_count), 0) AS total_messages,
			COUNT(DISTINCT user_id) AS total_users,
			COALESCE(SUM(CASE WHEN email_sent THEN 1 ELSE 0 END), 0) AS emails_sent,
			COALESCE(SUM(total_tokens), 0) AS total_tokens,
			COALESCE(SUM(total_cost), 0) AS total_cost,
			COALESCE(AVG(duration_seconds), 0) AS avg_duration`).
		Where("brand_id = ?", brandID).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// ListBrandStats 所有品牌的统计
func (r *ReportRepository) ListBrandStats() ([]*BrandStats, error) {
	var rows []*BrandStats
	err := r.db.Table("brands b").
		Select(`b.id AS brand_id, b.brand_key, b.display_name,
			COUNT(s.id) AS total_sessions,
			COALESCE(SUM(s.message_count), 0) AS total_messages,
			COUNT(DISTINCT s.user_id) AS total_users,
			COALESCE(SUM(CASE WHEN s.email_sent THEN 1 ELSE 0 END), 0) AS emails_sent,
			COALESCE(SUM(s.total_tokens), 0) AS total_tokens,
			COALESCE(SUM(s.total_cost), 0) AS total_cost,
			COALESCE(AVG(s.duration_seconds), 0) AS avg_duration`).
		Joins("LEFT JOIN sessions s ON s.brand_id = b.id").
		Group("b.id, b.brand_key, b.display_name").
		Order("total_sessions DESC").
		Scan(&rows).Error
	return rows, err
}

// ListTopUsers 按会话数排序的用户
func (r *ReportRepository) ListTopUsers(limit int) ([]*TopUser, error) {
	var rows []*TopUser
	err := r.db.Table("users u").
		Select(`u.id AS user_id, u.email, u.name,
			COUNT(s.id) AS total_sessions,
			COALESCE(SUM(s.message_count), 0) AS total_messages,
			COALESCE(SUM(s.total_cost), 0) AS total_cost,
			MAX(u.last_seen) AS last_seen`).
		Joins("LEFT JOIN sessions s ON s.user_id = u.id").
		Group("u.id, u.email, u.name").
		Order("total_sessions DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// ListDailyStats 最近 days 天的每日走势，按日期升序
func (r *ReportRepository) ListDailyStats(days int) ([]*DailyStat, error) {
	since := startOfDay(time.Now()).AddDate(0, 0, -(days - 1))
	var rows []*DailyStat
	err := r.db.Model(&model.ChatSession{}).
		Select(`DATE(started_at) AS date,
			COUNT(*) AS sessions,
			COALESCE(SUM(message_count), 0) AS messages,
			COALESCE(SUM(total_tokens), 0) AS tokens,
			COALESCE(SUM(total_cost), 0) AS cost`).
		Where("started_at >= ?", since).
		Group("DATE(started_at)").
		Order("date ASC").
		Scan(&rows).Error
	return rows, err
}

// GetTokenStats token 用量统计
func (r *ReportRepository) GetTokenStats() (*TokenStats, error) {
	var stats TokenStats
	err := r.db.Model(&model.ChatSession{}).
		Select(`COALESCE(SUM(total_input_tokens), 0) AS total_input_tokens,
			COALESCE(SUM(total_output_tokens), 0) AS total_output_tokens,
			COALESCE(SUM(total_tokens), 0) AS total_tokens,
			COUNT(*) AS sessions`).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	var turns int64
	if err := r.db.Model(&model.ChatMessage{}).
		Where("role = ?", model.RoleAssistant).
		Count(&turns).Error; err != nil {
		return nil, err
	}
	if turns > 0 {
		stats.AvgTokensPerTurn = float64(stats.TotalTokens) / float64(turns)
	}
	return &stats, nil
}

// ListModelTokenStats 按模型拆分的 token 用量
func (r *ReportRepository) ListModelTokenStats() ([]*ModelTokenStat, error) {
	var rows []*ModelTokenStat
	err := r.db.Model(&model.ChatSession{}).
		Select(`model_name,
			COUNT(*) AS sessions,
			COALESCE(SUM(total_input_tokens), 0) AS input_tokens,
			COALESCE(SUM(total_output_tokens), 0) AS output_tokens,
			COALESCE(SUM(total_tokens), 0) AS total_tokens,
			COALESCE(SUM(total_cost), 0) AS total_cost`).
		Where("model_name <> ''").
		Group("model_name").
		Order("total_tokens DESC").
		Scan(&rows).Error
	return rows, err
}

// GetCostOverview 费用总览
func (r *ReportRepository) GetCostOverview() (*CostOverview, error) {
	var overview CostOverview
	err := r.db.Model(&model.ChatSession{}).
		Select(`COALESCE(SUM(total_cost), 0) AS total_cost,
			COALESCE(SUM(input_cost), 0) AS input_cost,
			COALESCE(SUM(output_cost), 0) AS output_cost,
			COUNT(*) AS sessions`).
		Scan(&overview).Error
	if err != nil {
		return nil, err
	}
	now := time.Now()
	var today float64
	if err := r.db.Model(&model.ChatSession{}).
		Where("started_at >= ?", startOfDay(now)).
		Select("COALESCE(SUM(total_cost), 0)").
		Scan(&today).Error; err != nil {
		return nil, err
	}
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	var month float64
	if err := r.db.Model(&model.ChatSession{}).
		Where("started_at >= ?", monthStart).
		Select("COALESCE(SUM(total_cost), 0)").
		Scan(&month).Error; err != nil {
		return nil, err
	}
	overview.TodayCost = today
	overview.MonthCost = month
	if overview.Sessions > 0 {
		overview.AvgCostSession = overview.TotalCost / float64(overview.Sessions)
	}
	return &overview, nil
}

// ListBrandCosts 按品牌的费用
func (r *ReportRepository) ListBrandCosts() ([]*BrandCost, error) {
	var rows []*BrandCost
	err := r.db.Table("brands b").
		Select(`b.id AS brand_id, b.brand_key, b.display_name,
			COUNT(s.id) AS sessions,
			COALESCE(SUM(s.total_tokens), 0) AS total_tokens,
			COALESCE(SUM(s.total_cost), 0) AS total_cost`).
		Joins("LEFT JOIN sessions s ON s.brand_id = b.id").
		Group("b.id, b.brand_key, b.display_name").
		Order("total_cost DESC").
		Scan(&rows).Error
	return rows, err
}

// ListTopCostSessions 费用最高的会话
func (r *ReportRepository) ListTopCostSessions(limit int) ([]*TopCostSession, error) {
	var rows []*TopCostSession
	err := r.db.Table("sessions s").
		Select(`s.session_id, b.brand_key,
			COALESCE(u.email, '') AS user_email,
			s.message_count AS messages,
			s.total_tokens, s.total_cost,
			s.started_at`).
		Joins("LEFT JOIN brands b ON b.id = s.brand_id").
		Joins("LEFT JOIN users u ON u.id = s.user_id").
		Order("s.total_cost DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// ListHourlyCosts 最近 days 天按小时的费用分布
func (r *ReportRepository) ListHourlyCosts(days int) ([]*HourlyCost, error) {
	since := startOfDay(time.Now()).AddDate(0, 0, -(days - 1))
	var rows []*HourlyCost
	err := r.db.Model(&model.ChatSession{}).
		Select(`CAST(EXTRACT(HOUR FROM started_at) AS INTEGER) AS hour,
			COUNT(*) AS sessions,
			COALESCE(SUM(total_cost), 0) AS cost`).
		Where("started_at >= ?", since).
		Group("hour").
		Order("hour ASC").
		Scan(&rows).Error
	return rows, err
}

// ListEfficiencyStats 按模型的费效比
func (r *ReportRepository) ListEfficiencyStats() ([]*EfficiencyStat, error) {
	type raw struct {
		ModelName string
		Sessions  int64
		Messages  int64
		Tokens    int64
		Cost      float64
	}
	var rows []raw
	err := r.db.Model(&model.ChatSession{}).
		Select(`model_name,
			COUNT(*) AS sessions,
			COALESCE(SUM(message_count), 0) AS messages,
			COALESCE(SUM(total_tokens), 0) AS tokens,
			COALESCE(SUM(total_cost), 0) AS cost`).
		Where("model_name <> ''").
		Group("model_name").
		Order("cost DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	stats := make([]*EfficiencyStat, 0, len(rows))
	for _, row := range rows {
		s := &EfficiencyStat{ModelName: row.ModelName, Sessions: row.Sessions}
		if row.Cost > 0 {
			s.MessagesPerCost = float64(row.Messages) / row.Cost
		}
		if row.Messages > 0 {
			s.TokensPerMessage = float64(row.Tokens) / float64(row.Messages)
		}
		if row.Sessions > 0 {
			s.AvgCostSession = row.Cost / float64(row.Sessions)
		}
		stats = append(stats, s)
	}
	return stats, nil
}

// GetEmailStats 邮件发送统计
func (r *ReportRepository) GetEmailStats() (*EmailStats, error) {
	var stats EmailStats
	if err := r.db.Model(&model.EmailLog{}).
		Where("status = ?", model.EmailStatusSent).
		Count(&stats.TotalSent).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&model.EmailLog{}).
		Where("status = ?", model.EmailStatusFailed).
		Count(&stats.TotalFailed).Error; err != nil {
		return nil, err
	}
	err := r.db.Model(&model.EmailLog{}).
		Where("sent_at >= ?", startOfDay(time.Now())).
		Count(&stats.Today).Error
	return &stats, err
}

// ListCostExportRows CSV 导出数据，按开始时间倒序
func (r *ReportRepository) ListCostExportRows() ([]*CostExportRow, error) {
	var rows []*CostExportRow
	err := r.db.Table("sessions s").
		Select(`s.session_id,
			COALESCE(b.brand_key, '') AS brand_key,
			COALESCE(u.email, '') AS user_email,
			s.model_name,
			s.message_count AS messages,
			s.total_input_tokens AS input_tokens,
			s.total_output_tokens AS output_tokens,
			s.total_tokens,
			s.input_cost, s.output_cost, s.total_cost,
			s.started_at, s.ended_at`).
		Joins("LEFT JOIN brands b ON b.id = s.brand_id").
		Joins("LEFT JOIN users u ON u.id = s.user_id").
		Order("s.started_at DESC").
		Scan(&rows).Error
	return rows, err
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
