// Package report 管理后台的只读统计
// 贵的总览查询用 Redis 缓存一小段时间，Redis 不在就直接打库
package report

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ashwinyue/brandchat/internal/repository"
)

const (
	dashboardCacheKey = "stats:dashboard"
	dashboardCacheTTL = 60 * time.Second
)

// Service 报表服务
type Service struct {
	repo  *repository.ReportRepository
	redis *redis.Client
}

// NewService 创建报表服务
func NewService(repo *repository.ReportRepository, redisClient *redis.Client) *Service {
	return &Service{repo: repo, redis: redisClient}
}

// DashboardStats 总览统计，短缓存
func (s *Service) DashboardStats(ctx context.Context) (*repository.DashboardStats, error) {
	if s.redis != nil {
		if raw, err := s.redis.Get(ctx, dashboardCacheKey).Result(); err == nil {
			var cached repository.DashboardStats
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return &cached, nil
			}
		}
	}

	stats, err := s.repo.GetDashboardStats()
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if raw, err := json.Marshal(stats); err == nil {
			s.redis.Set(ctx, dashboardCacheKey, raw, dashboardCacheTTL)
		}
	}
	return stats, nil
}

// InvalidateDashboard 清掉总览缓存
func (s *Service) InvalidateDashboard(ctx context.Context) {
	if s.redis != nil {
		s.redis.Del(ctx, dashboardCacheKey)
	}
}

// TodayStats 当日统计
func (s *Service) TodayStats() (*repository.TodayStats, error) {
	return s.repo.GetTodayStats()
}

// BrandStats 单品牌统计
func (s *Service) BrandStats(brandID uint) (*repository.BrandStats, error) {
	return s.repo.GetBrandStats(brandID)
}

// AllBrandStats 所有品牌统计
func (s *Service) AllBrandStats() ([]*repository.BrandStats, error) {
	return s.repo.ListBrandStats()
}

// TopUsers 最活跃用户
func (s *Service) TopUsers(limit int) ([]*repository.TopUser, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListTopUsers(limit)
}

// DailyStats 每日走势
func (s *Service) DailyStats(days int) ([]*repository.DailyStat, error) {
	if days <= 0 {
		days = 30
	}
	return s.repo.ListDailyStats(days)
}

// TokenStats token 用量
func (s *Service) TokenStats() (*repository.TokenStats, error) {
	return s.repo.GetTokenStats()
}

// ModelTokenStats 按模型的 token 用量
func (s *Service) ModelTokenStats() ([]*repository.ModelTokenStat, error) {
	return s.repo.ListModelTokenStats()
}

// CostOverview 费用总览
func (s *Service) CostOverview() (*repository.CostOverview, error) {
	return s.repo.GetCostOverview()
}

// BrandCosts 按品牌费用
func (s *Service) BrandCosts() ([]*repository.BrandCost, error) {
	return s.repo.ListBrandCosts()
}

// TopCostSessions 费用最高的会话
func (s *Service) TopCostSessions(limit int) ([]*repository.TopCostSession, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.repo.ListTopCostSessions(limit)
}

// HourlyCosts 按小时费用分布
func (s *Service) HourlyCosts(days int) ([]*repository.HourlyCost, error) {
	if days <= 0 {
		days = 7
	}
	return s.repo.ListHourlyCosts(days)
}

// EfficiencyStats 费效比
func (s *Service) EfficiencyStats() ([]*repository.EfficiencyStat, error) {
	return s.repo.ListEfficiencyStats()
}

// EmailStats 邮件发送统计
func (s *Service) EmailStats() (*repository.EmailStats, error) {
	return s.repo.GetEmailStats()
}

// CostExportRows CSV 导出数据
func (s *Service) CostExportRows() ([]*repository.CostExportRow, error) {
	return s.repo.ListCostExportRows()
}
