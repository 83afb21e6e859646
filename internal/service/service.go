package service

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ashwinyue/brandchat/internal/config"
	"github.com/ashwinyue/brandchat/internal/repository"
	"github.com/ashwinyue/brandchat/internal/service/admin"
	"github.com/ashwinyue/brandchat/internal/service/agent"
	"github.com/ashwinyue/brandchat/internal/service/chat"
	"github.com/ashwinyue/brandchat/internal/service/mailer"
	"github.com/ashwinyue/brandchat/internal/service/pricing"
	"github.com/ashwinyue/brandchat/internal/service/report"
	"github.com/ashwinyue/brandchat/internal/service/session"
	"github.com/ashwinyue/brandchat/internal/worker"
)

// Services 服务集合
type Services struct {
	Chat     *chat.Service
	Mailer   *mailer.Service
	Admin    *admin.Store
	Report   *report.Service
	Registry *session.Registry
	Pool     *worker.Pool

	Config *config.Config
	Repos  *repository.Repositories
}

// NewServices 创建所有服务
func NewServices(cfg *config.Config, repos *repository.Repositories, redisClient *redis.Client) (*Services, error) {
	pool, err := worker.NewPool(cfg.Worker.PoolSize, cfg.Worker.QueueSize)
	if err != nil {
		return nil, err
	}

	registry := session.NewRegistry(session.Config{
		TTL:             time.Duration(cfg.Chat.SessionTTL) * time.Minute,
		MaxSessions:     cfg.Chat.MaxSessions,
		FallbackBrandID: cfg.Chat.FallbackBrandID,
		DefaultModel:    cfg.Agent.DefaultModel,
	}, repos.Session, repos.Brand, redisClient)

	calc := pricing.NewCalculator(repos.Pricing, cfg.Agent.DefaultModel)
	runtime := agent.NewOpenAIRuntime(&cfg.Agent)
	mailerSvc := mailer.NewService(&cfg.SMTP, repos.Session, repos.Brand, repos.User, repos.Email, pool)

	chatSvc := chat.NewService(registry, runtime, repos.Session, repos.User, repos.Brand,
		repos.Analytics, calc, mailerSvc, pool, chat.Options{
			ContextWindow:  cfg.Chat.ContextWindow,
			MinResponseLen: cfg.Chat.MinResponseLen,
			DefaultBrand:   cfg.Chat.DefaultBrand,
		})

	return &Services{
		Chat:     chatSvc,
		Mailer:   mailerSvc,
		Admin:    admin.NewStore(&cfg.Admin),
		Report:   report.NewService(repos.Report, redisClient),
		Registry: registry,
		Pool:     pool,
		Config:   cfg,
		Repos:    repos,
	}, nil
}

// Shutdown 优雅停机：镜像活跃会话、停巡检、放掉任务池
func (s *Services) Shutdown(ctx context.Context) {
	s.Registry.Flush(ctx)
	s.Registry.Stop()
	s.Admin.Stop()
	s.Pool.Release()
	log.Println("services stopped")
}
