package handler

import (
	"github.com/ashwinyue/brandchat/internal/repository"
	"github.com/ashwinyue/brandchat/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Chat      *ChatHandler
	System    *SystemHandler
	Admin     *AdminHandler
	Report    *ReportHandler
	Recipient *RecipientHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services, db *repository.DB) *Handlers {
	return &Handlers{
		Chat:      NewChatHandler(svc),
		System:    NewSystemHandler(svc, db),
		Admin:     NewAdminHandler(svc),
		Report:    NewReportHandler(svc),
		Recipient: NewRecipientHandler(svc),
	}
}
