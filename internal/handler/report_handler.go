package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/brandchat/internal/service"
)

// ReportHandler 统计 JSON 接口与导出
type ReportHandler struct {
	svc *service.Services
}

// NewReportHandler 创建统计处理器
func NewReportHandler(svc *service.Services) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// DashboardStats 总览统计
// GET /api/dashboard/stats
func (h *ReportHandler) DashboardStats(c *gin.Context) {
	stats, err := h.svc.Report.DashboardStats(c.Request.Context())
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, stats)
}

// BrandStats 单品牌统计
// GET /admin/api/brand-stats/:id
func (h *ReportHandler) BrandStats(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		BadRequest(c, "invalid brand id")
		return
	}
	stats, err := h.svc.Report.BrandStats(uint(id))
	if err != nil {
		NotFound(c, "brand not found")
		return
	}
	Success(c, stats)
}

// SessionDetails 会话详情（含消息）
// GET /admin/api/session-details/:id
func (h *ReportHandler) SessionDetails(c *gin.Context) {
	session, err := h.svc.Repos.Session.GetWithMessages(c.Param("id"))
	if err != nil {
		NotFound(c, "session not found")
		return
	}
	Success(c, session)
}

// ChartData 费用图表数据
// GET /admin/api/costs/chart-data
func (h *ReportHandler) ChartData(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	daily, err := h.svc.Report.DailyStats(days)
	if err != nil {
		Error(c, err)
		return
	}
	hourly, _ := h.svc.Report.HourlyCosts(7)
	brands, _ := h.svc.Report.BrandCosts()

	Success(c, gin.H{
		"daily":  daily,
		"hourly": hourly,
		"brands": brands,
	})
}

// ExportCosts 费用明细 CSV 导出
// GET /admin/costs/export
func (h *ReportHandler) ExportCosts(c *gin.Context) {
	rows, err := h.svc.Report.CostExportRows()
	if err != nil {
		Error(c, err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="cost-report.csv"`)
	c.Status(http.StatusOK)

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	_ = writer.Write([]string{
		"session_id", "brand", "user_email", "model", "messages",
		"input_tokens", "output_tokens", "total_tokens",
		"input_cost", "output_cost", "total_cost", "started_at", "ended_at",
	})
	for _, row := range rows {
		endedAt := ""
		if row.EndedAt != nil {
			endedAt = row.EndedAt.Format("2006-01-02 15:04:05")
		}
		_ = writer.Write([]string{
			row.SessionID,
			row.BrandKey,
			row.UserEmail,
			row.ModelName,
			strconv.FormatInt(row.Messages, 10),
			strconv.FormatInt(row.InputTokens, 10),
			strconv.FormatInt(row.OutputTokens, 10),
			strconv.FormatInt(row.TotalTokens, 10),
			fmt.Sprintf("%.6f", row.InputCost),
			fmt.Sprintf("%.6f", row.OutputCost),
			fmt.Sprintf("%.6f", row.TotalCost),
			row.StartedAt.Format("2006-01-02 15:04:05"),
			endedAt,
		})
	}
}
