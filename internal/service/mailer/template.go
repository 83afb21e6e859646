package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/ashwinyue/brandchat/internal/model"
)

// transcriptData 纪要邮件模板数据
type transcriptData struct {
	BrandName    string
	SessionToken string
	StartedAt    string
	Duration     string
	MessageCount int
	TotalTokens  int
	TotalCost    string

	UserName     string
	UserEmail    string
	UserPhone    string
	BusinessName string
	Website      string
	UserLocation string

	Turns []transcriptTurn
}

// transcriptTurn 一轮对话
type transcriptTurn struct {
	Speaker string
	Body    template.HTML
	At      string
}

var transcriptTmpl = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="margin:0;padding:0;background:#f4f5f7;font-family:Arial,Helvetica,sans-serif;">
<div style="max-width:640px;margin:24px auto;background:#ffffff;border-radius:8px;overflow:hidden;border:1px solid #e2e4e8;">
  <div style="background:#1f2937;color:#ffffff;padding:20px 28px;">
    <h2 style="margin:0;font-size:20px;">{{.BrandName}} — Chat Transcript</h2>
    <p style="margin:4px 0 0;font-size:12px;color:#9ca3af;">Session {{.SessionToken}} · {{.StartedAt}}</p>
  </div>
  <div style="padding:20px 28px;">
    <h3 style="margin:0 0 8px;font-size:15px;color:#374151;">Contact</h3>
    <table style="width:100%;font-size:13px;color:#4b5563;border-collapse:collapse;">
      {{if .UserName}}<tr><td style="padding:2px 0;width:130px;">Name</td><td>{{.UserName}}</td></tr>{{end}}
      {{if .UserEmail}}<tr><td style="padding:2px 0;">Email</td><td>{{.UserEmail}}</td></tr>{{end}}
      {{if .UserPhone}}<tr><td style="padding:2px 0;">Phone</td><td>{{.UserPhone}}</td></tr>{{end}}
      {{if .BusinessName}}<tr><td style="padding:2px 0;">Business</td><td>{{.BusinessName}}</td></tr>{{end}}
      {{if .Website}}<tr><td style="padding:2px 0;">Website</td><td>{{.Website}}</td></tr>{{end}}
      {{if .UserLocation}}<tr><td style="padding:2px 0;">Location</td><td>{{.UserLocation}}</td></tr>{{end}}
    </table>
    <h3 style="margin:16px 0 8px;font-size:15px;color:#374151;">Session</h3>
    <table style="width:100%;font-size:13px;color:#4b5563;border-collapse:collapse;">
      <tr><td style="padding:2px 0;width:130px;">Duration</td><td>{{.Duration}}</td></tr>
      <tr><td style="padding:2px 0;">Messages</td><td>{{.MessageCount}}</td></tr>
      <tr><td style="padding:2px 0;">Tokens</td><td>{{.TotalTokens}}</td></tr>
      <tr><td style="padding:2px 0;">Cost</td><td>{{.TotalCost}}</td></tr>
    </table>
  </div>
  <div style="padding:0 28px 24px;">
    <h3 style="margin:0 0 12px;font-size:15px;color:#374151;">Conversation</h3>
    {{range .Turns}}
    <div style="margin-bottom:12px;">
      <div style="font-size:12px;color:#6b7280;margin-bottom:2px;">{{.Speaker}} · {{.At}}</div>
      <div style="background:#f9fafb;border:1px solid #e5e7eb;border-radius:6px;padding:10px 12px;font-size:13px;color:#111827;">{{.Body}}</div>
    </div>
    {{end}}
  </div>
</div>
</body>
</html>`))

// renderTranscript 渲染纪要邮件正文
func renderTranscript(brand *model.Brand, session *model.ChatSession, user *model.User) (string, error) {
	data := transcriptData{
		BrandName:    brand.DisplayName,
		SessionToken: session.SessionID,
		StartedAt:    session.StartedAt.Format("2006-01-02 15:04"),
		Duration:     formatDuration(session.DurationSeconds),
		MessageCount: session.MessageCount,
		TotalTokens:  session.TotalTokens,
		TotalCost:    fmt.Sprintf("$%.6f", session.TotalCost),
	}
	if user != nil {
		data.UserName = user.Name
		data.UserEmail = user.Email
		data.UserPhone = user.Phone
		data.BusinessName = user.BusinessName
		data.Website = user.Website
		data.UserLocation = userLocation(user)
	}

	for _, msg := range session.Messages {
		speaker := "Visitor"
		if msg.Role == model.RoleAssistant {
			speaker = "Assistant"
		}
		body := msg.FormattedContent
		if body == "" {
			body = "<p>" + template.HTMLEscapeString(msg.Content) + "</p>"
		}
		data.Turns = append(data.Turns, transcriptTurn{
			Speaker: speaker,
			Body:    template.HTML(body),
			At:      msg.CreatedAt.Format("15:04:05"),
		})
	}

	var buf bytes.Buffer
	if err := transcriptTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render transcript: %w", err)
	}
	return buf.String(), nil
}

func formatDuration(seconds int) string {
	d := time.Duration(seconds) * time.Second
	if d < time.Minute {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}

func userLocation(user *model.User) string {
	if user.Location != "" {
		return user.Location
	}
	parts := ""
	for _, p := range []string{user.City, user.Region, user.Country} {
		if p == "" {
			continue
		}
		if parts != "" {
			parts += ", "
		}
		parts += p
	}
	return parts
}
