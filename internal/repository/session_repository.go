package repository

import (
	"fmt"
	"time"

	"github.com/ashwinyue/brandchat/internal/model"
	"gorm.io/gorm"
)

// 并发追加消息撞到 (session_id, message_order) 唯一索引时的重试次数
const appendMaxRetries = 5

// SessionRepository 会话与消息数据访问
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository 创建会话仓库
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create 创建会话
func (r *SessionRepository) Create(session *model.ChatSession) error {
	return r.db.Create(session).Error
}

// GetBySessionID 按会话令牌获取会话
func (r *SessionRepository) GetBySessionID(sessionID string) (*model.ChatSession, error) {
	var session model.ChatSession
	err := r.db.Where("session_id = ?", sessionID).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetWithMessages 获取会话及其全部消息，消息按序号排序
func (r *SessionRepository) GetWithMessages(sessionID string) (*model.ChatSession, error) {
	var session model.ChatSession
	err := r.db.Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("message_order ASC")
	}).Where("session_id = ?", sessionID).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetByID 按主键获取会话及其全部消息
func (r *SessionRepository) GetByID(id uint) (*model.ChatSession, error) {
	var session model.ChatSession
	err := r.db.Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("message_order ASC")
	}).Where("id = ?", id).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// GetMessages 获取会话消息，limit 为 0 表示不限制
func (r *SessionRepository) GetMessages(sessionDBID uint, limit int) ([]*model.ChatMessage, error) {
	var messages []*model.ChatMessage
	query := r.db.Where("session_id = ?", sessionDBID).Order("message_order ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&messages).Error
	return messages, err
}

// GetRecentMessages 获取会话最近 limit 条消息，按序号升序返回
func (r *SessionRepository) GetRecentMessages(sessionDBID uint, limit int) ([]*model.ChatMessage, error) {
	var messages []*model.ChatMessage
	err := r.db.Where("session_id = ?", sessionDBID).
		Order("message_order DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	// 倒序查出来，翻回时间顺序
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// AppendMessage 追加一条消息并更新会话计数
// 序号取当前最大值加一，唯一索引冲突时整个事务重试
func (r *SessionRepository) AppendMessage(sessionDBID uint, msg *model.ChatMessage) error {
	var lastErr error
	for attempt := 0; attempt < appendMaxRetries; attempt++ {
		err := r.db.Transaction(func(tx *gorm.DB) error {
			var maxOrder int
			row := tx.Model(&model.ChatMessage{}).
				Where("session_id = ?", sessionDBID).
				Select("COALESCE(MAX(message_order), 0)")
			if err := row.Scan(&maxOrder).Error; err != nil {
				return err
			}

			msg.ID = 0
			msg.SessionDBID = sessionDBID
			msg.MessageOrder = maxOrder + 1
			if err := tx.Create(msg).Error; err != nil {
				return err
			}

			updates := map[string]interface{}{
				"message_count": gorm.Expr("message_count + 1"),
				"last_activity": time.Now(),
			}
			switch msg.Role {
			case model.RoleUser:
				updates["user_message_count"] = gorm.Expr("user_message_count + 1")
			case model.RoleAssistant:
				updates["assistant_message_count"] = gorm.Expr("assistant_message_count + 1")
			}
			return tx.Model(&model.ChatSession{}).
				Where("id = ?", sessionDBID).
				Updates(updates).Error
		})
		if err == nil {
			return nil
		}
		if err != gorm.ErrDuplicatedKey {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("append message: retries exhausted: %w", lastErr)
}

// TouchActivity 刷新会话活跃时间
func (r *SessionRepository) TouchActivity(sessionDBID uint) error {
	return r.db.Model(&model.ChatSession{}).
		Where("id = ?", sessionDBID).
		Update("last_activity", time.Now()).Error
}

// SetUser 把会话绑定到已建档的用户
func (r *SessionRepository) SetUser(sessionDBID, userID uint) error {
	return r.db.Model(&model.ChatSession{}).
		Where("id = ?", sessionDBID).
		Update("user_id", userID).Error
}

// AddUsage 记录一轮对话的 token 与费用，last_* 覆盖、total_* 累加
func (r *SessionRepository) AddUsage(sessionDBID uint, inputTokens, outputTokens int, inputCost, outputCost float64) error {
	totalTokens := inputTokens + outputTokens
	totalCost := inputCost + outputCost
	return r.db.Model(&model.ChatSession{}).
		Where("id = ?", sessionDBID).
		Updates(map[string]interface{}{
			"last_input_tokens":   inputTokens,
			"last_output_tokens":  outputTokens,
			"last_token_usage":    totalTokens,
			"total_input_tokens":  gorm.Expr("total_input_tokens + ?", inputTokens),
			"total_output_tokens": gorm.Expr("total_output_tokens + ?", outputTokens),
			"total_tokens":        gorm.Expr("total_tokens + ?", totalTokens),
			"input_cost":          gorm.Expr("input_cost + ?", inputCost),
			"output_cost":         gorm.Expr("output_cost + ?", outputCost),
			"total_cost":          gorm.Expr("total_cost + ?", totalCost),
		}).Error
}

// End 结束会话，计算会话时长
// 只有 active 状态的行会被更新，重复结束不生效
func (r *SessionRepository) End(sessionDBID uint) (bool, error) {
	now := time.Now()
	var session model.ChatSession
	if err := r.db.Where("id = ?", sessionDBID).First(&session).Error; err != nil {
		return false, err
	}
	duration := int(now.Sub(session.StartedAt).Seconds())
	if duration < 0 {
		duration = 0
	}
	result := r.db.Model(&model.ChatSession{}).
		Where("id = ? AND status = ?", sessionDBID, model.SessionStatusActive).
		Updates(map[string]interface{}{
			"status":           model.SessionStatusEnded,
			"ended_at":         now,
			"duration_seconds": duration,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkEmailSent 标记纪要邮件已发送
func (r *SessionRepository) MarkEmailSent(sessionDBID uint) error {
	now := time.Now()
	return r.db.Model(&model.ChatSession{}).
		Where("id = ?", sessionDBID).
		Updates(map[string]interface{}{
			"email_sent":    true,
			"email_sent_at": now,
		}).Error
}

// ListRecent 列出最近的会话
func (r *SessionRepository) ListRecent(brandID uint, offset, limit int) ([]*model.ChatSession, error) {
	var sessions []*model.ChatSession
	query := r.db.Order("started_at DESC").Offset(offset).Limit(limit)
	if brandID > 0 {
		query = query.Where("brand_id = ?", brandID)
	}
	err := query.Find(&sessions).Error
	return sessions, err
}

// ListByUser 列出某个用户的会话
func (r *SessionRepository) ListByUser(userID uint, limit int) ([]*model.ChatSession, error) {
	var sessions []*model.ChatSession
	query := r.db.Where("user_id = ?", userID).Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&sessions).Error
	return sessions, err
}

// DeleteOlderThan 清理早于截止时间的会话及其消息，返回删除的会话数
func (r *SessionRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	var deleted int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&model.ChatSession{}).
			Where("started_at < ?", cutoff).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Delete(&model.ChatMessage{}, "session_id IN ?", ids).Error; err != nil {
			return err
		}
		result := tx.Delete(&model.ChatSession{}, "id IN ?", ids)
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	return deleted, err
}
