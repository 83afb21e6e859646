package repository

import (
	"time"

	"github.com/ashwinyue/brandchat/internal/model"
	"gorm.io/gorm"
)

// UserProfile 用户建档/回访时采集到的字段，空字符串表示本次未采集
type UserProfile struct {
	Name         string
	Phone        string
	BusinessName string
	Website      string
	Location     string
	IPAddress    string
	City         string
	Region       string
	Country      string
}

// UserRepository 用户数据访问
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetOrCreate 按邮箱获取或建档用户
// 已存在时仅用非空字段覆盖档案，并把 total_conversations 加一
func (r *UserRepository) GetOrCreate(email string, profile UserProfile) (*model.User, error) {
	var user model.User
	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ?", email).First(&user).Error
		if err == nil {
			applyProfile(&user, profile)
			user.TotalConversations++
			user.LastSeen = time.Now()
			return tx.Save(&user).Error
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		user = model.User{Email: email, TotalConversations: 1}
		applyProfile(&user, profile)
		if createErr := tx.Create(&user).Error; createErr != nil {
			// 并发首访可能撞唯一索引，回退到更新路径
			if createErr != gorm.ErrDuplicatedKey {
				return createErr
			}
			if err := tx.Where("email = ?", email).First(&user).Error; err != nil {
				return err
			}
			applyProfile(&user, profile)
			user.TotalConversations++
			user.LastSeen = time.Now()
			return tx.Save(&user).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile 只补档案字段，不动 total_conversations
// 同一轮对话里后续补来的姓名电话走这里，对话计数才不会虚高
func (r *UserRepository) UpdateProfile(email string, profile UserProfile) (*model.User, error) {
	var user model.User
	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("email = ?", email).First(&user).Error
		if err == nil {
			applyProfile(&user, profile)
			user.LastSeen = time.Now()
			return tx.Save(&user).Error
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		// 对话中途换的新邮箱，这就是它的第一次对话
		user = model.User{Email: email, TotalConversations: 1}
		applyProfile(&user, profile)
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID 获取用户
func (r *UserRepository) GetByID(id uint) (*model.User, error) {
	var user model.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail 按邮箱获取用户
func (r *UserRepository) GetByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// List 列出用户
func (r *UserRepository) List(offset, limit int) ([]*model.User, error) {
	var users []*model.User
	err := r.db.Order("last_seen DESC").Offset(offset).Limit(limit).Find(&users).Error
	return users, err
}

// Count 用户总数
func (r *UserRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&model.User{}).Count(&count).Error
	return count, err
}

func applyProfile(user *model.User, profile UserProfile) {
	if profile.Name != "" {
		user.Name = profile.Name
	}
	if profile.Phone != "" {
		user.Phone = profile.Phone
	}
	if profile.BusinessName != "" {
		user.BusinessName = profile.BusinessName
	}
	if profile.Website != "" {
		user.Website = profile.Website
	}
	if profile.Location != "" {
		user.Location = profile.Location
	}
	if profile.IPAddress != "" {
		user.IPAddress = profile.IPAddress
	}
	if profile.City != "" {
		user.City = profile.City
	}
	if profile.Region != "" {
		user.Region = profile.Region
	}
	if profile.Country != "" {
		user.Country = profile.Country
	}
}
