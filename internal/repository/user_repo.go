package repository

import (
	"gorm.io/gorm"

	"github.com/nyxv/vpn_bot_server/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

func (r *UserRepository) GetByID(telegramID int64) (*model.User, error) {
	var user model.User
	err := r.db.Where("telegram_id = ?", telegramID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByIDs(telegramIDs []int64) ([]*model.User, error) {
	var users []*model.User
	err := r.db.Where("telegram_id IN ?", telegramIDs).Find(&users).Error
	return users, err
}

func (r *UserRepository) GetAll() ([]*model.User, error) {
	var users []*model.User
	err := r.db.Order("telegram_id").Find(&users).Error
	return users, err
}

func (r *UserRepository) Update(user *model.User) error {
	return r.db.Save(user).Error
}

func (r *UserRepository) UpdateFields(telegramID int64, fields map[string]interface{}) error {
	return r.db.Model(&model.User{}).Where("telegram_id = ?", telegramID).Updates(fields).Error
}

// SetCurrentSubscription 维护用户与当前订阅的链接，传 nil 解除链接
func (r *UserRepository) SetCurrentSubscription(telegramID int64, subscriptionID *int64) error {
	return r.db.Model(&model.User{}).Where("telegram_id = ?", telegramID).
		Update("current_subscription_id", subscriptionID).Error
}

func (r *UserRepository) ExistsByID(telegramID int64) (bool, error) {
	var count int64
	err := r.db.Model(&model.User{}).Where("telegram_id = ?", telegramID).Count(&count).Error
	return count > 0, err
}
