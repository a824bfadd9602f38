package repository

import (
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/nyxv/vpn_bot_server/internal/model"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(sub *model.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *SubscriptionRepository) GetByID(id int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Where("id = ?", id).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) GetAll() ([]*model.Subscription, error) {
	var subs []*model.Subscription
	err := r.db.Order("id").Find(&subs).Error
	return subs, err
}

func (r *SubscriptionRepository) GetAllByUser(telegramID int64) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	err := r.db.Where("user_telegram_id = ?", telegramID).Order("id").Find(&subs).Error
	return subs, err
}

// jsonColumns 模型上声明为 serializer:json 的列。
// map 形式的 Updates 不走模型序列化器，这些列要先行编码。
var jsonColumns = map[string]bool{
	"plan":            true,
	"internal_squads": true,
}

// UpdateFields 部分字段更新，返回受影响行数以便区分“未找到”
func (r *SubscriptionRepository) UpdateFields(id int64, fields map[string]interface{}) (int64, error) {
	encoded := make(map[string]interface{}, len(fields))
	for column, value := range fields {
		if jsonColumns[column] {
			data, err := json.Marshal(value)
			if err != nil {
				return 0, fmt.Errorf("failed to encode column %q: %w", column, err)
			}
			encoded[column] = string(data)
			continue
		}
		encoded[column] = value
	}

	result := r.db.Model(&model.Subscription{}).Where("id = ?", id).Updates(encoded)
	return result.RowsAffected, result.Error
}

func (r *SubscriptionRepository) FilterByPlanID(planID int64) ([]*model.Subscription, error) {
	var subs []*model.Subscription
	err := r.db.Where("plan_id = ?", planID).Order("id").Find(&subs).Error
	return subs, err
}

func (r *SubscriptionRepository) CountByUser(telegramID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.Subscription{}).
		Where("user_telegram_id = ?", telegramID).
		Count(&count).Error
	return count, err
}

// CountUsedTrialsByUser 统计已消耗的试用订阅。
// 状态为 DELETED 的试用不计入，删除试用即恢复试用资格。
func (r *SubscriptionRepository) CountUsedTrialsByUser(telegramID int64) (int64, error) {
	var count int64
	err := r.db.Model(&model.Subscription{}).
		Where("user_telegram_id = ? AND is_trial = ? AND status <> ?",
			telegramID, true, model.SubscriptionStatusDeleted).
		Count(&count).Error
	return count, err
}
