package repository

import (
	"gorm.io/gorm"

	"github.com/nyxv/vpn_bot_server/internal/model"
)

type PlanRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

func (r *PlanRepository) Create(plan *model.Plan) error {
	return r.db.Create(plan).Error
}

func (r *PlanRepository) GetByID(id int64) (*model.Plan, error) {
	var plan model.Plan
	err := r.db.Where("id = ?", id).First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// GetAll 目录全量，按 id 排序，保证“取第一个匹配”语义稳定
func (r *PlanRepository) GetAll() ([]*model.Plan, error) {
	var plans []*model.Plan
	err := r.db.Order("id").Find(&plans).Error
	return plans, err
}

func (r *PlanRepository) GetActive() ([]*model.Plan, error) {
	var plans []*model.Plan
	err := r.db.Where("is_active = ?", true).Order("id").Find(&plans).Error
	return plans, err
}
