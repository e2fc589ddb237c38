package repository

import (
	"errors"

	"github.com/SonetShaji6/quicklearn/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

// Upsert 以 (test_id, user_id) 为键插入或覆盖，重复提交不会产生第二条记录
func (r *AttemptRepository) Upsert(attempt *model.MockAttempt) error {
	if attempt.ID == "" {
		attempt.ID = model.GenerateUUID()
	}
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "test_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"answers", "score", "total", "submitted_at", "updated_at"}),
	}).Create(attempt).Error
}

func (r *AttemptRepository) FindByUserAndTest(userID uint, testID string) (*model.MockAttempt, error) {
	var attempt model.MockAttempt
	err := r.DB.Where("user_id = ? AND test_id = ?", userID, testID).First(&attempt).Error
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// Exists 是否已有该用户在该卷上的提交记录
func (r *AttemptRepository) Exists(userID uint, testID string) (bool, error) {
	_, err := r.FindByUserAndTest(userID, testID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

func (r *AttemptRepository) ListByUser(userID uint) ([]model.MockAttempt, error) {
	var attempts []model.MockAttempt
	err := r.DB.Where("user_id = ?", userID).Order("submitted_at desc").Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) ListByTest(testID string, page, limit int) ([]map[string]interface{}, int64, error) {
	var total int64
	query := r.DB.Table("mock_attempts a").
		Select("a.*, u.name as user_name, u.email as user_email").
		Joins("JOIN users u ON a.user_id = u.id").
		Where("a.test_id = ? AND a.deleted_at IS NULL", testID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var results []map[string]interface{}
	offset := (page - 1) * limit
	err := query.Order("a.submitted_at desc").Offset(offset).Limit(limit).Scan(&results).Error
	return results, total, err
}
