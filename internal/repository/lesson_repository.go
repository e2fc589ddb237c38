package repository

import (
	"time"

	"github.com/SonetShaji6/quicklearn/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LessonRepository struct {
	DB *gorm.DB
}

func NewLessonRepository(db *gorm.DB) *LessonRepository {
	return &LessonRepository{DB: db}
}

func (r *LessonRepository) Create(lesson *model.Lesson) error {
	return r.DB.Create(lesson).Error
}

func (r *LessonRepository) FindByID(id string) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.First(&lesson, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &lesson, nil
}

func (r *LessonRepository) Update(lesson *model.Lesson) error {
	return r.DB.Save(lesson).Error
}

func (r *LessonRepository) Delete(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lesson_id = ?", id).Delete(&model.LessonProgress{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Lesson{}, "id = ?", id).Error
	})
}

func (r *LessonRepository) ListByCategory(categoryID string) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.Where("category_id = ?", categoryID).Order("`order` asc, created_at asc").Find(&lessons).Error
	return lessons, err
}

func (r *LessonRepository) ListAll() ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.Order("`order` asc, created_at asc").Find(&lessons).Error
	return lessons, err
}

// MarkComplete 进度 upsert，(user, lesson) 唯一
func (r *LessonRepository) MarkComplete(userID uint, lessonID string) error {
	now := time.Now()
	progress := model.LessonProgress{
		UserID:      userID,
		LessonID:    lessonID,
		Completed:   true,
		CompletedAt: &now,
	}
	return r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"completed", "completed_at", "updated_at"}),
	}).Create(&progress).Error
}

func (r *LessonRepository) ListProgress(userID uint) ([]model.LessonProgress, error) {
	var progress []model.LessonProgress
	err := r.DB.Where("user_id = ?", userID).Find(&progress).Error
	return progress, err
}
