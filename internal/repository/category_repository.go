package repository

import (
	"github.com/SonetShaji6/quicklearn/internal/model"

	"gorm.io/gorm"
)

type CategoryRepository struct {
	DB *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{DB: db}
}

func (r *CategoryRepository) Create(category *model.Category) error {
	return r.DB.Create(category).Error
}

func (r *CategoryRepository) FindByID(id string) (*model.Category, error) {
	var category model.Category
	err := r.DB.First(&category, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *CategoryRepository) Update(category *model.Category) error {
	return r.DB.Save(category).Error
}

func (r *CategoryRepository) Delete(id string) error {
	return r.DB.Delete(&model.Category{}, "id = ?", id).Error
}

func (r *CategoryRepository) List() ([]model.Category, error) {
	var categories []model.Category
	err := r.DB.Order("name asc").Find(&categories).Error
	return categories, err
}

// CountReferences 该分类下课程与资料的数量，用于删除前检查
func (r *CategoryRepository) CountReferences(categoryID string) (int64, error) {
	var lessons, materials int64
	if err := r.DB.Model(&model.Lesson{}).Where("category_id = ?", categoryID).Count(&lessons).Error; err != nil {
		return 0, err
	}
	if err := r.DB.Model(&model.Material{}).Where("category_id = ?", categoryID).Count(&materials).Error; err != nil {
		return 0, err
	}
	return lessons + materials, nil
}
