package repository

import (
	"github.com/SonetShaji6/quicklearn/internal/model"

	"gorm.io/gorm"
)

type MaterialRepository struct {
	DB *gorm.DB
}

func NewMaterialRepository(db *gorm.DB) *MaterialRepository {
	return &MaterialRepository{DB: db}
}

func (r *MaterialRepository) Create(material *model.Material) error {
	return r.DB.Create(material).Error
}

func (r *MaterialRepository) FindByID(id string) (*model.Material, error) {
	var material model.Material
	err := r.DB.First(&material, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &material, nil
}

func (r *MaterialRepository) Delete(id string) error {
	return r.DB.Delete(&model.Material{}, "id = ?", id).Error
}

func (r *MaterialRepository) ListByCategory(categoryID string) ([]model.Material, error) {
	var materials []model.Material
	err := r.DB.Where("category_id = ?", categoryID).Order("created_at desc").Find(&materials).Error
	return materials, err
}

func (r *MaterialRepository) ListAll() ([]model.Material, error) {
	var materials []model.Material
	err := r.DB.Order("created_at desc").Find(&materials).Error
	return materials, err
}
