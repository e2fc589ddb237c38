package repository

import (
	"github.com/SonetShaji6/quicklearn/internal/model"

	"gorm.io/gorm"
)

type MockTestRepository struct {
	DB *gorm.DB
}

func NewMockTestRepository(db *gorm.DB) *MockTestRepository {
	return &MockTestRepository{DB: db}
}

func (r *MockTestRepository) CreateTest(test *model.MockTest) error {
	return r.DB.Create(test).Error
}

func (r *MockTestRepository) FindTestByID(id string) (*model.MockTest, error) {
	var test model.MockTest
	err := r.DB.Preload("Category").First(&test, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &test, nil
}

// FindTestWithQuestions 按题序加载整张卷子，供会话与评分使用
func (r *MockTestRepository) FindTestWithQuestions(id string) (*model.MockTest, error) {
	var test model.MockTest
	err := r.DB.Preload("Category").
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc, created_at asc")
		}).
		First(&test, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &test, nil
}

func (r *MockTestRepository) UpdateTest(test *model.MockTest) error {
	return r.DB.Save(test).Error
}

func (r *MockTestRepository) DeleteTest(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("test_id = ?", id).Delete(&model.MockQuestion{}).Error; err != nil {
			return err
		}
		if err := tx.Where("test_id = ?", id).Delete(&model.MockAttempt{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.MockTest{}, "id = ?", id).Error
	})
}

// ListTests 按创建时间倒序，附带题目数
type MockTestListRow struct {
	model.MockTest
	QuestionCount int `json:"questionCount"`
	AttemptCount  int `json:"attemptCount"`
}

func (r *MockTestRepository) ListTests(page, limit int) ([]MockTestListRow, int64, error) {
	var total int64
	if err := r.DB.Model(&model.MockTest{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tests []MockTestListRow
	dbQuery := r.DB.Table("mock_tests t").
		Select("t.*, " +
			"(SELECT COUNT(*) FROM mock_questions q WHERE q.test_id = t.id AND q.deleted_at IS NULL) as question_count, " +
			"(SELECT COUNT(*) FROM mock_attempts a WHERE a.test_id = t.id AND a.deleted_at IS NULL) as attempt_count").
		Where("t.deleted_at IS NULL")

	if limit > 0 {
		offset := (page - 1) * limit
		dbQuery = dbQuery.Offset(offset).Limit(limit)
	}

	err := dbQuery.Order("t.created_at desc").Scan(&tests).Error
	return tests, total, err
}

// ListAllWithQuestions 全量卷子（含题目），学生侧的可参加过滤在服务层做
func (r *MockTestRepository) ListAllWithQuestions() ([]model.MockTest, error) {
	var tests []model.MockTest
	err := r.DB.Preload("Category").
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc, created_at asc")
		}).
		Order("start_at asc").Find(&tests).Error
	return tests, err
}

func (r *MockTestRepository) CreateQuestion(question *model.MockQuestion) error {
	return r.DB.Create(question).Error
}

func (r *MockTestRepository) DeleteQuestion(id string) error {
	return r.DB.Delete(&model.MockQuestion{}, "id = ?", id).Error
}

func (r *MockTestRepository) ListQuestions(testID string) ([]model.MockQuestion, error) {
	var questions []model.MockQuestion
	err := r.DB.Where("test_id = ?", testID).Order("position asc, created_at asc").Find(&questions).Error
	return questions, err
}
