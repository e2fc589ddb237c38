package service

import (
	"errors"
	"time"

	"github.com/SonetShaji6/quicklearn/internal/model"
	"github.com/SonetShaji6/quicklearn/internal/repository"
	"github.com/SonetShaji6/quicklearn/internal/util"

	"gorm.io/gorm"
)

// MockTestService 卷面管理（管理员）与学生侧的可参加列表、回顾视图。
// 答题过程本身归 SessionEngine
type MockTestService struct {
	Repo     *repository.MockTestRepository
	Attempts *repository.AttemptRepository

	now func() time.Time
}

func NewMockTestService(repo *repository.MockTestRepository, attempts *repository.AttemptRepository) *MockTestService {
	return &MockTestService{Repo: repo, Attempts: attempts, now: time.Now}
}

type MockTestReq struct {
	Title           string    `json:"title" binding:"required"`
	CategoryID      string    `json:"categoryId" binding:"required"`
	DurationMinutes int       `json:"durationMinutes" binding:"required"`
	StartAt         time.Time `json:"startAt" binding:"required"`
}

type MockQuestionReq struct {
	Text         string `json:"text" binding:"required"`
	OptionA      string `json:"optionA" binding:"required"`
	OptionB      string `json:"optionB" binding:"required"`
	OptionC      string `json:"optionC" binding:"required"`
	OptionD      string `json:"optionD" binding:"required"`
	CorrectIndex int    `json:"correctIndex"`
	Position     int    `json:"position"`
}

func (s *MockTestService) CreateTest(req MockTestReq) (*model.MockTest, error) {
	if req.DurationMinutes <= 0 {
		return nil, errors.New("durationMinutes must be positive")
	}

	test := &model.MockTest{
		Title:           req.Title,
		CategoryID:      req.CategoryID,
		DurationMinutes: req.DurationMinutes,
		StartAt:         req.StartAt,
	}
	if err := s.Repo.CreateTest(test); err != nil {
		return nil, err
	}
	return test, nil
}

func (s *MockTestService) AddQuestion(testID string, req MockQuestionReq) (*model.MockQuestion, error) {
	if req.CorrectIndex < 0 || req.CorrectIndex > 3 {
		return nil, errors.New("correctIndex must be between 0 and 3")
	}
	if _, err := s.Repo.FindTestByID(testID); err != nil {
		return nil, util.ErrTestNotFound
	}

	question := &model.MockQuestion{
		TestID:       testID,
		Text:         req.Text,
		OptionA:      req.OptionA,
		OptionB:      req.OptionB,
		OptionC:      req.OptionC,
		OptionD:      req.OptionD,
		CorrectIndex: req.CorrectIndex,
		Position:     req.Position,
	}
	if err := s.Repo.CreateQuestion(question); err != nil {
		return nil, err
	}
	return question, nil
}

func (s *MockTestService) DeleteTest(testID string) error {
	return s.Repo.DeleteTest(testID)
}

func (s *MockTestService) DeleteQuestion(questionID string) error {
	return s.Repo.DeleteQuestion(questionID)
}

func (s *MockTestService) ListTests(page, limit int) ([]repository.MockTestListRow, int64, error) {
	return s.Repo.ListTests(page, limit)
}

// GetTest 管理端详情，含标准答案
func (s *MockTestService) GetTest(testID string) (*model.MockTest, error) {
	test, err := s.Repo.FindTestWithQuestions(testID)
	if err != nil {
		return nil, util.ErrTestNotFound
	}
	return test, nil
}

// StudentQuestion 下发给学生的题面。提交前不含 correctIndex
type StudentQuestion struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	OptionA  string `json:"optionA"`
	OptionB  string `json:"optionB"`
	OptionC  string `json:"optionC"`
	OptionD  string `json:"optionD"`
	Position int    `json:"position"`
}

type AttemptSummary struct {
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	SubmittedAt time.Time `json:"submittedAt"`
}

type StudentTest struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	CategoryName    string            `json:"categoryName"`
	DurationMinutes int               `json:"durationMinutes"`
	StartAt         time.Time         `json:"startAt"`
	QuestionCount   int               `json:"questionCount"`
	Questions       []StudentQuestion `json:"questions"`
	Attempt         *AttemptSummary   `json:"attempt,omitempty"`
}

// ListAttemptable 学生可见的卷子：已到 startAt 且至少有一道题。
// 零题或时长非法的卷在这里被静默过滤，不算运行错误
func (s *MockTestService) ListAttemptable(userID uint) ([]StudentTest, error) {
	tests, err := s.Repo.ListAllWithQuestions()
	if err != nil {
		return nil, err
	}

	attempts, err := s.Attempts.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	attemptMap := make(map[string]*model.MockAttempt, len(attempts))
	for i := range attempts {
		attemptMap[attempts[i].TestID] = &attempts[i]
	}

	now := s.now()
	out := make([]StudentTest, 0, len(tests))
	for i := range tests {
		t := &tests[i]
		if now.Before(t.StartAt) || len(t.Questions) == 0 || t.DurationMinutes <= 0 {
			continue
		}

		questions := make([]StudentQuestion, len(t.Questions))
		for j, q := range t.Questions {
			questions[j] = StudentQuestion{
				ID:       q.ID,
				Text:     q.Text,
				OptionA:  q.OptionA,
				OptionB:  q.OptionB,
				OptionC:  q.OptionC,
				OptionD:  q.OptionD,
				Position: q.Position,
			}
		}

		st := StudentTest{
			ID:              t.ID,
			Title:           t.Title,
			DurationMinutes: t.DurationMinutes,
			StartAt:         t.StartAt,
			QuestionCount:   len(t.Questions),
			Questions:       questions,
		}
		if t.Category != nil {
			st.CategoryName = t.Category.Name
		}
		if att, ok := attemptMap[t.ID]; ok {
			st.Attempt = &AttemptSummary{
				Score:       att.Score,
				Total:       att.Total,
				SubmittedAt: att.SubmittedAt,
			}
		}

		out = append(out, st)
	}

	return out, nil
}

// GetReview 已提交卷子的回顾视图，标准答案只在这里随已完成的记录下发
func (s *MockTestService) GetReview(userID uint, testID string) (*Review, error) {
	attempt, err := s.Attempts.FindByUserAndTest(userID, testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}

	test, err := s.Repo.FindTestWithQuestions(testID)
	if err != nil {
		return nil, util.ErrTestNotFound
	}

	return BuildReview(test, attempt), nil
}

func (s *MockTestService) ListAttempts(userID uint) ([]model.MockAttempt, error) {
	return s.Attempts.ListByUser(userID)
}

// ListTestAttempts 管理端查看一张卷的全部成绩，带考生姓名邮箱
func (s *MockTestService) ListTestAttempts(testID string, page, limit int) ([]map[string]interface{}, int64, error) {
	if _, err := s.Repo.FindTestByID(testID); err != nil {
		return nil, 0, util.ErrTestNotFound
	}
	return s.Attempts.ListByTest(testID, page, limit)
}
