package model

import "time"

// MockTest 模拟测试卷。startAt 之前对学生不可见，答题时长为 durationMinutes
// swagger:model MockTest
type MockTest struct {
	UUIDBase
	Title           string         `gorm:"size:255;not null" json:"title"`
	CategoryID      string         `gorm:"index;type:varchar(36);not null" json:"categoryId"`
	Category        *Category      `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	DurationMinutes int            `gorm:"not null" json:"durationMinutes"`
	StartAt         time.Time      `gorm:"not null" json:"startAt"`
	Questions       []MockQuestion `gorm:"foreignKey:TestID" json:"questions,omitempty"`
}

func (MockTest) TableName() string {
	return "mock_tests"
}

// Deadline 答题截止时刻（从给定开始时刻起算）
func (t *MockTest) Deadline(startedAt time.Time) time.Time {
	return startedAt.Add(time.Duration(t.DurationMinutes) * time.Minute)
}

// MockQuestion 四选一单选题。Position 决定题目顺序，答案数组按位对应
// swagger:model MockQuestion
type MockQuestion struct {
	UUIDBase
	TestID       string `gorm:"index;type:varchar(36);not null" json:"testId"`
	Text         string `gorm:"type:text;not null" json:"text"`
	OptionA      string `gorm:"type:text;not null" json:"optionA"`
	OptionB      string `gorm:"type:text;not null" json:"optionB"`
	OptionC      string `gorm:"type:text;not null" json:"optionC"`
	OptionD      string `gorm:"type:text;not null" json:"optionD"`
	CorrectIndex int    `gorm:"not null" json:"-"` // 0..3，提交前绝不下发给学生
	Position     int    `gorm:"default:0" json:"position"`
}

func (MockQuestion) TableName() string {
	return "mock_questions"
}

func (q *MockQuestion) Options() [4]string {
	return [4]string{q.OptionA, q.OptionB, q.OptionC, q.OptionD}
}
