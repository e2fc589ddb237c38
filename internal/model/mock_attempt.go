package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// AnswerList 按题序的选项下标，-1 表示未作答。以 JSON 存库
type AnswerList []int

func (a AnswerList) Value() (driver.Value, error) {
	if a == nil {
		a = AnswerList{}
	}
	return json.Marshal(a)
}

func (a *AnswerList) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	case nil:
		*a = AnswerList{}
		return nil
	default:
		return errors.New("unsupported answer list column type")
	}
}

// Clone 返回独立副本，避免会话内存与落库数据互相串改
func (a AnswerList) Clone() AnswerList {
	out := make(AnswerList, len(a))
	copy(out, a)
	return out
}

// MockAttempt 一次已提交的测试记录，(test, user) 唯一，重复提交走 upsert 覆盖
// swagger:model MockAttempt
type MockAttempt struct {
	UUIDBase
	TestID      string     `gorm:"uniqueIndex:idx_test_user;type:varchar(36);not null" json:"testId"`
	UserID      uint       `gorm:"uniqueIndex:idx_test_user;type:bigint unsigned;not null" json:"userId"`
	Answers     AnswerList `gorm:"type:json" json:"answers"`
	Score       int        `gorm:"not null" json:"score"`
	Total       int        `gorm:"not null" json:"total"`
	SubmittedAt time.Time  `json:"submittedAt"`
}

func (MockAttempt) TableName() string {
	return "mock_attempts"
}
