package service

import (
	"time"

	"github.com/SonetShaji6/quicklearn/internal/model"
)

// Unanswered 答案数组中的占位值，表示该题未作答
const Unanswered = -1

const (
	ResultCorrect    = "correct"
	ResultIncorrect  = "incorrect"
	ResultUnanswered = "unanswered"
)

// ScoreAnswers 按位比对答案与标准答案，返回答对题数。
// 未作答(-1)与越界下标都不计分；答案数组短于题目数时，缺位按未作答处理
func ScoreAnswers(questions []model.MockQuestion, answers []int) int {
	score := 0
	for i, q := range questions {
		if i >= len(answers) {
			break
		}
		if answers[i] == q.CorrectIndex {
			score++
		}
	}
	return score
}

// NormalizeAnswers 把答案数组对齐到题目数：缺位补 -1，越界值归为 -1，多余截断
func NormalizeAnswers(answers []int, questionCount int) model.AnswerList {
	out := make(model.AnswerList, questionCount)
	for i := range out {
		out[i] = Unanswered
		if i < len(answers) && answers[i] >= 0 && answers[i] <= 3 {
			out[i] = answers[i]
		}
	}
	return out
}

type ReviewOption struct {
	Label     string `json:"label"` // A/B/C/D
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
	IsChosen  bool   `json:"isChosen"`
}

type ReviewItem struct {
	QuestionID   string         `json:"questionId"`
	Text         string         `json:"text"`
	Result       string         `json:"result"` // correct / incorrect / unanswered
	ChosenIndex  int            `json:"chosenIndex"`
	CorrectIndex int            `json:"correctIndex"`
	Options      []ReviewOption `json:"options"`
}

type Review struct {
	TestID      string       `json:"testId"`
	Title       string       `json:"title"`
	Score       int          `json:"score"`
	Total       int          `json:"total"`
	SubmittedAt time.Time    `json:"submittedAt"`
	Items       []ReviewItem `json:"items"`
}

// BuildReview 由已提交记录和卷面重建只读的回顾视图。
// 结果完全由数据推导，不重新计算任何会话状态
func BuildReview(test *model.MockTest, attempt *model.MockAttempt) *Review {
	labels := [4]string{"A", "B", "C", "D"}

	items := make([]ReviewItem, len(test.Questions))
	for i, q := range test.Questions {
		chosen := Unanswered
		if i < len(attempt.Answers) {
			chosen = attempt.Answers[i]
		}

		result := ResultUnanswered
		if chosen != Unanswered {
			if chosen == q.CorrectIndex {
				result = ResultCorrect
			} else {
				result = ResultIncorrect
			}
		}

		opts := q.Options()
		options := make([]ReviewOption, len(opts))
		for j, text := range opts {
			options[j] = ReviewOption{
				Label:     labels[j],
				Text:      text,
				IsCorrect: j == q.CorrectIndex,
				IsChosen:  j == chosen,
			}
		}

		items[i] = ReviewItem{
			QuestionID:   q.ID,
			Text:         q.Text,
			Result:       result,
			ChosenIndex:  chosen,
			CorrectIndex: q.CorrectIndex,
			Options:      options,
		}
	}

	return &Review{
		TestID:      test.ID,
		Title:       test.Title,
		Score:       attempt.Score,
		Total:       attempt.Total,
		SubmittedAt: attempt.SubmittedAt,
		Items:       items,
	}
}
