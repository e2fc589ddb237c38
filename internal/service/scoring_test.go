package service

import (
	"reflect"
	"testing"
	"time"

	"github.com/SonetShaji6/quicklearn/internal/model"
)

func questionsWithKeys(keys ...int) []model.MockQuestion {
	qs := make([]model.MockQuestion, len(keys))
	for i, k := range keys {
		qs[i] = model.MockQuestion{
			Text:         "q",
			OptionA:      "a",
			OptionB:      "b",
			OptionC:      "c",
			OptionD:      "d",
			CorrectIndex: k,
			Position:     i,
		}
	}
	return qs
}

func TestScoreAnswers(t *testing.T) {
	tests := []struct {
		name    string
		keys    []int
		answers []int
		want    int
	}{
		{"all correct", []int{0, 1, 2, 3}, []int{0, 1, 2, 3}, 4},
		{"all wrong", []int{0, 1, 2, 3}, []int{1, 2, 3, 0}, 0},
		{"partial", []int{0, 2}, []int{0, 1}, 1},
		{"unanswered never scores", []int{0, 1}, []int{-1, -1}, 0},
		{"mixed unanswered", []int{0, 1, 2}, []int{0, -1, 2}, 2},
		{"short answer slice", []int{0, 1, 2}, []int{0}, 1},
		{"empty answers", []int{0, 1}, nil, 0},
		{"no questions", nil, []int{0, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreAnswers(questionsWithKeys(tt.keys...), tt.answers)
			if got != tt.want {
				t.Errorf("ScoreAnswers() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNormalizeAnswers(t *testing.T) {
	tests := []struct {
		name    string
		answers []int
		count   int
		want    model.AnswerList
	}{
		{"nil pads to unanswered", nil, 3, model.AnswerList{-1, -1, -1}},
		{"keeps valid values", []int{0, 3}, 2, model.AnswerList{0, 3}},
		{"pads missing tail", []int{2}, 3, model.AnswerList{2, -1, -1}},
		{"truncates extra", []int{0, 1, 2, 3}, 2, model.AnswerList{0, 1}},
		{"out of range becomes unanswered", []int{4, -2, 1}, 3, model.AnswerList{-1, -1, 1}},
		{"zero questions", []int{0}, 0, model.AnswerList{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeAnswers(tt.answers, tt.count)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeAnswers() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildReview(t *testing.T) {
	test := &model.MockTest{
		Title:     "Sample",
		Questions: questionsWithKeys(0, 2, 1),
	}
	test.ID = "t1"

	submittedAt := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	attempt := &model.MockAttempt{
		TestID:      "t1",
		UserID:      7,
		Answers:     model.AnswerList{0, 1, -1},
		Score:       1,
		Total:       3,
		SubmittedAt: submittedAt,
	}

	review := BuildReview(test, attempt)

	if review.TestID != "t1" || review.Score != 1 || review.Total != 3 {
		t.Fatalf("unexpected review header: %+v", review)
	}
	if !review.SubmittedAt.Equal(submittedAt) {
		t.Errorf("SubmittedAt = %v, want %v", review.SubmittedAt, submittedAt)
	}
	if len(review.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(review.Items))
	}

	wantResults := []string{ResultCorrect, ResultIncorrect, ResultUnanswered}
	for i, want := range wantResults {
		if review.Items[i].Result != want {
			t.Errorf("item %d result = %s, want %s", i, review.Items[i].Result, want)
		}
	}

	// 第二题：选了 B，正确答案是 C
	item := review.Items[1]
	if item.ChosenIndex != 1 || item.CorrectIndex != 2 {
		t.Errorf("item 1 chosen/correct = %d/%d, want 1/2", item.ChosenIndex, item.CorrectIndex)
	}
	if !item.Options[1].IsChosen || item.Options[1].IsCorrect {
		t.Errorf("option B flags = %+v", item.Options[1])
	}
	if !item.Options[2].IsCorrect || item.Options[2].IsChosen {
		t.Errorf("option C flags = %+v", item.Options[2])
	}
	if item.Options[0].Label != "A" || item.Options[3].Label != "D" {
		t.Errorf("option labels = %s..%s", item.Options[0].Label, item.Options[3].Label)
	}
}

func TestBuildReviewShortAnswerList(t *testing.T) {
	test := &model.MockTest{Questions: questionsWithKeys(1, 1)}
	attempt := &model.MockAttempt{Answers: model.AnswerList{1}, Score: 1, Total: 2}

	review := BuildReview(test, attempt)
	if review.Items[1].Result != ResultUnanswered {
		t.Errorf("missing answer should read unanswered, got %s", review.Items[1].Result)
	}
}
