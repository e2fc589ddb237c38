package model

import "time"

// Lesson 视频课，播放源为外部 YouTube 链接
// swagger:model Lesson
type Lesson struct {
	UUIDBase
	CategoryID  string    `gorm:"index;type:varchar(36);not null" json:"categoryId"`
	Category    *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Duration    string    `gorm:"size:20" json:"duration"`
	PlaybackURL string    `gorm:"size:512;not null" json:"playbackUrl"`
	Order       int       `gorm:"default:0" json:"order"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// LessonProgress 学生观看进度，(user, lesson) 唯一
type LessonProgress struct {
	BaseModel
	UserID      uint       `gorm:"uniqueIndex:idx_user_lesson;type:bigint unsigned" json:"userId"`
	LessonID    string     `gorm:"uniqueIndex:idx_user_lesson;type:varchar(36)" json:"lessonId"`
	Completed   bool       `gorm:"default:false" json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func (LessonProgress) TableName() string {
	return "lesson_progress"
}
