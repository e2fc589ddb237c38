package model

// Material 学习资料文件，内容存放在对象存储，行里只记元数据
// swagger:model Material
type Material struct {
	UUIDBase
	CategoryID  string    `gorm:"index;type:varchar(36);not null" json:"categoryId"`
	Category    *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	FilePath    string    `gorm:"size:512;not null" json:"-"`
	MimeType    string    `gorm:"size:100" json:"mimeType"`
	SizeBytes   int64     `gorm:"default:0" json:"sizeBytes"`
}

func (Material) TableName() string {
	return "materials"
}
