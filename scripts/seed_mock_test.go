// 手动导入模拟测试卷面脚本
//
// 从 yaml 卷面文件批量建卷建题，适合首次部署或集中录题后一次性导入。
//
// 用法: go run scripts/seed_mock_test.go testdata/sample_test.yaml

package main

import (
	"log"
	"os"
	"time"

	"github.com/SonetShaji6/quicklearn/internal/config"
	"github.com/SonetShaji6/quicklearn/internal/model"
	"github.com/SonetShaji6/quicklearn/pkg/database"
	"github.com/SonetShaji6/quicklearn/pkg/logger"

	"gopkg.in/yaml.v3"
)

type seedQuestion struct {
	Text         string `yaml:"text"`
	OptionA      string `yaml:"optionA"`
	OptionB      string `yaml:"optionB"`
	OptionC      string `yaml:"optionC"`
	OptionD      string `yaml:"optionD"`
	CorrectIndex int    `yaml:"correctIndex"`
}

type seedTest struct {
	Title           string         `yaml:"title"`
	Category        string         `yaml:"category"`
	DurationMinutes int            `yaml:"durationMinutes"`
	StartAt         time.Time      `yaml:"startAt"`
	Questions       []seedQuestion `yaml:"questions"`
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("用法: go run scripts/seed_mock_test.go <卷面yaml文件>")
	}

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatalf("无法读取卷面文件: %v", err)
	}

	var seeds []seedTest
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		log.Fatalf("解析卷面文件失败: %v", err)
	}

	for _, seed := range seeds {
		var category model.Category
		if err := db.Where("name = ?", seed.Category).First(&category).Error; err != nil {
			log.Fatalf("分类 %q 不存在: %v", seed.Category, err)
		}

		if seed.DurationMinutes <= 0 {
			log.Fatalf("卷面 %q 时长非法: %d", seed.Title, seed.DurationMinutes)
		}

		test := model.MockTest{
			Title:           seed.Title,
			CategoryID:      category.ID,
			DurationMinutes: seed.DurationMinutes,
			StartAt:         seed.StartAt,
		}
		if err := db.Create(&test).Error; err != nil {
			log.Fatalf("建卷失败 %q: %v", seed.Title, err)
		}

		for i, q := range seed.Questions {
			if q.CorrectIndex < 0 || q.CorrectIndex > 3 {
				log.Fatalf("卷面 %q 第 %d 题 correctIndex 非法: %d", seed.Title, i+1, q.CorrectIndex)
			}
			question := model.MockQuestion{
				TestID:       test.ID,
				Text:         q.Text,
				OptionA:      q.OptionA,
				OptionB:      q.OptionB,
				OptionC:      q.OptionC,
				OptionD:      q.OptionD,
				CorrectIndex: q.CorrectIndex,
				Position:     i,
			}
			if err := db.Create(&question).Error; err != nil {
				log.Fatalf("建题失败 %q/%d: %v", seed.Title, i+1, err)
			}
		}

		log.Printf("已导入卷面 %q（%d 题）", seed.Title, len(seed.Questions))
	}
}
