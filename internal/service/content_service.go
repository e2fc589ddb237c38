package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/url"
	"time"

	"github.com/SonetShaji6/quicklearn/internal/config"
	"github.com/SonetShaji6/quicklearn/internal/model"
	"github.com/SonetShaji6/quicklearn/internal/repository"
	"github.com/SonetShaji6/quicklearn/internal/util"
	"github.com/SonetShaji6/quicklearn/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	cacheKeyCategories = "ql:cache:categories"
	cacheKeyLessons    = "ql:cache:lessons"
	cacheKeyMaterials  = "ql:cache:materials"
)

// ContentService 课程目录：分类、视频课、学习资料。
// 列表读多写少，用 Redis 做短 TTL 缓存，管理员写操作时整体失效
type ContentService struct {
	Categories *repository.CategoryRepository
	Lessons    *repository.LessonRepository
	Materials  *repository.MaterialRepository
	Storage    *StorageService
	Redis      *redis.Client

	cacheTTL time.Duration
}

func NewContentService(
	categories *repository.CategoryRepository,
	lessons *repository.LessonRepository,
	materials *repository.MaterialRepository,
	storage *StorageService,
	rdb *redis.Client,
	cfg *config.Config,
) *ContentService {
	ttl := time.Duration(cfg.MockTest.ContentCacheSeconds) * time.Second
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &ContentService{
		Categories: categories,
		Lessons:    lessons,
		Materials:  materials,
		Storage:    storage,
		Redis:      rdb,
		cacheTTL:   ttl,
	}
}

// 缓存只是加速，读写失败都降级到数据库
func cachedList[T any](ctx context.Context, rdb *redis.Client, key string, ttl time.Duration, load func() ([]T, error)) ([]T, error) {
	if rdb != nil {
		if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
			var out []T
			if err := json.Unmarshal(raw, &out); err == nil {
				return out, nil
			}
		}
	}

	out, err := load()
	if err != nil {
		return nil, err
	}

	if rdb != nil {
		if raw, err := json.Marshal(out); err == nil {
			if err := rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
				logger.Log.Warn("缓存写入失败", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return out, nil
}

func (s *ContentService) invalidate(ctx context.Context, keys ...string) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(ctx, keys...).Err(); err != nil {
		logger.Log.Warn("缓存失效失败", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (s *ContentService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return cachedList(ctx, s.Redis, cacheKeyCategories, s.cacheTTL, s.Categories.List)
}

type CategoryReq struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (s *ContentService) CreateCategory(ctx context.Context, req CategoryReq) (*model.Category, error) {
	category := &model.Category{Name: req.Name, Description: req.Description}
	if err := s.Categories.Create(category); err != nil {
		return nil, err
	}
	s.invalidate(ctx, cacheKeyCategories)
	return category, nil
}

func (s *ContentService) UpdateCategory(ctx context.Context, id string, req CategoryReq) (*model.Category, error) {
	category, err := s.Categories.FindByID(id)
	if err != nil {
		return nil, err
	}
	category.Name = req.Name
	category.Description = req.Description
	if err := s.Categories.Update(category); err != nil {
		return nil, err
	}
	s.invalidate(ctx, cacheKeyCategories)
	return category, nil
}

// DeleteCategory 仍被课程或资料引用的分类不允许删除
func (s *ContentService) DeleteCategory(ctx context.Context, id string) error {
	refs, err := s.Categories.CountReferences(id)
	if err != nil {
		return err
	}
	if refs > 0 {
		return util.ErrCategoryInUse
	}
	if err := s.Categories.Delete(id); err != nil {
		return err
	}
	s.invalidate(ctx, cacheKeyCategories)
	return nil
}

type LessonReq struct {
	CategoryID  string `json:"categoryId" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Duration    string `json:"duration"`
	PlaybackURL string `json:"playbackUrl" binding:"required"`
	Order       int    `json:"order"`
}

func validatePlaybackURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("playbackUrl must be a valid http(s) URL")
	}
	if !util.IsYouTubeURL(u.Host) {
		return errors.New("playbackUrl must be a YouTube link")
	}
	return nil
}

func (s *ContentService) CreateLesson(ctx context.Context, req LessonReq) (*model.Lesson, error) {
	if err := validatePlaybackURL(req.PlaybackURL); err != nil {
		return nil, err
	}
	if _, err := s.Categories.FindByID(req.CategoryID); err != nil {
		return nil, fmt.Errorf("category not found: %w", err)
	}

	lesson := &model.Lesson{
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Description: req.Description,
		Duration:    req.Duration,
		PlaybackURL: req.PlaybackURL,
		Order:       req.Order,
	}
	if err := s.Lessons.Create(lesson); err != nil {
		return nil, err
	}
	s.invalidate(ctx, cacheKeyLessons)
	return lesson, nil
}

func (s *ContentService) UpdateLesson(ctx context.Context, id string, req LessonReq) (*model.Lesson, error) {
	if err := validatePlaybackURL(req.PlaybackURL); err != nil {
		return nil, err
	}
	lesson, err := s.Lessons.FindByID(id)
	if err != nil {
		return nil, err
	}

	lesson.CategoryID = req.CategoryID
	lesson.Title = req.Title
	lesson.Description = req.Description
	lesson.Duration = req.Duration
	lesson.PlaybackURL = req.PlaybackURL
	lesson.Order = req.Order
	if err := s.Lessons.Update(lesson); err != nil {
		return nil, err
	}
	s.invalidate(ctx, cacheKeyLessons)
	return lesson, nil
}

func (s *ContentService) DeleteLesson(ctx context.Context, id string) error {
	if err := s.Lessons.Delete(id); err != nil {
		return err
	}
	s.invalidate(ctx, cacheKeyLessons)
	return nil
}

// LessonView 学生侧课程视图，带本人完成标记
type LessonView struct {
	model.Lesson
	Completed bool `json:"completed"`
}

func (s *ContentService) ListLessons(ctx context.Context, userID uint, categoryID string) ([]LessonView, error) {
	var (
		lessons []model.Lesson
		err     error
	)
	if categoryID != "" {
		lessons, err = s.Lessons.ListByCategory(categoryID)
	} else {
		lessons, err = cachedList(ctx, s.Redis, cacheKeyLessons, s.cacheTTL, s.Lessons.ListAll)
	}
	if err != nil {
		return nil, err
	}

	progress, err := s.Lessons.ListProgress(userID)
	if err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(progress))
	for _, p := range progress {
		done[p.LessonID] = p.Completed
	}

	out := make([]LessonView, len(lessons))
	for i, l := range lessons {
		out[i] = LessonView{Lesson: l, Completed: done[l.ID]}
	}
	return out, nil
}

func (s *ContentService) MarkLessonComplete(userID uint, lessonID string) error {
	if _, err := s.Lessons.FindByID(lessonID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("lesson not found")
		}
		return err
	}
	return s.Lessons.MarkComplete(userID, lessonID)
}

type MaterialReq struct {
	CategoryID  string `form:"categoryId" binding:"required"`
	Title       string `form:"title" binding:"required"`
	Description string `form:"description"`
}

// 学习资料上限 50MB
const maxMaterialSize = 50 << 20

// UploadMaterial 资料文件入对象存储，行里只存路径和元数据
func (s *ContentService) UploadMaterial(ctx context.Context, req MaterialReq, file *multipart.FileHeader) (*model.Material, error) {
	if file == nil {
		return nil, errors.New("material file is required")
	}
	if file.Size > maxMaterialSize {
		return nil, errors.New("material exceeds 50MB")
	}
	if _, err := s.Categories.FindByID(req.CategoryID); err != nil {
		return nil, fmt.Errorf("category not found: %w", err)
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = util.MimeOctetStream
	}

	path, err := s.Storage.UploadUnique(ctx, "materials", file.Filename, src, file.Size, contentType)
	if err != nil {
		return nil, err
	}

	material := &model.Material{
		CategoryID:  req.CategoryID,
		Title:       req.Title,
		Description: req.Description,
		FilePath:    path,
		MimeType:    contentType,
		SizeBytes:   file.Size,
	}
	if err := s.Materials.Create(material); err != nil {
		return nil, err
	}
	s.invalidate(ctx, cacheKeyMaterials)
	return material, nil
}

func (s *ContentService) DeleteMaterial(ctx context.Context, id string) error {
	material, err := s.Materials.FindByID(id)
	if err != nil {
		return err
	}
	if err := s.Materials.Delete(id); err != nil {
		return err
	}
	if err := s.Storage.Delete(ctx, material.FilePath); err != nil {
		logger.Log.Warn("删除资料文件失败", zap.String("path", material.FilePath), zap.Error(err))
	}
	s.invalidate(ctx, cacheKeyMaterials)
	return nil
}

func (s *ContentService) ListMaterials(ctx context.Context, categoryID string) ([]model.Material, error) {
	if categoryID != "" {
		return s.Materials.ListByCategory(categoryID)
	}
	return cachedList(ctx, s.Redis, cacheKeyMaterials, s.cacheTTL, s.Materials.ListAll)
}

// MaterialDownloadURL 生成限时下载地址，文件本体不经过应用服务器
func (s *ContentService) MaterialDownloadURL(ctx context.Context, id string) (string, error) {
	material, err := s.Materials.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", errors.New("material not found")
		}
		return "", err
	}
	return s.Storage.SignedURL(ctx, material.FilePath)
}
