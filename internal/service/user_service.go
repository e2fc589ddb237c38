package service

import (
	"context"
	"errors"

	"github.com/SonetShaji6/quicklearn/internal/model"
	"github.com/SonetShaji6/quicklearn/internal/repository"
	"github.com/SonetShaji6/quicklearn/internal/util"

	"gorm.io/gorm"
)

// UserService 管理员侧的账号审核
type UserService struct {
	UserRepo *repository.UserRepository
	Storage  *StorageService
}

func NewUserService(userRepo *repository.UserRepository, storage *StorageService) *UserService {
	return &UserService{UserRepo: userRepo, Storage: storage}
}

func (s *UserService) ListPending(page, limit int) ([]model.User, int64, error) {
	return s.UserRepo.ListByStatus(model.StatusPending, page, limit)
}

func (s *UserService) ListAll(page, limit int) ([]model.User, int64, error) {
	return s.UserRepo.List(page, limit)
}

func (s *UserService) Approve(userID uint) error {
	return s.setStatus(userID, model.StatusApproved)
}

func (s *UserService) Reject(userID uint) error {
	return s.setStatus(userID, model.StatusRejected)
}

func (s *UserService) setStatus(userID uint, status model.UserStatus) error {
	if _, err := s.UserRepo.FindByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrUserNotFound
		}
		return err
	}
	return s.UserRepo.UpdateStatus(userID, status)
}

// PaymentProofURL 给审核页生成凭证的限时下载地址
func (s *UserService) PaymentProofURL(ctx context.Context, userID uint) (string, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", util.ErrUserNotFound
		}
		return "", err
	}
	if user.PaymentProof == "" {
		return "", errors.New("user has no payment proof on file")
	}
	return s.Storage.SignedURL(ctx, user.PaymentProof)
}
