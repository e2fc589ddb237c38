package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/SonetShaji6/quicklearn/internal/config"
	"github.com/SonetShaji6/quicklearn/internal/model"
	"github.com/SonetShaji6/quicklearn/internal/repository"
	"github.com/SonetShaji6/quicklearn/internal/util"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// 缴费凭证限制：5MB，图片或 PDF
const maxPaymentProofSize = 5 << 20

var paymentProofMimeTypes = []string{"image/png", "image/jpeg", util.MimePDF}

type AuthService struct {
	UserRepo *repository.UserRepository
	Storage  *StorageService
	Cfg      *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, storage *StorageService, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		Storage:  storage,
		Cfg:      cfg,
	}
}

type RegisterReq struct {
	Name     string `form:"name" binding:"required"`
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required,min=6"`
	College  string `form:"college"`
	Degree   string `form:"degree"`
	Phone    string `form:"phone"`
}

// Register 注册后账号处于 pending 状态，等管理员核验缴费凭证后放行
func (s *AuthService) Register(ctx context.Context, req RegisterReq, proof *multipart.FileHeader) (*model.User, error) {
	_, err := s.UserRepo.FindByEmail(req.Email)
	if err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	proofPath, err := s.storePaymentProof(ctx, proof)
	if err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:         req.Name,
		Email:        strings.ToLower(req.Email),
		Password:     string(hashedPassword),
		College:      req.College,
		Degree:       req.Degree,
		Phone:        req.Phone,
		PaymentProof: proofPath,
		Status:       model.StatusPending,
		Role:         model.Student,
	}
	if err := s.UserRepo.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) storePaymentProof(ctx context.Context, proof *multipart.FileHeader) (string, error) {
	if proof == nil {
		return "", errors.New("payment proof is required")
	}
	if proof.Size > maxPaymentProofSize {
		return "", errors.New("payment proof exceeds 5MB")
	}

	// 先嗅探 MIME，再重新打开上传，ValidateMimeType 会消耗读取位置
	sniff, err := proof.Open()
	if err != nil {
		return "", err
	}
	contentType, err := util.ValidateMimeType(sniff, paymentProofMimeTypes)
	sniff.Close()
	if err != nil {
		return "", err
	}

	src, err := proof.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	return s.Storage.UploadUnique(ctx, "payment-proofs", proof.Filename, src, proof.Size, contentType)
}

type LoginResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Login 仅 approved 账号可登录；管理员角色由配置中的邮箱白名单决定
func (s *AuthService) Login(email, password string) (*LoginResult, error) {
	user, err := s.UserRepo.FindByEmail(strings.ToLower(email))
	if err != nil {
		return nil, util.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, util.ErrInvalidCredentials
	}

	switch user.Status {
	case model.StatusPending:
		return nil, util.ErrAccountPending
	case model.StatusApproved:
	default:
		return nil, util.ErrAccountNotApproved
	}

	role := user.Role
	if s.isAdminEmail(user.Email) {
		role = model.Admin
	}

	token, err := util.GenerateJWT(user, role, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Token: token, User: user}, nil
}

func (s *AuthService) isAdminEmail(email string) bool {
	for _, e := range s.Cfg.Admin.Emails {
		if strings.EqualFold(e, email) {
			return true
		}
	}
	return false
}

func (s *AuthService) GetCurrentUser(c *gin.Context) *model.User {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		return nil
	}

	user, _ := s.UserRepo.FindByID(claims.UserID)
	return user
}
