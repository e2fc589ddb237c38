package util

import "errors"

var (
	ErrUserNotFound        = errors.New("用户不存在")
	ErrEmailRegistered     = errors.New("该邮箱已被注册")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAccountPending      = errors.New("payment under verification, waiting for admin approval")
	ErrAccountNotApproved  = errors.New("account is not approved")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrCategoryInUse       = errors.New("category still has lessons or materials")
	ErrTestNotFound        = errors.New("mock test not found")
	ErrTestNotYetAvailable = errors.New("mock test not yet available")
	ErrTestHasNoQuestions  = errors.New("mock test has no questions")
	ErrAlreadyAttempted    = errors.New("mock test already attempted")
	ErrSessionNotFound     = errors.New("no active test session")
	ErrSessionNotActive    = errors.New("test session is not in progress")
	ErrAttemptNotFound     = errors.New("attempt not found")
	ErrAnswerOutOfRange    = errors.New("question or option index out of range")
)
