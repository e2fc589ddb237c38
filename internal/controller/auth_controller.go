package controller

import (
	"errors"
	"net/http"

	"github.com/SonetShaji6/quicklearn/internal/service"
	"github.com/SonetShaji6/quicklearn/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
}

func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{AuthService: authService}
}

// Register godoc
// @Summary 注册新账号
// @Description 表单注册并上传缴费凭证（png/jpg/pdf，≤5MB），注册后进入待审核状态
// @Tags 认证
// @Accept  multipart/form-data
// @Produce  json
// @Param   name formData string true "姓名"
// @Param   email formData string true "邮箱"
// @Param   password formData string true "密码"
// @Param   college formData string false "学校"
// @Param   degree formData string false "学历"
// @Param   phone formData string false "联系电话"
// @Param   paymentProof formData file true "缴费凭证"
// @Success 201 {object} util.Response{data=object} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "邮箱已被注册"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /api/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req service.RegisterReq
	if err := ctx.ShouldBind(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	proof, err := ctx.FormFile("paymentProof")
	if err != nil {
		util.BadRequest(ctx, "paymentProof file is required")
		return
	}

	user, err := c.AuthService.Register(ctx.Request.Context(), req, proof)
	if err != nil {
		if errors.Is(err, util.ErrEmailRegistered) {
			util.Conflict(ctx, "该邮箱已被注册")
		} else {
			util.BadRequest(ctx, err.Error())
		}
		return
	}

	util.Created(ctx, gin.H{"id": user.ID, "status": user.Status})
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login godoc
// @Summary 登录
// @Description 仅审核通过的账号可登录，待审核返回 403 并提示等待
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body LoginRequest true "登录信息"
// @Success 200 {object} util.Response{data=service.LoginResult} "登录成功"
// @Failure 401 {object} util.Response "邮箱或密码错误"
// @Failure 403 {object} util.Response "账号待审核或已被拒绝"
// @Router /api/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AuthService.Login(req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrInvalidCredentials):
			util.Error(ctx, http.StatusUnauthorized, "邮箱或密码错误")
		case errors.Is(err, util.ErrAccountPending):
			util.Error(ctx, http.StatusForbidden, "账号审核中，请等待管理员确认缴费")
		case errors.Is(err, util.ErrAccountNotApproved):
			util.Error(ctx, http.StatusForbidden, "账号未通过审核")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, result)
}

// GetProfile godoc
// @Summary 当前登录用户
// @Tags 认证
// @Produce  json
// @Success 200 {object} util.Response{data=model.User} "成功"
// @Failure 401 {object} util.Response "未登录"
// @Router /api/profile [get]
func (c *AuthController) GetProfile(ctx *gin.Context) {
	user := c.AuthService.GetCurrentUser(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	util.Success(ctx, user)
}
