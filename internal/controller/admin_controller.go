package controller

import (
	"errors"
	"strconv"

	"github.com/SonetShaji6/quicklearn/internal/service"
	"github.com/SonetShaji6/quicklearn/internal/util"

	"github.com/gin-gonic/gin"
)

// AdminController 账号审核
type AdminController struct {
	UserService *service.UserService
}

func NewAdminController(userService *service.UserService) *AdminController {
	return &AdminController{UserService: userService}
}

func parsePagination(ctx *gin.Context) (int, int) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

func parseUserID(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid user id")
		return 0, false
	}
	return uint(id), true
}

// ListPendingUsers godoc
// @Summary 待审核账号列表
// @Tags 管理
// @Produce  json
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=object} "成功"
// @Router /api/admin/users/pending [get]
func (c *AdminController) ListPendingUsers(ctx *gin.Context) {
	page, limit := parsePagination(ctx)
	users, total, err := c.UserService.ListPending(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"users": users, "total": total, "page": page, "limit": limit})
}

// ListUsers godoc
// @Summary 全部账号列表
// @Tags 管理
// @Produce  json
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=object} "成功"
// @Router /api/admin/users [get]
func (c *AdminController) ListUsers(ctx *gin.Context) {
	page, limit := parsePagination(ctx)
	users, total, err := c.UserService.ListAll(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"users": users, "total": total, "page": page, "limit": limit})
}

// ApproveUser godoc
// @Summary 审核通过
// @Tags 管理
// @Produce  json
// @Param   id path int true "用户ID"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/admin/users/{id}/approve [post]
func (c *AdminController) ApproveUser(ctx *gin.Context) {
	id, ok := parseUserID(ctx)
	if !ok {
		return
	}
	if err := c.UserService.Approve(id); err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// RejectUser godoc
// @Summary 审核拒绝
// @Tags 管理
// @Produce  json
// @Param   id path int true "用户ID"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/admin/users/{id}/reject [post]
func (c *AdminController) RejectUser(ctx *gin.Context) {
	id, ok := parseUserID(ctx)
	if !ok {
		return
	}
	if err := c.UserService.Reject(id); err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// PaymentProof godoc
// @Summary 缴费凭证下载地址
// @Description 返回限时签名地址，凭证文件本体不经过应用服务器
// @Tags 管理
// @Produce  json
// @Param   id path int true "用户ID"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/admin/users/{id}/payment-proof [get]
func (c *AdminController) PaymentProof(ctx *gin.Context) {
	id, ok := parseUserID(ctx)
	if !ok {
		return
	}
	url, err := c.UserService.PaymentProofURL(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, util.ErrUserNotFound) {
			util.NotFound(ctx)
		} else {
			util.BadRequest(ctx, err.Error())
		}
		return
	}
	util.Success(ctx, gin.H{"url": url})
}
