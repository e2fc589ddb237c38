package controller

import (
	"errors"

	"github.com/SonetShaji6/quicklearn/internal/service"
	"github.com/SonetShaji6/quicklearn/internal/util"

	"github.com/gin-gonic/gin"
)

type ContentController struct {
	ContentService *service.ContentService
}

func NewContentController(contentService *service.ContentService) *ContentController {
	return &ContentController{ContentService: contentService}
}

// ListCategories godoc
// @Summary 分类列表
// @Tags 内容
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.Category} "成功"
// @Router /api/categories [get]
func (c *ContentController) ListCategories(ctx *gin.Context) {
	categories, err := c.ContentService.ListCategories(ctx.Request.Context())
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, categories)
}

// CreateCategory godoc
// @Summary 新建分类
// @Tags 管理
// @Accept  json
// @Produce  json
// @Param   body body service.CategoryReq true "分类信息"
// @Success 201 {object} util.Response{data=model.Category} "创建成功"
// @Router /api/admin/categories [post]
func (c *ContentController) CreateCategory(ctx *gin.Context) {
	var req service.CategoryReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	category, err := c.ContentService.CreateCategory(ctx.Request.Context(), req)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Created(ctx, category)
}

// UpdateCategory godoc
// @Summary 更新分类
// @Tags 管理
// @Accept  json
// @Produce  json
// @Param   id path string true "分类ID"
// @Param   body body service.CategoryReq true "分类信息"
// @Success 200 {object} util.Response{data=model.Category} "成功"
// @Router /api/admin/categories/{id} [put]
func (c *ContentController) UpdateCategory(ctx *gin.Context) {
	var req service.CategoryReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	category, err := c.ContentService.UpdateCategory(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, category)
}

// DeleteCategory godoc
// @Summary 删除分类
// @Description 仍被课程或资料引用的分类返回 409
// @Tags 管理
// @Produce  json
// @Param   id path string true "分类ID"
// @Success 200 {object} util.Response "成功"
// @Failure 409 {object} util.Response "分类仍被引用"
// @Router /api/admin/categories/{id} [delete]
func (c *ContentController) DeleteCategory(ctx *gin.Context) {
	err := c.ContentService.DeleteCategory(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrCategoryInUse) {
			util.Conflict(ctx, "分类下仍有课程或资料")
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, nil)
}

// ListLessons godoc
// @Summary 视频课列表
// @Description 返回课程及本人完成标记，可按分类过滤
// @Tags 内容
// @Produce  json
// @Param   categoryId query string false "分类ID"
// @Success 200 {object} util.Response{data=[]service.LessonView} "成功"
// @Router /api/lessons [get]
func (c *ContentController) ListLessons(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	lessons, err := c.ContentService.ListLessons(ctx.Request.Context(), claims.UserID, ctx.Query("categoryId"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, lessons)
}

// CompleteLesson godoc
// @Summary 标记课程完成
// @Tags 内容
// @Produce  json
// @Param   id path string true "课程ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/lessons/{id}/complete [post]
func (c *ContentController) CompleteLesson(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}
	if err := c.ContentService.MarkLessonComplete(claims.UserID, ctx.Param("id")); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, nil)
}

// CreateLesson godoc
// @Summary 新建视频课
// @Description 播放源必须是 YouTube 链接
// @Tags 管理
// @Accept  json
// @Produce  json
// @Param   body body service.LessonReq true "课程信息"
// @Success 201 {object} util.Response{data=model.Lesson} "创建成功"
// @Router /api/admin/lessons [post]
func (c *ContentController) CreateLesson(ctx *gin.Context) {
	var req service.LessonReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	lesson, err := c.ContentService.CreateLesson(ctx.Request.Context(), req)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Created(ctx, lesson)
}

// UpdateLesson godoc
// @Summary 更新视频课
// @Tags 管理
// @Accept  json
// @Produce  json
// @Param   id path string true "课程ID"
// @Param   body body service.LessonReq true "课程信息"
// @Success 200 {object} util.Response{data=model.Lesson} "成功"
// @Router /api/admin/lessons/{id} [put]
func (c *ContentController) UpdateLesson(ctx *gin.Context) {
	var req service.LessonReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	lesson, err := c.ContentService.UpdateLesson(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, lesson)
}

// DeleteLesson godoc
// @Summary 删除视频课
// @Tags 管理
// @Produce  json
// @Param   id path string true "课程ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/admin/lessons/{id} [delete]
func (c *ContentController) DeleteLesson(ctx *gin.Context) {
	if err := c.ContentService.DeleteLesson(ctx.Request.Context(), ctx.Param("id")); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ListMaterials godoc
// @Summary 学习资料列表
// @Tags 内容
// @Produce  json
// @Param   categoryId query string false "分类ID"
// @Success 200 {object} util.Response{data=[]model.Material} "成功"
// @Router /api/materials [get]
func (c *ContentController) ListMaterials(ctx *gin.Context) {
	materials, err := c.ContentService.ListMaterials(ctx.Request.Context(), ctx.Query("categoryId"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, materials)
}

// DownloadMaterial godoc
// @Summary 资料下载地址
// @Description 返回限时签名地址
// @Tags 内容
// @Produce  json
// @Param   id path string true "资料ID"
// @Success 200 {object} util.Response{data=object} "成功"
// @Router /api/materials/{id}/download [get]
func (c *ContentController) DownloadMaterial(ctx *gin.Context) {
	url, err := c.ContentService.MaterialDownloadURL(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, gin.H{"url": url})
}

// UploadMaterial godoc
// @Summary 上传学习资料
// @Tags 管理
// @Accept  multipart/form-data
// @Produce  json
// @Param   categoryId formData string true "分类ID"
// @Param   title formData string true "标题"
// @Param   description formData string false "描述"
// @Param   file formData file true "资料文件"
// @Success 201 {object} util.Response{data=model.Material} "创建成功"
// @Router /api/admin/materials [post]
func (c *ContentController) UploadMaterial(ctx *gin.Context) {
	var req service.MaterialReq
	if err := ctx.ShouldBind(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "material file is required")
		return
	}
	material, err := c.ContentService.UploadMaterial(ctx.Request.Context(), req, file)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Created(ctx, material)
}

// DeleteMaterial godoc
// @Summary 删除学习资料
// @Tags 管理
// @Produce  json
// @Param   id path string true "资料ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/admin/materials/{id} [delete]
func (c *ContentController) DeleteMaterial(ctx *gin.Context) {
	if err := c.ContentService.DeleteMaterial(ctx.Request.Context(), ctx.Param("id")); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
