package controller

import (
	"errors"
	"net/http"

	"github.com/SonetShaji6/quicklearn/internal/service"
	"github.com/SonetShaji6/quicklearn/internal/util"

	"github.com/gin-gonic/gin"
)

// MockTestController 模拟测试：学生侧的列表、答题会话、回顾，
// 以及管理员侧的卷面维护
type MockTestController struct {
	MockTestService *service.MockTestService
	Engine          *service.SessionEngine
}

func NewMockTestController(mockTestService *service.MockTestService, engine *service.SessionEngine) *MockTestController {
	return &MockTestController{MockTestService: mockTestService, Engine: engine}
}

func requireClaims(ctx *gin.Context) (*util.Claims, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return nil, false
	}
	return claims, true
}

// ListTests godoc
// @Summary 可参加的模拟测试
// @Description 只返回已到开放时间且至少有一道题的卷，附带本人提交记录
// @Tags 模拟测试
// @Produce  json
// @Success 200 {object} util.Response{data=[]service.StudentTest} "成功"
// @Router /api/mock-tests [get]
func (c *MockTestController) ListTests(ctx *gin.Context) {
	claims, ok := requireClaims(ctx)
	if !ok {
		return
	}
	tests, err := c.MockTestService.ListAttemptable(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, tests)
}

// StartSession godoc
// @Summary 开始答题
// @Description 同一张卷只允许一次提交；已有会话时幂等返回当前状态
// @Tags 模拟测试
// @Produce  json
// @Param   id path string true "测试ID"
// @Success 200 {object} util.Response{data=service.SessionState} "成功"
// @Failure 404 {object} util.Response "测试不存在"
// @Failure 409 {object} util.Response "已提交过该卷"
// @Router /api/mock-tests/{id}/start [post]
func (c *MockTestController) StartSession(ctx *gin.Context) {
	claims, ok := requireClaims(ctx)
	if !ok {
		return
	}

	state, err := c.Engine.Start(ctx.Request.Context(), claims.UserID, ctx.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, util.ErrAlreadyAttempted):
			util.Conflict(ctx, "该卷已提交过")
		case errors.Is(err, util.ErrTestNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrTestNotYetAvailable):
			util.Error(ctx, http.StatusForbidden, "该卷尚未开放")
		case errors.Is(err, util.ErrTestHasNoQuestions):
			util.BadRequest(ctx, "该卷没有题目")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, state)
}

type AnswerRequest struct {
	QuestionIndex int `json:"questionIndex" binding:"min=0"`
	OptionIndex   int `json:"optionIndex" binding:"min=-1,max=3"`
}

// SetAnswer godoc
// @Summary 记录作答
// @Description optionIndex 传 -1 表示清除该题选择；返回前答案已写入快照
// @Tags 模拟测试
// @Accept  json
// @Produce  json
// @Param   id path string true "测试ID"
// @Param   body body AnswerRequest true "作答"
// @Success 200 {object} util.Response{data=service.SessionState} "成功"
// @Failure 404 {object} util.Response "没有进行中的会话"
// @Failure 409 {object} util.Response "会话已结束"
// @Router /api/mock-tests/{id}/answer [put]
func (c *MockTestController) SetAnswer(ctx *gin.Context) {
	claims, ok := requireClaims(ctx)
	if !ok {
		return
	}

	var req AnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	state, err := c.Engine.SetAnswer(ctx.Request.Context(), claims.UserID, ctx.Param("id"), req.QuestionIndex, req.OptionIndex)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrSessionNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrSessionNotActive):
			util.Conflict(ctx, "会话已结束")
		case errors.Is(err, util.ErrAnswerOutOfRange):
			util.BadRequest(ctx, "题号或选项越界")
		default:
			// 快照写失败：答案在内存里还在，但持久性没了，告诉前端重试
			util.Error(ctx, http.StatusServiceUnavailable, "作答暂存失败，请重试")
		}
		return
	}
	util.Success(ctx, state)
}

// SessionStatus godoc
// @Summary 会话状态
// @Description 页面重载后据此恢复：剩余时间按原截止计算，不会重置
// @Tags 模拟测试
// @Produce  json
// @Param   id path string true "测试ID"
// @Success 200 {object} util.Response{data=service.SessionState} "成功"
// @Router /api/mock-tests/{id}/session [get]
func (c *MockTestController) SessionStatus(ctx *gin.Context) {
	claims, ok := requireClaims(ctx)
	if !ok {
		return
	}

	state, err := c.Engine.Status(ctx.Request.Context(), claims.UserID, ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrTestNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, state)
}

// SubmitSession godoc
// @Summary 交卷
// @Description 与倒计时到点的自动提交竞争时，后到方拿到同一结果
// @Tags 模拟测试
// @Produce  json
// @Param   id path string true "测试ID"
// @Success 200 {object} util.Response{data=service.SubmitResult} "成功"
// @Failure 404 {object} util.Response "没有进行中的会话"
// @Router /api/mock-tests/{id}/submit [post]
func (c *MockTestController) SubmitSession(ctx *gin.Context) {
	claims, ok := requireClaims(ctx)
	if !ok {
		return
	}

	result, err := c.Engine.Submit(ctx.Request.Context(), claims.UserID, ctx.Param("id"), true)
	if err != nil {
		switch {
		case errors.Is(err, util.ErrSessionNotFound):
			util.NotFound(ctx)
		case errors.Is(err, util.ErrSessionNotActive):
			util.Conflict(ctx, "会话已结束")
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, result)
}

// Review godoc
// @Summary 答题回顾
// @Description 已提交的卷逐题展示对错与正确答案，标准答案只在这里下发
// @Tags 模拟测试
// @Produce  json
// @Param   id path string true "测试ID"
// @Success 200 {object} util.Response{data=service.Review} "成功"
// @Failure 404 {object} util.Response "未提交过该卷"
// @Router /api/mock-tests/{id}/review [get]
func (c *MockTestController) Review(ctx *gin.Context) {
	claims, ok := requireClaims(ctx)
	if !ok {
		return
	}

	review, err := c.MockTestService.GetReview(claims.UserID, ctx.Param("id"))
	if err != nil {
		if errors.Is(err, util.ErrAttemptNotFound) || errors.Is(err, util.ErrTestNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, review)
}

// ListAttempts godoc
// @Summary 本人提交记录
// @Tags 模拟测试
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.MockAttempt} "成功"
// @Router /api/mock-attempts [get]
func (c *MockTestController) ListAttempts(ctx *gin.Context) {
	claims, ok := requireClaims(ctx)
	if !ok {
		return
	}
	attempts, err := c.MockTestService.ListAttempts(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, attempts)
}

// CreateTest godoc
// @Summary 新建模拟测试
// @Tags 管理
// @Accept  json
// @Produce  json
// @Param   body body service.MockTestReq true "卷面信息"
// @Success 201 {object} util.Response{data=model.MockTest} "创建成功"
// @Router /api/admin/mock-tests [post]
func (c *MockTestController) CreateTest(ctx *gin.Context) {
	var req service.MockTestReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	test, err := c.MockTestService.CreateTest(req)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Created(ctx, test)
}

// AdminListTests godoc
// @Summary 卷面列表（管理）
// @Tags 管理
// @Produce  json
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=object} "成功"
// @Router /api/admin/mock-tests [get]
func (c *MockTestController) AdminListTests(ctx *gin.Context) {
	page, limit := parsePagination(ctx)
	tests, total, err := c.MockTestService.ListTests(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"tests": tests, "total": total, "page": page, "limit": limit})
}

// AdminGetTest godoc
// @Summary 卷面详情（管理，含答案）
// @Tags 管理
// @Produce  json
// @Param   id path string true "测试ID"
// @Success 200 {object} util.Response{data=model.MockTest} "成功"
// @Failure 404 {object} util.Response "测试不存在"
// @Router /api/admin/mock-tests/{id} [get]
func (c *MockTestController) AdminGetTest(ctx *gin.Context) {
	test, err := c.MockTestService.GetTest(ctx.Param("id"))
	if err != nil {
		util.NotFound(ctx)
		return
	}
	util.Success(ctx, test)
}

// AdminListAttempts godoc
// @Summary 卷面成绩列表（管理）
// @Tags 管理
// @Produce  json
// @Param   id path string true "测试ID"
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 404 {object} util.Response "测试不存在"
// @Router /api/admin/mock-tests/{id}/attempts [get]
func (c *MockTestController) AdminListAttempts(ctx *gin.Context) {
	page, limit := parsePagination(ctx)
	attempts, total, err := c.MockTestService.ListTestAttempts(ctx.Param("id"), page, limit)
	if err != nil {
		if errors.Is(err, util.ErrTestNotFound) {
			util.NotFound(ctx)
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, gin.H{"attempts": attempts, "total": total, "page": page, "limit": limit})
}

// DeleteTest godoc
// @Summary 删除模拟测试
// @Description 级联删除题目与提交记录
// @Tags 管理
// @Produce  json
// @Param   id path string true "测试ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/admin/mock-tests/{id} [delete]
func (c *MockTestController) DeleteTest(ctx *gin.Context) {
	if err := c.MockTestService.DeleteTest(ctx.Param("id")); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// AddQuestion godoc
// @Summary 新增题目
// @Tags 管理
// @Accept  json
// @Produce  json
// @Param   id path string true "测试ID"
// @Param   body body service.MockQuestionReq true "题目"
// @Success 201 {object} util.Response{data=model.MockQuestion} "创建成功"
// @Failure 404 {object} util.Response "测试不存在"
// @Router /api/admin/mock-tests/{id}/questions [post]
func (c *MockTestController) AddQuestion(ctx *gin.Context) {
	var req service.MockQuestionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	question, err := c.MockTestService.AddQuestion(ctx.Param("id"), req)
	if err != nil {
		if errors.Is(err, util.ErrTestNotFound) {
			util.NotFound(ctx)
		} else {
			util.BadRequest(ctx, err.Error())
		}
		return
	}
	util.Created(ctx, question)
}

// DeleteQuestion godoc
// @Summary 删除题目
// @Tags 管理
// @Produce  json
// @Param   id path string true "测试ID"
// @Param   questionId path string true "题目ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/admin/mock-tests/{id}/questions/{questionId} [delete]
func (c *MockTestController) DeleteQuestion(ctx *gin.Context) {
	if err := c.MockTestService.DeleteQuestion(ctx.Param("questionId")); err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
