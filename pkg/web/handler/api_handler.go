package handler

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	apperrors "quick-swgoh/pkg/common/errors"
	lookupmodel "quick-swgoh/pkg/core/lookup/model"
	"quick-swgoh/pkg/core/lookup/service"
	"quick-swgoh/pkg/web/model"
)

// APIHandler 与页面表单相同的桥接操作，直接以 JSON 应答
type APIHandler struct {
	svc service.LookupService
}

func NewAPIHandler(svc service.LookupService) *APIHandler {
	return &APIHandler{svc: svc}
}

func (h *APIHandler) Characters(ctx context.Context, c *app.RequestContext) {
	var q lookupmodel.CharacterQuery
	if !decode(ctx, c, &q) {
		return
	}
	h.respond(c, h.svc.LookupCharacter(ctx, clientID(c), q, requestID(c)))
}

func (h *APIHandler) Account(ctx context.Context, c *app.RequestContext) {
	var q lookupmodel.AccountQuery
	if !decode(ctx, c, &q) {
		return
	}
	bearer := ""
	if tok, found := strings.CutPrefix(string(c.GetHeader("Authorization")), "Bearer "); found {
		bearer = tok
	}
	h.respond(c, h.svc.LookupAccount(ctx, clientID(c), q, bearer, requestID(c)))
}

// SignUp 注册成功时 data 为空，409 表示用户已存在
func (h *APIHandler) SignUp(ctx context.Context, c *app.RequestContext) {
	var q lookupmodel.SignUpQuery
	if !decode(ctx, c, &q) {
		return
	}
	err := h.svc.SignUp(ctx, q, requestID(c))
	if err == nil {
		c.JSON(consts.StatusOK, model.Envelope{OK: true, RequestID: requestID(c)})
		return
	}
	env := model.Envelope{Error: signUpError(err), RequestID: requestID(c)}
	if status, ok := apperrors.StatusOf(err); ok {
		env.Status = status
	}
	c.JSON(signUpStatus(err), env)
}

// Output 只返回调用方自己的输出区域
func (h *APIHandler) Output(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, model.OutputRes{Output: h.svc.Output(clientID(c))})
}

func (h *APIHandler) respond(c *app.RequestContext, res lookupmodel.Result) {
	env := model.Envelope{
		OK:        res.OK(),
		Status:    res.Status,
		RequestID: res.RequestID,
	}
	if !res.OK() {
		env.Error = apperrors.Describe(res.Err)
		c.JSON(statusFor(res.Err), env)
		return
	}
	env.Data = res.Payload
	c.JSON(consts.StatusOK, env)
}

func decode(ctx context.Context, c *app.RequestContext, v any) bool {
	if err := json.Unmarshal(c.Request.Body(), v); err != nil {
		hlog.CtxWarnf(ctx, "decode %s body: %v", c.Path(), err)
		c.JSON(consts.StatusBadRequest, model.Envelope{
			OK:        false,
			Error:     "request body must be a JSON object",
			RequestID: requestID(c),
		})
		return false
	}
	return true
}
