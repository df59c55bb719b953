package handler

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"quick-swgoh/pkg/common/config"
	apperrors "quick-swgoh/pkg/common/errors"
	lookupmodel "quick-swgoh/pkg/core/lookup/model"
	"quick-swgoh/pkg/core/lookup/service"
	"quick-swgoh/pkg/core/session"
	"quick-swgoh/pkg/web/middleware"
	"quick-swgoh/pkg/web/model"
	"quick-swgoh/pkg/web/view"
)

const historySize = 10

// LookupHandler 处理页面上的表单提交。每次提交都原地重新渲染页面，不做跳转
type LookupHandler struct {
	svc            service.LookupService
	verifier       *session.Verifier
	cookieName     string
	cookieMaxAge   time.Duration
	historyEnabled bool
}

func NewLookupHandler(svc service.LookupService, verifier *session.Verifier, cfg *config.Config) *LookupHandler {
	return &LookupHandler{
		svc:            svc,
		verifier:       verifier,
		cookieName:     cfg.Middleware.Session.CookieName,
		cookieMaxAge:   cfg.Middleware.Session.CookieMaxAge,
		historyEnabled: cfg.Database.Enabled,
	}
}

func (h *LookupHandler) Index(ctx context.Context, c *app.RequestContext) {
	h.render(ctx, c, consts.StatusOK, h.page(ctx, c))
}

func (h *LookupHandler) SubmitCharacter(ctx context.Context, c *app.RequestContext) {
	var form model.CharacterForm
	if err := c.BindAndValidate(&form); err != nil {
		h.badRequest(ctx, c, err)
		return
	}

	res := h.svc.LookupCharacter(ctx, clientID(c), lookupmodel.CharacterQuery{CharID: form.CharID}, requestID(c))
	page := h.page(ctx, c)
	page.CharID = form.CharID
	h.renderResult(ctx, c, page, res)
}

func (h *LookupHandler) SubmitAccount(ctx context.Context, c *app.RequestContext) {
	var form model.AccountForm
	if err := c.BindAndValidate(&form); err != nil {
		h.badRequest(ctx, c, err)
		return
	}

	res := h.svc.LookupAccount(ctx, clientID(c), lookupmodel.AccountQuery{AllyCode: form.AllyCode}, h.bearer(c), requestID(c))
	page := h.page(ctx, c)
	page.AllyCode = form.AllyCode
	h.renderResult(ctx, c, page, res)
}

// Refresh 需挂在会话中间件之后
func (h *LookupHandler) Refresh(ctx context.Context, c *app.RequestContext) {
	res := h.svc.RefreshAccount(ctx, clientID(c), h.bearer(c), requestID(c))
	h.renderResult(ctx, c, h.page(ctx, c), res)
}

func (h *LookupHandler) SignIn(ctx context.Context, c *app.RequestContext) {
	var form model.SignInForm
	if err := c.BindAndValidate(&form); err != nil {
		h.badRequest(ctx, c, err)
		return
	}

	page := h.page(ctx, c)
	s, err := h.svc.SignIn(ctx, lookupmodel.SignInQuery{Username: form.Username, Password: form.Password}, requestID(c))
	if err != nil {
		hlog.CtxWarnf(ctx, "[session] sign-in for %q failed: %v", form.Username, err)
		status := statusFor(err)
		if code, ok := apperrors.StatusOf(err); ok && code == consts.StatusUnauthorized {
			status = consts.StatusUnauthorized
		}
		page.Error = signInError(err)
		h.render(ctx, c, status, page)
		return
	}

	maxAge := int(h.cookieMaxAge.Seconds())
	if until := time.Until(s.ExpiresAt); until < h.cookieMaxAge {
		maxAge = int(until.Seconds())
	}
	c.SetCookie(h.cookieName, s.Token, maxAge, "/", "", protocol.CookieSameSiteLaxMode, false, true)
	page.SignedInAs = s.AllyCode
	page.AllyCode = s.AllyCode
	h.render(ctx, c, consts.StatusOK, page)
}

// SignUp 在后端注册账号，成功后提示登录
func (h *LookupHandler) SignUp(ctx context.Context, c *app.RequestContext) {
	var form model.SignUpForm
	if err := c.BindAndValidate(&form); err != nil {
		h.badRequest(ctx, c, err)
		return
	}

	page := h.page(ctx, c)
	err := h.svc.SignUp(ctx, lookupmodel.SignUpQuery{
		Username: form.Username,
		Password: form.Password,
		AllyCode: form.AllyCode,
		Email:    form.Email,
	}, requestID(c))
	if err != nil {
		hlog.CtxWarnf(ctx, "[session] sign-up for %q failed: %v", form.Username, err)
		page.Error = signUpError(err)
		h.render(ctx, c, signUpStatus(err), page)
		return
	}

	hlog.CtxInfof(ctx, "[session] registered %q", form.Username)
	page.Notice = "Account created. Sign in to continue."
	page.AllyCode = form.AllyCode
	h.render(ctx, c, consts.StatusOK, page)
}

// SignOut 清除会话 cookie，并清空本浏览器的输出区域
func (h *LookupHandler) SignOut(ctx context.Context, c *app.RequestContext) {
	c.SetCookie(h.cookieName, "", -1, "/", "", protocol.CookieSameSiteLaxMode, false, true)
	h.svc.Forget(clientID(c))
	page := h.page(ctx, c)
	page.SignedInAs = ""
	h.render(ctx, c, consts.StatusOK, page)
}

// Unauthorized 供会话中间件在令牌缺失或失效时回调
func (h *LookupHandler) Unauthorized(ctx context.Context, c *app.RequestContext, code int, message string) {
	hlog.CtxInfof(ctx, "[session] rejected %s: %s", c.Path(), message)
	page := h.page(ctx, c)
	page.SignedInAs = ""
	page.Error = apperrors.Describe(apperrors.ErrInvalidSession)
	h.render(ctx, c, code, page)
}

func (h *LookupHandler) renderResult(ctx context.Context, c *app.RequestContext, page view.Page, res lookupmodel.Result) {
	// 失败时输出区域保持原样，只额外显示错误提示
	page.Output = h.svc.Output(clientID(c))
	status := consts.StatusOK
	if !res.OK() {
		page.Error = apperrors.Describe(res.Err)
		status = statusFor(res.Err)
	}
	h.render(ctx, c, status, page)
}

func (h *LookupHandler) page(ctx context.Context, c *app.RequestContext) view.Page {
	page := view.Page{
		Output:         h.svc.Output(clientID(c)),
		HistoryEnabled: h.historyEnabled,
	}
	if tok := h.bearer(c); tok != "" {
		if s, err := h.verifier.Verify(tok); err == nil {
			page.SignedInAs = s.AllyCode
		}
	}
	if h.historyEnabled {
		records, err := h.svc.Recent(ctx, clientID(c), historySize)
		if err != nil {
			hlog.CtxErrorf(ctx, "[history] load recent lookups: %v", err)
		}
		page.History = view.Rows(records)
	}
	return page
}

func (h *LookupHandler) render(ctx context.Context, c *app.RequestContext, status int, page view.Page) {
	body, err := view.Render(page)
	if err != nil {
		hlog.CtxErrorf(ctx, "render page: %v", err)
		c.String(consts.StatusInternalServerError, "page could not be rendered")
		return
	}
	c.Data(status, "text/html; charset=utf-8", body)
}

func (h *LookupHandler) badRequest(ctx context.Context, c *app.RequestContext, err error) {
	hlog.CtxWarnf(ctx, "bind form %s: %v", c.Path(), err)
	page := h.page(ctx, c)
	page.Error = "The form could not be read."
	h.render(ctx, c, consts.StatusBadRequest, page)
}

func (h *LookupHandler) bearer(c *app.RequestContext) string {
	return string(c.Cookie(h.cookieName))
}

func requestID(c *app.RequestContext) string {
	return c.GetString(middleware.RequestIDKey)
}

func clientID(c *app.RequestContext) string {
	return c.GetString(middleware.ClientIDKey)
}

// statusFor 把桥接错误映射为本服务的响应码
func statusFor(err error) int {
	switch {
	case err == nil:
		return consts.StatusOK
	case errors.Is(err, apperrors.ErrInvalidSession):
		return consts.StatusUnauthorized
	case errors.Is(err, apperrors.ErrBackendUnavailable),
		errors.Is(err, apperrors.ErrBackendStatus),
		errors.Is(err, apperrors.ErrMalformedResponse):
		return consts.StatusBadGateway
	default:
		return consts.StatusInternalServerError
	}
}

// signUpStatus 后端 409 表示用户已存在，原样返回给浏览器
func signUpStatus(err error) int {
	if status, ok := apperrors.StatusOf(err); ok && status == consts.StatusConflict {
		return consts.StatusConflict
	}
	return statusFor(err)
}

func signUpError(err error) string {
	if status, ok := apperrors.StatusOf(err); ok && status == consts.StatusConflict {
		return "That user is already registered."
	}
	return apperrors.Describe(err)
}

func signInError(err error) string {
	if status, ok := apperrors.StatusOf(err); ok && status == consts.StatusUnauthorized {
		return "Username or password is wrong."
	}
	return apperrors.Describe(err)
}
