package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"

	apperrors "quick-swgoh/pkg/common/errors"
	historymodel "quick-swgoh/pkg/core/history/model"
	"quick-swgoh/pkg/core/history/repository/dao"
	"quick-swgoh/pkg/core/lookup/backend"
	"quick-swgoh/pkg/core/lookup/model"
	"quick-swgoh/pkg/core/lookup/output"
	"quick-swgoh/pkg/core/session"
)

// 后端路径
const (
	PathCharacters     = "/characters"
	PathAccount        = "/account"
	PathSignIn         = "/signIn"
	PathSignUp         = "/signUp"
	PathRefreshAccount = "/refreshAccount"
)

// LookupService 所有查询都按 client 区分输出区域与历史记录
type LookupService interface {
	LookupCharacter(ctx context.Context, client string, q model.CharacterQuery, requestID string) model.Result
	LookupAccount(ctx context.Context, client string, q model.AccountQuery, bearer, requestID string) model.Result
	RefreshAccount(ctx context.Context, client, bearer, requestID string) model.Result
	SignIn(ctx context.Context, q model.SignInQuery, requestID string) (session.Session, error)
	SignUp(ctx context.Context, q model.SignUpQuery, requestID string) error
	Output(client string) string
	Forget(client string)
	Recent(ctx context.Context, client string, limit int) ([]historymodel.LookupRecord, error)
}

// Bridge 把一次表单提交转成一次后端调用，并把结果写入该浏览器的输出区域
type Bridge struct {
	api      backend.API
	outputs  *output.Store
	history  dao.HistoryRepository
	verifier *session.Verifier
}

var _ LookupService = (*Bridge)(nil)

func NewBridge(api backend.API, outputs *output.Store, history dao.HistoryRepository, verifier *session.Verifier) *Bridge {
	return &Bridge{
		api:      api,
		outputs:  outputs,
		history:  history,
		verifier: verifier,
	}
}

func (b *Bridge) LookupCharacter(ctx context.Context, client string, q model.CharacterQuery, requestID string) model.Result {
	return b.call(ctx, client, model.KindCharacter, q.CharID, backend.Request{
		Method:    consts.MethodPost,
		Path:      PathCharacters,
		Body:      q,
		RequestID: requestID,
	})
}

func (b *Bridge) LookupAccount(ctx context.Context, client string, q model.AccountQuery, bearer, requestID string) model.Result {
	return b.call(ctx, client, model.KindAccount, q.AllyCode, backend.Request{
		Method:    consts.MethodPost,
		Path:      PathAccount,
		Body:      q,
		Bearer:    bearer,
		RequestID: requestID,
	})
}

// RefreshAccount 让后端重新拉取已登录账号的数据
func (b *Bridge) RefreshAccount(ctx context.Context, client, bearer, requestID string) model.Result {
	return b.call(ctx, client, model.KindRefresh, "", backend.Request{
		Method:    consts.MethodGet,
		Path:      PathRefreshAccount,
		Bearer:    bearer,
		RequestID: requestID,
	})
}

// SignIn 用用户名密码换取后端令牌，不影响输出区域
func (b *Bridge) SignIn(ctx context.Context, q model.SignInQuery, requestID string) (session.Session, error) {
	resp, err := b.api.Send(ctx, backend.Request{
		Method:    consts.MethodPost,
		Path:      PathSignIn,
		Body:      q,
		RequestID: ensureID(requestID),
	})
	if err != nil {
		return session.Session{}, err
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil || body.Token == "" {
		return session.Session{}, fmt.Errorf("%w: sign-in answer has no token", apperrors.ErrMalformedResponse)
	}
	return b.verifier.Verify(body.Token)
}

// SignUp 在后端创建账号，后端成功时只返回 200 空响应体
func (b *Bridge) SignUp(ctx context.Context, q model.SignUpQuery, requestID string) error {
	_, err := b.api.Send(ctx, backend.Request{
		Method:    consts.MethodPost,
		Path:      PathSignUp,
		Body:      q,
		RequestID: ensureID(requestID),
	})
	return err
}

func (b *Bridge) Output(client string) string {
	return b.outputs.Text(client)
}

// Forget 清掉该浏览器的输出区域，登出时调用
func (b *Bridge) Forget(client string) {
	b.outputs.Forget(client)
}

func (b *Bridge) Recent(ctx context.Context, client string, limit int) ([]historymodel.LookupRecord, error) {
	return b.history.Recent(ctx, client, limit)
}

func (b *Bridge) call(ctx context.Context, client string, kind model.Kind, query string, req backend.Request) model.Result {
	req.RequestID = ensureID(req.RequestID)
	region := b.outputs.Region(client)
	token := region.Begin()
	start := time.Now()

	res := model.Result{Kind: kind, ClientID: client, Query: query, RequestID: req.RequestID}
	resp, err := b.api.Send(ctx, req)
	res.Status = resp.Status
	if err == nil {
		var changed bool
		changed, err = region.Commit(token, resp.Body)
		if err == nil {
			res.Payload = json.RawMessage(resp.Body)
			if !changed {
				hlog.CtxInfof(ctx, "[bridge] %s response %s superseded by a newer one", kind, req.RequestID)
			}
		}
	}
	res.Err = err
	res.Latency = time.Since(start)

	if err != nil {
		hlog.CtxWarnf(ctx, "[bridge] %s lookup %s failed: %v", kind, req.RequestID, err)
	} else {
		hlog.CtxInfof(ctx, "[bridge] %s lookup %s ok in %v", kind, req.RequestID, res.Latency)
	}
	b.record(ctx, res)
	return res
}

// record 审计写入失败只记录日志，不影响本次查询结果
func (b *Bridge) record(ctx context.Context, res model.Result) {
	rec := historymodel.LookupRecord{
		RequestID: res.RequestID,
		ClientID:  res.ClientID,
		Kind:      string(res.Kind),
		Query:     res.Query,
		OK:        res.OK(),
		Status:    res.Status,
		LatencyMs: res.Latency.Milliseconds(),
	}
	if res.Err != nil {
		rec.Error = apperrors.Describe(res.Err)
	}
	if err := b.history.Record(ctx, rec); err != nil && !errors.Is(err, context.Canceled) {
		hlog.CtxErrorf(ctx, "[bridge] record %s: %v", res.RequestID, err)
	}
}

func ensureID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
