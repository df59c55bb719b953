package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"quick-swgoh/pkg/common/config"
	apperrors "quick-swgoh/pkg/common/errors"
)

// Request 发往后端的一次调用
type Request struct {
	Method    string
	Path      string
	Body      any // 非 nil 时序列化为 JSON
	Bearer    string
	RequestID string
}

// Response 后端的原始应答，Body 为调用方持有的副本
type Response struct {
	Status int
	Body   []byte
}

// API 后端调用抽象，便于在测试中替换
type API interface {
	Send(ctx context.Context, req Request) (Response, error)
	Ping(ctx context.Context) error
}

// HertzAPI 基于 Hertz client 的实现
type HertzAPI struct {
	origin  string
	timeout time.Duration
	cli     *client.Client
}

func New(cfg config.BackendConfig) (*HertzAPI, error) {
	cli, err := client.NewClient(
		client.WithDialTimeout(cfg.DialTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("create backend client: %w", err)
	}
	return &HertzAPI{
		origin:  cfg.Origin,
		timeout: cfg.Timeout,
		cli:     cli,
	}, nil
}

// Origin 后端地址
func (a *HertzAPI) Origin() string {
	return a.origin
}

func (a *HertzAPI) Send(ctx context.Context, r Request) (Response, error) {
	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()

	method := r.Method
	if method == "" {
		method = consts.MethodPost
	}
	req.SetRequestURI(a.origin + r.Path)
	req.SetMethod(method)
	req.Header.Set("Accept", consts.MIMEApplicationJSON)

	if r.Body != nil {
		body, err := encodeJSON(r.Body)
		if err != nil {
			return Response{}, fmt.Errorf("encode %s body: %w", r.Path, err)
		}
		req.Header.SetContentTypeBytes([]byte(consts.MIMEApplicationJSON))
		req.SetBody(body)
	}
	if r.Bearer != "" {
		req.Header.Set("Authorization", "Bearer "+r.Bearer)
	}
	if r.RequestID != "" {
		req.Header.Set("X-Request-ID", r.RequestID)
	}

	if err := a.do(ctx, req, resp); err != nil {
		hlog.CtxWarnf(ctx, "backend %s %s failed: %v", method, r.Path, err)
		return Response{}, fmt.Errorf("%w: %s %s: %v", apperrors.ErrBackendUnavailable, method, r.Path, err)
	}

	out := Response{
		Status: resp.StatusCode(),
		Body:   append([]byte(nil), resp.Body()...),
	}
	if out.Status < 200 || out.Status > 299 {
		return out, fmt.Errorf("%s %s: %w", method, r.Path, apperrors.NewBackendStatus(out.Status, string(out.Body)))
	}
	return out, nil
}

// Ping 探测后端是否可达，任何 HTTP 应答都算可达
func (a *HertzAPI) Ping(ctx context.Context) error {
	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(resp)
	}()

	req.SetRequestURI(a.origin + "/")
	req.SetMethod(consts.MethodGet)
	if err := a.do(ctx, req, resp); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrBackendUnavailable, err)
	}
	return nil
}

func (a *HertzAPI) do(ctx context.Context, req *protocol.Request, resp *protocol.Response) error {
	if a.timeout <= 0 {
		return a.cli.Do(ctx, req, resp)
	}
	return a.cli.DoTimeout(ctx, req, resp, a.timeout)
}

// encodeJSON 与浏览器 JSON.stringify 一致，不转义 <>&
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
