// pkg/common/errors/bridge_errors.go

/*
  - 使用实例
    if errors.Is(err, apperrors.ErrBackendStatus) {
    // 后端返回了非 2xx
    }

    var he *hzte.Error
    if errors.As(err, &he) && he.Meta != nil {
    // 读取状态码等元数据
    }
*/
package errors

import (
	"errors"

	hzte "github.com/cloudwego/hertz/pkg/common/errors"
)

var (
	rawErrBackendUnavailable = errors.New("backend unavailable")
	rawErrBackendStatus      = errors.New("backend returned an error status")
	rawErrMalformedResponse  = errors.New("backend response is not valid JSON")
	rawErrInvalidSession     = errors.New("session token is invalid or expired")
	rawErrRecordNotFound     = errors.New("lookup record not found")
	rawErrDatabaseInternal   = errors.New("database internal error")
)

// 包装成 Hertz 错误类型
var (
	ErrBackendUnavailable = hzte.New(rawErrBackendUnavailable, hzte.ErrorTypePublic, nil)
	ErrBackendStatus      = hzte.New(rawErrBackendStatus, hzte.ErrorTypePublic, nil)
	ErrMalformedResponse  = hzte.New(rawErrMalformedResponse, hzte.ErrorTypePublic, nil)
	ErrInvalidSession     = hzte.New(rawErrInvalidSession, hzte.ErrorTypePublic, nil)
	ErrRecordNotFound     = hzte.New(rawErrRecordNotFound, hzte.ErrorTypePrivate, nil)
	ErrDatabaseInternal   = hzte.New(rawErrDatabaseInternal, hzte.ErrorTypePrivate, nil)
)

// StatusMeta 附带在 ErrBackendStatus 上的元数据
type StatusMeta struct {
	Status int
	Body   string
}

// NewBackendStatus 构造带状态码的后端错误，errors.Is(err, ErrBackendStatus) 仍成立
func NewBackendStatus(status int, body string) error {
	return &statusError{
		herr: hzte.New(rawErrBackendStatus, hzte.ErrorTypePublic, StatusMeta{Status: status, Body: body}),
	}
}

type statusError struct {
	herr *hzte.Error
}

func (e *statusError) Error() string {
	return e.herr.Error()
}

func (e *statusError) Is(target error) bool {
	return target == ErrBackendStatus
}

func (e *statusError) Unwrap() error {
	return e.herr
}
