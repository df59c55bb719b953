package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	hzte "github.com/cloudwego/hertz/pkg/common/errors"
	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// region 错误处理工具函数

// WrapGormError 将底层数据库错误转变为业务可识别错误
// 参数说明：
//   - rawErr: 原始GORM错误
//
// 返回值：
//   - error: 标准化错误类型
func WrapGormError(rawErr error) error {
	if rawErr == nil {
		return nil
	}

	if errors.Is(rawErr, gorm.ErrRecordNotFound) {
		return ErrRecordNotFound
	}

	// 处理MySQL驱动错误
	var mysqlErr *mysql.MySQLError
	if errors.As(rawErr, &mysqlErr) {
		switch mysqlErr.Number {
		case 1045, 1049, 1146: // 认证失败、库不存在、表不存在
			return fmt.Errorf("%w: %s", ErrDatabaseInternal, mysqlErr.Message)
		}
	}

	if errors.Is(rawErr, gorm.ErrInvalidDB) || errors.Is(rawErr, gorm.ErrInvalidTransaction) {
		return ErrDatabaseInternal
	}

	// 兜底处理：附加原始错误信息
	return fmt.Errorf("%w: %v", ErrDatabaseInternal, rawErr)
}

// StatusOf 取出后端错误上的 HTTP 状态码
func StatusOf(err error) (int, bool) {
	var herr *hzte.Error
	if !errors.As(err, &herr) {
		return 0, false
	}
	meta, ok := herr.Meta.(StatusMeta)
	if !ok {
		return 0, false
	}
	return meta.Status, true
}

// maxMessageLen 后端错误信息展示的最大字符数
const maxMessageLen = 200

// BackendMessage 取出后端错误响应体中的 {"error": "..."} 字段
func BackendMessage(err error) (string, bool) {
	var herr *hzte.Error
	if !errors.As(err, &herr) {
		return "", false
	}
	meta, ok := herr.Meta.(StatusMeta)
	if !ok || meta.Body == "" {
		return "", false
	}
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal([]byte(meta.Body), &body) != nil {
		return "", false
	}
	msg := strings.TrimSpace(body.Error)
	if msg == "" {
		return "", false
	}
	if r := []rune(msg); len(r) > maxMessageLen {
		msg = string(r[:maxMessageLen]) + "..."
	}
	return msg, true
}

// Describe 生成可以展示给用户的一行错误说明
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBackendStatus):
		if status, ok := StatusOf(err); ok {
			if msg, found := BackendMessage(err); found {
				if !strings.ContainsAny(msg[len(msg)-1:], ".!?") {
					msg += "."
				}
				return fmt.Sprintf("The API answered with status %d: %s", status, msg)
			}
			return fmt.Sprintf("The API answered with status %d.", status)
		}
		return "The API answered with an error status."
	case errors.Is(err, ErrMalformedResponse):
		return "The API response was not valid JSON."
	case errors.Is(err, ErrBackendUnavailable):
		return "The API could not be reached."
	case errors.Is(err, ErrInvalidSession):
		return "Your session is invalid or has expired. Sign in again."
	default:
		return "The request failed."
	}
}
