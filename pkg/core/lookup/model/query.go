package model

import (
	"encoding/json"
	"time"
)

// Kind 标识一次桥接调用的类型
type Kind string

const (
	KindCharacter Kind = "character"
	KindAccount   Kind = "account"
	KindRefresh   Kind = "refresh"
)

// 后端请求体。字段值原样转发，不做格式或非空校验
type (
	CharacterQuery struct {
		CharID string `json:"charId"`
	}

	AccountQuery struct {
		AllyCode string `json:"allyCode"`
	}

	SignInQuery struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	SignUpQuery struct {
		Username string `json:"username"`
		Password string `json:"password"`
		AllyCode string `json:"allyCode"`
		Email    string `json:"email"`
	}
)

// Result 一次后端调用的结果：Payload 与 Err 只会有一个非空
type Result struct {
	Kind      Kind
	ClientID  string
	Query     string
	RequestID string
	Payload   json.RawMessage
	Status    int
	Err       error
	Latency   time.Duration
}

// OK 调用是否成功
func (r Result) OK() bool {
	return r.Err == nil
}
