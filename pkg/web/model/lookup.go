package model

import "encoding/json"

// 表单请求结构，字段值不做校验
type (
	CharacterForm struct {
		CharID string `form:"charId"`
	}

	AccountForm struct {
		AllyCode string `form:"allyCode"`
	}

	SignInForm struct {
		Username string `form:"username"`
		Password string `form:"password"`
	}

	SignUpForm struct {
		Username string `form:"username"`
		Password string `form:"password"`
		AllyCode string `form:"allyCode"`
		Email    string `form:"email"`
	}
)

// Envelope JSON 接口的统一应答
type Envelope struct {
	OK        bool            `json:"ok"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	Status    int             `json:"status,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
}

type OutputRes struct {
	Output string `json:"output"`
}
