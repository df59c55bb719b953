package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// jsonDuration 配置文件里的时长既可以写 "10s" 也可以写纳秒整数
type jsonDuration time.Duration

func (d *jsonDuration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		*d = jsonDuration(parsed)
	case float64:
		*d = jsonDuration(time.Duration(value))
	case nil:
	default:
		return fmt.Errorf("invalid duration %s", data)
	}
	return nil
}

func (b *BackendConfig) UnmarshalJSON(data []byte) error {
	type plain BackendConfig
	aux := struct {
		*plain
		Timeout     *jsonDuration `json:"timeout"`
		DialTimeout *jsonDuration `json:"dialTimeout"`
	}{
		plain:       (*plain)(b),
		Timeout:     (*jsonDuration)(&b.Timeout),
		DialTimeout: (*jsonDuration)(&b.DialTimeout),
	}
	return json.Unmarshal(data, &aux)
}

func (c *CORSConfig) UnmarshalJSON(data []byte) error {
	type plain CORSConfig
	aux := struct {
		*plain
		MaxAge *jsonDuration `json:"maxAge"`
	}{
		plain:  (*plain)(c),
		MaxAge: (*jsonDuration)(&c.MaxAge),
	}
	return json.Unmarshal(data, &aux)
}

func (s *SessionConfig) UnmarshalJSON(data []byte) error {
	type plain SessionConfig
	aux := struct {
		*plain
		CookieMaxAge *jsonDuration `json:"cookieMaxAge"`
	}{
		plain:        (*plain)(s),
		CookieMaxAge: (*jsonDuration)(&s.CookieMaxAge),
	}
	return json.Unmarshal(data, &aux)
}

func (r *RateLimitConfig) UnmarshalJSON(data []byte) error {
	type plain RateLimitConfig
	aux := struct {
		*plain
		Interval *jsonDuration `json:"interval"`
	}{
		plain:    (*plain)(r),
		Interval: (*jsonDuration)(&r.Interval),
	}
	return json.Unmarshal(data, &aux)
}
