package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"aitex/internal/core"
	"aitex/internal/util"

	"github.com/gin-gonic/gin"
)

func TestStatusForCode(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{core.ErrCodeConfig, http.StatusBadRequest},
		{core.ErrCodeDecode, http.StatusUnprocessableEntity},
		{core.ErrCodeEncode, http.StatusInternalServerError},
		{core.ErrCodeNetwork, http.StatusBadGateway},
		{core.ErrCodeHTTP, http.StatusBadGateway},
		{core.ErrCodeParse, http.StatusBadGateway},
		{core.ErrCodeIO, http.StatusInternalServerError},
		{"", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := statusForCode(tt.code); got != tt.want {
				t.Errorf("statusForCode(%q) = %d, want %d", tt.code, got, tt.want)
			}
		})
	}
}

func TestRespondWithError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   any
	}{
		{"配置错误", core.ErrInvalidConfig("api_url", "must start with http:// or https://"), http.StatusBadRequest, core.ErrCodeConfig},
		{"识别已关闭", core.ErrPipelineDisabled(), http.StatusBadRequest, core.ErrCodeConfig},
		{"解码失败", core.ErrDecode(errors.New("bad header")), http.StatusUnprocessableEntity, core.ErrCodeDecode},
		{"网络错误", core.ErrNetwork(context.DeadlineExceeded), http.StatusBadGateway, core.ErrCodeNetwork},
		{"持久化失败", core.ErrIO("save configuration", errors.New("disk full")), http.StatusInternalServerError, core.ErrCodeIO},
		{"包装后的错误", fmt.Errorf("recognize: %w", core.ErrParse(errors.New("eof"))), http.StatusBadGateway, core.ErrCodeParse},
		{"请求错误", badRequest("request body is empty", nil), http.StatusBadRequest, errorCodeBadRequest},
		{"未知错误", errors.New("boom"), http.StatusInternalServerError, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondWithError(c, tt.err)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body map[string]any
			if err := util.UnmarshalJSON(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("响应不是合法 JSON: %v", err)
			}
			if body["code"] != tt.wantCode {
				t.Errorf("code = %v, want %v", body["code"], tt.wantCode)
			}
			if body["error"] == "" {
				t.Error("error 字段不应为空")
			}
		})
	}
}

func TestConfigUpdate_ApplyTo(t *testing.T) {
	current := core.RecognitionConfig{
		Enabled:      true,
		Provider:     "硅基流动",
		APIBaseURL:   "https://api.example.com/v1",
		APIKey:       "sk-current-123456",
		ModelName:    "qwen-vl",
		SystemPrompt: "prompt",
	}
	disabled := false
	model := "other-vl"
	empty := ""
	masked := util.MaskSecret(current.APIKey)
	fresh := "sk-fresh-abcdef"

	tests := []struct {
		name   string
		update configUpdate
		check  func(t *testing.T, got core.RecognitionConfig)
	}{
		{"空更新保持原值", configUpdate{}, func(t *testing.T, got core.RecognitionConfig) {
			if got != current {
				t.Errorf("got %+v, want %+v", got, current)
			}
		}},
		{"部分字段", configUpdate{Enabled: &disabled, ModelName: &model}, func(t *testing.T, got core.RecognitionConfig) {
			if got.Enabled || got.ModelName != model || got.Provider != current.Provider {
				t.Errorf("unexpected merge result %+v", got)
			}
		}},
		{"空 key 保留原 key", configUpdate{APIKey: &empty}, func(t *testing.T, got core.RecognitionConfig) {
			if got.APIKey != current.APIKey {
				t.Errorf("APIKey = %q, want %q", got.APIKey, current.APIKey)
			}
		}},
		{"掩码 key 保留原 key", configUpdate{APIKey: &masked}, func(t *testing.T, got core.RecognitionConfig) {
			if got.APIKey != current.APIKey {
				t.Errorf("APIKey = %q, want %q", got.APIKey, current.APIKey)
			}
		}},
		{"新 key 替换", configUpdate{APIKey: &fresh}, func(t *testing.T, got core.RecognitionConfig) {
			if got.APIKey != fresh {
				t.Errorf("APIKey = %q, want %q", got.APIKey, fresh)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, tt.update.applyTo(current))
		})
	}
}

func TestMaskedConfig(t *testing.T) {
	cfg := core.RecognitionConfig{APIKey: "sk-1234567890abcdef", ModelName: "m"}
	masked := maskedConfig(cfg)
	if masked.APIKey == cfg.APIKey {
		t.Fatal("key 应被掩码")
	}
	if masked.ModelName != cfg.ModelName {
		t.Error("其它字段不应改变")
	}
	if cfg.APIKey != "sk-1234567890abcdef" {
		t.Error("不应修改原配置")
	}
}
