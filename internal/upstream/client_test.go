package upstream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"aitex/internal/config"
	"aitex/internal/convert"
	"aitex/internal/core"
	"aitex/internal/util"
)

func testConfig(baseURL string) core.RecognitionConfig {
	return core.RecognitionConfig{
		Enabled:      true,
		Provider:     "test",
		APIBaseURL:   baseURL,
		APIKey:       "sk-test-1234567890",
		ModelName:    "vision-model",
		SystemPrompt: "system",
	}
}

type countingMetrics struct {
	core.NopMetrics
	requests atomic.Int64
	errors   atomic.Int64
}

func (m *countingMetrics) RecordHTTPRequest(time.Duration) { m.requests.Add(1) }
func (m *countingMetrics) RecordHTTPError()                { m.errors.Add(1) }

func TestEndpoint(t *testing.T) {
	tests := []struct {
		name string
		base string
		want string
	}{
		{"无尾斜杠", "https://api.example.com/v1", "https://api.example.com/v1/chat/completions"},
		{"单个尾斜杠", "https://api.example.com/v1/", "https://api.example.com/v1/chat/completions"},
		{"仅移除一个斜杠", "https://api.example.com/v1//", "https://api.example.com/v1//chat/completions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Endpoint(tt.base); got != tt.want {
				t.Errorf("Endpoint(%q) = %q, want %q", tt.base, got, tt.want)
			}
		})
	}
}

func TestClient_Send_Success(t *testing.T) {
	var gotPath, gotAuth, gotContentType string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		_ = util.UnmarshalJSON(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"$x^2$"}}]}`))
	}))
	defer server.Close()

	cfg := testConfig(server.URL + "/v1/")
	client := NewClient(server.Client(), nil, nil)

	reply, err := client.Send(context.Background(), cfg, convert.BuildProbeRequest(cfg))
	if err != nil {
		t.Fatalf("Send失败: %v", err)
	}
	if reply != "$x^2$" {
		t.Errorf("reply = %q, want $x^2$", reply)
	}
	if gotPath != "/v1/chat/completions" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer sk-test-1234567890" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if gotBody["model"] != "vision-model" {
		t.Errorf("model = %v", gotBody["model"])
	}
	if gotBody["max_tokens"] != float64(10) {
		t.Errorf("max_tokens = %v", gotBody["max_tokens"])
	}
}

func TestClient_Send_HTTPError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"未授权", http.StatusUnauthorized, "invalid key"},
		{"服务端错误", http.StatusInternalServerError, `{"error":"boom"}`},
		{"空响应体", http.StatusTooManyRequests, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			metrics := &countingMetrics{}
			client := NewClient(server.Client(), metrics, &core.NopLogger{})
			cfg := testConfig(server.URL)

			reply, err := client.Send(context.Background(), cfg, convert.BuildProbeRequest(cfg))
			if reply != "" {
				t.Errorf("失败时不应返回内容: %q", reply)
			}
			if core.ErrorCode(err) != core.ErrCodeHTTP {
				t.Fatalf("期望HTTP_ERROR, 实际: %v", err)
			}
			var statusErr *core.HTTPStatusError
			if !errors.As(err, &statusErr) {
				t.Fatalf("错误链中应包含HTTPStatusError: %v", err)
			}
			if statusErr.StatusCode != tt.status || statusErr.Body != tt.body {
				t.Errorf("HTTPStatusError = {%d, %q}, want {%d, %q}", statusErr.StatusCode, statusErr.Body, tt.status, tt.body)
			}
			if metrics.errors.Load() != 1 {
				t.Errorf("HTTP错误计数 = %d, want 1", metrics.errors.Load())
			}
		})
	}
}

func TestClient_Send_ParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[`))
	}))
	defer server.Close()

	client := NewClient(server.Client(), nil, nil)
	cfg := testConfig(server.URL)

	_, err := client.Send(context.Background(), cfg, convert.BuildProbeRequest(cfg))
	if core.ErrorCode(err) != core.ErrCodeParse {
		t.Errorf("期望PARSE_ERROR, 实际: %v", err)
	}
}

func TestClient_Send_MissingContent(t *testing.T) {
	bodies := map[string]string{
		"空对象":        `{}`,
		"空choices":   `{"choices":[]}`,
		"缺少message":  `{"choices":[{"index":0}]}`,
		"content为空值": `{"choices":[{"message":{"content":null}}]}`,
		"content为数组": `{"choices":[{"message":{"content":[{"type":"text","text":"x"}]}}]}`,
		"顶层为数组":      `[1,2,3]`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer server.Close()

			client := NewClient(server.Client(), nil, nil)
			cfg := testConfig(server.URL)

			reply, err := client.Send(context.Background(), cfg, convert.BuildProbeRequest(cfg))
			if err != nil {
				t.Fatalf("结构不符时应容忍, 实际错误: %v", err)
			}
			if reply != "" {
				t.Errorf("reply = %q, want empty", reply)
			}
		})
	}
}

func TestClient_Send_NetworkError(t *testing.T) {
	t.Run("连接被拒绝", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		metrics := &countingMetrics{}
		client := NewClient(&http.Client{Timeout: time.Second}, metrics, nil)
		cfg := testConfig(url)

		_, err := client.Send(context.Background(), cfg, convert.BuildProbeRequest(cfg))
		if core.ErrorCode(err) != core.ErrCodeNetwork {
			t.Errorf("期望NETWORK_ERROR, 实际: %v", err)
		}
		if metrics.errors.Load() != 1 {
			t.Errorf("HTTP错误计数 = %d, want 1", metrics.errors.Load())
		}
	})

	t.Run("超时", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		client := NewClient(&http.Client{Timeout: 50 * time.Millisecond}, nil, nil)
		cfg := testConfig(server.URL)

		_, err := client.Send(context.Background(), cfg, convert.BuildProbeRequest(cfg))
		if core.ErrorCode(err) != core.ErrCodeNetwork {
			t.Errorf("期望NETWORK_ERROR, 实际: %v", err)
		}
	})

	t.Run("上下文已取消", func(t *testing.T) {
		var calls atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		client := NewClient(server.Client(), nil, nil)
		cfg := testConfig(server.URL)

		_, err := client.Send(ctx, cfg, convert.BuildProbeRequest(cfg))
		if core.ErrorCode(err) != core.ErrCodeNetwork {
			t.Errorf("期望NETWORK_ERROR, 实际: %v", err)
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("错误链中应包含context.Canceled: %v", err)
		}
		if calls.Load() != 0 {
			t.Errorf("取消后不应发出请求, calls = %d", calls.Load())
		}
	})

	t.Run("非法地址", func(t *testing.T) {
		client := NewClient(nil, nil, nil)
		cfg := testConfig("http://bad host")

		_, err := client.Send(context.Background(), cfg, convert.BuildProbeRequest(cfg))
		if core.ErrorCode(err) != core.ErrCodeNetwork {
			t.Errorf("期望NETWORK_ERROR, 实际: %v", err)
		}
	})
}

func TestExtractReplyContent(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		want    string
		wantOK  bool
	}{
		{"nil", nil, "", false},
		{"字符串", "text", "", false},
		{
			name: "正常结构",
			payload: map[string]any{"choices": []any{
				map[string]any{"message": map[string]any{"content": "ok"}},
			}},
			want:   "ok",
			wantOK: true,
		},
		{
			name: "仅取第一个choice",
			payload: map[string]any{"choices": []any{
				map[string]any{"message": map[string]any{"content": "first"}},
				map[string]any{"message": map[string]any{"content": "second"}},
			}},
			want:   "first",
			wantOK: true,
		},
		{
			name:    "空字符串内容",
			payload: map[string]any{"choices": []any{map[string]any{"message": map[string]any{"content": ""}}}},
			want:    "",
			wantOK:  true,
		},
		{
			name:    "choices非数组",
			payload: map[string]any{"choices": "x"},
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractReplyContent(tt.payload)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ExtractReplyContent() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNewHTTPClient(t *testing.T) {
	settings := config.DefaultHTTPClientSettings()
	settings.RequestTimeout = 3 * time.Second

	client := NewHTTPClient(settings)
	if client.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", client.Timeout)
	}
	transport, ok := client.Transport.(*http.Transport)
	if !ok {
		t.Fatal("Transport should be *http.Transport")
	}
	if transport.MaxIdleConnsPerHost != settings.MaxIdleConnsPerHost {
		t.Errorf("MaxIdleConnsPerHost = %d, want %d", transport.MaxIdleConnsPerHost, settings.MaxIdleConnsPerHost)
	}
}
