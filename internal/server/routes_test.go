package server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"assistantsproxy/internal/config"
	"assistantsproxy/internal/core"

	"github.com/bytedance/sonic"
)

const testClientKey = "test-key"

// newUpstream fakes the vendor list endpoint. Each api key gets assistants
// whose model is the deployment name Azure reports.
func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body string
		switch {
		case r.Header.Get("api-key") == "key-1":
			body = `{"object":"list","data":[{"id":"asst_a","object":"assistant","created_at":1,"model":"d1"},{"id":"asst_b","object":"assistant","created_at":2,"model":"d2"}],"first_id":"asst_a","last_id":"asst_b","has_more":false}`
		case r.Header.Get("api-key") == "key-2":
			body = `{"object":"list","data":[{"id":"asst_c","object":"assistant","created_at":3,"model":"d3"}],"first_id":"asst_c","last_id":"asst_c","has_more":false}`
		case r.Header.Get(core.HeaderAuthorization) == "Bearer sk-direct":
			body = fmt.Sprintf(`{"object":"list","data":[{"id":"asst_direct","object":"assistant","created_at":1,"model":"gpt-4o","description":%q}],"first_id":"asst_direct","last_id":"asst_direct","has_more":true}`,
				r.Header.Get("OpenAI-Beta"))
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
			return
		}
		w.Header().Set(core.HeaderContentType, core.ContentTypeJSON)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testAzureConfig(t *testing.T, baseURL string) *core.AzureAssistantsConfig {
	t.Helper()
	azure, err := config.BuildAzureConfig(&config.AzureEndpoint{
		Assistants: true,
		Groups: []core.AzureGroup{
			{
				Name: "g1", APIKey: "key-1", BaseURL: baseURL, DeploymentName: "d1", Assistants: true,
				Models: core.NewModelMap(
					core.ModelEntry{Name: "gpt-a", Config: core.ModelConfig{DeploymentName: "d1"}},
					core.ModelEntry{Name: "gpt-b", Config: core.ModelConfig{DeploymentName: "d2"}},
				),
			},
			{
				Name: "g2", APIKey: "key-2", BaseURL: baseURL, Assistants: true,
				Models: core.NewModelMap(core.ModelEntry{Name: "gpt-c", Config: core.ModelConfig{DeploymentName: "d3"}}),
			},
		},
	})
	if err != nil {
		t.Fatalf("构建 Azure 配置失败: %v", err)
	}
	return azure
}

func testServerConfig(t *testing.T, storage core.StorageInterface) config.ServerConfig {
	t.Helper()
	upstream := newUpstream(t)

	return config.ServerConfig{
		Port:          "0",
		GinMode:       "test",
		ClientAPIKeys: []string{testClientKey},
		RateLimit:     1000,
		Assistants:    config.DirectSettings{APIKey: "sk-direct", BaseURL: upstream.URL + "/v1"},
		Azure:         testAzureConfig(t, upstream.URL),
		HTTPClientSettings: config.HTTPClientSettings{
			MaxIdleConns:        1,
			MaxIdleConnsPerHost: 1,
			MaxConnsPerHost:     4,
			IdleConnTimeout:     time.Second,
			TLSHandshakeTimeout: time.Second,
			RequestTimeout:      5 * time.Second,
		},
		Storage: storage,
		Logger:  &core.NopLogger{},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	server, err := NewServer(testServerConfig(t, &spyStorage{}))
	if err != nil {
		t.Fatalf("创建测试 Server 失败: %v", err)
	}
	t.Cleanup(func() {
		_ = server.Close()
	})
	return server
}

func doRequest(server *Server, method, target string, body []byte, authed bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set(core.HeaderContentType, core.ContentTypeJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if authed {
		req.Header.Set(core.HeaderAuthorization, core.AuthBearerPrefix+testClientKey)
	}
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	return w
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) core.AssistantList {
	t.Helper()
	var list core.AssistantList
	if err := sonic.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("解析响应失败: %v, body=%s", err, w.Body.String())
	}
	return list
}

func TestServerRoutes_PublicAccess(t *testing.T) {
	server := newTestServer(t)

	for _, path := range []string{"/health", "/api/stats", "/metrics"} {
		if w := doRequest(server, http.MethodGet, path, nil, false); w.Code != http.StatusOK {
			t.Fatalf("%s 应公开访问，实际 %d", path, w.Code)
		}
	}

	if w := doRequest(server, http.MethodGet, "/api/endpoints", nil, false); w.Code != http.StatusUnauthorized {
		t.Fatalf("/api/endpoints 应需要认证，实际 %d", w.Code)
	}
	if w := doRequest(server, http.MethodGet, "/api/assistants?endpoint=assistants", nil, false); w.Code != http.StatusUnauthorized {
		t.Fatalf("/api/assistants 应需要认证，实际 %d", w.Code)
	}
}

func TestServerRoutes_Endpoints(t *testing.T) {
	server := newTestServer(t)

	w := doRequest(server, http.MethodGet, "/api/endpoints", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("/api/endpoints 应返回 200，实际 %d", w.Code)
	}

	var cfg core.EndpointsConfig
	if err := sonic.Unmarshal(w.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if _, ok := cfg[core.EndpointAssistants.String()]; !ok {
		t.Fatalf("应包含 assistants 端点: %v", cfg)
	}
	if _, ok := cfg[core.EndpointAzureAssistants.String()]; !ok {
		t.Fatalf("应包含 azureAssistants 端点: %v", cfg)
	}
}

func TestServerRoutes_ListDirect(t *testing.T) {
	server := newTestServer(t)

	w := doRequest(server, http.MethodGet, "/api/assistants?endpoint=assistants&limit=5", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("直连列表应返回 200，实际 %d: %s", w.Code, w.Body.String())
	}

	list := decodeList(t, w)
	if len(list.Data) != 1 || list.Data[0].ID != "asst_direct" {
		t.Fatalf("应透传上游结果，实际 %+v", list.Data)
	}
	if !list.HasMore {
		t.Fatal("直连列表应保留上游 has_more")
	}
	if desc := list.Data[0].Description; desc == nil || *desc != "assistants=v2" {
		t.Fatalf("未指定版本时直连应使用 v2，实际 %v", desc)
	}
}

func TestServerRoutes_ListDirectVersionFromPath(t *testing.T) {
	server := newTestServer(t)

	w := doRequest(server, http.MethodGet, "/api/assistants/v1?endpoint=assistants", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("应返回 200，实际 %d: %s", w.Code, w.Body.String())
	}
	list := decodeList(t, w)
	if desc := list.Data[0].Description; desc == nil || *desc != "assistants=v1" {
		t.Fatalf("路径版本应优先，实际 %v", desc)
	}
}

func TestServerRoutes_ListAzureMergesGroups(t *testing.T) {
	server := newTestServer(t)

	w := doRequest(server, http.MethodGet, "/api/assistants?endpoint=azureAssistants", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("Azure 列表应返回 200，实际 %d: %s", w.Code, w.Body.String())
	}

	list := decodeList(t, w)
	wantIDs := []string{"asst_a", "asst_b", "asst_c"}
	wantModels := []string{"gpt-a", "gpt-b", "gpt-c"}
	if len(list.Data) != len(wantIDs) {
		t.Fatalf("应合并全部分组，实际 %d 条", len(list.Data))
	}
	for i := range wantIDs {
		if list.Data[i].ID != wantIDs[i] || list.Data[i].Model != wantModels[i] {
			t.Fatalf("第 %d 条应为 %s/%s，实际 %s/%s", i, wantIDs[i], wantModels[i], list.Data[i].ID, list.Data[i].Model)
		}
	}
	if list.FirstID == nil || *list.FirstID != "asst_a" || list.LastID == nil || *list.LastID != "asst_c" {
		t.Fatalf("first_id/last_id 应取合并结果边界，实际 %v/%v", list.FirstID, list.LastID)
	}
	if list.HasMore {
		t.Fatal("合并结果 has_more 应为 false")
	}
}

func TestServerRoutes_ListErrors(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name   string
		target string
		body   []byte
		status int
		errMsg string
	}{
		{name: "缺少 endpoint", target: "/api/assistants/v2", status: http.StatusBadRequest, errMsg: "Endpoint is required"},
		{name: "缺少 endpoint 且无版本", target: "/api/assistants", status: http.StatusBadRequest, errMsg: "Invalid version"},
		{name: "未知 endpoint", target: "/api/assistants/v2?endpoint=gptPlugins", status: http.StatusBadRequest, errMsg: "gptPlugins"},
		{name: "非法版本", target: "/api/assistants?endpoint=assistants", body: []byte(`{"version":"22"}`), status: http.StatusBadRequest, errMsg: "Invalid version"},
		{name: "非法 limit", target: "/api/assistants?endpoint=assistants&limit=0", status: http.StatusBadRequest, errMsg: "limit"},
		{name: "非法 order", target: "/api/assistants?endpoint=assistants&order=up", status: http.StatusBadRequest, errMsg: "order"},
		{name: "非法请求体", target: "/api/assistants?endpoint=assistants", body: []byte(`{`), status: http.StatusBadRequest, errMsg: "invalid request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(server, http.MethodGet, tt.target, tt.body, true)
			if w.Code != tt.status {
				t.Fatalf("期望状态 %d，实际 %d: %s", tt.status, w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), tt.errMsg) {
				t.Fatalf("错误信息应包含 %q，实际 %s", tt.errMsg, w.Body.String())
			}
		})
	}
}

func TestServerRoutes_DisabledEndpoint(t *testing.T) {
	cfg := testServerConfig(t, &spyStorage{})
	cfg.Assistants = config.DirectSettings{}
	server, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("创建测试 Server 失败: %v", err)
	}
	defer func() { _ = server.Close() }()

	w := doRequest(server, http.MethodGet, "/api/assistants?endpoint=assistants", nil, true)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("未启用的端点应返回 400，实际 %d", w.Code)
	}

	cfgStore, ok, err := server.configStore.GetEndpointsConfig(context.Background())
	if err != nil || !ok {
		t.Fatalf("启动时应发布端点配置: ok=%v err=%v", ok, err)
	}
	if _, exists := cfgStore[core.EndpointAssistants.String()]; exists {
		t.Fatal("未启用的端点不应出现在端点配置中")
	}
}

func TestServerRoutes_UpstreamClientError(t *testing.T) {
	cfg := testServerConfig(t, &spyStorage{})
	cfg.Assistants.APIKey = "sk-wrong"
	server, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("创建测试 Server 失败: %v", err)
	}
	defer func() { _ = server.Close() }()

	w := doRequest(server, http.MethodGet, "/api/assistants?endpoint=assistants", nil, true)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("上游 4xx 应透传状态码，实际 %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "bad key") {
		t.Fatalf("上游 4xx 应透传错误信息，实际 %s", w.Body.String())
	}
}

type spyStorage struct {
	mu       sync.Mutex
	saveCall int
	lastStat core.RequestStats
}

func (s *spyStorage) SaveStats(stats *core.RequestStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saveCall++
	if stats != nil {
		s.lastStat = *stats
		s.lastStat.RequestHistory = append([]core.RequestRecord(nil), stats.RequestHistory...)
	}
	return nil
}

func (s *spyStorage) LoadStats() (*core.RequestStats, error) {
	return &core.RequestStats{}, nil
}

func (s *spyStorage) Close() error {
	return nil
}

func (s *spyStorage) snapshot() (int, core.RequestStats) {
	s.mu.Lock()
	defer s.mu.Unlock()

	statsCopy := s.lastStat
	statsCopy.RequestHistory = append([]core.RequestRecord(nil), s.lastStat.RequestHistory...)
	return s.saveCall, statsCopy
}

func TestServerClose_PersistsBufferedMetrics(t *testing.T) {
	st := &spyStorage{}
	server, err := NewServer(testServerConfig(t, st))
	if err != nil {
		t.Fatalf("创建测试 Server 失败: %v", err)
	}

	server.metricsService.RecordRequest(true, 10, "assistants", "v2", 3)
	server.metricsService.RecordRequest(false, 20, "assistants", "v2", 0)

	beforeSaves, beforeStats := st.snapshot()
	if beforeStats.TotalRequests != 1 {
		t.Fatalf("关闭前应只持久化首条记录，实际 total=%d", beforeStats.TotalRequests)
	}

	if err := server.Close(); err != nil {
		t.Fatalf("关闭 Server 失败: %v", err)
	}

	afterSaves, afterStats := st.snapshot()
	if afterSaves <= beforeSaves {
		t.Fatalf("关闭后应触发最终持久化，save 次数 %d -> %d", beforeSaves, afterSaves)
	}
	if afterStats.TotalRequests != 2 {
		t.Fatalf("关闭后应持久化全部请求，实际 total=%d", afterStats.TotalRequests)
	}
	if afterStats.TotalAssistants != 3 {
		t.Fatalf("关闭后应持久化助手总数，实际 %d", afterStats.TotalAssistants)
	}
	if len(afterStats.RequestHistory) != 2 {
		t.Fatalf("关闭后应持久化完整历史，实际 history=%d", len(afterStats.RequestHistory))
	}
}

func TestServerClose_Idempotent(t *testing.T) {
	server := newTestServer(t)

	if err := server.Close(); err != nil {
		t.Fatalf("第一次关闭失败: %v", err)
	}
	if err := server.Close(); err != nil {
		t.Fatalf("第二次关闭失败: %v", err)
	}
}

func TestNewServer_RequiresLoggerAndStorage(t *testing.T) {
	if _, err := NewServer(config.ServerConfig{Storage: &spyStorage{}}); err == nil {
		t.Fatal("缺少 Logger 应返回错误")
	}
	if _, err := NewServer(config.ServerConfig{Logger: &core.NopLogger{}}); err == nil {
		t.Fatal("缺少 Storage 应返回错误")
	}
}
