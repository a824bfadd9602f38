package remnawave

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/nyxv/vpn_bot_server/config"
)

// Client Remnawave 面板 HTTP 客户端。
// 返回的用户对象保持原始 map 形状，命名规范化交给 dto 层统一处理。
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(cfg *config.RemnawaveConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateUserRequest 面板建用户请求（写入侧统一用 camelCase）
type CreateUserRequest struct {
	Username             string   `json:"username"`
	Status               string   `json:"status,omitempty"`
	ExpireAt             string   `json:"expireAt"`
	TrafficLimitBytes    int64    `json:"trafficLimitBytes"`
	HwidDeviceLimit      int      `json:"hwidDeviceLimit"`
	TelegramID           int64    `json:"telegramId"`
	Description          string   `json:"description,omitempty"`
	ActiveInternalSquads []string `json:"activeInternalSquads"`
}

// UpdateUserRequest 面板改用户请求
type UpdateUserRequest struct {
	UUID                 string   `json:"uuid"`
	Status               string   `json:"status,omitempty"`
	ExpireAt             string   `json:"expireAt,omitempty"`
	TrafficLimitBytes    int64    `json:"trafficLimitBytes"`
	HwidDeviceLimit      int      `json:"hwidDeviceLimit"`
	TelegramID           int64    `json:"telegramId,omitempty"`
	Description          string   `json:"description,omitempty"`
	ActiveInternalSquads []string `json:"activeInternalSquads,omitempty"`
}

// GetUserByTelegramID 按 telegram id 拉取面板侧用户状态。
// 面板未找到用户时返回 (nil, nil)。
func (c *Client) GetUserByTelegramID(ctx context.Context, telegramID int64) ([]map[string]interface{}, error) {
	path := "/api/users/by-telegram-id/" + strconv.FormatInt(telegramID, 10)

	var result struct {
		Response []map[string]interface{} `json:"response"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	return result.Response, nil
}

// CreateUser 在面板上建用户
func (c *Client) CreateUser(ctx context.Context, req *CreateUserRequest) (map[string]interface{}, error) {
	var result struct {
		Response map[string]interface{} `json:"response"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/users", req, &result); err != nil {
		return nil, err
	}
	return result.Response, nil
}

// UpdateUser 更新面板用户
func (c *Client) UpdateUser(ctx context.Context, req *UpdateUserRequest) (map[string]interface{}, error) {
	var result struct {
		Response map[string]interface{} `json:"response"`
	}
	if err := c.do(ctx, http.MethodPatch, "/api/users", req, &result); err != nil {
		return nil, err
	}
	return result.Response, nil
}

// DisableUser 停用面板用户
func (c *Client) DisableUser(ctx context.Context, userUUID string) error {
	path := fmt.Sprintf("/api/users/%s/actions/disable", userUUID)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("panel api error: status %d: %s", e.StatusCode, e.Body)
}

func isNotFound(err error) bool {
	apiErr, ok := err.(*apiError)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("panel request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return &apiError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode panel response: %w", err)
	}
	return nil
}
