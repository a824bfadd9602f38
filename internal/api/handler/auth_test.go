package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nyxv/vpn_bot_server/config"
	"github.com/nyxv/vpn_bot_server/internal/model/dto"
	"github.com/nyxv/vpn_bot_server/internal/pkg/response"
	"github.com/nyxv/vpn_bot_server/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

func setupAuthHandler(t *testing.T) *AuthHandler {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	authService := service.NewAuthService(config.JWTConfig{
		Secret:            "test-secret-key",
		ExpireHours:       24,
		AdminPasswordHash: string(hash),
	})
	return NewAuthHandler(authService)
}

func TestAuthHandler_Login_Success(t *testing.T) {
	handler := setupAuthHandler(t)

	router := gin.New()
	router.POST("/login", handler.Login)

	w := performRequest(router, "POST", "/login", dto.LoginRequest{Password: "admin-pass"})
	resp := parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeSuccess, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, data["token"])
}

func TestAuthHandler_Login_WrongPassword(t *testing.T) {
	handler := setupAuthHandler(t)

	router := gin.New()
	router.POST("/login", handler.Login)

	w := performRequest(router, "POST", "/login", dto.LoginRequest{Password: "wrong"})
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeAuthFailed, resp.Code)
}

func TestAuthHandler_Login_MissingPassword(t *testing.T) {
	handler := setupAuthHandler(t)

	router := gin.New()
	router.POST("/login", handler.Login)

	w := performRequest(router, "POST", "/login", map[string]interface{}{})
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeParamError, resp.Code)
}
