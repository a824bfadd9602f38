package service

import (
	"errors"
	"log"

	"golang.org/x/crypto/bcrypt"

	"github.com/nyxv/vpn_bot_server/config"
	"github.com/nyxv/vpn_bot_server/internal/model/dto"
	"github.com/nyxv/vpn_bot_server/internal/pkg/jwt"
)

var ErrInvalidCredentials = errors.New("用户名或密码错误")

// adminUserID 后台单管理员账号的固定主体 ID
const adminUserID int64 = 0

// AuthService 管理后台登录
type AuthService struct {
	jwtConfig config.JWTConfig
}

func NewAuthService(jwtConfig config.JWTConfig) *AuthService {
	return &AuthService{jwtConfig: jwtConfig}
}

// Login 校验管理员口令并签发 JWT
func (s *AuthService) Login(req *dto.LoginRequest) (*dto.LoginResponse, error) {
	if err := bcrypt.CompareHashAndPassword([]byte(s.jwtConfig.AdminPasswordHash), []byte(req.Password)); err != nil {
		log.Printf("Admin login failed: invalid password")
		return nil, ErrInvalidCredentials
	}

	token, err := jwt.GenerateToken(adminUserID, s.jwtConfig.Secret, s.jwtConfig.ExpireHours)
	if err != nil {
		return nil, err
	}

	log.Println("Admin login succeeded")
	return &dto.LoginResponse{
		Token:     token,
		ExpiresIn: int64(s.jwtConfig.ExpireHours) * 3600,
	}, nil
}
