package user

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/CarOnePlus/CarOnePlus/internal/common/auth"
	"github.com/CarOnePlus/CarOnePlus/internal/common/config"
	"github.com/CarOnePlus/CarOnePlus/internal/common/logger"
	"github.com/CarOnePlus/CarOnePlus/internal/mail"
	"github.com/google/uuid"
)

const resetCodeTTL = 15 * time.Minute

// Service 封装账号领域的核心用例（注册/登录/登出/重置密码）。
type Service struct {
	repo    *Repo
	authCfg config.AuthConfig
	mailer  mail.Mailer
	log     logger.Logger
}

func NewService(repo *Repo, authCfg config.AuthConfig, mailer mail.Mailer, log logger.Logger) *Service {
	return &Service{repo: repo, authCfg: authCfg, mailer: mailer, log: log}
}

// Register 创建账号。邮箱唯一，密码以 bcrypt 存储。
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email")
	}
	if len(password) < 6 {
		return nil, fmt.Errorf("password too short")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Roles:        "user",
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// LoginResult 登录结果。
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *User
}

// Login 校验口令并签发 access token。
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !VerifyPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	ttl := time.Duration(s.authCfg.TokenTTLMinutes) * time.Minute
	token, exp, err := auth.GenerateAccessToken(s.authCfg, u.ID, u.RolesSlice(), ttl)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &LoginResult{Token: token, ExpiresAt: exp, User: u}, nil
}

// Logout 吊销当前 token（按 jti 持久化）。
func (s *Service) Logout(ctx context.Context, userID, tokenID string, expiresAt time.Time) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("service not initialized")
	}
	if tokenID == "" {
		return fmt.Errorf("token id is empty")
	}
	return s.repo.RevokeToken(ctx, &RevokedToken{
		TokenID:   tokenID,
		UserID:    userID,
		ExpiresAt: expiresAt,
	})
}

// IsRevoked 实现鉴权中间件的吊销查询接口。
func (s *Service) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if s == nil || s.repo == nil {
		return false, fmt.Errorf("service not initialized")
	}
	return s.repo.IsTokenRevoked(ctx, tokenID)
}

// Get 按 ID 取用户。
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.repo.FindByID(ctx, id)
}

// RequestPasswordReset 生成重置码并发邮件。
// 为避免账号枚举，邮箱不存在时同样返回成功。
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("service not initialized")
	}
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if s.log != nil {
			s.log.Infof("password reset requested for unknown email")
		}
		return nil
	}

	code, err := generateResetCode()
	if err != nil {
		return err
	}
	rc := &PasswordResetCode{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		Code:      code,
		ExpiresAt: time.Now().Add(resetCodeTTL),
	}
	if err := s.repo.CreateResetCode(ctx, rc); err != nil {
		return err
	}

	if s.mailer != nil {
		body := fmt.Sprintf("Your CarOnePlus password reset code is %s. It expires in 15 minutes.", code)
		if err := s.mailer.Send(u.Email, "Password reset", body); err != nil && s.log != nil {
			s.log.Warnf("failed to send reset mail: %v", err)
		}
	}
	return nil
}

// ResetPassword 校验重置码并更新口令；重置码一次性消费。
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("service not initialized")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if len(newPassword) < 6 {
		return fmt.Errorf("password too short")
	}

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return ErrInvalidResetCode
	}
	now := time.Now()
	rc, err := s.repo.FindActiveResetCode(ctx, u.ID, strings.TrimSpace(code), now)
	if err != nil {
		return ErrInvalidResetCode
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePasswordHash(ctx, u.ID, hash); err != nil {
		return err
	}
	return s.repo.MarkResetCodeUsed(ctx, rc.ID, now)
}

// generateResetCode 生成 6 位数字码。
func generateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("rand: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
