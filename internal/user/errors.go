package user

import "errors"

var (
	// ErrInvalidCredentials 邮箱或密码错误（对外不区分）
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidResetCode 重置码无效、过期或已使用
	ErrInvalidResetCode = errors.New("invalid or expired reset code")
)
