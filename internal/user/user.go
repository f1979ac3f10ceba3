package user

import (
	"strings"
	"time"
)

// User 是 users 表的 GORM 模型。
type User struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Email        string    `gorm:"uniqueIndex;size:120;not null"`
	PasswordHash string    `gorm:"size:128;not null"`
	Roles        string    `gorm:"size:256;not null;default:'user'"` // 逗号分隔，例如 "user,admin"
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// RevokedToken 已吊销的 access token（按 jti 持久化）。
// 登出即插入一条记录；中间件逐请求查询，替代进程内的吊销集合。
type RevokedToken struct {
	TokenID   string    `gorm:"primaryKey;size:36"` // JWT 的 jti
	UserID    string    `gorm:"index;size:36;not null"`
	ExpiresAt time.Time `gorm:"index;not null"` // token 本身的过期时间，过期后记录可清理
	RevokedAt time.Time `gorm:"autoCreateTime"`
}

// PasswordResetCode 密码重置码（持久化，替代早期版本的内存集合）。
type PasswordResetCode struct {
	ID        string     `gorm:"primaryKey;size:36"`
	UserID    string     `gorm:"index;size:36;not null"`
	User      User       `gorm:"constraint:OnDelete:CASCADE"`
	Code      string     `gorm:"index;size:12;not null"`
	ExpiresAt time.Time  `gorm:"not null"`
	UsedAt    *time.Time // 为空表示尚未使用
	CreatedAt time.Time  `gorm:"autoCreateTime"`
}

// RolesSlice 拆出角色列表。
func (u User) RolesSlice() []string {
	if strings.TrimSpace(u.Roles) == "" {
		return nil
	}
	parts := strings.Split(u.Roles, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
