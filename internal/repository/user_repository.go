package repository

import (
	"app/internal/domain/model"
	"context"
)

// ユーザーの永続化（保存・取得）だけを約束。
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (model.User, error)
	FindByID(ctx context.Context, id int64) (model.User, error)
	Create(ctx context.Context, u model.User) (model.User, error)
	UpdateLastLogin(ctx context.Context, id int64) error
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, t model.RefreshToken) error
	FindByTokenHash(ctx context.Context, hash string) (model.RefreshToken, error)
	Revoke(ctx context.Context, id string) error
}
