package repository

import (
	"errors"

	repo "app/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PGのエラーコードをrepository層のエラーへ寄せる。
// 直列化競合・デッドロックは呼び出し側がリトライできるよう ErrConflict にする。
func translatePGError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repo.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": //unique_violation
			return repo.ErrConflict
		case "40001": //serialization_failure
			return repo.ErrConflict
		case "40P01": //deadlock_detected
			return repo.ErrConflict
		}
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
