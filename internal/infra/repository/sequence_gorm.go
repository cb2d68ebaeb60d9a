package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// prefix+year スコープの連番。行ロックで直列化するので同じ番号は二度出ない。
type SequenceGormRepository struct {
	db *gorm.DB
}

// DI
func NewSequenceGormRepository(db *gorm.DB) *SequenceGormRepository {
	return &SequenceGormRepository{db: db}
}

func (r *SequenceGormRepository) Next(ctx context.Context, prefix string, year int) (int, error) {
	var seq model.DocumentSequence

	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("prefix = ? AND year = ?", prefix, year).
		First(&seq).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		//その年の最初の発番。同時作成に負けてもUNIQUEで弾かれるだけなので取り直す
		seq = model.DocumentSequence{Prefix: prefix, Year: year, LastSeq: 0}
		if err := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&seq).Error; err != nil {
			return 0, translatePGError(err)
		}
		if err := r.db.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("prefix = ? AND year = ?", prefix, year).
			First(&seq).Error; err != nil {
			return 0, translatePGError(err)
		}
	} else if err != nil {
		return 0, translatePGError(err)
	}

	next := seq.LastSeq + 1
	if err := r.db.WithContext(ctx).
		Model(&model.DocumentSequence{}).
		Where("id = ?", seq.ID).
		Update("last_seq", next).Error; err != nil {
		return 0, translatePGError(err)
	}
	return next, nil
}
