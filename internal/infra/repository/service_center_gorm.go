package repository

import (
	"context"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"gorm.io/gorm"
)

type ServiceCenterGormRepository struct {
	db *gorm.DB
}

// DI
func NewServiceCenterGormRepository(db *gorm.DB) *ServiceCenterGormRepository {
	return &ServiceCenterGormRepository{db: db}
}

func (r *ServiceCenterGormRepository) FindByID(ctx context.Context, id int64) (model.ServiceCenter, error) {
	var sc model.ServiceCenter
	err := r.db.WithContext(ctx).First(&sc, id).Error
	if isNotFound(err) {
		return model.ServiceCenter{}, repo.ErrNotFound
	}
	if err != nil {
		return model.ServiceCenter{}, translatePGError(err)
	}
	return sc, nil
}

func (r *ServiceCenterGormRepository) List(ctx context.Context) ([]model.ServiceCenter, error) {
	var scs []model.ServiceCenter
	if err := r.db.WithContext(ctx).Order("id").Find(&scs).Error; err != nil {
		return nil, translatePGError(err)
	}
	return scs, nil
}

func (r *ServiceCenterGormRepository) Create(ctx context.Context, sc model.ServiceCenter) (model.ServiceCenter, error) {
	if err := r.db.WithContext(ctx).Create(&sc).Error; err != nil {
		return model.ServiceCenter{}, translatePGError(err)
	}
	return sc, nil
}
