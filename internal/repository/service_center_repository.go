package repository

import (
	"app/internal/domain/model"
	"context"
)

type ServiceCenterRepository interface {
	FindByID(ctx context.Context, id int64) (model.ServiceCenter, error)
	List(ctx context.Context) ([]model.ServiceCenter, error)
	Create(ctx context.Context, sc model.ServiceCenter) (model.ServiceCenter, error)
}
