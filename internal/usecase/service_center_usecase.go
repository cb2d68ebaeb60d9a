package usecase

import (
	"context"
	"net/http"
	"strings"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

type CreateServiceCenterInput struct {
	Name string
	Code string
	City string
}

type CenterInventoryOutput struct {
	PartNumber    string  `json:"part_number"`
	PartName      string  `json:"part_name"`
	StockQuantity float64 `json:"stock_quantity"`
}

type ServiceCenterUsecase struct {
	centers repo.ServiceCenterRepository
	tx      repo.TransactionManager
}

func NewServiceCenterUsecase(centers repo.ServiceCenterRepository, tx repo.TransactionManager) *ServiceCenterUsecase {
	return &ServiceCenterUsecase{centers: centers, tx: tx}
}

func (u *ServiceCenterUsecase) Create(ctx context.Context, in CreateServiceCenterInput) (model.ServiceCenter, error) {
	name := strings.TrimSpace(in.Name)
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if name == "" || code == "" {
		return model.ServiceCenter{}, NewHTTPError(http.StatusBadRequest, "name and code required")
	}

	created, err := u.centers.Create(ctx, model.ServiceCenter{
		Name:     name,
		Code:     code,
		City:     strings.TrimSpace(in.City),
		IsActive: true,
	})
	if err != nil {
		if err == repo.ErrConflict {
			return model.ServiceCenter{}, NewHTTPError(http.StatusConflict, "center code already exists")
		}
		return model.ServiceCenter{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return created, nil
}

func (u *ServiceCenterUsecase) List(ctx context.Context) ([]model.ServiceCenter, error) {
	centers, err := u.centers.List(ctx)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return centers, nil
}

// センターのローカル在庫。自センター分だけ見える。
func (u *ServiceCenterUsecase) ListInventory(ctx context.Context, actor Actor, serviceCenterID int64) ([]CenterInventoryOutput, error) {
	if serviceCenterID <= 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if !actor.isStaff() {
		if actor.ServiceCenterID == nil || *actor.ServiceCenterID != serviceCenterID {
			return nil, NewHTTPError(http.StatusForbidden, "forbidden")
		}
	}

	var out []CenterInventoryOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		rows, err := r.CenterInventory().ListByServiceCenterID(ctx, serviceCenterID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = make([]CenterInventoryOutput, 0, len(rows))
		for _, row := range rows {
			out = append(out, CenterInventoryOutput{
				PartNumber:    row.PartNumber,
				PartName:      row.PartName,
				StockQuantity: row.StockQuantity,
			})
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}
