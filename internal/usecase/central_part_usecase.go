package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

type CreatePartInput struct {
	PartName      string
	PartNumber    *string
	StockQuantity float64
	UnitPrice     float64
}

type PartOutput struct {
	ID            int64   `json:"id"`
	PartName      string  `json:"part_name"`
	PartNumber    *string `json:"part_number"`
	StockQuantity float64 `json:"stock_quantity"`
	Allocated     float64 `json:"allocated"`
	Available     float64 `json:"available"`
	UnitPrice     float64 `json:"unit_price"`
}

type PartListOutput struct {
	Items []PartOutput `json:"items"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

type ListPartsInput struct {
	Page  int
	Limit int
	Q     string
}

// セントラル部品台帳の管理系。台帳の引当・払出はPartsIssueUsecase側。
type CentralPartUsecase struct {
	tx  repo.TransactionManager
	now func() time.Time
}

func NewCentralPartUsecase(tx repo.TransactionManager) *CentralPartUsecase {
	return &CentralPartUsecase{tx: tx, now: time.Now}
}

func (u *CentralPartUsecase) CreatePart(ctx context.Context, actor Actor, in CreatePartInput) (PartOutput, error) {
	name := strings.TrimSpace(in.PartName)
	if name == "" {
		return PartOutput{}, NewHTTPError(http.StatusBadRequest, "part_name required")
	}
	if in.StockQuantity < 0 {
		return PartOutput{}, NewHTTPError(http.StatusBadRequest, "stock_quantity must not be negative")
	}
	if in.UnitPrice < 0 {
		return PartOutput{}, NewHTTPError(http.StatusBadRequest, "unit_price must not be negative")
	}
	if in.PartNumber != nil {
		trimmed := strings.TrimSpace(*in.PartNumber)
		if trimmed == "" {
			in.PartNumber = nil
		} else {
			in.PartNumber = &trimmed
		}
	}

	var out PartOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		created, err := r.Parts().Create(ctx, model.CentralInventoryPart{
			PartName:      name,
			PartNumber:    in.PartNumber,
			StockQuantity: in.StockQuantity,
			UnitPrice:     in.UnitPrice,
		})
		if err != nil {
			if err == repo.ErrConflict {
				return NewHTTPError(http.StatusConflict, "part already exists")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actor.UserID,
			Action:       model.AuditActionCreatePart,
			ResourceType: model.AuditResourcePart,
			ResourceID:   created.ID,
			AfterJSON:    mustJSON(map[string]interface{}{"part_name": created.PartName, "stock_quantity": created.StockQuantity}),
			CreatedAt:    u.now(),
		}); err != nil {
			//監査ログの失敗で業務処理は止めない
			_ = err
		}

		out = toPartOutput(created)
		return nil
	})

	if err != nil {
		return PartOutput{}, err
	}
	return out, nil
}

// 在庫の物理入荷（仕入れ着荷）。stock_quantity += qty。
func (u *CentralPartUsecase) DepositStock(ctx context.Context, actor Actor, partID int64, qty float64) (PartOutput, error) {
	if partID <= 0 {
		return PartOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if qty <= 0 {
		return PartOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must be positive")
	}

	var out PartOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Parts().FindByID(ctx, partID); err != nil {
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusNotFound, "part not found")
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := r.Parts().Deposit(ctx, partID, qty); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		p, err := r.Parts().FindByID(ctx, partID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = toPartOutput(p)
		return nil
	})

	if err != nil {
		return PartOutput{}, err
	}
	return out, nil
}

func (u *CentralPartUsecase) ListParts(ctx context.Context, in ListPartsInput) (PartListOutput, error) {
	if in.Page < 1 {
		return PartListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return PartListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	var out PartListOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		parts, total, err := r.Parts().List(ctx, repo.PartListQuery{Page: in.Page, Limit: in.Limit, Q: strings.TrimSpace(in.Q)})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		items := make([]PartOutput, 0, len(parts))
		for _, p := range parts {
			items = append(items, toPartOutput(p))
		}
		out = PartListOutput{Items: items, Total: total, Page: in.Page, Limit: in.Limit}
		return nil
	})

	if err != nil {
		return PartListOutput{}, err
	}
	return out, nil
}

func (u *CentralPartUsecase) GetPart(ctx context.Context, id int64) (PartOutput, error) {
	if id <= 0 {
		return PartOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out PartOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Parts().FindByID(ctx, id)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "part not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = toPartOutput(p)
		return nil
	})

	if err != nil {
		return PartOutput{}, err
	}
	return out, nil
}

func toPartOutput(p model.CentralInventoryPart) PartOutput {
	return PartOutput{
		ID:            p.ID,
		PartName:      p.PartName,
		PartNumber:    p.PartNumber,
		StockQuantity: p.StockQuantity,
		Allocated:     p.Allocated,
		Available:     p.Available(),
		UnitPrice:     p.UnitPrice,
	}
}
