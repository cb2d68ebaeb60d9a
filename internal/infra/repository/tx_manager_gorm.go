package repository

import (
	"context"

	repo "app/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	issues          repo.PartsIssueRepository
	dispatches      repo.DispatchRepository
	parts           repo.CentralInventoryRepository
	purchaseOrders  repo.PurchaseOrderRepository
	centerInventory repo.CenterInventoryRepository
	sequences       repo.SequenceRepository
	auditLogs       repo.AuditLogRepository
}

func (r *txReposGorm) Issues() repo.PartsIssueRepository              { return r.issues }
func (r *txReposGorm) Dispatches() repo.DispatchRepository            { return r.dispatches }
func (r *txReposGorm) Parts() repo.CentralInventoryRepository         { return r.parts }
func (r *txReposGorm) PurchaseOrders() repo.PurchaseOrderRepository   { return r.purchaseOrders }
func (r *txReposGorm) CenterInventory() repo.CenterInventoryRepository { return r.centerInventory }
func (r *txReposGorm) Sequences() repo.SequenceRepository             { return r.sequences }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository             { return r.auditLogs }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			issues:          NewPartsIssueGormRepository(tx),
			dispatches:      NewDispatchGormRepository(tx),
			parts:           NewCentralInventoryGormRepository(tx),
			purchaseOrders:  NewPurchaseOrderGormRepository(tx),
			centerInventory: NewCenterInventoryGormRepository(tx),
			sequences:       NewSequenceGormRepository(tx),
			auditLogs:       NewAuditLogGormRepository(tx),
		}
		return fn(r)
	})
}
