package repository

import (
	"app/internal/domain/model"
	"context"
)

// 一覧検索
type PartsIssueListFilter struct {
	Page              int
	Limit             int
	Status            *model.PartsIssueStatus
	ToServiceCenterID *int64
}

// 払出依頼の永続化の約束。
// 行の更新メソッドはカラムを明示していて、requested_qty は作成後一切書けない。
type PartsIssueRepository interface {
	Create(ctx context.Context, req model.PartsIssueRequest) (model.PartsIssueRequest, error)

	//Lines と Lines.Part を含めて返す
	FindByID(ctx context.Context, id int64) (model.PartsIssueRequest, error)

	//状態遷移の前に依頼ヘッダを行ロックして読む
	FindByIDForUpdate(ctx context.Context, id int64) (model.PartsIssueRequest, error)

	List(ctx context.Context, f PartsIssueListFilter) ([]model.PartsIssueRequest, int64, error)

	UpdateStatus(ctx context.Context, id int64, status model.PartsIssueStatus) error
	Reject(ctx context.Context, id int64, reason string) error

	UpdateLineApprovedQty(ctx context.Context, lineID int64, qty float64) error

	//issued_qty と sub_po_number だけを書く
	UpdateLineDispatchProgress(ctx context.Context, lineID int64, issuedQty float64, subPoNumber string) error

	UpdateLineReceivedQty(ctx context.Context, lineID int64, qty float64) error
}

// 出荷台帳（append-only）の約束。
type DispatchRepository interface {
	Create(ctx context.Context, rec model.DispatchRecord) (model.DispatchRecord, error)

	//この行の何回目のdispatchかを決めるための件数
	CountByLineID(ctx context.Context, lineID int64) (int64, error)

	ListByIssueID(ctx context.Context, issueID int64) ([]model.DispatchRecord, error)
}
