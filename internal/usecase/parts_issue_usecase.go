package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/metrics"
	repo "app/internal/repository"
)

// 全量出荷判定の許容誤差（小数数量の部品があるため）
const fulfillmentTolerance = 0.01

// 認証済み呼び出し元。tenantスコープはここで判定する。
type Actor struct {
	UserID          int64
	Role            model.Role
	ServiceCenterID *int64
}

func (a Actor) isStaff() bool {
	return a.Role == model.RoleAdmin || a.Role == model.RoleCIM
}

type PartsIssueUsecase struct {
	tx      repo.TransactionManager
	centers repo.ServiceCenterRepository
	logger  *slog.Logger

	//サブPO番号の先頭に入るディーラーコード
	dealerCode string

	now func() time.Time
}

func NewPartsIssueUsecase(tx repo.TransactionManager, centers repo.ServiceCenterRepository, logger *slog.Logger, dealerCode string) *PartsIssueUsecase {
	return &PartsIssueUsecase{
		tx:         tx,
		centers:    centers,
		logger:     logger,
		dealerCode: dealerCode,
		now:        time.Now,
	}
}

// =====================
// 入出力DTO
// =====================

type CreateIssueItemInput struct {
	PartID       *int64
	PartNumber   string
	PartName     string
	RequestedQty float64
}

type CreateIssueInput struct {
	ToServiceCenterID int64
	PurchaseOrderID   *int64
	Priority          string
	Items             []CreateIssueItemInput
}

type ListIssuesInput struct {
	Page              int
	Limit             int
	Status            string
	ToServiceCenterID *int64
}

type LineApprovalInput struct {
	LineID      int64
	ApprovedQty float64
}

type DispatchItemInput struct {
	LineID   int64
	Quantity float64
}

type ReceiveItemInput struct {
	LineID      int64
	ReceivedQty float64
}

type DispatchRecordOutput struct {
	ID               int64     `json:"id"`
	Quantity         float64   `json:"quantity"`
	SubPoNumber      string    `json:"sub_po_number"`
	IsFullyFulfilled bool      `json:"is_fully_fulfilled"`
	DispatchedAt     time.Time `json:"dispatched_at"`
	DispatchedByID   int64     `json:"dispatched_by_id"`
}

type IssueLineOutput struct {
	ID                     int64    `json:"id"`
	CentralInventoryPartID int64    `json:"central_inventory_part_id"`
	PartName               string   `json:"part_name"`
	PartNumber             *string  `json:"part_number"`
	RequestedQty           float64  `json:"requested_qty"`
	ApprovedQty            *float64 `json:"approved_qty"`
	IssuedQty              float64  `json:"issued_qty"`
	ReceivedQty            *float64 `json:"received_qty"`
	SubPoNumber            string   `json:"sub_po_number"`

	//導出項目（保存しない）
	Available float64 `json:"available"`
	Remaining float64 `json:"remaining"`

	Dispatches []DispatchRecordOutput `json:"dispatches,omitempty"`
}

type IssueOutput struct {
	ID                int64             `json:"id"`
	IssueNumber       string            `json:"issue_number"`
	ToServiceCenterID int64             `json:"to_service_center_id"`
	RequestedByID     int64             `json:"requested_by_id"`
	PurchaseOrderID   *int64            `json:"purchase_order_id"`
	Status            string            `json:"status"`
	Priority          string            `json:"priority"`
	RejectReason      string            `json:"reject_reason,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	Lines             []IssueLineOutput `json:"lines"`
}

type IssueListOutput struct {
	Items []IssueOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// =====================
// 作成
// =====================

func (u *PartsIssueUsecase) CreateRequest(ctx context.Context, actor Actor, in CreateIssueInput) (IssueOutput, error) {
	if actor.UserID <= 0 {
		return IssueOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ToServiceCenterID <= 0 {
		return IssueOutput{}, NewHTTPError(http.StatusBadRequest, "invalid to_service_center_id")
	}
	if len(in.Items) == 0 {
		return IssueOutput{}, NewHTTPError(http.StatusBadRequest, "items required")
	}
	for _, it := range in.Items {
		if it.RequestedQty <= 0 {
			return IssueOutput{}, NewHTTPError(http.StatusBadRequest, "requested_qty must be positive")
		}
	}

	//サービスセンターの依頼者は自センター宛てしか作れない
	if !actor.isStaff() {
		if actor.ServiceCenterID == nil || *actor.ServiceCenterID != in.ToServiceCenterID {
			return IssueOutput{}, NewHTTPError(http.StatusForbidden, "forbidden")
		}
	}

	priority := model.IssuePriority(strings.ToUpper(strings.TrimSpace(in.Priority)))
	if priority == "" {
		priority = model.IssuePriorityNormal
	}
	switch priority {
	case model.IssuePriorityLow, model.IssuePriorityNormal, model.IssuePriorityHigh, model.IssuePriorityUrgent:
	default:
		return IssueOutput{}, NewHTTPError(http.StatusBadRequest, "invalid priority")
	}

	//宛先センターの存在確認
	if _, err := u.centers.FindByID(ctx, in.ToServiceCenterID); err != nil {
		if err == repo.ErrNotFound {
			return IssueOutput{}, NewHTTPError(http.StatusNotFound, "service center not found")
		}
		return IssueOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	var out IssueOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//部品解決。1行でも解決できなければ依頼全体を失敗させる
		type resolvedLine struct {
			part model.CentralInventoryPart
			qty  float64
		}
		resolved := make([]resolvedLine, 0, len(in.Items))
		for _, it := range in.Items {
			p, err := resolvePart(ctx, r.Parts(), PartIdentifier{
				PartID:     it.PartID,
				PartNumber: it.PartNumber,
				PartName:   it.PartName,
			})
			if err != nil {
				return err
			}
			resolved = append(resolved, resolvedLine{part: p, qty: it.RequestedQty})
		}

		//PO紐付きなら依頼数量をPO数量で上書きする。POが正なので呼び出し元の数量は捨てる
		if in.PurchaseOrderID != nil {
			po, err := r.PurchaseOrders().FindWithItems(ctx, *in.PurchaseOrderID)
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusNotFound, "purchase order not found")
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			for i := range resolved {
				item, ok := matchPOItem(po.Items, resolved[i].part)
				if !ok {
					u.logger.Warn("no purchase order line matched, keeping caller quantity",
						"purchase_order_id", po.ID,
						"part_id", resolved[i].part.ID,
						"part_name", resolved[i].part.PartName,
					)
					continue
				}
				resolved[i].qty = item.Quantity
			}
		}

		//PI-{year}-{0001}
		year := u.now().Year()
		seq, err := r.Sequences().Next(ctx, "PI", year)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		issueNumber := fmt.Sprintf("PI-%d-%04d", year, seq)

		//在庫検証と引当。行ロックしてから available を見る
		lines := make([]model.PartsIssueLine, 0, len(resolved))
		for _, rl := range resolved {
			part, err := r.Parts().FindByIDForUpdate(ctx, rl.part.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if rl.qty > part.Available() {
				return insufficientStockError(part, rl.qty)
			}
			if err := r.Parts().Allocate(ctx, part.ID, rl.qty); err != nil {
				if err == repo.ErrConflict {
					return insufficientStockError(part, rl.qty)
				}
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			lines = append(lines, model.PartsIssueLine{
				CentralInventoryPartID: part.ID,
				RequestedQty:           rl.qty,
			})
		}

		created, err := r.Issues().Create(ctx, model.PartsIssueRequest{
			IssueNumber:       issueNumber,
			ToServiceCenterID: in.ToServiceCenterID,
			RequestedByID:     actor.UserID,
			PurchaseOrderID:   in.PurchaseOrderID,
			Status:            model.IssueStatusPendingApproval,
			Priority:          priority,
			Lines:             lines,
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		u.writeAudit(ctx, r, actor, model.AuditActionCreateIssue, created.ID, nil, map[string]interface{}{
			"issue_number": issueNumber,
			"status":       model.IssueStatusPendingApproval,
		})

		full, err := r.Issues().FindByID(ctx, created.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = toIssueOutput(full)
		return nil
	})

	if err != nil {
		return IssueOutput{}, err
	}

	metrics.IssueRequestsCreated.Inc()
	return out, nil
}

// =====================
// 参照
// =====================

func (u *PartsIssueUsecase) ListRequests(ctx context.Context, actor Actor, in ListIssuesInput) (IssueListOutput, error) {
	if in.Page < 1 {
		return IssueListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return IssueListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	f := repo.PartsIssueListFilter{
		Page:              in.Page,
		Limit:             in.Limit,
		ToServiceCenterID: in.ToServiceCenterID,
	}

	if s := strings.TrimSpace(in.Status); s != "" {
		status := model.PartsIssueStatus(strings.ToUpper(s))
		switch status {
		case model.IssueStatusPendingApproval, model.IssueStatusCIMApproved, model.IssueStatusAdminApproved,
			model.IssueStatusDispatched, model.IssueStatusCompleted, model.IssueStatusRejected:
			f.Status = &status
		default:
			return IssueListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
		}
	}

	//サービスセンターの呼び出し元は自センター分だけ
	if !actor.isStaff() {
		if actor.ServiceCenterID == nil {
			return IssueListOutput{}, NewHTTPError(http.StatusForbidden, "forbidden")
		}
		f.ToServiceCenterID = actor.ServiceCenterID
	}

	var out IssueListOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		reqs, total, err := r.Issues().List(ctx, f)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		items := make([]IssueOutput, 0, len(reqs))
		for _, req := range reqs {
			items = append(items, toIssueOutput(req))
		}
		out = IssueListOutput{Items: items, Total: total, Page: in.Page, Limit: in.Limit}
		return nil
	})

	if err != nil {
		return IssueListOutput{}, err
	}
	return out, nil
}

func (u *PartsIssueUsecase) GetRequest(ctx context.Context, actor Actor, id int64) (IssueOutput, error) {
	if id <= 0 {
		return IssueOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out IssueOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		req, err := r.Issues().FindByID(ctx, id)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//他センターの依頼は「存在しない扱い」にする
		if !actor.isStaff() {
			if actor.ServiceCenterID == nil || *actor.ServiceCenterID != req.ToServiceCenterID {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
		}

		out = toIssueOutput(req)
		return nil
	})

	if err != nil {
		return IssueOutput{}, err
	}
	return out, nil
}

// =====================
// 状態遷移
// =====================

// PENDING_APPROVAL → REJECTED（終端）。全行の引当を戻す。
func (u *PartsIssueUsecase) RejectRequest(ctx context.Context, actor Actor, id int64, reason string) (IssueOutput, error) {
	if id <= 0 {
		return IssueOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" || len(reason) > 255 {
		return IssueOutput{}, NewHTTPError(http.StatusBadRequest, "invalid reason")
	}

	var out IssueOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		req, err := r.Issues().FindByIDForUpdate(ctx, id)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if req.Status != model.IssueStatusPendingApproval {
			return stateConflictError(req.Status, string(model.IssueStatusPendingApproval))
		}

		for _, line := range req.Lines {
			if line.RequestedQty <= 0 {
				continue
			}
			if err := r.Parts().Deallocate(ctx, line.CentralInventoryPartID, line.RequestedQty); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		if err := r.Issues().Reject(ctx, id, reason); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		u.writeAudit(ctx, r, actor, model.AuditActionRejectIssue, id,
			map[string]interface{}{"status": req.Status},
			map[string]interface{}{"status": model.IssueStatusRejected, "reason": reason})

		full, err := r.Issues().FindByID(ctx, id)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = toIssueOutput(full)
		return nil
	})

	if err != nil {
		return IssueOutput{}, err
	}
	return out, nil
}

// PENDING_APPROVAL → CIM_APPROVED。
// 依頼より少なく承認するのは正常系で、余った引当はこの場で解放する。
func (u *PartsIssueUsecase) ApproveByCIM(ctx context.Context, actor Actor, id int64, items []LineApprovalInput) (IssueOutput, error) {
	if id <= 0 {
		return IssueOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	for _, it := range items {
		if it.ApprovedQty < 0 {
			return IssueOutput{}, NewHTTPError(http.StatusBadRequest, "approved_qty must not be negative")
		}
	}

	approvals := make(map[int64]float64, len(items))
	for _, it := range items {
		approvals[it.LineID] = it.ApprovedQty
	}

	var out IssueOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		req, err := r.Issues().FindByIDForUpdate(ctx, id)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if req.Status != model.IssueStatusPendingApproval {
			return stateConflictError(req.Status, string(model.IssueStatusPendingApproval))
		}

		lineIDs := make(map[int64]bool, len(req.Lines))
		for _, l := range req.Lines {
			lineIDs[l.ID] = true
		}
		for lineID := range approvals {
			if !lineIDs[lineID] {
				return NewHTTPError(http.StatusNotFound, fmt.Sprintf("line %d not found in request", lineID))
			}
		}

		for _, line := range req.Lines {
			approved, ok := approvals[line.ID]
			if !ok {
				//査定対象外の行は依頼数量のまま承認
				approved = line.RequestedQty
			}

			part, err := r.Parts().FindByIDForUpdate(ctx, line.CentralInventoryPartID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			//この行自身の引当は allocated に入っているので、その分は上限から除外する
			bound := part.StockQuantity - part.Allocated + line.RequestedQty
			if approved > bound {
				return NewHTTPError(http.StatusConflict, fmt.Sprintf(
					"approved qty %.2f for part %q exceeds physical stock %.2f",
					approved, part.PartName, bound,
				))
			}

			//未使用分の引当を解放（増やす査定なら追加引当）
			delta := line.RequestedQty - approved
			if delta > 0 {
				if err := r.Parts().Deallocate(ctx, line.CentralInventoryPartID, delta); err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			} else if delta < 0 {
				if err := r.Parts().Allocate(ctx, line.CentralInventoryPartID, -delta); err != nil {
					if err == repo.ErrConflict {
						return insufficientStockError(part, -delta)
					}
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			}

			if err := r.Issues().UpdateLineApprovedQty(ctx, line.ID, approved); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		if err := r.Issues().UpdateStatus(ctx, id, model.IssueStatusCIMApproved); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		u.writeAudit(ctx, r, actor, model.AuditActionCIMApprove, id,
			map[string]interface{}{"status": req.Status},
			map[string]interface{}{"status": model.IssueStatusCIMApproved})

		full, err := r.Issues().FindByID(ctx, id)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = toIssueOutput(full)
		return nil
	})

	if err != nil {
		return IssueOutput{}, err
	}
	return out, nil
}

// {PENDING_APPROVAL, CIM_APPROVED} → ADMIN_APPROVED。
// PENDINGから直接来た場合は approved_qty = requested_qty を明示的に埋める。
// 引当はここで全解放する（在庫はdispatch時に物理的に減るため）。
func (u *PartsIssueUsecase) ApproveByAdmin(ctx context.Context, actor Actor, id int64) (IssueOutput, error) {
	if id <= 0 {
		return IssueOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out IssueOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		req, err := r.Issues().FindByIDForUpdate(ctx, id)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if req.Status != model.IssueStatusPendingApproval && req.Status != model.IssueStatusCIMApproved {
			return stateConflictError(req.Status, "PENDING_APPROVAL or CIM_APPROVED")
		}

		for _, line := range req.Lines {
			release := line.EffectiveApprovedQty()

			if line.ApprovedQty == nil {
				//直接承認は「依頼数量をそのまま承認」として監査できるよう明示的に書く
				if err := r.Issues().UpdateLineApprovedQty(ctx, line.ID, line.RequestedQty); err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			}

			if release <= 0 {
				continue
			}
			if err := r.Parts().Deallocate(ctx, line.CentralInventoryPartID, release); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		if err := r.Issues().UpdateStatus(ctx, id, model.IssueStatusAdminApproved); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		u.writeAudit(ctx, r, actor, model.AuditActionAdminApprove, id,
			map[string]interface{}{"status": req.Status},
			map[string]interface{}{"status": model.IssueStatusAdminApproved})

		full, err := r.Issues().FindByID(ctx, id)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = toIssueOutput(full)
		return nil
	})

	if err != nil {
		return IssueOutput{}, err
	}
	return out, nil
}

// =====================
// 出荷
// =====================

// {ADMIN_APPROVED, DISPATCHED} → DISPATCHED。複数回の部分出荷に対応する。
func (u *PartsIssueUsecase) Dispatch(ctx context.Context, actor Actor, id int64, items []DispatchItemInput, transportDetails json.RawMessage) (IssueOutput, error) {
	if id <= 0 {
		return IssueOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if len(items) == 0 {
		return IssueOutput{}, NewHTTPError(http.StatusBadRequest, "items required")
	}

	var out IssueOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		req, err := r.Issues().FindByIDForUpdate(ctx, id)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if req.Status != model.IssueStatusAdminApproved && req.Status != model.IssueStatusDispatched {
			return stateConflictError(req.Status, "ADMIN_APPROVED or DISPATCHED")
		}

		center, err := u.centers.FindByID(ctx, req.ToServiceCenterID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		requestSeq, err := parseRequestSeq(req.IssueNumber)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "bad issue number")
		}

		//PO紐付きなら入庫数を書き戻すため一度だけ読む
		var po *model.PurchaseOrder
		if req.PurchaseOrderID != nil {
			loaded, err := r.PurchaseOrders().FindWithItems(ctx, *req.PurchaseOrderID)
			if err != nil && err != repo.ErrNotFound {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if err == repo.ErrNotFound {
				u.logger.Warn("linked purchase order no longer exists, skipping received qty accumulation",
					"issue_id", req.ID, "purchase_order_id", *req.PurchaseOrderID)
			} else {
				po = &loaded
			}
		}

		lineByID := make(map[int64]*model.PartsIssueLine, len(req.Lines))
		for i := range req.Lines {
			lineByID[req.Lines[i].ID] = &req.Lines[i]
		}

		for _, item := range items {
			line, ok := lineByID[item.LineID]
			if !ok {
				return NewHTTPError(http.StatusNotFound, fmt.Sprintf("line %d not found in request", item.LineID))
			}

			//残数は approved（未査定なら requested）から累計出荷を引いた値
			remaining := line.RemainingQty()
			if item.Quantity <= 0 {
				return NewHTTPError(http.StatusBadRequest, "quantity must be positive")
			}
			if item.Quantity > remaining+1e-9 {
				return NewHTTPError(http.StatusConflict, fmt.Sprintf(
					"dispatch qty %.2f for part %q exceeds remaining %.2f",
					item.Quantity, line.Part.PartName, remaining,
				))
			}

			part, err := r.Parts().FindByIDForUpdate(ctx, line.CentralInventoryPartID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if item.Quantity > part.Available() {
				return insufficientStockError(part, item.Quantity)
			}

			newIssued := line.IssuedQty + item.Quantity

			//全量判定は不変の requested_qty に対して行う。
			//減額承認の全量出荷で「完納」と出ないようにするため approved は見ない
			fulfilled := math.Abs(newIssued-line.RequestedQty) < fulfillmentTolerance

			priorCount, err := r.Dispatches().CountByLineID(ctx, line.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			dispatchSeq := priorCount + 1

			subPo := buildSubPoNumber(u.dealerCode, u.now(), center.Code, requestSeq, dispatchSeq, fulfilled)

			if _, err := r.Dispatches().Create(ctx, model.DispatchRecord{
				IssueLineID:      line.ID,
				IssueID:          req.ID,
				Quantity:         item.Quantity,
				SubPoNumber:      subPo,
				IsFullyFulfilled: fulfilled,
				DispatchedAt:     u.now(),
				DispatchedByID:   actor.UserID,
				TransportDetails: string(transportDetails),
			}); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			if err := r.Issues().UpdateLineDispatchProgress(ctx, line.ID, newIssued, subPo); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			if err := r.Parts().Withdraw(ctx, part.ID, item.Quantity); err != nil {
				if err == repo.ErrConflict {
					return insufficientStockError(part, item.Quantity)
				}
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			//PO入庫数の積み上げ。マッチしなくてもdispatch自体は失敗させない
			if po != nil {
				if poItem, ok := matchPOItem(po.Items, part); ok {
					if err := r.PurchaseOrders().IncrementReceivedQty(ctx, poItem.ID, item.Quantity); err != nil {
						return NewHTTPError(http.StatusInternalServerError, "db error")
					}
				} else {
					u.logger.Warn("no purchase order line matched dispatched part",
						"purchase_order_id", po.ID,
						"part_id", part.ID,
						"part_name", part.PartName,
					)
				}
			}

			line.IssuedQty = newIssued
			line.SubPoNumber = subPo
		}

		//部分・全量どちらでもDISPATCHED。完納はサブPO番号のCサフィックスで示す
		if err := r.Issues().UpdateStatus(ctx, id, model.IssueStatusDispatched); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		u.writeAudit(ctx, r, actor, model.AuditActionDispatch, id,
			map[string]interface{}{"status": req.Status},
			map[string]interface{}{"status": model.IssueStatusDispatched, "items": len(items)})

		full, err := r.Issues().FindByID(ctx, id)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = toIssueOutput(full)
		return nil
	})

	if err != nil {
		return IssueOutput{}, err
	}

	metrics.DispatchesRecorded.Add(float64(len(items)))
	return out, nil
}

// =====================
// 入庫
// =====================

// DISPATCHED → COMPLETED（終端）。行ごとの受領数を記録し、センター在庫に積む。
func (u *PartsIssueUsecase) Receive(ctx context.Context, actor Actor, id int64, items []ReceiveItemInput) (IssueOutput, error) {
	if id <= 0 {
		return IssueOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if len(items) == 0 {
		return IssueOutput{}, NewHTTPError(http.StatusBadRequest, "items required")
	}
	for _, it := range items {
		if it.ReceivedQty <= 0 {
			return IssueOutput{}, NewHTTPError(http.StatusBadRequest, "received_qty must be positive")
		}
	}

	var out IssueOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		req, err := r.Issues().FindByIDForUpdate(ctx, id)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//受け取れるのは宛先センター本人（またはスタッフ）だけ
		if !actor.isStaff() {
			if actor.ServiceCenterID == nil || *actor.ServiceCenterID != req.ToServiceCenterID {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
		}

		if req.Status != model.IssueStatusDispatched {
			return stateConflictError(req.Status, string(model.IssueStatusDispatched))
		}

		lineByID := make(map[int64]*model.PartsIssueLine, len(req.Lines))
		for i := range req.Lines {
			lineByID[req.Lines[i].ID] = &req.Lines[i]
		}

		for _, item := range items {
			line, ok := lineByID[item.LineID]
			if !ok {
				return NewHTTPError(http.StatusNotFound, fmt.Sprintf("line %d not found in request", item.LineID))
			}

			if err := r.Issues().UpdateLineReceivedQty(ctx, line.ID, item.ReceivedQty); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			//センター在庫のキーは部品番号。無い部品は名前で代用
			key := line.Part.PartName
			if line.Part.PartNumber != nil && strings.TrimSpace(*line.Part.PartNumber) != "" {
				key = *line.Part.PartNumber
			}
			if err := r.CenterInventory().UpsertAndIncrementStock(ctx, req.ToServiceCenterID, key, line.Part.PartName, item.ReceivedQty); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		if err := r.Issues().UpdateStatus(ctx, id, model.IssueStatusCompleted); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		u.writeAudit(ctx, r, actor, model.AuditActionReceive, id,
			map[string]interface{}{"status": req.Status},
			map[string]interface{}{"status": model.IssueStatusCompleted})

		full, err := r.Issues().FindByID(ctx, id)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = toIssueOutput(full)
		return nil
	})

	if err != nil {
		return IssueOutput{}, err
	}
	return out, nil
}

// =====================
// 内部ヘルパ
// =====================

func stateConflictError(current model.PartsIssueStatus, required string) error {
	metrics.StateConflicts.Inc()
	return NewHTTPError(http.StatusConflict, fmt.Sprintf(
		"operation not allowed: current status %s, required %s", current, required,
	))
}

func insufficientStockError(part model.CentralInventoryPart, qty float64) error {
	available := part.Available()
	return NewHTTPError(http.StatusConflict, fmt.Sprintf(
		"insufficient stock for part %q: requested %.2f, available %.2f (short %.2f)",
		part.PartName, qty, available, qty-available,
	))
}

// PO行のマッチングは部品id → 部品名 → 部品番号の順（大文字小文字無視・trim）。
func matchPOItem(items []model.PurchaseOrderItem, part model.CentralInventoryPart) (model.PurchaseOrderItem, bool) {
	for _, it := range items {
		if it.CentralInventoryPartID != nil && *it.CentralInventoryPartID == part.ID {
			return it, true
		}
	}
	for _, it := range items {
		if strings.EqualFold(strings.TrimSpace(it.PartName), strings.TrimSpace(part.PartName)) {
			return it, true
		}
	}
	for _, it := range items {
		if it.PartNumber == nil || part.PartNumber == nil {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(*it.PartNumber), strings.TrimSpace(*part.PartNumber)) {
			return it, true
		}
	}
	return model.PurchaseOrderItem{}, false
}

// "PI-2026-0012" → 12
func parseRequestSeq(issueNumber string) (int, error) {
	idx := strings.LastIndex(issueNumber, "-")
	if idx < 0 || idx == len(issueNumber)-1 {
		return 0, fmt.Errorf("malformed issue number %q", issueNumber)
	}
	return strconv.Atoi(issueNumber[idx+1:])
}

// "PO {dealer} {ddmmyyyy} {centerCode}_{requestSeq}_{dispatchSeq}"。
// このdispatchで requested_qty に達したときだけ末尾にCが付く。
func buildSubPoNumber(dealerCode string, at time.Time, centerCode string, requestSeq int, dispatchSeq int64, fulfilled bool) string {
	seq := strconv.FormatInt(dispatchSeq, 10)
	if fulfilled {
		seq += "C"
	}
	return fmt.Sprintf("PO %s %s %s_%d_%s", dealerCode, at.Format("02012006"), centerCode, requestSeq, seq)
}

func (u *PartsIssueUsecase) writeAudit(ctx context.Context, r repo.TxRepos, actor Actor, action model.AuditAction, issueID int64, before map[string]interface{}, after map[string]interface{}) {
	log := model.AuditLog{
		ActorUserID:  actor.UserID,
		Action:       action,
		ResourceType: model.AuditResourceIssue,
		ResourceID:   issueID,
		BeforeJSON:   mustJSON(before),
		AfterJSON:    mustJSON(after),
		CreatedAt:    u.now(),
	}
	//監査ログの失敗で業務処理は止めない
	if err := r.AuditLogs().Create(ctx, log); err != nil {
		u.logger.Warn("audit log write failed", "action", action, "issue_id", issueID, "error", err)
	}
}

func mustJSON(v map[string]interface{}) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func toIssueOutput(req model.PartsIssueRequest) IssueOutput {
	lines := make([]IssueLineOutput, 0, len(req.Lines))
	for _, l := range req.Lines {
		lo := IssueLineOutput{
			ID:                     l.ID,
			CentralInventoryPartID: l.CentralInventoryPartID,
			PartName:               l.Part.PartName,
			PartNumber:             l.Part.PartNumber,
			RequestedQty:           l.RequestedQty,
			ApprovedQty:            l.ApprovedQty,
			IssuedQty:              l.IssuedQty,
			ReceivedQty:            l.ReceivedQty,
			SubPoNumber:            l.SubPoNumber,
			Available:              l.Part.Available(),
			Remaining:              l.RemainingQty(),
		}
		for _, d := range l.Dispatches {
			lo.Dispatches = append(lo.Dispatches, DispatchRecordOutput{
				ID:               d.ID,
				Quantity:         d.Quantity,
				SubPoNumber:      d.SubPoNumber,
				IsFullyFulfilled: d.IsFullyFulfilled,
				DispatchedAt:     d.DispatchedAt,
				DispatchedByID:   d.DispatchedByID,
			})
		}
		lines = append(lines, lo)
	}

	return IssueOutput{
		ID:                req.ID,
		IssueNumber:       req.IssueNumber,
		ToServiceCenterID: req.ToServiceCenterID,
		RequestedByID:     req.RequestedByID,
		PurchaseOrderID:   req.PurchaseOrderID,
		Status:            string(req.Status),
		Priority:          string(req.Priority),
		RejectReason:      req.RejectReason,
		CreatedAt:         req.CreatedAt,
		Lines:             lines,
	}
}
