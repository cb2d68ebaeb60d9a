package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// DBなしでusecaseを通すためのインメモリ実装。
// rollbackは再現しないので、エラー系のテストでは途中状態を検証しない。
type fakeStore struct {
	parts      map[int64]*model.CentralInventoryPart
	issues     map[int64]*model.PartsIssueRequest
	dispatches []model.DispatchRecord
	pos        map[int64]*model.PurchaseOrder
	centers    map[int64]*model.ServiceCenter
	centerInv  map[string]*model.ServiceCenterInventory
	seqs       map[string]int
	audits     []model.AuditLog

	nextPartID     int64
	nextIssueID    int64
	nextLineID     int64
	nextDispatchID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		parts:     map[int64]*model.CentralInventoryPart{},
		issues:    map[int64]*model.PartsIssueRequest{},
		pos:       map[int64]*model.PurchaseOrder{},
		centers:   map[int64]*model.ServiceCenter{},
		centerInv: map[string]*model.ServiceCenterInventory{},
		seqs:      map[string]int{},
	}
}

func (s *fakeStore) addPart(name string, number *string, stock float64) *model.CentralInventoryPart {
	s.nextPartID++
	p := &model.CentralInventoryPart{ID: s.nextPartID, PartName: name, PartNumber: number, StockQuantity: stock}
	s.parts[p.ID] = p
	return p
}

func (s *fakeStore) addCenter(id int64, code string) *model.ServiceCenter {
	c := &model.ServiceCenter{ID: id, Name: "center " + code, Code: code, IsActive: true}
	s.centers[id] = c
	return c
}

func invKey(centerID int64, partNumber string) string {
	return fmt.Sprintf("%d|%s", centerID, partNumber)
}

// ---- TransactionManager / TxRepos ----

type fakeTx struct{ s *fakeStore }

func (t *fakeTx) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return fn(&fakeRepos{s: t.s})
}

type fakeRepos struct{ s *fakeStore }

func (r *fakeRepos) Issues() repo.PartsIssueRepository        { return &fakeIssueRepo{s: r.s} }
func (r *fakeRepos) Dispatches() repo.DispatchRepository      { return &fakeDispatchRepo{s: r.s} }
func (r *fakeRepos) Parts() repo.CentralInventoryRepository   { return &fakePartsRepo{s: r.s} }
func (r *fakeRepos) PurchaseOrders() repo.PurchaseOrderRepository {
	return &fakePORepo{s: r.s}
}
func (r *fakeRepos) CenterInventory() repo.CenterInventoryRepository {
	return &fakeCenterInvRepo{s: r.s}
}
func (r *fakeRepos) Sequences() repo.SequenceRepository { return &fakeSeqRepo{s: r.s} }
func (r *fakeRepos) AuditLogs() repo.AuditLogRepository { return &fakeAuditRepo{s: r.s} }

// ---- CentralInventoryRepository ----

type fakePartsRepo struct{ s *fakeStore }

func (f *fakePartsRepo) FindByID(ctx context.Context, id int64) (model.CentralInventoryPart, error) {
	p, ok := f.s.parts[id]
	if !ok {
		return model.CentralInventoryPart{}, repo.ErrNotFound
	}
	return *p, nil
}

func (f *fakePartsRepo) FindByIDForUpdate(ctx context.Context, id int64) (model.CentralInventoryPart, error) {
	return f.FindByID(ctx, id)
}

func (f *fakePartsRepo) FindByPartNumber(ctx context.Context, number string) (model.CentralInventoryPart, error) {
	for _, p := range f.s.parts {
		if p.PartNumber != nil && strings.EqualFold(strings.TrimSpace(*p.PartNumber), strings.TrimSpace(number)) {
			return *p, nil
		}
	}
	return model.CentralInventoryPart{}, repo.ErrNotFound
}

func (f *fakePartsRepo) FindByPartName(ctx context.Context, name string) (model.CentralInventoryPart, error) {
	for _, p := range f.s.parts {
		if strings.EqualFold(strings.TrimSpace(p.PartName), strings.TrimSpace(name)) {
			return *p, nil
		}
	}
	return model.CentralInventoryPart{}, repo.ErrNotFound
}

func (f *fakePartsRepo) FindByPartNumberAndName(ctx context.Context, number string, name string) (model.CentralInventoryPart, error) {
	for _, p := range f.s.parts {
		if p.PartNumber == nil {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(*p.PartNumber), strings.TrimSpace(number)) &&
			strings.EqualFold(strings.TrimSpace(p.PartName), strings.TrimSpace(name)) {
			return *p, nil
		}
	}
	return model.CentralInventoryPart{}, repo.ErrNotFound
}

func (f *fakePartsRepo) FindByPartNameSubstring(ctx context.Context, name string) (model.CentralInventoryPart, error) {
	q := strings.ToLower(strings.TrimSpace(name))
	for _, p := range f.s.parts {
		if strings.Contains(strings.ToLower(p.PartName), q) {
			return *p, nil
		}
	}
	return model.CentralInventoryPart{}, repo.ErrNotFound
}

func (f *fakePartsRepo) SearchSimilar(ctx context.Context, q string, limit int) ([]model.CentralInventoryPart, error) {
	terms := strings.Fields(strings.ToLower(q))
	var out []model.CentralInventoryPart
	for _, p := range f.s.parts {
		lower := strings.ToLower(p.PartName)
		for _, t := range terms {
			if strings.Contains(lower, t) {
				out = append(out, *p)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePartsRepo) List(ctx context.Context, q repo.PartListQuery) ([]model.CentralInventoryPart, int64, error) {
	var out []model.CentralInventoryPart
	for _, p := range f.s.parts {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakePartsRepo) Create(ctx context.Context, p model.CentralInventoryPart) (model.CentralInventoryPart, error) {
	f.s.nextPartID++
	p.ID = f.s.nextPartID
	f.s.parts[p.ID] = &p
	return p, nil
}

func (f *fakePartsRepo) Allocate(ctx context.Context, partID int64, qty float64) error {
	p, ok := f.s.parts[partID]
	if !ok {
		return repo.ErrNotFound
	}
	if p.Allocated+qty > p.StockQuantity {
		return repo.ErrConflict
	}
	p.Allocated += qty
	return nil
}

func (f *fakePartsRepo) Deallocate(ctx context.Context, partID int64, qty float64) error {
	p, ok := f.s.parts[partID]
	if !ok {
		return repo.ErrNotFound
	}
	if p.Allocated-qty < 0 {
		return repo.ErrConflict
	}
	p.Allocated -= qty
	return nil
}

func (f *fakePartsRepo) Withdraw(ctx context.Context, partID int64, qty float64) error {
	p, ok := f.s.parts[partID]
	if !ok {
		return repo.ErrNotFound
	}
	if p.StockQuantity-qty < 0 {
		return repo.ErrConflict
	}
	p.StockQuantity -= qty
	return nil
}

func (f *fakePartsRepo) Deposit(ctx context.Context, partID int64, qty float64) error {
	p, ok := f.s.parts[partID]
	if !ok {
		return repo.ErrNotFound
	}
	p.StockQuantity += qty
	return nil
}

// ---- PartsIssueRepository ----

type fakeIssueRepo struct{ s *fakeStore }

func (f *fakeIssueRepo) Create(ctx context.Context, req model.PartsIssueRequest) (model.PartsIssueRequest, error) {
	f.s.nextIssueID++
	req.ID = f.s.nextIssueID
	req.CreatedAt = time.Now()
	for i := range req.Lines {
		f.s.nextLineID++
		req.Lines[i].ID = f.s.nextLineID
		req.Lines[i].IssueID = req.ID
	}
	stored := req
	f.s.issues[req.ID] = &stored
	return req, nil
}

// Part・Dispatchesを埋めた深いコピーを返す（Preload相当）。
func (f *fakeIssueRepo) FindByID(ctx context.Context, id int64) (model.PartsIssueRequest, error) {
	stored, ok := f.s.issues[id]
	if !ok {
		return model.PartsIssueRequest{}, repo.ErrNotFound
	}
	out := *stored
	out.Lines = make([]model.PartsIssueLine, len(stored.Lines))
	copy(out.Lines, stored.Lines)
	for i := range out.Lines {
		if p, ok := f.s.parts[out.Lines[i].CentralInventoryPartID]; ok {
			out.Lines[i].Part = *p
		}
		out.Lines[i].Dispatches = nil
		for _, d := range f.s.dispatches {
			if d.IssueLineID == out.Lines[i].ID {
				out.Lines[i].Dispatches = append(out.Lines[i].Dispatches, d)
			}
		}
	}
	return out, nil
}

func (f *fakeIssueRepo) FindByIDForUpdate(ctx context.Context, id int64) (model.PartsIssueRequest, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeIssueRepo) List(ctx context.Context, flt repo.PartsIssueListFilter) ([]model.PartsIssueRequest, int64, error) {
	var out []model.PartsIssueRequest
	for id := range f.s.issues {
		req, _ := f.FindByID(ctx, id)
		if flt.Status != nil && req.Status != *flt.Status {
			continue
		}
		if flt.ToServiceCenterID != nil && req.ToServiceCenterID != *flt.ToServiceCenterID {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := int64(len(out))
	start := (flt.Page - 1) * flt.Limit
	if start >= len(out) {
		return nil, total, nil
	}
	end := start + flt.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

func (f *fakeIssueRepo) UpdateStatus(ctx context.Context, id int64, status model.PartsIssueStatus) error {
	stored, ok := f.s.issues[id]
	if !ok {
		return repo.ErrNotFound
	}
	stored.Status = status
	return nil
}

func (f *fakeIssueRepo) Reject(ctx context.Context, id int64, reason string) error {
	stored, ok := f.s.issues[id]
	if !ok {
		return repo.ErrNotFound
	}
	stored.Status = model.IssueStatusRejected
	stored.RejectReason = reason
	return nil
}

func (f *fakeIssueRepo) findLine(lineID int64) *model.PartsIssueLine {
	for _, req := range f.s.issues {
		for i := range req.Lines {
			if req.Lines[i].ID == lineID {
				return &req.Lines[i]
			}
		}
	}
	return nil
}

func (f *fakeIssueRepo) UpdateLineApprovedQty(ctx context.Context, lineID int64, qty float64) error {
	l := f.findLine(lineID)
	if l == nil {
		return repo.ErrNotFound
	}
	l.ApprovedQty = &qty
	return nil
}

func (f *fakeIssueRepo) UpdateLineDispatchProgress(ctx context.Context, lineID int64, issuedQty float64, subPoNumber string) error {
	l := f.findLine(lineID)
	if l == nil {
		return repo.ErrNotFound
	}
	l.IssuedQty = issuedQty
	l.SubPoNumber = subPoNumber
	return nil
}

func (f *fakeIssueRepo) UpdateLineReceivedQty(ctx context.Context, lineID int64, qty float64) error {
	l := f.findLine(lineID)
	if l == nil {
		return repo.ErrNotFound
	}
	l.ReceivedQty = &qty
	return nil
}

// ---- DispatchRepository ----

type fakeDispatchRepo struct{ s *fakeStore }

func (f *fakeDispatchRepo) Create(ctx context.Context, rec model.DispatchRecord) (model.DispatchRecord, error) {
	f.s.nextDispatchID++
	rec.ID = f.s.nextDispatchID
	f.s.dispatches = append(f.s.dispatches, rec)
	return rec, nil
}

func (f *fakeDispatchRepo) CountByLineID(ctx context.Context, lineID int64) (int64, error) {
	var n int64
	for _, d := range f.s.dispatches {
		if d.IssueLineID == lineID {
			n++
		}
	}
	return n, nil
}

func (f *fakeDispatchRepo) ListByIssueID(ctx context.Context, issueID int64) ([]model.DispatchRecord, error) {
	var out []model.DispatchRecord
	for _, d := range f.s.dispatches {
		if d.IssueID == issueID {
			out = append(out, d)
		}
	}
	return out, nil
}

// ---- PurchaseOrderRepository ----

type fakePORepo struct{ s *fakeStore }

func (f *fakePORepo) FindWithItems(ctx context.Context, id int64) (model.PurchaseOrder, error) {
	po, ok := f.s.pos[id]
	if !ok {
		return model.PurchaseOrder{}, repo.ErrNotFound
	}
	return *po, nil
}

func (f *fakePORepo) IncrementReceivedQty(ctx context.Context, itemID int64, qty float64) error {
	for _, po := range f.s.pos {
		for i := range po.Items {
			if po.Items[i].ID == itemID {
				po.Items[i].ReceivedQty += qty
				return nil
			}
		}
	}
	return repo.ErrNotFound
}

// ---- CenterInventoryRepository ----

type fakeCenterInvRepo struct{ s *fakeStore }

func (f *fakeCenterInvRepo) UpsertAndIncrementStock(ctx context.Context, serviceCenterID int64, partNumber string, partName string, qty float64) error {
	key := invKey(serviceCenterID, partNumber)
	if row, ok := f.s.centerInv[key]; ok {
		row.StockQuantity += qty
		return nil
	}
	f.s.centerInv[key] = &model.ServiceCenterInventory{
		ServiceCenterID: serviceCenterID,
		PartNumber:      partNumber,
		PartName:        partName,
		StockQuantity:   qty,
	}
	return nil
}

func (f *fakeCenterInvRepo) ListByServiceCenterID(ctx context.Context, serviceCenterID int64) ([]model.ServiceCenterInventory, error) {
	var out []model.ServiceCenterInventory
	for _, row := range f.s.centerInv {
		if row.ServiceCenterID == serviceCenterID {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PartNumber < out[j].PartNumber })
	return out, nil
}

// ---- SequenceRepository ----

type fakeSeqRepo struct{ s *fakeStore }

func (f *fakeSeqRepo) Next(ctx context.Context, prefix string, year int) (int, error) {
	key := fmt.Sprintf("%s-%d", prefix, year)
	f.s.seqs[key]++
	return f.s.seqs[key], nil
}

// ---- AuditLogRepository ----

type fakeAuditRepo struct{ s *fakeStore }

func (f *fakeAuditRepo) Create(ctx context.Context, log model.AuditLog) error {
	f.s.audits = append(f.s.audits, log)
	return nil
}

func (f *fakeAuditRepo) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	return f.s.audits, nil
}

// ---- ServiceCenterRepository ----

type fakeCenterRepo struct{ s *fakeStore }

func (f *fakeCenterRepo) FindByID(ctx context.Context, id int64) (model.ServiceCenter, error) {
	c, ok := f.s.centers[id]
	if !ok {
		return model.ServiceCenter{}, repo.ErrNotFound
	}
	return *c, nil
}

func (f *fakeCenterRepo) List(ctx context.Context) ([]model.ServiceCenter, error) {
	var out []model.ServiceCenter
	for _, c := range f.s.centers {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeCenterRepo) Create(ctx context.Context, sc model.ServiceCenter) (model.ServiceCenter, error) {
	sc.ID = int64(len(f.s.centers) + 1)
	f.s.centers[sc.ID] = &sc
	return sc, nil
}
