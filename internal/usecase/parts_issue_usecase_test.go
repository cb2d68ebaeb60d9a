package usecase

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"app/internal/domain/model"
)

var testNow = time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)

func newTestUsecase(t *testing.T) (*PartsIssueUsecase, *fakeStore) {
	t.Helper()
	s := newFakeStore()
	s.addCenter(1, "BLR01")
	s.addCenter(2, "DEL02")

	uc := NewPartsIssueUsecase(
		&fakeTx{s: s},
		&fakeCenterRepo{s: s},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		"EVD",
	)
	uc.now = func() time.Time { return testNow }
	return uc, s
}

func adminActor() Actor { return Actor{UserID: 10, Role: model.RoleAdmin} }
func cimActor() Actor   { return Actor{UserID: 20, Role: model.RoleCIM} }
func centerActor(centerID int64) Actor {
	return Actor{UserID: 30, Role: model.RoleServiceCenter, ServiceCenterID: &centerID}
}

func createIssue(t *testing.T, uc *PartsIssueUsecase, partID int64, qty float64) IssueOutput {
	t.Helper()
	out, err := uc.CreateRequest(context.Background(), centerActor(1), CreateIssueInput{
		ToServiceCenterID: 1,
		Items:             []CreateIssueItemInput{{PartID: &partID, RequestedQty: qty}},
	})
	require.NoError(t, err)
	return out
}

// ---- 作成 ----

func TestCreateRequest_AllocatesStockAndNumbersRequest(t *testing.T) {
	uc, s := newTestUsecase(t)
	part := s.addPart("brake pad", nil, 100)

	out := createIssue(t, uc, part.ID, 30)

	assert.Equal(t, "PI-2026-0001", out.IssueNumber)
	assert.Equal(t, string(model.IssueStatusPendingApproval), out.Status)
	assert.Equal(t, string(model.IssuePriorityNormal), out.Priority)
	require.Len(t, out.Lines, 1)
	assert.Equal(t, 30.0, out.Lines[0].RequestedQty)

	//引当だけで物理在庫は減らない
	assert.Equal(t, 30.0, s.parts[part.ID].Allocated)
	assert.Equal(t, 100.0, s.parts[part.ID].StockQuantity)
}

func TestCreateRequest_SequenceIncrementsPerYear(t *testing.T) {
	uc, s := newTestUsecase(t)
	part := s.addPart("brake pad", nil, 100)

	first := createIssue(t, uc, part.ID, 1)
	second := createIssue(t, uc, part.ID, 1)

	assert.Equal(t, "PI-2026-0001", first.IssueNumber)
	assert.Equal(t, "PI-2026-0002", second.IssueNumber)
}

func TestCreateRequest_InsufficientStockNamesShortfall(t *testing.T) {
	uc, s := newTestUsecase(t)
	part := s.addPart("brake pad", nil, 100)
	s.parts[part.ID].Allocated = 90 // available 10

	_, err := uc.CreateRequest(context.Background(), centerActor(1), CreateIssueInput{
		ToServiceCenterID: 1,
		Items:             []CreateIssueItemInput{{PartID: &part.ID, RequestedQty: 30}},
	})
	require.Error(t, err)
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, 409, he.Status)
	assert.Contains(t, he.Message, "available 10.00")
	assert.Contains(t, he.Message, "short 20.00")
}

func TestCreateRequest_UnknownPartSuggestsSimilar(t *testing.T) {
	uc, s := newTestUsecase(t)
	s.addPart("brake pad front", nil, 10)
	s.addPart("brake disc", nil, 10)

	_, err := uc.CreateRequest(context.Background(), centerActor(1), CreateIssueInput{
		ToServiceCenterID: 1,
		Items:             []CreateIssueItemInput{{PartName: "brake shoe xl", RequestedQty: 1}},
	})
	require.Error(t, err)
	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, 422, he.Status)
	assert.Contains(t, he.Message, "part not found")
	assert.Contains(t, he.Message, "similar parts")
	assert.Contains(t, he.Message, "brake pad front")
}

func TestCreateRequest_PurchaseOrderQuantityWins(t *testing.T) {
	uc, s := newTestUsecase(t)
	part := s.addPart("battery module", nil, 100)
	poID := int64(7)
	s.pos[poID] = &model.PurchaseOrder{
		ID: poID, PONumber: "PO-7",
		Items: []model.PurchaseOrderItem{
			{ID: 71, CentralInventoryPartID: &part.ID, PartName: "battery module", Quantity: 50},
		},
	}

	out, err := uc.CreateRequest(context.Background(), centerActor(1), CreateIssueInput{
		ToServiceCenterID: 1,
		PurchaseOrderID:   &poID,
		Items:             []CreateIssueItemInput{{PartID: &part.ID, RequestedQty: 30}},
	})
	require.NoError(t, err)

	//呼び出し元の30ではなくPOの50が採用される
	require.Len(t, out.Lines, 1)
	assert.Equal(t, 50.0, out.Lines[0].RequestedQty)
	assert.Equal(t, 50.0, s.parts[part.ID].Allocated)
}

func TestCreateRequest_UnmatchedPOLineKeepsCallerQuantity(t *testing.T) {
	uc, s := newTestUsecase(t)
	part := s.addPart("battery module", nil, 100)
	poID := int64(7)
	s.pos[poID] = &model.PurchaseOrder{
		ID: poID, PONumber: "PO-7",
		Items: []model.PurchaseOrderItem{
			{ID: 71, PartName: "totally different part", Quantity: 50},
		},
	}

	out, err := uc.CreateRequest(context.Background(), centerActor(1), CreateIssueInput{
		ToServiceCenterID: 1,
		PurchaseOrderID:   &poID,
		Items:             []CreateIssueItemInput{{PartID: &part.ID, RequestedQty: 30}},
	})
	require.NoError(t, err)
	assert.Equal(t, 30.0, out.Lines[0].RequestedQty)
}

func TestCreateRequest_CenterActorCannotTargetOtherCenter(t *testing.T) {
	uc, s := newTestUsecase(t)
	part := s.addPart("brake pad", nil, 100)

	_, err := uc.CreateRequest(context.Background(), centerActor(1), CreateIssueInput{
		ToServiceCenterID: 2,
		Items:             []CreateIssueItemInput{{PartID: &part.ID, RequestedQty: 1}},
	})
	require.Error(t, err)
	he, _ := AsHTTPError(err)
	assert.Equal(t, 403, he.Status)
}

// ---- 却下 ----

func TestRejectRequest_ReleasesAllocation(t *testing.T) {
	uc, s := newTestUsecase(t)
	part := s.addPart("brake pad", nil, 100)
	issue := createIssue(t, uc, part.ID, 30)

	out, err := uc.RejectRequest(context.Background(), cimActor(), issue.ID, "stock needed elsewhere")
	require.NoError(t, err)

	assert.Equal(t, string(model.IssueStatusRejected), out.Status)
	assert.Equal(t, "stock needed elsewhere", out.RejectReason)
	assert.Equal(t, 0.0, s.parts[part.ID].Allocated)
}

func TestRejectRequest_IsTerminal(t *testing.T) {
	uc, s := newTestUsecase(t)
	part := s.addPart("brake pad", nil, 100)
	issue := createIssue(t, uc, part.ID, 30)

	_, err := uc.RejectRequest(context.Background(), cimActor(), issue.ID, "no stock")
	require.NoError(t, err)

	//却下後はどの遷移も受け付けない
	_, err = uc.ApproveByAdmin(context.Background(), adminActor(), issue.ID)
	require.Error(t, err)

	_, err = uc.Dispatch(context.Background(), adminActor(), issue.ID,
		[]DispatchItemInput{{LineID: issue.Lines[0].ID, Quantity: 1}}, nil)
	require.Error(t, err)
	he, _ := AsHTTPError(err)
	assert.Equal(t, 409, he.Status)
	assert.Contains(t, he.Message, "REJECTED")
}

func TestRejectRequest_OnlyFromPending(t *testing.T) {
	uc, s := newTestUsecase(t)
	part := s.addPart("brake pad", nil, 100)
	issue := createIssue(t, uc, part.ID, 30)

	_, err := uc.ApproveByAdmin(context.Background(), adminActor(), issue.ID)
	require.NoError(t, err)

	_, err = uc.RejectRequest(context.Background(), cimActor(), issue.ID, "too late")
	require.Error(t, err)
	he, _ := AsHTTPError(err)
	assert.Equal(t, 409, he.Status)
	assert.Contains(t, he.Message, "ADMIN_APPROVED")
}

// ---- 承認 ----

// 依頼30 → CIMが20に査定 → admin承認。引当は30→20→0と動く。
func TestApprovalFlow_CIMReducesThenAdminReleases(t *testing.T) {
	uc, s := newTestUsecase(t)
	part := s.addPart("brake pad", nil, 100)
	issue := createIssue(t, uc, part.ID, 30)
	require.Equal(t, 30.0, s.parts[part.ID].Allocated)

	cimOut, err := uc.ApproveByCIM(context.Background(), cimActor(), issue.ID, []LineApprovalInput{
		{LineID: issue.Lines[0].ID, ApprovedQty: 20},
	})
	require.NoError(t, err)
	assert.Equal(t, string(model.IssueStatusCIMApproved), cimOut.Status)
	require.NotNil(t, cimOut.Lines[0].ApprovedQty)
	assert.Equal(t, 20.0, *cimOut.Lines[0].ApprovedQty)
	assert.Equal(t, 20.0, s.parts[part.ID].Allocated)
	//依頼数量は不変
	assert.Equal(t, 30.0, cimOut.Lines[0].RequestedQty)

	adminOut, err := uc.ApproveByAdmin(context.Background(), adminActor(), issue.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.IssueStatusAdminApproved), adminOut.Status)
	assert.Equal(t, 0.0, s.parts[part.ID].Allocated)
}

// CIMを飛ばしてadmin承認。approved_qtyがrequestedで埋まり、引当が全解放される。
func TestApproveByAdmin_DirectFromPendingBackfillsApproval(t *testing.T) {
	uc, s := newTestUsecase(t)
	part := s.addPart("brake pad", nil, 100)
	issue := createIssue(t, uc, part.ID, 30)

	out, err := uc.ApproveByAdmin(context.Background(), adminActor(), issue.ID)
	require.NoError(t, err)

	assert.Equal(t, string(model.IssueStatusAdminApproved), out.Status)
	require.NotNil(t, out.Lines[0].ApprovedQty)
	assert.Equal(t, 30.0, *out.Lines[0].ApprovedQty)
	assert.Equal(t, 0.0, s.parts[part.ID].Allocated)
}

func TestApproveByCIM_UnlistedLineDefaultsToRequested(t *testing.T) {
	uc, s := newTestUsecase(t)
	part := s.addPart("brake pad", nil, 100)
	issue := createIssue(t, uc, part.ID, 30)

	out, err := uc.ApproveByCIM(context.Background(), cimActor(), issue.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, out.Lines[0].ApprovedQty)
	assert.Equal(t, 30.0, *out.Lines[0].ApprovedQty)
	assert.Equal(t, 30.0, s.parts[part.ID].Allocated)
}

func TestApproveByCIM_ZeroIsValid(t *testing.T) {
	uc, s := newTestUsecase(t)
	part := s.addPart("brake pad", nil, 100)
	issue := createIssue(t, uc, part.ID, 30)

	out, err := uc.ApproveByCIM(context.Background(), cimActor(), issue.ID, []LineApprovalInput{
		{LineID: issue.Lines[0].ID, ApprovedQty: 0},
	})
	require.NoError(t, err)
	require.NotNil(t, out.Lines[0].ApprovedQty)
	assert.Equal(t, 0.0, *out.Lines[0].ApprovedQty)
	assert.Equal(t, 0.0, s.parts[part.ID].Allocated)
	assert.Equal(t, 0.0, out.Lines[0].Remaining)
}

// 増額査定は「他の引当を除いた物理在庫」までは通る。
func TestApproveByCIM_IncreaseWithinPhysicalStock(t *testing.T) {
	uc, s := newTestUsecase(t)
	part := s.addPart("brake pad", nil, 100)
	issue := createIssue(t, uc, part.ID, 30)

	out, err := uc.ApproveByCIM(context.Background(), cimActor(), issue.ID, []LineApprovalInput{
		{LineID: issue.Lines[0].ID, ApprovedQty: 60},
	})
	require.NoError(t, err)
	assert.Equal(t, 60.0, *out.Lines[0].ApprovedQty)
	assert.Equal(t, 60.0, s.parts[part.ID].Allocated)
}

func TestApproveByCIM_IncreaseBeyondStockRejected(t *testing.T) {
	uc, s := newTestUsecase(t)
	part := s.addPart("brake pad", nil, 100)
	s.parts[part.ID].Allocated = 50 //他依頼の引当
	issue := createIssue(t, uc, part.ID, 30) // allocated 80

	_, err := uc.ApproveByCIM(context.Background(), cimActor(), issue.ID, []LineApprovalInput{
		{LineID: issue.Lines[0].ID, ApprovedQty: 60}, // bound = 100-80+30 = 50
	})
	require.Error(t, err)
	he, _ := AsHTTPError(err)
	assert.Equal(t, 409, he.Status)
	assert.Contains(t, he.Message, "exceeds physical stock")
}

func TestApproveByCIM_OnlyFromPending(t *testing.T) {
	uc, s := newTestUsecase(t)
	part := s.addPart("brake pad", nil, 100)
	issue := createIssue(t, uc, part.ID, 30)

	_, err := uc.ApproveByAdmin(context.Background(), adminActor(), issue.ID)
	require.NoError(t, err)

	_, err = uc.ApproveByCIM(context.Background(), cimActor(), issue.ID, nil)
	require.Error(t, err)
	he, _ := AsHTTPError(err)
	assert.Equal(t, 409, he.Status)
}

// ---- 出荷 ----

func approvedIssue(t *testing.T, uc *PartsIssueUsecase, partID int64, qty float64) IssueOutput {
	t.Helper()
	issue := createIssue(t, uc, partID, qty)
	out, err := uc.ApproveByAdmin(context.Background(), adminActor(), issue.ID)
	require.NoError(t, err)
	return out
}

// 7個の依頼を3+4で出荷。2回目のサブPO番号だけにCが付き、累計と在庫が合う。
func TestDispatch_PartialThenFulfilled(t *testing.T) {
	uc, s := newTestUsecase(t)
	part := s.addPart("brake pad", nil, 100)
	issue := approvedIssue(t, uc, part.ID, 7)
	lineID := issue.Lines[0].ID

	first, err := uc.Dispatch(context.Background(), adminActor(), issue.ID,
		[]DispatchItemInput{{LineID: lineID, Quantity: 3}}, nil)
	require.NoError(t, err)
	assert.Equal(t, string(model.IssueStatusDispatched), first.Status)
	assert.Equal(t, 3.0, first.Lines[0].IssuedQty)
	assert.Equal(t, "PO EVD 05032026 BLR01_1_1", first.Lines[0].SubPoNumber)

	second, err := uc.Dispatch(context.Background(), adminActor(), issue.ID,
		[]DispatchItemInput{{LineID: lineID, Quantity: 4}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 7.0, second.Lines[0].IssuedQty)
	assert.Equal(t, "PO EVD 05032026 BLR01_1_2C", second.Lines[0].SubPoNumber)
	assert.Equal(t, 0.0, second.Lines[0].Remaining)

	//台帳は2行、物理在庫は7減る
	require.Len(t, s.dispatches, 2)
	assert.False(t, s.dispatches[0].IsFullyFulfilled)
	assert.True(t, s.dispatches[1].IsFullyFulfilled)
	assert.Equal(t, 93.0, s.parts[part.ID].StockQuantity)
}

// CIMが満額承認した依頼を一括で全量出荷。初回からCが付く。
func TestDispatch_FullApprovalSingleShipment(t *testing.T) {
	uc, s := newTestUsecase(t)
	part := s.addPart("brake pad", nil, 100)
	issue := createIssue(t, uc, part.ID, 30)

	_, err := uc.ApproveByCIM(context.Background(), cimActor(), issue.ID, []LineApprovalInput{
		{LineID: issue.Lines[0].ID, ApprovedQty: 30},
	})
	require.NoError(t, err)
	_, err = uc.ApproveByAdmin(context.Background(), adminActor(), issue.ID)
	require.NoError(t, err)

	out, err := uc.Dispatch(context.Background(), adminActor(), issue.ID,
		[]DispatchItemInput{{LineID: issue.Lines[0].ID, Quantity: 30}}, nil)
	require.NoError(t, err)

	assert.Equal(t, "PO EVD 05032026 BLR01_1_1C", out.Lines[0].SubPoNumber)
	require.Len(t, s.dispatches, 1)
	assert.True(t, s.dispatches[0].IsFullyFulfilled)
	assert.Equal(t, 70.0, s.parts[part.ID].StockQuantity)
}

func TestDispatch_ExceedsRemainingRejected(t *testing.T) {
	uc, s := newTestUsecase(t)
	part := s.addPart("brake pad", nil, 100)
	issue := approvedIssue(t, uc, part.ID, 7)

	_, err := uc.Dispatch(context.Background(), adminActor(), issue.ID,
		[]DispatchItemInput{{LineID: issue.Lines[0].ID, Quantity: 8}}, nil)
	require.Error(t, err)
	he, _ := AsHTTPError(err)
	assert.Equal(t, 409, he.Status)
	assert.Contains(t, he.Message, "exceeds remaining")
}

// 査定で20に減らされた行は、20の全量出荷でもCが付かない（全量は依頼数量基準）。
func TestDispatch_FulfilledJudgedAgainstRequestedQty(t *testing.T) {
	uc, s := newTestUsecase(t)
	part := s.addPart("brake pad", nil, 100)
	issue := createIssue(t, uc, part.ID, 30)

	_, err := uc.ApproveByCIM(context.Background(), cimActor(), issue.ID, []LineApprovalInput{
		{LineID: issue.Lines[0].ID, ApprovedQty: 20},
	})
	require.NoError(t, err)
	_, err = uc.ApproveByAdmin(context.Background(), adminActor(), issue.ID)
	require.NoError(t, err)

	out, err := uc.Dispatch(context.Background(), adminActor(), issue.ID,
		[]DispatchItemInput{{LineID: issue.Lines[0].ID, Quantity: 20}}, nil)
	require.NoError(t, err)

	assert.Equal(t, "PO EVD 05032026 BLR01_1_1", out.Lines[0].SubPoNumber)
	require.Len(t, s.dispatches, 1)
	assert.False(t, s.dispatches[0].IsFullyFulfilled)
	//出荷対象は使い切ったので追加出荷は弾かれる
	_, err = uc.Dispatch(context.Background(), adminActor(), issue.ID,
		[]DispatchItemInput{{LineID: issue.Lines[0].ID, Quantity: 1}}, nil)
	require.Error(t, err)
}

func TestDispatch_OnlyFromAdminApprovedOrDispatched(t *testing.T) {
	uc, s := newTestUsecase(t)
	part := s.addPart("brake pad", nil, 100)
	issue := createIssue(t, uc, part.ID, 7)

	_, err := uc.Dispatch(context.Background(), adminActor(), issue.ID,
		[]DispatchItemInput{{LineID: issue.Lines[0].ID, Quantity: 3}}, nil)
	require.Error(t, err)
	he, _ := AsHTTPError(err)
	assert.Equal(t, 409, he.Status)
	assert.Contains(t, he.Message, "PENDING_APPROVAL")
}

func TestDispatch_AccumulatesPOReceivedQty(t *testing.T) {
	uc, s := newTestUsecase(t)
	part := s.addPart("battery module", nil, 100)
	poID := int64(7)
	s.pos[poID] = &model.PurchaseOrder{
		ID: poID, PONumber: "PO-7",
		Items: []model.PurchaseOrderItem{
			{ID: 71, CentralInventoryPartID: &part.ID, PartName: "battery module", Quantity: 50},
		},
	}

	created, err := uc.CreateRequest(context.Background(), centerActor(1), CreateIssueInput{
		ToServiceCenterID: 1,
		PurchaseOrderID:   &poID,
		Items:             []CreateIssueItemInput{{PartID: &part.ID, RequestedQty: 50}},
	})
	require.NoError(t, err)
	_, err = uc.ApproveByAdmin(context.Background(), adminActor(), created.ID)
	require.NoError(t, err)

	_, err = uc.Dispatch(context.Background(), adminActor(), created.ID,
		[]DispatchItemInput{{LineID: created.Lines[0].ID, Quantity: 30}}, nil)
	require.NoError(t, err)

	assert.Equal(t, 30.0, s.pos[poID].Items[0].ReceivedQty)
}

// ---- 入庫 ----

func TestReceive_CompletesAndStocksCenterInventory(t *testing.T) {
	uc, s := newTestUsecase(t)
	number := "BP-100"
	part := s.addPart("brake pad", &number, 100)
	issue := approvedIssue(t, uc, part.ID, 7)
	lineID := issue.Lines[0].ID

	_, err := uc.Dispatch(context.Background(), adminActor(), issue.ID,
		[]DispatchItemInput{{LineID: lineID, Quantity: 7}}, nil)
	require.NoError(t, err)

	out, err := uc.Receive(context.Background(), centerActor(1), issue.ID,
		[]ReceiveItemInput{{LineID: lineID, ReceivedQty: 7}})
	require.NoError(t, err)

	assert.Equal(t, string(model.IssueStatusCompleted), out.Status)
	require.NotNil(t, out.Lines[0].ReceivedQty)
	assert.Equal(t, 7.0, *out.Lines[0].ReceivedQty)

	inv := s.centerInv[invKey(1, "BP-100")]
	require.NotNil(t, inv)
	assert.Equal(t, 7.0, inv.StockQuantity)
	assert.Equal(t, "brake pad", inv.PartName)
}

func TestReceive_PartWithoutNumberKeyedByName(t *testing.T) {
	uc, s := newTestUsecase(t)
	part := s.addPart("coolant hose", nil, 100)
	issue := approvedIssue(t, uc, part.ID, 2)

	_, err := uc.Dispatch(context.Background(), adminActor(), issue.ID,
		[]DispatchItemInput{{LineID: issue.Lines[0].ID, Quantity: 2}}, nil)
	require.NoError(t, err)

	_, err = uc.Receive(context.Background(), centerActor(1), issue.ID,
		[]ReceiveItemInput{{LineID: issue.Lines[0].ID, ReceivedQty: 2}})
	require.NoError(t, err)

	require.NotNil(t, s.centerInv[invKey(1, "coolant hose")])
}

func TestReceive_OnlyFromDispatched(t *testing.T) {
	uc, s := newTestUsecase(t)
	part := s.addPart("brake pad", nil, 100)
	issue := approvedIssue(t, uc, part.ID, 7)

	_, err := uc.Receive(context.Background(), centerActor(1), issue.ID,
		[]ReceiveItemInput{{LineID: issue.Lines[0].ID, ReceivedQty: 7}})
	require.Error(t, err)
	he, _ := AsHTTPError(err)
	assert.Equal(t, 409, he.Status)
}

func TestReceive_OtherCenterCannotReceive(t *testing.T) {
	uc, s := newTestUsecase(t)
	part := s.addPart("brake pad", nil, 100)
	issue := approvedIssue(t, uc, part.ID, 7)

	_, err := uc.Dispatch(context.Background(), adminActor(), issue.ID,
		[]DispatchItemInput{{LineID: issue.Lines[0].ID, Quantity: 7}}, nil)
	require.NoError(t, err)

	_, err = uc.Receive(context.Background(), centerActor(2), issue.ID,
		[]ReceiveItemInput{{LineID: issue.Lines[0].ID, ReceivedQty: 7}})
	require.Error(t, err)
	he, _ := AsHTTPError(err)
	assert.Equal(t, 404, he.Status)
}

// ---- 参照 ----

func TestListRequests_CenterActorSeesOnlyOwnCenter(t *testing.T) {
	uc, s := newTestUsecase(t)
	part := s.addPart("brake pad", nil, 100)
	createIssue(t, uc, part.ID, 1)

	_, err := uc.CreateRequest(context.Background(), adminActor(), CreateIssueInput{
		ToServiceCenterID: 2,
		Items:             []CreateIssueItemInput{{PartID: &part.ID, RequestedQty: 1}},
	})
	require.NoError(t, err)

	out, err := uc.ListRequests(context.Background(), centerActor(1), ListIssuesInput{Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, int64(1), out.Items[0].ToServiceCenterID)

	all, err := uc.ListRequests(context.Background(), adminActor(), ListIssuesInput{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)
}

func TestGetRequest_OtherCenterLooksLikeMissing(t *testing.T) {
	uc, s := newTestUsecase(t)
	part := s.addPart("brake pad", nil, 100)
	issue := createIssue(t, uc, part.ID, 1)

	_, err := uc.GetRequest(context.Background(), centerActor(2), issue.ID)
	require.Error(t, err)
	he, _ := AsHTTPError(err)
	assert.Equal(t, 404, he.Status)
}

func TestGetRequest_ExposesDerivedAvailability(t *testing.T) {
	uc, s := newTestUsecase(t)
	part := s.addPart("brake pad", nil, 100)
	issue := createIssue(t, uc, part.ID, 30)

	out, err := uc.GetRequest(context.Background(), centerActor(1), issue.ID)
	require.NoError(t, err)
	assert.Equal(t, 70.0, out.Lines[0].Available)
	assert.Equal(t, 30.0, out.Lines[0].Remaining)
}

// ---- サブPO番号 ----

func TestBuildSubPoNumber(t *testing.T) {
	at := time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "PO EVD 09012026 BLR01_12_1",
		buildSubPoNumber("EVD", at, "BLR01", 12, 1, false))
	assert.Equal(t, "PO EVD 09012026 BLR01_12_3C",
		buildSubPoNumber("EVD", at, "BLR01", 12, 3, true))
}

func TestParseRequestSeq(t *testing.T) {
	n, err := parseRequestSeq("PI-2026-0012")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = parseRequestSeq("garbage")
	require.Error(t, err)
}
