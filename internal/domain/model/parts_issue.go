package model

import "time"

type PartsIssueStatus string

const (
	IssueStatusPendingApproval PartsIssueStatus = "PENDING_APPROVAL"
	IssueStatusCIMApproved     PartsIssueStatus = "CIM_APPROVED"
	IssueStatusAdminApproved   PartsIssueStatus = "ADMIN_APPROVED"
	//部分出荷・全量出荷の両方でDISPATCHED（区別はサブPO番号のCサフィックス）
	IssueStatusDispatched PartsIssueStatus = "DISPATCHED"
	IssueStatusCompleted  PartsIssueStatus = "COMPLETED"
	IssueStatusRejected   PartsIssueStatus = "REJECTED"
)

type IssuePriority string

const (
	IssuePriorityLow    IssuePriority = "LOW"
	IssuePriorityNormal IssuePriority = "NORMAL"
	IssuePriorityHigh   IssuePriority = "HIGH"
	IssuePriorityUrgent IssuePriority = "URGENT"
)

// サービスセンターからの部品払出依頼。
type PartsIssueRequest struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//PI-{year}-{0001} の連番
	IssueNumber string `gorm:"type:varchar(30);not null;uniqueIndex" json:"issue_number"`

	ToServiceCenterID int64  `gorm:"not null;index" json:"to_service_center_id"`
	RequestedByID     int64  `gorm:"not null;index" json:"requested_by_id"`
	PurchaseOrderID   *int64 `gorm:"index" json:"purchase_order_id"`

	Status       PartsIssueStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Priority     IssuePriority    `gorm:"type:varchar(10);not null;default:'NORMAL'" json:"priority"`
	RejectReason string           `gorm:"type:varchar(255)" json:"reject_reason,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`

	Lines []PartsIssueLine `gorm:"foreignKey:IssueID" json:"lines"`
}

// 依頼の1部品行。
// requested_qty は作成時に一度だけ書き、その後は絶対に更新しない。
// 更新系のrepositoryメソッドはカラムを明示して requested_qty を書けない作りにしてある。
type PartsIssueLine struct {
	ID                     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	IssueID                int64 `gorm:"not null;index" json:"issue_id"`
	CentralInventoryPartID int64 `gorm:"not null;index" json:"central_inventory_part_id"`

	RequestedQty float64 `gorm:"type:decimal(12,2);not null" json:"requested_qty"`

	//CIM査定数量。未査定（直接admin承認）ならnil
	ApprovedQty *float64 `gorm:"type:decimal(12,2)" json:"approved_qty"`

	//全dispatchの累計（単調非減少）
	IssuedQty float64 `gorm:"type:decimal(12,2);not null;default:0" json:"issued_qty"`

	ReceivedQty *float64 `gorm:"type:decimal(12,2)" json:"received_qty"`

	//表示用: 最新dispatchのサブPO番号（履歴はdispatch_records側）
	SubPoNumber string `gorm:"type:varchar(100)" json:"sub_po_number"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`

	Part       CentralInventoryPart `gorm:"foreignKey:CentralInventoryPartID" json:"part"`
	Dispatches []DispatchRecord     `gorm:"foreignKey:IssueLineID" json:"dispatches,omitempty"`
}

// 出荷対象数量。CIM査定があればそれ、無ければ依頼数量。
func (l PartsIssueLine) EffectiveApprovedQty() float64 {
	if l.ApprovedQty != nil {
		return *l.ApprovedQty
	}
	return l.RequestedQty
}

// 未出荷の残数。
func (l PartsIssueLine) RemainingQty() float64 {
	return l.EffectiveApprovedQty() - l.IssuedQty
}
