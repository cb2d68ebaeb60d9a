package model

import "time"

// 承認・出荷など。
type AuditAction string

const (
	//依頼を作成した操作。
	AuditActionCreateIssue AuditAction = "CREATE_ISSUE"
	//CIMが数量査定した操作。
	AuditActionCIMApprove AuditAction = "CIM_APPROVE"
	//管理者承認の操作。
	AuditActionAdminApprove AuditAction = "ADMIN_APPROVE"
	//依頼を却下した操作。
	AuditActionRejectIssue AuditAction = "REJECT_ISSUE"
	//出荷を記録した操作。
	AuditActionDispatch AuditAction = "DISPATCH"
	//入庫を記録した操作。
	AuditActionReceive AuditAction = "RECEIVE"
	//セントラル部品を登録した操作。
	AuditActionCreatePart AuditAction = "CREATE_PART"
)

// 何に対する操作か
type AuditResourceType string

const (
	//払出依頼に対する操作。
	AuditResourceIssue AuditResourceType = "parts_issue"

	//セントラル部品に対する操作。
	AuditResourcePart AuditResourceType = "central_part"
)

// 監査ログ。
// 「誰が」「何を」「どの対象に」「どう変えたか」を残す。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//操作したユーザーのID。
	ActorUserID int64 `gorm:"not null;index" json:"actor_user_id"`

	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`
	ResourceID   int64             `gorm:"not null;index" json:"resource_id"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"before_json"`
	AfterJSON  string `gorm:"type:text" json:"after_json"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
