package contribution

import "time"

// Contribution is created on approval and flips to Claimed once. Rows are
// never deleted and the contributor never changes.
type Contribution struct {
	ID          uint64     `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	Contributor string     `gorm:"column:contributor;not null" json:"contributor"`
	Claimed     bool       `gorm:"column:claimed;not null;default:false" json:"claimed"`
	ApprovedAt  time.Time  `gorm:"column:approved_at" json:"approved_at"`
	ClaimedAt   *time.Time `gorm:"column:claimed_at" json:"claimed_at,omitempty"`
}

func (Contribution) TableName() string { return "contributions" }

// Receipt describes a successful claim.
type Receipt struct {
	ContributionID uint64 `json:"contribution_id"`
	Contributor    string `json:"contributor"`
	Reward         int64  `json:"reward"`
	TransactionID  string `json:"transaction_id"`
}
