package notification

import (
	"strconv"
	"time"
)

type EventType string

const (
	IdentityRegistered   EventType = "IdentityRegistered"
	ContributionApproval EventType = "ContributionApproval"
	RewardClaimed        EventType = "RewardClaimed"
	OwnershipTransferred EventType = "OwnershipTransferred"
)

// Event is an append-only outbox row. Fields not relevant to Type stay zero.
type Event struct {
	ID              int64      `gorm:"column:id;primaryKey;autoIncrement:false" json:"id,string"`
	Type            EventType  `gorm:"column:type;index" json:"type"`
	ContributionID  *uint64    `gorm:"column:contribution_id" json:"contribution_id,omitempty"`
	Handle          string     `gorm:"column:handle" json:"handle,omitempty"`
	Account         string     `gorm:"column:account" json:"account,omitempty"`
	PreviousAccount string     `gorm:"column:previous_account" json:"previous_account,omitempty"`
	Reward          *int64     `gorm:"column:reward" json:"reward,omitempty"`
	CreatedAt       time.Time  `gorm:"column:created_at" json:"created_at"`
	DispatchedAt    *time.Time `gorm:"column:dispatched_at;index" json:"dispatched_at,omitempty"`
}

func (Event) TableName() string { return "events" }

// Key is the partition key used by sinks; events of one contribution share
// a key so they stay ordered.
func (e *Event) Key() string {
	if e.ContributionID != nil {
		return strconv.FormatUint(*e.ContributionID, 10)
	}
	if e.Handle != "" {
		return e.Handle
	}
	return strconv.FormatInt(e.ID, 10)
}

func NewIdentityRegistered(handle, account string) *Event {
	return &Event{Type: IdentityRegistered, Handle: handle, Account: account}
}

func NewContributionApproval(id uint64, contributor string) *Event {
	return &Event{Type: ContributionApproval, ContributionID: &id, Account: contributor}
}

func NewRewardClaimed(id uint64, contributor string, reward int64) *Event {
	return &Event{Type: RewardClaimed, ContributionID: &id, Account: contributor, Reward: &reward}
}

func NewOwnershipTransferred(previous, next string) *Event {
	return &Event{Type: OwnershipTransferred, PreviousAccount: previous, Account: next}
}
