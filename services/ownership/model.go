package ownership

import (
	"time"

	"kudos-controlplane/pkg/errutil"
)

const ownerRowID = "owner"

type Owner struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Account   string    `gorm:"column:account"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Owner) TableName() string { return "owners" }

// Error is a failure of the ownership gate.
type Error string

const (
	ErrCallerIsNotOwner Error = "caller is not the owner"
	ErrNewOwnerIsZero   Error = "new owner is the zero account"
)

func (e Error) Error() string { return string(e) }

func (e Error) Status() errutil.CoreStatus {
	if e == ErrNewOwnerIsZero {
		return errutil.StatusBadRequest
	}
	return errutil.StatusForbidden
}
