package identity

import (
	"time"

	"kudos-controlplane/pkg/errutil"
)

// Identity binds a contributor handle to an account. Bindings never change.
type Identity struct {
	Handle    string    `gorm:"column:handle;primaryKey" json:"handle"`
	Account   string    `gorm:"column:account;not null" json:"account"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Identity) TableName() string { return "identities" }

type Error string

const (
	ErrAlreadyRegistered Error = "identity already registered"
	ErrEmptyHandle       Error = "handle must not be empty"
	ErrEmptyAccount      Error = "account must not be empty"
)

func (e Error) Error() string { return string(e) }

func (e Error) Status() errutil.CoreStatus {
	if e == ErrAlreadyRegistered {
		return errutil.StatusConflict
	}
	return errutil.StatusValidationFailed
}
