package contribution

import (
	"fmt"

	"kudos-controlplane/pkg/errutil"
)

type ErrorKind string

const (
	KindOwnableError                ErrorKind = "OwnableError"
	KindIdentityAlreadyRegistered   ErrorKind = "IdentityAlreadyRegistered"
	KindContributionAlreadyApproved ErrorKind = "ContributionAlreadyApproved"
	KindNoContributionApprovedYet   ErrorKind = "NoContributionApprovedYet"
	KindUnknownContributor          ErrorKind = "UnknownContributor"
	KindUnknownContribution         ErrorKind = "UnknownContribution"
	KindPaymentFailed               ErrorKind = "PaymentFailed"
	KindCallerIsNotContributor      ErrorKind = "CallerIsNotContributor"
	KindContributionAlreadyClaimed  ErrorKind = "ContributionAlreadyClaimed"
)

// Error is the single failure type of the workflow. OwnableError wraps the
// ownership gate's error and PaymentFailed wraps the transfer failure.
type Error struct {
	Kind ErrorKind
	Err  error
}

var (
	ErrOwnable                     = &Error{Kind: KindOwnableError}
	ErrIdentityAlreadyRegistered   = &Error{Kind: KindIdentityAlreadyRegistered}
	ErrContributionAlreadyApproved = &Error{Kind: KindContributionAlreadyApproved}
	ErrNoContributionApprovedYet   = &Error{Kind: KindNoContributionApprovedYet}
	ErrUnknownContributor          = &Error{Kind: KindUnknownContributor}
	ErrUnknownContribution         = &Error{Kind: KindUnknownContribution}
	ErrPaymentFailed               = &Error{Kind: KindPaymentFailed}
	ErrCallerIsNotContributor      = &Error{Kind: KindCallerIsNotContributor}
	ErrContributionAlreadyClaimed  = &Error{Kind: KindContributionAlreadyClaimed}
)

func wrap(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Reason is the error kind; gRPC callers receive it in the ErrorInfo detail.
func (e *Error) Reason() string { return string(e.Kind) }

func (e *Error) Status() errutil.CoreStatus {
	switch e.Kind {
	case KindOwnableError:
		if s, ok := e.Err.(interface{ Status() errutil.CoreStatus }); ok {
			return s.Status()
		}
		return errutil.StatusForbidden
	case KindCallerIsNotContributor:
		return errutil.StatusForbidden
	case KindIdentityAlreadyRegistered, KindContributionAlreadyApproved, KindContributionAlreadyClaimed:
		return errutil.StatusConflict
	case KindNoContributionApprovedYet, KindUnknownContributor, KindUnknownContribution:
		return errutil.StatusNotFound
	case KindPaymentFailed:
		return errutil.StatusUnprocessableEntity
	default:
		return errutil.StatusInternal
	}
}

func (e *Error) JSON() any {
	return map[string]any{
		"error": map[string]any{
			"code":    e.Status(),
			"kind":    e.Kind,
			"message": e.Error(),
		},
	}
}
