package errutil

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestBaseErrorCarriesCause(t *testing.T) {
	cause := errors.New("boom")
	err := Conflict("handle taken", cause)

	require.ErrorIs(t, err, cause)
	require.Equal(t, StatusConflict, StatusOf(err))
	require.Equal(t, "[conflict] handle taken: boom", err.Error())
}

func TestStatusMappings(t *testing.T) {
	require.Equal(t, http.StatusForbidden, StatusForbidden.HTTPStatus())
	require.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("plain")).HTTPStatus())
	require.Equal(t, codes.NotFound, StatusNotFound.GRPCCode())

	st, ok := status.FromError(ToGRPCError(Unauthorized("missing caller", nil)))
	require.True(t, ok)
	require.Equal(t, codes.Unauthenticated, st.Code())
}

type reasonErr struct{}

func (reasonErr) Error() string { return "already claimed" }
func (reasonErr) Reason() string { return "ContributionAlreadyClaimed" }
func (reasonErr) Status() CoreStatus { return StatusConflict }

func TestToGRPCErrorDetails(t *testing.T) {
	err := ToGRPCError(BadRequest("invalid id", nil, WithDetails(Detail{Field: "id", Message: "must be numeric"})))
	st, ok := status.FromError(err)
	require.True(t, ok)
	require.Equal(t, codes.InvalidArgument, st.Code())
	require.Equal(t, "invalid id", st.Message())
	require.Len(t, st.Details(), 2)

	reason, ok := ReasonOf(err)
	require.True(t, ok)
	require.Equal(t, string(StatusBadRequest), reason)

	err = ToGRPCError(reasonErr{})
	require.Equal(t, codes.AlreadyExists, status.Code(err))
	reason, ok = ReasonOf(err)
	require.True(t, ok)
	require.Equal(t, "ContributionAlreadyClaimed", reason)

	_, ok = ReasonOf(errors.New("plain"))
	require.False(t, ok)
}
