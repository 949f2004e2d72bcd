package errorbank

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
)

func TestStatusCodes(t *testing.T) {
	cases := []struct {
		kind   Kind
		status int
		code   codes.Code
	}{
		{KindBadRequest, http.StatusBadRequest, codes.InvalidArgument},
		{KindUnauthorized, http.StatusUnauthorized, codes.Unauthenticated},
		{KindForbidden, http.StatusForbidden, codes.PermissionDenied},
		{KindConflict, http.StatusConflict, codes.AlreadyExists},
		{KindNotFound, http.StatusNotFound, codes.NotFound},
		{KindUnprocessableEntity, http.StatusUnprocessableEntity, codes.FailedPrecondition},
		{KindInternal, http.StatusInternalServerError, codes.Internal},
	}
	for _, tc := range cases {
		err := New(tc.kind, "boom")
		assert.Equal(t, tc.status, err.StatusCode(), string(tc.kind))
		assert.Equal(t, tc.code, err.GRPCCode(), string(tc.kind))
	}
}

func TestErrorRendersCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal("db ping failed", WithCause(cause))

	assert.Equal(t, "db ping failed: connection refused", err.Error())
	assert.True(t, errors.Is(err, cause))
}

func TestMessageDefaultsToKind(t *testing.T) {
	err := New(KindConflict, "")
	assert.Equal(t, "conflict", err.Message())
}

func TestDetails(t *testing.T) {
	err := BadRequest("invalid page",
		WithDetail("page", "0"),
		WithDetails(map[string]any{"limit": "10"}),
	)
	assert.Equal(t, map[string]any{"page": "0", "limit": "10"}, err.Details())
}

func TestFrom(t *testing.T) {
	appErr := NotFound("order not found")
	assert.Same(t, appErr, From(appErr))

	wrapped := fmt.Errorf("handler: %w", appErr)
	assert.Same(t, appErr, From(wrapped))

	plain := errors.New("oops")
	converted := From(plain)
	assert.Equal(t, KindInternal, converted.Kind())
	assert.True(t, errors.Is(converted, plain))

	assert.Nil(t, From(nil))
}

func TestIsKind(t *testing.T) {
	err := Conflict("already accepted")
	assert.True(t, IsKind(err, KindConflict))
	assert.False(t, IsKind(err, KindNotFound))
	assert.True(t, IsKind(fmt.Errorf("svc: %w", err), KindConflict))
	assert.False(t, IsKind(errors.New("plain"), KindConflict))
	assert.False(t, IsKind(nil, KindConflict))
}
