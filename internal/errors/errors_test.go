package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"gostamp/domain/core"
)

func TestFromDomain(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{core.NewInvalidInputError("count_a", "negative"), CodeInvalidInput},
		{core.NewUnsupportedMethodError("two_group_test", "x"), CodeUnsupportedConfiguration},
		{core.NewNotFoundError("run", "1"), CodeNotFound},
		{fmt.Errorf("eigen: %w", core.ErrNumericalInstability), CodeNumericalInstability},
		{stderrors.New("boom"), CodeInternalError},
	}
	for _, tt := range tests {
		appErr := FromDomain(tt.err)
		assert.Equal(t, tt.code, appErr.Code, tt.err.Error())
		assert.True(t, stderrors.Is(appErr, tt.err))
	}
	assert.Nil(t, FromDomain(nil))
}

func TestWrapKeepsCode(t *testing.T) {
	base := New(CodeInvalidInput, "bad alpha")
	wrapped := Wrap(base, "run 3")
	assert.Equal(t, CodeInvalidInput, GetCode(wrapped))
	assert.Equal(t, "run 3: bad alpha", wrapped.Error())

	domain := Wrap(core.NewInvalidInputError("alpha", "zero"), "request")
	assert.Equal(t, CodeInvalidInput, GetCode(domain))

	assert.Nil(t, Wrap(nil, "x"))
	assert.Equal(t, "UNKNOWN", GetCode(stderrors.New("plain")))
}

func TestDatabaseError(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := DatabaseError("save run", cause)
	assert.Equal(t, CodeDatabaseError, GetCode(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "save run: connection refused", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(CodeInvalidInput))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(CodeUnsupportedConfiguration))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(CodeNotFound))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(CodeDatabaseError))
}
