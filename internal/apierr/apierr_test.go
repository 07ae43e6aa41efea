package apierr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapPreservesKindAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(TransientUpstream, cause)
	require.Equal(t, TransientUpstream, KindOf(err))
	require.ErrorIs(t, err, cause)
	require.True(t, IsTransient(err))
}

func TestHTTPStatus(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, HTTPStatus(New(BadRequest, "nope", nil)))
	require.Equal(t, http.StatusNotFound, HTTPStatus(New(NotFound, "nope", nil)))
	require.Equal(t, http.StatusBadGateway, HTTPStatus(New(TransientUpstream, "nope", nil)))
	require.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(New(PermanentUpstream, "nope", nil)))
	require.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}

func TestKindOfDefaultsToInternal(t *testing.T) {
	require.Equal(t, Internal, KindOf(errors.New("plain")))
}
