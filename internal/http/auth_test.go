package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wisefido-asset/internal/domain"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	op := domain.Operator{ID: "u-9", Username: "tech.lee", Department: "Biomed", Role: "technician"}

	token, err := issuer.Issue(op, time.Now())
	require.NoError(t, err)

	got, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, op, *got)

	_, err = NewTokenIssuer("other", time.Hour).Parse(token)
	assert.Error(t, err)
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	token, err := issuer.Issue(domain.Operator{ID: "u-1"}, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = issuer.Parse(token)
	assert.Error(t, err)
}

func TestTokenIssuer_RequiresOperatorID(t *testing.T) {
	_, err := NewTokenIssuer("secret", time.Minute).Issue(domain.Operator{}, time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAuthMiddleware_QueryToken(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	token, err := issuer.Issue(domain.Operator{ID: "u-2", Department: "OR"}, time.Now())
	require.NoError(t, err)

	var seen domain.Operator
	h := AuthMiddleware(issuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = OperatorFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/alert/api/v1/ws?token="+token, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "u-2", seen.ID)
	assert.Equal(t, "OR", seen.Department)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/alert/api/v1/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		domain.ErrAssetNotFound:          http.StatusNotFound,
		domain.ErrMalformedSignal:        http.StatusNotFound,
		domain.ErrSessionNotFound:        http.StatusNotFound,
		domain.ErrDuplicateIdentifier:    http.StatusConflict,
		domain.ErrAssetUnavailable:       http.StatusConflict,
		domain.ErrSessionNotActive:       http.StatusConflict,
		domain.ErrHasActiveSession:       http.StatusConflict,
		domain.ErrIllegalTransition:      http.StatusConflict,
		domain.ErrInvalidOwnershipFields: http.StatusBadRequest,
		domain.ErrInvalidInput:           http.StatusBadRequest,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), err.Error())
	}
}
