package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediconnect/mediconnect-platform/internal/session"
)

func TestNavigatorDefaultsAndSelect(t *testing.T) {
	nav := NewNavigator(PatientShell())
	assert.Equal(t, "profile", nav.Active("s-1"))

	require.NoError(t, nav.Select("s-1", "booking"))
	assert.Equal(t, "booking", nav.Active("s-1"))
	assert.Equal(t, "profile", nav.Active("s-2"))

	assert.ErrorIs(t, nav.Select("s-1", "notifications"), ErrUnknownView)
	assert.Equal(t, "booking", nav.Active("s-1"))

	nav.Forget("s-1")
	assert.Equal(t, "profile", nav.Active("s-1"))
}

func TestShells(t *testing.T) {
	assert.Len(t, PatientShell().Items, 5)
	assert.Len(t, HospitalShell().Items, 4)
	assert.True(t, HospitalShell().Has("notifications"))
	assert.False(t, HospitalShell().Has("booking"))
}

func TestHandlerSelect(t *testing.T) {
	h := NewHandler(NewNavigator(HospitalShell()))
	sess := &session.Session{ID: "s-1", Role: session.RoleHospital}

	req := httptest.NewRequest(http.MethodPut, "/admin/nav", strings.NewReader(`{"view":"appointments"}`))
	req = req.WithContext(session.WithSession(req.Context(), sess))
	rec := httptest.NewRecorder()
	h.Select(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin/nav", nil)
	req = req.WithContext(session.WithSession(req.Context(), sess))
	rec = httptest.NewRecorder()
	h.Get(rec, req)
	var body NavResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "hospital", body.Shell)
	assert.Equal(t, "appointments", body.Active)

	req = httptest.NewRequest(http.MethodPut, "/admin/nav", strings.NewReader(`{"view":"history"}`))
	req = req.WithContext(session.WithSession(req.Context(), sess))
	rec = httptest.NewRecorder()
	h.Select(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerRequiresSession(t *testing.T) {
	h := NewHandler(NewNavigator(PatientShell()))
	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/patient/nav", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
