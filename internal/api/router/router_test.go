package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mediconnect/mediconnect-platform/internal/app/bootstrap"
	"github.com/mediconnect/mediconnect-platform/internal/appointments"
	"github.com/mediconnect/mediconnect-platform/internal/auth"
	"github.com/mediconnect/mediconnect-platform/internal/booking"
	"github.com/mediconnect/mediconnect-platform/internal/dashboard"
	"github.com/mediconnect/mediconnect-platform/internal/directory"
	"github.com/mediconnect/mediconnect-platform/internal/docstore"
	"github.com/mediconnect/mediconnect-platform/internal/events"
	"github.com/mediconnect/mediconnect-platform/internal/hospital"
	"github.com/mediconnect/mediconnect-platform/internal/session"
	"github.com/mediconnect/mediconnect-platform/pkg/logging"
)

const operatorPassword = "operator-pass"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := logging.New("error")
	store := docstore.NewMemoryStore()
	if err := bootstrap.SeedSampleData(context.Background(), store, operatorPassword, logger); err != nil {
		t.Fatalf("seed: %v", err)
	}

	sessions := session.NewManager(session.NewMemoryStore(), session.NewMemoryNotifier(), time.Hour, logger)
	tokens := auth.NewTokenIssuer("test-secret")
	publisher := events.NewMemoryPublisher()

	directorySvc := directory.NewService(store, logger)
	appointmentSvc := appointments.NewService(store, logger)
	bookingSvc := booking.NewService(booking.ServiceConfig{
		Drafts:    booking.NewDrafts(),
		Directory: directorySvc,
		Recorder:  appointments.NewRecorder(store, publisher, logger),
		Logger:    logger,
	})
	feed := hospital.NewFeed(nil, logger)
	hospitalSvc := hospital.NewService(hospital.ServiceConfig{
		Store:        store,
		Appointments: appointmentSvc,
		Board:        hospital.NewBoard(),
		Feed:         feed,
		Publisher:    publisher,
		Logger:       logger,
	})

	patientNav := dashboard.NewNavigator(dashboard.PatientShell())

	return New(&Config{
		Logger:   logger,
		Tokens:   tokens,
		Sessions: sessions,
		AuthHandler: auth.NewHandler(auth.HandlerConfig{
			Provider: auth.NewLocalProvider(store),
			Sessions: sessions,
			Tokens:   tokens,
			Logger:   logger,
		}),
		PatientNav:         dashboard.NewHandler(patientNav),
		HospitalNav:        dashboard.NewHandler(dashboard.NewNavigator(dashboard.HospitalShell())),
		DirectoryHandler:   directory.NewHandler(directorySvc, nil, logger),
		BookingHandler:     booking.NewHandler(bookingSvc, logger).WithNavigator(patientNav),
		AppointmentHandler: appointments.NewHandler(appointmentSvc),
		HospitalHandler:    hospital.NewHandler(hospitalSvc, feed, logger),
		Version:            "test",
	})
}

func serve(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func signIn(t *testing.T, h http.Handler, path, email, password string) string {
	t.Helper()
	rr := serve(t, h, http.MethodPost, path, "", auth.CredentialsRequest{Email: email, Password: password})
	if rr.Code != http.StatusOK && rr.Code != http.StatusCreated {
		t.Fatalf("%s: expected success, got %d: %s", path, rr.Code, rr.Body.String())
	}
	var resp auth.GateResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode gate response: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("%s: expected a token", path)
	}
	return resp.Token
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp["error"]
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rr := serve(t, router, http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterDescriptor(t *testing.T) {
	router := newTestRouter(t)

	rr := serve(t, router, http.MethodGet, "/", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp Descriptor
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode descriptor: %v", err)
	}
	if resp.Service != "mediconnect" || resp.Version != "test" {
		t.Fatalf("unexpected descriptor %+v", resp)
	}
}

func TestRouterPatientRoutesRequireSession(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/patient/hospitals", "/patient/booking", "/admin/profile", "/auth/me"} {
		if rr := serve(t, router, http.MethodGet, path, "", nil); rr.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, rr.Code)
		}
	}
}

func TestRouterPatientWorkspace(t *testing.T) {
	router := newTestRouter(t)
	token := signIn(t, router, "/auth/signup", "patient@example.com", "secret123")

	rr := serve(t, router, http.MethodGet, "/patient/booking", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("booking: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var view booking.View
	if err := json.NewDecoder(rr.Body).Decode(&view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.StepName != "select_hospital" {
		t.Fatalf("expected first step, got %q", view.StepName)
	}
	if len(view.HospitalOptions) == 0 {
		t.Fatalf("expected hospital options from the seeded directory")
	}

	rr = serve(t, router, http.MethodPut, "/patient/nav", token, map[string]string{"view": "history"})
	if rr.Code != http.StatusOK {
		t.Fatalf("nav: expected 200, got %d", rr.Code)
	}
	var nav dashboard.NavResponse
	if err := json.NewDecoder(rr.Body).Decode(&nav); err != nil {
		t.Fatalf("decode nav: %v", err)
	}
	if nav.Active != "history" {
		t.Fatalf("expected history tab, got %q", nav.Active)
	}

	rr = serve(t, router, http.MethodPost, "/patient/booking/start", token, map[string]string{"hospital": "Lotus Care Hospital", "doctor": "Dr. Meera Rahul"})
	if rr.Code != http.StatusOK {
		t.Fatalf("booking start: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	rr = serve(t, router, http.MethodGet, "/patient/nav", token, nil)
	if err := json.NewDecoder(rr.Body).Decode(&nav); err != nil {
		t.Fatalf("decode nav: %v", err)
	}
	if nav.Active != booking.NavTab {
		t.Fatalf("expected booking tab after start, got %q", nav.Active)
	}

	if rr := serve(t, router, http.MethodGet, "/patient/appointments", token, nil); rr.Code != http.StatusOK {
		t.Fatalf("appointments: expected 200, got %d", rr.Code)
	}

	rr = serve(t, router, http.MethodGet, "/admin/profile", token, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("admin as patient: expected 403, got %d", rr.Code)
	}
	if msg := errorMessage(t, rr); msg != hospital.MsgRestricted {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestRouterHospitalWorkspace(t *testing.T) {
	router := newTestRouter(t)
	token := signIn(t, router, "/auth/signin", bootstrap.DemoOperatorEmail, operatorPassword)

	rr := serve(t, router, http.MethodGet, "/admin/profile", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("profile: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var ws hospital.Workspace
	if err := json.NewDecoder(rr.Body).Decode(&ws); err != nil {
		t.Fatalf("decode workspace: %v", err)
	}
	if ws.Profile.Name != "Lotus Care Hospital" {
		t.Fatalf("unexpected profile %+v", ws.Profile)
	}

	if rr := serve(t, router, http.MethodGet, "/admin/doctors", token, nil); rr.Code != http.StatusOK {
		t.Fatalf("doctors: expected 200, got %d", rr.Code)
	}

	// Directory reads are open to every signed-in role.
	if rr := serve(t, router, http.MethodGet, "/patient/hospitals", token, nil); rr.Code != http.StatusOK {
		t.Fatalf("hospitals: expected 200, got %d", rr.Code)
	}
	if rr := serve(t, router, http.MethodGet, "/patient/hospitals/"+ws.ID, token, nil); rr.Code != http.StatusOK {
		t.Fatalf("hospital detail: expected 200, got %d", rr.Code)
	}
	if rr := serve(t, router, http.MethodGet, "/patient/hospitals/missing", token, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("missing hospital: expected 404, got %d", rr.Code)
	}

	rr = serve(t, router, http.MethodGet, "/patient/booking", token, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("booking as hospital: expected 403, got %d", rr.Code)
	}
	if msg := errorMessage(t, rr); msg != MsgPatientsOnly {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestRouterSignOutRevokesSession(t *testing.T) {
	router := newTestRouter(t)
	token := signIn(t, router, "/auth/signup", "leaver@example.com", "secret123")

	if rr := serve(t, router, http.MethodPost, "/auth/signout", token, nil); rr.Code != http.StatusNoContent {
		t.Fatalf("signout: expected 204, got %d", rr.Code)
	}
	if rr := serve(t, router, http.MethodGet, "/auth/me", token, nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("me after signout: expected 401, got %d", rr.Code)
	}
}

func TestBearerFromQuery(t *testing.T) {
	var got string
	handler := bearerFromQuery(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/notifications/stream?access_token=abc", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got != "Bearer abc" {
		t.Fatalf("expected query token promoted, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/notifications/stream?access_token=abc", nil)
	req.Header.Set("Authorization", "Bearer header")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got != "Bearer header" {
		t.Fatalf("expected header to win, got %q", got)
	}
}

type recordingForgetter struct{ ids []string }

func (f *recordingForgetter) Forget(id string) { f.ids = append(f.ids, id) }

func TestForgetOnSignOut(t *testing.T) {
	f := &recordingForgetter{}
	handler := forgetOnSignOut([]SessionForgetter{f})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/auth/signout", nil))
	if len(f.ids) != 0 {
		t.Fatalf("expected nothing forgotten without a session, got %v", f.ids)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/signout", nil)
	req = req.WithContext(session.WithSession(req.Context(), &session.Session{ID: "sess-1"}))
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if len(f.ids) != 1 || f.ids[0] != "sess-1" {
		t.Fatalf("expected sess-1 forgotten, got %v", f.ids)
	}
}
