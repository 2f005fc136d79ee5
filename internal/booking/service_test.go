package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediconnect/mediconnect-platform/internal/appointments"
	"github.com/mediconnect/mediconnect-platform/internal/directory"
	"github.com/mediconnect/mediconnect-platform/internal/session"
)

type stubDirectory struct {
	doctors []directory.Doctor
	err     error
}

func (s *stubDirectory) ListHospitals(context.Context) (*directory.HospitalListing, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &directory.HospitalListing{Hospitals: directory.SampleHospitals(), Sample: true}, nil
}

func (s *stubDirectory) ListDoctors(context.Context, *session.Session) ([]directory.Doctor, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.doctors, nil
}

type stubRecorder struct {
	calls []appointments.NewAppointment
	err   error
}

func (r *stubRecorder) Record(_ context.Context, in appointments.NewAppointment) (*appointments.Appointment, error) {
	r.calls = append(r.calls, in)
	if r.err != nil {
		return nil, r.err
	}
	return &appointments.Appointment{ID: "appt-1", Status: appointments.StatusBooked}, nil
}

func testDoctors() []directory.Doctor {
	return []directory.Doctor{
		{ID: "d-1", Name: "Dr. Kavya Narayanan", Specialization: "Cardiology", HospitalName: "Lotus Care Hospital"},
		{ID: "d-2", Name: "Dr. Shankar Iyer", Specialization: "Neurology", HospitalName: "Sunrise Multispeciality"},
		{ID: "d-3", Name: "Dr. Meera Rahul", Specialization: "OB-GYN", HospitalName: "Lotus Care Hospital"},
	}
}

func patientSession() *session.Session {
	return &session.Session{ID: "sess-1", UserID: "user-1", Email: "p@example.com", Role: session.RolePatient}
}

func reachReview(t *testing.T, svc *Service, sess *session.Session) {
	t.Helper()
	ctx := context.Background()
	_, err := svc.Update(ctx, sess, DraftPatch{Hospital: strptr("Lotus Care Hospital")})
	require.NoError(t, err)
	_, err = svc.Continue(ctx, sess)
	require.NoError(t, err)
	_, err = svc.Update(ctx, sess, DraftPatch{Doctor: strptr("Dr. Meera Rahul")})
	require.NoError(t, err)
	_, err = svc.Continue(ctx, sess)
	require.NoError(t, err)
	_, err = svc.Update(ctx, sess, DraftPatch{Date: strptr("2025-12-20"), Slot: strptr("09:00 AM")})
	require.NoError(t, err)
	view, err := svc.Continue(ctx, sess)
	require.NoError(t, err)
	require.Equal(t, StepReview, view.Step)
}

func TestDoctorOptionsMatchHospital(t *testing.T) {
	opts := DoctorOptions(testDoctors(), "Lotus Care Hospital")
	require.Len(t, opts, 2)
	assert.Equal(t, "d-1", opts[0].ID)
	assert.Equal(t, "d-3", opts[1].ID)

	assert.Len(t, DoctorOptions(testDoctors(), ""), 3)
}

func TestServiceViewCarriesStepOptions(t *testing.T) {
	svc := NewService(ServiceConfig{Directory: &stubDirectory{doctors: testDoctors()}})
	sess := patientSession()
	ctx := context.Background()

	view, err := svc.State(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, StepSelectHospital, view.Step)
	assert.Equal(t, []string{"Lotus Care Hospital", "Sunrise Multispeciality", "Riverfront Health"}, view.HospitalOptions)

	view, err = svc.StartWithDoctor(ctx, sess, "Sunrise Multispeciality", "Dr. Shankar Iyer")
	require.NoError(t, err)
	assert.Equal(t, StepSelectDoctor, view.Step)
	require.Len(t, view.DoctorOptions, 1)
	assert.True(t, view.CanContinue)

	_, err = svc.Continue(ctx, sess)
	require.NoError(t, err)
	view, err = svc.State(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, Slots, view.Slots)
}

func TestServiceConfirmWithoutRecorder(t *testing.T) {
	svc := NewService(ServiceConfig{Directory: &stubDirectory{doctors: testDoctors()}})
	sess := patientSession()
	reachReview(t, svc, sess)

	c, view, err := svc.Confirm(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, "Appointment booked!", c.Message)
	assert.Empty(t, c.AppointmentID)
	assert.Equal(t, StepSelectHospital, view.Step)
	assert.Equal(t, Draft{}, view.Draft)
}

func TestServiceConfirmRecords(t *testing.T) {
	rec := &stubRecorder{}
	svc := NewService(ServiceConfig{Directory: &stubDirectory{doctors: testDoctors()}, Recorder: rec})
	sess := patientSession()
	reachReview(t, svc, sess)

	c, _, err := svc.Confirm(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, "appt-1", c.AppointmentID)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, "user-1", rec.calls[0].PatientID)
	assert.Equal(t, "09:00 AM", rec.calls[0].Slot)
}

func TestServiceConfirmRecorderFailureKeepsDraft(t *testing.T) {
	rec := &stubRecorder{err: errors.New("write timeout")}
	svc := NewService(ServiceConfig{Directory: &stubDirectory{doctors: testDoctors()}, Recorder: rec})
	sess := patientSession()
	reachReview(t, svc, sess)

	_, _, err := svc.Confirm(context.Background(), sess)
	require.Error(t, err)

	view, err := svc.State(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, StepReview, view.Step)
	assert.Equal(t, "Dr. Meera Rahul", view.Draft.Doctor)
}

func TestServiceRequiresSession(t *testing.T) {
	svc := NewService(ServiceConfig{Directory: &stubDirectory{}})
	_, err := svc.State(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoSession)
}

func doRequest(t *testing.T, fn http.HandlerFunc, method, path string, body any, sess *session.Session) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if sess != nil {
		req = req.WithContext(session.WithSession(req.Context(), sess))
	}
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func TestHandlerFlow(t *testing.T) {
	h := NewHandler(NewService(ServiceConfig{Directory: &stubDirectory{doctors: testDoctors()}}), nil)
	sess := patientSession()

	rec := doRequest(t, h.Continue, http.MethodPost, "/patient/booking/continue", nil, sess)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), MsgStepIncomplete)

	rec = doRequest(t, h.UpdateDraft, http.MethodPatch, "/patient/booking/draft", map[string]string{"slot": "07:00 AM"}, sess)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), MsgUnknownSlot)

	rec = doRequest(t, h.Start, http.MethodPost, "/patient/booking/start", StartRequest{Hospital: "Lotus Care Hospital", Doctor: "Dr. Kavya Narayanan"}, sess)
	require.Equal(t, http.StatusOK, rec.Code)
	var view View
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	assert.Equal(t, StepSelectDoctor, view.Step)
	assert.Len(t, view.DoctorOptions, 2)

	rec = doRequest(t, h.Confirm, http.MethodPost, "/patient/booking/confirm", nil, sess)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), MsgNotReviewing)

	rec = doRequest(t, h.Back, http.MethodPost, "/patient/booking/back", nil, sess)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, h.Discard, http.MethodDelete, "/patient/booking", nil, sess)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

type recordingNavigator struct {
	selected map[string]string
}

func (n *recordingNavigator) Select(sessionID, view string) error {
	n.selected[sessionID] = view
	return nil
}

func TestHandlerStartOpensBookingTab(t *testing.T) {
	nav := &recordingNavigator{selected: map[string]string{}}
	h := NewHandler(NewService(ServiceConfig{Directory: &stubDirectory{doctors: testDoctors()}}), nil).WithNavigator(nav)
	sess := patientSession()

	rec := doRequest(t, h.Start, http.MethodPost, "/patient/booking/start", StartRequest{Hospital: "Lotus Care Hospital", Doctor: "Dr. Meera Rahul"}, sess)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, NavTab, nav.selected[sess.ID])

	other := &session.Session{ID: "sess-2", Role: session.RolePatient}
	rec = doRequest(t, h.Start, http.MethodPost, "/patient/booking/start", "not an object", other)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotContains(t, nav.selected, "sess-2")
}

func TestHandlerConfirm(t *testing.T) {
	svc := NewService(ServiceConfig{Directory: &stubDirectory{doctors: testDoctors()}})
	h := NewHandler(svc, nil)
	sess := patientSession()
	reachReview(t, svc, sess)

	rec := doRequest(t, h.Confirm, http.MethodPost, "/patient/booking/confirm", nil, sess)
	require.Equal(t, http.StatusOK, rec.Code)
	var body ConfirmResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Appointment booked!", body.Confirmation.Message)
	assert.False(t, body.Persisted)
	assert.Equal(t, StepSelectHospital, body.Wizard.Step)
}

func TestHandlerDirectoryFailure(t *testing.T) {
	h := NewHandler(NewService(ServiceConfig{Directory: &stubDirectory{err: errors.New("timeout")}}), nil)
	rec := doRequest(t, h.Get, http.MethodGet, "/patient/booking", nil, patientSession())
	require.Equal(t, http.StatusOK, rec.Code)
	var view View
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	assert.Equal(t, StepSelectHospital, view.Step)
	assert.Equal(t, MsgOptionsFailed, view.OptionsError)
	assert.Empty(t, view.HospitalOptions)
}

func TestContinueReportsCommittedStepWhenOptionsFail(t *testing.T) {
	dir := &stubDirectory{doctors: testDoctors()}
	svc := NewService(ServiceConfig{Directory: dir})
	sess := patientSession()
	ctx := context.Background()

	_, err := svc.Update(ctx, sess, DraftPatch{Hospital: strptr("Lotus Care Hospital")})
	require.NoError(t, err)

	dir.err = errors.New("store down")
	view, err := svc.Continue(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, StepSelectDoctor, view.Step)
	assert.Equal(t, MsgOptionsFailed, view.OptionsError)
	assert.Empty(t, view.DoctorOptions)

	dir.err = nil
	view, err = svc.State(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, StepSelectDoctor, view.Step)
	assert.Empty(t, view.OptionsError)
	assert.Len(t, view.DoctorOptions, 2)
}

func TestHandlerWithoutSession(t *testing.T) {
	h := NewHandler(NewService(ServiceConfig{Directory: &stubDirectory{}}), nil)
	rec := doRequest(t, h.Get, http.MethodGet, "/patient/booking", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
