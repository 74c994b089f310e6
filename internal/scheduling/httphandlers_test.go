package scheduling

import (
	"bytes"
	"clinic-backend/internal/auth"
	"clinic-backend/internal/mock"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type emptyWriter struct{}

func (e emptyWriter) Write(p []byte) (n int, err error) {
	return 0, nil
}

var logger = log.New(&emptyWriter{}, "", log.LstdFlags)

type mockAuthorizer struct {
	mockValidateToken        func(ctx context.Context, token string) (*auth.User, error)
	mockRefreshTokens        func(ctx context.Context, tokens auth.Tokens) (*auth.Tokens, error)
	mockGetAuthenticatedUser func(ctx context.Context) (auth.User, error)
	mockHasPermission        func(ctx context.Context, user auth.User, permission auth.Permission) (bool, error)
}

func (m mockAuthorizer) ValidateToken(ctx context.Context, token string) (*auth.User, error) {
	return m.mockValidateToken(ctx, token)
}

func (m mockAuthorizer) RefreshTokens(ctx context.Context, tokens auth.Tokens) (*auth.Tokens, error) {
	return m.mockRefreshTokens(ctx, tokens)
}

func (m mockAuthorizer) GetAuthenticatedUser(ctx context.Context) (auth.User, error) {
	return m.mockGetAuthenticatedUser(ctx)
}

func (m mockAuthorizer) HasPermission(ctx context.Context, user auth.User, permission auth.Permission) (bool, error) {
	return m.mockHasPermission(ctx, user, permission)
}

func mockStaffUser() *auth.User {
	return &auth.User{
		ID:       1,
		UUID:     uuid.New(),
		Email:    "reception@clinic.local",
		FullName: "Front Desk",
		Role:     "receptionist",
	}
}

// grantingAuthorizer authenticates every request and grants every permission.
func grantingAuthorizer() mockAuthorizer {
	return mockAuthorizer{
		mockValidateToken: func(ctx context.Context, token string) (*auth.User, error) {
			return mockStaffUser(), nil
		},
		mockGetAuthenticatedUser: func(ctx context.Context) (auth.User, error) {
			return *mockStaffUser(), nil
		},
		mockHasPermission: func(ctx context.Context, user auth.User, permission auth.Permission) (bool, error) {
			return true, nil
		},
	}
}

func appointmentColumns() []string {
	return []string{"id", "patient_id", "appointment_date", "appointment_time", "order_number", "status", "notes", "created_at", "updated_at", "patient_name", "patient_phone"}
}

func returningColumns() []string {
	return []string{"id", "patient_id", "appointment_date", "appointment_time", "order_number", "status", "notes", "created_at", "updated_at"}
}

func appointmentRow(id int64, patientID int64, date time.Time, timeOfDay interface{}, orderNumber int32, status Status) *sqlmock.Rows {
	return sqlmock.NewRows(appointmentColumns()).
		AddRow(id, patientID, date, timeOfDay, orderNumber, string(status), nil, time.Now(), time.Now(), "Jane Doe", "555-0100")
}

func returningRow(id int64, patientID int64, date time.Time, timeOfDay interface{}, orderNumber int32, status Status) *sqlmock.Rows {
	return sqlmock.NewRows(returningColumns()).
		AddRow(id, patientID, date, timeOfDay, orderNumber, string(status), nil, time.Now(), time.Now())
}

func withFindByIDResult(rows *sqlmock.Rows) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(findAppointmentByIDQuery)).WithArgs(sqlmock.AnyArg()).WillReturnRows(rows)
	}
}

func withFindByIDError() mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(findAppointmentByIDQuery)).WithArgs(sqlmock.AnyArg()).WillReturnError(sql.ErrConnDone)
	}
}

func withListByDateResult(rows *sqlmock.Rows) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(listAppointmentsByDateQuery)).WithArgs(sqlmock.AnyArg()).WillReturnRows(rows)
	}
}

func withInsertResult(rows *sqlmock.Rows) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(insertAppointmentQuery)).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(rows)
	}
}

func withInsertError(err error) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(insertAppointmentQuery)).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnError(err)
	}
}

func withUpdateResult(rows *sqlmock.Rows) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(updateAppointmentQuery)).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(rows)
	}
}

func withUpdateError(err error) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(updateAppointmentQuery)).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnError(err)
	}
}

func withCancelResult(rows *sqlmock.Rows) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(cancelAppointmentQuery)).WithArgs(sqlmock.AnyArg()).WillReturnRows(rows)
	}
}

func withSettingResult(rows *sqlmock.Rows) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta("SELECT id, key, value, description, created_at, updated_at FROM settings WHERE key = $1")).
			WithArgs(sqlmock.AnyArg()).WillReturnRows(rows)
	}
}

func withCountForDateResult(count int) mock.DBResultOption {
	return func(dbConn mock.Connection) {
		dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(countAppointmentsForDateQuery)).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(count))
	}
}

func settingRows(value string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "key", "value", "description", "created_at", "updated_at"}).
		AddRow(1, "max_patients_per_day", value, nil, time.Now(), time.Now())
}

func emptySettingRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "key", "value", "description", "created_at", "updated_at"})
}

// setupRouter builds the scheduling routes over the given mock connection.
func setupRouter(dbConn mock.Connection, dbMockOptions ...mock.DBResultOption) *chi.Mux {
	mock.MockDBResults(dbConn, dbMockOptions...)
	router := chi.NewRouter()
	Setup(router, logger, grantingAuthorizer(), dbConn)
	return router
}

func doRequest(t *testing.T, router *chi.Mux, method string, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewBuffer(encoded)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(method, target, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Add("Authorization", "Bearer testing")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func futureDate() string {
	return time.Now().UTC().AddDate(0, 0, 7).Format(DateLayout)
}

func TestGetAppointment(t *testing.T) {
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name          string
		target        string
		dbMockOptions []mock.DBResultOption
		want          int
	}{
		{
			name:          "should return the appointment",
			target:        "/api/v1/appointments/1",
			dbMockOptions: []mock.DBResultOption{withFindByIDResult(appointmentRow(1, 1, date, "09:00:00", 1, StatusWaiting))},
			want:          http.StatusOK,
		},
		{
			name:          "should return 404 for an unknown appointment",
			target:        "/api/v1/appointments/99",
			dbMockOptions: []mock.DBResultOption{withFindByIDResult(sqlmock.NewRows(appointmentColumns()))},
			want:          http.StatusNotFound,
		},
		{
			name:   "should return 400 for an invalid identifier",
			target: "/api/v1/appointments/abc",
			want:   http.StatusBadRequest,
		},
		{
			name:          "should return 500 when the store fails",
			target:        "/api/v1/appointments/1",
			dbMockOptions: []mock.DBResultOption{withFindByIDError()},
			want:          http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			router := setupRouter(mock.MustCreateConnectionMock(), tt.dbMockOptions...)
			recorder := doRequest(t, router, http.MethodGet, tt.target, nil)
			if recorder.Code != tt.want {
				t.Errorf("response status is incorrect, got %d, want %d", recorder.Code, tt.want)
			}
		})
	}
}

func TestGetAppointmentsByDate(t *testing.T) {
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name          string
		target        string
		dbMockOptions []mock.DBResultOption
		want          int
	}{
		{
			name:   "should return the daily queue ordered by order number",
			target: "/api/v1/appointments/schedule/2025/06/01",
			dbMockOptions: []mock.DBResultOption{withListByDateResult(appointmentRow(1, 1, date, "09:00:00", 1, StatusWaiting).
				AddRow(2, 2, date, "09:30:00", 2, string(StatusConfirmed), nil, time.Now(), time.Now(), "John Doe", "555-0101"))},
			want: http.StatusOK,
		},
		{
			name:   "should return 400 for an invalid date",
			target: "/api/v1/appointments/schedule/2025/13/01",
			want:   http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			router := setupRouter(mock.MustCreateConnectionMock(), tt.dbMockOptions...)
			recorder := doRequest(t, router, http.MethodGet, tt.target, nil)
			if recorder.Code != tt.want {
				t.Errorf("response status is incorrect, got %d, want %d", recorder.Code, tt.want)
			}
		})
	}
}

func TestListAppointments(t *testing.T) {
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	listQuery := listAppointmentsBaseQuery + " ORDER BY a.appointment_date, a.order_number LIMIT $1 OFFSET $2"
	filteredQuery := listAppointmentsBaseQuery + " WHERE a.appointment_date = $1 AND a.status = $2 ORDER BY a.appointment_date, a.order_number LIMIT $3 OFFSET $4"
	tests := []struct {
		name          string
		target        string
		dbMockOptions []mock.DBResultOption
		want          int
		wantTotal     int64
	}{
		{
			name:   "should list appointments with default pagination",
			target: "/api/v1/appointments",
			dbMockOptions: []mock.DBResultOption{
				func(dbConn mock.Connection) {
					dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(listQuery)).
						WithArgs(10, 0).
						WillReturnRows(appointmentRow(1, 1, date, "09:00:00", 1, StatusWaiting))
					dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(countAppointmentsBaseQuery)).
						WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
				},
			},
			want:      http.StatusOK,
			wantTotal: 1,
		},
		{
			name:   "should list appointments filtered by date and status",
			target: "/api/v1/appointments?date=2025-06-01&status=waiting&page=2&limit=5",
			dbMockOptions: []mock.DBResultOption{
				func(dbConn mock.Connection) {
					dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(filteredQuery)).
						WithArgs("2025-06-01", "waiting", 5, 5).
						WillReturnRows(sqlmock.NewRows(appointmentColumns()))
					dbConn.SQLMock.ExpectQuery(regexp.QuoteMeta(countAppointmentsBaseQuery+" WHERE a.appointment_date = $1 AND a.status = $2")).
						WithArgs("2025-06-01", "waiting").
						WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
				},
			},
			want:      http.StatusOK,
			wantTotal: 12,
		},
		{
			name:   "should return 400 for an unknown status filter",
			target: "/api/v1/appointments?status=sleeping",
			want:   http.StatusBadRequest,
		},
		{
			name:   "should return 400 for an invalid page",
			target: "/api/v1/appointments?page=0",
			want:   http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			router := setupRouter(mock.MustCreateConnectionMock(), tt.dbMockOptions...)
			recorder := doRequest(t, router, http.MethodGet, tt.target, nil)
			if recorder.Code != tt.want {
				t.Errorf("response status is incorrect, got %d, want %d", recorder.Code, tt.want)
			}
			if tt.want != http.StatusOK {
				return
			}
			page := new(Page)
			if err := json.NewDecoder(recorder.Body).Decode(page); err != nil {
				t.Fatal(err)
			}
			if page.Pagination.Total != tt.wantTotal {
				t.Errorf("pagination total is incorrect, got %d, want %d", page.Pagination.Total, tt.wantTotal)
			}
		})
	}
}

func TestCreateAppointment(t *testing.T) {
	date := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	timeOfDay := "09:00:00"
	tests := []struct {
		name          string
		body          interface{}
		dbMockOptions []mock.DBResultOption
		want          int
	}{
		{
			name:          "should create the appointment in waiting status",
			body:          CreateRequest{PatientID: 1, Date: futureDate(), Time: &timeOfDay},
			dbMockOptions: []mock.DBResultOption{withInsertResult(returningRow(1, 1, date, "09:00:00", 1, StatusWaiting))},
			want:          http.StatusCreated,
		},
		{
			name: "should reject a backdated appointment",
			body: CreateRequest{PatientID: 1, Date: "2020-01-01"},
			want: http.StatusBadRequest,
		},
		{
			name: "should reject a missing patient id",
			body: CreateRequest{Date: futureDate()},
			want: http.StatusBadRequest,
		},
		{
			name:          "should return 409 when the daily capacity is reached",
			body:          CreateRequest{PatientID: 1, Date: futureDate()},
			dbMockOptions: []mock.DBResultOption{withInsertError(&pq.Error{Code: "P0001", Message: "daily appointment capacity reached"})},
			want:          http.StatusConflict,
		},
		{
			name:          "should return 409 when the patient is already booked on the date",
			body:          CreateRequest{PatientID: 1, Date: futureDate(), Time: &timeOfDay},
			dbMockOptions: []mock.DBResultOption{withInsertError(&pq.Error{Code: "23505", Constraint: uqPatientDateConstraint})},
			want:          http.StatusConflict,
		},
		{
			name:          "should return 409 when the time slot is already taken",
			body:          CreateRequest{PatientID: 2, Date: futureDate(), Time: &timeOfDay},
			dbMockOptions: []mock.DBResultOption{withInsertError(&pq.Error{Code: "23505", Constraint: uqDateTimeConstraint})},
			want:          http.StatusConflict,
		},
		{
			name:          "should return 404 when the patient does not exist",
			body:          CreateRequest{PatientID: 999, Date: futureDate()},
			dbMockOptions: []mock.DBResultOption{withInsertError(&pq.Error{Code: "23503", Constraint: fkPatientConstraint})},
			want:          http.StatusNotFound,
		},
		{
			name:          "should return 500 when the store fails",
			body:          CreateRequest{PatientID: 1, Date: futureDate()},
			dbMockOptions: []mock.DBResultOption{withInsertError(sql.ErrConnDone)},
			want:          http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			router := setupRouter(mock.MustCreateConnectionMock(), tt.dbMockOptions...)
			recorder := doRequest(t, router, http.MethodPost, "/api/v1/appointments", tt.body)
			if recorder.Code != tt.want {
				t.Errorf("response status is incorrect, got %d, want %d", recorder.Code, tt.want)
			}
			if tt.want != http.StatusCreated {
				return
			}
			created := new(Appointment)
			if err := json.NewDecoder(recorder.Body).Decode(created); err != nil {
				t.Fatal(err)
			}
			if created.Status != StatusWaiting {
				t.Errorf("created status is incorrect, got %s, want %s", created.Status, StatusWaiting)
			}
			if created.OrderNumber != 1 {
				t.Errorf("order number is incorrect, got %d, want 1", created.OrderNumber)
			}
		})
	}
}

func TestUpdateAppointment(t *testing.T) {
	date := time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC)
	newTime := "10:30:00"
	newDate := futureDate()
	confirmed := StatusConfirmed
	tests := []struct {
		name          string
		target        string
		body          interface{}
		dbMockOptions []mock.DBResultOption
		want          int
		wantOrder     int32
	}{
		{
			name:          "should apply a partial update",
			target:        "/api/v1/appointments/1",
			body:          UpdateRequest{Time: &newTime, Status: &confirmed},
			dbMockOptions: []mock.DBResultOption{withUpdateResult(returningRow(1, 1, date, newTime, 1, StatusConfirmed))},
			want:          http.StatusOK,
			wantOrder:     1,
		},
		{
			name:   "should re-enqueue the appointment when moved to another date",
			target: "/api/v1/appointments/1",
			body:   UpdateRequest{Date: &newDate},
			dbMockOptions: []mock.DBResultOption{
				withUpdateError(&pq.Error{Code: "23505", Constraint: uqDateOrderConstraint}),
				withUpdateResult(returningRow(1, 1, date, "09:00:00", 3, StatusWaiting)),
			},
			want:      http.StatusOK,
			wantOrder: 3,
		},
		{
			name:          "should return 409 when the target day is full",
			target:        "/api/v1/appointments/1",
			body:          UpdateRequest{Date: &newDate},
			dbMockOptions: []mock.DBResultOption{withUpdateError(&pq.Error{Code: "P0001", Message: "daily appointment capacity reached"})},
			want:          http.StatusConflict,
		},
		{
			name:   "should reject an empty update",
			target: "/api/v1/appointments/1",
			body:   UpdateRequest{},
			want:   http.StatusBadRequest,
		},
		{
			name:   "should reject a backdated date change",
			target: "/api/v1/appointments/1",
			body:   map[string]string{"appointment_date": "2020-01-01"},
			want:   http.StatusBadRequest,
		},
		{
			name:          "should return 404 for an unknown appointment",
			target:        "/api/v1/appointments/99",
			body:          UpdateRequest{Status: &confirmed},
			dbMockOptions: []mock.DBResultOption{withUpdateResult(sqlmock.NewRows(returningColumns()))},
			want:          http.StatusNotFound,
		},
		{
			name:          "should return 409 when the new slot is already taken",
			target:        "/api/v1/appointments/1",
			body:          UpdateRequest{Date: &newDate, Time: &newTime},
			dbMockOptions: []mock.DBResultOption{withUpdateError(&pq.Error{Code: "23505", Constraint: uqDateTimeConstraint})},
			want:          http.StatusConflict,
		},
		{
			name:          "should return 409 when the patient is already booked on the new date",
			target:        "/api/v1/appointments/1",
			body:          UpdateRequest{Date: &newDate},
			dbMockOptions: []mock.DBResultOption{withUpdateError(&pq.Error{Code: "23505", Constraint: uqPatientDateConstraint})},
			want:          http.StatusConflict,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			router := setupRouter(mock.MustCreateConnectionMock(), tt.dbMockOptions...)
			recorder := doRequest(t, router, http.MethodPut, tt.target, tt.body)
			if recorder.Code != tt.want {
				t.Errorf("response status is incorrect, got %d, want %d", recorder.Code, tt.want)
			}
			if tt.want != http.StatusOK {
				return
			}
			updated := new(Appointment)
			if err := json.NewDecoder(recorder.Body).Decode(updated); err != nil {
				t.Fatal(err)
			}
			if updated.OrderNumber != tt.wantOrder {
				t.Errorf("order number is incorrect, got %d, want %d", updated.OrderNumber, tt.wantOrder)
			}
		})
	}
}

func TestCancelAppointment(t *testing.T) {
	date := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	t.Run("should cancel the appointment and succeed again on a repeated call", func(t *testing.T) {
		dbConn := mock.MustCreateConnectionMock()
		router := setupRouter(dbConn,
			withCancelResult(returningRow(1, 1, date, "09:00:00", 1, StatusCancelled)),
			withCancelResult(returningRow(1, 1, date, "09:00:00", 1, StatusCancelled)),
		)
		for call := 0; call < 2; call++ {
			recorder := doRequest(t, router, http.MethodPatch, "/api/v1/appointments/1/cancel", nil)
			if recorder.Code != http.StatusOK {
				t.Fatalf("call %d: response status is incorrect, got %d, want %d", call+1, recorder.Code, http.StatusOK)
			}
			cancelled := new(Appointment)
			if err := json.NewDecoder(recorder.Body).Decode(cancelled); err != nil {
				t.Fatal(err)
			}
			if cancelled.Status != StatusCancelled {
				t.Errorf("call %d: status is incorrect, got %s, want %s", call+1, cancelled.Status, StatusCancelled)
			}
		}
	})
	t.Run("should return 404 for an unknown appointment", func(t *testing.T) {
		router := setupRouter(mock.MustCreateConnectionMock(), withCancelResult(sqlmock.NewRows(returningColumns())))
		recorder := doRequest(t, router, http.MethodPatch, "/api/v1/appointments/99/cancel", nil)
		if recorder.Code != http.StatusNotFound {
			t.Errorf("response status is incorrect, got %d, want %d", recorder.Code, http.StatusNotFound)
		}
	})
}

func TestGetCapacitySummary(t *testing.T) {
	tests := []struct {
		name          string
		target        string
		dbMockOptions []mock.DBResultOption
		want          int
		wantSummary   *CapacitySummary
	}{
		{
			name:   "should report the remaining slots",
			target: "/api/v1/appointments/capacity/2025/06/01",
			dbMockOptions: []mock.DBResultOption{
				withSettingResult(settingRows("40")),
				withCountForDateResult(12),
			},
			want:        http.StatusOK,
			wantSummary: &CapacitySummary{Date: "2025-06-01", MaxPatientsPerDay: 40, CurrentCount: 12, RemainingSlots: 28, AvgExaminationMinutes: 30},
		},
		{
			name:   "should fall back to the default capacity when unset",
			target: "/api/v1/appointments/capacity/2025/06/01",
			dbMockOptions: []mock.DBResultOption{
				withSettingResult(emptySettingRows()),
				withCountForDateResult(0),
			},
			want:        http.StatusOK,
			wantSummary: &CapacitySummary{Date: "2025-06-01", MaxPatientsPerDay: 40, CurrentCount: 0, RemainingSlots: 40, AvgExaminationMinutes: 30},
		},
		{
			name:   "should never report negative remaining slots",
			target: "/api/v1/appointments/capacity/2025/06/01",
			dbMockOptions: []mock.DBResultOption{
				withSettingResult(settingRows("10")),
				withCountForDateResult(14),
			},
			want:        http.StatusOK,
			wantSummary: &CapacitySummary{Date: "2025-06-01", MaxPatientsPerDay: 10, CurrentCount: 14, RemainingSlots: 0, AvgExaminationMinutes: 30},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			router := setupRouter(mock.MustCreateConnectionMock(), tt.dbMockOptions...)
			recorder := doRequest(t, router, http.MethodGet, tt.target, nil)
			if recorder.Code != tt.want {
				t.Errorf("response status is incorrect, got %d, want %d", recorder.Code, tt.want)
			}
			summary := new(CapacitySummary)
			if err := json.NewDecoder(recorder.Body).Decode(summary); err != nil {
				t.Fatal(err)
			}
			if *summary != *tt.wantSummary {
				t.Errorf("summary is incorrect, got %+v, want %+v", summary, tt.wantSummary)
			}
		})
	}
}

// TestDailyQueueScenario walks the documented capacity scenario: with a limit of two, the
// third booking of the day is rejected, and cancelling does not free the slot because the
// capacity count includes cancelled appointments.
func TestDailyQueueScenario(t *testing.T) {
	instant := time.Now().UTC().AddDate(0, 0, 30)
	date := time.Date(instant.Year(), instant.Month(), instant.Day(), 0, 0, 0, 0, time.UTC)
	day := date.Format(DateLayout)
	capacityReached := &pq.Error{Code: "P0001", Message: fmt.Sprintf("daily appointment capacity reached for %s", day)}

	timeOne := "09:00:00"
	timeTwo := "09:30:00"
	timeThree := "10:00:00"

	dbConn := mock.MustCreateConnectionMock()
	router := setupRouter(dbConn,
		withInsertResult(returningRow(1, 1, date, timeOne, 1, StatusWaiting)),
		withInsertResult(returningRow(2, 2, date, timeTwo, 2, StatusWaiting)),
		withInsertError(capacityReached),
		withCancelResult(returningRow(1, 1, date, timeOne, 1, StatusCancelled)),
		withInsertError(capacityReached),
	)

	creations := []struct {
		patientID int64
		timeOfDay string
		want      int
		wantOrder int32
	}{
		{patientID: 1, timeOfDay: timeOne, want: http.StatusCreated, wantOrder: 1},
		{patientID: 2, timeOfDay: timeTwo, want: http.StatusCreated, wantOrder: 2},
		{patientID: 3, timeOfDay: timeThree, want: http.StatusConflict},
	}
	for i, creation := range creations {
		timeOfDay := creation.timeOfDay
		recorder := doRequest(t, router, http.MethodPost, "/api/v1/appointments", CreateRequest{PatientID: creation.patientID, Date: day, Time: &timeOfDay})
		if recorder.Code != creation.want {
			t.Fatalf("creation %d: response status is incorrect, got %d, want %d", i+1, recorder.Code, creation.want)
		}
		if creation.want != http.StatusCreated {
			continue
		}
		created := new(Appointment)
		if err := json.NewDecoder(recorder.Body).Decode(created); err != nil {
			t.Fatal(err)
		}
		if created.OrderNumber != creation.wantOrder {
			t.Errorf("creation %d: order number is incorrect, got %d, want %d", i+1, created.OrderNumber, creation.wantOrder)
		}
	}

	// cancelling the first appointment does not free capacity
	if recorder := doRequest(t, router, http.MethodPatch, "/api/v1/appointments/1/cancel", nil); recorder.Code != http.StatusOK {
		t.Fatalf("cancel: response status is incorrect, got %d, want %d", recorder.Code, http.StatusOK)
	}
	timeOfDay := timeThree
	if recorder := doRequest(t, router, http.MethodPost, "/api/v1/appointments", CreateRequest{PatientID: 3, Date: day, Time: &timeOfDay}); recorder.Code != http.StatusConflict {
		t.Errorf("retry after cancel: response status is incorrect, got %d, want %d", recorder.Code, http.StatusConflict)
	}
}
