package scheduling

import (
	"clinic-backend/internal/apierrors"
	"clinic-backend/internal/auth"
	"clinic-backend/internal/database"
	"clinic-backend/internal/logging"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type httpHandler struct {
	authorizer auth.Authorizer
	service    Service
	logger     *log.Logger
}

// Setup setups the routes handled by scheduling context.
func Setup(router *chi.Mux, logger *log.Logger, authorizer auth.Authorizer, dbConn database.Connection) {
	handler := &httpHandler{logger: logger, authorizer: authorizer, service: NewService(dbConn)}

	router.Group(func(group chi.Router) {
		group.Use(auth.JwtValidator(authorizer))
		group.Use(auth.RequirePermission(authorizer, auth.ViewAppointments))
		group.Get("/api/v1/appointments", handler.ListAppointments)
		group.Get("/api/v1/appointments/schedule/{year}/{month}/{day}", handler.GetAppointmentsByDate)
		group.Get("/api/v1/appointments/capacity/{year}/{month}/{day}", handler.GetCapacitySummary)
		group.Get("/api/v1/appointments/{id}", handler.GetAppointment)
	})

	router.Group(func(group chi.Router) {
		group.Use(auth.JwtValidator(authorizer))
		group.Use(auth.RequirePermission(authorizer, auth.CreateAppointment))
		group.Post("/api/v1/appointments", handler.CreateAppointment)
	})

	router.Group(func(group chi.Router) {
		group.Use(auth.JwtValidator(authorizer))
		group.Use(auth.RequirePermission(authorizer, auth.UpdateAppointment))
		group.Put("/api/v1/appointments/{id}", handler.UpdateAppointment)
	})

	router.Group(func(group chi.Router) {
		group.Use(auth.JwtValidator(authorizer))
		group.Use(auth.RequirePermission(authorizer, auth.CancelAppointment))
		group.Patch("/api/v1/appointments/{id}/cancel", handler.CancelAppointment)
	})
}

// parseDateParameters parses the given parameters into a valid time.
func (h httpHandler) parseDateParameters(r *http.Request) (time.Time, error) {
	var zeroTime time.Time
	year := chi.URLParam(r, "year")
	month := chi.URLParam(r, "month")
	day := chi.URLParam(r, "day")
	if year == "" || month == "" || day == "" {
		return zeroTime, apierrors.NewAPIError(apierrors.WithDetail("invalid date reference"), apierrors.WithHTTPStatusCode(http.StatusNotFound))
	}
	concatDate := fmt.Sprintf("%s-%s-%s", year, month, day)
	date, err := time.Parse(DateLayout, concatDate)
	if err != nil {
		return zeroTime, apierrors.NewAPIError(apierrors.WithDetail("invalid date reference"), apierrors.WithHTTPStatusCode(http.StatusBadRequest))
	}
	return date, nil
}

// parseIDParameter parses the id parameter into a valid appointment id.
func (h httpHandler) parseIDParameter(r *http.Request) (int64, error) {
	idPar := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idPar, 10, 64)
	if err != nil || id < 1 {
		return 0, apierrors.NewAPIError(apierrors.WithDetail("invalid identifier"), apierrors.WithHTTPStatusCode(http.StatusBadRequest))
	}
	return id, nil
}

// parseFilterParameters parses the list query string into a Filter.
func (h httpHandler) parseFilterParameters(r *http.Request) (Filter, error) {
	var filter Filter
	query := r.URL.Query()
	if rawDate := query.Get("date"); rawDate != "" {
		date, err := time.Parse(DateLayout, rawDate)
		if err != nil {
			return filter, apierrors.NewValidationError("date", "invalid date - e.g. 2025-06-01")
		}
		filter.Date = &date
	}
	if rawStatus := query.Get("status"); rawStatus != "" {
		status, err := ParseStatus(rawStatus)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}
	if rawPatientID := query.Get("patient_id"); rawPatientID != "" {
		patientID, err := strconv.ParseInt(rawPatientID, 10, 64)
		if err != nil || patientID < 1 {
			return filter, apierrors.NewValidationError("patient_id", "invalid identifier")
		}
		filter.PatientID = &patientID
	}
	if rawPage := query.Get("page"); rawPage != "" {
		page, err := strconv.Atoi(rawPage)
		if err != nil || page < 1 {
			return filter, apierrors.NewValidationError("page", "must be a positive integer")
		}
		filter.Page = page
	}
	if rawLimit := query.Get("limit"); rawLimit != "" {
		limit, err := strconv.Atoi(rawLimit)
		if err != nil || limit < 1 {
			return filter, apierrors.NewValidationError("limit", "must be a positive integer")
		}
		filter.Limit = limit
	}
	return filter, nil
}

// writeError renders the given error, mapping each domain error to its distinct status code.
func (h httpHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	logging.PrintlnError(h.logger, fmt.Sprint(r.Context().Value(middleware.RequestIDKey), " ", err))
	switch v := err.(type) {
	case *apierrors.APIError:
		w.WriteHeader(v.HTTPStatusCode())
		_ = json.NewEncoder(w).Encode(v)
		return
	case *apierrors.ValidationError:
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(v)
		return
	}
	var domainErr Error
	if errors.As(err, &domainErr) {
		apiErr := apierrors.NewAPIError(apierrors.WithDetail(domainErr.Error()), apierrors.WithHTTPStatusCode(domainStatusCode(domainErr)))
		w.WriteHeader(apiErr.HTTPStatusCode())
		_ = json.NewEncoder(w).Encode(apiErr)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
}

// domainStatusCode maps a domain error to the status code the API contract requires.
func domainStatusCode(err Error) int {
	switch err {
	case ErrAppointmentNotFound, ErrPatientNotFound:
		return http.StatusNotFound
	case ErrCapacityExceeded, ErrDuplicatePatientBooking, ErrSlotTaken:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (h httpHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	filter, err := h.parseFilterParameters(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page, err := h.service.ListAppointments(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(page)
}

func (h httpHandler) GetAppointmentsByDate(w http.ResponseWriter, r *http.Request) {
	date, err := h.parseDateParameters(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	appointments, err := h.service.GetAppointmentsForDate(r.Context(), date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(appointments)
}

func (h httpHandler) GetCapacitySummary(w http.ResponseWriter, r *http.Request) {
	date, err := h.parseDateParameters(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	summary, err := h.service.GetCapacitySummary(r.Context(), date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(summary)
}

func (h httpHandler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := h.parseIDParameter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	appointment, err := h.service.GetAppointment(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(appointment)
}

func (h httpHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	request := new(CreateRequest)
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		logging.PrintlnError(h.logger, fmt.Sprint(r.Context().Value(middleware.RequestIDKey), " ", err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	created, err := h.service.CreateAppointment(r.Context(), *request)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(created)
}

func (h httpHandler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := h.parseIDParameter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	request := new(UpdateRequest)
	if err = json.NewDecoder(r.Body).Decode(request); err != nil {
		logging.PrintlnError(h.logger, fmt.Sprint(r.Context().Value(middleware.RequestIDKey), " ", err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	updated, err := h.service.UpdateAppointment(r.Context(), id, *request)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(updated)
}

func (h httpHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := h.parseIDParameter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	cancelled, err := h.service.CancelAppointment(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = json.NewEncoder(w).Encode(cancelled)
}
