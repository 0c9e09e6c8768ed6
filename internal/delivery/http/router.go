package http

import (
	"net/http"

	"clinic-frontdesk/internal/delivery/http/handler"
	"clinic-frontdesk/internal/delivery/http/middleware"

	"github.com/gorilla/mux"
)

type Router struct {
	router             *mux.Router
	patientHandler     *handler.PatientHandler
	appointmentHandler *handler.AppointmentHandler
	requestLogger      *middleware.RequestLogger
	metricsHandler     http.Handler
}

func NewRouter(
	patientHandler *handler.PatientHandler,
	appointmentHandler *handler.AppointmentHandler,
	requestLogger *middleware.RequestLogger,
	metricsHandler http.Handler,
) *Router {
	return &Router{
		router:             mux.NewRouter(),
		patientHandler:     patientHandler,
		appointmentHandler: appointmentHandler,
		requestLogger:      requestLogger,
		metricsHandler:     metricsHandler,
	}
}

func (r *Router) Setup() *mux.Router {
	r.router.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)
	if r.metricsHandler != nil {
		r.router.Handle("/metrics", r.metricsHandler).Methods(http.MethodGet)
	}

	// API versioning
	api := r.router.PathPrefix("/api/v1").Subrouter()
	api.Use(r.requestLogger.Handle)

	api.HandleFunc("/health", r.healthCheck).Methods(http.MethodGet)

	// Patients; literal paths are registered before {nationalId}
	patients := api.PathPrefix("/patients").Subrouter()
	patients.HandleFunc("", r.patientHandler.RegisterPatient).Methods(http.MethodPost)
	patients.HandleFunc("/search", r.patientHandler.SearchPatients).Methods(http.MethodGet)
	patients.HandleFunc("/{nationalId}", r.patientHandler.GetPatient).Methods(http.MethodGet)
	patients.HandleFunc("/{nationalId}", r.patientHandler.DeletePatient).Methods(http.MethodDelete)
	patients.HandleFunc("/{nationalId}/visits", r.patientHandler.GetVisits).Methods(http.MethodGet)
	patients.HandleFunc("/{nationalId}/visits/latest", r.patientHandler.GetLatestVisit).Methods(http.MethodGet)

	// Appointments
	appointments := api.PathPrefix("/appointments").Subrouter()
	appointments.HandleFunc("", r.appointmentHandler.CreateAppointment).Methods(http.MethodPost)
	appointments.HandleFunc("/check", r.appointmentHandler.CheckAvailability).Methods(http.MethodGet)
	appointments.HandleFunc("/search", r.appointmentHandler.SearchAppointments).Methods(http.MethodGet)
	appointments.HandleFunc("/date/{date}", r.appointmentHandler.ListByDate).Methods(http.MethodGet)
	appointments.HandleFunc("/patient/{patientRef}", r.appointmentHandler.GetPatientAppointments).Methods(http.MethodGet)
	appointments.HandleFunc("/slots/{date}", r.appointmentHandler.GetDaySchedule).Methods(http.MethodGet)
	appointments.HandleFunc("/{id}/cancel", r.appointmentHandler.CancelAppointment).Methods(http.MethodPost)
	appointments.HandleFunc("/{id}/complete", r.appointmentHandler.CompleteAppointment).Methods(http.MethodPost)

	return r.router
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status": "ok"}`))
}
