package hydrokit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/reef-pi/hydrokit/controller/health"
	"github.com/reef-pi/hydrokit/controller/modules/ezo"
	"github.com/reef-pi/hydrokit/controller/telemetry"
)

// DeviceStatus is the API view of one board.
type DeviceStatus struct {
	Role    string   `json:"role"`
	Name    string   `json:"name"`
	Address byte     `json:"address"`
	Reading *float64 `json:"reading"`
	Error   string   `json:"error"`
}

// LastPublish describes the most recent publish attempt.
type LastPublish struct {
	Topic   string            `json:"topic"`
	Message telemetry.Message `json:"message"`
	At      time.Time         `json:"at"`
	Ago     string            `json:"ago,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// LoadAPI registers all REST endpoints.
func (m *Controller) LoadAPI(r *mux.Router) {
	sr := r.PathPrefix("/api").Subrouter()
	sr.HandleFunc("/devices", m.deviceList).Methods("GET")
	sr.HandleFunc("/devices/{role}", m.deviceOne).Methods("GET")
	sr.HandleFunc("/telemetry", m.telemetryLast).Methods("GET")
	sr.HandleFunc("/log", m.logList).Methods("GET")
	sr.HandleFunc("/health", m.healthCheck).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(m.metrics.Registry(), promhttp.HandlerOpts{})).Methods("GET")
}

// Serve runs the API on addr until ctx is cancelled.
func (m *Controller) Serve(ctx context.Context, addr string) error {
	r := mux.NewRouter()
	m.LoadAPI(r)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			slog.Warn("shutting down http server", "error", err)
		}
	}()
	slog.Info("serving api", "address", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (m *Controller) deviceList(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	json.NewEncoder(w).Encode(m.devState)
}

func (m *Controller) deviceOne(w http.ResponseWriter, r *http.Request) {
	role, err := ezo.ParseRole(mux.Vars(r)["role"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.devState {
		if d.Role == role.String() {
			json.NewEncoder(w).Encode(d)
			return
		}
	}
	http.Error(w, "device state not available", http.StatusServiceUnavailable)
}

func (m *Controller) telemetryLast(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	last := m.last
	m.mu.Unlock()
	if last.At.IsZero() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	last.Ago = humanize.Time(last.At)
	json.NewEncoder(w).Encode(last)
}

func (m *Controller) logList(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	json.NewEncoder(w).Encode(m.logs)
}

func (m *Controller) healthCheck(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	started := m.started
	m.mu.Unlock()
	s, err := health.Check(started)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(s)
}
