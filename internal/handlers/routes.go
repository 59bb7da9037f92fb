package handlers

import (
	"media-hub/internal/middleware"

	"github.com/gorilla/mux"
)

// Router builds the API router. Request metrics are recorded per route
// template when metrics are enabled.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()
	if h.config.MetricsEnabled {
		r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
		r.Handle("/metrics", h.MetricsHandler()).Methods("GET")
	}

	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/login", h.Login).Methods("POST")

	api.HandleFunc("/media", h.ListMedia).Methods("GET")
	api.HandleFunc("/media", h.UploadMedia).Methods("POST")
	api.HandleFunc("/media/{id:[0-9]+}", h.GetMedia).Methods("GET")
	api.HandleFunc("/media/{id:[0-9]+}", h.DeleteMedia).Methods("DELETE")

	api.HandleFunc("/user", h.GetUser).Methods("GET")
	api.HandleFunc("/user", h.UpdateUser).Methods("PUT")

	api.HandleFunc("/previews/{scope}/{slot}", h.CreatePreview).Methods("POST")
	api.HandleFunc("/previews/{scope}/{slot}", h.ReleasePreview).Methods("DELETE")
	api.HandleFunc("/previews/{scope}", h.ReleasePreviewScope).Methods("DELETE")
	api.HandleFunc("/blob/{id}", h.ServeBlob).Methods("GET", "HEAD")

	return r
}
