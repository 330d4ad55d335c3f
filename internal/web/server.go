package web

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/NikitaAzmov/exif-meta-telegrambot/internal/config"
	"github.com/NikitaAzmov/exif-meta-telegrambot/internal/log"
	"github.com/NikitaAzmov/exif-meta-telegrambot/internal/pipeline"
)

type Server struct {
	router   *mux.Router
	hub      *Hub
	version  string
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	logger   *log.Logger
}

// NewServer wires p's progress events into the websocket hub.
func NewServer(cfg *config.Config, p *pipeline.Pipeline) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		hub:      NewHub(),
		version:  "unknown",
		cfg:      cfg,
		pipeline: p,
		logger:   p.Logger(),
	}

	go s.hub.Run()
	p.SetProgressCallback(s.broadcastProgress)

	s.setupRoutes()
	return s
}

func (s *Server) SetVersion(v string) {
	s.version = v
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/version", s.handleVersion).Methods("GET")
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/inspect", s.handleInspect).Methods("POST")
	api.HandleFunc("/history", s.handleGetHistory).Methods("GET")
	api.HandleFunc("/ws", s.handleWebSocket)
}

// Handler exposes the router for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(addr string) error {
	if s.logger != nil {
		s.logger.Info("Starting exifbot HTTP API at " + addr)
	}
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) Close() {
	s.hub.Stop()
}
