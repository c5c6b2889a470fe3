package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/tipshjalpen/resultat/internal/logger"
	"github.com/tipshjalpen/resultat/pkg/results"
)

// Server exposes the repository queries as a read only JSON API
type Server struct {
	repo       *results.Repository
	httpServer *http.Server
}

func NewServer(repo *results.Repository) *Server {
	return &Server{repo: repo}
}

// Handler returns the routed, CORS wrapped handler
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/leagues", s.handleLeagues).Methods("GET")
	api.HandleFunc("/leagues/teams", s.handleLeagueTeams).Methods("GET")
	api.HandleFunc("/matches", s.handleMatches).Methods("GET")
	api.HandleFunc("/teams/{team}/matches", s.handleTeamMatches).Methods("GET")
	api.HandleFunc("/teams/{team}/results", s.handleTeamResults).Methods("GET")
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "no such endpoint")
	})

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(router)
}

// Start listens on addr until Stop is called
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	logger.Info("HTTP API listening on", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop() {
	if s.httpServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", err)
	}
}

type matchesResponse struct {
	League  string          `json:"league,omitempty"`
	Team    string          `json:"team,omitempty"`
	Before  string          `json:"before,omitempty"`
	Count   int             `json:"count"`
	Matches []results.Match `json:"matches"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

func (s *Server) handleLeagues(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"leagues": s.repo.Leagues()})
}

func (s *Server) handleLeagueTeams(w http.ResponseWriter, r *http.Request) {
	league := r.URL.Query().Get("league")
	if league == "" {
		writeError(w, http.StatusBadRequest, "league parameter is required")
		return
	}
	teams, err := s.repo.Teams(league)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"league": league, "teams": teams})
}

// handleMatches serves a whole season, or with ?before=YYYY-MM-DD the matches dated before it
func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	league := query.Get("league")
	if league == "" {
		writeError(w, http.StatusBadRequest, "league parameter is required")
		return
	}

	before := query.Get("before")
	var matches []results.Match
	var err error
	if before == "" {
		matches, err = s.repo.AllMatchesForSeason(league)
	} else {
		cutoff, perr := time.Parse(results.DateLayout, before)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "before must be YYYY-MM-DD")
			return
		}
		matches, err = s.repo.AllMatchesUpToDate(cutoff.Year(), int(cutoff.Month()), cutoff.Day(), league)
	}
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matchesResponse{League: league, Before: before, Count: len(matches), Matches: matches})
}

func (s *Server) handleTeamMatches(w http.ResponseWriter, r *http.Request) {
	team := mux.Vars(r)["team"]
	matches, err := s.repo.AllMatchesForTeam(team)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matchesResponse{Team: team, Count: len(matches), Matches: matches})
}

func (s *Server) handleTeamResults(w http.ResponseWriter, r *http.Request) {
	team := mux.Vars(r)["team"]
	matches, err := s.repo.ResultsForTeam(team)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matchesResponse{Team: team, Count: len(matches), Matches: matches})
}

// writeQueryError maps repository errors onto status codes
func writeQueryError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, results.ErrUnknownLeague):
		status = http.StatusNotFound
	case errors.Is(err, results.ErrMalformedRecord):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, results.ErrFileAccess):
		status = http.StatusInternalServerError
	}
	logger.Warn("Query failed", status, err)
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", err)
	}
}
