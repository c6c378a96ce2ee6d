package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"ukulele-tuner/pitch"
	"ukulele-tuner/tuner"
)

var flagAddr string

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", ":8080", "listen address")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Tunes from the default input and serves the state over HTTP",
	Long:  `Runs the tuner headless on the default capture device and exposes the latest state as JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

// stateStore keeps the latest emitted state for HTTP readers.
type stateStore struct {
	mu    sync.RWMutex
	state tuner.UiState
	seq   uint64
}

func (s *stateStore) Render(st tuner.UiState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	s.seq++
}

func (s *stateStore) get() (tuner.UiState, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.seq
}

type stateResponse struct {
	Session string        `json:"session"`
	Seq     uint64        `json:"seq"`
	State   tuner.UiState `json:"state"`
}

type tuningResponse struct {
	Name   string   `json:"name"`
	Notes  []string `json:"notes"`
	Active bool     `json:"active"`
}

type tuningRequest struct {
	Name string `json:"name"`
}

type server struct {
	session *tuner.Session
	store   *stateStore
}

func (s *server) router() http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/state", s.handleState).Methods("GET")
	router.HandleFunc("/tunings", s.handleTunings).Methods("GET")
	router.HandleFunc("/tuning", s.handleSetTuning).Methods("PUT")
	return cors.Default().Handler(router)
}

func (s *server) handleState(w http.ResponseWriter, r *http.Request) {
	st, seq := s.store.get()
	writeJSON(w, stateResponse{Session: s.session.ID(), Seq: seq, State: st})
}

func (s *server) handleTunings(w http.ResponseWriter, r *http.Request) {
	active := s.session.Tuning().Name
	res := make([]tuningResponse, 0)
	for _, name := range tuner.TuningNames() {
		t, _ := tuner.LookupTuning(name)
		notes := make([]string, len(t.Notes))
		for i, n := range t.Notes {
			notes[i] = n.String()
		}
		res = append(res, tuningResponse{Name: name, Notes: notes, Active: name == active})
	}
	writeJSON(w, res)
}

func (s *server) handleSetTuning(w http.ResponseWriter, r *http.Request) {
	var req tuningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "could not decode request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.session.SetTuning(req.Name); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, tuner.ErrUnknownTuning) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}
	logger.Info("tuning requested", "name", req.Name, "remote", r.RemoteAddr)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("encode response", "err", err)
	}
}

func serve() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, err := initAudio()
	if err != nil {
		return fmt.Errorf("malgo init failed: %w", err)
	}
	defer freeAudio(ctx)
	defer closeChimes()

	store := &stateStore{}
	log := logRenderer{}
	session, err := tuner.NewSession(cfg, pitch.Mapper{}, tuner.Renderers{store, log}, newChime(flagChime, ctx, cfg.SampleRate))
	if err != nil {
		return err
	}
	stop, err := startStream(ctx, nil, session)
	if err != nil {
		return err
	}
	defer stop()

	srv := &http.Server{
		Addr:              flagAddr,
		Handler:           (&server{session: session, store: store}).router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	sigCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	go func() {
		<-sigCtx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving", "addr", flagAddr, "session", session.ID(), "tuning", cfg.Tuning)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// logRenderer writes every state transition to the log.
type logRenderer struct{}

func (logRenderer) Render(s tuner.UiState) {
	switch s.Kind {
	case tuner.StateLocked:
		logger.Debug("state", "kind", s.Kind, "note", s.Note, "cents", s.Cents, "ratio", s.Ratio, "too_low", s.TooLow)
	default:
		logger.Info("state", "kind", s.Kind, "note", s.Note, "marked", s.Marked)
	}
}
