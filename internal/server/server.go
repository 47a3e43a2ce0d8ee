package server

import (
	"net/http"
	"sync"
	"time"

	"quizclash/internal/config"
	"quizclash/internal/db"

	"gorm.io/gorm"
)

type Server struct {
	store     *Store
	db        *gorm.DB
	closer    db.RoundCloser
	ws        *wsHub
	pub       *publisher
	engine    *scoringEngine
	cfg       config.Config
	timersMu  sync.Mutex
	timers    map[string]*time.Timer
	sweepStop chan struct{}
	sweepOnce sync.Once
}

func New(conn *gorm.DB, cfg config.Config) *Server {
	var evaluator AnswerEvaluator
	if cfg.OpenAIAPIKey != "" {
		evaluator = newOpenAIEvaluator(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}
	srv := &Server{
		store:  NewStore(),
		db:     conn,
		closer: db.DetectRoundCloser(conn),
		ws:     newWSHub(),
		engine: newScoringEngine(evaluator, cfg.ScoreCacheSize),
		cfg:    cfg,
		timers: make(map[string]*time.Timer),
	}
	srv.pub = newPublisher(srv.sendFrame)
	return srv
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/rooms", s.handleCreateRoom)
	mux.HandleFunc("POST /api/rooms/{id}/join", s.handleJoin)
	mux.HandleFunc("POST /api/rooms/{id}/ready", s.handleReady)
	mux.HandleFunc("POST /api/rooms/{id}/start", s.handleStart)
	mux.HandleFunc("POST /api/rooms/{id}/answers", s.handleSubmitAnswer)
	mux.HandleFunc("POST /api/rooms/{id}/reveal", s.handleReveal)
	mux.HandleFunc("POST /api/rooms/{id}/close", s.handleCloseRound)
	mux.HandleFunc("POST /api/rooms/{id}/advance", s.handleAdvance)
	mux.HandleFunc("POST /api/rooms/{id}/heartbeat", s.handleHeartbeat)
	mux.HandleFunc("GET /api/rooms/{id}/state", s.handleState)
	mux.HandleFunc("GET /ws/rooms/{id}", s.handleWebsocket)
	return mux
}

// StartPresenceSweeper runs the periodic staleness sweep until Stop.
func (s *Server) StartPresenceSweeper() {
	s.sweepOnce.Do(func() {
		s.sweepStop = make(chan struct{})
		interval := time.Duration(s.cfg.HeartbeatSeconds) * time.Second / 2
		if interval <= 0 {
			interval = time.Second
		}
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					for _, roomID := range s.store.RoomIDs() {
						s.presencePass(roomID)
					}
				case <-s.sweepStop:
					return
				}
			}
		}()
	})
}

func (s *Server) Stop() {
	if s.sweepStop != nil {
		close(s.sweepStop)
	}
	s.timersMu.Lock()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	s.timersMu.Unlock()
	s.pub.Wait()
}

// sendFrame is the publisher's transport: websocket fan-out to the room.
func (s *Server) sendFrame(roomID string, data []byte) error {
	return s.ws.Broadcast(roomID, data)
}
