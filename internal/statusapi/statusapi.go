// Package statusapi exposes a read-only HTTP+WebSocket surface over the
// engine's state: /healthz, /metrics, /api/v1/status, and a websocket
// that fan-outs internal/alert events to connected clients. Grounded on
// internal/api/server.go's gorilla/mux + rs/cors + gorilla/websocket
// Server, narrowed from a bidirectional backtest-control API to a
// read-only status/alert surface (spec.md §6 places command-and-control
// out of scope; only read access and alert fan-out are specified).
package statusapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/alert"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/metrics"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/riskgate"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/rollingwindow"
	"github.com/Danhhoang1306/Pair-Trading--sub000/internal/tracker"
)

// Config holds the HTTP bind address.
type Config struct {
	Host string
	Port int
}

// client is one connected websocket consumer of the alert fan-out.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Server is the read-only status/alert surface.
type Server struct {
	logger *zap.Logger
	cfg    Config

	tr  *tracker.Tracker
	rg  *riskgate.Gate
	win *rollingwindow.Window
	met *metrics.Registry
	snk alert.Sink

	router     *mux.Router
	httpServer *http.Server
	upgrader   websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
}

// statusDoc is the JSON shape served at /api/v1/status.
type statusDoc struct {
	Time          time.Time `json:"time"`
	OpenSpreads   int       `json:"open_spreads"`
	TotalUnrealised string  `json:"total_unrealised_pnl"`
	Beta          float64   `json:"hedge_ratio"`
	Risk          riskDoc   `json:"risk"`
}

type riskDoc struct {
	RealisedPnL   string    `json:"realised_pnl"`
	TradingLocked bool      `json:"trading_locked"`
	LockedUntil   time.Time `json:"locked_until,omitempty"`
}

// New builds a Server with its routes configured but not yet listening.
func New(logger *zap.Logger, cfg Config, tr *tracker.Tracker, rg *riskgate.Gate, win *rollingwindow.Window, met *metrics.Registry, snk alert.Sink) *Server {
	s := &Server{
		logger:  logger.Named("statusapi"),
		cfg:     cfg,
		tr:      tr,
		rg:      rg,
		win:     win,
		met:     met,
		snk:     snk,
		router:  mux.NewRouter(),
		clients: make(map[string]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	s.setupRoutes()

	if sink, ok := snk.(*alert.ChannelSink); ok {
		go s.fanOutAlerts(sink)
	}
	return s
}

// Router exposes the underlying mux.Router, mirroring the teacher's
// Server.Router() so tests can wrap it in an httptest.Server instead of
// binding a real listener.
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.HandleFunc("/api/v1/status", s.handleStatus).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.met.Gatherer(), promhttp.HandlerOpts{})).Methods(http.MethodGet)
	s.router.HandleFunc("/ws/alerts", s.handleWebSocket)
}

// Start begins serving. Blocks until Stop shuts the server down.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}).Handler(s.router)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	s.logger.Info("status API listening", zap.String("addr", addr))
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts the server down, closing every websocket client.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	for _, c := range s.clients {
		c.conn.Close()
	}
	s.mu.Unlock()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.rg.Snapshot()
	doc := statusDoc{
		Time:            time.Now(),
		OpenSpreads:     s.tr.OpenCount(),
		TotalUnrealised: s.tr.TotalUnrealisedPnL().String(),
		Beta:            s.win.Beta(),
		Risk: riskDoc{
			RealisedPnL:   snap.RealisedPnL.String(),
			TradingLocked: snap.TradingLocked,
			LockedUntil:   snap.LockedUntil,
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(doc)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, 64)}

	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()

	go s.writePump(c)
	go s.readPump(c)
}

// readPump discards inbound frames (this surface is read-only) but must
// still drain the connection so gorilla/websocket's pong handling and
// close detection work.
func (s *Server) readPump(c *client) {
	defer func() {
		s.mu.Lock()
		delete(s.clients, c.id)
		s.mu.Unlock()
		c.conn.Close()
	}()
	c.conn.SetReadLimit(4096)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// fanOutAlerts relays every published alert.Event to every connected
// websocket client.
func (s *Server) fanOutAlerts(sink *alert.ChannelSink) {
	for evt := range sink.Events() {
		payload, err := json.Marshal(evt)
		if err != nil {
			continue
		}
		s.mu.Lock()
		for _, c := range s.clients {
			select {
			case c.send <- payload:
			default:
			}
		}
		s.mu.Unlock()
	}
}
