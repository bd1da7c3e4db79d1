// Package api exposes a small HTTP status endpoint for a running listener.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/heraldnet/herald/pkg/network"
)

// Server serves listener status over HTTP. It is optional; a listener runs
// fine without one.
type Server struct {
	stats      *network.Stats
	transport  string
	router     *gin.Engine
	httpServer *http.Server
}

// StatusResponse is the GET /api/v1/status body.
type StatusResponse struct {
	Success      bool      `json:"success"`
	Transport    string    `json:"transport"`
	Uptime       string    `json:"uptime"`
	Received     uint64    `json:"received"`
	Dispatched   uint64    `json:"dispatched"`
	AuthFailures uint64    `json:"authFailures"`
	LastMessage  time.Time `json:"lastMessage,omitzero"`
}

// NewServer builds a status server for the given listener stats.
// transport names the delivery transport in responses ("direct" or
// "relay").
func NewServer(stats *network.Stats, transport string, port int) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		stats:     stats,
		transport: transport,
		router:    router,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		},
	}

	router.GET("/api/v1/status", s.handleStatus)

	return s
}

// Start serves in the background until Stop.
func (s *Server) Start() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Status API is best-effort; the listener keeps running.
			log.Printf("Status server error: %v", err)
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleStatus(c *gin.Context) {
	snap := s.stats.Snapshot()

	c.JSON(http.StatusOK, StatusResponse{
		Success:      true,
		Transport:    s.transport,
		Uptime:       time.Since(snap.Started).Round(time.Second).String(),
		Received:     snap.Received,
		Dispatched:   snap.Dispatched,
		AuthFailures: snap.AuthFailures,
		LastMessage:  snap.LastMessage,
	})
}
