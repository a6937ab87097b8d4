// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kevinksaji/kevai/internal/analytics"
	"github.com/kevinksaji/kevai/internal/chat"
	"github.com/kevinksaji/kevai/internal/cms"
	"github.com/kevinksaji/kevai/internal/mail"
	"github.com/kevinksaji/kevai/internal/stats"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultPort is the default port for the HTTP server.
	DefaultPort = 8790

	// MaxMessageLength is the maximum length for a chat message.
	MaxMessageLength = 100000

	// MaxRequestBodySize is the maximum size for request bodies (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// Version is the server version.
	Version = "1.0.0"
)

// ============================================================================
// INTERFACES
// ============================================================================

// PostSource is the blog read layer the server serves from. Both cms.Client
// and cms.Cached satisfy it.
type PostSource interface {
	Posts(ctx context.Context) ([]cms.Post, error)
	PostBySlug(ctx context.Context, slug string) (*cms.Post, error)
	PostsByCategory(ctx context.Context, category string) ([]cms.Post, error)
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the portfolio backend HTTP server.
type Server struct {
	port   int
	router *http.ServeMux
	server *http.Server

	controller *chat.Controller
	posts      PostSource
	mailer     *mail.Mailer
	stats      *stats.Client
	analytics  *analytics.Store
	auth       *AuthConfig
	cors       *CORSConfig
	limiter    *RateLimiter

	startTime time.Time
	mu        sync.RWMutex
}

// NewServer creates a Server on the given port. If port is 0, the default
// port (8790) is used. Collaborators are attached with the With* methods;
// routes whose collaborator is missing return 503.
func NewServer(port int) *Server {
	if port == 0 {
		port = DefaultPort
	}

	s := &Server{
		port:   port,
		router: http.NewServeMux(),
		auth:   &AuthConfig{},
		cors: &CORSConfig{AllowedOrigins: []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
		}},
		limiter:   NewRateLimiter(100, time.Minute),
		startTime: time.Now(),
	}

	s.setupRoutes()
	return s
}

// WithController sets the chat controller.
func (s *Server) WithController(c *chat.Controller) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.controller = c
	return s
}

// WithPosts sets the blog post source.
func (s *Server) WithPosts(p PostSource) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = p
	return s
}

// WithMailer sets the contact-form mailer.
func (s *Server) WithMailer(m *mail.Mailer) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mailer = m
	return s
}

// WithStats sets the GitHub stats client.
func (s *Server) WithStats(c *stats.Client) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = c
	return s
}

// WithAnalytics sets the analytics store.
func (s *Server) WithAnalytics(a *analytics.Store) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analytics = a
	return s
}

// WithAuth sets the authentication configuration.
func (s *Server) WithAuth(config *AuthConfig) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = config
	return s
}

// WithCORS sets the CORS configuration.
func (s *Server) WithCORS(config *CORSConfig) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cors = config
	return s
}

// WithRateLimiter sets the rate limiter.
func (s *Server) WithRateLimiter(rl *RateLimiter) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limiter = rl
	return s
}

// Port returns the server port.
func (s *Server) Port() int {
	return s.port
}

// Handler returns the fully wrapped handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.buildHandler()
}

// ============================================================================
// ROUTES
// ============================================================================

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Chat endpoints
	s.router.HandleFunc("POST /api/chat", s.handleChat)
	s.router.HandleFunc("GET /api/conversations", s.handleListConversations)
	s.router.HandleFunc("POST /api/conversations", s.handleCreateConversation)
	s.router.HandleFunc("GET /api/conversations/{id}", s.handleGetConversation)
	s.router.HandleFunc("DELETE /api/conversations/{id}", s.handleDeleteConversation)
	s.router.HandleFunc("POST /api/conversations/{id}/activate", s.handleActivateConversation)

	// Blog endpoints
	s.router.HandleFunc("GET /api/blog", s.handleBlogList)
	s.router.HandleFunc("GET /api/blog/category/{category}", s.handleBlogByCategory)
	s.router.HandleFunc("GET /api/blog/{slug}", s.handleBlogBySlug)

	// Contact endpoint
	s.router.HandleFunc("POST /api/contact/send", s.handleContactSend)

	// Stats endpoint
	s.router.HandleFunc("GET /api/stats/github", s.handleGitHubStats)

	// Analytics endpoints
	s.router.HandleFunc("POST /api/analytics/visit", s.handleAnalyticsVisit)
	s.router.HandleFunc("GET /api/analytics/summary", s.handleAnalyticsSummary)

	// Health endpoint
	s.router.HandleFunc("GET /health", s.handleHealth)
}

// ============================================================================
// CHAT HANDLERS
// ============================================================================

// ChatRequest is the POST /api/chat request body. Two shapes are accepted:
// a stateful send against a server-side conversation (Message, optional
// ConversationID), or a stateless completion where the caller supplies the
// full transcript (Messages) and keeps the history itself.
type ChatRequest struct {
	// ConversationID selects an existing conversation. Empty means the
	// active conversation, creating one if none exists.
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message,omitempty"`

	// Messages is the full transcript for a stateless completion. When set
	// it takes precedence over Message and nothing is persisted.
	Messages []chat.Message `json:"messages,omitempty"`
}

// ChatAnswer is the stateless completion response.
type ChatAnswer struct {
	Answer string `json:"answer"`
}

// handleChat handles POST /api/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	controller := s.getController()
	if controller == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Chat is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Invalid chat request body: %v", err)
		s.writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	if len(req.Message) > MaxMessageLength {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Message exceeds maximum length of %d", MaxMessageLength))
		return
	}

	if len(req.Messages) > 0 {
		s.handleStatelessChat(w, r, controller, req.Messages)
		return
	}

	var (
		convo *chat.Conversation
		err   error
	)
	if req.ConversationID == "" {
		convo, err = controller.SendToActive(r.Context(), req.Message)
	} else {
		convo, err = controller.Send(r.Context(), req.ConversationID, req.Message)
	}

	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		s.writeError(w, http.StatusBadRequest, "Message must not be empty")
	case errors.Is(err, chat.ErrBusy):
		s.writeError(w, http.StatusConflict, "A reply is already being generated for this conversation")
	case errors.Is(err, chat.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "Conversation not found")
	case err != nil:
		log.Printf("Chat send failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "Request processing failed. Please try again.")
	default:
		s.writeJSON(w, http.StatusOK, convo)
	}
}

// handleStatelessChat answers a caller-held transcript without persisting
// anything. Only user and assistant roles are accepted and the transcript
// must end with a non-empty user message; a provider failure surfaces as 502
// so the caller can apply its own fallback.
func (s *Server) handleStatelessChat(w http.ResponseWriter, r *http.Request, controller *chat.Controller, transcript []chat.Message) {
	for _, m := range transcript {
		if m.Role != chat.RoleUser && m.Role != chat.RoleAssistant {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown message role %q", m.Role))
			return
		}
		if len(m.Content) > MaxMessageLength {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Message exceeds maximum length of %d", MaxMessageLength))
			return
		}
	}

	answer, err := controller.Complete(r.Context(), transcript)
	if errors.Is(err, chat.ErrEmptyMessage) {
		s.writeError(w, http.StatusBadRequest, "Transcript must end with a non-empty user message")
		return
	}
	if err != nil {
		log.Printf("Stateless completion failed: %v", err)
		s.writeError(w, http.StatusBadGateway, "Completion failed. Please try again.")
		return
	}
	s.writeJSON(w, http.StatusOK, ChatAnswer{Answer: answer})
}

// handleListConversations handles GET /api/conversations.
func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	controller := s.getController()
	if controller == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Chat is not configured")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"active_id":     controller.Store().ActiveID(),
		"conversations": controller.Store().List(),
	})
}

// CreateConversationRequest is the optional POST /api/conversations body.
type CreateConversationRequest struct {
	// FirstMessage seeds the new conversation with one user message and
	// derives the title from it. Empty creates an empty conversation.
	FirstMessage string `json:"first_message,omitempty"`
}

// handleCreateConversation handles POST /api/conversations.
func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	controller := s.getController()
	if controller == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Chat is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if len(req.FirstMessage) > MaxMessageLength {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Message exceeds maximum length of %d", MaxMessageLength))
		return
	}

	convo, err := controller.Store().Create(strings.TrimSpace(req.FirstMessage))
	if err != nil {
		log.Printf("Conversation create failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to create conversation")
		return
	}
	s.writeJSON(w, http.StatusCreated, convo)
}

// handleGetConversation handles GET /api/conversations/{id}.
func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	controller := s.getController()
	if controller == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Chat is not configured")
		return
	}

	convo, err := controller.Store().Get(r.PathValue("id"))
	if errors.Is(err, chat.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to load conversation")
		return
	}
	s.writeJSON(w, http.StatusOK, convo)
}

// handleDeleteConversation handles DELETE /api/conversations/{id}.
func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	controller := s.getController()
	if controller == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Chat is not configured")
		return
	}

	err := controller.Store().Remove(r.PathValue("id"))
	if errors.Is(err, chat.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to delete conversation")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"active_id": controller.Store().ActiveID(),
	})
}

// handleActivateConversation handles POST /api/conversations/{id}/activate.
func (s *Server) handleActivateConversation(w http.ResponseWriter, r *http.Request) {
	controller := s.getController()
	if controller == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Chat is not configured")
		return
	}

	err := controller.Store().SetActive(r.PathValue("id"))
	if errors.Is(err, chat.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to activate conversation")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ============================================================================
// BLOG HANDLERS
// ============================================================================

// handleBlogList handles GET /api/blog.
func (s *Server) handleBlogList(w http.ResponseWriter, r *http.Request) {
	posts := s.getPosts()
	if posts == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Blog is not configured")
		return
	}

	list, err := posts.Posts(r.Context())
	if err != nil {
		log.Printf("Blog list failed: %v", err)
		s.writeError(w, http.StatusBadGateway, "Failed to load posts")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"posts": list})
}

// handleBlogBySlug handles GET /api/blog/{slug}.
func (s *Server) handleBlogBySlug(w http.ResponseWriter, r *http.Request) {
	posts := s.getPosts()
	if posts == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Blog is not configured")
		return
	}

	post, err := posts.PostBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		log.Printf("Blog lookup failed: %v", err)
		s.writeError(w, http.StatusBadGateway, "Failed to load post")
		return
	}
	if post == nil {
		s.writeError(w, http.StatusNotFound, "Post not found")
		return
	}
	s.writeJSON(w, http.StatusOK, post)
}

// handleBlogByCategory handles GET /api/blog/category/{category}.
func (s *Server) handleBlogByCategory(w http.ResponseWriter, r *http.Request) {
	posts := s.getPosts()
	if posts == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Blog is not configured")
		return
	}

	list, err := posts.PostsByCategory(r.Context(), r.PathValue("category"))
	if err != nil {
		log.Printf("Blog category lookup failed: %v", err)
		s.writeError(w, http.StatusBadGateway, "Failed to load posts")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"posts": list})
}

// ============================================================================
// CONTACT HANDLER
// ============================================================================

// handleContactSend handles POST /api/contact/send.
func (s *Server) handleContactSend(w http.ResponseWriter, r *http.Request) {
	mailer := s.getMailer()
	if mailer == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Contact form is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var sub mail.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		log.Printf("Invalid contact request body: %v", err)
		s.writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	err := mailer.Send(sub)
	accepted := err == nil

	if a := s.getAnalytics(); a != nil {
		if logErr := a.LogContact(r.Context(), sub.Email, sub.Subject, accepted); logErr != nil {
			log.Printf("Contact log failed: %v", logErr)
		}
	}

	switch {
	case errors.Is(err, mail.ErrMissingFields):
		s.writeError(w, http.StatusBadRequest, "Missing required fields")
	case errors.Is(err, mail.ErrInvalidAddress):
		s.writeError(w, http.StatusBadRequest, "Invalid email address")
	case err != nil:
		log.Printf("Contact send failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to send email")
	default:
		s.writeJSON(w, http.StatusOK, map[string]string{"message": "Email sent successfully"})
	}
}

// ============================================================================
// STATS HANDLER
// ============================================================================

// handleGitHubStats handles GET /api/stats/github.
func (s *Server) handleGitHubStats(w http.ResponseWriter, r *http.Request) {
	client := s.getStats()
	if client == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Stats are not configured")
		return
	}

	snap, err := client.Stats(r.Context())
	if err != nil {
		log.Printf("GitHub stats failed: %v", err)
		s.writeError(w, http.StatusBadGateway, "Failed to load GitHub stats")
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// ============================================================================
// ANALYTICS HANDLERS
// ============================================================================

// VisitRequest is the POST /api/analytics/visit request body.
type VisitRequest struct {
	Page     string `json:"page"`
	Referrer string `json:"referrer,omitempty"`
}

// handleAnalyticsVisit handles POST /api/analytics/visit.
func (s *Server) handleAnalyticsVisit(w http.ResponseWriter, r *http.Request) {
	store := s.getAnalytics()
	if store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Analytics are not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req VisitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if req.Page == "" {
		s.writeError(w, http.StatusBadRequest, "Page is required")
		return
	}

	if err := store.RecordVisit(r.Context(), req.Page, req.Referrer, clientIP(r)); err != nil {
		log.Printf("Visit record failed: %v", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to record visit")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAnalyticsSummary handles GET /api/analytics/summary.
func (s *Server) handleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	store := s.getAnalytics()
	if store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Analytics are not configured")
		return
	}

	ctx := r.Context()
	visits, err := store.VisitCount(ctx)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to load analytics")
		return
	}
	visitors, err := store.VisitorCount(ctx)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to load analytics")
		return
	}
	pages, err := store.TopPages(ctx, 10)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to load analytics")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"total_visits":  visits,
		"unique_visits": visitors,
		"top_pages":     pages,
	})
}

// ============================================================================
// HEALTH HANDLER
// ============================================================================

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	ChatReady     bool   `json:"chat_ready"`
	BlogReady     bool   `json:"blog_ready"`
	ContactReady  bool   `json:"contact_ready"`
	StatsReady    bool   `json:"stats_ready"`
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Version:       Version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		ChatReady:     s.controller != nil,
		BlogReady:     s.posts != nil,
		ContactReady:  s.mailer != nil && s.mailer.IsConfigured(),
		StatsReady:    s.stats != nil,
	})
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// buildHandler wraps the router in the middleware chain.
func (s *Server) buildHandler() http.Handler {
	s.mu.RLock()
	defer s.mu.RUnlock()

	handler := chain(
		recoverPanics(),
		secureHeaders(),
		logRequests(),
		allowCORS(s.cors),
		limitRequests(s.limiter),
	)(s.router)

	if s.auth != nil && s.auth.Enabled {
		handler = requireAuth(s.auth)(handler)
	}
	return handler
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.buildHandler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("SERVER START | addr=%s version=%s", addr, Version)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	log.Printf("SERVER SHUTDOWN | draining connections")
	return s.server.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

func (s *Server) getController() *chat.Controller {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.controller
}

func (s *Server) getPosts() PostSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.posts
}

func (s *Server) getMailer() *mail.Mailer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mailer
}

func (s *Server) getStats() *stats.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *Server) getAnalytics() *analytics.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.analytics
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response: {"error": <text>} with a non-2xx
// status.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
