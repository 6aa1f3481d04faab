// Package api is the HTTP surface: entity CRUD for page loads and the
// WebSocket upgrade endpoint. Mutating routes broadcast the same events
// as their realtime counterparts so connected clients stay converged.
package api

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"retrosync/internal/config"
	"retrosync/internal/session"
	"retrosync/internal/store"
	"retrosync/internal/ws"
	"retrosync/pkg/types"
)

// userColors is the palette display colors are drawn from at signup.
var userColors = []string{
	"#ef4444", "#f97316", "#f59e0b", "#10b981", "#06b6d4",
	"#3b82f6", "#8b5cf6", "#ec4899", "#14b8a6", "#84cc16",
}

type Server struct {
	echo        *echo.Echo
	cfg         config.HTTPConfig
	sessions    *session.Service
	store       *store.Store
	registry    *ws.Registry
	broadcaster *ws.Broadcaster
	log         zerolog.Logger

	listener net.Listener
}

func NewServer(
	cfg config.HTTPConfig,
	sessions *session.Service,
	st *store.Store,
	registry *ws.Registry,
	broadcaster *ws.Broadcaster,
	wsHandler http.Handler,
	logger zerolog.Logger,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:        e,
		cfg:         cfg,
		sessions:    sessions,
		store:       st,
		registry:    registry,
		broadcaster: broadcaster,
		log:         logger.With().Str("component", "api").Logger(),
	}

	e.GET("/health", s.health)
	e.GET("/ws", echo.WrapHandler(wsHandler))

	api := e.Group("/api")

	api.POST("/users", s.createUser)
	api.GET("/users/:id", s.getUser)

	api.POST("/retros", s.createSession)
	api.GET("/retros/:id", s.getSession)
	api.GET("/retros/invite/:code", s.getSessionByInviteCode)
	api.POST("/retros/:id/join", s.joinSession)
	api.PATCH("/retros/:id/phase", s.updatePhase)
	api.PATCH("/retros/:id/config", s.updateConfig)

	api.POST("/tickets", s.createTicket)
	api.PATCH("/tickets/:id", s.updateTicket)
	api.DELETE("/tickets/:id", s.deleteTicket)
	api.POST("/tickets/:id/comments", s.createComment)
	api.POST("/tickets/:id/reactions", s.addReaction)

	api.POST("/groups", s.createGroup)
	api.POST("/groups/:id/tickets", s.groupTickets)

	api.POST("/votes", s.castVote)
	api.GET("/retros/:id/votes", s.listVotes)

	api.POST("/actions", s.createAction)
	api.PATCH("/actions/:id", s.updateAction)
	api.GET("/retros/:id/actions", s.listActions)

	api.POST("/action-items", s.createActionItem)
	api.PATCH("/action-items/:id", s.updateActionItem)
	api.GET("/retros/:id/action-items", s.listActionItems)

	return s
}

// Start binds the listener and serves until Shutdown. Binding separately
// from serving lets tests use port 0 and read the assigned address.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", addr, err)
	}
	s.listener = listener
	s.echo.Listener = listener

	s.log.Info().Str("addr", listener.Addr().String()).Msg("http server listening")

	server := &http.Server{
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	if err := s.echo.StartServer(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr reports the bound address, valid once Start has bound the listener.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routing tree for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) health(c echo.Context) error {
	if err := s.store.HealthCheck(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "degraded"})
	}
	stats := s.registry.Stats()
	return c.JSON(http.StatusOK, echo.Map{
		"status":      "ok",
		"sessions":    stats["active_sessions"],
		"connections": stats["total_connections"],
	})
}

// respondErr maps domain errors onto HTTP statuses.
func respondErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case isValidationErr(err):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

func isValidationErr(err error) bool {
	for _, sentinel := range []error{
		types.ErrMissingSessionID, types.ErrMissingUserID, types.ErrMissingColumnID,
		types.ErrMissingTicketID, types.ErrMissingContent, types.ErrMissingTitle,
		types.ErrMissingEmoji, types.ErrMissingActionID, types.ErrMissingGroupID,
		types.ErrInvalidPhase, types.ErrInvalidTemplate, types.ErrInvalidStatus,
		types.ErrInvalidDuration, types.ErrInvalidRating, types.ErrVoteTarget,
		types.ErrEmptyTicketList,
		session.ErrMissingTitle, session.ErrMissingCreator, session.ErrNoColumns,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// ---- users ----

type createUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

func (s *Server) createUser(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	user := &types.User{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Email:     req.Email,
		Color:     userColors[rand.Intn(len(userColors))],
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateUser(c.Request().Context(), user); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusCreated, user)
}

func (s *Server) getUser(c echo.Context) error {
	user, err := s.store.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// ---- sessions ----

func (s *Server) createSession(c echo.Context) error {
	var in session.CreateInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	sess, err := s.sessions.Create(c.Request().Context(), in)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusCreated, sess)
}

func (s *Server) getSession(c echo.Context) error {
	snap, err := s.sessions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) getSessionByInviteCode(c echo.Context) error {
	sess, columns, err := s.sessions.GetByInviteCode(c.Request().Context(), c.Param("code"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"session": sess, "columns": columns})
}

type joinRequest struct {
	UserID string `json:"userId"`
}

func (s *Server) joinSession(c echo.Context) error {
	var req joinRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.UserID == "" {
		return respondErr(c, types.ErrMissingUserID)
	}
	participant, err := s.sessions.Join(c.Request().Context(), c.Param("id"), req.UserID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, participant)
}

type phaseRequest struct {
	Phase types.Phase `json:"phase"`
}

func (s *Server) updatePhase(c echo.Context) error {
	var req phaseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	sessionID := c.Param("id")
	if err := s.sessions.ChangePhase(c.Request().Context(), sessionID, req.Phase); err != nil {
		return respondErr(c, err)
	}
	s.broadcaster.Broadcast(sessionID, types.EventPhaseChanged, types.PhaseChangedPayload{Phase: req.Phase})
	return c.JSON(http.StatusOK, echo.Map{"phase": req.Phase})
}

func (s *Server) updateConfig(c echo.Context) error {
	var cfg types.SessionConfig
	if err := c.Bind(&cfg); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	sessionID := c.Param("id")
	if err := s.sessions.UpdateConfig(c.Request().Context(), sessionID, cfg); err != nil {
		return respondErr(c, err)
	}
	s.broadcaster.Broadcast(sessionID, types.EventConfigUpdated, cfg)
	return c.JSON(http.StatusOK, cfg)
}

// ---- tickets ----

func (s *Server) createTicket(c echo.Context) error {
	var req types.CreateTicketPayload
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := req.Validate(); err != nil {
		return respondErr(c, err)
	}

	revealed := false
	if req.IsRevealed != nil {
		revealed = *req.IsRevealed
	} else {
		sess, err := s.store.GetSession(c.Request().Context(), req.SessionID)
		if err != nil {
			return respondErr(c, err)
		}
		revealed = sess.Config.RevealImmediately
	}

	now := time.Now().UTC()
	ticket, err := s.store.CreateTicket(c.Request().Context(), &types.Ticket{
		ID:         uuid.NewString(),
		SessionID:  req.SessionID,
		ColumnID:   req.ColumnID,
		AuthorID:   req.AuthorID,
		Content:    req.Content,
		Color:      req.Color,
		IsRevealed: revealed,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return respondErr(c, err)
	}
	s.broadcaster.Broadcast(req.SessionID, types.EventTicketCreated, ticket)
	return c.JSON(http.StatusCreated, ticket)
}

type updateTicketRequest struct {
	SessionID string              `json:"sessionId"`
	Updates   types.TicketUpdates `json:"updates"`
}

func (s *Server) updateTicket(c echo.Context) error {
	var req updateTicketRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ticket, err := s.store.UpdateTicket(c.Request().Context(), c.Param("id"), req.Updates)
	if err != nil {
		return respondErr(c, err)
	}
	s.broadcaster.Broadcast(ticket.SessionID, types.EventTicketUpdated, ticket)
	return c.JSON(http.StatusOK, ticket)
}

func (s *Server) deleteTicket(c echo.Context) error {
	ticketID := c.Param("id")
	ticket, err := s.store.GetTicket(c.Request().Context(), ticketID)
	if err != nil {
		return respondErr(c, err)
	}
	if err := s.store.DeleteTicket(c.Request().Context(), ticketID); err != nil {
		return respondErr(c, err)
	}
	s.broadcaster.Broadcast(ticket.SessionID, types.EventTicketDeleted, types.TicketDeletedPayload{TicketID: ticketID})
	return c.NoContent(http.StatusNoContent)
}

type createCommentRequest struct {
	AuthorID string `json:"authorId"`
	Content  string `json:"content"`
}

func (s *Server) createComment(c echo.Context) error {
	var req createCommentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	ticketID := c.Param("id")
	ticket, err := s.store.GetTicket(c.Request().Context(), ticketID)
	if err != nil {
		return respondErr(c, err)
	}
	if req.AuthorID == "" {
		return respondErr(c, types.ErrMissingUserID)
	}
	if req.Content == "" {
		return respondErr(c, types.ErrMissingContent)
	}

	comment, err := s.store.CreateComment(c.Request().Context(), &types.Comment{
		ID:        uuid.NewString(),
		TicketID:  ticketID,
		AuthorID:  req.AuthorID,
		Content:   req.Content,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return respondErr(c, err)
	}
	s.broadcaster.Broadcast(ticket.SessionID, types.EventCommentCreated, comment)
	return c.JSON(http.StatusCreated, comment)
}

type addReactionRequest struct {
	Emoji string `json:"emoji"`
}

func (s *Server) addReaction(c echo.Context) error {
	var req addReactionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Emoji == "" {
		return respondErr(c, types.ErrMissingEmoji)
	}
	ticketID := c.Param("id")
	ticket, err := s.store.GetTicket(c.Request().Context(), ticketID)
	if err != nil {
		return respondErr(c, err)
	}

	reaction, err := s.store.AddReaction(c.Request().Context(), ticketID, req.Emoji)
	if err != nil {
		return respondErr(c, err)
	}
	s.broadcaster.Broadcast(ticket.SessionID, types.EventReactionAdded, reaction)
	return c.JSON(http.StatusOK, reaction)
}

// ---- groups ----

func (s *Server) createGroup(c echo.Context) error {
	var req types.CreateGroupPayload
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := req.Validate(); err != nil {
		return respondErr(c, err)
	}
	group, err := s.store.CreateGroup(c.Request().Context(), &types.Group{
		ID:        uuid.NewString(),
		SessionID: req.SessionID,
		Title:     req.Title,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return respondErr(c, err)
	}
	s.broadcaster.Broadcast(req.SessionID, types.EventGroupCreated, group)
	return c.JSON(http.StatusCreated, group)
}

type groupTicketsRequest struct {
	SessionID string   `json:"sessionId"`
	TicketIDs []string `json:"ticketIds"`
}

func (s *Server) groupTickets(c echo.Context) error {
	var req groupTicketsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if len(req.TicketIDs) == 0 {
		return respondErr(c, types.ErrEmptyTicketList)
	}
	group, err := s.store.AssignTicketsToGroup(c.Request().Context(), c.Param("id"), req.TicketIDs)
	if err != nil {
		return respondErr(c, err)
	}
	s.broadcaster.Broadcast(group.SessionID, types.EventTicketGrouped, group)
	return c.JSON(http.StatusOK, group)
}

// ---- votes ----

func (s *Server) castVote(c echo.Context) error {
	var req types.CastVotePayload
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := req.Validate(); err != nil {
		return respondErr(c, err)
	}
	vote, err := s.store.CreateVote(c.Request().Context(), &types.Vote{
		ID:        uuid.NewString(),
		SessionID: req.SessionID,
		UserID:    req.UserID,
		TicketID:  req.TicketID,
		GroupID:   req.GroupID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return respondErr(c, err)
	}
	s.broadcaster.Broadcast(req.SessionID, types.EventVoteCast, vote)
	return c.JSON(http.StatusCreated, vote)
}

func (s *Server) listVotes(c echo.Context) error {
	votes, err := s.store.ListVotes(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, votes)
}

// ---- actions ----

func (s *Server) createAction(c echo.Context) error {
	var req types.CreateActionPayload
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := req.Validate(); err != nil {
		return respondErr(c, err)
	}
	status := req.Status
	if status == "" {
		status = types.ActionStatusProposed
	}
	now := time.Now().UTC()
	action, err := s.store.CreateAction(c.Request().Context(), &types.Action{
		ID:          uuid.NewString(),
		SessionID:   req.SessionID,
		TicketID:    req.TicketID,
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return respondErr(c, err)
	}
	s.broadcaster.Broadcast(req.SessionID, types.EventActionCreated, action)
	return c.JSON(http.StatusCreated, action)
}

type updateActionRequest struct {
	Updates types.ActionUpdates `json:"updates"`
}

func (s *Server) updateAction(c echo.Context) error {
	var req updateActionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Updates.Status != nil && !types.IsValidActionStatus(*req.Updates.Status) {
		return respondErr(c, types.ErrInvalidStatus)
	}
	action, err := s.store.UpdateAction(c.Request().Context(), c.Param("id"), req.Updates)
	if err != nil {
		return respondErr(c, err)
	}
	s.broadcaster.Broadcast(action.SessionID, types.EventActionUpdated, action)
	return c.JSON(http.StatusOK, action)
}

func (s *Server) listActions(c echo.Context) error {
	actions, err := s.store.ListActions(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, actions)
}

// ---- action items ----

type createActionItemRequest struct {
	SessionID     string  `json:"sessionId"`
	Title         string  `json:"title"`
	Description   string  `json:"description,omitempty"`
	AssignedTo    string  `json:"assignedTo,omitempty"`
	FromSessionID *string `json:"fromSessionId,omitempty"`
}

func (s *Server) createActionItem(c echo.Context) error {
	var req createActionItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.SessionID == "" {
		return respondErr(c, types.ErrMissingSessionID)
	}
	if req.Title == "" {
		return respondErr(c, types.ErrMissingTitle)
	}
	now := time.Now().UTC()
	item := &types.ActionItem{
		ID:            uuid.NewString(),
		SessionID:     req.SessionID,
		Title:         req.Title,
		Description:   req.Description,
		AssignedTo:    req.AssignedTo,
		FromSessionID: req.FromSessionID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateActionItem(c.Request().Context(), item); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusCreated, item)
}

type updateActionItemRequest struct {
	IsDone bool `json:"isDone"`
}

func (s *Server) updateActionItem(c echo.Context) error {
	var req updateActionItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := s.store.SetActionItemDone(c.Request().Context(), c.Param("id"), req.IsDone); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"isDone": req.IsDone})
}

func (s *Server) listActionItems(c echo.Context) error {
	items, err := s.store.ListActionItems(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(http.StatusOK, items)
}
