package types

import "encoding/json"

// Client-to-server commands.
const (
	EventJoinSession       = "join_session"
	EventLeaveSession      = "leave_session"
	EventChangePhase       = "change_phase"
	EventParticipantReady  = "participant_ready"
	EventCreateTicket      = "create_ticket"
	EventUpdateTicket      = "update_ticket"
	EventDeleteTicket      = "delete_ticket"
	EventRevealTickets     = "reveal_tickets"
	EventCreateComment     = "create_comment"
	EventAddReaction       = "add_reaction"
	EventCreateGroup       = "create_group"
	EventGroupTickets      = "group_tickets"
	EventCastVote          = "cast_vote"
	EventCreateAction      = "create_action"
	EventUpdateAction      = "update_action"
	EventStartTimer        = "start_timer"
	EventStopTimer         = "stop_timer"
	EventSubmitIcebreaker  = "submit_icebreaker"
	EventSubmitWelcomeVote = "submit_welcome_vote"
	EventSubmitROTIVote    = "submit_roti_vote"
	EventUpdateConfig      = "update_config"
)

// Server-to-client broadcasts.
const (
	EventUserJoined             = "user_joined"
	EventUserLeft               = "user_left"
	EventPhaseChanged           = "phase_changed"
	EventParticipantReadyStatus = "participant_ready_status"
	EventTicketCreated          = "ticket_created"
	EventTicketUpdated          = "ticket_updated"
	EventTicketDeleted          = "ticket_deleted"
	EventTicketsRevealed        = "tickets_revealed"
	EventCommentCreated         = "comment_created"
	EventReactionAdded          = "reaction_added"
	EventGroupCreated           = "group_created"
	EventTicketGrouped          = "ticket_grouped"
	EventVoteCast               = "vote_cast"
	EventActionCreated          = "action_created"
	EventActionUpdated          = "action_updated"
	EventTimerStarted           = "timer_started"
	EventTimerUpdated           = "timer_updated"
	EventTimerStopped           = "timer_stopped"
	EventIcebreakerResponse     = "icebreaker_response"
	EventWelcomeVote            = "welcome_vote"
	EventROTIVote               = "roti_vote"
	EventConfigUpdated          = "config_updated"
)

// Event is the wire envelope in both directions. Data stays raw until the
// receiving side knows which payload struct the name maps to.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent wraps a payload into an envelope. Marshal errors only happen
// for non-serializable payloads, which would be a programming error.
func NewEvent(name string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Name: name, Data: data}, nil
}

// Command payloads.

type JoinSessionPayload struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
}

type LeaveSessionPayload struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
}

type ChangePhasePayload struct {
	SessionID string `json:"sessionId"`
	Phase     Phase  `json:"phase"`
}

type ParticipantReadyPayload struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	IsReady   bool   `json:"isReady"`
}

type CreateTicketPayload struct {
	SessionID string `json:"sessionId"`
	ColumnID  string `json:"columnId"`
	AuthorID  string `json:"authorId"`
	Content   string `json:"content"`
	Color     string `json:"color,omitempty"`
	// IsRevealed nil means "use the session's revealImmediately config".
	IsRevealed *bool `json:"isRevealed,omitempty"`
}

// TicketUpdates carries optional field updates; nil fields are untouched.
type TicketUpdates struct {
	Content    *string `json:"content,omitempty"`
	Color      *string `json:"color,omitempty"`
	IsRevealed *bool   `json:"isRevealed,omitempty"`
	ColumnID   *string `json:"columnId,omitempty"`
	GroupID    *string `json:"groupId,omitempty"`
}

type UpdateTicketPayload struct {
	SessionID string        `json:"sessionId"`
	TicketID  string        `json:"ticketId"`
	Updates   TicketUpdates `json:"updates"`
}

type DeleteTicketPayload struct {
	SessionID string `json:"sessionId"`
	TicketID  string `json:"ticketId"`
}

type RevealTicketsPayload struct {
	SessionID string `json:"sessionId"`
}

type CreateCommentPayload struct {
	SessionID string `json:"sessionId"`
	TicketID  string `json:"ticketId"`
	AuthorID  string `json:"authorId"`
	Content   string `json:"content"`
}

type AddReactionPayload struct {
	SessionID string `json:"sessionId"`
	TicketID  string `json:"ticketId"`
	Emoji     string `json:"emoji"`
}

type CreateGroupPayload struct {
	SessionID string `json:"sessionId"`
	Title     string `json:"title,omitempty"`
}

type GroupTicketsPayload struct {
	SessionID string   `json:"sessionId"`
	TicketIDs []string `json:"ticketIds"`
	GroupID   string   `json:"groupId"`
}

type CastVotePayload struct {
	SessionID string  `json:"sessionId"`
	UserID    string  `json:"userId"`
	TicketID  *string `json:"ticketId,omitempty"`
	GroupID   *string `json:"groupId,omitempty"`
}

type CreateActionPayload struct {
	SessionID   string  `json:"sessionId"`
	TicketID    *string `json:"ticketId,omitempty"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	AssigneeID  *string `json:"assignedToId,omitempty"`
	Status      string  `json:"status,omitempty"`
}

// ActionUpdates carries optional field updates; nil fields are untouched.
type ActionUpdates struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	AssigneeID  *string `json:"assignedToId,omitempty"`
	Status      *string `json:"status,omitempty"`
}

type UpdateActionPayload struct {
	SessionID string        `json:"sessionId"`
	ActionID  string        `json:"actionId"`
	Updates   ActionUpdates `json:"updates"`
}

type StartTimerPayload struct {
	SessionID string `json:"sessionId"`
	Duration  int    `json:"duration"`
}

type StopTimerPayload struct {
	SessionID string `json:"sessionId"`
}

type SubmitIcebreakerPayload struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	Response  string `json:"response"`
}

type SubmitRatingPayload struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	Rating    int    `json:"rating"`
}

type UpdateConfigPayload struct {
	SessionID string        `json:"sessionId"`
	Config    SessionConfig `json:"config"`
}

// Broadcast payloads without a full entity.

type UserJoinedPayload struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
}

type UserLeftPayload struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
}

type PhaseChangedPayload struct {
	Phase Phase `json:"phase"`
}

type ReadyStatusPayload struct {
	UserID  string `json:"userId"`
	IsReady bool   `json:"isReady"`
}

type TicketDeletedPayload struct {
	TicketID string `json:"ticketId"`
}

type TimerStoppedPayload struct {
	Finished bool `json:"finished"`
}
