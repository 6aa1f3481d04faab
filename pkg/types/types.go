package types

import (
	"time"
)

// Participant roles within a session. The creator is the facilitator,
// everyone who joins afterwards is a plain participant.
const (
	RoleFacilitator = "facilitator"
	RoleParticipant = "participant"
)

// Action review statuses.
const (
	ActionStatusProposed = "proposed"
	ActionStatusApproved = "approved"
	ActionStatusRejected = "rejected"
)

// User is a named participant identity. Colors come from a fixed palette
// assigned at creation time.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is one retrospective instance. The phase is mutated throughout
// the session lifecycle; everything else is fixed at creation except config.
type Session struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description,omitempty"`
	Template     Template      `json:"template"`
	IsAnonymous  bool          `json:"isAnonymous"`
	InviteCode   string        `json:"inviteCode"`
	CurrentPhase Phase         `json:"currentPhase"`
	CreatedByID  string        `json:"createdById"`
	Config       SessionConfig `json:"config"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// SessionConfig holds the structured session options. Stored as a JSON
// blob; the server treats it as opaque apart from RevealImmediately.
type SessionConfig struct {
	ShowAuthor         bool           `json:"showAuthor,omitempty"`
	ColorMode          string         `json:"colorMode,omitempty"`
	RevealImmediately  bool           `json:"revealImmediately,omitempty"`
	FacilitatorOnly    bool           `json:"facilitatorOnly,omitempty"`
	IcebreakerQuestion string         `json:"icebreakerQuestion,omitempty"`
	WelcomeQuestion    string         `json:"welcomeQuestion,omitempty"`
	VoteConfig         *VoteConfig    `json:"voteConfig,omitempty"`
	DiscussConfig      *DiscussConfig `json:"discussConfig,omitempty"`
	SortMode           string         `json:"sortMode,omitempty"`
}

// VoteConfig is advisory: vote caps are enforced client-side only.
type VoteConfig struct {
	MaxVotes      int  `json:"maxVotes"`
	LimitPerGroup bool `json:"limitPerGroup,omitempty"`
	MustUseAll    bool `json:"mustUseAll,omitempty"`
	VoteOnGroups  bool `json:"voteOnGroups,omitempty"`
	ShowResults   bool `json:"showResults,omitempty"`
}

type DiscussConfig struct {
	DiscussMode      string `json:"discussMode"`
	TopN             int    `json:"topN,omitempty"`
	AnyoneCanPropose bool   `json:"anyoneCanPropose,omitempty"`
}

// Participant links a user to a session. Joining is idempotent: a second
// join returns the existing record.
type Participant struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`
	IsReady   bool      `json:"isReady"`
	JoinedAt  time.Time `json:"joinedAt"`
	User      *User     `json:"user,omitempty"`
}

// Column is immutable after session creation. Positions are contiguous
// and 0-based within the session.
type Column struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Title     string    `json:"title"`
	Color     string    `json:"color"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
}

// Ticket is a single idea submitted into a column. Position is assigned
// as the column's ticket count at insert time; reveal is one-directional.
type Ticket struct {
	ID         string     `json:"id"`
	SessionID  string     `json:"sessionId"`
	ColumnID   string     `json:"columnId"`
	AuthorID   string     `json:"authorId"`
	Content    string     `json:"content"`
	Color      string     `json:"color,omitempty"`
	IsRevealed bool       `json:"isRevealed"`
	Position   int        `json:"position"`
	GroupID    *string    `json:"groupId,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	Author     *User      `json:"author,omitempty"`
	Column     *Column    `json:"column,omitempty"`
	Comments   []Comment  `json:"comments,omitempty"`
	Reactions  []Reaction `json:"reactions,omitempty"`
}

// Group is an ad-hoc cluster of tickets formed during the grouping phase.
type Group struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Title     string    `json:"title,omitempty"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
	Tickets   []Ticket  `json:"tickets,omitempty"`
}

type Comment struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticketId"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Author    *User     `json:"author,omitempty"`
}

// Reaction is unique per (ticket, emoji); count only ever grows.
type Reaction struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticketId"`
	Emoji     string    `json:"emoji"`
	Count     int       `json:"count"`
	CreatedAt time.Time `json:"createdAt"`
}

// Vote targets exactly one of a ticket or a group.
type Vote struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	TicketID  *string   `json:"ticketId,omitempty"`
	GroupID   *string   `json:"groupId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	User      *User     `json:"user,omitempty"`
}

// Action is a follow-up task proposed during the discussion phase.
type Action struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"sessionId"`
	TicketID    *string   `json:"ticketId,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	AssigneeID  *string   `json:"assignedToId,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Assignee    *User     `json:"assignedTo,omitempty"`
}

// ActionItem is an action carried over from a previous session, reviewed
// for completion during the review-actions phase.
type ActionItem struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"sessionId"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	AssignedTo    string    `json:"assignedTo,omitempty"`
	IsDone        bool      `json:"isDone"`
	FromSessionID *string   `json:"fromSessionId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// IcebreakerResponse is unique per (session, user); latest write wins.
type IcebreakerResponse struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"createdAt"`
	User      *User     `json:"user,omitempty"`
}

// WelcomeVote is unique per (session, user); latest write wins.
type WelcomeVote struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
	User      *User     `json:"user,omitempty"`
}

// ROTIVote is the return-on-time-invested rating, unique per (session, user).
type ROTIVote struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
	User      *User     `json:"user,omitempty"`
}

// Timer is the per-session countdown. At most one exists per session;
// starting again overwrites it.
type Timer struct {
	ID            string     `json:"id"`
	SessionID     string     `json:"sessionId"`
	Duration      int        `json:"duration"`
	RemainingTime int        `json:"remainingTime"`
	IsRunning     bool       `json:"isRunning"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// SessionSnapshot is the fully joined session state served on page load
// and used to seed a client reconciliation store.
type SessionSnapshot struct {
	Session
	Columns      []Column             `json:"columns"`
	Participants []Participant        `json:"participants"`
	Tickets      []Ticket             `json:"tickets"`
	Groups       []Group              `json:"ticketGroups"`
	Votes        []Vote               `json:"votes"`
	Actions      []Action             `json:"actions"`
	ActionItems  []ActionItem         `json:"actionItems"`
	Icebreakers  []IcebreakerResponse `json:"icebreakers"`
	WelcomeVotes []WelcomeVote        `json:"welcomeVotes"`
	ROTIVotes    []ROTIVote           `json:"rotiVotes"`
	Timer        *Timer               `json:"timer,omitempty"`
}
