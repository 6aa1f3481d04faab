// Package client holds the client-side session state and a WebSocket
// client that keeps it converged. Broadcast events merge idempotently:
// applying the same event twice, or an event whose entity is already
// present from a snapshot, leaves the state unchanged.
package client

import (
	"encoding/json"
	"fmt"
	"sync"

	"retrosync/pkg/types"
)

// SessionState is the reconciliation store. Seed it with Load from the
// snapshot endpoint, then Apply each broadcast as it arrives.
type SessionState struct {
	mu   sync.RWMutex
	snap types.SessionSnapshot

	// connectionID -> userID for currently present connections.
	presence map[string]string
}

func NewSessionState() *SessionState {
	return &SessionState{presence: make(map[string]string)}
}

// Load replaces the entire state with a server snapshot.
func (s *SessionState) Load(snap types.SessionSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
}

// Snapshot returns a copy of the current state. Slices are copied so the
// caller can iterate without holding the lock.
func (s *SessionState) Snapshot() types.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.snap
	out.Columns = append([]types.Column(nil), s.snap.Columns...)
	out.Participants = append([]types.Participant(nil), s.snap.Participants...)
	out.Tickets = append([]types.Ticket(nil), s.snap.Tickets...)
	out.Groups = append([]types.Group(nil), s.snap.Groups...)
	out.Votes = append([]types.Vote(nil), s.snap.Votes...)
	out.Actions = append([]types.Action(nil), s.snap.Actions...)
	out.ActionItems = append([]types.ActionItem(nil), s.snap.ActionItems...)
	out.Icebreakers = append([]types.IcebreakerResponse(nil), s.snap.Icebreakers...)
	out.WelcomeVotes = append([]types.WelcomeVote(nil), s.snap.WelcomeVotes...)
	out.ROTIVotes = append([]types.ROTIVote(nil), s.snap.ROTIVotes...)
	if s.snap.Timer != nil {
		timer := *s.snap.Timer
		out.Timer = &timer
	}
	return out
}

// Present returns the user IDs of connections currently in the room.
func (s *SessionState) Present() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]string, 0, len(s.presence))
	for _, userID := range s.presence {
		users = append(users, userID)
	}
	return users
}

// Apply merges one broadcast event into the state.
func (s *SessionState) Apply(event types.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch event.Name {
	case types.EventUserJoined:
		var p types.UserJoinedPayload
		if err := json.Unmarshal(event.Data, &p); err != nil {
			return err
		}
		s.presence[p.ConnectionID] = p.UserID

	case types.EventUserLeft:
		var p types.UserLeftPayload
		if err := json.Unmarshal(event.Data, &p); err != nil {
			return err
		}
		delete(s.presence, p.ConnectionID)

	case types.EventPhaseChanged:
		var p types.PhaseChangedPayload
		if err := json.Unmarshal(event.Data, &p); err != nil {
			return err
		}
		s.snap.CurrentPhase = p.Phase

	case types.EventParticipantReadyStatus:
		var p types.ReadyStatusPayload
		if err := json.Unmarshal(event.Data, &p); err != nil {
			return err
		}
		for i := range s.snap.Participants {
			if s.snap.Participants[i].UserID == p.UserID {
				s.snap.Participants[i].IsReady = p.IsReady
			}
		}

	case types.EventTicketCreated, types.EventTicketUpdated:
		var ticket types.Ticket
		if err := json.Unmarshal(event.Data, &ticket); err != nil {
			return err
		}
		s.upsertTicket(ticket)

	case types.EventTicketDeleted:
		var p types.TicketDeletedPayload
		if err := json.Unmarshal(event.Data, &p); err != nil {
			return err
		}
		s.removeTicket(p.TicketID)

	case types.EventTicketsRevealed:
		// No payload; the reveal applies to every ticket held locally.
		for i := range s.snap.Tickets {
			s.snap.Tickets[i].IsRevealed = true
		}

	case types.EventCommentCreated:
		var comment types.Comment
		if err := json.Unmarshal(event.Data, &comment); err != nil {
			return err
		}
		s.addComment(comment)

	case types.EventReactionAdded:
		var reaction types.Reaction
		if err := json.Unmarshal(event.Data, &reaction); err != nil {
			return err
		}
		s.upsertReaction(reaction)

	case types.EventGroupCreated, types.EventTicketGrouped:
		var group types.Group
		if err := json.Unmarshal(event.Data, &group); err != nil {
			return err
		}
		s.upsertGroup(group)

	case types.EventVoteCast:
		var vote types.Vote
		if err := json.Unmarshal(event.Data, &vote); err != nil {
			return err
		}
		s.upsertVote(vote)

	case types.EventActionCreated, types.EventActionUpdated:
		var action types.Action
		if err := json.Unmarshal(event.Data, &action); err != nil {
			return err
		}
		s.upsertAction(action)

	case types.EventTimerStarted, types.EventTimerUpdated:
		var timer types.Timer
		if err := json.Unmarshal(event.Data, &timer); err != nil {
			return err
		}
		s.snap.Timer = &timer

	case types.EventTimerStopped:
		var p types.TimerStoppedPayload
		if err := json.Unmarshal(event.Data, &p); err != nil {
			return err
		}
		if s.snap.Timer != nil {
			s.snap.Timer.IsRunning = false
			if p.Finished {
				s.snap.Timer.RemainingTime = 0
			}
		}

	case types.EventIcebreakerResponse:
		var response types.IcebreakerResponse
		if err := json.Unmarshal(event.Data, &response); err != nil {
			return err
		}
		s.upsertIcebreaker(response)

	case types.EventWelcomeVote:
		var vote types.WelcomeVote
		if err := json.Unmarshal(event.Data, &vote); err != nil {
			return err
		}
		s.upsertWelcomeVote(vote)

	case types.EventROTIVote:
		var vote types.ROTIVote
		if err := json.Unmarshal(event.Data, &vote); err != nil {
			return err
		}
		s.upsertROTIVote(vote)

	case types.EventConfigUpdated:
		var cfg types.SessionConfig
		if err := json.Unmarshal(event.Data, &cfg); err != nil {
			return err
		}
		s.snap.Config = cfg

	default:
		return fmt.Errorf("client: unknown event %q", event.Name)
	}
	return nil
}

func (s *SessionState) upsertTicket(ticket types.Ticket) {
	for i := range s.snap.Tickets {
		if s.snap.Tickets[i].ID == ticket.ID {
			s.snap.Tickets[i] = ticket
			return
		}
	}
	s.snap.Tickets = append(s.snap.Tickets, ticket)
}

func (s *SessionState) removeTicket(ticketID string) {
	for i := range s.snap.Tickets {
		if s.snap.Tickets[i].ID == ticketID {
			s.snap.Tickets = append(s.snap.Tickets[:i], s.snap.Tickets[i+1:]...)
			return
		}
	}
}

func (s *SessionState) addComment(comment types.Comment) {
	for i := range s.snap.Tickets {
		if s.snap.Tickets[i].ID != comment.TicketID {
			continue
		}
		for _, existing := range s.snap.Tickets[i].Comments {
			if existing.ID == comment.ID {
				return
			}
		}
		s.snap.Tickets[i].Comments = append(s.snap.Tickets[i].Comments, comment)
		return
	}
}

func (s *SessionState) upsertReaction(reaction types.Reaction) {
	for i := range s.snap.Tickets {
		if s.snap.Tickets[i].ID != reaction.TicketID {
			continue
		}
		for j := range s.snap.Tickets[i].Reactions {
			if s.snap.Tickets[i].Reactions[j].ID == reaction.ID {
				s.snap.Tickets[i].Reactions[j] = reaction
				return
			}
		}
		s.snap.Tickets[i].Reactions = append(s.snap.Tickets[i].Reactions, reaction)
		return
	}
}

// upsertGroup replaces the group and reconciles member tickets' group
// references so both views stay consistent.
func (s *SessionState) upsertGroup(group types.Group) {
	found := false
	for i := range s.snap.Groups {
		if s.snap.Groups[i].ID == group.ID {
			s.snap.Groups[i] = group
			found = true
			break
		}
	}
	if !found {
		s.snap.Groups = append(s.snap.Groups, group)
	}

	for _, member := range group.Tickets {
		groupID := group.ID
		for i := range s.snap.Tickets {
			if s.snap.Tickets[i].ID == member.ID {
				s.snap.Tickets[i].GroupID = &groupID
			}
		}
	}
}

func (s *SessionState) upsertVote(vote types.Vote) {
	for i := range s.snap.Votes {
		if s.snap.Votes[i].ID == vote.ID {
			s.snap.Votes[i] = vote
			return
		}
	}
	s.snap.Votes = append(s.snap.Votes, vote)
}

func (s *SessionState) upsertAction(action types.Action) {
	for i := range s.snap.Actions {
		if s.snap.Actions[i].ID == action.ID {
			s.snap.Actions[i] = action
			return
		}
	}
	s.snap.Actions = append(s.snap.Actions, action)
}

// The per-user singletons key on UserID, not row ID: a replacement keeps
// the same user slot.

func (s *SessionState) upsertIcebreaker(response types.IcebreakerResponse) {
	for i := range s.snap.Icebreakers {
		if s.snap.Icebreakers[i].UserID == response.UserID {
			s.snap.Icebreakers[i] = response
			return
		}
	}
	s.snap.Icebreakers = append(s.snap.Icebreakers, response)
}

func (s *SessionState) upsertWelcomeVote(vote types.WelcomeVote) {
	for i := range s.snap.WelcomeVotes {
		if s.snap.WelcomeVotes[i].UserID == vote.UserID {
			s.snap.WelcomeVotes[i] = vote
			return
		}
	}
	s.snap.WelcomeVotes = append(s.snap.WelcomeVotes, vote)
}

func (s *SessionState) upsertROTIVote(vote types.ROTIVote) {
	for i := range s.snap.ROTIVotes {
		if s.snap.ROTIVotes[i].UserID == vote.UserID {
			s.snap.ROTIVotes[i] = vote
			return
		}
	}
	s.snap.ROTIVotes = append(s.snap.ROTIVotes, vote)
}
