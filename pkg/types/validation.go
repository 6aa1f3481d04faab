package types

// Validation for command payloads. Handlers call these before touching the
// store; on the realtime path a failure is logged and swallowed, on the
// HTTP path it maps to a 400.

func (p JoinSessionPayload) Validate() error {
	if p.SessionID == "" {
		return ErrMissingSessionID
	}
	if p.UserID == "" {
		return ErrMissingUserID
	}
	return nil
}

func (p LeaveSessionPayload) Validate() error {
	if p.SessionID == "" {
		return ErrMissingSessionID
	}
	if p.UserID == "" {
		return ErrMissingUserID
	}
	return nil
}

func (p ChangePhasePayload) Validate() error {
	if p.SessionID == "" {
		return ErrMissingSessionID
	}
	if !IsValidPhase(p.Phase) {
		return ErrInvalidPhase
	}
	return nil
}

func (p ParticipantReadyPayload) Validate() error {
	if p.SessionID == "" {
		return ErrMissingSessionID
	}
	if p.UserID == "" {
		return ErrMissingUserID
	}
	return nil
}

func (p CreateTicketPayload) Validate() error {
	switch {
	case p.SessionID == "":
		return ErrMissingSessionID
	case p.ColumnID == "":
		return ErrMissingColumnID
	case p.AuthorID == "":
		return ErrMissingUserID
	case p.Content == "":
		return ErrMissingContent
	}
	return nil
}

func (p UpdateTicketPayload) Validate() error {
	if p.SessionID == "" {
		return ErrMissingSessionID
	}
	if p.TicketID == "" {
		return ErrMissingTicketID
	}
	return nil
}

func (p DeleteTicketPayload) Validate() error {
	if p.SessionID == "" {
		return ErrMissingSessionID
	}
	if p.TicketID == "" {
		return ErrMissingTicketID
	}
	return nil
}

func (p RevealTicketsPayload) Validate() error {
	if p.SessionID == "" {
		return ErrMissingSessionID
	}
	return nil
}

func (p CreateCommentPayload) Validate() error {
	switch {
	case p.SessionID == "":
		return ErrMissingSessionID
	case p.TicketID == "":
		return ErrMissingTicketID
	case p.AuthorID == "":
		return ErrMissingUserID
	case p.Content == "":
		return ErrMissingContent
	}
	return nil
}

func (p AddReactionPayload) Validate() error {
	switch {
	case p.SessionID == "":
		return ErrMissingSessionID
	case p.TicketID == "":
		return ErrMissingTicketID
	case p.Emoji == "":
		return ErrMissingEmoji
	}
	return nil
}

func (p CreateGroupPayload) Validate() error {
	if p.SessionID == "" {
		return ErrMissingSessionID
	}
	return nil
}

func (p GroupTicketsPayload) Validate() error {
	switch {
	case p.SessionID == "":
		return ErrMissingSessionID
	case p.GroupID == "":
		return ErrMissingGroupID
	case len(p.TicketIDs) == 0:
		return ErrEmptyTicketList
	}
	return nil
}

// Validate enforces the exactly-one-of-ticket/group invariant. Vote caps
// are deliberately not checked here; they are a client-side policy.
func (p CastVotePayload) Validate() error {
	if p.SessionID == "" {
		return ErrMissingSessionID
	}
	if p.UserID == "" {
		return ErrMissingUserID
	}
	hasTicket := p.TicketID != nil && *p.TicketID != ""
	hasGroup := p.GroupID != nil && *p.GroupID != ""
	if hasTicket == hasGroup {
		return ErrVoteTarget
	}
	return nil
}

func (p CreateActionPayload) Validate() error {
	if p.SessionID == "" {
		return ErrMissingSessionID
	}
	if p.Title == "" {
		return ErrMissingTitle
	}
	if p.Status != "" && !IsValidActionStatus(p.Status) {
		return ErrInvalidStatus
	}
	return nil
}

func (p UpdateActionPayload) Validate() error {
	if p.SessionID == "" {
		return ErrMissingSessionID
	}
	if p.ActionID == "" {
		return ErrMissingActionID
	}
	if p.Updates.Status != nil && !IsValidActionStatus(*p.Updates.Status) {
		return ErrInvalidStatus
	}
	return nil
}

func (p StartTimerPayload) Validate() error {
	if p.SessionID == "" {
		return ErrMissingSessionID
	}
	if p.Duration <= 0 {
		return ErrInvalidDuration
	}
	return nil
}

func (p StopTimerPayload) Validate() error {
	if p.SessionID == "" {
		return ErrMissingSessionID
	}
	return nil
}

func (p UpdateConfigPayload) Validate() error {
	if p.SessionID == "" {
		return ErrMissingSessionID
	}
	return nil
}

func (p SubmitIcebreakerPayload) Validate() error {
	switch {
	case p.SessionID == "":
		return ErrMissingSessionID
	case p.UserID == "":
		return ErrMissingUserID
	case p.Response == "":
		return ErrMissingContent
	}
	return nil
}

func (p SubmitRatingPayload) Validate() error {
	if p.SessionID == "" {
		return ErrMissingSessionID
	}
	if p.UserID == "" {
		return ErrMissingUserID
	}
	if p.Rating < 1 || p.Rating > 5 {
		return ErrInvalidRating
	}
	return nil
}

// IsValidActionStatus reports whether s is a known action status.
func IsValidActionStatus(s string) bool {
	return s == ActionStatusProposed || s == ActionStatusApproved || s == ActionStatusRejected
}

// IsValidTemplate reports whether t names a known template.
func IsValidTemplate(t Template) bool {
	_, ok := templateColumns[t]
	return ok
}
