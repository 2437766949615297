package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a domain error. The set is closed and flat so callers
// can switch over it exhaustively and serialize it across the API boundary.
type ErrorKind string

const (
	KindValidation  ErrorKind = "validation"
	KindConflict    ErrorKind = "conflict"
	KindSeason      ErrorKind = "season"
	KindConsistency ErrorKind = "consistency"
	KindNotFound    ErrorKind = "not-found"
)

// Reason is the machine-readable reason code carried by a domain error.
type Reason string

const (
	ReasonOccupied         Reason = "occupied"
	ReasonBlocked          Reason = "blocked"
	ReasonHeldByOther      Reason = "held-by-other"
	ReasonInvalidCode      Reason = "invalid-code"
	ReasonCodeRequired     Reason = "code-required"
	ReasonBulkRestricted   Reason = "bulk-restricted-after-cutoff"
	ReasonCapacityExceeded Reason = "capacity-exceeded"
	ReasonValidation       Reason = "validation"
	ReasonNotFound         Reason = "not-found"
	ReasonStale            Reason = "stale"
	ReasonHoldExpired      Reason = "hold-expired"
)

// RoomRejection attributes a rejection reason to one room.
type RoomRejection struct {
	RoomID string `json:"room_id"`
	Reason Reason `json:"reason"`
}

// Error is the single tagged error type returned by the reservation core.
type Error struct {
	Kind    ErrorKind       `json:"kind"`
	Reason  Reason          `json:"reason"`
	RoomID  string          `json:"room_id,omitempty"`
	Message string          `json:"message"`
	Rooms   []RoomRejection `json:"rooms,omitempty"`
}

func (e *Error) Error() string {
	if e.RoomID != "" {
		return fmt.Sprintf("%s (%s): room %s: %s", e.Kind, e.Reason, e.RoomID, e.Message)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Reason, e.Message)
}

// NewValidationError reports malformed caller input.
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Reason: ReasonValidation, Message: message}
}

// NewCapacityError reports a roster that does not fit the room.
func NewCapacityError(roomID string, guests, capacity int) *Error {
	return &Error{
		Kind:    KindValidation,
		Reason:  ReasonCapacityExceeded,
		RoomID:  roomID,
		Message: fmt.Sprintf("%d guests exceed capacity %d", guests, capacity),
		Rooms:   []RoomRejection{{RoomID: roomID, Reason: ReasonCapacityExceeded}},
	}
}

// NewConflictError reports a single-room conflict.
func NewConflictError(roomID string, reason Reason) *Error {
	return &Error{
		Kind:    KindConflict,
		Reason:  reason,
		RoomID:  roomID,
		Message: fmt.Sprintf("requested dates are %s", reason),
		Rooms:   []RoomRejection{{RoomID: roomID, Reason: reason}},
	}
}

// NewRoomsConflictError reports a multi-room request rejected as a whole.
func NewRoomsConflictError(rooms []RoomRejection) *Error {
	e := &Error{
		Kind:    KindConflict,
		Message: "one or more rooms are unavailable: " + joinRooms(rooms),
		Rooms:   rooms,
	}
	if len(rooms) > 0 {
		e.Reason = rooms[0].Reason
	}
	return e
}

// NewSeasonError reports a season gate refusal.
func NewSeasonError(reason Reason, message string) *Error {
	return &Error{Kind: KindSeason, Reason: reason, Message: message}
}

// NewConsistencyError reports holds that no longer pass the final re-check.
func NewConsistencyError(rooms []RoomRejection) *Error {
	e := &Error{
		Kind:    KindConsistency,
		Message: "selection is no longer valid for: " + joinRooms(rooms),
		Rooms:   rooms,
	}
	if len(rooms) > 0 {
		e.Reason = rooms[0].Reason
		if len(rooms) == 1 {
			e.RoomID = rooms[0].RoomID
		}
	}
	return e
}

// NewStaleError reports an optimistic-lock miss: the record changed since it
// was read.
func NewStaleError(resource string) *Error {
	return &Error{
		Kind:    KindConflict,
		Reason:  ReasonStale,
		Message: fmt.Sprintf("%s was modified by another transaction", resource),
	}
}

// NewNotFoundError reports a missing resource.
func NewNotFoundError(resource, id string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Reason:  ReasonNotFound,
		Message: fmt.Sprintf("%s %s not found", resource, id),
	}
}

// AsError extracts a domain error from an error chain.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsKind reports whether err is a domain error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	de, ok := AsError(err)
	return ok && de.Kind == kind
}

func joinRooms(rooms []RoomRejection) string {
	parts := make([]string, len(rooms))
	for i, r := range rooms {
		parts[i] = fmt.Sprintf("%s=%s", r.RoomID, r.Reason)
	}
	return strings.Join(parts, ", ")
}
