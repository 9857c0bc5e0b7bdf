package statemachine

import (
	"errors"
	"fmt"
	"strings"

	"food-ordering-api/models"
)

// ErrInvalidTransition is returned when an order cannot move to the
// requested status from its current one.
var ErrInvalidTransition = errors.New("invalid status transition")

// Event names the operation that drives a transition.
type Event string

const (
	EventAccept  Event = "accept"
	EventReject  Event = "reject"
	EventAdvance Event = "status"
)

// Transition defines a valid state change and who can perform it
type Transition struct {
	From   models.OrderStatus `json:"from"`
	To     models.OrderStatus `json:"to"`
	Event  Event              `json:"event"`
	Actors []models.UserRole  `json:"actors"`
}

var (
	kitchenRoles = []models.UserRole{models.RoleStaff, models.RoleAdmin, models.RoleSuperAdmin}
	allHandlers  = []models.UserRole{models.RoleStaff, models.RoleAdmin, models.RoleSuperAdmin, models.RoleDelivery}
)

// pipeline is the forward order of the in-flight statuses.
var pipeline = []models.OrderStatus{
	models.StatusAccepted,
	models.StatusPreparing,
	models.StatusReady,
	models.StatusHandedToDelivery,
	models.StatusDelivered,
}

// AdvanceTargets are the only statuses reachable through a free status update.
var AdvanceTargets = []models.OrderStatus{
	models.StatusPreparing,
	models.StatusReady,
	models.StatusHandedToDelivery,
	models.StatusDelivered,
}

// ClaimableStatuses are the statuses in which an order without a delivery
// handler may be claimed by a delivery agent.
var ClaimableStatuses = []models.OrderStatus{
	models.StatusAccepted,
	models.StatusPreparing,
	models.StatusReady,
}

// InFlightStatuses are the non-terminal statuses past acceptance.
var InFlightStatuses = []models.OrderStatus{
	models.StatusAccepted,
	models.StatusPreparing,
	models.StatusReady,
	models.StatusHandedToDelivery,
}

// validTransitions is the authoritative state machine definition
var validTransitions = func() []Transition {
	ts := []Transition{
		// Kitchen accepts into the pipeline; a delivery agent accepting skips
		// straight to the hand-off.
		{From: models.StatusPending, To: models.StatusAccepted, Event: EventAccept, Actors: kitchenRoles},
		{From: models.StatusPending, To: models.StatusHandedToDelivery, Event: EventAccept, Actors: []models.UserRole{models.RoleDelivery}},
		{From: models.StatusPending, To: models.StatusRejected, Event: EventReject, Actors: allHandlers},
	}
	// Free updates only move forward, but may skip steps.
	for i, from := range pipeline[:len(pipeline)-1] {
		for _, to := range pipeline[i+1:] {
			ts = append(ts, Transition{From: from, To: to, Event: EventAdvance, Actors: allHandlers})
		}
	}
	return ts
}()

// transitionKey is used to look up valid transitions quickly
type transitionKey struct {
	From  models.OrderStatus
	To    models.OrderStatus
	Event Event
	Actor models.UserRole
}

// Build a lookup map for O(1) validation
var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool)
	for _, t := range validTransitions {
		for _, a := range t.Actors {
			m[transitionKey{t.From, t.To, t.Event, a}] = true
		}
	}
	return m
}()

// AcceptTarget is the status an accepted order moves to. Delivery agents
// skip the kitchen states.
func AcceptTarget(actor models.UserRole) models.OrderStatus {
	if actor == models.RoleDelivery {
		return models.StatusHandedToDelivery
	}
	return models.StatusAccepted
}

// IsAdvanceTarget reports whether s may be requested through a free status
// update.
func IsAdvanceTarget(s models.OrderStatus) bool {
	return contains(AdvanceTargets, s)
}

func IsClaimable(s models.OrderStatus) bool {
	return contains(ClaimableStatuses, s)
}

// ValidTransitionsFrom returns all valid next states from a given state
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	var nexts []models.OrderStatus
	seen := map[models.OrderStatus]bool{}
	for _, t := range validTransitions {
		if t.From == status && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// CanTransition checks if a given actor can move from one state to another
// through event.
func CanTransition(from, to models.OrderStatus, event Event, actor models.UserRole) error {
	if transitionMap[transitionKey{From: from, To: to, Event: event, Actor: actor}] {
		return nil
	}
	return fmt.Errorf("%w: %s → %s is not allowed for %s via %s; valid transitions from %s are: %s",
		ErrInvalidTransition, from, to, actor, event, from, describeValidFrom(from))
}

func describeValidFrom(status models.OrderStatus) string {
	nexts := ValidTransitionsFrom(status)
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	s := make([]string, len(nexts))
	for i, n := range nexts {
		s[i] = string(n)
	}
	return strings.Join(s, ", ")
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	return validTransitions
}

func contains(list []models.OrderStatus, s models.OrderStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
