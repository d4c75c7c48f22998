package servicerequest

import (
	"fmt"

	"github.com/samber/lo"

	"tirehub/internal/domain"
)

// transitions lists the statuses reachable from each status. Completed is terminal.
var transitions = map[string][]string{
	domain.RequestStatusPending:          {domain.RequestStatusAccepted, domain.RequestStatusMechanicAssigned},
	domain.RequestStatusAccepted:         {domain.RequestStatusMechanicAssigned, domain.RequestStatusInProgress},
	domain.RequestStatusMechanicAssigned: {domain.RequestStatusInProgress},
	domain.RequestStatusInProgress:       {domain.RequestStatusCompleted},
}

// CanTransition reports whether a request may move from one status to another.
func CanTransition(from, to string) bool {
	return lo.Contains(transitions[from], to)
}

func checkTransition(sr *domain.ServiceRequest, to string) error {
	if !CanTransition(sr.Status, to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, sr.Status, to)
	}
	return nil
}
