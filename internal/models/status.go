package models

type ProjectStatus string

const (
	ProjectStatusDraft     ProjectStatus = "draft"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusHired     ProjectStatus = "hired"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

var projectTransitions = map[ProjectStatus][]ProjectStatus{
	ProjectStatusDraft:  {ProjectStatusActive, ProjectStatusCancelled},
	ProjectStatusActive: {ProjectStatusHired, ProjectStatusCancelled},
	ProjectStatusHired:  {ProjectStatusCompleted},
}

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusDraft, ProjectStatusActive, ProjectStatusHired,
		ProjectStatusCompleted, ProjectStatusCancelled:
		return true
	}
	return false
}

func (s ProjectStatus) CanTransitionTo(next ProjectStatus) bool {
	return contains(projectTransitions[s], next)
}

func (s ProjectStatus) Terminal() bool {
	return len(projectTransitions[s]) == 0
}

// Deletable reports whether a project in this status may still be removed.
func (s ProjectStatus) Deletable() bool {
	return s == ProjectStatusDraft || s == ProjectStatusActive
}

// HasHire reports whether a project in this status carries a hired creative.
func (s ProjectStatus) HasHire() bool {
	return s == ProjectStatusHired || s == ProjectStatusCompleted
}

type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusAccepted ApplicationStatus = "accepted"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationStatusPending: {ApplicationStatusAccepted, ApplicationStatusRejected},
}

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationStatusPending, ApplicationStatusAccepted, ApplicationStatusRejected:
		return true
	}
	return false
}

func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	return contains(applicationTransitions[s], next)
}

func (s ApplicationStatus) Terminal() bool {
	return len(applicationTransitions[s]) == 0
}

type PaymentStatus string

const (
	PaymentStatusPending      PaymentStatus = "pending"
	PaymentStatusHeldInEscrow PaymentStatus = "held_in_escrow"
	PaymentStatusReleased     PaymentStatus = "released"
	PaymentStatusRefunded     PaymentStatus = "refunded"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:      {PaymentStatusHeldInEscrow},
	PaymentStatusHeldInEscrow: {PaymentStatusReleased, PaymentStatusRefunded},
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusHeldInEscrow, PaymentStatusReleased, PaymentStatusRefunded:
		return true
	}
	return false
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return contains(paymentTransitions[s], next)
}

func (s PaymentStatus) Terminal() bool {
	return len(paymentTransitions[s]) == 0
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
