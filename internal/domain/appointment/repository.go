package appointment

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListByDoctor(ctx context.Context, doctorID string) ([]*Appointment, error)
	ListByPatient(ctx context.Context, patientID string) ([]*Appointment, error)

	// SetCanceled flips the cancellation flag without touching other fields.
	SetCanceled(ctx context.Context, id uuid.UUID, canceled bool) (*Appointment, error)
}
