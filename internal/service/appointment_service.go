package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medichain/medichain/internal/domain"
	"github.com/medichain/medichain/internal/domain/appointment"
)

type AppointmentService struct {
	repo     appointment.Repository
	users    UserDirectory
	auditSvc *AuditService
	log      *zap.Logger
}

func NewAppointmentService(repo appointment.Repository, users UserDirectory, auditSvc *AuditService, log *zap.Logger) *AppointmentService {
	return &AppointmentService{repo: repo, users: users, auditSvc: auditSvc, log: log}
}

// CreateAppointment is doctor-only.
func (s *AppointmentService) CreateAppointment(ctx context.Context, cmd *appointment.CreateAppointmentCommand, caller *domain.User, ip string) (*appointment.Appointment, error) {
	if caller.Role != domain.RoleDoctor {
		return nil, ErrForbidden
	}

	a := &appointment.Appointment{
		DoctorID:    cmd.DoctorID,
		PatientID:   cmd.PatientID,
		Date:        cmd.Date,
		Time:        cmd.Time,
		Description: cmd.Description,
	}

	if err := s.repo.Create(ctx, a); err != nil {
		s.log.Error("failed to create appointment", zap.Error(err))
		return nil, fmt.Errorf("creating appointment: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.ID,
		UserRole:     caller.Role.String(),
		Action:       domain.ActionCreate,
		ResourceType: "appointment",
		ResourceID:   a.ID.String(),
		IPAddress:    ip,
	})

	return a, nil
}

// ListByDoctor is restricted to doctors viewing their own schedule.
func (s *AppointmentService) ListByDoctor(ctx context.Context, doctorID string, caller *domain.User) ([]*appointment.Appointment, error) {
	if caller.Role != domain.RoleDoctor {
		return nil, ErrForbidden
	}
	return s.repo.ListByDoctor(ctx, doctorID)
}

// ListByPatient returns the patient's appointments enriched with the
// doctor's display name.
func (s *AppointmentService) ListByPatient(ctx context.Context, patientID string) ([]*appointment.View, error) {
	appointments, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	views := make([]*appointment.View, 0, len(appointments))
	for _, a := range appointments {
		v := &appointment.View{Appointment: *a, DoctorName: "Unknown"}
		if doctor, err := s.users.GetByIDNumber(ctx, a.DoctorID); err == nil {
			v.DoctorName = doctor.FirstName + " " + doctor.LastName
		}
		views = append(views, v)
	}
	return views, nil
}

// CancelAppointment enforces ownership per role: doctors cancel their own
// appointments, patients theirs; admins may cancel any.
func (s *AppointmentService) CancelAppointment(ctx context.Context, id uuid.UUID, caller *domain.User, ip string) (*appointment.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch caller.Role {
	case domain.RoleDoctor:
		if a.DoctorID != caller.IDNumber {
			return nil, appointment.ErrNotOwner
		}
	case domain.RolePatient:
		if a.PatientID != caller.IDNumber {
			return nil, appointment.ErrNotOwner
		}
	}

	updated, err := s.repo.SetCanceled(ctx, id, true)
	if err != nil {
		if errors.Is(err, appointment.ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("canceling appointment: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.ID,
		UserRole:     caller.Role.String(),
		Action:       domain.ActionUpdate,
		ResourceType: "appointment",
		ResourceID:   id.String(),
		IPAddress:    ip,
		Changes:      `{"canceled":true}`,
	})

	return updated, nil
}

// ToggleCanceled sets the cancellation flag to an explicit value.
func (s *AppointmentService) ToggleCanceled(ctx context.Context, id uuid.UUID, canceled bool, caller *domain.User, ip string) (*appointment.Appointment, error) {
	updated, err := s.repo.SetCanceled(ctx, id, canceled)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.ID,
		UserRole:     caller.Role.String(),
		Action:       domain.ActionUpdate,
		ResourceType: "appointment",
		ResourceID:   id.String(),
		IPAddress:    ip,
		Changes:      fmt.Sprintf(`{"canceled":%t}`, canceled),
	})

	return updated, nil
}
