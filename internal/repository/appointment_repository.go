package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medichain/medichain/internal/domain/appointment"
)

type AppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

func (r *AppointmentRepository) Create(ctx context.Context, a *appointment.Appointment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var a appointment.Appointment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appointment.ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *AppointmentRepository) ListByDoctor(ctx context.Context, doctorID string) ([]*appointment.Appointment, error) {
	var out []*appointment.Appointment
	err := r.db.WithContext(ctx).
		Where("doctor_id = ?", doctorID).
		Order("date, time").
		Find(&out).Error
	return out, err
}

func (r *AppointmentRepository) ListByPatient(ctx context.Context, patientID string) ([]*appointment.Appointment, error) {
	var out []*appointment.Appointment
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("date, time").
		Find(&out).Error
	return out, err
}

func (r *AppointmentRepository) SetCanceled(ctx context.Context, id uuid.UUID, canceled bool) (*appointment.Appointment, error) {
	res := r.db.WithContext(ctx).Model(&appointment.Appointment{}).
		Where("id = ?", id).
		Update("canceled", canceled)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, appointment.ErrAppointmentNotFound
	}
	return r.GetByID(ctx, id)
}
