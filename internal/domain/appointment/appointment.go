package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Appointment links a doctor and a patient by their national id numbers,
// the same keys the contract ledger uses.
type Appointment struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt *time.Time `gorm:"index" json:"-"`

	DoctorID  string `gorm:"column:doctor_id;type:varchar(9);not null;index" json:"doctorId"`
	PatientID string `gorm:"column:patient_id;type:varchar(9);not null;index" json:"patientId"`

	Date        string `gorm:"column:date;type:varchar(10);not null" json:"date"`
	Time        string `gorm:"column:time;type:varchar(5);not null" json:"time"`
	Description string `gorm:"column:description;type:text" json:"description"`

	Canceled bool `gorm:"column:canceled;default:false;index" json:"canceled"`
}

func (Appointment) TableName() string {
	return "clinical.appointments"
}

// View is an appointment enriched with the doctor's display name for
// patient-facing listings.
type View struct {
	Appointment
	DoctorName string `json:"doctorName"`
}

type CreateAppointmentCommand struct {
	DoctorID    string
	PatientID   string
	Date        string
	Time        string
	Description string
}
