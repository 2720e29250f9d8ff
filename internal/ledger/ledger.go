package ledger

import (
	"context"
	"errors"
)

// Contract mirrors a treatment record held by the external contract ledger.
// Patients and doctors are keyed by their numeric national id.
type Contract struct {
	ID            uint64 `json:"id"`
	PatientID     uint64 `json:"patientId"`
	DoctorID      uint64 `json:"doctorId"`
	TreatmentType string `json:"treatmentType"`
	Description   string `json:"description"`
	Approved      bool   `json:"approved"`
	Deleted       bool   `json:"deleted"`
}

var (
	ErrContractNotFound  = errors.New("contract not found")
	ErrLedgerUnavailable = errors.New("contract ledger unavailable")
)

// Client is the port to the contract ledger. The ledger itself (a smart
// contract behind an RPC gateway) is an external collaborator; this service
// never stores contract records locally.
type Client interface {
	CreateContract(ctx context.Context, patientID, doctorID uint64, treatmentType, description string) error
	UpdateContract(ctx context.Context, id uint64, treatmentType, description string) error
	ApproveContract(ctx context.Context, id, patientID uint64) error
	ContractsByPatient(ctx context.Context, patientID uint64) ([]*Contract, error)
	ContractsByDoctor(ctx context.Context, doctorID uint64) ([]*Contract, error)
	AllContracts(ctx context.Context) ([]*Contract, error)
	MarkDeleted(ctx context.Context, id uint64) error
	Restore(ctx context.Context, id uint64) error
}
