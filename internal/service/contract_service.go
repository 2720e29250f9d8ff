package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/medichain/medichain/internal/domain"
	"github.com/medichain/medichain/internal/ledger"
)

// UserDirectory resolves display names for ledger-keyed national ids.
type UserDirectory interface {
	GetByIDNumber(ctx context.Context, idNumber string) (*domain.User, error)
}

// ContractService fronts the external contract ledger. Treatment records
// never touch the local store; this service only adds role gates and name
// enrichment around the ledger RPC.
type ContractService struct {
	client   ledger.Client
	users    UserDirectory
	auditSvc *AuditService
	log      *zap.Logger
}

func NewContractService(client ledger.Client, users UserDirectory, auditSvc *AuditService, log *zap.Logger) *ContractService {
	return &ContractService{client: client, users: users, auditSvc: auditSvc, log: log}
}

type CreateContractCommand struct {
	PatientID     uint64
	DoctorID      uint64
	TreatmentType string
	Description   string
}

// CreateContract is doctor-only.
func (s *ContractService) CreateContract(ctx context.Context, cmd *CreateContractCommand, caller *domain.User, ip string) error {
	if caller.Role != domain.RoleDoctor {
		return ErrForbidden
	}

	if err := s.client.CreateContract(ctx, cmd.PatientID, cmd.DoctorID, cmd.TreatmentType, cmd.Description); err != nil {
		return fmt.Errorf("creating contract: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.ID,
		UserRole:     caller.Role.String(),
		Action:       domain.ActionCreate,
		ResourceType: "contract",
		IPAddress:    ip,
	})
	return nil
}

func (s *ContractService) UpdateContract(ctx context.Context, id uint64, treatmentType, description string, caller *domain.User, ip string) error {
	if err := s.client.UpdateContract(ctx, id, treatmentType, description); err != nil {
		return err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.ID,
		UserRole:     caller.Role.String(),
		Action:       domain.ActionUpdate,
		ResourceType: "contract",
		ResourceID:   strconv.FormatUint(id, 10),
		IPAddress:    ip,
	})
	return nil
}

// ApproveContract records the calling patient's consent; the patient id sent
// to the ledger is taken from the caller's own identity, never the request.
func (s *ContractService) ApproveContract(ctx context.Context, id uint64, caller *domain.User, ip string) error {
	patientID, err := strconv.ParseUint(caller.IDNumber, 10, 64)
	if err != nil {
		return &ValidationError{Message: "Invalid contract or patient id."}
	}

	if err := s.client.ApproveContract(ctx, id, patientID); err != nil {
		return err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.ID,
		UserRole:     caller.Role.String(),
		Action:       domain.ActionUpdate,
		ResourceType: "contract",
		ResourceID:   strconv.FormatUint(id, 10),
		IPAddress:    ip,
		Changes:      `{"approved":true}`,
	})
	return nil
}

func (s *ContractService) ContractsByPatient(ctx context.Context, patientID uint64) ([]*ledger.Contract, error) {
	return s.client.ContractsByPatient(ctx, patientID)
}

func (s *ContractService) ContractsByDoctor(ctx context.Context, doctorID uint64) ([]*ledger.Contract, error) {
	return s.client.ContractsByDoctor(ctx, doctorID)
}

func (s *ContractService) MarkDeleted(ctx context.Context, id uint64, caller *domain.User, ip string) error {
	if err := s.client.MarkDeleted(ctx, id); err != nil {
		return err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.ID,
		UserRole:     caller.Role.String(),
		Action:       domain.ActionDelete,
		ResourceType: "contract",
		ResourceID:   strconv.FormatUint(id, 10),
		IPAddress:    ip,
	})
	return nil
}

func (s *ContractService) Restore(ctx context.Context, id uint64, caller *domain.User, ip string) error {
	if err := s.client.Restore(ctx, id); err != nil {
		return err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.ID,
		UserRole:     caller.Role.String(),
		Action:       domain.ActionUpdate,
		ResourceType: "contract",
		ResourceID:   strconv.FormatUint(id, 10),
		IPAddress:    ip,
		Changes:      `{"deleted":false}`,
	})
	return nil
}

// EnrichedContract is a ledger record labelled with display names for the
// admin console.
type EnrichedContract struct {
	ledger.Contract
	DoctorName  string `json:"doctorName"`
	PatientName string `json:"patientName"`
}

func (s *ContractService) AllContracts(ctx context.Context) ([]*EnrichedContract, error) {
	contracts, err := s.client.AllContracts(ctx)
	if err != nil {
		return nil, err
	}

	enriched := make([]*EnrichedContract, 0, len(contracts))
	for _, c := range contracts {
		e := &EnrichedContract{
			Contract:    *c,
			DoctorName:  s.displayName(ctx, c.DoctorID),
			PatientName: s.displayName(ctx, c.PatientID),
		}
		enriched = append(enriched, e)
	}
	return enriched, nil
}

func (s *ContractService) displayName(ctx context.Context, idNumber uint64) string {
	user, err := s.users.GetByIDNumber(ctx, fmt.Sprintf("%09d", idNumber))
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			s.log.Warn("resolving display name", zap.Uint64("id_number", idNumber), zap.Error(err))
		}
		return "Unknown"
	}
	return user.FirstName + " " + user.LastName
}
