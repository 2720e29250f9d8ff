package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medichain/medichain/internal/domain"
	"github.com/medichain/medichain/internal/domain/support"
)

type SupportService struct {
	repo     support.Repository
	auditSvc *AuditService
	log      *zap.Logger
}

func NewSupportService(repo support.Repository, auditSvc *AuditService, log *zap.Logger) *SupportService {
	return &SupportService{repo: repo, auditSvc: auditSvc, log: log}
}

// SubmitRequest files a ticket on behalf of the caller; locked-out users
// reach support through this channel once an admin re-enables them, so the
// requester id is always the caller's own.
func (s *SupportService) SubmitRequest(ctx context.Context, description string, caller *domain.User, ip string) (*support.Request, error) {
	if description == "" {
		return nil, &ValidationError{Message: "Description is required."}
	}

	now := time.Now()
	r := &support.Request{
		UserID:      caller.IDNumber,
		Description: description,
		Date:        now.Format("2006-01-02"),
		Time:        now.Format("15:04:05"),
	}

	if err := s.repo.Create(ctx, r); err != nil {
		s.log.Error("failed to create support request", zap.Error(err))
		return nil, fmt.Errorf("creating support request: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.ID,
		UserRole:     caller.Role.String(),
		Action:       domain.ActionCreate,
		ResourceType: "support_request",
		ResourceID:   r.ID.String(),
		IPAddress:    ip,
	})

	return r, nil
}

func (s *SupportService) ListRequests(ctx context.Context) ([]*support.Request, error) {
	return s.repo.List(ctx)
}

func (s *SupportService) CompleteRequest(ctx context.Context, id uuid.UUID, caller *domain.User, ip string) (*support.Request, error) {
	r, err := s.repo.MarkCompleted(ctx, id)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.ID,
		UserRole:     caller.Role.String(),
		Action:       domain.ActionUpdate,
		ResourceType: "support_request",
		ResourceID:   id.String(),
		IPAddress:    ip,
		Changes:      `{"completed":true}`,
	})

	return r, nil
}
