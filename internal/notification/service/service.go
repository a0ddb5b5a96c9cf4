package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"imobcrm_backend/internal/email"
	"imobcrm_backend/internal/events"
	"imobcrm_backend/internal/notification/repository"
	"imobcrm_backend/internal/notification/transport"
	"imobcrm_backend/platform/logger"
)

// UserReader resolves notification recipients.
type UserReader interface {
	GetUser(ctx context.Context, id uuid.UUID) (nome, emailAddr string, err error)
}

// LeadReader resolves lead display names and owners for notification
// texts and recipients.
type LeadReader interface {
	GetLeadName(ctx context.Context, id uuid.UUID) (string, error)
	GetLeadOwner(ctx context.Context, id uuid.UUID) (*uuid.UUID, error)
}

// Service persists in-app notifications and mirrors the important ones to
// email.
type Service struct {
	repo   repository.Repository
	users  UserReader
	leads  LeadReader
	sender email.Sender
	log    *logger.Logger
}

// New creates a new notification service.
func New(repo repository.Repository, users UserReader, leads LeadReader, sender email.Sender, log *logger.Logger) *Service {
	return &Service{repo: repo, users: users, leads: leads, sender: sender, log: log}
}

// List retrieves the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]transport.NotificationResponse, error) {
	notifications, err := s.repo.ListForUser(ctx, userID, unreadOnly)
	if err != nil {
		return nil, err
	}
	return transport.ToNotificationResponses(notifications), nil
}

// MarkRead marks a single notification read. Idempotent.
func (s *Service) MarkRead(ctx context.Context, id, userID uuid.UUID) (transport.NotificationResponse, error) {
	n, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return transport.NotificationResponse{}, err
	}
	return transport.ToNotificationResponse(n), nil
}

// MarkAllRead marks every unread notification of the user read.
func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, userID)
}

// HandleLeadAssigned notifies the receiving broker, in-app and by email.
func (s *Service) HandleLeadAssigned(ctx context.Context, ev events.LeadAssigned) error {
	leadName, err := s.leads.GetLeadName(ctx, ev.LeadID)
	if err != nil {
		return err
	}

	title := "Novo lead atribuído"
	content := fmt.Sprintf("O lead %s foi atribuído a você.", leadName)
	if !ev.Automatic {
		content = fmt.Sprintf("O lead %s foi transferido para você.", leadName)
	}

	resourceType := "client"
	leadID := ev.LeadID
	if _, err := s.repo.Create(ctx, repository.CreateParams{
		UserID:       ev.CorretorID,
		Title:        title,
		Content:      content,
		Category:     "lead",
		ResourceID:   &leadID,
		ResourceType: &resourceType,
	}); err != nil {
		return err
	}

	nome, addr, err := s.users.GetUser(ctx, ev.CorretorID)
	if err != nil {
		s.log.Error("assignment email skipped, recipient lookup failed", "userId", ev.CorretorID, "error", err)
		return nil
	}
	if err := s.sender.SendLeadAssigned(ctx, addr, nome, leadName); err != nil {
		// Mail failures must not fail the event; the in-app entry exists.
		s.log.Error("assignment email failed", "to", addr, "error", err)
	}
	return nil
}

// HandleStageMoveRolledBack tells the lead's owner that an optimistic
// board move did not stick and was reverted. In-app only; a rolled-back
// drag is transient and not worth an email.
func (s *Service) HandleStageMoveRolledBack(ctx context.Context, leadID uuid.UUID, cause error) error {
	owner, err := s.leads.GetLeadOwner(ctx, leadID)
	if err != nil {
		return err
	}
	if owner == nil {
		return nil
	}

	leadName, err := s.leads.GetLeadName(ctx, leadID)
	if err != nil {
		return err
	}

	s.log.Error("stage move rolled back", "leadId", leadID, "error", cause)

	resourceType := "client"
	_, err = s.repo.Create(ctx, repository.CreateParams{
		UserID:       *owner,
		Title:        "Movimentação revertida",
		Content:      fmt.Sprintf("A movimentação do lead %s não pôde ser salva e foi desfeita.", leadName),
		Category:     "pipeline",
		ResourceID:   &leadID,
		ResourceType: &resourceType,
	})
	return err
}

// HandleLeadStatusChanged congratulates the owner when a lead is won.
func (s *Service) HandleLeadStatusChanged(ctx context.Context, ev events.LeadStatusChanged) error {
	if ev.Status != "won" || ev.CorretorID == nil {
		return nil
	}

	leadName, err := s.leads.GetLeadName(ctx, ev.LeadID)
	if err != nil {
		return err
	}

	resourceType := "client"
	leadID := ev.LeadID
	if _, err := s.repo.Create(ctx, repository.CreateParams{
		UserID:       *ev.CorretorID,
		Title:        "Negócio fechado",
		Content:      fmt.Sprintf("O lead %s foi marcado como ganho.", leadName),
		Category:     "lead",
		ResourceID:   &leadID,
		ResourceType: &resourceType,
	}); err != nil {
		return err
	}

	nome, addr, err := s.users.GetUser(ctx, *ev.CorretorID)
	if err != nil {
		s.log.Error("won email skipped, recipient lookup failed", "userId", *ev.CorretorID, "error", err)
		return nil
	}
	if err := s.sender.SendLeadWon(ctx, addr, nome, leadName); err != nil {
		s.log.Error("won email failed", "to", addr, "error", err)
	}
	return nil
}
