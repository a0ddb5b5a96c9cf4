package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"imobcrm_backend/internal/email"
	"imobcrm_backend/internal/events"
	"imobcrm_backend/internal/notification/repository"
	"imobcrm_backend/platform/logger"
)

type fakeRepo struct {
	repository.Repository

	created []repository.CreateParams
}

func (f *fakeRepo) Create(_ context.Context, params repository.CreateParams) (repository.Notification, error) {
	f.created = append(f.created, params)
	return repository.Notification{ID: uuid.New(), UserID: params.UserID, Title: params.Title}, nil
}

type fakeUsers struct {
	nome string
	addr string
	err  error
}

func (f fakeUsers) GetUser(context.Context, uuid.UUID) (string, string, error) {
	return f.nome, f.addr, f.err
}

type fakeLeads struct {
	name  string
	owner *uuid.UUID
}

func (f fakeLeads) GetLeadName(context.Context, uuid.UUID) (string, error) {
	return f.name, nil
}

func (f fakeLeads) GetLeadOwner(context.Context, uuid.UUID) (*uuid.UUID, error) {
	return f.owner, nil
}

type recordingSender struct {
	email.Sender

	assigned int
}

func (r *recordingSender) SendLeadAssigned(context.Context, string, string, string) error {
	r.assigned++
	return nil
}

func TestStageMoveRollbackNotifiesOwnerInAppOnly(t *testing.T) {
	owner := uuid.New()
	repo := &fakeRepo{}
	sender := &recordingSender{}
	svc := New(repo, fakeUsers{nome: "Ana", addr: "ana@example.com"}, fakeLeads{name: "Carlos", owner: &owner}, sender, logger.New("test"))

	err := svc.HandleStageMoveRolledBack(context.Background(), uuid.New(), errors.New("stage does not belong to the lead's funnel"))
	if err != nil {
		t.Fatalf("HandleStageMoveRolledBack: %v", err)
	}

	if len(repo.created) != 1 {
		t.Fatalf("expected one notification, got %d", len(repo.created))
	}
	if repo.created[0].UserID != owner {
		t.Fatalf("expected notification for owner %s, got %s", owner, repo.created[0].UserID)
	}
	if repo.created[0].Category != "pipeline" {
		t.Fatalf("unexpected category %q", repo.created[0].Category)
	}
	if sender.assigned != 0 {
		t.Fatalf("rollback must not send email")
	}
}

func TestStageMoveRollbackSkipsUnownedLead(t *testing.T) {
	repo := &fakeRepo{}
	svc := New(repo, fakeUsers{}, fakeLeads{name: "Carlos"}, &recordingSender{}, logger.New("test"))

	err := svc.HandleStageMoveRolledBack(context.Background(), uuid.New(), errors.New("timeout"))
	if err != nil {
		t.Fatalf("HandleStageMoveRolledBack: %v", err)
	}
	if len(repo.created) != 0 {
		t.Fatalf("expected no notification for an unowned lead, got %d", len(repo.created))
	}
}

func TestLeadAssignedCreatesNotificationAndEmail(t *testing.T) {
	broker := uuid.New()
	repo := &fakeRepo{}
	sender := &recordingSender{}
	svc := New(repo, fakeUsers{nome: "Ana", addr: "ana@example.com"}, fakeLeads{name: "Carlos"}, sender, logger.New("test"))

	err := svc.HandleLeadAssigned(context.Background(), events.LeadAssigned{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     uuid.New(),
		CorretorID: broker,
		Automatic:  true,
	})
	if err != nil {
		t.Fatalf("HandleLeadAssigned: %v", err)
	}

	if len(repo.created) != 1 || repo.created[0].UserID != broker {
		t.Fatalf("expected one notification for the broker, got %+v", repo.created)
	}
	if sender.assigned != 1 {
		t.Fatalf("expected one assignment email, got %d", sender.assigned)
	}
}
