package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	funnelrepo "imobcrm_backend/internal/funnels/repository"
	leadrepo "imobcrm_backend/internal/leads/repository"
	"imobcrm_backend/platform/apperr"
	"imobcrm_backend/platform/httpkit"
)

type fakeLeads struct {
	leads      []leadrepo.Lead
	lastParams leadrepo.ListLeadsParams
}

func (f *fakeLeads) List(_ context.Context, params leadrepo.ListLeadsParams) ([]leadrepo.Lead, error) {
	f.lastParams = params
	out := []leadrepo.Lead{}
	for _, lead := range f.leads {
		if params.CorretorID != nil && (lead.CorretorID == nil || *lead.CorretorID != *params.CorretorID) {
			continue
		}
		out = append(out, lead)
	}
	return out, nil
}

type fakeFunnels struct {
	funnel *funnelrepo.Funnel
}

func (f *fakeFunnels) GetFunnelByID(_ context.Context, id uuid.UUID) (funnelrepo.Funnel, error) {
	if f.funnel != nil && f.funnel.ID == id {
		return *f.funnel, nil
	}
	return funnelrepo.Funnel{}, apperr.NotFound("funnel not found")
}

func (f *fakeFunnels) GetDefaultEntryFunnel(_ context.Context) (funnelrepo.Funnel, error) {
	if f.funnel == nil {
		return funnelrepo.Funnel{}, apperr.NotFound("funnel not found")
	}
	return *f.funnel, nil
}

func (f *fakeFunnels) GetFirstFunnel(_ context.Context) (funnelrepo.Funnel, error) {
	return f.GetDefaultEntryFunnel(context.Background())
}

func boardFixture() (*fakeLeads, *fakeFunnels, funnelrepo.Funnel) {
	funnelID := uuid.New()
	funnel := funnelrepo.Funnel{
		ID:   funnelID,
		Name: "Vendas",
		Stages: []funnelrepo.Stage{
			{ID: uuid.New(), FunnelID: funnelID, Name: "Contato", Position: 1},
			{ID: uuid.New(), FunnelID: funnelID, Name: "Novo", Position: 0},
		},
	}

	broker := uuid.New()
	leads := &fakeLeads{leads: []leadrepo.Lead{
		{ID: uuid.New(), NomeCompleto: "Maria Souza", FunnelID: funnelID, StageID: funnel.Stages[1].ID, CorretorID: &broker, OverallStatus: "active"},
		{ID: uuid.New(), NomeCompleto: "Carlos Pereira", FunnelID: funnelID, StageID: funnel.Stages[0].ID, OverallStatus: "won"},
	}}
	return leads, &fakeFunnels{funnel: &funnel}, funnel
}

func TestBoardColumnsInPositionOrder(t *testing.T) {
	leads, funnels, funnel := boardFixture()
	svc := New(leads, funnels)

	manager := httpkit.NewIdentity(uuid.New(), httpkit.RoleGerente)
	result, err := svc.Board(context.Background(), manager, BoardQuery{})
	if err != nil {
		t.Fatalf("Board: %v", err)
	}

	if result.FunnelID != funnel.ID {
		t.Fatalf("expected funnel %s, got %s", funnel.ID, result.FunnelID)
	}
	if len(result.Stages) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(result.Stages))
	}
	if result.Stages[0].Name != "Novo" || result.Stages[1].Name != "Contato" {
		t.Fatalf("columns out of position order: %s, %s", result.Stages[0].Name, result.Stages[1].Name)
	}
	if len(result.Stages[0].Leads) != 1 || len(result.Stages[1].Leads) != 1 {
		t.Fatalf("leads not bucketed by stage")
	}
}

func TestBoardScopesBrokerToOwnLeads(t *testing.T) {
	leads, funnels, _ := boardFixture()
	svc := New(leads, funnels)

	broker := *leads.leads[0].CorretorID
	identity := httpkit.NewIdentity(broker, httpkit.RoleCorretor)
	result, err := svc.Board(context.Background(), identity, BoardQuery{})
	if err != nil {
		t.Fatalf("Board: %v", err)
	}

	if leads.lastParams.CorretorID == nil || *leads.lastParams.CorretorID != broker {
		t.Fatal("broker scope not pushed down to the lead query")
	}
	total := 0
	for _, col := range result.Stages {
		total += len(col.Leads)
	}
	if total != 1 {
		t.Fatalf("broker should see only own leads, got %d", total)
	}
}

func TestBoardAppliesCompositeFilter(t *testing.T) {
	leads, funnels, _ := boardFixture()
	svc := New(leads, funnels)

	manager := httpkit.NewIdentity(uuid.New(), httpkit.RoleAdmin)
	result, err := svc.Board(context.Background(), manager, BoardQuery{Search: "maria", Status: "active"})
	if err != nil {
		t.Fatalf("Board: %v", err)
	}

	total := 0
	for _, col := range result.Stages {
		total += len(col.Leads)
	}
	if total != 1 {
		t.Fatalf("expected one filtered lead, got %d", total)
	}
}

func TestBoardNoFunnelConfigured(t *testing.T) {
	svc := New(&fakeLeads{}, &fakeFunnels{})

	manager := httpkit.NewIdentity(uuid.New(), httpkit.RoleGerente)
	_, err := svc.Board(context.Background(), manager, BoardQuery{})
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict without funnels, got %v", err)
	}
}
