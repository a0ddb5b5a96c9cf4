package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"imobcrm_backend/internal/events"
	"imobcrm_backend/internal/leads/ports"
	"imobcrm_backend/internal/leads/repository"
	"imobcrm_backend/internal/leads/transport"
	"imobcrm_backend/platform/apperr"
	"imobcrm_backend/platform/httpkit"
	"imobcrm_backend/platform/logger"
	roulettedomain "imobcrm_backend/internal/roulette/domain"
)

type fakeRepo struct {
	leads   map[uuid.UUID]repository.Lead
	created []repository.CreateLeadParams
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{leads: map[uuid.UUID]repository.Lead{}}
}

func (f *fakeRepo) Create(_ context.Context, params repository.CreateLeadParams) (repository.Lead, error) {
	f.created = append(f.created, params)
	lead := repository.Lead{
		ID:             uuid.New(),
		NomeCompleto:   params.NomeCompleto,
		Email:          params.Email,
		Telefone:       params.Telefone,
		TelefoneDigits: params.TelefoneDigits,
		FunnelID:       params.FunnelID,
		StageID:        params.StageID,
		CorretorID:     params.CorretorID,
		Tags:           []repository.Tag{},
		OverallStatus:  "active",
	}
	f.leads[lead.ID] = lead
	return lead, nil
}

func (f *fakeRepo) Update(_ context.Context, params repository.UpdateLeadParams) (repository.Lead, error) {
	lead, ok := f.leads[params.ID]
	if !ok {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if params.NomeCompleto != nil {
		lead.NomeCompleto = *params.NomeCompleto
	}
	if params.Telefone != nil {
		lead.Telefone = *params.Telefone
	}
	if params.TelefoneDigits != nil {
		lead.TelefoneDigits = *params.TelefoneDigits
	}
	if params.ClearCorretor {
		lead.CorretorID = nil
	} else if params.CorretorID != nil {
		lead.CorretorID = params.CorretorID
	}
	f.leads[params.ID] = lead
	return lead, nil
}

func (f *fakeRepo) UpdateStage(_ context.Context, id, funnelID, stageID uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	lead.FunnelID = funnelID
	lead.StageID = stageID
	f.leads[id] = lead
	return lead, nil
}

func (f *fakeRepo) SetStatus(_ context.Context, id uuid.UUID, status string) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	lead.OverallStatus = status
	f.leads[id] = lead
	return lead, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	return lead, nil
}

func (f *fakeRepo) List(_ context.Context, params repository.ListLeadsParams) ([]repository.Lead, error) {
	out := []repository.Lead{}
	for _, lead := range f.leads {
		if params.CorretorID != nil && (lead.CorretorID == nil || *lead.CorretorID != *params.CorretorID) {
			continue
		}
		out = append(out, lead)
	}
	return out, nil
}

func (f *fakeRepo) ListTags(_ context.Context) ([]repository.Tag, error) {
	return []repository.Tag{}, nil
}

type fakeFunnels struct {
	byID         map[uuid.UUID]ports.Funnel
	defaultEntry *ports.Funnel
	first        *ports.Funnel
}

func (f *fakeFunnels) GetFunnelByID(_ context.Context, id uuid.UUID) (ports.Funnel, error) {
	if funnel, ok := f.byID[id]; ok {
		return funnel, nil
	}
	return ports.Funnel{}, apperr.NotFound("funnel not found")
}

func (f *fakeFunnels) GetDefaultEntryFunnel(_ context.Context) (ports.Funnel, error) {
	if f.defaultEntry == nil {
		return ports.Funnel{}, apperr.NotFound("funnel not found")
	}
	return *f.defaultEntry, nil
}

func (f *fakeFunnels) GetFirstFunnel(_ context.Context) (ports.Funnel, error) {
	if f.first == nil {
		return ports.Funnel{}, apperr.NotFound("funnel not found")
	}
	return *f.first, nil
}

type fakeAssigner struct {
	broker     *roulettedomain.BrokerRef
	rouletteID *uuid.UUID
	err        error
	calls      int
}

func (f *fakeAssigner) ResolveAssignee(_ context.Context, _ uuid.UUID) (*roulettedomain.BrokerRef, *uuid.UUID, error) {
	f.calls++
	return f.broker, f.rouletteID, f.err
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.EventName())
	}
	return out
}

func testFunnel() ports.Funnel {
	funnelID := uuid.New()
	return ports.Funnel{
		ID:   funnelID,
		Name: "Vendas",
		Stages: []ports.Stage{
			{ID: uuid.New(), FunnelID: funnelID, Name: "Fechamento", Position: 2},
			{ID: uuid.New(), FunnelID: funnelID, Name: "Novo", Position: 0},
			{ID: uuid.New(), FunnelID: funnelID, Name: "Contato", Position: 1},
		},
	}
}

func firstStageOf(funnel ports.Funnel) ports.Stage {
	best := funnel.Stages[0]
	for _, s := range funnel.Stages {
		if s.Position < best.Position {
			best = s
		}
	}
	return best
}

func newTestService(repo repository.Repository, funnels ports.FunnelReader, assigner ports.Assigner, bus events.Bus) *Service {
	return New(repo, funnels, assigner, bus, logger.New("test"))
}

func TestCreateBrokerSelfAssigns(t *testing.T) {
	funnel := testFunnel()
	repo := newFakeRepo()
	assigner := &fakeAssigner{}
	bus := &recordingBus{}
	svc := newTestService(repo, &fakeFunnels{defaultEntry: &funnel}, assigner, bus)

	brokerID := uuid.New()
	identity := httpkit.NewIdentity(brokerID, httpkit.RoleCorretor)

	result, err := svc.Create(context.Background(), identity, transport.CreateLeadRequest{
		NomeCompleto: "Maria Souza",
		Telefone:     "(11) 98765-4321",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if result.CorretorID == nil || *result.CorretorID != brokerID {
		t.Fatalf("expected lead owned by creating broker %s, got %v", brokerID, result.CorretorID)
	}
	if result.FunnelID != funnel.ID {
		t.Fatalf("expected default entry funnel %s, got %s", funnel.ID, result.FunnelID)
	}
	if want := firstStageOf(funnel).ID; result.FunnelStageID != want {
		t.Fatalf("expected first stage %s, got %s", want, result.FunnelStageID)
	}
	if assigner.calls != 0 {
		t.Fatalf("manual creation must not consult the roulette, got %d calls", assigner.calls)
	}
}

func TestCreateManagerRequiresBroker(t *testing.T) {
	funnel := testFunnel()
	svc := newTestService(newFakeRepo(), &fakeFunnels{defaultEntry: &funnel}, &fakeAssigner{}, &recordingBus{})

	identity := httpkit.NewIdentity(uuid.New(), httpkit.RoleGerente)

	_, err := svc.Create(context.Background(), identity, transport.CreateLeadRequest{
		NomeCompleto: "Maria Souza",
		Telefone:     "11987654321",
	})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for manager without corretorId, got %v", err)
	}

	brokerID := uuid.New()
	result, err := svc.Create(context.Background(), identity, transport.CreateLeadRequest{
		NomeCompleto: "Maria Souza",
		Telefone:     "11987654321",
		CorretorID:   &brokerID,
	})
	if err != nil {
		t.Fatalf("Create with corretorId: %v", err)
	}
	if result.CorretorID == nil || *result.CorretorID != brokerID {
		t.Fatalf("expected lead owned by %s, got %v", brokerID, result.CorretorID)
	}
}

func TestCreateNormalizesPhone(t *testing.T) {
	funnel := testFunnel()
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeFunnels{defaultEntry: &funnel}, &fakeAssigner{}, &recordingBus{})

	identity := httpkit.NewIdentity(uuid.New(), httpkit.RoleCorretor)
	_, err := svc.Create(context.Background(), identity, transport.CreateLeadRequest{
		NomeCompleto: "Maria Souza",
		Telefone:     "(11) 98765-4321",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if len(repo.created) != 1 {
		t.Fatalf("expected one created lead, got %d", len(repo.created))
	}
	got := repo.created[0]
	if got.Telefone != "+5511987654321" {
		t.Fatalf("expected E.164 phone, got %q", got.Telefone)
	}
	if got.TelefoneDigits != "5511987654321" {
		t.Fatalf("expected digits-only phone, got %q", got.TelefoneDigits)
	}
}

func TestIntakeAssignsThroughRoulette(t *testing.T) {
	funnel := testFunnel()
	repo := newFakeRepo()
	rouletteID := uuid.New()
	broker := &roulettedomain.BrokerRef{ID: uuid.New(), Nome: "Carlos"}
	assigner := &fakeAssigner{broker: broker, rouletteID: &rouletteID}
	bus := &recordingBus{}
	svc := newTestService(repo, &fakeFunnels{defaultEntry: &funnel}, assigner, bus)

	result, err := svc.Intake(context.Background(), transport.IntakeLeadRequest{
		NomeCompleto: "Ana Lima",
		Telefone:     "11912345678",
	})
	if err != nil {
		t.Fatalf("Intake: %v", err)
	}

	if result.CorretorID == nil || *result.CorretorID != broker.ID {
		t.Fatalf("expected roulette assignee %s, got %v", broker.ID, result.CorretorID)
	}
	if assigner.calls != 1 {
		t.Fatalf("expected one roulette consultation, got %d", assigner.calls)
	}

	var assigned *events.LeadAssigned
	for _, e := range bus.events {
		if ev, ok := e.(events.LeadAssigned); ok {
			assigned = &ev
		}
	}
	if assigned == nil {
		t.Fatal("expected LeadAssigned event")
	}
	if !assigned.Automatic {
		t.Fatal("roulette assignment must be flagged automatic")
	}
	if assigned.RouletteID == nil || *assigned.RouletteID != rouletteID {
		t.Fatalf("expected roulette id %s on event, got %v", rouletteID, assigned.RouletteID)
	}
}

func TestIntakeWithoutRouletteCreatesUnassigned(t *testing.T) {
	funnel := testFunnel()
	bus := &recordingBus{}
	svc := newTestService(newFakeRepo(), &fakeFunnels{defaultEntry: &funnel}, &fakeAssigner{}, bus)

	result, err := svc.Intake(context.Background(), transport.IntakeLeadRequest{
		NomeCompleto: "Ana Lima",
		Telefone:     "11912345678",
	})
	if err != nil {
		t.Fatalf("Intake: %v", err)
	}
	if result.CorretorID != nil {
		t.Fatalf("expected unassigned lead, got owner %v", result.CorretorID)
	}

	for _, name := range bus.names() {
		if name == "leads.lead.assigned" {
			t.Fatal("no LeadAssigned event expected for unassigned intake")
		}
	}
}

func TestIntakeFallsBackToFirstFunnel(t *testing.T) {
	funnel := testFunnel()
	svc := newTestService(newFakeRepo(), &fakeFunnels{first: &funnel}, &fakeAssigner{}, &recordingBus{})

	result, err := svc.Intake(context.Background(), transport.IntakeLeadRequest{
		NomeCompleto: "Ana Lima",
		Telefone:     "11912345678",
	})
	if err != nil {
		t.Fatalf("Intake: %v", err)
	}
	if result.FunnelID != funnel.ID {
		t.Fatalf("expected fallback funnel %s, got %s", funnel.ID, result.FunnelID)
	}
}

func TestIntakeNoFunnelConfigured(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeFunnels{}, &fakeAssigner{}, &recordingBus{})

	_, err := svc.Intake(context.Background(), transport.IntakeLeadRequest{
		NomeCompleto: "Ana Lima",
		Telefone:     "11912345678",
	})
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict when no funnel exists, got %v", err)
	}
}

func TestIntakeFunnelWithoutStages(t *testing.T) {
	funnel := ports.Funnel{ID: uuid.New(), Name: "Vazio"}
	svc := newTestService(newFakeRepo(), &fakeFunnels{defaultEntry: &funnel}, &fakeAssigner{}, &recordingBus{})

	_, err := svc.Intake(context.Background(), transport.IntakeLeadRequest{
		NomeCompleto: "Ana Lima",
		Telefone:     "11912345678",
	})
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict for stageless funnel, got %v", err)
	}
}

func TestMoveStageSameStageIsNoop(t *testing.T) {
	funnel := testFunnel()
	repo := newFakeRepo()
	bus := &recordingBus{}
	svc := newTestService(repo, &fakeFunnels{defaultEntry: &funnel}, &fakeAssigner{}, bus)

	brokerID := uuid.New()
	identity := httpkit.NewIdentity(brokerID, httpkit.RoleCorretor)
	created, err := svc.Create(context.Background(), identity, transport.CreateLeadRequest{
		NomeCompleto: "Maria Souza",
		Telefone:     "11987654321",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	before := len(bus.names())
	result, err := svc.MoveStage(context.Background(), identity, created.ID, transport.MoveStageRequest{
		FunnelStageID: created.FunnelStageID,
	})
	if err != nil {
		t.Fatalf("MoveStage: %v", err)
	}
	if result.FunnelStageID != created.FunnelStageID {
		t.Fatalf("stage changed on no-op move")
	}
	if got := len(bus.names()); got != before {
		t.Fatalf("no events expected for same-stage move, got %d new", got-before)
	}
}

func TestMoveStagePublishesEvent(t *testing.T) {
	funnel := testFunnel()
	repo := newFakeRepo()
	bus := &recordingBus{}
	svc := newTestService(repo, &fakeFunnels{defaultEntry: &funnel}, &fakeAssigner{}, bus)

	brokerID := uuid.New()
	identity := httpkit.NewIdentity(brokerID, httpkit.RoleCorretor)
	created, err := svc.Create(context.Background(), identity, transport.CreateLeadRequest{
		NomeCompleto: "Maria Souza",
		Telefone:     "11987654321",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var target ports.Stage
	for _, s := range funnel.Stages {
		if s.ID != created.FunnelStageID {
			target = s
			break
		}
	}

	result, err := svc.MoveStage(context.Background(), identity, created.ID, transport.MoveStageRequest{
		FunnelStageID: target.ID,
	})
	if err != nil {
		t.Fatalf("MoveStage: %v", err)
	}
	if result.FunnelStageID != target.ID {
		t.Fatalf("expected stage %s, got %s", target.ID, result.FunnelStageID)
	}

	var moved *events.LeadStageMoved
	for _, e := range bus.events {
		if ev, ok := e.(events.LeadStageMoved); ok {
			moved = &ev
		}
	}
	if moved == nil {
		t.Fatal("expected LeadStageMoved event")
	}
	if moved.FromStageID != created.FunnelStageID || moved.ToStageID != target.ID {
		t.Fatalf("event stages wrong: from %s to %s", moved.FromStageID, moved.ToStageID)
	}
}

func TestBrokerCannotTouchForeignLead(t *testing.T) {
	funnel := testFunnel()
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeFunnels{defaultEntry: &funnel}, &fakeAssigner{}, &recordingBus{})

	owner := httpkit.NewIdentity(uuid.New(), httpkit.RoleCorretor)
	created, err := svc.Create(context.Background(), owner, transport.CreateLeadRequest{
		NomeCompleto: "Maria Souza",
		Telefone:     "11987654321",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	other := httpkit.NewIdentity(uuid.New(), httpkit.RoleCorretor)
	_, err = svc.GetByID(context.Background(), other, created.ID)
	if apperr.GetKind(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden for foreign broker, got %v", err)
	}

	_, err = svc.SetStatus(context.Background(), other, created.ID, transport.SetStatusRequest{OverallStatus: "won"})
	if apperr.GetKind(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden status change, got %v", err)
	}

	manager := httpkit.NewIdentity(uuid.New(), httpkit.RoleGerente)
	if _, err := svc.GetByID(context.Background(), manager, created.ID); err != nil {
		t.Fatalf("manager read: %v", err)
	}
}

func TestReassignRequiresManager(t *testing.T) {
	funnel := testFunnel()
	repo := newFakeRepo()
	bus := &recordingBus{}
	svc := newTestService(repo, &fakeFunnels{defaultEntry: &funnel}, &fakeAssigner{}, bus)

	owner := httpkit.NewIdentity(uuid.New(), httpkit.RoleCorretor)
	created, err := svc.Create(context.Background(), owner, transport.CreateLeadRequest{
		NomeCompleto: "Maria Souza",
		Telefone:     "11987654321",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	target := uuid.New()
	_, err = svc.Update(context.Background(), owner, created.ID, transport.UpdateLeadRequest{
		CorretorID: transport.OptionalUUID{Value: &target, Set: true},
	})
	if apperr.GetKind(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden for broker reassign, got %v", err)
	}

	manager := httpkit.NewIdentity(uuid.New(), httpkit.RoleGerente)
	result, err := svc.Update(context.Background(), manager, created.ID, transport.UpdateLeadRequest{
		CorretorID: transport.OptionalUUID{Value: &target, Set: true},
	})
	if err != nil {
		t.Fatalf("manager reassign: %v", err)
	}
	if result.CorretorID == nil || *result.CorretorID != target {
		t.Fatalf("expected owner %s, got %v", target, result.CorretorID)
	}

	found := false
	for _, e := range bus.events {
		if ev, ok := e.(events.LeadAssigned); ok && ev.CorretorID == target && !ev.Automatic {
			found = true
		}
	}
	if !found {
		t.Fatal("expected manual LeadAssigned event after reassignment")
	}
}

func TestListScopesBrokerToOwnLeads(t *testing.T) {
	funnel := testFunnel()
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeFunnels{defaultEntry: &funnel}, &fakeAssigner{}, &recordingBus{})

	owner := httpkit.NewIdentity(uuid.New(), httpkit.RoleCorretor)
	other := httpkit.NewIdentity(uuid.New(), httpkit.RoleCorretor)
	for _, id := range []httpkit.Identity{owner, other} {
		if _, err := svc.Create(context.Background(), id, transport.CreateLeadRequest{
			NomeCompleto: "Lead " + id.UserID().String()[:8],
			Telefone:     "11987654321",
		}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	mine, err := svc.List(context.Background(), owner, ListParams{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("broker should only see own leads, got %d", len(mine))
	}

	manager := httpkit.NewIdentity(uuid.New(), httpkit.RoleAdmin)
	all, err := svc.List(context.Background(), manager, ListParams{})
	if err != nil {
		t.Fatalf("List as manager: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("manager should see every lead, got %d", len(all))
	}
}

func TestSetStatusRejectsUnknown(t *testing.T) {
	funnel := testFunnel()
	svc := newTestService(newFakeRepo(), &fakeFunnels{defaultEntry: &funnel}, &fakeAssigner{}, &recordingBus{})

	identity := httpkit.NewIdentity(uuid.New(), httpkit.RoleGerente)
	_, err := svc.SetStatus(context.Background(), identity, uuid.New(), transport.SetStatusRequest{OverallStatus: "archived"})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
}
