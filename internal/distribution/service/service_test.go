package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"tradematch_backend/internal/distribution/matcher"
	"tradematch_backend/internal/distribution/ports"
	"tradematch_backend/internal/distribution/pricing"
	"tradematch_backend/internal/distribution/refund"
	"tradematch_backend/internal/distribution/repository"
	"tradematch_backend/internal/distribution/transport"
	"tradematch_backend/internal/events"
	"tradematch_backend/platform/apperr"
	"tradematch_backend/platform/logger"
)

// fakeTx satisfies pgx.Tx for the service's transaction plumbing. Only
// Commit and Rollback are ever called; anything else panics loudly.
type fakeTx struct {
	pgx.Tx
	commits   int
	rollbacks int
}

func (t *fakeTx) Commit(_ context.Context) error {
	t.commits++
	return nil
}

func (t *fakeTx) Rollback(_ context.Context) error {
	t.rollbacks++
	return nil
}

type fakeRepo struct {
	offers     map[string]*repository.Distribution
	candidates []repository.CandidateRow
	rates      pricing.Rates
	created    []repository.Distribution
	logEntries []repository.AcceptanceLog
	sweepLeads []uuid.UUID
	lastTx     *fakeTx
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{offers: make(map[string]*repository.Distribution)}
}

func offerKey(leadID, vendorID uuid.UUID) string {
	return leadID.String() + "/" + vendorID.String()
}

func (r *fakeRepo) put(d repository.Distribution) *repository.Distribution {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	stored := d
	r.offers[offerKey(d.LeadID, d.VendorID)] = &stored
	return &stored
}

func (r *fakeRepo) byID(id uuid.UUID) (*repository.Distribution, bool) {
	for _, d := range r.offers {
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}

func (r *fakeRepo) BeginTx(_ context.Context) (pgx.Tx, error) {
	r.lastTx = &fakeTx{}
	return r.lastTx, nil
}

func (r *fakeRepo) CreateOffers(_ context.Context, offers []repository.Distribution) (int, error) {
	created := 0
	for _, o := range offers {
		if _, exists := r.offers[offerKey(o.LeadID, o.VendorID)]; exists {
			continue
		}
		o.State = repository.StateOffered
		r.put(o)
		r.created = append(r.created, o)
		created++
	}
	return created, nil
}

func (r *fakeRepo) GetForVendor(_ context.Context, leadID, vendorID uuid.UUID) (repository.Distribution, error) {
	d, ok := r.offers[offerKey(leadID, vendorID)]
	if !ok {
		return repository.Distribution{}, apperr.NotFound("offer not found")
	}
	return *d, nil
}

func (r *fakeRepo) GetForVendorForUpdate(ctx context.Context, _ pgx.Tx, leadID, vendorID uuid.UUID) (repository.Distribution, error) {
	return r.GetForVendor(ctx, leadID, vendorID)
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Distribution, error) {
	d, ok := r.byID(id)
	if !ok {
		return repository.Distribution{}, apperr.NotFound("offer not found")
	}
	return *d, nil
}

func (r *fakeRepo) GetByIDForUpdate(ctx context.Context, _ pgx.Tx, id uuid.UUID) (repository.Distribution, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeRepo) MarkAccepted(_ context.Context, _ pgx.Tx, id uuid.UUID, decidedAt time.Time, autoAccepted bool) error {
	d, ok := r.byID(id)
	if !ok || d.State != repository.StateOffered {
		return apperr.InvalidState("offer is no longer open")
	}
	d.State = repository.StateAccepted
	d.DecidedAt = &decidedAt
	d.AutoAccepted = autoAccepted
	return nil
}

func (r *fakeRepo) MarkDeclined(_ context.Context, leadID, vendorID uuid.UUID, decidedAt time.Time, reason *string) (repository.Distribution, bool, error) {
	d, ok := r.offers[offerKey(leadID, vendorID)]
	if !ok || d.State != repository.StateOffered {
		return repository.Distribution{}, false, nil
	}
	d.State = repository.StateDeclined
	d.DecidedAt = &decidedAt
	d.DeclineReason = reason
	return *d, true, nil
}

func (r *fakeRepo) MarkExpired(_ context.Context, _ pgx.Tx, id uuid.UUID, decidedAt time.Time) error {
	d, ok := r.byID(id)
	if !ok {
		return apperr.NotFound("offer not found")
	}
	if d.State == repository.StateOffered {
		d.State = repository.StateExpired
		d.DecidedAt = &decidedAt
	}
	return nil
}

func (r *fakeRepo) MarkRefunded(_ context.Context, _ pgx.Tx, id uuid.UUID, refundedAt time.Time) error {
	d, ok := r.byID(id)
	if !ok || d.RefundedAt != nil {
		return apperr.AlreadyRefunded("distribution already refunded")
	}
	d.RefundedAt = &refundedAt
	return nil
}

func (r *fakeRepo) ExpireSweep(_ context.Context, now time.Time) ([]uuid.UUID, error) {
	var swept []uuid.UUID
	for _, d := range r.offers {
		if d.State == repository.StateOffered && !d.ExpiresAt.After(now) {
			d.State = repository.StateExpired
			at := now
			d.DecidedAt = &at
			swept = append(swept, d.LeadID)
		}
	}
	return swept, nil
}

func (r *fakeRepo) ListOfferedForVendor(_ context.Context, _ uuid.UUID, _ time.Time) ([]repository.OfferedLeadRow, error) {
	return nil, nil
}

func (r *fakeRepo) Candidates(_ context.Context, _ repository.CandidateQuery) ([]repository.CandidateRow, error) {
	return r.candidates, nil
}

func (r *fakeRepo) LoadRates(_ context.Context) (pricing.Rates, error) {
	return r.rates, nil
}

func (r *fakeRepo) InsertAcceptanceLog(_ context.Context, _ pgx.Tx, entry repository.AcceptanceLog) error {
	r.logEntries = append(r.logEntries, entry)
	return nil
}

var _ repository.Repository = (*fakeRepo)(nil)

type chargeCall struct {
	params ports.ChargeParams
}

type fakeLedger struct {
	balance  int64
	replayed bool
	charges  []chargeCall
	refunds  []ports.RefundParams
	refunded map[uuid.UUID]int64
}

func (l *fakeLedger) Charge(_ context.Context, _ pgx.Tx, params ports.ChargeParams) (ports.ApplyResult, error) {
	if l.balance < params.AmountCents {
		return ports.ApplyResult{}, apperr.InsufficientBalance("insufficient credits")
	}
	l.charges = append(l.charges, chargeCall{params: params})
	if !l.replayed {
		l.balance -= params.AmountCents
	}
	return ports.ApplyResult{EntryID: uuid.New(), BalanceCents: l.balance, Replayed: l.replayed}, nil
}

func (l *fakeLedger) Refund(_ context.Context, _ pgx.Tx, params ports.RefundParams) (ports.ApplyResult, error) {
	l.refunds = append(l.refunds, params)
	l.balance += params.AmountCents
	return ports.ApplyResult{EntryID: uuid.New(), BalanceCents: l.balance}, nil
}

func (l *fakeLedger) RefundedAmount(_ context.Context, _ pgx.Tx, distributionID uuid.UUID) (int64, bool, error) {
	amount, ok := l.refunded[distributionID]
	return amount, ok, nil
}

var _ ports.Ledger = (*fakeLedger)(nil)

type fakeGuard struct {
	err      error
	consumed []int64
}

func (g *fakeGuard) CheckAndConsume(_ context.Context, _ pgx.Tx, _ uuid.UUID, amountCents int64, _ time.Time) error {
	if g.err != nil {
		return g.err
	}
	g.consumed = append(g.consumed, amountCents)
	return nil
}

var _ ports.SpendGuard = (*fakeGuard)(nil)

type fakeLeads struct {
	detail transport.AcceptedLead
	err    error
}

func (f *fakeLeads) FullDetail(_ context.Context, leadID uuid.UUID) (transport.AcceptedLead, error) {
	if f.err != nil {
		return transport.AcceptedLead{}, f.err
	}
	detail := f.detail
	detail.ID = leadID
	return detail, nil
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(_ context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	out := make([]string, len(b.published))
	for i, e := range b.published {
		out[i] = e.EventName()
	}
	return out
}

type matchPolicy struct{}

func (matchPolicy) GetMatchRadiusKm() float64 { return 50 }
func (matchPolicy) GetMatchScoreFloor() float64 {
	return 40
}
func (matchPolicy) GetMaxVendorsPerLead() int { return 5 }
func (matchPolicy) GetMinVendorsPerLead() int { return 1 }

type pricePolicy struct{}

func (pricePolicy) GetPriceFloorCents() int64   { return 200 }
func (pricePolicy) GetPriceCeilingCents() int64 { return 5000 }

type refundPolicy struct{}

func (refundPolicy) GetRefundPercentages() map[string]float64 {
	return map[string]float64{"invalid_contact": 1.0, "duplicate": 0.5}
}

type offerPolicy struct{ ttl time.Duration }

func (p offerPolicy) GetOfferTTL() time.Duration { return p.ttl }

type fixture struct {
	svc    *Service
	repo   *fakeRepo
	ledger *fakeLedger
	guard  *fakeGuard
	bus    *recordingBus
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := newFakeRepo()
	ledger := &fakeLedger{balance: 10_000, refunded: make(map[uuid.UUID]int64)}
	guard := &fakeGuard{}
	bus := &recordingBus{}
	phone := "+447700900123"
	leads := &fakeLeads{detail: transport.AcceptedLead{
		Category:      "plumbing",
		Postcode:      "SW1A 1AA",
		CustomerName:  "Ada Price",
		CustomerEmail: "ada@example.com",
		CustomerPhone: &phone,
	}}

	svc := New(
		repo,
		matcher.New(matchPolicy{}),
		pricing.New(pricePolicy{}),
		refund.New(refundPolicy{}),
		ledger, guard, leads, bus,
		offerPolicy{ttl: time.Hour},
		logger.New("test"),
	)

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	return &fixture{svc: svc, repo: repo, ledger: ledger, guard: guard, bus: bus, now: now}
}

func (f *fixture) seedOffer(state string, expiresAt time.Time) *repository.Distribution {
	return f.repo.put(repository.Distribution{
		LeadID:     uuid.New(),
		VendorID:   uuid.New(),
		State:      state,
		PriceCents: 900,
		MatchScore: 72.5,
		MatchRank:  1,
		OfferedAt:  f.now.Add(-10 * time.Minute),
		ExpiresAt:  expiresAt,
	})
}

func TestAcceptChargesAndFlipsState(t *testing.T) {
	f := newFixture(t)
	offer := f.seedOffer(repository.StateOffered, f.now.Add(30*time.Minute))

	resp, err := f.svc.Accept(context.Background(), offer.LeadID, offer.VendorID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}

	if offer.State != repository.StateAccepted {
		t.Errorf("state = %s, want ACCEPTED", offer.State)
	}
	if resp.PriceCents != 900 {
		t.Errorf("PriceCents = %d, want 900", resp.PriceCents)
	}
	if resp.BalanceCents != 9100 {
		t.Errorf("BalanceCents = %d, want 9100", resp.BalanceCents)
	}
	if resp.Lead.CustomerPhone == nil {
		t.Error("accepted lead should reveal customer phone")
	}

	if len(f.ledger.charges) != 1 {
		t.Fatalf("charges = %d, want 1", len(f.ledger.charges))
	}
	wantKey := fmt.Sprintf("lead_acceptance:%s:%s", offer.LeadID, offer.VendorID)
	if got := f.ledger.charges[0].params.IdempotencyKey; got != wantKey {
		t.Errorf("idempotency key = %q, want %q", got, wantKey)
	}
	if len(f.guard.consumed) != 1 || f.guard.consumed[0] != 900 {
		t.Errorf("spend guard consumed %v, want [900]", f.guard.consumed)
	}
	if len(f.repo.logEntries) != 1 || f.repo.logEntries[0].AutoAccepted {
		t.Errorf("acceptance log = %+v, want one manual entry", f.repo.logEntries)
	}
	if f.repo.lastTx.commits != 1 {
		t.Errorf("commits = %d, want 1", f.repo.lastTx.commits)
	}

	names := f.bus.names()
	if len(names) != 1 || names[0] != "distribution.offer.accepted" {
		t.Errorf("published = %v, want [distribution.offer.accepted]", names)
	}
}

func TestAcceptReplayedChargeSurfaces(t *testing.T) {
	f := newFixture(t)
	f.ledger.replayed = true
	offer := f.seedOffer(repository.StateOffered, f.now.Add(30*time.Minute))

	resp, err := f.svc.Accept(context.Background(), offer.LeadID, offer.VendorID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if !resp.Replayed {
		t.Error("Replayed = false, want true")
	}
	if resp.BalanceCents != 10_000 {
		t.Errorf("BalanceCents = %d, want balance untouched on replay", resp.BalanceCents)
	}
}

func TestAcceptExpiredOfferFlipsAndFails(t *testing.T) {
	f := newFixture(t)
	offer := f.seedOffer(repository.StateOffered, f.now.Add(-time.Minute))

	_, err := f.svc.Accept(context.Background(), offer.LeadID, offer.VendorID)
	if !apperr.Is(err, apperr.KindGone) {
		t.Fatalf("err = %v, want KindGone", err)
	}

	if offer.State != repository.StateExpired {
		t.Errorf("state = %s, want EXPIRED", offer.State)
	}
	// The expiry flip commits on its own so the state survives the failure.
	if f.repo.lastTx.commits != 1 {
		t.Errorf("commits = %d, want 1", f.repo.lastTx.commits)
	}
	if len(f.ledger.charges) != 0 {
		t.Errorf("charges = %d, want none", len(f.ledger.charges))
	}
}

func TestAcceptNonOpenOffer(t *testing.T) {
	f := newFixture(t)

	for _, state := range []string{repository.StateAccepted, repository.StateDeclined, repository.StateExpired} {
		t.Run(strings.ToLower(state), func(t *testing.T) {
			offer := f.seedOffer(state, f.now.Add(30*time.Minute))

			_, err := f.svc.Accept(context.Background(), offer.LeadID, offer.VendorID)
			if !apperr.Is(err, apperr.KindInvalidState) {
				t.Fatalf("err = %v, want KindInvalidState", err)
			}
		})
	}

	if len(f.ledger.charges) != 0 {
		t.Errorf("charges = %d, want none", len(f.ledger.charges))
	}
}

func TestAcceptBlockedBySpendGuard(t *testing.T) {
	f := newFixture(t)
	f.guard.err = apperr.SpendLimit("daily spend limit reached")
	offer := f.seedOffer(repository.StateOffered, f.now.Add(30*time.Minute))

	_, err := f.svc.Accept(context.Background(), offer.LeadID, offer.VendorID)
	if !apperr.Is(err, apperr.KindSpendLimit) {
		t.Fatalf("err = %v, want KindSpendLimit", err)
	}

	if offer.State != repository.StateOffered {
		t.Errorf("state = %s, want offer left open", offer.State)
	}
	if f.repo.lastTx.commits != 0 {
		t.Errorf("commits = %d, want 0", f.repo.lastTx.commits)
	}
	if f.repo.lastTx.rollbacks == 0 {
		t.Error("transaction was never rolled back")
	}
}

func TestDeclineIsIdempotent(t *testing.T) {
	f := newFixture(t)
	offer := f.seedOffer(repository.StateOffered, f.now.Add(30*time.Minute))

	first, err := f.svc.Decline(context.Background(), offer.LeadID, offer.VendorID, "")
	if err != nil {
		t.Fatalf("first decline: %v", err)
	}
	if first.State != repository.StateDeclined {
		t.Errorf("state = %s, want DECLINED", first.State)
	}

	second, err := f.svc.Decline(context.Background(), offer.LeadID, offer.VendorID, "")
	if err != nil {
		t.Fatalf("repeat decline: %v", err)
	}
	if second.State != repository.StateDeclined {
		t.Errorf("repeat state = %s, want DECLINED", second.State)
	}

	names := f.bus.names()
	if len(names) != 1 || names[0] != "distribution.offer.declined" {
		t.Errorf("published = %v, want one distribution.offer.declined", names)
	}
}

func TestAcceptInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	f.ledger.balance = 500
	offer := f.seedOffer(repository.StateOffered, f.now.Add(30*time.Minute))

	_, err := f.svc.Accept(context.Background(), offer.LeadID, offer.VendorID)
	if !apperr.Is(err, apperr.KindInsufficientBalance) {
		t.Fatalf("err = %v, want KindInsufficientBalance", err)
	}

	if offer.State != repository.StateOffered {
		t.Errorf("state = %s, want offer left open", offer.State)
	}
	if f.ledger.balance != 500 {
		t.Errorf("balance = %d, want untouched 500", f.ledger.balance)
	}
	if f.repo.lastTx.commits != 0 {
		t.Errorf("commits = %d, want 0", f.repo.lastTx.commits)
	}
	if f.repo.lastTx.rollbacks == 0 {
		t.Error("transaction was never rolled back")
	}
	if len(f.repo.logEntries) != 0 {
		t.Errorf("acceptance log entries = %d, want none", len(f.repo.logEntries))
	}
	if len(f.bus.published) != 0 {
		t.Errorf("published = %v, want nothing", f.bus.names())
	}
}

func TestAcceptExactBalanceSucceeds(t *testing.T) {
	f := newFixture(t)
	f.ledger.balance = 900
	offer := f.seedOffer(repository.StateOffered, f.now.Add(30*time.Minute))

	resp, err := f.svc.Accept(context.Background(), offer.LeadID, offer.VendorID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if resp.BalanceCents != 0 {
		t.Errorf("BalanceCents = %d, want balance drained to 0", resp.BalanceCents)
	}
	if offer.State != repository.StateAccepted {
		t.Errorf("state = %s, want ACCEPTED", offer.State)
	}
}

func TestDeclineRecordsReason(t *testing.T) {
	f := newFixture(t)
	offer := f.seedOffer(repository.StateOffered, f.now.Add(30*time.Minute))

	_, err := f.svc.Decline(context.Background(), offer.LeadID, offer.VendorID, "too far out")
	if err != nil {
		t.Fatalf("Decline: %v", err)
	}

	if offer.DeclineReason == nil || *offer.DeclineReason != "too far out" {
		t.Errorf("stored reason = %v, want \"too far out\"", offer.DeclineReason)
	}

	if len(f.bus.published) != 1 {
		t.Fatalf("published = %d events, want 1", len(f.bus.published))
	}
	event, ok := f.bus.published[0].(events.OfferDeclined)
	if !ok {
		t.Fatalf("published %T, want events.OfferDeclined", f.bus.published[0])
	}
	if event.Reason != "too far out" {
		t.Errorf("event reason = %q, want \"too far out\"", event.Reason)
	}
	if event.DistributionID != offer.ID {
		t.Errorf("event distribution = %s, want %s", event.DistributionID, offer.ID)
	}
}

func TestDeclineAcceptedOfferFails(t *testing.T) {
	f := newFixture(t)
	offer := f.seedOffer(repository.StateAccepted, f.now.Add(30*time.Minute))

	_, err := f.svc.Decline(context.Background(), offer.LeadID, offer.VendorID, "")
	if !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("err = %v, want KindInvalidState", err)
	}
}

func TestExpireSweepPublishesCount(t *testing.T) {
	f := newFixture(t)
	f.seedOffer(repository.StateOffered, f.now.Add(-time.Hour))
	f.seedOffer(repository.StateOffered, f.now.Add(-time.Minute))
	kept := f.seedOffer(repository.StateOffered, f.now.Add(time.Hour))

	count, err := f.svc.ExpireSweep(context.Background())
	if err != nil {
		t.Fatalf("ExpireSweep: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if kept.State != repository.StateOffered {
		t.Errorf("future offer state = %s, want still open", kept.State)
	}

	names := f.bus.names()
	if len(names) != 1 || names[0] != "distribution.offers.expired" {
		t.Errorf("published = %v, want [distribution.offers.expired]", names)
	}
}

func TestIssueRefundCreditsLedger(t *testing.T) {
	f := newFixture(t)
	offer := f.seedOffer(repository.StateAccepted, f.now.Add(time.Hour))

	resp, err := f.svc.IssueRefund(context.Background(), offer.ID, "duplicate")
	if err != nil {
		t.Fatalf("IssueRefund: %v", err)
	}

	if resp.AmountCents != 450 {
		t.Errorf("AmountCents = %d, want 450 (50%% of 900)", resp.AmountCents)
	}
	if offer.RefundedAt == nil {
		t.Error("RefundedAt not stamped")
	}
	if len(f.ledger.refunds) != 1 {
		t.Fatalf("refunds = %d, want 1", len(f.ledger.refunds))
	}
	wantKey := fmt.Sprintf("refund:%s", offer.ID)
	if got := f.ledger.refunds[0].IdempotencyKey; got != wantKey {
		t.Errorf("idempotency key = %q, want %q", got, wantKey)
	}
	if f.repo.lastTx.commits != 1 {
		t.Errorf("commits = %d, want 1", f.repo.lastTx.commits)
	}
}

func TestIssueRefundRejectsNonAccepted(t *testing.T) {
	f := newFixture(t)
	offer := f.seedOffer(repository.StateOffered, f.now.Add(time.Hour))

	_, err := f.svc.IssueRefund(context.Background(), offer.ID, "duplicate")
	if !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("err = %v, want KindInvalidState", err)
	}
}

func TestIssueRefundDoubleRefund(t *testing.T) {
	f := newFixture(t)
	offer := f.seedOffer(repository.StateAccepted, f.now.Add(time.Hour))

	if _, err := f.svc.IssueRefund(context.Background(), offer.ID, "invalid_contact"); err != nil {
		t.Fatalf("first refund: %v", err)
	}
	_, err := f.svc.IssueRefund(context.Background(), offer.ID, "invalid_contact")
	if !apperr.Is(err, apperr.KindAlreadyRefunded) {
		t.Fatalf("err = %v, want KindAlreadyRefunded", err)
	}
}

func TestIssueRefundLedgerDoubleCheck(t *testing.T) {
	f := newFixture(t)
	offer := f.seedOffer(repository.StateAccepted, f.now.Add(time.Hour))
	// The ledger already holds a refund entry even though the offer row was
	// never stamped. The entry log wins.
	f.ledger.refunded[offer.ID] = 450

	_, err := f.svc.IssueRefund(context.Background(), offer.ID, "duplicate")
	if !apperr.Is(err, apperr.KindAlreadyRefunded) {
		t.Fatalf("err = %v, want KindAlreadyRefunded", err)
	}
	if len(f.ledger.refunds) != 0 {
		t.Errorf("refunds = %d, want none", len(f.ledger.refunds))
	}
}

func TestIssueRefundUnknownReason(t *testing.T) {
	f := newFixture(t)
	offer := f.seedOffer(repository.StateAccepted, f.now.Add(time.Hour))

	_, err := f.svc.IssueRefund(context.Background(), offer.ID, "felt_like_it")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want KindValidation", err)
	}
}

func TestDistributeCreatesOffersAndAutoAccepts(t *testing.T) {
	f := newFixture(t)

	autoVendor := uuid.New()
	manualVendor := uuid.New()
	minScore := 30.0
	maxPrice := int64(2000)
	f.repo.candidates = []repository.CandidateRow{
		{
			Candidate: matcher.Candidate{
				VendorID:    autoVendor,
				Postcode:    "SW1A 2BB",
				Specialties: []string{"plumbing"},
			},
			AutoAcceptEnabled:       true,
			AutoAcceptMinScore:      &minScore,
			AutoAcceptMaxPriceCents: &maxPrice,
		},
		{
			Candidate: matcher.Candidate{
				VendorID:    manualVendor,
				Postcode:    "SW1A 3CC",
				Specialties: []string{"plumbing"},
			},
		},
	}

	created, err := f.svc.Distribute(context.Background(), ScoredLead{
		LeadID:       uuid.New(),
		Category:     "plumbing",
		Postcode:     "SW1A 1AA",
		QualityScore: 85,
		QualityTier:  "premium",
	})
	if err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	if created != 2 {
		t.Fatalf("created = %d, want 2", created)
	}

	for _, offer := range f.repo.created {
		if !offer.ExpiresAt.Equal(f.now.Add(time.Hour)) {
			t.Errorf("ExpiresAt = %v, want TTL of 1h from distribution", offer.ExpiresAt)
		}
	}

	auto, err := f.repo.GetForVendor(context.Background(), f.repo.created[0].LeadID, autoVendor)
	if err != nil {
		t.Fatalf("auto vendor offer: %v", err)
	}
	if auto.State != repository.StateAccepted || !auto.AutoAccepted {
		t.Errorf("auto vendor offer = %s auto=%v, want auto-accepted", auto.State, auto.AutoAccepted)
	}

	manual, err := f.repo.GetForVendor(context.Background(), f.repo.created[0].LeadID, manualVendor)
	if err != nil {
		t.Fatalf("manual vendor offer: %v", err)
	}
	if manual.State != repository.StateOffered {
		t.Errorf("manual vendor offer = %s, want still open", manual.State)
	}
}

func TestDistributeNoCandidates(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Distribute(context.Background(), ScoredLead{
		LeadID:       uuid.New(),
		Category:     "plumbing",
		Postcode:     "SW1A 1AA",
		QualityScore: 70,
	})
	if err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	if created != 0 {
		t.Errorf("created = %d, want 0", created)
	}
	if len(f.bus.published) != 0 {
		t.Errorf("published = %v, want nothing", f.bus.names())
	}
}
