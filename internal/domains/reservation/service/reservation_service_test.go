package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalog "themepark-backend/internal/domains/catalog/model"
	catalogrepo "themepark-backend/internal/domains/catalog/repository"
	"themepark-backend/internal/domains/payment/gateway/mock"
	pricing "themepark-backend/internal/domains/pricing/model"
	pricingservice "themepark-backend/internal/domains/pricing/service"
	promotion "themepark-backend/internal/domains/promotion/model"
	promotionrepo "themepark-backend/internal/domains/promotion/repository"
	"themepark-backend/internal/domains/reservation/model"
	"themepark-backend/internal/domains/reservation/repository"
	visitor "themepark-backend/internal/domains/visitor/model"
	visitorrepo "themepark-backend/internal/domains/visitor/repository"
	"themepark-backend/internal/shared"
	"themepark-backend/internal/shared/apperror"
	"themepark-backend/internal/shared/utils"
	"themepark-backend/pkg/database"
	"themepark-backend/pkg/database/dbtest"
)

// =====================================================
// FAKES
// =====================================================

type fakeRefunds struct {
	mu        sync.Mutex
	completed map[uuid.UUID]int
}

func newFakeRefunds() *fakeRefunds {
	return &fakeRefunds{completed: make(map[uuid.UUID]int)}
}

func (f *fakeRefunds) IssueCancellationRefundsWithTx(ctx context.Context, tx pgx.Tx, res *model.Reservation, tickets []*model.Ticket, processorID *uuid.UUID) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	total := decimal.Zero
	for _, t := range tickets {
		if item := res.ItemByID(t.ReservationItemID); item != nil {
			total = total.Add(item.PerTicketAmount())
		}
	}
	f.completed[res.ID] += len(tickets)
	return total, nil
}

func (f *fakeRefunds) CountCompletedWithTx(ctx context.Context, tx pgx.Tx, reservationID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed[reservationID], nil
}

type fakeQueue struct {
	mu    sync.Mutex
	tasks []*asynq.Task
}

func (q *fakeQueue) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

type published struct {
	routingKey string
	payload    any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *fakePublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{routingKey, payload})
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, 0, len(p.events))
	for _, e := range p.events {
		keys = append(keys, e.routingKey)
	}
	return keys
}

// exhaustedLedger simulates losing the race for the last redemption after
// pricing already accepted the promotion.
type exhaustedLedger struct {
	*promotionrepo.MemoryRepository
}

func (exhaustedLedger) IncrementUsageWithTx(ctx context.Context, tx pgx.Tx, promotionID uuid.UUID) error {
	return promotion.ErrUsageLimitReached
}

// overlappingTxManager lets transactions interleave, so only the
// repositories' own atomic operations keep state consistent.
type overlappingTxManager struct{}

func (overlappingTxManager) WithTx(ctx context.Context, fn database.TxFunc) error {
	return fn(nil)
}

// scanHookRepository runs afterScan on the ids the expiry scan returns,
// before the sweep acts on them.
type scanHookRepository struct {
	*repository.MemoryRepository
	afterScan func(ids []uuid.UUID)
}

func (r *scanHookRepository) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	ids, err := r.MemoryRepository.ListExpiredPending(ctx, cutoff, limit)
	if err == nil {
		r.afterScan(ids)
	}
	return ids, err
}

// =====================================================
// FIXTURE
// =====================================================

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func intPtr(v int) *int { return &v }

type fixture struct {
	svc        *reservationService
	catalog    *catalogrepo.MemoryRepository
	promotions *promotionrepo.MemoryRepository
	repo       *repository.MemoryRepository
	tickets    *repository.MemoryTicketRepository
	gateway    *mock.MockGateway
	refunds    *fakeRefunds
	queue      *fakeQueue
	events     *fakePublisher

	adult     *catalog.TicketType
	child     *catalog.TicketType
	visitDate time.Time
	start     time.Time
	owner     shared.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	start := time.Now().UTC()
	f := &fixture{
		catalog:    catalogrepo.NewMemoryRepository(),
		promotions: promotionrepo.NewMemoryRepository(),
		gateway:    mock.NewMockGateway(),
		refunds:    newFakeRefunds(),
		queue:      &fakeQueue{},
		events:     &fakePublisher{},
		visitDate:  utils.StartOfDay(start).AddDate(0, 0, 14),
		start:      start,
		owner:      shared.Actor{VisitorID: uuid.New()},
	}
	f.repo, f.tickets = repository.NewMemoryRepositories()

	f.adult = &catalog.TicketType{ID: uuid.New(), Name: "Adult", BasePrice: dec("100"), ApplicableCrowd: "adult", IsActive: true}
	f.child = &catalog.TicketType{ID: uuid.New(), Name: "Child", BasePrice: dec("40"), ApplicableCrowd: "child", IsActive: true}
	require.NoError(t, f.catalog.CreateTicketType(ctx, f.adult))
	require.NoError(t, f.catalog.CreateTicketType(ctx, f.child))

	visitors := visitorrepo.NewMemoryRepository()
	visitors.Put(visitor.VisitorContext{VisitorID: f.owner.VisitorID, VisitorType: "regular", MemberLevel: visitor.MemberLevelGold})

	f.build(f.promotions, visitors)
	return f
}

func (f *fixture) build(ledger PromotionLedger, visitors *visitorrepo.MemoryRepository) {
	pricer := pricingservice.NewPricingService(f.catalog, f.promotions, visitors)
	f.svc = NewReservationService(
		f.repo, f.tickets, f.catalog, pricer, ledger, f.refunds, f.gateway,
		dbtest.NewSerialTxManager(), f.queue, f.events,
		Options{TicketValidityDays: 1, PendingTTL: 30 * time.Minute},
	).(*reservationService)
	f.svc.now = func() time.Time { return f.start }
}

func (f *fixture) at(now time.Time) {
	f.svc.now = func() time.Time { return now }
}

func (f *fixture) addTicketType(t *testing.T, name, price string, limit int) *catalog.TicketType {
	t.Helper()
	tt := &catalog.TicketType{ID: uuid.New(), Name: name, BasePrice: dec(price), ApplicableCrowd: "all", MaxSaleLimit: intPtr(limit), IsActive: true}
	require.NoError(t, f.catalog.CreateTicketType(context.Background(), tt))
	return tt
}

func (f *fixture) addPromotion(t *testing.T, code string, actions ...promotion.Action) *promotion.Promotion {
	t.Helper()
	p := &promotion.Promotion{
		ID:              uuid.New(),
		Code:            code,
		Name:            code,
		Type:            promotion.TypePercentage,
		StartsAt:        f.visitDate.AddDate(0, -1, 0),
		EndsAt:          f.visitDate.AddDate(0, 1, 0),
		IsCombinable:    true,
		DisplayPriority: 1,
		IsActive:        true,
		Actions:         actions,
		Version:         1,
	}
	require.NoError(t, f.promotions.Create(context.Background(), p))
	return p
}

func (f *fixture) createRequest(items ...pricing.ItemRequest) *model.CreateReservationRequest {
	return &model.CreateReservationRequest{
		VisitDate: f.visitDate.Format(utils.DateLayout),
		Items:     items,
	}
}

func (f *fixture) adults(n int) pricing.ItemRequest {
	return pricing.ItemRequest{TicketTypeID: f.adult.ID, Quantity: n}
}

func (f *fixture) create(t *testing.T, items ...pricing.ItemRequest) *model.Reservation {
	t.Helper()
	res, err := f.svc.CreateReservation(context.Background(), f.owner, f.createRequest(items...))
	require.NoError(t, err)
	return res
}

func (f *fixture) pay(t *testing.T, id uuid.UUID) *model.ReservationDetail {
	t.Helper()
	detail, err := f.svc.Pay(context.Background(), f.owner, id, &model.PayRequest{PaymentMethod: model.PaymentMethodCard, PaymentToken: "tok_visa"})
	require.NoError(t, err)
	return detail
}

func requireKind(t *testing.T, err error, kind apperror.Kind, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok, "expected an AppError, got %v", err)
	assert.Equal(t, kind, appErr.Kind)
	assert.Equal(t, code, appErr.Code)
}

// =====================================================
// CREATE
// =====================================================

func TestCreateReservation_FreezesPricesAndRecordsUsage(t *testing.T) {
	f := newFixture(t)
	promo := f.addPromotion(t, "TEN", promotion.PercentageDiscount{Percent: dec("10")}, promotion.PointsAward{Points: 50})

	res := f.create(t, f.adults(5))

	assert.Equal(t, model.StatusPending, res.Status)
	assert.Equal(t, model.PaymentUnpaid, res.PaymentStatus)
	assert.True(t, res.Subtotal.Equal(dec("500")))
	assert.True(t, res.DiscountAmount.Equal(dec("50")))
	assert.True(t, res.Total.Equal(dec("450")))
	assert.Equal(t, 50, res.PointsAwarded)
	require.NotNil(t, res.PromotionID)
	assert.Equal(t, promo.ID, *res.PromotionID)

	require.Len(t, res.Items, 1)
	assert.True(t, res.Items[0].UnitPrice.Equal(dec("100")))
	assert.True(t, res.Items[0].LineTotal.Equal(dec("450")))

	stored, err := f.promotions.GetByID(context.Background(), promo.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CurrentUsageCount)

	usages := f.promotions.Usages()
	require.Len(t, usages, 1)
	assert.Equal(t, res.ID, usages[0].ReservationID)
	assert.True(t, usages[0].DiscountAmount.Equal(dec("50")))
}

func TestCreateReservation_EnforcesSaleLimit(t *testing.T) {
	f := newFixture(t)
	express := f.addTicketType(t, "Express", "150", 3)
	item := func(n int) pricing.ItemRequest { return pricing.ItemRequest{TicketTypeID: express.ID, Quantity: n} }

	first := f.create(t, item(2))

	_, err := f.svc.CreateReservation(context.Background(), f.owner, f.createRequest(item(2)))
	requireKind(t, err, apperror.KindConflict, model.ErrCodeSaleLimitExceeded)

	// cancelling frees the capacity
	_, err = f.svc.Cancel(context.Background(), f.owner, first.ID, &model.CancelRequest{Reason: "changed plans"})
	require.NoError(t, err)
	f.create(t, item(3))
}

func TestCreateReservation_FreeTicketsCountTowardSaleLimit(t *testing.T) {
	f := newFixture(t)
	toddler := f.addTicketType(t, "Toddler", "20", 1)
	f.addPromotion(t, "TODDLERFREE", promotion.FreeTicket{TicketTypeID: toddler.ID, Quantity: 2})

	_, err := f.svc.CreateReservation(context.Background(), f.owner, f.createRequest(f.adults(1)))
	requireKind(t, err, apperror.KindConflict, model.ErrCodeSaleLimitExceeded)
}

func TestCreateReservation_PromotionExhaustedAfterPricing(t *testing.T) {
	f := newFixture(t)
	f.addPromotion(t, "LAST", promotion.PercentageDiscount{Percent: dec("10")})
	f.build(exhaustedLedger{f.promotions}, visitorrepo.NewMemoryRepository())

	_, err := f.svc.CreateReservation(context.Background(), f.owner, f.createRequest(f.adults(1)))
	requireKind(t, err, apperror.KindConflict, model.ErrCodePromotionExhausted)
}

func TestCreateReservation_ConcurrentRedemptionsStopAtUsageLimit(t *testing.T) {
	f := newFixture(t)
	promo := &promotion.Promotion{
		ID:              uuid.New(),
		Code:            "FIRST3",
		Name:            "First three",
		Type:            promotion.TypePercentage,
		StartsAt:        f.visitDate.AddDate(0, -1, 0),
		EndsAt:          f.visitDate.AddDate(0, 1, 0),
		TotalUsageLimit: intPtr(3),
		IsCombinable:    true,
		IsActive:        true,
		Actions:         []promotion.Action{promotion.PercentageDiscount{Percent: dec("10")}},
		Version:         1,
	}
	require.NoError(t, f.promotions.Create(context.Background(), promo))
	f.svc.tx = overlappingTxManager{}

	const attempts = 10
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := f.createRequest(f.adults(1))
			req.PromotionID = &promo.ID
			_, errs[i] = f.svc.CreateReservation(context.Background(), shared.Actor{VisitorID: uuid.New()}, req)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		// losers fail either at pricing (already exhausted) or at the increment
		appErr, ok := apperror.As(err)
		require.True(t, ok, "expected an AppError, got %v", err)
		assert.Contains(t, []string{model.ErrCodePromotionExhausted, pricing.ErrCodePromotionNotEligible}, appErr.Code)
	}
	assert.Equal(t, 3, succeeded)

	stored, err := f.promotions.GetByID(context.Background(), promo.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.CurrentUsageCount)
	assert.Len(t, f.promotions.Usages(), 3)
}

func TestCreateReservation_InvalidVisitDate(t *testing.T) {
	f := newFixture(t)
	req := f.createRequest(f.adults(1))
	req.VisitDate = "04/07/2026"

	_, err := f.svc.CreateReservation(context.Background(), f.owner, req)
	requireKind(t, err, apperror.KindValidation, model.ErrCodeInvalidRequest)
}

// =====================================================
// PAY
// =====================================================

func TestPay_ConfirmsAndIssuesOneTicketPerUnit(t *testing.T) {
	f := newFixture(t)
	f.addPromotion(t, "KIDFREE", promotion.FreeTicket{TicketTypeID: f.child.ID, Quantity: 1}, promotion.PointsAward{Points: 20})
	res := f.create(t, f.adults(2))

	detail := f.pay(t, res.ID)

	assert.Equal(t, model.StatusConfirmed, detail.Status)
	assert.Equal(t, model.PaymentPaid, detail.PaymentStatus)
	require.NotNil(t, detail.PaymentReference)
	require.NotNil(t, detail.PaidAt)
	require.Len(t, detail.Tickets, 3)

	serials := map[string]bool{}
	for _, ticket := range detail.Tickets {
		assert.Equal(t, model.TicketValid, ticket.Status)
		assert.Len(t, ticket.SerialNumber, 19)
		assert.True(t, ticket.ValidFrom.Equal(f.visitDate))
		assert.True(t, ticket.ValidTo.Equal(f.visitDate.AddDate(0, 0, 1)))
		serials[ticket.SerialNumber] = true
	}
	assert.Len(t, serials, 3)

	charges := f.gateway.Charges()
	require.Len(t, charges, 1)
	assert.True(t, charges[0].Amount.Equal(dec("200")))

	require.Len(t, f.queue.tasks, 1)
	assert.Equal(t, shared.TypeAwardPoints, f.queue.tasks[0].Type())
	var payload visitor.AwardPointsPayload
	require.NoError(t, json.Unmarshal(f.queue.tasks[0].Payload(), &payload))
	assert.Equal(t, 20, payload.Points)
	assert.Equal(t, res.ID.String(), payload.ReservationID)

	assert.Equal(t, []string{shared.EventReservationConfirmed}, f.events.keys())
}

func TestPay_IsIdempotentOnceConfirmed(t *testing.T) {
	f := newFixture(t)
	res := f.create(t, f.adults(2))

	first := f.pay(t, res.ID)
	second := f.pay(t, res.ID)

	assert.Equal(t, model.StatusConfirmed, second.Status)
	assert.Equal(t, first.PaymentReference, second.PaymentReference)
	assert.Len(t, second.Tickets, 2)
	assert.Len(t, f.gateway.Charges(), 1)
	assert.Len(t, f.events.keys(), 1)
}

func TestPay_ConcurrentCallsIssueOneTicketSet(t *testing.T) {
	f := newFixture(t)
	res := f.create(t, f.adults(3))

	const attempts = 5
	var wg sync.WaitGroup
	details := make([]*model.ReservationDetail, attempts)
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			details[i], errs[i] = f.svc.Pay(context.Background(), f.owner, res.ID,
				&model.PayRequest{PaymentMethod: model.PaymentMethodCard, PaymentToken: "tok_visa"})
		}()
	}
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
		assert.Equal(t, model.StatusConfirmed, details[i].Status)
		assert.Len(t, details[i].Tickets, 3)
		assert.Equal(t, details[0].PaymentReference, details[i].PaymentReference)
	}

	tickets, err := f.tickets.ListByReservation(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Len(t, tickets, 3)
	assert.Len(t, f.gateway.Charges(), 1)
	assert.Equal(t, []string{shared.EventReservationConfirmed}, f.events.keys())
}

func TestPay_DeclineLeavesReservationPending(t *testing.T) {
	f := newFixture(t)
	res := f.create(t, f.adults(1))

	_, err := f.svc.Pay(context.Background(), f.owner, res.ID, &model.PayRequest{
		PaymentMethod: model.PaymentMethodCard,
		PaymentToken:  mock.DeclineTokenPrefix + "_insufficient_funds",
	})
	requireKind(t, err, apperror.KindPaymentDeclined, model.ErrCodePaymentDeclined)

	stored, err := f.repo.GetByID(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, stored.Status)
	assert.Equal(t, model.PaymentUnpaid, stored.PaymentStatus)

	tickets, err := f.tickets.ListByReservation(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Empty(t, tickets)

	// a later attempt with a good instrument succeeds
	detail := f.pay(t, res.ID)
	assert.Equal(t, model.StatusConfirmed, detail.Status)
}

func TestPay_ZeroTotalSkipsGateway(t *testing.T) {
	f := newFixture(t)
	f.addPromotion(t, "COMP", promotion.FixedPrice{Price: decimal.Zero})
	res := f.create(t, f.adults(2))
	require.True(t, res.Total.IsZero())

	detail := f.pay(t, res.ID)

	assert.Equal(t, model.StatusConfirmed, detail.Status)
	assert.Nil(t, detail.PaymentReference)
	assert.Empty(t, f.gateway.Charges())
	assert.Len(t, detail.Tickets, 2)
}

func TestPay_RetriesSerialCollisions(t *testing.T) {
	f := newFixture(t)
	res := f.create(t, f.adults(2))
	f.tickets.ForcedCollisions = maxSerialAttempts - 1

	detail := f.pay(t, res.ID)
	assert.Len(t, detail.Tickets, 2)
}

func TestPay_GivesUpAfterRepeatedCollisions(t *testing.T) {
	f := newFixture(t)
	res := f.create(t, f.adults(2))
	f.tickets.ForcedCollisions = maxSerialAttempts

	_, err := f.svc.Pay(context.Background(), f.owner, res.ID, &model.PayRequest{PaymentMethod: model.PaymentMethodCard})
	requireKind(t, err, apperror.KindInternal, model.ErrCodeInternal)
}

func TestPay_Authorisation(t *testing.T) {
	f := newFixture(t)
	res := f.create(t, f.adults(1))
	req := &model.PayRequest{PaymentMethod: model.PaymentMethodCash}

	_, err := f.svc.Pay(context.Background(), shared.Actor{VisitorID: uuid.New()}, res.ID, req)
	requireKind(t, err, apperror.KindForbidden, model.ErrCodeForbidden)

	detail, err := f.svc.Pay(context.Background(), shared.Actor{VisitorID: uuid.New(), IsAdmin: true}, res.ID, req)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, detail.Status)
}

func TestPay_CancelledReservationConflicts(t *testing.T) {
	f := newFixture(t)
	res := f.create(t, f.adults(1))
	_, err := f.svc.Cancel(context.Background(), f.owner, res.ID, &model.CancelRequest{Reason: "changed plans"})
	require.NoError(t, err)

	_, err = f.svc.Pay(context.Background(), f.owner, res.ID, &model.PayRequest{PaymentMethod: model.PaymentMethodCard})
	requireKind(t, err, apperror.KindConflict, model.ErrCodeInvalidStatus)
}

func TestPay_UnknownReservation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Pay(context.Background(), f.owner, uuid.New(), &model.PayRequest{PaymentMethod: model.PaymentMethodCard})
	requireKind(t, err, apperror.KindNotFound, model.ErrCodeReservationNotFound)
}

// =====================================================
// CANCEL
// =====================================================

func TestCancel_PendingReleasesPromotionUsage(t *testing.T) {
	f := newFixture(t)
	promo := f.addPromotion(t, "TEN", promotion.PercentageDiscount{Percent: dec("10")})
	res := f.create(t, f.adults(1))

	result, err := f.svc.Cancel(context.Background(), f.owner, res.ID, &model.CancelRequest{Reason: "changed plans"})
	require.NoError(t, err)

	assert.Equal(t, model.StatusCancelled, result.Reservation.Status)
	assert.Equal(t, 1, result.ReleasedPromos)
	assert.True(t, result.RefundedAmount.IsZero())
	require.NotNil(t, result.Reservation.CancelReason)
	assert.Equal(t, "changed plans", *result.Reservation.CancelReason)

	stored, err := f.promotions.GetByID(context.Background(), promo.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.CurrentUsageCount)
	assert.Equal(t, []string{shared.EventReservationCancelled}, f.events.keys())
}

func TestCancel_ConfirmedRefundsUnusedTickets(t *testing.T) {
	f := newFixture(t)
	res := f.create(t, f.adults(3))
	detail := f.pay(t, res.ID)

	f.at(f.visitDate.Add(10 * time.Hour))
	_, err := f.svc.UseTicket(context.Background(), &model.UseTicketRequest{SerialNumber: detail.Tickets[0].SerialNumber})
	require.NoError(t, err)

	result, err := f.svc.Cancel(context.Background(), f.owner, res.ID, &model.CancelRequest{Reason: "rain"})
	require.NoError(t, err)

	assert.Equal(t, 2, result.CancelledTickets)
	assert.True(t, result.RefundedAmount.Equal(dec("200")))
	assert.Equal(t, model.StatusCancelled, result.Reservation.Status)
	assert.Equal(t, model.PaymentPartiallyRefunded, result.Reservation.PaymentStatus)

	tickets, err := f.tickets.ListByReservation(context.Background(), res.ID)
	require.NoError(t, err)
	statuses := map[model.TicketStatus]int{}
	for _, ticket := range tickets {
		statuses[ticket.Status]++
	}
	assert.Equal(t, 1, statuses[model.TicketUsed])
	assert.Equal(t, 2, statuses[model.TicketCancelled])
}

func TestCancel_ConfirmedWithoutUsedTicketsIsFullyRefunded(t *testing.T) {
	f := newFixture(t)
	res := f.create(t, f.adults(2))
	f.pay(t, res.ID)

	result, err := f.svc.Cancel(context.Background(), f.owner, res.ID, &model.CancelRequest{Reason: "rain"})
	require.NoError(t, err)

	assert.Equal(t, model.PaymentRefunded, result.Reservation.PaymentStatus)
	assert.True(t, result.RefundedAmount.Equal(dec("200")))
}

func TestCancel_NothingLeftToCancel(t *testing.T) {
	f := newFixture(t)
	res := f.create(t, f.adults(1))
	detail := f.pay(t, res.ID)

	f.at(f.visitDate.Add(10 * time.Hour))
	_, err := f.svc.UseTicket(context.Background(), &model.UseTicketRequest{SerialNumber: detail.Tickets[0].SerialNumber})
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), f.owner, res.ID, &model.CancelRequest{Reason: "rain"})
	requireKind(t, err, apperror.KindConflict, model.ErrCodeNothingToCancel)
}

func TestCancel_FinalStatesConflict(t *testing.T) {
	f := newFixture(t)
	res := f.create(t, f.adults(1))
	req := &model.CancelRequest{Reason: "changed plans"}

	_, err := f.svc.Cancel(context.Background(), f.owner, res.ID, req)
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), f.owner, res.ID, req)
	requireKind(t, err, apperror.KindConflict, model.ErrCodeInvalidStatus)
}

func TestCancel_OtherVisitorForbidden(t *testing.T) {
	f := newFixture(t)
	res := f.create(t, f.adults(1))

	_, err := f.svc.Cancel(context.Background(), shared.Actor{VisitorID: uuid.New()}, res.ID, &model.CancelRequest{Reason: "not mine"})
	requireKind(t, err, apperror.KindForbidden, model.ErrCodeForbidden)
}

// =====================================================
// USE TICKET
// =====================================================

func TestUseTicket_ValidityWindow(t *testing.T) {
	f := newFixture(t)
	res := f.create(t, f.adults(1))
	serial := f.pay(t, res.ID).Tickets[0].SerialNumber
	req := &model.UseTicketRequest{SerialNumber: serial}

	f.at(f.visitDate.Add(-time.Hour))
	_, err := f.svc.UseTicket(context.Background(), req)
	requireKind(t, err, apperror.KindConflict, model.ErrCodeTicketNotUsable)

	f.at(f.visitDate.AddDate(0, 0, 1))
	_, err = f.svc.UseTicket(context.Background(), req)
	requireKind(t, err, apperror.KindConflict, model.ErrCodeTicketNotUsable)

	f.at(f.visitDate.Add(9 * time.Hour))
	ticket, err := f.svc.UseTicket(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.TicketUsed, ticket.Status)
	require.NotNil(t, ticket.UsedAt)

	_, err = f.svc.UseTicket(context.Background(), req)
	requireKind(t, err, apperror.KindConflict, model.ErrCodeTicketNotUsable)
}

func TestUseTicket_UnknownSerial(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UseTicket(context.Background(), &model.UseTicketRequest{SerialNumber: "TKT20260704DEADBEEF"})
	requireKind(t, err, apperror.KindNotFound, model.ErrCodeTicketNotFound)
}

// =====================================================
// READ
// =====================================================

func TestGetReservation_OwnerOrAdmin(t *testing.T) {
	f := newFixture(t)
	res := f.create(t, f.adults(1))
	f.pay(t, res.ID)

	detail, err := f.svc.GetReservation(context.Background(), f.owner, res.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Tickets, 1)

	_, err = f.svc.GetReservation(context.Background(), shared.Actor{VisitorID: uuid.New()}, res.ID)
	requireKind(t, err, apperror.KindForbidden, model.ErrCodeForbidden)

	_, err = f.svc.GetReservation(context.Background(), shared.Actor{IsAdmin: true}, res.ID)
	require.NoError(t, err)
}

func TestListReservations_ScopesVisitors(t *testing.T) {
	f := newFixture(t)
	f.create(t, f.adults(1))
	f.create(t, f.adults(2))

	other := shared.Actor{VisitorID: uuid.New()}
	_, err := f.svc.CreateReservation(context.Background(), other, f.createRequest(f.adults(1)))
	require.NoError(t, err)

	filter := &model.ListReservationsFilter{Page: 1, Limit: 20}
	mine, total, err := f.svc.ListReservations(context.Background(), f.owner, filter)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, res := range mine {
		assert.Equal(t, f.owner.VisitorID, res.VisitorID)
	}

	_, total, err = f.svc.ListReservations(context.Background(), shared.Actor{IsAdmin: true}, &model.ListReservationsFilter{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

// =====================================================
// SWEEPS
// =====================================================

func TestCompleteElapsed(t *testing.T) {
	f := newFixture(t)
	paid := f.create(t, f.adults(1))
	f.pay(t, paid.ID)
	pending := f.create(t, f.adults(1))

	// still inside the validity window
	f.at(f.visitDate.Add(12 * time.Hour))
	result, err := f.svc.CompleteElapsed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)

	f.at(f.visitDate.AddDate(0, 0, 1).Add(time.Hour))
	result, err = f.svc.CompleteElapsed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Scanned)
	assert.Equal(t, 1, result.Processed)

	stored, err := f.repo.GetByID(context.Background(), paid.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, stored.Status)
	assert.NotNil(t, stored.CompletedAt)

	stored, err = f.repo.GetByID(context.Background(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, stored.Status)
}

func TestExpirePending(t *testing.T) {
	f := newFixture(t)
	promo := f.addPromotion(t, "TEN", promotion.PercentageDiscount{Percent: dec("10")})
	stale := f.create(t, f.adults(1))
	paid := f.create(t, f.adults(1))
	f.pay(t, paid.ID)

	f.at(f.start.Add(time.Hour))
	fresh := f.create(t, f.adults(1))

	result, err := f.svc.ExpirePending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Scanned)
	assert.Equal(t, 1, result.Processed)

	stored, err := f.repo.GetByID(context.Background(), stale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, stored.Status)
	require.NotNil(t, stored.CancelReason)
	assert.Equal(t, expiredReason, *stored.CancelReason)

	for _, id := range []uuid.UUID{paid.ID, fresh.ID} {
		stored, err := f.repo.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.NotEqual(t, model.StatusCancelled, stored.Status)
	}

	// the stale reservation's redemption was given back
	current, err := f.promotions.GetByID(context.Background(), promo.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, current.CurrentUsageCount)
}

func TestExpirePending_SkipsReservationPaidAfterScan(t *testing.T) {
	f := newFixture(t)
	res := f.create(t, f.adults(2))
	f.svc.repo = &scanHookRepository{
		MemoryRepository: f.repo,
		afterScan: func(ids []uuid.UUID) {
			for _, id := range ids {
				f.pay(t, id)
			}
		},
	}

	f.at(f.start.Add(time.Hour))
	result, err := f.svc.ExpirePending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Scanned)
	assert.Equal(t, 0, result.Processed)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Failed)

	stored, err := f.repo.GetByID(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, stored.Status)
	assert.Equal(t, model.PaymentPaid, stored.PaymentStatus)
	assert.Nil(t, stored.CancelReason)

	tickets, err := f.tickets.ListByReservation(context.Background(), res.ID)
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	for _, ticket := range tickets {
		assert.Equal(t, model.TicketValid, ticket.Status)
	}

	count, err := f.refunds.CountCompletedWithTx(context.Background(), nil, res.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Equal(t, []string{shared.EventReservationConfirmed}, f.events.keys())
}
