package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	catalog "themepark-backend/internal/domains/catalog/model"
	"themepark-backend/internal/domains/payment/gateway"
	pricing "themepark-backend/internal/domains/pricing/model"
	promotion "themepark-backend/internal/domains/promotion/model"
	"themepark-backend/internal/domains/reservation/model"
	"themepark-backend/internal/domains/reservation/repository"
	visitor "themepark-backend/internal/domains/visitor/model"
	"themepark-backend/internal/infrastructure/events"
	"themepark-backend/internal/infrastructure/metrics"
	"themepark-backend/internal/shared"
	"themepark-backend/internal/shared/apperror"
	"themepark-backend/internal/shared/utils"
	"themepark-backend/pkg/database"
	"themepark-backend/pkg/logger"
)

const (
	maxSerialAttempts = 3
	sweepBatchSize    = 500
	expiredReason     = "payment window expired"
)

var errNoLongerPending = errors.New("reservation is no longer pending")

// Options tunes the lifecycle.
type Options struct {
	TicketValidityDays int
	PendingTTL         time.Duration
}

// =====================================================
// RESERVATION SERVICE IMPLEMENTATION
// =====================================================
type reservationService struct {
	repo        repository.Repository
	tickets     repository.TicketRepository
	ticketTypes TicketTypeLocker
	pricer      CartPricer
	promotions  PromotionLedger
	refunds     RefundIssuer
	gateway     gateway.Gateway
	tx          database.TxManager
	queue       TaskEnqueuer
	events      events.Publisher
	opts        Options
	now         func() time.Time
}

func NewReservationService(
	repo repository.Repository,
	tickets repository.TicketRepository,
	ticketTypes TicketTypeLocker,
	pricer CartPricer,
	promotions PromotionLedger,
	refunds RefundIssuer,
	paymentGateway gateway.Gateway,
	tx database.TxManager,
	queue TaskEnqueuer,
	publisher events.Publisher,
	opts Options,
) Service {
	if opts.TicketValidityDays < 1 {
		opts.TicketValidityDays = 1
	}
	return &reservationService{
		repo:        repo,
		tickets:     tickets,
		ticketTypes: ticketTypes,
		pricer:      pricer,
		promotions:  promotions,
		refunds:     refunds,
		gateway:     paymentGateway,
		tx:          tx,
		queue:       queue,
		events:      publisher,
		opts:        opts,
		now:         time.Now,
	}
}

// =====================================================
// CREATE RESERVATION
// =====================================================

// CreateReservation prices the cart and persists a pending reservation.
//
// Business Logic (one transaction):
// 1. Lock the requested ticket types
// 2. Price the cart against the locked ticket types
// 3. Enforce max sale limits for the visit date, free lines included
// 4. Redeem each applied promotion: conditional increment, then the
//    per-visitor limit under the row lock
// 5. Insert the reservation (Pending, Unpaid), items and usage rows
func (s *reservationService) CreateReservation(ctx context.Context, actor shared.Actor, req *model.CreateReservationRequest) (*model.Reservation, error) {
	visitDate, err := utils.ParseDate(req.VisitDate)
	if err != nil {
		return nil, apperror.Validation(model.ErrCodeInvalidRequest, err.Error(), err)
	}

	res, err := database.WithTransactionResult(ctx, s.tx, func(tx pgx.Tx) (*model.Reservation, error) {
		// Step 1: lock requested ticket types
		locked, err := s.ticketTypes.LockTicketTypesWithTx(ctx, tx, requestedTicketTypeIDs(req.Items))
		if err != nil {
			return nil, apperror.Internal(model.ErrCodeInternal, err)
		}

		// Step 2: price
		cart, err := s.pricer.CalculateWithTicketTypes(ctx, actor.VisitorID, req.PricingRequest(), locked)
		if err != nil {
			return nil, err
		}

		// Step 3: sale limits
		if err := s.checkSaleLimits(ctx, tx, cart, locked); err != nil {
			return nil, err
		}

		// Step 4: promotion redemptions
		if err := s.redeemPromotions(ctx, tx, actor.VisitorID, cart); err != nil {
			return nil, err
		}

		// Step 5: persist
		res := s.buildReservation(actor.VisitorID, visitDate, req, cart)
		if err := s.repo.CreateWithTx(ctx, tx, res); err != nil {
			return nil, apperror.Internal(model.ErrCodeInternal, err)
		}

		if usages := buildUsages(res, cart); len(usages) > 0 {
			if err := s.promotions.CreateUsagesWithTx(ctx, tx, usages); err != nil {
				return nil, apperror.Internal(model.ErrCodeInternal, err)
			}
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ReservationTransitions.WithLabelValues(string(model.StatusPending)).Inc()
	logger.Info("reservation created", map[string]interface{}{
		"reservation_id": res.ID,
		"visitor_id":     res.VisitorID,
		"visit_date":     req.VisitDate,
		"total":          res.Total.String(),
	})
	return res, nil
}

func requestedTicketTypeIDs(items []pricing.ItemRequest) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if !seen[item.TicketTypeID] {
			seen[item.TicketTypeID] = true
			ids = append(ids, item.TicketTypeID)
		}
	}
	return sortIDs(ids)
}

func sortIDs(ids []uuid.UUID) []uuid.UUID {
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// checkSaleLimits aggregates every line (free ones too) by ticket type and
// compares against what is already sold for the date. Free-ticket targets
// not requested directly are locked here.
func (s *reservationService) checkSaleLimits(ctx context.Context, tx pgx.Tx, cart *pricing.PricedCart, locked map[uuid.UUID]*catalog.TicketType) error {
	wanted := make(map[uuid.UUID]int)
	var extra []uuid.UUID
	for _, line := range cart.Lines {
		if _, ok := wanted[line.TicketTypeID]; !ok {
			if _, isLocked := locked[line.TicketTypeID]; !isLocked {
				extra = append(extra, line.TicketTypeID)
			}
		}
		wanted[line.TicketTypeID] += line.Quantity
	}

	if len(extra) > 0 {
		more, err := s.ticketTypes.LockTicketTypesWithTx(ctx, tx, sortIDs(extra))
		if err != nil {
			return apperror.Internal(model.ErrCodeInternal, err)
		}
		for id, tt := range more {
			locked[id] = tt
		}
	}

	var limited []uuid.UUID
	for id := range wanted {
		if tt, ok := locked[id]; ok && tt.MaxSaleLimit != nil {
			limited = append(limited, id)
		}
	}
	if len(limited) == 0 {
		return nil
	}

	sold, err := s.repo.CountSoldWithTx(ctx, tx, cart.VisitDate, sortIDs(limited))
	if err != nil {
		return apperror.Internal(model.ErrCodeInternal, err)
	}

	for _, id := range limited {
		tt := locked[id]
		if sold[id]+wanted[id] > *tt.MaxSaleLimit {
			remaining := *tt.MaxSaleLimit - sold[id]
			if remaining < 0 {
				remaining = 0
			}
			return apperror.Conflict(model.ErrCodeSaleLimitExceeded,
				fmt.Sprintf("only %d %s tickets left for %s", remaining, tt.Name, cart.VisitDate.Format(utils.DateLayout)),
				model.ErrSaleLimitExceeded)
		}
	}
	return nil
}

func (s *reservationService) redeemPromotions(ctx context.Context, tx pgx.Tx, visitorID uuid.UUID, cart *pricing.PricedCart) error {
	for _, applied := range cart.AppliedPromotions {
		if err := s.promotions.IncrementUsageWithTx(ctx, tx, applied.PromotionID); err != nil {
			if errors.Is(err, promotion.ErrUsageLimitReached) {
				metrics.PromotionRedemptions.WithLabelValues("exhausted").Inc()
				return apperror.Conflict(model.ErrCodePromotionExhausted,
					"promotion "+applied.Code+" has reached its usage limit", model.ErrPromotionExhausted)
			}
			return apperror.Internal(model.ErrCodeInternal, err)
		}

		promo, err := s.promotions.GetByID(ctx, applied.PromotionID)
		if err != nil {
			return apperror.Internal(model.ErrCodeInternal, err)
		}
		if promo.UsageLimitPerUser != nil {
			used, err := s.promotions.GetUserUsageCountWithTx(ctx, tx, applied.PromotionID, visitorID)
			if err != nil {
				return apperror.Internal(model.ErrCodeInternal, err)
			}
			if promo.UserLimitReached(used) {
				metrics.PromotionRedemptions.WithLabelValues("user_limit").Inc()
				return apperror.Conflict(model.ErrCodePromotionUserLimit,
					"promotion "+applied.Code+" already used the maximum number of times", model.ErrPromotionUserLimit)
			}
		}
		metrics.PromotionRedemptions.WithLabelValues("applied").Inc()
	}
	return nil
}

func (s *reservationService) buildReservation(visitorID uuid.UUID, visitDate time.Time, req *model.CreateReservationRequest, cart *pricing.PricedCart) *model.Reservation {
	now := s.now().UTC()
	res := &model.Reservation{
		ID:              uuid.New(),
		VisitorID:       visitorID,
		VisitDate:       visitDate,
		Status:          model.StatusPending,
		PaymentStatus:   model.PaymentUnpaid,
		Subtotal:        cart.Subtotal,
		DiscountAmount:  cart.Discount,
		Total:           cart.Total,
		PointsAwarded:   cart.Points,
		PromotionID:     cart.FirstPromotionID(),
		SpecialRequests: req.SpecialRequests,
		CreatedAt:       now,
		UpdatedAt:       now,
		Version:         1,
	}

	for _, line := range cart.Lines {
		res.Items = append(res.Items, &model.ReservationItem{
			ID:                 uuid.New(),
			ReservationID:      res.ID,
			TicketTypeID:       line.TicketTypeID,
			TicketTypeName:     line.TicketTypeName,
			Quantity:           line.Quantity,
			UnitPrice:          line.UnitPrice,
			AppliedPriceRuleID: line.PriceRuleID,
			Subtotal:           line.Subtotal,
			DiscountAmount:     line.Discount,
			LineTotal:          line.LineTotal,
			IsFree:             line.IsFree,
			SourcePromotionID:  line.SourcePromotionID,
			CreatedAt:          now,
		})
	}
	return res
}

func buildUsages(res *model.Reservation, cart *pricing.PricedCart) []*promotion.PromotionUsage {
	usages := make([]*promotion.PromotionUsage, 0, len(cart.AppliedPromotions))
	for _, applied := range cart.AppliedPromotions {
		usages = append(usages, &promotion.PromotionUsage{
			ID:             uuid.New(),
			ReservationID:  res.ID,
			PromotionID:    applied.PromotionID,
			VisitorID:      res.VisitorID,
			DiscountAmount: applied.Discount,
			UsedAt:         res.CreatedAt,
		})
	}
	return usages
}

// =====================================================
// PAY
// =====================================================

// Pay charges a pending reservation and issues its tickets.
//
// Business Logic (one transaction):
// 1. Lock the reservation; already confirmed and paid returns as is
// 2. Cancelled or completed reservations cannot be paid
// 3. Charge the gateway unless the total is zero; a decline leaves the
//    reservation pending
// 4. Mark Confirmed/Paid and issue one ticket per unit
// After commit: enqueue the points award and publish reservation.confirmed
func (s *reservationService) Pay(ctx context.Context, actor shared.Actor, id uuid.UUID, req *model.PayRequest) (*model.ReservationDetail, error) {
	var alreadyPaid bool
	var issued int

	res, err := database.WithTransactionResult(ctx, s.tx, func(tx pgx.Tx) (*model.Reservation, error) {
		// Step 1: lock
		res, err := s.repo.GetForUpdateWithTx(ctx, tx, id)
		if err != nil {
			return nil, translateError(err)
		}
		if !actor.CanAccess(res.VisitorID) {
			return nil, apperror.Forbidden(model.ErrCodeForbidden, "reservation belongs to another visitor", model.ErrForbidden)
		}
		if res.Status == model.StatusConfirmed && res.IsPaid() {
			alreadyPaid = true
			return res, nil
		}

		// Step 2: state
		if res.Status != model.StatusPending {
			return nil, apperror.Conflict(model.ErrCodeInvalidStatus,
				fmt.Sprintf("reservation is %s and cannot be paid", res.Status), model.ErrInvalidStatus)
		}

		// Step 3: charge
		method := req.PaymentMethod
		var reference *string
		if res.Total.IsPositive() {
			result, err := s.gateway.Charge(ctx, gateway.ChargeRequest{
				ReservationID: res.ID,
				Amount:        res.Total,
				Method:        req.PaymentMethod,
				Token:         req.PaymentToken,
				Description:   "Reservation " + res.ID.String(),
			})
			if err != nil {
				if errors.Is(err, gateway.ErrDeclined) {
					return nil, apperror.PaymentDeclined(model.ErrCodePaymentDeclined, "payment was declined", err)
				}
				return nil, apperror.Internal(model.ErrCodeInternal, err)
			}
			reference = &result.TransactionRef
		}

		// Step 4: confirm and issue tickets
		now := s.now().UTC()
		res.Status = model.StatusConfirmed
		res.PaymentStatus = model.PaymentPaid
		res.PaymentMethod = &method
		res.PaymentReference = reference
		res.PaidAt = &now
		res.UpdatedAt = now
		if err := s.repo.UpdateWithTx(ctx, tx, res); err != nil {
			return nil, translateError(err)
		}

		issued, err = s.issueTickets(ctx, tx, res, now)
		if err != nil {
			return nil, err
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}

	if !alreadyPaid {
		metrics.ReservationTransitions.WithLabelValues(string(model.StatusConfirmed)).Inc()
		metrics.TicketsIssued.Add(float64(issued))
		s.enqueueAwardPoints(ctx, res)
		events.PublishAfterCommit(ctx, s.events, shared.EventReservationConfirmed, model.ReservationConfirmedEvent{
			ReservationID: res.ID,
			VisitorID:     res.VisitorID,
			VisitDate:     res.VisitDate.Format(utils.DateLayout),
			Total:         res.Total,
			Tickets:       issued,
		})
		logger.Info("reservation paid", map[string]interface{}{
			"reservation_id": res.ID,
			"total":          res.Total.String(),
			"tickets":        issued,
		})
	}

	tickets, err := s.tickets.ListByReservation(ctx, res.ID)
	if err != nil {
		return nil, apperror.Internal(model.ErrCodeInternal, err)
	}
	return &model.ReservationDetail{Reservation: res, Tickets: tickets}, nil
}

// issueTickets creates one ticket per unit, free lines included. A serial
// collision regenerates every serial and retries.
func (s *reservationService) issueTickets(ctx context.Context, tx pgx.Tx, res *model.Reservation, now time.Time) (int, error) {
	validFrom := utils.StartOfDay(res.VisitDate)
	validTo := validFrom.AddDate(0, 0, s.opts.TicketValidityDays)

	tickets := make([]*model.Ticket, 0, res.TicketCount())
	for _, item := range res.Items {
		for i := 0; i < item.Quantity; i++ {
			tickets = append(tickets, &model.Ticket{
				ID:                uuid.New(),
				ReservationID:     res.ID,
				ReservationItemID: item.ID,
				TicketTypeID:      item.TicketTypeID,
				VisitorID:         res.VisitorID,
				ValidFrom:         validFrom,
				ValidTo:           validTo,
				Status:            model.TicketValid,
				CreatedAt:         now,
				UpdatedAt:         now,
			})
		}
	}

	for attempt := 1; ; attempt++ {
		for _, t := range tickets {
			t.SerialNumber = model.GenerateSerial(now)
		}

		err := s.tickets.CreateTicketsWithTx(ctx, tx, tickets)
		if err == nil {
			return len(tickets), nil
		}
		if !errors.Is(err, model.ErrDuplicateSerial) || attempt >= maxSerialAttempts {
			return 0, apperror.Internal(model.ErrCodeInternal, err)
		}
		logger.Warn("ticket serial collision, retrying", map[string]interface{}{
			"reservation_id": res.ID,
			"attempt":        attempt,
		})
	}
}

func (s *reservationService) enqueueAwardPoints(ctx context.Context, res *model.Reservation) {
	if res.PointsAwarded <= 0 || s.queue == nil {
		return
	}

	payload, err := json.Marshal(visitor.AwardPointsPayload{
		VisitorID:     res.VisitorID.String(),
		ReservationID: res.ID.String(),
		Points:        res.PointsAwarded,
	})
	if err != nil {
		logger.Error("marshal award points payload", err)
		return
	}

	task := asynq.NewTask(shared.TypeAwardPoints, payload)
	_, err = s.queue.EnqueueContext(ctx, task,
		asynq.Queue(shared.QueueDefault),
		asynq.MaxRetry(5),
		asynq.TaskID("award-points:"+res.ID.String()),
	)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		logger.ErrorWithFields("enqueue award points failed", err, map[string]interface{}{
			"reservation_id": res.ID,
		})
	}
}

// =====================================================
// CANCEL
// =====================================================

// Cancel cancels a reservation.
//
// Business Logic (one transaction):
// 1. Lock the reservation; only the owner or an admin may cancel
// 2. Cancelled or completed reservations cannot be cancelled again
// 3. Pending: release promotion usage, no money moves
// 4. Confirmed: cancel every valid ticket, refund each one if paid and
//    recompute the payment status; no valid ticket left is a conflict
// After commit: publish reservation.cancelled
func (s *reservationService) Cancel(ctx context.Context, actor shared.Actor, id uuid.UUID, req *model.CancelRequest) (*model.CancelResult, error) {
	return s.cancel(ctx, actor, id, req, false)
}

// cancel is Cancel with an optional pendingOnly guard, checked under the
// reservation lock. A reservation that left Pending returns errNoLongerPending
// and is not touched.
func (s *reservationService) cancel(ctx context.Context, actor shared.Actor, id uuid.UUID, req *model.CancelRequest, pendingOnly bool) (*model.CancelResult, error) {
	result, err := database.WithTransactionResult(ctx, s.tx, func(tx pgx.Tx) (*model.CancelResult, error) {
		// Step 1: lock
		res, err := s.repo.GetForUpdateWithTx(ctx, tx, id)
		if err != nil {
			return nil, translateError(err)
		}
		if !actor.CanAccess(res.VisitorID) {
			return nil, apperror.Forbidden(model.ErrCodeForbidden, "reservation belongs to another visitor", model.ErrForbidden)
		}
		if pendingOnly && res.Status != model.StatusPending {
			return nil, errNoLongerPending
		}

		// Step 2: state
		if res.Status.IsFinal() {
			return nil, apperror.Conflict(model.ErrCodeInvalidStatus,
				fmt.Sprintf("reservation is already %s", res.Status), model.ErrInvalidStatus)
		}

		result := &model.CancelResult{Reservation: res, RefundedAmount: decimal.Zero}
		now := s.now().UTC()

		switch res.Status {
		// Step 3: pending
		case model.StatusPending:
			released, err := s.promotions.ReleaseUsagesWithTx(ctx, tx, res.ID)
			if err != nil {
				return nil, apperror.Internal(model.ErrCodeInternal, err)
			}
			result.ReleasedPromos = released

		// Step 4: confirmed
		case model.StatusConfirmed:
			if err := s.cancelTickets(ctx, tx, actor, res, result, now); err != nil {
				return nil, err
			}
		}

		reason := req.Reason
		res.Status = model.StatusCancelled
		res.CancelReason = &reason
		res.CancelledAt = &now
		res.UpdatedAt = now
		if err := s.repo.UpdateWithTx(ctx, tx, res); err != nil {
			return nil, translateError(err)
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}

	res := result.Reservation
	metrics.ReservationTransitions.WithLabelValues(string(model.StatusCancelled)).Inc()
	events.PublishAfterCommit(ctx, s.events, shared.EventReservationCancelled, model.ReservationCancelledEvent{
		ReservationID:  res.ID,
		VisitorID:      res.VisitorID,
		Reason:         req.Reason,
		RefundedAmount: result.RefundedAmount,
	})
	logger.Info("reservation cancelled", map[string]interface{}{
		"reservation_id":    res.ID,
		"cancelled_tickets": result.CancelledTickets,
		"refunded_amount":   result.RefundedAmount.String(),
		"system":            actor.VisitorID == uuid.Nil,
	})
	return result, nil
}

func (s *reservationService) cancelTickets(ctx context.Context, tx pgx.Tx, actor shared.Actor, res *model.Reservation, result *model.CancelResult, now time.Time) error {
	tickets, err := s.tickets.ListByReservationForUpdateWithTx(ctx, tx, res.ID)
	if err != nil {
		return apperror.Internal(model.ErrCodeInternal, err)
	}

	var cancelled []*model.Ticket
	for _, t := range tickets {
		if t.Status != model.TicketValid {
			continue
		}
		t.Status = model.TicketCancelled
		t.UpdatedAt = now
		if err := s.tickets.UpdateStatusWithTx(ctx, tx, t); err != nil {
			return apperror.Internal(model.ErrCodeInternal, err)
		}
		cancelled = append(cancelled, t)
	}
	if len(cancelled) == 0 {
		return apperror.Conflict(model.ErrCodeNothingToCancel, "reservation has no unused tickets", model.ErrNothingToCancel)
	}
	result.CancelledTickets = len(cancelled)

	if !res.IsPaid() {
		return nil
	}

	var processor *uuid.UUID
	if actor.IsAdmin && actor.VisitorID != uuid.Nil {
		processor = &actor.VisitorID
	}
	refunded, err := s.refunds.IssueCancellationRefundsWithTx(ctx, tx, res, cancelled, processor)
	if err != nil {
		return translateError(err)
	}
	result.RefundedAmount = refunded

	completed, err := s.refunds.CountCompletedWithTx(ctx, tx, res.ID)
	if err != nil {
		return apperror.Internal(model.ErrCodeInternal, err)
	}
	res.PaymentStatus = model.SettledPaymentStatus(completed, len(tickets))
	return nil
}

// =====================================================
// USE TICKET (entry gate)
// =====================================================

// UseTicket marks a ticket used at the gate. The ticket must be valid, its
// reservation confirmed, and now inside the validity window.
func (s *reservationService) UseTicket(ctx context.Context, req *model.UseTicketRequest) (*model.Ticket, error) {
	return database.WithTransactionResult(ctx, s.tx, func(tx pgx.Tx) (*model.Ticket, error) {
		t, err := s.tickets.GetBySerialForUpdateWithTx(ctx, tx, req.SerialNumber)
		if err != nil {
			return nil, translateError(err)
		}
		if t.Status != model.TicketValid {
			return nil, apperror.Conflict(model.ErrCodeTicketNotUsable,
				fmt.Sprintf("ticket is %s", t.Status), model.ErrTicketNotUsable)
		}

		res, err := s.repo.GetByID(ctx, t.ReservationID)
		if err != nil {
			return nil, translateError(err)
		}
		if res.Status != model.StatusConfirmed {
			return nil, apperror.Conflict(model.ErrCodeTicketNotUsable,
				fmt.Sprintf("reservation is %s", res.Status), model.ErrTicketNotUsable)
		}

		now := s.now().UTC()
		if !t.ValidAt(now) {
			return nil, apperror.Conflict(model.ErrCodeTicketNotUsable,
				"ticket is outside its validity window", model.ErrTicketNotUsable)
		}

		t.Status = model.TicketUsed
		t.UsedAt = &now
		t.UpdatedAt = now
		if err := s.tickets.UpdateStatusWithTx(ctx, tx, t); err != nil {
			return nil, apperror.Internal(model.ErrCodeInternal, err)
		}

		logger.Info("ticket used", map[string]interface{}{
			"ticket_id":      t.ID,
			"reservation_id": t.ReservationID,
		})
		return t, nil
	})
}

// =====================================================
// READ
// =====================================================

func (s *reservationService) GetReservation(ctx context.Context, actor shared.Actor, id uuid.UUID) (*model.ReservationDetail, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translateError(err)
	}
	if !actor.CanAccess(res.VisitorID) {
		return nil, apperror.Forbidden(model.ErrCodeForbidden, "reservation belongs to another visitor", model.ErrForbidden)
	}

	tickets, err := s.tickets.ListByReservation(ctx, id)
	if err != nil {
		return nil, apperror.Internal(model.ErrCodeInternal, err)
	}
	return &model.ReservationDetail{Reservation: res, Tickets: tickets}, nil
}

// ListReservations lists the caller's reservations. Admins see everyone's.
func (s *reservationService) ListReservations(ctx context.Context, actor shared.Actor, filter *model.ListReservationsFilter) ([]*model.Reservation, int, error) {
	if !actor.IsAdmin {
		visitorID := actor.VisitorID
		filter.VisitorID = &visitorID
	}

	reservations, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, apperror.Internal(model.ErrCodeInternal, err)
	}
	return reservations, total, nil
}

// =====================================================
// SCHEDULED SWEEPS
// =====================================================

// CompleteElapsed completes confirmed reservations whose visit date has
// passed and which hold no valid ticket still inside its window.
func (s *reservationService) CompleteElapsed(ctx context.Context) (*model.SweepResult, error) {
	now := s.now().UTC()
	ids, err := s.repo.ListCompletable(ctx, utils.StartOfDay(now), now, sweepBatchSize)
	if err != nil {
		return nil, apperror.Internal(model.ErrCodeInternal, err)
	}

	result := &model.SweepResult{Scanned: len(ids)}
	for _, id := range ids {
		done, err := s.completeOne(ctx, id, now)
		switch {
		case err != nil:
			result.Failed++
			logger.ErrorWithFields("complete reservation failed", err, map[string]interface{}{"reservation_id": id})
		case done:
			result.Processed++
		}
	}

	if result.Processed > 0 {
		metrics.ReservationTransitions.WithLabelValues(string(model.StatusCompleted)).Add(float64(result.Processed))
	}
	return result, nil
}

func (s *reservationService) completeOne(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	var done bool
	err := s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		res, err := s.repo.GetForUpdateWithTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if res.Status != model.StatusConfirmed {
			return nil
		}

		res.Status = model.StatusCompleted
		res.CompletedAt = &now
		res.UpdatedAt = now
		if err := s.repo.UpdateWithTx(ctx, tx, res); err != nil {
			return err
		}
		done = true
		return nil
	})
	return done, err
}

// ExpirePending cancels reservations left unpaid longer than the pending
// TTL. Each one is re-checked under its lock, so a reservation paid or
// cancelled after the scan is skipped.
func (s *reservationService) ExpirePending(ctx context.Context) (*model.SweepResult, error) {
	if s.opts.PendingTTL <= 0 {
		return &model.SweepResult{}, nil
	}

	cutoff := s.now().UTC().Add(-s.opts.PendingTTL)
	ids, err := s.repo.ListExpiredPending(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return nil, apperror.Internal(model.ErrCodeInternal, err)
	}

	result := &model.SweepResult{Scanned: len(ids)}
	for _, id := range ids {
		_, err := s.cancel(ctx, shared.SystemActor, id, &model.CancelRequest{Reason: expiredReason}, true)
		switch {
		case err == nil:
			result.Processed++
		case errors.Is(err, errNoLongerPending):
			result.Skipped++
		default:
			result.Failed++
			logger.ErrorWithFields("expire pending reservation failed", err, map[string]interface{}{"reservation_id": id})
		}
	}
	return result, nil
}

// =====================================================
// ERROR TRANSLATION
// =====================================================

func translateError(err error) error {
	if _, ok := apperror.As(err); ok {
		return err
	}

	switch {
	case errors.Is(err, model.ErrReservationNotFound):
		return apperror.NotFound(model.ErrCodeReservationNotFound, "reservation not found", err)
	case errors.Is(err, model.ErrTicketNotFound):
		return apperror.NotFound(model.ErrCodeTicketNotFound, "ticket not found", err)
	case errors.Is(err, model.ErrVersionMismatch):
		return apperror.Conflict(model.ErrCodeVersionMismatch, "reservation was modified concurrently", err)
	default:
		return apperror.Internal(model.ErrCodeInternal, err)
	}
}
