package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"themepark-backend/internal/domains/payment/gateway"
	"themepark-backend/internal/domains/payment/model"
	"themepark-backend/internal/domains/payment/repository"
	reservation "themepark-backend/internal/domains/reservation/model"
	"themepark-backend/internal/infrastructure/events"
	"themepark-backend/internal/infrastructure/metrics"
	"themepark-backend/internal/shared"
	"themepark-backend/internal/shared/apperror"
	"themepark-backend/pkg/database"
	"themepark-backend/pkg/logger"
)

const cancellationNote = "reservation cancelled"

type Options struct {
	// FeePercent is withheld from every refund, 0 to 100.
	FeePercent   decimal.Decimal
	BatchWorkers int
}

// =====================================================
// REFUND SERVICE IMPLEMENTATION
// =====================================================
type refundService struct {
	refunds      repository.RefundRepository
	reservations ReservationStore
	tickets      TicketStore
	gateway      gateway.Gateway
	tx           database.TxManager
	events       events.Publisher
	opts         Options
	now          func() time.Time
}

func NewRefundService(
	refunds repository.RefundRepository,
	reservations ReservationStore,
	tickets TicketStore,
	paymentGateway gateway.Gateway,
	tx database.TxManager,
	publisher events.Publisher,
	opts Options,
) RefundService {
	if opts.BatchWorkers < 1 {
		opts.BatchWorkers = 1
	}
	return &refundService{
		refunds:      refunds,
		reservations: reservations,
		tickets:      tickets,
		gateway:      paymentGateway,
		tx:           tx,
		events:       publisher,
		opts:         opts,
		now:          time.Now,
	}
}

// =====================================================
// VISITOR: REQUEST REFUND
// =====================================================

// RequestRefund opens a refund for one ticket.
//
// Business Logic (one transaction):
// 1. Lock the reservation, then the ticket
// 2. Only the ticket owner or an admin may request
// 3. Ticket must be Valid or Cancelled and the reservation paid
// 4. Amount = what was paid for the ticket minus the refund fee
// 5. Insert a Pending record; an active record on the ticket is a conflict
// 6. Admin requests are approved and completed immediately
func (s *refundService) RequestRefund(ctx context.Context, actor shared.Actor, req *model.RequestRefundRequest) (*model.RefundRecord, error) {
	peek, err := s.tickets.GetByID(ctx, req.TicketID)
	if err != nil {
		return nil, translateError(err)
	}

	var res *reservation.Reservation
	refund, err := database.WithTransactionResult(ctx, s.tx, func(tx pgx.Tx) (*model.RefundRecord, error) {
		// Step 1: lock, reservation first like the cancel path
		var err error
		res, err = s.reservations.GetForUpdateWithTx(ctx, tx, peek.ReservationID)
		if err != nil {
			return nil, translateError(err)
		}
		ticket, err := s.tickets.GetForUpdateWithTx(ctx, tx, req.TicketID)
		if err != nil {
			return nil, translateError(err)
		}

		// Step 2: ownership
		if !actor.CanAccess(ticket.VisitorID) {
			return nil, apperror.Forbidden(model.ErrCodeForbidden, "ticket belongs to another visitor", model.ErrForbidden)
		}

		// Step 3: eligibility
		if err := checkRefundable(res, ticket); err != nil {
			return nil, err
		}

		// Step 4: amount
		item := res.ItemByID(ticket.ReservationItemID)
		if item == nil {
			return nil, apperror.Internal(model.ErrCodeInternal,
				fmt.Errorf("reservation item %s of ticket %s not found", ticket.ReservationItemID, ticket.ID))
		}

		// Step 5: pending record
		now := s.now().UTC()
		refund := &model.RefundRecord{
			ID:              uuid.New(),
			ReferenceNumber: model.GenerateReference(now),
			TicketID:        ticket.ID,
			ReservationID:   res.ID,
			VisitorID:       ticket.VisitorID,
			Amount:          model.RefundableAmount(item.PerTicketAmount(), s.opts.FeePercent),
			Reason:          req.Reason,
			Status:          model.RefundPending,
			RequestedAt:     now,
			UpdatedAt:       now,
		}
		if err := s.refunds.CreateWithTx(ctx, tx, refund); err != nil {
			return nil, translateError(err)
		}

		// Step 6: admin override
		if actor.IsAdmin {
			if err := s.completeWithTx(ctx, tx, res, ticket, refund, processorOf(actor), nil); err != nil {
				return nil, err
			}
		}
		return refund, nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RefundsTotal.WithLabelValues(string(refund.Status)).Inc()
	if refund.Status == model.RefundCompleted {
		s.publishCompleted(ctx, refund)
	}
	logger.Info("refund requested", map[string]interface{}{
		"refund_id":      refund.ID,
		"reference":      refund.ReferenceNumber,
		"ticket_id":      refund.TicketID,
		"reservation_id": res.ID,
		"amount":         refund.Amount.String(),
		"status":         refund.Status,
	})
	return refund, nil
}

func checkRefundable(res *reservation.Reservation, ticket *reservation.Ticket) error {
	if ticket.Status != reservation.TicketValid && ticket.Status != reservation.TicketCancelled {
		return apperror.Conflict(model.ErrCodeTicketNotRefundable,
			fmt.Sprintf("ticket is %s", ticket.Status), model.ErrTicketNotRefundable)
	}
	if !res.IsPaid() {
		return apperror.Conflict(model.ErrCodeReservationNotPaid,
			"reservation has not been paid", model.ErrReservationNotPaid)
	}
	return nil
}

// =====================================================
// ADMIN: PROCESS REFUND
// =====================================================

// ProcessRefund approves or rejects a pending refund.
//
// Business Logic (one transaction):
// 1. Lock the reservation, then the refund record; it must be Pending
// 2. Reject: record Rejected, the ticket becomes refundable again
// 3. Approve: ticket must still be Valid or Cancelled; refund through the
//    gateway, record Completed, ticket Refunded, payment status recomputed
// After commit: publish refund.completed on approval
func (s *refundService) ProcessRefund(ctx context.Context, actor shared.Actor, id uuid.UUID, req *model.ProcessRefundRequest) (*model.RefundRecord, error) {
	peek, err := s.refunds.GetByID(ctx, id)
	if err != nil {
		return nil, translateError(err)
	}

	refund, err := database.WithTransactionResult(ctx, s.tx, func(tx pgx.Tx) (*model.RefundRecord, error) {
		// Step 1: lock
		res, err := s.reservations.GetForUpdateWithTx(ctx, tx, peek.ReservationID)
		if err != nil {
			return nil, translateError(err)
		}
		refund, err := s.refunds.GetForUpdateWithTx(ctx, tx, id)
		if err != nil {
			return nil, translateError(err)
		}
		if !refund.IsPending() {
			return nil, apperror.Conflict(model.ErrCodeInvalidStatus,
				fmt.Sprintf("refund is already %s", refund.Status), model.ErrInvalidStatus)
		}

		// Step 2: reject
		if req.Decision == model.DecisionReject {
			refund.Reject(processorOf(actor), req.Notes, s.now().UTC())
			if err := s.refunds.UpdateWithTx(ctx, tx, refund); err != nil {
				return nil, translateError(err)
			}
			return refund, nil
		}

		// Step 3: approve
		ticket, err := s.tickets.GetForUpdateWithTx(ctx, tx, refund.TicketID)
		if err != nil {
			return nil, translateError(err)
		}
		if err := checkRefundable(res, ticket); err != nil {
			return nil, err
		}
		if err := s.completeWithTx(ctx, tx, res, ticket, refund, processorOf(actor), req.Notes); err != nil {
			return nil, err
		}
		return refund, nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RefundsTotal.WithLabelValues(string(refund.Status)).Inc()
	if refund.Status == model.RefundCompleted {
		s.publishCompleted(ctx, refund)
	}
	logger.Info("refund processed", map[string]interface{}{
		"refund_id": refund.ID,
		"decision":  req.Decision,
		"status":    refund.Status,
	})
	return refund, nil
}

// completeWithTx completes a stored pending record and settles the
// reservation's payment status.
func (s *refundService) completeWithTx(ctx context.Context, tx pgx.Tx, res *reservation.Reservation, ticket *reservation.Ticket, refund *model.RefundRecord, processor *uuid.UUID, notes *string) error {
	if err := s.finishWithTx(ctx, tx, res, ticket, refund, processor, notes); err != nil {
		return err
	}

	completed, err := s.refunds.CountCompletedWithTx(ctx, tx, res.ID)
	if err != nil {
		return apperror.Internal(model.ErrCodeInternal, err)
	}
	res.PaymentStatus = reservation.SettledPaymentStatus(completed, res.TicketCount())
	res.UpdatedAt = s.now().UTC()
	if err := s.reservations.UpdateWithTx(ctx, tx, res); err != nil {
		return translateError(err)
	}
	return nil
}

// finishWithTx refunds through the gateway, marks the record Completed and
// the ticket Refunded.
func (s *refundService) finishWithTx(ctx context.Context, tx pgx.Tx, res *reservation.Reservation, ticket *reservation.Ticket, refund *model.RefundRecord, processor *uuid.UUID, notes *string) error {
	gatewayRef, err := s.refundThroughGateway(ctx, res, refund)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	refund.Approve(processor, notes, gatewayRef, now)
	if err := s.refunds.UpdateWithTx(ctx, tx, refund); err != nil {
		return translateError(err)
	}

	ticket.Status = reservation.TicketRefunded
	ticket.UpdatedAt = now
	if err := s.tickets.UpdateStatusWithTx(ctx, tx, ticket); err != nil {
		return translateError(err)
	}
	return nil
}

func (s *refundService) refundThroughGateway(ctx context.Context, res *reservation.Reservation, refund *model.RefundRecord) (*string, error) {
	if !refund.Amount.IsPositive() || res.PaymentReference == nil {
		return nil, nil
	}

	result, err := s.gateway.Refund(ctx, gateway.RefundRequest{
		TransactionRef: *res.PaymentReference,
		Reference:      refund.ReferenceNumber,
		Amount:         refund.Amount,
		Reason:         refund.Reason,
	})
	if err != nil {
		logger.ErrorWithFields("gateway refund failed", err, map[string]interface{}{
			"refund_id": refund.ID,
			"reference": refund.ReferenceNumber,
		})
		return nil, apperror.New(apperror.KindInternal, model.ErrCodeGatewayFailed, "payment gateway did not accept the refund", err)
	}
	return &result.RefundRef, nil
}

// =====================================================
// ADMIN: BATCH REFUND
// =====================================================

// BatchRefund refunds each ticket in its own transaction with bounded
// concurrency. A failed ticket never rolls back its siblings.
func (s *refundService) BatchRefund(ctx context.Context, actor shared.Actor, req *model.BatchRefundRequest) (*model.BatchRefundResult, error) {
	items := make([]model.BatchRefundItem, len(req.TicketIDs))

	var g errgroup.Group
	g.SetLimit(s.opts.BatchWorkers)
	for i, ticketID := range req.TicketIDs {
		g.Go(func() error {
			item := model.BatchRefundItem{TicketID: ticketID, Amount: decimal.Zero}

			refund, err := s.RequestRefund(ctx, actor, &model.RequestRefundRequest{TicketID: ticketID, Reason: req.Reason})
			if err != nil {
				item.Error = err.Error()
				if appErr, ok := apperror.As(err); ok {
					item.Code = appErr.Code
					item.Error = appErr.Message
				}
			} else {
				item.Success = true
				item.RefundID = &refund.ID
				item.Amount = refund.Amount
			}
			items[i] = item
			return nil
		})
	}
	_ = g.Wait()

	result := &model.BatchRefundResult{Items: items, TotalRefunded: decimal.Zero}
	for _, item := range items {
		if item.Success {
			result.Succeeded++
			result.TotalRefunded = result.TotalRefunded.Add(item.Amount)
		} else {
			result.Failed++
		}
	}

	logger.Info("batch refund finished", map[string]interface{}{
		"tickets":        len(req.TicketIDs),
		"succeeded":      result.Succeeded,
		"failed":         result.Failed,
		"total_refunded": result.TotalRefunded.String(),
	})
	return result, nil
}

// =====================================================
// RESERVATION CANCEL PATH
// =====================================================

// IssueCancellationRefundsWithTx writes a completed refund for every ticket
// cancelled with its reservation. Tickets that already carry an active
// refund keep it. The caller holds the reservation lock and settles the
// payment status.
func (s *refundService) IssueCancellationRefundsWithTx(ctx context.Context, tx pgx.Tx, res *reservation.Reservation, tickets []*reservation.Ticket, processorID *uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	now := s.now().UTC()
	notes := cancellationNote

	for _, ticket := range tickets {
		_, err := s.refunds.GetActiveByTicketWithTx(ctx, tx, ticket.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, model.ErrRefundNotFound) {
			return decimal.Zero, apperror.Internal(model.ErrCodeInternal, err)
		}

		item := res.ItemByID(ticket.ReservationItemID)
		if item == nil {
			return decimal.Zero, apperror.Internal(model.ErrCodeInternal,
				fmt.Errorf("reservation item %s of ticket %s not found", ticket.ReservationItemID, ticket.ID))
		}

		refund := &model.RefundRecord{
			ID:              uuid.New(),
			ReferenceNumber: model.GenerateReference(now),
			TicketID:        ticket.ID,
			ReservationID:   res.ID,
			VisitorID:       ticket.VisitorID,
			Amount:          model.RefundableAmount(item.PerTicketAmount(), s.opts.FeePercent),
			Reason:          cancellationNote,
			Status:          model.RefundPending,
			RequestedAt:     now,
			UpdatedAt:       now,
		}

		if err := s.refunds.CreateWithTx(ctx, tx, refund); err != nil {
			return decimal.Zero, translateError(err)
		}
		if err := s.finishWithTx(ctx, tx, res, ticket, refund, processorID, &notes); err != nil {
			return decimal.Zero, err
		}

		total = total.Add(refund.Amount)
		metrics.RefundsTotal.WithLabelValues(string(model.RefundCompleted)).Inc()
	}
	return total, nil
}

func (s *refundService) CountCompletedWithTx(ctx context.Context, tx pgx.Tx, reservationID uuid.UUID) (int, error) {
	return s.refunds.CountCompletedWithTx(ctx, tx, reservationID)
}

// =====================================================
// READ
// =====================================================

func (s *refundService) GetRefund(ctx context.Context, actor shared.Actor, id uuid.UUID) (*model.RefundRecord, error) {
	refund, err := s.refunds.GetByID(ctx, id)
	if err != nil {
		return nil, translateError(err)
	}
	if !actor.CanAccess(refund.VisitorID) {
		return nil, apperror.Forbidden(model.ErrCodeForbidden, "refund belongs to another visitor", model.ErrForbidden)
	}
	return refund, nil
}

func (s *refundService) ListMyRefunds(ctx context.Context, actor shared.Actor, filter *model.ListRefundsFilter) ([]*model.RefundRecord, int, error) {
	filter.Normalize()
	refunds, total, err := s.refunds.ListByVisitor(ctx, actor.VisitorID, filter.Limit, filter.Offset())
	if err != nil {
		return nil, 0, apperror.Internal(model.ErrCodeInternal, err)
	}
	return refunds, total, nil
}

func (s *refundService) ListPending(ctx context.Context, filter *model.ListRefundsFilter) ([]*model.RefundRecord, int, error) {
	filter.Normalize()
	refunds, total, err := s.refunds.ListPending(ctx, filter.Limit, filter.Offset())
	if err != nil {
		return nil, 0, apperror.Internal(model.ErrCodeInternal, err)
	}
	return refunds, total, nil
}

// =====================================================
// HELPERS
// =====================================================

func (s *refundService) publishCompleted(ctx context.Context, refund *model.RefundRecord) {
	events.PublishAfterCommit(ctx, s.events, shared.EventRefundCompleted, model.RefundCompletedEvent{
		RefundID:        refund.ID,
		ReferenceNumber: refund.ReferenceNumber,
		TicketID:        refund.TicketID,
		ReservationID:   refund.ReservationID,
		VisitorID:       refund.VisitorID,
		Amount:          refund.Amount,
	})
}

func processorOf(actor shared.Actor) *uuid.UUID {
	if actor.VisitorID == uuid.Nil {
		return nil
	}
	id := actor.VisitorID
	return &id
}

func translateError(err error) error {
	if _, ok := apperror.As(err); ok {
		return err
	}

	switch {
	case errors.Is(err, model.ErrRefundNotFound):
		return apperror.NotFound(model.ErrCodeRefundNotFound, "refund not found", err)
	case errors.Is(err, model.ErrRefundExists):
		return apperror.Conflict(model.ErrCodeRefundExists, "ticket already has an active refund", err)
	case errors.Is(err, reservation.ErrTicketNotFound):
		return apperror.NotFound(model.ErrCodeTicketNotFound, "ticket not found", err)
	case errors.Is(err, reservation.ErrReservationNotFound):
		return apperror.NotFound(model.ErrCodeTicketNotFound, "reservation of ticket not found", err)
	case errors.Is(err, reservation.ErrVersionMismatch):
		return apperror.Conflict(model.ErrCodeInvalidStatus, "reservation was modified concurrently", err)
	default:
		return apperror.Internal(model.ErrCodeInternal, err)
	}
}
