package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/procurement-decisions/internal/application/dispatcher"
	"github.com/garyjia/procurement-decisions/internal/application/port"
	"github.com/garyjia/procurement-decisions/internal/domain/apperror"
	"github.com/garyjia/procurement-decisions/internal/domain/entity"
	"github.com/garyjia/procurement-decisions/internal/domain/event"
	"github.com/garyjia/procurement-decisions/internal/domain/invoice"
)

// CashFlowService turns lifecycle transitions into forecast cash movements
type CashFlowService interface {
	// Register subscribes the service to finalize and revert events
	Register(d dispatcher.Dispatcher)
	ListByDecision(ctx context.Context, decisionID int64, activeOnly bool) ([]*entity.CashFlowEvent, error)
	// CreateForecast writes the inflow and outflow events for a LOCKED decision.
	// It does nothing when the decision already has active events.
	CreateForecast(ctx context.Context, decisionID int64) (int, error)
	// CancelForecast cancels every active event of the decision
	CancelForecast(ctx context.Context, decisionID int64) (int, error)
}

type cashFlowServiceImpl struct {
	decisionRepo port.DecisionRepository
	cashFlowRepo port.CashFlowRepository
	txManager    port.TransactionManager
	logger       Logger
}

// NewCashFlowService creates a new CashFlowService
func NewCashFlowService(
	decisionRepo port.DecisionRepository,
	cashFlowRepo port.CashFlowRepository,
	txManager port.TransactionManager,
	logger Logger,
) CashFlowService {
	return &cashFlowServiceImpl{
		decisionRepo: decisionRepo,
		cashFlowRepo: cashFlowRepo,
		txManager:    txManager,
		logger:       logger,
	}
}

func (s *cashFlowServiceImpl) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeDecisionFinalized, "cashflow.create_forecast", func(ctx context.Context, evt *event.Event) error {
		_, err := s.CreateForecast(ctx, evt.DecisionID)
		return err
	})
	d.SubscribeNamed(event.TypeDecisionReverted, "cashflow.cancel_forecast", func(ctx context.Context, evt *event.Event) error {
		_, err := s.CancelForecast(ctx, evt.DecisionID)
		return err
	})
}

func (s *cashFlowServiceImpl) ListByDecision(ctx context.Context, decisionID int64, activeOnly bool) ([]*entity.CashFlowEvent, error) {
	events, err := s.cashFlowRepo.ListByDecision(ctx, decisionID, activeOnly)
	if err != nil {
		return nil, apperror.Persistence("list cash flow events", err)
	}
	return events, nil
}

func (s *cashFlowServiceImpl) CreateForecast(ctx context.Context, decisionID int64) (int, error) {
	d, err := s.decisionRepo.GetByID(ctx, decisionID)
	if err != nil {
		return 0, fmt.Errorf("load decision: %w", err)
	}
	if d == nil {
		return 0, apperror.NotFound("decision", decisionID)
	}
	if d.Status != entity.DecisionStatusLocked {
		return 0, apperror.Conflict("decision %d is %s, forecasts are created for LOCKED decisions only", decisionID, d.Status)
	}

	events, err := s.forecastEvents(d)
	if err != nil {
		return 0, err
	}

	created := 0
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := s.cashFlowRepo.ListByDecision(txCtx, decisionID, true)
		if err != nil {
			return fmt.Errorf("list cash flow events: %w", err)
		}
		if len(existing) > 0 {
			return nil
		}
		for _, evt := range events {
			if err := s.cashFlowRepo.Create(txCtx, evt); err != nil {
				return fmt.Errorf("create cash flow event: %w", err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create forecast cash flows", "error", err, "decision_id", decisionID)
		return 0, err
	}

	if created == 0 {
		s.logger.Info("Forecast cash flows already present", "decision_id", decisionID)
	} else {
		s.logger.Info("Forecast cash flows created", "decision_id", decisionID, "events", created)
	}
	return created, nil
}

func (s *cashFlowServiceImpl) CancelForecast(ctx context.Context, decisionID int64) (int, error) {
	var cancelled int
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		cancelled, err = s.cashFlowRepo.CancelByDecision(txCtx, decisionID, time.Now())
		return err
	})
	if err != nil {
		s.logger.Error("Failed to cancel forecast cash flows", "error", err, "decision_id", decisionID)
		return 0, fmt.Errorf("cancel cash flow events: %w", err)
	}
	s.logger.Info("Forecast cash flows cancelled", "decision_id", decisionID, "events", cancelled)
	return cancelled, nil
}

// forecastEvents builds one inflow at the resolved invoice date and one
// outflow per payment installment
func (s *cashFlowServiceImpl) forecastEvents(d *entity.Decision) ([]*entity.CashFlowEvent, error) {
	if d.ForecastInvoice == nil || !d.ForecastInvoiceAmount.Valid {
		return nil, apperror.Validation("forecast_invoice", "decision %d has no forecast invoice", d.ID)
	}
	invoiceDate, err := invoice.ResolveInvoiceDate(d.ForecastInvoice.Normalized(), d.DeliveryDate)
	if err != nil {
		return nil, err
	}
	payments, err := invoice.Schedule(d.PaymentTerms, d.PurchaseDate, d.FinalCost)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	events := make([]*entity.CashFlowEvent, 0, 1+len(payments))
	events = append(events, &entity.CashFlowEvent{
		ID:          uuid.NewString(),
		DecisionID:  d.ID,
		FlowType:    entity.FlowInflow,
		Kind:        entity.CashFlowKindForecast,
		EventDate:   invoiceDate,
		Amount:      d.ForecastInvoiceAmount.Decimal,
		Status:      entity.CashFlowStatusActive,
		Description: fmt.Sprintf("Invoice %s", d.Key()),
		CreatedAt:   now,
	})
	for i, p := range payments {
		events = append(events, &entity.CashFlowEvent{
			ID:          uuid.NewString(),
			DecisionID:  d.ID,
			FlowType:    entity.FlowOutflow,
			Kind:        entity.CashFlowKindForecast,
			EventDate:   p.Date,
			Amount:      p.Amount,
			Status:      entity.CashFlowStatusActive,
			Description: fmt.Sprintf("Payment %d/%d %s", i+1, len(payments), d.Key()),
			CreatedAt:   now,
		})
	}
	return events, nil
}
