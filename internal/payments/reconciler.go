package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/models"
)

const defaultCurrency = "usd"

// Reconciler orchestrates checkout-session creation, payment-status polling,
// webhook confirmation and cancellation. It is the only place that mutates
// orders, transactions and inventory together; the gateway may report a
// payment paid via webhook, via polling, or both, any number of times, and
// the settlement barrier ensures inventory moves exactly once per order.
type Reconciler struct {
	store   Store
	gateway Gateway
	log     *zap.Logger
}

func NewReconciler(store Store, gateway Gateway, log *zap.Logger) *Reconciler {
	return &Reconciler{store: store, gateway: gateway, log: log}
}

// CreateCheckout requests a gateway session for the order's total and records
// the attempt locally. The gateway call happens first: if a local write fails
// afterwards, the orphaned session is still reconcilable through PollStatus.
func (r *Reconciler) CreateCheckout(ctx context.Context, orderID primitive.ObjectID, baseURL string) (*CheckoutSession, error) {
	order, err := r.store.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentStatus == models.PaymentStatusPaid {
		return nil, ErrOrderAlreadyPaid
	}

	metadata := map[string]string{"order_id": orderID.Hex()}
	sess, err := r.gateway.CreateSession(ctx, CheckoutParams{
		Amount:     order.TotalAmount,
		Currency:   defaultCurrency,
		SuccessURL: baseURL + "/payment/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  baseURL + "/payment/cancel?order_id=" + orderID.Hex(),
		Metadata:   metadata,
	})
	if err != nil {
		return nil, &GatewayError{Op: "create session", Err: err}
	}

	tx := &models.PaymentTransaction{
		ID:            primitive.NewObjectID(),
		OrderID:       orderID,
		SessionID:     sess.SessionID,
		Amount:        order.TotalAmount,
		Currency:      defaultCurrency,
		Status:        models.TransactionStatusInitiated,
		PaymentStatus: models.PaymentStatusPending,
		Metadata:      metadata,
		CreatedAt:     time.Now().UTC(),
	}
	if err := r.store.InsertTransaction(ctx, tx); err != nil {
		r.log.Error("checkout session created but transaction write failed",
			zap.String("order_id", orderID.Hex()),
			zap.String("session_id", sess.SessionID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("record transaction: %w", err)
	}
	if err := r.store.SetOrderSessionID(ctx, orderID, sess.SessionID); err != nil {
		r.log.Error("checkout session created but order link failed",
			zap.String("order_id", orderID.Hex()),
			zap.String("session_id", sess.SessionID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("link session to order: %w", err)
	}

	return sess, nil
}

// PollStatus fetches the gateway's view of a session and applies settlement
// when the gateway reports paid and the local transaction has not settled.
// A session the gateway knows but local storage does not (a failed write
// during checkout creation) is rebuilt here before settling.
func (r *Reconciler) PollStatus(ctx context.Context, sessionID string) (*SessionStatus, error) {
	status, err := r.gateway.GetStatus(ctx, sessionID)
	if err != nil {
		return nil, &GatewayError{Op: "get status", Err: err}
	}

	tx, err := r.store.TransactionBySessionID(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		tx, err = r.recoverTransaction(ctx, sessionID, status)
	}
	if err != nil {
		return nil, err
	}

	if tx.PaymentStatus != models.PaymentStatusPaid {
		if err := r.store.UpdateTransactionStatus(ctx, sessionID, status.Status, status.PaymentStatus); err != nil {
			return nil, err
		}
		if status.PaymentStatus == models.PaymentStatusPaid {
			if err := r.settle(ctx, tx.OrderID, sessionID); err != nil && !errors.Is(err, ErrAlreadySettled) {
				return nil, err
			}
		}
	}

	return status, nil
}

// HandleWebhook verifies and applies a gateway-initiated notification.
// Duplicate deliveries settle at most once; events this system does not act
// on are acknowledged without effect.
func (r *Reconciler) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := r.gateway.VerifyWebhook(payload, sigHeader)
	if err != nil {
		return err
	}
	if event.SessionID == "" || event.PaymentStatus != models.PaymentStatusPaid {
		return nil
	}

	orderID, err := primitive.ObjectIDFromHex(event.Metadata["order_id"])
	if err != nil {
		return fmt.Errorf("webhook metadata missing order_id: %w", err)
	}

	if err := r.settle(ctx, orderID, event.SessionID); err != nil {
		if errors.Is(err, ErrAlreadySettled) {
			r.log.Info("duplicate payment notification absorbed",
				zap.String("order_id", orderID.Hex()),
				zap.String("session_id", event.SessionID),
			)
			return nil
		}
		return err
	}
	return nil
}

// Cancel transitions an order to cancelled and restores inventory, but only
// when the order had actually been paid: cancelling a never-paid order must
// not inflate stock. Cancelling an already-cancelled order is a no-op.
func (r *Reconciler) Cancel(ctx context.Context, orderID primitive.ObjectID) error {
	prior, err := r.store.CancelOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if prior == nil {
		return nil
	}

	if prior.PaymentStatus == models.PaymentStatusPaid {
		for _, item := range prior.Items {
			if err := r.store.AdjustProductQuantity(ctx, item.ProductID, item.Quantity); err != nil {
				r.log.Error("restock failed",
					zap.String("order_id", orderID.Hex()),
					zap.String("product_id", item.ProductID.Hex()),
					zap.Int("quantity", item.Quantity),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// settle applies the paid state exactly once: the compare-and-set inside
// MarkOrderPaid is the sole idempotency barrier, and only its winner runs the
// inventory decrement and transaction completion.
func (r *Reconciler) settle(ctx context.Context, orderID primitive.ObjectID, sessionID string) error {
	prior, err := r.store.MarkOrderPaid(ctx, orderID)
	if err != nil {
		return err
	}

	for _, item := range prior.Items {
		if err := r.store.AdjustProductQuantity(ctx, item.ProductID, -item.Quantity); err != nil {
			r.log.Error("inventory decrement failed",
				zap.String("order_id", orderID.Hex()),
				zap.String("product_id", item.ProductID.Hex()),
				zap.Int("quantity", item.Quantity),
				zap.Error(err),
			)
		}
	}

	if err := r.store.UpdateTransactionStatus(ctx, sessionID, models.TransactionStatusCompleted, models.PaymentStatusPaid); err != nil {
		return err
	}

	r.log.Info("order settled",
		zap.String("order_id", orderID.Hex()),
		zap.String("session_id", sessionID),
	)
	return nil
}

// recoverTransaction rebuilds the local transaction record for a session the
// gateway knows about but checkout creation failed to persist.
func (r *Reconciler) recoverTransaction(ctx context.Context, sessionID string, status *SessionStatus) (*models.PaymentTransaction, error) {
	order, err := r.store.OrderBySessionID(ctx, sessionID)
	if errors.Is(err, ErrOrderNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	tx := &models.PaymentTransaction{
		ID:            primitive.NewObjectID(),
		OrderID:       order.ID,
		SessionID:     sessionID,
		Amount:        status.AmountTotal,
		Currency:      status.Currency,
		Status:        models.TransactionStatusInitiated,
		PaymentStatus: models.PaymentStatusPending,
		Metadata:      map[string]string{"order_id": order.ID.Hex()},
		CreatedAt:     time.Now().UTC(),
	}
	if err := r.store.InsertTransaction(ctx, tx); err != nil {
		return nil, err
	}

	r.log.Warn("recovered orphaned payment session",
		zap.String("order_id", order.ID.Hex()),
		zap.String("session_id", sessionID),
	)
	return tx, nil
}
