package payments

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/models"
)

// memStore is an in-memory Store with the same atomicity guarantees the
// Mongo implementation provides, so the reconciler's race behavior can be
// exercised without a database.
type memStore struct {
	mu           sync.Mutex
	orders       map[primitive.ObjectID]*models.Order
	transactions map[string]*models.PaymentTransaction
	quantities   map[primitive.ObjectID]int
}

func newMemStore() *memStore {
	return &memStore{
		orders:       make(map[primitive.ObjectID]*models.Order),
		transactions: make(map[string]*models.PaymentTransaction),
		quantities:   make(map[primitive.ObjectID]int),
	}
}

func (s *memStore) OrderByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (s *memStore) OrderBySessionID(_ context.Context, sessionID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, order := range s.orders {
		if order.PaymentSessionID == sessionID {
			copied := *order
			return &copied, nil
		}
	}
	return nil, ErrOrderNotFound
}

func (s *memStore) SetOrderSessionID(_ context.Context, id primitive.ObjectID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	order.PaymentSessionID = sessionID
	order.PaymentStatus = models.PaymentStatusPending
	return nil
}

func (s *memStore) MarkOrderPaid(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if order.PaymentStatus == models.PaymentStatusPaid {
		return nil, ErrAlreadySettled
	}
	prior := *order
	order.PaymentStatus = models.PaymentStatusPaid
	order.Status = models.OrderStatusConfirmed
	return &prior, nil
}

func (s *memStore) CancelOrder(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if order.Status == models.OrderStatusCancelled {
		return nil, nil
	}
	prior := *order
	order.Status = models.OrderStatusCancelled
	return &prior, nil
}

func (s *memStore) SetOrderStatus(_ context.Context, id primitive.ObjectID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	order.Status = status
	return nil
}

func (s *memStore) InsertTransaction(_ context.Context, tx *models.PaymentTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *tx
	s.transactions[tx.SessionID] = &copied
	return nil
}

func (s *memStore) TransactionBySessionID(_ context.Context, sessionID string) (*models.PaymentTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	copied := *tx
	return &copied, nil
}

func (s *memStore) UpdateTransactionStatus(_ context.Context, sessionID, status, paymentStatus string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx, ok := s.transactions[sessionID]; ok {
		tx.Status = status
		tx.PaymentStatus = paymentStatus
	}
	return nil
}

func (s *memStore) AdjustProductQuantity(_ context.Context, productID primitive.ObjectID, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quantities[productID] += delta
	return nil
}

func (s *memStore) quantity(productID primitive.ObjectID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quantities[productID]
}

// fakeGateway returns canned responses and treats a fixed signature as valid.
type fakeGateway struct {
	sessionID     string
	redirectURL   string
	status        SessionStatus
	createErr     error
	webhookEvents map[string]*WebhookEvent
}

func (g *fakeGateway) CreateSession(_ context.Context, _ CheckoutParams) (*CheckoutSession, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &CheckoutSession{SessionID: g.sessionID, RedirectURL: g.redirectURL}, nil
}

func (g *fakeGateway) GetStatus(_ context.Context, _ string) (*SessionStatus, error) {
	status := g.status
	return &status, nil
}

func (g *fakeGateway) VerifyWebhook(_ []byte, sigHeader string) (*WebhookEvent, error) {
	event, ok := g.webhookEvents[sigHeader]
	if !ok {
		return nil, ErrInvalidSignature
	}
	return event, nil
}

func seedOrder(store *memStore, productID primitive.ObjectID, price float64, qty, stock int) *models.Order {
	order := &models.Order{
		ID: primitive.NewObjectID(),
		Items: []models.OrderItem{
			{ProductID: productID, Name: "Banner", Price: price, Quantity: qty},
		},
		TotalAmount:   price * float64(qty),
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusUnpaid,
	}
	store.orders[order.ID] = order
	store.quantities[productID] = stock
	return order
}

func paidWebhook(sessionID string, orderID primitive.ObjectID) *WebhookEvent {
	return &WebhookEvent{
		SessionID:     sessionID,
		PaymentStatus: models.PaymentStatusPaid,
		Metadata:      map[string]string{"order_id": orderID.Hex()},
	}
}

func TestCreateCheckoutRecordsTransactionAndSession(t *testing.T) {
	store := newMemStore()
	productID := primitive.NewObjectID()
	order := seedOrder(store, productID, 10, 2, 5)

	gateway := &fakeGateway{sessionID: "cs_test_1", redirectURL: "https://pay.example/cs_test_1"}
	rec := NewReconciler(store, gateway, zap.NewNop())

	sess, err := rec.CreateCheckout(context.Background(), order.ID, "https://shop.example")
	if err != nil {
		t.Fatalf("CreateCheckout returned error: %v", err)
	}
	if sess.SessionID != "cs_test_1" || sess.RedirectURL == "" {
		t.Fatalf("unexpected session: %+v", sess)
	}

	tx, err := store.TransactionBySessionID(context.Background(), "cs_test_1")
	if err != nil {
		t.Fatalf("transaction not recorded: %v", err)
	}
	if tx.Status != models.TransactionStatusInitiated || tx.PaymentStatus != models.PaymentStatusPending {
		t.Fatalf("expected initiated/pending transaction, got %s/%s", tx.Status, tx.PaymentStatus)
	}
	if tx.Amount != 20 {
		t.Fatalf("expected transaction amount 20, got %v", tx.Amount)
	}

	updated, _ := store.OrderByID(context.Background(), order.ID)
	if updated.PaymentSessionID != "cs_test_1" {
		t.Fatalf("session id not stored on order, got %q", updated.PaymentSessionID)
	}
	if updated.PaymentStatus != models.PaymentStatusPending {
		t.Fatalf("expected payment_status pending, got %s", updated.PaymentStatus)
	}
}

func TestCreateCheckoutGatewayFailureWritesNothing(t *testing.T) {
	store := newMemStore()
	productID := primitive.NewObjectID()
	order := seedOrder(store, productID, 10, 1, 5)

	gateway := &fakeGateway{createErr: errors.New("gateway down")}
	rec := NewReconciler(store, gateway, zap.NewNop())

	_, err := rec.CreateCheckout(context.Background(), order.ID, "https://shop.example")
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}

	if len(store.transactions) != 0 {
		t.Fatal("expected no transaction after gateway failure")
	}
	unchanged, _ := store.OrderByID(context.Background(), order.ID)
	if unchanged.PaymentSessionID != "" || unchanged.PaymentStatus != models.PaymentStatusUnpaid {
		t.Fatalf("order mutated after gateway failure: %+v", unchanged)
	}
}

func TestCreateCheckoutRejectsPaidOrder(t *testing.T) {
	store := newMemStore()
	productID := primitive.NewObjectID()
	order := seedOrder(store, productID, 10, 1, 5)
	store.orders[order.ID].PaymentStatus = models.PaymentStatusPaid

	rec := NewReconciler(store, &fakeGateway{sessionID: "cs_x"}, zap.NewNop())
	_, err := rec.CreateCheckout(context.Background(), order.ID, "https://shop.example")
	if !errors.Is(err, ErrOrderAlreadyPaid) {
		t.Fatalf("expected ErrOrderAlreadyPaid, got %v", err)
	}
}

func TestWebhookSettlementDecrementsInventoryOnce(t *testing.T) {
	store := newMemStore()
	productID := primitive.NewObjectID()
	order := seedOrder(store, productID, 10, 2, 5)

	gateway := &fakeGateway{
		sessionID: "cs_test_2",
		webhookEvents: map[string]*WebhookEvent{
			"sig-ok": paidWebhook("cs_test_2", order.ID),
		},
	}
	rec := NewReconciler(store, gateway, zap.NewNop())

	if _, err := rec.CreateCheckout(context.Background(), order.ID, "https://shop.example"); err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}

	if err := rec.HandleWebhook(context.Background(), []byte("{}"), "sig-ok"); err != nil {
		t.Fatalf("first webhook: %v", err)
	}

	settled, _ := store.OrderByID(context.Background(), order.ID)
	if settled.Status != models.OrderStatusConfirmed || settled.PaymentStatus != models.PaymentStatusPaid {
		t.Fatalf("expected confirmed/paid, got %s/%s", settled.Status, settled.PaymentStatus)
	}
	if got := store.quantity(productID); got != 3 {
		t.Fatalf("expected quantity 3 after settlement, got %d", got)
	}
	tx, _ := store.TransactionBySessionID(context.Background(), "cs_test_2")
	if tx.Status != models.TransactionStatusCompleted || tx.PaymentStatus != models.PaymentStatusPaid {
		t.Fatalf("expected completed/paid transaction, got %s/%s", tx.Status, tx.PaymentStatus)
	}

	// Duplicate delivery must be absorbed without a second decrement.
	if err := rec.HandleWebhook(context.Background(), []byte("{}"), "sig-ok"); err != nil {
		t.Fatalf("duplicate webhook surfaced error: %v", err)
	}
	if got := store.quantity(productID); got != 3 {
		t.Fatalf("duplicate webhook changed quantity to %d", got)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	store := newMemStore()
	gateway := &fakeGateway{webhookEvents: map[string]*WebhookEvent{}}
	rec := NewReconciler(store, gateway, zap.NewNop())

	err := rec.HandleWebhook(context.Background(), []byte("{}"), "sig-bad")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestPollThenWebhookSettlesOnce(t *testing.T) {
	store := newMemStore()
	productID := primitive.NewObjectID()
	order := seedOrder(store, productID, 10, 2, 10)

	gateway := &fakeGateway{
		sessionID: "cs_test_3",
		status: SessionStatus{
			Status:        "complete",
			PaymentStatus: models.PaymentStatusPaid,
			AmountTotal:   20,
			Currency:      "usd",
		},
		webhookEvents: map[string]*WebhookEvent{
			"sig-ok": paidWebhook("cs_test_3", order.ID),
		},
	}
	rec := NewReconciler(store, gateway, zap.NewNop())

	if _, err := rec.CreateCheckout(context.Background(), order.ID, "https://shop.example"); err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}

	if _, err := rec.PollStatus(context.Background(), "cs_test_3"); err != nil {
		t.Fatalf("PollStatus: %v", err)
	}
	if got := store.quantity(productID); got != 8 {
		t.Fatalf("expected quantity 8 after poll settlement, got %d", got)
	}

	if err := rec.HandleWebhook(context.Background(), []byte("{}"), "sig-ok"); err != nil {
		t.Fatalf("webhook after poll: %v", err)
	}
	if got := store.quantity(productID); got != 8 {
		t.Fatalf("webhook after poll changed quantity to %d", got)
	}

	if _, err := rec.PollStatus(context.Background(), "cs_test_3"); err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if got := store.quantity(productID); got != 8 {
		t.Fatalf("second poll changed quantity to %d", got)
	}
}

func TestPollRecoversOrphanedSession(t *testing.T) {
	store := newMemStore()
	productID := primitive.NewObjectID()
	order := seedOrder(store, productID, 15, 1, 4)

	// Simulate a checkout where the session id reached the order but the
	// transaction insert was lost.
	store.orders[order.ID].PaymentSessionID = "cs_orphan"
	store.orders[order.ID].PaymentStatus = models.PaymentStatusPending

	gateway := &fakeGateway{
		status: SessionStatus{
			Status:        "complete",
			PaymentStatus: models.PaymentStatusPaid,
			AmountTotal:   15,
			Currency:      "usd",
		},
	}
	rec := NewReconciler(store, gateway, zap.NewNop())

	if _, err := rec.PollStatus(context.Background(), "cs_orphan"); err != nil {
		t.Fatalf("PollStatus: %v", err)
	}

	tx, err := store.TransactionBySessionID(context.Background(), "cs_orphan")
	if err != nil {
		t.Fatalf("transaction not recovered: %v", err)
	}
	if tx.OrderID != order.ID {
		t.Fatal("recovered transaction not linked to order")
	}
	if got := store.quantity(productID); got != 3 {
		t.Fatalf("expected quantity 3 after recovered settlement, got %d", got)
	}
}

func TestCancelBeforePaymentLeavesInventoryAlone(t *testing.T) {
	store := newMemStore()
	productID := primitive.NewObjectID()
	order := seedOrder(store, productID, 10, 2, 7)

	rec := NewReconciler(store, &fakeGateway{}, zap.NewNop())
	if err := rec.Cancel(context.Background(), order.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	cancelled, _ := store.OrderByID(context.Background(), order.ID)
	if cancelled.Status != models.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if got := store.quantity(productID); got != 7 {
		t.Fatalf("cancel before payment changed quantity to %d", got)
	}
}

func TestCancelAfterPaymentRestocks(t *testing.T) {
	store := newMemStore()
	productID := primitive.NewObjectID()
	order := seedOrder(store, productID, 10, 2, 5)

	gateway := &fakeGateway{
		sessionID: "cs_test_4",
		webhookEvents: map[string]*WebhookEvent{
			"sig-ok": paidWebhook("cs_test_4", order.ID),
		},
	}
	rec := NewReconciler(store, gateway, zap.NewNop())

	if _, err := rec.CreateCheckout(context.Background(), order.ID, "https://shop.example"); err != nil {
		t.Fatalf("CreateCheckout: %v", err)
	}
	if err := rec.HandleWebhook(context.Background(), []byte("{}"), "sig-ok"); err != nil {
		t.Fatalf("webhook: %v", err)
	}
	if got := store.quantity(productID); got != 3 {
		t.Fatalf("expected quantity 3 after settlement, got %d", got)
	}

	if err := rec.Cancel(context.Background(), order.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got := store.quantity(productID); got != 5 {
		t.Fatalf("expected quantity restored to 5, got %d", got)
	}

	// A repeated cancel must not restock again.
	if err := rec.Cancel(context.Background(), order.ID); err != nil {
		t.Fatalf("second Cancel: %v", err)
	}
	if got := store.quantity(productID); got != 5 {
		t.Fatalf("second cancel changed quantity to %d", got)
	}
}

func TestConcurrentSettlementsOnSharedProduct(t *testing.T) {
	store := newMemStore()
	productID := primitive.NewObjectID()

	first := seedOrder(store, productID, 10, 2, 100)
	second := &models.Order{
		ID: primitive.NewObjectID(),
		Items: []models.OrderItem{
			{ProductID: productID, Name: "Banner", Price: 10, Quantity: 3},
		},
		TotalAmount:   30,
		Status:        models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusUnpaid,
	}
	store.orders[second.ID] = second

	gateway := &fakeGateway{
		webhookEvents: map[string]*WebhookEvent{
			"sig-a": paidWebhook("cs_a", first.ID),
			"sig-b": paidWebhook("cs_b", second.ID),
		},
	}
	rec := NewReconciler(store, gateway, zap.NewNop())

	var wg sync.WaitGroup
	for _, sig := range []string{"sig-a", "sig-b", "sig-a", "sig-b"} {
		wg.Add(1)
		go func(sig string) {
			defer wg.Done()
			_ = rec.HandleWebhook(context.Background(), []byte("{}"), sig)
		}(sig)
	}
	wg.Wait()

	// Both decrements applied, each exactly once.
	if got := store.quantity(productID); got != 95 {
		t.Fatalf("expected quantity 95, got %d", got)
	}
}
