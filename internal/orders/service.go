package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ariefcatur/storefront-orders/internal/catalog"
)

// Store is the catalog document's read-modify-write entry point.
type Store interface {
	Update(ctx context.Context, fn func(*catalog.Document) error) error
}

// Notifier tells the shop operator about a new order.
type Notifier interface {
	NotifyOrder(ctx context.Context, d Details) error
}

// Publisher announces persisted orders to downstream consumers. It must not
// block and has no way to fail the submission.
type Publisher interface {
	OrderPlaced(ctx context.Context, o Order, sold []catalog.ID)
}

// Recorder counts pipeline outcomes.
type Recorder interface {
	OrderPlaced()
	NotificationFailed()
	PersistenceFailed()
}

// Outcome carries the two independent result channels of a submission.
type Outcome struct {
	Stage        Stage
	Order        Order
	Notification error
	Persistence  error
}

// Err is the error the caller sees: only persistence escalates.
func (o Outcome) Err() error { return o.Persistence }

type Service struct {
	store         Store
	notifier      Notifier
	publisher     Publisher
	recorder      Recorder
	log           *slog.Logger
	notifyTimeout time.Duration
	now           func() time.Time
}

type Option func(*Service)

func WithPublisher(p Publisher) Option { return func(s *Service) { s.publisher = p } }

func WithRecorder(r Recorder) Option { return func(s *Service) { s.recorder = r } }

func WithNotifyTimeout(d time.Duration) Option { return func(s *Service) { s.notifyTimeout = d } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(store Store, notifier Notifier, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:         store,
		notifier:      notifier,
		publisher:     nopPublisher{},
		recorder:      nopRecorder{},
		log:           log,
		notifyTimeout: 10 * time.Second,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrder validates the submission, notifies the operator (best-effort)
// and then persists the order together with the sold-out flags. A failed
// persist does not undo a notification that was already sent.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (Outcome, error) {
	out := Outcome{Stage: StageReceived}

	if req.OrderDetails == nil || req.SoldProducts == nil {
		s.advance(&out, StageFailed)
		return out, fmt.Errorf("%w: orderDetails and soldProducts are required", ErrInvalidRequest)
	}
	s.advance(&out, StageValidated)

	// A validated submission runs to completion even if the client goes away.
	ctx = context.WithoutCancel(ctx)
	details := *req.OrderDetails
	if details.Items == nil {
		details.Items = []Item{}
	}

	out.Notification = s.notify(ctx, details)
	if out.Notification != nil {
		s.recorder.NotificationFailed()
		s.log.Warn("order notification failed", "customer_email", details.Email, "error", out.Notification)
	}
	s.advance(&out, StageNotified)

	order, err := s.persist(ctx, details, req.SoldProducts)
	if err != nil {
		out.Persistence = err
		s.recorder.PersistenceFailed()
		s.log.Error("order persistence failed", "customer_email", details.Email, "notified", out.Notification == nil, "error", err)
		s.advance(&out, StageFailed)
		return out, out.Err()
	}
	out.Order = order
	s.advance(&out, StagePersisted)
	s.recorder.OrderPlaced()
	s.publisher.OrderPlaced(ctx, order, req.SoldProducts)
	s.log.Info("order placed", "order_id", order.ID, "items", len(order.Items), "sold_products", len(req.SoldProducts))

	return out, out.Err()
}

// notify runs the notifier under the configured timeout. The notifier runs
// in its own goroutine so one that ignores its context still cannot hold up
// persistence, and a panic inside it is reported as an ordinary failure.
func (s *Service) notify(ctx context.Context, d Details) error {
	ctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("notifier panic: %v", r)
			}
		}()
		done <- s.notifier.NotifyOrder(ctx, d)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("notify: %w", ctx.Err())
	}
}

func (s *Service) persist(ctx context.Context, d Details, sold []catalog.ID) (Order, error) {
	var order Order
	err := s.store.Update(ctx, func(doc *catalog.Document) error {
		if n := doc.MarkSoldOut(sold); n < len(sold) {
			s.log.Debug("sold products not in catalog", "requested", len(sold), "matched", n)
		}

		now := s.now().UTC()
		id := now.UnixMilli()
		if next := doc.MaxNumericID(catalog.CollectionOrders) + 1; next > id {
			id = next
		}
		order = Order{ID: id, OrderDate: now, Details: d}

		rec, err := catalog.ToRecord(order)
		if err != nil {
			return err
		}
		_, err = doc.Insert(catalog.CollectionOrders, rec)
		return err
	})
	if err != nil {
		return Order{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return order, nil
}

func (s *Service) advance(out *Outcome, to Stage) {
	if !CanTransition(out.Stage, to) {
		s.log.Error("invalid pipeline transition", "from", out.Stage, "to", to)
		return
	}
	out.Stage = to
}

// IsInvalid reports whether err came from request validation.
func IsInvalid(err error) bool { return errors.Is(err, ErrInvalidRequest) }

type nopPublisher struct{}

func (nopPublisher) OrderPlaced(context.Context, Order, []catalog.ID) {}

type nopRecorder struct{}

func (nopRecorder) OrderPlaced()        {}
func (nopRecorder) NotificationFailed() {}
func (nopRecorder) PersistenceFailed()  {}
