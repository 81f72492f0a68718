package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/sambamart/storefront/internal/domain/auth"
	"github.com/sambamart/storefront/internal/domain/catalog"
)

const instrumentationName = "github.com/sambamart/storefront/internal/domain/order"

// DefaultStoreTimeout bounds every persistence call made by the Service.
const DefaultStoreTimeout = 5 * time.Second

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Address string        `json:"address" validate:"required"`
	Items   []LineRequest `json:"items" validate:"required,min=1,dive"`
}

// Options configures a Service. Zero values select defaults.
type Options struct {
	UnknownProducts UnknownProductPolicy
	StoreTimeout    time.Duration
	TracerProvider  trace.TracerProvider
	MeterProvider   metric.MeterProvider
}

// Service encapsulates order placement and retrieval.
type Service struct {
	products catalog.Reader
	orders   Repository

	unknown      UnknownProductPolicy
	storeTimeout time.Duration

	tracer  trace.Tracer
	created metric.Int64Counter
	amount  metric.Int64Counter
}

// NewService creates an order Service. products must read the authoritative
// catalog, not a cache.
func NewService(products catalog.Reader, orders Repository, opts Options) (*Service, error) {
	if opts.UnknownProducts == "" {
		opts.UnknownProducts = SkipUnknown
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = DefaultStoreTimeout
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = tracenoop.NewTracerProvider()
	}
	if opts.MeterProvider == nil {
		opts.MeterProvider = metricnoop.NewMeterProvider()
	}

	meter := opts.MeterProvider.Meter(instrumentationName)
	created, err := meter.Int64Counter("orders.created",
		metric.WithDescription("Number of orders placed"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create orders.created counter")
	}
	amount, err := meter.Int64Counter("orders.amount",
		metric.WithDescription("Sum of placed order totals"),
		metric.WithUnit("{minor_unit}"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create orders.amount counter")
	}

	return &Service{
		products:     products,
		orders:       orders,
		unknown:      opts.UnknownProducts,
		storeTimeout: opts.StoreTimeout,
		tracer:       opts.TracerProvider.Tracer(instrumentationName),
		created:      created,
		amount:       amount,
	}, nil
}

// CreateOrder validates the request, prices every line from the catalog and
// persists the order together with its items. The returned order carries no
// items.
func (s *Service) CreateOrder(ctx context.Context, subject auth.Subject, req PlaceOrderRequest) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.CreateOrder")
	defer func() { endSpan(span, rerr) }()

	if subject.IsZero() {
		return nil, auth.ErrUnauthenticated
	}
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	ids := make([]int64, len(req.Items))
	for i, item := range req.Items {
		ids[i] = item.ProductID
	}

	fetched, err := s.loadProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	// Price every resolved line from the catalog. The client never sends a price.
	var (
		total int64
		items = make([]Item, 0, len(req.Items))
	)
	for _, line := range req.Items {
		p, ok := fetched[line.ProductID]
		if !ok {
			if s.unknown == RejectUnknown {
				return nil, &ProductNotFoundError{ProductID: line.ProductID}
			}
			span.AddEvent("skipped unknown product",
				trace.WithAttributes(attribute.Int64("product.id", line.ProductID)),
			)
			continue
		}
		next, ok := addLine(total, p.Price, line.Quantity)
		if !ok {
			return nil, &ValidationError{Field: "items", Message: "order total is too large"}
		}
		total = next
		items = append(items, Item{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     p.Price,
		})
	}

	o := &Order{
		UserID:      subject.ID,
		Status:      StatusPending,
		TotalAmount: total,
		Address:     req.Address,
		Items:       items,
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.orders.Create(storeCtx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	span.SetAttributes(
		attribute.Int64("order.id", o.ID),
		attribute.Int64("order.total", o.TotalAmount),
		attribute.Int("order.items", len(o.Items)),
	)
	s.created.Add(ctx, 1)
	s.amount.Add(ctx, o.TotalAmount)

	created := *o
	created.Items = nil
	return &created, nil
}

// ListOrders returns the subject's orders, newest first.
func (s *Service) ListOrders(ctx context.Context, subject auth.Subject) (_ []Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.ListOrders")
	defer func() { endSpan(span, rerr) }()

	if subject.IsZero() {
		return nil, auth.ErrUnauthenticated
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	orders, err := s.orders.ListByUser(storeCtx, subject.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// GetOrder returns the order with its items when it belongs to subject. It
// returns ErrOrderNotFound for a missing order and ErrForbidden for an order
// owned by someone else.
func (s *Service) GetOrder(ctx context.Context, id int64, subject auth.Subject) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.GetOrder",
		trace.WithAttributes(attribute.Int64("order.id", id)),
	)
	defer func() { endSpan(span, rerr) }()

	if subject.IsZero() {
		return nil, auth.ErrUnauthenticated
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	o, err := s.orders.Get(storeCtx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, errors.Wrapf(err, "get order %d", id)
	}
	if o.UserID != subject.ID {
		return nil, ErrForbidden
	}
	return o, nil
}

// loadProducts fetches all requested products in a single batch.
func (s *Service) loadProducts(ctx context.Context, ids []int64) (map[int64]catalog.Product, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	fetched, err := s.products.GetProductsByIDs(storeCtx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}

	byID := make(map[int64]catalog.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}
	return byID, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
