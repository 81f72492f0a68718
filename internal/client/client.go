// Package client is the HTTP client of the storefront API used by the
// terminal client.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/sambamart/storefront/internal/api"
	"github.com/sambamart/storefront/internal/domain/auth"
	"github.com/sambamart/storefront/internal/domain/catalog"
	"github.com/sambamart/storefront/internal/domain/order"
)

var _ catalog.Reader = (*Client)(nil)

// APIError is a non-2xx response. It unwraps to auth.ErrUnauthenticated for
// 401 and order.ErrForbidden for 403.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return auth.ErrUnauthenticated
	case http.StatusForbidden:
		return order.ErrForbidden
	default:
		return nil
	}
}

// Options configures a Client.
type Options struct {
	// Token is sent as a bearer token when set.
	Token string
	// Timeout bounds every request. Defaults to 10 seconds.
	Timeout time.Duration
	// HTTPClient overrides the underlying client.
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client calls the storefront API.
type Client struct {
	http *resty.Client
}

// New creates a Client for the API at baseURL.
func New(baseURL string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	rc := resty.New()
	if opts.HTTPClient != nil {
		rc = resty.NewWithClient(opts.HTTPClient)
	}
	rc.SetBaseURL(baseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetLogger(opts.Logger.Sugar())
	if opts.Token != "" {
		rc.SetAuthToken(opts.Token)
	}
	return &Client{http: rc}
}

// get performs a GET and decodes a 200 response into dst.
func (c *Client) get(ctx context.Context, req *resty.Request, path string, dst api.Decoder) error {
	resp, err := req.SetContext(ctx).Get(path)
	if err != nil {
		return errors.Wrapf(err, "get %s", path)
	}
	return decode(resp, http.StatusOK, dst)
}

// decode checks the status and decodes the body into dst.
func decode(resp *resty.Response, want int, dst api.Decoder) error {
	if resp.StatusCode() != want {
		apiErr := &APIError{StatusCode: resp.StatusCode(), Message: http.StatusText(resp.StatusCode())}
		var body api.Error
		if err := api.Unmarshal(resp.Body(), &body); err == nil && body.Message != "" {
			apiErr.Message = body.Message
		}
		return apiErr
	}
	if err := api.Unmarshal(resp.Body(), dst); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

// notFound maps a 404 APIError to target.
func notFound(err, target error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return target
	}
	return err
}

// ListProducts implements catalog.Reader.
func (c *Client) ListProducts(ctx context.Context, f catalog.Filter) ([]catalog.Product, error) {
	req := c.http.R()
	if f.CategoryID != nil {
		req.SetQueryParam("categoryId", strconv.FormatInt(*f.CategoryID, 10))
	}
	if f.Search != "" {
		req.SetQueryParam("search", f.Search)
	}
	var out api.Products
	if err := c.get(ctx, req, "/api/products", &out); err != nil {
		return nil, err
	}
	return out.Domain(), nil
}

// GetProduct implements catalog.Reader.
func (c *Client) GetProduct(ctx context.Context, id int64) (*catalog.Product, error) {
	var out api.Product
	req := c.http.R().SetPathParam("id", strconv.FormatInt(id, 10))
	if err := c.get(ctx, req, "/api/products/{id}", &out); err != nil {
		return nil, notFound(err, catalog.ErrProductNotFound)
	}
	p := out.Domain()
	return &p, nil
}

// GetProductsByIDs implements catalog.Reader with a single listing request.
// Unknown ids are omitted.
func (c *Client) GetProductsByIDs(ctx context.Context, ids []int64) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	all, err := c.ListProducts(ctx, catalog.Filter{})
	if err != nil {
		return nil, err
	}
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []catalog.Product
	for _, p := range all {
		if _, ok := want[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// ListCategories implements catalog.Reader.
func (c *Client) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	var out api.Categories
	if err := c.get(ctx, c.http.R(), "/api/categories", &out); err != nil {
		return nil, err
	}
	return out.Domain(), nil
}

// GetCategory implements catalog.Reader.
func (c *Client) GetCategory(ctx context.Context, id int64) (*catalog.Category, error) {
	var out api.Category
	req := c.http.R().SetPathParam("id", strconv.FormatInt(id, 10))
	if err := c.get(ctx, req, "/api/categories/{id}", &out); err != nil {
		return nil, notFound(err, catalog.ErrCategoryNotFound)
	}
	cat := out.Domain()
	return &cat, nil
}

// CreateOrder submits req. The request carries no prices.
func (c *Client) CreateOrder(ctx context.Context, req api.OrderReq) (*order.Order, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(api.Marshal(&req)).
		Post("/api/orders")
	if err != nil {
		return nil, errors.Wrap(err, "post /api/orders")
	}
	var out api.Order
	if err := decode(resp, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	o := out.Domain()
	return &o, nil
}

// ListOrders returns the caller's orders, newest first.
func (c *Client) ListOrders(ctx context.Context) ([]order.Order, error) {
	var out api.Orders
	if err := c.get(ctx, c.http.R(), "/api/orders", &out); err != nil {
		return nil, err
	}
	orders := make([]order.Order, len(out))
	for i, o := range out {
		orders[i] = o.Domain()
	}
	return orders, nil
}

// GetOrder returns one of the caller's orders with its items.
func (c *Client) GetOrder(ctx context.Context, id int64) (*order.Order, error) {
	var out api.Order
	req := c.http.R().SetPathParam("id", strconv.FormatInt(id, 10))
	if err := c.get(ctx, req, "/api/orders/{id}", &out); err != nil {
		return nil, notFound(err, order.ErrOrderNotFound)
	}
	o := out.Domain()
	return &o, nil
}

// Me returns the subject the server sees for the configured token. The
// boolean is false when the request is anonymous.
func (c *Client) Me(ctx context.Context) (auth.Subject, bool, error) {
	var out api.OptNilUser
	if err := c.get(ctx, c.http.R(), "/api/user", &out); err != nil {
		return auth.Subject{}, false, err
	}
	u, ok := out.Get()
	return auth.Subject(u), ok, nil
}
