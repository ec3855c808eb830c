package budgetapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/domain"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/infra/observability"
	"github.com/budgetbuddy/budget-buddy-bfa-go/internal/infra/resilience"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("budgetapi")

// ServiceName labels upstream errors and the circuit breaker.
const ServiceName = "budget-api"

// APIPrefix is the path under which the backend serves authenticated resources.
const APIPrefix = "/protected/api/v1"

// maxBodyBytes caps how much of an upstream response is read.
const maxBodyBytes = 8 << 20

// Client calls the Budget Buddy REST backend on behalf of a session.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	bulkhead   *resilience.Bulkhead
	pager      Pager
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewClient creates a Client. baseURL is the backend origin; APIPrefix is appended.
func NewClient(
	httpClient *http.Client,
	baseURL string,
	cb *gobreaker.CircuitBreaker,
	cfg resilience.Config,
	pager Pager,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Client {
	c := &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/") + APIPrefix,
		cb:         cb,
		cfg:        cfg,
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
		pager:      pager,
		metrics:    metrics,
		logger:     logger,
	}
	return c
}

// IsBreakerSuccess reports whether err should not count against the circuit
// breaker: client-side classifications and caller cancellations say nothing
// about upstream health.
func IsBreakerSuccess(err error) bool {
	return err == nil || isClientError(err) || errors.Is(err, context.Canceled)
}

func isClientError(err error) bool {
	var (
		unauthorized *domain.ErrUnauthorized
		forbidden    *domain.ErrForbidden
		notFound     *domain.ErrNotFound
		conflict     *domain.ErrConflict
		validation   *domain.ErrValidation
	)
	return errors.As(err, &unauthorized) ||
		errors.As(err, &forbidden) ||
		errors.As(err, &notFound) ||
		errors.As(err, &conflict) ||
		errors.As(err, &validation)
}

// ============================================================
// Reads
// ============================================================

// ListCategories returns the session's categories.
func (c *Client) ListCategories(ctx context.Context, s domain.Session) ([]domain.Category, error) {
	ctx, span := tracer.Start(ctx, "BudgetAPI.ListCategories")
	defer span.End()

	payload, err := c.getWithRetry(ctx, s, "categories", "/categories", nil)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	categories := NormalizeCategories(payload)
	span.SetAttributes(attribute.Int("categories.count", len(categories)))
	return categories, nil
}

// ListBudgets returns the session's budgets, optionally narrowed to one cycle month.
func (c *Client) ListBudgets(ctx context.Context, s domain.Session, month domain.Month) ([]domain.Budget, error) {
	ctx, span := tracer.Start(ctx, "BudgetAPI.ListBudgets")
	defer span.End()
	span.SetAttributes(attribute.String("budget.cycle_month", month.String()))

	var query url.Values
	if !month.IsZero() {
		query = url.Values{"cycle_month": {month.String()}}
	}

	payload, err := c.getWithRetry(ctx, s, "budgets", "/budgets", query)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	budgets := NormalizeBudgets(payload)
	span.SetAttributes(attribute.Int("budgets.count", len(budgets)))
	return budgets, nil
}

// ListTransactions walks every page of the transaction listing for q.
// Pages are fetched sequentially and never retried.
func (c *Client) ListTransactions(ctx context.Context, s domain.Session, q domain.TransactionQuery) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "BudgetAPI.ListTransactions")
	defer span.End()
	span.SetAttributes(
		attribute.String("range.start", q.StartDate.String()),
		attribute.String("range.end", q.EndDate.String()),
		attribute.String("transaction.type", string(q.Type)),
		attribute.Int64("category.id", q.CategoryID),
	)

	base := url.Values{}
	if !q.StartDate.IsZero() {
		base.Set("start_date", q.StartDate.String())
	}
	if !q.EndDate.IsZero() {
		base.Set("end_date", q.EndDate.String())
	}
	if q.Type != "" {
		base.Set("type", string(q.Type))
	}
	if q.CategoryID != 0 {
		base.Set("category_id", strconv.FormatInt(q.CategoryID, 10))
	}

	pager := c.pager
	pager.OnPage = func(page int) {
		if c.metrics != nil {
			c.metrics.IncrPage("transactions")
		}
		c.logger.Debug("transactions page fetched", zap.Int("page", page))
	}

	records, err := pager.FetchAll(ctx, "transactions", func(ctx context.Context, page, limit int) (any, error) {
		query := url.Values{}
		for k, v := range base {
			query[k] = v
		}
		query.Set("page", strconv.Itoa(page))
		query.Set("limit", strconv.Itoa(limit))
		return c.do(ctx, s, request{method: http.MethodGet, path: "/transactions", query: query, resource: "transactions"})
	})
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	transactions := normalizeAll(records, NormalizeTransaction)
	span.SetAttributes(attribute.Int("transactions.count", len(transactions)))
	return transactions, nil
}

// ============================================================
// Writes
// ============================================================

// CreateBudget creates a budget and returns it as stored upstream.
func (c *Client) CreateBudget(ctx context.Context, s domain.Session, req domain.BudgetRequest) (*domain.Budget, error) {
	ctx, span := tracer.Start(ctx, "BudgetAPI.CreateBudget")
	defer span.End()
	span.SetAttributes(attribute.Int64("category.id", req.CategoryID))

	body := map[string]any{
		"category_id":   req.CategoryID,
		"budget_amount": json.Number(req.Amount.Decimal.String()),
		"cycle_month":   req.CycleMonth.String(),
	}
	payload, err := c.do(ctx, s, request{method: http.MethodPost, path: "/budgets", body: body, resource: "budget"})
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	fallback := domain.Budget{CategoryID: req.CategoryID, Amount: req.Amount.Decimal, CycleMonth: req.CycleMonth}
	return budgetFrom(payload, fallback), nil
}

// UpdateBudget changes a budget's amount (and category, when set).
func (c *Client) UpdateBudget(ctx context.Context, s domain.Session, id int64, req domain.BudgetRequest) (*domain.Budget, error) {
	ctx, span := tracer.Start(ctx, "BudgetAPI.UpdateBudget")
	defer span.End()
	span.SetAttributes(attribute.Int64("budget.id", id))

	body := map[string]any{"budget_amount": json.Number(req.Amount.Decimal.String())}
	if req.CategoryID != 0 {
		body["category_id"] = req.CategoryID
	}
	if !req.CycleMonth.IsZero() {
		body["cycle_month"] = req.CycleMonth.String()
	}
	payload, err := c.do(ctx, s, request{
		method:     http.MethodPut,
		path:       "/budgets/" + strconv.FormatInt(id, 10),
		body:       body,
		resource:   "budget",
		resourceID: strconv.FormatInt(id, 10),
	})
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	fallback := domain.Budget{ID: id, CategoryID: req.CategoryID, Amount: req.Amount.Decimal, CycleMonth: req.CycleMonth}
	return budgetFrom(payload, fallback), nil
}

// DeleteBudget removes a budget.
func (c *Client) DeleteBudget(ctx context.Context, s domain.Session, id int64) error {
	ctx, span := tracer.Start(ctx, "BudgetAPI.DeleteBudget")
	defer span.End()
	span.SetAttributes(attribute.Int64("budget.id", id))

	_, err := c.do(ctx, s, request{
		method:     http.MethodDelete,
		path:       "/budgets/" + strconv.FormatInt(id, 10),
		resource:   "budget",
		resourceID: strconv.FormatInt(id, 10),
	})
	if err != nil {
		recordSpanError(span, err)
	}
	return err
}

// CreateTransaction records a transaction dated on date. Each call carries a
// fresh Idempotency-Key; the call is not retried.
func (c *Client) CreateTransaction(ctx context.Context, s domain.Session, req domain.TransactionRequest, date domain.Date) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "BudgetAPI.CreateTransaction")
	defer span.End()
	span.SetAttributes(
		attribute.String("transaction.type", string(req.Type)),
		attribute.Int64("category.id", req.CategoryID),
	)

	body := map[string]any{
		"type":   string(req.Type),
		"amount": json.Number(req.Amount.String()),
		"date":   date.String(),
	}
	if req.CategoryID != 0 {
		body["category_id"] = req.CategoryID
	}
	if req.Note != "" {
		body["note"] = req.Note
	}

	payload, err := c.do(ctx, s, request{
		method:   http.MethodPost,
		path:     "/transactions",
		body:     body,
		resource: "transaction",
		header:   http.Header{"Idempotency-Key": {uuid.NewString()}},
	})
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	t := domain.Transaction{CategoryID: req.CategoryID, Type: req.Type, Amount: req.Amount, Date: date, Note: req.Note}
	if r, ok := extractRecord(payload); ok {
		if parsed, ok := NormalizeTransaction(r); ok {
			t.ID = parsed.ID
			if !parsed.Date.IsZero() {
				t.Date = parsed.Date
			}
		}
	}
	return &t, nil
}

func budgetFrom(payload any, fallback domain.Budget) *domain.Budget {
	r, ok := extractRecord(payload)
	if !ok {
		return &fallback
	}
	b, ok := NormalizeBudget(r)
	if !ok {
		return &fallback
	}
	if b.CategoryID == 0 {
		b.CategoryID = fallback.CategoryID
	}
	if b.CycleMonth.IsZero() {
		b.CycleMonth = fallback.CycleMonth
	}
	if b.Amount.IsZero() && !fallback.Amount.IsZero() {
		b.Amount = fallback.Amount
	}
	return &b
}

// ============================================================
// Transport
// ============================================================

type request struct {
	method     string
	path       string
	query      url.Values
	body       any
	header     http.Header
	resource   string
	resourceID string
}

// getWithRetry performs an idempotent single-shot GET with backoff.
// Client errors are not retried.
func (c *Client) getWithRetry(ctx context.Context, s domain.Session, resource, path string, query url.Values) (any, error) {
	var payload any
	err := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
		v, err := c.do(ctx, s, request{method: http.MethodGet, path: path, query: query, resource: resource})
		if err != nil {
			if isClientError(err) || isCircuitOpen(err) {
				return resilience.Permanent(err)
			}
			return err
		}
		payload = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// do sends one request through the bulkhead and circuit breaker and
// classifies the outcome into domain errors.
func (c *Client) do(ctx context.Context, s domain.Session, r request) (any, error) {
	if !s.Authenticated() {
		return nil, &domain.ErrUnauthorized{Message: "missing session token"}
	}

	var body []byte
	if r.body != nil {
		var err error
		if body, err = json.Marshal(r.body); err != nil {
			return nil, fmt.Errorf("encode %s request: %w", r.resource, err)
		}
	}

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, c.transportError(r, err)
	}
	defer c.bulkhead.Release()

	result, err := c.cb.Execute(func() (any, error) {
		return c.roundTrip(ctx, s, r, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &domain.ErrCircuitOpen{Service: ServiceName}
		}
		return nil, err
	}
	return result, nil
}

func (c *Client) roundTrip(ctx context.Context, s domain.Session, r request, body []byte) (any, error) {
	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.AccessToken)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.method != http.MethodGet && s.CSRFToken != "" {
		req.Header.Set("X-CSRF-Token", s.CSRFToken)
	}
	for k, v := range r.header {
		req.Header[k] = v
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(r, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, c.transportError(r, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := c.classifyStatus(r, resp.StatusCode, raw)
		if !isClientError(err) && c.metrics != nil {
			c.metrics.IncrExternalError(ServiceName)
		}
		c.logger.Warn("budget api returned error status",
			zap.String("method", r.method),
			zap.String("path", r.path),
			zap.Int("status", resp.StatusCode),
		)
		return nil, err
	}

	payload, err := decodePayload(raw)
	if err != nil {
		// A 2xx with an unreadable body is treated as an empty list.
		c.logger.Warn("budget api returned malformed payload",
			zap.String("path", r.path),
			zap.Error(err),
		)
		return nil, nil
	}
	return payload, nil
}

func (c *Client) transportError(r request, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if c.metrics != nil {
		c.metrics.IncrExternalError(ServiceName)
	}
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return &domain.ErrTimeout{Operation: r.method + " " + r.path}
	}
	return &domain.ErrExternalService{Service: ServiceName, Err: err}
}

func (c *Client) classifyStatus(r request, status int, body []byte) error {
	msg := upstreamMessage(body)
	switch status {
	case http.StatusUnauthorized:
		if msg == "" {
			msg = "session expired, please sign in again"
		}
		return &domain.ErrUnauthorized{Message: msg}
	case http.StatusForbidden:
		return &domain.ErrForbidden{Action: r.method + " " + r.path}
	case http.StatusNotFound:
		return &domain.ErrNotFound{Resource: r.resource, ID: r.resourceID}
	case http.StatusConflict:
		if msg == "" {
			msg = "a budget already exists for this category and month"
		}
		return &domain.ErrConflict{Message: msg}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if msg == "" {
			msg = "rejected by upstream"
		}
		return &domain.ErrValidation{Field: r.resource, Message: msg}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &domain.ErrExternalService{Service: ServiceName, Status: status, Err: errors.New(msg)}
}

// upstreamMessage pulls a human-readable message out of an error body.
func upstreamMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if envelope.Message != "" {
		return envelope.Message
	}
	if s, ok := envelope.Error.(string); ok {
		return s
	}
	if m, ok := envelope.Error.(map[string]any); ok {
		if s, ok := m["message"].(string); ok {
			return s
		}
	}
	return ""
}

func isCircuitOpen(err error) bool {
	var open *domain.ErrCircuitOpen
	return errors.As(err, &open)
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
