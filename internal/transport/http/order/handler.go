package order

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/harvest-finance/harvest/internal/auth"
	"github.com/harvest-finance/harvest/internal/dto"
	"github.com/harvest-finance/harvest/internal/entity"
	"github.com/harvest-finance/harvest/internal/presentation/http/response"
	repo "github.com/harvest-finance/harvest/internal/repository/order"
	service "github.com/harvest-finance/harvest/internal/service/order"
	"github.com/harvest-finance/harvest/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/harvest-finance/harvest/transport/http/order")

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc   *service.Service
	authn auth.Authenticator
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service, authn auth.Authenticator) *Handler {
	return &Handler{svc: svc, authn: authn}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/api/v1/orders")
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.getByID)
	g.POST("/:id/accept", h.accept)
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	identity, err := h.authn.Authenticate(c.Request().Header)
	if err != nil {
		return b.WithError(err).Build()
	}
	if err := auth.Require(identity, entity.RoleBuyer); err != nil {
		return b.WithError(err).Build()
	}

	var payload dto.CreateOrderRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}
	if err := payload.Validate(); err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create", trace.WithAttributes(
		attribute.String("order.crop_type", payload.CropType),
	))
	defer span.End()

	order, err := h.svc.Create(ctx, identity, service.CreateInput{
		CropType: entity.CropType(payload.CropType),
		Quantity: payload.Quantity,
		Price:    payload.Price,
	})
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(dto.NewOrderResponse(order)).Build()
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	identity, err := h.authn.Authenticate(c.Request().Header)
	if err != nil {
		return b.WithError(err).Build()
	}

	filter, err := parseFilter(c, identity)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.list")
	defer span.End()

	orders, total, err := h.svc.List(ctx, filter)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.
		WithData(dto.NewOrderListResponse(orders)).
		WithMeta("total", total).
		WithMeta("page", filter.Page).
		WithMeta("limit", filter.Limit).
		Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id := c.Param("id")
	if id == "" {
		return b.WithError(errorbank.BadRequest("missing order id")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	order, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.NewOrderResponse(order)).Build()
}

func (h *Handler) accept(c echo.Context) error {
	b := response.New(c)

	identity, err := h.authn.Authenticate(c.Request().Header)
	if err != nil {
		return b.WithError(err).Build()
	}
	if err := auth.Require(identity, entity.RoleFarmer); err != nil {
		return b.WithError(err).Build()
	}

	id := c.Param("id")
	if id == "" {
		return b.WithError(errorbank.BadRequest("missing order id")).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.accept", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("order.farmer_id", identity.ID),
	))
	defer span.End()

	order, err := h.svc.Accept(ctx, id, identity)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.NewOrderResponse(order)).Build()
}

// parseFilter builds the listing filter from query parameters and applies
// the caller's role-based visibility. The sort parameter is accepted for
// API compatibility; ordering is fixed at createdAt descending.
func parseFilter(c echo.Context, identity auth.Identity) (repo.Filter, error) {
	f := repo.Filter{
		Page:   1,
		Limit:  10,
		Role:   identity.Role,
		UserID: identity.ID,
	}

	if raw := c.QueryParam("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return repo.Filter{}, errorbank.BadRequest("invalid page", errorbank.WithDetail("page", raw))
		}
		f.Page = page
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return repo.Filter{}, errorbank.BadRequest("invalid limit", errorbank.WithDetail("limit", raw))
		}
		f.Limit = limit
	}
	if raw := c.QueryParam("status"); raw != "" {
		status := entity.OrderStatus(raw)
		if !entity.ValidStatus(status) {
			return repo.Filter{}, errorbank.BadRequest("invalid status", errorbank.WithDetail("status", raw))
		}
		f.Status = status
	}
	if raw := c.QueryParam("cropType"); raw != "" {
		f.CropType = entity.CropType(raw)
	}
	f.Search = c.QueryParam("search")

	if raw := c.QueryParam("startDate"); raw != "" {
		start, err := parseDate(raw)
		if err != nil {
			return repo.Filter{}, errorbank.BadRequest("invalid startDate", errorbank.WithDetail("startDate", raw))
		}
		f.StartDate = start
	}
	if raw := c.QueryParam("endDate"); raw != "" {
		end, err := parseDate(raw)
		if err != nil {
			return repo.Filter{}, errorbank.BadRequest("invalid endDate", errorbank.WithDetail("endDate", raw))
		}
		f.EndDate = end
	}

	return f, nil
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
