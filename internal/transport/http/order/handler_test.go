package order

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harvest-finance/harvest/internal/auth"
	"github.com/harvest-finance/harvest/internal/config"
	repo "github.com/harvest-finance/harvest/internal/repository/order"
	service "github.com/harvest-finance/harvest/internal/service/order"
)

type stubEscrow struct {
	ref string
	err error
}

func (s stubEscrow) CreateEscrow(context.Context, string, string, string) (string, error) {
	return s.ref, s.err
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    map[string]any  `json:"meta"`
	Error   struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

type orderPayload struct {
	ID              string `json:"id"`
	BuyerID         string `json:"buyerId"`
	Status          string `json:"status"`
	EscrowReference string `json:"escrowTxHash"`
}

func newTestServer(t *testing.T, provider stubEscrow) (*echo.Echo, repo.Store) {
	t.Helper()

	cfg, err := config.New()
	require.NoError(t, err)
	cfg.Messaging.Enabled = false
	cfg.Escrow.Timeout = 100 * time.Millisecond

	store := repo.NewMemoryStore()
	svc := service.NewService(service.Params{
		Store:    store,
		Provider: provider,
		Config:   cfg,
		Logger:   zap.NewNop(),
	})

	e := echo.New()
	Register(e, NewHandler(svc, auth.NewHeaderAuthenticator()))
	return e, store
}

func doRequest(e *echo.Echo, method, target string, body string, identity map[string]string) (*httptest.ResponseRecorder, envelope) {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range identity {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

var (
	buyerHeaders = map[string]string{
		auth.HeaderRole:     "BUYER",
		auth.HeaderUserID:   "B1",
		auth.HeaderUserName: "Buyer One",
	}
	farmerHeaders = map[string]string{
		auth.HeaderRole:      "FARMER",
		auth.HeaderUserID:    "F1",
		auth.HeaderUserName:  "Farmer One",
		auth.HeaderPublicKey: "GFARMERKEY",
	}
)

const wheatBody = `{"cropType":"WHEAT","quantity":10,"price":2}`

func createOrderViaAPI(t *testing.T, e *echo.Echo) orderPayload {
	t.Helper()
	rec, env := doRequest(e, http.MethodPost, "/api/v1/orders", wheatBody, buyerHeaders)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var order orderPayload
	require.NoError(t, json.Unmarshal(env.Data, &order))
	return order
}

func TestCreateOrder(t *testing.T) {
	e, _ := newTestServer(t, stubEscrow{})

	order := createOrderViaAPI(t, e)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, "B1", order.BuyerID)
	assert.Equal(t, "PENDING", order.Status)
	assert.Empty(t, order.EscrowReference)
}

func TestCreateOrderRejectsNonBuyer(t *testing.T) {
	e, _ := newTestServer(t, stubEscrow{})

	rec, env := doRequest(e, http.MethodPost, "/api/v1/orders", wheatBody, farmerHeaders)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", env.Error.Kind)
}

func TestCreateOrderRejectsMissingIdentity(t *testing.T) {
	e, _ := newTestServer(t, stubEscrow{})

	rec, env := doRequest(e, http.MethodPost, "/api/v1/orders", wheatBody, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", env.Error.Kind)
}

func TestCreateOrderValidatesPayload(t *testing.T) {
	e, _ := newTestServer(t, stubEscrow{})

	rec, env := doRequest(e, http.MethodPost, "/api/v1/orders",
		`{"cropType":"BARLEY","quantity":10,"price":2}`, buyerHeaders)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", env.Error.Kind)
}

func TestGetOrder(t *testing.T) {
	e, _ := newTestServer(t, stubEscrow{})
	created := createOrderViaAPI(t, e)

	rec, env := doRequest(e, http.MethodGet, "/api/v1/orders/"+created.ID, "", buyerHeaders)
	require.Equal(t, http.StatusOK, rec.Code)

	var order orderPayload
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, created.ID, order.ID)
}

func TestGetOrderNotFound(t *testing.T) {
	e, _ := newTestServer(t, stubEscrow{})

	rec, env := doRequest(e, http.MethodGet, "/api/v1/orders/does-not-exist", "", buyerHeaders)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", env.Error.Kind)
}

func TestAcceptOrder(t *testing.T) {
	e, _ := newTestServer(t, stubEscrow{ref: "tx-1"})
	created := createOrderViaAPI(t, e)

	rec, env := doRequest(e, http.MethodPost, "/api/v1/orders/"+created.ID+"/accept", "", farmerHeaders)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var order orderPayload
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, "IN_ESCROW", order.Status)
	assert.Equal(t, "tx-1", order.EscrowReference)
}

func TestAcceptOrderRejectsNonFarmer(t *testing.T) {
	e, _ := newTestServer(t, stubEscrow{ref: "tx-1"})
	created := createOrderViaAPI(t, e)

	rec, env := doRequest(e, http.MethodPost, "/api/v1/orders/"+created.ID+"/accept", "", buyerHeaders)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", env.Error.Kind)
}

func TestAcceptOrderTwiceConflicts(t *testing.T) {
	e, _ := newTestServer(t, stubEscrow{ref: "tx-1"})
	created := createOrderViaAPI(t, e)

	rec, _ := doRequest(e, http.MethodPost, "/api/v1/orders/"+created.ID+"/accept", "", farmerHeaders)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := doRequest(e, http.MethodPost, "/api/v1/orders/"+created.ID+"/accept", "", farmerHeaders)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", env.Error.Kind)
}

func TestAcceptOrderEscrowFailure(t *testing.T) {
	e, _ := newTestServer(t, stubEscrow{err: errors.New("ledger down")})
	created := createOrderViaAPI(t, e)

	rec, env := doRequest(e, http.MethodPost, "/api/v1/orders/"+created.ID+"/accept", "", farmerHeaders)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "unprocessable_entity", env.Error.Kind)
	assert.NotContains(t, env.Error.Message, "ledger down")

	// Rolled back: the order is PENDING again and can be fetched as such.
	rec, env = doRequest(e, http.MethodGet, "/api/v1/orders/"+created.ID, "", buyerHeaders)
	require.Equal(t, http.StatusOK, rec.Code)
	var order orderPayload
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, "PENDING", order.Status)
	assert.Empty(t, order.EscrowReference)
}

func TestListOrdersVisibilityAndMeta(t *testing.T) {
	e, _ := newTestServer(t, stubEscrow{ref: "tx-1"})

	first := createOrderViaAPI(t, e)
	createOrderViaAPI(t, e)
	createOrderViaAPI(t, e)

	// Move one order out of PENDING.
	rec, _ := doRequest(e, http.MethodPost, "/api/v1/orders/"+first.ID+"/accept", "", farmerHeaders)
	require.Equal(t, http.StatusOK, rec.Code)

	// Farmers only see open listings.
	rec, env := doRequest(e, http.MethodGet, "/api/v1/orders", "", farmerHeaders)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), env.Meta["total"])

	var items []orderPayload
	require.NoError(t, json.Unmarshal(env.Data, &items))
	for _, o := range items {
		assert.Equal(t, "PENDING", o.Status)
	}

	// Buyers only see their own orders.
	otherBuyer := map[string]string{
		auth.HeaderRole:   "BUYER",
		auth.HeaderUserID: "B2",
	}
	rec, env = doRequest(e, http.MethodGet, "/api/v1/orders", "", otherBuyer)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(0), env.Meta["total"])
}

func TestListOrdersPagination(t *testing.T) {
	e, _ := newTestServer(t, stubEscrow{})
	for i := 0; i < 5; i++ {
		createOrderViaAPI(t, e)
	}

	rec, env := doRequest(e, http.MethodGet, "/api/v1/orders?page=2&limit=2", "", buyerHeaders)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(5), env.Meta["total"])
	assert.Equal(t, float64(2), env.Meta["page"])

	var items []orderPayload
	require.NoError(t, json.Unmarshal(env.Data, &items))
	assert.Len(t, items, 2)
}

func TestListOrdersRejectsBadQuery(t *testing.T) {
	e, _ := newTestServer(t, stubEscrow{})

	for _, target := range []string{
		"/api/v1/orders?page=0",
		"/api/v1/orders?limit=nope",
		"/api/v1/orders?status=SHIPPED",
		"/api/v1/orders?startDate=tomorrow",
	} {
		rec, env := doRequest(e, http.MethodGet, target, "", buyerHeaders)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, "bad_request", env.Error.Kind, target)
	}
}
