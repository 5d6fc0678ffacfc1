package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dan9191/fx-ledger/internal/config"
	"github.com/Dan9191/fx-ledger/internal/currency"
	"github.com/Dan9191/fx-ledger/internal/models"
	"github.com/Dan9191/fx-ledger/internal/repository"
	"github.com/Dan9191/fx-ledger/internal/service"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	table currency.Table
	err   error
}

func (s *stubSource) Rates(context.Context, time.Time) (currency.Table, error) {
	return s.table, s.err
}

func newTestServer(t *testing.T, src *stubSource) *httptest.Server {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := &config.Config{
		BaseCurrency:       "EUR",
		TransferLimit:      decimal.NewFromInt(10000),
		TransferWindowDays: 5,
	}
	conv := currency.NewConverter(src, nil, cfg.BaseCurrency, time.Second, log)
	svc := service.NewService(repository.NewRepository(), conv, log, cfg)
	h := NewHandler(svc, log)

	r := mux.NewRouter()
	h.Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		h.CloseAll()
		srv.Close()
	})
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/operation"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg string) string {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, reply, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(reply)
}

func TestWebSocketFlow(t *testing.T) {
	srv := newTestServer(t, &stubSource{table: currency.Table{"USD": decimal.RequireFromString("1.25")}})
	conn := dial(t, srv)

	assert.Equal(t, "Success", roundTrip(t, conn, `{"method":"deposit","amt":"50","date":"2024-03-01","account":"A","ccy":"EUR"}`))
	assert.Equal(t, "Your balance=50.00 EUR", roundTrip(t, conn, `{"method":"get_balances","account":"A"}`))

	reply := roundTrip(t, conn, `{"method":"withdrawal","amt":80,"date":"2024-03-01","account":"A"}`)
	assert.True(t, strings.HasPrefix(reply, "InsufficientFunds: "), reply)
	assert.Equal(t, "Your balance=50.00 EUR", roundTrip(t, conn, `{"method":"get_balances","account":"A"}`))

	assert.Equal(t, "Success", roundTrip(t, conn, `{"method":"transfer","amt":"50","date":"2024-03-01","from_account":"A","to_account":"B"}`))
	assert.Equal(t, "Your balance=0.00 EUR", roundTrip(t, conn, `{"method":"get_balances","account":"A"}`))

	assert.Equal(t, "Success", roundTrip(t, conn, `{"method":"deposit","amt":"100","date":"2024-03-01","account":"C","ccy":"USD"}`))
	assert.Equal(t, "Your balance=80.00 EUR", roundTrip(t, conn, `{"method":"get_balances","account":"C"}`))
}

func TestWebSocketRejections(t *testing.T) {
	srv := newTestServer(t, &stubSource{table: currency.Table{}})
	conn := dial(t, srv)

	tests := []struct {
		msg  string
		kind string
	}{
		{`not json`, service.KindInvalidRequest},
		{`{"method":"deposit","date":"2024-03-01","account":"A"}`, service.KindInvalidRequest},
		{`{"method":"deposit","amt":"","date":"2024-03-01","account":"A"}`, service.KindInvalidRequest},
		{`{"method":"transfer","amt":"5","date":"2024-03-01","from_account":"A","to_account":"A"}`, service.KindInvalidRequest},
		{`{"method":"get_balances"}`, service.KindInvalidRequest},
		{`{"method":"transfer","amt":"10001","date":"2024-03-01","from_account":"A","to_account":"B"}`, service.KindLimitExceeded},
	}
	for _, tt := range tests {
		reply := roundTrip(t, conn, tt.msg)
		assert.True(t, strings.HasPrefix(reply, tt.kind+": "), "%s -> %s", tt.msg, reply)
	}
}

func TestWebSocketRateUnavailable(t *testing.T) {
	srv := newTestServer(t, &stubSource{err: errors.New("rates host down")})
	conn := dial(t, srv)

	reply := roundTrip(t, conn, `{"method":"deposit","amt":"10","date":"2024-03-01","account":"A"}`)
	assert.True(t, strings.HasPrefix(reply, "RateUnavailable: "), reply)
	assert.Equal(t, "Your balance=0.00 EUR", roundTrip(t, conn, `{"method":"get_balances","account":"A"}`))
}

func postJSON(t *testing.T, url, body string) (*http.Response, models.Result) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var res models.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	return resp, res
}

func TestHTTPEndpoints(t *testing.T) {
	srv := newTestServer(t, &stubSource{table: currency.Table{}})

	resp, res := postJSON(t, srv.URL+"/operations", `{"method":"deposit","amt":"20000","date":"2024-03-01","account":"A"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, res.Success)
	require.NotNil(t, res.Operation)
	assert.NotEmpty(t, res.Operation.ID)

	resp, res = postJSON(t, srv.URL+"/operations", `{"method":"transfer","amt":"7000","date":"2024-03-02","from_account":"A","to_account":"B"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, res = postJSON(t, srv.URL+"/operations", `{"method":"transfer","amt":"3500","date":"2024-03-07","from_account":"A","to_account":"B"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, service.KindLimitExceeded, res.Kind)

	resp, res = postJSON(t, srv.URL+"/operations", `{bad}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, service.KindInvalidRequest, res.Kind)

	balResp, err := http.Get(srv.URL + "/accounts/A/balance")
	require.NoError(t, err)
	defer balResp.Body.Close()
	var bal models.Balance
	require.NoError(t, json.NewDecoder(balResp.Body).Decode(&bal))
	assert.Equal(t, "A", bal.Account)
	assert.Equal(t, "EUR", bal.Currency)
	assert.True(t, bal.Balance.Equal(decimal.NewFromInt(13000)))

	limResp, err := http.Get(srv.URL + "/accounts/A/limit?date=2024-03-07")
	require.NoError(t, err)
	defer limResp.Body.Close()
	var lim models.LimitStatus
	require.NoError(t, json.NewDecoder(limResp.Body).Decode(&lim))
	assert.True(t, lim.Used.Equal(decimal.NewFromInt(7000)))
	assert.True(t, lim.Remaining.Equal(decimal.NewFromInt(3000)))

	badResp, err := http.Get(srv.URL + "/accounts/A/limit?date=yesterday")
	require.NoError(t, err)
	badResp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, badResp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &stubSource{table: currency.Table{}})
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
