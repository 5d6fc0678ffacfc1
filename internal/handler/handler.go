package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/Dan9191/fx-ledger/internal/models"
	"github.com/Dan9191/fx-ledger/internal/service"
	"github.com/Dan9191/fx-ledger/internal/utils"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Handler exposes the ledger over HTTP and the operations websocket
type Handler struct {
	svc      *service.Service
	log      *logrus.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*Client]struct{}
}

// NewHandler initializes a new handler
func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{
		svc: svc,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*Client]struct{}),
	}
}

// Register mounts all routes on r
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/operation", h.OperationsSocket)
	r.HandleFunc("/operations", h.SubmitOperation).Methods(http.MethodPost)
	r.HandleFunc("/accounts/{account}/balance", h.GetBalance).Methods(http.MethodGet)
	r.HandleFunc("/accounts/{account}/limit", h.GetTransferLimit).Methods(http.MethodGet)
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SubmitOperation handles POST /operations with the same body as a websocket message
func (h *Handler) SubmitOperation(w http.ResponseWriter, r *http.Request) {
	var req models.OperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		err = fmt.Errorf("%w: %v", service.ErrInvalidRequest, err)
		writeJSON(w, http.StatusBadRequest, rejection(err))
		return
	}

	op, err := h.svc.Submit(r.Context(), req)
	if err != nil {
		writeJSON(w, statusFor(err), rejection(err))
		return
	}
	writeJSON(w, http.StatusCreated, models.Result{Success: true, Message: "Success", Operation: op})
}

// GetBalance handles GET /accounts/{account}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]
	writeJSON(w, http.StatusOK, models.Balance{
		Account:  account,
		Balance:  h.svc.Balance(account),
		Currency: h.svc.BaseCurrency(),
	})
}

// GetTransferLimit handles GET /accounts/{account}/limit?date=YYYY-MM-DD (defaults to today)
func (h *Handler) GetTransferLimit(w http.ResponseWriter, r *http.Request) {
	account := mux.Vars(r)["account"]
	date := utils.Today()
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := utils.ParseDate(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, rejection(fmt.Errorf("%w: %v", service.ErrInvalidRequest, err)))
			return
		}
		date = d
	}
	writeJSON(w, http.StatusOK, h.svc.TransferLimit(account, date))
}

func rejection(err error) models.Result {
	return models.Result{Success: false, Kind: service.KindOf(err), Message: err.Error()}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrRateUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrLimitExceeded), errors.Is(err, service.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
