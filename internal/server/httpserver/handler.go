package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yndnr/dxshell-go/internal/core/domain"
	"github.com/yndnr/dxshell-go/internal/telemetry/logger"
)

const (
	codeOK       = "OK"
	codeInternal = "DX-SYS-5000"
	codeTooLarge = "DX-ARG-4130"
	codeBusy     = "DX-SYS-5030"

	maxBridgeBody = 64 << 10
)

// Response is the envelope of every JSON answer except /metrics.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

type handler struct {
	controller Controller
	bridge     BridgeHandler
	logger     logger.Logger

	// base is the parent context of bridge work; slots caps it.
	base    context.Context
	slots   chan struct{}
	pending sync.WaitGroup
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *handler) handleState(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, h.controller.State())
}

func (h *handler) handleBridge(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBridgeBody+1))
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, domain.ErrInvalidArgument.Code, "read body: "+err.Error())
		return
	}
	if len(body) > maxBridgeBody {
		h.writeError(w, r, http.StatusRequestEntityTooLarge, codeTooLarge, "bridge message too large")
		return
	}

	select {
	case h.slots <- struct{}{}:
	default:
		h.writeError(w, r, http.StatusServiceUnavailable, codeBusy, "too many bridge messages pending")
		return
	}

	// The action outlives the request: a redirect waits for the user.
	ctx := logger.WithRequestID(h.base, logger.RequestIDFromContext(r.Context()))
	h.pending.Add(1)
	go h.dispatch(ctx, body)
	h.writeJSON(w, r, http.StatusAccepted, nil)
}

func (h *handler) dispatch(ctx context.Context, body []byte) {
	defer func() {
		if err := recover(); err != nil {
			h.logger.WithContext(ctx).Error("bridge handler panicked", "error", err)
		}
		<-h.slots
		h.pending.Done()
	}()
	h.bridge.Handle(ctx, body)
}

func (h *handler) handleBack(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]bool{"consumed": h.controller.InterceptBack()})
}

func (h *handler) handleProceed(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Proceed(r.Context()); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, h.controller.State())
}

func (h *handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	screen, err := h.controller.Retry(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, map[string]domain.Screen{"screen": screen})
}

func (h *handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	h.write(w, r, status, &Response{Code: codeOK, Message: "Success", Data: data})
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("X-Error-Code", code)
	h.write(w, r, status, &Response{Code: code, Message: message})
}

func (h *handler) write(w http.ResponseWriter, r *http.Request, status int, resp *Response) {
	resp.RequestID = logger.RequestIDFromContext(r.Context())
	resp.Timestamp = time.Now().UnixMilli()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// handleServiceError converts controller errors to HTTP responses.
func (h *handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if domain.IsDomainError(err, "") {
		code := domain.GetErrorCode(err)
		h.writeError(w, r, errorCodeToHTTPStatus(code), code, err.Error())
		return
	}

	h.logger.Error("internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError, codeInternal, "internal server error")
}

// errorCodeToHTTPStatus maps error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasPrefix(code, "DX-NAV-409"):
		return http.StatusConflict
	case strings.HasPrefix(code, "DX-NAV-503"):
		return http.StatusServiceUnavailable
	case strings.HasPrefix(code, "DX-REG-"), strings.HasPrefix(code, "DX-NET-"):
		return http.StatusBadGateway
	case strings.HasPrefix(code, "DX-ARG-"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
