package pos

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/pos-gateway/internal/backend"
	"github.com/noah-isme/pos-gateway/internal/catalog"
	"github.com/noah-isme/pos-gateway/internal/common"
	"github.com/noah-isme/pos-gateway/internal/money"
	"github.com/noah-isme/pos-gateway/internal/payment"
	"github.com/noah-isme/pos-gateway/internal/session"
)

// Handler exposes the terminal workflow over HTTP.
type Handler struct {
	Svc *Service
	// Idem guards the submission endpoints against duplicate requests.
	// Optional; nil leaves them unguarded.
	Idem func(http.Handler) http.Handler
}

func (h *Handler) idem() func(http.Handler) http.Handler {
	if h.Idem != nil {
		return h.Idem
	}
	return func(next http.Handler) http.Handler { return next }
}

// Routes mounts the session, cart, order and payment endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{sessionId}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)
		r.Post("/items", h.AddItem)
		r.Put("/items/{itemId}", h.UpdateItem)
		r.Delete("/items/{itemId}", h.RemoveItem)
		r.Delete("/items", h.ClearCart)
		r.With(h.idem()).Post("/order", h.SubmitOrder)
		r.Post("/payment", h.OpenPayment)
		r.Put("/payment/method", h.SetPaymentMethod)
		r.Put("/payment/discount", h.SetDiscount)
		r.Put("/payment/cash", h.SetCash)
		r.Put("/payment/card", h.SetCard)
		r.With(h.idem()).Post("/payment/submit", h.SubmitPayment)
		r.Delete("/payment", h.ClosePayment)
	})
}

// paymentView adds the derived quantities clients render next to the raw
// dialog state.
type paymentView struct {
	payment.State
	AmountDue money.Amount `json:"amountDue"`
	Tendered  money.Amount `json:"tendered"`
	Change    money.Amount `json:"change"`
	Valid     bool         `json:"valid"`
}

// sessionView is the wire shape of a session, with the cart total and
// payment derivations computed at render time.
type sessionView struct {
	session.Session
	CartTotal money.Amount `json:"cartTotal"`
	Payment   *paymentView `json:"payment,omitempty"`
	Warning   string       `json:"warning,omitempty"`
}

func viewOf(sess session.Session) sessionView {
	v := sessionView{Session: sess, CartTotal: sess.Cart.Total()}
	if sess.Payment != nil {
		st := *sess.Payment
		v.Payment = &paymentView{
			State:     st,
			AmountDue: st.AmountDue(),
			Tendered:  st.Tendered(),
			Change:    st.Change(),
			Valid:     st.Valid(),
		}
	}
	return v
}

func writeSession(w http.ResponseWriter, status int, sess session.Session, warning string) {
	v := viewOf(sess)
	v.Warning = warning
	common.JSON(w, status, map[string]any{"data": v})
}

func writeErr(w http.ResponseWriter, err error) {
	var vErrs validator.ValidationErrors
	switch {
	case errors.Is(err, session.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "session not found", nil)
	case errors.Is(err, catalog.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "menu item not found or unavailable", nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "cart is empty", nil)
	case errors.Is(err, ErrNoOrder):
		common.JSONError(w, http.StatusConflict, common.CodeBadRequest, "no submitted order in session", nil)
	case errors.Is(err, ErrNoPayment):
		common.JSONError(w, http.StatusConflict, common.CodeBadRequest, "no open payment in session", nil)
	case errors.Is(err, payment.ErrUnknownMethod):
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "unknown payment method", nil)
	case errors.Is(err, payment.ErrInvalidDiscount):
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidDiscount, "discount must be zero or positive", nil)
	case errors.Is(err, payment.ErrInsufficientPayment):
		common.JSONError(w, http.StatusBadRequest, common.CodeInsufficientPayment, "tendered amount below amount due", nil)
	case errors.Is(err, money.ErrInvalidAmount):
		common.JSONError(w, http.StatusBadRequest, common.CodeInvalidAmount, "amount is not a valid monetary value", nil)
	case errors.Is(err, backend.ErrUpstream):
		common.JSONError(w, http.StatusBadGateway, common.CodeUpstream, "backend unavailable", nil)
	case errors.As(err, &vErrs):
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "validation failed", vErrs.Error())
	default:
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "internal error", nil)
	}
}

func decode(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := common.UserID(r.Context())
	sess, err := h.Svc.CreateSession(r.Context(), userID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeSession(w, http.StatusCreated, sess, "")
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Svc.GetSession(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeSession(w, http.StatusOK, sess, "")
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.DeleteSession(r.Context(), chi.URLParam(r, "sessionId")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addItemRequest struct {
	ItemID string  `json:"itemId"`
	Qty    float64 `json:"qty"`
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decode(r, &req); err != nil || req.ItemID == "" {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "itemId is required", nil)
		return
	}
	sess, coerced, err := h.Svc.AddItem(r.Context(), chi.URLParam(r, "sessionId"), req.ItemID, req.Qty)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeSession(w, http.StatusOK, sess, warnIf(coerced))
}

type setQtyRequest struct {
	Qty float64 `json:"qty"`
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req setQtyRequest
	if err := decode(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid body", nil)
		return
	}
	sess, coerced, err := h.Svc.UpdateItem(r.Context(), chi.URLParam(r, "sessionId"), chi.URLParam(r, "itemId"), req.Qty)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeSession(w, http.StatusOK, sess, warnIf(coerced))
}

func warnIf(coerced bool) string {
	if coerced {
		return "quantity was adjusted to a whole number"
	}
	return ""
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Svc.RemoveItem(r.Context(), chi.URLParam(r, "sessionId"), chi.URLParam(r, "itemId"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeSession(w, http.StatusOK, sess, "")
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Svc.ClearCart(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeSession(w, http.StatusOK, sess, "")
}

func (h *Handler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var in SubmitOrderInput
	if err := decode(r, &in); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid body", nil)
		return
	}
	order, err := h.Svc.SubmitOrder(r.Context(), chi.URLParam(r, "sessionId"), in)
	if err != nil {
		writeErr(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": order})
}

type openPaymentRequest struct {
	Method string `json:"method"`
}

func (h *Handler) OpenPayment(w http.ResponseWriter, r *http.Request) {
	var req openPaymentRequest
	if err := decode(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid body", nil)
		return
	}
	if req.Method == "" {
		req.Method = string(payment.MethodCash)
	}
	sess, err := h.Svc.OpenPayment(r.Context(), chi.URLParam(r, "sessionId"), req.Method)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeSession(w, http.StatusOK, sess, "")
}

func (h *Handler) SetPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req openPaymentRequest
	if err := decode(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid body", nil)
		return
	}
	sess, err := h.Svc.SetPaymentMethod(r.Context(), chi.URLParam(r, "sessionId"), req.Method)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeSession(w, http.StatusOK, sess, "")
}

type amountRequest struct {
	Amount float64 `json:"amount"`
}

func (h *Handler) paymentAmountEdit(w http.ResponseWriter, r *http.Request, edit func(sessionID string, raw float64) (session.Session, error)) {
	var req amountRequest
	if err := decode(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, "invalid body", nil)
		return
	}
	sess, err := edit(chi.URLParam(r, "sessionId"), req.Amount)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeSession(w, http.StatusOK, sess, "")
}

func (h *Handler) SetDiscount(w http.ResponseWriter, r *http.Request) {
	h.paymentAmountEdit(w, r, func(id string, raw float64) (session.Session, error) {
		return h.Svc.SetDiscount(r.Context(), id, raw)
	})
}

func (h *Handler) SetCash(w http.ResponseWriter, r *http.Request) {
	h.paymentAmountEdit(w, r, func(id string, raw float64) (session.Session, error) {
		return h.Svc.SetCash(r.Context(), id, raw)
	})
}

func (h *Handler) SetCard(w http.ResponseWriter, r *http.Request) {
	h.paymentAmountEdit(w, r, func(id string, raw float64) (session.Session, error) {
		return h.Svc.SetCard(r.Context(), id, raw)
	})
}

func (h *Handler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	res, err := h.Svc.SubmitPayment(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		writeErr(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": res})
}

func (h *Handler) ClosePayment(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Svc.ClosePayment(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeSession(w, http.StatusOK, sess, "")
}
