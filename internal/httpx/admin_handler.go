package httpx

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-storefront/internal/backend"
	"github.com/ariefcatur/go-storefront/internal/contacts"
	"github.com/ariefcatur/go-storefront/internal/notify"
	"github.com/ariefcatur/go-storefront/internal/orders"
)

type AdminAPI interface {
	orders.Exporter
	contacts.API
	Orders(ctx context.Context) ([]backend.Order, error)
	OrdersSummary(ctx context.Context) (map[string]any, error)
}

type AdminHandler struct {
	API      AdminAPI
	Workflow *orders.Workflow
	Log      *slog.Logger
	Now      func() time.Time
}

type orderListView struct {
	orders.Page
	Couriers []string `json:"couriers"`
}

type statusReq struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type trackingReq struct {
	Courier        string `json:"courier"`
	TrackingNumber string `json:"trackingNumber"`
	Auto           bool   `json:"auto"`
}

type replyReq struct {
	Subject string `json:"subject"`
	Body    string `json:"replyMessage"`
}

func (h *AdminHandler) Register(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(RequireAdmin)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/export", h.export)
		r.Get("/orders/summary", h.summary)
		r.Get("/orders/{id}", h.detail)
		r.Put("/orders/{id}/status", h.setStatus)
		r.Post("/orders/{id}/tracking", h.createTracking)
		r.Post("/orders/{id}/tracking/poll", h.poll)
		r.Post("/orders/{id}/tracking/status", h.appendStatus)
		r.Get("/contacts", h.listContacts)
		r.Post("/contacts/{id}/reply", h.reply)
		r.Get("/toasts", h.toasts)
	})
}

func (h *AdminHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func queryFrom(r *http.Request) orders.Query {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	return orders.Query{
		Search:  q.Get("search"),
		Status:  q.Get("status"),
		Courier: q.Get("courier"),
		Sort:    orders.Sort(q.Get("sort")),
		Page:    page,
	}
}

func (h *AdminHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	all, err := h.API.Orders(r.Context())
	if err != nil {
		logFailure(h.Log, r, "admin orders", err)
		writeError(w, http.StatusBadGateway, "Failed to load orders")
		return
	}
	couriers := orders.Couriers(all)
	if couriers == nil {
		couriers = []string{}
	}
	writeJSON(w, http.StatusOK, orderListView{Page: queryFrom(r).Apply(all), Couriers: couriers})
}

func (h *AdminHandler) summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.API.OrdersSummary(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "Failed to load summary")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// export streams a download. ?source=local renders the filtered list here
// instead of asking the backend to.
func (h *AdminHandler) export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f, err := orders.ParseFormat(q.Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "format must be csv or excel")
		return
	}

	var file orders.File
	if q.Get("source") == "local" {
		file, err = h.exportLocal(r.Context(), queryFrom(r), f)
	} else {
		file, err = orders.ExportRemote(r.Context(), h.API, f, q.Get("status"), q.Get("courier"), h.now())
	}
	if err != nil {
		logFailure(h.Log, r, "export orders", err)
		writeError(w, http.StatusBadGateway, "Failed to export orders")
		return
	}
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}

func (h *AdminHandler) exportLocal(ctx context.Context, q orders.Query, f orders.Format) (orders.File, error) {
	all, err := h.API.Orders(ctx)
	if err != nil {
		return orders.File{}, err
	}
	var buf bytes.Buffer
	if err := orders.WriteLocal(&buf, f, q.Filter(all)); err != nil {
		return orders.File{}, err
	}
	return orders.File{Name: f.Filename(h.now()), ContentType: f.ContentType(), Data: buf.Bytes()}, nil
}

func (h *AdminHandler) load(w http.ResponseWriter, r *http.Request) (orders.Detail, bool) {
	d, err := h.Workflow.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if backend.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "not found")
		} else {
			writeError(w, http.StatusBadGateway, "Failed to load order")
		}
		return d, false
	}
	return d, true
}

func (h *AdminHandler) detail(w http.ResponseWriter, r *http.Request) {
	if d, ok := h.load(w, r); ok {
		writeJSON(w, http.StatusOK, d)
	}
}

// actionResult answers a workflow action: the fresh detail on success, or
// the unchanged one with the failure reason.
func actionResult(w http.ResponseWriter, d orders.Detail, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, d)
	case errors.Is(err, orders.ErrNoTracking):
		writeJSON(w, http.StatusConflict, map[string]any{"error": "No tracking for this order", "detail": d})
	case errors.Is(err, orders.ErrTrackingInput), errors.Is(err, orders.ErrStatusRequired), errors.Is(err, orders.ErrInvalidStatus):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error(), "detail": d})
	default:
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "detail": d})
	}
}

func (h *AdminHandler) setStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	d, ok := h.load(w, r)
	if !ok {
		return
	}
	d, err := h.Workflow.ForceStatus(r.Context(), d, req.Status)
	actionResult(w, d, err)
}

func (h *AdminHandler) createTracking(w http.ResponseWriter, r *http.Request) {
	var req trackingReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	d, ok := h.load(w, r)
	if !ok {
		return
	}
	d, err := h.Workflow.CreateTracking(r.Context(), d, req.Courier, req.TrackingNumber, req.Auto)
	actionResult(w, d, err)
}

func (h *AdminHandler) poll(w http.ResponseWriter, r *http.Request) {
	d, ok := h.load(w, r)
	if !ok {
		return
	}
	d, err := h.Workflow.Poll(r.Context(), d)
	actionResult(w, d, err)
}

func (h *AdminHandler) appendStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	d, ok := h.load(w, r)
	if !ok {
		return
	}
	d, err := h.Workflow.AppendStatus(r.Context(), d, req.Status, req.Message)
	actionResult(w, d, err)
}

func (h *AdminHandler) listContacts(w http.ResponseWriter, r *http.Request) {
	list, err := h.API.Contacts(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "Failed to load contact messages")
		return
	}
	list = contacts.Search(list, r.URL.Query().Get("q"))
	if list == nil {
		list = []backend.Contact{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": list})
}

func (h *AdminHandler) reply(w http.ResponseWriter, r *http.Request) {
	var req replyReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	err := contacts.Reply(r.Context(), h.API, chi.URLParam(r, "id"), req.Subject, req.Body)
	switch {
	case errors.Is(err, contacts.ErrReplyIncomplete):
		writeError(w, http.StatusBadRequest, "Subject and reply message are required")
	case err != nil:
		writeError(w, http.StatusBadGateway, "Failed to send reply")
	default:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Reply sent successfully"})
	}
}

// toasts lists the workflow notices still on screen, oldest first.
func (h *AdminHandler) toasts(w http.ResponseWriter, r *http.Request) {
	list := []notify.Toast{}
	if h.Workflow.Notify != nil {
		list = append(list, h.Workflow.Notify.Active()...)
	}
	writeJSON(w, http.StatusOK, map[string]any{"toasts": list})
}
