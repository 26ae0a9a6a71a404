package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/cart/internal/domain"
	"github.com/vladislavdragonenkov/cart/internal/engine"
)

// Handler — JSON-поверхность движка корзины для UI-коллабораторов
// (карточки продуктов, панель корзины). Вся бизнес-логика живёт в движке;
// хэндлеры только резолвят продукт через каталог и транслируют ответы.
type Handler struct {
	engine  *engine.Engine
	catalog domain.Catalog
	logger  *log.Entry
}

// NewHandler создаёт HTTP-обработчик поверх движка и каталога.
func NewHandler(e *engine.Engine, catalog domain.Catalog, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.WithField("component", "httpapi")
	}
	return &Handler{
		engine:  e,
		catalog: catalog,
		logger:  logger,
	}
}

// Routes возвращает mux со всеми маршрутами корзины.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /cart", h.getCart)
	mux.HandleFunc("POST /cart/lines", h.addLine)
	mux.HandleFunc("POST /cart/lines/{slug}/increase", h.increase)
	mux.HandleFunc("POST /cart/lines/{slug}/decrease", h.decrease)
	mux.HandleFunc("DELETE /cart/lines/{slug}", h.removeLine)
	mux.HandleFunc("DELETE /cart", h.clear)
	mux.HandleFunc("GET /cart/quantity", h.quantityForSlug)
	mux.HandleFunc("GET /cart/events", h.events)
	mux.HandleFunc("GET /products", h.listProducts)
	mux.HandleFunc("GET /products/{slug}", h.getProduct)
	return mux
}

type addLineRequest struct {
	Slug              string           `json:"slug"`
	Quantity          int              `json:"quantity"`
	Selection         domain.Selection `json:"selection,omitempty"`
	BasePriceOverride *float64         `json:"base_price_override,omitempty"`
}

type cartResponse struct {
	Lines  []domain.Line `json:"lines"`
	Totals domain.Totals `json:"totals"`
}

type quantityResponse struct {
	Slug     string `json:"slug"`
	Quantity int    `json:"quantity"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) getCart(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, cartResponse{
		Lines:  h.engine.Lines(),
		Totals: h.engine.Totals(),
	})
}

func (h *Handler) addLine(w http.ResponseWriter, r *http.Request) {
	var req addLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Slug == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: domain.ErrSlugRequired.Error()})
		return
	}

	product, err := h.catalog.LookupBySlug(r.Context(), req.Slug)
	if err != nil {
		if !errors.Is(err, domain.ErrProductNotFound) {
			h.logger.WithError(err).WithField("slug", req.Slug).Warn("catalog lookup failed")
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "catalog unavailable"})
			return
		}
		// Неизвестный продукт не ломает корзину: база резолвится в 0,
		// если вызывающая сторона не прислала override.
		h.logger.WithField("slug", req.Slug).Warn("unknown product added to cart")
		product = domain.Product{Slug: req.Slug, Name: req.Slug}
	}

	h.engine.AddLine(r.Context(), &product, req.Quantity, req.Selection, req.BasePriceOverride)
	writeJSON(w, http.StatusOK, cartResponse{
		Lines:  h.engine.Lines(),
		Totals: h.engine.Totals(),
	})
}

func (h *Handler) increase(w http.ResponseWriter, r *http.Request) {
	h.engine.IncreaseQuantity(r.Context(), r.PathValue("slug"))
	writeJSON(w, http.StatusOK, cartResponse{
		Lines:  h.engine.Lines(),
		Totals: h.engine.Totals(),
	})
}

func (h *Handler) decrease(w http.ResponseWriter, r *http.Request) {
	h.engine.DecreaseQuantity(r.Context(), r.PathValue("slug"))
	writeJSON(w, http.StatusOK, cartResponse{
		Lines:  h.engine.Lines(),
		Totals: h.engine.Totals(),
	})
}

func (h *Handler) removeLine(w http.ResponseWriter, r *http.Request) {
	h.engine.RemoveLine(r.Context(), r.PathValue("slug"))
	writeJSON(w, http.StatusOK, cartResponse{
		Lines:  h.engine.Lines(),
		Totals: h.engine.Totals(),
	})
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	h.engine.Clear(r.Context())
	writeJSON(w, http.StatusOK, cartResponse{
		Lines:  h.engine.Lines(),
		Totals: h.engine.Totals(),
	})
}

func (h *Handler) quantityForSlug(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("slug")
	if slug == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: domain.ErrSlugRequired.Error()})
		return
	}
	writeJSON(w, http.StatusOK, quantityResponse{
		Slug:     slug,
		Quantity: h.engine.QuantityForSlug(slug),
	})
}

// events отдаёт SSE-поток пингов изменений. Payload не передаётся:
// клиент перечитывает GET /cart сам — так подписка переживает
// любые изменения формата корзины.
func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	pings := make(chan struct{}, 8)
	unsubscribe := h.engine.Subscribe(func() {
		select {
		case pings <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	// Стартовый пинг, чтобы клиент сразу отрисовал текущее состояние.
	_, _ = w.Write([]byte("event: change\ndata: {}\n\n"))
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-pings:
			if _, err := w.Write([]byte("event: change\ndata: {}\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		h.logger.WithError(err).Warn("catalog list failed")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "catalog unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.LookupBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: domain.ErrProductNotFound.Error()})
			return
		}
		h.logger.WithError(err).Warn("catalog lookup failed")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "catalog unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
