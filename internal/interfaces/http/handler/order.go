package handler

import (
	"github.com/gin-gonic/gin"

	orderapp "github.com/orderdesk/backend/internal/application/order"
	"github.com/orderdesk/backend/internal/domain/order"
	"github.com/orderdesk/backend/internal/infrastructure/importer"
	"github.com/orderdesk/backend/internal/interfaces/http/dto"
)

// OrderHandler handles order CRUD, import and commerce sync endpoints
type OrderHandler struct {
	BaseHandler
	orderService *orderapp.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService *orderapp.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// RegisterRoutes mounts the order endpoints on the given group
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	orders.POST("", h.Create)
	orders.GET("", h.List)
	orders.GET("/counts", h.Counts)
	orders.POST("/import", h.Import)
	orders.POST("/sync", h.Sync)
	orders.GET("/:id", h.Get)
	orders.PUT("/:id", h.Update)
	orders.DELETE("/:id", h.Delete)
	orders.POST("/:id/clone", h.Clone)
}

// Create commits a manually entered order
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	rec, err := h.orderService.CreateOrder(c.Request.Context(), req.ToRawOrder())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, dto.FromRecord(rec))
}

// Get returns a single order
func (h *OrderHandler) Get(c *gin.Context) {
	rec, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.FromRecord(rec))
}

// Update applies a manual edit to an existing order
func (h *OrderHandler) Update(c *gin.Context) {
	var req dto.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	rec, err := h.orderService.EditOrder(c.Request.Context(), req.ToRawOrder(c.Param("id")))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.FromRecord(rec))
}

// Delete removes an order
func (h *OrderHandler) Delete(c *gin.Context) {
	if err := h.orderService.DeleteOrder(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}

// Clone copies an order under a new identifier
func (h *OrderHandler) Clone(c *gin.Context) {
	rec, err := h.orderService.CloneOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, dto.FromRecord(rec))
}

// List returns the recency-ordered view, optionally filtered by status and
// free-text search
func (h *OrderHandler) List(c *gin.Context) {
	var req dto.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	filter := orderapp.ListFilter{Search: req.Search}
	if req.Status != "" {
		status := order.OrderStatus(req.Status)
		filter.Status = &status
	}

	recs, err := h.orderService.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.FromRecords(recs))
}

// Counts returns the number of orders per coarse status
func (h *OrderHandler) Counts(c *gin.Context) {
	counts, err := h.orderService.CountByStatus(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	resp := dto.CountsResponse{ByStatus: make(map[string]int, len(counts))}
	for status, n := range counts {
		resp.ByStatus[status.String()] = n
		resp.Total += n
	}
	h.Success(c, resp)
}

// Import reconciles an uploaded CSV spreadsheet into the store
func (h *OrderHandler) Import(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "a csv file upload named 'file' is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.BadRequest(c, "could not open the uploaded file")
		return
	}
	defer file.Close()

	raws, err := importer.ParseFile(file)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	recs, err := h.orderService.ImportBatch(c.Request.Context(), raws)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.ImportResponse{OrderCount: len(recs)})
}

// Sync pulls the remote order snapshot from the commerce platform
func (h *OrderHandler) Sync(c *gin.Context) {
	recs, err := h.orderService.SyncFromCommerceSource(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.SyncResponse{OrderCount: len(recs)})
}
