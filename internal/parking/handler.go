package parking

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/richxcame/parking-lot/pkg/common"
	"github.com/richxcame/parking-lot/pkg/logger"
	"github.com/richxcame/parking-lot/pkg/pagination"
	"github.com/richxcame/parking-lot/pkg/validation"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// Handler handles HTTP requests for the parking lot
type Handler struct {
	service *Service
}

// NewHandler creates a new parking handler. The plate rule is registered
// on gin's validator here because the request structs depend on it.
func NewHandler(service *Service) *Handler {
	if err := validation.RegisterGinValidators(); err != nil {
		logger.Error("failed to register request validators", zap.Error(err))
	}
	return &Handler{service: service}
}

// bindJSON decodes the body and turns binding failures into a 400
func bindJSON(c *gin.Context, req interface{}) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		common.ErrorResponse(c, http.StatusBadRequest, validation.NewValidationError(verrs).Error())
		return false
	}
	common.ErrorResponse(c, http.StatusBadRequest, "invalid request body")
	return false
}

// listResponse writes the whole list, or one page of it when the caller
// passed limit or offset
func listResponse[T any](c *gin.Context, items []T) {
	params, ok := pagination.ParseParams(c)
	if !ok {
		common.ListResponse(c, items, len(items))
		return
	}
	meta := pagination.BuildMeta(params.Limit, params.Offset, int64(len(items)))
	common.PaginatedResponse(c, pagination.Page(items, params), meta)
}

// ========================================
// GATE ENDPOINTS
// ========================================

// RegisterEntry admits a vehicle, seating or queueing it
// POST /api/v1/parking/entries
func (h *Handler) RegisterEntry(c *gin.Context) {
	var req EntryRequest
	if !bindJSON(c, &req) {
		return
	}

	admission, err := h.service.Admit(c.Request.Context(), &req)
	if common.HandleServiceError(c, err, "failed to register entry") {
		return
	}

	if admission.Outcome == OutcomeQueued {
		common.SuccessResponseWithStatus(c, http.StatusAccepted, admission)
		return
	}
	common.CreatedResponse(c, admission)
}

// RegisterExit departs a vehicle and returns its fee
// POST /api/v1/parking/exits
func (h *Handler) RegisterExit(c *gin.Context) {
	var req ExitRequest
	if !bindJSON(c, &req) {
		return
	}

	departure, err := h.service.Depart(c.Request.Context(), &req)
	if common.HandleServiceError(c, err, "failed to register exit") {
		return
	}

	common.SuccessResponse(c, departure)
}

// ========================================
// QUERY ENDPOINTS
// ========================================

// GetVehicle returns a parked vehicle with its running fee
// GET /api/v1/parking/vehicles/:plate
func (h *Handler) GetVehicle(c *gin.Context) {
	plate := strings.TrimSpace(c.Param("plate"))
	if !validation.ValidatePlate(plate) {
		common.ErrorResponse(c, http.StatusBadRequest, "invalid plate")
		return
	}

	status, err := h.service.VehicleStatus(c.Request.Context(), plate)
	if common.HandleServiceError(c, err, "failed to get vehicle") {
		return
	}

	common.SuccessResponse(c, status)
}

// ListVehicles returns the parked vehicles, optionally paginated
// GET /api/v1/parking/vehicles
func (h *Handler) ListVehicles(c *gin.Context) {
	listResponse(c, h.service.OccupiedList(c.Request.Context()))
}

// GetHistory returns every seated record, optionally paginated
// GET /api/v1/parking/history
func (h *Handler) GetHistory(c *gin.Context) {
	listResponse(c, h.service.History(c.Request.Context()))
}

// GetQueue returns the waiting list
// GET /api/v1/parking/queue
func (h *Handler) GetQueue(c *gin.Context) {
	listResponse(c, h.service.Queue(c.Request.Context()))
}

// GetOccupancy returns space usage
// GET /api/v1/parking/occupancy
func (h *Handler) GetOccupancy(c *gin.Context) {
	common.SuccessResponse(c, h.service.Occupancy(c.Request.Context()))
}

// GetDailyRevenue returns the takings for ?date=YYYY-MM-DD, today by default
// GET /api/v1/parking/revenue
func (h *Handler) GetDailyRevenue(c *gin.Context) {
	loc := h.service.Location()
	date := h.service.Now().In(loc)

	if raw := c.Query("date"); raw != "" {
		parsed, err := time.ParseInLocation(dateLayout, raw, loc)
		if err != nil {
			common.ErrorResponse(c, http.StatusBadRequest, "invalid date format, use YYYY-MM-DD")
			return
		}
		date = parsed
	}

	common.SuccessResponse(c, h.service.DailyRevenue(c.Request.Context(), date))
}

// GetTotalRevenue returns the takings since start-up
// GET /api/v1/parking/revenue/total
func (h *Handler) GetTotalRevenue(c *gin.Context) {
	common.SuccessResponse(c, gin.H{
		"total_revenue": h.service.TotalRevenue(c.Request.Context()),
	})
}

// GetSummary returns the dashboard figures
// GET /api/v1/parking/summary
func (h *Handler) GetSummary(c *gin.Context) {
	common.SuccessResponse(c, h.service.Summary(c.Request.Context()))
}

// RegisterRoutes registers parking routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	lot := r.Group("/api/v1/parking")
	{
		lot.POST("/entries", h.RegisterEntry)
		lot.POST("/exits", h.RegisterExit)

		lot.GET("/vehicles", h.ListVehicles)
		lot.GET("/vehicles/:plate", h.GetVehicle)
		lot.GET("/history", h.GetHistory)
		lot.GET("/queue", h.GetQueue)
		lot.GET("/occupancy", h.GetOccupancy)
		lot.GET("/revenue", h.GetDailyRevenue)
		lot.GET("/revenue/total", h.GetTotalRevenue)
		lot.GET("/summary", h.GetSummary)
	}
}
