package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Domenick1991/flightengine/internal/domain"
	"github.com/Domenick1991/flightengine/internal/repository"
	"github.com/Domenick1991/flightengine/internal/service/schedule"
	"github.com/gin-gonic/gin"
)

const maxFeedBytes = 8 << 20

type ScheduleHandler struct {
	service schedule.ScheduleUseCase
}

type updateScheduleRequest struct {
	Date         string   `json:"date" binding:"required"`
	Time         string   `json:"time" binding:"required"`
	EconomyPrice *float64 `json:"economy_price" binding:"required"`
}

func NewScheduleHandler(service schedule.ScheduleUseCase) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

func (h *ScheduleHandler) Register(router *gin.RouterGroup) {
	router.GET("/schedules", h.list)
	router.PUT("/schedules/:id", h.update)
	router.POST("/schedules/:id/toggle", h.toggle)
	router.POST("/schedules/import", h.importFeed)
}

func (h *ScheduleHandler) list(c *gin.Context) {
	q := schedule.ListQuery{
		From:         c.Query("from"),
		To:           c.Query("to"),
		FlightNumber: c.Query("flight_number"),
		SortBy:       repository.SortOrder(c.DefaultQuery("sort", string(repository.SortByDateTime))),
	}
	if raw := c.Query("date"); raw != "" {
		date, err := domain.ParseDate(raw)
		if err != nil {
			badRequest(c, "date must be dd/mm/yyyy")
			return
		}
		q.Date = &date
	}

	flights, err := h.service.ListSchedules(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := make([]flightResponse, 0, len(flights))
	for _, f := range flights {
		resp = append(resp, toFlightResponse(f, string(domain.CabinEconomy)))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ScheduleHandler) update(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req updateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	date, err := domain.ParseDate(req.Date)
	if err != nil {
		badRequest(c, "date must be dd/mm/yyyy")
		return
	}
	departure, err := domain.ParseClock(req.Time)
	if err != nil {
		badRequest(c, "time must be HH:MM")
		return
	}

	f, err := h.service.UpdateSchedule(c.Request.Context(), id, schedule.UpdateInput{
		Date:         date,
		Departure:    departure,
		EconomyPrice: *req.EconomyPrice,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFlightResponse(*f, string(domain.CabinEconomy)))
}

func (h *ScheduleHandler) toggle(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	f, err := h.service.ToggleStatus(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFlightResponse(*f, string(domain.CabinEconomy)))
}

// importFeed accepts the feed either as a multipart "file" field or as the
// raw request body.
func (h *ScheduleHandler) importFeed(c *gin.Context) {
	var body io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			badRequest(c, "multipart upload needs a file field")
			return
		}
		f, err := fh.Open()
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		defer f.Close()
		body = f
	}

	text, err := io.ReadAll(io.LimitReader(body, maxFeedBytes+1))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	if len(text) > maxFeedBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("feed exceeds %d bytes", maxFeedBytes)})
		return
	}

	result, err := h.service.ImportChanges(c.Request.Context(), string(text))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
