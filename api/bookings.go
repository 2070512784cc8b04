package api

import (
	"net/http"

	"github.com/Domenick1991/flightengine/internal/domain"
	"github.com/Domenick1991/flightengine/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type passengerRequest struct {
	FirstName         string `json:"first_name" binding:"required"`
	LastName          string `json:"last_name" binding:"required"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	PassportNumber    string `json:"passport_number" binding:"required"`
	PassportCountryID int64  `json:"passport_country_id"`
}

type createBookingRequest struct {
	FlightID   int64              `json:"flight_id" binding:"required"`
	Cabin      string             `json:"cabin"`
	UserID     *int64             `json:"user_id"`
	Passengers []passengerRequest `json:"passengers" binding:"required,min=1,dive"`
}

type availabilityResponse struct {
	FlightID  int64  `json:"flight_id"`
	Cabin     string `json:"cabin"`
	Seats     int    `json:"seats"`
	Available bool   `json:"available"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.GET("/flights/:id/availability", h.availability)
	router.POST("/bookings", h.create)
	router.GET("/bookings/:reference", h.get)
}

func (h *BookingHandler) availability(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	seats, ok := seatsQuery(c)
	if !ok {
		return
	}
	cabin := c.DefaultQuery("cabin", string(domain.CabinEconomy))

	available, err := h.service.CheckAvailability(c.Request.Context(), id, cabin, seats)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, availabilityResponse{
		FlightID:  id,
		Cabin:     cabin,
		Seats:     seats,
		Available: available,
	})
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if req.Cabin == "" {
		req.Cabin = string(domain.CabinEconomy)
	}

	passengers := make([]domain.Passenger, len(req.Passengers))
	for i, p := range req.Passengers {
		passengers[i] = domain.Passenger{
			FirstName:         p.FirstName,
			LastName:          p.LastName,
			Email:             p.Email,
			Phone:             p.Phone,
			PassportNumber:    p.PassportNumber,
			PassportCountryID: p.PassportCountryID,
		}
	}

	b, err := h.service.Book(c.Request.Context(), booking.BookInput{
		FlightID:   req.FlightID,
		Cabin:      req.Cabin,
		Passengers: passengers,
		UserID:     req.UserID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *BookingHandler) get(c *gin.Context) {
	b, err := h.service.GetBooking(c.Request.Context(), c.Param("reference"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
