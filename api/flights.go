package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/flightengine/internal/domain"
	"github.com/Domenick1991/flightengine/internal/pricing"
	"github.com/Domenick1991/flightengine/internal/service/flights"
	"github.com/gin-gonic/gin"
)

type FlightHandler struct {
	service flights.FlightUseCase
}

type flightResponse struct {
	ID           int64   `json:"id"`
	FlightNumber string  `json:"flight_number"`
	From         string  `json:"from"`
	To           string  `json:"to"`
	Date         string  `json:"date"`
	Departure    string  `json:"departure"`
	FlightTime   int     `json:"flight_time"`
	Aircraft     string  `json:"aircraft"`
	Confirmed    bool    `json:"confirmed"`
	EconomyPrice float64 `json:"economy_price"`
	Cabin        string  `json:"cabin"`
	Price        float64 `json:"price"`
}

type connectionResponse struct {
	First      flightResponse `json:"first"`
	Second     flightResponse `json:"second"`
	TotalPrice float64        `json:"total_price"`
}

type searchResponse struct {
	Direct     []flightResponse     `json:"direct"`
	Connecting []connectionResponse `json:"connecting"`
}

func NewFlightHandler(service flights.FlightUseCase) *FlightHandler {
	return &FlightHandler{service: service}
}

// Register mounts the handler on the versioned API group.
func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("/airports", h.airports)
	router.GET("/cabin-types", h.cabinTypes)
	router.GET("/flights/search", h.search)
	router.GET("/flights/:id", h.get)
	router.GET("/flights/:id/price", h.price)
}

func (h *FlightHandler) airports(c *gin.Context) {
	airports, err := h.service.ListAirports(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, airports)
}

func (h *FlightHandler) cabinTypes(c *gin.Context) {
	types, err := h.service.ListCabinTypes(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, types)
}

// search expects from, to and date (dd/mm/yyyy); extended widens the date
// to a week. Prices are shown for cabin, economy by default.
func (h *FlightHandler) search(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		badRequest(c, "from and to are required")
		return
	}
	date, err := domain.ParseDate(c.Query("date"))
	if err != nil {
		badRequest(c, "date must be dd/mm/yyyy")
		return
	}
	extended, _ := strconv.ParseBool(c.DefaultQuery("extended", "false"))
	cabin := c.DefaultQuery("cabin", string(domain.CabinEconomy))

	result, err := h.service.Search(c.Request.Context(), flights.SearchQuery{
		From:     from,
		To:       to,
		Date:     date,
		Extended: extended,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	resp := searchResponse{
		Direct:     make([]flightResponse, 0, len(result.Direct)),
		Connecting: make([]connectionResponse, 0, len(result.Connecting)),
	}
	for _, f := range result.Direct {
		resp.Direct = append(resp.Direct, toFlightResponse(f, cabin))
	}
	for _, conn := range result.Connecting {
		first, second := toFlightResponse(conn.First, cabin), toFlightResponse(conn.Second, cabin)
		resp.Connecting = append(resp.Connecting, connectionResponse{
			First:      first,
			Second:     second,
			TotalPrice: first.Price + second.Price,
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (h *FlightHandler) get(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toFlightResponse(*flight, c.DefaultQuery("cabin", string(domain.CabinEconomy))))
}

func (h *FlightHandler) price(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	seats, ok := seatsQuery(c)
	if !ok {
		return
	}
	flight, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	class := domain.CabinClassFromName(c.DefaultQuery("cabin", string(domain.CabinEconomy)))
	c.JSON(http.StatusOK, pricing.QuoteFor(*flight, class, seats))
}

func toFlightResponse(f domain.FlightInstance, cabin string) flightResponse {
	return flightResponse{
		ID:           f.ID,
		FlightNumber: f.FlightNumber,
		From:         f.Route.DepartureCode,
		To:           f.Route.ArrivalCode,
		Date:         domain.FormatDate(f.Date),
		Departure:    domain.FormatClock(f.DepartureTime),
		FlightTime:   f.Route.FlightTime,
		Aircraft:     f.Aircraft.Name,
		Confirmed:    f.Confirmed,
		EconomyPrice: f.EconomyPrice,
		Cabin:        string(domain.CabinClassFromName(cabin)),
		Price:        pricing.PriceFor(f, cabin),
	}
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

func seatsQuery(c *gin.Context) (int, bool) {
	seats, err := strconv.Atoi(c.DefaultQuery("seats", "1"))
	if err != nil || seats < 1 {
		badRequest(c, "seats must be a positive integer")
		return 0, false
	}
	return seats, true
}
