package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/Domenick1991/flightengine/internal/domain"
	"github.com/gin-gonic/gin"
)

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrFlightNotFound),
		errors.Is(err, domain.ErrCabinTypeNotFound),
		errors.Is(err, domain.ErrScheduleNotFound),
		errors.Is(err, domain.ErrBookingNotFound),
		errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientSeats):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidPassengers),
		errors.Is(err, domain.ErrInvalidSchedule),
		errors.Is(err, domain.ErrEmptyFeed):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
