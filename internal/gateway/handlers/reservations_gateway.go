package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tavola-system/internal/services/reservations"
)

type ReservationsHTTPHandler struct {
	reservations *reservations.Service
}

func NewReservationsHTTPHandler(reservationsSvc *reservations.Service) *ReservationsHTTPHandler {
	return &ReservationsHTTPHandler{reservations: reservationsSvc}
}

type BookingRequest struct {
	TableID       string `json:"table_id" binding:"required"`
	CustomerName  string `json:"customer_name" binding:"required"`
	CustomerPhone string `json:"customer_phone"`
	Date          string `json:"date" binding:"required"`
	StartTime     string `json:"start_time" binding:"required"`
	PartySize     int    `json:"party_size" binding:"required,min=1"`
}

func (r BookingRequest) toInput() reservations.BookingInput {
	return reservations.BookingInput{
		TableID:       r.TableID,
		CustomerName:  r.CustomerName,
		CustomerPhone: r.CustomerPhone,
		Date:          r.Date,
		StartTime:     r.StartTime,
		PartySize:     r.PartySize,
	}
}

func (h *ReservationsHTTPHandler) Book(c *gin.Context) {
	var req BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format", "BAD_REQUEST"))
		return
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	reservation, err := h.reservations.Book(ctx, restaurantID(c), req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, successResponse("Reservation booked", reservation))
}

func (h *ReservationsHTTPHandler) Reschedule(c *gin.Context) {
	var req BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("Invalid request format", "BAD_REQUEST"))
		return
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	reservation, err := h.reservations.Reschedule(ctx, restaurantID(c), c.Param("id"), req.toInput())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Reservation rescheduled", reservation))
}

func (h *ReservationsHTTPHandler) Delete(c *gin.Context) {
	ctx, cancel := reqContext(c)
	defer cancel()

	if err := h.reservations.Delete(ctx, restaurantID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Reservation deleted", nil))
}

func (h *ReservationsHTTPHandler) Complete(c *gin.Context) {
	ctx, cancel := reqContext(c)
	defer cancel()

	entry, err := h.reservations.Complete(ctx, restaurantID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Reservation completed", entry))
}

func (h *ReservationsHTTPHandler) List(c *gin.Context) {
	ctx, cancel := reqContext(c)
	defer cancel()

	list, err := h.reservations.List(ctx, restaurantID(c), c.Query("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Reservations retrieved", list))
}

func (h *ReservationsHTTPHandler) History(c *gin.Context) {
	ctx, cancel := reqContext(c)
	defer cancel()

	history, err := h.reservations.History(ctx, restaurantID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse("Reservation history retrieved", history))
}
