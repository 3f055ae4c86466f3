package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Simphiwe396/Delivery-pwa/internal/domain"
	"github.com/Simphiwe396/Delivery-pwa/internal/service"
)

// TripHandler handles HTTP requests for trips.
type TripHandler struct {
	tripService *service.TripService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(tripService *service.TripService) *TripHandler {
	return &TripHandler{tripService: tripService}
}

// StartTripRequest is the HTTP request body for starting a trip.
type StartTripRequest struct {
	PickupLat *float64 `json:"pickupLat"`
	PickupLng *float64 `json:"pickupLng"`
	Rate      *float64 `json:"rate"`
	RiderName string   `json:"riderName"`
}

// UpdateLocationRequest is the HTTP request body for reporting a location.
// A body carrying status "cancelled" cancels the trip instead; that shape is
// kept for compatibility with the original client.
type UpdateLocationRequest struct {
	ID     string   `json:"id"`
	Lat    *float64 `json:"lat"`
	Lng    *float64 `json:"lng"`
	Status string   `json:"status"`
}

// FinishTripRequest is the HTTP request body for finishing a trip.
type FinishTripRequest struct {
	ID  string   `json:"id"`
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// TripResponse is the HTTP representation of a trip document.
type TripResponse struct {
	ID        string   `json:"id"`
	RiderName string   `json:"riderName"`
	PickupLat float64  `json:"pickupLat"`
	PickupLng float64  `json:"pickupLng"`
	DropLat   *float64 `json:"dropLat,omitempty"`
	DropLng   *float64 `json:"dropLng,omitempty"`
	Lat       float64  `json:"lat"`
	Lng       float64  `json:"lng"`
	Distance  float64  `json:"distance"`
	Rate      float64  `json:"rate"`
	Fare      float64  `json:"fare"`
	Status    string   `json:"status"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
}

func tripResponse(trip *domain.Trip) TripResponse {
	resp := TripResponse{
		ID:        trip.ID,
		RiderName: trip.RiderName,
		PickupLat: trip.PickupLat,
		PickupLng: trip.PickupLng,
		Lat:       trip.Lat,
		Lng:       trip.Lng,
		Distance:  trip.Distance,
		Rate:      trip.Rate,
		Fare:      trip.Fare,
		Status:    string(trip.Status),
		CreatedAt: trip.CreatedAt.Format(time.RFC3339),
		UpdatedAt: trip.UpdatedAt.Format(time.RFC3339),
	}

	if trip.HasDropoff() {
		dropLat, dropLng := trip.DropLat, trip.DropLng
		resp.DropLat = &dropLat
		resp.DropLng = &dropLng
	}

	return resp
}

// StartTrip handles POST /api/trip
func (h *TripHandler) StartTrip(c *gin.Context) {
	var req StartTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.PickupLat == nil || req.PickupLng == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "pickupLat and pickupLng are required"})
		return
	}
	if req.Rate == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "rate is required"})
		return
	}

	trip, err := h.tripService.StartTrip(c.Request.Context(), service.StartTripRequest{
		PickupLat: *req.PickupLat,
		PickupLng: *req.PickupLng,
		Rate:      *req.Rate,
		RiderName: req.RiderName,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, tripResponse(trip))
}

// UpdateLocation handles POST /api/update-location
func (h *TripHandler) UpdateLocation(c *gin.Context) {
	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.ID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "id is required"})
		return
	}

	// The original client cancels by posting status=cancelled to this
	// endpoint. The engine stays the sole authority on the transition.
	if req.Status == string(domain.TripStatusCancelled) {
		trip, err := h.tripService.CancelTrip(c.Request.Context(), service.CancelTripRequest{
			TripID: req.ID,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		respondJSON(c, http.StatusOK, tripResponse(trip))
		return
	}

	if req.Status != "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "status may only be set to cancelled"})
		return
	}

	if req.Lat == nil || req.Lng == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "lat and lng are required"})
		return
	}

	trip, err := h.tripService.ReportLocation(c.Request.Context(), service.ReportLocationRequest{
		TripID: req.ID,
		Lat:    *req.Lat,
		Lng:    *req.Lng,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, tripResponse(trip))
}

// FinishTrip handles POST /api/finish-trip
func (h *TripHandler) FinishTrip(c *gin.Context) {
	var req FinishTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.ID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "id is required"})
		return
	}
	if req.Lat == nil || req.Lng == nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "lat and lng are required"})
		return
	}

	trip, err := h.tripService.FinishTrip(c.Request.Context(), service.FinishTripRequest{
		TripID: req.ID,
		Lat:    *req.Lat,
		Lng:    *req.Lng,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, tripResponse(trip))
}

// GetTrip handles GET /api/trip/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	trip, err := h.tripService.GetTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, tripResponse(trip))
}

// GetAll handles GET /api/trips
func (h *TripHandler) GetAll(c *gin.Context) {
	trips, err := h.tripService.ListTrips(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]TripResponse, 0, len(trips))
	for _, trip := range trips {
		response = append(response, tripResponse(trip))
	}

	respondJSON(c, http.StatusOK, response)
}

// GetActive handles GET /api/active-trips
func (h *TripHandler) GetActive(c *gin.Context) {
	trips, err := h.tripService.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]TripResponse, 0, len(trips))
	for _, trip := range trips {
		response = append(response, tripResponse(trip))
	}

	respondJSON(c, http.StatusOK, response)
}

// GetNearby handles GET /api/nearby-trips?lat=&lng=&radius=
func (h *TripHandler) GetNearby(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "lat is required"})
		return
	}

	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "lng is required"})
		return
	}

	radiusKm := 5.0
	if raw := c.Query("radius"); raw != "" {
		radiusKm, err = strconv.ParseFloat(raw, 64)
		if err != nil || radiusKm <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "radius must be a positive number"})
			return
		}
	}

	trips, err := h.tripService.NearbyTrips(c.Request.Context(), lat, lng, radiusKm)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, trips)
}
