package backend

import (
	"context"
	"encoding/json"
	"fmt"

	"travel-checkout/internal/models"
)

type preBookRequest struct {
	BookingCode string `json:"BookingCode"`
}

type hotelRoom struct {
	BookingCode    string          `json:"BookingCode"`
	TotalFare      Amount          `json:"TotalFare"`
	Currency       string          `json:"Currency"`
	CancelPolicies json.RawMessage `json:"CancelPolicies"`
}

type hotelResult struct {
	hotelRoom
	Rooms []json.RawMessage `json:"Rooms"`
}

type preBookResponse struct {
	Data struct {
		HotelResult []json.RawMessage `json:"HotelResult"`
	} `json:"data"`
}

// PreBookRoom re-confirms price and availability of a room and returns the fresh snapshot.
func (c *Client) PreBookRoom(ctx context.Context, bookingCode string) (*models.InventorySelection, error) {
	var resp preBookResponse
	if err := c.post(ctx, "PreBookRoom", "/hotels/PreBookRoom", preBookRequest{BookingCode: bookingCode}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data.HotelResult) == 0 {
		return nil, &Error{Op: "PreBookRoom", Err: ErrEmptyResult}
	}

	var hotel hotelResult
	if err := json.Unmarshal(resp.Data.HotelResult[0], &hotel); err != nil {
		return nil, &Error{Op: "PreBookRoom", Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
	}

	// Providers answer either with the room itself or with a hotel wrapping its rooms.
	room := hotel.hotelRoom
	raw := resp.Data.HotelResult[0]
	if len(hotel.Rooms) > 0 {
		var inner hotelRoom
		if err := json.Unmarshal(hotel.Rooms[0], &inner); err != nil {
			return nil, &Error{Op: "PreBookRoom", Err: fmt.Errorf("%w: %v", ErrMalformedResponse, err)}
		}
		if inner.Currency == "" {
			inner.Currency = hotel.Currency
		}
		room = inner
		raw = hotel.Rooms[0]
	}

	code := room.BookingCode
	if code == "" {
		code = bookingCode
	}
	return &models.InventorySelection{
		Product:        models.ProductHotel,
		Code:           code,
		TotalPrice:     float64(room.TotalFare),
		Currency:       room.Currency,
		CancelPolicies: room.CancelPolicies,
		Offer:          raw,
	}, nil
}

type flightPricingRequest struct {
	FlightOffer json.RawMessage `json:"flightOffer"`
}

type flightPricingResponse struct {
	Data struct {
		FlightOffers []json.RawMessage `json:"flightOffers"`
	} `json:"data"`
	PresentageCommission *float64 `json:"presentageCommission"`
}

type flightOffer struct {
	ID    string `json:"id"`
	Price struct {
		Total    Amount `json:"total"`
		Currency string `json:"currency"`
	} `json:"price"`
}

// FlightPricing re-prices a flight offer. The commission is left at zero when the
// backend does not send one so the caller can apply its default.
func (c *Client) FlightPricing(ctx context.Context, offer json.RawMessage) (*models.InventorySelection, error) {
	var resp flightPricingResponse
	if err := c.post(ctx, "FlightPricing", "/flights/flight-pricing", flightPricingRequest{FlightOffer: offer}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data.FlightOffers) == 0 {
		return nil, &Error{Op: "FlightPricing", Err: ErrEmptyResult}
	}

	priced, err := ParseFlightOffer(resp.Data.FlightOffers[0])
	if err != nil {
		return nil, &Error{Op: "FlightPricing", Err: err}
	}
	if resp.PresentageCommission != nil {
		priced.CommissionPercent = *resp.PresentageCommission
	}
	return priced, nil
}

// ParseFlightOffer reads the id and price of an offer, keeping the raw offer.
func ParseFlightOffer(raw json.RawMessage) (*models.InventorySelection, error) {
	var offer flightOffer
	if err := json.Unmarshal(raw, &offer); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &models.InventorySelection{
		Product:    models.ProductFlight,
		Code:       offer.ID,
		TotalPrice: float64(offer.Price.Total),
		Currency:   offer.Price.Currency,
		Offer:      raw,
	}, nil
}

// TravelerCount returns the number of traveler pricings in a flight offer.
func TravelerCount(raw json.RawMessage) (int, error) {
	var offer struct {
		TravelerPricings []json.RawMessage `json:"travelerPricings"`
	}
	if err := json.Unmarshal(raw, &offer); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return len(offer.TravelerPricings), nil
}

type bookRoomResponse struct {
	Success   bool   `json:"success"`
	BookingID string `json:"bookingId"`
	Message   string `json:"message"`
}

// BookRoom submits a pay-at-hotel booking directly to the hotel provider.
func (c *Client) BookRoom(ctx context.Context, payload *models.BookingPayload) (*models.BookRoomResult, error) {
	var resp bookRoomResponse
	if err := c.post(ctx, "BookRoom", "/hotels/BookRoom", payload, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		c.logger.WithField("message", resp.Message).Warn("BookRoom rejected by provider")
	}
	return &models.BookRoomResult{Success: resp.Success, BookingID: resp.BookingID}, nil
}
