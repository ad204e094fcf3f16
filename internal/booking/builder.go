package booking

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"travel-checkout/internal/models"
)

// Defaults for the current hotel product
const (
	DefaultClientRefPrefix  = "CASE7-"
	DefaultBookingRefPrefix = "TBO-BOOK-CASE9-"
	BookingTypeVoucher      = "Voucher"
	PaymentModePayLater     = "PayLater"

	// MaxReferenceSuffix bounds the random part of the references; collisions are possible
	// and are not a substitute for the workflow's single-submission guard.
	MaxReferenceSuffix = 999
)

var (
	ErrMissingLeadGuest   = errors.New("lead guest is missing")
	ErrMissingBookingCode = errors.New("booking code is missing")
	ErrInvalidSuffix      = errors.New("reference suffix out of range")
)

// References is the client/booking reference pair stamped on one submission.
type References struct {
	ClientReferenceID  string `json:"clientReferenceId"`
	BookingReferenceID string `json:"bookingReferenceId"`
}

// NewReferences formats <prefix><YYYYMMDD><suffix> using the UTC date of now.
func NewReferences(clientPrefix, bookingPrefix string, now time.Time, suffix int) (References, error) {
	if suffix < 0 || suffix > MaxReferenceSuffix {
		return References{}, fmt.Errorf("%d: %w", suffix, ErrInvalidSuffix)
	}
	if clientPrefix == "" {
		clientPrefix = DefaultClientRefPrefix
	}
	if bookingPrefix == "" {
		bookingPrefix = DefaultBookingRefPrefix
	}
	stamp := fmt.Sprintf("%s%d", now.UTC().Format("20060102"), suffix)
	return References{
		ClientReferenceID:  clientPrefix + stamp,
		BookingReferenceID: bookingPrefix + stamp,
	}, nil
}

// Input is everything the builder needs; it never reaches for network or storage.
type Input struct {
	Selection  models.InventorySelection
	Groups     []models.RoomGuestGroup
	References References
}

// Build assembles a fresh provider-ready payload.
func Build(in Input) (*models.BookingPayload, error) {
	if strings.TrimSpace(in.Selection.Code) == "" {
		return nil, ErrMissingBookingCode
	}
	if len(in.Groups) == 0 || len(in.Groups[0].Adults) == 0 {
		return nil, ErrMissingLeadGuest
	}
	lead := in.Groups[0].Adults[0]

	details := make([]models.CustomerDetail, 0, len(in.Groups))
	for idx, group := range in.Groups {
		names := make([]models.CustomerName, 0, len(group.Adults)+len(group.Children))
		for _, adult := range group.Adults {
			names = append(names, customerName(adult, models.GuestAdult))
		}
		for _, child := range group.Children {
			names = append(names, customerName(child, models.GuestChild))
		}
		details = append(details, models.CustomerDetail{RoomIndex: idx, CustomerNames: names})
	}

	return &models.BookingPayload{
		BookingCode:        in.Selection.Code,
		CustomerDetails:    details,
		ClientReferenceId:  in.References.ClientReferenceID,
		BookingReferenceId: in.References.BookingReferenceID,
		TotalFare:          in.Selection.TotalPrice,
		EmailId:            strings.TrimSpace(lead.Email),
		PhoneNumber:        strings.TrimSpace(lead.Phone),
		BookingType:        BookingTypeVoucher,
		PaymentMode:        PaymentModePayLater,
	}, nil
}

func customerName(g models.GuestRecord, kind string) models.CustomerName {
	return models.CustomerName{
		Title:     strings.TrimSpace(g.Title),
		FirstName: strings.TrimSpace(g.FirstName),
		LastName:  strings.TrimSpace(g.LastName),
		Type:      kind,
	}
}

// InvoiceValue is the amount charged: the fare plus the commission percentage, to the cent.
func InvoiceValue(sel models.InventorySelection) float64 {
	total := sel.TotalPrice + sel.TotalPrice*sel.CommissionPercent/100
	return math.Round(total*100) / 100
}
