package guests

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"travel-checkout/internal/models"
)

// Guest kinds used in field paths
const (
	KindAdult = "adult"
	KindChild = "child"
)

// Editable guest fields
const (
	FieldTitle     = "title"
	FieldFirstName = "firstName"
	FieldLastName  = "lastName"
	FieldEmail     = "email"
	FieldPhone     = "phone"
)

const (
	defaultAdultTitle = "Mr"
	defaultChildTitle = "Master"
)

var (
	ErrInvalidPath  = errors.New("invalid guest field path")
	ErrUnknownGuest = errors.New("guest slot does not exist")
	ErrUnknownField = errors.New("unknown guest field")
)

// Form owns the guest data of one checkout. The party shape is fixed at construction;
// only field values change, and validation is recomputed after every change.
type Form struct {
	groups          []models.RoomGuestGroup
	submitAttempted bool
	result          Result
}

// NewForm sizes the party from the search's room composition.
func NewForm(rooms []models.PaxRoom) *Form {
	groups := make([]models.RoomGuestGroup, len(rooms))
	for i, room := range rooms {
		groups[i] = models.RoomGuestGroup{
			RoomIndex:    i,
			Adults:       blankGuests(room.Adults, defaultAdultTitle),
			Children:     blankGuests(room.Children, defaultChildTitle),
			ChildrenAges: append([]int(nil), room.ChildrenAges...),
		}
	}
	f := &Form{groups: groups}
	f.result = Validate(f.groups)
	return f
}

// NewTravelerForm builds a flight party: a single group whose adults are the travelers.
func NewTravelerForm(travelers int) *Form {
	return NewForm([]models.PaxRoom{{Adults: travelers}})
}

func blankGuests(n int, title string) []models.GuestRecord {
	guests := make([]models.GuestRecord, n)
	for i := range guests {
		guests[i].Title = title
	}
	return guests
}

// UpdateField sets one field addressed by a path such as "room-0-adult-0-firstName".
func (f *Form) UpdateField(path, value string) error {
	guest, field, err := f.lookup(path)
	if err != nil {
		return err
	}

	switch field {
	case FieldTitle:
		guest.Title = value
	case FieldFirstName:
		guest.FirstName = value
	case FieldLastName:
		guest.LastName = value
	case FieldEmail:
		guest.Email = value
	case FieldPhone:
		guest.Phone = value
	default:
		return fmt.Errorf("%s: %w", field, ErrUnknownField)
	}

	f.result = Validate(f.groups)
	return nil
}

func (f *Form) lookup(path string) (*models.GuestRecord, string, error) {
	parts := strings.Split(path, "-")
	if len(parts) != 5 || parts[0] != "room" {
		return nil, "", fmt.Errorf("%q: %w", path, ErrInvalidPath)
	}
	roomIndex, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, "", fmt.Errorf("%q: %w", path, ErrInvalidPath)
	}
	guestIndex, err := strconv.Atoi(parts[3])
	if err != nil {
		return nil, "", fmt.Errorf("%q: %w", path, ErrInvalidPath)
	}
	if roomIndex < 0 || roomIndex >= len(f.groups) {
		return nil, "", fmt.Errorf("%q: %w", path, ErrUnknownGuest)
	}

	var slots []models.GuestRecord
	switch parts[2] {
	case KindAdult:
		slots = f.groups[roomIndex].Adults
	case KindChild:
		slots = f.groups[roomIndex].Children
	default:
		return nil, "", fmt.Errorf("%q: %w", path, ErrInvalidPath)
	}
	if guestIndex < 0 || guestIndex >= len(slots) {
		return nil, "", fmt.Errorf("%q: %w", path, ErrUnknownGuest)
	}
	return &slots[guestIndex], parts[4], nil
}

// MarkSubmitAttempted records a submission attempt; from here on errors are visible.
func (f *Form) MarkSubmitAttempted() Result {
	f.submitAttempted = true
	return f.result
}

func (f *Form) Result() Result { return f.result }

// VisibleErrors returns the errors the UI should display.
func (f *Form) VisibleErrors() map[string]string {
	if !f.submitAttempted {
		return map[string]string{}
	}
	out := make(map[string]string, len(f.result.Errors))
	for k, v := range f.result.Errors {
		out[k] = v
	}
	return out
}

// Groups returns a copy of the party.
func (f *Form) Groups() []models.RoomGuestGroup {
	out := make([]models.RoomGuestGroup, len(f.groups))
	for i, g := range f.groups {
		out[i] = models.RoomGuestGroup{
			RoomIndex:    g.RoomIndex,
			Adults:       append([]models.GuestRecord{}, g.Adults...),
			Children:     append([]models.GuestRecord{}, g.Children...),
			ChildrenAges: append([]int(nil), g.ChildrenAges...),
		}
	}
	return out
}

// Travelers flattens the party in room order, adults before children.
func (f *Form) Travelers() []models.GuestRecord {
	var out []models.GuestRecord
	for _, g := range f.groups {
		out = append(out, g.Adults...)
		out = append(out, g.Children...)
	}
	return out
}
