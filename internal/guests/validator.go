package guests

import (
	"fmt"
	"regexp"
	"strings"

	"travel-checkout/internal/models"
)

const (
	minNameLength  = 2
	maxNameLength  = 25
	minPhoneDigits = 7
)

var (
	englishNamePattern = regexp.MustCompile(`^[a-zA-Z\s'-]*$`)
	emailPattern       = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	digitsPattern      = regexp.MustCompile(`^[0-9]*$`)
)

// Error reasons shown next to a field
const (
	ReasonTitleRequired     = "Title is required"
	ReasonFirstNameRequired = "First name is required"
	ReasonLastNameRequired  = "Last name is required"
	ReasonEnglishOnly       = "Only English letters allowed"
	ReasonNameLength        = "Must be between 2 and 25 characters"
	ReasonEmailRequired     = "Email is required"
	ReasonEmailInvalid      = "Invalid email format"
	ReasonPhoneRequired     = "Phone is required"
	ReasonPhoneDigits       = "Numbers only"
	ReasonPhoneLength       = "Must be at least 7 digits"
	ReasonDuplicateName     = "First name must be unique for each guest"
)

// Result is the outcome of validating a whole party.
type Result struct {
	Valid  bool
	Errors map[string]string
}

// ValidateName checks a first or last name and returns the reason it fails, or "".
func ValidateName(name, requiredReason string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return requiredReason
	}
	if !englishNamePattern.MatchString(trimmed) {
		return ReasonEnglishOnly
	}
	if n := len(trimmed); n < minNameLength || n > maxNameLength {
		return ReasonNameLength
	}
	return ""
}

// ValidateEmail checks the lead guest's email.
func ValidateEmail(email string) string {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return ReasonEmailRequired
	}
	if !emailPattern.MatchString(trimmed) {
		return ReasonEmailInvalid
	}
	return ""
}

// ValidatePhone checks the lead guest's phone number: digits only, at least seven of them.
func ValidatePhone(phone string) string {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return ReasonPhoneRequired
	}
	if !digitsPattern.MatchString(trimmed) {
		return ReasonPhoneDigits
	}
	if len(trimmed) < minPhoneDigits {
		return ReasonPhoneLength
	}
	return ""
}

// Validate runs every per-field and cross-guest rule over the party.
// The lead guest is the first adult of the first group.
func Validate(groups []models.RoomGuestGroup) Result {
	errs := make(map[string]string)
	firstNames := make(map[string][]string)

	check := func(guest models.GuestRecord, key string, lead bool) {
		if strings.TrimSpace(guest.Title) == "" {
			errs[key+"-"+FieldTitle] = ReasonTitleRequired
		}
		if reason := ValidateName(guest.FirstName, ReasonFirstNameRequired); reason != "" {
			errs[key+"-"+FieldFirstName] = reason
		}
		if reason := ValidateName(guest.LastName, ReasonLastNameRequired); reason != "" {
			errs[key+"-"+FieldLastName] = reason
		}
		if lead {
			if reason := ValidateEmail(guest.Email); reason != "" {
				errs[key+"-"+FieldEmail] = reason
			}
			if reason := ValidatePhone(guest.Phone); reason != "" {
				errs[key+"-"+FieldPhone] = reason
			}
		}

		if name := strings.ToLower(strings.TrimSpace(guest.FirstName)); name != "" {
			firstNames[name] = append(firstNames[name], key+"-"+FieldFirstName)
		}
	}

	for roomIndex, group := range groups {
		for i, adult := range group.Adults {
			check(adult, GuestKey(roomIndex, KindAdult, i), roomIndex == 0 && i == 0)
		}
		for i, child := range group.Children {
			check(child, GuestKey(roomIndex, KindChild, i), false)
		}
	}

	for _, paths := range firstNames {
		if len(paths) < 2 {
			continue
		}
		for _, path := range paths {
			if _, taken := errs[path]; !taken {
				errs[path] = ReasonDuplicateName
			}
		}
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}

// GuestKey is the field-path prefix of one guest, e.g. "room-0-adult-1".
func GuestKey(roomIndex int, kind string, guestIndex int) string {
	return fmt.Sprintf("room-%d-%s-%d", roomIndex, kind, guestIndex)
}
