package pipeline

import (
	"strconv"
	"time"

	"github.com/rentalops/reservations-tracker/constants"
)

// Validate runs field-level validation over a draft. Errors block acceptance;
// warnings do not. Status derives as invalid > warning > valid.
func Validate(d Draft) ValidationResult {
	var errs, warns []FieldIssue

	if d.GuestName == "" {
		errs = append(errs, FieldIssue{Field: "guestName", Message: "guest name is required"})
	}
	if d.CheckInDate == "" {
		errs = append(errs, FieldIssue{Field: "checkInDate", Message: "check-in date is required"})
	}
	if d.CheckOutDate == "" {
		errs = append(errs, FieldIssue{Field: "checkOutDate", Message: "check-out date is required"})
	}

	if d.CheckInDate != "" && d.CheckOutDate != "" {
		in, inErr := time.Parse("2006-01-02", d.CheckInDate)
		out, outErr := time.Parse("2006-01-02", d.CheckOutDate)
		switch {
		case inErr != nil:
			errs = append(errs, FieldIssue{Field: "checkInDate", Message: "not an ISO calendar date"})
		case outErr != nil:
			errs = append(errs, FieldIssue{Field: "checkOutDate", Message: "not an ISO calendar date"})
		case !out.After(in):
			errs = append(errs, FieldIssue{Field: "checkOutDate", Message: "check-out must be strictly after check-in"})
		}
	}

	if d.TotalAmount != "" {
		if f, err := strconv.ParseFloat(d.TotalAmount, 64); err != nil {
			errs = append(errs, FieldIssue{Field: "totalAmount", Message: "not a decimal amount"})
		} else if f < 0 {
			errs = append(errs, FieldIssue{Field: "totalAmount", Message: "amount must be non-negative"})
		}
	}

	if d.NumGuests < 0 {
		errs = append(errs, FieldIssue{Field: "numGuests", Message: "guest count must be at least 1"})
	} else if d.NumGuests == 0 {
		warns = append(warns, FieldIssue{Field: "numGuests", Message: "guest count missing"})
	}

	if d.PropertyID == nil {
		warns = append(warns, FieldIssue{Field: "propertyId", Message: "property reference unresolved"})
	}
	if d.Platform == "" || d.Platform == string(constants.UnknownSite) {
		warns = append(warns, FieldIssue{Field: "platform", Message: "platform unknown"})
	}

	status := constants.ValidationValid
	if len(warns) > 0 {
		status = constants.ValidationWarning
	}
	if len(errs) > 0 {
		status = constants.ValidationInvalid
	}
	return ValidationResult{
		IsValid:  len(errs) == 0,
		Errors:   errs,
		Warnings: warns,
		Status:   status,
	}
}
