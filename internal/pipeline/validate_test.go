package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rentalops/reservations-tracker/constants"
)

func id(v int64) *int64 { return &v }

func TestValidateCleanDraft(t *testing.T) {
	v := Validate(Draft{
		PropertyID:   id(7),
		GuestName:    "Camila Silva",
		CheckInDate:  "2025-03-21",
		CheckOutDate: "2025-03-23",
		NumGuests:    4,
		Platform:     "airbnb",
	})

	assert.True(t, v.IsValid)
	assert.Empty(t, v.Errors)
	assert.Empty(t, v.Warnings)
	assert.Equal(t, constants.ValidationValid, v.Status)
}

func TestValidateDateOrdering(t *testing.T) {
	cases := map[string]struct {
		in, out string
		valid   bool
	}{
		"checkout after checkin":  {"2025-03-21", "2025-03-23", true},
		"same day is rejected":    {"2025-03-21", "2025-03-21", false},
		"checkout before checkin": {"2025-03-23", "2025-03-21", false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			v := Validate(Draft{
				PropertyID:   id(1),
				GuestName:    "Ana",
				CheckInDate:  tc.in,
				CheckOutDate: tc.out,
				NumGuests:    2,
				Platform:     "airbnb",
			})
			assert.Equal(t, tc.valid, v.IsValid)
		})
	}
}

func TestValidateRequiredFields(t *testing.T) {
	v := Validate(Draft{PropertyID: id(1), NumGuests: 1, Platform: "airbnb"})

	assert.False(t, v.IsValid)
	assert.Equal(t, constants.ValidationInvalid, v.Status)
	fields := make([]string, 0, len(v.Errors))
	for _, e := range v.Errors {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{"guestName", "checkInDate", "checkOutDate"}, fields)
}

func TestValidateWarningsDoNotBlock(t *testing.T) {
	v := Validate(Draft{
		GuestName:    "Ana",
		CheckInDate:  "2025-03-21",
		CheckOutDate: "2025-03-23",
	})

	assert.True(t, v.IsValid)
	assert.Equal(t, constants.ValidationWarning, v.Status)
	assert.NotEmpty(t, v.Warnings)
}

func TestValidateAmount(t *testing.T) {
	v := Validate(Draft{
		PropertyID:   id(1),
		GuestName:    "Ana",
		CheckInDate:  "2025-03-21",
		CheckOutDate: "2025-03-23",
		NumGuests:    2,
		Platform:     "airbnb",
		TotalAmount:  "not-a-number",
	})
	assert.False(t, v.IsValid)

	v = Validate(Draft{
		PropertyID:   id(1),
		GuestName:    "Ana",
		CheckInDate:  "2025-03-21",
		CheckOutDate: "2025-03-23",
		NumGuests:    2,
		Platform:     "airbnb",
		TotalAmount:  "450.00",
	})
	assert.True(t, v.IsValid)
}
