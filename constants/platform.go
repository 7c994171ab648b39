package constants

import (
	"strings"
)

// Platform is the canonical booking platform label stored on a reservation.
type Platform string

const (
	Airbnb      Platform = "airbnb"
	BookingCom  Platform = "booking"
	Vrbo        Platform = "vrbo"
	Expedia     Platform = "expedia"
	HomeToGo    Platform = "hometogo"
	Direct      Platform = "direct"
	UnknownSite Platform = "unknown"
)

var allPlatforms = []Platform{
	Airbnb,
	BookingCom,
	Vrbo,
	Expedia,
	HomeToGo,
	Direct,
	UnknownSite,
}

func PlatformsAsStringSlice() []string {
	result := make([]string, len(allPlatforms))
	for i, p := range allPlatforms {
		result[i] = string(p)
	}
	return result
}

// CanonicalizePlatform maps free-text site labels from documents onto the
// canonical platform set. Returns (UnknownSite, false) when no mapping exists.
func CanonicalizePlatform(input string) (Platform, bool) {
	if input == "" {
		return UnknownSite, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]Platform{
		"airbnb":       Airbnb,
		"air bnb":      Airbnb,
		"booking":      BookingCom,
		"booking.com":  BookingCom,
		"bcom":         BookingCom,
		"vrbo":         Vrbo,
		"homeaway":     Vrbo,
		"expedia":      Expedia,
		"hometogo":     HomeToGo,
		"home to go":   HomeToGo,
		"direto":       Direct,
		"direct":       Direct,
		"site proprio": Direct,
		"particular":   Direct,
	}
	if p, ok := synonyms[normalized]; ok {
		return p, true
	}

	for _, p := range allPlatforms {
		if normalized == string(p) {
			return p, true
		}
	}

	// containment fallback for labels like "Airbnb (canal)" or "Reserva Booking"
	for key, p := range synonyms {
		if strings.Contains(normalized, key) {
			return p, true
		}
	}
	return UnknownSite, false
}
