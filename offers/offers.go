package offers

import (
	"sort"
	"strconv"
	"strings"

	"go-policy-wizard/models"
)

// MultiTripPartner is the only partner offering multiple-trip products.
const MultiTripPartner = "KAPITAL"

// ParseAmount extracts the integer part of a free-text money string, e.g.
// "35 000,50 UZS" -> 35000. Anything unparsable yields 0, never an error.
func ParseAmount(value string) int {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == ',', r == '.':
			return r
		}
		return -1
	}, value)

	if i := strings.IndexAny(cleaned, ",."); i >= 0 {
		cleaned = cleaned[:i]
	}

	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0
	}
	return n
}

func isBestseller(programName string) bool {
	return programName == "GOLD" || programName == "GRAND 1"
}

// FromPartnerResponses flattens the multi-partner quote payload into a
// normalized offer list. Bestseller programs sort first; within each bucket
// the partner response order is preserved.
func FromPartnerResponses(responses []models.PartnerResponse) []models.Offer {
	var offers []models.Offer
	for _, partner := range responses {
		for _, program := range partner.Result {
			offers = append(offers, models.Offer{
				ProgramId:    program.ProgramId,
				Name:         program.ProgramName,
				Partner:      strings.ToUpper(partner.Partner),
				Coverage:     ParseAmount(program.Coverage),
				Price:        ParseAmount(program.PremUzs),
				IsBestseller: isBestseller(program.ProgramName),
			})
		}
	}

	sort.SliceStable(offers, func(i, j int) bool {
		return offers[i].IsBestseller && !offers[j].IsBestseller
	})
	return offers
}

// FilterByTripType restricts multiple-trip searches to the one partner that
// has multi-trip products. Single-trip searches pass through unchanged.
func FilterByTripType(offers []models.Offer, tripTypeId int) []models.Offer {
	if tripTypeId != models.TripTypeMultiple {
		return offers
	}
	filtered := make([]models.Offer, 0, len(offers))
	for _, offer := range offers {
		if offer.Partner == MultiTripPartner {
			filtered = append(filtered, offer)
		}
	}
	return filtered
}
