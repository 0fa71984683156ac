package offers

import (
	"testing"

	"go-policy-wizard/models"

	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	require.Equal(t, 35000, ParseAmount("35 000"))
	require.Equal(t, 35000, ParseAmount("35000,50"))
	require.Equal(t, 35000, ParseAmount("35000.50"))
	require.Equal(t, 35000, ParseAmount("UZS 35 000,00"))
	require.Equal(t, 0, ParseAmount(""))
	require.Equal(t, 0, ParseAmount("n/a"))
	require.Equal(t, 0, ParseAmount(",50"))
}

func quotes() []models.PartnerResponse {
	return []models.PartnerResponse{
		{
			Partner: "gross",
			Result: []models.PartnerProgram{
				{ProgramId: 3, ProgramName: "SILVER", PremUzs: "120 000", Coverage: "30 000"},
				{ProgramId: 7, ProgramName: "GOLD", PremUzs: "250 000,00", Coverage: "50 000"},
			},
		},
		{
			Partner: "Kapital",
			Result: []models.PartnerProgram{
				{ProgramId: 5, ProgramName: "STANDARD", PremUzs: "90 000", Coverage: "25 000"},
				{ProgramId: 9, ProgramName: "GRAND 1", PremUzs: "310 000", Coverage: "75 000"},
			},
		},
	}
}

func TestFromPartnerResponses_NormalizesAndSorts(t *testing.T) {
	offers := FromPartnerResponses(quotes())
	require.Len(t, offers, 4)

	// bestsellers first, each bucket keeps response order
	require.Equal(t, "GOLD", offers[0].Name)
	require.Equal(t, "GRAND 1", offers[1].Name)
	require.Equal(t, "SILVER", offers[2].Name)
	require.Equal(t, "STANDARD", offers[3].Name)

	require.Equal(t, "GROSS", offers[0].Partner)
	require.Equal(t, "KAPITAL", offers[1].Partner)
	require.Equal(t, 250000, offers[0].Price)
	require.Equal(t, 50000, offers[0].Coverage)
	require.True(t, offers[0].IsBestseller)
	require.False(t, offers[2].IsBestseller)
}

func TestFromPartnerResponses_Empty(t *testing.T) {
	require.Empty(t, FromPartnerResponses(nil))
	require.Empty(t, FromPartnerResponses([]models.PartnerResponse{{Partner: "gross"}}))
}

func TestFilterByTripType_MultiTripKeepsOnlyKapital(t *testing.T) {
	offers := FromPartnerResponses(quotes())

	filtered := FilterByTripType(offers, models.TripTypeMultiple)
	require.Len(t, filtered, 2)
	for _, offer := range filtered {
		require.Equal(t, MultiTripPartner, offer.Partner)
	}
}

func TestFilterByTripType_SingleTripPassesThrough(t *testing.T) {
	offers := FromPartnerResponses(quotes())

	filtered := FilterByTripType(offers, models.TripTypeSingle)
	require.Equal(t, offers, filtered)
}
