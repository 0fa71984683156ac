package models

// Trip type identifiers as the quoting service knows them.
const (
	TripTypeSingle   = 0
	TripTypeMultiple = 1
)

// QuoteRequest is the body for POST /price on the quoting service.
type QuoteRequest struct {
	StartDate    string   `json:"startDate"`
	EndDate      string   `json:"endDate"`
	ProgramId    int      `json:"programId"`
	ActivityId   int      `json:"activityId"`
	GroupId      int      `json:"groupId"`
	TypeId       int      `json:"typeId"`
	MultiId      int      `json:"multiId,omitempty"`
	PurposeId    int      `json:"purposeId"`
	DateBirths   []string `json:"dateBirths"`
	CountriesIso []string `json:"countriesIso"`
}

// PartnerProgram is one raw program quote inside a partner's response.
// Money fields arrive as free-text strings.
type PartnerProgram struct {
	Id            int    `json:"id"`
	ProgramName   string `json:"programName"`
	ProgramId     int    `json:"programId"`
	PremUsd       string `json:"premUsd"`
	PremUzs       string `json:"premUzs"`
	PremEur       string `json:"premEur"`
	Coverage      string `json:"coverage"`
	Medicine      string `json:"medicine"`
	Stomatology   string `json:"stomatology"`
	CovidIncluded bool   `json:"covidIncluded"`
	Covid         string `json:"covid"`
	Repatriation  string `json:"repatriation"`
}

// PartnerResponse is one element of the /price response array.
type PartnerResponse struct {
	Partner string           `json:"partner"`
	Result  []PartnerProgram `json:"result"`
}

// Offer is a normalized purchasable program. Identity is Partner+ProgramId;
// ProgramId alone is not unique across partners. Offers are ephemeral and
// regenerated on every search.
type Offer struct {
	ProgramId    int    `json:"programId"`
	Name         string `json:"name"`
	Partner      string `json:"partner"`
	Coverage     int    `json:"coverage"`
	Price        int    `json:"price"`
	IsBestseller bool   `json:"isBestseller"`
}
