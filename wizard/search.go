package wizard

import (
	"time"

	"go-policy-wizard/models"
)

// Criteria bounds from the search form.
const (
	MaxCountries = 6
	MaxTravelers = 6
)

// The backend aliases purpose 4 to 0 in the outbound quote request. The
// intent is undocumented upstream; the substitution is kept literal.
const aliasedPurposeId = 4

// SearchState holds the selection-step criteria and the fetched offers.
// Offers, ShowResults, IsLoading and Error are ephemeral and never persisted;
// everything else survives reloads.
type SearchState struct {
	Countries  []string          `json:"countries"`
	Travelers  []models.Traveler `json:"travelers"`
	StartDate  string            `json:"startDate,omitempty"`
	EndDate    string            `json:"endDate,omitempty"`
	TypeId     int               `json:"typeId"`
	ActivityId int               `json:"activityId"`
	MultiId    int               `json:"multiId"`
	GroupId    int               `json:"groupId"`
	ProgramId  int               `json:"programId"`
	Partner    string            `json:"partner"`
	PurposeId  int               `json:"purposeId"`

	ShowResults bool           `json:"-"`
	Offers      []models.Offer `json:"-"`
	IsLoading   bool           `json:"-"`
	Error       string         `json:"-"`
}

// NewSearchState starts with one blank traveler, the way the form opens.
func NewSearchState() SearchState {
	return SearchState{
		Countries: []string{},
		Travelers: []models.Traveler{models.NewTraveler()},
	}
}

func (s *SearchState) Reset() {
	*s = NewSearchState()
}

// SetTripType switches between single and multiple trip. Multi-trip searches
// always carry multiId 1, single-trip ones reset it.
func (s *SearchState) SetTripType(typeId int) {
	s.TypeId = typeId
	if typeId == models.TripTypeMultiple {
		s.MultiId = 1
	} else {
		s.MultiId = 0
	}
}

// SelectOffer records the chosen program. The offer must be one of the
// currently fetched ones; identity is partner plus program id.
func (s *SearchState) SelectOffer(partner string, programId int) bool {
	for _, offer := range s.Offers {
		if offer.Partner == partner && offer.ProgramId == programId {
			s.Partner = partner
			s.ProgramId = programId
			return true
		}
	}
	return false
}

// RequestData derives the outbound quote request from the criteria. Blank
// traveler birthdates are skipped and purpose 4 is aliased to 0.
func (s *SearchState) RequestData() models.QuoteRequest {
	purposeId := s.PurposeId
	if purposeId == aliasedPurposeId {
		purposeId = 0
	}

	dateBirths := make([]string, 0, len(s.Travelers))
	for _, t := range s.Travelers {
		if t.Birthdate != "" {
			dateBirths = append(dateBirths, t.Birthdate)
		}
	}

	return models.QuoteRequest{
		StartDate:    s.StartDate,
		EndDate:      s.EndDate,
		ProgramId:    s.ProgramId,
		ActivityId:   s.ActivityId,
		GroupId:      s.GroupId,
		TypeId:       s.TypeId,
		MultiId:      s.MultiId,
		PurposeId:    purposeId,
		DateBirths:   dateBirths,
		CountriesIso: s.CountriesIso(),
	}
}

func (s *SearchState) CountriesIso() []string {
	iso := make([]string, len(s.Countries))
	copy(iso, s.Countries)
	return iso
}

// ValidateCriteria checks the search form before any network call: 1-6
// countries, 1-6 travelers with plausible birthdates, both trip dates, and
// endDate not before startDate.
func (s *SearchState) ValidateCriteria() string {
	if len(s.Countries) == 0 {
		return MsgSelectCountry
	}
	if len(s.Countries) > MaxCountries {
		return MsgTooManyCountries
	}
	if len(s.Travelers) == 0 {
		return MsgAddTraveler
	}
	if len(s.Travelers) > MaxTravelers {
		return MsgTooManyTravelers
	}
	for _, t := range s.Travelers {
		if t.Age == nil {
			return MsgTravelerBirthdates
		}
	}
	if s.StartDate == "" {
		return MsgSelectStartDate
	}
	if s.EndDate == "" {
		return MsgSelectEndDate
	}

	start, err1 := time.Parse(tripDateLayout, s.StartDate)
	end, err2 := time.Parse(tripDateLayout, s.EndDate)
	if err1 != nil || err2 != nil || end.Before(start) {
		return MsgBadDateRange
	}
	return ""
}

const tripDateLayout = "02.01.2006"

// AddBlankTraveler appends an empty traveler and returns it. The caller is
// responsible for keeping the traveler-data step in sync.
func (s *SearchState) AddBlankTraveler() models.Traveler {
	traveler := models.NewTraveler()
	s.Travelers = append(s.Travelers, traveler)
	return traveler
}

// RemoveTraveler drops the traveler at the index. The first traveler can
// never be removed.
func (s *SearchState) RemoveTraveler(index int) bool {
	if index <= 0 || index >= len(s.Travelers) {
		return false
	}
	s.Travelers = append(s.Travelers[:index], s.Travelers[index+1:]...)
	return true
}
