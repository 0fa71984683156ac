package wizard

import (
	"fmt"
	"strings"
	"time"

	"go-policy-wizard/formatters"
	"go-policy-wizard/models"
)

const purchaserKey = "purchaser"

func travelerKey(index int) string {
	return fmt.Sprintf("tourist-%d", index)
}

// TravelerState holds the traveler-data step: one identity record per
// traveler, the purchaser flag, and the optional separate purchaser record.
// Field errors are suppressed until a field has been blurred or the step has
// been left forward once (ShowAllErrors).
type TravelerState struct {
	IsPurchaserAmongTravelers bool            `json:"isPurchaser"`
	Travelers                 []models.Person `json:"travelers"`
	Purchaser                 *models.Person  `json:"purchaser,omitempty"`

	ShowAllErrors bool              `json:"-"`
	Touched       map[string]bool   `json:"-"`
	LookupErrors  map[string]string `json:"-"`
	lookupBusy    map[string]bool
}

func NewTravelerState() TravelerState {
	return TravelerState{
		IsPurchaserAmongTravelers: true,
		Travelers:                 []models.Person{},
	}
}

func (t *TravelerState) Reset() {
	*t = NewTravelerState()
}

// SyncFromSearch rebuilds the identity records when the search-phase
// traveler list has diverged (count changed since the step was last open).
// Matching records keep their data; ids and birthdates always come from the
// search phase.
func (t *TravelerState) SyncFromSearch(searchTravelers []models.Traveler) {
	if len(t.Travelers) == len(searchTravelers) {
		return
	}
	rebuilt := make([]models.Person, len(searchTravelers))
	for i, st := range searchTravelers {
		rebuilt[i] = models.Person{
			ID:        st.ID,
			Residency: models.ResidencyResident,
			Birthdate: st.Birthdate,
		}
	}
	t.Travelers = rebuilt
}

// SetIsPurchaser flips whether traveler #1 doubles as the purchaser. Turning
// the flag on discards the separate purchaser record; turning it off creates
// a blank one.
func (t *TravelerState) SetIsPurchaser(value bool) {
	t.IsPurchaserAmongTravelers = value
	if value {
		t.Purchaser = nil
		t.clearLookupError(purchaserKey)
	} else if t.Purchaser == nil {
		p := models.NewPerson()
		t.Purchaser = &p
	}
}

// UpdateTraveler replaces the record at the index, applying the residency
// invariant when the residency changed and clearing that record's lookup
// error banner.
func (t *TravelerState) UpdateTraveler(index int, updated models.Person) bool {
	if index < 0 || index >= len(t.Travelers) {
		return false
	}
	current := t.Travelers[index]
	if current.Residency != updated.Residency {
		residency := updated.Residency
		updated.Residency = current.Residency
		updated.SetResidency(residency)
		t.clearLookupError(travelerKey(index))
	}
	updated.ID = current.ID
	t.Travelers[index] = updated
	return true
}

// UpdatePurchaser mirrors UpdateTraveler for the separate purchaser record.
func (t *TravelerState) UpdatePurchaser(updated models.Person) bool {
	if t.IsPurchaserAmongTravelers || t.Purchaser == nil {
		return false
	}
	current := *t.Purchaser
	if current.Residency != updated.Residency {
		residency := updated.Residency
		updated.Residency = current.Residency
		updated.SetResidency(residency)
		t.clearLookupError(purchaserKey)
	}
	updated.ID = current.ID
	t.Purchaser = &updated
	return true
}

// AddTraveler appends a blank resident record sharing the given id with the
// search-phase traveler it mirrors.
func (t *TravelerState) AddTraveler(id string) {
	t.Travelers = append(t.Travelers, models.Person{
		ID:        id,
		Residency: models.ResidencyResident,
	})
}

// RemoveTraveler drops the record at the index; traveler #1 stays.
func (t *TravelerState) RemoveTraveler(index int) bool {
	if index <= 0 || index >= len(t.Travelers) {
		return false
	}
	t.Travelers = append(t.Travelers[:index], t.Travelers[index+1:]...)
	return true
}

// Blur marks one field of one record as touched, unsuppressing its error.
func (t *TravelerState) Blur(record, field string) {
	if t.Touched == nil {
		t.Touched = map[string]bool{}
	}
	t.Touched[record+"."+field] = true
}

// VisibleErrors filters the validation result down to fields the user has
// blurred, unless ShowAllErrors has revealed everything.
func (t *TravelerState) VisibleErrors(result ValidationResult) map[string]FieldErrors {
	if t.ShowAllErrors {
		return result.Errors
	}
	visible := map[string]FieldErrors{}
	for record, fields := range result.Errors {
		for field, msg := range fields {
			if t.Touched[record+"."+field] {
				if visible[record] == nil {
					visible[record] = FieldErrors{}
				}
				visible[record][field] = msg
			}
		}
	}
	if len(visible) == 0 {
		return nil
	}
	return visible
}

// Validate runs the schema matching the purchaser flag without revealing
// anything.
func (t *TravelerState) Validate(now time.Time) ValidationResult {
	if t.IsPurchaserAmongTravelers {
		return validateWithPurchaserAmongTravelers(t.Travelers, now)
	}
	return validateWithSeparatePurchaser(t.Travelers, t.Purchaser, now)
}

// ValidateAll is the imperative gate the orchestrator calls before leaving
// the step: it reveals all errors and returns the aggregate result.
func (t *TravelerState) ValidateAll(now time.Time) ValidationResult {
	t.ShowAllErrors = true
	return t.Validate(now)
}

// ---------------------------------------------------------------------------
// Passport lookup bookkeeping

// BeginLookup marks one record's lookup as in flight. It fails when another
// lookup for the same record has not finished yet, and checks the local
// preconditions: lookups only apply to residents with a complete series,
// number and birthdate.
func (t *TravelerState) BeginLookup(record string) error {
	person := t.personFor(record)
	if person == nil {
		return fmt.Errorf("unknown record %q", record)
	}
	if !person.IsResident() {
		return fmt.Errorf("lookup is only available for residents")
	}
	if len(person.PassportSeries) < 2 || len(person.PassportNumber) < 7 || len(person.Birthdate) < 10 {
		return fmt.Errorf("series, number and birthdate must be complete before lookup")
	}
	if t.lookupBusy[record] {
		return fmt.Errorf("lookup for %s already in flight", record)
	}
	if t.lookupBusy == nil {
		t.lookupBusy = map[string]bool{}
	}
	t.lookupBusy[record] = true
	t.clearLookupError(record)
	return nil
}

func (t *TravelerState) EndLookup(record string) {
	delete(t.lookupBusy, record)
}

// SetLookupError attaches the scoped "enter correct data" banner to one
// record. Other records stay independently editable.
func (t *TravelerState) SetLookupError(record, message string) {
	if t.LookupErrors == nil {
		t.LookupErrors = map[string]string{}
	}
	t.LookupErrors[record] = message
}

func (t *TravelerState) clearLookupError(record string) {
	delete(t.LookupErrors, record)
}

// ApplyLookup writes a successful lookup response into the record: composed
// full name, resolved name parts, and the derived locality fields.
func (t *TravelerState) ApplyLookup(record string, resp models.LookupResponse) bool {
	person := t.personFor(record)
	if person == nil {
		return false
	}

	firstName := formatters.ResolveName(resp.NameEng, resp.NameUz)
	lastName := formatters.ResolveName(resp.SurnameEng, resp.SurnameUz)

	person.FirstName = firstName
	person.LastName = lastName
	person.FullName = strings.TrimSpace(lastName + " " + firstName)
	person.Pinfl = resp.Pinfl
	person.Country = "UZ"
	person.Address = resp.Address
	person.Region = resp.Region
	person.District = resp.District
	if resp.Gender == 1 {
		person.Gender = "male"
	} else {
		person.Gender = "female"
	}
	return true
}

// LookupRequestFor builds the identity-service request from the record's
// current passport fields.
func (t *TravelerState) LookupRequestFor(record string) (models.LookupRequest, bool) {
	person := t.personFor(record)
	if person == nil {
		return models.LookupRequest{}, false
	}
	return models.LookupRequest{
		Series:   person.PassportSeries,
		Number:   person.PassportNumber,
		Birthday: person.Birthdate,
	}, true
}

func (t *TravelerState) personFor(record string) *models.Person {
	if record == purchaserKey {
		return t.Purchaser
	}
	var index int
	if _, err := fmt.Sscanf(record, "tourist-%d", &index); err != nil {
		return nil
	}
	if index < 0 || index >= len(t.Travelers) {
		return nil
	}
	return &t.Travelers[index]
}
