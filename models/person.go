package models

import (
	"time"

	"go-policy-wizard/formatters"

	"github.com/google/uuid"
)

// Residency selects between the two identity value spaces. Residents are
// identified via the passport lookup service, foreigners type everything in
// by hand.
const (
	ResidencyForeigner = 0
	ResidencyResident  = 1
)

// Placeholder locality fields assigned to foreigners. The lookup service
// only covers residents, and the partner APIs reject empty values here.
const (
	ForeignerCountry  = "RU"
	ForeignerPinfl    = "12345678901234"
	ForeignerAddress  = "World"
	ForeignerRegion   = 10
	ForeignerDistrict = 1003
)

// Person is the shared identity record for travelers and the purchaser.
// FullName is only ever written by the passport lookup; FirstName/LastName
// are user-entered for foreigners and lookup-derived for residents.
type Person struct {
	ID             string `json:"id"`
	Residency      int    `json:"residency"`
	Birthdate      string `json:"birthdate"`
	PassportSeries string `json:"passportSeries"`
	PassportNumber string `json:"passportNumber"`
	FullName       string `json:"fullName,omitempty"`
	LastName       string `json:"lastName,omitempty"`
	FirstName      string `json:"firstName,omitempty"`
	Phone          string `json:"phone,omitempty"`

	// Lookup-derived; absent until a successful passport lookup, or fixed
	// placeholders for foreigners.
	Pinfl    string `json:"pinfl,omitempty"`
	Country  string `json:"country,omitempty"`
	Address  string `json:"address,omitempty"`
	Region   int    `json:"region,omitempty"`
	District int    `json:"district,omitempty"`
	Gender   string `json:"gender,omitempty"`
}

// NewPerson returns a blank resident record.
func NewPerson() Person {
	return Person{
		ID:        uuid.NewString(),
		Residency: ResidencyResident,
	}
}

// SetResidency switches the record between the resident and foreigner value
// spaces. The two are not interchangeable, so any change clears all identity
// fields and resets the lookup-derived ones to the defaults appropriate for
// the new residency. Setting the same residency again is a no-op.
func (p *Person) SetResidency(residency int) {
	if residency == p.Residency {
		return
	}
	p.Residency = residency
	p.FullName = ""
	p.FirstName = ""
	p.LastName = ""

	if residency == ResidencyForeigner {
		p.Country = ForeignerCountry
		p.Pinfl = ForeignerPinfl
		p.Address = ForeignerAddress
		p.Region = ForeignerRegion
		p.District = ForeignerDistrict
		p.Gender = ""
	} else {
		p.Country = ""
		p.Pinfl = ""
		p.Address = ""
		p.Region = 0
		p.District = 0
		p.Gender = ""
	}
}

func (p *Person) IsResident() bool {
	return p.Residency == ResidencyResident
}

// Traveler is the lightweight search-phase record. Age is derived and nil
// while the birthdate is incomplete or implausible.
type Traveler struct {
	ID        string `json:"id"`
	Birthdate string `json:"birthdate"`
	Age       *int   `json:"age"`
}

// NewTraveler returns a blank traveler with a fresh stable id.
func NewTraveler() Traveler {
	return Traveler{ID: uuid.NewString()}
}

// SetBirthdate stores the masked birthdate and recomputes the derived age.
func (t *Traveler) SetBirthdate(raw string, now time.Time) {
	t.Birthdate = formatters.FormatDate(raw)
	if age, ok := formatters.CalculateAge(t.Birthdate, now); ok {
		t.Age = &age
	} else {
		t.Age = nil
	}
}
