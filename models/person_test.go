package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSetResidency_SameValueKeepsEverything(t *testing.T) {
	p := NewPerson()
	p.FullName = "ABDULLAEV AZIZ"
	p.Pinfl = "30101900000001"

	p.SetResidency(ResidencyResident)

	require.Equal(t, "ABDULLAEV AZIZ", p.FullName)
	require.Equal(t, "30101900000001", p.Pinfl)
}

func TestSetResidency_ToForeignerClearsNamesAndAssignsDefaults(t *testing.T) {
	p := NewPerson()
	p.FullName = "ABDULLAEV AZIZ"
	p.FirstName = "AZIZ"
	p.LastName = "ABDULLAEV"
	p.Pinfl = "30101900000001"
	p.Country = "UZ"
	p.Address = "Tashkent"
	p.Region = 26
	p.District = 2601
	p.Gender = "male"

	p.SetResidency(ResidencyForeigner)

	require.Empty(t, p.FullName)
	require.Empty(t, p.FirstName)
	require.Empty(t, p.LastName)
	require.Equal(t, ForeignerCountry, p.Country)
	require.Equal(t, ForeignerPinfl, p.Pinfl)
	require.Equal(t, ForeignerAddress, p.Address)
	require.Equal(t, ForeignerRegion, p.Region)
	require.Equal(t, ForeignerDistrict, p.District)
	require.Empty(t, p.Gender)
}

func TestSetResidency_RoundTripDoesNotRestoreNames(t *testing.T) {
	p := NewPerson()
	p.FullName = "ABDULLAEV AZIZ"

	p.SetResidency(ResidencyForeigner)
	p.SetResidency(ResidencyResident)

	require.Empty(t, p.FullName)
	require.Empty(t, p.Pinfl)
	require.Empty(t, p.Country)
	require.Zero(t, p.Region)
	require.Zero(t, p.District)
}

func TestSetResidency_KeepsPassportAndBirthdate(t *testing.T) {
	p := NewPerson()
	p.Birthdate = "01.01.1990"
	p.PassportSeries = "AB"
	p.PassportNumber = "1234567"

	p.SetResidency(ResidencyForeigner)

	require.Equal(t, "01.01.1990", p.Birthdate)
	require.Equal(t, "AB", p.PassportSeries)
	require.Equal(t, "1234567", p.PassportNumber)
}

func TestTraveler_SetBirthdate(t *testing.T) {
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	tr := NewTraveler()
	require.NotEmpty(t, tr.ID)

	tr.SetBirthdate("01011990", now)
	require.Equal(t, "01.01.1990", tr.Birthdate)
	require.NotNil(t, tr.Age)
	require.Equal(t, 35, *tr.Age)

	tr.SetBirthdate("0101", now)
	require.Equal(t, "01.01", tr.Birthdate)
	require.Nil(t, tr.Age)
}

func TestNewTraveler_IdsAreUnique(t *testing.T) {
	a, b := NewTraveler(), NewTraveler()
	require.NotEqual(t, a.ID, b.ID)
}
