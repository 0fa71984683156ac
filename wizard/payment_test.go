package wizard

import (
	"testing"

	"go-policy-wizard/models"

	"github.com/stretchr/testify/require"
)

func TestBeginIssue_RejectsDuplicate(t *testing.T) {
	p := NewPaymentState()
	require.NoError(t, p.BeginIssue())
	require.Error(t, p.BeginIssue())
	p.EndIssue()
	require.NoError(t, p.BeginIssue())
}

func TestBeginIssue_ClearsPriorOutcome(t *testing.T) {
	p := NewPaymentState()
	p.Error = MsgIssueFallback
	p.IsSuccess = true
	p.PaymentData = &models.IssueResultData{ContractId: 12}

	require.NoError(t, p.BeginIssue())
	require.Empty(t, p.Error)
	require.False(t, p.IsSuccess)
	require.Nil(t, p.PaymentData)
}

func TestBeginCheck_RequiresPolicyId(t *testing.T) {
	p := NewPaymentState()
	before := p
	require.Error(t, p.BeginCheck())
	require.Equal(t, MsgPolicyIdMissing, p.Error)

	// Nothing but the error message moved.
	p.Error = before.Error
	require.Equal(t, before, p)
}

func TestBeginCheck_RejectsDuplicate(t *testing.T) {
	p := NewPaymentState()
	id := 42
	p.PolicyId = &id
	require.NoError(t, p.BeginCheck())
	require.Error(t, p.BeginCheck())
	p.EndCheck()
	require.NoError(t, p.BeginCheck())
}

func TestApplyPolicyStatus(t *testing.T) {
	url := "https://example.invalid/policy.pdf"

	p := NewPaymentState()
	p.ApplyPolicyStatus(models.PolicyRecord{Paid: true, Url: &url})
	require.True(t, p.IsPaid)
	require.Equal(t, url, p.PolicyUrl)
	require.Empty(t, p.Error)

	p = NewPaymentState()
	p.ApplyPolicyStatus(models.PolicyRecord{Paid: true})
	require.False(t, p.IsPaid)
	require.Equal(t, MsgNotPaidYet, p.Error)

	p = NewPaymentState()
	p.ApplyPolicyStatus(models.PolicyRecord{Paid: false, Url: &url})
	require.False(t, p.IsPaid)
	require.Equal(t, MsgNotPaidYet, p.Error)
}

func draftFixture() (*SearchState, *TravelerState) {
	search := validCriteria()
	search.Offers = []models.Offer{{Partner: "GROSS", ProgramId: 7, Name: "GOLD"}}
	search.SelectOffer("GROSS", 7)

	travelers := NewTravelerState()
	travelers.SyncFromSearch(search.Travelers)
	travelers.Travelers[0].PassportSeries = "AD"
	travelers.Travelers[0].PassportNumber = "1234567"
	travelers.Travelers[0].Pinfl = "30101900000017"
	travelers.Travelers[0].FirstName = "AZIZ"
	travelers.Travelers[0].LastName = "ORTIQOV"
	travelers.Travelers[0].FullName = "ORTIQOV AZIZ"
	travelers.Travelers[0].Country = "UZ"
	travelers.Travelers[0].Phone = "90 123-45-67"
	travelers.Travelers[0].Gender = "male"
	return &search, &travelers
}

func TestBuildDraftRequest_PurchaserAmongTravelers(t *testing.T) {
	search, travelers := draftFixture()

	req, err := BuildDraftRequest(search, travelers, searchNow)
	require.NoError(t, err)

	require.Equal(t, "GROSS", req.Partner)
	require.Equal(t, "01.03.2025", req.DateReg)
	require.Equal(t, []string{"FRA"}, req.CountriesIso)

	// Applicant and the single insured entry are both derived from traveler #1.
	require.Equal(t, "998901234567", req.Applicant.Phone)
	require.Equal(t, 1, req.Applicant.Fizyur)
	require.Equal(t, supportEmail, req.Applicant.Email)
	require.Equal(t, "AD", req.Applicant.Passport.Series)
	require.Equal(t, "1234567", req.Applicant.Passport.Number)

	require.Len(t, req.Insured, 1)
	require.Equal(t, "998901234567", req.Insured[0].Phone)
	require.Equal(t, "ORTIQOV", req.Insured[0].LastName)
	require.Equal(t, supportEmail, req.Insured[0].Email)
}

func TestBuildDraftRequest_SeparatePurchaser(t *testing.T) {
	search, travelers := draftFixture()
	travelers.SetIsPurchaser(false)
	travelers.Purchaser.FirstName = "LOLA"
	travelers.Purchaser.LastName = "KARIMOVA"
	travelers.Purchaser.Phone = "93 765-43-21"
	travelers.Purchaser.Birthdate = "05.05.1985"

	req, err := BuildDraftRequest(search, travelers, searchNow)
	require.NoError(t, err)

	require.Equal(t, "998937654321", req.Applicant.Phone)
	require.Equal(t, "KARIMOVA", req.Applicant.LastName)
	require.Len(t, req.Insured, 1)
	require.Equal(t, "ORTIQOV", req.Insured[0].LastName)
}

func TestBuildDraftRequest_InsuredWithoutPhone(t *testing.T) {
	search, travelers := draftFixture()
	travelers.Travelers[0].Phone = ""
	travelers.SetIsPurchaser(false)
	travelers.Purchaser.Phone = "93 765-43-21"

	req, err := BuildDraftRequest(search, travelers, searchNow)
	require.NoError(t, err)
	require.Empty(t, req.Insured[0].Phone)
}

func TestBuildDraftRequest_CountryFallback(t *testing.T) {
	search, travelers := draftFixture()
	travelers.Travelers[0].Country = ""

	req, err := BuildDraftRequest(search, travelers, searchNow)
	require.NoError(t, err)
	require.Equal(t, "UZ", req.Applicant.Country)

	travelers.Travelers[0].SetResidency(models.ResidencyForeigner)
	travelers.Travelers[0].Country = ""
	req, err = BuildDraftRequest(search, travelers, searchNow)
	require.NoError(t, err)
	require.Equal(t, "RU", req.Insured[0].Country)
}

func TestBuildDraftRequest_RequiresSelectedOffer(t *testing.T) {
	search, travelers := draftFixture()
	search.Partner = ""

	_, err := BuildDraftRequest(search, travelers, searchNow)
	require.Error(t, err)
}
