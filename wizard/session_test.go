package wizard

import (
	"context"
	"fmt"
	"testing"

	"go-policy-wizard/models"

	"github.com/stretchr/testify/require"
)

// fakePartnerAPI scripts the quoting/issuance service for orchestrator tests.
type fakePartnerAPI struct {
	quotes    []models.PartnerResponse
	quotesErr error

	draft    models.PolicyRecord
	draftErr error

	issued    models.IssueResponse
	issuedErr error

	policy    models.PolicyRecord
	policyErr error

	quoteRequests []models.QuoteRequest
	draftRequests []models.DraftRequest
	issueRequests []models.IssueByIdRequest
}

func (f *fakePartnerAPI) SearchQuotes(ctx context.Context, req models.QuoteRequest) ([]models.PartnerResponse, error) {
	f.quoteRequests = append(f.quoteRequests, req)
	return f.quotes, f.quotesErr
}

func (f *fakePartnerAPI) CreateDraft(ctx context.Context, req models.DraftRequest) (models.PolicyRecord, error) {
	f.draftRequests = append(f.draftRequests, req)
	return f.draft, f.draftErr
}

func (f *fakePartnerAPI) IssuePolicy(ctx context.Context, req models.IssueByIdRequest) (models.IssueResponse, error) {
	f.issueRequests = append(f.issueRequests, req)
	return f.issued, f.issuedErr
}

func (f *fakePartnerAPI) GetPolicy(ctx context.Context, id int) (models.PolicyRecord, error) {
	return f.policy, f.policyErr
}

type fakeIdentityLookup struct {
	response models.LookupResponse
	err      error
	requests []models.LookupRequest
}

func (f *fakeIdentityLookup) LookupPassport(ctx context.Context, req models.LookupRequest) (models.LookupResponse, error) {
	f.requests = append(f.requests, req)
	return f.response, f.err
}

func grossQuotes() []models.PartnerResponse {
	return []models.PartnerResponse{
		{Partner: "gross", Result: []models.PartnerProgram{
			{ProgramId: 7, ProgramName: "GOLD", PremUzs: "120 000,50", Coverage: "30000"},
			{ProgramId: 8, ProgramName: "SILVER", PremUzs: "90 000", Coverage: "15000"},
		}},
	}
}

func sessionWithCriteria() *Session {
	s := NewSession()
	s.Search = validCriteria()
	return s
}

func TestRunSearch_InvalidCriteria(t *testing.T) {
	s := NewSession()
	api := &fakePartnerAPI{}
	s.RunSearch(context.Background(), api)
	require.Equal(t, MsgSelectCountry, s.Search.Error)
	require.Empty(t, api.quoteRequests, "no network call on invalid criteria")
}

func TestRunSearch_Success(t *testing.T) {
	s := sessionWithCriteria()
	api := &fakePartnerAPI{quotes: grossQuotes()}

	s.RunSearch(context.Background(), api)

	require.Empty(t, s.Search.Error)
	require.False(t, s.Search.IsLoading)
	require.True(t, s.Search.ShowResults)
	require.Len(t, s.Search.Offers, 2)
	require.Equal(t, "GROSS", s.Search.Offers[0].Partner)
	require.Equal(t, "GOLD", s.Search.Offers[0].Name)
	require.True(t, s.Search.Offers[0].IsBestseller)
}

func TestRunSearch_TransportError(t *testing.T) {
	s := sessionWithCriteria()
	api := &fakePartnerAPI{quotesErr: fmt.Errorf("connection refused")}

	s.RunSearch(context.Background(), api)

	require.Equal(t, MsgSearchFailed, s.Search.Error)
	require.False(t, s.Search.IsLoading)
	require.Empty(t, s.Search.Offers)
}

func TestRunSearch_EmptyState(t *testing.T) {
	s := sessionWithCriteria()
	s.Search.SetTripType(models.TripTypeMultiple)
	api := &fakePartnerAPI{quotes: grossQuotes()}

	// GROSS is not the multi-trip partner, so the filter leaves nothing.
	s.RunSearch(context.Background(), api)

	require.Equal(t, MsgNoOffers, s.Search.Error)
	require.Empty(t, s.Search.Offers)
}

func TestRunSearch_StaleResponseDiscarded(t *testing.T) {
	s := sessionWithCriteria()
	api := &fakePartnerAPI{quotes: grossQuotes()}
	wrapped := &resettingAPI{inner: api, session: s}

	s.RunSearch(context.Background(), wrapped)

	// The reset raced the response; the stale offers must not be applied.
	require.Empty(t, s.Search.Offers)
	require.Empty(t, s.Search.Error)
	require.False(t, s.Search.ShowResults)
}

// resettingAPI resets the session between the request snapshot and the
// response delivery, simulating a logout racing a slow quote call.
type resettingAPI struct {
	inner   *fakePartnerAPI
	session *Session
	done    bool
}

func (r *resettingAPI) SearchQuotes(ctx context.Context, req models.QuoteRequest) ([]models.PartnerResponse, error) {
	resp, err := r.inner.SearchQuotes(ctx, req)
	if !r.done {
		r.done = true
		r.session.ResetAll()
	}
	return resp, err
}

func (r *resettingAPI) CreateDraft(ctx context.Context, req models.DraftRequest) (models.PolicyRecord, error) {
	return r.inner.CreateDraft(ctx, req)
}

func (r *resettingAPI) IssuePolicy(ctx context.Context, req models.IssueByIdRequest) (models.IssueResponse, error) {
	return r.inner.IssuePolicy(ctx, req)
}

func (r *resettingAPI) GetPolicy(ctx context.Context, id int) (models.PolicyRecord, error) {
	return r.inner.GetPolicy(ctx, id)
}

func TestNextStep_GatesTravelerData(t *testing.T) {
	s := sessionWithCriteria()

	_, ok := s.NextStep(searchNow)
	require.True(t, ok)
	require.Equal(t, StepTravelerData, s.Stepper.CurrentStep)
	require.Len(t, s.Travelers.Travelers, 1, "records synced on entry")

	// The blank record cannot pass validation, so the step is locked.
	result, ok := s.NextStep(searchNow)
	require.False(t, ok)
	require.False(t, result.Valid)
	require.Equal(t, StepTravelerData, s.Stepper.CurrentStep)
	require.True(t, s.Travelers.ShowAllErrors)
}

func completedTravelerSession() *Session {
	s := sessionWithCriteria()
	s.Search.Offers = []models.Offer{{Partner: "GROSS", ProgramId: 7, Name: "GOLD"}}
	s.Search.SelectOffer("GROSS", 7)
	s.NextStep(searchNow)
	s.UpdateTraveler(0, models.Person{
		Residency:      models.ResidencyResident,
		Birthdate:      "01.01.1990",
		PassportSeries: "AD",
		PassportNumber: "1234567",
		FirstName:      "AZIZ",
		LastName:       "ORTIQOV",
		FullName:       "ORTIQOV AZIZ",
		Phone:          "90 123-45-67",
	})
	return s
}

func TestNextStep_AdvancesWhenValid(t *testing.T) {
	s := completedTravelerSession()

	result, ok := s.NextStep(searchNow)
	require.True(t, ok)
	require.True(t, result.Valid)
	require.Equal(t, StepConfirmation, s.Stepper.CurrentStep)

	// Confirmation is the last step.
	_, ok = s.NextStep(searchNow)
	require.False(t, ok)
	require.Equal(t, StepConfirmation, s.Stepper.CurrentStep)
}

func TestSetStep_HonorsUnlockedStepsOnly(t *testing.T) {
	s := sessionWithCriteria()
	require.False(t, s.SetStep(StepConfirmation))
	require.True(t, s.SetStep(StepSelection))

	s = completedTravelerSession()
	s.NextStep(searchNow)
	require.True(t, s.SetStep(StepSelection))
	require.True(t, s.SetStep(StepConfirmation))
}

func TestLookupPassport_AppliesResponse(t *testing.T) {
	s := completedTravelerSession()
	svc := &fakeIdentityLookup{response: models.LookupResponse{
		Result:     0,
		Pinfl:      "30101900000017",
		SurnameEng: "ORTIQOV",
		NameUz:     "АЗИЗ",
		NameEng:    "AZIZ",
		Gender:     1,
		Address:    "Tashkent",
		Region:     10,
		District:   1003,
	}}

	require.NoError(t, s.LookupPassport(context.Background(), svc, "tourist-0"))

	require.Len(t, svc.requests, 1)
	require.Equal(t, "AD", svc.requests[0].Series)

	person := s.Travelers.Travelers[0]
	require.Equal(t, "AZIZ", person.FirstName)
	require.Equal(t, "ORTIQOV AZIZ", person.FullName)
	require.Equal(t, "male", person.Gender)
	require.Equal(t, "UZ", person.Country)
	require.Empty(t, s.Travelers.LookupErrors)
}

func TestLookupPassport_NoMatchSetsScopedBanner(t *testing.T) {
	s := completedTravelerSession()
	svc := &fakeIdentityLookup{response: models.LookupResponse{Result: 1}}

	require.NoError(t, s.LookupPassport(context.Background(), svc, "tourist-0"))
	require.Equal(t, MsgLookupFailed, s.Travelers.LookupErrors["tourist-0"])
}

func TestLookupPassport_TransportErrorSetsScopedBanner(t *testing.T) {
	s := completedTravelerSession()
	svc := &fakeIdentityLookup{err: fmt.Errorf("timeout")}

	require.NoError(t, s.LookupPassport(context.Background(), svc, "tourist-0"))
	require.Equal(t, MsgLookupFailed, s.Travelers.LookupErrors["tourist-0"])
}

func TestLookupPassport_PreconditionsStopTheCall(t *testing.T) {
	s := sessionWithCriteria()
	s.NextStep(searchNow)
	svc := &fakeIdentityLookup{}

	require.Error(t, s.LookupPassport(context.Background(), svc, "tourist-0"))
	require.Empty(t, svc.requests)
}

func TestAddTravelerFromConfirmation(t *testing.T) {
	s := completedTravelerSession()
	s.NextStep(searchNow)
	require.Equal(t, StepConfirmation, s.Stepper.CurrentStep)

	require.True(t, s.AddTravelerFromConfirmation())
	require.Equal(t, StepTravelerData, s.Stepper.CurrentStep)
	require.Len(t, s.Search.Travelers, 2)
	require.Len(t, s.Travelers.Travelers, 2)
	require.Equal(t, s.Search.Travelers[1].ID, s.Travelers.Travelers[1].ID)
}

func TestAddTraveler_Capped(t *testing.T) {
	s := sessionWithCriteria()
	for len(s.Search.Travelers) < MaxTravelers {
		_, ok := s.AddTraveler()
		require.True(t, ok)
	}
	_, ok := s.AddTraveler()
	require.False(t, ok)
}

func TestIssuePolicy_Success(t *testing.T) {
	s := completedTravelerSession()
	api := &fakePartnerAPI{
		draft: models.PolicyRecord{Id: 555},
		issued: models.IssueResponse{Success: true, Data: &models.IssueResultData{
			ContractId: 555,
			AmountUzs:  250000,
			ClickLink:  "https://pay.example/click",
		}},
	}

	s.IssuePolicy(context.Background(), api, searchNow)

	require.False(t, s.Payment.IsLoading)
	require.True(t, s.Payment.IsSuccess)
	require.Empty(t, s.Payment.Error)
	require.NotNil(t, s.Payment.PolicyId)
	require.Equal(t, 555, *s.Payment.PolicyId)
	require.Equal(t, 250000, s.Payment.PaymentData.AmountUzs)

	require.Len(t, api.draftRequests, 1)
	require.Equal(t, "998901234567", api.draftRequests[0].Applicant.Phone)
	require.Len(t, api.issueRequests, 1)
	require.Equal(t, models.IssueByIdRequest{Partner: "GROSS", Id: 555}, api.issueRequests[0])
}

func TestIssuePolicy_PartnerReject(t *testing.T) {
	message := "Полис уже оформлен"
	s := completedTravelerSession()
	api := &fakePartnerAPI{
		draft:  models.PolicyRecord{Id: 556},
		issued: models.IssueResponse{Success: false, Message: &message},
	}

	s.IssuePolicy(context.Background(), api, searchNow)

	require.False(t, s.Payment.IsSuccess)
	require.Equal(t, message, s.Payment.Error)
	// The draft id is still captured so the status poll can run.
	require.NotNil(t, s.Payment.PolicyId)
	require.Equal(t, 556, *s.Payment.PolicyId)
}

func TestIssuePolicy_PartnerRejectWithoutMessage(t *testing.T) {
	s := completedTravelerSession()
	api := &fakePartnerAPI{
		draft:  models.PolicyRecord{Id: 557},
		issued: models.IssueResponse{Success: false},
	}

	s.IssuePolicy(context.Background(), api, searchNow)
	require.Equal(t, MsgIssueFallback, s.Payment.Error)
}

func TestIssuePolicy_DraftFailure(t *testing.T) {
	s := completedTravelerSession()
	api := &fakePartnerAPI{draftErr: fmt.Errorf("Партнер недоступен")}

	s.IssuePolicy(context.Background(), api, searchNow)

	require.Equal(t, "Партнер недоступен", s.Payment.Error)
	require.Nil(t, s.Payment.PolicyId)
	require.Empty(t, api.issueRequests)
	require.False(t, s.Payment.IsLoading)
}

func TestIssuePolicy_WithoutSelectedOffer(t *testing.T) {
	s := sessionWithCriteria()
	api := &fakePartnerAPI{}

	s.IssuePolicy(context.Background(), api, searchNow)

	require.Equal(t, MsgIssueFallback, s.Payment.Error)
	require.Empty(t, api.draftRequests)
}

func TestCheckPayment_WithoutPolicyId(t *testing.T) {
	s := completedTravelerSession()
	api := &fakePartnerAPI{}

	s.CheckPayment(context.Background(), api)

	require.Equal(t, MsgPolicyIdMissing, s.Payment.Error)
	require.False(t, s.Payment.IsChecking)
	require.False(t, s.Payment.IsPaid)
}

func TestCheckPayment_Paid(t *testing.T) {
	url := "https://example.invalid/policy.pdf"
	s := completedTravelerSession()
	id := 555
	s.Payment.PolicyId = &id
	api := &fakePartnerAPI{policy: models.PolicyRecord{Id: 555, Paid: true, Url: &url}}

	s.CheckPayment(context.Background(), api)

	require.True(t, s.Payment.IsPaid)
	require.Equal(t, url, s.Payment.PolicyUrl)
	require.False(t, s.Payment.IsChecking)
}

func TestCheckPayment_NotYetPaid(t *testing.T) {
	s := completedTravelerSession()
	id := 555
	s.Payment.PolicyId = &id
	api := &fakePartnerAPI{policy: models.PolicyRecord{Id: 555, Paid: false}}

	s.CheckPayment(context.Background(), api)

	require.False(t, s.Payment.IsPaid)
	require.Equal(t, MsgNotPaidYet, s.Payment.Error)
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	s := completedTravelerSession()
	s.Search.Offers = []models.Offer{{Partner: "GROSS", ProgramId: 7}}
	s.Search.Error = "stale banner"
	s.Travelers.ShowAllErrors = true
	id := 555
	s.Payment.PolicyId = &id

	restored := Restore(s.Snapshot())

	require.Equal(t, s.Search.Countries, restored.Search.Countries)
	require.Equal(t, s.Search.Partner, restored.Search.Partner)
	require.Equal(t, s.Stepper.CurrentStep, restored.Stepper.CurrentStep)
	require.Equal(t, "ORTIQOV AZIZ", restored.Travelers.Travelers[0].FullName)

	// Ephemeral and payment state never survive.
	require.Empty(t, restored.Search.Offers)
	require.Empty(t, restored.Search.Error)
	require.False(t, restored.Travelers.ShowAllErrors)
	require.Nil(t, restored.Payment.PolicyId)
}

func TestRestore_ZeroValueSnapshot(t *testing.T) {
	restored := Restore(Snapshot{})
	require.Equal(t, StepSelection, restored.Stepper.CurrentStep)
	require.Len(t, restored.Search.Travelers, 1)
}

func TestResetAll_Cascade(t *testing.T) {
	s := completedTravelerSession()
	id := 555
	s.Payment.PolicyId = &id
	s.Payment.IsPaid = true

	s.ResetAll()

	require.Equal(t, StepSelection, s.Stepper.CurrentStep)
	require.Empty(t, s.Search.Countries)
	require.Empty(t, s.Travelers.Travelers)
	require.Nil(t, s.Payment.PolicyId)
	require.False(t, s.Payment.IsPaid)
}

func TestRemoveTraveler_BothPhases(t *testing.T) {
	s := sessionWithCriteria()
	s.AddTraveler()
	s.NextStep(searchNow)
	require.Len(t, s.Travelers.Travelers, 2)

	require.True(t, s.RemoveTraveler(1))
	require.Len(t, s.Search.Travelers, 1)
	require.Len(t, s.Travelers.Travelers, 1)
	require.False(t, s.RemoveTraveler(0))
}
