package wizard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go-policy-wizard/models"
	"go-policy-wizard/offers"
)

// PartnerAPI is the outbound boundary to the quoting/issuance service.
type PartnerAPI interface {
	SearchQuotes(ctx context.Context, req models.QuoteRequest) ([]models.PartnerResponse, error)
	CreateDraft(ctx context.Context, req models.DraftRequest) (models.PolicyRecord, error)
	IssuePolicy(ctx context.Context, req models.IssueByIdRequest) (models.IssueResponse, error)
	GetPolicy(ctx context.Context, id int) (models.PolicyRecord, error)
}

// IdentityLookup is the outbound boundary to the passport lookup service.
type IdentityLookup interface {
	LookupPassport(ctx context.Context, req models.LookupRequest) (models.LookupResponse, error)
}

// Session bundles the four wizard state containers behind one lock. External
// calls release the lock for the duration of the network round trip and tag
// each attempt, so a response that lost the race to a reset or a newer
// attempt is discarded instead of clobbering fresh state.
type Session struct {
	mu sync.Mutex

	Stepper   Stepper
	Search    SearchState
	Travelers TravelerState
	Payment   PaymentState

	searchAttempt uint64
	issueAttempt  uint64
	checkAttempt  uint64
}

func NewSession() *Session {
	return &Session{
		Stepper:   NewStepper(),
		Search:    NewSearchState(),
		Travelers: NewTravelerState(),
		Payment:   NewPaymentState(),
	}
}

// Snapshot is the persisted subset of a session: search criteria, traveler
// identity records and stepper progress. Offers, loading flags, error
// banners and the whole payment state are deliberately absent.
type Snapshot struct {
	Stepper   Stepper       `json:"stepper"`
	Search    SearchState   `json:"search"`
	Travelers TravelerState `json:"travelers"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Stepper:   s.Stepper,
		Search:    s.Search,
		Travelers: s.Travelers,
	}
}

// Restore rebuilds a session from a persisted snapshot. Ephemeral state
// starts clean, same as a page reload did for the browser stores.
func Restore(snap Snapshot) *Session {
	s := NewSession()
	s.Stepper = snap.Stepper
	if s.Stepper.CurrentStep == 0 {
		s.Stepper = NewStepper()
	}
	s.Search = snap.Search
	s.Search.ShowResults = false
	s.Search.Offers = nil
	s.Search.IsLoading = false
	s.Search.Error = ""
	if len(s.Search.Travelers) == 0 {
		s.Search = NewSearchState()
	}
	s.Travelers = snap.Travelers
	s.Travelers.ShowAllErrors = false
	s.Travelers.Touched = nil
	s.Travelers.LookupErrors = nil
	return s
}

// ResetAll is the logout cascade: every container back to initial state.
func (s *Session) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Stepper.Reset()
	s.Search.Reset()
	s.Travelers.Reset()
	s.Payment.Reset()
	s.searchAttempt++
	s.issueAttempt++
	s.checkAttempt++
}

// ResetPayment discards the issuance attempt, used when the user backs out
// of the confirmation step to edit data.
func (s *Session) ResetPayment() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Payment.Reset()
	s.issueAttempt++
	s.checkAttempt++
}

// ---------------------------------------------------------------------------
// Selection step

// CriteriaUpdate is a partial mutation of the search criteria; nil fields
// are left untouched. Traveler birthdates are keyed by index and masked on
// the way in.
type CriteriaUpdate struct {
	Countries  *[]string      `json:"countries,omitempty"`
	Birthdates map[int]string `json:"birthdates,omitempty"`
	StartDate  *string        `json:"startDate,omitempty"`
	EndDate    *string        `json:"endDate,omitempty"`
	TypeId     *int           `json:"typeId,omitempty"`
	MultiId    *int           `json:"multiId,omitempty"`
	ActivityId *int           `json:"activityId,omitempty"`
	GroupId    *int           `json:"groupId,omitempty"`
	PurposeId  *int           `json:"purposeId,omitempty"`
}

func (s *Session) UpdateCriteria(update CriteriaUpdate, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if update.Countries != nil {
		s.Search.Countries = *update.Countries
	}
	for index, raw := range update.Birthdates {
		if index >= 0 && index < len(s.Search.Travelers) {
			s.Search.Travelers[index].SetBirthdate(raw, now)
		}
	}
	if update.StartDate != nil {
		s.Search.StartDate = *update.StartDate
	}
	if update.EndDate != nil {
		s.Search.EndDate = *update.EndDate
	}
	if update.TypeId != nil {
		s.Search.SetTripType(*update.TypeId)
	}
	if update.MultiId != nil {
		s.Search.MultiId = *update.MultiId
	}
	if update.ActivityId != nil {
		s.Search.ActivityId = *update.ActivityId
	}
	if update.GroupId != nil {
		s.Search.GroupId = *update.GroupId
	}
	if update.PurposeId != nil {
		s.Search.PurposeId = *update.PurposeId
	}
}

// AddTraveler appends a blank traveler to the search phase. The traveler
// data step is re-synced the next time it is entered.
func (s *Session) AddTraveler() (models.Traveler, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Search.Travelers) >= MaxTravelers {
		return models.Traveler{}, false
	}
	return s.Search.AddBlankTraveler(), true
}

// RemoveTraveler drops the traveler from both phases.
func (s *Session) RemoveTraveler(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Search.RemoveTraveler(index) {
		return false
	}
	s.Travelers.RemoveTraveler(index)
	return true
}

// RunSearch validates the criteria and fetches quotes. An empty filtered
// result is a user-visible empty state, a transport failure a retryable
// error; both land in Search.Error and neither is fatal.
func (s *Session) RunSearch(ctx context.Context, api PartnerAPI) {
	s.mu.Lock()
	if msg := s.Search.ValidateCriteria(); msg != "" {
		s.Search.Error = msg
		s.mu.Unlock()
		return
	}

	s.Search.IsLoading = true
	s.Search.Error = ""
	s.Search.ShowResults = true
	s.searchAttempt++
	attempt := s.searchAttempt
	request := s.Search.RequestData()
	typeId := s.Search.TypeId
	s.mu.Unlock()

	responses, err := api.SearchQuotes(ctx, request)

	s.mu.Lock()
	defer s.mu.Unlock()
	if attempt != s.searchAttempt {
		slog.Debug("Discarding stale quote response", "attempt", attempt)
		return
	}
	defer func() { s.Search.IsLoading = false }()

	if err != nil {
		slog.Warn("Quote search failed", "error", err)
		s.Search.Error = MsgSearchFailed
		return
	}

	filtered := offers.FilterByTripType(offers.FromPartnerResponses(responses), typeId)
	if len(filtered) == 0 {
		s.Search.Error = MsgNoOffers
		s.Search.Offers = nil
		return
	}
	s.Search.Offers = filtered
	slog.Info("Quote search completed", "offers", len(filtered))
}

// SelectOffer records the chosen program and completes the selection step.
func (s *Session) SelectOffer(partner string, programId int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Search.SelectOffer(partner, programId)
}

// ---------------------------------------------------------------------------
// Stepper navigation

// NextStep advances the wizard by one step. Leaving the traveler-data step
// forward runs the full validation, revealing all errors; an invalid form
// aborts the transition.
func (s *Session) NextStep(now time.Time) (ValidationResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Stepper.CurrentStep == StepTravelerData {
		result := s.Travelers.ValidateAll(now)
		if !result.Valid {
			return result, false
		}
	}
	if s.Stepper.CurrentStep >= StepConfirmation {
		return ValidationResult{Valid: true}, false
	}
	s.Stepper.Next()
	if s.Stepper.CurrentStep == StepTravelerData {
		s.Travelers.SyncFromSearch(s.Search.Travelers)
	}
	return ValidationResult{Valid: true}, true
}

func (s *Session) PrevStep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Stepper.Prev()
}

// SetStep honors direct navigation only to unlocked steps.
func (s *Session) SetStep(step int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Stepper.SetStep(step) {
		return false
	}
	if step == StepTravelerData {
		s.Travelers.SyncFromSearch(s.Search.Travelers)
	}
	return true
}

// ---------------------------------------------------------------------------
// Traveler data step

func (s *Session) SetIsPurchaser(value bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Travelers.SetIsPurchaser(value)
}

func (s *Session) UpdateTraveler(index int, person models.Person) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Travelers.SyncFromSearch(s.Search.Travelers)
	return s.Travelers.UpdateTraveler(index, person)
}

func (s *Session) UpdatePurchaser(person models.Person) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Travelers.UpdatePurchaser(person)
}

func (s *Session) BlurField(record, field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Travelers.Blur(record, field)
}

// Validate runs the traveler-step schema without revealing suppressed
// errors; the handler pairs it with VisibleErrors for display.
func (s *Session) Validate(now time.Time) (ValidationResult, map[string]FieldErrors) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := s.Travelers.Validate(now)
	return result, s.Travelers.VisibleErrors(result)
}

// LookupPassport resolves one record's identity from the passport service
// and auto-fills it. Failures of any kind surface as a single scoped banner
// on that record; other records stay untouched.
func (s *Session) LookupPassport(ctx context.Context, svc IdentityLookup, record string) error {
	s.mu.Lock()
	s.Travelers.SyncFromSearch(s.Search.Travelers)
	if err := s.Travelers.BeginLookup(record); err != nil {
		s.mu.Unlock()
		return err
	}
	request, _ := s.Travelers.LookupRequestFor(record)
	s.mu.Unlock()

	response, err := svc.LookupPassport(ctx, request)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.Travelers.EndLookup(record)

	if err != nil {
		slog.Warn("Passport lookup failed", "record", record, "error", err)
		s.Travelers.SetLookupError(record, MsgLookupFailed)
		return nil
	}
	if response.Result != 0 {
		slog.Info("Passport lookup returned no match", "record", record, "result", response.Result)
		s.Travelers.SetLookupError(record, MsgLookupFailed)
		return nil
	}
	s.Travelers.ApplyLookup(record, response)
	slog.Info("Passport lookup applied", "record", record)
	return nil
}

// AddTravelerFromConfirmation appends a blank traveler to both phases and
// moves the wizard back to the traveler-data step so the new record can be
// filled in.
func (s *Session) AddTravelerFromConfirmation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Search.Travelers) >= MaxTravelers {
		return false
	}
	traveler := s.Search.AddBlankTraveler()
	s.Travelers.AddTraveler(traveler.ID)
	s.Stepper.SetStep(StepTravelerData)
	return true
}

// ---------------------------------------------------------------------------
// Issuance and payment

// IssuePolicy creates the draft and immediately issues it. A second call
// while one is in flight is rejected. Draft creation captures the policy id
// even when the subsequent issue call fails, so the status poll stays
// possible. A success=false issue response is a hard failure carrying the
// partner's message verbatim.
func (s *Session) IssuePolicy(ctx context.Context, api PartnerAPI, now time.Time) {
	s.mu.Lock()
	request, err := BuildDraftRequest(&s.Search, &s.Travelers, now)
	if err != nil {
		s.Payment.Error = MsgIssueFallback
		s.mu.Unlock()
		return
	}
	if err := s.Payment.BeginIssue(); err != nil {
		slog.Warn("Duplicate issuance attempt ignored", "error", err)
		s.mu.Unlock()
		return
	}
	s.issueAttempt++
	attempt := s.issueAttempt
	partner := request.Partner
	s.mu.Unlock()

	draft, err := api.CreateDraft(ctx, request)
	if err != nil {
		s.finishIssue(attempt, func(p *PaymentState) {
			slog.Error("Draft creation failed", "error", err)
			p.Error = err.Error()
		})
		return
	}

	s.mu.Lock()
	if attempt == s.issueAttempt {
		id := draft.Id
		s.Payment.PolicyId = &id
	}
	s.mu.Unlock()

	issued, err := api.IssuePolicy(ctx, models.IssueByIdRequest{Partner: partner, Id: draft.Id})
	if err != nil {
		s.finishIssue(attempt, func(p *PaymentState) {
			slog.Error("Issue call failed", "policy_id", draft.Id, "error", err)
			p.Error = err.Error()
		})
		return
	}
	if !issued.Success {
		s.finishIssue(attempt, func(p *PaymentState) {
			message := MsgIssueFallback
			if issued.Message != nil && *issued.Message != "" {
				message = *issued.Message
			}
			slog.Warn("Partner rejected issuance", "policy_id", draft.Id, "message", message)
			p.Error = message
		})
		return
	}

	s.finishIssue(attempt, func(p *PaymentState) {
		p.IsSuccess = true
		p.PaymentData = issued.Data
		slog.Info("Policy issued", "policy_id", draft.Id)
	})
}

func (s *Session) finishIssue(attempt uint64, apply func(*PaymentState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if attempt != s.issueAttempt {
		slog.Debug("Discarding stale issuance outcome", "attempt", attempt)
		return
	}
	apply(&s.Payment)
	s.Payment.EndIssue()
}

// CheckPayment is the user-initiated status poll. "Not yet paid" is an
// expected transient message, not a failure.
func (s *Session) CheckPayment(ctx context.Context, api PartnerAPI) {
	s.mu.Lock()
	if err := s.Payment.BeginCheck(); err != nil {
		s.mu.Unlock()
		return
	}
	s.checkAttempt++
	attempt := s.checkAttempt
	policyId := *s.Payment.PolicyId
	s.mu.Unlock()

	record, err := api.GetPolicy(ctx, policyId)

	s.mu.Lock()
	defer s.mu.Unlock()
	if attempt != s.checkAttempt {
		slog.Debug("Discarding stale payment status", "attempt", attempt)
		return
	}
	defer s.Payment.EndCheck()

	if err != nil {
		slog.Warn("Payment status poll failed", "policy_id", policyId, "error", err)
		s.Payment.Error = err.Error()
		return
	}
	s.Payment.ApplyPolicyStatus(record)
}
