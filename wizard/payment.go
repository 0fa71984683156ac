package wizard

import (
	"fmt"
	"time"

	"go-policy-wizard/formatters"
	"go-policy-wizard/models"
)

const supportEmail = "support@sugurtatrip.uz"

// PaymentState is the issuance/payment side of the wizard:
// idle -> issuing -> issued (awaiting payment) or failed -> checking ->
// paid or back to issued. Nothing here is persisted; every issuance attempt
// starts fresh.
type PaymentState struct {
	IsLoading   bool                    `json:"isLoading"`
	IsChecking  bool                    `json:"isChecking"`
	Error       string                  `json:"error,omitempty"`
	IsSuccess   bool                    `json:"isSuccess"`
	IsPaid      bool                    `json:"isPaid"`
	PolicyId    *int                    `json:"policyId,omitempty"`
	PolicyUrl   string                  `json:"policyUrl,omitempty"`
	PaymentData *models.IssueResultData `json:"paymentData,omitempty"`
}

func NewPaymentState() PaymentState {
	return PaymentState{}
}

// Reset returns to idle, discarding the policy id, links and paid state.
func (p *PaymentState) Reset() {
	*p = NewPaymentState()
}

// BeginIssue guards against a concurrent duplicate draft creation: a second
// invocation while one is in flight is rejected, never queued. On success
// the prior attempt's outcome fields are cleared.
func (p *PaymentState) BeginIssue() error {
	if p.IsLoading {
		return fmt.Errorf("issuance already in flight")
	}
	p.IsLoading = true
	p.Error = ""
	p.IsSuccess = false
	p.PaymentData = nil
	return nil
}

func (p *PaymentState) EndIssue() {
	p.IsLoading = false
}

// BeginCheck guards the status poll. It requires a previously captured
// policy id; without one the state is left unchanged except for the error.
func (p *PaymentState) BeginCheck() error {
	if p.PolicyId == nil {
		p.Error = MsgPolicyIdMissing
		return fmt.Errorf("no policy id captured")
	}
	if p.IsChecking {
		return fmt.Errorf("payment check already in flight")
	}
	p.IsChecking = true
	p.Error = ""
	return nil
}

func (p *PaymentState) EndCheck() {
	p.IsChecking = false
}

// ApplyPolicyStatus consumes a status-poll response. Paid with a document
// url is the terminal state; anything else stays in awaiting-payment with
// the transient retry message.
func (p *PaymentState) ApplyPolicyStatus(record models.PolicyRecord) {
	if record.Paid && record.Url != nil && *record.Url != "" {
		p.IsPaid = true
		p.PolicyUrl = *record.Url
	} else {
		p.Error = MsgNotPaidYet
	}
}

// ---------------------------------------------------------------------------
// Draft request assembly

// purchaserPerson resolves the purchaser-role person: traveler #1 when the
// flag says the purchaser travels, the separate record otherwise (falling
// back to traveler #1 if it is somehow missing).
func purchaserPerson(travelers *TravelerState) (models.Person, error) {
	if len(travelers.Travelers) == 0 {
		return models.Person{}, fmt.Errorf("no travelers captured")
	}
	if travelers.IsPurchaserAmongTravelers || travelers.Purchaser == nil {
		return travelers.Travelers[0], nil
	}
	return *travelers.Purchaser, nil
}

func fallbackCountry(p models.Person) string {
	if p.Country != "" {
		return p.Country
	}
	if p.IsResident() {
		return "UZ"
	}
	return "RU"
}

func buildApplicant(p models.Person, phone string) models.IssueApplicant {
	return models.IssueApplicant{
		IsResident: p.Residency,
		Country:    fallbackCountry(p),
		Fizyur:     1,
		Pinfl:      p.Pinfl,
		Passport: models.IssuePassport{
			Series: p.PassportSeries,
			Number: p.PassportNumber,
		},
		DateBirth: p.Birthdate,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Phone:     phone,
		Address:   p.Address,
		Region:    p.Region,
		District:  p.District,
		Gender:    p.Gender,
		Email:     supportEmail,
	}
}

func buildInsured(p models.Person) models.IssueInsured {
	phone := ""
	if p.Phone != "" {
		phone = formatters.NormalizePhone(p.Phone)
	}
	return models.IssueInsured{
		IsResident: p.Residency,
		Country:    fallbackCountry(p),
		Pinfl:      p.Pinfl,
		Passport: models.IssuePassport{
			Series: p.PassportSeries,
			Number: p.PassportNumber,
		},
		DateBirth: p.Birthdate,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Region:    p.Region,
		District:  p.District,
		Address:   p.Address,
		Phone:     phone,
		Gender:    p.Gender,
		Email:     supportEmail,
	}
}

// BuildDraftRequest assembles the draft-creation body from the two state
// containers: one applicant for the purchaser-role person, one insured entry
// per traveler, phones in fully qualified 998-prefixed form, registration
// date set to today.
func BuildDraftRequest(search *SearchState, travelers *TravelerState, now time.Time) (models.DraftRequest, error) {
	if search.Partner == "" {
		return models.DraftRequest{}, fmt.Errorf("no offer selected")
	}

	applicantPerson, err := purchaserPerson(travelers)
	if err != nil {
		return models.DraftRequest{}, err
	}
	phone := formatters.NormalizePhone(applicantPerson.Phone)

	insured := make([]models.IssueInsured, len(travelers.Travelers))
	for i, traveler := range travelers.Travelers {
		insured[i] = buildInsured(traveler)
	}

	return models.DraftRequest{
		Partner:      search.Partner,
		ActivityId:   search.ActivityId,
		Applicant:    buildApplicant(applicantPerson, phone),
		CountriesIso: search.CountriesIso(),
		DateReg:      now.Format(tripDateLayout),
		StartDate:    search.StartDate,
		EndDate:      search.EndDate,
		GroupId:      search.GroupId,
		ProgramId:    search.ProgramId,
		TypeId:       search.TypeId,
		MultiId:      search.MultiId,
		Insured:      insured,
	}, nil
}
