package models

// IssuePassport is the passport block inside applicant and insured entries.
// IssuedBy/Issued/ValidTill are always sent empty; the partners fill them in
// from their own registries.
type IssuePassport struct {
	Series    string `json:"series"`
	Number    string `json:"number"`
	IssuedBy  string `json:"issuedBy"`
	Issued    string `json:"issued"`
	ValidTill string `json:"validTill"`
}

// IssueApplicant is the contracting party of a draft-creation request.
type IssueApplicant struct {
	IsResident int           `json:"isResident"`
	Country    string        `json:"country"`
	Fizyur     int           `json:"fizyur"`
	Pinfl      string        `json:"pinfl"`
	Passport   IssuePassport `json:"passport"`
	DateBirth  string        `json:"dateBirth"`
	FirstName  string        `json:"firstName"`
	LastName   string        `json:"lastName"`
	MiddleName string        `json:"middleName"`
	Phone      string        `json:"phone"`
	Address    string        `json:"address"`
	Region     int           `json:"region"`
	District   int           `json:"district"`
	Gender     string        `json:"gender"`
	Email      string        `json:"email"`
}

// IssueInsured is one covered traveler in a draft-creation request.
type IssueInsured struct {
	IsResident int           `json:"isResident"`
	Country    string        `json:"country"`
	Pinfl      string        `json:"pinfl"`
	Passport   IssuePassport `json:"passport"`
	DateBirth  string        `json:"dateBirth"`
	FirstName  string        `json:"firstName"`
	LastName   string        `json:"lastName"`
	MiddleName string        `json:"middleName"`
	Region     int           `json:"region"`
	District   int           `json:"district"`
	Address    string        `json:"address"`
	Phone      string        `json:"phone"`
	Gender     string        `json:"gender"`
	Email      string        `json:"email"`
}

// DraftRequest is the body for POST /policy.
type DraftRequest struct {
	Partner      string         `json:"partner"`
	ActivityId   int            `json:"activityId"`
	Applicant    IssueApplicant `json:"applicant"`
	CountriesIso []string       `json:"countriesIso"`
	DateReg      string         `json:"dateReg"`
	StartDate    string         `json:"startDate"`
	EndDate      string         `json:"endDate"`
	GroupId      int            `json:"groupId"`
	ProgramId    int            `json:"programId"`
	TypeId       int            `json:"typeId"`
	MultiId      int            `json:"multiId"`
	Insured      []IssueInsured `json:"insured"`
}

// PolicyRecord is the draft/policy representation returned by POST /policy
// and GET /policy/{id}. Only the fields the wizard reads are declared.
type PolicyRecord struct {
	Id      int     `json:"id"`
	DateReg string  `json:"dateReg"`
	Amount  *int    `json:"amount"`
	Paid    bool    `json:"paid"`
	Url     *string `json:"url"`
	Issued  bool    `json:"issued"`
}

// IssueByIdRequest is the body for POST /policy/issue.
type IssueByIdRequest struct {
	Partner string `json:"partner"`
	Id      int    `json:"id"`
}

// IssueResultData carries the partner's issuance outcome, including the
// payment links. A partner may support either link or both.
type IssueResultData struct {
	Result        int    `json:"result"`
	ResultMessage string `json:"result_message"`
	ContractId    int    `json:"contract_id"`
	StartDate     string `json:"startdate"`
	EndDate       string `json:"enddate"`
	AmountUzs     int    `json:"stoimost_uzs"`
	ClickLink     string `json:"click_link"`
	PaymeLink     string `json:"payme_link"`
}

// IssueResponse is the envelope of POST /policy/issue. Success false with
// HTTP 200 is a real partner-side failure.
type IssueResponse struct {
	Success bool             `json:"success"`
	Message *string          `json:"message"`
	Data    *IssueResultData `json:"data"`
}

// LookupRequest is the body for POST /info/person on the identity service.
type LookupRequest struct {
	Series   string `json:"series"`
	Number   string `json:"number"`
	Birthday string `json:"birthday"`
}

// LookupResponse is the identity service's answer. Result 0 means found;
// name fields come in Latin (eng) and local (uz) scripts.
type LookupResponse struct {
	Result        int    `json:"result"`
	ResultMessage string `json:"result_message"`
	Pinfl         string `json:"pinfl"`
	Passport      string `json:"passport"`
	SurnameUz     string `json:"surname_uz"`
	NameUz        string `json:"name_uz"`
	MiddlenameUz  string `json:"middlename_uz"`
	SurnameEng    string `json:"surname_eng"`
	NameEng       string `json:"name_eng"`
	Birthday      string `json:"birthday"`
	Gender        int    `json:"gender"`
	Address       string `json:"address"`
	Region        int    `json:"region"`
	District      int    `json:"district"`
}
