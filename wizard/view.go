package wizard

import (
	"time"

	"go-policy-wizard/models"
)

// View is the full wizard state as handed to API consumers, including the
// ephemeral flags the persistence layer strips.
type View struct {
	Stepper Stepper `json:"stepper"`

	Search      SearchState    `json:"search"`
	Offers      []models.Offer `json:"offers,omitempty"`
	ShowResults bool           `json:"showResults"`
	IsSearching bool           `json:"isSearching"`
	SearchError string         `json:"searchError,omitempty"`

	Travelers     TravelerState          `json:"travelers"`
	LookupErrors  map[string]string      `json:"lookupErrors,omitempty"`
	VisibleErrors map[string]FieldErrors `json:"fieldErrors,omitempty"`
	FormValid     bool                   `json:"formValid"`

	Payment PaymentState `json:"payment"`
}

// View assembles a consistent read of every container under the lock.
func (s *Session) View(now time.Time) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.Travelers.Validate(now)
	return View{
		Stepper:       s.Stepper,
		Search:        s.Search,
		Offers:        s.Search.Offers,
		ShowResults:   s.Search.ShowResults,
		IsSearching:   s.Search.IsLoading,
		SearchError:   s.Search.Error,
		Travelers:     s.Travelers,
		LookupErrors:  s.Travelers.LookupErrors,
		VisibleErrors: s.Travelers.VisibleErrors(result),
		FormValid:     result.Valid,
		Payment:       s.Payment,
	}
}
