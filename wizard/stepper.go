package wizard

// Wizard steps.
const (
	StepSelection    = 1
	StepTravelerData = 2
	StepConfirmation = 3
)

// Stepper tracks progression through the three purchase steps. Forward jumps
// unlock monotonically: a step is reachable only once its predecessor has
// been completed, so a restored session can never land past steps it has
// not visited.
type Stepper struct {
	CurrentStep    int   `json:"currentStep"`
	CompletedSteps []int `json:"completedSteps"`
}

func NewStepper() Stepper {
	return Stepper{CurrentStep: StepSelection}
}

func (s *Stepper) IsCompleted(step int) bool {
	for _, done := range s.CompletedSteps {
		if done == step {
			return true
		}
	}
	return false
}

// CanGoToStep reports whether direct navigation to the step is allowed.
func (s *Stepper) CanGoToStep(step int) bool {
	if step == StepSelection {
		return true
	}
	return s.IsCompleted(step - 1)
}

// SetStep honors the request only when the target is unlocked.
func (s *Stepper) SetStep(step int) bool {
	if !s.CanGoToStep(step) {
		return false
	}
	s.CurrentStep = step
	return true
}

// Next advances by exactly one step and marks the current one completed.
func (s *Stepper) Next() {
	s.MarkCompleted(s.CurrentStep)
	s.CurrentStep++
}

func (s *Stepper) Prev() {
	if s.CurrentStep > StepSelection {
		s.CurrentStep--
	}
}

func (s *Stepper) MarkCompleted(step int) {
	if !s.IsCompleted(step) {
		s.CompletedSteps = append(s.CompletedSteps, step)
	}
}

func (s *Stepper) Reset() {
	*s = NewStepper()
}
