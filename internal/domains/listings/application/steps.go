package application

import (
	"strings"
	"sync"

	"github.com/Apurer/go-gin-listings-api/internal/domains/listings/domain"
)

// Step names.
const (
	StepBasics     = "basics"
	StepPetDetails = "pet_details"
	StepParents    = "parents"
	StepHealth     = "health"
	StepPhotos     = "photos"
	StepPricing    = "pricing"
	StepReview     = "review"
)

// Step is one phase of the wizard. CanAdvance must be pure.
type Step struct {
	Index      int
	Name       string
	Label      string
	CanAdvance func(domain.Draft) bool
}

func (s Step) allows(d domain.Draft) bool {
	return s.CanAdvance == nil || s.CanAdvance(d)
}

// DefaultSteps returns the listing wizard steps in order. The last step is
// terminal.
func DefaultSteps() []Step {
	steps := []Step{
		{Name: StepBasics, Label: "Basics", CanAdvance: basicsComplete},
		{Name: StepPetDetails, Label: "Pet details", CanAdvance: petDetailsComplete},
		{Name: StepParents, Label: "Parents", CanAdvance: always},
		{Name: StepHealth, Label: "Health", CanAdvance: always},
		{Name: StepPhotos, Label: "Photos", CanAdvance: func(d domain.Draft) bool { return len(d.Photos) > 0 }},
		{Name: StepPricing, Label: "Pricing", CanAdvance: func(d domain.Draft) bool { return d.Price != nil }},
		{Name: StepReview, Label: "Review", CanAdvance: always},
	}
	for i := range steps {
		steps[i].Index = i
	}
	return steps
}

func always(domain.Draft) bool { return true }

func basicsComplete(d domain.Draft) bool {
	return d.Type.Valid() && strings.TrimSpace(d.Title) != ""
}

func petDetailsComplete(d domain.Draft) bool {
	if strings.TrimSpace(d.BreedID) == "" {
		return false
	}
	switch d.Type {
	case domain.TypeLitter:
		return d.BirthDate != nil && d.AvailableDate != nil && d.PuppyCount > 0
	case domain.TypeSinglePet:
		return strings.TrimSpace(d.PetName) != "" &&
			strings.TrimSpace(d.AgeText) != "" &&
			strings.TrimSpace(d.Gender) != ""
	default:
		return false
	}
}

// StepController is a linear state machine over the wizard steps. A failing
// predicate turns Next into a no-op rather than an error.
type StepController struct {
	mu      sync.Mutex
	steps   []Step
	current int
}

// NewStepController starts at index 0. Nil or empty steps fall back to
// DefaultSteps.
func NewStepController(steps []Step) *StepController {
	if len(steps) == 0 {
		steps = DefaultSteps()
	}
	copied := append([]Step{}, steps...)
	for i := range copied {
		copied[i].Index = i
	}
	return &StepController{steps: copied}
}

// Steps returns the configured steps.
func (c *StepController) Steps() []Step {
	return append([]Step{}, c.steps...)
}

// Current returns the active step.
func (c *StepController) Current() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.steps[c.current]
}

// Index returns the active step index.
func (c *StepController) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// IsTerminal reports whether the active step is the last one.
func (c *StepController) IsTerminal() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current == len(c.steps)-1
}

// CanAdvance evaluates the active step's predicate against d.
func (c *StepController) CanAdvance(d domain.Draft) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current < len(c.steps)-1 && c.steps[c.current].allows(d)
}

// Next advances by one step when the predicate holds and reports whether it
// moved.
func (c *StepController) Next(d domain.Draft) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current >= len(c.steps)-1 || !c.steps[c.current].allows(d) {
		return false
	}
	c.current++
	return true
}

// Back moves one step back while not at the first step.
func (c *StepController) Back() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == 0 {
		return false
	}
	c.current--
	return true
}

// Ready reports whether every step predicate holds for d.
func (c *StepController) Ready(d domain.Draft) bool {
	for _, step := range c.steps {
		if !step.allows(d) {
			return false
		}
	}
	return true
}

// Blocking returns the name of the first step whose predicate fails, or "".
func (c *StepController) Blocking(d domain.Draft) string {
	for _, step := range c.steps {
		if !step.allows(d) {
			return step.Name
		}
	}
	return ""
}
