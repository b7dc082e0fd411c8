package chatbot

// Step is one stage of the lead-capture conversation.
type Step string

const (
	StepGreeting   Step = "greeting"
	StepName       Step = "name"
	StepEmail      Step = "email"
	StepPhone      Step = "phone"
	StepMessage    Step = "message"
	StepSubmitting Step = "submitting"
	StepComplete   Step = "complete"
)

// next is the forward transition table. The only backwards edge, submitting back to
// message after a failed submission, is taken explicitly by the engine.
var next = map[Step]Step{
	StepGreeting:   StepName,
	StepName:       StepEmail,
	StepEmail:      StepPhone,
	StepPhone:      StepMessage,
	StepMessage:    StepSubmitting,
	StepSubmitting: StepComplete,
}

// Next returns the step that follows s. Complete has no successor.
func (s Step) Next() (Step, bool) {
	n, ok := next[s]
	return n, ok
}

// AcceptsInput reports whether the visitor answers a question at this step.
func (s Step) AcceptsInput() bool {
	switch s {
	case StepName, StepEmail, StepPhone, StepMessage:
		return true
	default:
		return false
	}
}

func (s Step) String() string {
	return string(s)
}
