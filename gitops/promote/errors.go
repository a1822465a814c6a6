package promote

import "fmt"

// Step names the stage of a content operation.
type Step string

const (
	StepResolveBase Step = "resolving base branch"
	StepBranch      Step = "creating branch"
	StepProbe       Step = "probing existing file"
	StepWrite       Step = "writing file"
	StepPullRequest Step = "creating pull request"
	StepRead        Step = "reading file"
	StepStatus      Step = "checking pull request"
)

// StepError reports which stage of a multi-step
// content operation failed. Earlier stages may have
// already taken effect: a branch can exist without its
// pull request when the final step fails.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
