// Package decision gates the actions a scan proposes.
//
// The scan core only proposes: duplicate groups, watched matches, parameter
// adoption. A Decider turns each proposal into a yes or no, either by asking
// the operator or by policy when running unattended.
package decision

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
)

// Decider answers yes/no proposals. defaultYes selects the answer taken on a
// bare enter.
type Decider interface {
	Confirm(label string, defaultYes bool) (bool, error)
}

// Auto answers every proposal with a fixed policy and never blocks. Used for
// --yes runs and anywhere without a terminal.
type Auto struct {
	// Answer is returned for every proposal.
	Answer bool
}

func (a Auto) Confirm(string, bool) (bool, error) {
	return a.Answer, nil
}

// Prompt asks the operator on the terminal.
type Prompt struct{}

func (Prompt) Confirm(label string, defaultYes bool) (bool, error) {
	def := "n"
	if defaultYes {
		def = "y"
	}
	p := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Default:   def,
	}
	_, err := p.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return false, fmt.Errorf("prompt cancelled: %w", err)
		}
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return true, nil
}
