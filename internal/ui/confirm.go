package ui

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// ErrNotTerminal is returned when a confirmation is needed but stdin is not
// a terminal.
var ErrNotTerminal = errors.New("confirmation required but stdin is not a terminal (pass --yes)")

// ErrDeclined is returned when the user answers no.
var ErrDeclined = errors.New("cancelled")

// Confirmer asks yes/no questions before destructive actions.
type Confirmer struct {
	// Yes skips every prompt.
	Yes bool

	// IsTerminal reports whether prompting is possible. Defaults to checking
	// stdin.
	IsTerminal func() bool

	// Ask shows the prompt. Defaults to a huh confirm form.
	Ask func(title, description string) (bool, error)
}

// Confirm returns nil when the action may proceed.
func (c Confirmer) Confirm(title, description string) error {
	if c.Yes {
		return nil
	}
	isTerm := c.IsTerminal
	if isTerm == nil {
		isTerm = stdinIsTerminal
	}
	if !isTerm() {
		return ErrNotTerminal
	}
	ask := c.Ask
	if ask == nil {
		ask = askHuh
	}
	ok, err := ask(title, description)
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if !ok {
		return ErrDeclined
	}
	return nil
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func askHuh(title, description string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}
