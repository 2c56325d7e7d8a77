package commands

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
)

// confirmDelete asks before deleting what. --yes skips the prompt; without
// a terminal --yes is required.
func confirmDelete(what string, yes bool) (bool, error) {
	if yes {
		return true, nil
	}
	if !interactive() {
		return false, fmt.Errorf("refusing to delete %s without --yes", what)
	}
	var ok bool
	err := huh.NewConfirm().
		Title("Delete " + what + "?").
		Affirmative("Delete").
		Negative("Cancel").
		Value(&ok).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}
