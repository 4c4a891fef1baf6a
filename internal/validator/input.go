package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// spaceRegexp is compiled once at package init and reused across all Sanitize calls.
var spaceRegexp = regexp.MustCompile(`[ \t]+`)

var ErrEmptyTask = errors.New("task is empty")

type InputValidator struct {
	maxLength int
}

func NewInputValidator() *InputValidator {
	return &InputValidator{
		maxLength: 8000,
	}
}

func (v *InputValidator) Validate(task string) error {
	if strings.TrimSpace(task) == "" {
		return ErrEmptyTask
	}

	if len(task) > v.maxLength {
		return fmt.Errorf("task too long: maximum %d characters", v.maxLength)
	}

	if !utf8.ValidString(task) {
		return errors.New("invalid UTF-8 encoding")
	}

	return nil
}

// Sanitize trims the task and collapses runs of blanks. Newlines are kept so
// multi-line tasks survive.
func (v *InputValidator) Sanitize(task string) string {
	task = strings.TrimSpace(task)
	task = spaceRegexp.ReplaceAllString(task, " ")
	return task
}
