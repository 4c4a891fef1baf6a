package agent

import "strings"

// Judge decides whether a final answer ends the run.
type Judge interface {
	Complete(text string) bool
}

// JudgeFunc adapts a function to Judge.
type JudgeFunc func(text string) bool

func (f JudgeFunc) Complete(text string) bool { return f(text) }

// PhraseJudge accepts an answer that contains a completion phrase, a
// clarifying-question phrase or a literal '?'. It is a heuristic: "done" in
// "not done yet" counts as complete, and a finished answer that avoids every
// phrase does not.
type PhraseJudge struct {
	Completion []string
	Questions  []string
}

// DefaultJudge returns the PhraseJudge used when none is configured.
func DefaultJudge() PhraseJudge {
	return PhraseJudge{
		Completion: []string{
			"task completed",
			"task complete",
			"finished",
			"done",
			"final result",
			"final answer",
			"analysis complete",
			"completed successfully",
		},
		Questions: []string{
			"what would you like",
			"is there anything else",
			"would you like me to",
			"do you want me to",
			"let me know if",
		},
	}
}

func (j PhraseJudge) Complete(text string) bool {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "?") {
		return true
	}
	for _, phrase := range j.Completion {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	for _, phrase := range j.Questions {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
