// Package intent classifies free-text human feedback into the small set of
// control actions the workflow engine understands.
//
// Classification is a bounded keyword heuristic, not natural-language
// understanding. Every function is pure, never errors, and returns false on
// input it does not recognize; the engine's control logic stays deterministic
// regardless of wording or locale changes. The lexicon covers English and
// Korean, plus the numeric shorthands "1"/"2"/"3" used as positional menu
// selections.
//
// Literals like "1" are reused across menus. That is not ambiguous in
// practice because classification is context-dependent on the stage that
// asked the question: each stage handler only consults the predicate for the
// menu it just presented.
package intent

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// Decision is the bounded verdict for review-stage feedback.
type Decision int

const (
	// DecisionUnknown means none of the review options were recognized.
	// The engine stays in review and re-prompts rather than guessing.
	DecisionUnknown Decision = iota

	// DecisionComplete accepts the results and closes the workflow.
	DecisionComplete

	// DecisionAdditionalWork loops back to execution for refinement.
	DecisionAdditionalWork

	// DecisionNewRequest discards the workflow and starts over with the
	// feedback text as the new request.
	DecisionNewRequest
)

// String returns the decision name used in logs.
func (d Decision) String() string {
	switch d {
	case DecisionComplete:
		return "complete"
	case DecisionAdditionalWork:
		return "additional_work"
	case DecisionNewRequest:
		return "new_request"
	default:
		return "unknown"
	}
}

// lexicon holds the positive vocabulary for one intent.
//
// Tokens are matched against whole words only, so short entries like "ok" or
// "done" cannot fire inside longer words. Phrases (and Korean entries, which
// do not use spaces the way the tokenizer expects) are matched by substring.
type lexicon struct {
	tokens  []string
	phrases []string
}

var (
	approveLexicon = lexicon{
		tokens: []string{
			"1", "approve", "approved", "ok", "okay", "yes", "yep",
			"proceed", "lgtm", "sure", "execute", "네", "예",
		},
		phrases: []string{
			"go ahead", "looks good", "sounds good",
			"승인", "실행", "좋습니다", "좋아", "진행",
		},
	}

	completeLexicon = lexicon{
		tokens: []string{
			"1", "done", "complete", "completed", "finish", "finished",
			"satisfied", "satisfactory", "accept", "accepted",
		},
		phrases: []string{
			"accept result", "accept the result", "wrap up",
			"완료", "수락", "만족", "끝",
		},
	}

	additionalLexicon = lexicon{
		tokens: []string{
			"2", "additional", "more", "improve", "improvement",
			"improvements", "fix", "revise", "modify", "supplement",
			"supplementing", "refine", "더",
		},
		phrases: []string{
			"more work", "follow up",
			"추가", "개선", "수정", "보완",
		},
	}

	newRequestLexicon = lexicon{
		tokens: []string{
			"3", "restart",
		},
		phrases: []string{
			"new task", "new request", "different request",
			"different task", "start over", "start fresh",
			"새로운", "새 작업", "새 요청", "다른 요청", "다른 작업", "처음부터",
		},
	}
)

// PlanApproved reports whether the feedback approves the presented plan.
// Consulted by the execution stage after planning has shown its menu.
func PlanApproved(text string) bool {
	return matches(text, approveLexicon)
}

// CompleteWorkflow reports whether the feedback accepts the results and
// closes the workflow. Consulted by the review stage (menu option 1).
func CompleteWorkflow(text string) bool {
	return matches(text, completeLexicon)
}

// AdditionalWork reports whether the feedback asks for refinement of the
// existing results. Consulted by the review stage (menu option 2).
func AdditionalWork(text string) bool {
	return matches(text, additionalLexicon)
}

// NewRequest reports whether the feedback abandons the current workflow in
// favor of a fresh request. Consulted by the review stage (menu option 3).
func NewRequest(text string) bool {
	return matches(text, newRequestLexicon)
}

// DecideReview maps review-stage feedback onto the bounded Decision enum.
// Completion takes precedence over additional work, which takes precedence
// over a new request; anything else is DecisionUnknown.
func DecideReview(text string) Decision {
	switch {
	case CompleteWorkflow(text):
		return DecisionComplete
	case AdditionalWork(text):
		return DecisionAdditionalWork
	case NewRequest(text):
		return DecisionNewRequest
	default:
		return DecisionUnknown
	}
}

// folder lowercases text with full Unicode case folding.
var folder = cases.Fold()

// matches reports whether the folded text hits any lexicon entry.
func matches(text string, lex lexicon) bool {
	folded := strings.TrimSpace(folder.String(text))
	if folded == "" {
		return false
	}

	for _, phrase := range lex.phrases {
		if strings.Contains(folded, phrase) {
			return true
		}
	}

	tokens := tokenize(folded)
	for _, keyword := range lex.tokens {
		for _, tok := range tokens {
			if tok == keyword {
				return true
			}
		}
	}
	return false
}

// tokenize splits folded text into word tokens.
func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
