package rules

import (
	"errors"
	"fmt"
)

// ErrUnknownRule is returned for references to rule ids absent from a Registry.
var ErrUnknownRule = errors.New("unknown rule")

// DuplicateRuleError is returned when two rules share an identifier.
type DuplicateRuleError struct {
	ID    string
	Packs [2]string // pack of the first and second definition
}

func (e *DuplicateRuleError) Error() string {
	return fmt.Sprintf("duplicate rule %q (packs %q and %q)", e.ID, e.Packs[0], e.Packs[1])
}

// RuleDefinitionError reports a malformed rule definition.
type RuleDefinitionError struct {
	RuleID string
	Pack   string
	Reason string
	Err    error
}

func (e *RuleDefinitionError) Error() string {
	msg := fmt.Sprintf("invalid rule %q in pack %q: %s", e.RuleID, e.Pack, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RuleDefinitionError) Unwrap() error { return e.Err }

// RulePredicateError is a failure inside one rule's predicate while
// evaluating one unit. Panic holds the recovered value when the predicate
// panicked.
type RulePredicateError struct {
	RuleID string
	Unit   string
	Err    error
	Panic  any
}

func (e *RulePredicateError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("rule %s panicked on %s: %v", e.RuleID, e.Unit, e.Panic)
	}
	return fmt.Sprintf("rule %s failed on %s: %v", e.RuleID, e.Unit, e.Err)
}

func (e *RulePredicateError) Unwrap() error { return e.Err }
