package service

import (
	"errors"

	"coachsync/internal/domain"

	"github.com/rs/zerolog"
)

// Policy names how an operation treats failures of the remote calendar.
type Policy int

const (
	// PolicyInteractive surfaces every error to the caller.
	PolicyInteractive Policy = iota
	// PolicyCleanup swallows every error; removing the local record must not be blocked.
	PolicyCleanup
	// PolicyDetection swallows outages and reports "no conflict".
	PolicyDetection
	// PolicyBatch swallows per-item errors; the caller counts them as failures.
	PolicyBatch
)

type policyRule struct {
	name     string
	suppress func(error) bool
}

func suppressNothing(error) bool { return false }

func suppressAll(error) bool { return true }

func suppressOutage(err error) bool { return errors.Is(err, domain.ErrRemoteUnavailable) }

var policyTable = map[Policy]policyRule{
	PolicyInteractive: {name: "interactive", suppress: suppressNothing},
	PolicyCleanup:     {name: "cleanup", suppress: suppressAll},
	PolicyDetection:   {name: "detection", suppress: suppressOutage},
	PolicyBatch:       {name: "batch", suppress: suppressAll},
}

func (p Policy) String() string {
	if rule, ok := policyTable[p]; ok {
		return rule.name
	}
	return "unknown"
}

// Suppresses reports whether the policy swallows err.
func (p Policy) Suppresses(err error) bool {
	if err == nil {
		return false
	}
	rule, ok := policyTable[p]
	return ok && rule.suppress(err)
}

// Apply returns nil for errors the policy swallows, logging them, and err otherwise.
func (p Policy) Apply(logger *zerolog.Logger, err error, msg string) error {
	if !p.Suppresses(err) {
		return err
	}
	if logger != nil {
		logger.Warn().Err(err).Str("policy", p.String()).Msg(msg)
	}
	return nil
}
