package reservation

import (
	"fmt"
	"strings"
	"time"

	"github.com/Kilat-Lodge/service-reservation/internal/domain"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/property"
	"github.com/Kilat-Lodge/service-reservation/internal/domain/stay"
)

// RequestType distinguishes single-room requests from whole-property ones.
type RequestType string

const (
	RequestSingleRoom RequestType = "single-room"
	RequestBulk       RequestType = "bulk"
)

// IsValid returns true if the request type is recognized.
func (t RequestType) IsValid() bool {
	return t == RequestSingleRoom || t == RequestBulk
}

// Outcome is the verdict of the season gate.
type Outcome string

const (
	OutcomeAllow       Outcome = "allow"
	OutcomeRequireCode Outcome = "require-code"
	OutcomeReject      Outcome = "reject"
)

// Decision is the result of evaluating a stay against the season periods.
type Decision struct {
	Outcome Outcome          `json:"outcome"`
	Reason  domain.Reason    `json:"reason,omitempty"`
	Season  *property.Season `json:"season,omitempty"`
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool { return d.Outcome == OutcomeAllow }

// Err converts a refusal into a season error. It returns nil for Allow.
func (d Decision) Err() error {
	if d.Allowed() {
		return nil
	}
	name := ""
	if d.Season != nil {
		name = d.Season.Name
	}
	var msg string
	switch d.Reason {
	case domain.ReasonCodeRequired:
		msg = fmt.Sprintf("an access code is required for %s", name)
	case domain.ReasonInvalidCode:
		msg = fmt.Sprintf("the access code is not valid for %s", name)
	case domain.ReasonBulkRestricted:
		msg = fmt.Sprintf("whole-property requests are closed for %s", name)
	default:
		msg = "the requested dates are restricted"
	}
	return domain.NewSeasonError(d.Reason, msg)
}

// SeasonGate applies the restricted-season rules.
//
// Before a season's cutoff every request touching it needs one of the
// season's codes. From the cutoff on, single rooms are open to everyone and
// whole-property requests are refused.
type SeasonGate struct {
	seasons []property.Season
	clock   *ClockPolicy
}

// NewSeasonGate creates a new SeasonGate.
func NewSeasonGate(seasons []property.Season, clock *ClockPolicy) *SeasonGate {
	return &SeasonGate{seasons: seasons, clock: clock}
}

// Evaluate decides a request as of now. Every season the stay touches must
// allow it; the most severe refusal is reported.
func (g *SeasonGate) Evaluate(s stay.Range, rt RequestType, code string, now time.Time) Decision {
	decision := Decision{Outcome: OutcomeAllow}
	for i := range g.seasons {
		season := g.seasons[i]
		if !season.Intersects(s) {
			continue
		}
		d := g.evaluateSeason(season, rt, code, now)
		if severity(d.Outcome) > severity(decision.Outcome) {
			decision = d
		}
	}
	return decision
}

// Check evaluates the request against the current time and returns the
// refusal as an error.
func (g *SeasonGate) Check(s stay.Range, rt RequestType, code string) error {
	return g.Evaluate(s, rt, code, g.clock.Now()).Err()
}

func (g *SeasonGate) evaluateSeason(season property.Season, rt RequestType, code string, now time.Time) Decision {
	ref := &season
	if !g.clock.BeforeCutoff(season, now) {
		if rt == RequestBulk {
			return Decision{Outcome: OutcomeReject, Reason: domain.ReasonBulkRestricted, Season: ref}
		}
		return Decision{Outcome: OutcomeAllow}
	}

	switch {
	case strings.TrimSpace(code) == "":
		return Decision{Outcome: OutcomeRequireCode, Reason: domain.ReasonCodeRequired, Season: ref}
	case !season.AcceptsCode(code):
		return Decision{Outcome: OutcomeReject, Reason: domain.ReasonInvalidCode, Season: ref}
	}
	return Decision{Outcome: OutcomeAllow}
}

func severity(o Outcome) int {
	switch o {
	case OutcomeReject:
		return 2
	case OutcomeRequireCode:
		return 1
	}
	return 0
}
