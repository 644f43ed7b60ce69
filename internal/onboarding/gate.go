// Package onboarding derives the outstanding onboarding step from the
// client-presented signals and routes requests accordingly. The resolver is a
// pure total function: the middleware around it does the cookie reading and
// redirecting.
package onboarding

// Signals are the four independent markers observed on a request. They are
// loosely synchronized mirrors of server state, so any combination can occur
// in the wild, including ones the happy path never produces.
type Signals struct {
	HasSession  bool
	HasLanguage bool
	HasCitizen  bool
	HasConsent  bool
}

// Step is the onboarding surface the client must visit next.
type Step int

const (
	// StepBootstrap means no session exists yet.
	StepBootstrap Step = iota
	// StepLanguage means a session exists but no language is chosen.
	StepLanguage
	// StepIdentity means language is chosen but no citizen is linked.
	StepIdentity
	// StepConsent means identity is linked but consent is not recorded.
	StepConsent
	// StepComplete means onboarding is finished and the request proceeds.
	StepComplete
)

func (s Step) String() string {
	switch s {
	case StepBootstrap:
		return "bootstrap"
	case StepLanguage:
		return "language"
	case StepIdentity:
		return "identity"
	case StepConsent:
		return "consent"
	case StepComplete:
		return "complete"
	}
	return "unknown"
}

// Resolve routes to the first unmet step. The steps are strictly ordered;
// later signals are ignored until every earlier one is satisfied, so a client
// that somehow carries a consent marker without a session still starts at
// bootstrap.
func Resolve(sig Signals) Step {
	switch {
	case !sig.HasSession:
		return StepBootstrap
	case !sig.HasLanguage:
		return StepLanguage
	case !sig.HasCitizen:
		return StepIdentity
	case !sig.HasConsent:
		return StepConsent
	}
	return StepComplete
}
