package domain

import "errors"

// ErrorCategory groups governance errors by the kind of rule they violate
type ErrorCategory string

const (
	CategoryAuthorization ErrorCategory = "authorization"
	CategoryCapacity      ErrorCategory = "capacity"
	CategoryMembership    ErrorCategory = "membership"
	CategoryVoting        ErrorCategory = "voting"
	CategoryLifecycle     ErrorCategory = "lifecycle"
	CategoryArithmetic    ErrorCategory = "arithmetic"
	CategoryValidation    ErrorCategory = "validation"
	CategoryStore         ErrorCategory = "store"
	CategoryLedger        ErrorCategory = "ledger"
)

// GovernanceError is a rejected precondition. Values are sentinels, compare with errors.Is.
type GovernanceError struct {
	Code     string
	Category ErrorCategory
	Message  string
}

func (e *GovernanceError) Error() string {
	return e.Message
}

func newError(code string, category ErrorCategory, message string) *GovernanceError {
	return &GovernanceError{Code: code, Category: category, Message: message}
}

var (
	ErrNotCaptain = newError("NOT_CAPTAIN", CategoryAuthorization, "only the captain can perform this action")

	ErrTeamCapacityFull = newError("TEAM_CAPACITY_FULL", CategoryCapacity, "a team can contain maximum 5 members")
	ErrTeamCapacityLow  = newError("TEAM_CAPACITY_LOW", CategoryCapacity, "a team must contain at least 2 members to remove a member")
	ErrNotEnoughPlayers = newError("NOT_ENOUGH_PLAYERS", CategoryCapacity, "a team must contain 5 players to join an event")

	ErrMemberAlreadyInTeam = newError("MEMBER_ALREADY_IN_TEAM", CategoryMembership, "member is already in the team")
	ErrMemberNotInTeam     = newError("MEMBER_NOT_IN_TEAM", CategoryMembership, "member is not in the team")

	ErrAlreadyVoted = newError("ALREADY_VOTED", CategoryVoting, "member has already voted in this round")
	ErrVoteClosed   = newError("VOTE_CLOSED", CategoryVoting, "voting is closed for this round")

	ErrNoActiveEvent           = newError("NO_ACTIVE_EVENT", CategoryLifecycle, "the team has no active event")
	ErrAlreadyActiveEvent      = newError("ALREADY_ACTIVE_EVENT", CategoryLifecycle, "the team already has an active event, leave it first")
	ErrNoDistributionProposal  = newError("NO_DISTRIBUTION_PROPOSAL", CategoryLifecycle, "no reward distribution has been proposed")
	ErrDistributionNotApproved = newError("DISTRIBUTION_NOT_APPROVED", CategoryLifecycle, "the reward distribution has not been approved")

	ErrInvalidPercentage = newError("INVALID_PERCENTAGE", CategoryArithmetic, "percentages must be one share per member and sum to 100")
	ErrExceedsCap        = newError("EXCEEDS_CAP", CategoryArithmetic, "requested reward exceeds the member's share of the prize")

	ErrInvalidEvent  = newError("INVALID_EVENT", CategoryValidation, "event identifier is required")
	ErrInvalidAmount = newError("INVALID_AMOUNT", CategoryValidation, "amount must be greater than zero")
	ErrInvalidVote   = newError("INVALID_VOTE", CategoryValidation, "vote must be yes or no")
	ErrInvalidTeam   = newError("INVALID_TEAM", CategoryValidation, "team name and creator are required")

	ErrDuplicateTeam  = newError("DUPLICATE_TEAM", CategoryStore, "team already exists")
	ErrTeamNotFound   = newError("TEAM_NOT_FOUND", CategoryStore, "team not found")
	ErrTeamDisbanded  = newError("TEAM_DISBANDED", CategoryStore, "team has been disbanded")
	ErrTeamBusy       = newError("TEAM_BUSY", CategoryStore, "team is being modified by another request")
	ErrAccountMissing = newError("ACCOUNT_NOT_FOUND", CategoryLedger, "ledger account not found")

	ErrInsufficientFunds = newError("INSUFFICIENT_FUNDS", CategoryLedger, "funding account balance is too low")
	ErrLedgerUnavailable = newError("LEDGER_UNAVAILABLE", CategoryLedger, "reward payouts are not configured")
)

// AsGovernanceError unwraps err to its governance sentinel, if any
func AsGovernanceError(err error) (*GovernanceError, bool) {
	var ge *GovernanceError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// CategoryOf returns the category of a governance error, or "" for anything else
func CategoryOf(err error) ErrorCategory {
	if ge, ok := AsGovernanceError(err); ok {
		return ge.Category
	}
	return ""
}
