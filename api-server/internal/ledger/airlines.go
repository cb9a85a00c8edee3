package ledger

import (
	"context"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/cx-tal-miterani/flight-surety/shared/models"
)

// Admission is the outcome of a proposal or vote for a candidate airline
type Admission struct {
	Candidate string
	Admitted  bool
	Votes     int
	Required  int
}

// AirlineInfo is a read-only view of an airline
type AirlineInfo struct {
	Address string
	Status  models.AirlineStatus
	Funds   *uint256.Int
	Votes   int
}

// requiredVotes is ceil(funded/2), taken before the candidate joins
func requiredVotes(funded int) int {
	return (funded + 1) / 2
}

// RegisterAirline records proposer's proposal for candidate. While fewer than
// BootstrapSize airlines are admitted a single proposal admits; after that each
// proposal is one vote and the candidate is admitted once the votes reach half
// of the funded airlines.
func (e *Engine) RegisterAirline(ctx context.Context, proposer, candidate string) (Admission, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOperational(); err != nil {
		return Admission{}, err
	}
	if candidate == "" {
		return Admission{}, ErrInvalidAirline
	}
	if !e.st.isFunded(proposer) {
		return Admission{}, ErrProposerNotFunded
	}
	if e.st.isAdmitted(candidate) {
		return Admission{}, ErrAirlineAlreadyRegistered
	}

	if e.st.admitted < BootstrapSize {
		if _, err := e.commit(ctx, event(EventAirlineRegistered, airlineRegistered{
			Airline: candidate,
			By:      proposer,
		})); err != nil {
			return Admission{}, err
		}
		e.logger.Info("airline admitted",
			zap.String("airline", candidate),
			zap.String("by", proposer),
			zap.String("phase", "bootstrap"),
		)
		return Admission{Candidate: candidate, Admitted: true, Votes: 1, Required: 1}, nil
	}

	var voters map[string]struct{}
	if a, ok := e.st.airlines[candidate]; ok {
		voters = a.voters
	}
	if _, voted := voters[proposer]; voted {
		return Admission{}, ErrDuplicateVote
	}

	votes := len(voters) + 1
	required := requiredVotes(e.st.funded)
	drafts := []draft{event(EventAirlineVoted, airlineVoted{Candidate: candidate, Voter: proposer})}
	admitted := votes >= required
	if admitted {
		drafts = append(drafts, event(EventAirlineRegistered, airlineRegistered{Airline: candidate, By: proposer}))
	}
	if _, err := e.commit(ctx, drafts...); err != nil {
		return Admission{}, err
	}

	if admitted {
		e.logger.Info("airline admitted",
			zap.String("airline", candidate),
			zap.Int("votes", votes),
			zap.Int("required", required),
		)
	}
	return Admission{Candidate: candidate, Admitted: admitted, Votes: votes, Required: required}, nil
}

// Fund adds amount to the calling airline's funding. The airline becomes
// Funded once its funds reach the registration fee.
func (e *Engine) Fund(ctx context.Context, airline string, amount *uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOperational(); err != nil {
		return err
	}
	if amount == nil || amount.IsZero() {
		return ErrZeroAmount
	}
	a, ok := e.st.airlines[airline]
	if !ok || !a.admitted() {
		return ErrUnknownAirline
	}
	total, overflow := new(uint256.Int).AddOverflow(a.funds, amount)
	if overflow {
		return ErrAmountOverflow
	}
	if _, overflow := new(uint256.Int).AddOverflow(e.st.reserves, amount); overflow {
		return ErrAmountOverflow
	}

	funded := !total.Lt(e.params.RegistrationFee)
	becameFunded := funded && a.status != models.AirlineFunded
	if _, err := e.commit(ctx, event(EventAirlineFunded, airlineFunded{
		Airline: airline,
		Amount:  amount.Dec(),
		Funded:  funded,
	})); err != nil {
		return err
	}
	if becameFunded {
		e.logger.Info("airline funded", zap.String("airline", airline), zap.String("funds", total.Dec()))
	}
	return nil
}

func (e *Engine) IsRegisteredAirline(address string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.st.isAdmitted(address)
}

func (e *Engine) IsFundedAirline(address string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.st.isFunded(address)
}

// GetFundsForAirline returns the airline's accumulated funding, zero if unknown
func (e *Engine) GetFundsForAirline(address string) *uint256.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if a, ok := e.st.airlines[address]; ok {
		return a.funds.Clone()
	}
	return new(uint256.Int)
}

// Airline returns the view of address; unknown addresses are Unregistered
func (e *Engine) Airline(address string) AirlineInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()
	info := AirlineInfo{Address: address, Status: models.AirlineUnregistered, Funds: new(uint256.Int)}
	if a, ok := e.st.airlines[address]; ok {
		info.Status = a.status
		info.Funds = a.funds.Clone()
		info.Votes = len(a.voters)
	}
	return info
}

// AirlineCounts returns the number of admitted and funded airlines
func (e *Engine) AirlineCounts() (admitted, funded int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.st.admitted, e.st.funded
}
