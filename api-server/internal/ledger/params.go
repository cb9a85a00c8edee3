package ledger

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/cx-tal-miterani/flight-surety/shared/config"
)

const (
	// TopicSpace is the number of oracle topic indexes
	TopicSpace = 10
	// Quorum is the number of matching responses that finalizes a status
	Quorum = 3
	// BootstrapSize is the number of admitted airlines after which admission
	// needs votes from half of the funded airlines
	BootstrapSize = 4
	// IndexesPerOracle is the number of topic indexes drawn per oracle
	IndexesPerOracle = 3
)

var weiPerEther = uint256.NewInt(1_000_000_000_000_000_000)

// Ether returns n units of native currency in wei
func Ether(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), weiPerEther)
}

// Finney returns n thousandths of a unit in wei
func Finney(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1_000_000_000_000_000))
}

// Params are the identities and economic constants the ledger runs with
type Params struct {
	Admin           string
	FirstAirline    string
	RegistrationFee *uint256.Int
	PremiumCap      *uint256.Int
	OracleStake     *uint256.Int
}

// DefaultParams uses the standard constants: 10 units to fund an airline,
// 1 unit premium cap and 1 unit oracle stake
func DefaultParams(admin, firstAirline string) Params {
	return Params{
		Admin:           admin,
		FirstAirline:    firstAirline,
		RegistrationFee: Ether(10),
		PremiumCap:      Ether(1),
		OracleStake:     Ether(1),
	}
}

func ParamsFromConfig(cfg config.LedgerConfig) Params {
	return Params{
		Admin:           cfg.Admin,
		FirstAirline:    cfg.FirstAirline,
		RegistrationFee: config.Amount(cfg.RegistrationFee),
		PremiumCap:      config.Amount(cfg.PremiumCap),
		OracleStake:     config.Amount(cfg.OracleStake),
	}
}

func (p Params) validate() error {
	switch {
	case p.Admin == "":
		return errors.New("admin principal required")
	case p.FirstAirline == "":
		return errors.New("first airline required")
	case p.RegistrationFee == nil || p.RegistrationFee.IsZero():
		return errors.New("registration fee must be positive")
	case p.PremiumCap == nil || p.PremiumCap.IsZero():
		return errors.New("premium cap must be positive")
	case p.OracleStake == nil || p.OracleStake.IsZero():
		return errors.New("oracle stake must be positive")
	}
	return nil
}

// payout is the credit owed for a premium on a late-airline flight: 1.5x,
// truncated
func payout(premium *uint256.Int) *uint256.Int {
	out := new(uint256.Int).Mul(premium, uint256.NewInt(3))
	return out.Div(out, uint256.NewInt(2))
}
