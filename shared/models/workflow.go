package models

// Task queue shared by the oracle simulation worker and its starter
const OracleTaskQueue = "flight-surety-oracles"

// Activity names
const (
	ActivityPickStatusCode       = "PickStatusCode"
	ActivitySubmitOracleResponse = "SubmitOracleResponse"
)

// SimulatedOracle is an oracle identity owned by the simulation worker
type SimulatedOracle struct {
	Serial  int      `json:"serial"`
	Address string   `json:"address"`
	Indexes [3]uint8 `json:"indexes"`
}

// Holds reports whether the oracle was assigned index
func (o SimulatedOracle) Holds(index uint8) bool {
	for _, i := range o.Indexes {
		if i == index {
			return true
		}
	}
	return false
}

// OracleRequestWorkflowInput is the input for the oracle request workflow
type OracleRequestWorkflowInput struct {
	Offset  uint64            `json:"offset"`
	Request OracleRequest     `json:"request"`
	Oracles []SimulatedOracle `json:"oracles"`
}

// OracleRequestWorkflowResult summarizes how a request was answered
type OracleRequestWorkflowResult struct {
	Submitted  int        `json:"submitted"`
	Rejected   int        `json:"rejected"`
	Finalized  bool       `json:"finalized"`
	StatusCode StatusCode `json:"statusCode"`
}

// SubmitOracleResponseInput is the input of the submission activity
type SubmitOracleResponseInput struct {
	Oracle     string        `json:"oracle"`
	Request    OracleRequest `json:"request"`
	StatusCode StatusCode    `json:"statusCode"`
}
