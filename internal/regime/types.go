package regime

import "math"

// State is the accumulation state of the strategy
type State int

const (
	StateActive State = iota
	StatePaused
	StateLiquidated
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "ACTIVE"
	case StatePaused:
		return "PAUSED"
	case StateLiquidated:
		return "LIQUIDATED"
	default:
		return "UNKNOWN"
	}
}

// SignalType labels a transition or a buy in the signal log
type SignalType string

const (
	SignalBuy       SignalType = "BUY"
	SignalPause     SignalType = "PAUSE"
	SignalLiquidate SignalType = "LIQUIDATE"
	SignalResume    SignalType = "RESUME"
)

// DayInputs are the values the state machine sees for one trading day.
// NaN marks an unavailable input; an unavailable input never satisfies a condition.
type DayInputs struct {
	Close       float64
	RollingHigh float64
	MA50        float64
	MA200       float64
	VIX         float64
}

// Unavailable is the value used for a missing input
func Unavailable() float64 {
	return math.NaN()
}

// DrawdownPct is the percent change of close from the rolling high (negative in a drawdown)
func (in DayInputs) DrawdownPct() float64 {
	if !available(in.Close) || !available(in.RollingHigh) || in.RollingHigh == 0 {
		return math.NaN()
	}
	return (in.Close - in.RollingHigh) / in.RollingHigh * 100
}

// PctFromMA200 is the percent distance of close from the 200-day MA
func (in DayInputs) PctFromMA200() float64 {
	if !available(in.Close) || !available(in.MA200) || in.MA200 == 0 {
		return math.NaN()
	}
	return (in.Close - in.MA200) / in.MA200 * 100
}

// Transition is a state change with the signal it emits
type Transition struct {
	From       State      `json:"from"`
	To         State      `json:"to"`
	SignalType SignalType `json:"signal_type"`
	Reason     string     `json:"reason"`
}

func available(v float64) bool {
	return !math.IsNaN(v)
}
