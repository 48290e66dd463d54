package regime

import (
	"fmt"

	"github.com/dthrottle/spy-leaps-monitor/pkg/config"
)

// SignalStateMachine applies the pause, liquidate and resume rules once per day.
// It is owned by a single run and is not safe for concurrent use.
type SignalStateMachine struct {
	cfg   config.StrategyConfig
	state State

	// days spent outside ACTIVE with close above the 200-day MA
	aboveMACounter int
}

// NewSignalStateMachine creates a machine in the ACTIVE state
func NewSignalStateMachine(cfg config.StrategyConfig) *SignalStateMachine {
	return &SignalStateMachine{
		cfg:   cfg,
		state: StateActive,
	}
}

// State returns the current state
func (m *SignalStateMachine) State() State {
	return m.state
}

// ResumeCounter returns the current consecutive-days-above-MA200 count
func (m *SignalStateMachine) ResumeCounter() int {
	return m.aboveMACounter
}

// Evaluate advances the machine by one day and returns the transition taken,
// or nil. Liquidation is checked first, then pause, then resume.
func (m *SignalStateMachine) Evaluate(in DayInputs) *Transition {
	if m.state != StateActive {
		m.updateResumeCounter(in)
	}

	if m.state != StateLiquidated {
		if reason, ok := m.liquidationReason(in); ok {
			return m.transition(StateLiquidated, SignalLiquidate, reason)
		}
	}

	if m.state == StateActive {
		if reason, ok := m.pauseReason(in); ok {
			return m.transition(StatePaused, SignalPause, reason)
		}
		return nil
	}

	if reason, ok := m.resumeReason(in); ok {
		return m.transition(StateActive, SignalResume, reason)
	}
	return nil
}

func (m *SignalStateMachine) transition(to State, signal SignalType, reason string) *Transition {
	t := &Transition{From: m.state, To: to, SignalType: signal, Reason: reason}
	m.state = to
	m.aboveMACounter = 0
	return t
}

func (m *SignalStateMachine) updateResumeCounter(in DayInputs) {
	if available(in.MA200) && in.Close > in.MA200 {
		m.aboveMACounter++
		return
	}
	m.aboveMACounter = 0
}

func (m *SignalStateMachine) liquidationReason(in DayInputs) (string, bool) {
	if available(in.RollingHigh) && in.Close <= in.RollingHigh*(1-m.cfg.LiquidatePctFromPeak/100) {
		return fmt.Sprintf("Drawdown %.1f%% from peak exceeds liquidation threshold", in.DrawdownPct()), true
	}
	if available(in.MA200) && in.Close <= in.MA200*(1-m.cfg.LiquidatePctFrom200MA/100) {
		return fmt.Sprintf("Price %.1f%% below 200-day MA", in.PctFromMA200()), true
	}
	if m.cfg.UseDeathCross && available(in.MA50) && available(in.MA200) && in.MA50 < in.MA200 {
		return "Death cross detected (50-day MA < 200-day MA)", true
	}
	return "", false
}

func (m *SignalStateMachine) pauseReason(in DayInputs) (string, bool) {
	if available(in.RollingHigh) && in.Close <= in.RollingHigh*(1-m.cfg.PauseDrawdownPct/100) {
		return fmt.Sprintf("Drawdown %.1f%% exceeds threshold", in.DrawdownPct()), true
	}
	if available(in.VIX) && in.VIX > m.cfg.VIXThreshold {
		return fmt.Sprintf("VIX %.1f exceeds threshold %g", in.VIX, m.cfg.VIXThreshold), true
	}
	return "", false
}

// resumeReason never resumes while a liquidation condition still holds,
// so a liquidated run cannot flip back and forth on consecutive days
func (m *SignalStateMachine) resumeReason(in DayInputs) (string, bool) {
	if _, liquidating := m.liquidationReason(in); liquidating {
		return "", false
	}
	if m.aboveMACounter >= m.cfg.ResumeConsecDays {
		return fmt.Sprintf("Price above 200-day MA for %d consecutive days", m.cfg.ResumeConsecDays), true
	}
	if available(in.RollingHigh) && in.Close >= in.RollingHigh*(1-m.cfg.ResumePct/100) {
		return fmt.Sprintf("Drawdown recovered to %.1f%%", in.DrawdownPct()), true
	}
	return "", false
}
