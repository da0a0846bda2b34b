package model

type Action string

const (
	ActionSkip    Action = "SKIP"
	ActionRestart Action = "RESTART"
)

type Reason string

const (
	ReasonCooldown          Reason = "cooldown"
	ReasonSignalUnavailable Reason = "signal-unavailable"
	ReasonSevereLag         Reason = "severe-lag"
	ReasonStalled           Reason = "stalled"
	ReasonFallingBehind     Reason = "falling-behind"
	ReasonActivelySyncing   Reason = "actively-syncing"
	ReasonProducingBlocks   Reason = "producing-blocks"
	ReasonModerateLagIdle   Reason = "moderate-lag-idle"
	ReasonHealthy           Reason = "healthy"
)

func (r Reason) String() string {
	return string(r)
}

// Verdict is the outcome of one evaluation cycle.
type Verdict struct {
	Action Action `json:"action"`
	Reason Reason `json:"reason"`
}

func Skip(reason Reason) Verdict {
	return Verdict{Action: ActionSkip, Reason: reason}
}

func Restart(reason Reason) Verdict {
	return Verdict{Action: ActionRestart, Reason: reason}
}

func (v Verdict) IsRestart() bool {
	return v.Action == ActionRestart
}

func (v Verdict) String() string {
	return string(v.Action) + "(" + string(v.Reason) + ")"
}
