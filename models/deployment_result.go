package models

// Output names exported by the compute instance program.
const (
	OutputInstanceName       = "instanceName"
	OutputInstanceExternalIP = "instanceExternalIp"
)

// OutputValue is a resolved stack output, available only after the engine has
// converged the resources.
type OutputValue struct {
	Value  interface{} `json:"value"`
	Secret bool        `json:"secret,omitempty"`
}

// OutputMap maps output names to their resolved values.
type OutputMap map[string]OutputValue

// SecretMask replaces secret config values in an UpdateSummary.
const SecretMask = "[secret]"

// SummaryConfigValue is one stack config entry recorded with an update.
type SummaryConfigValue struct {
	Value  string `json:"value"`
	Secret bool   `json:"secret,omitempty"`
}

// UpdateSummary is the engine's metadata about one update.
type UpdateSummary struct {
	Kind            string                        `json:"kind,omitempty"`
	StartTime       string                        `json:"startTime,omitempty"`
	EndTime         *string                       `json:"endTime,omitempty"`
	Message         string                        `json:"message,omitempty"`
	Environment     map[string]string             `json:"environment,omitempty"`
	Config          map[string]SummaryConfigValue `json:"config,omitempty"`
	Result          string                        `json:"result,omitempty"`
	Version         int                           `json:"version,omitempty"`
	ResourceChanges *map[string]int               `json:"resourceChanges,omitempty"`
}

// DeploymentResult is produced by a successful apply.
type DeploymentResult struct {
	Outputs OutputMap     `json:"outputs"`
	Summary UpdateSummary `json:"summary"`
}

// StringOutput returns the named output when it resolved to a string.
func (r DeploymentResult) StringOutput(name string) (string, bool) {
	v, ok := r.Outputs[name]
	if !ok {
		return "", false
	}
	s, ok := v.Value.(string)
	return s, ok
}
