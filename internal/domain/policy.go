package domain

type PolicyInput struct {
	BridgeID     string         `json:"bridge_id"`
	Summary      PayloadSummary `json:"summary"`
	Verification PolicyChecks   `json:"verification"`
}

type PolicyChecks struct {
	SignatureValid bool `json:"signature_valid"`
	SignatureCount int  `json:"signature_count"`
}

type PolicyDeny struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type PolicyResult struct {
	Allow bool         `json:"allow"`
	Deny  []PolicyDeny `json:"deny,omitempty"`
}

type PolicyEvaluation struct {
	BundleID   string       `json:"bundle_id,omitempty"`
	BundleHash string       `json:"bundle_hash"`
	Result     PolicyResult `json:"result"`
}
