package usecase

import "staurox/internal/domain"

// RiskScorer grades an admitted attestation from 0 (no risk) to 1 (maximum).
// The score is advisory metadata on the entry; it never blocks admission.
type RiskScorer struct{}

func (RiskScorer) Score(level domain.ConfirmationLevel, quorumRatio float64) float64 {
	var risk float64
	switch level {
	case domain.ConfirmationUltraSafe:
		risk = 0.01
	case domain.ConfirmationSafe:
		risk = 0.05
	default:
		risk = 0.15
	}

	// Thinner signature coverage raises risk.
	if quorumRatio < 0 {
		quorumRatio = 0
	}
	if quorumRatio > 1 {
		quorumRatio = 1
	}
	risk += (1 - quorumRatio) * 0.2

	if risk > 1 {
		risk = 1
	}
	return risk
}

func (RiskScorer) IsAcceptable(score, threshold float64) bool {
	return score <= threshold
}
