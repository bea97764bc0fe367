package usecase

import (
	"context"
	"errors"
	"time"

	"staurox/internal/domain"
	"staurox/pkg/attest"
)

type SubmitAttestationRequest struct {
	BridgeID   string
	RawPayload []byte
	Signatures []domain.GuardianSignature
}

// VerifyAndAdmit classifies each submission as Admitted, Duplicate or
// Rejected(reason) and drives the log mutation for admissions. The check order
// is fixed: staleness and authenticity always precede duplicate detection, so
// a stale repeat of a retained attestation reports Stale, not Duplicate.
type VerifyAndAdmit struct {
	Logs     LogStore
	Verifier domain.MessageVerifier
	Policy   PolicyEngine
	Risk     RiskScorer
	Clock    func() time.Time

	Capacity       int
	StalenessBound time.Duration
	SkewTolerance  time.Duration
	GuardianCount  int
}

func (uc *VerifyAndAdmit) Execute(ctx context.Context, req SubmitAttestationRequest) (domain.SubmissionResult, error) {
	if uc.Logs == nil || uc.Verifier == nil {
		return domain.SubmissionResult{}, errors.New("log store and verifier are required")
	}

	att, err := attest.Decode(req.RawPayload)
	if err != nil {
		return domain.SubmissionResult{}, err
	}

	bridgeID := req.BridgeID
	if bridgeID == "" {
		bridgeID = att.BridgeID()
	}

	if _, err := uc.Logs.CreateIfMissing(ctx, bridgeID, uc.Capacity); err != nil {
		return domain.SubmissionResult{}, err
	}

	now := uc.now()
	age := now.Sub(att.SourceTimestamp)
	if uc.StalenessBound > 0 && age > uc.StalenessBound {
		return rejected(att, domain.ReasonStale), nil
	}
	if att.SourceTimestamp.After(now.Add(uc.SkewTolerance)) {
		return rejected(att, domain.ReasonFutureTimestamp), nil
	}

	if bridgeID != att.BridgeID() {
		return rejected(att, domain.ReasonInvalidAttestation), nil
	}
	if !uc.Verifier.VerifySignedMessage(attest.Encode(att), req.Signatures) {
		return rejected(att, domain.ReasonInvalidAttestation), nil
	}

	if uc.Policy != nil {
		eval, err := uc.Policy.Evaluate(ctx, domain.PolicyInput{
			BridgeID: bridgeID,
			Summary:  attest.Summary(att),
			Verification: domain.PolicyChecks{
				SignatureValid: true,
				SignatureCount: len(req.Signatures),
			},
		})
		if err != nil {
			return domain.SubmissionResult{}, err
		}
		if !eval.Result.Allow {
			return rejected(att, domain.ReasonPolicyDenied), nil
		}
	}

	confirmation := domain.ConfirmationFromAge(age)
	entry := domain.VerificationEntry{
		Digest:          att.Digest,
		SourceTimestamp: att.SourceTimestamp,
		AdmittedAt:      now,
		Summary:         attest.Summary(att),
		RiskScore:       uc.Risk.Score(confirmation, uc.quorumRatio(len(req.Signatures))),
		Confirmation:    confirmation,
	}
	sequence, duplicate, err := uc.Logs.Append(ctx, bridgeID, entry)
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	if duplicate {
		return domain.SubmissionResult{Status: domain.StatusDuplicate, Digest: att.Digest}, nil
	}
	return domain.SubmissionResult{
		Status:   domain.StatusAdmitted,
		Sequence: sequence,
		Digest:   att.Digest,
	}, nil
}

func (uc *VerifyAndAdmit) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock().UTC()
	}
	return time.Now().UTC()
}

func (uc *VerifyAndAdmit) quorumRatio(signatureCount int) float64 {
	if uc.GuardianCount <= 0 {
		return 1
	}
	return float64(signatureCount) / float64(uc.GuardianCount)
}

func rejected(att domain.Attestation, reason domain.RejectReason) domain.SubmissionResult {
	return domain.SubmissionResult{
		Status: domain.StatusRejected,
		Reason: reason,
		Digest: att.Digest,
	}
}
