package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"beaconchain_verifier/internal/domain"
)

// Orchestrator drives checks across epochs, sequentially by design: both
// upstream sources are rate-limited and correctness, not throughput, is the
// goal. It exclusively owns the result and summary collections of a run.
type Orchestrator struct {
	checks map[domain.Category]Check
	forks  *domain.ForkRegistry
	now    func() time.Time
}

func NewOrchestrator(checks map[domain.Category]Check, forks *domain.ForkRegistry) *Orchestrator {
	return &Orchestrator{checks: checks, forks: forks, now: time.Now}
}

// RunEpoch runs the given checks (or, with nil ids, the subset the epoch's
// fork phase supports) for one (validator, epoch) pair.
func (o *Orchestrator) RunEpoch(ctx context.Context, validator, epoch uint64, ids []domain.Category) []domain.VerificationResult {
	if ids == nil {
		ids = ChecksForPhase(o.forks.PhaseOf(epoch).Features)
	}
	results := make([]domain.VerificationResult, 0, len(ids))
	for _, id := range ids {
		chk, ok := o.checks[id]
		if !ok {
			zap.L().Warn("unknown check requested", zap.String("test_id", string(id)))
			continue
		}
		results = append(results, o.runSafe(ctx, chk, validator, epoch))
	}
	return results
}

// RunHistorical samples epochs from the activated fork phases and runs the
// phase-applicable checks against each. A non-empty phaseIDs restricts the
// sweep to those phases; nil means all. The same seed with the same filter
// always samples the same epochs for the same fork table. A phase's summary
// is appended only after all its sampled epochs have been processed.
func (o *Orchestrator) RunHistorical(ctx context.Context, validator uint64, samplesPerFork int, seed int64, phaseIDs []string) ([]domain.VerificationResult, []domain.PhaseSummary) {
	currentEpoch := domain.EpochAt(o.now())
	rng := rand.New(rand.NewSource(seed))

	wanted := make(map[string]bool, len(phaseIDs))
	for _, id := range phaseIDs {
		wanted[id] = true
	}

	zap.L().Info("starting historical sweep",
		zap.Uint64("validator", validator),
		zap.Uint64("current_epoch", currentEpoch),
		zap.Int("samples_per_fork", samplesPerFork),
		zap.Int64("seed", seed),
		zap.Strings("phase_filter", phaseIDs))

	var results []domain.VerificationResult
	var summaries []domain.PhaseSummary

	for _, phase := range o.forks.Phases() {
		if len(wanted) > 0 && !wanted[phase.ID] {
			continue
		}
		if phase.StartEpoch > currentEpoch {
			zap.L().Info("skipping fork, not yet active", zap.String("fork", phase.ID))
			continue
		}

		epochs := SampleEpochs(rng, phase, samplesPerFork, currentEpoch)
		summary := domain.PhaseSummary{Fork: phase.ID, Name: phase.Name, EpochsTested: epochs}

		for _, epoch := range epochs {
			for _, id := range ChecksForPhase(phase.Features) {
				chk, ok := o.checks[id]
				if !ok {
					continue
				}
				r := o.runSafe(ctx, chk, validator, epoch)
				summary.Count(r.Verdict)
				results = append(results, r)
				zap.L().Info("check finished",
					zap.String("fork", phase.ID),
					zap.Uint64("epoch", epoch),
					zap.String("test_id", string(r.TestID)),
					zap.String("verdict", string(r.Verdict)))
			}
		}
		summaries = append(summaries, summary)
	}
	return results, summaries
}

// runSafe converts a panicking check into an inconclusive result; no single
// fault may abort the run.
func (o *Orchestrator) runSafe(ctx context.Context, chk Check, validator, epoch uint64) (result domain.VerificationResult) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("check panicked",
				zap.String("test_id", string(chk.ID())),
				zap.Uint64("epoch", epoch),
				zap.Any("panic", r))
			result = domain.VerificationResult{
				TestID:         chk.ID(),
				TestName:       chk.Name(),
				Timestamp:      time.Now().UTC(),
				ForkPhase:      o.forks.PhaseOf(epoch).ID,
				Epoch:          epoch,
				ValidatorIndex: validator,
				Verdict:        domain.VerdictInconclusive,
				Conclusion:     fmt.Sprintf("check aborted by internal fault: %v", r),
			}
		}
	}()
	return chk.Run(ctx, validator, epoch)
}

// SampleEpochs draws one epoch from a small window just after the phase's
// activation and, when the requested count allows and the phase is long
// enough, a second from the middle half. Boundary plus interior exercises
// both just-activated and steady-state behavior. An open-ended phase is
// bounded at currentEpoch-2 to stay clear of unfinalized data.
func SampleEpochs(rng *rand.Rand, phase domain.ForkPhase, samples int, currentEpoch uint64) []uint64 {
	start := phase.StartEpoch
	end := phase.EndEpoch
	if phase.Ongoing || end > currentEpoch {
		if currentEpoch < 2 {
			return []uint64{start}
		}
		end = currentEpoch - 2
	}
	if end <= start {
		return []uint64{start}
	}

	span := end - start
	window := span
	if window > 10 {
		window = 10
	}
	boundary := start + 1 + uint64(rng.Intn(int(window)))
	if boundary > end {
		boundary = end
	}
	epochs := []uint64{boundary}

	if samples >= 2 && span > 20 {
		midStart := start + span/4
		midEnd := start + 3*span/4
		mid := midStart + uint64(rng.Intn(int(midEnd-midStart)+1))
		if mid != boundary {
			epochs = append(epochs, mid)
		}
	}

	if len(epochs) > samples {
		epochs = epochs[:samples]
	}
	return epochs
}
