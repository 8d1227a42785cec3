package usecase

import (
	"fmt"
	"math/big"
	"strings"

	"beaconchain_verifier/internal/domain"
)

var gwei = big.NewInt(1_000_000_000)

// normalizeUnits applies the wei/gwei disambiguation heuristic: the indexer's
// documented unit is ambiguous and has been observed to vary, so when the raw
// value exceeds the reference by more than a factor of 1000 it is presumed
// wei and scaled down by 1e9. Best-effort guess at undocumented upstream
// behavior, not a contract.
func normalizeUnits(raw, reference *big.Int) (*big.Int, bool) {
	if raw == nil || reference == nil {
		return raw, false
	}
	limit := new(big.Int).Mul(reference, big.NewInt(1000))
	if raw.Cmp(limit) > 0 {
		return new(big.Int).Quo(raw, gwei), true
	}
	return raw, false
}

// classifyUnits compares an indexer value in its raw unit against a node
// value in gwei, normalizing first.
func classifyUnits(raw, refGwei *big.Int) (domain.Verdict, *big.Int, string) {
	norm, converted := normalizeUnits(raw, refGwei)
	detail := ""
	if converted {
		detail = fmt.Sprintf("indexer raw=%s presumed wei, normalized to %s gwei", raw, norm)
	}
	if norm != nil && norm.Cmp(refGwei) == 0 {
		return domain.VerdictMatch, norm, detail
	}
	return domain.VerdictMismatch, norm, detail
}

var statusSuffixes = []string{"_online", "_offline", "_ongoing", "_idle", "_slashed", "_exited"}

// statusRoot strips qualifying suffixes and keeps the root token: only the
// segment before the first qualifier (active, pending, exited, withdrawal)
// carries cross-source meaning.
func statusRoot(s string) string {
	for _, suf := range statusSuffixes {
		s = strings.TrimSuffix(s, suf)
	}
	if i := strings.Index(s, "_"); i >= 0 {
		return s[:i]
	}
	return s
}

func classifyStatus(a, b string) (domain.Verdict, string) {
	ra, rb := statusRoot(a), statusRoot(b)
	if ra == rb {
		return domain.VerdictMatch, fmt.Sprintf("status root %q matches: indexer=%q, rpc=%q", ra, a, b)
	}
	return domain.VerdictMismatch, fmt.Sprintf("indexer=%q vs rpc=%q", a, b)
}

// classifyBalance decides the balance verdict against both epoch boundaries.
// The two boundary states may legitimately differ when a withdrawal occurred
// mid-epoch, so equality with either one is a match. With only one boundary
// in hand an unequal value stays inconclusive: the untested boundary might
// have matched.
func classifyBalance(bc uint64, first, last *uint64) (verdict domain.Verdict, discrepancy, conclusion string) {
	switch {
	case first != nil && bc == *first:
		return domain.VerdictMatch, "",
			fmt.Sprintf("indexer matches first-slot balance (%d gwei). Definition: epoch-start.", bc)
	case last != nil && bc == *last:
		return domain.VerdictMatch, "",
			fmt.Sprintf("indexer matches last-slot balance (%d gwei). Definition: epoch-end.", bc)
	case first != nil && last != nil:
		return domain.VerdictMismatch,
			fmt.Sprintf("indexer=%d, rpc_first=%d, rpc_last=%d", bc, *first, *last),
			"indexer balance matches neither epoch boundary. Possible provider lag or mid-epoch state reference."
	case first != nil:
		return domain.VerdictInconclusive,
			fmt.Sprintf("indexer=%d, rpc_first=%d, last slot unavailable", bc, *first),
			"only first-slot balance available and it differs; last slot might have matched."
	case last != nil:
		return domain.VerdictInconclusive,
			fmt.Sprintf("indexer=%d, rpc_last=%d, first slot unavailable", bc, *last),
			"only last-slot balance available and it differs; first slot might have matched."
	default:
		return domain.VerdictInconclusive, "", "RPC unavailable at both epoch boundaries."
	}
}
