package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"beaconchain_verifier/internal/domain"
)

// Meta describes one historical run for the report header.
type Meta struct {
	Validator    uint64    `json:"validator"`
	CurrentEpoch uint64    `json:"current_epoch"`
	Seed         int64     `json:"seed"`
	Providers    []string  `json:"rpc_urls"`
	Timestamp    time.Time `json:"timestamp"`
}

// WriteEpochReport writes the Markdown and JSON investigation files for a
// single-epoch run and returns their paths.
func WriteEpochReport(dir string, validator, epoch uint64, results []domain.VerificationResult) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}

	var b strings.Builder
	b.WriteString("# Cross-Verification Investigation Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "**Validator:** %d\n", validator)
	fmt.Fprintf(&b, "**Epoch:** %d\n\n", epoch)
	writeTally(&b, results)
	b.WriteString("---\n\n")
	for _, r := range results {
		b.WriteString(resultMarkdown(r))
	}

	base := fmt.Sprintf("investigation_v%d_e%d", validator, epoch)
	return writePair(dir, base, b.String(), results)
}

// WriteHistoricalReport writes the fork-stratified sweep report: a per-fork
// summary table followed by every result.
func WriteHistoricalReport(dir string, meta Meta, summaries []domain.PhaseSummary, results []domain.VerificationResult) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}

	var b strings.Builder
	b.WriteString("# Historical Fork-Phase Verification Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n", meta.Timestamp.UTC().Format(time.RFC3339))
	b.WriteString("**Network:** Ethereum Mainnet\n")
	fmt.Fprintf(&b, "**Validator:** %d\n", meta.Validator)
	fmt.Fprintf(&b, "**Current epoch:** ~%d\n", meta.CurrentEpoch)
	fmt.Fprintf(&b, "**Random seed:** %d\n\n", meta.Seed)

	b.WriteString("## Summary by Fork Phase\n\n")
	b.WriteString("| Fork | Epochs Tested | Tests | Passed | Failed | Inconclusive |\n")
	b.WriteString("|------|--------------|-------|--------|--------|-------------|\n")
	for _, s := range summaries {
		epochs := make([]string, len(s.EpochsTested))
		for i, e := range s.EpochsTested {
			epochs[i] = fmt.Sprintf("%d", e)
		}
		fmt.Fprintf(&b, "| %s | %s | %d | %d | %d | %d |\n",
			s.Name, strings.Join(epochs, ", "), s.TestsRun, s.Passed, s.Failed, s.Inconclusive)
	}

	b.WriteString("\n## Detailed Results\n\n")
	for _, r := range results {
		b.WriteString(resultMarkdown(r))
	}

	b.WriteString("## Notes\n\n")
	b.WriteString("- Restricted to Ethereum mainnet.\n")
	b.WriteString("- One epoch sampled near each fork boundary, one mid-phase.\n")
	b.WriteString("- Pre-Capella: no withdrawal tests. Pre-Bellatrix: no block proposer tests.\n")
	b.WriteString("- Old epochs may not be served by all public RPC providers.\n")

	payload := struct {
		Metadata  Meta                        `json:"metadata"`
		Summaries []domain.PhaseSummary       `json:"fork_summaries"`
		Results   []domain.VerificationResult `json:"results"`
	}{meta, summaries, results}

	mdPath := filepath.Join(dir, "historical_fork_test_report.md")
	if err := os.WriteFile(mdPath, []byte(b.String()), 0o644); err != nil {
		return "", "", err
	}
	jsonPath := filepath.Join(dir, "historical_fork_test_results.json")
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", "", err
	}
	if err := os.WriteFile(jsonPath, raw, 0o644); err != nil {
		return "", "", err
	}
	return mdPath, jsonPath, nil
}

// WriteRangeReport writes the balance-definition sweep files: one table row
// per epoch plus the match tally and the inferred definition.
func WriteRangeReport(dir string, summary domain.RangeSummary, probes []domain.EpochBalanceProbe) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", err
	}

	var b strings.Builder
	b.WriteString("# Balance Definition Sweep\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "**Validator:** %d\n", summary.Validator)
	fmt.Fprintf(&b, "**Epochs:** %d to %d\n\n", summary.StartEpoch, summary.EndEpoch)

	b.WriteString("| Epoch | Indexer | RPC first | RPC last | Delta | Match |\n")
	b.WriteString("|-------|---------|-----------|----------|-------|-------|\n")
	for _, p := range probes {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s |\n",
			p.Epoch,
			gweiCell(p.IndexerGwei), gweiCell(p.RPCFirstSlotGwei), gweiCell(p.RPCLastSlotGwei),
			deltaCell(p.FirstLastDelta), strings.ToUpper(p.BoundaryMatch()))
	}

	fmt.Fprintf(&b, "\n**Summary across %d epochs:**\n\n", summary.Epochs)
	fmt.Fprintf(&b, "- Epochs with withdrawals: %d\n", summary.WithdrawalEpochs)
	fmt.Fprintf(&b, "- Matched first slot only: %d\n", summary.FirstOnly)
	fmt.Fprintf(&b, "- Matched last slot only: %d\n", summary.LastOnly)
	fmt.Fprintf(&b, "- Matched both: %d\n", summary.Both)
	fmt.Fprintf(&b, "- Matched neither: %d\n", summary.Neither)
	fmt.Fprintf(&b, "\n**Inferred definition:** %s\n", summary.Definition)

	payload := struct {
		Summary domain.RangeSummary       `json:"summary"`
		Probes  []domain.EpochBalanceProbe `json:"epochs"`
	}{summary, probes}

	base := fmt.Sprintf("batch_verify_v%d_e%d_%d", summary.Validator, summary.StartEpoch, summary.EndEpoch)
	mdPath := filepath.Join(dir, base+".md")
	if err := os.WriteFile(mdPath, []byte(b.String()), 0o644); err != nil {
		return "", "", err
	}
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", "", err
	}
	jsonPath := filepath.Join(dir, base+".json")
	if err := os.WriteFile(jsonPath, raw, 0o644); err != nil {
		return "", "", err
	}
	return mdPath, jsonPath, nil
}

func gweiCell(v *uint64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d", *v)
}

func deltaCell(v *int64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d", *v)
}

func writePair(dir, base, markdown string, results []domain.VerificationResult) (string, string, error) {
	mdPath := filepath.Join(dir, base+".md")
	if err := os.WriteFile(mdPath, []byte(markdown), 0o644); err != nil {
		return "", "", err
	}
	raw, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", "", err
	}
	jsonPath := filepath.Join(dir, base+".json")
	if err := os.WriteFile(jsonPath, raw, 0o644); err != nil {
		return "", "", err
	}
	return mdPath, jsonPath, nil
}

func writeTally(b *strings.Builder, results []domain.VerificationResult) {
	var passed, failed, inconclusive int
	for _, r := range results {
		switch r.Verdict {
		case domain.VerdictMatch:
			passed++
		case domain.VerdictMismatch:
			failed++
		default:
			inconclusive++
		}
	}
	fmt.Fprintf(b, "**Summary:** %d passed, %d failed, %d inconclusive out of %d tests\n\n",
		passed, failed, inconclusive, len(results))
}

func resultMarkdown(r domain.VerificationResult) string {
	status := "INCONCLUSIVE"
	switch r.Verdict {
	case domain.VerdictMatch:
		status = "PASS"
	case domain.VerdictMismatch:
		status = "FAIL"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s: %s\n", r.TestID, r.TestName)
	fmt.Fprintf(&b, "**Status:** %s\n", status)
	fmt.Fprintf(&b, "**Timestamp:** %s\n", r.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "**Fork phase:** %s\n", r.ForkPhase)
	fmt.Fprintf(&b, "**Epoch:** %d | **Validator:** %d\n\n", r.Epoch, r.ValidatorIndex)
	fmt.Fprintf(&b, "**Description:** %s\n\n", r.Description)
	b.WriteString("### Data Comparison\n\n")
	b.WriteString("| Source | Endpoint | Value | Status |\n")
	b.WriteString("|--------|----------|-------|--------|\n")
	fmt.Fprintf(&b, "| indexer | `%s` | `%v` | %s |\n", r.Indexer.Endpoint, r.Indexer.Value, obsStatus(r.Indexer))
	fmt.Fprintf(&b, "| RPC | `%s` | `%v` | %s |\n\n", r.Node.Endpoint, r.Node.Value, obsStatus(r.Node))
	if r.Discrepancy != "" {
		fmt.Fprintf(&b, "### Discrepancy\n%s\n\n", r.Discrepancy)
	}
	fmt.Fprintf(&b, "### Conclusion\n%s\n\n---\n\n", r.Conclusion)
	return b.String()
}

func obsStatus(o domain.Observation) string {
	if o.Failed() {
		return "error: " + o.Err
	}
	return "ok"
}
