package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"go.uber.org/zap"

	"beaconchain_verifier/internal/adapter/indexer"
	"beaconchain_verifier/internal/adapter/node"
	"beaconchain_verifier/internal/domain"
	"beaconchain_verifier/internal/fetch"
	"beaconchain_verifier/internal/handler"
	"beaconchain_verifier/internal/usecase"
)

const (
	validatorIdx = "1923"
	epochUnder   = uint64(200000) // capella
)

// mockIndexer serves the beaconcha.in-shaped endpoints the checks hit for a
// single capella epoch.
func mockIndexer() *httptest.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/validator/"+validatorIdx+"/balancehistory", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"status":"OK","data":[{"balance":32004123456,"epoch":200000,"validatorindex":1923}]}`)
	})

	mux.HandleFunc("/api/v2/ethereum/validators", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":[{"status":"active_online","balances":{"effective":32000000000,"current":32004123456}}]}`)
	})

	mux.HandleFunc("/api/v2/ethereum/validators/rewards-list", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":[{"attestation":{"total":14250,"head":{"reward":2500},"source":{"reward":5250},"target":{"reward":6500}}}]}`)
	})

	mux.HandleFunc("/api/v1/slot/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"status":"OK","data":{"proposer":98765,"status":"1","exec_block_number":19000000}}`)
	})

	mux.HandleFunc("/api/v1/epoch/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"status":"OK","data":{"finalized":true,"globalparticipationrate":0.99,"validatorscount":1048576}}`)
	})

	return httptest.NewServer(mux)
}

// mockBeaconNode serves the RPC side: per-slot states and blocks for epoch
// 200000 (slots 6400000..6400031), with one withdrawal at slot 6400005 and a
// missed slot at 6400007.
func mockBeaconNode() *httptest.Server {
	firstSlot := domain.EpochToFirstSlot(epochUnder)
	lastSlot := domain.EpochToLastSlot(epochUnder)

	mux := http.NewServeMux()

	mux.HandleFunc("/eth/v1/beacon/states/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		// eth/v1/beacon/states/{slot}/...
		slot := parts[4]
		w.Header().Set("Content-Type", "application/json")

		if strings.HasSuffix(r.URL.Path, "/finality_checkpoints") {
			io.WriteString(w, `{"data":{"finalized":{"epoch":"200005"},"current_justified":{"epoch":"200006"}}}`)
			return
		}

		balance := "32004123456"
		if slot == fmt.Sprintf("%d", lastSlot) {
			balance = "32004000000"
		}
		fmt.Fprintf(w, `{"data":{"index":"1923","balance":"%s","status":"active_ongoing","validator":{"effective_balance":"32000000000"}}}`, balance)
	})

	mux.HandleFunc("/eth/v2/beacon/blocks/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		// eth/v2/beacon/blocks/{slot}
		slot := parts[4]
		w.Header().Set("Content-Type", "application/json")

		if slot == fmt.Sprintf("%d", firstSlot+7) {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		withdrawals := "[]"
		if slot == fmt.Sprintf("%d", firstSlot+5) {
			withdrawals = `[{"index":"1","validator_index":"1923","address":"0x9b984d5a03980d8dc504773b3b6b5dbce90a2429","amount":"100000"}]`
		}
		fmt.Fprintf(w, `{"data":{"message":{"slot":"%s","proposer_index":"98765","body":{"execution_payload":{"withdrawals":%s}}}}}`, slot, withdrawals)
	})

	mux.HandleFunc("/eth/v1/beacon/rewards/attestations/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":{"total_rewards":[{"validator_index":"1923","head":"2500","source":"5250","target":"6500"}]}}`)
	})

	return httptest.NewServer(mux)
}

func buildRouter(t *testing.T, indexerURL string, providers []string) *chi.Mux {
	t.Helper()
	zap.ReplaceGlobals(zap.NewNop())

	fetcher := fetch.New(fetch.Config{
		Timeout:    5 * time.Second,
		MaxRetries: 2,
		Backoff:    time.Millisecond,
		Sleep:      func(time.Duration) {},
	})

	cache, err := node.NewBlockCache(64, time.Minute)
	if err != nil {
		t.Fatalf("NewBlockCache: %v", err)
	}

	ix := indexer.NewClient(fetcher, indexerURL, "test-key", 0)
	nd := node.NewClient(fetcher, providers, cache, 0)

	forks := domain.NewMainnetForkRegistry()
	checks := usecase.NewRegistry(ix, nd, forks)
	orch := usecase.NewOrchestrator(checks, forks)
	sweep := usecase.NewBalanceSweep(ix, nd)

	h := handler.NewHandler(orch, sweep, forks, providers, t.TempDir(), 2)
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func TestIntegration_VerifyEpoch_AllChecksMatch(t *testing.T) {
	ixSrv := mockIndexer()
	defer ixSrv.Close()
	ndSrv := mockBeaconNode()
	defer ndSrv.Close()

	r := buildRouter(t, ixSrv.URL, []string{ndSrv.URL})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/verify/1923/200000", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body=%s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Results []domain.VerificationResult `json:"results"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Results) != 7 {
		t.Fatalf("esperaba 7 resultados, got %d", len(resp.Results))
	}

	for _, res := range resp.Results {
		if res.Verdict != domain.VerdictMatch {
			t.Errorf("%s (%s): verdict = %s, want match (conclusion: %s)",
				res.TestID, res.TestName, res.Verdict, res.Conclusion)
		}
		if res.ForkPhase != "capella" {
			t.Errorf("%s: fork = %s, want capella", res.TestID, res.ForkPhase)
		}
	}
}

func TestIntegration_VerifyEpoch_WithdrawalReconciliation(t *testing.T) {
	ixSrv := mockIndexer()
	defer ixSrv.Close()
	ndSrv := mockBeaconNode()
	defer ndSrv.Close()

	r := buildRouter(t, ixSrv.URL, []string{ndSrv.URL})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/verify/1923/200000?tests=T5", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Results []domain.VerificationResult `json:"results"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(resp.Results))
	}

	res := resp.Results[0]
	if res.Verdict != domain.VerdictMatch {
		t.Fatalf("verdict = %s, want match (%s)", res.Verdict, res.Conclusion)
	}
	// One withdrawal of 100000 gwei; balance delta is 123456, so 23456 gwei
	// of residual rewards.
	if !strings.Contains(res.Conclusion, "1 withdrawal(s) totaling 100000 gwei") {
		t.Errorf("conclusion missing withdrawal total: %s", res.Conclusion)
	}
	if !strings.Contains(res.Conclusion, "residual: 23456 gwei") {
		t.Errorf("conclusion missing residual: %s", res.Conclusion)
	}
}

func TestIntegration_VerifyRange_DefinitionInference(t *testing.T) {
	ixSrv := mockIndexer()
	defer ixSrv.Close()
	ndSrv := mockBeaconNode()
	defer ndSrv.Close()

	r := buildRouter(t, ixSrv.URL, []string{ndSrv.URL})

	// Epoch 200000 has differing boundaries (the indexer value equals the
	// first slot); 200001 is quiet and matches both.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/verify/1923/range?start=200000&end=200001", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body=%s)", rec.Code, rec.Body.String())
	}

	var resp struct {
		Summary domain.RangeSummary        `json:"summary"`
		Epochs  []domain.EpochBalanceProbe `json:"epochs"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Epochs) != 2 {
		t.Fatalf("esperaba 2 epochs, got %d", len(resp.Epochs))
	}
	if got := resp.Epochs[0].BoundaryMatch(); got != "first" {
		t.Errorf("epoch 200000 match = %q, want first", got)
	}
	if !resp.Epochs[0].HasWithdrawal {
		t.Errorf("epoch 200000 should report a withdrawal (positive delta)")
	}
	if got := resp.Epochs[1].BoundaryMatch(); got != "both" {
		t.Errorf("epoch 200001 match = %q, want both", got)
	}
	if resp.Summary.Definition != "first-slot" {
		t.Errorf("definition = %q, want first-slot", resp.Summary.Definition)
	}
}

func TestIntegration_VerifyHistorical_ForkFilterRejected(t *testing.T) {
	ixSrv := mockIndexer()
	defer ixSrv.Close()
	ndSrv := mockBeaconNode()
	defer ndSrv.Close()

	r := buildRouter(t, ixSrv.URL, []string{ndSrv.URL})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/verify/historical?validator=1923&forks=nosuchfork", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestIntegration_VerifyEpoch_IndexerDown(t *testing.T) {
	downIx := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"status":"error: invalid api key"}`)
	}))
	defer downIx.Close()
	ndSrv := mockBeaconNode()
	defer ndSrv.Close()

	r := buildRouter(t, downIx.URL, []string{ndSrv.URL})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/verify/1923/200000?tests=T2", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: a failed source is a finding, not a server error", rec.Code)
	}

	var resp struct {
		Results []domain.VerificationResult `json:"results"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(resp.Results))
	}
	if resp.Results[0].Verdict != domain.VerdictInconclusive {
		t.Errorf("verdict = %s, want inconclusive", resp.Results[0].Verdict)
	}
	if resp.Results[0].Indexer.Err == "" {
		t.Errorf("esperaba error del indexer registrado, got ''")
	}
}

func TestIntegration_NodeFailover(t *testing.T) {
	ixSrv := mockIndexer()
	defer ixSrv.Close()

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer dead.Close()
	ndSrv := mockBeaconNode()
	defer ndSrv.Close()

	// The dead provider is first in order; every call must fall through to
	// the healthy one.
	r := buildRouter(t, ixSrv.URL, []string{dead.URL, ndSrv.URL})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/verify/1923/200000?tests=T1,T2,T6", nil)
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Results []domain.VerificationResult `json:"results"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	for _, res := range resp.Results {
		if res.Verdict != domain.VerdictMatch {
			t.Errorf("%s: verdict = %s, want match (%s)", res.TestID, res.Verdict, res.Conclusion)
		}
	}
}
