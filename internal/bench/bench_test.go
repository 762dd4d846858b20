package bench

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/tripbench/tripbench/internal/engine"
	"github.com/tripbench/tripbench/internal/errors"
	"github.com/tripbench/tripbench/pkg/types"
)

// fakeEngine is a scripted engine for orchestrator tests. It returns
// canned results per fraction and records how it was driven.
type fakeEngine struct {
	kind        types.EngineKind
	openErr     error
	aggErrAt    float64
	resultsByFr map[float64]types.AggregationResult

	closeCount int
	closeLog   *[]types.EngineKind
	loadSeeds  []int64
}

type fakeSession struct {
	engine *fakeEngine
}

type fakeFrame struct {
	path     string
	fraction float64
}

func (f *fakeEngine) Kind() types.EngineKind { return f.kind }

func (f *fakeEngine) Open(ctx context.Context) (engine.Session, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return &fakeSession{engine: f}, nil
}

func (s *fakeSession) Load(ctx context.Context, path string, sample *types.SampleSpec) (engine.Frame, error) {
	fraction := 1.0
	if sample != nil {
		fraction = sample.Fraction
		s.engine.loadSeeds = append(s.engine.loadSeeds, sample.Seed)
	}
	return &fakeFrame{path: path, fraction: fraction}, nil
}

func (s *fakeSession) Aggregate(ctx context.Context, fr engine.Frame) (types.AggregationResult, error) {
	ff := fr.(*fakeFrame)
	if s.engine.aggErrAt != 0 && s.engine.aggErrAt == ff.fraction {
		return nil, errors.NewEngineError(errors.CodeExecutionFailed,
			fmt.Sprintf("scripted failure at fraction %g", ff.fraction), nil)
	}
	return s.engine.resultsByFr[ff.fraction], nil
}

func (s *fakeSession) RowCount(ctx context.Context, fr engine.Frame) (int64, error) {
	ff := fr.(*fakeFrame)
	return s.engine.resultsByFr[ff.fraction].TotalCount(), nil
}

func (s *fakeSession) Close() error {
	s.engine.closeCount++
	if s.engine.closeLog != nil {
		*s.engine.closeLog = append(*s.engine.closeLog, s.engine.kind)
	}
	return nil
}

func (f *fakeFrame) Source() string { return f.path }

type recordingSink struct {
	labels []string
	err    error
}

func (s *recordingSink) WriteResult(label string, result types.AggregationResult) error {
	s.labels = append(s.labels, label)
	return s.err
}

func writeProbeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trips.csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create fixture: %v", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(types.CSVColumns); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if err := w.Write([]string{"1", "2024-03-01 08:00:00", "2024-03-01 08:20:00", "1", "2.0", "12.50", "1.00", "15.50"}); err != nil {
		t.Fatalf("write row: %v", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatalf("flush fixture: %v", err)
	}
	return path
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func sharedResult() types.AggregationResult {
	return types.AggregationResult{
		{Hour: 8, AvgFare: 12.5, Count: 100},
		{Hour: 9, AvgFare: 14.0, Count: 50},
	}
}

func TestRunFullMatrix(t *testing.T) {
	results := map[float64]types.AggregationResult{0.5: sharedResult(), 1.0: sharedResult()}
	localEng := &fakeEngine{kind: types.EngineLocal, resultsByFr: results}
	partEng := &fakeEngine{kind: types.EnginePartitioned, resultsByFr: results}
	sink := &recordingSink{}

	runner := NewRunner([]engine.Engine{localEng, partEng}, Options{
		DatasetPath: writeProbeCSV(t),
		Fractions:   []float64{0.5, 1.0},
		Tolerance:   1e-6,
		Sink:        sink,
	}, quietLogger())

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(report.Cells) != 4 {
		t.Errorf("cells = %d, want 4", len(report.Cells))
	}
	if len(report.Timings) != 8 {
		t.Errorf("timing records = %d, want 8 (load+aggregate per cell)", len(report.Timings))
	}
	if !report.Consistent() {
		t.Errorf("unexpected violations: %v", report.Violations)
	}
	if len(report.ComparedFractions) != 2 {
		t.Errorf("compared fractions = %v, want both", report.ComparedFractions)
	}
	if len(sink.labels) != 4 {
		t.Errorf("sink received %d results, want 4", len(sink.labels))
	}
	// Cell order: fractions outer, engines inner in declared order.
	wantOrder := []types.EngineKind{types.EngineLocal, types.EnginePartitioned, types.EngineLocal, types.EnginePartitioned}
	for i, cell := range report.Cells {
		if cell.Engine != wantOrder[i] {
			t.Errorf("cell %d engine = %s, want %s", i, cell.Engine, wantOrder[i])
		}
	}
	if localEng.closeCount != 1 || partEng.closeCount != 1 {
		t.Errorf("close counts = %d/%d, want 1/1", localEng.closeCount, partEng.closeCount)
	}
}

func TestUnavailableEngineSkipsItsCells(t *testing.T) {
	results := map[float64]types.AggregationResult{0.5: sharedResult(), 1.0: sharedResult()}
	localEng := &fakeEngine{kind: types.EngineLocal, resultsByFr: results}
	partEng := &fakeEngine{
		kind:    types.EnginePartitioned,
		openErr: errors.NewEngineError(errors.CodeEngineUnavailable, "no store", nil),
	}

	runner := NewRunner([]engine.Engine{localEng, partEng}, Options{
		DatasetPath: writeProbeCSV(t),
		Fractions:   []float64{0.5, 1.0},
		Tolerance:   1e-6,
	}, quietLogger())

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(report.Cells) != 4 {
		t.Fatalf("cells = %d, want 4", len(report.Cells))
	}
	var localOK, partFailed int
	for _, cell := range report.Cells {
		switch cell.Engine {
		case types.EngineLocal:
			if cell.Succeeded() {
				localOK++
			}
		case types.EnginePartitioned:
			if !cell.Succeeded() && errors.GetCode(cell.Err) == errors.CodeEngineUnavailable {
				partFailed++
			}
		}
	}
	if localOK != 2 {
		t.Errorf("local succeeded in %d cells, want 2", localOK)
	}
	if partFailed != 2 {
		t.Errorf("partitioned marked unavailable in %d cells, want 2", partFailed)
	}
	if len(report.ComparedFractions) != 0 {
		t.Errorf("consistency ran at %v despite one engine down", report.ComparedFractions)
	}
	if partEng.closeCount != 0 {
		t.Errorf("unopened engine closed %d times", partEng.closeCount)
	}
}

func TestCellFailureIsIsolated(t *testing.T) {
	results := map[float64]types.AggregationResult{0.5: sharedResult(), 1.0: sharedResult()}
	localEng := &fakeEngine{kind: types.EngineLocal, resultsByFr: results}
	partEng := &fakeEngine{kind: types.EnginePartitioned, resultsByFr: results, aggErrAt: 0.5}

	runner := NewRunner([]engine.Engine{localEng, partEng}, Options{
		DatasetPath: writeProbeCSV(t),
		Fractions:   []float64{0.5, 1.0},
		Tolerance:   1e-6,
	}, quietLogger())

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if got := len(report.FailedCells()); got != 1 {
		t.Fatalf("failed cells = %d, want 1", got)
	}
	failed := report.FailedCells()[0]
	if failed.Engine != types.EnginePartitioned || failed.Fraction != 0.5 {
		t.Errorf("wrong failed cell: %s/%g", failed.Engine, failed.Fraction)
	}
	// The later cell on the same engine still ran.
	if len(report.ComparedFractions) != 1 || report.ComparedFractions[0] != 1.0 {
		t.Errorf("compared fractions = %v, want [1]", report.ComparedFractions)
	}
}

func TestConsistencyViolationDetected(t *testing.T) {
	localRes := sharedResult()
	partRes := types.AggregationResult{
		{Hour: 8, AvgFare: 12.5, Count: 100},
		{Hour: 9, AvgFare: 14.5, Count: 50},
	}
	localEng := &fakeEngine{kind: types.EngineLocal, resultsByFr: map[float64]types.AggregationResult{1.0: localRes}}
	partEng := &fakeEngine{kind: types.EnginePartitioned, resultsByFr: map[float64]types.AggregationResult{1.0: partRes}}

	runner := NewRunner([]engine.Engine{localEng, partEng}, Options{
		DatasetPath: writeProbeCSV(t),
		Fractions:   []float64{1.0},
		Tolerance:   1e-6,
	}, quietLogger())

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Consistent() {
		t.Fatal("expected a consistency violation")
	}
	if len(report.Violations) != 1 {
		t.Fatalf("violations = %d, want 1", len(report.Violations))
	}
	v := report.Violations[0]
	if v.Kind != ViolationValueDrift || v.Hour != 9 {
		t.Errorf("violation = %+v, want value drift at hour 9", v)
	}
}

func TestHourSetMismatchDetected(t *testing.T) {
	localRes := sharedResult()
	partRes := types.AggregationResult{{Hour: 8, AvgFare: 12.5, Count: 100}}
	violations := compareResults(1.0, localRes, partRes, 1e-6)
	if len(violations) != 1 {
		t.Fatalf("violations = %d, want 1", len(violations))
	}
	if violations[0].Kind != ViolationMissingHour || violations[0].Hour != 9 {
		t.Errorf("violation = %+v, want missing hour 9", violations[0])
	}
}

func TestSinkErrorDoesNotFailCell(t *testing.T) {
	results := map[float64]types.AggregationResult{1.0: sharedResult()}
	localEng := &fakeEngine{kind: types.EngineLocal, resultsByFr: results}
	partEng := &fakeEngine{kind: types.EnginePartitioned, resultsByFr: results}
	sink := &recordingSink{err: errors.NewSinkError("disk full", nil)}

	runner := NewRunner([]engine.Engine{localEng, partEng}, Options{
		DatasetPath: writeProbeCSV(t),
		Fractions:   []float64{1.0},
		Tolerance:   1e-6,
		Sink:        sink,
	}, quietLogger())

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, cell := range report.Cells {
		if !cell.Succeeded() {
			t.Errorf("cell %s/%g failed because of the sink: %v", cell.Engine, cell.Fraction, cell.Err)
		}
		if cell.SinkErr == nil {
			t.Errorf("cell %s/%g did not record the sink error", cell.Engine, cell.Fraction)
		}
	}
	if len(report.ComparedFractions) != 1 {
		t.Errorf("consistency skipped: compared = %v", report.ComparedFractions)
	}
}

func TestZeroSeedSharedAcrossEngines(t *testing.T) {
	results := map[float64]types.AggregationResult{0.25: sharedResult(), 0.5: sharedResult()}
	localEng := &fakeEngine{kind: types.EngineLocal, resultsByFr: results}
	partEng := &fakeEngine{kind: types.EnginePartitioned, resultsByFr: results}

	runner := NewRunner([]engine.Engine{localEng, partEng}, Options{
		DatasetPath: writeProbeCSV(t),
		Fractions:   []float64{0.25, 0.5},
		Seed:        0,
		Tolerance:   1e-6,
	}, quietLogger())

	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	seeds := append(append([]int64(nil), localEng.loadSeeds...), partEng.loadSeeds...)
	if len(seeds) != 4 {
		t.Fatalf("recorded %d sample seeds, want one per sampled cell (4)", len(seeds))
	}
	if seeds[0] == 0 {
		t.Fatal("zero seed was passed through instead of being resolved")
	}
	for i, seed := range seeds {
		if seed != seeds[0] {
			t.Errorf("seed %d = %d, differs from %d; both engines must sample identically", i, seed, seeds[0])
		}
	}
}

func TestExplicitSeedPassedThrough(t *testing.T) {
	results := map[float64]types.AggregationResult{0.5: sharedResult()}
	localEng := &fakeEngine{kind: types.EngineLocal, resultsByFr: results}

	runner := NewRunner([]engine.Engine{localEng}, Options{
		DatasetPath: writeProbeCSV(t),
		Fractions:   []float64{0.5},
		Seed:        1234,
		Tolerance:   1e-6,
	}, quietLogger())

	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(localEng.loadSeeds) != 1 || localEng.loadSeeds[0] != 1234 {
		t.Errorf("seeds = %v, want [1234]", localEng.loadSeeds)
	}
}

func TestSessionsCloseInDeclaredOrder(t *testing.T) {
	results := map[float64]types.AggregationResult{1.0: sharedResult()}
	var closeLog []types.EngineKind
	localEng := &fakeEngine{kind: types.EngineLocal, resultsByFr: results, closeLog: &closeLog}
	partEng := &fakeEngine{kind: types.EnginePartitioned, resultsByFr: results, closeLog: &closeLog}

	runner := NewRunner([]engine.Engine{partEng, localEng}, Options{
		DatasetPath: writeProbeCSV(t),
		Fractions:   []float64{1.0},
		Tolerance:   1e-6,
	}, quietLogger())

	if _, err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []types.EngineKind{types.EnginePartitioned, types.EngineLocal}
	if len(closeLog) != len(want) {
		t.Fatalf("close log = %v, want %v", closeLog, want)
	}
	for i := range want {
		if closeLog[i] != want[i] {
			t.Fatalf("close log = %v, want declared order %v", closeLog, want)
		}
	}
}

func TestMissingDatasetAbortsBeforeMatrix(t *testing.T) {
	localEng := &fakeEngine{kind: types.EngineLocal}
	runner := NewRunner([]engine.Engine{localEng}, Options{
		DatasetPath: filepath.Join(t.TempDir(), "absent.csv"),
		Fractions:   []float64{1.0},
		Tolerance:   1e-6,
	}, quietLogger())

	_, err := runner.Run(context.Background())
	if errors.GetCode(err) != errors.CodeFileMissing {
		t.Fatalf("code = %q, want %q", errors.GetCode(err), errors.CodeFileMissing)
	}
	if localEng.closeCount != 0 {
		t.Errorf("engine touched despite preflight failure")
	}
}

func TestInvalidFractionAbortsBeforeMatrix(t *testing.T) {
	localEng := &fakeEngine{kind: types.EngineLocal}
	runner := NewRunner([]engine.Engine{localEng}, Options{
		DatasetPath: writeProbeCSV(t),
		Fractions:   []float64{1.5},
		Tolerance:   1e-6,
	}, quietLogger())

	_, err := runner.Run(context.Background())
	if errors.GetCode(err) != errors.CodeSampleInvalid {
		t.Fatalf("code = %q, want %q", errors.GetCode(err), errors.CodeSampleInvalid)
	}
}
