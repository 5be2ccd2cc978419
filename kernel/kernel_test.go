package kernel

import (
	"errors"
	"math"
	"testing"

	"github.com/dj-ccs/negentropic-kernel/config"
	"github.com/dj-ccs/negentropic-kernel/grid"
	"github.com/dj-ccs/negentropic-kernel/kernelerr"
	"github.com/dj-ccs/negentropic-kernel/numerics"
	"github.com/dj-ccs/negentropic-kernel/se3"
)

func testConfig(nx int) config.Config {
	var cfg config.Config
	cfg.Grid = config.GridConfig{Nx: nx, Ny: 1, Nz: 1}
	cfg.Precision = config.PrecisionConfig{Mode: config.PrecisionFixedQ1616}
	cfg.Integrator = config.IntegratorConfig{Default: config.IntegratorAutoByLoD, Escalate: false}
	cfg.Solvers = config.SolversConfig{HYD: true, REG: true, Torsion: true}
	cfg.Scheduler = config.SchedulerConfig{
		RegTickInterval:   128,
		RefineDistanceKm:  50,
		CoarsenDistanceKm: 75,
		RefineImportance:  0.5,
		CoarsenImportance: 0.3,
		BlendFrames:       30,
	}
	cfg.RNGSeed = 1
	cfg.DT = 3600
	cfg.Derived.CellCount = nx
	return cfg
}

func seedCells(g *grid.Grid, n int) {
	soil := numerics.SoilParams{KSat: 2.5e-5, ThetaR: 0.04, ThetaS: 0.42, Alpha: 0.5, N: 1.5}
	for x := 0; x < n; x++ {
		c := grid.NewCell(soil, "loam", 0, 10, 1, se3.FacePosZ, float64(x), 0)
		g.Activate(x, 0, 0, c)
	}
}

func newTestHandle(t *testing.T, nx int) uint64 {
	t.Helper()
	id, err := Create(testConfig(nx))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	h, err := lookup(id)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	seedCells(h.grid, nx)
	return id
}

func TestCreateRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(4)
	cfg.Grid.Nx = 0
	_, err := Create(cfg)
	if err == nil {
		t.Fatal("expected error for zero grid dimension")
	}
	if !errors.Is(err, kernelerr.ErrConfiguration) {
		t.Fatalf("err = %v, want kernelerr.ErrConfiguration", err)
	}
}

func TestCreateRejectsSchedulerCadenceMismatch(t *testing.T) {
	cfg := testConfig(4)
	cfg.Scheduler.RegTickInterval = 64
	_, err := Create(cfg)
	if err == nil {
		t.Fatal("expected configuration-mismatch error for reg_tick_interval != compiled cadence")
	}
	if !errors.Is(err, kernelerr.ErrConfiguration) {
		t.Fatalf("err = %v, want kernelerr.ErrConfiguration", err)
	}
}

func TestDestroyUnknownHandleFails(t *testing.T) {
	err := Destroy(999999)
	if err == nil {
		t.Fatal("expected error destroying unknown handle")
	}
	if !errors.Is(err, kernelerr.ErrInterface) {
		t.Fatalf("err = %v, want kernelerr.ErrInterface", err)
	}
}

func TestDestroyTwiceFails(t *testing.T) {
	id := newTestHandle(t, 4)
	if err := Destroy(id); err != nil {
		t.Fatalf("first destroy: %v", err)
	}
	if err := Destroy(id); err == nil {
		t.Fatal("expected error on second destroy of same handle")
	}
}

func TestStepUsesConfigDtWhenZero(t *testing.T) {
	id := newTestHandle(t, 4)
	defer Destroy(id)

	status, err := Step(id, 0)
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if status != StatusOK && status != StatusIntegratorFallback && status != StatusNonFatalNumeric {
		t.Fatalf("unexpected status %v", status)
	}
}

func TestStepUnknownHandleFails(t *testing.T) {
	_, err := Step(999999, 1)
	if err == nil {
		t.Fatal("expected error stepping unknown handle")
	}
	if !errors.Is(err, kernelerr.ErrInterface) {
		t.Fatalf("err = %v, want kernelerr.ErrInterface", err)
	}
}

func TestStepAdvancesTickAndPublishesHash(t *testing.T) {
	id := newTestHandle(t, 4)
	defer Destroy(id)

	h, err := lookup(id)
	if err != nil {
		t.Fatal(err)
	}
	before := h.double.Tick()
	if _, err := Step(id, 0); err != nil {
		t.Fatal(err)
	}
	if h.double.Tick() != before+1 {
		t.Fatalf("tick = %d, want %d", h.double.Tick(), before+1)
	}
}

func TestGetFieldReportsUnknownFieldName(t *testing.T) {
	id := newTestHandle(t, 4)
	defer Destroy(id)

	buf := make([]byte, 64)
	_, err := GetField(id, "not_a_real_field", buf)
	if err == nil {
		t.Fatal("expected error for unknown field name")
	}
	if !errors.Is(err, kernelerr.ErrInterface) {
		t.Fatalf("err = %v, want kernelerr.ErrInterface", err)
	}
}

func TestGetFieldReportsBufferTooSmall(t *testing.T) {
	id := newTestHandle(t, 4)
	defer Destroy(id)

	buf := make([]byte, 1)
	_, err := GetField(id, "theta", buf)
	if err == nil {
		t.Fatal("expected error for undersized buffer")
	}
	if !errors.Is(err, kernelerr.ErrInterface) {
		t.Fatalf("err = %v, want kernelerr.ErrInterface", err)
	}
}

func TestGetFieldRoundTripsAfterStep(t *testing.T) {
	id := newTestHandle(t, 4)
	defer Destroy(id)

	if _, err := Step(id, 0); err != nil {
		t.Fatal(err)
	}

	n, err := FieldLen(id, "theta")
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, n*4)
	written, err := GetField(id, "theta", buf)
	if err != nil {
		t.Fatal(err)
	}
	if written != n*4 {
		t.Fatalf("wrote %d bytes, want %d", written, n*4)
	}
}

func TestToBinaryThenResetFromBinaryRoundTrips(t *testing.T) {
	id := newTestHandle(t, 4)
	defer Destroy(id)

	if _, err := Step(id, 0); err != nil {
		t.Fatal(err)
	}

	size, err := GetBinarySize(id)
	if err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, size)
	if _, err := ToBinary(id, buf); err != nil {
		t.Fatal(err)
	}

	hashBefore, err := StateHash(id)
	if err != nil {
		t.Fatal(err)
	}

	if err := ResetFromBinary(id, buf); err != nil {
		t.Fatalf("ResetFromBinary: %v", err)
	}

	hashAfter, err := StateHash(id)
	if err != nil {
		t.Fatal(err)
	}
	if hashAfter != hashBefore {
		t.Errorf("state hash changed across a reset from its own binary: before=%d after=%d", hashBefore, hashAfter)
	}
}

func TestToBinaryBufferTooSmallFails(t *testing.T) {
	id := newTestHandle(t, 4)
	defer Destroy(id)

	buf := make([]byte, 1)
	_, err := ToBinary(id, buf)
	if err == nil {
		t.Fatal("expected error for undersized to_binary buffer")
	}
	if !errors.Is(err, kernelerr.ErrInterface) {
		t.Fatalf("err = %v, want kernelerr.ErrInterface", err)
	}
}

func TestResetFromBinaryRejectsCorruptBlob(t *testing.T) {
	id := newTestHandle(t, 4)
	defer Destroy(id)

	err := ResetFromBinary(id, []byte("not a snapshot"))
	if err == nil {
		t.Fatal("expected error for corrupt snapshot blob")
	}
	if !errors.Is(err, kernelerr.ErrIntegrity) {
		t.Fatalf("err = %v, want kernelerr.ErrIntegrity", err)
	}
}

func TestResetFromBinaryRejectsWrongSchemaVersion(t *testing.T) {
	id := newTestHandle(t, 4)
	defer Destroy(id)

	h, err := lookup(id)
	if err != nil {
		t.Fatal(err)
	}
	snap := h.toSnapshot()
	snap.SchemaVersion = 99
	err = ResetFromBinary(id, snap.ToBinary())
	if err == nil {
		t.Fatal("expected error for unsupported schema version")
	}
	if !errors.Is(err, kernelerr.ErrIntegrity) {
		t.Fatalf("err = %v, want kernelerr.ErrIntegrity", err)
	}
}

func TestPlaceAndRemoveInterventionRoundTrips(t *testing.T) {
	id := newTestHandle(t, 4)
	defer Destroy(id)

	if err := PlaceIntervention(id, InterventionTerracing, 1, 0, 0, nil); err != nil {
		t.Fatalf("PlaceIntervention: %v", err)
	}
	h, _ := lookup(id)
	wantSlope := math.Tan(5 * math.Pi / 180)
	if got := h.grid.At(1, 0, 0).MaxSlope; math.Abs(got-wantSlope) > 1e-9 {
		t.Fatalf("MaxSlope = %v, want %v", got, wantSlope)
	}

	if err := RemoveIntervention(id, 1, 0, 0); err != nil {
		t.Fatalf("RemoveIntervention: %v", err)
	}
	if h.grid.At(1, 0, 0).MaxSlope != 0 {
		t.Fatalf("MaxSlope after remove = %v, want 0", h.grid.At(1, 0, 0).MaxSlope)
	}
}

func TestPlaceInterventionAppliesEachKindsFixedRule(t *testing.T) {
	id := newTestHandle(t, 4)
	defer Destroy(id)
	h, _ := lookup(id)

	baseKSat := h.grid.At(0, 0, 0).Soil.KSat
	if err := PlaceIntervention(id, InterventionGravelMulch, 0, 0, 0, nil); err != nil {
		t.Fatalf("gravel_mulch: %v", err)
	}
	if got, want := h.grid.At(0, 0, 0).Soil.KSat, baseKSat*6.0; got != want {
		t.Fatalf("KSat after gravel_mulch = %v, want %v", got, want)
	}

	if err := PlaceIntervention(id, InterventionSwale, 1, 0, 0, nil); err != nil {
		t.Fatalf("swale: %v", err)
	}
	if got, want := h.grid.At(1, 0, 0).DepressionStorage, 1.5; got != want {
		t.Fatalf("DepressionStorage after swale = %v, want %v", got, want)
	}

	if err := PlaceIntervention(id, InterventionCheckDam, 2, 0, 0, nil); err != nil {
		t.Fatalf("check_dam: %v", err)
	}
	if got, want := h.grid.At(2, 0, 0).RetentionCapacity, 2.0; got != want {
		t.Fatalf("RetentionCapacity after check_dam = %v, want %v", got, want)
	}

	if err := PlaceIntervention(id, InterventionTreePlanting, 3, 0, 0, nil); err != nil {
		t.Fatalf("tree_planting: %v", err)
	}
	cell := h.grid.At(3, 0, 0)
	if cell.V <= 0 || cell.SOM <= 0 {
		t.Fatalf("expected tree_planting to raise V and SOM, got V=%v SOM=%v", cell.V, cell.SOM)
	}
}

func TestPlaceInterventionUnknownKindFails(t *testing.T) {
	id := newTestHandle(t, 4)
	defer Destroy(id)

	err := PlaceIntervention(id, "not_a_kind", 0, 0, 0, nil)
	if err == nil {
		t.Fatal("expected error for unknown intervention kind")
	}
	if !errors.Is(err, kernelerr.ErrInterface) {
		t.Fatalf("err = %v, want kernelerr.ErrInterface", err)
	}
}

func TestPlaceInterventionInactiveCellFails(t *testing.T) {
	id := newTestHandle(t, 4)
	defer Destroy(id)

	err := PlaceIntervention(id, InterventionTerracing, 9999, 0, 0, nil)
	if err == nil {
		t.Fatal("expected error placing intervention on an out-of-range cell")
	}
	if !errors.Is(err, kernelerr.ErrInterface) {
		t.Fatalf("err = %v, want kernelerr.ErrInterface", err)
	}
}

func TestQueryErrorFlagsStartsClean(t *testing.T) {
	id := newTestHandle(t, 4)
	defer Destroy(id)

	counters, err := QueryErrorFlags(id)
	if err != nil {
		t.Fatal(err)
	}
	if counters.Total != 0 {
		t.Fatalf("fresh handle has nonzero error total %d", counters.Total)
	}
}

func TestEventChainRecordsSessionStartAndStep(t *testing.T) {
	id := newTestHandle(t, 4)
	defer Destroy(id)

	h, err := lookup(id)
	if err != nil {
		t.Fatal(err)
	}
	if h.chain.NextEventID() != 1 {
		t.Fatalf("expected session_start to have been appended, next event id = %d", h.chain.NextEventID())
	}

	if _, err := Step(id, 0); err != nil {
		t.Fatal(err)
	}
	if h.chain.NextEventID() != 2 {
		t.Fatalf("expected simulation_step to have been appended, next event id = %d", h.chain.NextEventID())
	}
}

func TestDrainEventsClearsAfterRead(t *testing.T) {
	id := newTestHandle(t, 4)
	defer Destroy(id)

	records, err := DrainEvents(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].EventType != "session_start" {
		t.Fatalf("expected one buffered session_start record, got %+v", records)
	}

	if _, err := Step(id, 0); err != nil {
		t.Fatal(err)
	}
	if err := PlaceIntervention(id, InterventionTerracing, 1, 0, 0, nil); err != nil {
		t.Fatal(err)
	}

	records, err = DrainEvents(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected simulation_step + place_intervention buffered, got %d records", len(records))
	}

	records, err = DrainEvents(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Fatalf("expected buffer to be empty after drain, got %d records", len(records))
	}
}

func TestRecordCheckpointAndMilestoneAppendToChain(t *testing.T) {
	id := newTestHandle(t, 4)
	defer Destroy(id)
	if _, err := DrainEvents(id); err != nil {
		t.Fatal(err)
	}

	if err := RecordCheckpoint(id, 0, "checkpoint_0.bin", "deadbeef"); err != nil {
		t.Fatal(err)
	}
	if err := RecordMilestone(id, "vegetation_breakthrough", 0.31, 0); err != nil {
		t.Fatal(err)
	}

	records, err := DrainEvents(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[0].EventType != "checkpoint" || records[1].EventType != "milestone" {
		t.Fatalf("expected checkpoint then milestone, got %+v", records)
	}
}
