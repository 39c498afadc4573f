package protocol

import (
	"errors"
	"strings"
	"testing"

	"protoforge/internal/batch"
)

var testOpts = Options{
	Label:       "'protocolName': 'Base',",
	LabelFormat: "'protocolName': 'Iteration %d',",
}

func testBatch() batch.Batch {
	return batch.Batch{
		ColorA:      []float64{1.0, 2.0},
		ColorB:      []float64{3.0, 4.0},
		ColorC:      []float64{5.0, 6.0},
		DispensePos: []string{"A1", "A2"},
	}
}

const testBase = `metadata = {
    'protocolName': 'Base',
}

def run(ctx):
    # ITERATION DATA - WILL BE REPLACED
    BO_DATA = {}
    dispense(BO_DATA)
`

func TestPatch_ConcreteScenario(t *testing.T) {
	got, relabeled, err := Patch(testBase, testBatch(), 2, testOpts)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if !relabeled {
		t.Fatalf("expected label substitution")
	}
	want := `metadata = {
    'protocolName': 'Iteration 2',
}

def run(ctx):
    # ITERATION DATA - BO2
    BO_DATA = {colorA: [1.0, 2.0], colorB: [3.0, 4.0], colorC: [5.0, 6.0], DispensePos: ["A1","A2"]}
    dispense(BO_DATA)
`
	if got != want {
		t.Fatalf("patched text mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestPatch_Deterministic(t *testing.T) {
	first, _, err := Patch(testBase, testBatch(), 7, testOpts)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	second, _, err := Patch(testBase, testBatch(), 7, testOpts)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if first != second {
		t.Fatalf("patching is not deterministic")
	}
}

func TestPatch_UnrelatedLinesUntouched(t *testing.T) {
	got, _, err := Patch(testBase, testBatch(), 3, testOpts)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	baseLines := strings.Split(testBase, "\n")
	gotLines := strings.Split(got, "\n")
	if len(baseLines) != len(gotLines) {
		t.Fatalf("line count changed: %d != %d", len(baseLines), len(gotLines))
	}
	for i := range baseLines {
		changed := strings.Contains(baseLines[i], "ITERATION DATA") ||
			strings.Contains(baseLines[i], "BO_DATA") ||
			strings.Contains(baseLines[i], "protocolName")
		if !changed && baseLines[i] != gotLines[i] {
			t.Fatalf("line %d changed: %q -> %q", i, baseLines[i], gotLines[i])
		}
	}
}

func TestPatch_EmptyBatch(t *testing.T) {
	got, _, err := Patch(testBase, batch.Batch{}, 0, testOpts)
	if err != nil {
		t.Fatalf("patch empty batch: %v", err)
	}
	if !strings.Contains(got, "BO_DATA = {colorA: [], colorB: [], colorC: [], DispensePos: []}") {
		t.Fatalf("empty batch literal missing:\n%s", got)
	}
}

func TestPatch_RepatchIsIdempotent(t *testing.T) {
	// A patched script still carries a recognizable region; patching it again
	// with the same batch and iteration reproduces itself.
	once, _, err := Patch(testBase, testBatch(), 2, testOpts)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	opts := testOpts
	opts.Marker = "# ITERATION DATA - BO2"
	opts.Label = "'protocolName': 'Iteration 2',"
	twice, _, err := Patch(once, testBatch(), 2, opts)
	if err != nil {
		t.Fatalf("repatch: %v", err)
	}
	if once != twice {
		t.Fatalf("repatch changed the script")
	}
}

func TestPatch_MissingLabelIsNonFatal(t *testing.T) {
	base := strings.ReplaceAll(testBase, "'protocolName': 'Base',", "'protocolName': 'Other',")
	got, relabeled, err := Patch(base, testBatch(), 1, testOpts)
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if relabeled {
		t.Fatalf("label is absent; relabel must report false")
	}
	if !strings.Contains(got, "BO_DATA = {colorA: [1.0, 2.0]") {
		t.Fatalf("data substitution must still happen:\n%s", got)
	}
	if !strings.Contains(got, "'protocolName': 'Other',") {
		t.Fatalf("unknown label must stay untouched:\n%s", got)
	}
}

func TestParse_MarkerNotFound(t *testing.T) {
	if _, err := Parse("def run(ctx):\n    pass\n", testOpts); !errors.Is(err, ErrMarkerNotFound) {
		t.Fatalf("expected ErrMarkerNotFound, got %v", err)
	}
}

func TestParse_MarkerWithoutAssignment(t *testing.T) {
	base := "# ITERATION DATA - WILL BE REPLACED\n    pass\n"
	if _, err := Parse(base, testOpts); !errors.Is(err, ErrMarkerNotFound) {
		t.Fatalf("expected ErrMarkerNotFound, got %v", err)
	}
}

func TestParse_UnbalancedBraces(t *testing.T) {
	base := "# ITERATION DATA - WILL BE REPLACED\nBO_DATA = {colorA: [1.0]\nrun()\n"
	if _, err := Parse(base, testOpts); !errors.Is(err, ErrUnbalanced) {
		t.Fatalf("expected ErrUnbalanced, got %v", err)
	}
}

func TestParse_AmbiguousMarker(t *testing.T) {
	base := "# ITERATION DATA - WILL BE REPLACED\nBO_DATA = {}\n" +
		"# ITERATION DATA - WILL BE REPLACED\nBO_DATA = {}\n"
	if _, err := Parse(base, testOpts); !errors.Is(err, ErrAmbiguousMarker) {
		t.Fatalf("expected ErrAmbiguousMarker, got %v", err)
	}
}

func TestParse_NestedBracesInLiteral(t *testing.T) {
	base := "# ITERATION DATA - WILL BE REPLACED\n" +
		"BO_DATA = {'outer': {'inner': 1}, 'tricky': '}{'}\n" +
		"after()\n"
	tpl, err := Parse(base, testOpts)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	got, _, err := tpl.Render(batch.Batch{}, 5)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasSuffix(got, "DispensePos: []}\nafter()\n") {
		t.Fatalf("nested literal truncated the region:\n%s", got)
	}
}

func TestRender_InvalidBatch(t *testing.T) {
	tpl, err := Parse(testBase, testOpts)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	bad := batch.Batch{ColorA: []float64{1}, DispensePos: []string{"A1"}}
	if _, _, err := tpl.Render(bad, 0); err == nil {
		t.Fatalf("expected validation error for ragged batch")
	}
}
