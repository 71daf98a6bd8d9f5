package sqldb

import (
	"testing"
	"time"

	"dqcheck/internal/storage"
)

func TestTimeValueScan(t *testing.T) {
	want := time.Date(2024, 5, 1, 10, 30, 0, 123000000, time.UTC)
	inputs := []any{
		want,
		want.In(time.FixedZone("CEST", 2*3600)),
		"2024-05-01T10:30:00.123Z",
		[]byte("2024-05-01 12:30:00.123+02:00"),
		"2024-05-01 10:30:00.123",
	}
	for _, in := range inputs {
		var v timeValue
		if err := v.Scan(in); err != nil {
			t.Fatalf("Scan(%v): %v", in, err)
		}
		if !v.t.Equal(want) {
			t.Errorf("Scan(%v) = %v, want %v", in, v.t, want)
		}
	}

	var v timeValue
	if err := v.Scan(nil); err != nil || !v.t.IsZero() {
		t.Errorf("Scan(nil) = %v, %v", v.t, err)
	}
	if err := v.Scan("yesterday"); err == nil {
		t.Error("Scan accepted an unparseable timestamp")
	}
	if err := v.Scan(42); err == nil {
		t.Error("Scan accepted an int")
	}
}

func TestInsertSQL(t *testing.T) {
	d := Dialect{Placeholder: AtP}
	if got := InsertSQL(d, "t", []string{"a", "b"}); got != "INSERT INTO t (a, b) VALUES (@p1, @p2)" {
		t.Fatalf("InsertSQL = %q", got)
	}
	d.Placeholder = Question
	if got := InsertSQL(d, "t", []string{"a"}); got != "INSERT INTO t (a) VALUES (?)" {
		t.Fatalf("InsertSQL = %q", got)
	}
}

func TestArgsMatchColumns(t *testing.T) {
	if got := len(runArgs(storage.RunRecord{})); got != len(RunColumns) {
		t.Fatalf("runArgs has %d values for %d columns", got, len(RunColumns))
	}
	if got := len(checkArgs("r", storage.CheckRecord{})); got != len(CheckColumns) {
		t.Fatalf("checkArgs has %d values for %d columns", got, len(CheckColumns))
	}
}
