package ephem

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"
)

// testVectors builds n state vectors one minute apart starting at 2024-001T12:00.
func testVectors(n int) []StateVector {
	vs := make([]StateVector, n)
	for i := range vs {
		vs[i] = StateVector{
			Epoch: fmt.Sprintf("2024-001T12:%02d:00.000Z", i),
			X:     Km(6000 + float64(i)),
			Y:     Km(0),
			Z:     Km(0),
			XDot:  KmPerSec(0),
			YDot:  KmPerSec(7.5),
			ZDot:  KmPerSec(0),
		}
	}
	return vs
}

func mustNew(t *testing.T, n int) *Ephemeris {
	t.Helper()
	e, err := New(testVectors(n), Sections{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return e
}

func TestParseEpoch(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2024-001T12:00:00.000Z", time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), false},
		{"2024-060T00:00:00.000Z", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), false},
		{"2023-365T23:59:59.500Z", time.Date(2023, 12, 31, 23, 59, 59, 500e6, time.UTC), false},
		{"2024-047T06:30:00Z", time.Date(2024, 2, 16, 6, 30, 0, 0, time.UTC), false},
		{"2024-02-16T06:30:00Z", time.Time{}, true},
		{"garbage", time.Time{}, true},
		{"", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEpoch(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedEpoch) {
					t.Errorf("err = %v, want ErrMalformedEpoch", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseEpoch(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatEpoch_RoundTrip(t *testing.T) {
	s := "2024-047T06:30:12.250Z"
	ts, err := ParseEpoch(s)
	if err != nil {
		t.Fatalf("ParseEpoch: %v", err)
	}
	if got := FormatEpoch(ts); got != s {
		t.Errorf("FormatEpoch = %q, want %q", got, s)
	}
}

func TestEpochClock(t *testing.T) {
	tests := []struct {
		in      string
		hour    int
		minute  int
		wantErr bool
	}{
		{"2024-001T12:00:00.000Z", 12, 0, false},
		{"2024-047T06:45:00.000Z", 6, 45, false},
		{"2024-047TXX:45:00.000Z", 0, 0, true},
		{"2024-047T06:YY:00.000Z", 0, 0, true},
		{"2024-047T06", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h, m, err := EpochClock(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedEpoch) {
					t.Errorf("err = %v, want ErrMalformedEpoch", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if h != tt.hour || m != tt.minute {
				t.Errorf("EpochClock = %d:%d, want %d:%d", h, m, tt.hour, tt.minute)
			}
		})
	}
}

func TestQuantityValue(t *testing.T) {
	if v, err := (Quantity{Text: " -4642.5 ", Units: UnitsKm}).Value(); err != nil || v != -4642.5 {
		t.Errorf("Value = %v, %v; want -4642.5, nil", v, err)
	}
	for _, text := range []string{"n/a", "", "NaN", "nan", "Inf", "+Inf", "-Inf", "infinity", "1e999"} {
		if v, err := (Quantity{Text: text}).Value(); !errors.Is(err, ErrMalformedField) {
			t.Errorf("Value(%q) = %v, %v; want ErrMalformedField", text, v, err)
		}
	}
}

func TestStateVector_VelocityNamesBadField(t *testing.T) {
	sv := testVectors(1)[0]
	sv.YDot = Quantity{Text: "oops"}

	_, err := sv.Velocity()
	if !errors.Is(err, ErrMalformedField) {
		t.Fatalf("err = %v, want ErrMalformedField", err)
	}
	if got := err.Error(); !strings.HasPrefix(got, "Y_DOT") {
		t.Errorf("error %q should name Y_DOT", got)
	}
}

func TestNew_Validation(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if _, err := New(nil, Sections{}); !errors.Is(err, ErrInvalidData) {
			t.Errorf("err = %v, want ErrInvalidData", err)
		}
	})

	t.Run("duplicate epoch", func(t *testing.T) {
		vs := testVectors(3)
		vs[2].Epoch = vs[1].Epoch
		if _, err := New(vs, Sections{}); !errors.Is(err, ErrInvalidData) {
			t.Errorf("err = %v, want ErrInvalidData", err)
		}
	})

	t.Run("out of order", func(t *testing.T) {
		vs := testVectors(3)
		vs[0], vs[1] = vs[1], vs[0]
		if _, err := New(vs, Sections{}); !errors.Is(err, ErrInvalidData) {
			t.Errorf("err = %v, want ErrInvalidData", err)
		}
	})

	t.Run("bad epoch", func(t *testing.T) {
		vs := testVectors(2)
		vs[1].Epoch = "tomorrow"
		if _, err := New(vs, Sections{}); !errors.Is(err, ErrInvalidData) {
			t.Errorf("err = %v, want ErrInvalidData", err)
		}
	})

	t.Run("malformed numeric field is accepted", func(t *testing.T) {
		vs := testVectors(2)
		vs[1].X = Quantity{Text: "???"}
		if _, err := New(vs, Sections{}); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestNew_CopiesInput(t *testing.T) {
	vs := testVectors(3)
	sections := Sections{
		Header:   []Field{{Name: "ORIGINATOR", Value: "JSC"}},
		Metadata: []Field{{Name: "OBJECT_NAME", Value: "ISS"}},
		Comments: []string{"first", "second"},
	}
	e, err := New(vs, sections)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if !reflect.DeepEqual(e.Vectors(), vs) {
		t.Error("Vectors() differs from input")
	}
	if !reflect.DeepEqual(e.Sections(), sections) {
		t.Error("Sections() differs from input")
	}

	vs[0].Epoch = "mutated"
	sections.Comments[0] = "mutated"
	if e.At(0).Epoch == "mutated" || e.Sections().Comments[0] == "mutated" {
		t.Error("Ephemeris must not alias caller slices")
	}
}

func TestList(t *testing.T) {
	e := mustNew(t, 5)

	tests := []struct {
		name          string
		offset, limit int
		wantPositions []int
		wantErr       error
	}{
		{"defaults", 0, NoLimit, []int{0, 1, 2, 3, 4}, nil},
		{"window", 1, 2, []int{1, 2}, nil},
		{"tail", 3, NoLimit, []int{3, 4}, nil},
		{"exact end", 3, 2, []int{3, 4}, nil},
		{"zero limit", 2, 0, []int{}, nil},
		{"offset at end", 5, NoLimit, []int{}, nil},
		{"past end", 4, 2, nil, ErrOutOfRange},
		{"negative offset", -1, 1, nil, ErrOutOfRange},
		{"offset beyond", 6, NoLimit, nil, ErrOutOfRange},
		{"negative limit", 0, -2, nil, ErrOutOfRange},
		{"huge limit", 1, math.MaxInt, nil, ErrOutOfRange},
		{"huge limit at end", 5, math.MaxInt, nil, ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.List(tt.offset, tt.limit)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.wantPositions) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.wantPositions))
			}
			for i, entry := range got {
				if entry.Position != tt.wantPositions[i] {
					t.Errorf("entry %d position = %d, want %d", i, entry.Position, tt.wantPositions[i])
				}
				pos, err := e.Resolve(entry.Epoch)
				if err != nil || pos != entry.Position {
					t.Errorf("Resolve(%s) = %d, %v; want %d", entry.Epoch, pos, err, entry.Position)
				}
			}
		})
	}
}

func TestList_AllValidWindowsExactLength(t *testing.T) {
	const n = 7
	e := mustNew(t, n)
	for offset := 0; offset <= n; offset++ {
		for limit := 0; offset+limit <= n; limit++ {
			got, err := e.List(offset, limit)
			if err != nil {
				t.Fatalf("List(%d, %d): %v", offset, limit, err)
			}
			if len(got) != limit {
				t.Fatalf("List(%d, %d) len = %d", offset, limit, len(got))
			}
			for i := 1; i < len(got); i++ {
				if got[i].Position != got[i-1].Position+1 {
					t.Fatalf("List(%d, %d) not contiguous: %v", offset, limit, got)
				}
			}
		}
	}
}

func TestResolveAndGet(t *testing.T) {
	e := mustNew(t, 3)

	sv, err := e.Get("2024-001T12:01:00.000Z")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sv.X.Text != "6001" {
		t.Errorf("X = %q, want 6001", sv.X.Text)
	}

	if _, err := e.Resolve("2099-001T00:00:00.000Z"); !errors.Is(err, ErrEpochNotFound) {
		t.Errorf("err = %v, want ErrEpochNotFound", err)
	}
	// Same instant, different text: exact match only.
	if _, err := e.Resolve("2024-001T12:01:00Z"); !errors.Is(err, ErrEpochNotFound) {
		t.Errorf("err = %v, want ErrEpochNotFound", err)
	}
}

func TestParseWindow(t *testing.T) {
	tests := []struct {
		offset, limit       string
		wantOffset, wantLim int
		wantErr             error
	}{
		{"", "", 0, NoLimit, nil},
		{"2", "", 2, NoLimit, nil},
		{"", "3", 0, 3, nil},
		{" 1 ", "0", 1, 0, nil},
		{"abc", "", 0, 0, ErrInvalidParameter},
		{"", "1.5", 0, 0, ErrInvalidParameter},
		{"-1", "", 0, 0, ErrOutOfRange},
		{"", "-4", 0, 0, ErrOutOfRange},
		{"1", strconv.Itoa(math.MaxInt), 1, math.MaxInt, nil},
		{"", "99999999999999999999", 0, 0, ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.offset+"/"+tt.limit, func(t *testing.T) {
			off, lim, err := ParseWindow(tt.offset, tt.limit)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if off != tt.wantOffset || lim != tt.wantLim {
				t.Errorf("ParseWindow = %d, %d; want %d, %d", off, lim, tt.wantOffset, tt.wantLim)
			}
		})
	}
}

func TestParseWindow_HugeLimitRejectedByList(t *testing.T) {
	e := mustNew(t, 5)
	off, lim, err := ParseWindow("1", strconv.Itoa(math.MaxInt))
	if err != nil {
		t.Fatalf("ParseWindow: %v", err)
	}
	if _, err := e.List(off, lim); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("List(%d, %d) err = %v, want ErrOutOfRange", off, lim, err)
	}
}
