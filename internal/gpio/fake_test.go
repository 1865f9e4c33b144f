package gpio

import (
	"errors"
	"testing"
)

func TestFakeIORead(t *testing.T) {
	f := NewFakeIO(Sample{Mode: true, FuelOK: true, Target: 50, Room: 20})

	s, err := f.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Mode || !s.FuelOK || s.High {
		t.Errorf("unexpected signals: %+v", s)
	}
	if s.Target != 50 || s.Room != 20 {
		t.Errorf("unexpected buses: target=%d room=%d", s.Target, s.Room)
	}

	f.SetGear(true)
	f.SetFuel(false)
	f.SetTarget(70)
	f.SetRoom(10)

	s, _ = f.Read()
	if !s.High || s.FuelOK || s.Target != 70 || s.Room != 10 {
		t.Errorf("setters not applied: %+v", s)
	}
}

func TestFakeIOReadError(t *testing.T) {
	f := NewFakeIO(Sample{})
	f.SetReadError(errors.New("simulated error"))

	_, err := f.Read()
	if err == nil {
		t.Fatal("expected error to be returned")
	}
	if err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}

	f.SetReadError(nil)
	if _, err := f.Read(); err != nil {
		t.Errorf("expected error to clear, got %v", err)
	}
}

func TestFakeIOWrite(t *testing.T) {
	f := NewFakeIO(Sample{})

	if _, ok := f.Last(); ok {
		t.Error("expected no writes initially")
	}

	f.Write(Outputs{Turbine: true, Temperature: 21})
	f.Write(Outputs{HighTempAlert: true, Temperature: 95})

	outs := f.Outputs()
	if len(outs) != 2 {
		t.Fatalf("expected 2 writes, got %d", len(outs))
	}
	last, ok := f.Last()
	if !ok || !last.HighTempAlert || last.Temperature != 95 {
		t.Errorf("unexpected last write: %+v", last)
	}

	f.SetWriteError(errors.New("bus fault"))
	if err := f.Write(Outputs{}); err == nil {
		t.Error("expected write error")
	}
	if len(f.Outputs()) != 2 {
		t.Error("failed write should not be recorded")
	}
}

func TestFakeIOWriteHistoryIsBounded(t *testing.T) {
	f := NewFakeIO(Sample{})

	for i := 0; i < MaxRecordedOutputs+10; i++ {
		if err := f.Write(Outputs{Temperature: uint8(i % 256)}); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	outs := f.Outputs()
	if len(outs) != MaxRecordedOutputs {
		t.Fatalf("expected %d recorded writes, got %d", MaxRecordedOutputs, len(outs))
	}
	if outs[0].Temperature != 10 {
		t.Errorf("expected oldest kept write to be the 11th, got temperature %d", outs[0].Temperature)
	}
	last, ok := f.Last()
	want := uint8((MaxRecordedOutputs + 9) % 256)
	if !ok || last.Temperature != want {
		t.Errorf("expected last temperature %d, got %+v", want, last)
	}
}

func TestFakeIOModeChanges(t *testing.T) {
	f := NewFakeIO(Sample{Mode: false})

	f.SetMode(false)
	select {
	case <-f.ModeChanges():
		t.Error("no notification expected when mode is unchanged")
	default:
	}

	// Two changes coalesce into one pending notification.
	f.SetMode(true)
	f.SetMode(false)
	select {
	case <-f.ModeChanges():
	default:
		t.Fatal("expected a notification")
	}
	select {
	case <-f.ModeChanges():
		t.Error("notifications should coalesce")
	default:
	}
}

func TestFakeIOClose(t *testing.T) {
	f := NewFakeIO(Sample{})

	if f.Closed() {
		t.Error("should not be closed initially")
	}
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed() {
		t.Error("should be closed after Close()")
	}
}

func TestBusValue(t *testing.T) {
	tests := []struct {
		vals []int
		want uint8
	}{
		{[]int{0, 0, 0, 0, 0}, 0},
		{[]int{1, 0, 1, 0, 0}, 5},
		{[]int{0, 1, 0, 0, 1, 1, 0}, 50},
		{[]int{1, 1, 1, 1, 1, 1, 1}, 127},
	}
	for _, tt := range tests {
		if got := busValue(tt.vals); got != tt.want {
			t.Errorf("busValue(%v) = %d, want %d", tt.vals, got, tt.want)
		}
	}
}

func TestBusLinesRoundTrip(t *testing.T) {
	for v := 0; v < 256; v++ {
		vals := busLines(uint8(v), TemperatureBits)
		if len(vals) != TemperatureBits {
			t.Fatalf("expected %d lines, got %d", TemperatureBits, len(vals))
		}
		if got := busValue(vals); got != uint8(v) {
			t.Errorf("round trip %d: got %d", v, got)
		}
	}
}

func TestFakeIOSetModeNoEdge(t *testing.T) {
	f := NewFakeIO(Sample{})
	f.SetModeNoEdge(true)

	s, _ := f.Read()
	if !s.Mode {
		t.Error("expected mode to be set")
	}
	select {
	case <-f.ModeChanges():
		t.Error("expected no notification")
	default:
	}
}
