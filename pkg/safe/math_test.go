package safe

import (
	"math"
	"testing"
)

func TestAdd(t *testing.T) {
	if v, err := Add(1, 2); err != nil || v != 3 {
		t.Errorf("Add(1,2) = %d, %v", v, err)
	}
	if _, err := Add(math.MaxUint64, 1); err == nil {
		t.Error("expected overflow")
	}
	if v, err := Add(math.MaxUint64, 0); err != nil || v != math.MaxUint64 {
		t.Errorf("Add(max,0) = %d, %v", v, err)
	}
}

func TestSub(t *testing.T) {
	if v, err := Sub(5, 3); err != nil || v != 2 {
		t.Errorf("Sub(5,3) = %d, %v", v, err)
	}
	if _, err := Sub(3, 5); err == nil {
		t.Error("expected underflow")
	}
	if v, err := Sub(5, 5); err != nil || v != 0 {
		t.Errorf("Sub(5,5) = %d, %v", v, err)
	}
}

func TestDivFloors(t *testing.T) {
	if v := Div(10, 3); v != 3 {
		t.Errorf("Div(10,3) = %d", v)
	}
	if v := Div(10, 2); v != 5 {
		t.Errorf("Div(10,2) = %d", v)
	}
	defer func() {
		if recover() == nil {
			t.Error("expected panic on division by zero")
		}
	}()
	Div(1, 0)
}
