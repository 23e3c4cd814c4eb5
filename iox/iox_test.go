package iox

import (
	"errors"
	"testing"
)

type spyCloser struct {
	closed bool
	err    error
	order  *[]string
	name   string
}

func (s *spyCloser) Close() error {
	s.closed = true
	if s.order != nil {
		*s.order = append(*s.order, s.name)
	}
	return s.err
}

func TestDiscardClose(t *testing.T) {
	s := &spyCloser{err: errors.New("ignored")}
	DiscardClose(s)
	if !s.closed {
		t.Fatal("Close was not called")
	}
}

func TestCloseFunc(t *testing.T) {
	s := &spyCloser{}
	fn := CloseFunc(s)
	if s.closed {
		t.Fatal("Close called before invoking returned func")
	}
	fn()
	if !s.closed {
		t.Fatal("Close was not called")
	}
}

func TestCloseAll_ReverseOrder(t *testing.T) {
	var order []string
	a := &spyCloser{name: "store", order: &order}
	b := &spyCloser{name: "dispatcher", order: &order}
	c := &spyCloser{name: "tape", order: &order}

	if err := CloseAll(a, nil, b, c); err != nil {
		t.Fatalf("close all: %v", err)
	}
	want := []string{"tape", "dispatcher", "store"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %q, want %q", i, order[i], want[i])
		}
	}
}

func TestCloseAll_JoinsErrors(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	a := &spyCloser{err: errA}
	b := &spyCloser{err: errB}
	ok := &spyCloser{}

	err := CloseAll(a, ok, b)
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("CloseAll error = %v, want both failures", err)
	}
	if !a.closed || !b.closed || !ok.closed {
		t.Error("every closer should be closed even after a failure")
	}
}
