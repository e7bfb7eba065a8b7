package event

import (
	"sync"
	"testing"
)

func TestEmitDeliveredNextFrame(t *testing.T) {
	b := NewBus()
	var got []uint64
	Subscribe(b, func(e SelectionChanged) { got = append(got, e.Entity) })

	Emit(b, SelectionChanged{Entity: 1})
	b.DispatchAll()
	if len(got) != 0 {
		t.Fatalf("delivered before swap: %v", got)
	}
	if b.Pending() != 1 {
		t.Errorf("Pending = %d, want 1", b.Pending())
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("got %v, want [1]", got)
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 1 {
		t.Errorf("event delivered twice: %v", got)
	}
}

func TestDispatchFollowsFirstEmitOrder(t *testing.T) {
	b := NewBus()
	var seq []string
	Subscribe(b, func(StructureChanged) { seq = append(seq, "structure") })
	Subscribe(b, func(SelectionChanged) { seq = append(seq, "selection") })

	Emit(b, SelectionChanged{Entity: 2})
	Emit(b, StructureChanged{Reason: "create"})
	Emit(b, SelectionChanged{Entity: 3})
	b.SwapBuffers()
	b.DispatchAll()

	want := []string{"selection", "selection", "structure"}
	if len(seq) != len(want) {
		t.Fatalf("seq = %v, want %v", seq, want)
	}
	for i := range want {
		if seq[i] != want[i] {
			t.Errorf("seq[%d] = %s, want %s", i, seq[i], want[i])
		}
	}
}

func TestEmitFromHandlerDefersToNextFrame(t *testing.T) {
	b := NewBus()
	var structure int
	Subscribe(b, func(SelectionChanged) { Emit(b, StructureChanged{Reason: "select"}) })
	Subscribe(b, func(StructureChanged) { structure++ })

	Emit(b, SelectionChanged{Entity: 1})
	b.SwapBuffers()
	b.DispatchAll()
	if structure != 0 {
		t.Fatalf("structure = %d, want 0", structure)
	}
	b.SwapBuffers()
	b.DispatchAll()
	if structure != 1 {
		t.Errorf("structure = %d, want 1", structure)
	}
}

func TestConcurrentEmit(t *testing.T) {
	b := NewBus()
	var n int
	Subscribe(b, func(LogLine) { n++ })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				Emit(b, LogLine{Msg: "x"})
			}
		}()
	}
	wg.Wait()
	b.SwapBuffers()
	b.DispatchAll()
	if n != 400 {
		t.Errorf("delivered %d, want 400", n)
	}
}

func TestEmitNilBus(t *testing.T) {
	Emit[LogLine](nil, LogLine{})
}
