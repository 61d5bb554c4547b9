package reactive

import (
	"strconv"
	"testing"
)

type todo struct {
	ID    int
	Title string
}

type todoRow struct {
	item  Signal[todo]
	index Signal[int]
}

func TestEachReusesResultsByKey(t *testing.T) {
	rt := newTestRuntime()
	list := NewSource(rt, []todo{{1, "write"}, {2, "test"}})

	created := 0
	rows := Each(list,
		func(t todo, _ int) int { return t.ID },
		func(item Signal[todo], index Signal[int]) *todoRow {
			created++
			return &todoRow{item: item, index: index}
		})

	var latest []*todoRow
	unsub := rows.Subscribe(func(v []*todoRow) { latest = v }, true)
	defer unsub()

	if created != 2 || len(latest) != 2 {
		t.Fatalf("expected 2 rows, got created=%d len=%d", created, len(latest))
	}
	first, second := latest[0], latest[1]

	list.Set([]todo{{2, "test more"}, {1, "write"}, {3, "ship"}})

	if created != 3 {
		t.Errorf("expected only the new key to create a row, got %d creations", created)
	}
	if latest[0] != second || latest[1] != first {
		t.Error("expected existing rows to be reused in their new order")
	}
	if got := second.item.(*Source[todo]).Peek().Title; got != "test more" {
		t.Errorf("expected updated item title, got %q", got)
	}
	if got := second.index.(*Source[int]).Peek(); got != 0 {
		t.Errorf("expected moved row index 0, got %d", got)
	}

	// Dropping a key forgets it; bringing it back creates a fresh row
	list.Set([]todo{{3, "ship"}})
	list.Set([]todo{{3, "ship"}, {1, "write"}})
	if created != 4 {
		t.Errorf("expected a re-added key to create a new row, got %d creations", created)
	}
	if latest[1] == first {
		t.Error("expected a new row for a key that was removed")
	}
}

func TestEachItemSignalsDriveRows(t *testing.T) {
	rt := newTestRuntime()
	list := NewSource(rt, []todo{{1, "a"}})

	var labels []string
	rows := Each(list,
		func(t todo, _ int) int { return t.ID },
		func(item Signal[todo], index Signal[int]) Unsubscribe {
			return NewEffect(rt, func() {
				labels = append(labels, strconv.Itoa(index.Value())+":"+item.Value().Title)
			})
		})
	unsub := rows.Subscribe(func([]Unsubscribe) {}, false)
	defer unsub()

	list.Set([]todo{{0, "z"}, {1, "b"}})

	// The new key's row is created first, then the moved row sees its item
	// and index change one after the other.
	want := []string{"0:a", "0:z", "0:b", "1:b"}
	if len(labels) != len(want) {
		t.Fatalf("expected %v, got %v", want, labels)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("label %d: expected %q, got %q", i, want[i], labels[i])
		}
	}
}

func TestEachColdReadsShareCache(t *testing.T) {
	rt := newTestRuntime()
	list := NewSource(rt, []string{"x", "y"})
	created := 0
	rows := Each(list,
		func(s string, _ int) string { return s },
		func(item Signal[string], _ Signal[int]) string {
			created++
			return "row-" + item.Value()
		})

	_ = rows.Value()
	out := rows.Value()

	if created != 2 {
		t.Errorf("expected rows cached across cold reads, got %d creations", created)
	}
	if len(out) != 2 || out[0] != "row-x" || out[1] != "row-y" {
		t.Errorf("unexpected rows %v", out)
	}
}

func TestDerive(t *testing.T) {
	rt := newTestRuntime()
	count := NewSource(rt, 7)
	label := Derive(count, strconv.Itoa)

	if label.Value() != "7" {
		t.Errorf("expected \"7\", got %q", label.Value())
	}

	var seen []string
	label.Subscribe(func(v string) { seen = append(seen, v) }, false)
	count.Set(8)
	if len(seen) != 1 || seen[0] != "8" {
		t.Errorf("expected [8], got %v", seen)
	}
	if label.runtime() != rt {
		t.Error("derived signal should share the source runtime")
	}
}
