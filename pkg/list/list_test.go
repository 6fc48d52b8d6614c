package list

import "testing"

func TestPushBackFrontBack(t *testing.T) {
	l := NewList[int]()
	if l.Len() != 0 {
		t.Fatalf("expected empty list, got len %d", l.Len())
	}

	l.PushBack(1)
	l.PushBack(2)
	l.PushBack(3)

	if got := l.Front().Value; got != 1 {
		t.Fatalf("Front() = %d, want 1", got)
	}
	if got := l.Back().Value; got != 3 {
		t.Fatalf("Back() = %d, want 3", got)
	}
	if l.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", l.Len())
	}
}

func TestPushFrontOrder(t *testing.T) {
	l := NewList[string]()
	l.PushFront("b")
	l.PushFront("a")

	var got []string
	for e := l.Front(); e != nil; e = e.Next() {
		got = append(got, e.Value)
	}
	want := []string{"a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestRemove(t *testing.T) {
	l := NewList[int]()
	l.PushBack(1)
	mid := l.PushBack(2)
	l.PushBack(3)

	v := l.Remove(mid)
	if v != 2 {
		t.Fatalf("Remove() = %d, want 2", v)
	}
	if l.Len() != 2 {
		t.Fatalf("Len() after remove = %d, want 2", l.Len())
	}
	if l.Front().Next().Value != 3 {
		t.Fatalf("expected 3 to follow 1 after removing the middle element")
	}
}

func TestEmptyListFrontBackNil(t *testing.T) {
	l := NewList[int]()
	if l.Front() != nil || l.Back() != nil {
		t.Fatal("Front/Back of an empty list must be nil")
	}
}
