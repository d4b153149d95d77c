package resource

import (
	"errors"
	"sync"
	"testing"

	"github.com/wippyai/refptr/shared"
)

type cell struct {
	name string
}

func ownCell(t *testing.T, b *LocalBackend[cell], name string) Handle {
	t.Helper()
	s := shared.Make(cell{name: name})
	h, err := b.Own(&s)
	if err != nil {
		t.Fatalf("Own failed: %v", err)
	}
	if s.Valid() {
		t.Fatal("Own should move the handle out")
	}
	return h
}

func TestLocalBackend_Basic(t *testing.T) {
	b := NewLocalBackend[cell](0)

	handle := ownCell(t, b, "test value")
	if handle == 0 {
		t.Fatal("Expected non-zero handle")
	}

	p, ok := b.Get(handle)
	if !ok {
		t.Fatal("Get failed")
	}
	if p.name != "test value" {
		t.Fatalf("Expected 'test value', got %v", p.name)
	}

	e, err := b.Drop(handle)
	if err != nil {
		t.Fatalf("Drop failed: %v", err)
	}
	if e.own.UseCount() != 1 {
		t.Fatalf("Dropped entry should still hold the owner, use count %d", e.own.UseCount())
	}
	e.release()

	if _, ok := b.Get(handle); ok {
		t.Fatal("Expected Get to fail after Drop")
	}
}

func TestLocalBackend_Observe(t *testing.T) {
	b := NewLocalBackend[cell](0)

	owner := ownCell(t, b, "x")
	obs, err := b.Observe(owner)
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}

	info, ok := b.Info(obs)
	if !ok {
		t.Fatal("Info failed")
	}
	if info.Entry != EntryObserver || info.Strong != 1 || info.Weak != 1 || !info.Valid {
		t.Fatalf("Unexpected observer info: %+v", info)
	}

	e, err := b.Drop(owner)
	if err != nil {
		t.Fatalf("Drop failed: %v", err)
	}
	e.release()

	info, _ = b.Info(obs)
	if info.Valid || info.Strong != 0 || info.State != shared.StateFinalized {
		t.Fatalf("Observer should see an expired object: %+v", info)
	}
	if _, ok := b.Get(obs); ok {
		t.Fatal("Get through an expired observer should fail")
	}

	s, kind, ok := b.Lock(obs)
	if !ok || kind != EntryObserver {
		t.Fatal("Lock should find the observer entry")
	}
	if s.Block() != nil {
		t.Fatal("Lock on an expired observer should return an empty handle")
	}
}

func TestLocalBackend_ObserveUnknown(t *testing.T) {
	b := NewLocalBackend[cell](0)

	_, err := b.Observe(42)
	if err == nil {
		t.Fatal("Observe of an unknown handle should fail")
	}
}

func TestLocalBackend_Borrow(t *testing.T) {
	b := NewLocalBackend[cell](0)

	handle := ownCell(t, b, "b")

	p, err := b.Borrow(handle)
	if err != nil {
		t.Fatalf("Borrow failed: %v", err)
	}
	if p.name != "b" {
		t.Fatalf("Borrow returned %q", p.name)
	}

	if _, err := b.Drop(handle); !errors.Is(err, ErrOutstandingBorrow) {
		t.Fatalf("Drop should fail with outstanding borrow, got %v", err)
	}

	if err := b.ReturnBorrow(handle); err != nil {
		t.Fatalf("ReturnBorrow failed: %v", err)
	}
	if err := b.ReturnBorrow(handle); err == nil {
		t.Fatal("ReturnBorrow without a borrow should fail")
	}

	e, err := b.Drop(handle)
	if err != nil {
		t.Fatalf("Drop should succeed after returning borrow: %v", err)
	}
	e.release()
}

func TestLocalBackend_BorrowObserver(t *testing.T) {
	b := NewLocalBackend[cell](0)

	owner := ownCell(t, b, "o")
	obs, _ := b.Observe(owner)

	if _, err := b.Borrow(obs); err == nil {
		t.Fatal("Borrowing an observer should fail")
	}
}

func TestLocalBackend_MultipleBorrows(t *testing.T) {
	b := NewLocalBackend[cell](0)

	handle := ownCell(t, b, "m")

	for i := 0; i < 5; i++ {
		if _, err := b.Borrow(handle); err != nil {
			t.Fatalf("Borrow %d failed: %v", i, err)
		}
	}

	info, _ := b.Info(handle)
	if info.Borrows != 5 {
		t.Fatalf("Expected 5 borrows, got %d", info.Borrows)
	}

	if _, err := b.Drop(handle); err == nil {
		t.Fatal("Drop should fail with outstanding borrows")
	}

	for i := 0; i < 5; i++ {
		if err := b.ReturnBorrow(handle); err != nil {
			t.Fatalf("ReturnBorrow %d failed: %v", i, err)
		}
	}

	e, err := b.Drop(handle)
	if err != nil {
		t.Fatalf("Drop should succeed after returning all borrows: %v", err)
	}
	e.release()
}

func TestLocalBackend_HandleReuse(t *testing.T) {
	b := NewLocalBackend[cell](0)

	h1 := ownCell(t, b, "1")
	h2 := ownCell(t, b, "2")
	h3 := ownCell(t, b, "3")

	e, _ := b.Drop(h2)
	e.release()
	e, _ = b.Drop(h1)
	e.release()

	// Freed slots are reused last-in first-out.
	h4 := ownCell(t, b, "4")
	h5 := ownCell(t, b, "5")
	if h4 != h1 || h5 != h2 {
		t.Fatalf("Expected reuse of %d and %d, got %d and %d", h1, h2, h4, h5)
	}

	for _, h := range []Handle{h3, h4, h5} {
		if _, ok := b.Get(h); !ok {
			t.Fatalf("handle %d should be valid", h)
		}
	}
	if p, _ := b.Get(h4); p.name != "4" {
		t.Fatalf("reused handle should see the new object, got %q", p.name)
	}
}

func TestLocalBackend_Close(t *testing.T) {
	b := NewLocalBackend[cell](0)

	ownCell(t, b, "1")
	ownCell(t, b, "2")

	entries := b.Close()
	if len(entries) != 2 {
		t.Fatalf("Close should return 2 entries, got %d", len(entries))
	}
	for i := range entries {
		entries[i].release()
	}
	if again := b.Close(); again != nil {
		t.Fatal("Second Close should return nothing")
	}

	s := shared.Make(cell{})
	_, err := b.Own(&s)
	if !errors.Is(err, ErrClosed) {
		t.Fatal("Expected ErrClosed after Close")
	}
	s.Reset()
}

func TestLocalBackend_Clear(t *testing.T) {
	b := NewLocalBackend[cell](0)

	h1 := ownCell(t, b, "1")
	h2 := ownCell(t, b, "2")
	if _, err := b.Borrow(h2); err != nil {
		t.Fatal(err)
	}

	handles, entries := b.Clear()
	if len(handles) != 1 || handles[0] != h1 {
		t.Fatalf("Clear should remove only %d, removed %v", h1, handles)
	}
	for i := range entries {
		entries[i].release()
	}
	if b.Len() != 1 {
		t.Fatalf("Borrowed entry should survive Clear, Len() == %d", b.Len())
	}
}

func TestLocalBackend_Concurrent(t *testing.T) {
	b := NewLocalBackend[cell](0)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := shared.Make(cell{})
			h, err := b.Own(&s)
			if err != nil {
				return
			}
			b.Borrow(h)
			b.ReturnBorrow(h)
			if e, err := b.Drop(h); err == nil {
				e.release()
			}
		}()
	}

	wg.Wait()
	if b.Len() != 0 {
		t.Fatalf("Expected empty backend, Len() == %d", b.Len())
	}
}

func TestLocalBackend_Len(t *testing.T) {
	b := NewLocalBackend[cell](0)

	if b.Len() != 0 {
		t.Fatal("Expected Len() == 0 initially")
	}

	h1 := ownCell(t, b, "a")
	h2 := ownCell(t, b, "b")
	ownCell(t, b, "c")

	if b.Len() != 3 {
		t.Fatalf("Expected Len() == 3, got %d", b.Len())
	}

	e, _ := b.Drop(h1)
	e.release()
	if b.Len() != 2 {
		t.Fatalf("Expected Len() == 2, got %d", b.Len())
	}

	e, _ = b.Drop(h2)
	e.release()
	if b.Len() != 1 {
		t.Fatalf("Expected Len() == 1, got %d", b.Len())
	}
}

func TestLocalBackend_Each(t *testing.T) {
	b := NewLocalBackend[cell](0)

	ownCell(t, b, "a")
	ownCell(t, b, "b")
	ownCell(t, b, "c")

	var seen []Handle
	b.Each(func(in Info) bool {
		seen = append(seen, in.Handle)
		return true
	})

	if len(seen) != 3 || seen[0] != 1 || seen[2] != 3 {
		t.Fatalf("Expected handles 1..3 in order, got %v", seen)
	}

	count := 0
	b.Each(func(Info) bool {
		count++
		return false
	})

	if count != 1 {
		t.Fatalf("Expected to iterate over 1 item (early term), got %d", count)
	}
}

func TestLocalBackend_InvalidHandle(t *testing.T) {
	b := NewLocalBackend[cell](0)

	// Handle 0 is always invalid
	if _, ok := b.Get(0); ok {
		t.Fatal("Handle 0 should be invalid")
	}
	if _, _, ok := b.Lock(0); ok {
		t.Fatal("Handle 0 should be invalid for Lock")
	}
	if _, err := b.Borrow(0); err == nil {
		t.Fatal("Handle 0 should fail Borrow")
	}
	if err := b.ReturnBorrow(0); err == nil {
		t.Fatal("Handle 0 should fail ReturnBorrow")
	}
	if _, err := b.Drop(0); err == nil {
		t.Fatal("Handle 0 should fail Drop")
	}

	// Non-existent handle
	if _, ok := b.Get(999); ok {
		t.Fatal("Non-existent handle should be invalid")
	}
}
