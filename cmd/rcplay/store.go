package main

import (
	"fmt"

	"github.com/wippyai/refptr/resource"
	"github.com/wippyai/refptr/shared"
)

// store is the type-erased view of one resource table the session needs.
type store interface {
	name() string
	copy(h resource.Handle) (resource.Handle, error)
	observe(h resource.Handle) (resource.Handle, error)
	lock(h resource.Handle) (resource.Handle, bool, error)
	promote(h resource.Handle) (resource.Handle, error)
	drop(h resource.Handle) error
	info(h resource.Handle) (resource.Info, bool)
	describe(h resource.Handle) string
	close() error
}

type tableStore[T any] struct {
	kind   string
	table  *resource.Table[T]
	format func(*T) string
}

func newTableStore[T any](kind string, format func(*T) string, opts ...resource.Option) *tableStore[T] {
	return &tableStore[T]{
		kind:   kind,
		table:  resource.NewTable[T](opts...),
		format: format,
	}
}

func (s *tableStore[T]) name() string { return s.kind }

// own moves sh into the table.
func (s *tableStore[T]) own(sh *shared.Shared[T]) (resource.Handle, error) {
	h, err := s.table.Own(sh)
	if err != nil {
		sh.Reset()
	}
	return h, err
}

func (s *tableStore[T]) copy(h resource.Handle) (resource.Handle, error) {
	info, ok := s.table.Info(h)
	if !ok {
		return 0, fmt.Errorf("unknown handle %d", h)
	}
	if info.Entry == resource.EntryObserver {
		return s.table.Observe(h)
	}
	sh, err := s.table.Lock(h)
	if err != nil {
		return 0, err
	}
	return s.own(&sh)
}

func (s *tableStore[T]) observe(h resource.Handle) (resource.Handle, error) {
	return s.table.Observe(h)
}

func (s *tableStore[T]) lock(h resource.Handle) (resource.Handle, bool, error) {
	sh, ok := s.table.Share(h)
	if !ok {
		if _, known := s.table.Info(h); !known {
			return 0, false, fmt.Errorf("unknown handle %d", h)
		}
		return 0, false, nil
	}
	nh, err := s.own(&sh)
	return nh, err == nil, err
}

func (s *tableStore[T]) promote(h resource.Handle) (resource.Handle, error) {
	sh, err := s.table.Lock(h)
	if err != nil {
		return 0, err
	}
	return s.own(&sh)
}

func (s *tableStore[T]) drop(h resource.Handle) error {
	return s.table.Drop(h)
}

func (s *tableStore[T]) info(h resource.Handle) (resource.Info, bool) {
	return s.table.Info(h)
}

func (s *tableStore[T]) describe(h resource.Handle) string {
	p, ok := s.table.Get(h)
	if !ok {
		return "-"
	}
	return s.format(p)
}

func (s *tableStore[T]) close() error {
	return s.table.Close()
}
