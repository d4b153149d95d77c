package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/wippyai/refptr/cmem"
	"github.com/wippyai/refptr/linmem"
	"github.com/wippyai/refptr/resource"
	"github.com/wippyai/refptr/shared"
)

type binding struct {
	store store
	h     resource.Handle
}

// session interprets playground commands. Each name binds one table
// entry; the tables hold the actual references.
type session struct {
	out    io.Writer
	ctx    context.Context
	cells  *tableStore[Cell]
	bufs   *tableStore[linmem.Buffer]
	blocks *tableStore[cmem.Block]
	mem    *linmem.Memory
	heap   *linmem.Heap
	vars   map[string]binding
	memCfg *linmem.Config
}

func newSession(ctx context.Context, out io.Writer, memCfg *linmem.Config) *session {
	return &session{
		out:   out,
		ctx:   ctx,
		cells: newTableStore("cell", formatCell),
		bufs: newTableStore("buffer", func(b *linmem.Buffer) string {
			return fmt.Sprintf("[%d,+%d)", b.Offset, b.Size)
		}),
		blocks: newTableStore("cblock", func(b *cmem.Block) string {
			return fmt.Sprintf("%d bytes", b.Size())
		}),
		vars:   make(map[string]binding),
		memCfg: memCfg,
	}
}

type command struct {
	run   func(s *session, args []string) error
	usage string
	help  string
	nargs [2]int
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"make":    {(*session).cmdMake, "make NAME LABEL VALUE [CHILDREN]", "create an inline-block owner", [2]int{3, 4}},
		"new":     {(*session).cmdNew, "new NAME LABEL VALUE [CHILDREN]", "create a pointer-block owner", [2]int{3, 4}},
		"copy":    {(*session).cmdCopy, "copy DST SRC", "bind DST to another reference of the same kind", [2]int{2, 2}},
		"move":    {(*session).cmdMove, "move DST SRC", "rebind SRC's reference to DST", [2]int{2, 2}},
		"weak":    {(*session).cmdWeak, "weak DST SRC", "bind DST to an observer of SRC", [2]int{2, 2}},
		"lock":    {(*session).cmdLock, "lock DST SRC", "bind DST to an owner, empty if SRC expired", [2]int{2, 2}},
		"promote": {(*session).cmdPromote, "promote DST SRC", "like lock but fails on expiry", [2]int{2, 2}},
		"alias":   {(*session).cmdAlias, "alias DST SRC INDEX", "owner of SRC observing child INDEX", [2]int{3, 3}},
		"reset":   {(*session).cmdReset, "reset NAME [SRC]", "release NAME, then optionally copy SRC into it", [2]int{1, 2}},
		"drop":    {(*session).cmdDrop, "drop NAME", "release NAME", [2]int{1, 1}},
		"buf":     {(*session).cmdBuf, "buf NAME SIZE", "allocate a linear-memory buffer", [2]int{2, 2}},
		"view":    {(*session).cmdView, "view DST SRC OFFSET LENGTH", "alias a range of buffer SRC", [2]int{4, 4}},
		"cblock":  {(*session).cmdCBlock, "cblock NAME SIZE", "malloc a C block", [2]int{2, 2}},
		"show":    {(*session).cmdShow, "show [NAME...]", "print counts and state", [2]int{0, -1}},
		"help":    {(*session).cmdHelp, "help", "list commands", [2]int{0, 0}},
	}
}

// Exec runs one command line. Blank lines and # comments are ignored.
func (s *session) Exec(line string) error {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	cmd, ok := commands[fields[0]]
	if !ok {
		return fmt.Errorf("unknown command %q (try help)", fields[0])
	}
	args := fields[1:]
	if len(args) < cmd.nargs[0] || (cmd.nargs[1] >= 0 && len(args) > cmd.nargs[1]) {
		return fmt.Errorf("usage: %s", cmd.usage)
	}
	return cmd.run(s, args)
}

// Close releases every reference the session still holds.
func (s *session) Close() error {
	var firstErr error
	for _, st := range []store{s.cells, s.bufs, s.blocks} {
		if err := st.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.vars = map[string]binding{}
	if s.mem != nil {
		if err := s.mem.Close(s.ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *session) lookup(name string) (binding, error) {
	b, ok := s.vars[name]
	if !ok {
		return binding{}, fmt.Errorf("%s is not bound", name)
	}
	return b, nil
}

// bind assigns b to name, releasing whatever name held before.
func (s *session) bind(name string, b binding) error {
	if old, ok := s.vars[name]; ok {
		delete(s.vars, name)
		if err := old.store.drop(old.h); err != nil {
			return err
		}
	}
	s.vars[name] = b
	s.printf("%s = %s\n", name, s.summary(b))
	return nil
}

func (s *session) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func (s *session) summary(b binding) string {
	info, ok := b.store.info(b.h)
	if !ok {
		return "gone"
	}
	return fmt.Sprintf("%s %s %s strong=%d weak=%d state=%s",
		b.store.name(), info.Entry, info.Kind, info.Strong, info.Weak, info.State)
}

func parseCellArgs(args []string) (label string, value, children int, err error) {
	label = args[0]
	if value, err = strconv.Atoi(args[1]); err != nil {
		return "", 0, 0, fmt.Errorf("bad value %q", args[1])
	}
	if len(args) > 2 {
		if children, err = strconv.Atoi(args[2]); err != nil || children < 0 {
			return "", 0, 0, fmt.Errorf("bad child count %q", args[2])
		}
	}
	return label, value, children, nil
}

func (s *session) cmdMake(args []string) error {
	label, value, children, err := parseCellArgs(args[1:])
	if err != nil {
		return err
	}
	sh := shared.Make(newCell(s.out, label, value, children))
	return s.ownCell(args[0], &sh)
}

func (s *session) cmdNew(args []string) error {
	label, value, children, err := parseCellArgs(args[1:])
	if err != nil {
		return err
	}
	c := newCell(s.out, label, value, children)
	sh := shared.New(&c)
	return s.ownCell(args[0], &sh)
}

func (s *session) ownCell(name string, sh *shared.Shared[Cell]) error {
	h, err := s.cells.own(sh)
	if err != nil {
		return err
	}
	return s.bind(name, binding{store: s.cells, h: h})
}

func (s *session) cmdCopy(args []string) error {
	src, err := s.lookup(args[1])
	if err != nil {
		return err
	}
	h, err := src.store.copy(src.h)
	if err != nil {
		return err
	}
	return s.bind(args[0], binding{store: src.store, h: h})
}

func (s *session) cmdMove(args []string) error {
	src, err := s.lookup(args[1])
	if err != nil {
		return err
	}
	if args[0] == args[1] {
		return nil
	}
	delete(s.vars, args[1])
	s.printf("%s = empty\n", args[1])
	return s.bind(args[0], src)
}

func (s *session) cmdWeak(args []string) error {
	src, err := s.lookup(args[1])
	if err != nil {
		return err
	}
	h, err := src.store.observe(src.h)
	if err != nil {
		return err
	}
	return s.bind(args[0], binding{store: src.store, h: h})
}

func (s *session) cmdLock(args []string) error {
	src, err := s.lookup(args[1])
	if err != nil {
		return err
	}
	h, ok, err := src.store.lock(src.h)
	if err != nil {
		return err
	}
	if !ok {
		if err := s.release(args[0]); err != nil {
			return err
		}
		s.printf("%s = empty (expired)\n", args[0])
		return nil
	}
	return s.bind(args[0], binding{store: src.store, h: h})
}

func (s *session) cmdPromote(args []string) error {
	src, err := s.lookup(args[1])
	if err != nil {
		return err
	}
	h, err := src.store.promote(src.h)
	if err != nil {
		return err
	}
	return s.bind(args[0], binding{store: src.store, h: h})
}

func (s *session) cmdAlias(args []string) error {
	src, err := s.lookup(args[1])
	if err != nil {
		return err
	}
	if src.store != store(s.cells) {
		return fmt.Errorf("%s is not a cell", args[1])
	}
	idx, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("bad index %q", args[2])
	}

	owner, err := s.cells.table.Lock(src.h)
	if err != nil {
		return err
	}

	parent := owner.Get()
	if parent == nil {
		owner.Reset()
		return fmt.Errorf("%s observes nothing", args[1])
	}
	if idx < 0 || idx >= len(parent.Children) {
		owner.Reset()
		return fmt.Errorf("index %d out of range (%d children)", idx, len(parent.Children))
	}
	alias := shared.Alias(owner, &parent.Children[idx])
	owner.Reset()
	return s.ownCell(args[0], &alias)
}

func (s *session) release(name string) error {
	b, ok := s.vars[name]
	if !ok {
		return nil
	}
	delete(s.vars, name)
	return b.store.drop(b.h)
}

func (s *session) cmdReset(args []string) error {
	if _, err := s.lookup(args[0]); err != nil {
		return err
	}
	if len(args) == 1 {
		return s.cmdDrop(args)
	}
	src, err := s.lookup(args[1])
	if err != nil {
		return err
	}
	// Take the new reference before releasing the old one, so resetting a
	// name to something it keeps alive is safe.
	h, err := src.store.copy(src.h)
	if err != nil {
		return err
	}
	return s.bind(args[0], binding{store: src.store, h: h})
}

func (s *session) cmdDrop(args []string) error {
	if _, err := s.lookup(args[0]); err != nil {
		return err
	}
	if err := s.release(args[0]); err != nil {
		return err
	}
	s.printf("%s = empty\n", args[0])
	return nil
}

func (s *session) ensureHeap() error {
	if s.heap != nil {
		return nil
	}
	mem, err := linmem.New(s.ctx, s.memCfg)
	if err != nil {
		return err
	}
	s.mem = mem
	s.heap = linmem.NewHeap(mem)
	return nil
}

func parseSize(arg string) (uint32, error) {
	n, err := strconv.ParseUint(arg, 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("bad size %q", arg)
	}
	return uint32(n), nil
}

func (s *session) cmdBuf(args []string) error {
	size, err := parseSize(args[1])
	if err != nil {
		return err
	}
	if err := s.ensureHeap(); err != nil {
		return err
	}
	sh, err := linmem.NewBuffer(s.heap, size)
	if err != nil {
		return err
	}
	h, err := s.bufs.own(&sh)
	if err != nil {
		return err
	}
	return s.bind(args[0], binding{store: s.bufs, h: h})
}

func (s *session) cmdView(args []string) error {
	src, err := s.lookup(args[1])
	if err != nil {
		return err
	}
	if src.store != store(s.bufs) {
		return fmt.Errorf("%s is not a buffer", args[1])
	}
	off, err := strconv.ParseUint(args[2], 10, 32)
	if err != nil {
		return fmt.Errorf("bad offset %q", args[2])
	}
	n, err := strconv.ParseUint(args[3], 10, 32)
	if err != nil {
		return fmt.Errorf("bad length %q", args[3])
	}

	owner, err := s.bufs.table.Lock(src.h)
	if err != nil {
		return err
	}
	view, err := linmem.Sub(owner, uint32(off), uint32(n))
	owner.Reset()
	if err != nil {
		return err
	}
	h, err := s.bufs.own(&view)
	if err != nil {
		return err
	}
	return s.bind(args[0], binding{store: s.bufs, h: h})
}

func (s *session) cmdCBlock(args []string) error {
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("bad size %q", args[1])
	}
	sh, err := cmem.Alloc(n)
	if err != nil {
		return err
	}
	h, err := s.blocks.own(&sh)
	if err != nil {
		return err
	}
	return s.bind(args[0], binding{store: s.blocks, h: h})
}

func (s *session) cmdShow(args []string) error {
	names := args
	if len(names) == 0 {
		for name := range s.vars {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	if len(names) == 0 {
		s.printf("(no bindings)\n")
	}
	for _, name := range names {
		b, err := s.lookup(name)
		if err != nil {
			return err
		}
		s.printf("%-8s %s  %s\n", name, s.summary(b), b.store.describe(b.h))
	}
	if s.heap != nil {
		s.printf("heap: %d bytes in %d regions\n", s.heap.InUse(), s.heap.Allocations())
	}
	return nil
}

func (s *session) cmdHelp([]string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := commands[name]
		s.printf("  %-28s %s\n", c.usage, c.help)
	}
	return nil
}
