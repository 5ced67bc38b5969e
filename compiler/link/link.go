package link

import (
	"context"
	"sort"

	"github.com/nikandfor/hacked/hfmt"
	"nikand.dev/go/heap"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/rainlang/rain/compiler/compile"
	"github.com/rainlang/rain/compiler/ir"
	"github.com/rainlang/rain/compiler/set"
)

type (
	Options struct {
		// ForceExport keeps and exports functions by symbol name.
		ForceExport []string

		// StackSize in bytes, rounded up to whole pages.
		// Zero means DefaultStackPages.
		StackSize int

		// MemoryExport is the name the linear memory is exported under.
		// Empty means the memory is not exported.
		MemoryExport string

		// NoGC keeps unreachable functions.
		NoGC bool
	}

	Symbol struct {
		Name      string
		Namespace string
		Func      ir.Expr
	}

	// Image is a linked set of modules with memory layout decided.
	// Stack occupies the memory start and grows down from StackTop, data follows it.
	Image struct {
		Module *ir.Module

		Exports []Symbol
		Imports []Symbol
		Removed []string

		StackTop int
		DataBase int
		Pages    int

		MemoryExport string
	}

	worklist struct {
		heap.Heap[ir.Expr]
	}
)

const (
	PageSize          = 64 << 10
	DefaultStackPages = 16
)

// Link merges modules, drops functions unreachable from exports
// and lays out memory.
func Link(ctx context.Context, mods []*compile.Module, opts Options) (img *Image, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "link", "modules", len(mods), "force_export", opts.ForceExport, "stack", opts.StackSize)
	defer tr.Finish("err", &err)

	if len(mods) == 0 {
		return nil, errors.New("no modules to link")
	}

	m := ir.NewModule(mods[0].IR.Ctx, mods[0].Name)
	m.Triple = mods[0].IR.Triple
	m.DataLayout = mods[0].IR.DataLayout

	for _, mod := range mods {
		_, err = m.Merge(mod.IR)
		if err != nil {
			return nil, errors.Wrap(err, "merge")
		}
	}

	img = &Image{
		Module:       m,
		MemoryExport: opts.MemoryExport,
	}

	roots, err := img.exports(m, opts.ForceExport)
	if err != nil {
		return nil, err
	}

	if !opts.NoGC {
		img.gc(ctx, m, roots)
	}

	for _, f := range m.Funcs {
		fn := m.Func(f)

		if fn.Linkage == ir.External {
			img.Imports = append(img.Imports, Symbol{Name: fn.Name, Namespace: fn.Namespace, Func: f})
		}
	}

	img.layout(opts.StackSize)

	tr.Printw("linked", "funcs", len(m.Funcs), "exports", len(img.Exports), "imports", len(img.Imports), "removed", len(img.Removed), "pages", img.Pages)

	return img, nil
}

func (img *Image) exports(m *ir.Module, force []string) (roots []ir.Expr, err error) {
	byName := make(map[string]ir.Expr, len(m.Funcs))

	for _, f := range m.Funcs {
		fn := m.Func(f)

		if fn.Linkage == ir.External {
			continue
		}

		prev, seen := byName[fn.Name]

		if fn.Linkage == ir.Exported {
			if seen && m.Func(prev).Linkage == ir.Exported {
				return nil, errors.New("duplicate exported symbol: %v", fn.Name)
			}

			roots = append(roots, f)
		}

		if !seen || fn.Linkage == ir.Exported {
			byName[fn.Name] = f
		}
	}

	for _, name := range force {
		f, ok := byName[name]
		if !ok {
			return nil, errors.New("force export: no such function: %v", name)
		}

		fn := m.Func(f)
		if fn.Linkage != ir.Exported {
			fn.Linkage = ir.Exported
			roots = append(roots, f)
		}
	}

	for _, f := range roots {
		img.Exports = append(img.Exports, Symbol{Name: m.Func(f).Name, Func: f})
	}

	sort.Slice(img.Exports, func(i, j int) bool { return img.Exports[i].Name < img.Exports[j].Name })

	return roots, nil
}

// gc marks functions reachable from roots and removes the rest.
func (img *Image) gc(ctx context.Context, m *ir.Module, roots []ir.Expr) {
	tr := tlog.SpanFromContext(ctx)

	var live set.Bits[ir.Expr]

	work := worklist{Heap: heap.Heap[ir.Expr]{Less: func(d []ir.Expr, i, j int) bool {
		return m.Func(d[i]).Name < m.Func(d[j]).Name
	}}}

	for _, f := range roots {
		if live.Add(f) {
			work.Push(f)
		}
	}

	for work.Len() != 0 {
		f := work.Pop()

		tr.V("link_gc").Printw("visit", "func", m.Func(f).Name, "queued", work.Len())

		for _, callee := range refs(m, f) {
			if live.Add(callee) {
				work.Push(callee)
			}
		}
	}

	for _, f := range append([]ir.Expr{}, m.Funcs...) {
		if live.IsSet(f) {
			continue
		}

		img.Removed = append(img.Removed, m.Func(f).Name)
		m.RemoveFunc(f)
	}

	sort.Strings(img.Removed)

	tr.V("link_gc").Printw("gc done", "live", live, "removed", img.Removed)
}

// refs lists functions referenced by the body of f.
func refs(m *ir.Module, f ir.Expr) (r []ir.Expr) {
	for _, b := range m.Func(f).Blocks {
		for _, id := range m.Block(b).Code {
			for _, op := range ir.Operands(m.Exprs[id]) {
				if op < 0 || int(op) >= len(m.Exprs) {
					continue
				}

				if m.Func(op) != nil {
					r = append(r, op)
				}
			}
		}
	}

	return r
}

func (img *Image) layout(stack int) {
	pages := DefaultStackPages

	if stack > 0 {
		pages = (stack + PageSize - 1) / PageSize
	}

	img.StackTop = pages * PageSize
	img.DataBase = img.StackTop
	img.Pages = pages
}

func (img *Image) String() string {
	return string(img.AppendText(nil))
}

// AppendText appends the layout, symbol tables and the code.
func (img *Image) AppendText(b []byte) []byte {
	b = hfmt.Appendf(b, "; image %s\n", img.Module.Name)

	if img.Module.Triple != "" {
		b = hfmt.Appendf(b, "; target %s\n", img.Module.Triple)
	}

	b = hfmt.Appendf(b, "memory pages %d", img.Pages)

	if img.MemoryExport != "" {
		b = hfmt.Appendf(b, " export %q", img.MemoryExport)
	}

	b = hfmt.Appendf(b, "\nstack 0x%x-0x%x\ndata 0x%x\n", 0, img.StackTop, img.DataBase)

	for _, s := range img.Imports {
		b = hfmt.Appendf(b, "import %s.%s\n", s.Namespace, s.Name)
	}

	for _, s := range img.Exports {
		b = hfmt.Appendf(b, "export %s\n", s.Name)
	}

	for _, n := range img.Removed {
		b = hfmt.Appendf(b, "removed %s\n", n)
	}

	b = append(b, '\n')

	return img.Module.AppendText(b)
}
