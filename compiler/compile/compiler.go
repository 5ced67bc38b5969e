package compile

import (
	"context"
	"math"
	"sync"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/rainlang/rain/compiler/analyze"
	"github.com/rainlang/rain/compiler/ast"
	"github.com/rainlang/rain/compiler/diag"
	"github.com/rainlang/rain/compiler/interp"
	"github.com/rainlang/rain/compiler/ir"
	"github.com/rainlang/rain/compiler/scope"
)

type (
	Options struct {
		// SinglePass generates declarations in source order,
		// so a function may only be referred to after it is declared.
		SinglePass bool

		Triple     string
		DataLayout string
	}

	// Module is a built module ready for linking.
	Module struct {
		IR *ir.Module

		// Scope is the detached module frame with everything declared in it.
		Scope *scope.Scope

		Name string

		// Warnings reported while building.
		Warnings []*diag.Error
	}

	// Compiler builds modules against a shared builtin scope.
	// It is not safe for concurrent use.
	Compiler struct {
		Options

		Ctx     *ir.Context
		Builtin *scope.Scope

		externals []*external

		// working module, reset after each build
		mod *ir.Module
	}

	external struct {
		fn  *scope.Function
		v   *scope.Variable
		sig ir.Type
	}
)

const (
	DefaultTriple     = "wasm32-unknown-unknown"
	DefaultDataLayout = "e-m:e-p:32:32-p10:8:8-p20:8:8-i64:64-n32:64-S128-ni:1:10:20"
)

// Native math functions available to compile-time evaluation.
const (
	BuiltinSqrt = "__builtin_sqrt"
	BuiltinSin  = "__builtin_sin"
	BuiltinCos  = "__builtin_cos"
)

var initOnce sync.Once

// Initialize registers native implementations of builtin externals.
// It is safe to call it many times.
func Initialize() {
	initOnce.Do(func() {
		unary := func(f func(float64) float64) interp.ExternalFunc {
			return func(args []interp.Value) (interp.Value, error) {
				if len(args) != 1 {
					return interp.Value{}, errors.New("expected 1 argument, got %d", len(args))
				}

				return interp.Float64Value(f(args[0].Float)), nil
			}
		}

		interp.Register(BuiltinSqrt, unary(math.Sqrt))
		interp.Register(BuiltinSin, unary(math.Sin))
		interp.Register(BuiltinCos, unary(math.Cos))
	})
}

func New() *Compiler {
	return NewWithOptions(Options{})
}

func NewWithOptions(opts Options) *Compiler {
	Initialize()

	if opts.Triple == "" {
		opts.Triple = DefaultTriple
	}

	if opts.DataLayout == "" {
		opts.DataLayout = DefaultDataLayout
	}

	c := &Compiler{
		Options: opts,
		Ctx:     ir.NewContext(),
	}

	c.Builtin = scope.NewBuiltin(c.Ctx)
	c.reset("")

	return c
}

// DeclareExternalFunction makes a natively implemented function
// visible to every module built by c.
func (c *Compiler) DeclareExternalFunction(name, namespace string, t *ast.FunctionType) error {
	if name == "" {
		return errors.New("cannot declare external function, no name given")
	}

	if t == nil {
		return errors.New("cannot declare external function, no function type given")
	}

	rt, err := c.Builtin.ResolveType(t)
	if err != nil {
		return errors.Wrap(err, "declare external %v", name)
	}

	t = rt.(*ast.FunctionType)

	g := c.generator(c.Builtin)

	sig, err := g.irType(t)
	if err != nil {
		return errors.Wrap(err, "declare external %v", name)
	}

	e := &external{
		fn: &scope.Function{
			Name:      name,
			Type:      t,
			Namespace: namespace,
			External:  true,
			IR:        ir.Nil,
		},
		sig: sig,
	}

	e.v = &scope.Variable{
		Name: name,
		Type: t,
		Func: e.fn,
	}

	if err = c.Builtin.DeclareUnique(e.v); err != nil {
		return errors.Wrap(err, "declare external %v", name)
	}

	c.externals = append(c.externals, e)
	c.declareExternal(e)

	return nil
}

// LoadMathExternals declares the native math functions.
func (c *Compiler) LoadMathExternals() error {
	ft := func() *ast.FunctionType {
		return &ast.FunctionType{Params: []ast.Type{scope.F64}, Result: scope.F64}
	}

	for _, n := range []string{BuiltinSqrt, BuiltinSin, BuiltinCos} {
		if err := c.DeclareExternalFunction(n, "math", ft()); err != nil {
			return err
		}
	}

	return nil
}

func (c *Compiler) declareExternal(e *external) {
	e.fn.IR = c.mod.NewFunc(e.fn.Name, e.sig, ir.External)
	c.mod.Func(e.fn.IR).Namespace = e.fn.Namespace
	e.v.Value = e.fn.IR
}

// reset starts a new working module.
// Externals are declared in it again.
func (c *Compiler) reset(name string) {
	c.mod = ir.NewModule(c.Ctx, name)

	for _, e := range c.externals {
		c.declareExternal(e)
	}
}

func (c *Compiler) generator(s *scope.Scope) *Generator {
	return NewGenerator(c.mod, s, c.Options)
}

// Build validates and generates m.
// On success the module is independent of c, which is ready for the next build.
func (c *Compiler) Build(ctx context.Context, m *ast.Module) (res *Module, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "build", "module", m.Name)
	defer tr.Finish("err", &err)

	c.reset(m.Name)
	defer c.reset("")

	_, err = analyze.Module(ctx, c.Builtin, m, analyze.Options{SinglePass: c.SinglePass})
	if err != nil {
		return nil, errors.Wrap(err, "analyze")
	}

	s := scope.New(c.Builtin, m.Name)
	g := c.generator(s)

	err = g.Module(ctx, m)
	if err != nil {
		return nil, errors.Wrap(err, "generate")
	}

	out := c.mod.Clone()
	out.Triple = c.Triple
	out.DataLayout = c.DataLayout

	// expression ids are kept by Clone, so values in s refer to out
	s.SetParent(nil)

	tr.Printw("module built", "funcs", len(out.Funcs), "exprs", len(out.Exprs), "types", len(c.Ctx.Types), "warnings", len(g.Warnings))

	return &Module{
		IR:       out,
		Scope:    s,
		Name:     m.Name,
		Warnings: g.Warnings,
	}, nil
}
