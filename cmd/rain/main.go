package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/rainlang/rain/compiler"
	"github.com/rainlang/rain/compiler/ast"
	"github.com/rainlang/rain/compiler/compile"
	"github.com/rainlang/rain/compiler/format"
	"github.com/rainlang/rain/compiler/interp"
	"github.com/rainlang/rain/compiler/ir"
	"github.com/rainlang/rain/compiler/link"
	"github.com/rainlang/rain/compiler/serial"
)

func main() {
	compileFlags := []*cli.Flag{
		cli.NewFlag("single-pass", false, "declarations are visible only after they are declared"),
		cli.NewFlag("math", false, "declare native math functions"),
	}

	parseCmd := &cli.Command{
		Name:        "parse",
		Description: "parse files and list declarations",
		Action:      parseAct,
		Args:        cli.Args{},
	}

	fmtCmd := &cli.Command{
		Name:        "fmt",
		Description: "print files in canonical form",
		Action:      fmtAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("write,w", false, "write result to the source file"),
		},
	}

	irCmd := &cli.Command{
		Name:        "ir",
		Description: "compile files and print generated code",
		Action:      irAct,
		Args:        cli.Args{},
		Flags:       compileFlags,
	}

	execCmd := &cli.Command{
		Name:        "exec",
		Description: "compile a file and interpret a function: exec <file> [args...]",
		Action:      execAct,
		Args:        cli.Args{},
		Flags: append([]*cli.Flag{
			cli.NewFlag("func,f", "main", "function to run"),
		}, compileFlags...),
	}

	libCmd := &cli.Command{
		Name:        "lib",
		Description: "build a library file",
		Action:      libAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("output,o", "", "output file, <module>.oranlib by default"),
		},
	}

	linkCmd := &cli.Command{
		Name:        "link",
		Description: "compile files and link them into an image",
		Action:      linkAct,
		Args:        cli.Args{},
		Flags: append([]*cli.Flag{
			cli.NewFlag("force-export", "", "comma separated functions to keep and export"),
			cli.NewFlag("stack", 0, "stack size in bytes"),
			cli.NewFlag("memory-export", "memory", "name the memory is exported under"),
			cli.NewFlag("no-gc", false, "keep unreachable functions"),
		}, compileFlags...),
	}

	app := &cli.Command{
		Name:        "rain",
		Description: "rain is a tool for managing rain source code",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("verbosity,v", "", "logger verbosity topics"),
		},
		Commands: []*cli.Command{
			parseCmd,
			fmtCmd,
			irCmd,
			execCmd,
			libCmd,
			linkCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	if v := c.String("verbosity"); v != "" {
		tlog.SetVerbosity(v)
	}

	return nil
}

func context0() context.Context {
	return tlog.ContextWithSpan(context.Background(), tlog.Root())
}

func newCompiler(c *cli.Command) (*compile.Compiler, error) {
	cm := compile.NewWithOptions(compile.Options{
		SinglePass: c.Bool("single-pass"),
	})

	if c.Bool("math") {
		if err := cm.LoadMathExternals(); err != nil {
			return nil, errors.Wrap(err, "load math")
		}
	}

	return cm, nil
}

func parseAct(c *cli.Command) (err error) {
	ctx := context0()

	for _, a := range c.Args {
		f, err := compiler.ParseFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "parse %v", a)
		}

		fmt.Printf("module %s: %d declarations\n", f.AST.Name, len(f.AST.Decls))

		for _, d := range f.AST.Decls {
			fmt.Printf("\t%-10v %-20s %v\n", d.Kind(), declName(d), d.Span())
		}
	}

	return nil
}

func declName(d ast.Expr) string {
	switch x := ast.Unwrap(d).(type) {
	case *ast.Function:
		if x.Receiver != nil {
			return x.Receiver.String() + "." + x.Name
		}

		return x.Name
	case *ast.TypeDecl:
		return x.Name
	}

	return ""
}

func fmtAct(c *cli.Command) (err error) {
	ctx := context0()

	for _, a := range c.Args {
		f, err := compiler.ParseFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "parse %v", a)
		}

		b, err := format.Format(ctx, nil, f.AST)
		if err != nil {
			return errors.Wrap(err, "format %v", a)
		}

		if !c.Bool("write") {
			fmt.Printf("%s", b)
			continue
		}

		err = os.WriteFile(a, b, 0o644)
		if err != nil {
			return errors.Wrap(err, "write %v", a)
		}
	}

	return nil
}

func irAct(c *cli.Command) (err error) {
	ctx := context0()

	cm, err := newCompiler(c)
	if err != nil {
		return err
	}

	for _, a := range c.Args {
		mod, err := compiler.CompileFile(ctx, cm, a)
		if err != nil {
			return err
		}

		fmt.Printf("%s", mod.IR.String())
	}

	return nil
}

func execAct(c *cli.Command) (err error) {
	ctx := context0()

	if len(c.Args) == 0 {
		return errors.New("file expected")
	}

	cm, err := newCompiler(c)
	if err != nil {
		return err
	}

	mod, err := compiler.CompileFile(ctx, cm, c.Args[0])
	if err != nil {
		return err
	}

	name := c.String("func")

	f := mod.IR.LookupFunc(name)
	if f == ir.Nil {
		return errors.New("no function: %v", name)
	}

	args, err := argValues(mod.IR, f, c.Args[1:])
	if err != nil {
		return errors.Wrap(err, "args")
	}

	res, err := interp.New(mod.IR).Run(ctx, f, args...)
	if err != nil {
		return errors.Wrap(err, "exec %v", name)
	}

	fmt.Printf("%v\n", res)

	return nil
}

// argValues parses command line arguments as function parameters.
func argValues(m *ir.Module, f ir.Expr, strs []string) ([]interp.Value, error) {
	ft := m.FuncType(f)

	if len(strs) != len(ft.Params) {
		return nil, errors.New("%v takes %d arguments, got %d", m.Func(f).Name, len(ft.Params), len(strs))
	}

	args := make([]interp.Value, len(strs))

	for i, s := range strs {
		switch t := m.Ctx.Type(ft.Params[i]).(type) {
		case ir.Int:
			v, err := strconv.ParseInt(s, 0, 64)
			if err != nil {
				return nil, errors.Wrap(err, "arg %d", i)
			}

			args[i] = interp.IntValue(t.Bits, v)
		case ir.Float:
			v, err := strconv.ParseFloat(s, t.Bits)
			if err != nil {
				return nil, errors.Wrap(err, "arg %d", i)
			}

			if t.Bits == 32 {
				args[i] = interp.Float32Value(float32(v))
			} else {
				args[i] = interp.Float64Value(v)
			}
		default:
			return nil, errors.New("arg %d: unsupported parameter type %v", i, m.Ctx.TypeString(ft.Params[i]))
		}
	}

	return args, nil
}

func libAct(c *cli.Command) (err error) {
	ctx := context0()

	if len(c.Args) != 1 {
		return errors.New("one file expected")
	}

	f, err := compiler.ParseFile(ctx, c.Args[0])
	if err != nil {
		return err
	}

	// the library must be a valid module
	_, err = f.Compile(ctx, compile.New())
	if err != nil {
		return err
	}

	data, err := serial.Build(f.AST)
	if err != nil {
		return errors.Wrap(err, "build library")
	}

	out := c.String("output")
	if out == "" {
		out = f.AST.Name + ".oranlib"
	}

	err = os.WriteFile(out, data, 0o644)
	if err != nil {
		return errors.Wrap(err, "write library")
	}

	tlog.Printw("library written", "file", out, "size", len(data))

	return nil
}

func linkAct(c *cli.Command) (err error) {
	ctx := context0()

	cm, err := newCompiler(c)
	if err != nil {
		return err
	}

	var mods []*compile.Module

	for _, a := range c.Args {
		mod, err := compiler.CompileFile(ctx, cm, a)
		if err != nil {
			return err
		}

		mods = append(mods, mod)
	}

	opts := link.Options{
		StackSize:    c.Int("stack"),
		MemoryExport: c.String("memory-export"),
		NoGC:         c.Bool("no-gc"),
	}

	if fe := c.String("force-export"); fe != "" {
		opts.ForceExport = strings.Split(fe, ",")
	}

	img, err := link.Link(ctx, mods, opts)
	if err != nil {
		return errors.Wrap(err, "link")
	}

	fmt.Printf("%s", img.String())

	return nil
}
