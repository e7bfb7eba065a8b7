package scripting

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"regexp"
	"strconv"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zapio"

	"github.com/goldsprite/gdengine/internal/core/ecs"
	"github.com/goldsprite/gdengine/internal/project"
)

// Packages script code may import from the standard library.
var goAllowedPkgs = []string{
	"errors/errors",
	"fmt/fmt",
	"math/math",
	"math/rand/rand",
	"sort/sort",
	"strconv/strconv",
	"strings/strings",
	"time/time",
	"unicode/unicode",
	"unicode/utf8/utf8",
}

func restrictedStdlib() interp.Exports {
	restricted := interp.Exports{}
	for _, key := range goAllowedPkgs {
		if syms, ok := stdlib.Symbols[key]; ok {
			restricted[key] = syms
		}
	}
	return restricted
}

// GoCompiler interprets a project's .go sources with yaegi. Every file is
// evaluated as package main; the entry type is the last segment of the
// manifest entry and must define OnStart(*ecs.World) and OnUpdate(float64).
type GoCompiler struct {
	log        *zap.Logger
	restricted interp.Exports
}

func NewGoCompiler(log *zap.Logger) *GoCompiler {
	if log == nil {
		log = zap.NewNop()
	}
	return &GoCompiler{log: log, restricted: restrictedStdlib()}
}

var (
	goPackageClause = regexp.MustCompile(`(?m)^package\s+\w+`)
	goEvalLoc       = regexp.MustCompile(`:(\d+):\d+:\s*(.*)`)
)

func entryTypeName(entry string) string {
	return entry[strings.LastIndex(entry, ".")+1:]
}

func (c *GoCompiler) Compile(ctx context.Context, proj *project.Project) (Unit, error) {
	entry := proj.Manifest.Entry
	srcs, err := proj.Sources()
	if err != nil {
		return nil, &CompileError{Entry: entry, Err: err}
	}
	if len(srcs) == 0 {
		return nil, &CompileError{Entry: entry, File: proj.Manifest.ScriptsDir, Err: ErrNoSources}
	}

	typeName := entryTypeName(entry)
	decl, err := scanEntry(entry, typeName, srcs)
	if err != nil {
		return nil, err
	}

	u := &goUnit{log: c.log, entry: entry, typeName: typeName, digest: project.Digest(srcs), hasStop: decl.methods["OnStop"]}
	u.out = &zapio.Writer{Log: c.log.With(zap.String("src", "Script"), zap.String("entry", entry)), Level: zapcore.InfoLevel}
	i := interp.New(interp.Options{Stdout: u.out, Stderr: u.out})
	if err := i.Use(c.restricted); err != nil {
		return nil, &CompileError{Entry: entry, Msg: "load stdlib", Err: err}
	}
	if err := i.Use(u.exports()); err != nil {
		return nil, &CompileError{Entry: entry, Msg: "load engine api", Err: err}
	}
	u.interp = i

	for _, s := range srcs {
		if err := evalSource(ctx, i, s.Text); err != nil {
			u.out.Close()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, &CompileError{Entry: entry, File: s.Rel, Msg: "compile aborted", Err: ctxErr}
			}
			return nil, goCompileError(entry, s.Rel, err)
		}
		c.log.Debug("loaded go script", zap.String("src", "Compiler"), zap.String("file", s.Rel))
	}

	if err := evalSource(ctx, i, u.factorySource()); err != nil {
		u.out.Close()
		return nil, goCompileError(entry, decl.file, err)
	}
	v, err := i.EvalWithContext(ctx, goFactoryName)
	if err != nil {
		u.out.Close()
		return nil, goCompileError(entry, decl.file, err)
	}
	factory, ok := v.Interface().(func() Hooks)
	if !ok {
		u.out.Close()
		return nil, &CompileError{Entry: entry, File: decl.file, Msg: fmt.Sprintf("unexpected factory type %s", v.Type())}
	}
	u.factory = factory
	c.log.Info("go unit compiled", zap.String("src", "Compiler"), zap.String("entry", entry),
		zap.Int("files", len(srcs)), zap.String("digest", u.digest[:12]))
	return u, nil
}

// evalSource evaluates one file. yaegi reports most faults as errors but can
// panic on malformed input.
func evalSource(ctx context.Context, i *interp.Interpreter, text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("interpreter panic: %v", r)
		}
	}()
	_, err = i.EvalWithContext(ctx, normalizeGoSource(text))
	return err
}

// normalizeGoSource drops leading build constraints and renames the package
// clause to main so that all files share one scope.
func normalizeGoSource(text string) string {
	lines := strings.Split(text, "\n")
	n := 0
	for n < len(lines) {
		l := strings.TrimSpace(lines[n])
		if strings.HasPrefix(l, "//go:build") || strings.HasPrefix(l, "// +build") {
			lines[n] = ""
			n++
			continue
		}
		break
	}
	text = strings.Join(lines, "\n")
	if loc := goPackageClause.FindStringIndex(text); loc != nil {
		text = text[:loc[0]] + "package main" + text[loc[1]:]
	}
	return text
}

type entryDecl struct {
	file    string
	methods map[string]bool
}

// scanEntry parses every source up front so syntax errors carry a location
// and the entry type's hooks can be checked before anything is evaluated.
func scanEntry(entry, typeName string, srcs []project.Source) (*entryDecl, error) {
	fset := token.NewFileSet()
	decl := &entryDecl{methods: make(map[string]bool)}
	found := false
	for _, s := range srcs {
		f, err := parser.ParseFile(fset, s.Rel, s.Text, parser.SkipObjectResolution)
		if err != nil {
			ce := &CompileError{Entry: entry, File: s.Rel, Msg: err.Error(), Err: err}
			var list scanner.ErrorList
			if errors.As(err, &list) && len(list) > 0 {
				ce.Line = list[0].Pos.Line
				ce.Msg = list[0].Msg
			}
			return nil, ce
		}
		for _, d := range f.Decls {
			switch d := d.(type) {
			case *ast.GenDecl:
				if d.Tok != token.TYPE {
					continue
				}
				for _, spec := range d.Specs {
					if ts, ok := spec.(*ast.TypeSpec); ok && ts.Name.Name == typeName {
						found = true
						decl.file = s.Rel
					}
				}
			case *ast.FuncDecl:
				if d.Recv == nil || len(d.Recv.List) == 0 {
					continue
				}
				if receiverName(d.Recv.List[0].Type) == typeName {
					decl.methods[d.Name.Name] = true
				}
			}
		}
	}
	if !found {
		return nil, &CompileError{Entry: entry, Msg: fmt.Sprintf("type %s not defined", typeName), Err: ErrSymbolNotFound}
	}
	var missing []string
	for _, hook := range []string{"OnStart", "OnUpdate"} {
		if !decl.methods[hook] {
			missing = append(missing, hook)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingCapabilityError{Entry: entry, Missing: missing}
	}
	return decl, nil
}

func receiverName(x ast.Expr) string {
	if star, ok := x.(*ast.StarExpr); ok {
		x = star.X
	}
	if id, ok := x.(*ast.Ident); ok {
		return id.Name
	}
	return ""
}

func goCompileError(entry, file string, err error) *CompileError {
	msg := strings.TrimSpace(err.Error())
	ce := &CompileError{Entry: entry, File: file, Msg: msg, Err: err}
	if m := goEvalLoc.FindStringSubmatch(msg); m != nil {
		ce.Line, _ = strconv.Atoi(m[1])
		ce.Msg = m[2]
	}
	return ce
}

const goFactoryName = "gdNewInstance"

// Hooks carries the bound methods of one entry instance across the
// interpreter boundary.
type Hooks struct {
	Start  func(w *ecs.World)
	Update func(dt float64)
	Stop   func()
}

func (u *goUnit) factorySource() string {
	var b strings.Builder
	b.WriteString("package main\n\nimport gdhost \"gdengine/host\"\n\n")
	fmt.Fprintf(&b, "func %s() gdhost.Hooks {\n\tm := new(%s)\n", goFactoryName, u.typeName)
	b.WriteString("\treturn gdhost.Hooks{Start: m.OnStart, Update: m.OnUpdate")
	if u.hasStop {
		b.WriteString(", Stop: m.OnStop")
	}
	b.WriteString("}\n}\n")
	return b.String()
}

// goUnit owns one interpreter.
type goUnit struct {
	log      *zap.Logger
	entry    string
	typeName string
	digest   string
	hasStop  bool

	interp  *interp.Interpreter
	out     *zapio.Writer
	factory func() Hooks
	env     *Env
	closed  bool

	behaviours []ecs.Component
}

func (u *goUnit) Entry() string  { return u.entry }
func (u *goUnit) Digest() string { return u.digest }

func (u *goUnit) Instantiate(env *Env) (Instance, error) {
	if u.closed {
		return nil, errors.New("unit closed")
	}
	u.env = env
	var h Hooks
	if err := guard("new", func() { h = u.factory() }); err != nil {
		return nil, &RuntimeFault{Hook: "new", Err: err}
	}
	return &goInstance{u: u, hooks: h}, nil
}

// track records a component created through the script API so that Close
// can detach it.
func (u *goUnit) track(c ecs.Component) {
	u.behaviours = append(u.behaviours, c)
}

func (u *goUnit) Close() {
	if u.closed {
		return
	}
	for i := len(u.behaviours) - 1; i >= 0; i-- {
		b := u.behaviours[i]
		if e := ecs.EntityOf(b); e != nil {
			e.RemoveComponent(b)
		}
	}
	u.behaviours = nil
	// Behaviour literals built without NewBehaviour are not tracked; their
	// funcs point into this interpreter, so drop every remaining one.
	if u.env != nil && u.env.World != nil {
		var stale []ecs.Component
		u.env.World.Walk(func(e *ecs.Entity) bool {
			for _, c := range e.Components() {
				if _, ok := c.(*ecs.Behaviour); ok {
					stale = append(stale, c)
				}
			}
			return true
		})
		for _, c := range stale {
			if e := ecs.EntityOf(c); e != nil {
				e.RemoveComponent(c)
			}
		}
	}
	u.closed = true
	u.env = nil
	u.factory = nil
	u.interp = nil
	u.out.Close()
}

type goInstance struct {
	u     *goUnit
	hooks Hooks
}

// guard converts a panic raised by interpreted code into an error.
func guard(hook string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = &RuntimeFault{Hook: hook, Err: e}
				return
			}
			err = &RuntimeFault{Hook: hook, Err: fmt.Errorf("%v", r)}
		}
	}()
	fn()
	return nil
}

func (i *goInstance) OnStart(w *ecs.World) error {
	if i.u.closed {
		return nil
	}
	return guard("OnStart", func() { i.hooks.Start(w) })
}

func (i *goInstance) OnUpdate(dt float64) error {
	if i.u.closed {
		return nil
	}
	return guard("OnUpdate", func() { i.hooks.Update(dt) })
}

func (i *goInstance) OnStop() error {
	if i.u.closed || i.hooks.Stop == nil {
		return nil
	}
	return guard("OnStop", i.hooks.Stop)
}
