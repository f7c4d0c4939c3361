package generator

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Options configures the generator.
type Options struct {
	DryRun bool
}

// Generator turns //hx: directives on component functions into
// constructor registrations.
type Generator struct {
	opts Options
	fset *token.FileSet
}

// New creates a new generator.
func New(opts Options) *Generator {
	return &Generator{
		opts: opts,
		fset: token.NewFileSet(),
	}
}

// Generate generates code for the given package patterns.
func (g *Generator) Generate(patterns ...string) error {
	packages, err := g.findPackages(patterns)
	if err != nil {
		return err
	}

	for _, pkg := range packages {
		if err := g.generatePackage(pkg); err != nil {
			return fmt.Errorf("package %s: %w", pkg, err)
		}
	}

	return nil
}

// Clean removes generated files for the given package patterns.
func (g *Generator) Clean(patterns ...string) error {
	packages, err := g.findPackages(patterns)
	if err != nil {
		return err
	}

	for _, pkg := range packages {
		if err := g.cleanPackage(pkg); err != nil {
			return fmt.Errorf("package %s: %w", pkg, err)
		}
	}

	return nil
}

// findPackages resolves package patterns to directory paths.
func (g *Generator) findPackages(patterns []string) ([]string, error) {
	var packages []string

	for _, pattern := range patterns {
		if !strings.HasSuffix(pattern, "/...") {
			packages = append(packages, pattern)
			continue
		}

		root := strings.TrimSuffix(pattern, "/...")
		if root == "" {
			root = "."
		}

		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			// Skip hidden, vendored and underscore-prefixed directories
			base := filepath.Base(path)
			if path != root && (strings.HasPrefix(base, ".") || strings.HasPrefix(base, "_") ||
				base == "vendor" || base == "testdata") {
				return filepath.SkipDir
			}

			entries, err := os.ReadDir(path)
			if err != nil {
				return nil
			}
			for _, entry := range entries {
				if !entry.IsDir() && isSourceFile(entry.Name()) {
					packages = append(packages, path)
					break
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return packages, nil
}

func isSourceFile(name string) bool {
	return strings.HasSuffix(name, ".go") &&
		!strings.HasSuffix(name, "_test.go") &&
		!strings.HasSuffix(name, "_hx.go")
}

// generatePackage generates code for a single package.
func (g *Generator) generatePackage(pkgPath string) error {
	pkgs, err := parser.ParseDir(g.fset, pkgPath, func(info os.FileInfo) bool {
		return isSourceFile(info.Name())
	}, parser.ParseComments)
	if err != nil {
		return err
	}

	for pkgName, pkg := range pkgs {
		files := make([]string, 0, len(pkg.Files))
		for name := range pkg.Files {
			files = append(files, name)
		}
		sort.Strings(files)

		for _, name := range files {
			info, err := g.parseFile(name, pkg.Files[name])
			if err != nil {
				return err
			}
			if info == nil {
				continue
			}
			if err := g.generateFile(pkgPath, pkgName, info); err != nil {
				return err
			}
		}
	}

	return nil
}

// cleanPackage removes generated files from a package.
func (g *Generator) cleanPackage(pkgPath string) error {
	entries, err := os.ReadDir(pkgPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "_hx.go") {
			continue
		}
		path := filepath.Join(pkgPath, entry.Name())
		fmt.Printf("removing %s\n", path)
		if !g.opts.DryRun {
			if err := os.Remove(path); err != nil {
				return err
			}
		}
	}

	return nil
}

// FileInfo holds the members declared in one source file.
type FileInfo struct {
	SourceFile string
	Members    []*MemberInfo
}

// MemberInfo is one method or accessor registration.
type MemberInfo struct {
	Constructor string // package-level *hxcore.Constructor variable
	Name        string
	Func        string // method function
	Getter      string
	Setter      string
	Accessor    bool
	Watches     []WatchInfo
	Hooks       []HookInfo
}

// WatchInfo is a parsed //hx:watch directive.
type WatchInfo struct {
	Key       string
	Deep      bool
	Immediate bool
	NoArgs    bool
	Join      bool
	Label     string
	Group     string
}

// HookInfo is a parsed //hx:hook directive.
type HookInfo struct {
	Phase string
	After []string
}

var phases = map[string]string{
	"beforeCreate":     "HookBeforeCreate",
	"beforeDataCreate": "HookBeforeDataCreate",
	"created":          "HookCreated",
	"beforeMount":      "HookBeforeMount",
	"mounted":          "HookMounted",
	"beforeUpdate":     "HookBeforeUpdate",
	"updated":          "HookUpdated",
	"activated":        "HookActivated",
	"deactivated":      "HookDeactivated",
	"beforeDestroy":    "HookBeforeDestroy",
	"destroyed":        "HookDestroyed",
}

// directive is one //hx:verb line.
type directive struct {
	verb string
	args []string
	pos  token.Pos
}

func directives(doc *ast.CommentGroup) []directive {
	if doc == nil {
		return nil
	}
	var out []directive
	for _, c := range doc.List {
		text, ok := strings.CutPrefix(c.Text, "//hx:")
		if !ok {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		out = append(out, directive{verb: fields[0], args: fields[1:], pos: c.Pos()})
	}
	return out
}

// parseFile collects the members declared in file. It returns nil if the
// file has no directives.
func (g *Generator) parseFile(filename string, file *ast.File) (*FileInfo, error) {
	info := &FileInfo{SourceFile: filename}
	accessors := map[string]*MemberInfo{}

	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv != nil {
			continue
		}
		dirs := directives(fn.Doc)
		if len(dirs) == 0 {
			continue
		}

		var member *MemberInfo
		var watches []WatchInfo
		var hooks []HookInfo
		for _, d := range dirs {
			switch d.verb {
			case "method":
				if member != nil || len(d.args) < 1 || len(d.args) > 2 {
					return nil, g.errorf(d.pos, "usage: //hx:method Constructor [name]")
				}
				if err := checkSignature(fn, sigMethod); err != nil {
					return nil, g.errorf(fn.Pos(), "%s: %v", fn.Name.Name, err)
				}
				name := lowerFirst(fn.Name.Name)
				if len(d.args) == 2 {
					name = d.args[1]
				}
				member = &MemberInfo{Constructor: d.args[0], Name: name, Func: fn.Name.Name}
				info.Members = append(info.Members, member)

			case "get", "set":
				if member != nil || len(d.args) != 2 {
					return nil, g.errorf(d.pos, "usage: //hx:%s Constructor name", d.verb)
				}
				sig := sigGetter
				if d.verb == "set" {
					sig = sigSetter
				}
				if err := checkSignature(fn, sig); err != nil {
					return nil, g.errorf(fn.Pos(), "%s: %v", fn.Name.Name, err)
				}
				key := d.args[0] + "." + d.args[1]
				member = accessors[key]
				if member == nil {
					member = &MemberInfo{Constructor: d.args[0], Name: d.args[1], Accessor: true}
					accessors[key] = member
					info.Members = append(info.Members, member)
				}
				if d.verb == "get" {
					member.Getter = fn.Name.Name
				} else {
					member.Setter = fn.Name.Name
				}

			case "watch":
				w, err := parseWatch(d.args)
				if err != nil {
					return nil, g.errorf(d.pos, "%v", err)
				}
				watches = append(watches, w)

			case "hook":
				h, err := parseHook(d.args)
				if err != nil {
					return nil, g.errorf(d.pos, "%v", err)
				}
				hooks = append(hooks, h)

			default:
				return nil, g.errorf(d.pos, "unknown directive //hx:%s", d.verb)
			}
		}

		if member == nil {
			return nil, g.errorf(fn.Pos(), "%s: //hx:watch and //hx:hook need //hx:method, //hx:get or //hx:set", fn.Name.Name)
		}
		member.Watches = append(member.Watches, watches...)
		member.Hooks = append(member.Hooks, hooks...)
	}

	if len(info.Members) == 0 {
		return nil, nil
	}
	return info, nil
}

func parseWatch(args []string) (WatchInfo, error) {
	if len(args) == 0 {
		return WatchInfo{}, fmt.Errorf("usage: //hx:watch key [deep] [immediate] [noargs] [join] [label=x] [group=y]")
	}
	w := WatchInfo{Key: args[0]}
	for _, opt := range args[1:] {
		name, value, hasValue := strings.Cut(opt, "=")
		switch {
		case name == "deep" && !hasValue:
			w.Deep = true
		case name == "immediate" && !hasValue:
			w.Immediate = true
		case name == "noargs" && !hasValue:
			w.NoArgs = true
		case name == "join" && !hasValue:
			w.Join = true
		case name == "label" && hasValue:
			w.Label = value
		case name == "group" && hasValue:
			w.Group = value
		default:
			return WatchInfo{}, fmt.Errorf("unknown watch option %q", opt)
		}
	}
	return w, nil
}

func parseHook(args []string) (HookInfo, error) {
	if len(args) == 0 || len(args) > 2 {
		return HookInfo{}, fmt.Errorf("usage: //hx:hook phase [after=a,b]")
	}
	if _, ok := phases[args[0]]; !ok {
		return HookInfo{}, fmt.Errorf("unknown phase %q", args[0])
	}
	h := HookInfo{Phase: args[0]}
	if len(args) == 2 {
		after, ok := strings.CutPrefix(args[1], "after=")
		if !ok || after == "" {
			return HookInfo{}, fmt.Errorf("unknown hook option %q", args[1])
		}
		h.After = strings.Split(after, ",")
	}
	return h, nil
}

type signature int

const (
	sigMethod signature = iota // func(*hxcore.Instance, ...any) error
	sigGetter                  // func(*hxcore.Instance) any
	sigSetter                  // func(*hxcore.Instance, any)
)

// checkSignature verifies the parameter and result counts of fn. Types are
// left to the compiler.
func checkSignature(fn *ast.FuncDecl, sig signature) error {
	params := fieldCount(fn.Type.Params)
	results := fieldCount(fn.Type.Results)
	switch sig {
	case sigMethod:
		variadic := false
		if list := fn.Type.Params.List; len(list) > 0 {
			_, variadic = list[len(list)-1].Type.(*ast.Ellipsis)
		}
		if params != 2 || !variadic || results != 1 {
			return fmt.Errorf("method must be func(*hxcore.Instance, ...any) error")
		}
	case sigGetter:
		if params != 1 || results != 1 {
			return fmt.Errorf("getter must be func(*hxcore.Instance) any")
		}
	case sigSetter:
		if params != 2 || results != 0 {
			return fmt.Errorf("setter must be func(*hxcore.Instance, any)")
		}
	}
	return nil
}

func fieldCount(fl *ast.FieldList) int {
	if fl == nil {
		return 0
	}
	n := 0
	for _, f := range fl.List {
		if len(f.Names) == 0 {
			n++
		} else {
			n += len(f.Names)
		}
	}
	return n
}

func (g *Generator) errorf(pos token.Pos, format string, args ...any) error {
	return fmt.Errorf("%s: %s", g.fset.Position(pos), fmt.Sprintf(format, args...))
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
