package generator

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
)

// generateFile writes the *_hx.go file for one source file.
func (g *Generator) generateFile(pkgPath, pkgName string, info *FileInfo) error {
	baseName := strings.TrimSuffix(filepath.Base(info.SourceFile), ".go")
	outputFile := filepath.Join(pkgPath, baseName+"_hx.go")

	fmt.Printf("generating %s\n", outputFile)

	if g.opts.DryRun {
		return nil
	}

	code, err := g.render(pkgName, info)
	if err != nil {
		return err
	}
	return os.WriteFile(outputFile, code, 0644)
}

// render produces the formatted source of a generated file.
func (g *Generator) render(pkgName string, info *FileInfo) ([]byte, error) {
	tmpl, err := template.New("hx").Funcs(template.FuncMap{
		"quote":     strconv.Quote,
		"watchDecl": watchDeclCode,
		"hookCall":  hookCallCode,
		"orNil":     orNil,
	}).Parse(hxTemplate)
	if err != nil {
		return nil, err
	}

	data := struct {
		Package string
		Source  string
		File    *FileInfo
	}{
		Package: pkgName,
		Source:  filepath.Base(info.SourceFile),
		File:    info,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return buf.Bytes(), fmt.Errorf("format source: %w", err)
	}
	return formatted, nil
}

// watchDeclCode generates a hxcore.WatchDecl literal.
func watchDeclCode(w WatchInfo) string {
	var fields []string
	if w.Deep {
		fields = append(fields, "Deep: true")
	}
	if w.Immediate {
		fields = append(fields, "Immediate: true")
	}
	if w.NoArgs {
		fields = append(fields, "NoArgs: true")
	}
	if w.Label != "" {
		fields = append(fields, "Label: "+strconv.Quote(w.Label))
	}
	if w.Group != "" {
		fields = append(fields, "Group: "+strconv.Quote(w.Group))
	}
	if w.Join {
		fields = append(fields, "Join: true")
	}
	return "hxcore.WatchDecl{" + strings.Join(fields, ", ") + "}"
}

// hookCallCode generates the arguments of a MemberBuilder.Hook call.
func hookCallCode(h HookInfo) string {
	args := []string{"hxcore." + phases[h.Phase]}
	for _, a := range h.After {
		args = append(args, strconv.Quote(a))
	}
	return strings.Join(args, ", ")
}

func orNil(s string) string {
	if s == "" {
		return "nil"
	}
	return s
}

const hxTemplate = `// Code generated by hxcore. DO NOT EDIT.
// Source: {{.Source}}

package {{.Package}}

import "github.com/pthm/hxcore"

func init() {
{{- range .File.Members}}
	{{.Constructor}}.
	{{- if .Accessor}}Accessor({{quote .Name}}, {{orNil .Getter}}, {{orNil .Setter}})
	{{- else}}Method({{quote .Name}}, {{.Func}})
	{{- end}}
	{{- range .Watches}}.
		Watch({{quote .Key}}, {{watchDecl .}})
	{{- end}}
	{{- range .Hooks}}.
		Hook({{hookCall .}})
	{{- end}}
{{- end}}
}
`
