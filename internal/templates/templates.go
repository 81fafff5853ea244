// Package templates holds the starter Cyclefiles written by backcycle init.
//
// Each template is an embedded YAML file whose first line is a comment
// describing it. Templates are written verbatim: ${VAR} references are
// resolved when the Cyclefile is loaded, not when it is created.
package templates

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
)

//go:embed *.yaml
var files embed.FS

const ext = ".yaml"

// Template is a starter Cyclefile.
type Template struct {
	Name        string
	Description string
	Content     []byte
}

// List returns the template names sorted alphabetically.
func List() []string {
	entries, err := files.ReadDir(".")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && path.Ext(e.Name()) == ext {
			names = append(names, strings.TrimSuffix(e.Name(), ext))
		}
	}
	sort.Strings(names)
	return names
}

// Get returns the named template.
func Get(name string) (*Template, error) {
	content, err := files.ReadFile(name + ext)
	if err != nil {
		return nil, fmt.Errorf("template '%s' not found (available: %s)", name, strings.Join(List(), ", "))
	}
	return &Template{
		Name:        name,
		Description: describe(content),
		Content:     content,
	}, nil
}

// Describe returns the one-line description of the named template, or an
// empty string when there is no such template.
func Describe(name string) string {
	tmpl, err := Get(name)
	if err != nil {
		return ""
	}
	return tmpl.Description
}

// describe reads the leading comment line of a template.
func describe(content []byte) string {
	line, _, _ := bufio.NewReader(bytes.NewReader(content)).ReadLine()
	text := strings.TrimSpace(string(line))
	if !strings.HasPrefix(text, "#") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(text, "#"))
}
