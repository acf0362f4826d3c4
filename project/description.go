// Package project loads shader program descriptions and playback scripts
// from a project directory.
package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// MaxPassInputs is the number of sampler channels a pass can bind.
	MaxPassInputs = 4
	// MaxPasses is the number of buffer passes a program can declare, not
	// counting the image pass.
	MaxPasses = 4
)

// Sampler is the per-channel sampler configuration from description.json.
type Sampler struct {
	Filter string `json:"filter"`
	Wrap   string `json:"wrap"`
	VFlip  string `json:"vflip"`
}

// Input is one channel binding declared by a pass.
type Input struct {
	Channel  int     `json:"channel"`
	Type     string  `json:"type"`
	ID       string  `json:"id"`
	Filepath string  `json:"filepath"`
	Sampler  Sampler `json:"sampler"`
}

// Output names the buffer a pass renders into.
type Output struct {
	ID string `json:"id"`
}

// PassDecl is one renderpass entry from description.json.
type PassDecl struct {
	Type    string   `json:"type"`
	Name    string   `json:"name"`
	Code    string   `json:"code"`
	Outputs []Output `json:"outputs"`
	Inputs  []Input  `json:"inputs"`
}

// OutputID is the id of the pass's first declared output, or "" if none.
func (p *PassDecl) OutputID() string {
	if len(p.Outputs) == 0 {
		return ""
	}
	return p.Outputs[0].ID
}

// ShaderPath resolves the pass's shader source relative to the program dir.
func (p *PassDecl) ShaderPath(programDir string) string {
	return filepath.Join(programDir, p.Code)
}

// AssetPath resolves an input's file path against the project root. Paths in
// descriptions use a leading slash that means "project-relative".
func (in *Input) AssetPath(projectPath string) string {
	name := strings.TrimPrefix(in.Filepath, "/")
	return filepath.Join(projectPath, name)
}

// Program is a loaded program description: its buffer passes in declaration
// order with the image pass appended last.
type Program struct {
	Name             string
	Dir              string
	Passes           []PassDecl
	ImagePassIndex   int
	CommonSourcePath string
}

type descriptionRoot struct {
	Renderpass []PassDecl `json:"renderpass"`
}

// LoadProgram reads <projectPath>/<name>/description.json. Exactly one image
// pass is required; buffer passes keep their declaration order and the image
// pass goes last.
func LoadProgram(projectPath, name string) (*Program, error) {
	dir := filepath.Join(projectPath, name)
	descPath := filepath.Join(dir, "description.json")

	data, err := os.ReadFile(descPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open '%s': %w", descPath, err)
	}

	var root []descriptionRoot
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("cannot parse '%s': %w", descPath, err)
	}
	if len(root) == 0 {
		return nil, fmt.Errorf("'%s' has no entries", descPath)
	}

	prog := &Program{Name: name, Dir: dir}
	var imagePass *PassDecl

	for i := range root[0].Renderpass {
		node := &root[0].Renderpass[i]
		switch node.Type {
		case "image":
			if imagePass != nil {
				return nil, fmt.Errorf("program '%s' declares more than one 'image' pass", name)
			}
			imagePass = node
		case "buffer":
			prog.Passes = append(prog.Passes, *node)
		case "common":
			prog.CommonSourcePath = filepath.Join(dir, node.Code)
		}
	}

	if imagePass == nil {
		return nil, fmt.Errorf("program '%s' has no 'image' type pass", name)
	}
	if len(prog.Passes) > MaxPasses {
		return nil, fmt.Errorf("program '%s' declares %d buffer passes, the limit is %d",
			name, len(prog.Passes), MaxPasses)
	}

	prog.ImagePassIndex = len(prog.Passes)
	prog.Passes = append(prog.Passes, *imagePass)
	return prog, nil
}
