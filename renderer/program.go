package renderer

import (
	"log"
	"os"

	vk "github.com/goki/vulkan"

	"github.com/richinsley/goshaderproj/images"
	"github.com/richinsley/goshaderproj/project"
)

// Program is a loaded program with its runtime passes. A program whose
// shaders failed to compile stays loaded but is never scheduled.
type Program struct {
	Name           string
	Desc           *project.Program
	Passes         []*Pass
	ImagePassIndex int
	Runnable       bool
}

// NewProgram wraps a loaded description in runtime passes.
func NewProgram(desc *project.Program) *Program {
	prog := &Program{
		Name:           desc.Name,
		Desc:           desc,
		ImagePassIndex: desc.ImagePassIndex,
	}
	for _, decl := range desc.Passes {
		prog.Passes = append(prog.Passes, newPass(desc.Name, desc.Dir, decl))
	}
	return prog
}

// Compile compiles every pass shader and updates Runnable. A compile failure
// in any pass makes the whole program non-runnable.
func (p *Program) Compile() bool {
	var commonSource string
	if p.Desc.CommonSourcePath != "" {
		data, err := os.ReadFile(p.Desc.CommonSourcePath)
		if err != nil {
			log.Printf("WARNING: program '%s' cannot read common source: %v", p.Name, err)
		} else {
			commonSource = string(data)
		}
	}

	for _, pass := range p.Passes {
		if err := pass.Compile(commonSource); err != nil {
			log.Printf("ERROR: %v", err)
			p.Runnable = false
			return false
		}
	}
	p.Runnable = true
	return true
}

func (p *Program) createFragmentShaders(dev vk.Device) error {
	for _, pass := range p.Passes {
		if err := pass.createFragmentShader(dev); err != nil {
			return err
		}
	}
	return nil
}

func (p *Program) loadInputs(u *images.Uploader, cache *images.Cache, projectPath string) {
	for _, pass := range p.Passes {
		pass.loadInputs(u, cache, projectPath)
	}
}

func (p *Program) cleanup(dev vk.Device) {
	for _, pass := range p.Passes {
		pass.cleanup(dev)
	}
}
