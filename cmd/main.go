package main

import (
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/richinsley/goshaderproj/compiler"
	"github.com/richinsley/goshaderproj/options"
	"github.com/richinsley/goshaderproj/project"
	"github.com/richinsley/goshaderproj/recorder"
	"github.com/richinsley/goshaderproj/renderer"
	"github.com/richinsley/goshaderproj/vulkanapp"
)

const (
	exitOK               = 0
	exitCommandLineError = 1
	exitNoScript         = 2
	exitNoPrograms       = 3
	exitShaderError      = 4
	exitVulkanError      = 5
)

func init() {
	runtime.LockOSThread()
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := options.Parse(args)
	if err != nil {
		return exitCommandLineError
	}
	if opts.Help {
		return exitOK
	}

	if err := compiler.Check(); err != nil {
		log.Printf("ERROR: %v", err)
		return exitShaderError
	}

	script, code := loadScript(opts)
	if code != exitOK {
		return code
	}

	descs, programs := loadPrograms(opts.ProjectPath, script)
	if len(programs) == 0 {
		log.Printf("ERROR: no programs could be loaded.")
		return exitNoPrograms
	}

	app, err := vulkanapp.New(vulkanapp.Parameters{
		WindowWidth:        opts.Width,
		WindowHeight:       opts.Height,
		RefreshRate:        opts.Rate,
		Fullscreen:         opts.Fullscreen,
		MonitorIndex:       opts.Monitor,
		EnableDebugRuntime: opts.Debug,
		EnableVsync:        true,
		Headless:           opts.Record,
	}, "goshaderproj")
	if err != nil {
		log.Printf("ERROR: %v", err)
		return exitVulkanError
	}
	defer app.Shutdown()

	rend := renderer.New(app, programs, opts.ProjectPath)
	if !rend.CompileShaders() {
		return exitShaderError
	}
	if err := rend.SetScript(script, opts.Interval); err != nil {
		log.Printf("ERROR: %v", err)
		return exitNoPrograms
	}
	if err := rend.Init(); err != nil {
		log.Printf("ERROR: %v", err)
		return exitVulkanError
	}
	defer func() {
		app.WaitIdle()
		rend.Shutdown()
	}()

	if opts.Record {
		rec, err := recorder.New(app, rend, recorder.Options{
			Width:    uint32(opts.Width),
			Height:   uint32(opts.Height),
			FPS:      opts.FPS,
			Duration: opts.Duration,
			Output:   opts.Output,
			Codec:    opts.Codec,
		})
		if err != nil {
			log.Printf("ERROR: %v", err)
			return exitVulkanError
		}
		defer rec.Destroy()

		if err := rec.Run(); err != nil {
			log.Printf("ERROR: recording failed: %v", err)
			return exitVulkanError
		}
		log.Printf("Wrote %s", opts.Output)
		return exitOK
	}

	if opts.Watch {
		watcher, err := project.NewWatcher(descs)
		if err != nil {
			log.Printf("WARNING: cannot watch program directories: %v", err)
		} else {
			defer watcher.Close()
			go func() {
				for range watcher.Reload() {
					rend.RequestReload()
				}
			}()
		}
	}

	app.SetHandler(rend)
	app.Run()
	return exitOK
}

// loadScript builds the playback script: a single looping entry when -s is
// given, otherwise the project's script file.
func loadScript(opts *options.Options) ([]project.ScriptEntry, int) {
	if opts.Shader != "" {
		return []project.ScriptEntry{{
			ProgramName:  opts.Shader,
			ProgramIndex: -1,
			Duration:     0,
		}}, exitOK
	}

	script, err := project.LoadScript(filepath.Join(opts.ProjectPath, opts.Script))
	if err != nil {
		log.Printf("ERROR: %v", err)
		return nil, exitNoScript
	}
	return script, exitOK
}

// loadPrograms loads each program named in the script once. Failures are
// warnings; the script skips entries it cannot resolve.
func loadPrograms(projectPath string, script []project.ScriptEntry) ([]*project.Program, []*renderer.Program) {
	var descs []*project.Program
	var programs []*renderer.Program
	loaded := map[string]bool{}

	for _, entry := range script {
		if loaded[entry.ProgramName] {
			continue
		}
		loaded[entry.ProgramName] = true

		desc, err := project.LoadProgram(projectPath, entry.ProgramName)
		if err != nil {
			log.Printf("WARNING: cannot load program '%s': %v", entry.ProgramName, err)
			continue
		}
		descs = append(descs, desc)
		programs = append(programs, renderer.NewProgram(desc))
	}
	return descs, programs
}
