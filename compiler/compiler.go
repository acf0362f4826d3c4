// Package compiler turns GLSL shader sources into SPIR-V through the
// glslangValidator binary, caching compiled blobs next to their sources.
package compiler

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Binary is the compiler executable looked up on PATH.
const Binary = "glslangValidator"

// Check verifies the compiler binary is available.
func Check() error {
	if _, err := exec.LookPath(Binary); err != nil {
		return fmt.Errorf("%s not found on PATH: %w", Binary, err)
	}
	return nil
}

// StageFor picks the glslang stage name from the shader file name.
func StageFor(fileName string) string {
	switch {
	case strings.Contains(fileName, ".vert"):
		return "vert"
	case strings.Contains(fileName, ".comp"):
		return "comp"
	default:
		return "frag"
	}
}

// CompileFile compiles a shader file with the given preamble fragments
// prepended, in order. A .spv file next to the source that is newer than the
// source is returned without recompiling.
func CompileFile(shaderFile string, preambles ...string) ([]byte, error) {
	srcInfo, err := os.Stat(shaderFile)
	if err != nil {
		return nil, fmt.Errorf("shader file '%s' does not exist: %w", shaderFile, err)
	}

	outputFile := strings.TrimSuffix(shaderFile, filepath.Ext(shaderFile)) + ".spv"
	if outInfo, err := os.Stat(outputFile); err == nil && outInfo.ModTime().After(srcInfo.ModTime()) {
		if data, err := os.ReadFile(outputFile); err == nil {
			log.Printf("Using cached shader file '%s'", outputFile)
			return data, nil
		}
	}

	contents, err := os.ReadFile(shaderFile)
	if err != nil {
		return nil, fmt.Errorf("couldn't read shader file '%s': %w", shaderFile, err)
	}

	var merged bytes.Buffer
	for _, p := range preambles {
		merged.WriteString(p)
	}
	merged.Write(contents)

	log.Printf("Compiling shader '%s'...", shaderFile)
	if err := runCompiler(merged.Bytes(), StageFor(shaderFile), outputFile); err != nil {
		return nil, fmt.Errorf("compiling '%s': %w", shaderFile, err)
	}

	return os.ReadFile(outputFile)
}

// CompileSource compiles an in-memory shader, used for the built-in quad and
// blit shaders. name only shapes diagnostics and stage selection.
func CompileSource(name, source string) ([]byte, error) {
	tmp, err := os.CreateTemp("", "shaderproj-*.spv")
	if err != nil {
		return nil, err
	}
	outputFile := tmp.Name()
	tmp.Close()
	defer os.Remove(outputFile)

	if err := runCompiler([]byte(source), StageFor(name), outputFile); err != nil {
		return nil, fmt.Errorf("compiling built-in shader '%s': %w", name, err)
	}
	return os.ReadFile(outputFile)
}

func runCompiler(source []byte, stage, outputFile string) error {
	cmd := exec.Command(Binary,
		"--stdin", "-S", stage,
		"-V", "--target-env", "vulkan1.2",
		"-o", outputFile)
	cmd.Stdin = bytes.NewReader(source)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w\n%s", Binary, err, out)
	}
	return nil
}
