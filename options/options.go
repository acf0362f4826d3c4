package options

import (
	"flag"
	"fmt"
	"os"
)

// Options holds the parsed command line. Every flag has a short and a long
// form pointing at the same value.
type Options struct {
	Width      int
	Height     int
	Rate       int
	Fullscreen bool
	Monitor    int
	Debug      bool

	ProjectPath string
	Shader      string
	Script      string
	Interval    float64
	Watch       bool

	Record   bool
	Duration float64
	FPS      int
	Output   string
	Codec    string

	Help bool
}

// Parse reads the command line. Returns an error for unknown flags or bad
// values instead of exiting, so main can map it to an exit code.
func Parse(args []string) (*Options, error) {
	o := &Options{}
	fs := flag.NewFlagSet("goshaderproj", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	fs.IntVar(&o.Width, "W", 1024, "window width")
	fs.IntVar(&o.Width, "width", 1024, "window width")
	fs.IntVar(&o.Height, "H", 768, "window height")
	fs.IntVar(&o.Height, "height", 768, "window height")
	fs.IntVar(&o.Rate, "R", 60, "refresh rate for fullscreen mode")
	fs.IntVar(&o.Rate, "rate", 60, "refresh rate for fullscreen mode")
	fs.BoolVar(&o.Fullscreen, "f", false, "run fullscreen")
	fs.BoolVar(&o.Fullscreen, "fullscreen", false, "run fullscreen")
	fs.IntVar(&o.Monitor, "m", 0, "monitor index for fullscreen mode")
	fs.IntVar(&o.Monitor, "monitor", 0, "monitor index for fullscreen mode")
	fs.BoolVar(&o.Debug, "d", false, "enable the Vulkan validation layer")
	fs.BoolVar(&o.Debug, "debug", false, "enable the Vulkan validation layer")

	fs.StringVar(&o.ProjectPath, "p", ".", "project directory")
	fs.StringVar(&o.ProjectPath, "project", ".", "project directory")
	fs.StringVar(&o.Shader, "s", "", "play a single program instead of a script")
	fs.StringVar(&o.Shader, "shader", "", "play a single program instead of a script")
	fs.StringVar(&o.Script, "t", "script.json", "script file, relative to the project directory")
	fs.StringVar(&o.Script, "script", "script.json", "script file, relative to the project directory")
	fs.Float64Var(&o.Interval, "i", 1.0, "base interval in seconds; script durations scale it")
	fs.Float64Var(&o.Interval, "interval", 1.0, "base interval in seconds; script durations scale it")
	fs.BoolVar(&o.Watch, "w", false, "watch program directories and reload shaders on change")
	fs.BoolVar(&o.Watch, "watch", false, "watch program directories and reload shaders on change")

	fs.BoolVar(&o.Record, "record", false, "render offscreen into a video file instead of a window")
	fs.Float64Var(&o.Duration, "duration", 10.0, "seconds of video to record")
	fs.IntVar(&o.FPS, "fps", 60, "frame rate of the recorded video")
	fs.StringVar(&o.Output, "o", "output.mp4", "recorded video file")
	fs.StringVar(&o.Output, "output", "output.mp4", "recorded video file")
	fs.StringVar(&o.Codec, "codec", "libx264", "video codec for recording")

	fs.BoolVar(&o.Help, "h", false, "show this help")
	fs.BoolVar(&o.Help, "help", false, "show this help")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.Help {
		fmt.Fprintln(os.Stderr, "goshaderproj - multipass shader player")
		fs.PrintDefaults()
	}
	if o.Width <= 0 || o.Height <= 0 {
		return nil, fmt.Errorf("width and height must be positive")
	}
	return o, nil
}
