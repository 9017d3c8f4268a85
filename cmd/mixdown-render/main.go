package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/pflag"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mixdown-audio/mixdown"
	"github.com/mixdown-audio/mixdown/offline"
	"github.com/mixdown-audio/mixdown/version"
)

var (
	phaseStyle = lipgloss.NewStyle().Width(10).Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	doneStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FF00"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F5F"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

func main() {
	directory := pflag.StringP("output", "o", "", "Directory where to output the .wav files. The directory and its parents are created if needed. By default, files are placed in the working directory.")
	stems := pflag.BoolP("stems", "s", false, "Render every mixer track to its own .wav file instead of the full mix.")
	track := pflag.StringP("track", "t", "", "Render only the mixer track with this id.")
	rate := pflag.IntP("rate", "r", mixdown.DefaultSampleRate, "Sample rate of the rendered audio.")
	tail := pflag.Float64("tail", mixdown.DefaultTailSeconds, "Seconds rendered past the end of the song. Negative values render no tail.")
	quiet := pflag.BoolP("quiet", "q", false, "Do not print progress.")
	dump := pflag.BoolP("dump", "d", false, "Dump the expanded timeline of each project instead of rendering it.")
	versionFlag := pflag.BoolP("version", "v", false, "Print version.")
	pflag.Usage = printUsage
	pflag.Parse()
	if *versionFlag {
		fmt.Println(version.Long("mixdown-render"))
		os.Exit(0)
	}
	if pflag.NArg() == 0 {
		pflag.Usage()
		os.Exit(0)
	}
	if *stems && *track != "" {
		fmt.Fprintln(os.Stderr, "--stems and --track are mutually exclusive")
		os.Exit(2)
	}
	logger := log.New(os.Stderr, "", log.Ltime)
	if *quiet {
		logger.SetOutput(io.Discard)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	renderer := mixdown.NewRenderer(offline.Engine{})
	caser := cases.Title(language.English)
	progress := func(p mixdown.Progress) {
		if *quiet {
			return
		}
		style := phaseStyle
		switch p.Phase {
		case mixdown.PhaseComplete:
			style = doneStyle
		case mixdown.PhaseError:
			style = errorStyle
		}
		fmt.Fprintf(os.Stderr, "%s %s %s\n", style.Render(caser.String(string(p.Phase))), dimStyle.Render(fmt.Sprintf("%3d%%", p.Progress)), p.Message)
	}
	options := mixdown.RenderOptions{OnlyTrackID: *track, SampleRate: *rate, TailSeconds: *tail}
	if *tail == 0 {
		options.TailSeconds = -1
	}
	process := func(filename string) error {
		output := func(name string, contents []byte) error {
			dir := *directory
			if dir == "" {
				var err error
				dir, err = os.Getwd()
				if err != nil {
					return fmt.Errorf("could not get working directory, specify the output directory explicitly: %v", err)
				}
			}
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				return fmt.Errorf("could not create output directory %v: %v", dir, err)
			}
			f := filepath.Join(dir, name)
			if err := os.WriteFile(f, contents, 0644); err != nil {
				return fmt.Errorf("could not write file %v: %v", f, err)
			}
			logger.Printf("wrote %v", f)
			return nil
		}
		project, err := mixdown.LoadProject(filename)
		if err != nil {
			return err
		}
		_, name := filepath.Split(filename)
		name = strings.TrimSuffix(name, filepath.Ext(name))
		if *dump {
			timeline := mixdown.BuildTimeline(&project, nil, logger)
			spew.Dump(timeline)
			return nil
		}
		if *stems {
			results, err := renderer.RenderStems(ctx, &project, options, progress)
			if err != nil {
				return err
			}
			for _, s := range results {
				if err := output(name+"-"+fileSafe(s.Track.ID)+".wav", s.Result.Wav); err != nil {
					return err
				}
			}
			return nil
		}
		result, err := renderer.Render(ctx, &project, options, progress)
		if err != nil {
			return err
		}
		if *track != "" {
			name += "-" + fileSafe(*track)
		}
		logger.Printf("%v: %.2f s, peak %.1f dBFS, %d triggers, %d skipped", filename, result.DurationSeconds, mixdown.GainToDecibels(float64(result.Peak)), result.Triggers, result.Skipped)
		return output(name+".wav", result.Wav)
	}
	retval := 0
	for _, param := range pflag.Args() {
		files, err := projectFiles(param)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			retval = 1
			continue
		}
		for _, file := range files {
			if ctx.Err() != nil {
				break
			}
			if err := process(file); err != nil {
				fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", file, err)
				retval = 1
			}
		}
	}
	os.Exit(retval)
}

// projectFiles expands a directory argument to the .yml and .json projects
// directly inside it. Any other argument is returned as is.
func projectFiles(param string) ([]string, error) {
	info, err := os.Stat(param)
	if err != nil || !info.IsDir() {
		return []string{param}, nil
	}
	var files []string
	for _, pattern := range []string{"*.yml", "*.yaml", "*.json"} {
		matches, err := filepath.Glob(filepath.Join(param, pattern))
		if err != nil {
			return nil, fmt.Errorf("could not glob %v in %v: %w", pattern, param, err)
		}
		files = append(files, matches...)
	}
	return files, nil
}

// fileSafe replaces the characters that cannot appear in file names.
func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(`/\:*?"<>|`, r) {
			return '_'
		}
		return r
	}, s)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Mixdown command line utility for rendering .json/.yml project files to .wav.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	pflag.PrintDefaults()
}
