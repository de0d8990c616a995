package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jwebster45206/interaction-relay/internal/sources"
	"github.com/jwebster45206/interaction-relay/pkg/interaction"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <MESInteractions_Config.xml | mods-dir>...\n", os.Args[0])
		os.Exit(1)
	}

	srcs, err := collectSources(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	if failed := validate(os.Stdout, srcs, os.Getenv("INTERACTIONS_STRICT_IDS") == "true"); failed {
		os.Exit(1)
	}
}

// collectSources accepts config files and mods directories, in argument order.
func collectSources(args []string) ([]interaction.Source, error) {
	var out []interaction.Source
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", arg, err)
		}

		if info.IsDir() {
			found, err := sources.LoadDir(arg, sources.DefaultRelativePath, slog.New(slog.NewTextHandler(io.Discard, nil)))
			if err != nil {
				return nil, err
			}
			if len(found) == 0 {
				return nil, fmt.Errorf("no interaction configs under %s", arg)
			}
			out = append(out, found...)
			continue
		}

		data, err := os.ReadFile(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", arg, err)
		}
		out = append(out, interaction.Source{Name: filepath.Base(arg), Data: data})
	}
	return out, nil
}

// validate builds a registry from srcs and reports every problem. Overwritten
// ids are reported but do not fail validation.
func validate(w io.Writer, srcs []interaction.Source, strictIDs bool) bool {
	builder := interaction.NewBuilder(slog.New(slog.NewTextHandler(io.Discard, nil)))
	builder.StrictIDs = strictIDs

	reg, rejections := builder.Build(srcs)

	failed := false
	for _, r := range rejections {
		level := "ERROR"
		if r.Kind == interaction.RejectionDuplicate {
			level = "WARN"
		} else {
			failed = true
		}
		fmt.Fprintf(w, "%s %s\n", level, r.String())
	}

	for in := range reg.All() {
		fmt.Fprintf(w, "  %-24s %-24s profiles=%v radio_calls=%d\n", in.ID, in.Label, in.CommandProfileIDs, len(in.FlavorMessages))
	}

	if failed {
		fmt.Fprintf(w, "Validation failed: %d sources checked, %d interactions loaded\n", len(srcs), reg.Len())
	} else {
		fmt.Fprintf(w, "Interaction configs are valid! %d sources checked, %d interactions loaded\n", len(srcs), reg.Len())
	}
	return failed
}
