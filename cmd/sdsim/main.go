// Command sdsim grows an organism on a tetrahedral mesh: cells divide, a
// spring system relaxes the mesh and self collisions are resolved each step.
//
//	sdsim -config growth.yaml -db runs.db -stl final.stl
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/eigenbom/sds"
	"github.com/eigenbom/sds/config"
)

func main() {
	configFile := flag.String("config", "", "YAML parameter file (default: built-in parameters)")
	steps := flag.Int("steps", -1, "Number of steps, overrides the config")
	seed := flag.Int64("seed", 0, "Random seed, overrides the config when non-zero")
	db := flag.String("db", "", "SQLite database recording frames")
	stl := flag.String("stl", "", "Binary STL of the final outer surface")
	png := flag.String("png", "", "PNG snapshot of the final outer surface")
	plotPath := flag.String("plot", "", "Growth chart (.png, .svg or .pdf)")
	verbose := flag.Bool("v", false, "Log at debug level")
	dump := flag.Bool("dump", false, "Print the resolved parameters and exit")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	sds.SetLogger(log)

	p := config.Default()
	if *configFile != "" {
		var err error
		p, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// CLI flags override the config file.
	if *steps >= 0 {
		p.Steps = *steps
	}
	if *seed != 0 {
		p.Seed = *seed
	}
	override(&p.Output.Database, *db)
	override(&p.Output.STL, *stl)
	override(&p.Output.PNG, *png)
	override(&p.Output.Plot, *plotPath)
	if err := p.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if *dump {
		b, err := p.Marshal()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Stdout.Write(b)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, p, log); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func override(dst *string, flagValue string) {
	if flagValue != "" {
		*dst = flagValue
	}
}
