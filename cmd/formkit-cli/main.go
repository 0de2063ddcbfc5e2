package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/goliatone/go-formkit/pkg/config"
	"github.com/goliatone/go-formkit/pkg/form"
	"github.com/goliatone/go-formkit/pkg/render"
	"github.com/goliatone/go-formkit/pkg/renderers/html"
	"github.com/goliatone/go-formkit/pkg/renderers/tui"
	"github.com/goliatone/go-formkit/pkg/validation"
)

func main() {
	source := flag.String("config", "examples/registration/registration.yaml", "form document (YAML or JSON)")
	renderer := flag.String("renderer", "tui", "renderer to use (tui or html)")
	format := flag.String("format", "json", "tui output format (json, form, pretty)")
	output := flag.String("output", "", "output file (stdout if empty)")
	checkEndpoint := flag.String("check-endpoint", "", "name availability endpoint; simulated when empty")
	verbose := flag.Bool("v", false, "log form diagnostics to stderr")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	validators := validation.NewRegistry()
	if *checkEndpoint != "" {
		checker := &validation.HTTPChecker{Endpoint: *checkEndpoint}
		if err := validators.Register(validation.NameAvailabilityValidator, validation.NameAvailability(checker)); err != nil {
			log.Fatalf("Failed to register name check: %v", err)
		}
	}

	def, err := config.LoadFile(*source, config.Options{Validators: validators})
	if err != nil {
		log.Fatalf("Failed to load form: %v", err)
	}

	logger := log.New(os.Stderr, "formkit ", log.LstdFlags)
	if !*verbose {
		logger.SetOutput(io.Discard)
	}
	f, err := def.NewForm(form.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to build form: %v", err)
	}
	defer f.Close()

	var out []byte
	switch *renderer {
	case "tui":
		r, err := tui.New(tui.WithOutputFormat(tui.OutputFormat(*format)), tui.WithLogger(logger))
		if err != nil {
			log.Fatalf("Failed to create renderer: %v", err)
		}
		out, err = r.Collect(ctx, f)
		if err != nil {
			log.Fatalf("Failed to fill form: %v", err)
		}
	case "html":
		r, err := html.New()
		if err != nil {
			log.Fatalf("Failed to create renderer: %v", err)
		}
		rctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		out, err = r.Render(rctx, f.View(), render.RenderOptions{Title: def.Title})
		if err != nil {
			log.Fatalf("Failed to render form: %v", err)
		}
	default:
		log.Fatalf("unknown renderer: %q", *renderer)
	}

	if *output != "" {
		if err := os.WriteFile(*output, out, 0o644); err != nil {
			log.Fatalf("Failed to write output: %v", err)
		}
		fmt.Printf("Form written to %s\n", *output)
		return
	}
	fmt.Println(string(out))
}
