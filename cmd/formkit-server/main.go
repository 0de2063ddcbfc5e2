package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-formkit/pkg/config"
	"github.com/goliatone/go-formkit/pkg/form"
	"github.com/goliatone/go-formkit/pkg/render"
	"github.com/goliatone/go-formkit/pkg/renderers/html"
	"github.com/goliatone/go-formkit/pkg/renderers/tui"
	"github.com/goliatone/go-formkit/pkg/transport/httpapi"
	"github.com/goliatone/go-formkit/pkg/validation"
)

func main() {
	addr := flag.String("addr", ":8383", "listen address")
	source := flag.String("config", "examples/registration/registration.yaml", "form document (YAML or JSON)")
	idle := flag.Duration("idle", httpapi.DefaultIdleTimeout, "session idle timeout")
	checkEndpoint := flag.String("check-endpoint", "", "name availability endpoint; simulated when empty")
	themeName := flag.String("theme", "", "theme name exposed to templates")
	variant := flag.String("variant", "", "theme variant")
	flag.Parse()

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
	sessions := httpapi.NewSessions(func() (*form.Form, error) {
		return def.NewForm(form.WithLogger(logger))
	}, *idle)

	renderers := render.NewRegistry()
	htmlRenderer, err := html.New()
	if err != nil {
		log.Fatalf("Failed to create html renderer: %v", err)
	}
	renderers.MustRegister(htmlRenderer)
	textRenderer, err := tui.New()
	if err != nil {
		log.Fatalf("Failed to create text renderer: %v", err)
	}
	renderers.MustRegister(textRenderer)

	opts := []httpapi.Option{
		httpapi.WithRenderers(renderers),
		httpapi.WithTitle(def.Title),
		httpapi.WithLogger(logger),
	}
	if *themeName != "" {
		opts = append(opts, httpapi.WithTheme(&theme.RendererConfig{Theme: *themeName, Variant: *variant}))
	}
	api := httpapi.NewServer(sessions, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sessions.Run(ctx, time.Minute)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("Serving %q on %s", def.Title, *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}
}
