package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pthm/hxcore"
	"github.com/pthm/hxcore/lib/config"
	"github.com/pthm/hxcore/lib/encoding"
	"github.com/pthm/hxcore/lib/htmx"
	"github.com/pthm/hxcore/lib/store"
	"github.com/pthm/hxcore/lib/vscroll"
)

type serveOptions struct {
	config string
	seed   int
}

func runServe(ctx context.Context, opts serveOptions) error {
	cfg := config.Default()
	if opts.config != "" {
		var err error
		if cfg, err = config.Load(opts.config); err != nil {
			return err
		}
	}

	log := newLogger(cfg.LogVerbosity)
	hxcore.SetLogger(log)
	log.V(1).Info("loaded settings", "config", cfg.String())

	st, err := store.Open(cfg.DB, "")
	if err != nil {
		return err
	}
	defer st.Close()
	if err := seedStore(st, opts.seed); err != nil {
		return err
	}

	handler, err := newServer(cfg, st, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: cfg.Addr, Handler: handler}
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Addr, "engine", cfg.Engine)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newServer builds the demo routes: the page at "/", its feed at "/feed"
// and Prometheus metrics at "/metrics".
func newServer(cfg *config.Config, provider vscroll.DataProvider, log logr.Logger) (http.Handler, error) {
	reg, err := hxcore.NewRegistry(cfg.Engine)
	if err != nil {
		return nil, err
	}
	reg.OnError = func(inst *hxcore.Instance, err error) {
		log.Error(err, "component error", "component", inst.Name())
	}
	reg.Add(Page, pageMeta())

	key := []byte(cfg.Key)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		log.Info("no key configured, cursors are only valid until restart")
	}
	var retired [][]byte
	for _, k := range cfg.RetiredKeys {
		retired = append(retired, []byte(k))
	}
	enc, err := encoding.NewEncoder(key, retired...)
	if err != nil {
		return nil, err
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector())
	metrics, err := vscroll.NewMetrics(&vscroll.MetricsConfig{
		Namespace: "hxcore",
		Subsystem: "vscroll",
		Registry:  promReg,
	})
	if err != nil {
		return nil, err
	}

	feed := &vscroll.Feed{
		URL:        "/feed",
		Provider:   provider,
		Encoder:    enc,
		Sensitive:  cfg.Scroll.Sensitive,
		PerPage:    cfg.Scroll.PerPage,
		Threshold:  cfg.Scroll.Threshold,
		Tombstones: cfg.Scroll.Tombstones,
		Item:       recordItem,
		Logger:     log.WithName("feed"),
		Metrics:    metrics,
	}

	mux := http.NewServeMux()
	mux.Handle("/feed", feed)
	mux.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		props := map[string]any{}
		if title := r.URL.Query().Get("title"); title != "" {
			props["title"] = title
		}
		inst, err := reg.Mount("b-feed-page", props)
		if err != nil {
			log.Error(err, "mount failed")
			http.Error(w, "page unavailable", http.StatusInternalServerError)
			return
		}
		defer inst.Destroy()

		if err := htmx.Render(w, r, pageLayout(inst, feed)); err != nil {
			log.Error(err, "render failed")
		}
	})
	return mux, nil
}

// newLogger writes human-readable lines to a terminal and JSON otherwise.
func newLogger(verbosity int) logr.Logger {
	opts := funcr.Options{LogTimestamp: true, Verbosity: verbosity}
	fd := os.Stderr.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return funcr.New(func(prefix, args string) {
			if prefix != "" {
				fmt.Fprintf(os.Stderr, "%s: %s\n", prefix, args)
				return
			}
			fmt.Fprintln(os.Stderr, args)
		}, opts)
	}
	return funcr.NewJSON(func(obj string) {
		fmt.Fprintln(os.Stderr, obj)
	}, opts)
}

func seedStore(st *store.Store, n int) error {
	if n <= 0 {
		return nil
	}
	existing, err := st.Len()
	if err != nil || existing > 0 {
		return err
	}
	for i := 1; i <= n; i++ {
		_, err := st.Add(map[string]any{
			"title": fmt.Sprintf("Record %d", i),
			"body":  fmt.Sprintf("Body of record %d.", i),
		})
		if err != nil {
			return err
		}
	}
	return nil
}
