package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"

	"github.com/twinfoundation/auditable-item-stream/internal/config"
	"github.com/twinfoundation/auditable-item-stream/internal/credential"
	"github.com/twinfoundation/auditable-item-stream/internal/engine"
	"github.com/twinfoundation/auditable-item-stream/internal/eventbus"
	"github.com/twinfoundation/auditable-item-stream/internal/ids"
	"github.com/twinfoundation/auditable-item-stream/internal/immutablestore"
	"github.com/twinfoundation/auditable-item-stream/internal/store"
	"github.com/twinfoundation/auditable-item-stream/internal/vault"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := config.LoadFromEnv()

	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to open postgres: %v", err)
		}
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			log.Fatalf("failed to ping postgres: %v", err)
		}
		if err := store.EnsureSchema(db); err != nil {
			log.Fatalf("failed to ensure schema: %v", err)
		}
		log.Println("connected to postgres")
	}

	// Vault: a remote vault when KMS_ENDPOINT is set (required in
	// production via REQUIRE_KMS), otherwise a local dev-only vault.
	var v vault.Vault
	if cfg.KMSEndpoint != "" {
		rv, err := vault.NewRemoteVault(vault.RemoteVaultConfig{
			Endpoint:    cfg.KMSEndpoint,
			BearerToken: cfg.KMSBearerToken,
			TLSCertPath: cfg.TLSCertPath,
			TLSKeyPath:  cfg.TLSKeyPath,
			TLSCAPath:   cfg.TLSCAPath,
		})
		if err != nil {
			log.Fatalf("failed to initialize remote vault: %v", err)
		}
		v = rv
		log.Printf("remote vault configured (endpoint=%s)", cfg.KMSEndpoint)
	} else {
		if cfg.RequireKMS {
			log.Fatalf("REQUIRE_KMS=true but KMS_ENDPOINT not configured")
		}
		lv := vault.NewLocalVault()
		if _, err := lv.EnsureKey(cfg.VaultKeyID); err != nil {
			log.Fatalf("failed to provision local vault key: %v", err)
		}
		v = lv
		log.Printf("local vault configured (dev only, key=%s)", cfg.VaultKeyID)
	}

	// Stores: Postgres-backed when a database is configured, in-memory
	// otherwise.
	var streamStore store.StreamStore
	var entryStore store.EntryStore
	if db != nil {
		streamStore = store.NewPGStreamStore(db)
		entryStore = store.NewPGEntryStore(db)
	} else {
		streamStore = store.NewMemoryStreamStore()
		entryStore = store.NewMemoryEntryStore()
		log.Println("no postgres configured; using in-memory stores (dev only)")
	}

	// Immutable storage: S3 when a bucket is configured, local file
	// storage otherwise.
	var immut immutablestore.Store
	if cfg.ImmutableBucket != "" {
		s3store, err := immutablestore.NewS3Store(context.Background(), cfg.ImmutableBucket, cfg.ImmutablePrefix)
		if err != nil {
			log.Fatalf("failed to initialize s3 immutable store: %v", err)
		}
		immut = s3store
		log.Printf("s3 immutable store initialized (bucket=%s prefix=%s)", cfg.ImmutableBucket, cfg.ImmutablePrefix)
	} else {
		immut = immutablestore.NewFileStore(cfg.ImmutableDir)
		log.Printf("file immutable store initialized (dir=%s)", cfg.ImmutableDir)
	}

	credGateway, err := credential.NewJWTGateway(cfg.AssertionMethodID, ids.NewCorrelationID)
	if err != nil {
		log.Fatalf("failed to initialize credential gateway: %v", err)
	}

	var notifier engine.Notifier
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic != "" {
		bus, err := eventbus.NewKafkaBus(eventbus.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		})
		if err != nil {
			log.Fatalf("failed to initialize kafka event bus: %v", err)
		}
		notifier = bus
		defer bus.Close()
		log.Printf("kafka event bus initialized (brokers=%v topic=%s)", cfg.KafkaBrokers, cfg.KafkaTopic)
	} else {
		log.Println("event bus not started: KAFKA_BROKERS and KAFKA_TOPIC must both be set to enable")
	}

	eng := engine.New(engine.Config{
		VaultKeyID:               cfg.VaultKeyID,
		AssertionMethodID:        cfg.AssertionMethodID,
		DefaultImmutableInterval: cfg.DefaultImmutableInterval,
	}, v, credGateway, immut, streamStore, entryStore, notifier)

	r := chi.NewRouter()
	r.Get("/healthz", healthHandler(streamStore, entryStore))
	r.Post("/admin/streams/{urn}/remove-immutable", removeImmutableHandler(eng))

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("starting auditstreamd on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
	if db != nil {
		_ = db.Close()
	}
	log.Println("server stopped")
}

func removeImmutableHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		urn := chi.URLParam(r, "urn")
		if err := eng.RemoveImmutable(r.Context(), urn); err != nil {
			if engine.IsKind(err, engine.KindNotFound) {
				w.WriteHeader(http.StatusNotFound)
			} else {
				w.WriteHeader(http.StatusInternalServerError)
			}
			_, _ = w.Write([]byte(err.Error()))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func healthHandler(streams store.StreamStore, entries store.EntryStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := streams.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("stream store unreachable: " + err.Error()))
			return
		}
		if err := entries.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("entry store unreachable: " + err.Error()))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
