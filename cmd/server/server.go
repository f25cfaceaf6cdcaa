package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/opptym/quill/config"
	"github.com/opptym/quill/directory"
	quillhttp "github.com/opptym/quill/http"
	"github.com/opptym/quill/listener"
	"github.com/opptym/quill/listener/api"
	log "github.com/opptym/quill/logger"
	"github.com/opptym/quill/project"
	"github.com/opptym/quill/script"
	"github.com/opptym/quill/storage"
	"github.com/opptym/quill/submission"
	"github.com/opptym/quill/token"
)

const (
	subsystemTokens      = "tokens"
	subsystemProjects    = "projects"
	subsystemDirectories = "directories"
	subsystemScript      = "script"
	subsystemSubmissions = "submissions"
	subsystemHTTP        = "http"
	subsystemListener    = "listener"
)

var (
	configPath string
	flagDev    bool

	ServerCmd = &cobra.Command{
		Use:   "server",
		Short: "This command starts a Quill server that responds to API requests",
		Long: `
Usage: quill server [options]

  This command starts a Quill server that issues bookmarklet capability
  tokens and delivers generated fill-agent scripts.

      $ quill server --config=/etc/quill/config.hcl

  With --dev, an in-memory server starts on 127.0.0.1:8200 with a
  sample project and directory link seeded.
  `,
		RunE: run,
	}

	wg sync.WaitGroup

	cleanupGuard sync.Once
)

func init() {
	ServerCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (e.g., path/to/quill.hcl)")
	ServerCmd.Flags().BoolVar(&flagDev, "dev", false, "Start an in-memory dev server with sample data")
}

func run(cmd *cobra.Command, args []string) error {
	var conf *config.Config
	if flagDev {
		conf = devConfig()
	} else {
		if configPath == "" {
			return fmt.Errorf("config file path is required. Use -c or --config flag")
		}
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", configPath)
		}
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		conf = loaded
	}

	logger := buildLogger(conf)
	defer logger.Close()

	tokenConfig, err := buildTokenConfig(conf)
	if err != nil {
		return err
	}

	tokenStore, err := buildTokenStore(cmd.Context(), conf, logger, tokenConfig)
	if err != nil {
		return fmt.Errorf("failed to construct the token store: %w", err)
	}
	defer tokenStore.Close()

	backend := storage.NewMemoryBackend()
	defer backend.Stop()

	projects, err := project.NewRegistry(backend, logger.WithSystem(subsystemProjects))
	if err != nil {
		return fmt.Errorf("failed to construct the project registry: %w", err)
	}
	defer projects.Close()

	directories, err := directory.NewRegistry(backend, logger.WithSystem(subsystemDirectories))
	if err != nil {
		return fmt.Errorf("failed to construct the directory registry: %w", err)
	}
	defer directories.Close()

	if flagDev {
		if err := seedDevData(cmd.Context(), projects, directories); err != nil {
			return fmt.Errorf("failed to seed dev data: %w", err)
		}
	}

	baseURL := conf.BaseURL
	if baseURL == "" && len(conf.Listeners) > 0 {
		baseURL = "http://" + conf.Listeners[0].Address
	}

	synthesizer := script.NewSynthesizer(
		projects,
		directories,
		strings.TrimRight(baseURL, "/")+"/v1/submissions",
		logger.WithSystem(subsystemScript),
	)

	recorder := submission.NewRecorder(backend, logger.WithSystem(subsystemSubmissions))

	httpHandler := quillhttp.Handler(&quillhttp.HandlerProperties{
		Tokens:      tokenStore,
		Synthesizer: synthesizer,
		Submissions: recorder,
		Logger:      logger.WithSystem(subsystemHTTP),
		BaseURL:     baseURL,
	})

	lns, err := initListeners(httpHandler, conf, logger)
	if err != nil {
		return err
	}

	// Shutdown error tracking
	var shutdownErrs []error
	var shutdownErrsMu sync.Mutex

	listenerCloseFunc := func() {
		fmt.Fprintf(cmd.OutOrStdout(), "Stopping all listeners\n")
		for _, ln := range lns {
			if err := ln.Stop(); err != nil {
				shutdownErrsMu.Lock()
				shutdownErrs = append(shutdownErrs, fmt.Errorf("failed to stop %s listener at %s: %w", ln.Type(), ln.Addr(), err))
				shutdownErrsMu.Unlock()
			}
		}
	}
	defer cleanupGuard.Do(listenerCloseFunc)

	printInfo(cmd.OutOrStdout(), conf, baseURL)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	errChan := make(chan error, len(lns))
	var listenerErrs []error
	var listenerErrsMu sync.Mutex
	totalListeners := len(lns)

	for _, ln := range lns {
		wg.Add(1)
		go func(ln listener.Listener) {
			defer wg.Done()
			if err := ln.Start(ctx); err != nil {
				errChan <- err
			}
		}(ln)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n==> Quill server started! Log data will stream in below:\n")

	shutdownTriggered := false
	for !shutdownTriggered {
		select {
		case err := <-errChan:
			listenerErrsMu.Lock()
			listenerErrs = append(listenerErrs, err)
			failedCount := len(listenerErrs)
			listenerErrsMu.Unlock()

			// Only trigger shutdown if ALL listeners have failed
			if failedCount >= totalListeners {
				fmt.Fprintf(cmd.OutOrStdout(), "All listeners have failed, triggering shutdown: failed_count=%d\n", failedCount)
				shutdownTriggered = true
				cancel()
			}
		case <-ctx.Done():
			fmt.Fprintf(cmd.OutOrStdout(), "Quill shutdown triggered\n")
			shutdownTriggered = true
			cancel()
		}
	}

	cleanupGuard.Do(listenerCloseFunc)
	wg.Wait()

	close(errChan)
	for err := range errChan {
		listenerErrs = append(listenerErrs, err)
	}
	if len(listenerErrs) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Listener errors occurred during runtime: %v\n", errors.Join(listenerErrs...))
	}

	if len(shutdownErrs) > 0 {
		aggregated := errors.Join(shutdownErrs...)
		fmt.Fprintf(cmd.OutOrStdout(), "Shutdown completed with errors: %v\n", aggregated)
		return aggregated
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Server shutdown completed successfully\n")
	return nil
}

func devConfig() *config.Config {
	return &config.Config{
		LogLevel:  "debug",
		LogFormat: "default",
		BaseURL:   "http://127.0.0.1:8200",
		Listeners: []config.ListenerBlock{
			{Name: "api", Address: "127.0.0.1:8200"},
		},
		Storage: &config.StorageBlock{Type: "inmem"},
		Tokens:  &config.TokensBlock{TTL: "24h", DefaultMaxUsage: 3},
	}
}

func buildLogger(conf *config.Config) log.Logger {
	logConfig := &log.Config{
		Level:   log.ParseLogLevel(conf.LogLevel),
		Format:  log.ParseOutputFormat(conf.LogFormat),
		Outputs: []io.Writer{os.Stdout},
		System:  "core",
	}
	if conf.LogFile != "" {
		logConfig.FileConfig = &log.FileConfig{
			Filename:   conf.LogFile,
			MaxSize:    conf.LogRotateMegabytes,
			MaxAge:     conf.LogRotationPeriod,
			MaxBackups: conf.LogRotateMaxFiles,
		}
	}
	return log.NewZerologLogger(logConfig)
}

func buildTokenConfig(conf *config.Config) (*token.StoreConfig, error) {
	storeConfig := token.DefaultStoreConfig()

	ttl, err := conf.Tokens.TTLDuration()
	if err != nil {
		return nil, err
	}
	storeConfig.TTL = ttl

	sweep, err := conf.Tokens.SweepDuration()
	if err != nil {
		return nil, err
	}
	storeConfig.SweepInterval = sweep

	if conf.Tokens != nil && conf.Tokens.DefaultMaxUsage > 0 {
		storeConfig.DefaultMaxUsage = conf.Tokens.DefaultMaxUsage
	}

	return storeConfig, nil
}

func buildTokenStore(ctx context.Context, conf *config.Config, logger log.Logger, storeConfig *token.StoreConfig) (token.Store, error) {
	storageType := "inmem"
	if conf.Storage != nil {
		storageType = conf.Storage.Type
	}

	switch storageType {
	case "inmem":
		return token.NewInmemStore(logger.WithSystem(subsystemTokens), storeConfig), nil
	case "postgres":
		return token.NewPostgresStore(ctx, logger.WithSystem(subsystemTokens), storeConfig,
			conf.Storage.ConnectionURL, conf.Storage.Table)
	default:
		return nil, fmt.Errorf("unknown storage type %s", storageType)
	}
}

func initListeners(httpHandler http.Handler, conf *config.Config, logger log.Logger) ([]listener.Listener, error) {
	lns := make([]listener.Listener, 0, len(conf.Listeners))

	for _, lnConfig := range conf.Listeners {
		ln, err := api.NewApiListener(api.ApiListenerConfig{
			Logger:      logger.WithSystem(subsystemListener),
			Address:     lnConfig.Address,
			TLSCertFile: lnConfig.TLSCertFile,
			TLSKeyFile:  lnConfig.TLSKeyFile,
			TLSEnabled:  lnConfig.TLSEnabled,
		}, httpHandler)
		if err != nil {
			return nil, fmt.Errorf("error initializing listener %s: %w", lnConfig.Name, err)
		}
		lns = append(lns, ln)
	}

	if len(lns) == 0 {
		return nil, errors.New("at least one listener must be configured")
	}

	return lns, nil
}

func printInfo(out io.Writer, conf *config.Config, baseURL string) {
	info := map[string]string{
		"log level": conf.LogLevel,
		"base url":  baseURL,
	}
	if conf.Storage != nil {
		info["storage"] = conf.Storage.Type
	} else {
		info["storage"] = "inmem"
	}
	if conf.Tokens != nil && conf.Tokens.TTL != "" {
		info["token ttl"] = conf.Tokens.TTL
	} else {
		info["token ttl"] = "24h"
	}

	infoKeys := make([]string, 0, len(info))
	for k := range info {
		infoKeys = append(infoKeys, k)
	}
	sort.Strings(infoKeys)

	fmt.Fprintf(out, "\n==> Quill server configuration:\n\n")
	titleCaser := cases.Title(language.English, cases.NoLower)
	for _, k := range infoKeys {
		fmt.Fprintf(out, "%24s: %s\n", titleCaser.String(k), info[k])
	}
}

// seedDevData loads a sample project and directory link so the full
// issue/deliver/report loop can be exercised out of the box.
func seedDevData(ctx context.Context, projects *project.Registry, directories *directory.Registry) error {
	err := projects.Put(ctx, &project.Snapshot{
		ID:          "64f1b2c3d4e5f6a7b8c9d0e1",
		Name:        "Acme Web Studio",
		URL:         "https://acme-web.example.com",
		Email:       "hello@acme-web.example.com",
		Company:     "Acme Web Studio LLC",
		Phone:       "+1 555 0100",
		Description: "Boutique web design and SEO studio.",
		Category:    "Web Design",
		Keywords:    []string{"web design", "seo"},
		Address: project.Address{
			Line1:      "100 Main St",
			City:       "Springfield",
			State:      "IL",
			Country:    "USA",
			PostalCode: "62701",
		},
	})
	if err != nil {
		return err
	}

	return directories.Put(ctx, &directory.Link{
		ID:       "64f1b2c3d4e5f6a7b8c9d0e2",
		Name:     "Example Business Directory",
		URL:      "https://directory.example.com/submit",
		Category: "General",
		Fields: []directory.FieldDescriptor{
			{Name: "business_name", Type: "text", Required: true},
			{Name: "website", Type: "url", Required: true},
			{Name: "email", Type: "email", Required: true},
		},
	})
}
