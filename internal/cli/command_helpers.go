package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/azniosman/Project-Fortress/internal/awsauth"
	"github.com/azniosman/Project-Fortress/internal/config"
	"github.com/azniosman/Project-Fortress/internal/engine"
	"github.com/azniosman/Project-Fortress/internal/env"
	"github.com/azniosman/Project-Fortress/internal/logging"
	"github.com/azniosman/Project-Fortress/internal/resolver"
	"github.com/azniosman/Project-Fortress/internal/service"
	"github.com/azniosman/Project-Fortress/internal/service/compute"
	"github.com/azniosman/Project-Fortress/internal/service/security"
	"github.com/azniosman/Project-Fortress/internal/service/storage"
	"github.com/azniosman/Project-Fortress/internal/state"
)

// credentialsAuth matches the Authorizer interfaces of the handler packages.
type credentialsAuth interface {
	ValidateCredentials(ctx context.Context) error
}

// app bundles the wired collaborators a command needs.
type app struct {
	settings  config.Settings
	vars      env.Vars
	batchVars env.Vars
	logger    *slog.Logger
	store     *state.Store
	templates *config.TemplateStore
	registry  *service.Registry
	engine    *engine.Engine
	checker   *awsauth.Checker
}

// buildApp loads settings, opens the state store and wires the engine with
// every registered service handler. Callers must Close the returned app.
func buildApp(cmd *cobra.Command, opts *Options) (*app, error) {
	logger := LoggerFromContext(cmd.Context())

	settings, vars, err := config.LoadSettings(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	logger = settingsLogger(cmd, opts, settings, logger)

	region := settings.AWS.Region
	if opts.Region != "" {
		region = opts.Region
	}
	profile := settings.AWS.Profile
	if opts.Profile != "" {
		profile = opts.Profile
	}

	store, err := state.Open(settings.General.StateFile, logger)
	if err != nil {
		return nil, err
	}

	var auth credentialsAuth
	checker, err := awsauth.NewChecker(cmd.Context(), region, profile)
	if err != nil {
		logger.Warn("AWS credentials unavailable, permission checks will fail", "error", err)
	} else {
		auth = checker
	}

	templates := config.NewTemplateStore(settings.Templates.Directory, logger)
	registry := service.NewRegistry(
		compute.NewInstanceHandler(store, auth, logger),
		storage.NewBucketHandler(store, auth, logger),
		security.NewRoleHandler(store, auth, logger),
	)

	a := &app{
		settings:  settings,
		vars:      vars,
		batchVars: vars,
		logger:    logger,
		store:     store,
		templates: templates,
		registry:  registry,
		checker:   checker,
	}
	a.engine = engine.New(engine.Options{
		Registry:   registry,
		Templates:  templateSource{store: templates},
		Resolver:   resolver.New(resolver.DefaultRules(), logger),
		Dependents: store,
		LoadBatch:  batchLoader(a),
		Logger:     logger,
	})

	return a, nil
}

// batchLoader builds the engine's batch-file loader. It reads batchVars at
// call time so the batch command can overlay --vars/--var-file inputs before
// the engine loads the file.
func batchLoader(a *app) engine.BatchLoader {
	return func(path string) ([]resolver.Request, error) {
		return config.LoadBatchFile(path, a.batchVars)
	}
}

// Close releases the app's state store.
func (a *app) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}

// settingsLogger applies the log level configured in settings. The --log-level
// flag and FORTRESS_LOG_LEVEL both take precedence; only when neither set a
// level does a non-empty general.log_level replace the default logger.
func settingsLogger(cmd *cobra.Command, opts *Options, settings config.Settings, logger *slog.Logger) *slog.Logger {
	if opts.logLevelEnv || settings.General.LogLevel == "" {
		return logger
	}
	if flag := cmd.Flag("log-level"); flag != nil && flag.Changed {
		return logger
	}
	return logging.NewLogger(os.Stderr, logging.ParseLevel(settings.General.LogLevel))
}

// templateSource adapts config.TemplateStore to the engine's template contract.
type templateSource struct {
	store *config.TemplateStore
}

func (t templateSource) Template(svc, name string) (map[string]any, bool, error) {
	return t.store.Template(svc, name)
}

func (t templateSource) CreateFromResources(name, description string, resources []engine.TemplateResource, outputDir string) (string, error) {
	details := make([]config.ResourceDetail, 0, len(resources))
	for _, r := range resources {
		details = append(details, config.ResourceDetail{Service: r.Service, ID: r.ID, Details: r.Details})
	}
	return t.store.CreateFromResources(name, description, details, outputDir)
}

// parseParams converts repeated k=v flags into a typed parameter map. Values
// are decoded as YAML scalars so booleans and numbers keep their type.
func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", pair)
		}
		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		out[strings.TrimSpace(key)] = value
	}
	return out, nil
}

// printResult renders an engine result to stdout. Failed results become
// command errors so the process exits non-zero.
func printResult(cmd *cobra.Command, res engine.Result) error {
	if !res.Success {
		return fmt.Errorf("%s", res.ErrorMessage)
	}
	if res.Output == nil {
		return nil
	}
	return printJSON(cmd, res.Output)
}

func printJSON(cmd *cobra.Command, value any) error {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	cmd.Println(string(payload))
	return nil
}

func printYAML(cmd *cobra.Command, value any) error {
	payload, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	cmd.Print(string(payload))
	return nil
}
