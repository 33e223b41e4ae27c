package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/IsomerScope/internal/application/isomer"
	"github.com/turtacn/IsomerScope/internal/bootstrap"
	"github.com/turtacn/IsomerScope/internal/config"
	"github.com/turtacn/IsomerScope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/IsomerScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/IsomerScope/pkg/errors"
)

// Set through -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatTable = "table"
)

// ServiceFactory builds the analysis service. The returned func releases
// its connections.
type ServiceFactory func(cfg *config.Config, logger logging.Logger, opts bootstrap.Options) (isomer.Service, func() error, error)

// PublisherFactory connects the request publisher used by submit.
type PublisherFactory func(cfg *config.Config, logger logging.Logger) (kafka.Publisher, func() error, error)

func DefaultServiceFactory(cfg *config.Config, logger logging.Logger, opts bootstrap.Options) (isomer.Service, func() error, error) {
	app, err := bootstrap.New(cfg, logger, opts)
	if err != nil {
		return nil, nil, err
	}
	return app.Service, app.Close, nil
}

// DefaultPublisherFactory needs kafka.enabled.
func DefaultPublisherFactory(cfg *config.Config, logger logging.Logger) (kafka.Publisher, func() error, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil, errors.New(errors.ErrCodeServiceUnavailable, "kafka is disabled").WithDetail("set kafka.enabled to submit requests")
	}
	producer, err := kafka.NewProducer(kafka.ProducerConfigFromConfig(cfg.Kafka), logger)
	if err != nil {
		return nil, nil, err
	}
	return producer, producer.Close, nil
}

// Option customises NewRootCommand.
type Option func(*CLIContext)

func WithPublisherFactory(f PublisherFactory) Option {
	return func(c *CLIContext) { c.publishers = f }
}

// RootOptions holds the persistent flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Verbose      bool
	NoColor      bool
	Timeout      time.Duration
}

func (o *RootOptions) format() (string, error) {
	f := strings.ToLower(o.OutputFormat)
	switch f {
	case FormatText, FormatJSON, FormatTable:
		return f, nil
	}
	return "", errors.Newf(errors.ErrCodeBadRequest, "unknown output format %q", o.OutputFormat)
}

func (o *RootOptions) level() string {
	if o.Verbose {
		return logging.LevelDebug
	}
	return strings.ToLower(o.LogLevel)
}

// CLIContext is what subcommands get from GetCLIContext.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	OutputFormat string
	Timeout      time.Duration

	services   ServiceFactory
	publishers PublisherFactory
}

// Service builds the analysis service; export connects object storage.
func (c *CLIContext) Service(export bool) (isomer.Service, func() error, error) {
	return c.services(c.Config, c.Logger, bootstrap.Options{Storage: export, Version: Version})
}

// Submitter publishes to kafka.request_topic.
func (c *CLIContext) Submitter() (*isomer.Submitter, func() error, error) {
	pub, closeFn, err := c.publishers(c.Config, c.Logger)
	if err != nil {
		return nil, nil, err
	}
	s, err := isomer.NewSubmitter(pub, c.Config.Kafka.RequestTopic, "isoscope-cli")
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	return s, closeFn, nil
}

type cliContextKey struct{}

// NewRootCommand builds the command tree. A nil factory selects
// DefaultServiceFactory.
func NewRootCommand(factory ServiceFactory, options ...Option) *cobra.Command {
	base := &CLIContext{services: factory, publishers: DefaultPublisherFactory}
	if base.services == nil {
		base.services = DefaultServiceFactory
	}
	for _, opt := range options {
		opt(base)
	}
	flags := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "isoscope",
		Short: "Stereoisomer analysis from compound names or SMILES",
		Long: "isoscope resolves a compound name to a structure, enumerates its stereoisomers\n" +
			"(including axial Ra/Sa allenes) and renders each as a 2D image and a 3D model.",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := base.init(flags)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.ConfigPath, "config", "c", "", "config file path (default: ./isoscope.yaml)")
	pf.StringVar(&flags.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&flags.OutputFormat, "output", "o", FormatText, "output format (text, json, table)")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "enable verbose output")
	pf.BoolVar(&flags.NoColor, "no-color", false, "disable colored output")
	pf.DurationVar(&flags.Timeout, "timeout", 2*time.Minute, "global operation timeout")

	cmd.AddCommand(NewAnalyzeCmd(), NewResolveCmd(), NewSubmitCmd(), NewVersionCmd())
	return cmd
}

// init returns a copy of c filled from the parsed flags.
func (c *CLIContext) init(flags *RootOptions) (*CLIContext, error) {
	format, err := flags.format()
	if err != nil {
		return nil, err
	}
	if flags.NoColor {
		color.NoColor = true
	}
	cfg, err := loadConfig(flags.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("config initialization failed: %w", err)
	}

	out := *c
	out.Config = cfg
	out.Logger = logging.NewCLILogger(flags.level())
	out.OutputFormat = format
	out.Timeout = flags.Timeout
	return &out, nil
}

func configCandidates() []string {
	paths := []string{"./isoscope.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".isoscope", "config.yaml"))
	}
	return append(paths, "/etc/isoscope/config.yaml")
}

// loadConfig reads explicit, else the first candidate that exists, else
// the environment alone.
func loadConfig(explicit string) (*config.Config, error) {
	if explicit != "" {
		return config.Load(explicit)
	}
	for _, p := range configCandidates() {
		if _, err := os.Stat(p); err == nil {
			return config.Load(p)
		}
	}
	return config.LoadFromEnv()
}

func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "command has no context")
	}
	if c, ok := ctx.Value(cliContextKey{}).(*CLIContext); ok && c != nil {
		return c, nil
	}
	return nil, errors.New(errors.ErrCodeInternal, "command context carries no CLI state")
}

// Execute runs the CLI with the default factories.
func Execute() error {
	root := NewRootCommand(nil)
	err := root.Execute()
	PrintError(root, err)
	return err
}

func printJSON(cmd *cobra.Command, data interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// PrintError writes the user-facing message of err, with its code when
// known, to stderr. Nil prints nothing.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	msg := errors.Message(err)
	if code := errors.GetCode(err); code != errors.CodeUnknown {
		msg += " [" + code.String() + "]"
	}
	fmt.Fprintln(cmd.ErrOrStderr(), color.RedString("Error:"), msg)
}

//Personal.AI order the ending
