package di

import (
	"flag"
	"os"
	"strings"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/url-verifier/internal/adapters/frontend"
	"github.com/mikey/url-verifier/internal/config"
	"github.com/mikey/url-verifier/internal/factory"
	"github.com/mikey/url-verifier/internal/logging"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Pipeline flags
	NoLookup     bool
	NoProbe      bool
	APIKey       string
	FailPolicy   string
	Timeout      time.Duration
	DNSResolver  string
	Trusted      string
	Blocked      string
	MaxURLLength int

	// Input and output flags
	InputFile  string
	JSON       bool
	Verbose    bool
	JSONLog    bool
	ConfigFile string

	// URLs given as arguments
	URLs []string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	return parseFlags(flag.CommandLine, os.Args[1:])
}

func parseFlags(fs *flag.FlagSet, args []string) *CLIFlags {
	flags := &CLIFlags{}

	// Pipeline flags
	fs.BoolVar(&flags.NoLookup, "no-lookup", false, "Skip the Safe Browsing threat lookup")
	fs.BoolVar(&flags.NoProbe, "no-probe", false, "Skip the connectivity probe")
	fs.StringVar(&flags.APIKey, "api-key", "", "Safe Browsing API key (defaults to GOOGLE_SAFE_BROWSING_API_KEY)")
	fs.StringVar(&flags.FailPolicy, "fail-policy", "open", "Verdict when the threat lookup is unavailable (open, closed)")
	fs.DurationVar(&flags.Timeout, "timeout", 5*time.Second, "Timeout for the threat lookup and the probe")
	fs.StringVar(&flags.DNSResolver, "dns-resolver", "", "DNS server used to pre-check hostnames (host:port)")
	fs.StringVar(&flags.Trusted, "trusted", "", "Comma-separated list of additional trusted domains")
	fs.StringVar(&flags.Blocked, "blocked", "", "Comma-separated list of blocked domains")
	fs.IntVar(&flags.MaxURLLength, "max-url-length", 2048, "Maximum accepted URL length in bytes")

	// Input and output flags
	fs.StringVar(&flags.InputFile, "file", "", "File with one URL per line (use stdin if no URLs are given)")
	fs.BoolVar(&flags.JSON, "json", false, "Print verification records as JSON")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose output and logging")
	fs.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	fs.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	_ = fs.Parse(args)
	flags.URLs = fs.Args()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.NewFromFile(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			// Output settings always come from the command line
			v := cfg.GetViper()
			v.Set("server.frontend_type", "cli")
			v.Set("cli.json", flags.JSON)
			v.Set("cli.verbose", flags.Verbose)
			logger.Info("Loaded configuration from file", zap.String("file", v.ConfigFileUsed()))
			return cfg, nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	if err := provideVerification(container); err != nil {
		return nil, err
	}

	// Register CLI frontend
	if err := container.Provide(factory.NewFrontendFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.FrontendFactory) *frontend.CliFrontend {
		return f.CreateCliFrontend(os.Stdout)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	// Set some cli specific settings
	v.Set("server.frontend_type", "cli")
	v.Set("server.max_url_length", flags.MaxURLLength)
	v.Set("cli.json", flags.JSON)
	v.Set("cli.verbose", flags.Verbose)

	// One-shot runs keep records in memory only
	v.Set("cache.type", "memory")

	v.Set("threat_lookup.enabled", !flags.NoLookup)
	if flags.APIKey != "" {
		v.Set("threat_lookup.api_key", flags.APIKey)
	}
	v.Set("threat_lookup.fail_policy", flags.FailPolicy)
	v.Set("threat_lookup.timeout", flags.Timeout.String())

	v.Set("probe.enabled", !flags.NoProbe)
	v.Set("probe.timeout", flags.Timeout.String())
	v.Set("probe.dns_resolver", flags.DNSResolver)

	v.Set("verifier.trusted_domains", splitList(flags.Trusted))
	v.Set("verifier.blocked_domains", splitList(flags.Blocked))

	return config.NewFromViper(v)
}

func splitList(s string) []string {
	items := []string{}
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
