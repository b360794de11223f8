package factory

import (
	"fmt"
	"io"
	"os"

	"github.com/mikey/url-verifier/internal/adapters/frontend"
	"github.com/mikey/url-verifier/internal/config"
	"github.com/mikey/url-verifier/internal/core"
	"github.com/mikey/url-verifier/internal/ports"
	"github.com/mikey/url-verifier/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// FrontendFactory creates frontends based on configuration
type FrontendFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	service       *core.VerificationService
	textProcessor *utils.TextProcessor
}

// NewFrontendFactory creates a new frontend factory
func NewFrontendFactory(
	cfg *config.Config,
	logger *zap.Logger,
	service *core.VerificationService,
	textProcessor *utils.TextProcessor,
) *FrontendFactory {
	return &FrontendFactory{
		cfg:           cfg,
		logger:        logger,
		service:       service,
		textProcessor: textProcessor,
	}
}

// CreateFrontend creates a frontend based on the configuration
func (f *FrontendFactory) CreateFrontend() (ports.Frontend, error) {
	serverCfg, err := f.cfg.GetServer()
	if err != nil {
		return nil, err
	}

	switch serverCfg.FrontendType {
	case "http":
		var limiter *rate.Limiter
		if serverCfg.RateLimit.RPS > 0 {
			limiter = rate.NewLimiter(rate.Limit(serverCfg.RateLimit.RPS), max(serverCfg.RateLimit.Burst, 1))
		}
		return frontend.NewHTTPFrontend(
			f.service,
			f.textProcessor,
			f.logger,
			serverCfg.ListenAddress,
			serverCfg.MaxURLLength,
			serverCfg.RequestTimeout,
			serverCfg.AllowedOrigins,
			limiter,
		), nil
	case "cli":
		return f.CreateCliFrontend(os.Stdout), nil
	default:
		return nil, fmt.Errorf("unsupported frontend type: %s", serverCfg.FrontendType)
	}
}

// CreateCliFrontend creates a CLI frontend writing to out
func (f *FrontendFactory) CreateCliFrontend(out io.Writer) *frontend.CliFrontend {
	return frontend.NewCliFrontend(
		f.service,
		f.textProcessor,
		f.logger,
		out,
		f.cfg.GetBool("cli.json"),
		f.cfg.GetBool("cli.verbose"),
		f.cfg.GetInt("server.max_url_length"),
	)
}
