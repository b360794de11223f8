package frontend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mikey/url-verifier/internal/core"
	"github.com/mikey/url-verifier/internal/utils"
	"go.uber.org/zap"
)

// Summary counts the outcomes of a CLI run
type Summary struct {
	Checked  int
	Safe     int
	Unsafe   int
	Unknown  int
	Rejected int
}

// AllSafe reports whether every submitted URL was verified safe
func (s Summary) AllSafe() bool {
	return s.Checked > 0 && s.Safe == s.Checked
}

// CliFrontend verifies URLs from the command line and prints the verdicts
type CliFrontend struct {
	service       *core.VerificationService
	textProcessor *utils.TextProcessor
	logger        *zap.Logger
	out           io.Writer
	jsonOutput    bool
	verbose       bool
	maxURLLength  int
}

// NewCliFrontend creates a new CLI frontend
func NewCliFrontend(
	service *core.VerificationService,
	textProcessor *utils.TextProcessor,
	logger *zap.Logger,
	out io.Writer,
	jsonOutput bool,
	verbose bool,
	maxURLLength int,
) *CliFrontend {
	return &CliFrontend{
		service:       service,
		textProcessor: textProcessor,
		logger:        logger,
		out:           out,
		jsonOutput:    jsonOutput,
		verbose:       verbose,
		maxURLLength:  maxURLLength,
	}
}

// ProcessURL verifies a URL and prints the result
func (f *CliFrontend) ProcessURL(ctx context.Context, rawURL string) (*core.VerificationRecord, error) {
	if err := f.textProcessor.ValidateInput(rawURL, f.maxURLLength); err != nil {
		f.logger.Debug("Rejected input", zap.Error(err))
		if f.jsonOutput {
			f.writeJSON(map[string]string{"url": f.textProcessor.Display(rawURL, 256), "error": err.Error()})
		} else {
			fmt.Fprintf(f.out, "\n=== Verification ===\nURL: %s\nError: %v\n", f.textProcessor.Display(rawURL, 256), err)
		}
		return nil, err
	}

	startTime := time.Now()
	record := f.service.Verify(ctx, rawURL)
	duration := time.Since(startTime)

	if f.jsonOutput {
		f.writeJSON(record)
		return record, nil
	}

	fmt.Fprintf(f.out, "\n=== Verification ===\n")
	fmt.Fprintf(f.out, "URL: %s\n", f.textProcessor.Display(record.URL, 0))
	fmt.Fprintf(f.out, "Status: %s\n", core.StatusOf(record))
	fmt.Fprintf(f.out, "Risk level: %s\n", record.RiskLevel)
	fmt.Fprintf(f.out, "Reason: %s\n", record.Reason)
	if f.verbose {
		checks := record.SecurityChecks
		fmt.Fprintf(f.out, "Checks: basicSafety=%t domainReputation=%t contentAnalysis=%t certificateValid=%t googleSafeBrowsing=%t\n",
			checks.BasicSafety, checks.DomainReputation, checks.ContentAnalysis, checks.CertificateValid, checks.GoogleSafeBrowsing)
		fmt.Fprintf(f.out, "Last checked: %s\n", record.LastChecked.Format(time.RFC3339))
		fmt.Fprintf(f.out, "Processing time: %v\n", duration)
	}

	return record, nil
}

// ProcessAll verifies every URL in order and tallies the outcomes
func (f *CliFrontend) ProcessAll(ctx context.Context, urls []string) Summary {
	var summary Summary
	for _, rawURL := range urls {
		if ctx.Err() != nil {
			break
		}
		summary.Checked++
		record, err := f.ProcessURL(ctx, rawURL)
		if err != nil {
			summary.Rejected++
			continue
		}
		switch core.StatusOf(record) {
		case core.StatusSafe:
			summary.Safe++
		case core.StatusUnsafe:
			summary.Unsafe++
		default:
			summary.Unknown++
		}
	}
	return summary
}

// ReadURLs reads one URL per line, skipping blank lines and # comments
func ReadURLs(r io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read URLs: %w", err)
	}
	return urls, nil
}

func (f *CliFrontend) writeJSON(v any) {
	if err := json.NewEncoder(f.out).Encode(v); err != nil {
		f.logger.Error("Failed to write result", zap.Error(err))
	}
}

// Start is a no-op for the CLI frontend
func (f *CliFrontend) Start() error {
	return nil
}

// Stop is a no-op for the CLI frontend
func (f *CliFrontend) Stop() error {
	return nil
}
