//go:build !windows

package spooler

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// cups talks to CUPS through lpstat and lp.
type cups struct {
	run runFunc
	log *zap.Logger
}

func newPlatform(_ Options, log *zap.Logger) Spooler {
	return &cups{run: runCommand, log: log}
}

func (c *cups) Printers(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "lpstat", "-p")
	if err != nil {
		// lpstat exits non-zero when no queue exists
		if strings.Contains(string(out), "No destinations") {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: lpstat failed: %v (output: %s)", ErrSpooler, err, strings.TrimSpace(string(out)))
	}
	names := parseLpstat(string(out))
	c.log.Debug("system printers retrieved", zap.Int("count", len(names)))
	return names, nil
}

func (c *cups) Submit(ctx context.Context, path, printer string) error {
	args := []string{}
	if printer != "" {
		args = append(args, "-d", printer)
	}
	args = append(args, path)

	out, err := c.run(ctx, "lp", args...)
	if err != nil {
		return fmt.Errorf("%w: lp failed: %v (output: %s)", ErrSpooler, err, strings.TrimSpace(string(out)))
	}
	c.log.Debug("print job submitted", zap.String("printer", printer), zap.String("file", path))
	return nil
}

// parseLpstat extracts queue names from "printer NAME is idle." lines.
func parseLpstat(output string) []string {
	var names []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "printer ") {
			continue
		}
		if parts := strings.Fields(line); len(parts) >= 2 {
			names = append(names, parts[1])
		}
	}
	sort.Strings(names)
	return names
}
