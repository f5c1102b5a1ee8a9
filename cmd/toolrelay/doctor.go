package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"toolrelay/internal/config"
	"toolrelay/internal/provider"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your toolrelay setup",
		Long: `Verifies that the configuration, language model providers, SMTP server,
wiki endpoint and optional Chrome install are usable. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "toolrelay doctor v%s\n\n", version)

			cfg, closeLog, err := loadConfig()
			if err != nil {
				printFail(out, "Config", err.Error())
				return fmt.Errorf("config check failed")
			}
			defer closeLog()
			printPass(out, "Config", resolveConfigPath())

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			r := runChecks(ctx, cfg, out)

			fmt.Fprintf(out, "\nResults: %d passed, %d warnings, %d failed\n", r.passed+1, r.warned, r.failed)
			if r.failed > 0 {
				return fmt.Errorf("%d check(s) failed", r.failed)
			}
			return nil
		},
	}
}

type doctorResult struct {
	passed, warned, failed int
}

func runChecks(ctx context.Context, cfg *config.Config, out io.Writer) doctorResult {
	var r doctorResult
	pass := func(check, detail string) { printPass(out, check, detail); r.passed++ }
	warn := func(check, detail string) { printWarn(out, check, detail); r.warned++ }
	fail := func(check, detail string) { printFail(out, check, detail); r.failed++ }

	// Providers
	factory := provider.NewFactory(cfg.Providers, logger)
	enabled := 0
	for name, pc := range cfg.Providers {
		if !pc.Enabled {
			continue
		}
		enabled++
		if _, err := factory.Get(ctx, name); err != nil {
			fail("Provider: "+name, err.Error())
		} else if pc.APIKey == "" && pc.Kind == "gemini" {
			warn("Provider: "+name, "no API key configured")
		} else {
			pass("Provider: "+name, "configured")
		}
	}
	if enabled == 0 {
		warn("Providers", "none enabled; translate_products will fail")
	}

	// SMTP
	switch {
	case cfg.SMTP.Host == "":
		warn("SMTP", "no host configured; send_email will fail")
	case cfg.SMTP.From == "":
		warn("SMTP", "no sender address configured")
	default:
		addr := net.JoinHostPort(cfg.SMTP.Host, strconv.Itoa(cfg.SMTP.Port))
		if err := checkDial(ctx, addr); err != nil {
			warn("SMTP", fmt.Sprintf("%s unreachable: %v", addr, err))
		} else {
			pass("SMTP", addr)
		}
	}

	// Wiki
	if err := checkHTTP(ctx, cfg.Wiki.Endpoint); err != nil {
		warn("Wiki endpoint", err.Error())
	} else {
		pass("Wiki endpoint", cfg.Wiki.Endpoint)
	}

	// Chrome
	if cfg.Scraper.Browser.Enabled {
		if path, err := findChrome(); err != nil {
			fail("Chrome", err.Error())
		} else {
			pass("Chrome", path)
		}
	}

	// Gateway port
	addr := net.JoinHostPort(cfg.Gateway.Host, strconv.Itoa(cfg.Gateway.Port))
	if err := checkPort(addr); err != nil {
		warn("Gateway port", fmt.Sprintf("%s may be in use: %v", addr, err))
	} else {
		pass("Gateway port", addr+" available")
	}

	// Log file
	if cfg.General.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.General.LogFile), 0o755); err != nil {
			warn("Log file", fmt.Sprintf("cannot create log directory: %v", err))
		} else {
			pass("Log file", cfg.General.LogFile)
		}
	}
	return r
}

func checkDial(ctx context.Context, addr string) error {
	var d net.Dialer
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return conn.Close()
}

func checkHTTP(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}

func findChrome() (string, error) {
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "chrome"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no Chrome or Chromium binary found in PATH")
}

func checkPort(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return ln.Close()
}

func printPass(w io.Writer, check, detail string) {
	fmt.Fprintf(w, "  [PASS] %-20s %s\n", check, detail)
}

func printFail(w io.Writer, check, detail string) {
	fmt.Fprintf(w, "  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(w io.Writer, check, detail string) {
	fmt.Fprintf(w, "  [WARN] %-20s %s\n", check, detail)
}
