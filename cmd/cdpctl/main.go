// Command cdpctl is the minimal CLI entry point spec §6 allows beyond
// the Browser Controller itself: connect to a running browser, navigate
// one page to a URL, and optionally save a screenshot.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	cdpbrowser "github.com/pjaol/cdp-browser"
)

func main() {
	host := flag.String("host", "localhost", "browser devtools host")
	port := flag.Int("port", 9222, "browser devtools port")
	url := flag.String("url", "https://example.com", "url to navigate to")
	shot := flag.String("screenshot", "", "optional path to save a PNG screenshot")
	timeout := flag.Duration("timeout", 30*time.Second, "navigation timeout")
	flag.Parse()

	if err := run(*host, *port, *url, *shot, *timeout); err != nil {
		logrus.WithError(err).Error("cdpctl: failed")
		os.Exit(1)
	}
}

func run(host string, port int, url, screenshotPath string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout+5*time.Second)
	defer cancel()

	log := logrus.New()
	browser, err := cdpbrowser.Connect(ctx, host, port, cdpbrowser.WithLogger(log))
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer browser.Shutdown(ctx)

	p, err := browser.NewPage(ctx, "about:blank")
	if err != nil {
		return fmt.Errorf("new page: %w", err)
	}
	defer p.Close(ctx)

	if err := p.Navigate(ctx, url, cdpbrowser.WaitUntilLoad, timeout); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}

	title, err := p.GetTitle(ctx)
	if err != nil {
		return fmt.Errorf("get title: %w", err)
	}
	log.WithField("title", title).Info("cdpctl: navigation complete")

	if screenshotPath != "" {
		data, err := p.Screenshot(ctx)
		if err != nil {
			return fmt.Errorf("screenshot: %w", err)
		}
		if err := os.WriteFile(screenshotPath, data, 0o644); err != nil {
			return fmt.Errorf("write screenshot: %w", err)
		}
	}

	return nil
}
