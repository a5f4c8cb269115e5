// Package publish runs the post-render publish script (e.g. a GitHub Pages
// push) and notifies recipients of the published link.
package publish

import (
	"context"
	"os/exec"
	"time"

	"morningbrief/internal/config"
	"morningbrief/internal/emailer"
	appLog "morningbrief/internal/log"
)

// scriptTimeout bounds the publish script so a hung git push cannot stall
// the run forever.
const scriptTimeout = 2 * time.Minute

// Run executes the configured publish script and, when a site URL is set,
// mails the link. Failures are logged, never fatal: publishing is an
// optional last step and the brief already exists on disk.
func Run(ctx context.Context, cfg *config.Config) {
	if !cfg.Publish.Auto {
		return
	}

	sctx, cancel := context.WithTimeout(ctx, scriptTimeout)
	defer cancel()

	cmd := exec.CommandContext(sctx, cfg.Publish.Script)
	out, err := cmd.CombinedOutput()
	if err != nil {
		appLog.Error("publish: script failed", err, "script", cfg.Publish.Script, "output", string(out))
		return
	}
	appLog.Info("publish: script succeeded", "script", cfg.Publish.Script)

	if cfg.Publish.SiteURL != "" {
		if err := emailer.SendPagesLink(cfg, cfg.Publish.SiteURL); err != nil {
			appLog.Error("publish: failed to send pages link", err)
		}
	}
}
