package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/lighthouse/arweave"
	"github.com/pithecene-io/lighthouse/assets"
	"github.com/pithecene-io/lighthouse/cache"
	"github.com/pithecene-io/lighthouse/cli/tui"
	"github.com/pithecene-io/lighthouse/configstore"
	"github.com/pithecene-io/lighthouse/keyfile"
	"github.com/pithecene-io/lighthouse/log"
	"github.com/pithecene-io/lighthouse/metrics"
	"github.com/pithecene-io/lighthouse/publish"
	"github.com/pithecene-io/lighthouse/report"
	"github.com/pithecene-io/lighthouse/runlog"
)

// UploadCommand returns the upload command, the only command that spends AR.
func UploadCommand() *cli.Command {
	return &cli.Command{
		Name:   "upload",
		Usage:  "Publish the assets directory to Arweave and print the token URI",
		Flags:  uploadFlags(),
		Action: uploadAction,
	}
}

func uploadAction(c *cli.Context) error {
	s, err := loadSettings(c)
	if err != nil {
		return invalidInput(err)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	prompter := tui.New(c.App.ErrWriter, s.yes)

	client, err := arweave.NewClient(arweave.Config{URL: s.gateway})
	if err != nil {
		return invalidInput(err)
	}
	gateway := client.BaseURL()

	wallet, err := loadWallet(ctx, s, prompter)
	if err != nil {
		return invalidInput(err)
	}

	store, err := openCache(ctx, s.cacheFile, prompter)
	if err != nil {
		return exitError(err)
	}

	if s.runID == "" {
		s.runID = uuid.NewString()
	}
	logger := log.NewLogger(log.RunContext{RunID: s.runID, Collection: s.collection, Verbose: s.verbose})
	defer logger.Sync()

	m := metrics.NewCollector(gateway, s.report.Backend, s.runID)
	rl := runlog.New(s.logFile)

	p, err := publish.New(publish.Config{
		Network:   client,
		Wallet:    wallet,
		Gateway:   gateway,
		Assets:    assets.NewDirStore(s.assetsDir),
		Cache:     store,
		Log:       rl,
		Logger:    logger,
		Metrics:   m,
		Confirmer: prompter,
		Retry:     s.retry,
	})
	if err != nil {
		return invalidInput(err)
	}

	logger.Info("upload starting", map[string]any{
		"gateway": gateway,
		"assets":  s.assetsDir,
		"cache":   s.cacheFile,
		"address": wallet.Address(),
	})

	startedAt := time.Now()
	res, runErr := p.Run(ctx)
	completedAt := time.Now()

	if spent(res) {
		fmt.Fprintln(c.App.ErrWriter, tui.RenderResult(res, report.Outcome(runErr)))
		finishRun(s, runRecord{
			runID:       s.runID,
			collection:  s.collection,
			gateway:     gateway,
			startedAt:   startedAt,
			completedAt: completedAt,
			result:      res,
			err:         runErr,
		}, report.Run{
			StartedAt:   startedAt,
			CompletedAt: completedAt,
			Result:      res,
			Err:         runErr,
			Log:         rl.Entries(),
			Metrics:     m.Snapshot(),
		}, m, logger)
	}

	if runErr != nil {
		return exitError(runErr)
	}

	fmt.Fprintln(c.App.Writer, res.RootURI)
	return saveTokenURI(ctx, c.App.ErrWriter, s.configFile, res.RootURI, prompter)
}

// spent reports whether the run got past pricing, the point from which it
// leaves state behind.
func spent(res *publish.Result) bool {
	if res == nil {
		return false
	}
	switch res.Phase {
	case "", publish.PhaseValidating, publish.PhasePricing:
		return false
	default:
		return true
	}
}

func loadWallet(ctx context.Context, s *settings, prompter *tui.Prompter) (*arweave.Wallet, error) {
	path := s.wallet
	if path == "" {
		var err error
		path, err = prompter.Input(ctx, "Wallet path:", "wallet.json")
		if err != nil {
			return nil, err
		}
	}
	return keyfile.Load(path, keyfile.Options{IdentityFile: s.walletIdentity})
}

// openCache offers to resume from an existing cache file. Declining starts
// from an empty cache that replaces the file on first write.
func openCache(ctx context.Context, path string, prompter *tui.Prompter) (*cache.Store, error) {
	if !cache.Exists(path) {
		return cache.New(path), nil
	}
	resume, err := prompter.Confirm(ctx, fmt.Sprintf("Use the cache file %s for previously uploaded content?", path))
	if err != nil {
		return nil, err
	}
	if !resume {
		return cache.New(path), nil
	}
	return cache.Open(path)
}

func saveTokenURI(ctx context.Context, out io.Writer, path, uri string, prompter *tui.Prompter) error {
	save, err := prompter.Confirm(ctx, fmt.Sprintf("Save the token URI to %s?", path))
	if err != nil {
		return exitError(err)
	}
	if !save {
		return nil
	}
	if err := configstore.New(path).SetTokenURI(uri); err != nil {
		return cli.Exit(fmt.Sprintf("Error: save token URI: %v", err), exitFailure)
	}
	fmt.Fprintln(out, tui.SuccessStyle.Render("Saved token_uri to "+path))
	return nil
}
