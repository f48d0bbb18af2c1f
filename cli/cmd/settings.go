package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/lighthouse/cli/config"
	"github.com/pithecene-io/lighthouse/publish"
)

// settings is the merged view of flags and lighthouse.yaml for one command.
type settings struct {
	collection     string
	gateway        string
	wallet         string
	walletIdentity string
	assetsDir      string
	cacheFile      string
	logFile        string
	configFile     string
	runID          string
	retry          publish.RetryPolicy
	report         config.ReportConfig
	adapter        config.AdapterConfig
	yes            bool
	verbose        bool
}

// loadSettings resolves every setting the command defines. Flags explicitly
// set on the command line win over the config file, which wins over flag
// defaults.
func loadSettings(c *cli.Context) (*settings, error) {
	cfg, err := config.LoadOptional(c.String(flagConfig))
	if err != nil {
		return nil, err
	}

	s := &settings{
		collection:     resolveString(c, flagCollection, cfg.Collection),
		gateway:        resolveString(c, flagGateway, cfg.Gateway),
		wallet:         resolveString(c, flagWallet, cfg.Wallet),
		walletIdentity: resolveString(c, flagWalletIdentity, cfg.WalletIdentity),
		assetsDir:      resolveString(c, flagAssets, cfg.Assets),
		cacheFile:      resolveString(c, flagCacheFile, cfg.CacheFile),
		logFile:        resolveString(c, flagLogFile, cfg.LogFile),
		configFile:     resolveString(c, flagConfigFile, cfg.ConfigFile),
		runID:          c.String(flagRunID),
		retry: publish.RetryPolicy{
			MaxRetries: resolveInt(c, flagMaxRetries, cfg.Retry.MaxRetries),
			BaseDelay:  resolveDuration(c, flagBaseDelay, cfg.Retry.BaseDelay.Duration),
		},
		report:  cfg.Report,
		adapter: cfg.Adapter,
		yes:     c.Bool(flagYes),
		verbose: c.Bool(flagVerbose),
	}
	s.report.Backend = resolveString(c, flagReportBackend, cfg.Report.Backend)
	s.report.Path = resolveString(c, flagReportPath, cfg.Report.Path)

	if s.collection == "" {
		s.collection = defaultCollection()
	}
	if s.retry.MaxRetries < 0 {
		return nil, fmt.Errorf("--%s must be >= 0, got %d", flagMaxRetries, s.retry.MaxRetries)
	}
	if c.IsSet(flagBaseDelay) && s.retry.BaseDelay <= 0 {
		return nil, fmt.Errorf("--%s must be positive", flagBaseDelay)
	}
	switch s.report.Backend {
	case "", "fs", "s3":
	default:
		return nil, fmt.Errorf("--%s must be fs or s3, got %q", flagReportBackend, s.report.Backend)
	}
	if s.report.Backend != "" && s.report.Path == "" {
		return nil, fmt.Errorf("--%s is required when the %s report backend is selected", flagReportPath, s.report.Backend)
	}
	return s, nil
}

// resolveString returns the flag when it was set, else cfgVal, else the
// flag default.
func resolveString(c *cli.Context, name, cfgVal string) string {
	if c.IsSet(name) || cfgVal == "" {
		return c.String(name)
	}
	return cfgVal
}

func resolveInt(c *cli.Context, name string, cfgVal *int) int {
	if c.IsSet(name) || cfgVal == nil {
		return c.Int(name)
	}
	return *cfgVal
}

func resolveDuration(c *cli.Context, name string, cfgVal time.Duration) time.Duration {
	if c.IsSet(name) || cfgVal == 0 {
		return c.Duration(name)
	}
	return cfgVal
}

func defaultCollection() string {
	wd, err := os.Getwd()
	if err != nil {
		return "default"
	}
	return filepath.Base(wd)
}
