// Package cmd provides CLI commands for the lighthouse binary.
package cmd

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/lighthouse/arweave"
	"github.com/pithecene-io/lighthouse/assets"
	"github.com/pithecene-io/lighthouse/cache"
	"github.com/pithecene-io/lighthouse/configstore"
	"github.com/pithecene-io/lighthouse/runlog"
)

// Flag names shared across commands.
const (
	flagConfig         = "config"
	flagFormat         = "format"
	flagCollection     = "collection"
	flagGateway        = "url"
	flagWallet         = "wallet"
	flagWalletIdentity = "wallet-identity"
	flagAssets         = "assets"
	flagCacheFile      = "cache-file"
	flagLogFile        = "log-file"
	flagConfigFile     = "config-file"
	flagMaxRetries     = "max-retries"
	flagBaseDelay      = "base-delay"
	flagReportBackend  = "report-backend"
	flagReportPath     = "report-path"
	flagRunID          = "run-id"
	flagYes            = "yes"
	flagVerbose        = "verbose"
	flagSkipImageCheck = "skip-image-check"
)

var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    flagFormat,
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// ConfigFlag points at a lighthouse.yaml defaults file.
	ConfigFlag = &cli.StringFlag{
		Name:    flagConfig,
		Aliases: []string{"c"},
		Usage:   "Path to lighthouse.yaml (default: ./lighthouse.yaml if present)",
	}
)

func assetsFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  flagAssets,
		Usage: "Directory holding metadata documents and images",
		Value: assets.DefaultDir,
	}
}

func cacheFileFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  flagCacheFile,
		Usage: "Resumable upload cache",
		Value: cache.DefaultFile,
	}
}

func configFileFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  flagConfigFile,
		Usage: "Project config.json that receives token_uri",
		Value: configstore.DefaultFile,
	}
}

func gatewayFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    flagGateway,
		Aliases: []string{"gateway"},
		Usage:   "Arweave gateway URL (http or https)",
		Value:   arweave.DefaultGateway,
	}
}

func walletFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    flagWallet,
			Aliases: []string{"w"},
			Usage:   "Path to the Arweave JWK wallet (plain or age-encrypted)",
		},
		&cli.StringFlag{
			Name:  flagWalletIdentity,
			Usage: "age identity file for a recipient-encrypted wallet",
		},
	}
}

func reportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  flagReportBackend,
			Usage: "Run report backend: fs or s3 (empty disables archiving)",
		},
		&cli.StringFlag{
			Name:  flagReportPath,
			Usage: "Run report location (fs: directory, s3: bucket/prefix)",
		},
	}
}

// uploadFlags returns every flag the upload command accepts.
func uploadFlags() []cli.Flag {
	flags := []cli.Flag{
		ConfigFlag,
		&cli.StringFlag{
			Name:  flagCollection,
			Usage: "Collection name used in logs and run reports (default: working directory name)",
		},
		gatewayFlag(),
		assetsFlag(),
		cacheFileFlag(),
		&cli.StringFlag{
			Name:  flagLogFile,
			Usage: "Pipeline log file",
			Value: runlog.DefaultFile,
		},
		configFileFlag(),
		&cli.IntFlag{
			Name:  flagMaxRetries,
			Usage: "Retries after a rate-limited upload before aborting",
			Value: 3,
		},
		&cli.DurationFlag{
			Name:  flagBaseDelay,
			Usage: "Backoff before the first retry; doubles on each retry",
			Value: time.Minute,
		},
		&cli.StringFlag{
			Name:  flagRunID,
			Usage: "Run identifier (default: random UUID)",
		},
		&cli.BoolFlag{
			Name:    flagYes,
			Aliases: []string{"y"},
			Usage:   "Answer yes to every confirmation",
		},
		&cli.BoolFlag{
			Name:    flagVerbose,
			Aliases: []string{"v"},
			Usage:   "Enable debug logging",
		},
	}
	flags = append(flags, walletFlags()...)
	return append(flags, reportFlags()...)
}
