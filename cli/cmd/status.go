package cmd

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/lighthouse/cache"
	"github.com/pithecene-io/lighthouse/cli/render"
	"github.com/pithecene-io/lighthouse/configstore"
	"github.com/pithecene-io/lighthouse/report"
)

// StatusResponse is the response for the status command.
type StatusResponse struct {
	CacheFile        string         `json:"cache_file" yaml:"cache_file"`
	CachePresent     bool           `json:"cache_present" yaml:"cache_present"`
	Images           int            `json:"images" yaml:"images"`
	Metadata         int            `json:"metadata" yaml:"metadata"`
	ImagesManifest   string         `json:"images_manifest,omitempty" yaml:"images_manifest,omitempty"`
	MetadataManifest string         `json:"metadata_manifest,omitempty" yaml:"metadata_manifest,omitempty"`
	TokenURI         string         `json:"token_uri,omitempty" yaml:"token_uri,omitempty"`
	LastRun          map[string]any `json:"last_run,omitempty" yaml:"last_run,omitempty"`
}

// StatusCommand returns the status command. It is read-only.
func StatusCommand() *cli.Command {
	flags := []cli.Flag{
		ConfigFlag,
		FormatFlag,
		&cli.StringFlag{
			Name:  flagCollection,
			Usage: "Collection whose last run report is shown (default: working directory name)",
		},
		cacheFileFlag(),
		configFileFlag(),
	}
	return &cli.Command{
		Name:   "status",
		Usage:  "Show cached uploads, manifests and the last run report",
		Flags:  append(flags, reportFlags()...),
		Action: statusAction,
	}
}

func statusAction(c *cli.Context) error {
	s, err := loadSettings(c)
	if err != nil {
		return invalidInput(err)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return invalidInput(err)
	}

	store, err := cache.Open(s.cacheFile)
	if err != nil {
		return exitError(err)
	}
	snap := store.Snapshot()

	resp := StatusResponse{
		CacheFile:        s.cacheFile,
		CachePresent:     cache.Exists(s.cacheFile),
		Images:           len(snap.Images),
		Metadata:         len(snap.Metadata),
		ImagesManifest:   snap.ImagesManifest,
		MetadataManifest: snap.MetadataManifest,
	}

	resp.TokenURI, err = configstore.New(s.configFile).GetString(configstore.TokenURIField)
	if err != nil {
		return exitError(err)
	}

	if s.report.Backend != "" {
		factory, err := reportFactory(c.Context, s.report)
		if err != nil {
			return invalidInput(err)
		}
		ds, err := report.OpenDataset(factory)
		if err != nil {
			return exitError(err)
		}
		last, err := report.QueryLatest(c.Context, ds, report.RecordKindSummary, s.collection)
		switch {
		case errors.Is(err, report.ErrNoRecords):
		case err != nil:
			return exitError(fmt.Errorf("read run reports: %w", err))
		default:
			resp.LastRun = last
		}
	}

	return r.Render(resp)
}
