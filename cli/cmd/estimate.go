package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/lighthouse/arweave"
	"github.com/pithecene-io/lighthouse/assets"
	"github.com/pithecene-io/lighthouse/cache"
	"github.com/pithecene-io/lighthouse/cli/render"
	"github.com/pithecene-io/lighthouse/cli/tui"
	"github.com/pithecene-io/lighthouse/keyfile"
	"github.com/pithecene-io/lighthouse/publish"
)

// EstimateResponse is the response for the estimate command.
type EstimateResponse struct {
	Gateway         string `json:"gateway" yaml:"gateway"`
	Assets          int    `json:"assets" yaml:"assets"`
	PendingImages   int    `json:"pending_images" yaml:"pending_images"`
	PendingMetadata int    `json:"pending_metadata" yaml:"pending_metadata"`
	Bytes           int64  `json:"bytes" yaml:"bytes"`
	Size            string `json:"size" yaml:"size"`
	Winston         string `json:"winston" yaml:"winston"`
	AR              string `json:"ar" yaml:"ar"`
	Address         string `json:"address,omitempty" yaml:"address,omitempty"`
	BalanceAR       string `json:"balance_ar,omitempty" yaml:"balance_ar,omitempty"`
	Sufficient      *bool  `json:"sufficient,omitempty" yaml:"sufficient,omitempty"`
}

// EstimateCommand returns the estimate command. It prices what an upload
// would publish now, honouring the cache, without spending anything.
func EstimateCommand() *cli.Command {
	flags := []cli.Flag{
		ConfigFlag,
		FormatFlag,
		gatewayFlag(),
		assetsFlag(),
		cacheFileFlag(),
	}
	return &cli.Command{
		Name:   "estimate",
		Usage:  "Quote the cost of uploading the pending assets",
		Flags:  append(flags, walletFlags()...),
		Action: estimateAction,
	}
}

func estimateAction(c *cli.Context) error {
	s, err := loadSettings(c)
	if err != nil {
		return invalidInput(err)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return invalidInput(err)
	}

	client, err := arweave.NewClient(arweave.Config{URL: s.gateway})
	if err != nil {
		return invalidInput(err)
	}

	store := assets.NewDirStore(s.assetsDir)
	list, err := assets.Discover(store, assets.Options{})
	if err != nil {
		return exitError(err)
	}

	cacheStore, err := cache.Open(s.cacheFile)
	if err != nil {
		return exitError(err)
	}

	est, err := publish.EstimateCost(c.Context, client, store, list, cacheStore, client.BaseURL())
	if err != nil {
		return exitError(err)
	}

	resp := EstimateResponse{
		Gateway:         client.BaseURL(),
		Assets:          len(list),
		PendingImages:   est.PendingImages,
		PendingMetadata: est.PendingMetadata,
		Bytes:           est.Bytes,
		Size:            humanize.IBytes(uint64(max(est.Bytes, 0))),
		Winston:         est.Winston.String(),
		AR:              est.AR,
	}

	if s.wallet != "" {
		w, err := keyfile.Load(s.wallet, keyfile.Options{IdentityFile: s.walletIdentity})
		if err != nil {
			return invalidInput(err)
		}
		balance, err := client.Balance(c.Context, w.Address())
		if err != nil {
			return exitError(fmt.Errorf("fetch balance of %s: %w", w.Address(), err))
		}
		ok := balance.Cmp(est.Winston) >= 0
		resp.Address = w.Address()
		resp.BalanceAR = arweave.WinstonToAR(balance)
		resp.Sufficient = &ok
	}

	if r.Format() == render.FormatTable {
		fmt.Fprintln(c.App.Writer, tui.RenderEstimate(est))
		if resp.Address != "" {
			fmt.Fprintf(c.App.Writer, "Wallet %s holds %s AR\n", resp.Address, resp.BalanceAR)
		}
		return nil
	}
	return r.Render(resp)
}
