package cmd

import (
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/lighthouse/assets"
	"github.com/pithecene-io/lighthouse/cli/render"
)

// ValidateResponse is the response for the validate command.
type ValidateResponse struct {
	Assets   int              `json:"assets" yaml:"assets"`
	Valid    bool             `json:"valid" yaml:"valid"`
	Problems []assets.Problem `json:"problems,omitempty" yaml:"problems,omitempty"`
}

// ValidateCommand returns the validate command. It reports every problem
// in the assets directory and never contacts the network.
func ValidateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check the assets directory without uploading",
		Flags: []cli.Flag{
			ConfigFlag,
			FormatFlag,
			assetsFlag(),
			&cli.BoolFlag{
				Name:  flagSkipImageCheck,
				Usage: "Only check that images exist; do not decode their headers",
			},
		},
		Action: validateAction,
	}
}

func validateAction(c *cli.Context) error {
	s, err := loadSettings(c)
	if err != nil {
		return invalidInput(err)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return invalidInput(err)
	}

	list, err := assets.Discover(assets.NewDirStore(s.assetsDir), assets.Options{
		CollectAll:  true,
		CheckImages: !c.Bool(flagSkipImageCheck),
	})

	var verr *assets.ValidationError
	switch {
	case errors.As(err, &verr):
		var out any = ValidateResponse{Problems: verr.Problems}
		if r.Format() == render.FormatTable {
			out = verr.Problems
		}
		if rerr := r.Render(out); rerr != nil {
			return rerr
		}
		return exitError(err)
	case err != nil:
		return invalidInput(err)
	}

	return r.Render(ValidateResponse{Assets: len(list), Valid: true})
}
