package main

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "img2sdf: %v\n", err)
		os.Exit(1)
	}
}

// options is everything one conversion needs, resolved from flags.
type options struct {
	Name      string
	Type      string
	Output    string
	WriteProc bool
	Load      LoadOptions
	World     Config
}

func (o options) inputPath() string { return o.Name + o.Type }

func newApp() *cli.App {
	return &cli.App{
		Name:  "img2sdf",
		Usage: "convert an occupancy grid image into an SDF world of wall segments",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "name",
				Usage:    "path of the input image without extension",
				Required: true,
				EnvVars:  []string{"IMG2SDF_NAME"},
			},
			&cli.StringFlag{
				Name:    "type",
				Usage:   "input file extension, reused for the intermediate image",
				Value:   ".jpg",
				EnvVars: []string{"IMG2SDF_TYPE"},
			},
			&cli.IntFlag{
				Name:    "size",
				Usage:   "side of the square grid the image is resized to",
				Value:   200,
				EnvVars: []string{"IMG2SDF_SIZE"},
			},
			&cli.BoolFlag{
				Name:    "native",
				Usage:   "keep the image at its own resolution instead of resizing",
				EnvVars: []string{"IMG2SDF_NATIVE"},
			},
			&cli.Float64Flag{
				Name:    "scale",
				Usage:   "world units per grid cell",
				Value:   0.1,
				EnvVars: []string{"IMG2SDF_SCALE"},
			},
			&cli.Float64Flag{
				Name:    "height",
				Usage:   "wall height in world units",
				Value:   2.0,
				EnvVars: []string{"IMG2SDF_HEIGHT"},
			},
			&cli.IntFlag{
				Name:    "threshold",
				Usage:   "luminance below which a pixel is a wall (1-255)",
				Value:   128,
				EnvVars: []string{"IMG2SDF_THRESHOLD"},
			},
			&cli.BoolFlag{
				Name:    "strict",
				Usage:   "only pure black is a wall and only pure white is free space",
				EnvVars: []string{"IMG2SDF_STRICT"},
			},
			&cli.BoolFlag{
				Name:    "legacy-close",
				Usage:   "end runs at x-scale instead of the last occupied column",
				EnvVars: []string{"IMG2SDF_LEGACY_CLOSE"},
			},
			&cli.StringFlag{
				Name:    "output",
				Usage:   "output path (default <name>.sdf)",
				EnvVars: []string{"IMG2SDF_OUTPUT"},
			},
			&cli.StringFlag{
				Name:    "model",
				Usage:   "name of the generated model",
				Value:   "GridMap",
				EnvVars: []string{"IMG2SDF_MODEL"},
			},
			&cli.BoolFlag{
				Name:    "no-proc",
				Usage:   "do not write the intermediate resized image",
				EnvVars: []string{"IMG2SDF_NO_PROC"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "log every detected run",
				EnvVars: []string{"IMG2SDF_VERBOSE"},
			},
		},
		Action: func(c *cli.Context) error {
			opts, err := optionsFromContext(c)
			if err != nil {
				return err
			}

			logger, err := newLogger(c.Bool("verbose"))
			if err != nil {
				return errors.Wrap(err, "create logger")
			}
			//nolint:errcheck
			defer logger.Sync()

			return convert(opts, logger, c.App.Writer)
		},
	}
}

func optionsFromContext(c *cli.Context) (options, error) {
	opts := options{
		Name:      c.String("name"),
		Type:      c.String("type"),
		Output:    c.String("output"),
		WriteProc: !c.Bool("no-proc"),
		Load: LoadOptions{
			Size:   c.Int("size"),
			Native: c.Bool("native"),
		},
		World: Config{
			CellScale:  c.Float64("scale"),
			CellHeight: c.Float64("height"),
			CloseRule:  CloseAtLastOccupied,
			ModelName:  c.String("model"),
		},
	}
	if opts.Output == "" {
		opts.Output = opts.Name + ".sdf"
	}
	if c.Bool("legacy-close") {
		opts.World.CloseRule = CloseLegacy
	}

	if c.Bool("strict") {
		opts.Load.Threshold = StrictThreshold
	} else {
		level := c.Int("threshold")
		if level < 1 || level > 255 {
			return options{}, errors.Errorf("threshold must be between 1 and 255, got %d", level)
		}
		opts.Load.Threshold = BinaryThreshold(uint8(level))
	}

	if opts.WriteProc {
		opts.Load.ProcPath = ProcPath(opts.Name, opts.Type)
	}
	return opts, nil
}

func newLogger(verbose bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		cfg.Level.SetLevel(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// convert runs the whole pipeline and reports the result on out.
func convert(opts options, logger *zap.SugaredLogger, out io.Writer) error {
	// Reject bad world parameters before touching the filesystem.
	if err := opts.World.Validate(); err != nil {
		return err
	}

	grid, err := LoadGrid(opts.inputPath(), opts.Load, logger)
	if err != nil {
		return err
	}

	world, err := Segment(grid, opts.World, logger)
	if err != nil {
		return err
	}

	if err := world.WriteFile(opts.Output); err != nil {
		return err
	}

	fmt.Fprintf(out, "SDF with %d wall segments successfully written to %s\n", world.Walls(), opts.Output)
	return nil
}
