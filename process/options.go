package process

import (
	cli "github.com/urfave/cli/v3"

	"pcc/companion"
	"pcc/config"
)

// CompanionFlags returns command line flags overriding companion section of
// configuration.
func CompanionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "generate all combinations of original and companion matching (output grows exponentially)"},
		&cli.BoolFlag{Name: "module", Aliases: []string{"m"}, Usage: "wrap companion classes in :global() for CSS modules"},
		&cli.StringFlag{Name: "prefix", Aliases: []string{"p"}, Usage: "use `PREFIX` for companion class names"},
		&cli.StringSliceFlag{Name: "exclude", Aliases: []string{"x"}, Usage: "never transform `PSEUDO` (replaces configured list, may be repeated)"},
		&cli.StringSliceFlag{Name: "restrict-to", Aliases: []string{"r"}, Usage: "transform only `PSEUDO` (may be repeated)"},
	}
}

// applyFlags merges command line overrides into configuration so the
// configuration stored in debug report is the one actually used.
func applyFlags(cmd *cli.Command, conf *config.CompanionConfig) {
	if cmd.IsSet("all") {
		conf.AllCombinations = cmd.Bool("all")
	}
	if cmd.IsSet("module") {
		conf.Module = cmd.Bool("module")
	}
	if cmd.IsSet("prefix") {
		conf.Prefix = cmd.String("prefix")
	}
	if cmd.IsSet("exclude") {
		conf.Exclude = config.PseudoList(cmd.StringSlice("exclude"))
	}
	if cmd.IsSet("restrict-to") {
		conf.RestrictTo = config.PseudoList(cmd.StringSlice("restrict-to"))
	}
}

// companionOptions returns transformer options from configuration with
// command line overrides, overrides obey the same rules as configuration file.
func companionOptions(cmd *cli.Command, conf *config.CompanionConfig) ([]companion.Option, error) {
	applyFlags(cmd, conf)
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf.Options(), nil
}

// Flags returns all flags of process command.
func Flags() []cli.Flag {
	return append([]cli.Flag{
		&cli.BoolFlag{Name: "nodirs", Aliases: []string{"nd"}, Usage: "when producing output do not keep input directory structure"},
		&cli.BoolFlag{Name: "overwrite", Aliases: []string{"ow"}, Usage: "continue even if destination exists, overwrite files"},
		&cli.StringFlag{Name: "charset",
			Usage: "decode stylesheets without BOM or @charset rule using `ENCODING` (see IANA.org for character set names)"},
		&cli.StringFlag{Name: "force-zip-cp",
			Usage: "Force `ENCODING` for ALL non UTF-8 file names in processed archives (see IANA.org for character set names)"},
	}, CompanionFlags()...)
}
