package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"pcc/companion"
	"pcc/css"
	"pcc/state"
)

// Selector prints every selector list given on command line extended with
// companion selectors.
func Selector(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cmd.NArg() == 0 {
		return errors.New("no selectors have been specified")
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("selector")

	options, err := companionOptions(cmd, &env.Cfg.Companion)
	if err != nil {
		return err
	}
	tr := companion.New(append(options, companion.WithLogger(log))...)
	parser := css.NewParser(log)

	var out io.Writer = os.Stdout
	if w := cmd.Root().Writer; w != nil {
		out = w
	}

	for _, arg := range cmd.Args().Slice() {
		rule := parseSelectorList(parser, arg)
		if rule == nil {
			log.Warn("Not a selector list, ignoring", zap.String("selector", arg))
			continue
		}
		if _, err := fmt.Fprintln(out, tr.RuleText(rule.SelectorText(), rule.Selectors)); err != nil {
			return fmt.Errorf("unable to write result: %w", err)
		}
	}
	return nil
}

// parseSelectorList parses selector list the same way stylesheet parser does,
// returning rule with empty block.
func parseSelectorList(parser *css.Parser, list string) *css.Rule {
	if strings.ContainsAny(list, "{}") {
		return nil
	}
	sheet := parser.Parse([]byte(list + " {}"))
	if len(sheet.Warnings) > 0 || len(sheet.Items) != 1 || sheet.Items[0].Rule == nil || len(sheet.Items[0].Rule.Selectors) == 0 {
		return nil
	}
	return sheet.Items[0].Rule
}
