package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jsvensson/colormerge"
	"github.com/jsvensson/colormerge/internal/config"
	"github.com/jsvensson/colormerge/internal/format"
	"github.com/jsvensson/colormerge/internal/merge"
	"github.com/jsvensson/colormerge/internal/message"
	"github.com/jsvensson/colormerge/internal/report"
	"github.com/jsvensson/colormerge/internal/session"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

var (
	flagDoc       string
	flagConfig    string
	flagThreshold float64
	flagFormat    string
	flagTemplate  string
	flagNoColor   bool
	flagGroups    []int
	flagTarget    string
	flagStyle     string
	flagDryRun    bool
	flagCheck     bool
	version       = "dev" // Injected at build time via ldflags
)

// errReported marks a failure already written to the output, as an error
// response or a per-file message.
var errReported = errors.New("request failed")

var rootCmd = &cobra.Command{
	Use:           "colormerge",
	Short:         "Find near-duplicate colors in a design document and merge them",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List groups of similar solid colors",
	Args:  cobra.NoArgs,
	RunE:  runScan,
}

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Replace every color in the chosen groups with a target color",
	Long: "Rescan the document, resolve --groups against the fresh grouping and set every\n" +
		"member slot to --target. Pass the same --threshold used for the scan to get the\n" +
		"same group indices. The document is written back unless --dry-run is set.",
	Args: cobra.NoArgs,
	RunE: runMerge,
}

var fmtCmd = &cobra.Command{
	Use:   "fmt [files...]",
	Short: "Format design document files",
	Long:  "Format one or more design documents in-place. Prints the name of each file that was modified.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFmt,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{scanCmd, mergeCmd} {
		cmd.Flags().StringVar(&flagDoc, "doc", "document.hcl", "path to design document")
		cmd.Flags().StringVar(&flagConfig, "config", "", "settings file (default "+config.DefaultFile+" if present)")
		cmd.Flags().Float64Var(&flagThreshold, "threshold", 0, "maximum distance to a group seed, 0-441")
		cmd.Flags().StringVar(&flagFormat, "format", "", "output format: text, json or yaml")
		cmd.Flags().StringVar(&flagTemplate, "template", "", "text template file overriding the built-in report")
		cmd.Flags().BoolVar(&flagNoColor, "no-color", false, "omit color swatches even when writing to a color terminal")
	}
	mergeCmd.Flags().IntSliceVar(&flagGroups, "groups", nil, "indices of the groups to merge, as listed by scan")
	mergeCmd.Flags().StringVar(&flagTarget, "target", "", "target color as 6 hex digits")
	mergeCmd.Flags().StringVar(&flagStyle, "style", "", "also create a paint style with this name")
	mergeCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "report the merge without writing the document")
	_ = mergeCmd.MarkFlagRequired("target")
	fmtCmd.Flags().BoolVarP(&flagCheck, "check", "c", false, "check if files are formatted (do not write changes)")
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(fmtCmd)
	rootCmd.AddCommand(versionCmd)
}

// settings loads the config file and applies command flags on top.
func settings(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Threshold = flagThreshold
	}
	if cmd.Flags().Changed("format") {
		cfg.Format = flagFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	commonlog.Configure(cfg.Verbosity(), cfg.LogFile())
	return cfg, nil
}

func respond(cmd *cobra.Command, cfg *config.Config, resp message.Response) error {
	r := &report.Renderer{Format: cfg.Format, TemplateFile: flagTemplate, NoColor: flagNoColor}
	if err := r.Render(cmd.OutOrStdout(), resp); err != nil {
		return err
	}
	if resp.Type == message.TypeError {
		return errReported
	}
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := settings(cmd)
	if err != nil {
		return err
	}
	doc, err := colormerge.Open(flagDoc)
	if err != nil {
		return err
	}

	c := session.New(doc, session.WithDefaultThreshold(cfg.Threshold))
	resp, _ := c.Handle(cmd.Context(), message.Request{Type: message.TypeScan})
	return respond(cmd, cfg, resp)
}

func runMerge(cmd *cobra.Command, args []string) error {
	cfg, err := settings(cmd)
	if err != nil {
		return err
	}
	doc, err := colormerge.Open(flagDoc)
	if err != nil {
		return err
	}

	opts := []session.Option{session.WithDefaultThreshold(cfg.Threshold)}
	if !flagDryRun {
		opts = append(opts, session.WithMergeHook(func(_ context.Context, _ merge.Result) error {
			return colormerge.Save(flagDoc, doc)
		}))
	}
	c := session.New(doc, opts...)

	resp, _ := c.Handle(cmd.Context(), message.Request{
		Type:         message.TypeMerge,
		GroupIndices: flagGroups,
		TargetHex:    flagTarget,
		StyleName:    flagStyle,
	})
	return respond(cmd, cfg, resp)
}

// runFmt rewrites each file in canonical form. Files the parser rejects are
// reported and left untouched.
func runFmt(cmd *cobra.Command, args []string) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	failed, unformatted := false, false

	for _, path := range args {
		src, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(stderr, "Error reading %s: %v\n", path, err)
			failed = true
			continue
		}
		out, err := format.Source(src, path)
		if err != nil {
			fmt.Fprintf(stderr, "Error parsing %s: %v\n", path, err)
			failed = true
			continue
		}
		if bytes.Equal(out, src) {
			continue
		}

		fmt.Fprintln(stdout, path)
		unformatted = true
		if flagCheck {
			continue
		}
		if err := os.WriteFile(path, out, 0o644); err != nil {
			fmt.Fprintf(stderr, "Error writing %s: %v\n", path, err)
			failed = true
		}
	}

	if failed || (flagCheck && unformatted) {
		return errReported
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
