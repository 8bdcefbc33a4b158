package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jsvensson/colormerge"
	"github.com/jsvensson/colormerge/internal/config"
	"github.com/jsvensson/colormerge/internal/merge"
	"github.com/jsvensson/colormerge/internal/session"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

var (
	flagDoc    string
	flagConfig string
	flagWrite  bool
	flagDebug  bool
	version    = "dev" // Injected at build time via ldflags
)

var rootCmd = &cobra.Command{
	Use:   "colormerge-session",
	Short: "Serve a color merge session over JSON-RPC on stdio",
	Long: "Load a design document and answer colormerge/message requests on stdin/stdout\n" +
		"until the client sends colormerge/close or closes the stream. Logs go to stderr\n" +
		"or the configured log file.",
	Version:      version,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&flagDoc, "doc", "document.hcl", "path to design document")
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "settings file (default "+config.DefaultFile+" if present)")
	rootCmd.Flags().BoolVar(&flagWrite, "write", false, "save the document after every merge that changed it")
	rootCmd.Flags().BoolVar(&flagDebug, "debug", false, "log JSON-RPC traffic")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	commonlog.Configure(cfg.Verbosity(), cfg.LogFile())
	log := commonlog.GetLogger("colormerge.session")

	doc, err := colormerge.Open(flagDoc)
	if err != nil {
		return err
	}

	opts := []session.Option{session.WithDefaultThreshold(cfg.Threshold)}
	if flagWrite {
		opts = append(opts, session.WithMergeHook(func(_ context.Context, res merge.Result) error {
			if err := colormerge.Save(flagDoc, doc); err != nil {
				return err
			}
			log.Infof("saved %s after changing %d slot(s)", flagDoc, res.Changed)
			return nil
		}))
	}

	log.Infof("serving %s", flagDoc)
	s := session.NewServer(session.New(doc, opts...), version, flagDebug)
	if err := s.Run(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
