package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/John-Robertt/cardfinder/internal/app"
	"github.com/John-Robertt/cardfinder/internal/client"
	"github.com/John-Robertt/cardfinder/internal/config"
	"github.com/John-Robertt/cardfinder/internal/dom"
	"github.com/John-Robertt/cardfinder/internal/domain"
	"github.com/John-Robertt/cardfinder/internal/extract"
	"github.com/John-Robertt/cardfinder/internal/infra/httpx"
	"github.com/John-Robertt/cardfinder/internal/logging"
)

var version = "dev"

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "cardfinder",
		Short: "Find matter cards on a Legalboards kanban snapshot",
		Long: `cardfinder indexes the matter cards of a Legalboards board snapshot and
answers SEARCH_MATTER queries against it, highlighting the first match.

Run "cardfinder serve" next to the board snapshot, then query it with
"cardfinder search <text>".`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ./cardfinder.yaml if present)")
	root.PersistentFlags().BoolVar(&c.debug, "debug", false, "enable per-decision debug logging on stderr")
	root.PersistentFlags().StringVar(&c.serverURL, "server", "", "card finder server URL (default from config client.url)")

	root.AddCommand(
		c.serveCmd(),
		c.searchCmd(),
		c.cardsCmd(),
		c.explainCmd(),
		c.extractCmd(),
		c.pushCmd(),
		c.healthCmd(),
	)
	return root
}

func (c *cli) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the card finder for a board snapshot",
		Long: `Serve the card finder over HTTP.

The board snapshot is either pushed with "cardfinder push" (PUT /board) or
read from --page-file, which is watched for changes.

Examples:
  cardfinder serve --page-file board.html --page-url https://firm.legalboards.com/board/1
  cardfinder serve --addr 127.0.0.1:9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := c.newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			logger.Info("card finder starting",
				zap.String("addr", cfg.Server.Addr),
				zap.String("page_url", cfg.Page.URL),
				zap.String("page_file", cfg.Page.File),
				zap.String("config", cfg.Source),
			)

			a, err := app.New(app.Options{Config: cfg, Logger: logger})
			if err != nil {
				return err
			}
			return a.Serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&c.addr, "addr", "", "listen address (default from config server.addr)")
	cmd.Flags().StringVar(&c.pageURL, "page-url", "", "URL of the board the snapshot was taken from")
	cmd.Flags().StringVar(&c.pageFile, "page-file", "", "board snapshot HTML file to watch")
	return cmd
}

func (c *cli) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>...",
		Short: "Search cards by matter ID or client name",
		Long: `Search the board for cards whose matter ID, name or title contains the
query (case-insensitive). The first match is highlighted on the board.

Examples:
  cardfinder search 2020-00025
  cardfinder search steiner`,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				renderNotice(c.stdout, c.tty, domain.MsgEmptyQuery)
				return nil
			}
			cl, err := c.newClient(cmd)
			if err != nil {
				return err
			}
			resp, err := cl.Search(cmd.Context(), query)
			if err != nil {
				return err
			}
			renderSearch(c.stdout, c.tty, query, resp)
			return nil
		},
	}
}

func (c *cli) cardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cards",
		Short: "Re-extract and list every card the finder can see",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cl, err := c.newClient(cmd)
			if err != nil {
				return err
			}
			cards, err := cl.Cards(cmd.Context())
			if err != nil {
				return err
			}
			renderCards(c.stdout, c.tty, cards)
			return nil
		},
	}
}

func (c *cli) explainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <query>...",
		Short: "Show per-card ID/name match decisions without re-extracting",
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := c.newClient(cmd)
			if err != nil {
				return err
			}
			traces, err := cl.Explain(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			renderTraces(c.stdout, c.tty, traces)
			return nil
		},
	}
}

func (c *cli) extractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file.html>",
		Short: "Run the card extractor offline on a saved board page",
		Long: `Run the card extractor on a local HTML file without a server.
Use --debug to see every heuristic decision on stderr.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := c.newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open board file: %w", err)
			}
			defer f.Close()
			doc, err := dom.Parse(f, dom.Options{LineHeight: cfg.Page.LineHeight})
			if err != nil {
				return err
			}

			res := extract.New(logger.Named("extract")).Extract(doc)
			renderExtract(c.stdout, c.tty, newExtractReport(args[0], res))
			return nil
		},
	}
}

func (c *cli) pushCmd() *cobra.Command {
	var pageURL string
	cmd := &cobra.Command{
		Use:   "push <file.html|->",
		Short: "Upload a board snapshot to the running server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open board file: %w", err)
				}
				defer f.Close()
				r = f
			}
			cl, err := c.newClient(cmd)
			if err != nil {
				return err
			}
			applied, err := cl.PushBoard(cmd.Context(), r, pageURL)
			if err != nil {
				return err
			}
			renderPush(c.stdout, c.tty, applied)
			return nil
		},
	}
	cmd.Flags().StringVar(&pageURL, "page-url", "", "also update the board URL reported by the server")
	return cmd
}

func (c *cli) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check whether the card finder is attached to a board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cl, err := c.newClient(cmd)
			if err != nil {
				return err
			}
			h, err := cl.Health(cmd.Context())
			if err != nil {
				return err
			}
			renderHealth(c.stdout, c.tty, h)
			return nil
		},
	}
}

func (c *cli) loadConfig(cmd *cobra.Command) (config.Config, error) {
	cwd, err := c.getwd()
	if err != nil {
		return config.Config{}, fmt.Errorf("read working directory: %w", err)
	}
	flags := cmd.Flags()
	return config.Load(cwd, config.CLIArgs{
		ConfigPath:   c.configPath,
		Debug:        c.debug,
		DebugSet:     flags.Changed("debug"),
		Addr:         c.addr,
		AddrSet:      flags.Changed("addr"),
		PageURL:      c.pageURL,
		PageURLSet:   cmd.Name() == "serve" && flags.Changed("page-url"),
		PageFile:     c.pageFile,
		PageFileSet:  flags.Changed("page-file"),
		ServerURL:    c.serverURL,
		ServerURLSet: flags.Changed("server"),
	})
}

func (c *cli) newLogger(cfg config.Config) (*zap.Logger, error) {
	return logging.NewWithWriter(logging.Options{Debug: cfg.Debug, Format: cfg.Log.Format}, c.stderr)
}

func (c *cli) newClient(cmd *cobra.Command) (*client.Client, error) {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return client.New(cfg.Client.URL, httpx.NewClient(cfg.Client.Timeout, cfg.Client.RetryMax))
}
