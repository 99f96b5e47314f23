package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/config"
	"github.com/starford/raido/internal/doctor"
	"github.com/starford/raido/internal/generate"
	"github.com/starford/raido/internal/mcpserver"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/render"
	"github.com/starford/raido/internal/repo"
)

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("RAIDO_LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// resolve builds the effective settings from the global flags and the
// working directory.
func resolve(cmd *cli.Command) (*config.Resolved, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return config.Resolve(config.Options{
		StartDir:     wd,
		FileOverride: cmd.String("config"),
		DirOverride:  cmd.String("adr-dir"),
	})
}

func openRepo(cmd *cli.Command) (*repo.Repository, error) {
	res, err := resolve(cmd)
	if err != nil {
		return nil, err
	}
	var opts []repo.Option
	if tpl := cmd.String("template"); tpl != "" {
		engine := render.New()
		if err := engine.LoadTemplate(tpl); err != nil {
			return nil, err
		}
		opts = append(opts, repo.WithEngine(engine))
	}
	return repo.Open(res, opts...), nil
}

func initCommand() *cli.Command {
	return &cli.Command{
		Name:      "init",
		Usage:     "Initialize a record collection and seed the first record",
		ArgsUsage: "[directory]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Serialization mode: compat or structured",
				Value: string(config.ModeCompat),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir := cmd.Args().First()
			if dir == "" {
				dir = config.DefaultDir
			}
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			s := config.Settings{Dir: dir, Mode: config.Mode(cmd.String("mode"))}
			if err := s.Validate(); err != nil {
				return err
			}
			r, err := repo.Init(wd, s)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.Root().Writer, r.Dir())
			return nil
		},
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "new",
		Usage:     "Create a record with the next available number",
		ArgsUsage: "<title>...",
		Flags: []cli.Flag{
			&cli.IntSliceFlag{
				Name:    "supersede",
				Aliases: []string{"s"},
				Usage:   "Number of a record the new one supersedes (repeatable)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			title := strings.Join(cmd.Args().Slice(), " ")
			if title == "" {
				return cli.Exit("a title is required", 2)
			}
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}

			flagged := cmd.IntSlice("supersede")
			superseded := make([]int, len(flagged))
			for i, n := range flagged {
				superseded[i] = int(n)
			}
			if len(superseded) == 0 {
				_, path, err := r.NewRecord(title)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.Root().Writer, path)
				return nil
			}

			rec, path, err := r.Supersede(title, superseded[0])
			if err != nil {
				return err
			}
			for _, old := range superseded[1:] {
				if err := r.SetStatus(old, models.StatusSuperseded, rec.Number); err != nil {
					return err
				}
				rec.AddLink(models.Link{Target: old, Kind: models.KindSupersedes})
			}
			if len(superseded) > 1 {
				if _, err := r.Update(rec); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.Root().Writer, path)
			return nil
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List all records",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			recs, err := r.List()
			if err != nil {
				return err
			}
			for _, rec := range recs {
				fmt.Fprintf(cmd.Root().Writer, "%4d  %-12s  %s\n",
					rec.Number, rec.Status.String(), rec.Title)
			}
			return nil
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Print a record resolved by number or title",
		ArgsUsage: "<number|title>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			query := strings.Join(cmd.Args().Slice(), " ")
			if query == "" {
				return cli.Exit("a record number or title is required", 2)
			}
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			rec, err := r.Find(query)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(rec.Path)
			if err != nil {
				return err
			}
			_, err = cmd.Root().Writer.Write(data)
			return err
		},
	}
}

func linkCommand() *cli.Command {
	return &cli.Command{
		Name:      "link",
		Usage:     "Link two records with a forward and reverse relationship",
		ArgsUsage: "<source> <kind> <target> <reverse-kind>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args().Slice()
			if len(args) != 4 {
				return cli.Exit("usage: link <source> <kind> <target> <reverse-kind>", 2)
			}
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			src, err := r.Find(args[0])
			if err != nil {
				return err
			}
			dst, err := r.Find(args[2])
			if err != nil {
				return err
			}
			return r.Link(src.Number, dst.Number,
				models.ParseLinkKind(args[1]), models.ParseLinkKind(args[3]))
		},
	}
}

func supersedeCommand() *cli.Command {
	return &cli.Command{
		Name:      "supersede",
		Usage:     "Create a record superseding an existing one",
		ArgsUsage: "<number> <title>...",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args().Slice()
			if len(args) < 2 {
				return cli.Exit("usage: supersede <number> <title>...", 2)
			}
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			old, err := r.Find(args[0])
			if err != nil {
				return err
			}
			_, path, err := r.Supersede(strings.Join(args[1:], " "), old.Number)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.Root().Writer, path)
			return nil
		},
	}
}

func statusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show or change a record's status",
		ArgsUsage: "<number|title> [new-status]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "by",
				Usage: "Superseding record number, required context for the superseded status",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			args := cmd.Args().Slice()
			if len(args) == 0 {
				return cli.Exit("a record number or title is required", 2)
			}
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			rec, err := r.Find(args[0])
			if err != nil {
				return err
			}
			if len(args) == 1 {
				fmt.Fprintln(cmd.Root().Writer, rec.Status.String())
				return nil
			}
			status := models.ParseStatus(strings.Join(args[1:], " "))
			return r.SetStatus(rec.Number, status, int(cmd.Int("by")))
		},
	}
}

func doctorCommand(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "doctor",
		Usage: "Check the collection for inconsistencies",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Keep running and re-check after file changes",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}

			report := func(rep *doctor.Report) {
				if rep.Healthy() {
					fmt.Fprintln(cmd.Root().Writer, "collection is healthy")
					return
				}
				for _, d := range rep.Diagnostics {
					fmt.Fprintf(cmd.Root().Writer, "%-7s  %-18s  %s\n", d.Severity, d.Check, d.Message)
				}
			}

			if !cmd.Bool("watch") {
				rep, err := doctor.Check(r)
				if err != nil {
					return err
				}
				report(rep)
				if rep.HasErrors() {
					return cli.Exit("", 1)
				}
				return nil
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return doctor.Watch(ctx, r, logger, report)
			})
			return g.Wait()
		},
	}
}

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Render collection-level summaries",
		Commands: []*cli.Command{
			{
				Name:  "toc",
				Usage: "Write a markdown table of contents to stdout",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "prefix", Usage: "Prefix for link targets"},
					&cli.StringFlag{Name: "intro", Usage: "Text placed before the list"},
					&cli.StringFlag{Name: "outro", Usage: "Text placed after the list"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					r, err := openRepo(cmd)
					if err != nil {
						return err
					}
					out, err := generate.TOC(r, generate.TOCOptions{
						Prefix: cmd.String("prefix"),
						Intro:  cmd.String("intro"),
						Outro:  cmd.String("outro"),
					})
					if err != nil {
						return err
					}
					_, err = fmt.Fprint(cmd.Root().Writer, out)
					return err
				},
			},
			{
				Name:  "graph",
				Usage: "Write a Graphviz digraph of record relationships to stdout",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "link-prefix", Usage: "Prefix for node URLs"},
					&cli.StringFlag{Name: "extension", Usage: "Replacement extension for node URLs, e.g. .html"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					r, err := openRepo(cmd)
					if err != nil {
						return err
					}
					out, err := generate.Graph(r, generate.GraphOptions{
						LinkPrefix:    cmd.String("link-prefix"),
						LinkExtension: cmd.String("extension"),
					})
					if err != nil {
						return err
					}
					_, err = fmt.Fprint(cmd.Root().Writer, out)
					return err
				},
			},
		},
	}
}

func mcpCommand(logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the collection over the Model Context Protocol on stdio",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}
			logger.Info("mcp: serving on stdio", slog.String("dir", r.Dir()))
			return mcpserver.New(r).ServeStdio()
		},
	}
}

func main() {
	logger := newLogger()
	slog.SetDefault(logger)

	cmd := &cli.Command{
		Name:  "raido",
		Usage: "Manage architecture decision records as markdown files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "adr-dir",
				Aliases: []string{"d"},
				Usage:   "Collection directory, overriding any configured value",
				Sources: cli.EnvVars("RAIDO_DIR"),
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a settings file, bypassing discovery",
				Sources: cli.EnvVars("RAIDO_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "template",
				Usage:   "Path to a custom record template",
				Sources: cli.EnvVars("RAIDO_TEMPLATE"),
			},
		},
		Commands: []*cli.Command{
			initCommand(),
			newCommand(),
			listCommand(),
			showCommand(),
			linkCommand(),
			supersedeCommand(),
			statusCommand(),
			doctorCommand(logger),
			generateCommand(),
			mcpCommand(logger),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logger.Error("command failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
