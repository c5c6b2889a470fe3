package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/tipshjalpen/resultat/internal/config"
	"github.com/tipshjalpen/resultat/internal/logger"
	"github.com/tipshjalpen/resultat/pkg/results"
	"github.com/tipshjalpen/resultat/pkg/server"
	"github.com/tipshjalpen/resultat/pkg/transport"
	"github.com/tipshjalpen/resultat/pkg/web"
)

// ErrUsage is returned for bad command lines; the caller prints usage
var ErrUsage = errors.New("usage")

// FetchFunc downloads one season file
type FetchFunc func(ctx context.Context, url string) ([]byte, error)

// Processor runs the command line subcommands against one configuration
type Processor struct {
	cfg   config.Config
	repo  *results.Repository
	out   io.Writer
	fetch FetchFunc
}

func New(cfg config.Config, out io.Writer) (*Processor, error) {
	repo, err := cfg.Repository()
	if err != nil {
		return nil, err
	}
	return &Processor{cfg: cfg, repo: repo, out: out, fetch: transport.FetchSeasonFile}, nil
}

// WithFetcher replaces the downloader used by the fetch command
func (p *Processor) WithFetcher(f FetchFunc) *Processor {
	p.fetch = f
	return p
}

// usages is kept apart from commands so the run functions can refer to it
var usages = map[string]string{
	"leagues": "leagues",
	"season":  "season [-json] <league>",
	"before":  "before [-json] <league> <YYYY-MM-DD>",
	"team":    "team [-json] <team>",
	"results": "results [-json] <team>",
	"teams":   "teams <league>",
	"export":  "export [-db path] [league...]",
	"fetch":   "fetch [league...]",
	"serve":   "serve [-addr host:port]",
	"mcp":     "mcp",
}

var commands = map[string]func(p *Processor, ctx context.Context, args []string) error{
	"leagues": (*Processor).runLeagues,
	"season":  (*Processor).runSeason,
	"before":  (*Processor).runBefore,
	"team":    (*Processor).runTeam,
	"results": (*Processor).runResults,
	"teams":   (*Processor).runTeams,
	"export":  (*Processor).runExport,
	"fetch":   (*Processor).runFetch,
	"serve":   (*Processor).runServe,
	"mcp":     (*Processor).runMCP,
}

// Usage lists the subcommands
func Usage() string {
	names := []string{"leagues", "season", "before", "team", "results", "teams", "export", "fetch", "serve", "mcp"}
	var b strings.Builder
	b.WriteString("commands:\n")
	for _, n := range names {
		fmt.Fprintf(&b, "  %s\n", usages[n])
	}
	return b.String()
}

// Run executes one subcommand. args[0] is the subcommand name.
func (p *Processor) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command given", ErrUsage)
	}
	run, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
	logger.Debug("Running command", args[0], args[1:])
	return run(p, ctx, args[1:])
}

// parseFlags parses a subcommand's flags and checks the positional argument count
func parseFlags(fs *flag.FlagSet, args []string, minArgs, maxArgs int) ([]string, error) {
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUsage, fs.Name(), err)
	}
	rest := fs.Args()
	if len(rest) < minArgs || (maxArgs >= 0 && len(rest) > maxArgs) {
		return nil, fmt.Errorf("%w: %s", ErrUsage, usages[fs.Name()])
	}
	return rest, nil
}

func (p *Processor) printMatches(matches []results.Match, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(p.out)
		enc.SetIndent("", "  ")
		return enc.Encode(matches)
	}
	for _, m := range matches {
		if _, err := fmt.Fprintln(p.out, m.String()); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) runLeagues(ctx context.Context, args []string) error {
	if _, err := parseFlags(flag.NewFlagSet("leagues", flag.ContinueOnError), args, 0, 0); err != nil {
		return err
	}
	for _, key := range p.repo.Leagues() {
		fmt.Fprintln(p.out, key)
	}
	return nil
}

func (p *Processor) runSeason(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("season", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print JSON")
	rest, err := parseFlags(fs, args, 1, 1)
	if err != nil {
		return err
	}
	matches, err := p.repo.AllMatchesForSeason(rest[0])
	if err != nil {
		return err
	}
	return p.printMatches(matches, *asJSON)
}

func (p *Processor) runBefore(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("before", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print JSON")
	rest, err := parseFlags(fs, args, 2, 2)
	if err != nil {
		return err
	}
	cutoff, err := time.Parse(results.DateLayout, rest[1])
	if err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrUsage)
	}
	matches, err := p.repo.AllMatchesUpToDate(cutoff.Year(), int(cutoff.Month()), cutoff.Day(), rest[0])
	if err != nil {
		return err
	}
	return p.printMatches(matches, *asJSON)
}

func (p *Processor) runTeam(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("team", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print JSON")
	rest, err := parseFlags(fs, args, 1, -1)
	if err != nil {
		return err
	}
	matches, err := p.repo.AllMatchesForTeam(strings.Join(rest, " "))
	if err != nil {
		return err
	}
	return p.printMatches(matches, *asJSON)
}

func (p *Processor) runResults(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("results", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print JSON")
	rest, err := parseFlags(fs, args, 1, -1)
	if err != nil {
		return err
	}
	matches, err := p.repo.ResultsForTeam(strings.Join(rest, " "))
	if err != nil {
		return err
	}
	return p.printMatches(matches, *asJSON)
}

func (p *Processor) runTeams(ctx context.Context, args []string) error {
	rest, err := parseFlags(flag.NewFlagSet("teams", flag.ContinueOnError), args, 1, 1)
	if err != nil {
		return err
	}
	teams, err := p.repo.Teams(rest[0])
	if err != nil {
		return err
	}
	for _, t := range teams {
		fmt.Fprintln(p.out, t)
	}
	return nil
}

// selectLeagues returns the named leagues, or all of them when none are named
func (p *Processor) selectLeagues(keys []string) ([]results.LeagueSource, error) {
	leagues, err := p.cfg.Leagues()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return leagues.Sources(), nil
	}
	sources := make([]results.LeagueSource, 0, len(keys))
	for _, k := range keys {
		src, err := leagues.Lookup(k)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, nil
}

// runExport parses leagues and writes them to the sqlite store
func (p *Processor) runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	dbPath := fs.String("db", p.cfg.DBPath, "sqlite database to write")
	keys, err := parseFlags(fs, args, 0, -1)
	if err != nil {
		return err
	}
	sources, err := p.selectLeagues(keys)
	if err != nil {
		return err
	}

	if *dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(*dbPath), 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	store, err := results.OpenStore(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.CreateTables(); err != nil {
		return err
	}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		matches, err := p.repo.AllMatchesForSeason(src.Key)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", src.Key, err)
		}
		if err := store.SaveSeason(src.Key, matches); err != nil {
			return err
		}
		fmt.Fprintf(p.out, "%s: %d matches\n", src.Key, len(matches))
	}
	return nil
}

// runFetch downloads every selected league that has a url into its path
func (p *Processor) runFetch(ctx context.Context, args []string) error {
	keys, err := parseFlags(flag.NewFlagSet("fetch", flag.ContinueOnError), args, 0, -1)
	if err != nil {
		return err
	}
	sources, err := p.selectLeagues(keys)
	if err != nil {
		return err
	}

	parser := results.NewParser(results.Options{DefaultYear: p.cfg.DefaultYear})
	fetched := 0
	for _, src := range sources {
		if src.URL == "" {
			if len(keys) > 0 {
				return fmt.Errorf("league %s has no url", src.Key)
			}
			logger.Debug("No url configured, skipping", src.Key)
			continue
		}

		data, err := p.fetch(ctx, src.URL)
		if err != nil {
			return fmt.Errorf("failed to fetch %s: %w", src.Key, err)
		}
		matches, err := parser.Parse(bytes.NewReader(data), src.Key)
		if err != nil {
			return fmt.Errorf("downloaded %s does not parse: %w", src.Key, err)
		}
		if len(matches) == 0 {
			logger.Warn("Downloaded file contains no matches", src.Key, src.URL)
		}

		if err := os.MkdirAll(filepath.Dir(src.Path), 0o755); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", src.Key, err)
		}
		if err := os.WriteFile(src.Path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", src.Path, err)
		}
		fmt.Fprintf(p.out, "%s: %d matches -> %s\n", src.Key, len(matches), src.Path)
		fetched++
	}
	if fetched == 0 {
		logger.Warn("No league has a url configured, nothing fetched")
	}
	return nil
}

func (p *Processor) runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", p.cfg.HTTP.Addr, "listen address")
	if _, err := parseFlags(fs, args, 0, 0); err != nil {
		return err
	}

	srv := web.NewServer(p.repo)
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(*addr)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		logger.Info("Received signal:", sig)
	case <-ctx.Done():
	}
	srv.Stop()
	return nil
}

// runMCP serves the JSON-RPC tools over stdin/stdout. The logger never writes to stdout.
func (p *Processor) runMCP(ctx context.Context, args []string) error {
	if _, err := parseFlags(flag.NewFlagSet("mcp", flag.ContinueOnError), args, 0, 0); err != nil {
		return err
	}
	return server.NewResultsServer(transport.NewStdioTransport(), p.repo).Start()
}
