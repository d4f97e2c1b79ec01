// rr queries the RACE RESULT event API from the command line.
//
// Usage:
//
//	rr events [--year=2024] [--name=city]
//	rr whoami
//	rr tables
//	rr count    --event=123456 participants [--filter='[Contest]=1']
//	rr list     --event=123456 participants --fields=Bib,Lastname [--limit=20] [--all]
//	rr distinct --event=123456 rawdata DecoderID
//
// Credentials and defaults come from the environment (RR_API_KEY or
// RR_USER/RR_PASSWORD, RR_SERVER, RR_EVENT, RR_SCHEMA_FILE, LOG_LEVEL).
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/usestring/raceresult-go/internal/config"
	"github.com/usestring/raceresult-go/internal/logging"
	"github.com/usestring/raceresult-go/internal/schemafile"
	"github.com/usestring/raceresult-go/pkg/client"
	"github.com/usestring/raceresult-go/pkg/endpoints"
	"github.com/usestring/raceresult-go/pkg/query"
)

// version is set at build time via -ldflags.
var version = "dev"

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	event      string
	format     string
	jq         string
	schemaFile string
	verbose    bool
}

// app holds what the commands share once flags are parsed.
type app struct {
	flags globalFlags
	cfg   *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "rr",
		Short: "Query the RACE RESULT event API",
		Long:  "rr lists events and counts, lists and inspects the participant,\nraw data and history tables of RACE RESULT events.",
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}
	root.Version = version

	f := root.PersistentFlags()
	f.StringVarP(&a.flags.event, "event", "e", "", "Event ID (default: RR_EVENT)")
	f.StringVarP(&a.flags.format, "format", "o", "table", "Output format: table, markdown, csv or json")
	f.StringVar(&a.flags.jq, "jq", "", "jq expression applied to the JSON output")
	f.StringVar(&a.flags.schemaFile, "schema-file", "", "Extra table schemas, YAML or JSON (default: RR_SCHEMA_FILE)")
	f.BoolVarP(&a.flags.verbose, "verbose", "v", false, "Log requests to stderr")

	root.AddCommand(
		newEventsCmd(a),
		newWhoAmICmd(a),
		newTablesCmd(a),
		newCountCmd(a),
		newListCmd(a),
		newDistinctCmd(a),
	)
	return root
}

func (a *app) setup(stderr io.Writer) error {
	switch a.flags.format {
	case "table", "markdown", "csv", "json":
	default:
		return fmt.Errorf("unknown output format %q", a.flags.format)
	}

	a.cfg = config.Load()
	if a.flags.event != "" {
		a.cfg.EventID = a.flags.event
	}
	if a.flags.schemaFile != "" {
		a.cfg.SchemaFile = a.flags.schemaFile
	}

	logCfg := a.cfg.Log
	if a.flags.verbose {
		logCfg.Level = "debug"
	} else if os.Getenv("LOG_LEVEL") == "" {
		logCfg.Level = "warn"
	}
	slog.SetDefault(slog.New(logging.NewHandler(stderr, logCfg)))
	return nil
}

// connect returns a client with an active session and a function that ends
// it. A session passed via RR_SESSION is reused and left open.
func (a *app) connect(ctx context.Context) (*client.Client, func(), error) {
	c := a.cfg.NewClient()
	if a.cfg.SessionID != "" {
		return c, func() {}, nil
	}

	creds, err := a.cfg.Credentials()
	if err != nil {
		return nil, nil, err
	}
	if err := c.Login(ctx, creds, a.cfg.LoginOptions()...); err != nil {
		if errors.Is(err, client.ErrTOTPRequired) {
			return nil, nil, fmt.Errorf("%w: set RR_TOTP", err)
		}
		return nil, nil, err
	}
	logout := func() {
		if err := c.Logout(context.Background()); err != nil {
			slog.Warn("logout failed", slog.String("error", err.Error()))
		}
	}
	return c, logout, nil
}

func (a *app) eventID() (string, error) {
	if a.cfg.EventID == "" {
		return "", errors.New("no event: pass --event or set RR_EVENT")
	}
	return a.cfg.EventID, nil
}

// tables returns the built-in tables merged with the schema file.
func (a *app) tables() (map[string]query.Schema, error) {
	tables := endpoints.Schemas()
	if a.cfg.SchemaFile == "" {
		return tables, nil
	}
	schemas, err := schemafile.Load(a.cfg.SchemaFile)
	if err != nil {
		return nil, err
	}
	for _, s := range schemas {
		tables[s.Table] = s
	}
	return tables, nil
}

// engine resolves table and connects to the selected event.
func (a *app) engine(ctx context.Context, table string) (*query.Engine, func(), error) {
	tables, err := a.tables()
	if err != nil {
		return nil, nil, err
	}
	schema, ok := tables[table]
	if !ok {
		return nil, nil, unknownTable(table)
	}
	eventID, err := a.eventID()
	if err != nil {
		return nil, nil, err
	}
	c, done, err := a.connect(ctx)
	if err != nil {
		return nil, nil, err
	}
	e, err := query.New(c.Event(eventID), schema)
	if err != nil {
		done()
		return nil, nil, err
	}
	return e, done, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		printError(os.Stderr, err)
		cancel()
		os.Exit(1)
	}
}

// printError writes err to w, with a red prefix on terminals.
func printError(w io.Writer, err error) {
	prefix := "rr:"
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		c := color.New(color.FgRed, color.Bold)
		c.EnableColor()
		prefix = c.Sprint(prefix)
	}
	fmt.Fprintln(w, prefix, err)
}
