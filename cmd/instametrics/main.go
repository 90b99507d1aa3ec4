package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/spf13/pflag"
	"instametrics/internal"
	"instametrics/internal/catalog"
	"instametrics/internal/di"
	"instametrics/internal/models"
	"instametrics/internal/structures"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"
)

const usage = `Usage: instametrics [flags] [command] [command flags]

Commands:
  serve     run the HTTP API and the daily collector (default)
  collect   run the collector jobs once and exit
  seed      create a tenant and its first user
  connect   store an Instagram credential for a user's tenant
  archive   list purged snapshot archives, or their snapshots with --account
  metrics   print the metric catalog and the deprecated names it rewrites

Flags:
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "instametrics: %s\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := &structures.CliFlags{}
	global := pflag.NewFlagSet("instametrics", pflag.ContinueOnError)
	global.StringVarP(&flags.ConfigPath, "config", "c", "config.yaml", "path to the YAML config file")
	global.StringVar(&flags.EnvFile, "env", ".env", "optional dotenv file loaded before the config")
	global.BoolVar(&flags.DebugMode, "debug", false, "debug mode")
	global.SetInterspersed(false)
	global.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		global.PrintDefaults()
	}
	if err := global.Parse(args); err != nil {
		return err
	}

	command, rest := "serve", global.Args()
	if len(rest) > 0 {
		command, rest = rest[0], rest[1:]
	}

	switch command {
	case "serve":
		return serve(flags)
	case "collect":
		return withAdmin(flags, func(ctx context.Context, admin *internal.Admin) error {
			return admin.Collect(ctx)
		})
	case "seed":
		return seed(flags, rest)
	case "connect":
		return connect(flags, rest)
	case "archive":
		return archive(flags, rest)
	case "metrics":
		return printCatalog(os.Stdout)
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func serve(flags *structures.CliFlags) error {
	app, err := di.InitApp(flags)
	if err != nil {
		return err
	}
	return app.Run()
}

func withAdmin(flags *structures.CliFlags, fn func(context.Context, *internal.Admin) error) error {
	admin, err := di.InitAdmin(flags)
	if err != nil {
		return err
	}
	defer admin.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return fn(ctx, admin)
}

func seed(flags *structures.CliFlags, args []string) error {
	var in internal.SeedInput
	fs := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	fs.StringVar(&in.TenantCode, "tenant", "", "tenant code, e.g. the company registration number")
	fs.StringVar(&in.CompanyName, "company", "", "company name")
	fs.StringVar(&in.Name, "name", "", "user display name")
	fs.StringVar(&in.Email, "email", "", "user email")
	fs.StringVar(&in.Password, "password", "", "user password, at least 8 characters")
	fs.StringVar(&in.Role, "role", "", "user role (default admin)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withAdmin(flags, func(ctx context.Context, admin *internal.Admin) error {
		user, err := admin.Seed(ctx, in)
		if err != nil {
			return err
		}
		fmt.Printf("created user %d (%s) for tenant %s\n", user.ID, user.Email, in.TenantCode)
		return nil
	})
}

func connect(flags *structures.CliFlags, args []string) error {
	var email, account, token string
	fs := pflag.NewFlagSet("connect", pflag.ContinueOnError)
	fs.StringVar(&email, "email", "", "email of a user in the target tenant")
	fs.StringVar(&account, "account", "", "Instagram business account id")
	fs.StringVar(&token, "token", "", "Instagram Graph API access token")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withAdmin(flags, func(ctx context.Context, admin *internal.Admin) error {
		cred, err := admin.Connect(ctx, email, account, token)
		if err != nil {
			return err
		}
		fmt.Printf("connected @%s (%s), token valid until %s\n",
			cred.Username, cred.InstagramAccountID, cred.ExpiresAt.Format("2006-01-02"))
		return nil
	})
}

func archive(flags *structures.CliFlags, args []string) error {
	var account string
	var all bool
	fs := pflag.NewFlagSet("archive", pflag.ContinueOnError)
	fs.StringVar(&account, "account", "", "print archived snapshots of this Instagram account id")
	fs.BoolVar(&all, "snapshots", false, "print archived snapshots of every account")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return withAdmin(flags, func(_ context.Context, admin *internal.Admin) error {
		if account == "" && !all {
			summaries, err := admin.Archives()
			if err != nil {
				return err
			}
			return printArchives(os.Stdout, summaries)
		}
		snapshots, err := admin.ArchivedSnapshots(account)
		if err != nil {
			return err
		}
		return printSnapshots(os.Stdout, snapshots)
	})
}

func printArchives(out io.Writer, summaries []internal.ArchiveSummary) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FILE\tCUTOFF\tARCHIVED AT\tSNAPSHOTS")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", s.File, s.Cutoff, s.ArchivedAt.Format(time.RFC3339), s.Snapshots)
	}
	return w.Flush()
}

func printSnapshots(out io.Writer, snapshots []models.FollowerSnapshot) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tDATE\tFOLLOWERS")
	for _, s := range snapshots {
		fmt.Fprintf(w, "%s\t%s\t%d\n", s.AccountID, s.Date.Format(models.DateLayout), s.FollowerCount)
	}
	return w.Flush()
}

func printCatalog(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENTITY\tMETRIC\tMODE")
	for _, d := range catalog.Definitions() {
		mode := catalog.QueryMode(d.Name)
		if catalog.IsDemographic(d.Name) {
			mode = "lifetime"
		}
		if mode == "" {
			mode = "time_series"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.EntityType, d.Name, mode)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "DEPRECATED\tREPLACEMENT")
	for _, d := range catalog.Deprecations() {
		fmt.Fprintf(w, "%s\t%s\n", d.Old, d.Replacement)
	}
	return w.Flush()
}
