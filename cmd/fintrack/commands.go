package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fintrack/go/finance"
)

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":        {"login [-token T]", runLogin},
	"logout":       {"logout", runLogout},
	"whoami":       {"whoami", runWhoami},
	"accounts":     {"accounts [-type T] [-bank B] [-limit N] [-stats -from D -to D]", runAccounts},
	"transactions": {"transactions [-limit N] [-offset N] [-from D] [-to D] [-type income|expense] [-category ID] [-search TEXT]", runTransactions},
	"totals":       {"totals [-month YYYY-MM] [-user ID]", runTotals},
	"categories":   {"categories [-id ID]", runCategories},
	"stats":        {"stats [-from D] [-to D] [-kind summary|categories|all]", runStats},
	"prefs":        {"prefs [-set key=bool]...", runPrefs},
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: fintrack [-config FILE] <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "dates are %s\n", finance.DateLayout)
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

// usageError marks a command line that could not be parsed. The flag package
// has already printed the problem.
type usageError struct{ error }

func (e usageError) Unwrap() error { return e.error }

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usageError{err}
	}
	return nil
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// dateFlag is a flag.Value holding a date in finance.DateLayout.
type dateFlag struct{ time.Time }

func (d *dateFlag) String() string {
	if d.IsZero() {
		return ""
	}
	return finance.FormatDate(d.Time)
}

func (d *dateFlag) Set(s string) error {
	t, err := time.Parse(finance.DateLayout, s)
	if err != nil {
		return fmt.Errorf("dates must look like %s", finance.DateLayout)
	}
	d.Time = t
	return nil
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := a.flags("login")
	token := fs.String("token", "", "access token returned by the sign-in callback")
	if err := parse(fs, args); err != nil {
		return err
	}

	if *token == "" {
		signIn, err := a.fin.Auth.InitiateGoogleSignIn(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.errOut, "open this URL to sign in, then run `fintrack login -token <token>`:")
		fmt.Fprintln(a.out, signIn.AuthorizationURL)
		return nil
	}

	if err := a.fin.Auth.SetAccessToken(ctx, *token); err != nil {
		return err
	}
	fmt.Fprintln(a.errOut, "logged in")
	return nil
}

func runLogout(ctx context.Context, a *app, args []string) error {
	if err := parse(a.flags("logout"), args); err != nil {
		return err
	}
	// Logout ends with the login redirect, which would report an expired session.
	if err := a.fin.Auth.RemoveAccessToken(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.errOut, "logged out")
	return nil
}

func runWhoami(ctx context.Context, a *app, args []string) error {
	if err := parse(a.flags("whoami"), args); err != nil {
		return err
	}
	if _, err := a.fin.Auth.AccessToken(ctx); err != nil {
		return err
	}

	data, err := a.fin.Users.Data(ctx)
	if err != nil {
		return err
	}
	return a.print(map[string]any{
		"profile":   data.Profile,
		"dashboard": data.Preferences.Dashboard(),
	})
}

func runAccounts(ctx context.Context, a *app, args []string) error {
	var from, to dateFlag

	fs := a.flags("accounts")
	typ := fs.String("type", "", "account type (credit, savings or current)")
	bank := fs.String("bank", "", "bank name")
	limit := fs.Int("limit", 0, "maximum number of accounts")
	stats := fs.Bool("stats", false, "include income, expense and savings")
	fs.Var(&from, "from", "start of the stats range")
	fs.Var(&to, "to", "end of the stats range")
	if err := parse(fs, args); err != nil {
		return err
	}

	if *stats {
		list, err := a.fin.Accounts.WithStats(ctx, from.Time, to.Time)
		if err != nil {
			return err
		}
		return a.print(list)
	}

	list, err := a.fin.Accounts.List(ctx, finance.AccountQuery{
		Type:  finance.AccountType(*typ),
		Bank:  *bank,
		Limit: *limit,
	})
	if err != nil {
		return err
	}
	return a.print(list)
}

func runTransactions(ctx context.Context, a *app, args []string) error {
	var from, to dateFlag

	fs := a.flags("transactions")
	limit := fs.Int("limit", finance.DefaultLimit, "maximum number of transactions")
	offset := fs.Int("offset", 0, "number of transactions to skip")
	typ := fs.String("type", "", "income or expense")
	category := fs.String("category", "", "category id")
	search := fs.String("search", "", "only transactions whose description contains this")
	fs.Var(&from, "from", "earliest date")
	fs.Var(&to, "to", "latest date")
	if err := parse(fs, args); err != nil {
		return err
	}

	switch t := finance.TransactionType(*typ); t {
	case "", finance.Income, finance.Expense:
	default:
		return fmt.Errorf("unknown transaction type %q", t)
	}

	list, err := a.fin.Transactions.List(ctx, finance.TransactionQuery{
		DateFrom:            from.Time,
		DateTo:              to.Time,
		DescriptionContains: *search,
		Type:                finance.TransactionType(*typ),
		CategoryID:          *category,
		Limit:               *limit,
		Offset:              *offset,
	})
	if err != nil {
		return err
	}
	return a.print(list)
}

func runTotals(ctx context.Context, a *app, args []string) error {
	fs := a.flags("totals")
	month := fs.String("month", time.Now().Format("2006-01"), "month as YYYY-MM")
	user := fs.String("user", "", "user id (default: the logged in user)")
	if err := parse(fs, args); err != nil {
		return err
	}

	m, err := time.Parse("2006-01", *month)
	if err != nil {
		return fmt.Errorf("month must look like YYYY-MM: %w", err)
	}

	userID := *user
	if userID == "" {
		claims, err := a.fin.Auth.Claims(ctx)
		if err != nil {
			return err
		}
		userID = claims.User()
	}

	totals, err := a.fin.Transactions.MonthTotals(ctx, userID, m)
	if err != nil {
		return err
	}
	return a.print(totals)
}

func runCategories(ctx context.Context, a *app, args []string) error {
	fs := a.flags("categories")
	id := fs.String("id", "", "show a single category")
	if err := parse(fs, args); err != nil {
		return err
	}

	if *id != "" {
		c, err := a.fin.Categories.Get(ctx, *id)
		if err != nil {
			return err
		}
		return a.print(c)
	}

	list, err := a.fin.Categories.List(ctx)
	if err != nil {
		return err
	}
	return a.print(list)
}

func runStats(ctx context.Context, a *app, args []string) error {
	var from, to dateFlag

	fs := a.flags("stats")
	kind := fs.String("kind", "summary", "summary, categories or all")
	fs.Var(&from, "from", "start of the range")
	fs.Var(&to, "to", "end of the range")
	if err := parse(fs, args); err != nil {
		return err
	}

	var (
		out any
		err error
	)
	switch *kind {
	case "summary":
		out, err = a.fin.Stats.Summary(ctx, from.Time, to.Time)
	case "categories":
		out, err = a.fin.Stats.SpendingByCategory(ctx, from.Time, to.Time)
	case "all":
		out, err = a.fin.Stats.Comprehensive(ctx, from.Time, to.Time)
	default:
		return fmt.Errorf("unknown stats kind %q", *kind)
	}
	if err != nil {
		return err
	}
	return a.print(out)
}

func runPrefs(ctx context.Context, a *app, args []string) error {
	updates := map[string]bool{}

	fs := a.flags("prefs")
	fs.Func("set", "set a dashboard toggle, e.g. show_budget_summary=false", func(s string) error {
		key, value, ok := strings.Cut(s, "=")
		if !ok {
			return fmt.Errorf("expected key=bool, got %q", s)
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		updates[key] = b
		return nil
	})
	if err := parse(fs, args); err != nil {
		return err
	}

	if len(updates) == 0 {
		prefs, err := a.fin.Users.Preferences(ctx)
		if err != nil {
			return err
		}
		return a.print(prefs.UIPreferences.Dashboard())
	}

	prefs, err := a.fin.Users.SetDashboardPreferences(ctx, updates)
	if err != nil {
		return err
	}
	return a.print(prefs.UIPreferences.Dashboard())
}
