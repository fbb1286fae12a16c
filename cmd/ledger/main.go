package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	apiclient "github.com/splax/ledger/pkg/client"
)

type cliConfig struct {
	APIBaseURL  string `json:"api_base_url"`
	AccessToken string `json:"access_token"`
}

const defaultAPIBase = "http://localhost:4000"

var buildVersion = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "register":
		err = commandCredentials("register", args)
	case "login":
		err = commandCredentials("login", args)
	case "tag":
		err = commandTag(args)
	case "bill":
		err = commandBill(args)
	case "version", "--version", "-v":
		fmt.Println(strings.TrimSpace(buildVersion))
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			err = fmt.Errorf("%w (run 'ledger login' again)", err)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func commandCredentials(name string, args []string) error {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	account := fs.String("account", "", "Account name")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	apiBase := fs.String("api", "", "API base URL including base path (default "+defaultAPIBase+")")
	fs.Parse(args)

	if strings.TrimSpace(*account) == "" {
		return errors.New("--account is required")
	}
	secret := *password
	if secret == "" {
		fmt.Print("Password: ")
		bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Print("\n")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		secret = string(bytes)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if strings.TrimSpace(*apiBase) != "" {
		cfg.APIBaseURL = *apiBase
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if name == "register" {
		if err := client.Register(ctx, *account, secret); err != nil {
			return err
		}
		fmt.Println("registered")
	}
	token, err := client.Login(ctx, *account, secret)
	if err != nil {
		return err
	}
	cfg.AccessToken = token
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Println("login successful")
	return nil
}

func commandTag(args []string) error {
	if len(args) == 0 {
		return errors.New("tag subcommand required (add|list|del)")
	}
	fs := flag.NewFlagSet("tag "+args[0], flag.ExitOnError)
	name := fs.String("name", "", "Tag name")
	id := fs.Int64("id", 0, "Tag id")
	fs.Parse(args[1:])

	client, err := authedClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	switch args[0] {
	case "add":
		if strings.TrimSpace(*name) == "" {
			return errors.New("--name is required")
		}
		if err := client.AddTag(ctx, *name); err != nil {
			return err
		}
		fmt.Println("tag added")
	case "list":
		tags, err := client.ListTags(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME")
		for _, t := range tags {
			fmt.Fprintf(w, "%d\t%s\n", t.ID, t.Name)
		}
		return w.Flush()
	case "del":
		if *id <= 0 {
			return errors.New("--id is required")
		}
		if err := client.DeleteTag(ctx, *id); err != nil {
			return err
		}
		fmt.Println("tag deleted")
	default:
		return fmt.Errorf("unknown tag subcommand: %s", args[0])
	}
	return nil
}

func commandBill(args []string) error {
	if len(args) == 0 {
		return errors.New("bill subcommand required (add|list|del)")
	}
	fs := flag.NewFlagSet("bill "+args[0], flag.ExitOnError)
	pay := fs.String("pay", "", "Amount, at most two decimals")
	method := fs.String("method", "", "Payment method")
	comment := fs.String("comment", "", "Comment")
	date := fs.String("date", time.Now().Format("2006-01-02"), "Transaction date (YYYY-MM-DD)")
	tagID := fs.Int64("tag", 0, "Tag id")
	id := fs.Int64("id", 0, "Transaction id")
	begin := fs.String("begin", "", "First day of the window (YYYY-MM-DD)")
	end := fs.String("end", "", "Last day of the window (YYYY-MM-DD)")
	fs.Parse(args[1:])

	client, err := authedClient()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	switch args[0] {
	case "add":
		err := client.AddTransaction(ctx, apiclient.NewTransaction{
			Pay:             *pay,
			PayMethod:       *method,
			Comment:         *comment,
			TransactionDate: *date,
			TagID:           *tagID,
		})
		if err != nil {
			return err
		}
		fmt.Println("transaction added")
	case "list":
		st, err := client.ListTransactions(ctx, *begin, *end)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDATE\tPAY\tMETHOD\tTAG\tCOMMENT")
		for _, t := range st.List {
			tag := "-"
			if t.TagName != nil {
				tag = *t.TagName
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.TransactionDate, t.Pay, t.PayMethod, tag, t.Comment)
		}
		total := "-"
		if st.PayAmount != nil {
			total = *st.PayAmount
		}
		fmt.Fprintf(w, "\tTOTAL\t%s\t\t\t\n", total)
		return w.Flush()
	case "del":
		if *id <= 0 {
			return errors.New("--id is required")
		}
		if err := client.DeleteTransaction(ctx, *id); err != nil {
			return err
		}
		fmt.Println("transaction deleted")
	default:
		return fmt.Errorf("unknown bill subcommand: %s", args[0])
	}
	return nil
}

func authedClient() (*apiclient.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, errors.New("please login first using 'ledger login'")
	}
	return apiclient.New(cfg.APIBaseURL, apiclient.WithToken(token))
}

func loadConfig() (cliConfig, error) {
	path, err := configPath()
	if err != nil {
		return cliConfig{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cliConfig{APIBaseURL: defaultAPIBase}, nil
		}
		return cliConfig{}, err
	}
	var cfg cliConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cliConfig{}, err
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBase
	}
	return cfg, nil
}

func saveConfig(cfg cliConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func configPath() (string, error) {
	if override := strings.TrimSpace(os.Getenv("LEDGER_CONFIG")); override != "" {
		return override, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "ledger", "config.json"), nil
}

func printUsage() {
	fmt.Printf("ledger CLI %s\n\n", buildVersion)
	fmt.Print(`Usage:
	ledger register --account alice [--password secret] [--api http://localhost:4000]
	ledger login --account alice [--password secret] [--api http://localhost:4000]
	ledger tag add --name food
	ledger tag list
	ledger tag del --id <tag-id>
	ledger bill add --pay 12.50 --tag <tag-id> [--method cash] [--comment lunch] [--date 2024-01-10]
	ledger bill list --begin 2024-01-01 --end 2024-01-31
	ledger bill del --id <transaction-id>
	ledger version
`)
}
