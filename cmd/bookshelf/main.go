package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	apiclient "github.com/splax/bookshelf/pkg/api/client"
)

var buildVersion = "dev"

const requestTimeout = 15 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	apiBase string
	cfg     cliConfig
	client  *apiclient.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "bookshelf",
		Short:         "Command line client for the bookshelf API",
		Version:       buildVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.init()
		},
	}
	root.PersistentFlags().StringVar(&a.apiBase, "api", "", "API base URL (default "+defaultAPIBaseURL+")")

	root.AddCommand(a.signupCmd(), a.signinCmd(), a.whoamiCmd(), a.booksCmd(), a.authorsCmd())
	return root
}

func (a *app) init() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if strings.TrimSpace(a.apiBase) != "" {
		cfg.APIBaseURL = a.apiBase
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.client = client
	return nil
}

func (a *app) token() (string, error) {
	if strings.TrimSpace(a.cfg.AccessToken) == "" {
		return "", errors.New("not signed in; run `bookshelf signin` first")
	}
	return a.cfg.AccessToken, nil
}

func readPassword(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Print("Password: ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Print("\n")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}

func (a *app) signupCmd() *cobra.Command {
	var in apiclient.SignupInput
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a new account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(in.Password)
			if err != nil {
				return err
			}
			in.Password = password
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			user, err := a.client.Signup(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s (id %d, role %s)\n", user.Email, user.ID, user.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&in.Password, "password", "", "password (prompted when omitted)")
	cmd.Flags().StringVar(&in.Name, "name", "", "first name")
	cmd.Flags().StringVar(&in.Surname, "surname", "", "last name")
	cmd.Flags().StringVar(&in.Role, "role", "", "admin or viewer (default viewer)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) signinCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in and store the access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			secret, err := readPassword(password)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			token, err := a.client.Signin(ctx, email, secret)
			if err != nil {
				return err
			}
			a.cfg.AccessToken = token.AccessToken
			if err := saveConfig(a.cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in; token valid for %s\n", time.Duration(token.ExpiresIn)*time.Second)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := a.token()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			id, err := a.client.Me(ctx, token)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (id %d, role %s)\n", id.Email, id.ID, id.Role)
			return nil
		},
	}
}

func (a *app) booksCmd() *cobra.Command {
	books := &cobra.Command{Use: "books", Short: "Browse and manage books"}

	var filter apiclient.BookFilter
	list := &cobra.Command{
		Use:   "list",
		Short: "List books",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := a.token()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			items, err := a.client.ListBooks(ctx, token, filter)
			if err != nil {
				return err
			}
			printBooks(cmd.OutOrStdout(), items)
			return nil
		},
	}
	list.Flags().StringVar(&filter.Search, "search", "", "match title or author name")
	list.Flags().StringVar(&filter.PublicationDate, "date", "", "publication date YYYY-MM-DD")
	list.Flags().StringVar(&filter.Language, "language", "", "en or fr")

	var id int64
	get := &cobra.Command{
		Use:   "get",
		Short: "Show one book",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := a.token()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			book, err := a.client.GetBook(ctx, token, id)
			if err != nil {
				return err
			}
			printBooks(cmd.OutOrStdout(), []apiclient.Book{book})
			return nil
		},
	}
	get.Flags().Int64Var(&id, "id", 0, "book id")
	_ = get.MarkFlagRequired("id")

	var in apiclient.BookInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Add a book (admin)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := a.token()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			book, err := a.client.CreateBook(ctx, token, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created book %d\n", book.ID)
			return nil
		},
	}
	create.Flags().StringVar(&in.Title, "title", "", "title")
	create.Flags().Int64Var(&in.AuthorID, "author", 0, "author id")
	create.Flags().StringVar(&in.PublicationDate, "date", "", "publication date YYYY-MM-DD")
	create.Flags().IntVar(&in.NumberOfPages, "pages", 0, "number of pages")
	create.Flags().StringVar(&in.Language, "language", "en", "en or fr")

	var deleteID int64
	del := &cobra.Command{
		Use:   "delete",
		Short: "Remove a book (admin)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := a.token()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			if err := a.client.DeleteBook(ctx, token, deleteID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted book %d\n", deleteID)
			return nil
		},
	}
	del.Flags().Int64Var(&deleteID, "id", 0, "book id")
	_ = del.MarkFlagRequired("id")

	books.AddCommand(list, get, create, del)
	return books
}

func (a *app) authorsCmd() *cobra.Command {
	authors := &cobra.Command{Use: "authors", Short: "Browse and manage authors"}

	authors.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List authors",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := a.token()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			items, err := a.client.ListAuthors(ctx, token)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSURNAME")
			for _, au := range items {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", au.ID, au.Name, au.Surname)
			}
			return tw.Flush()
		},
	})

	var name, surname string
	create := &cobra.Command{
		Use:   "create",
		Short: "Add an author (admin)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := a.token()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()
			author, err := a.client.CreateAuthor(ctx, token, name, surname)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created author %d\n", author.ID)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "first name")
	create.Flags().StringVar(&surname, "surname", "", "last name")
	authors.AddCommand(create)
	return authors
}

func printBooks(w io.Writer, books []apiclient.Book) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tDATE\tPAGES\tLANG")
	for _, b := range books {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%d\t%s\n", b.ID, b.Title, b.AuthorID, b.PublicationDate, b.NumberOfPages, b.Language)
	}
	_ = tw.Flush()
}
