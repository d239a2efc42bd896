package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"memorygrid-backend/internal/domain"
	"memorygrid-backend/internal/export"
	appErrors "memorygrid-backend/pkg/errors"

	"github.com/spf13/cobra"
)

type credentials struct {
	email    string
	password string
}

func (cr *credentials) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&cr.email, "email", "", "account email")
	cmd.Flags().StringVar(&cr.password, "password", "", "account password (default $MEMGRID_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
}

func (cr *credentials) secret() string {
	if cr.password != "" {
		return cr.password
	}
	return os.Getenv("MEMGRID_PASSWORD")
}

func (c *cli) signUpCmd() *cobra.Command {
	var cr credentials
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.client.Provider.SignUp(cmd.Context(), cr.email, cr.secret())
			if err != nil {
				return err
			}
			if s == nil {
				c.printf(cmd, "Check %s for a confirmation link, then run `memgrid signin`.\n", cr.email)
				return nil
			}
			if err := c.sessions.Save(s); err != nil {
				return err
			}
			c.printf(cmd, "Signed up and signed in as %s.\n", s.Email)
			return nil
		},
	}
	cr.bind(cmd)
	return cmd
}

func (c *cli) signInCmd() *cobra.Command {
	var cr credentials
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := c.client.Provider.SignIn(cmd.Context(), cr.email, cr.secret())
			if err != nil {
				return err
			}
			if err := c.sessions.Save(s); err != nil {
				return err
			}
			c.printf(cmd, "Signed in as %s.\n", s.Email)
			return nil
		},
	}
	cr.bind(cmd)
	return cmd
}

func (c *cli) signOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			remoteErr := c.client.Provider.SignOut(cmd.Context())
			if err := c.sessions.Clear(); err != nil {
				return err
			}
			if remoteErr != nil {
				c.printf(cmd, "Signed out locally; the server did not confirm: %v\n", remoteErr)
				return nil
			}
			c.printf(cmd, "Signed out.\n")
			return nil
		},
	}
}

func (c *cli) whoAmICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := c.current(cmd.Context())
			if s == nil {
				return appErrors.NewUnauthenticated("")
			}
			c.printf(cmd, "%s (%s)\n", s.Email, s.UserID)
			return nil
		},
	}
}

func (c *cli) listCmd() *cobra.Command {
	var private bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List public memories, or your private ones with --private",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, err := c.client.Memories(ctx)
			if err != nil {
				return err
			}

			var memories []domain.Memory
			if private {
				s := c.current(ctx)
				if s == nil {
					return appErrors.NewUnauthenticated("")
				}
				memories = svc.FetchPrivateMemories(ctx, s.UserID)
			} else {
				memories = svc.FetchPublicMemories(ctx)
			}
			printMemories(cmd, memories)
			return nil
		},
	}
	cmd.Flags().BoolVar(&private, "private", false, "list your private memories")
	return cmd
}

func printMemories(cmd *cobra.Command, memories []domain.Memory) {
	out := cmd.OutOrStdout()
	if len(memories) > 0 {
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TITLE\tCATEGORY\tDATE\tAUTHOR\tPREVIEW")
		for _, m := range memories {
			author := "-"
			if m.AuthorLabel != nil {
				author = *m.AuthorLabel
			}
			preview := strings.Join(strings.Fields(m.Preview()), " ")
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.Title, m.Category, m.CreatedAtDisplay, author, preview)
		}
		_ = tw.Flush()
	}
	fmt.Fprintln(out, domain.CountLabel(len(memories)))
}

func (c *cli) addCmd() *cobra.Command {
	var draft struct {
		title, category, content, visibility string
	}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a memory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, err := c.client.Memories(ctx)
			if err != nil {
				return err
			}
			m, err := svc.CreateMemory(ctx, domain.Draft{
				Title:      draft.title,
				Category:   domain.Category(draft.category),
				Content:    draft.content,
				Visibility: domain.Visibility(draft.visibility),
			})
			if err != nil {
				if field := appErrors.FieldOf(err); field != "" {
					return fmt.Errorf("--%s: %w", field, err)
				}
				return err
			}
			c.printf(cmd, "Added %q (%s, %s) on %s.\n", m.Title, m.Category, m.Visibility, m.CreatedAtDisplay)
			return nil
		},
	}
	cmd.Flags().StringVar(&draft.title, "title", "", "memory title")
	cmd.Flags().StringVar(&draft.category, "category", "", "one of "+categoryList())
	cmd.Flags().StringVar(&draft.content, "content", "", "memory text")
	cmd.Flags().StringVar(&draft.visibility, "visibility", "", "private (default) or public")
	return cmd
}

func categoryList() string {
	names := make([]string, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}

func (c *cli) exportCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download every memory visible to you as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, err := c.client.Memories(ctx)
			if err != nil {
				return err
			}
			owner := ""
			if s := c.current(ctx); s != nil {
				owner = s.UserID
			}

			sink := export.FileSink{Dir: dir}
			name, err := svc.ExportVisible(ctx, owner, sink)
			if err != nil {
				if appErrors.IsStore(err) {
					return fmt.Errorf("export failed, the memory store is unavailable: %w", err)
				}
				return err
			}
			c.printf(cmd, "Exported to %s\n", sink.Path(name))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory to write the file into (default current directory)")
	return cmd
}
