package main

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
	"github.com/AymaneHaj/Share-In/internal/core/usecase"
)

func (c *cli) adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administer every user's documents",
	}
	cmd.AddCommand(
		c.adminStatsCmd(),
		c.adminListCmd(),
		c.adminGetCmd(),
		c.adminUpdateCmd(),
		c.adminDeleteCmd(),
		c.adminUsersCmd(),
		c.adminExportCmd(),
	)
	return cmd
}

type filterFlags struct {
	docType string
	status  string
	userID  string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.docType, "type", "", "filter by document type")
	cmd.Flags().StringVar(&f.status, "status", "", "filter by status")
	cmd.Flags().StringVar(&f.userID, "user", "", "filter by user id")
}

func (f *filterFlags) filter() (domain.DocumentFilter, error) {
	filter := domain.DocumentFilter{UserID: f.userID}
	if f.docType != "" {
		docType, err := domain.ParseDocumentType(f.docType)
		if err != nil {
			return filter, err
		}
		filter.DocumentType = docType
	}
	if f.status != "" {
		status, err := domain.ParseStatus(f.status)
		if err != nil {
			return filter, err
		}
		filter.Status = status
	}
	return filter, nil
}

func (c *cli) adminStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show document and user totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := c.app.Admin.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(stats)
			}
			w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Users:\t%d\n", stats.TotalUsers)
			fmt.Fprintf(w, "Documents:\t%d\n", stats.TotalDocuments)
			for _, t := range domain.DocumentTypes() {
				fmt.Fprintf(w, "  %s:\t%d\n", t.Label(), stats.DocumentsByType[t])
			}
			for _, s := range domain.Statuses() {
				fmt.Fprintf(w, "  %s:\t%d\n", s, stats.DocumentsByStatus[s])
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if len(stats.RecentDocuments) > 0 {
				fmt.Fprintln(c.out, "Recent:")
				return c.printPage(&domain.DocumentPage{
					Documents:  stats.RecentDocuments,
					Total:      len(stats.RecentDocuments),
					Page:       1,
					TotalPages: 1,
				}, false)
			}
			return nil
		},
	}
}

func (c *cli) adminListCmd() *cobra.Command {
	var (
		filters       filterFlags
		page, perPage int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents of every user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := filters.filter()
			if err != nil {
				return err
			}
			result, err := c.app.Admin.List(cmd.Context(), page, perPage, filter)
			if err != nil {
				return err
			}
			return c.printPage(result, true)
		},
	}
	filters.register(cmd)
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&perPage, "per-page", 10, "documents per page")
	return cmd
}

func (c *cli) adminGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <document-id>",
		Short: "Show any document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := c.app.Admin.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.printDocument(doc)
		},
	}
}

func (c *cli) adminUpdateCmd() *cobra.Command {
	var status, data string
	cmd := &cobra.Command{
		Use:   "update <document-id>",
		Short: "Replace a document's extracted data and/or status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if status == "" && data == "" {
				return domain.Invalidf("nothing to update: pass --status and/or --data")
			}

			var patch domain.DocumentPatch
			if data != "" {
				current, err := c.app.Admin.Get(ctx, args[0])
				if err != nil {
					return err
				}
				editor := usecase.NewJSONEditor(current.ExtractedData)
				if !editor.Apply(data) {
					return domain.Invalidf("--data must be a JSON object")
				}
				patch = editor.Patch(nil)
			}
			if status != "" {
				parsed, err := domain.ParseStatus(status)
				if err != nil {
					return err
				}
				patch.Status = &parsed
			}

			doc, err := c.app.Admin.Update(ctx, args[0], patch)
			if err != nil {
				return err
			}
			return c.printDocument(doc)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "new status")
	cmd.Flags().StringVar(&data, "data", "", "extracted data as a JSON object")
	return cmd
}

func (c *cli) adminDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Admin.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Deleted %s\n", args[0])
			return nil
		},
	}
}

func (c *cli) adminUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List every account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			users, err := c.app.Admin.Users(cmd.Context())
			if err != nil {
				return err
			}
			if c.jsonOut {
				return c.printJSON(users)
			}
			slices.SortFunc(users, func(a, b domain.User) int { return strings.Compare(a.Email, b.Email) })
			w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLE\tACTIVE")
			for _, u := range users {
				active := "-"
				if u.IsActive != nil {
					active = fmt.Sprint(*u.IsActive)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Email, u.Name, u.Role, active)
			}
			return w.Flush()
		},
	}
}

func (c *cli) adminExportCmd() *cobra.Command {
	var (
		filters filterFlags
		out     string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write matching documents and stats to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := filters.filter()
			if err != nil {
				return err
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := c.app.Admin.Export(cmd.Context(), f, filter); err != nil {
				_ = f.Close()
				_ = os.Remove(out)
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", out, err)
			}
			fmt.Fprintf(c.out, "Exported to %s\n", out)
			return nil
		},
	}
	filters.register(cmd)
	cmd.Flags().StringVar(&out, "out", "documents.xlsx", "output file")
	return cmd
}
