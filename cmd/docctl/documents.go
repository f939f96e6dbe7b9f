package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
)

func (c *cli) statusCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "status <document-id>",
		Short: "Show a document, optionally following it until extraction finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !watch {
				doc, err := c.app.Documents.GetDocument(ctx, args[0])
				if err != nil {
					return err
				}
				return c.printDocument(doc)
			}

			lc := c.app.NewLifecycle()
			defer lc.Close()
			doc, err := lc.Track(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Status: %s\n", doc.Status)
			snap, err := c.awaitExtraction(ctx, lc, doc.Status)
			if err != nil {
				return err
			}
			if snap.Document != nil {
				return c.printDocument(snap.Document)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "poll until the document reaches a final status")
	return cmd
}

func (c *cli) listCmd() *cobra.Command {
	var page, perPage int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your documents, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := c.app.Documents.ListDocuments(cmd.Context(), page, perPage)
			if err != nil {
				return err
			}
			return c.printPage(result, false)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&perPage, "per-page", 10, "documents per page")
	return cmd
}

func (c *cli) schemaCmd() *cobra.Command {
	var rawType string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show the review form fields per document type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := c.app.Documents.FieldSchema(cmd.Context())
			if err != nil {
				return err
			}
			types := domain.DocumentTypes()
			if rawType != "" {
				docType, err := domain.ParseDocumentType(rawType)
				if err != nil {
					return err
				}
				types = []domain.DocumentType{docType}
			}
			if c.jsonOut {
				out := make(map[domain.DocumentType][]domain.FieldGroup, len(types))
				for _, t := range types {
					out[t] = schema.Groups(t)
				}
				return c.printJSON(out)
			}
			for _, t := range types {
				fmt.Fprintf(c.out, "%s (%s)\n", t.Label(), t)
				c.printGroups(schema.Groups(t), nil)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rawType, "type", "", "only this document type")
	return cmd
}
