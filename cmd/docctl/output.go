package main

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
	"github.com/AymaneHaj/Share-In/internal/core/usecase"
)

func (c *cli) printJSON(v any) error {
	encoder := json.NewEncoder(c.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (c *cli) printDocument(doc *domain.Document) error {
	if c.jsonOut {
		return c.printJSON(doc)
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", doc.ID)
	fmt.Fprintf(w, "Type:\t%s\n", doc.DocumentType.Label())
	fmt.Fprintf(w, "Status:\t%s\n", doc.Status)
	if doc.OriginalFilename != "" {
		fmt.Fprintf(w, "File:\t%s\n", doc.OriginalFilename)
	}
	if doc.User != nil {
		fmt.Fprintf(w, "User:\t%s <%s>\n", doc.User.Name, doc.User.Email)
	}
	fmt.Fprintf(w, "Created:\t%s\n", formatTime(doc.CreatedAt))
	if doc.CompletedAt != nil {
		fmt.Fprintf(w, "Completed:\t%s\n", formatTime(*doc.CompletedAt))
	}
	for _, msg := range doc.ErrorMessages {
		fmt.Fprintf(w, "Error:\t%s\n", msg)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if len(doc.ExtractedData) > 0 {
		fmt.Fprintln(c.out, "Extracted data:")
		c.printData(doc.ExtractedData)
	}
	return nil
}

func (c *cli) printData(data domain.ExtractedData) {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	for _, key := range keys {
		fmt.Fprintf(w, "  %s:\t%s\n", key, data[key])
	}
	_ = w.Flush()
}

func (c *cli) printPage(page *domain.DocumentPage, withUser bool) error {
	if c.jsonOut {
		return c.printJSON(page)
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	header := "ID\tTYPE\tSTATUS\tFILE\tCREATED"
	if withUser {
		header += "\tUSER"
	}
	fmt.Fprintln(w, header)
	for _, doc := range page.Documents {
		line := fmt.Sprintf("%s\t%s\t%s\t%s\t%s", doc.ID, doc.DocumentType, doc.Status, doc.OriginalFilename, formatTime(doc.CreatedAt))
		if withUser {
			owner := ""
			if doc.User != nil {
				owner = doc.User.Email
			}
			line += "\t" + owner
		}
		fmt.Fprintln(w, line)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "page %d of %d (%d documents)\n", page.Page, max(page.TotalPages, 1), page.Total)
	return nil
}

func (c *cli) printGroups(groups []domain.FieldGroup, value func(key string) string) {
	for _, group := range groups {
		fmt.Fprintf(c.out, "[%s]\n", group.Title)
		w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		for _, field := range group.Fields {
			if value == nil {
				fmt.Fprintf(w, "  %s\t%s\n", field.Key, field.Label)
				continue
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\n", field.Key, field.Label, value(field.Key))
		}
		_ = w.Flush()
	}
}

func (c *cli) printForm(form *usecase.ReviewForm) {
	fmt.Fprintf(c.out, "Review %s %s\n", form.DocumentType().Label(), form.DocumentID())
	c.printGroups(form.Groups(), form.Value)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

// parseAssignments turns key=value pairs into a map, rejecting entries without a key.
func parseAssignments(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, domain.Invalidf("--set expects key=value, got %q", pair)
		}
		out[key] = value
	}
	return out, nil
}
