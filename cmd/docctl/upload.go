package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
	"github.com/AymaneHaj/Share-In/internal/core/usecase"
)

type uploadFlags struct {
	docType string
	recto   string
	verso   string
	sets    []string
	yes     bool
	noWait  bool
}

func (c *cli) uploadCmd() *cobra.Command {
	var f uploadFlags
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a document, wait for extraction, review and confirm",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runUpload(cmd.Context(), f)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.docType, "type", "", "cin, driving_license or vehicle_registration")
	flags.StringVar(&f.recto, "recto", "", "front image")
	flags.StringVar(&f.verso, "verso", "", "back image (optional)")
	flags.StringArrayVar(&f.sets, "set", nil, "field edit as key=value; repeatable")
	flags.BoolVar(&f.yes, "yes", false, "confirm without prompting")
	flags.BoolVar(&f.noWait, "no-wait", false, "return after the upload is accepted")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("recto")
	return cmd
}

func (c *cli) runUpload(ctx context.Context, f uploadFlags) error {
	docType, err := domain.ParseDocumentType(f.docType)
	if err != nil {
		return err
	}
	edits, err := parseAssignments(f.sets)
	if err != nil {
		return err
	}
	primary, err := readImage(f.recto)
	if err != nil {
		return err
	}
	var secondary *domain.ImageFile
	if f.verso != "" {
		img, err := readImage(f.verso)
		if err != nil {
			return err
		}
		secondary = &img
	}

	lc := c.app.NewLifecycle()
	defer lc.Close()
	if err := lc.LoadSchema(ctx); err != nil {
		c.app.Logger.Warn("field_schema_unavailable", "error", err)
	}

	doc, err := lc.Submit(ctx, docType, primary, secondary)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Uploaded %s %s (status %s)\n", docType.Label(), doc.ID, doc.Status)
	if f.noWait {
		return nil
	}

	snap, err := c.awaitExtraction(ctx, lc, doc.Status)
	if err != nil {
		return err
	}
	switch snap.Phase {
	case usecase.PhaseFailed:
		return snap.Err
	case usecase.PhaseConfirmed:
		fmt.Fprintf(c.out, "Document %s is already confirmed\n", snap.Document.ID)
		return nil
	}

	c.printForm(snap.Form)
	if len(edits) > 0 {
		for key, value := range edits {
			if err := lc.EditField(key, value); err != nil {
				return err
			}
		}
	} else if !f.yes {
		if err := c.promptFields(lc, snap.Form); err != nil {
			return err
		}
	}

	if !f.yes {
		ok, err := c.ask("Confirm these values? [y/N] ")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintf(c.out, "Not confirmed; document %s stays completed\n", snap.Document.ID)
			return nil
		}
	}

	confirmed, err := lc.Confirm(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Document %s confirmed\n", confirmed.ID)
	if c.jsonOut {
		return c.printJSON(confirmed)
	}
	return nil
}

// awaitExtraction prints each status change until the lifecycle leaves awaiting_processing
// or polling stops on an error.
func (c *cli) awaitExtraction(ctx context.Context, lc *usecase.Lifecycle, last domain.Status) (usecase.LifecycleSnapshot, error) {
	for {
		snap, err := lc.Wait(ctx, func(s usecase.LifecycleSnapshot) bool {
			if s.Phase != usecase.PhaseAwaitingProcessing || (!s.Polling && s.Err != nil) {
				return true
			}
			return s.Document != nil && s.Document.Status != last
		})
		if err != nil {
			return snap, err
		}
		if snap.Document != nil && snap.Document.Status != last {
			last = snap.Document.Status
			fmt.Fprintf(c.out, "Status: %s\n", last)
		}
		if snap.Phase != usecase.PhaseAwaitingProcessing {
			return snap, nil
		}
		if !snap.Polling && snap.Err != nil {
			return snap, snap.Err
		}
	}
}

func (c *cli) promptFields(lc *usecase.Lifecycle, form *usecase.ReviewForm) error {
	fmt.Fprintln(c.out, "Press enter to keep a value.")
	for _, group := range form.Groups() {
		for _, field := range group.Fields {
			fmt.Fprintf(c.out, "%s [%s]: ", field.Label, form.Value(field.Key))
			line, err := c.readLine()
			if err != nil {
				return err
			}
			if line == "" {
				continue
			}
			if err := lc.EditField(field.Key, line); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *cli) ask(prompt string) (bool, error) {
	fmt.Fprint(c.out, prompt)
	line, err := c.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (c *cli) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func readImage(path string) (domain.ImageFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ImageFile{}, domain.Invalidf("cannot read %s: %v", path, err)
	}
	return domain.ImageFile{Name: filepath.Base(path), Data: data}, nil
}
