package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docu-prompt-engine/internal/app"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/entity"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/ingest"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/server"
)

var errSomeFailed = errors.New("one or more documents failed")

func newProcessCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "process <file>",
		Short: "Process one document and print the stored record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts, true)
			if err != nil {
				return err
			}
			defer a.Close()

			src, err := stageCopy(a, args[0])
			if err != nil {
				return err
			}
			doc, err := a.Processor.Process(cmd.Context(), src, a.Store)
			if err != nil {
				_ = printJSON(cmd.OutOrStdout(), server.NewErrorView(err))
				return err
			}
			return printJSON(cmd.OutOrStdout(), doc)
		},
	}
}

func newBatchCmd(opts *options) *cobra.Command {
	var (
		out        string
		skipHidden bool
	)
	cmd := &cobra.Command{
		Use:   "batch <file|dir>...",
		Short: "Process files and directories, printing one outcome per file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := expandArgs(args, skipHidden)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return errors.New("no supported documents found")
			}

			a, err := openApp(cmd, opts, true)
			if err != nil {
				return err
			}
			defer a.Close()

			files := make([]entity.SourceFile, 0, len(paths))
			for _, p := range paths {
				src, err := stageCopy(a, p)
				if err != nil {
					for _, f := range files {
						a.Processor.Discard(f)
					}
					return err
				}
				files = append(files, src)
			}

			outcomes := a.Batch.Run(cmd.Context(), files, a.Store)
			views := make([]server.OutcomeView, 0, len(outcomes))
			failed := 0
			for _, o := range outcomes {
				views = append(views, server.NewOutcomeView(o))
				if !o.OK() {
					failed++
				}
			}
			if err := printJSON(cmd.OutOrStdout(), views); err != nil {
				return err
			}
			if out != "" {
				if err := writeExport(cmd, a, out); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d", errSomeFailed, failed, len(outcomes))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "also write an XLSX export of all documents to this path")
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "skip hidden files and directories when scanning")
	return cmd
}

func newListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored documents, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, opts, false)
			if err != nil {
				return err
			}
			defer a.Close()

			docs, err := a.Store.ListAll(cmd.Context())
			if err != nil {
				return err
			}
			if docs == nil {
				docs = []entity.Document{}
			}
			return printJSON(cmd.OutOrStdout(), docs)
		},
	}
}

func newExportCmd(opts *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all stored documents to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd, opts, false)
			if err != nil {
				return err
			}
			defer a.Close()
			return writeExport(cmd, a, out)
		},
	}
	cmd.Flags().StringVar(&out, "out", "documents.xlsx", "output XLSX path")
	return cmd
}

func writeExport(cmd *cobra.Command, a *app.App, out string) error {
	b, err := a.Export.ExportDocumentsXLSX(cmd.Context())
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", out, len(b))
	return nil
}

// stageCopy copies path into the upload dir so the pipeline can delete its
// working copy without touching the user's file.
func stageCopy(a *app.App, path string) (entity.SourceFile, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return entity.SourceFile{}, err
	}
	if err := a.Stager.Check(path, fi.Size()); err != nil {
		return entity.SourceFile{}, fmt.Errorf("%s: %w", path, err)
	}
	f, err := os.Open(path)
	if err != nil {
		return entity.SourceFile{}, err
	}
	defer f.Close()
	return a.Stager.Stage(f, filepath.Base(path))
}

// expandArgs keeps explicit files in order and expands directories in lexical order.
func expandArgs(args []string, skipHidden bool) ([]string, error) {
	var paths []string
	for _, arg := range args {
		fi, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			paths = append(paths, arg)
			continue
		}
		found, _, err := ingest.CollectFiles(arg, skipHidden)
		if err != nil {
			return nil, err
		}
		paths = append(paths, found...)
	}
	return paths, nil
}
