package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-optimizer/internal/extract"
)

var extractCmd = &cobra.Command{
	Use:   "extract FILE",
	Short: "Print the plain text of a PDF or text file",
	Long:  "Runs the same text extraction used for uploads and prints the result. Nothing is stored.",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if info.Size() > extract.MaxSize {
		return fmt.Errorf("%s: %w", path, extract.ErrTooLarge)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	kind, err := extract.DetectKind(filepath.Base(path), "", data)
	if err != nil {
		return err
	}
	text, err := extract.Extract(data, kind)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if text == "" {
		return fmt.Errorf("%s: no text found: %w", path, extract.ErrUnreadable)
	}

	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
