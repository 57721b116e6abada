package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"

	"github.com/matjam/scrollpaper"
)

// NewGenManCmd returns a cobra command that writes a man page for every
// command under rootCmd.
func NewGenManCmd(rootCmd *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:    "genman [output-dir]",
		Short:  "Generate man pages for the scrollpaper CLI",
		Args:   cobra.ExactArgs(1),
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := filepath.Clean(args[0])
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("unable to create %v: %w", dir, err)
			}
			header := &doc.GenManHeader{
				Title:   "SCROLLPAPER",
				Section: "1",
				Source:  "scrollpaper " + strings.TrimSpace(scrollpaper.Version),
			}
			if err := doc.GenManTree(rootCmd, header, dir); err != nil {
				return err
			}
			log.Infof("Wrote man pages to %v", dir)
			return nil
		},
	}
}
