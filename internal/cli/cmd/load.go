package cmd

import (
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matjam/scrollpaper/internal/cli/cmd/utils"
	"github.com/matjam/scrollpaper/internal/ipc"
)

func NewLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load [directory] ...",
		Short: "Point the daemon at new wallpaper directories",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			dirs := make([]string, 0, len(args))
			for _, arg := range args {
				dir, err := filepath.Abs(utils.CanonicalPath(arg))
				if err != nil {
					log.Fatalf("Invalid directory %v: %v", arg, err)
				}
				dirs = append(dirs, dir)
			}

			resp, err := ipc.SendLoad(dirs)
			if err != nil {
				log.Fatalf("Failed to send 'load' command: %v", err)
			}
			log.Infof("Loading wallpapers from %d directories", resp.Loaded)
		},
	}
}
