package cmd

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matjam/scrollpaper/internal/cli/cmd/utils"
	"github.com/matjam/scrollpaper/internal/ipc"
)

func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get scrollpaper status",
		Long:  `Returns the current status of the scrollpaper process, its cells and their image streams.`,
		Run: func(cmd *cobra.Command, args []string) {
			response, err := ipc.SendStatus()
			if err != nil {
				log.Errorf("Error requesting status: %v", err)
				return
			}

			utils.PrintJSONColored(response)
		},
	}
}
