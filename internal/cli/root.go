package cli

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/matjam/scrollpaper"
	"github.com/matjam/scrollpaper/internal/cli/cmd"
	"github.com/matjam/scrollpaper/internal/cli/cmd/utils"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scrollpaper",
	Short: "A scrolling, cross-fading desktop background",
	Long: `Scrollpaper pans slowly across images that are larger than the screen
and cross-fades between them, using OpenGL for hardware acceleration.
Run without a subcommand it behaves like "scrollpaper start".`,
	Run: func(c *cobra.Command, args []string) {
		if v, err := c.Flags().GetBool("installconfig"); err == nil && v {
			utils.InstallDefaultConfig()
			return
		}

		if v, err := c.Flags().GetBool("show-config"); err == nil && v {
			log.Infof("Using config file: %v", viper.ConfigFileUsed())
			settings, err := utils.LoadSettings()
			if err != nil {
				log.Errorf("Config is invalid: %v", err)
			}
			log.Infof("All settings:")
			utils.PrintJSONColored(settings)
			return
		}

		babyBlue := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
		yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
		green := lipgloss.NewStyle().Foreground(lipgloss.Color("76"))
		if v, err := c.Flags().GetBool("version"); err == nil && v {
			log.Infof("%v version %v © 2025 %v",
				babyBlue.Render("scrollpaper "),
				green.Render(strings.Trim(scrollpaper.Version, "\n\r ")),
				yellow.Render("Nathan Ollerenshaw"))
			return
		}

		cmd.StartManager()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	RegisterFlags(rootCmd)

	rootCmd.AddCommand(
		cmd.NewStartCmd(),
		cmd.NewStopCmd(),
		cmd.NewNextCmd(),
		cmd.NewStatusCmd(),
		cmd.NewLoadCmd(),
		cmd.NewGenManCmd(rootCmd),
	)
}
