package cli

import (
	"errors"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/matjam/scrollpaper/internal/cli/cmd/utils"
)

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("scrollpaper")
		viper.SetConfigType("toml")
		viper.AddConfigPath(utils.ConfigDir())
		viper.AddConfigPath("/etc/xdg/scrollpaper")
	}

	utils.SetDefaults()

	viper.SetEnvPrefix("scrollpaper")
	viper.AutomaticEnv() // read environment variables that match

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatalf("Error reading config: %v", err)
		}
		log.Debugf("No config file found, using defaults")
	}

	if viper.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
}
