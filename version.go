package scrollpaper

import (
	_ "embed"
)

//go:embed VERSION
var Version string

//go:embed scrollpaper.toml
var DefaultConfig string
