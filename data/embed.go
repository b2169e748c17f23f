package data

import "embed"

var (
	//go:embed profiles
	Profiles embed.FS
)
