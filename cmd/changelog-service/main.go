package main

import (
	"flag"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/matoous/changelog/changelogservice"
)

func main() {
	// Optional build-target flag override (local | cloud)
	buildTarget := flag.String("build-target", "", "Override BUILD_TARGET (local, cloud)")
	flag.Parse()

	if err := changelogservice.Run(*buildTarget); err != nil {
		log.Error().Err(err).Msg("changelog-service exited with error")
		os.Exit(1)
	}
}
