package config

import (
	"flag"
	"os"

	"github.com/pawkeeper/mobilesession/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   path to the local session database
//	-r string   AWS region of the user pool
//	-p string   base URL of the profile service
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-r", "-p"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path to the local session database")
	fs.StringVar(&cfg.AWSRegion, "r", cfg.AWSRegion, "AWS region of the user pool")
	fs.StringVar(&cfg.ProfileServiceURL, "p", cfg.ProfileServiceURL, "base URL of the profile service")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
