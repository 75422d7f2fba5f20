package main

import (
	"context"
	"log"
	"os"

	"github.com/pawkeeper/mobilesession/internal/buildinfo"
	"github.com/pawkeeper/mobilesession/internal/cli"
	"github.com/pawkeeper/mobilesession/internal/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Run(ctx)

}
