package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/cmsauth/internal/server/config"
	"github.com/dmitrijs2005/cmsauth/internal/useradd"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	if err := useradd.Run(ctx, cfg, os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("%v", err)
	}

}
