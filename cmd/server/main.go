package main

import (
	"campaignkit-reference/internal/app/server"
	"campaignkit-reference/internal/config"
)

func main() {
	cfg := config.Load()
	server.Run(cfg)
}
