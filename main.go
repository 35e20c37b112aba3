package main

import (
	"flag"
	"log"

	"uploadhub/config"
	"uploadhub/server"
)

func main() {
	var port uint
	var cfgFile string

	flag.UintVar(&port, "port", 0, "Override the configured listen port")
	flag.StringVar(&cfgFile, "config", "", "Path to the config file")
	flag.Parse()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}
	if port != 0 {
		cfg.Server.Port = int(port)
	}

	log.Fatal(server.Start(cfg))
}
