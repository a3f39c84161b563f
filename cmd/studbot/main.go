package main

import (
	"log"

	"github.com/m3rciful/studbot/bot"
	"github.com/m3rciful/studbot/core/cmd"
)

func main() {
	if err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config/config.yaml",
		LoadConfig:        bot.Load,
		Bootstrap:         bot.Bootstrap,
	}); err != nil {
		log.Fatalf("studbot: %v", err)
	}
}
