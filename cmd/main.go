package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"radrush-quiz-service/internal/cli"
)

func main() {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load("config/.env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
			os.Stderr.WriteString("warning: could not load config/.env: " + err.Error() + "\n")
		}
	}
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
