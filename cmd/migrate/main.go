package main

import (
	"log"

	tool "github.com/sandeepkv93/secure-login-portal/internal/tools/migrate"
)

func main() {
	if err := tool.NewRootCommand().Execute(); err != nil {
		log.Fatal(err)
	}
}
